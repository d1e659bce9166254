package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCodePattern = regexp.MustCompile(`^BK\d{6}-[A-HJ-NP-Z2-9]{8}$`)

func TestGenerateBookingCode_Format(t *testing.T) {
	code := GenerateBookingCode()
	assert.Regexp(t, bookingCodePattern, code)
}

func TestGenerateBookingCode_Unique(t *testing.T) {
	const n = 10000
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		code := GenerateBookingCode()
		require.False(t, seen[code], "duplicate booking code %s", code)
		seen[code] = true
	}
}

func TestGenerateTransactionID(t *testing.T) {
	a := GenerateTransactionID()
	b := GenerateTransactionID()
	assert.Regexp(t, `^txn_\d+_\d{9}$`, a)
	assert.NotEqual(t, a, b)
}
