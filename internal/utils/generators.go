package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Alphabet for booking code suffixes. Ambiguous characters (0/O, 1/I) are
// left out so codes survive being read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeSuffixLength = 8

// GenerateBookingCode produces a human-readable booking code of the form
// BK<yymmdd>-<suffix>. Uniqueness is probabilistic; callers must still
// collision-check against storage before use.
func GenerateBookingCode() string {
	suffix := make([]byte, codeSuffixLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand should never fail; fall back to a timestamp digit
			suffix[i] = codeAlphabet[time.Now().Nanosecond()%len(codeAlphabet)]
			continue
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("BK%s-%s", time.Now().Format("060102"), string(suffix))
}

// GenerateTransactionID creates an identifier for payment collaborator calls.
func GenerateTransactionID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999999))
	return fmt.Sprintf("txn_%d_%09d", timestamp, randomNum.Int64())
}
