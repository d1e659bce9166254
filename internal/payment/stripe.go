package payment

import (
	"context"
	"fmt"
	"os"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// StripeProcessor charges bookings through Stripe PaymentIntents. It is one
// implementation of the orchestrator's payment collaborator; the booking
// flow only sees the returned PaymentResult.
type StripeProcessor struct {
	Currency string
	Logger   *logger.Logger
}

func NewStripeProcessor(currency string, log *logger.Logger) *StripeProcessor {
	return &StripeProcessor{Currency: currency, Logger: log}
}

func (p *StripeProcessor) Charge(ctx context.Context, bookingCode string, amount float64, method string) (*models.PaymentResult, error) {
	// VND is zero-decimal; amounts go to Stripe as-is.
	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(int64(amount)),
		Currency:      stripe.String(p.Currency),
		PaymentMethod: stripe.String(method),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(fmt.Sprintf("Cinema booking %s", bookingCode)),
	}
	params.AddMetadata("booking_code", bookingCode)
	// A fresh idempotency key per attempt; retries go through the booking
	// flow, which issues a new code.
	params.SetIdempotencyKey(uuid.NewString())

	intent, err := paymentintent.New(params)
	if err != nil {
		if p.Logger != nil {
			p.Logger.LogPayment("CHARGE_FAILED", bookingCode, err.Error())
		}
		return nil, err
	}

	result := &models.PaymentResult{TransactionID: intent.ID}
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		result.Status = models.PaymentStatusPaid
	} else {
		result.Status = models.PaymentStatusFailed
	}

	if p.Logger != nil {
		p.Logger.LogPayment("CHARGED", bookingCode, fmt.Sprintf("intent %s status %s", intent.ID, intent.Status))
	}
	return result, nil
}
