// internal/services/processor.go
package services

import (
	"context"

	"github.com/stripe/stripe-go/v74"
)

// PaymentIntent is the subset of a processor intent the storefront
// reconciles against.
type PaymentIntent struct {
	ID                string                     `json:"id"`
	ClientSecret      string                     `json:"-"`
	Status            stripe.PaymentIntentStatus `json:"status"`
	Amount            int64                      `json:"amount"`
	Currency          string                     `json:"currency"`
	Metadata          map[string]string          `json:"metadata,omitempty"`
	LastPaymentFailed bool                       `json:"last_payment_failed"`
}

// Reusable reports whether a client may still complete this intent.
func (pi *PaymentIntent) Reusable() bool {
	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusProcessing:
		return true
	}
	return false
}

type CreateIntentParams struct {
	AmountCents    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// RefundParams identifies the payment to return. Repeating a refund with
// the same IdempotencyKey yields the original refund instead of a new one.
type RefundParams struct {
	IntentID       string
	OrderID        string
	IdempotencyKey string
}

// WebhookEvent is a verified processor event. Intent is nil for event
// types that do not carry a payment intent.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *PaymentIntent
}

type PaymentProcessor interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	Refund(ctx context.Context, params RefundParams) (string, error)
	// ParseWebhook verifies the signature header against payload.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
