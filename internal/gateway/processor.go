// Package gateway talks to the payment processor.
package gateway

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Processor is the set of payment processor capabilities the escrow flow needs.
// Calls block until the processor answers; there are no internal retries.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CaptureConfirmedIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	TransferToPayoutAccount(ctx context.Context, req TransferRequest) (*Transfer, error)
	VerifyWebhookSignature(payload []byte, signature string) (*Event, error)
}

type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	ChargeID     string
}

type RefundRequest struct {
	ChargeID       string
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
}

type Refund struct {
	ID     string
	Status string
}

type TransferRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Destination    string
	Metadata       map[string]string
	IdempotencyKey string
}

type Transfer struct {
	ID string
}

// Event types the webhook dispatcher understands.
const (
	EventPaymentCapturable = "payment_intent.amount_capturable_updated"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
	EventDisputeCreated    = "charge.dispute.created"
)

// Event is a verified webhook event with its data object left undecoded.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

type IntentObject struct {
	ID           string `json:"id"`
	LatestCharge string `json:"latest_charge"`
}

type ChargeObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	AmountRefunded int64  `json:"amount_refunded"`
}

type DisputeObject struct {
	ID            string `json:"id"`
	Charge        string `json:"charge"`
	PaymentIntent string `json:"payment_intent"`
	Reason        string `json:"reason"`
}

// Decode unmarshals the event's data object into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Object, v)
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount in currency units to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts cents to currency units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
