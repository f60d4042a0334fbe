package entity

import (
	"coach-booking/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
	EscrowStatusDisputed EscrowStatus = "disputed"
)

// IsFinal reports whether escrow funds have left the platform.
func (s EscrowStatus) IsFinal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusHeld:     {EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusDisputed},
	EscrowStatusDisputed: {EscrowStatusHeld, EscrowStatusRefunded},
}

func (s EscrowStatus) Transition(next EscrowStatus) (EscrowStatus, error) {
	for _, allowed := range escrowTransitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, apperr.InvalidState("escrow cannot move from %s to %s", s, next)
}

type PaymentMethod string

const (
	PaymentMethodStripe    PaymentMethod = "stripe"
	PaymentMethodApplePay  PaymentMethod = "apple_pay"
	PaymentMethodGooglePay PaymentMethod = "google_pay"
	PaymentMethodCard      PaymentMethod = "card"
)

const DefaultCurrency = "USD"

// PlatformFeePercent is the platform's share of the lesson price.
var PlatformFeePercent = decimal.NewFromInt(8)

var hundred = decimal.NewFromInt(100)

// Split is the money breakdown of one lesson charge.
type Split struct {
	LessonPrice decimal.Decimal
	FeePercent  decimal.Decimal
	Fee         decimal.Decimal
	Total       decimal.Decimal
	CoachPayout decimal.Decimal
}

// ComputeSplit rounds the fee to cents and gives the coach the remainder,
// so Fee + CoachPayout always equals LessonPrice.
func ComputeSplit(price decimal.Decimal) Split {
	price = price.Round(2)
	fee := price.Mul(PlatformFeePercent).Div(hundred).Round(2)
	return Split{
		LessonPrice: price,
		FeePercent:  PlatformFeePercent,
		Fee:         fee,
		Total:       price.Add(fee),
		CoachPayout: price.Sub(fee),
	}
}

type Payment struct {
	BaseNoDelete
	BookingID            uuid.UUID       `db:"booking_id"`
	CoachID              uuid.UUID       `db:"coach_id"`
	StudentID            uuid.UUID       `db:"student_id"`
	LessonPrice          decimal.Decimal `db:"lesson_price"`
	PlatformFeePercent   decimal.Decimal `db:"platform_fee_percent"`
	PlatformFeeAmount    decimal.Decimal `db:"platform_fee_amount"`
	TotalChargeToStudent decimal.Decimal `db:"total_charge_to_student"`
	CoachPayoutExpected  decimal.Decimal `db:"coach_payout_expected"`
	EscrowStatus         EscrowStatus    `db:"escrow_status"`
	PaymentStatus        PaymentStatus   `db:"payment_status"`
	PaymentMethod        PaymentMethod   `db:"payment_method"`
	Currency             string          `db:"currency"`
	PaymentIntentID      *string         `db:"payment_intent_id"`
	ChargeID             *string         `db:"charge_id"`
	TransferID           *string         `db:"transfer_id"`
	PayoutID             *uuid.UUID      `db:"payout_id"`
	RefundedAmount       decimal.Decimal `db:"refunded_amount"`
	DisputeID            *string         `db:"dispute_id"`
}
