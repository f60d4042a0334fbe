package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutRecordStatus string

const (
	PayoutRecordPending PayoutRecordStatus = "pending"
	PayoutRecordPaid    PayoutRecordStatus = "paid"
	PayoutRecordFailed  PayoutRecordStatus = "failed"
)

// Payout is the coach's share of one payment. There is one row per payment;
// retries after a failure reuse it.
type Payout struct {
	BaseNoDelete
	CoachID          uuid.UUID          `db:"coach_id"`
	PaymentID        uuid.UUID          `db:"payment_id"`
	Amount           decimal.Decimal    `db:"amount"`
	Currency         string             `db:"currency"`
	Status           PayoutRecordStatus `db:"status"`
	ExternalPayoutID *string            `db:"external_payout_id"`
	FailureReason    *string            `db:"failure_reason"`
	ProcessedAt      *time.Time         `db:"processed_at"`
	ClaimedUntil     *time.Time         `db:"claimed_until"`
}
