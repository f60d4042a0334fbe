package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
)

// RescheduleHistory is append-only except for a single approval transition.
type RescheduleHistory struct {
	BaseSimple
	BookingID         uuid.UUID      `db:"booking_id"`
	RequestedBy       UserRole       `db:"requested_by"`
	RequestedByUserID uuid.UUID      `db:"requested_by_user_id"`
	OldScheduledAt    time.Time      `db:"old_scheduled_at"`
	NewScheduledAt    time.Time      `db:"new_scheduled_at"`
	ApprovalStatus    ApprovalStatus `db:"approval_status"`
	ApprovedBy        *uuid.UUID     `db:"approved_by"`
	ApprovedAt        *time.Time     `db:"approved_at"`
	PaidReschedule    bool           `db:"paid_reschedule"`
	Reason            *string        `db:"reason"`
}

const (
	PenaltyReasonLateCancellation = "late_cancellation"
	PenaltyReasonNoShow           = "no_show"
)

// CancellationHistory is written once per cancellation and never updated.
type CancellationHistory struct {
	BaseSimple
	BookingID         uuid.UUID       `db:"booking_id"`
	CancelledBy       UserRole        `db:"cancelled_by"`
	CancelledByUserID *uuid.UUID      `db:"cancelled_by_user_id"`
	RefundAmount      decimal.Decimal `db:"refund_amount"`
	PenaltyAmount     decimal.Decimal `db:"penalty_amount"`
	PenaltyReason     *string         `db:"penalty_reason"`
	NoShow            bool            `db:"no_show"`
	Notes             *string         `db:"notes"`
	RefundPaymentID   *uuid.UUID      `db:"refund_payment_id"`
}
