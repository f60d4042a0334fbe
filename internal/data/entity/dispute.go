package entity

import (
	"time"

	"github.com/google/uuid"
)

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

// IsActive reports whether the dispute holds auto-confirm and payout release.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

var ActiveDisputeStatuses = []DisputeStatus{DisputeStatusOpen, DisputeStatusUnderReview}

const DisputeTypeChargeback = "chargeback"

type Dispute struct {
	BaseNoDelete
	BookingID          uuid.UUID     `db:"booking_id"`
	OpenedBy           UserRole      `db:"opened_by"`
	OpenedByUserID     *uuid.UUID    `db:"opened_by_user_id"`
	DisputeType        string        `db:"dispute_type"`
	Description        *string       `db:"description"`
	Status             DisputeStatus `db:"status"`
	ResolutionNotes    *string       `db:"resolution_notes"`
	AdminID            *uuid.UUID    `db:"admin_id"`
	ResolvedAt         *time.Time    `db:"resolved_at"`
	ProcessorDisputeID *string       `db:"processor_dispute_id"`
}
