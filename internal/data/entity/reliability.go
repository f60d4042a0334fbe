package entity

import "github.com/google/uuid"

// ReliabilityCounts are the inputs of a reliability score.
type ReliabilityCounts struct {
	TotalBookings   int `db:"total_bookings"`
	Reschedules     int `db:"reschedules"`
	PaidReschedules int `db:"paid_reschedules"`
	LateCancels     int `db:"late_cancels"`
	NoShows         int `db:"no_shows"`
	CoachCancels    int `db:"coach_cancels"`
}

// UserReliability is derived data; it is only ever recomputed, never edited.
type UserReliability struct {
	BaseNoDelete
	UserID uuid.UUID `db:"user_id"`
	ReliabilityCounts
	ReliabilityScore float64 `db:"reliability_score"`
}
