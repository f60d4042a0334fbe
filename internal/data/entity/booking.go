package entity

import (
	"time"

	"coach-booking/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending              BookingStatus = "pending"
	BookingStatusConfirmed            BookingStatus = "confirmed"
	BookingStatusAwaitingVerification BookingStatus = "awaiting_verification"
	BookingStatusCompleted            BookingStatus = "completed"
	BookingStatusCancelled            BookingStatus = "cancelled"
	BookingStatusDisputed             BookingStatus = "disputed"
)

// IsTerminal reports whether no further schedule change, cancellation or reschedule is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:              {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusConfirmed:            {BookingStatusAwaitingVerification, BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusAwaitingVerification: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusDisputed:             {BookingStatusConfirmed, BookingStatusAwaitingVerification, BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next when the move is allowed, or an invalid state error.
func (s BookingStatus) Transition(next BookingStatus) (BookingStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, apperr.InvalidState("booking cannot move from %s to %s", s, next)
	}
	return next, nil
}

// NonTerminalBookingStatuses are the statuses that still hold a lesson slot.
var NonTerminalBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusAwaitingVerification,
	BookingStatusDisputed,
}

type PayoutStatus string

const (
	PayoutStatusNone                 PayoutStatus = "none"
	PayoutStatusPending              PayoutStatus = "pending"
	PayoutStatusAwaitingVerification PayoutStatus = "awaiting_verification"
	PayoutStatusProcessing           PayoutStatus = "processing"
	PayoutStatusPaid                 PayoutStatus = "paid"
	PayoutStatusForfeited            PayoutStatus = "forfeited"
)

// ReleasablePayoutStatuses are the booking payout statuses the payout sweep picks up.
var ReleasablePayoutStatuses = []PayoutStatus{
	PayoutStatusNone,
	PayoutStatusPending,
	PayoutStatusAwaitingVerification,
}

const (
	DefaultRescheduleLimit = 1
	RescheduleDeadlineLead = 24 * time.Hour
)

type Booking struct {
	Base
	LessonID             uuid.UUID       `db:"lesson_id"`
	CoachID              uuid.UUID       `db:"coach_id"`
	PrimaryStudentID     uuid.UUID       `db:"primary_student_id"`
	ScheduledAt          time.Time       `db:"scheduled_at"`
	DurationMinutes      int             `db:"duration_minutes"`
	Price                decimal.Decimal `db:"price"`
	Status               BookingStatus   `db:"status"`
	PayoutStatus         PayoutStatus    `db:"payout_status"`
	CancelledBy          *UserRole       `db:"cancelled_by"`
	CancelledAt          *time.Time      `db:"cancelled_at"`
	MessagingLocked      bool            `db:"messaging_locked"`
	RescheduleCount      int             `db:"reschedule_count"`
	RescheduleLimit      int             `db:"reschedule_limit"`
	ExtraPaidReschedules int             `db:"extra_paid_reschedules"`
	RescheduleDeadline   time.Time       `db:"reschedule_deadline"`
	CourtLocationID      *uuid.UUID      `db:"court_location_id"`
}

func (b *Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, start+minutes) intersects the booking's slot.
func (b *Booking) Overlaps(start time.Time, minutes int) bool {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return start.Before(b.EndsAt()) && b.ScheduledAt.Before(end)
}

func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.CoachID == userID || b.PrimaryStudentID == userID
}

// RoleOf infers the side an actor acts on for this booking: admin wins, then coach, then student.
func (b *Booking) RoleOf(actor Actor) UserRole {
	switch {
	case actor.Role == RoleAdmin:
		return RoleAdmin
	case actor.Role == RoleSystem:
		return RoleSystem
	case actor.UserID == b.CoachID:
		return RoleCoach
	default:
		return RoleStudent
	}
}

// CanAccess reports whether the actor is a participant or an admin.
func (b *Booking) CanAccess(actor Actor) bool {
	return actor.IsAdmin() || actor.Role == RoleSystem || b.IsParticipant(actor.UserID)
}

func DeadlineFor(scheduledAt time.Time) time.Time {
	return scheduledAt.Add(-RescheduleDeadlineLead)
}
