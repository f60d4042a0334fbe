package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeSplit(t *testing.T) {
	t.Run("Given a 100.00 lesson, When split, Then fee is 8.00 and coach gets 92.00", func(t *testing.T) {
		s := ComputeSplit(decimal.RequireFromString("100.00"))

		assert.True(t, s.Fee.Equal(decimal.RequireFromString("8.00")))
		assert.True(t, s.Total.Equal(decimal.RequireFromString("108.00")))
		assert.True(t, s.CoachPayout.Equal(decimal.RequireFromString("92.00")))
	})

	t.Run("Given awkward prices, When split, Then fee plus payout equals price and total is price plus fee", func(t *testing.T) {
		for _, p := range []string{"0.01", "0.07", "12.34", "33.33", "49.99", "99.95", "1234.56", "0.00"} {
			price := decimal.RequireFromString(p)
			s := ComputeSplit(price)

			assert.True(t, s.Fee.Add(s.CoachPayout).Equal(price), p)
			assert.True(t, s.Total.Equal(price.Add(s.Fee)), p)
			assert.True(t, s.Fee.Equal(s.Fee.Round(2)), p)
		}
	})
}

func TestBookingStatusTransitions(t *testing.T) {
	t.Run("Given terminal statuses, When asked for any transition, Then none is allowed", func(t *testing.T) {
		for _, from := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled} {
			assert.True(t, from.IsTerminal())
			for _, to := range NonTerminalBookingStatuses {
				assert.False(t, from.CanTransitionTo(to))
			}
		}
	})

	t.Run("Given the normal lifecycle, When stepped through, Then each step is allowed", func(t *testing.T) {
		assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusConfirmed))
		assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusAwaitingVerification))
		assert.True(t, BookingStatusAwaitingVerification.CanTransitionTo(BookingStatusCompleted))
		assert.False(t, BookingStatusPending.CanTransitionTo(BookingStatusCompleted))
	})
}

func TestBookingOverlaps(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	b := &Booking{ScheduledAt: start, DurationMinutes: 60}

	assert.True(t, b.Overlaps(start.Add(30*time.Minute), 60))
	assert.True(t, b.Overlaps(start.Add(-30*time.Minute), 60))
	assert.False(t, b.Overlaps(start.Add(60*time.Minute), 60), "back-to-back slots do not overlap")
	assert.False(t, b.Overlaps(start.Add(-60*time.Minute), 60))
}

func TestBookingRoleOf(t *testing.T) {
	coach, student := uuid.New(), uuid.New()
	b := &Booking{CoachID: coach, PrimaryStudentID: student}

	assert.Equal(t, RoleCoach, b.RoleOf(Actor{UserID: coach, Role: RoleCoach}))
	assert.Equal(t, RoleStudent, b.RoleOf(Actor{UserID: student, Role: RoleStudent}))
	assert.Equal(t, RoleAdmin, b.RoleOf(Actor{UserID: coach, Role: RoleAdmin}))
	assert.False(t, b.CanAccess(Actor{UserID: uuid.New(), Role: RoleStudent}))
}

func TestEscrowTransitions(t *testing.T) {
	next, err := EscrowStatusHeld.Transition(EscrowStatusReleased)
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusReleased, next)

	_, err = EscrowStatusReleased.Transition(EscrowStatusHeld)
	assert.Error(t, err)

	_, err = EscrowStatusRefunded.Transition(EscrowStatusReleased)
	assert.Error(t, err)

	_, err = BookingStatusCancelled.Transition(BookingStatusConfirmed)
	assert.Error(t, err)
}
