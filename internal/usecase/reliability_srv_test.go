package usecase

import (
	"context"
	"testing"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReliabilityScore(t *testing.T) {
	tests := []struct {
		name   string
		counts entity.ReliabilityCounts
		want   float64
	}{
		{"no history", entity.ReliabilityCounts{}, 100},
		{"no history ignores stray counts", entity.ReliabilityCounts{Reschedules: 5, CoachCancels: 3}, 100},
		{"clean record", entity.ReliabilityCounts{TotalBookings: 10}, 100},
		{"one reschedule in ten", entity.ReliabilityCounts{TotalBookings: 10, Reschedules: 1}, 99},
		{"late cancel and no-show in four", entity.ReliabilityCounts{TotalBookings: 4, LateCancels: 1, NoShows: 1}, 90},
		{"every booking cancelled by coach", entity.ReliabilityCounts{TotalBookings: 2, CoachCancels: 2}, 70},
		{"clamped at zero", entity.ReliabilityCounts{TotalBookings: 1, Reschedules: 5, LateCancels: 3, NoShows: 2, CoachCancels: 1}, 0},
		{"thirds round to cents", entity.ReliabilityCounts{TotalBookings: 3, Reschedules: 1}, 96.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReliabilityScore(tt.counts))
		})
	}
}

func TestRecomputeReliability(t *testing.T) {
	t.Run("Given a user without bookings, When recomputed, Then the score is exactly 100", func(t *testing.T) {
		env := newTestEnv(t)
		rel, err := env.svc.Reliability.Recompute(context.Background(), env.student.UserID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, rel.ReliabilityScore)
		assert.Zero(t, rel.TotalBookings)
	})

	t.Run("Given a late cancel, When recomputed twice, Then the stored row is replaced not duplicated", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(2*time.Hour))
		_, err := env.svc.Booking.CancelBooking(ctx, env.student, b.ID, &request.CancelBookingRequest{})
		require.NoError(t, err)

		first, err := env.svc.Reliability.Recompute(ctx, env.student.UserID)
		require.NoError(t, err)
		second, err := env.svc.Reliability.Recompute(ctx, env.student.UserID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, second.LateCancels)
		assert.Equal(t, 80.0, second.ReliabilityScore)

		stored, err := env.svc.Reliability.GetReliability(ctx, env.student.UserID)
		require.NoError(t, err)
		assert.Equal(t, second.ReliabilityScore, stored.ReliabilityScore)
	})

	t.Run("Given reschedules on upcoming bookings, When recomputed, Then every booking counts toward the total", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		env.putBooking(entity.BookingStatusCompleted, env.now.Add(-48*time.Hour))
		for i, at := range []time.Duration{72 * time.Hour, 96 * time.Hour} {
			b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(at))
			target := env.now.Add(time.Duration(120+24*i) * time.Hour)
			_, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: target})
			require.NoError(t, err)
		}

		rel, err := env.svc.Reliability.Recompute(ctx, env.student.UserID)
		require.NoError(t, err)
		assert.Equal(t, 3, rel.TotalBookings)
		assert.Equal(t, 2, rel.Reschedules)
		assert.Equal(t, 93.33, rel.ReliabilityScore)
	})

	t.Run("Given an unknown user, When read, Then NotFound", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Reliability.GetReliability(context.Background(), uuid.New())
		assert.Error(t, err)
	})
}
