package usecase

import (
	"context"
	"testing"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestReschedule(t *testing.T) {
	t.Run("Given limit 1, When rescheduling three times, Then the second free attempt fails and paid ones pass", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))

		first, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
		require.NoError(t, err)
		assert.False(t, first.PaidReschedule)
		assert.Equal(t, entity.ApprovalPending, first.ApprovalStatus)

		got := env.booking(t, b.ID)
		assert.Equal(t, 1, got.RescheduleCount)
		assert.True(t, got.ScheduledAt.Equal(env.now.Add(96*time.Hour)), "applied immediately")
		assert.True(t, got.RescheduleDeadline.Equal(env.now.Add(72*time.Hour)))

		_, err = env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(120 * time.Hour)})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)

		paid, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(120 * time.Hour), Paid: true})
		require.NoError(t, err)
		assert.True(t, paid.PaidReschedule)

		got = env.booking(t, b.ID)
		assert.Equal(t, 1, got.RescheduleCount)
		assert.Equal(t, 1, got.ExtraPaidReschedules)
	})

	t.Run("Given the deadline has passed, When a free reschedule is asked, Then a paid one is required", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(5*time.Hour))

		_, err := env.svc.Reschedule.RequestReschedule(context.Background(), env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(48 * time.Hour)})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Given a past target, When rescheduling, Then Validation", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))

		_, err := env.svc.Reschedule.RequestReschedule(context.Background(), env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(-time.Hour)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Given another booking at the target, When rescheduling, Then Conflict", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
		env.putBooking(entity.BookingStatusPending, env.now.Add(96*time.Hour))

		_, err := env.svc.Reschedule.RequestReschedule(context.Background(), env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestRescheduleDecision(t *testing.T) {
	t.Run("Given a pending reschedule, When the coach approves, Then it is stamped and the new time stays", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
		h, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
		require.NoError(t, err)

		approved, err := env.svc.Reschedule.Approve(ctx, env.coach, h.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalApproved, approved.ApprovalStatus)
		assert.Equal(t, env.coach.UserID, *approved.ApprovedBy)
		assert.True(t, env.booking(t, b.ID).ScheduledAt.Equal(h.NewScheduledAt))

		_, err = env.svc.Reschedule.Approve(ctx, env.coach, h.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Given the requester, When approving their own reschedule, Then Unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
		h, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
		require.NoError(t, err)

		_, err = env.svc.Reschedule.Approve(ctx, env.student, h.ID)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("Given a pending reschedule, When rejected, Then the booking returns to the old time", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		original := env.now.Add(72 * time.Hour)
		b := env.putBooking(entity.BookingStatusConfirmed, original)
		h, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
		require.NoError(t, err)

		rejected, err := env.svc.Reschedule.Reject(ctx, env.coach, h.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalRejected, rejected.ApprovalStatus)

		got := env.booking(t, b.ID)
		assert.True(t, got.ScheduledAt.Equal(original))
		assert.True(t, got.RescheduleDeadline.Equal(entity.DeadlineFor(original)))
	})

	t.Run("Given the original slot was taken meanwhile, When rejected, Then Conflict and the request stays pending", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		original := env.now.Add(72 * time.Hour)
		moved := env.now.Add(96 * time.Hour)
		b := env.putBooking(entity.BookingStatusConfirmed, original)
		h, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: moved})
		require.NoError(t, err)
		env.putBooking(entity.BookingStatusConfirmed, original)

		_, err = env.svc.Reschedule.Reject(ctx, env.coach, h.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		stored, err := env.store.Repository().Reschedule.FindByID(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalPending, stored.ApprovalStatus)
		assert.True(t, env.booking(t, b.ID).ScheduledAt.Equal(moved), "the booking keeps the time of the pending request")

		approved, err := env.svc.Reschedule.Approve(ctx, env.coach, h.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalApproved, approved.ApprovalStatus)
	})
}
