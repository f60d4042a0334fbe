package usecase

import (
	"context"
	"testing"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"
	"coach-booking/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingGuards(t *testing.T) {
	t.Run("Given an overlapping booking on the lesson, When booking, Then Conflict", func(t *testing.T) {
		env := newTestEnv(t)
		at := env.now.Add(72 * time.Hour)
		env.putBooking(entity.BookingStatusConfirmed, at)

		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: at.Add(30 * time.Minute),
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Given a cancelled booking at the same time, When booking, Then it does not block", func(t *testing.T) {
		env := newTestEnv(t)
		at := env.now.Add(72 * time.Hour)
		env.putBooking(entity.BookingStatusCancelled, at)

		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: at,
		})
		assert.NoError(t, err)
	})

	t.Run("Given back-to-back slots, When booking the next hour, Then it is allowed", func(t *testing.T) {
		env := newTestEnv(t)
		at := env.now.Add(72 * time.Hour)
		env.putBooking(entity.BookingStatusConfirmed, at)

		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: at.Add(60 * time.Minute),
		})
		assert.NoError(t, err)
	})

	t.Run("Given a past time, When booking, Then Validation", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: env.now.Add(-time.Minute),
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Given a coach, When booking, Then Unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Booking.CreateBooking(context.Background(), env.coach, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: env.now.Add(72 * time.Hour),
		})
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("Given an inactive lesson, When booking, Then InvalidState", func(t *testing.T) {
		env := newTestEnv(t)
		lesson := env.lesson
		lesson.IsActive = false
		env.store.PutLesson(lesson)

		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    env.lesson.ID.String(),
			ScheduledAt: env.now.Add(72 * time.Hour),
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Given an unknown lesson, When booking, Then NotFound", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Booking.CreateBooking(context.Background(), env.student, &request.CreateBookingRequest{
			LessonID:    uuid.NewString(),
			ScheduledAt: env.now.Add(72 * time.Hour),
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Given an early student cancel, When cancelled, Then full refund entitlement and no penalty", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
		p := env.putCapturedPayment(b)

		h, err := env.svc.Booking.CancelBooking(context.Background(), env.student, b.ID, &request.CancelBookingRequest{})
		require.NoError(t, err)

		assert.Equal(t, entity.RoleStudent, h.CancelledBy)
		assert.True(t, h.PenaltyAmount.IsZero())
		assert.True(t, h.RefundAmount.Equal(decimal.RequireFromString("108.00")))
		assert.Equal(t, p.ID, *h.RefundPaymentID)

		got := env.booking(t, b.ID)
		assert.Equal(t, entity.BookingStatusCancelled, got.Status)
		require.NotNil(t, got.CancelledBy)
		assert.Equal(t, entity.RoleStudent, *got.CancelledBy)
		assert.Equal(t, entity.EscrowStatusHeld, env.payment(t, p.ID).EscrowStatus, "cancel never refunds by itself")
		assert.Zero(t, env.processor.RefundCount())
		assert.Equal(t, 2, env.notifier.count(notify.KindBookingCancelled))
	})

	t.Run("Given a student cancel inside 24h, When cancelled, Then half the price is withheld", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(3*time.Hour))
		env.putCapturedPayment(b)

		h, err := env.svc.Booking.CancelBooking(context.Background(), env.student, b.ID, &request.CancelBookingRequest{})
		require.NoError(t, err)
		assert.True(t, h.PenaltyAmount.Equal(decimal.RequireFromString("50.00")))
		assert.True(t, h.RefundAmount.Equal(decimal.RequireFromString("58.00")))
		require.NotNil(t, h.PenaltyReason)
		assert.Equal(t, entity.PenaltyReasonLateCancellation, *h.PenaltyReason)
	})

	t.Run("Given a coach cancel inside 24h, When cancelled, Then no penalty and cancelled_by is coach", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(3*time.Hour))

		h, err := env.svc.Booking.CancelBooking(context.Background(), env.coach, b.ID, &request.CancelBookingRequest{})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleCoach, h.CancelledBy)
		assert.True(t, h.PenaltyAmount.IsZero())
		assert.True(t, h.RefundAmount.IsZero(), "nothing was captured")
	})

	t.Run("Given a stranger, When cancelling, Then Unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
		stranger := entity.Actor{UserID: uuid.New(), Role: entity.RoleStudent}

		_, err := env.svc.Booking.CancelBooking(context.Background(), stranger, b.ID, &request.CancelBookingRequest{})
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestTerminalBookingsRejectChanges(t *testing.T) {
	for _, status := range []entity.BookingStatus{entity.BookingStatusCompleted, entity.BookingStatusCancelled} {
		t.Run("Given a "+string(status)+" booking, When cancel, reschedule or dispute, Then InvalidState", func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			b := env.putBooking(status, env.now.Add(72*time.Hour))

			_, err := env.svc.Booking.CancelBooking(ctx, env.student, b.ID, &request.CancelBookingRequest{})
			assert.ErrorIs(t, err, apperr.ErrInvalidState)

			_, err = env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{
				NewScheduledAt: env.now.Add(96 * time.Hour),
				Paid:           true,
			})
			assert.ErrorIs(t, err, apperr.ErrInvalidState)

			_, err = env.svc.Dispute.OpenDispute(ctx, env.student, &request.OpenDisputeRequest{
				BookingID:   b.ID.String(),
				DisputeType: "quality",
			})
			assert.ErrorIs(t, err, apperr.ErrInvalidState)

			assert.Equal(t, status, env.booking(t, b.ID).Status)
		})
	}
}

func TestDeliveryAndVerification(t *testing.T) {
	t.Run("Given a started lesson, When the coach marks it delivered and the student verifies, Then it completes with payout pending", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(-2*time.Hour))

		got, err := env.svc.Booking.MarkDelivered(ctx, env.coach, b.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusAwaitingVerification, got.Status)
		assert.Equal(t, entity.PayoutStatusAwaitingVerification, got.PayoutStatus)

		got, err = env.svc.Booking.VerifyCompletion(ctx, env.student, b.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, got.Status)
		assert.Equal(t, entity.PayoutStatusPending, got.PayoutStatus)
	})

	t.Run("Given a future lesson, When marked delivered, Then InvalidState", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(2*time.Hour))

		_, err := env.svc.Booking.MarkDelivered(context.Background(), env.coach, b.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Given the student, When marking delivered, Then Unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(-2*time.Hour))

		_, err := env.svc.Booking.MarkDelivered(context.Background(), env.student, b.ID)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestReportNoShow(t *testing.T) {
	t.Run("Given a missed lesson, When the coach reports it, Then the booking is cancelled with a full-price no-show penalty", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(-90*time.Minute))

		h, err := env.svc.Booking.ReportNoShow(context.Background(), env.coach, b.ID, &request.NoShowRequest{})
		require.NoError(t, err)
		assert.True(t, h.NoShow)
		assert.True(t, h.PenaltyAmount.Equal(b.Price))
		assert.Equal(t, entity.BookingStatusCancelled, env.booking(t, b.ID).Status)

		rel, err := env.svc.Reliability.Recompute(context.Background(), env.student.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, rel.NoShows)
		coachRel, err := env.svc.Reliability.Recompute(context.Background(), env.coach.UserID)
		require.NoError(t, err)
		assert.Zero(t, coachRel.CoachCancels, "a no-show report is not a coach cancellation")
	})
}

func TestGetBookingDetail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))
	p := env.putCapturedPayment(b)

	_, err := env.svc.Reschedule.RequestReschedule(ctx, env.student, b.ID, &request.RescheduleRequest{NewScheduledAt: env.now.Add(96 * time.Hour)})
	require.NoError(t, err)

	detail, err := env.svc.Booking.GetBooking(ctx, env.coach, b.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, detail.Payment.ID)
	assert.Len(t, detail.Reschedules, 1)
	assert.Nil(t, detail.Cancellation)

	bookings, total, err := env.svc.Booking.ListBookings(ctx, env.student, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, bookings, 1)
}
