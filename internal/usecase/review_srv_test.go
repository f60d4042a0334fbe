package usecase

import (
	"context"
	"testing"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReview(t *testing.T) {
	t.Run("Given two completed bookings, When each is reviewed, Then the coach rating is the mean of all reviews", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b1 := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-72*time.Hour))
		b2 := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-48*time.Hour))

		_, err := env.svc.Review.CreateReview(ctx, env.student, &request.CreateReviewRequest{BookingID: b1.ID.String(), Rating: 5})
		require.NoError(t, err)
		_, err = env.svc.Review.CreateReview(ctx, env.student, &request.CreateReviewRequest{BookingID: b2.ID.String(), Rating: 4})
		require.NoError(t, err)

		profile, err := env.store.Repository().CoachProfile.FindByUserID(ctx, env.coach.UserID)
		require.NoError(t, err)
		assert.True(t, profile.RatingAverage.Equal(decimal.RequireFromString("4.5")))
		assert.Equal(t, 2, profile.RatingCount)

		reviews, total, err := env.svc.Review.GetCoachReviews(ctx, env.coach.UserID, &request.PaginatedRequest{Page: 1, PerPage: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, reviews, 2)
	})

	t.Run("Given a reviewed booking, When reviewed again, Then Conflict", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-72*time.Hour))

		_, err := env.svc.Review.CreateReview(ctx, env.student, &request.CreateReviewRequest{BookingID: b.ID.String(), Rating: 5})
		require.NoError(t, err)
		_, err = env.svc.Review.CreateReview(ctx, env.student, &request.CreateReviewRequest{BookingID: b.ID.String(), Rating: 1})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Given a confirmed booking, When reviewed, Then InvalidState", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(72*time.Hour))

		_, err := env.svc.Review.CreateReview(context.Background(), env.student, &request.CreateReviewRequest{BookingID: b.ID.String(), Rating: 3})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Given an out of range rating, When reviewed, Then Validation", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-72*time.Hour))

		_, err := env.svc.Review.CreateReview(context.Background(), env.student, &request.CreateReviewRequest{BookingID: b.ID.String(), Rating: 6})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Given the coach, When reviewing their own lesson, Then Unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-72*time.Hour))

		_, err := env.svc.Review.CreateReview(context.Background(), env.coach, &request.CreateReviewRequest{BookingID: b.ID.String(), Rating: 5})
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}
