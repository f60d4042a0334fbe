package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(lessonID uuid.UUID, at time.Time, status entity.BookingStatus) *entity.Booking {
	return &entity.Booking{
		Base:            entity.Base{ID: uuid.New()},
		LessonID:        lessonID,
		ScheduledAt:     at,
		DurationMinutes: 60,
		Status:          status,
	}
}

func TestBookingSlotExclusion(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("Given concurrent creates for one slot, When they race, Then exactly one wins", func(t *testing.T) {
		repo := New().Repository()
		lessonID := uuid.New()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.Booking.Create(ctx, slot(lessonID, at.Add(time.Duration(i)*time.Minute), entity.BookingStatusPending)); err == nil {
					wins.Add(1)
				} else {
					assert.ErrorIs(t, err, repository.ErrDuplicate)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("Given a cancelled booking, When the slot is booked again, Then it is free", func(t *testing.T) {
		repo := New().Repository()
		lessonID := uuid.New()
		require.NoError(t, repo.Booking.Create(ctx, slot(lessonID, at, entity.BookingStatusCancelled)))
		assert.NoError(t, repo.Booking.Create(ctx, slot(lessonID, at, entity.BookingStatusPending)))
	})

	t.Run("Given a taken slot, When another booking moves onto it, Then the move fails", func(t *testing.T) {
		repo := New().Repository()
		lessonID := uuid.New()
		require.NoError(t, repo.Booking.Create(ctx, slot(lessonID, at, entity.BookingStatusConfirmed)))
		other := slot(lessonID, at.Add(2*time.Hour), entity.BookingStatusConfirmed)
		require.NoError(t, repo.Booking.Create(ctx, other))

		applied, err := repo.Booking.SetSchedule(ctx, other.ID, at.Add(30*time.Minute), at)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.False(t, applied)

		applied, err = repo.Booking.SetSchedule(ctx, other.ID, at.Add(time.Hour), at)
		require.NoError(t, err)
		assert.True(t, applied, "back-to-back slots do not overlap")
	})
}

func TestBookingConfirm(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("Given a pending booking, When confirmed, Then it is confirmed and unlocked", func(t *testing.T) {
		store := New()
		b := slot(uuid.New(), at, entity.BookingStatusPending)
		b.MessagingLocked = true
		store.PutBooking(*b)

		applied, err := store.Repository().Booking.Confirm(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, applied)
		got, _ := store.Booking(b.ID)
		assert.Equal(t, entity.BookingStatusConfirmed, got.Status)
		assert.False(t, got.MessagingLocked)
	})

	for _, status := range []entity.BookingStatus{entity.BookingStatusCancelled, entity.BookingStatusCompleted} {
		t.Run("Given a "+string(status)+" booking, When confirmed, Then nothing changes", func(t *testing.T) {
			store := New()
			b := slot(uuid.New(), at, status)
			b.MessagingLocked = true
			store.PutBooking(*b)

			applied, err := store.Repository().Booking.Confirm(ctx, b.ID)
			require.NoError(t, err)
			assert.False(t, applied)
			got, _ := store.Booking(b.ID)
			assert.Equal(t, status, got.Status)
			assert.True(t, got.MessagingLocked)
		})
	}
}
