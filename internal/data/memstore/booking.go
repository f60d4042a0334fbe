package memstore

import (
	"context"
	"sort"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
)

type bookingRepo struct{ s *Store }

var _ repository.BookingRepository = bookingRepo{}

func (r bookingRepo) Create(_ context.Context, b *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[b.ID]; ok {
		return repository.ErrDuplicate
	}
	if contains(entity.NonTerminalBookingStatuses, b.Status) && r.slotTaken(b.LessonID, b.ID, b.ScheduledAt, b.DurationMinutes) {
		return repository.ErrDuplicate
	}
	r.s.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || !b.Live() {
		return nil, nil
	}
	return &b, nil
}

func (r bookingRepo) filter(match func(b *entity.Booking) bool) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if !b.Live() || !match(&b) {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (r bookingRepo) FindByParticipant(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filter(func(b *entity.Booking) bool { return b.IsParticipant(userID) })
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return page(out, limit, offset), nil
}

func (r bookingRepo) CountByParticipant(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(func(b *entity.Booking) bool { return b.IsParticipant(userID) }))), nil
}

func (r bookingRepo) FindOverlapping(_ context.Context, lessonID uuid.UUID, start time.Time, minutes int, excludeID uuid.UUID) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *entity.Booking) bool {
		return b.LessonID == lessonID && b.ID != excludeID &&
			contains(entity.NonTerminalBookingStatuses, b.Status) && b.Overlaps(start, minutes)
	}), nil
}

func (r bookingRepo) FindScheduledBetween(_ context.Context, statuses []entity.BookingStatus, from, to time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *entity.Booking) bool {
		return contains(statuses, b.Status) && !b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to)
	}), nil
}

func (r bookingRepo) FindAwaitingVerificationBefore(_ context.Context, cutoff time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *entity.Booking) bool {
		return b.Status == entity.BookingStatusAwaitingVerification && !b.ScheduledAt.After(cutoff)
	}), nil
}

// slotTaken mirrors the bookings_no_overlap exclusion constraint. The caller holds the lock.
func (r bookingRepo) slotTaken(lessonID, excludeID uuid.UUID, start time.Time, minutes int) bool {
	for _, other := range r.s.bookings {
		if other.ID != excludeID && other.LessonID == lessonID && other.Live() &&
			contains(entity.NonTerminalBookingStatuses, other.Status) && other.Overlaps(start, minutes) {
			return true
		}
	}
	return false
}

// move reschedules a booking under the lock, failing like the exclusion constraint on overlap.
func (r bookingRepo) move(id uuid.UUID, to time.Time, guard func(b *entity.Booking) bool, fn func(b *entity.Booking)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || !guard(&b) {
		return false, nil
	}
	if r.slotTaken(b.LessonID, b.ID, to, b.DurationMinutes) {
		return false, repository.ErrDuplicate
	}
	fn(&b)
	b.UpdatedAt = r.s.now()
	r.s.bookings[id] = b
	return true, nil
}

// update applies fn to the booking under the lock when guard accepts it.
func (r bookingRepo) update(id uuid.UUID, guard func(b *entity.Booking) bool, fn func(b *entity.Booking)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || !guard(&b) {
		return false, nil
	}
	fn(&b)
	b.UpdatedAt = r.s.now()
	r.s.bookings[id] = b
	return true, nil
}

func notTerminal(b *entity.Booking) bool { return !b.Status.IsTerminal() }

func (r bookingRepo) Confirm(_ context.Context, id uuid.UUID) (bool, error) {
	return r.update(id, notTerminal, func(b *entity.Booking) {
		b.MessagingLocked = false
		if b.Status == entity.BookingStatusPending {
			b.Status = entity.BookingStatusConfirmed
		}
	})
}

func (r bookingRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	return r.update(id,
		func(b *entity.Booking) bool { return contains(from, b.Status) },
		func(b *entity.Booking) { b.Status = to })
}

func (r bookingRepo) Complete(_ context.Context, id uuid.UUID, from []entity.BookingStatus) (bool, error) {
	return r.update(id,
		func(b *entity.Booking) bool { return contains(from, b.Status) },
		func(b *entity.Booking) {
			b.Status = entity.BookingStatusCompleted
			b.PayoutStatus = entity.PayoutStatusPending
		})
}

func (r bookingRepo) Cancel(_ context.Context, id uuid.UUID, by entity.UserRole, at time.Time) (bool, error) {
	return r.update(id, notTerminal, func(b *entity.Booking) {
		b.Status = entity.BookingStatusCancelled
		b.CancelledBy = &by
		b.CancelledAt = &at
	})
}

func (r bookingRepo) Reschedule(_ context.Context, id uuid.UUID, c repository.RescheduleChange) (bool, error) {
	return r.move(id, c.NewScheduledAt,
		func(b *entity.Booking) bool {
			return notTerminal(b) &&
				b.RescheduleCount == c.ExpectedCount &&
				b.ExtraPaidReschedules == c.ExpectedExtraPaid &&
				b.ScheduledAt.Equal(c.ExpectedScheduledAt)
		},
		func(b *entity.Booking) {
			b.ScheduledAt = c.NewScheduledAt
			b.RescheduleDeadline = c.NewDeadline
			if c.Paid {
				b.ExtraPaidReschedules++
			} else {
				b.RescheduleCount++
			}
		})
}

func (r bookingRepo) SetSchedule(_ context.Context, id uuid.UUID, scheduledAt, deadline time.Time) (bool, error) {
	return r.move(id, scheduledAt, notTerminal, func(b *entity.Booking) {
		b.ScheduledAt = scheduledAt
		b.RescheduleDeadline = deadline
	})
}

func (r bookingRepo) UpdatePayoutStatus(_ context.Context, id uuid.UUID, from []entity.PayoutStatus, to entity.PayoutStatus) (bool, error) {
	return r.update(id,
		func(b *entity.Booking) bool { return contains(from, b.PayoutStatus) },
		func(b *entity.Booking) { b.PayoutStatus = to })
}
