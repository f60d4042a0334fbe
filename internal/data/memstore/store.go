// Package memstore keeps every repository in process memory behind one mutex.
// It mirrors the guarded updates of the Postgres repositories.
package memstore

import (
	"slices"
	"sort"
	"sync"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]entity.User
	lessons       map[uuid.UUID]entity.Lesson
	coachProfiles map[uuid.UUID]entity.CoachProfile // by user id
	bookings      map[uuid.UUID]entity.Booking
	payments      map[uuid.UUID]entity.Payment
	payouts       map[uuid.UUID]entity.Payout // by payment id
	reschedules   map[uuid.UUID]entity.RescheduleHistory
	cancellations map[uuid.UUID]entity.CancellationHistory // by booking id
	disputes      map[uuid.UUID]entity.Dispute
	reviews       map[uuid.UUID]entity.Review
	reliability   map[uuid.UUID]entity.UserReliability // by user id
	webhookLogs   map[uuid.UUID]entity.WebhookLog
	now           func() time.Time
}

func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]entity.User),
		lessons:       make(map[uuid.UUID]entity.Lesson),
		coachProfiles: make(map[uuid.UUID]entity.CoachProfile),
		bookings:      make(map[uuid.UUID]entity.Booking),
		payments:      make(map[uuid.UUID]entity.Payment),
		payouts:       make(map[uuid.UUID]entity.Payout),
		reschedules:   make(map[uuid.UUID]entity.RescheduleHistory),
		cancellations: make(map[uuid.UUID]entity.CancellationHistory),
		disputes:      make(map[uuid.UUID]entity.Dispute),
		reviews:       make(map[uuid.UUID]entity.Review),
		reliability:   make(map[uuid.UUID]entity.UserReliability),
		webhookLogs:   make(map[uuid.UUID]entity.WebhookLog),
		now:           time.Now,
	}
}

// WithClock sets the clock used for updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Repository exposes the store through the repository interfaces.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		User:         userRepo{s},
		Lesson:       lessonRepo{s},
		CoachProfile: coachProfileRepo{s},
		Booking:      bookingRepo{s},
		Payment:      paymentRepo{s},
		Payout:       payoutRepo{s},
		Reschedule:   rescheduleRepo{s},
		Cancellation: cancellationRepo{s},
		Dispute:      disputeRepo{s},
		Review:       reviewRepo{s},
		Reliability:  reliabilityRepo{s},
		WebhookLog:   webhookLogRepo{s},
	}
}

func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutLesson(l entity.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = l
}

func (s *Store) PutCoachProfile(cp entity.CoachProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coachProfiles[cp.UserID] = cp
}

// PutBooking stores b as-is, for setting up states the services cannot reach directly.
func (s *Store) PutBooking(b entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

func (s *Store) PutPayment(p entity.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
}

func (s *Store) Booking(id uuid.UUID) (entity.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}

func (s *Store) Payment(id uuid.UUID) (entity.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

func (s *Store) Payouts() []entity.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Payout, 0, len(s.payouts))
	for _, p := range s.payouts {
		out = append(out, p)
	}
	return out
}

func (s *Store) WebhookLogs() []entity.WebhookLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.WebhookLog, 0, len(s.webhookLogs))
	for _, wl := range s.webhookLogs {
		out = append(out, wl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func contains[T comparable](values []T, v T) bool {
	return slices.Contains(values, v)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
