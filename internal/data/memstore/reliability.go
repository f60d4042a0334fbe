package memstore

import (
	"context"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
)

type reliabilityRepo struct{ s *Store }

var _ repository.ReliabilityRepository = reliabilityRepo{}

func (r reliabilityRepo) CountsFor(_ context.Context, userID uuid.UUID) (entity.ReliabilityCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c entity.ReliabilityCounts
	for _, b := range r.s.bookings {
		if b.Live() && b.IsParticipant(userID) {
			c.TotalBookings++
		}
	}
	for _, h := range r.s.reschedules {
		if h.RequestedByUserID != userID {
			continue
		}
		c.Reschedules++
		if h.PaidReschedule {
			c.PaidReschedules++
		}
	}
	for _, ch := range r.s.cancellations {
		b := r.s.bookings[ch.BookingID]
		switch {
		case ch.NoShow:
			if b.PrimaryStudentID == userID {
				c.NoShows++
			}
		case ch.CancelledByUserID != nil && *ch.CancelledByUserID == userID && ch.PenaltyAmount.IsPositive():
			c.LateCancels++
		}
		if !ch.NoShow && ch.CancelledBy == entity.RoleCoach && b.CoachID == userID {
			c.CoachCancels++
		}
	}
	return c, nil
}

func (r reliabilityRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.UserReliability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rel, ok := r.s.reliability[userID]
	if !ok {
		return nil, nil
	}
	return &rel, nil
}

func (r reliabilityRepo) Upsert(_ context.Context, rel *entity.UserReliability) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.reliability[rel.UserID]; ok {
		rel.ID = existing.ID
		rel.CreatedAt = existing.CreatedAt
	}
	r.s.reliability[rel.UserID] = *rel
	return nil
}

type webhookLogRepo struct{ s *Store }

var _ repository.WebhookLogRepository = webhookLogRepo{}

func (r webhookLogRepo) Create(_ context.Context, wl *entity.WebhookLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.webhookLogs[wl.ID] = *wl
	return nil
}

func (r webhookLogRepo) MarkResult(_ context.Context, id uuid.UUID, success bool, response *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wl, ok := r.s.webhookLogs[id]
	if !ok {
		return nil
	}
	wl.Success = success
	wl.Response = response
	r.s.webhookLogs[id] = wl
	return nil
}
