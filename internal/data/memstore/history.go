package memstore

import (
	"context"
	"sort"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
)

type rescheduleRepo struct{ s *Store }

var _ repository.RescheduleRepository = rescheduleRepo{}

func (r rescheduleRepo) Create(_ context.Context, h *entity.RescheduleHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reschedules[h.ID] = *h
	return nil
}

func (r rescheduleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.RescheduleHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.reschedules[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r rescheduleRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.RescheduleHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.RescheduleHistory
	for _, h := range r.s.reschedules {
		if h.BookingID == bookingID {
			h := h
			out = append(out, &h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r rescheduleRepo) SetApproval(_ context.Context, id uuid.UUID, status entity.ApprovalStatus, by uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.reschedules[id]
	if !ok || h.ApprovalStatus != entity.ApprovalPending {
		return false, nil
	}
	h.ApprovalStatus = status
	h.ApprovedBy = &by
	h.ApprovedAt = &at
	r.s.reschedules[id] = h
	return true, nil
}

type cancellationRepo struct{ s *Store }

var _ repository.CancellationRepository = cancellationRepo{}

func (r cancellationRepo) Create(_ context.Context, c *entity.CancellationHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cancellations[c.BookingID]; ok {
		return repository.ErrDuplicate
	}
	r.s.cancellations[c.BookingID] = *c
	return nil
}

func (r cancellationRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.CancellationHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cancellations[bookingID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type disputeRepo struct{ s *Store }

var _ repository.DisputeRepository = disputeRepo{}

func (r disputeRepo) Create(_ context.Context, d *entity.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.disputes {
		if existing.BookingID == d.BookingID && existing.Status.IsActive() && d.Status.IsActive() {
			return repository.ErrDuplicate
		}
	}
	r.s.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r disputeRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Dispute
	for _, d := range r.s.disputes {
		if d.BookingID == bookingID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r disputeRepo) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	all, _ := r.FindByBookingID(ctx, bookingID)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status.IsActive() {
			return all[i], nil
		}
	}
	return nil, nil
}

func (r disputeRepo) Transition(_ context.Context, id uuid.UUID, from []entity.DisputeStatus, c repository.DisputeChange) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok || !contains(from, d.Status) {
		return false, nil
	}
	d.Status = c.Status
	if c.ResolutionNotes != nil {
		d.ResolutionNotes = c.ResolutionNotes
	}
	if c.AdminID != nil {
		d.AdminID = c.AdminID
	}
	if c.ResolvedAt != nil {
		d.ResolvedAt = c.ResolvedAt
	}
	d.UpdatedAt = r.s.now()
	r.s.disputes[id] = d
	return true, nil
}
