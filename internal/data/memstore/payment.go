package memstore

import (
	"context"
	"sort"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paymentRepo struct{ s *Store }

var _ repository.PaymentRepository = paymentRepo{}

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.BookingID == p.BookingID {
			return repository.ErrDuplicate
		}
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) findOne(match func(p *entity.Payment) bool) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if match(&p) {
			return &p, nil
		}
	}
	return nil, nil
}

func (r paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(func(p *entity.Payment) bool { return p.ID == id })
}

func (r paymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(func(p *entity.Payment) bool { return p.BookingID == bookingID })
}

func (r paymentRepo) FindByIntentID(_ context.Context, intentID string) (*entity.Payment, error) {
	return r.findOne(func(p *entity.Payment) bool { return p.PaymentIntentID != nil && *p.PaymentIntentID == intentID })
}

func (r paymentRepo) FindByChargeID(_ context.Context, chargeID string) (*entity.Payment, error) {
	return r.findOne(func(p *entity.Payment) bool { return p.ChargeID != nil && *p.ChargeID == chargeID })
}

func (r paymentRepo) update(id uuid.UUID, guard func(p *entity.Payment) bool, fn func(p *entity.Payment)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || !guard(&p) {
		return false, nil
	}
	fn(&p)
	p.UpdatedAt = r.s.now()
	r.s.payments[id] = p
	return true, nil
}

func (r paymentRepo) SetIntentID(_ context.Context, id uuid.UUID, intentID string) error {
	_, err := r.update(id, func(*entity.Payment) bool { return true }, func(p *entity.Payment) {
		p.PaymentIntentID = &intentID
	})
	return err
}

func (r paymentRepo) MarkCaptured(_ context.Context, id uuid.UUID, chargeID string) (bool, error) {
	return r.update(id,
		func(p *entity.Payment) bool {
			return p.PaymentStatus == entity.PaymentStatusPending || p.PaymentStatus == entity.PaymentStatusFailed
		},
		func(p *entity.Payment) {
			p.PaymentStatus = entity.PaymentStatusCaptured
			p.ChargeID = &chargeID
		})
}

func (r paymentRepo) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	return r.update(id,
		func(p *entity.Payment) bool { return p.PaymentStatus == entity.PaymentStatusPending },
		func(p *entity.Payment) { p.PaymentStatus = entity.PaymentStatusFailed })
}

func (r paymentRepo) MarkRefunded(_ context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	return r.update(id,
		func(p *entity.Payment) bool {
			return (p.EscrowStatus == entity.EscrowStatusHeld || p.EscrowStatus == entity.EscrowStatusDisputed) &&
				amount.LessThanOrEqual(p.TotalChargeToStudent)
		},
		func(p *entity.Payment) {
			p.PaymentStatus = entity.PaymentStatusRefunded
			p.EscrowStatus = entity.EscrowStatusRefunded
			p.RefundedAmount = amount
		})
}

func (r paymentRepo) ReleaseEscrow(_ context.Context, id uuid.UUID, transferID string, payoutID uuid.UUID) (bool, error) {
	return r.update(id,
		func(p *entity.Payment) bool { return p.EscrowStatus == entity.EscrowStatusHeld },
		func(p *entity.Payment) {
			p.EscrowStatus = entity.EscrowStatusReleased
			p.TransferID = &transferID
			p.PayoutID = &payoutID
		})
}

func (r paymentRepo) SetEscrowStatus(_ context.Context, id uuid.UUID, from []entity.EscrowStatus, to entity.EscrowStatus, disputeID *string) (bool, error) {
	return r.update(id,
		func(p *entity.Payment) bool { return contains(from, p.EscrowStatus) },
		func(p *entity.Payment) {
			p.EscrowStatus = to
			if disputeID != nil {
				p.DisputeID = disputeID
			}
		})
}

func (r paymentRepo) FindReleasable(_ context.Context) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	done := []entity.BookingStatus{entity.BookingStatusCompleted, entity.BookingStatusAwaitingVerification}
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.EscrowStatus != entity.EscrowStatusHeld || p.PaymentStatus != entity.PaymentStatusCaptured {
			continue
		}
		b, ok := r.s.bookings[p.BookingID]
		if !ok || !contains(done, b.Status) || !contains(entity.ReleasablePayoutStatuses, b.PayoutStatus) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type payoutRepo struct{ s *Store }

var _ repository.PayoutRepository = payoutRepo{}

func (r payoutRepo) Ensure(_ context.Context, p *entity.Payout) (*entity.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.payouts[p.PaymentID]; ok {
		return &existing, nil
	}
	r.s.payouts[p.PaymentID] = *p
	stored := *p
	return &stored, nil
}

func (r payoutRepo) FindByPaymentID(_ context.Context, paymentID uuid.UUID) (*entity.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payouts[paymentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r payoutRepo) update(id uuid.UUID, fn func(p *entity.Payout) bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, p := range r.s.payouts {
		if p.ID != id {
			continue
		}
		if !fn(&p) {
			return false
		}
		p.UpdatedAt = r.s.now()
		r.s.payouts[key] = p
		return true
	}
	return false
}

func (r payoutRepo) Claim(_ context.Context, id uuid.UUID, now, until time.Time) (bool, error) {
	return r.update(id, func(p *entity.Payout) bool {
		if p.Status == entity.PayoutRecordPaid || (p.ClaimedUntil != nil && !p.ClaimedUntil.Before(now)) {
			return false
		}
		p.ClaimedUntil = &until
		return true
	}), nil
}

func (r payoutRepo) ReleaseClaim(_ context.Context, id uuid.UUID) error {
	r.update(id, func(p *entity.Payout) bool {
		p.ClaimedUntil = nil
		return true
	})
	return nil
}

func (r payoutRepo) MarkPaid(_ context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error) {
	return r.update(id, func(p *entity.Payout) bool {
		if p.Status == entity.PayoutRecordPaid {
			return false
		}
		p.Status = entity.PayoutRecordPaid
		p.ExternalPayoutID = &externalID
		p.ProcessedAt = &at
		p.FailureReason = nil
		p.ClaimedUntil = nil
		return true
	}), nil
}

func (r payoutRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.update(id, func(p *entity.Payout) bool {
		if p.Status == entity.PayoutRecordPaid {
			return false
		}
		p.Status = entity.PayoutRecordFailed
		p.FailureReason = &reason
		p.ClaimedUntil = nil
		return true
	})
	return nil
}
