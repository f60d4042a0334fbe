package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/usecase"

	"go.uber.org/zap"
)

const PayoutSweepName = "payout"

// PayoutSweep releases held escrow for delivered lessons to the coach's payout account.
type PayoutSweep struct {
	repo   *repository.Repository
	escrow usecase.EscrowService
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewPayoutSweep(repo *repository.Repository, escrow usecase.EscrowService, window time.Duration, now func() time.Time, log *zap.Logger) *PayoutSweep {
	return &PayoutSweep{
		repo:   repo,
		escrow: escrow,
		window: window,
		now:    now,
		log:    log.With(zap.String("worker", PayoutSweepName)),
	}
}

func (w *PayoutSweep) Name() string { return PayoutSweepName }

func (w *PayoutSweep) Run(ctx context.Context) (Report, error) {
	var report Report
	payments, err := w.repo.Payment.FindReleasable(ctx)
	if err != nil {
		return report, fmt.Errorf("select releasable payments: %w", err)
	}
	report.Selected = len(payments)

	for _, p := range payments {
		released, err := w.release(ctx, p)
		switch {
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
			w.log.Info("Payout skipped", zap.Error(err), zap.String("payment_id", p.ID.String()))
			report.Skipped++
		case err != nil:
			w.log.Error("Payout failed", zap.Error(err), zap.String("payment_id", p.ID.String()))
			report.Failed++
		case released:
			report.Processed++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

func (w *PayoutSweep) release(ctx context.Context, p *entity.Payment) (bool, error) {
	booking, err := w.repo.Booking.FindByID(ctx, p.BookingID)
	if err != nil {
		return false, fmt.Errorf("find booking %s: %w", p.BookingID, err)
	}
	if booking == nil {
		return false, apperr.NotFound("booking %s not found", p.BookingID)
	}

	active, err := w.repo.Dispute.FindActiveByBooking(ctx, booking.ID)
	if err != nil {
		return false, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return false, nil
	}
	if booking.Status == entity.BookingStatusAwaitingVerification && w.now().Before(booking.ScheduledAt.Add(w.window)) {
		return false, nil
	}

	profile, err := w.repo.CoachProfile.FindByUserID(ctx, p.CoachID)
	if err != nil {
		return false, fmt.Errorf("find coach profile: %w", err)
	}
	var account *string
	if profile != nil {
		account = profile.PayoutAccountID
	}

	payout, err := w.escrow.ReleaseEscrow(ctx, p.ID, account)
	if err != nil {
		return false, err
	}
	if payout == nil || payout.Status != entity.PayoutRecordPaid {
		// No payout account yet; the pending payout is picked up again next run.
		return false, nil
	}

	if _, err := w.repo.Booking.UpdatePayoutStatus(ctx, booking.ID, entity.ReleasablePayoutStatuses, entity.PayoutStatusProcessing); err != nil {
		return true, fmt.Errorf("mark booking payout processing: %w", err)
	}
	return true, nil
}
