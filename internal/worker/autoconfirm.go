package worker

import (
	"context"
	"fmt"
	"time"

	"coach-booking/internal/data/repository"
	"coach-booking/internal/usecase"

	"go.uber.org/zap"
)

const AutoConfirmSweepName = "auto-confirm"

// AutoConfirmSweep completes lessons the student never verified once the window has passed.
type AutoConfirmSweep struct {
	repo     *repository.Repository
	bookings usecase.BookingService
	after    time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewAutoConfirmSweep(repo *repository.Repository, bookings usecase.BookingService, after time.Duration, now func() time.Time, log *zap.Logger) *AutoConfirmSweep {
	return &AutoConfirmSweep{
		repo:     repo,
		bookings: bookings,
		after:    after,
		now:      now,
		log:      log.With(zap.String("worker", AutoConfirmSweepName)),
	}
}

func (w *AutoConfirmSweep) Name() string { return AutoConfirmSweepName }

func (w *AutoConfirmSweep) Run(ctx context.Context) (Report, error) {
	var report Report
	due, err := w.repo.Booking.FindAwaitingVerificationBefore(ctx, w.now().Add(-w.after))
	if err != nil {
		return report, fmt.Errorf("select bookings to auto-confirm: %w", err)
	}
	report.Selected = len(due)

	for _, b := range due {
		applied, err := w.bookings.AutoConfirm(ctx, b.ID)
		switch {
		case err != nil:
			w.log.Error("Failed to auto-confirm booking", zap.Error(err), zap.String("booking_id", b.ID.String()))
			report.Failed++
		case !applied:
			report.Skipped++
		default:
			w.log.Info("Booking auto-confirmed", zap.String("booking_id", b.ID.String()))
			report.Processed++
		}
	}
	return report, nil
}
