package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/notify"
	"coach-booking/pkg/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ReminderSweepName = "reminder"

type reminderThreshold struct {
	label string
	ahead time.Duration
}

var reminderThresholds = []reminderThreshold{
	{"48h", 48 * time.Hour},
	{"24h", 24 * time.Hour},
	{"1h", time.Hour},
}

// reminderWindow is the slice of lesson start times each threshold covers per run.
const reminderWindow = time.Minute

// ReminderSweep notifies coach and student 48h, 24h and 1h before a lesson.
type ReminderSweep struct {
	repo     *repository.Repository
	notifier notify.Notifier
	dedupe   cache.Deduper
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex
	// swept is the end of the last fully scanned window; the next run starts there.
	swept time.Time
}

func NewReminderSweep(repo *repository.Repository, notifier notify.Notifier, dedupe cache.Deduper, now func() time.Time, log *zap.Logger) *ReminderSweep {
	return &ReminderSweep{
		repo:     repo,
		notifier: notifier,
		dedupe:   dedupe,
		now:      now,
		log:      log.With(zap.String("worker", ReminderSweepName)),
	}
}

func (w *ReminderSweep) Name() string { return ReminderSweepName }

func (w *ReminderSweep) Run(ctx context.Context) (Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var report Report
	start := w.now().Truncate(reminderWindow)
	end := start.Add(reminderWindow)
	if !w.swept.IsZero() && w.swept.Before(start) {
		start = w.swept
	}
	statuses := []entity.BookingStatus{entity.BookingStatusConfirmed, entity.BookingStatusAwaitingVerification}

	for _, th := range reminderThresholds {
		bookings, err := w.repo.Booking.FindScheduledBetween(ctx, statuses, start.Add(th.ahead), end.Add(th.ahead))
		if err != nil {
			return report, fmt.Errorf("select %s reminders: %w", th.label, err)
		}
		report.Selected += len(bookings)

		for _, b := range bookings {
			first, err := w.dedupe.Mark(ctx, "reminder:"+b.ID.String()+":"+th.label, th.ahead+time.Hour)
			if err != nil {
				w.log.Error("Failed to dedupe reminder", zap.Error(err), zap.String("booking_id", b.ID.String()))
				report.Failed++
				continue
			}
			if !first {
				report.Skipped++
				continue
			}
			if err := w.remind(ctx, b, th.label); err != nil {
				w.log.Error("Failed to send reminder", zap.Error(err), zap.String("booking_id", b.ID.String()))
				report.Failed++
				continue
			}
			report.Processed++
		}
	}
	w.swept = end
	return report, nil
}

func (w *ReminderSweep) remind(ctx context.Context, b *entity.Booking, label string) error {
	for _, userID := range []uuid.UUID{b.CoachID, b.PrimaryStudentID} {
		err := w.notifier.Notify(ctx, notify.Notification{
			Kind:        notify.KindLessonReminder,
			UserID:      userID,
			BookingID:   b.ID,
			ScheduledAt: b.ScheduledAt,
			Threshold:   label,
			Message:     "Your lesson starts in " + label,
		})
		if err != nil {
			return fmt.Errorf("notify %s: %w", userID, err)
		}
	}
	return nil
}
