// Package notify hands booking notifications to a delivery channel.
// Delivery itself (email, push, SMS) happens downstream of the broker.
package notify

import (
	"context"
	"time"

	"coach-booking/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindLessonReminder   Kind = "lesson_reminder"
	KindBookingConfirmed Kind = "booking_confirmed"
	KindBookingCancelled Kind = "booking_cancelled"
	KindPayoutReleased   Kind = "payout_released"
)

type Notification struct {
	Kind        Kind      `json:"kind"`
	UserID      uuid.UUID `json:"user_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
	Threshold   string    `json:"threshold,omitempty"`
	Message     string    `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log only.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.log.Info("Notification",
		zap.String("kind", string(note.Kind)),
		zap.String("user_id", note.UserID.String()),
		zap.String("booking_id", note.BookingID.String()),
		zap.String("threshold", note.Threshold),
	)
	return nil
}

// QueueNotifier publishes notifications to the broker with routing key "notification.<kind>".
type QueueNotifier struct {
	pub *mq.Publisher
	log *zap.Logger
}

func NewQueueNotifier(pub *mq.Publisher, log *zap.Logger) *QueueNotifier {
	return &QueueNotifier{pub: pub, log: log.With(zap.String("notifier", "queue"))}
}

func (n *QueueNotifier) Notify(ctx context.Context, note Notification) error {
	if err := n.pub.PublishJSON(ctx, "notification."+string(note.Kind), note); err != nil {
		n.log.Error("Failed to publish notification",
			zap.Error(err),
			zap.String("kind", string(note.Kind)),
			zap.String("booking_id", note.BookingID.String()),
		)
		return err
	}
	return nil
}
