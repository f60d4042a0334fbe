package repository

import (
	"errors"

	"coach-booking/pkg/database"

	"go.uber.org/zap"
)

// ErrDuplicate is returned by Create methods when a uniqueness rule rejects the row.
var ErrDuplicate = errors.New("duplicate record")

type Repository struct {
	User         UserRepository
	Lesson       LessonRepository
	CoachProfile CoachProfileRepository
	Booking      BookingRepository
	Payment      PaymentRepository
	Payout       PayoutRepository
	Reschedule   RescheduleRepository
	Cancellation CancellationRepository
	Dispute      DisputeRepository
	Review       ReviewRepository
	Reliability  ReliabilityRepository
	WebhookLog   WebhookLogRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(db, log),
		Lesson:       NewLessonRepository(db, log),
		CoachProfile: NewCoachProfileRepository(db, log),
		Booking:      NewBookingRepository(db, log),
		Payment:      NewPaymentRepository(db, log),
		Payout:       NewPayoutRepository(db, log),
		Reschedule:   NewRescheduleRepository(db, log),
		Cancellation: NewCancellationRepository(db, log),
		Dispute:      NewDisputeRepository(db, log),
		Review:       NewReviewRepository(db, log),
		Reliability:  NewReliabilityRepository(db, log),
		WebhookLog:   NewWebhookLogRepository(db, log),
	}
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
