package usecase

import (
	"context"
	"fmt"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/gateway"
	"coach-booking/internal/notify"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo      *repository.Repository
	Processor gateway.Processor
	Notifier  notify.Notifier
	Policy    utils.PolicyConfig
	Currency  string
	Clock     func() time.Time
	Log       *zap.Logger
}

type Service struct {
	Escrow      EscrowService
	Booking     BookingService
	Reschedule  RescheduleService
	Dispute     DisputeService
	Review      ReviewService
	Reliability ReliabilityService
	Webhook     WebhookService
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Currency == "" {
		d.Currency = entity.DefaultCurrency
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	escrow := NewEscrowService(d)
	disputes := NewDisputeService(d)
	return &Service{
		Escrow:      escrow,
		Booking:     NewBookingService(d, escrow),
		Reschedule:  NewRescheduleService(d),
		Dispute:     disputes,
		Review:      NewReviewService(d),
		Reliability: NewReliabilityService(d),
		Webhook:     NewWebhookService(d, escrow, disputes),
	}
}

// sendNotifications delivers best effort; a failed notification never fails the operation.
func sendNotifications(ctx context.Context, n notify.Notifier, log *zap.Logger, notes ...notify.Notification) {
	if n == nil {
		return
	}
	for _, note := range notes {
		if err := n.Notify(ctx, note); err != nil {
			log.Warn("Notification failed",
				zap.Error(err),
				zap.String("kind", string(note.Kind)),
				zap.String("booking_id", note.BookingID.String()),
			)
		}
	}
}

func findBooking(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.Booking, error) {
	booking, err := repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking %s not found", id)
	}
	return booking, nil
}

// accessBooking loads a booking the actor takes part in.
func accessBooking(ctx context.Context, repo *repository.Repository, actor entity.Actor, id uuid.UUID) (*entity.Booking, error) {
	booking, err := findBooking(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if !booking.CanAccess(actor) {
		return nil, apperr.Unauthorized("not a participant of booking %s", id)
	}
	return booking, nil
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return apperr.Validation("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	return nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s %q", field, value)
	}
	return id, nil
}
