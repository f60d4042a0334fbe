package usecase

import (
	"context"
	"fmt"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/gateway"

	"go.uber.org/zap"
)

type WebhookService interface {
	// HandleEvent verifies and dispatches one processor event. handled is false for
	// event types the service does not act on.
	HandleEvent(ctx context.Context, provider string, payload []byte, signature string) (handled bool, err error)
}

type webhookService struct {
	repo      *repository.Repository
	processor gateway.Processor
	escrow    EscrowService
	disputes  DisputeService
	now       func() time.Time
	log       *zap.Logger
}

func NewWebhookService(d Deps, escrow EscrowService, disputes DisputeService) WebhookService {
	return &webhookService{
		repo:      d.Repo,
		processor: d.Processor,
		escrow:    escrow,
		disputes:  disputes,
		now:       d.Clock,
		log:       d.Log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, provider string, payload []byte, signature string) (bool, error) {
	event, err := s.processor.VerifyWebhookSignature(payload, signature)
	if err != nil {
		s.log.Warn("Webhook signature rejected", zap.Error(err), zap.String("provider", provider))
		return false, apperr.Signature(err)
	}

	// The event is logged before dispatch so failures can be replayed.
	entry := &entity.WebhookLog{
		BaseSimple: entity.NewBaseSimple(s.now()),
		Provider:   provider,
		EventType:  event.Type,
		EventID:    event.ID,
		Payload:    payload,
	}
	if err := s.repo.WebhookLog.Create(ctx, entry); err != nil {
		s.log.Error("Failed to log webhook", zap.Error(err), zap.String("event_id", event.ID))
		return false, fmt.Errorf("log webhook: %w", err)
	}

	handled, dispatchErr := s.dispatch(ctx, event)

	result := "ignored"
	switch {
	case dispatchErr != nil:
		result = dispatchErr.Error()
	case handled:
		result = "ok"
	}
	if err := s.repo.WebhookLog.MarkResult(ctx, entry.ID, dispatchErr == nil, &result); err != nil {
		s.log.Error("Failed to record webhook result", zap.Error(err), zap.String("event_id", event.ID))
	}

	if dispatchErr != nil {
		s.log.Error("Webhook handling failed",
			zap.Error(dispatchErr),
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		return false, dispatchErr
	}
	s.log.Info("Webhook processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.Bool("handled", handled),
	)
	return handled, nil
}

func (s *webhookService) dispatch(ctx context.Context, event *gateway.Event) (bool, error) {
	switch event.Type {
	case gateway.EventPaymentCapturable:
		var intent gateway.IntentObject
		if err := event.Decode(&intent); err != nil {
			return false, apperr.Validation("malformed %s payload", event.Type)
		}
		_, err := s.escrow.CaptureAuthorizedIntent(ctx, intent.ID)
		return err == nil, err

	case gateway.EventPaymentSucceeded:
		var intent gateway.IntentObject
		if err := event.Decode(&intent); err != nil {
			return false, apperr.Validation("malformed %s payload", event.Type)
		}
		_, err := s.escrow.HandlePaymentCapture(ctx, intent.ID, intent.LatestCharge)
		return err == nil, err

	case gateway.EventPaymentFailed:
		var intent gateway.IntentObject
		if err := event.Decode(&intent); err != nil {
			return false, apperr.Validation("malformed %s payload", event.Type)
		}
		_, err := s.escrow.MarkPaymentFailed(ctx, intent.ID)
		return err == nil, err

	case gateway.EventChargeRefunded:
		var charge gateway.ChargeObject
		if err := event.Decode(&charge); err != nil {
			return false, apperr.Validation("malformed %s payload", event.Type)
		}
		_, err := s.escrow.ApplyExternalRefund(ctx, charge.ID, gateway.FromMinorUnits(charge.AmountRefunded))
		return err == nil, err

	case gateway.EventDisputeCreated:
		var dispute gateway.DisputeObject
		if err := event.Decode(&dispute); err != nil {
			return false, apperr.Validation("malformed %s payload", event.Type)
		}
		_, err := s.disputes.OpenChargeback(ctx, Chargeback{
			ProcessorDisputeID: dispute.ID,
			ChargeID:           dispute.Charge,
			IntentID:           dispute.PaymentIntent,
			Reason:             dispute.Reason,
		})
		return err == nil, err

	default:
		s.log.Info("Unhandled webhook event type", zap.String("event_type", event.Type), zap.String("event_id", event.ID))
		return false, nil
	}
}
