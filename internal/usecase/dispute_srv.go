package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DisputeService interface {
	OpenDispute(ctx context.Context, actor entity.Actor, req *request.OpenDisputeRequest) (*entity.Dispute, error)
	ListDisputes(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) ([]*entity.Dispute, error)

	// Admin
	StartReview(ctx context.Context, actor entity.Actor, disputeID uuid.UUID) (*entity.Dispute, error)
	Resolve(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, req *request.ResolveDisputeRequest) (*entity.Dispute, error)
	Reject(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, req *request.ResolveDisputeRequest) (*entity.Dispute, error)
	RestoreBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.RestoreBookingRequest) (*entity.Booking, error)

	// OpenChargeback applies a processor dispute to the payment and its booking.
	OpenChargeback(ctx context.Context, cb Chargeback) (*entity.Dispute, error)
}

type Chargeback struct {
	ProcessorDisputeID string
	ChargeID           string
	IntentID           string
	Reason             string
}

type disputeService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewDisputeService(d Deps) DisputeService {
	return &disputeService{
		repo: d.Repo,
		now:  d.Clock,
		log:  d.Log.With(zap.String("service", "dispute")),
	}
}

func (s *disputeService) OpenDispute(ctx context.Context, actor entity.Actor, req *request.OpenDisputeRequest) (*entity.Dispute, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	bookingID, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return nil, err
	}

	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, apperr.InvalidState("booking %s is %s", bookingID, booking.Status)
	}

	active, err := s.repo.Dispute.FindActiveByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return nil, apperr.Conflict("booking %s already has an active dispute", bookingID)
	}

	now := s.now()
	dispute := &entity.Dispute{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:      bookingID,
		OpenedBy:       booking.RoleOf(actor),
		OpenedByUserID: &actor.UserID,
		DisputeType:    req.DisputeType,
		Description:    req.Description,
		Status:         entity.DisputeStatusOpen,
	}
	if err := s.repo.Dispute.Create(ctx, dispute); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("booking %s already has an active dispute", bookingID)
		}
		s.log.Error("Failed to create dispute", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("create dispute: %w", err)
	}

	s.log.Info("Dispute opened",
		zap.String("dispute_id", dispute.ID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.String("opened_by", string(dispute.OpenedBy)),
	)
	return dispute, nil
}

func (s *disputeService) ListDisputes(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) ([]*entity.Dispute, error) {
	if _, err := accessBooking(ctx, s.repo, actor, bookingID); err != nil {
		return nil, err
	}
	disputes, err := s.repo.Dispute.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	return disputes, nil
}

func (s *disputeService) StartReview(ctx context.Context, actor entity.Actor, disputeID uuid.UUID) (*entity.Dispute, error) {
	return s.transition(ctx, actor, disputeID, []entity.DisputeStatus{entity.DisputeStatusOpen}, repository.DisputeChange{
		Status:  entity.DisputeStatusUnderReview,
		AdminID: &actor.UserID,
	})
}

// Resolve closes the dispute. The booking keeps its status until an admin restores it.
func (s *disputeService) Resolve(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, req *request.ResolveDisputeRequest) (*entity.Dispute, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, actor, disputeID, entity.ActiveDisputeStatuses, repository.DisputeChange{
		Status:          entity.DisputeStatusResolved,
		ResolutionNotes: &req.ResolutionNotes,
		AdminID:         &actor.UserID,
		ResolvedAt:      &now,
	})
}

func (s *disputeService) Reject(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, req *request.ResolveDisputeRequest) (*entity.Dispute, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, actor, disputeID, entity.ActiveDisputeStatuses, repository.DisputeChange{
		Status:          entity.DisputeStatusRejected,
		ResolutionNotes: &req.ResolutionNotes,
		AdminID:         &actor.UserID,
		ResolvedAt:      &now,
	})
}

func (s *disputeService) transition(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, from []entity.DisputeStatus, change repository.DisputeChange) (*entity.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can manage disputes")
	}
	dispute, err := s.repo.Dispute.FindByID(ctx, disputeID)
	if err != nil {
		return nil, fmt.Errorf("find dispute: %w", err)
	}
	if dispute == nil {
		return nil, apperr.NotFound("dispute %s not found", disputeID)
	}

	applied, err := s.repo.Dispute.Transition(ctx, disputeID, from, change)
	if err != nil {
		s.log.Error("Failed to update dispute", zap.Error(err), zap.String("dispute_id", disputeID.String()))
		return nil, fmt.Errorf("update dispute: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("dispute %s is %s, cannot move to %s", disputeID, dispute.Status, change.Status)
	}

	s.log.Info("Dispute updated",
		zap.String("dispute_id", disputeID.String()),
		zap.String("from", string(dispute.Status)),
		zap.String("to", string(change.Status)),
		zap.String("admin_id", actor.UserID.String()),
	)
	return s.repo.Dispute.FindByID(ctx, disputeID)
}

// RestoreBooking takes a disputed booking out of its hold once no dispute is active,
// and puts a disputed escrow back to held.
func (s *disputeService) RestoreBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.RestoreBookingRequest) (*entity.Booking, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can restore bookings")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, err := findBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != entity.BookingStatusDisputed {
		return nil, apperr.InvalidState("booking %s is %s, not disputed", bookingID, booking.Status)
	}
	target, err := booking.Status.Transition(entity.BookingStatus(req.Status))
	if err != nil {
		return nil, err
	}

	active, err := s.repo.Dispute.FindActiveByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return nil, apperr.InvalidState("dispute %s on booking %s is still %s", active.ID, bookingID, active.Status)
	}

	from := []entity.BookingStatus{entity.BookingStatusDisputed}
	var applied bool
	switch target {
	case entity.BookingStatusCompleted:
		applied, err = s.repo.Booking.Complete(ctx, bookingID, from)
	case entity.BookingStatusCancelled:
		applied, err = s.cancelRestored(ctx, actor, booking)
	default:
		applied, err = s.repo.Booking.TransitionStatus(ctx, bookingID, from, target)
	}
	if err != nil {
		return nil, fmt.Errorf("restore booking: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("booking %s changed state", bookingID)
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment != nil && payment.EscrowStatus == entity.EscrowStatusDisputed {
		if _, err := s.repo.Payment.SetEscrowStatus(ctx, payment.ID,
			[]entity.EscrowStatus{entity.EscrowStatusDisputed}, entity.EscrowStatusHeld, nil); err != nil {
			return nil, fmt.Errorf("restore escrow: %w", err)
		}
	}

	s.log.Info("Booking restored", zap.String("booking_id", bookingID.String()), zap.String("status", string(target)))
	return findBooking(ctx, s.repo, bookingID)
}

func (s *disputeService) cancelRestored(ctx context.Context, actor entity.Actor, booking *entity.Booking) (bool, error) {
	now := s.now()
	applied, err := s.repo.Booking.Cancel(ctx, booking.ID, entity.RoleAdmin, now)
	if err != nil || !applied {
		return applied, err
	}
	notes := "cancelled after dispute"
	err = s.repo.Cancellation.Create(ctx, &entity.CancellationHistory{
		BaseSimple:        entity.NewBaseSimple(now),
		BookingID:         booking.ID,
		CancelledBy:       entity.RoleAdmin,
		CancelledByUserID: &actor.UserID,
		RefundAmount:      decimal.Zero,
		PenaltyAmount:     decimal.Zero,
		Notes:             &notes,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return true, err
	}
	return true, nil
}

func (s *disputeService) OpenChargeback(ctx context.Context, cb Chargeback) (*entity.Dispute, error) {
	payment, err := s.repo.Payment.FindByChargeID(ctx, cb.ChargeID)
	if err != nil {
		return nil, fmt.Errorf("find payment by charge: %w", err)
	}
	if payment == nil && cb.IntentID != "" {
		if payment, err = s.repo.Payment.FindByIntentID(ctx, cb.IntentID); err != nil {
			return nil, fmt.Errorf("find payment by intent: %w", err)
		}
	}
	if payment == nil {
		return nil, apperr.NotFound("no payment for charge %s", cb.ChargeID)
	}

	applied, err := s.repo.Payment.SetEscrowStatus(ctx, payment.ID,
		[]entity.EscrowStatus{entity.EscrowStatusHeld}, entity.EscrowStatusDisputed, &cb.ProcessorDisputeID)
	if err != nil {
		return nil, fmt.Errorf("mark escrow disputed: %w", err)
	}
	if !applied {
		s.log.Warn("Chargeback on payment whose escrow is not held",
			zap.String("payment_id", payment.ID.String()),
			zap.String("escrow_status", string(payment.EscrowStatus)),
		)
	}

	if _, err := s.repo.Booking.TransitionStatus(ctx, payment.BookingID,
		[]entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed, entity.BookingStatusAwaitingVerification},
		entity.BookingStatusDisputed); err != nil {
		return nil, fmt.Errorf("mark booking disputed: %w", err)
	}

	active, err := s.repo.Dispute.FindActiveByBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return active, nil
	}

	now := s.now()
	description := cb.Reason
	dispute := &entity.Dispute{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:          payment.BookingID,
		OpenedBy:           entity.RoleSystem,
		DisputeType:        entity.DisputeTypeChargeback,
		Description:        &description,
		Status:             entity.DisputeStatusOpen,
		ProcessorDisputeID: &cb.ProcessorDisputeID,
	}
	if err := s.repo.Dispute.Create(ctx, dispute); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.repo.Dispute.FindActiveByBooking(ctx, payment.BookingID)
		}
		return nil, fmt.Errorf("create chargeback dispute: %w", err)
	}

	s.log.Info("Chargeback recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
		zap.String("processor_dispute_id", cb.ProcessorDisputeID),
	)
	return dispute, nil
}
