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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EscrowService interface {
	ComputeSplit(price decimal.Decimal) entity.Split
	CreatePaymentForBooking(ctx context.Context, booking *entity.Booking, studentID uuid.UUID, method entity.PaymentMethod) (*PaymentIntent, error)
	HandlePaymentCapture(ctx context.Context, intentID, chargeID string) (*entity.Payment, error)
	CapturePayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, error)
	CaptureAuthorizedIntent(ctx context.Context, intentID string) (*entity.Payment, error)
	MarkPaymentFailed(ctx context.Context, intentID string) (*entity.Payment, error)
	ReleaseEscrow(ctx context.Context, paymentID uuid.UUID, payoutAccountID *string) (*entity.Payout, error)
	ProcessRefund(ctx context.Context, paymentID uuid.UUID, amount *decimal.Decimal, reason string) (*entity.Payment, error)
	ApplyExternalRefund(ctx context.Context, chargeID string, amount decimal.Decimal) (*entity.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, error)
}

// PaymentIntent is what the student needs to complete payment on the client.
type PaymentIntent struct {
	Payment      *entity.Payment
	IntentID     string
	ClientSecret string
}

type escrowService struct {
	repo      *repository.Repository
	processor gateway.Processor
	notifier  notify.Notifier
	policy    utils.PolicyConfig
	currency  string
	now       func() time.Time
	log       *zap.Logger
}

func NewEscrowService(d Deps) EscrowService {
	return &escrowService{
		repo:      d.Repo,
		processor: d.Processor,
		notifier:  d.Notifier,
		policy:    d.Policy,
		currency:  d.Currency,
		now:       d.Clock,
		log:       d.Log.With(zap.String("service", "escrow")),
	}
}

func (s *escrowService) ComputeSplit(price decimal.Decimal) entity.Split {
	return entity.ComputeSplit(price)
}

func (s *escrowService) CreatePaymentForBooking(ctx context.Context, booking *entity.Booking, studentID uuid.UUID, method entity.PaymentMethod) (*PaymentIntent, error) {
	if method == "" {
		method = entity.PaymentMethodStripe
	}
	split := entity.ComputeSplit(booking.Price)
	now := s.now()

	payment := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:            booking.ID,
		CoachID:              booking.CoachID,
		StudentID:            studentID,
		LessonPrice:          split.LessonPrice,
		PlatformFeePercent:   split.FeePercent,
		PlatformFeeAmount:    split.Fee,
		TotalChargeToStudent: split.Total,
		CoachPayoutExpected:  split.CoachPayout,
		EscrowStatus:         entity.EscrowStatusHeld,
		PaymentStatus:        entity.PaymentStatusPending,
		PaymentMethod:        method,
		Currency:             s.currency,
		RefundedAmount:       decimal.Zero,
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		s.log.Error("Failed to create payment", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return nil, fmt.Errorf("create payment: %w", err)
	}

	result := &PaymentIntent{Payment: payment}
	intent, err := s.processor.CreatePaymentIntent(ctx, gateway.IntentRequest{
		Amount:   split.Total,
		Currency: s.currency,
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
			"payment_id": payment.ID.String(),
			"coach_id":   booking.CoachID.String(),
			"student_id": studentID.String(),
		},
		IdempotencyKey: "intent-" + payment.ID.String(),
	})
	if err != nil {
		// The pending payment stays for reconciliation.
		s.log.Error("Failed to create payment intent",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", booking.ID.String()),
		)
		return result, apperr.Processor("failed to create payment intent", err)
	}

	if err := s.repo.Payment.SetIntentID(ctx, payment.ID, intent.ID); err != nil {
		s.log.Error("Failed to store payment intent id", zap.Error(err), zap.String("payment_id", payment.ID.String()))
		return result, fmt.Errorf("store intent id: %w", err)
	}
	payment.PaymentIntentID = &intent.ID
	result.IntentID = intent.ID
	result.ClientSecret = intent.ClientSecret

	s.log.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("total", split.Total.StringFixed(2)),
	)
	return result, nil
}

func (s *escrowService) HandlePaymentCapture(ctx context.Context, intentID, chargeID string) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("find payment by intent: %w", err)
	}
	if payment == nil {
		return nil, apperr.NotFound("no payment for intent %s", intentID)
	}
	return s.capture(ctx, payment, chargeID)
}

// CapturePayment collects an intent the student already authorized. Intents are created
// with manual capture, so funds only move once this runs.
func (s *escrowService) CapturePayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.captureAuthorized(ctx, payment)
}

// CaptureAuthorizedIntent is CapturePayment keyed by the processor intent id.
func (s *escrowService) CaptureAuthorizedIntent(ctx context.Context, intentID string) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("find payment by intent: %w", err)
	}
	if payment == nil {
		return nil, apperr.NotFound("no payment for intent %s", intentID)
	}
	return s.captureAuthorized(ctx, payment)
}

func (s *escrowService) captureAuthorized(ctx context.Context, payment *entity.Payment) (*entity.Payment, error) {
	if payment.PaymentStatus == entity.PaymentStatusCaptured {
		return payment, nil
	}
	if payment.PaymentStatus == entity.PaymentStatusRefunded {
		return nil, apperr.InvalidState("payment %s is refunded", payment.ID)
	}
	if payment.PaymentIntentID == nil {
		return nil, apperr.InvalidState("payment %s has no payment intent", payment.ID)
	}

	intent, err := s.processor.CaptureConfirmedIntent(ctx, *payment.PaymentIntentID)
	if err != nil {
		s.log.Error("Failed to capture intent", zap.Error(err), zap.String("payment_id", payment.ID.String()))
		return nil, apperr.Processor("failed to capture payment", err)
	}
	return s.capture(ctx, payment, intent.ChargeID)
}

func (s *escrowService) capture(ctx context.Context, payment *entity.Payment, chargeID string) (*entity.Payment, error) {
	if payment.PaymentStatus == entity.PaymentStatusCaptured || payment.PaymentStatus == entity.PaymentStatusRefunded {
		s.log.Info("Capture already applied", zap.String("payment_id", payment.ID.String()))
		return payment, nil
	}

	applied, err := s.repo.Payment.MarkCaptured(ctx, payment.ID, chargeID)
	if err != nil {
		return nil, fmt.Errorf("mark payment captured: %w", err)
	}
	if !applied {
		// Lost a race with another capture of the same intent.
		return s.findPayment(ctx, payment.ID)
	}

	confirmed, err := s.repo.Booking.Confirm(ctx, payment.BookingID)
	if err != nil {
		s.log.Error("Failed to confirm booking after capture", zap.Error(err), zap.String("booking_id", payment.BookingID.String()))
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if !confirmed {
		s.log.Warn("Capture arrived for a closed booking, booking left unchanged",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return s.findPayment(ctx, payment.ID)
	}

	for _, userID := range []uuid.UUID{payment.StudentID, payment.CoachID} {
		s.send(ctx, notify.Notification{
			Kind:      notify.KindBookingConfirmed,
			UserID:    userID,
			BookingID: payment.BookingID,
			Message:   "Payment received, your lesson is confirmed",
		})
	}

	s.log.Info("Payment captured",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
	)
	return s.findPayment(ctx, payment.ID)
}

func (s *escrowService) MarkPaymentFailed(ctx context.Context, intentID string) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("find payment by intent: %w", err)
	}
	if payment == nil {
		return nil, apperr.NotFound("no payment for intent %s", intentID)
	}

	applied, err := s.repo.Payment.MarkFailed(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("mark payment failed: %w", err)
	}
	if !applied {
		s.log.Info("Payment not pending, failure ignored",
			zap.String("payment_id", payment.ID.String()),
			zap.String("payment_status", string(payment.PaymentStatus)),
		)
	}
	return s.findPayment(ctx, payment.ID)
}

func (s *escrowService) ReleaseEscrow(ctx context.Context, paymentID uuid.UUID, payoutAccountID *string) (*entity.Payout, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.EscrowStatus != entity.EscrowStatusHeld {
		return nil, apperr.InvalidState("escrow for payment %s is %s", paymentID, payment.EscrowStatus)
	}
	if payment.PaymentStatus != entity.PaymentStatusCaptured {
		return nil, apperr.InvalidState("payment %s is %s, not captured", paymentID, payment.PaymentStatus)
	}

	booking, err := s.repo.Booking.FindByID(ctx, payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking %s not found", payment.BookingID)
	}
	if booking.Status != entity.BookingStatusCompleted && booking.Status != entity.BookingStatusAwaitingVerification {
		return nil, apperr.InvalidState("booking %s is %s", booking.ID, booking.Status)
	}

	active, err := s.repo.Dispute.FindActiveByBooking(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return nil, apperr.InvalidState("booking %s has an active dispute", booking.ID)
	}

	now := s.now()
	payout, err := s.repo.Payout.Ensure(ctx, &entity.Payout{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CoachID:   payment.CoachID,
		PaymentID: payment.ID,
		Amount:    payment.CoachPayoutExpected,
		Currency:  payment.Currency,
		Status:    entity.PayoutRecordPending,
	})
	if err != nil {
		s.log.Error("Failed to record payout", zap.Error(err), zap.String("payment_id", paymentID.String()))
		return nil, fmt.Errorf("record payout: %w", err)
	}

	// A previous attempt transferred but stopped before releasing escrow.
	if payout.Status == entity.PayoutRecordPaid && payout.ExternalPayoutID != nil {
		return s.finishRelease(ctx, payment, payout, *payout.ExternalPayoutID)
	}

	if payoutAccountID == nil || *payoutAccountID == "" {
		s.log.Info("No payout account, payout left pending",
			zap.String("payment_id", paymentID.String()),
			zap.String("payout_id", payout.ID.String()),
		)
		return payout, nil
	}

	claimed, err := s.repo.Payout.Claim(ctx, payout.ID, now, now.Add(s.policy.PayoutClaimLease))
	if err != nil {
		return nil, fmt.Errorf("claim payout: %w", err)
	}
	if !claimed {
		return nil, apperr.Conflict("payout %s is already being processed", payout.ID)
	}

	transfer, err := s.processor.TransferToPayoutAccount(ctx, gateway.TransferRequest{
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Destination: *payoutAccountID,
		Metadata: map[string]string{
			"payment_id": payment.ID.String(),
			"payout_id":  payout.ID.String(),
			"booking_id": payment.BookingID.String(),
		},
		IdempotencyKey: "payout-" + payout.ID.String(),
	})
	if err != nil {
		s.log.Error("Payout transfer failed",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("payout_id", payout.ID.String()),
		)
		if markErr := s.repo.Payout.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
			s.log.Error("Failed to mark payout failed", zap.Error(markErr), zap.String("payout_id", payout.ID.String()))
		}
		return nil, apperr.Processor("payout transfer failed", err)
	}

	if _, err := s.repo.Payout.MarkPaid(ctx, payout.ID, transfer.ID, s.now()); err != nil {
		s.log.Error("Failed to mark payout paid", zap.Error(err),
			zap.String("payout_id", payout.ID.String()),
			zap.String("transfer_id", transfer.ID),
		)
		// The retry reuses the transfer idempotency key, so it can start right away.
		if relErr := s.repo.Payout.ReleaseClaim(ctx, payout.ID); relErr != nil {
			s.log.Error("Failed to release payout claim", zap.Error(relErr), zap.String("payout_id", payout.ID.String()))
		}
		return nil, fmt.Errorf("mark payout paid: %w", err)
	}
	return s.finishRelease(ctx, payment, payout, transfer.ID)
}

func (s *escrowService) finishRelease(ctx context.Context, payment *entity.Payment, payout *entity.Payout, transferID string) (*entity.Payout, error) {
	applied, err := s.repo.Payment.ReleaseEscrow(ctx, payment.ID, transferID, payout.ID)
	if err != nil {
		return nil, fmt.Errorf("release escrow: %w", err)
	}
	if !applied {
		s.log.Warn("Escrow no longer held after transfer",
			zap.String("payment_id", payment.ID.String()),
			zap.String("transfer_id", transferID),
		)
	} else {
		s.send(ctx, notify.Notification{
			Kind:      notify.KindPayoutReleased,
			UserID:    payment.CoachID,
			BookingID: payment.BookingID,
			Message:   "Your payout of " + payout.Amount.StringFixed(2) + " " + payout.Currency + " was sent",
		})
		s.log.Info("Escrow released",
			zap.String("payment_id", payment.ID.String()),
			zap.String("payout_id", payout.ID.String()),
			zap.String("transfer_id", transferID),
		)
	}

	stored, err := s.repo.Payout.FindByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("find payout: %w", err)
	}
	return stored, nil
}

func (s *escrowService) ProcessRefund(ctx context.Context, paymentID uuid.UUID, amount *decimal.Decimal, reason string) (*entity.Payment, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	refund := payment.TotalChargeToStudent
	if amount != nil {
		refund = amount.Round(2)
	}
	if !refund.IsPositive() {
		return nil, apperr.Validation("refund amount must be positive")
	}
	if refund.GreaterThan(payment.TotalChargeToStudent) {
		return nil, apperr.Validation("refund amount %s exceeds charged total %s",
			refund.StringFixed(2), payment.TotalChargeToStudent.StringFixed(2))
	}
	if payment.ChargeID == nil {
		return nil, apperr.InvalidState("payment %s has no captured charge to refund", paymentID)
	}
	if _, err := payment.EscrowStatus.Transition(entity.EscrowStatusRefunded); err != nil {
		return nil, err
	}

	res, err := s.processor.CreateRefund(ctx, gateway.RefundRequest{
		ChargeID:       *payment.ChargeID,
		Amount:         refund,
		Reason:         reason,
		IdempotencyKey: "refund-" + payment.ID.String() + "-" + refund.StringFixed(2),
	})
	if err != nil {
		s.log.Error("Refund failed", zap.Error(err), zap.String("payment_id", paymentID.String()))
		return nil, apperr.Processor("refund failed", err)
	}

	applied, err := s.repo.Payment.MarkRefunded(ctx, payment.ID, refund)
	if err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}
	if !applied {
		s.log.Warn("Refund sent but payment state moved", zap.String("payment_id", paymentID.String()), zap.String("refund_id", res.ID))
	}

	s.log.Info("Payment refunded",
		zap.String("payment_id", paymentID.String()),
		zap.String("refund_id", res.ID),
		zap.String("amount", refund.StringFixed(2)),
	)
	return s.findPayment(ctx, payment.ID)
}

// ApplyExternalRefund records a refund issued on the processor side.
func (s *escrowService) ApplyExternalRefund(ctx context.Context, chargeID string, amount decimal.Decimal) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByChargeID(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("find payment by charge: %w", err)
	}
	if payment == nil {
		return nil, apperr.NotFound("no payment for charge %s", chargeID)
	}
	if payment.EscrowStatus == entity.EscrowStatusRefunded {
		return payment, nil
	}
	if amount.GreaterThan(payment.TotalChargeToStudent) {
		return nil, apperr.Validation("refunded amount %s exceeds charged total", amount.StringFixed(2))
	}

	applied, err := s.repo.Payment.MarkRefunded(ctx, payment.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("escrow for payment %s is %s", payment.ID, payment.EscrowStatus)
	}
	return s.findPayment(ctx, payment.ID)
}

func (s *escrowService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, error) {
	return s.findPayment(ctx, paymentID)
}

func (s *escrowService) findPayment(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", id, err)
	}
	if payment == nil {
		return nil, apperr.NotFound("payment %s not found", id)
	}
	return payment, nil
}

func (s *escrowService) send(ctx context.Context, n notify.Notification) {
	sendNotifications(ctx, s.notifier, s.log, n)
}
