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
	"coach-booking/internal/notify"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*BookingResult, error)
	GetBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*BookingDetail, error)
	ListBookings(ctx context.Context, actor entity.Actor, req *request.PaginatedRequest) ([]*entity.Booking, int64, error)

	CancelBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.CancelBookingRequest) (*entity.CancellationHistory, error)
	MarkDelivered(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error)
	VerifyCompletion(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error)
	ReportNoShow(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.NoShowRequest) (*entity.CancellationHistory, error)

	// AutoConfirm completes an awaiting_verification booking unless a dispute holds it.
	AutoConfirm(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

// BookingResult carries the booking and, when the ledger got that far, its payment intent.
type BookingResult struct {
	Booking *entity.Booking
	Payment *PaymentIntent
}

type BookingDetail struct {
	Booking      *entity.Booking
	Payment      *entity.Payment
	Reschedules  []*entity.RescheduleHistory
	Cancellation *entity.CancellationHistory
	Disputes     []*entity.Dispute
}

type bookingService struct {
	repo     *repository.Repository
	escrow   EscrowService
	notifier notify.Notifier
	policy   utils.PolicyConfig
	now      func() time.Time
	log      *zap.Logger
}

func NewBookingService(d Deps, escrow EscrowService) BookingService {
	return &bookingService{
		repo:     d.Repo,
		escrow:   escrow,
		notifier: d.Notifier,
		policy:   d.Policy,
		now:      d.Clock,
		log:      d.Log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*BookingResult, error) {
	if actor.Role != entity.RoleStudent && actor.Role != entity.RoleAdmin {
		return nil, apperr.Unauthorized("only students and admins can book lessons")
	}
	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	lessonID, err := parseID("lesson_id", req.LessonID)
	if err != nil {
		return nil, err
	}

	studentID := actor.UserID
	if actor.IsAdmin() {
		if req.StudentID == "" {
			return nil, apperr.Validation("student_id is required when booking as admin")
		}
		if studentID, err = parseID("student_id", req.StudentID); err != nil {
			return nil, err
		}
	}

	lesson, err := s.repo.Lesson.FindByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperr.NotFound("lesson %s not found", lessonID)
	}
	if !lesson.IsActive {
		return nil, apperr.InvalidState("lesson %s is not active", lessonID)
	}

	now := s.now()
	scheduledAt := req.ScheduledAt.UTC()
	if !scheduledAt.After(now) {
		return nil, apperr.Validation("scheduled_at must be in the future")
	}

	conflicts, err := s.repo.Booking.FindOverlapping(ctx, lesson.ID, scheduledAt, lesson.DurationMinutes, uuid.Nil)
	if err != nil {
		s.log.Error("Failed to check overlapping bookings", zap.Error(err))
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, apperr.Conflict("lesson %s is already booked at %s", lesson.ID, scheduledAt.Format(time.RFC3339))
	}

	limit := s.policy.RescheduleLimit
	if limit <= 0 {
		limit = entity.DefaultRescheduleLimit
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		LessonID:           lesson.ID,
		CoachID:            lesson.CoachID,
		PrimaryStudentID:   studentID,
		ScheduledAt:        scheduledAt,
		DurationMinutes:    lesson.DurationMinutes,
		Price:              lesson.Price,
		Status:             entity.BookingStatusPending,
		PayoutStatus:       entity.PayoutStatusNone,
		MessagingLocked:    true,
		RescheduleLimit:    limit,
		RescheduleDeadline: entity.DeadlineFor(scheduledAt),
	}
	if req.CourtLocationID != "" {
		courtID, err := parseID("court_location_id", req.CourtLocationID)
		if err != nil {
			return nil, err
		}
		booking.CourtLocationID = &courtID
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("lesson %s is already booked at %s", lesson.ID, scheduledAt.Format(time.RFC3339))
		}
		s.log.Error("Failed to create booking", zap.Error(err))
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("student_id", studentID.String()),
	)

	// The booking is kept even when the ledger fails; the caller gets both.
	intent, err := s.escrow.CreatePaymentForBooking(ctx, booking, studentID, entity.PaymentMethod(req.PaymentMethod))
	result := &BookingResult{Booking: booking, Payment: intent}
	if err != nil {
		s.log.Warn("Booking created without payment intent", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return result, err
	}
	return result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*BookingDetail, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}

	detail := &BookingDetail{Booking: booking}
	if detail.Payment, err = s.repo.Payment.FindByBookingID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if detail.Reschedules, err = s.repo.Reschedule.FindByBookingID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("find reschedules: %w", err)
	}
	if detail.Cancellation, err = s.repo.Cancellation.FindByBookingID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("find cancellation: %w", err)
	}
	if detail.Disputes, err = s.repo.Dispute.FindByBookingID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("find disputes: %w", err)
	}
	return detail, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor entity.Actor, req *request.PaginatedRequest) ([]*entity.Booking, int64, error) {
	bookings, err := s.repo.Booking.FindByParticipant(ctx, actor.UserID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list bookings", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	total, err := s.repo.Booking.CountByParticipant(ctx, actor.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.CancelBookingRequest) (*entity.CancellationHistory, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := booking.Status.Transition(entity.BookingStatusCancelled); err != nil {
		return nil, err
	}

	now := s.now()
	role := booking.RoleOf(actor)

	penalty := decimal.Zero
	var penaltyReason *string
	if role == entity.RoleStudent && now.After(booking.RescheduleDeadline) {
		penalty = booking.Price.Mul(decimal.NewFromInt(int64(s.policy.LateCancelPenaltyPercent))).Div(decimal.NewFromInt(100)).Round(2)
		if penalty.IsPositive() {
			penaltyReason = utils.StringPtr(entity.PenaltyReasonLateCancellation)
		}
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	refund := decimal.Zero
	var refundPaymentID *uuid.UUID
	if payment != nil && payment.PaymentStatus == entity.PaymentStatusCaptured {
		refund = decimal.Max(payment.TotalChargeToStudent.Sub(penalty), decimal.Zero)
		refundPaymentID = &payment.ID
	}

	applied, err := s.repo.Booking.Cancel(ctx, bookingID, role, now)
	if err != nil {
		s.log.Error("Failed to cancel booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("booking %s can no longer be cancelled", bookingID)
	}

	history := &entity.CancellationHistory{
		BaseSimple:        entity.NewBaseSimple(now),
		BookingID:         bookingID,
		CancelledBy:       role,
		CancelledByUserID: &actor.UserID,
		RefundAmount:      refund,
		PenaltyAmount:     penalty,
		PenaltyReason:     penaltyReason,
		Notes:             req.Notes,
		RefundPaymentID:   refundPaymentID,
	}
	if err := s.repo.Cancellation.Create(ctx, history); err != nil {
		s.log.Error("Failed to record cancellation", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("record cancellation: %w", err)
	}

	sendNotifications(ctx, s.notifier, s.log,
		cancelNotice(booking, booking.PrimaryStudentID),
		cancelNotice(booking, booking.CoachID),
	)
	s.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("cancelled_by", string(role)),
		zap.String("penalty", penalty.StringFixed(2)),
	)
	return history, nil
}

func cancelNotice(b *entity.Booking, userID uuid.UUID) notify.Notification {
	return notify.Notification{
		Kind:        notify.KindBookingCancelled,
		UserID:      userID,
		BookingID:   b.ID,
		ScheduledAt: b.ScheduledAt,
		Message:     "Your lesson on " + b.ScheduledAt.Format(time.RFC1123) + " was cancelled",
	}
}

func (s *bookingService) MarkDelivered(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if role := booking.RoleOf(actor); role != entity.RoleCoach && role != entity.RoleAdmin {
		return nil, apperr.Unauthorized("only the coach can mark a lesson delivered")
	}
	if booking.Status != entity.BookingStatusConfirmed {
		return nil, apperr.InvalidState("booking %s is %s, not confirmed", bookingID, booking.Status)
	}
	if s.now().Before(booking.ScheduledAt) {
		return nil, apperr.InvalidState("lesson %s has not started yet", bookingID)
	}

	applied, err := s.repo.Booking.TransitionStatus(ctx, bookingID,
		[]entity.BookingStatus{entity.BookingStatusConfirmed}, entity.BookingStatusAwaitingVerification)
	if err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("booking %s changed state", bookingID)
	}
	if _, err := s.repo.Booking.UpdatePayoutStatus(ctx, bookingID,
		[]entity.PayoutStatus{entity.PayoutStatusNone, entity.PayoutStatusPending},
		entity.PayoutStatusAwaitingVerification); err != nil {
		return nil, fmt.Errorf("update payout status: %w", err)
	}

	s.log.Info("Lesson marked delivered", zap.String("booking_id", bookingID.String()))
	return findBooking(ctx, s.repo, bookingID)
}

func (s *bookingService) VerifyCompletion(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if role := booking.RoleOf(actor); role != entity.RoleStudent && role != entity.RoleAdmin {
		return nil, apperr.Unauthorized("only the student can verify a lesson")
	}
	if booking.Status != entity.BookingStatusAwaitingVerification {
		return nil, apperr.InvalidState("booking %s is %s, not awaiting verification", bookingID, booking.Status)
	}

	applied, err := s.repo.Booking.Complete(ctx, bookingID, []entity.BookingStatus{entity.BookingStatusAwaitingVerification})
	if err != nil {
		return nil, fmt.Errorf("complete booking: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("booking %s changed state", bookingID)
	}

	s.log.Info("Lesson verified", zap.String("booking_id", bookingID.String()))
	return findBooking(ctx, s.repo, bookingID)
}

func (s *bookingService) ReportNoShow(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.NoShowRequest) (*entity.CancellationHistory, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	role := booking.RoleOf(actor)
	if role != entity.RoleCoach && role != entity.RoleAdmin {
		return nil, apperr.Unauthorized("only the coach can report a no-show")
	}
	if booking.Status != entity.BookingStatusConfirmed && booking.Status != entity.BookingStatusAwaitingVerification {
		return nil, apperr.InvalidState("booking %s is %s", bookingID, booking.Status)
	}
	now := s.now()
	if now.Before(booking.ScheduledAt) {
		return nil, apperr.InvalidState("lesson %s has not started yet", bookingID)
	}

	applied, err := s.repo.Booking.Cancel(ctx, bookingID, role, now)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("booking %s changed state", bookingID)
	}

	history := &entity.CancellationHistory{
		BaseSimple:        entity.NewBaseSimple(now),
		BookingID:         bookingID,
		CancelledBy:       role,
		CancelledByUserID: &actor.UserID,
		RefundAmount:      decimal.Zero,
		PenaltyAmount:     booking.Price,
		PenaltyReason:     utils.StringPtr(entity.PenaltyReasonNoShow),
		NoShow:            true,
		Notes:             req.Notes,
	}
	if err := s.repo.Cancellation.Create(ctx, history); err != nil {
		s.log.Error("Failed to record no-show", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("record no-show: %w", err)
	}

	s.log.Info("No-show reported", zap.String("booking_id", bookingID.String()), zap.String("reported_by", string(role)))
	return history, nil
}

func (s *bookingService) AutoConfirm(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	active, err := s.repo.Dispute.FindActiveByBooking(ctx, bookingID)
	if err != nil {
		return false, fmt.Errorf("find active dispute: %w", err)
	}
	if active != nil {
		return false, nil
	}
	applied, err := s.repo.Booking.Complete(ctx, bookingID, []entity.BookingStatus{entity.BookingStatusAwaitingVerification})
	if err != nil {
		return false, fmt.Errorf("auto-confirm booking: %w", err)
	}
	return applied, nil
}
