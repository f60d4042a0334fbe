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
	"go.uber.org/zap"
)

type RescheduleService interface {
	RequestReschedule(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.RescheduleRequest) (*entity.RescheduleHistory, error)
	Approve(ctx context.Context, actor entity.Actor, rescheduleID uuid.UUID) (*entity.RescheduleHistory, error)
	Reject(ctx context.Context, actor entity.Actor, rescheduleID uuid.UUID) (*entity.RescheduleHistory, error)
}

type rescheduleService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewRescheduleService(d Deps) RescheduleService {
	return &rescheduleService{
		repo: d.Repo,
		now:  d.Clock,
		log:  d.Log.With(zap.String("service", "reschedule")),
	}
}

// RequestReschedule moves the booking right away and logs a pending history row.
// Free moves are limited by reschedule_limit and the reschedule deadline; past that
// only a paid reschedule is accepted.
func (s *rescheduleService) RequestReschedule(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *request.RescheduleRequest) (*entity.RescheduleHistory, error) {
	booking, err := accessBooking(ctx, s.repo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, apperr.InvalidState("booking %s is %s", bookingID, booking.Status)
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	newTime := req.NewScheduledAt.UTC()
	if !newTime.After(now) {
		return nil, apperr.Validation("new_scheduled_at must be in the future")
	}

	free := booking.RescheduleCount < booking.RescheduleLimit && !now.After(booking.RescheduleDeadline)
	if !free && !req.Paid {
		return nil, apperr.InvalidState("no free reschedule left for booking %s, a paid reschedule is required", bookingID)
	}

	conflicts, err := s.repo.Booking.FindOverlapping(ctx, booking.LessonID, newTime, booking.DurationMinutes, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, apperr.Conflict("lesson %s is already booked at %s", booking.LessonID, newTime.Format(time.RFC3339))
	}

	applied, err := s.repo.Booking.Reschedule(ctx, bookingID, repository.RescheduleChange{
		NewScheduledAt:      newTime,
		NewDeadline:         entity.DeadlineFor(newTime),
		Paid:                !free,
		ExpectedCount:       booking.RescheduleCount,
		ExpectedExtraPaid:   booking.ExtraPaidReschedules,
		ExpectedScheduledAt: booking.ScheduledAt,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("lesson %s is already booked at %s", booking.LessonID, newTime.Format(time.RFC3339))
	}
	if err != nil {
		s.log.Error("Failed to reschedule booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("reschedule booking: %w", err)
	}
	if !applied {
		return nil, apperr.Conflict("booking %s changed while rescheduling, retry", bookingID)
	}

	history := &entity.RescheduleHistory{
		BaseSimple:        entity.NewBaseSimple(now),
		BookingID:         bookingID,
		RequestedBy:       booking.RoleOf(actor),
		RequestedByUserID: actor.UserID,
		OldScheduledAt:    booking.ScheduledAt,
		NewScheduledAt:    newTime,
		ApprovalStatus:    entity.ApprovalPending,
		PaidReschedule:    !free,
		Reason:            req.Reason,
	}
	if err := s.repo.Reschedule.Create(ctx, history); err != nil {
		s.log.Error("Failed to record reschedule", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("record reschedule: %w", err)
	}

	s.log.Info("Booking rescheduled",
		zap.String("booking_id", bookingID.String()),
		zap.Time("old", booking.ScheduledAt),
		zap.Time("new", newTime),
		zap.Bool("paid", !free),
	)
	return history, nil
}

func (s *rescheduleService) Approve(ctx context.Context, actor entity.Actor, rescheduleID uuid.UUID) (*entity.RescheduleHistory, error) {
	history, booking, err := s.decidable(ctx, actor, rescheduleID)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.Reschedule.SetApproval(ctx, history.ID, entity.ApprovalApproved, actor.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("approve reschedule: %w", err)
	}
	if !applied {
		return nil, apperr.InvalidState("reschedule %s is no longer pending", rescheduleID)
	}

	if _, err := s.repo.Booking.SetSchedule(ctx, booking.ID, history.NewScheduledAt, entity.DeadlineFor(history.NewScheduledAt)); err != nil {
		return nil, fmt.Errorf("apply approved time: %w", err)
	}

	s.log.Info("Reschedule approved", zap.String("reschedule_id", rescheduleID.String()), zap.String("booking_id", booking.ID.String()))
	return s.repo.Reschedule.FindByID(ctx, history.ID)
}

// Reject reverts the booking to the old time while it still carries the rejected one,
// then stamps the decision. A taken original slot leaves the request pending.
func (s *rescheduleService) Reject(ctx context.Context, actor entity.Actor, rescheduleID uuid.UUID) (*entity.RescheduleHistory, error) {
	history, booking, err := s.decidable(ctx, actor, rescheduleID)
	if err != nil {
		return nil, err
	}

	reverted := false
	if booking.ScheduledAt.Equal(history.NewScheduledAt) {
		_, err := s.repo.Booking.SetSchedule(ctx, booking.ID, history.OldScheduledAt, entity.DeadlineFor(history.OldScheduledAt))
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("the original slot of booking %s was taken, reschedule it instead", booking.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("revert booking time: %w", err)
		}
		reverted = true
	}

	applied, err := s.repo.Reschedule.SetApproval(ctx, history.ID, entity.ApprovalRejected, actor.UserID, s.now())
	if err != nil || !applied {
		if reverted {
			s.restoreTime(ctx, booking.ID, history.NewScheduledAt)
		}
		if err != nil {
			return nil, fmt.Errorf("reject reschedule: %w", err)
		}
		return nil, apperr.InvalidState("reschedule %s is no longer pending", rescheduleID)
	}

	s.log.Info("Reschedule rejected", zap.String("reschedule_id", rescheduleID.String()), zap.String("booking_id", booking.ID.String()))
	return s.repo.Reschedule.FindByID(ctx, history.ID)
}

// restoreTime puts back a time Reject moved away from when the rejection itself did not land.
func (s *rescheduleService) restoreTime(ctx context.Context, bookingID uuid.UUID, at time.Time) {
	if _, err := s.repo.Booking.SetSchedule(ctx, bookingID, at, entity.DeadlineFor(at)); err != nil {
		s.log.Error("Failed to restore booking time after rejected reschedule",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Time("scheduled_at", at),
		)
	}
}

// decidable loads a pending reschedule the actor may approve or reject:
// the other participant or an admin.
func (s *rescheduleService) decidable(ctx context.Context, actor entity.Actor, rescheduleID uuid.UUID) (*entity.RescheduleHistory, *entity.Booking, error) {
	history, err := s.repo.Reschedule.FindByID(ctx, rescheduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("find reschedule: %w", err)
	}
	if history == nil {
		return nil, nil, apperr.NotFound("reschedule %s not found", rescheduleID)
	}

	booking, err := accessBooking(ctx, s.repo, actor, history.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin() && actor.UserID == history.RequestedByUserID {
		return nil, nil, apperr.Unauthorized("a reschedule cannot be decided by its requester")
	}
	if history.ApprovalStatus != entity.ApprovalPending {
		return nil, nil, apperr.InvalidState("reschedule %s is %s", rescheduleID, history.ApprovalStatus)
	}
	if booking.Status.IsTerminal() {
		return nil, nil, apperr.InvalidState("booking %s is %s", booking.ID, booking.Status)
	}
	return history, booking, nil
}
