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

type ReviewService interface {
	CreateReview(ctx context.Context, actor entity.Actor, req *request.CreateReviewRequest) (*entity.Review, error)
	GetCoachReviews(ctx context.Context, coachID uuid.UUID, req *request.PaginatedRequest) ([]*entity.Review, int64, error)
}

type reviewService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewReviewService(d Deps) ReviewService {
	return &reviewService{
		repo: d.Repo,
		now:  d.Clock,
		log:  d.Log.With(zap.String("service", "review")),
	}
}

func (s *reviewService) CreateReview(ctx context.Context, actor entity.Actor, req *request.CreateReviewRequest) (*entity.Review, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create review validation failed", zap.Error(err))
		return nil, err
	}
	bookingID, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return nil, err
	}

	booking, err := findBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != booking.PrimaryStudentID {
		return nil, apperr.Unauthorized("only the booking's student can review the coach")
	}
	if booking.Status != entity.BookingStatusCompleted {
		return nil, apperr.InvalidState("booking %s is %s, reviews need a completed lesson", bookingID, booking.Status)
	}

	review := &entity.Review{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		BookingID:  bookingID,
		ReviewerID: actor.UserID,
		TargetID:   booking.CoachID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.repo.Review.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("booking %s was already reviewed", bookingID)
		}
		s.log.Error("Failed to create review", zap.Error(err))
		return nil, fmt.Errorf("create review: %w", err)
	}

	// Full recompute over every review of the coach.
	average, count, err := s.repo.Review.GetTargetRatingStats(ctx, booking.CoachID)
	if err != nil {
		s.log.Error("Failed to compute coach rating", zap.Error(err), zap.String("coach_id", booking.CoachID.String()))
		return nil, fmt.Errorf("compute coach rating: %w", err)
	}
	if err := s.repo.CoachProfile.UpdateRating(ctx, booking.CoachID, average, count); err != nil {
		s.log.Error("Failed to update coach rating", zap.Error(err), zap.String("coach_id", booking.CoachID.String()))
		return nil, fmt.Errorf("update coach rating: %w", err)
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("coach_id", booking.CoachID.String()),
		zap.Int("rating", req.Rating),
	)
	return review, nil
}

func (s *reviewService) GetCoachReviews(ctx context.Context, coachID uuid.UUID, req *request.PaginatedRequest) ([]*entity.Review, int64, error) {
	reviews, err := s.repo.Review.FindByTargetID(ctx, coachID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get coach reviews", zap.Error(err), zap.String("coach_id", coachID.String()))
		return nil, 0, fmt.Errorf("get coach reviews: %w", err)
	}
	total, err := s.repo.Review.CountByTargetID(ctx, coachID)
	if err != nil {
		return nil, 0, fmt.Errorf("count coach reviews: %w", err)
	}
	return reviews, total, nil
}
