package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rescheduleWeight  = 10.0
	lateCancelWeight  = 20.0
	coachCancelWeight = 30.0
)

// ReliabilityScore starts at 100 and deducts weighted rates per booking, clamped to [0,100].
// A user without bookings scores 100.
func ReliabilityScore(c entity.ReliabilityCounts) float64 {
	if c.TotalBookings <= 0 {
		return 100
	}
	total := float64(c.TotalBookings)
	score := 100.0
	score -= float64(c.Reschedules) / total * rescheduleWeight
	score -= float64(c.LateCancels+c.NoShows) / total * lateCancelWeight
	score -= float64(c.CoachCancels) / total * coachCancelWeight
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

type ReliabilityService interface {
	Recompute(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error)
	GetReliability(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error)
}

type reliabilityService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewReliabilityService(d Deps) ReliabilityService {
	return &reliabilityService{
		repo: d.Repo,
		now:  d.Clock,
		log:  d.Log.With(zap.String("service", "reliability")),
	}
}

// Recompute replaces the stored metrics with a fresh count.
func (s *reliabilityService) Recompute(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error) {
	counts, err := s.repo.Reliability.CountsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count reliability inputs: %w", err)
	}

	now := s.now()
	rel := &entity.UserReliability{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:            userID,
		ReliabilityCounts: counts,
		ReliabilityScore:  ReliabilityScore(counts),
	}
	if err := s.repo.Reliability.Upsert(ctx, rel); err != nil {
		s.log.Error("Failed to store reliability", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("store reliability: %w", err)
	}
	return rel, nil
}

func (s *reliabilityService) GetReliability(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user %s not found", userID)
	}

	rel, err := s.repo.Reliability.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find reliability: %w", err)
	}
	if rel != nil {
		return rel, nil
	}
	// Not swept yet.
	return s.Recompute(ctx, userID)
}
