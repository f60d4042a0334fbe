package repository

import (
	"context"
	"errors"
	"fmt"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LessonRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Lesson, error)
}

type lessonRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewLessonRepository(db database.PgxIface, log *zap.Logger) LessonRepository {
	return &lessonRepository{
		db:  db,
		log: log.With(zap.String("repository", "lesson")),
	}
}

func (r *lessonRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Lesson, error) {
	query := `
		SELECT id, coach_id, title, duration_minutes, price, is_active, created_at, updated_at, deleted_at
		FROM lessons
		WHERE id = $1 AND deleted_at IS NULL
	`

	var l entity.Lesson
	err := r.db.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.CoachID,
		&l.Title,
		&l.DurationMinutes,
		&l.Price,
		&l.IsActive,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find lesson by ID", zap.Error(err), zap.String("lesson_id", id.String()))
		return nil, fmt.Errorf("find lesson by ID %s: %w", id.String(), err)
	}

	return &l, nil
}

type CoachProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.CoachProfile, error)
	UpdateRating(ctx context.Context, userID uuid.UUID, average decimal.Decimal, count int) error
}

type coachProfileRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCoachProfileRepository(db database.PgxIface, log *zap.Logger) CoachProfileRepository {
	return &coachProfileRepository{
		db:  db,
		log: log.With(zap.String("repository", "coach_profile")),
	}
}

func (r *coachProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.CoachProfile, error) {
	query := `
		SELECT id, user_id, bio, payout_account_id, rating_average, rating_count, created_at, updated_at
		FROM coach_profiles
		WHERE user_id = $1
	`

	var cp entity.CoachProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&cp.ID,
		&cp.UserID,
		&cp.Bio,
		&cp.PayoutAccountID,
		&cp.RatingAverage,
		&cp.RatingCount,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find coach profile", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("find coach profile %s: %w", userID.String(), err)
	}

	return &cp, nil
}

func (r *coachProfileRepository) UpdateRating(ctx context.Context, userID uuid.UUID, average decimal.Decimal, count int) error {
	query := `UPDATE coach_profiles SET rating_average = $2, rating_count = $3, updated_at = NOW() WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID, average, count); err != nil {
		r.log.Error("Failed to update coach rating", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("update coach rating %s: %w", userID.String(), err)
	}
	return nil
}
