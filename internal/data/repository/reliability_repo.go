package repository

import (
	"context"
	"errors"
	"fmt"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReliabilityRepository interface {
	// CountsFor aggregates the reliability inputs of a user from bookings and history rows.
	CountsFor(ctx context.Context, userID uuid.UUID) (entity.ReliabilityCounts, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error)
	// Upsert creates the user's row or overwrites every derived field of it.
	Upsert(ctx context.Context, rel *entity.UserReliability) error
}

type reliabilityRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReliabilityRepository(db database.PgxIface, log *zap.Logger) ReliabilityRepository {
	return &reliabilityRepository{
		db:  db,
		log: log.With(zap.String("repository", "reliability")),
	}
}

func (r *reliabilityRepository) CountsFor(ctx context.Context, userID uuid.UUID) (entity.ReliabilityCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM bookings
			  WHERE (coach_id = $1 OR primary_student_id = $1) AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM reschedule_history WHERE requested_by_user_id = $1),
			(SELECT COUNT(*) FROM reschedule_history WHERE requested_by_user_id = $1 AND paid_reschedule),
			(SELECT COUNT(*) FROM cancellation_history
			  WHERE cancelled_by_user_id = $1 AND penalty_amount > 0 AND NOT no_show),
			(SELECT COUNT(*) FROM cancellation_history c JOIN bookings b ON b.id = c.booking_id
			  WHERE c.no_show AND b.primary_student_id = $1),
			(SELECT COUNT(*) FROM cancellation_history c JOIN bookings b ON b.id = c.booking_id
			  WHERE c.cancelled_by = 'coach' AND NOT c.no_show AND b.coach_id = $1)
	`

	var c entity.ReliabilityCounts
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.TotalBookings,
		&c.Reschedules,
		&c.PaidReschedules,
		&c.LateCancels,
		&c.NoShows,
		&c.CoachCancels,
	)
	if err != nil {
		r.log.Error("Failed to count reliability inputs", zap.Error(err), zap.String("user_id", userID.String()))
		return c, fmt.Errorf("count reliability inputs %s: %w", userID.String(), err)
	}
	return c, nil
}

func (r *reliabilityRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserReliability, error) {
	query := `
		SELECT id, user_id, total_bookings, reschedules, paid_reschedules, late_cancels, no_shows,
			coach_cancels, reliability_score, created_at, updated_at
		FROM user_reliability
		WHERE user_id = $1
	`

	var rel entity.UserReliability
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rel.ID,
		&rel.UserID,
		&rel.TotalBookings,
		&rel.Reschedules,
		&rel.PaidReschedules,
		&rel.LateCancels,
		&rel.NoShows,
		&rel.CoachCancels,
		&rel.ReliabilityScore,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reliability", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("find reliability %s: %w", userID.String(), err)
	}
	return &rel, nil
}

func (r *reliabilityRepository) Upsert(ctx context.Context, rel *entity.UserReliability) error {
	query := `
		INSERT INTO user_reliability (id, user_id, total_bookings, reschedules, paid_reschedules, late_cancels,
			no_shows, coach_cancels, reliability_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			total_bookings = EXCLUDED.total_bookings,
			reschedules = EXCLUDED.reschedules,
			paid_reschedules = EXCLUDED.paid_reschedules,
			late_cancels = EXCLUDED.late_cancels,
			no_shows = EXCLUDED.no_shows,
			coach_cancels = EXCLUDED.coach_cancels,
			reliability_score = EXCLUDED.reliability_score,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		rel.ID,
		rel.UserID,
		rel.TotalBookings,
		rel.Reschedules,
		rel.PaidReschedules,
		rel.LateCancels,
		rel.NoShows,
		rel.CoachCancels,
		rel.ReliabilityScore,
		rel.CreatedAt,
		rel.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to upsert reliability", zap.Error(err), zap.String("user_id", rel.UserID.String()))
		return fmt.Errorf("upsert reliability %s: %w", rel.UserID.String(), err)
	}
	return nil
}
