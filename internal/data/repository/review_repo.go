package repository

import (
	"context"
	"fmt"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	// Create fails with ErrDuplicate when the reviewer already reviewed the booking.
	Create(ctx context.Context, review *entity.Review) error
	FindByTargetID(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*entity.Review, error)
	CountByTargetID(ctx context.Context, targetID uuid.UUID) (int64, error)

	// Business queries
	GetTargetRatingStats(ctx context.Context, targetID uuid.UUID) (decimal.Decimal, int, error) // average, count
}

type reviewRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReviewRepository(db database.PgxIface, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, target_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.ReviewerID,
		review.TargetID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("create review for booking %s: %w", review.BookingID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", review.BookingID.String()),
			zap.String("reviewer_id", review.ReviewerID.String()),
		)
		return fmt.Errorf("create review for booking %s: %w", review.BookingID.String(), err)
	}

	return nil
}

func (r *reviewRepository) FindByTargetID(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	query := `
		SELECT id, booking_id, reviewer_id, target_id, rating, comment, created_at
		FROM reviews
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, targetID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reviews by target", zap.Error(err), zap.String("target_id", targetID.String()))
		return nil, fmt.Errorf("find reviews by target %s: %w", targetID.String(), err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var review entity.Review
		if err := rows.Scan(
			&review.ID,
			&review.BookingID,
			&review.ReviewerID,
			&review.TargetID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, rows.Err()
}

func (r *reviewRepository) CountByTargetID(ctx context.Context, targetID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reviews WHERE target_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, targetID).Scan(&count); err != nil {
		r.log.Error("Failed to count reviews", zap.Error(err), zap.String("target_id", targetID.String()))
		return 0, fmt.Errorf("count reviews by target %s: %w", targetID.String(), err)
	}
	return count, nil
}

func (r *reviewRepository) GetTargetRatingStats(ctx context.Context, targetID uuid.UUID) (decimal.Decimal, int, error) {
	query := `SELECT COALESCE(AVG(rating), 0)::NUMERIC(3,2), COUNT(*) FROM reviews WHERE target_id = $1`

	var avg decimal.Decimal
	var count int
	if err := r.db.QueryRow(ctx, query, targetID).Scan(&avg, &count); err != nil {
		r.log.Error("Failed to get rating stats", zap.Error(err), zap.String("target_id", targetID.String()))
		return decimal.Zero, 0, fmt.Errorf("get rating stats %s: %w", targetID.String(), err)
	}
	return avg, count, nil
}
