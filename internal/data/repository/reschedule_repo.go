package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RescheduleRepository interface {
	Create(ctx context.Context, h *entity.RescheduleHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RescheduleHistory, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.RescheduleHistory, error)
	// SetApproval moves a pending entry to status exactly once.
	SetApproval(ctx context.Context, id uuid.UUID, status entity.ApprovalStatus, by uuid.UUID, at time.Time) (bool, error)
}

type rescheduleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRescheduleRepository(db database.PgxIface, log *zap.Logger) RescheduleRepository {
	return &rescheduleRepository{
		db:  db,
		log: log.With(zap.String("repository", "reschedule")),
	}
}

const rescheduleColumns = `id, booking_id, requested_by, requested_by_user_id, old_scheduled_at, new_scheduled_at,
	approval_status, approved_by, approved_at, paid_reschedule, reason, created_at`

func scanReschedule(row pgx.Row) (*entity.RescheduleHistory, error) {
	var h entity.RescheduleHistory
	err := row.Scan(
		&h.ID,
		&h.BookingID,
		&h.RequestedBy,
		&h.RequestedByUserID,
		&h.OldScheduledAt,
		&h.NewScheduledAt,
		&h.ApprovalStatus,
		&h.ApprovedBy,
		&h.ApprovedAt,
		&h.PaidReschedule,
		&h.Reason,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *rescheduleRepository) Create(ctx context.Context, h *entity.RescheduleHistory) error {
	query := `
		INSERT INTO reschedule_history (` + rescheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		h.ID,
		h.BookingID,
		h.RequestedBy,
		h.RequestedByUserID,
		h.OldScheduledAt,
		h.NewScheduledAt,
		h.ApprovalStatus,
		h.ApprovedBy,
		h.ApprovedAt,
		h.PaidReschedule,
		h.Reason,
		h.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create reschedule history", zap.Error(err), zap.String("booking_id", h.BookingID.String()))
		return fmt.Errorf("create reschedule history for booking %s: %w", h.BookingID.String(), err)
	}
	return nil
}

func (r *rescheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RescheduleHistory, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_history WHERE id = $1`

	h, err := scanReschedule(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reschedule by ID", zap.Error(err), zap.String("reschedule_id", id.String()))
		return nil, fmt.Errorf("find reschedule by ID %s: %w", id.String(), err)
	}
	return h, nil
}

func (r *rescheduleRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.RescheduleHistory, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_history WHERE booking_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find reschedules by booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find reschedules by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var history []*entity.RescheduleHistory
	for rows.Next() {
		h, err := scanReschedule(rows)
		if err != nil {
			r.log.Error("Failed to scan reschedule row", zap.Error(err))
			return nil, fmt.Errorf("scan reschedule row: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *rescheduleRepository) SetApproval(ctx context.Context, id uuid.UUID, status entity.ApprovalStatus, by uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE reschedule_history SET approval_status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND approval_status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id, status, by, at)
	if err != nil {
		r.log.Error("Failed to set reschedule approval", zap.Error(err), zap.String("reschedule_id", id.String()))
		return false, fmt.Errorf("set reschedule %s approval: %w", id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}

type CancellationRepository interface {
	// Create fails with ErrDuplicate when the booking already has a cancellation row.
	Create(ctx context.Context, c *entity.CancellationHistory) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.CancellationHistory, error)
}

type cancellationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCancellationRepository(db database.PgxIface, log *zap.Logger) CancellationRepository {
	return &cancellationRepository{
		db:  db,
		log: log.With(zap.String("repository", "cancellation")),
	}
}

func (r *cancellationRepository) Create(ctx context.Context, c *entity.CancellationHistory) error {
	query := `
		INSERT INTO cancellation_history (id, booking_id, cancelled_by, cancelled_by_user_id, refund_amount,
			penalty_amount, penalty_reason, no_show, notes, refund_payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.BookingID,
		c.CancelledBy,
		c.CancelledByUserID,
		c.RefundAmount,
		c.PenaltyAmount,
		c.PenaltyReason,
		c.NoShow,
		c.Notes,
		c.RefundPaymentID,
		c.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("create cancellation for booking %s: %w", c.BookingID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to create cancellation history", zap.Error(err), zap.String("booking_id", c.BookingID.String()))
		return fmt.Errorf("create cancellation for booking %s: %w", c.BookingID.String(), err)
	}
	return nil
}

func (r *cancellationRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.CancellationHistory, error) {
	query := `
		SELECT id, booking_id, cancelled_by, cancelled_by_user_id, refund_amount, penalty_amount,
			penalty_reason, no_show, notes, refund_payment_id, created_at
		FROM cancellation_history
		WHERE booking_id = $1
	`

	var c entity.CancellationHistory
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&c.ID,
		&c.BookingID,
		&c.CancelledBy,
		&c.CancelledByUserID,
		&c.RefundAmount,
		&c.PenaltyAmount,
		&c.PenaltyReason,
		&c.NoShow,
		&c.Notes,
		&c.RefundPaymentID,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find cancellation", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find cancellation for booking %s: %w", bookingID.String(), err)
	}
	return &c, nil
}
