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

type DisputeRepository interface {
	// Create fails with ErrDuplicate when the booking already has an active dispute.
	Create(ctx context.Context, d *entity.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Dispute, error)
	FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error)
	Transition(ctx context.Context, id uuid.UUID, from []entity.DisputeStatus, change DisputeChange) (bool, error)
}

type DisputeChange struct {
	Status          entity.DisputeStatus
	ResolutionNotes *string
	AdminID         *uuid.UUID
	ResolvedAt      *time.Time
}

type disputeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewDisputeRepository(db database.PgxIface, log *zap.Logger) DisputeRepository {
	return &disputeRepository{
		db:  db,
		log: log.With(zap.String("repository", "dispute")),
	}
}

const disputeColumns = `id, booking_id, opened_by, opened_by_user_id, dispute_type, description, status,
	resolution_notes, admin_id, resolved_at, processor_dispute_id, created_at, updated_at`

func scanDispute(row pgx.Row) (*entity.Dispute, error) {
	var d entity.Dispute
	err := row.Scan(
		&d.ID,
		&d.BookingID,
		&d.OpenedBy,
		&d.OpenedByUserID,
		&d.DisputeType,
		&d.Description,
		&d.Status,
		&d.ResolutionNotes,
		&d.AdminID,
		&d.ResolvedAt,
		&d.ProcessorDisputeID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *disputeRepository) Create(ctx context.Context, d *entity.Dispute) error {
	query := `
		INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.BookingID,
		d.OpenedBy,
		d.OpenedByUserID,
		d.DisputeType,
		d.Description,
		d.Status,
		d.ResolutionNotes,
		d.AdminID,
		d.ResolvedAt,
		d.ProcessorDisputeID,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("create dispute for booking %s: %w", d.BookingID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to create dispute", zap.Error(err), zap.String("booking_id", d.BookingID.String()))
		return fmt.Errorf("create dispute for booking %s: %w", d.BookingID.String(), err)
	}
	return nil
}

func (r *disputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`

	d, err := scanDispute(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find dispute by ID", zap.Error(err), zap.String("dispute_id", id.String()))
		return nil, fmt.Errorf("find dispute by ID %s: %w", id.String(), err)
	}
	return d, nil
}

func (r *disputeRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE booking_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find disputes by booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find disputes by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var disputes []*entity.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			r.log.Error("Failed to scan dispute row", zap.Error(err))
			return nil, fmt.Errorf("scan dispute row: %w", err)
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

func (r *disputeRepository) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE booking_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	d, err := scanDispute(r.db.QueryRow(ctx, query, bookingID, toStrings(entity.ActiveDisputeStatuses)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active dispute", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find active dispute for booking %s: %w", bookingID.String(), err)
	}
	return d, nil
}

func (r *disputeRepository) Transition(ctx context.Context, id uuid.UUID, from []entity.DisputeStatus, c DisputeChange) (bool, error) {
	query := `
		UPDATE disputes
		SET status = $3,
		    resolution_notes = COALESCE($4, resolution_notes),
		    admin_id = COALESCE($5, admin_id),
		    resolved_at = COALESCE($6, resolved_at),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
	`

	tag, err := r.db.Exec(ctx, query, id, toStrings(from), c.Status, c.ResolutionNotes, c.AdminID, c.ResolvedAt)
	if err != nil {
		r.log.Error("Failed to transition dispute", zap.Error(err), zap.String("dispute_id", id.String()))
		return false, fmt.Errorf("transition dispute %s: %w", id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}
