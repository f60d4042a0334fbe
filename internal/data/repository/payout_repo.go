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

type PayoutRepository interface {
	// Ensure inserts the payout unless one exists for the payment, and returns the stored row.
	Ensure(ctx context.Context, payout *entity.Payout) (*entity.Payout, error)
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Payout, error)

	// Claim takes a time-bounded lease so only one caller transfers at a time.
	Claim(ctx context.Context, id uuid.UUID, now, until time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type payoutRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPayoutRepository(db database.PgxIface, log *zap.Logger) PayoutRepository {
	return &payoutRepository{
		db:  db,
		log: log.With(zap.String("repository", "payout")),
	}
}

func (r *payoutRepository) Ensure(ctx context.Context, p *entity.Payout) (*entity.Payout, error) {
	query := `
		INSERT INTO payouts (id, coach_id, payment_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.CoachID,
		p.PaymentID,
		p.Amount,
		p.Currency,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to ensure payout", zap.Error(err), zap.String("payment_id", p.PaymentID.String()))
		return nil, fmt.Errorf("ensure payout for payment %s: %w", p.PaymentID.String(), err)
	}

	stored, err := r.FindByPaymentID(ctx, p.PaymentID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("payout for payment %s not found after insert", p.PaymentID.String())
	}
	return stored, nil
}

func (r *payoutRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Payout, error) {
	query := `
		SELECT id, coach_id, payment_id, amount, currency, status, external_payout_id, failure_reason,
			processed_at, claimed_until, created_at, updated_at
		FROM payouts
		WHERE payment_id = $1
	`

	var p entity.Payout
	err := r.db.QueryRow(ctx, query, paymentID).Scan(
		&p.ID,
		&p.CoachID,
		&p.PaymentID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.ExternalPayoutID,
		&p.FailureReason,
		&p.ProcessedAt,
		&p.ClaimedUntil,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payout by payment ID", zap.Error(err), zap.String("payment_id", paymentID.String()))
		return nil, fmt.Errorf("find payout by payment ID %s: %w", paymentID.String(), err)
	}
	return &p, nil
}

func (r *payoutRepository) Claim(ctx context.Context, id uuid.UUID, now, until time.Time) (bool, error) {
	query := `
		UPDATE payouts SET claimed_until = $3, updated_at = NOW()
		WHERE id = $1 AND status <> 'paid' AND (claimed_until IS NULL OR claimed_until < $2)
	`

	tag, err := r.db.Exec(ctx, query, id, now, until)
	if err != nil {
		r.log.Error("Failed to claim payout", zap.Error(err), zap.String("payout_id", id.String()))
		return false, fmt.Errorf("claim payout %s: %w", id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *payoutRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE payouts SET claimed_until = NULL, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to release payout claim", zap.Error(err), zap.String("payout_id", id.String()))
		return fmt.Errorf("release payout claim %s: %w", id.String(), err)
	}
	return nil
}

func (r *payoutRepository) MarkPaid(ctx context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error) {
	query := `
		UPDATE payouts
		SET status = $2, external_payout_id = $3, processed_at = $4, failure_reason = NULL,
		    claimed_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'paid'
	`

	tag, err := r.db.Exec(ctx, query, id, entity.PayoutRecordPaid, externalID, at)
	if err != nil {
		r.log.Error("Failed to mark payout paid", zap.Error(err), zap.String("payout_id", id.String()))
		return false, fmt.Errorf("mark payout %s paid: %w", id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *payoutRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payouts SET status = $2, failure_reason = $3, claimed_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'paid'
	`

	if _, err := r.db.Exec(ctx, query, id, entity.PayoutRecordFailed, reason); err != nil {
		r.log.Error("Failed to mark payout failed", zap.Error(err), zap.String("payout_id", id.String()))
		return fmt.Errorf("mark payout %s failed: %w", id.String(), err)
	}
	return nil
}
