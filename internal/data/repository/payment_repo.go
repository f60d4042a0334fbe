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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*entity.Payment, error)
	FindByChargeID(ctx context.Context, chargeID string) (*entity.Payment, error)
	SetIntentID(ctx context.Context, id uuid.UUID, intentID string) error

	// Guarded state changes
	MarkCaptured(ctx context.Context, id uuid.UUID, chargeID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
	ReleaseEscrow(ctx context.Context, id uuid.UUID, transferID string, payoutID uuid.UUID) (bool, error)
	SetEscrowStatus(ctx context.Context, id uuid.UUID, from []entity.EscrowStatus, to entity.EscrowStatus, disputeID *string) (bool, error)

	// FindReleasable lists held, captured payments whose booking is done and not yet paid out.
	FindReleasable(ctx context.Context) ([]*entity.Payment, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `p.id, p.booking_id, p.coach_id, p.student_id, p.lesson_price, p.platform_fee_percent,
	p.platform_fee_amount, p.total_charge_to_student, p.coach_payout_expected, p.escrow_status,
	p.payment_status, p.payment_method, p.currency, p.payment_intent_id, p.charge_id, p.transfer_id,
	p.payout_id, p.refunded_amount, p.dispute_id, p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.CoachID,
		&p.StudentID,
		&p.LessonPrice,
		&p.PlatformFeePercent,
		&p.PlatformFeeAmount,
		&p.TotalChargeToStudent,
		&p.CoachPayoutExpected,
		&p.EscrowStatus,
		&p.PaymentStatus,
		&p.PaymentMethod,
		&p.Currency,
		&p.PaymentIntentID,
		&p.ChargeID,
		&p.TransferID,
		&p.PayoutID,
		&p.RefundedAmount,
		&p.DisputeID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) findOne(ctx context.Context, field string, value any) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.` + field + ` = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment", zap.Error(err), zap.String("field", field), zap.Any("value", value))
		return nil, fmt.Errorf("find payment by %s %v: %w", field, value, err)
	}
	return p, nil
}

func (r *paymentRepository) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err), zap.String("payment_id", id.String()))
		return false, fmt.Errorf("%s %s: %w", op, id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, coach_id, student_id, lesson_price, platform_fee_percent,
			platform_fee_amount, total_charge_to_student, coach_payout_expected, escrow_status,
			payment_status, payment_method, currency, refunded_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BookingID,
		p.CoachID,
		p.StudentID,
		p.LessonPrice,
		p.PlatformFeePercent,
		p.PlatformFeeAmount,
		p.TotalChargeToStudent,
		p.CoachPayoutExpected,
		p.EscrowStatus,
		p.PaymentStatus,
		p.PaymentMethod,
		p.Currency,
		p.RefundedAmount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("create payment for booking %s: %w", p.BookingID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to create payment", zap.Error(err), zap.String("booking_id", p.BookingID.String()))
		return fmt.Errorf("create payment for booking %s: %w", p.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "id", id)
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "booking_id", bookingID)
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.Payment, error) {
	return r.findOne(ctx, "payment_intent_id", intentID)
}

func (r *paymentRepository) FindByChargeID(ctx context.Context, chargeID string) (*entity.Payment, error) {
	return r.findOne(ctx, "charge_id", chargeID)
}

func (r *paymentRepository) SetIntentID(ctx context.Context, id uuid.UUID, intentID string) error {
	query := `UPDATE payments SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`

	ok, err := r.exec(ctx, "set payment intent", id, query, id, intentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment %s not found", id.String())
	}
	return nil
}

func (r *paymentRepository) MarkCaptured(ctx context.Context, id uuid.UUID, chargeID string) (bool, error) {
	query := `
		UPDATE payments SET payment_status = $2, charge_id = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status IN ('pending', 'failed')
	`
	return r.exec(ctx, "mark payment captured", id, query, id, entity.PaymentStatusCaptured, chargeID)
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE payments SET payment_status = $2, updated_at = NOW() WHERE id = $1 AND payment_status = 'pending'`
	return r.exec(ctx, "mark payment failed", id, query, id, entity.PaymentStatusFailed)
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE payments
		SET payment_status = $2, escrow_status = $3, refunded_amount = $4, updated_at = NOW()
		WHERE id = $1 AND escrow_status IN ('held', 'disputed') AND $4 <= total_charge_to_student
	`
	return r.exec(ctx, "mark payment refunded", id, query,
		id, entity.PaymentStatusRefunded, entity.EscrowStatusRefunded, amount)
}

func (r *paymentRepository) ReleaseEscrow(ctx context.Context, id uuid.UUID, transferID string, payoutID uuid.UUID) (bool, error) {
	query := `
		UPDATE payments SET escrow_status = $2, transfer_id = $3, payout_id = $4, updated_at = NOW()
		WHERE id = $1 AND escrow_status = 'held'
	`
	return r.exec(ctx, "release escrow", id, query, id, entity.EscrowStatusReleased, transferID, payoutID)
}

func (r *paymentRepository) SetEscrowStatus(ctx context.Context, id uuid.UUID, from []entity.EscrowStatus, to entity.EscrowStatus, disputeID *string) (bool, error) {
	query := `
		UPDATE payments SET escrow_status = $3, dispute_id = COALESCE($4, dispute_id), updated_at = NOW()
		WHERE id = $1 AND escrow_status = ANY($2)
	`
	return r.exec(ctx, "set escrow status", id, query, id, toStrings(from), to, disputeID)
}

func (r *paymentRepository) FindReleasable(ctx context.Context) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.escrow_status = $1
		  AND p.payment_status = $2
		  AND b.status = ANY($3)
		  AND b.payout_status = ANY($4)
		ORDER BY p.created_at
	`

	rows, err := r.db.Query(ctx, query,
		entity.EscrowStatusHeld,
		entity.PaymentStatusCaptured,
		[]string{string(entity.BookingStatusCompleted), string(entity.BookingStatusAwaitingVerification)},
		toStrings(entity.ReleasablePayoutStatuses),
	)
	if err != nil {
		r.log.Error("Failed to find releasable payments", zap.Error(err))
		return nil, fmt.Errorf("find releasable payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
