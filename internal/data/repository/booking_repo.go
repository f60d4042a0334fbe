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

// BookingRepository mutations are guarded: each returns applied=false when the
// row no longer matches the expected state instead of overwriting it.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByParticipant(ctx context.Context, userID uuid.UUID) (int64, error)

	// Business queries
	FindOverlapping(ctx context.Context, lessonID uuid.UUID, start time.Time, minutes int, excludeID uuid.UUID) ([]*entity.Booking, error)
	FindScheduledBetween(ctx context.Context, statuses []entity.BookingStatus, from, to time.Time) ([]*entity.Booking, error)
	FindAwaitingVerificationBefore(ctx context.Context, cutoff time.Time) ([]*entity.Booking, error)

	// Confirm unlocks messaging and moves pending to confirmed; completed and cancelled bookings are left alone.
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, from []entity.BookingStatus) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, by entity.UserRole, at time.Time) (bool, error)
	Reschedule(ctx context.Context, id uuid.UUID, change RescheduleChange) (bool, error)
	SetSchedule(ctx context.Context, id uuid.UUID, scheduledAt, deadline time.Time) (bool, error)
	UpdatePayoutStatus(ctx context.Context, id uuid.UUID, from []entity.PayoutStatus, to entity.PayoutStatus) (bool, error)
}

// RescheduleChange applies only if the booking's counters still equal the values read
// before the request was validated.
type RescheduleChange struct {
	NewScheduledAt      time.Time
	NewDeadline         time.Time
	Paid                bool
	ExpectedCount       int
	ExpectedExtraPaid   int
	ExpectedScheduledAt time.Time
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, lesson_id, coach_id, primary_student_id, scheduled_at, duration_minutes, price,
	status, payout_status, cancelled_by, cancelled_at, messaging_locked, reschedule_count,
	reschedule_limit, extra_paid_reschedules, reschedule_deadline, court_location_id,
	created_at, updated_at, deleted_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.LessonID,
		&b.CoachID,
		&b.PrimaryStudentID,
		&b.ScheduledAt,
		&b.DurationMinutes,
		&b.Price,
		&b.Status,
		&b.PayoutStatus,
		&b.CancelledBy,
		&b.CancelledAt,
		&b.MessagingLocked,
		&b.RescheduleCount,
		&b.RescheduleLimit,
		&b.ExtraPaidReschedules,
		&b.RescheduleDeadline,
		&b.CourtLocationID,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, op, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if database.IsExclusionViolation(err) {
		return false, fmt.Errorf("%s %s: %w", op, id.String(), ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err), zap.String("booking_id", id.String()))
		return false, fmt.Errorf("%s %s: %w", op, id.String(), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, lesson_id, coach_id, primary_student_id, scheduled_at, duration_minutes,
			price, status, payout_status, messaging_locked, reschedule_count, reschedule_limit,
			extra_paid_reschedules, reschedule_deadline, court_location_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.LessonID,
		b.CoachID,
		b.PrimaryStudentID,
		b.ScheduledAt,
		b.DurationMinutes,
		b.Price,
		b.Status,
		b.PayoutStatus,
		b.MessagingLocked,
		b.RescheduleCount,
		b.RescheduleLimit,
		b.ExtraPaidReschedules,
		b.RescheduleDeadline,
		b.CourtLocationID,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if database.IsExclusionViolation(err) {
		return fmt.Errorf("create booking %s: %w", b.ID.String(), ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("lesson_id", b.LessonID.String()),
			zap.String("student_id", b.PrimaryStudentID.String()),
		)
		return fmt.Errorf("create booking %s: %w", b.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND deleted_at IS NULL`

	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID", zap.Error(err), zap.String("booking_id", id.String()))
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return b, nil
}

func (r *bookingRepository) FindByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (coach_id = $1 OR primary_student_id = $1) AND deleted_at IS NULL
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryBookings(ctx, "find bookings by participant", query, userID, limit, offset)
}

func (r *bookingRepository) CountByParticipant(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE (coach_id = $1 OR primary_student_id = $1) AND deleted_at IS NULL`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by participant", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, fmt.Errorf("count bookings by participant %s: %w", userID.String(), err)
	}
	return count, nil
}

func (r *bookingRepository) FindOverlapping(ctx context.Context, lessonID uuid.UUID, start time.Time, minutes int, excludeID uuid.UUID) ([]*entity.Booking, error) {
	end := start.Add(time.Duration(minutes) * time.Minute)
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE lesson_id = $1
		  AND id <> $2
		  AND status = ANY($3)
		  AND deleted_at IS NULL
		  AND scheduled_at < $5
		  AND scheduled_at + make_interval(mins => duration_minutes) > $4
	`
	return r.queryBookings(ctx, "find overlapping bookings", query,
		lessonID, excludeID, toStrings(entity.NonTerminalBookingStatuses), start, end)
}

func (r *bookingRepository) FindScheduledBetween(ctx context.Context, statuses []entity.BookingStatus, from, to time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = ANY($1) AND scheduled_at >= $2 AND scheduled_at < $3 AND deleted_at IS NULL
		ORDER BY scheduled_at
	`
	return r.queryBookings(ctx, "find bookings scheduled between", query, toStrings(statuses), from, to)
}

func (r *bookingRepository) FindAwaitingVerificationBefore(ctx context.Context, cutoff time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND scheduled_at <= $2 AND deleted_at IS NULL
		ORDER BY scheduled_at
	`
	return r.queryBookings(ctx, "find awaiting verification bookings", query,
		entity.BookingStatusAwaitingVerification, cutoff)
}

func (r *bookingRepository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET messaging_locked = FALSE,
		    status = CASE WHEN status = $2 THEN $3 ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5)
	`
	return r.exec(ctx, "confirm booking", id, query, id, entity.BookingStatusPending, entity.BookingStatusConfirmed,
		entity.BookingStatusCompleted, entity.BookingStatusCancelled)
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = ANY($2)`
	return r.exec(ctx, "transition booking status", id, query, id, toStrings(from), to)
}

func (r *bookingRepository) Complete(ctx context.Context, id uuid.UUID, from []entity.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3, payout_status = $4, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
	`
	return r.exec(ctx, "complete booking", id, query,
		id, toStrings(from), entity.BookingStatusCompleted, entity.PayoutStatusPending)
}

func (r *bookingRepository) Cancel(ctx context.Context, id uuid.UUID, by entity.UserRole, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $2, cancelled_by = $3, cancelled_at = $4, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`
	return r.exec(ctx, "cancel booking", id, query, id, entity.BookingStatusCancelled, by, at)
}

func (r *bookingRepository) Reschedule(ctx context.Context, id uuid.UUID, c RescheduleChange) (bool, error) {
	query := `
		UPDATE bookings
		SET scheduled_at = $2,
		    reschedule_deadline = $3,
		    reschedule_count = reschedule_count + CASE WHEN $4 THEN 0 ELSE 1 END,
		    extra_paid_reschedules = extra_paid_reschedules + CASE WHEN $4 THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('completed', 'cancelled')
		  AND reschedule_count = $5
		  AND extra_paid_reschedules = $6
		  AND scheduled_at = $7
	`
	return r.exec(ctx, "reschedule booking", id, query,
		id, c.NewScheduledAt, c.NewDeadline, c.Paid, c.ExpectedCount, c.ExpectedExtraPaid, c.ExpectedScheduledAt)
}

func (r *bookingRepository) SetSchedule(ctx context.Context, id uuid.UUID, scheduledAt, deadline time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET scheduled_at = $2, reschedule_deadline = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`
	return r.exec(ctx, "set booking schedule", id, query, id, scheduledAt, deadline)
}

func (r *bookingRepository) UpdatePayoutStatus(ctx context.Context, id uuid.UUID, from []entity.PayoutStatus, to entity.PayoutStatus) (bool, error) {
	query := `UPDATE bookings SET payout_status = $3, updated_at = NOW() WHERE id = $1 AND payout_status = ANY($2)`
	return r.exec(ctx, "update booking payout status", id, query, id, toStrings(from), to)
}
