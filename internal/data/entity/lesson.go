package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Lesson struct {
	Base
	CoachID         uuid.UUID       `db:"coach_id"`
	Title           string          `db:"title"`
	DurationMinutes int             `db:"duration_minutes"`
	Price           decimal.Decimal `db:"price"`
	IsActive        bool            `db:"is_active"`
}

type CoachProfile struct {
	BaseNoDelete
	UserID          uuid.UUID       `db:"user_id"`
	Bio             *string         `db:"bio"`
	PayoutAccountID *string         `db:"payout_account_id"`
	RatingAverage   decimal.Decimal `db:"rating_average"`
	RatingCount     int             `db:"rating_count"`
}
