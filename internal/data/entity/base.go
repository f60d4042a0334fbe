package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is embedded by soft-deleted rows: users, lessons and bookings.
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Live reports whether the row has not been soft-deleted.
func (b Base) Live() bool { return b.DeletedAt == nil }

// BaseNoDelete is embedded by rows that only change in place, like payments and disputes.
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BaseSimple is embedded by append-only rows: history, reviews and webhook logs.
type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func NewBaseSimple(at time.Time) BaseSimple {
	return BaseSimple{ID: uuid.New(), CreatedAt: at}
}
