package entity

import "github.com/google/uuid"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleCoach   UserRole = "coach"
	RoleAdmin   UserRole = "admin"
	// RoleSystem attributes changes made by workers and processor webhooks.
	RoleSystem UserRole = "system"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleCoach, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Base
	Name     string   `db:"name"`
	Email    string   `db:"email"`
	Role     UserRole `db:"role"`
	IsActive bool     `db:"is_active"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

var SystemActor = Actor{UserID: uuid.Nil, Role: RoleSystem}
