package utils

import (
	"context"

	"coach-booking/internal/data/entity"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

func GetRoleFromContext(ctx context.Context) (entity.UserRole, bool) {
	role, ok := ctx.Value(RoleKey).(entity.UserRole)
	return role, ok
}

func SetUserContext(ctx context.Context, userID uuid.UUID, role entity.UserRole) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}

// GetActorFromContext returns the authenticated caller set by the auth middleware.
func GetActorFromContext(ctx context.Context) (entity.Actor, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return entity.Actor{}, false
	}
	role, ok := GetRoleFromContext(ctx)
	if !ok {
		return entity.Actor{}, false
	}
	return entity.Actor{UserID: userID, Role: role}, true
}
