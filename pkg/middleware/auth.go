package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claims carries the caller identity; sub is the user id.
type Claims struct {
	Role entity.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token, used by tests and the token CLI.
func IssueToken(cfg utils.JWTConfig, userID uuid.UUID, role entity.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

func parseToken(cfg utils.JWTConfig, raw string) (entity.Actor, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, err
	}
	if !tok.Valid {
		return entity.Actor{}, errors.New("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return entity.Actor{}, errors.New("invalid subject")
	}
	if !claims.Role.Valid() {
		return entity.Actor{}, errors.New("invalid role")
	}
	return entity.Actor{UserID: userID, Role: claims.Role}, nil
}

// Auth validates the Bearer access token and puts the caller into the request context.
func Auth(cfg utils.JWTConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || raw == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			actor, err := parseToken(cfg, raw)
			if err != nil {
				logger.Warn("Rejected access token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), actor.UserID, actor.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets only the given roles through. It runs after Auth.
func RequireRole(logger *zap.Logger, roles ...entity.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := utils.GetActorFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				logger.Warn("Role check failed",
					zap.String("user_id", actor.UserID.String()),
					zap.String("role", string(actor.Role)),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
