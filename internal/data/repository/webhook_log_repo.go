package repository

import (
	"context"
	"fmt"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WebhookLogRepository interface {
	Create(ctx context.Context, log *entity.WebhookLog) error
	MarkResult(ctx context.Context, id uuid.UUID, success bool, response *string) error
}

type webhookLogRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWebhookLogRepository(db database.PgxIface, log *zap.Logger) WebhookLogRepository {
	return &webhookLogRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_log")),
	}
}

func (r *webhookLogRepository) Create(ctx context.Context, wl *entity.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (id, provider, event_type, event_id, payload, success, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		wl.ID,
		wl.Provider,
		wl.EventType,
		wl.EventID,
		wl.Payload,
		wl.Success,
		wl.Response,
		wl.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create webhook log", zap.Error(err), zap.String("event_id", wl.EventID))
		return fmt.Errorf("create webhook log %s: %w", wl.EventID, err)
	}
	return nil
}

func (r *webhookLogRepository) MarkResult(ctx context.Context, id uuid.UUID, success bool, response *string) error {
	query := `UPDATE webhook_logs SET success = $2, response = $3 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, success, response); err != nil {
		r.log.Error("Failed to update webhook log", zap.Error(err), zap.String("webhook_log_id", id.String()))
		return fmt.Errorf("update webhook log %s: %w", id.String(), err)
	}
	return nil
}
