package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator applies the embedded goose migrations over the pgx pool.
type Migrator struct {
	db  *sql.DB
	log *zap.Logger
}

func NewMigrator(pool *pgxpool.Pool, log *zap.Logger) (*Migrator, error) {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	return &Migrator{
		db:  stdlib.OpenDBFromPool(pool),
		log: log.With(zap.String("component", "migrator")),
	}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("Applying database migrations")
	if err := goose.UpContext(ctx, m.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	m.log.Info("Migrations applied", zap.Int64("version", version))
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, "migrations"); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// Close closes the sql.DB view; the pool stays owned by the caller.
func (m *Migrator) Close() error {
	return m.db.Close()
}
