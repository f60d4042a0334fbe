package cmd

import (
	"fmt"

	"coach-booking/pkg/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error { return m.Up(cmd.Context()) })
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error { return m.Status(cmd.Context()) })
		},
	})
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(m *database.Migrator) error) error {
	config, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.InitDB(cmd.Context(), config.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	m, err := database.NewMigrator(db.Pool(), logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
