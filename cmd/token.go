package cmd

import (
	"fmt"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/pkg/middleware"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// tokenCmd signs an access token with the configured secret, for local use.
func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			if !entity.UserRole(role).Valid() {
				return fmt.Errorf("invalid role %q", role)
			}

			config, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if config.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			token, err := middleware.IssueToken(config.JWT, userID, entity.UserRole(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(entity.RoleStudent), "student, coach or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
