package cli

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"quiz-submission-service/internal/app"
	"quiz-submission-service/internal/config"
	"quiz-submission-service/internal/infra/postgres"
)

// NewAdminCmd groups admin account maintenance.
func NewAdminCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard admins",
	}
	cmd.AddCommand(newAdminCreateCmd(configPath))
	return cmd
}

func newAdminCreateCmd(configPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account without the master key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			svc := app.NewAdminService(postgres.NewAdminStore(db), postgres.NewAttemptStore(pool),
				cfg.Admin.JWTSecret, config.TTLDuration(cfg.Admin.TokenTTL, 0))
			admin, err := svc.Signup(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			log.Info("admin created", slog.Int64("admin_id", admin.ID), slog.String("email", admin.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
