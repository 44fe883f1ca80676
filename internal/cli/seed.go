package cli

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-submission-service/internal/infra/memory"
	"quiz-submission-service/internal/infra/postgres"
	infraredis "quiz-submission-service/internal/infra/redis"
)

// NewSeedCmd loads the sample question bank into Postgres. --reset replaces the
// bank and discards every recorded result.
func NewSeedCmd(configPath *string) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank",
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

			n, err := postgres.SeedQuestions(cmd.Context(), db, memory.SampleQuestions(), reset)
			if err != nil {
				return err
			}
			if n == 0 {
				log.Info("questions already present, nothing seeded")
				return nil
			}
			log.Info("questions seeded", slog.Int("count", n), slog.Bool("reset", reset))

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				if err := infraredis.NewQuestionRepository(client, nil, 0).Invalidate(cmd.Context()); err != nil {
					log.Warn("question cache not invalidated", slog.Any("err", err))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all questions, attempts and answer rows and clear user scores before seeding")
	return cmd
}
