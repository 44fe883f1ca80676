package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-submission-service/internal/app"
	"quiz-submission-service/internal/config"
	"quiz-submission-service/internal/infra/memory"
	"quiz-submission-service/internal/infra/postgres"
	infraredis "quiz-submission-service/internal/infra/redis"
	transport "quiz-submission-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores bundles the repositories picked for the current configuration.
type stores struct {
	questions app.QuestionRepository
	users     app.UserRepository
	attempts  app.AttemptRecorder
	starts    app.StartTracker
	admins    app.AdminRepository
	closers   []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	feed := app.NewAttemptFeed()
	quiz := app.NewSubmissionService(st.questions, st.users, st.attempts, st.starts,
		app.WithFeed(feed),
		app.WithSingleAttempt(cfg.Quiz.SingleAttempt),
		app.WithLogger(log),
	)
	admin := app.NewAdminService(st.admins, st.attempts, cfg.Admin.JWTSecret,
		config.TTLDuration(cfg.Admin.TokenTTL, 2*time.Hour))
	api := transport.NewAPI(quiz, admin, feed, cfg.Admin.MasterKey, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", slog.String("addr", server.Addr), slog.Bool("single_attempt", cfg.Quiz.SingleAttempt))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.Any("err", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStores uses Postgres when configured and the in-memory stores otherwise.
// Redis, when configured, caches the question bank and tracks start times.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	st := &stores{}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.SampleQuestions())
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		db, err := openBunDB(cfg)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)

		loader = postgres.NewQuestionLoader(pool)
		st.users = postgres.NewUserStore(pool)
		st.attempts = postgres.NewAttemptStore(pool)
		st.admins = postgres.NewAdminStore(db)
		log.Info("using postgres stores")
	} else {
		store := memory.NewAttemptStore()
		st.users = store
		st.attempts = store
		st.admins = memory.NewAdminStore()
		log.Warn("postgres not configured, using in-memory stores with sample questions")
	}

	questionTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.questions = infraredis.NewQuestionRepository(client, loader, questionTTL)
		st.starts = infraredis.NewStartTracker(client, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		st.questions = memory.NewQuestionRepository(loader, questionTTL)
		st.starts = memory.NewStartTracker()
	}
	return st, nil
}
