package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"quiz-submission-service/internal/domain"
)

// QuestionRepository loads the question bank (from cache/backing store).
type QuestionRepository interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// UserRepository registers and resolves users by normalized email.
type UserRepository interface {
	// Register creates the user unless the email exists; created reports which happened.
	Register(ctx context.Context, name, email string) (user domain.User, created bool, err error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// AttemptRecorder persists scored attempts atomically and reads the attempt log.
type AttemptRecorder interface {
	// Record assigns attempt.ID and attempt.SubmittedAt on success.
	Record(ctx context.Context, attempt *domain.Attempt, mode domain.RecordMode) error
	LatestAttempt(ctx context.Context, userID int64) (domain.Attempt, error)
	ListAttempts(ctx context.Context, page domain.Page) ([]domain.AttemptSummary, error)
}

// StartTracker remembers when a user started the quiz (in-memory, Redis, etc).
type StartTracker interface {
	MarkStarted(ctx context.Context, email string, at time.Time) error
	StartedAt(ctx context.Context, email string) (time.Time, bool, error)
}

// SubmissionService contains the quiz-taking use cases.
type SubmissionService struct {
	questions QuestionRepository
	users     UserRepository
	attempts  AttemptRecorder
	starts    StartTracker
	feed      *AttemptFeed
	mode      domain.RecordMode
	now       func() time.Time
	log       *slog.Logger
}

// Option customizes a SubmissionService.
type Option func(*SubmissionService)

// WithFeed publishes committed attempts to feed.
func WithFeed(feed *AttemptFeed) Option {
	return func(s *SubmissionService) { s.feed = feed }
}

// WithSingleAttempt rejects resubmissions instead of accumulating them.
func WithSingleAttempt(enabled bool) Option {
	return func(s *SubmissionService) {
		if enabled {
			s.mode = domain.RecordFirstOnly
		} else {
			s.mode = domain.RecordAppend
		}
	}
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SubmissionService) { s.now = now }
}

// WithLogger replaces slog.Default as the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *SubmissionService) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSubmissionService appends attempts by default; see WithSingleAttempt.
func NewSubmissionService(questions QuestionRepository, users UserRepository, attempts AttemptRecorder, starts StartTracker, opts ...Option) *SubmissionService {
	s := &SubmissionService{
		questions: questions,
		users:     users,
		attempts:  attempts,
		starts:    starts,
		mode:      domain.RecordAppend,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Questions lists the bank ordered by id without answer keys.
func (s *SubmissionService) Questions(ctx context.Context) ([]domain.PublicQuestion, error) {
	questions, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	sorted := make([]domain.Question, len(questions))
	copy(sorted, questions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]domain.PublicQuestion, 0, len(sorted))
	for _, q := range sorted {
		out = append(out, q.Public())
	}
	return out, nil
}

type startRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// Start registers the user if new. Users with a recorded attempt get it back
// with AlreadyTaken set; everyone else has their start time tracked.
func (s *SubmissionService) Start(ctx context.Context, name, email string) (domain.StartResult, error) {
	req := startRequest{Name: name, Email: normalizeEmail(email)}
	if err := validateStruct(req); err != nil {
		return domain.StartResult{}, err
	}

	user, created, err := s.users.Register(ctx, req.Name, req.Email)
	if err != nil {
		return domain.StartResult{}, fmt.Errorf("register user: %w", err)
	}

	if !created {
		latest, err := s.attempts.LatestAttempt(ctx, user.ID)
		switch {
		case err == nil:
			return domain.StartResult{UserID: user.ID, AlreadyTaken: true, Result: &latest}, nil
		case !errors.Is(err, domain.ErrAttemptNotFound):
			return domain.StartResult{}, fmt.Errorf("latest attempt: %w", err)
		}
	}

	if err := s.starts.MarkStarted(ctx, req.Email, s.now()); err != nil {
		s.log.Warn("track quiz start failed", slog.String("email", req.Email), slog.Any("err", err))
	}
	s.log.Info("quiz started", slog.Int64("user_id", user.ID), slog.Bool("new_user", created))
	return domain.StartResult{UserID: user.ID}, nil
}

// Submit scores a submission against the full bank and records it atomically.
func (s *SubmissionService) Submit(ctx context.Context, submission domain.Submission) (domain.SubmissionReceipt, error) {
	submission.Email = normalizeEmail(submission.Email)
	if err := validateStruct(submission); err != nil {
		return domain.SubmissionReceipt{}, err
	}

	user, err := s.users.FindByEmail(ctx, submission.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.SubmissionReceipt{}, &domain.NotFoundError{Resource: "user", Key: submission.Email, Err: err}
		}
		return domain.SubmissionReceipt{}, fmt.Errorf("find user: %w", err)
	}

	questions, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("list questions: %w", err)
	}

	result := ScoreSubmission(submission.Answers, questions)
	details := enrich(result.Details, questions)

	attempt := &domain.Attempt{
		UserID:           user.ID,
		Score:            result.Score,
		Total:            result.Total,
		Details:          details,
		TimeTakenSeconds: submission.TimeTakenSeconds,
	}
	s.applyServerTiming(ctx, submission.Email, attempt)

	if err := s.attempts.Record(ctx, attempt, s.mode); err != nil {
		return domain.SubmissionReceipt{}, s.recordError(err, submission.Email)
	}

	s.log.Info("submission recorded",
		slog.Int64("attempt_id", attempt.ID),
		slog.Int64("user_id", user.ID),
		slog.Int("score", attempt.Score),
		slog.Int("total", attempt.Total),
		slog.Int("answers", len(details)),
	)

	if s.feed != nil {
		s.feed.Publish(domain.AttemptSummary{
			AttemptID:        attempt.ID,
			UserName:         user.Name,
			UserEmail:        user.Email,
			Score:            attempt.Score,
			Total:            attempt.Total,
			TimeTakenSeconds: attempt.TimeTakenSeconds,
			StartedAt:        attempt.StartedAt,
			SubmittedAt:      attempt.SubmittedAt,
			Answers:          attempt.Details,
		})
	}

	return domain.SubmissionReceipt{
		AttemptID:        attempt.ID,
		UserID:           user.ID,
		Score:            attempt.Score,
		Total:            attempt.Total,
		Details:          details,
		TimeTakenSeconds: submission.TimeTakenSeconds,
	}, nil
}

// applyServerTiming records server-measured elapsed time next to the client value.
func (s *SubmissionService) applyServerTiming(ctx context.Context, email string, attempt *domain.Attempt) {
	startedAt, ok, err := s.starts.StartedAt(ctx, email)
	if err != nil {
		s.log.Warn("read quiz start failed", slog.String("email", email), slog.Any("err", err))
		return
	}
	if !ok {
		return
	}
	elapsed := int(s.now().Sub(startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	attempt.StartedAt = &startedAt
	attempt.ServerElapsedSeconds = &elapsed
}

func (s *SubmissionService) recordError(err error, email string) error {
	var persistErr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return &domain.NotFoundError{Resource: "user", Key: email, Err: err}
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return err
	case errors.As(err, &persistErr):
		s.log.Error("record attempt failed", slog.String("email", email), slog.Any("err", err))
		return err
	default:
		s.log.Error("record attempt failed", slog.String("email", email), slog.Any("err", err))
		return &domain.PersistenceError{Op: "record attempt", Err: err}
	}
}
