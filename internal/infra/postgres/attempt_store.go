package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-submission-service/internal/domain"
)

// AttemptStore persists scored attempts in Postgres.
type AttemptStore struct {
	pool *pgxpool.Pool
}

// NewAttemptStore records attempts through pool; each Record runs in its own transaction.
func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// Record runs as a single transaction: it locks the user row, appends the
// attempt log entry and its answer rows in detail order, then overwrites the
// user aggregate. Any failure rolls back every write.
//
// The user row lock serializes concurrent submits of one user, so the
// aggregate always matches the newest committed attempt.
func (s *AttemptStore) Record(ctx context.Context, attempt *domain.Attempt, mode domain.RecordMode) error {
	details, err := json.Marshal(attempt.Details)
	if err != nil {
		return &domain.PersistenceError{Op: "encode details", Err: err}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &domain.PersistenceError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, attempt.UserID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return &domain.PersistenceError{Op: "lock user", Err: err}
	}

	if mode == domain.RecordFirstOnly {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM attempts WHERE user_id=$1)`, attempt.UserID).Scan(&exists); err != nil {
			return &domain.PersistenceError{Op: "check attempts", Err: err}
		}
		if exists {
			return domain.ErrAlreadySubmitted
		}
	}

	var (
		id          int64
		submittedAt time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, score, total, details, time_taken_seconds, server_elapsed_seconds, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, submitted_at`,
		attempt.UserID, attempt.Score, attempt.Total, string(details),
		attempt.TimeTakenSeconds, attempt.ServerElapsedSeconds, attempt.StartedAt,
	).Scan(&id, &submittedAt)
	if err != nil {
		return &domain.PersistenceError{Op: "insert attempt", Err: err}
	}

	for _, d := range attempt.Details {
		_, err := tx.Exec(ctx,
			`INSERT INTO answers (attempt_id, user_id, question_id, selected_index, correct, time_taken_seconds)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, attempt.UserID, d.QuestionID, d.SelectedIndex, d.Correct, d.TimeTakenSeconds,
		)
		if err != nil {
			return &domain.PersistenceError{Op: fmt.Sprintf("insert answer for question %d", d.QuestionID), Err: err}
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET score=$1, total=$2, details=$3, time_taken_seconds=$4, last_activity=$5 WHERE id=$6`,
		attempt.Score, attempt.Total, string(details), attempt.TimeTakenSeconds, submittedAt, attempt.UserID,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "update user aggregate", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}

	attempt.ID = id
	attempt.SubmittedAt = submittedAt.UTC()
	return nil
}

const attemptColumns = `a.id, a.user_id, a.score, a.total, a.details, a.time_taken_seconds, a.server_elapsed_seconds, a.started_at, a.submitted_at`

func (s *AttemptStore) LatestAttempt(ctx context.Context, userID int64) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts a WHERE a.user_id=$1 ORDER BY a.id DESC LIMIT 1`,
		userID,
	)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("latest attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, page domain.Page) ([]domain.AttemptSummary, error) {
	page = page.Normalize()
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+`, u.name, u.email
		 FROM attempts a
		 JOIN users u ON u.id = a.user_id
		 ORDER BY a.id DESC
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.AttemptSummary, 0)
	for rows.Next() {
		var name, email string
		a, err := scanAttempt(rows, &name, &email)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		summaries = append(summaries, domain.AttemptSummary{
			AttemptID:        a.ID,
			UserName:         name,
			UserEmail:        email,
			Score:            a.Score,
			Total:            a.Total,
			TimeTakenSeconds: a.TimeTakenSeconds,
			StartedAt:        a.StartedAt,
			SubmittedAt:      a.SubmittedAt,
			Answers:          a.Details,
		})
	}
	return summaries, rows.Err()
}

// AnswerRecords returns every persisted answer row of a user in insert order.
func (s *AttemptStore) AnswerRecords(ctx context.Context, userID int64) ([]domain.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT attempt_id, user_id, question_id, selected_index, correct, time_taken_seconds
		 FROM answers WHERE user_id=$1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord
	for rows.Next() {
		var r domain.AnswerRecord
		if err := rows.Scan(&r.AttemptID, &r.UserID, &r.QuestionID, &r.SelectedIndex, &r.Correct, &r.TimeTakenSeconds); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanAttempt(row pgx.Row, extra ...any) (domain.Attempt, error) {
	var (
		a       domain.Attempt
		details []byte
		elapsed *int32
	)
	dest := append([]any{&a.ID, &a.UserID, &a.Score, &a.Total, &details, &a.TimeTakenSeconds, &elapsed, &a.StartedAt, &a.SubmittedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Attempt{}, err
	}
	a.ServerElapsedSeconds = intPtr(elapsed)
	a.SubmittedAt = a.SubmittedAt.UTC()
	if err := json.Unmarshal(details, &a.Details); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt details: %w", err)
	}
	return a, nil
}
