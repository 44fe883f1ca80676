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

// UserStore registers and resolves users in Postgres.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a UserStore backed by pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, name, email, score, total, details, time_taken_seconds, last_activity, created_at`

// Register inserts the user, leaving an existing row for the same email untouched.
func (s *UserStore) Register(ctx context.Context, name, email string) (domain.User, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id`,
		name, email,
	).Scan(&id)
	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
	} else if err != nil {
		return domain.User{}, false, fmt.Errorf("insert user: %w", err)
	}

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, created, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u                   domain.User
		score, total, taken *int32
		details             []byte
		lastActivity        *time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &score, &total, &details, &taken, &lastActivity, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.Score = intPtr(score)
	u.Total = intPtr(total)
	u.TimeTakenSeconds = intPtr(taken)
	u.LastActivity = lastActivity
	if len(details) > 0 {
		if err := json.Unmarshal(details, &u.Details); err != nil {
			return domain.User{}, fmt.Errorf("decode user details: %w", err)
		}
	}
	return u, nil
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
