package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-submission-service/internal/domain"
)

type adminModel struct {
	bun.BaseModel `bun:"table:admins"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m adminModel) toDomain() domain.Admin {
	return domain.Admin{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt.UTC()}
}

// AdminStore keeps dashboard operators in the admins table.
type AdminStore struct {
	db *bun.DB
}

func NewAdminStore(db *bun.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) CreateAdmin(ctx context.Context, email, passwordHash string) (domain.Admin, error) {
	m := &adminModel{Email: email, PasswordHash: passwordHash}
	_, err := s.db.NewInsert().Model(m).Returning("id, created_at").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Admin{}, domain.ErrAdminExists
		}
		return domain.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return m.toDomain(), nil
}

func (s *AdminStore) FindAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	m := new(adminModel)
	err := s.db.NewSelect().Model(m).Where("email = ?", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Admin{}, domain.ErrAdminNotFound
	}
	if err != nil {
		return domain.Admin{}, fmt.Errorf("find admin: %w", err)
	}
	return m.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
