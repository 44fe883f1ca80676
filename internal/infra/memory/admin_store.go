package memory

import (
	"context"
	"sync"
	"time"

	"quiz-submission-service/internal/domain"
)

// AdminStore is an in-memory implementation of app.AdminRepository.
type AdminStore struct {
	mu     sync.RWMutex
	nextID int64
	admins map[string]domain.Admin
}

func NewAdminStore() *AdminStore {
	return &AdminStore{admins: make(map[string]domain.Admin)}
}

func (s *AdminStore) CreateAdmin(_ context.Context, email, passwordHash string) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[email]; ok {
		return domain.Admin{}, domain.ErrAdminExists
	}
	s.nextID++
	admin := domain.Admin{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.admins[email] = admin
	return admin, nil
}

func (s *AdminStore) FindAdminByEmail(_ context.Context, email string) (domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[email]
	if !ok {
		return domain.Admin{}, domain.ErrAdminNotFound
	}
	return admin, nil
}
