package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"quiz-submission-service/internal/domain"
)

// AdminRepository stores dashboard operators.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, email, passwordHash string) (domain.Admin, error)
	FindAdminByEmail(ctx context.Context, email string) (domain.Admin, error)
}

// AttemptLister is the read side of the attempt log used by the dashboard.
type AttemptLister interface {
	ListAttempts(ctx context.Context, page domain.Page) ([]domain.AttemptSummary, error)
}

// AdminService handles admin signup, login and attempt review.
type AdminService struct {
	admins   AdminRepository
	attempts AttemptLister
	secret   []byte
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
}

type adminClaims struct {
	AdminID int64 `json:"adminId"`
	jwt.RegisteredClaims
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func NewAdminService(admins AdminRepository, attempts AttemptLister, secret string, tokenTTL time.Duration) *AdminService {
	if tokenTTL <= 0 {
		tokenTTL = 2 * time.Hour
	}
	return &AdminService{
		admins:   admins,
		attempts: attempts,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// NewAdminServiceWithClock is test-only: cheap hashing and a fixed clock.
func NewAdminServiceWithClock(admins AdminRepository, attempts AttemptLister, secret string, tokenTTL time.Duration, now func() time.Time) *AdminService {
	s := NewAdminService(admins, attempts, secret, tokenTTL)
	s.cost = bcrypt.MinCost
	s.now = now
	return s
}

// Signup creates an admin account with a bcrypt-hashed password.
func (s *AdminService) Signup(ctx context.Context, email, password string) (domain.Admin, error) {
	creds := credentials{Email: normalizeEmail(email), Password: password}
	if err := validateStruct(creds); err != nil {
		return domain.Admin{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return domain.Admin{}, fmt.Errorf("hash password: %w", err)
	}
	return s.admins.CreateAdmin(ctx, creds.Email, string(hash))
}

// Login checks credentials and issues a signed token.
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", &domain.ValidationError{Reason: "email and password are required"}
	}
	admin, err := s.admins.FindAdminByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	now := s.now()
	claims := adminClaims{
		AdminID: admin.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(admin.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// VerifyToken returns the admin id carried by a valid token.
func (s *AdminService) VerifyToken(raw string) (int64, error) {
	if raw == "" {
		return 0, domain.ErrInvalidToken
	}
	claims := &adminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return claims.AdminID, nil
}

// ListAttempts returns the attempt log newest first.
func (s *AdminService) ListAttempts(ctx context.Context, page domain.Page) ([]domain.AttemptSummary, error) {
	return s.attempts.ListAttempts(ctx, page.Normalize())
}
