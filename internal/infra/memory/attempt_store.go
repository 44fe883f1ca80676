package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-submission-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.UserRepository and
// app.AttemptRecorder. Each Record call stages its writes and commits them
// under one lock, so readers never observe a partial attempt.
type AttemptStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	nextUser int64
	nextTry  int64
	users    map[int64]*domain.User
	byEmail  map[string]int64
	attempts []domain.Attempt
	answers  []domain.AnswerRecord

	// checkAnswer validates each staged answer row; tests use it to inject faults.
	checkAnswer func(domain.AnswerRecord) error
}

// NewAttemptStore returns an empty store that serves as both UserRepository and AttemptRecorder.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		clock:   time.Now,
		users:   make(map[int64]*domain.User),
		byEmail: make(map[string]int64),
	}
}

func (s *AttemptStore) Register(_ context.Context, name, email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byEmail[email]; ok {
		return *s.users[id], false, nil
	}
	s.nextUser++
	user := &domain.User{
		ID:        s.nextUser,
		Name:      name,
		Email:     email,
		CreatedAt: s.clock().UTC(),
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return *user, true, nil
}

func (s *AttemptStore) FindByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *AttemptStore) Record(_ context.Context, attempt *domain.Attempt, mode domain.RecordMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[attempt.UserID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if mode == domain.RecordFirstOnly && s.hasAttemptLocked(user.ID) {
		return domain.ErrAlreadySubmitted
	}

	staged := *attempt
	staged.ID = s.nextTry + 1
	staged.SubmittedAt = s.clock().UTC()

	rows := staged.AnswerRecords()
	if s.checkAnswer != nil {
		for _, row := range rows {
			if err := s.checkAnswer(row); err != nil {
				return &domain.PersistenceError{Op: "insert answer", Err: err}
			}
		}
	}

	// commit
	s.nextTry = staged.ID
	s.attempts = append(s.attempts, staged)
	s.answers = append(s.answers, rows...)
	score, total, taken := staged.Score, staged.Total, staged.TimeTakenSeconds
	at := staged.SubmittedAt
	user.Score = &score
	user.Total = &total
	user.TimeTakenSeconds = &taken
	user.Details = staged.Details
	user.LastActivity = &at

	attempt.ID = staged.ID
	attempt.SubmittedAt = staged.SubmittedAt
	return nil
}

func (s *AttemptStore) LatestAttempt(_ context.Context, userID int64) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].UserID == userID {
			return s.attempts[i], nil
		}
	}
	return domain.Attempt{}, domain.ErrAttemptNotFound
}

func (s *AttemptStore) ListAttempts(_ context.Context, page domain.Page) ([]domain.AttemptSummary, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]domain.Attempt, len(s.attempts))
	copy(ordered, s.attempts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID > ordered[j].ID })

	out := make([]domain.AttemptSummary, 0, page.Limit)
	for i := page.Offset; i < len(ordered) && len(out) < page.Limit; i++ {
		a := ordered[i]
		user := s.users[a.UserID]
		out = append(out, domain.AttemptSummary{
			AttemptID:        a.ID,
			UserName:         user.Name,
			UserEmail:        user.Email,
			Score:            a.Score,
			Total:            a.Total,
			TimeTakenSeconds: a.TimeTakenSeconds,
			StartedAt:        a.StartedAt,
			SubmittedAt:      a.SubmittedAt,
			Answers:          a.Details,
		})
	}
	return out, nil
}

// AnswerRecords returns a copy of every persisted answer row of a user.
func (s *AttemptStore) AnswerRecords(userID int64) []domain.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnswerRecord
	for _, r := range s.answers {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *AttemptStore) hasAttemptLocked(userID int64) bool {
	for _, a := range s.attempts {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
