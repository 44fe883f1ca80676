package domain

import (
	"fmt"
	"time"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           int64    `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Validate rejects malformed bank entries before they reach scoring.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidQuestion, q.ID, q.CorrectIndex)
	}
	return nil
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
}

// PublicQuestion is the client-facing view of a question.
type PublicQuestion struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Unanswered marks a question the user skipped.
const Unanswered = -1

// Answer is a single client answer.
type Answer struct {
	QuestionID       int64 `json:"questionId"`
	SelectedIndex    int   `json:"selectedIndex" validate:"gte=-1"`
	TimeTakenSeconds int   `json:"timeTakenSeconds" validate:"gte=0"`
}

// Submission is the raw payload of a submit call. Each question may be
// answered at most once.
type Submission struct {
	Email            string   `json:"email" validate:"required"`
	Name             string   `json:"name,omitempty"`
	Answers          []Answer `json:"answers" validate:"unique=QuestionID,dive"`
	TimeTakenSeconds int      `json:"timeTakenSeconds" validate:"gte=0"`
}

// ScoredAnswer is the outcome of scoring one answer.
type ScoredAnswer struct {
	QuestionID       int64 `json:"questionId"`
	SelectedIndex    int   `json:"selectedIndex"`
	CorrectIndex     int   `json:"correctIndex"`
	Correct          bool  `json:"correct"`
	TimeTakenSeconds int   `json:"timeTakenSeconds"`
}

// SubmissionResult is what the scoring engine produces.
type SubmissionResult struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Details []ScoredAnswer `json:"details"`
}

// ResultDetail is a scored answer enriched with the question for display.
type ResultDetail struct {
	ScoredAnswer
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SubmissionReceipt is returned to the caller of submit.
type SubmissionReceipt struct {
	AttemptID        int64          `json:"attemptId"`
	UserID           int64          `json:"userId"`
	Score            int            `json:"score"`
	Total            int            `json:"total"`
	Details          []ResultDetail `json:"details"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
}

// User is the per-email aggregate. Score fields stay nil until the first submit.
type User struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Score            *int           `json:"score"`
	Total            *int           `json:"total"`
	Details          []ResultDetail `json:"details,omitempty"`
	TimeTakenSeconds *int           `json:"timeTakenSeconds"`
	LastActivity     *time.Time     `json:"lastActivity,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Attempt is one immutable entry of the attempt log.
type Attempt struct {
	ID                   int64          `json:"attemptId"`
	UserID               int64          `json:"userId"`
	Score                int            `json:"score"`
	Total                int            `json:"total"`
	Details              []ResultDetail `json:"details"`
	TimeTakenSeconds     int            `json:"timeTakenSeconds"`
	ServerElapsedSeconds *int           `json:"serverElapsedSeconds,omitempty"`
	StartedAt            *time.Time     `json:"startedAt,omitempty"`
	SubmittedAt          time.Time      `json:"submittedAt"`
}

// AnswerRecord is one persisted answer row.
type AnswerRecord struct {
	AttemptID        int64 `json:"attemptId"`
	UserID           int64 `json:"userId"`
	QuestionID       int64 `json:"questionId"`
	SelectedIndex    int   `json:"selectedIndex"`
	Correct          bool  `json:"correct"`
	TimeTakenSeconds int   `json:"timeTakenSeconds"`
}

// AnswerRecords derives the answer rows of an attempt, in detail order.
func (a Attempt) AnswerRecords() []AnswerRecord {
	records := make([]AnswerRecord, 0, len(a.Details))
	for _, d := range a.Details {
		records = append(records, AnswerRecord{
			AttemptID:        a.ID,
			UserID:           a.UserID,
			QuestionID:       d.QuestionID,
			SelectedIndex:    d.SelectedIndex,
			Correct:          d.Correct,
			TimeTakenSeconds: d.TimeTakenSeconds,
		})
	}
	return records
}

// RecordMode selects how the recorder treats users that already submitted.
type RecordMode int

const (
	// RecordAppend accumulates attempts; the aggregate reflects the latest one.
	RecordAppend RecordMode = iota
	// RecordFirstOnly rejects a second attempt with ErrAlreadySubmitted.
	RecordFirstOnly
)

// StartResult is returned by the start step.
type StartResult struct {
	UserID       int64    `json:"userId"`
	AlreadyTaken bool     `json:"alreadyTaken"`
	Result       *Attempt `json:"result,omitempty"`
}

// AttemptSummary is the admin view of an attempt.
type AttemptSummary struct {
	AttemptID        int64          `json:"attemptId"`
	UserName         string         `json:"userName"`
	UserEmail        string         `json:"userEmail"`
	Score            int            `json:"score"`
	Total            int            `json:"total"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	SubmittedAt      time.Time      `json:"submittedAt"`
	Answers          []ResultDetail `json:"answers"`
}

// Page bounds admin listings.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Admin is a dashboard operator.
type Admin struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
