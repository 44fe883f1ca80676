package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-submission-service/internal/domain"
)

func TestRegisterIsIdempotentPerEmail(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()

	first, created, err := store.Register(ctx, "Alice", "alice@example.com")
	if err != nil || !created {
		t.Fatalf("register: created=%v err=%v", created, err)
	}
	second, created, err := store.Register(ctx, "Alice Again", "alice@example.com")
	if err != nil || created {
		t.Fatalf("re-register: created=%v err=%v", created, err)
	}
	if first.ID != second.ID || second.Name != "Alice" {
		t.Fatalf("expected original user back, got %+v", second)
	}
	if first.Score != nil || first.Total != nil {
		t.Fatalf("fresh user must have no score, got %+v", first)
	}
}

func TestRecordRollsBackOnAnswerFailure(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	user, _, _ := store.Register(ctx, "Alice", "alice@example.com")

	cause := errors.New("constraint violation")
	store.checkAnswer = func(r domain.AnswerRecord) error {
		if r.QuestionID == 3 {
			return cause
		}
		return nil
	}

	attempt := &domain.Attempt{
		UserID: user.ID,
		Score:  2,
		Total:  3,
		Details: []domain.ResultDetail{
			detail(1, 1, true),
			detail(2, 2, true),
			detail(3, 0, false),
		},
	}
	err := store.Record(ctx, attempt, domain.RecordAppend)

	var persistErr *domain.PersistenceError
	if !errors.As(err, &persistErr) || !errors.Is(err, cause) {
		t.Fatalf("expected persistence error wrapping cause, got %v", err)
	}
	if rows := store.AnswerRecords(user.ID); len(rows) != 0 {
		t.Fatalf("expected no answer rows, got %d", len(rows))
	}
	if _, err := store.LatestAttempt(ctx, user.ID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no attempt, got %v", err)
	}
	after, _ := store.FindByEmail(ctx, "alice@example.com")
	if after.Score != nil || after.Total != nil {
		t.Fatalf("aggregate must be untouched, got %+v", after)
	}
	if attempt.ID != 0 {
		t.Fatalf("failed record must not assign an id")
	}
}

func TestRecordAppendsRowsAndOverwritesAggregate(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	user, _, _ := store.Register(ctx, "Alice", "alice@example.com")

	first := &domain.Attempt{UserID: user.ID, Score: 2, Total: 2, TimeTakenSeconds: 30,
		Details: []domain.ResultDetail{detail(1, 0, true), detail(2, 1, true)}}
	if err := store.Record(ctx, first, domain.RecordAppend); err != nil {
		t.Fatalf("record first: %v", err)
	}
	second := &domain.Attempt{UserID: user.ID, Score: 1, Total: 2, TimeTakenSeconds: 45,
		Details: []domain.ResultDetail{detail(1, 1, false), detail(2, 1, true)}}
	if err := store.Record(ctx, second, domain.RecordAppend); err != nil {
		t.Fatalf("record second: %v", err)
	}

	if rows := store.AnswerRecords(user.ID); len(rows) != 4 {
		t.Fatalf("expected 4 accumulated answer rows, got %d", len(rows))
	}
	agg, _ := store.FindByEmail(ctx, "alice@example.com")
	if *agg.Score != 1 || *agg.Total != 2 || *agg.TimeTakenSeconds != 45 || agg.LastActivity == nil {
		t.Fatalf("aggregate should reflect latest attempt, got %+v", agg)
	}
	latest, err := store.LatestAttempt(ctx, user.ID)
	if err != nil || latest.ID != second.ID {
		t.Fatalf("expected latest attempt %d, got %+v (%v)", second.ID, latest, err)
	}

	summaries, _ := store.ListAttempts(ctx, domain.Page{Limit: 1})
	if len(summaries) != 1 || summaries[0].AttemptID != second.ID || summaries[0].UserEmail != "alice@example.com" {
		t.Fatalf("expected newest attempt first, got %+v", summaries)
	}
}

func TestRecordFirstOnlyRejectsResubmission(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	user, _, _ := store.Register(ctx, "Alice", "alice@example.com")

	if err := store.Record(ctx, &domain.Attempt{UserID: user.ID}, domain.RecordFirstOnly); err != nil {
		t.Fatalf("record first: %v", err)
	}
	err := store.Record(ctx, &domain.Attempt{UserID: user.ID, Details: []domain.ResultDetail{detail(1, 0, true)}}, domain.RecordFirstOnly)
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if rows := store.AnswerRecords(user.ID); len(rows) != 0 {
		t.Fatalf("rejected attempt must not write rows, got %d", len(rows))
	}
}

func TestRecordUnknownUser(t *testing.T) {
	store := NewAttemptStore()
	err := store.Record(context.Background(), &domain.Attempt{UserID: 42}, domain.RecordAppend)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func detail(questionID int64, selected int, correct bool) domain.ResultDetail {
	return domain.ResultDetail{ScoredAnswer: domain.ScoredAnswer{
		QuestionID:    questionID,
		SelectedIndex: selected,
		Correct:       correct,
	}}
}
