package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quiz-submission-service/internal/app"
	"quiz-submission-service/internal/domain"
	"quiz-submission-service/internal/infra/memory"
)

type fixture struct {
	service *app.SubmissionService
	store   *memory.AttemptStore
	starts  *memory.StartTracker
	feed    *app.AttemptFeed
	now     time.Time
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewAttemptStore(),
		starts: memory.NewStartTracker(),
		feed:   app.NewAttemptFeed(),
		now:    time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(twoQuestions()), 5*time.Minute)
	opts = append([]app.Option{app.WithFeed(f.feed), app.WithClock(func() time.Time { return f.now })}, opts...)
	f.service = app.NewSubmissionService(questions, f.store, f.store, f.starts, opts...)
	return f
}

func (f *fixture) start(t *testing.T, email string) domain.StartResult {
	t.Helper()
	res, err := f.service.Start(context.Background(), "Alice", email)
	require.NoError(t, err)
	return res
}

func TestSubmitScenarios(t *testing.T) {
	cases := []struct {
		name      string
		answers   []domain.Answer
		wantScore int
	}{
		{"all correct", []domain.Answer{{QuestionID: 1, SelectedIndex: 0}, {QuestionID: 2, SelectedIndex: 1}}, 2},
		{"one wrong", []domain.Answer{{QuestionID: 1, SelectedIndex: 1}, {QuestionID: 2, SelectedIndex: 1}}, 1},
		{"no answers", []domain.Answer{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.start(t, "alice@example.com")

			receipt, err := f.service.Submit(context.Background(), domain.Submission{
				Email:            "alice@example.com",
				Answers:          tc.answers,
				TimeTakenSeconds: 42,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, receipt.Score)
			assert.Equal(t, 2, receipt.Total)
			assert.Equal(t, 42, receipt.TimeTakenSeconds)
			assert.Len(t, receipt.Details, len(tc.answers))
			assert.NotZero(t, receipt.AttemptID)
		})
	}
}

func TestSubmitEnrichesDetails(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alice@example.com")

	receipt, err := f.service.Submit(context.Background(), domain.Submission{
		Email:   "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 2, SelectedIndex: 0, TimeTakenSeconds: 9}},
	})
	require.NoError(t, err)
	require.Len(t, receipt.Details, 1)
	d := receipt.Details[0]
	assert.Equal(t, "b", d.Text)
	assert.Equal(t, []string{"x", "y"}, d.Options)
	assert.Equal(t, 1, d.CorrectIndex)
	assert.Equal(t, 9, d.TimeTakenSeconds)
	assert.False(t, d.Correct)
}

func TestResubmissionAppendsRowsAndOverwritesAggregate(t *testing.T) {
	f := newFixture(t)
	user := f.start(t, "alice@example.com")
	ctx := context.Background()

	_, err := f.service.Submit(ctx, domain.Submission{Email: "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 0}, {QuestionID: 2, SelectedIndex: 1}}})
	require.NoError(t, err)
	second, err := f.service.Submit(ctx, domain.Submission{Email: "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 1}, {QuestionID: 2, SelectedIndex: 1}}})
	require.NoError(t, err)

	assert.Len(t, f.store.AnswerRecords(user.UserID), 4)
	agg, err := f.store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, agg.Score)
	assert.Equal(t, 1, *agg.Score)
	assert.Equal(t, 2, *agg.Total)

	again := f.start(t, "alice@example.com")
	assert.True(t, again.AlreadyTaken)
	require.NotNil(t, again.Result)
	assert.Equal(t, second.AttemptID, again.Result.ID)
}

func TestSingleAttemptModeRejectsResubmission(t *testing.T) {
	f := newFixture(t, app.WithSingleAttempt(true))
	f.start(t, "alice@example.com")
	ctx := context.Background()

	_, err := f.service.Submit(ctx, domain.Submission{Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, domain.Submission{Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alice@example.com")

	cases := []struct {
		name string
		sub  domain.Submission
	}{
		{"missing email", domain.Submission{Email: "  "}},
		{"negative elapsed", domain.Submission{Email: "alice@example.com", TimeTakenSeconds: -1}},
		{"selected below unanswered", domain.Submission{Email: "alice@example.com",
			Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: -2}}}},
		{"negative answer time", domain.Submission{Email: "alice@example.com",
			Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 0, TimeTakenSeconds: -5}}}},
		{"duplicate question", domain.Submission{Email: "alice@example.com",
			Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 0}, {QuestionID: 1, SelectedIndex: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Submit(context.Background(), tc.sub)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
	assert.Empty(t, f.store.AnswerRecords(1), "validation failures must not persist")
}

func TestSubmitRejectsRepeatedQuestion(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alice@example.com")
	ctx := context.Background()

	correct := domain.Answer{QuestionID: 1, SelectedIndex: 0}
	_, err := f.service.Submit(ctx, domain.Submission{
		Email:   "alice@example.com",
		Answers: []domain.Answer{correct, correct, correct, correct},
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "answers", vErr.Field)

	user, err := f.store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, user.Score)
	assert.Nil(t, user.Total)
	assert.Empty(t, f.store.AnswerRecords(user.ID))

	receipt, err := f.service.Submit(ctx, domain.Submission{
		Email:   "alice@example.com",
		Answers: []domain.Answer{correct, {QuestionID: 2, SelectedIndex: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Score)
	assert.LessOrEqual(t, receipt.Score, receipt.Total)
}

func TestSubmitValidationFieldNames(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alice@example.com")

	_, err := f.service.Submit(context.Background(), domain.Submission{
		Email:   "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 2, SelectedIndex: 1}, {QuestionID: 1, SelectedIndex: -3}},
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "answers[1].selectedIndex", vErr.Field)
	assert.Equal(t, "must be >= -1", vErr.Reason)
}

func TestSubmitUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), domain.Submission{Email: "ghost@example.com"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubmitNormalizesEmail(t *testing.T) {
	f := newFixture(t)
	f.start(t, "Alice@Example.com ")

	_, err := f.service.Submit(context.Background(), domain.Submission{Email: "alice@example.COM"})
	assert.NoError(t, err)
}

func TestSubmitPropagatesPersistenceErrorWithoutRetry(t *testing.T) {
	store := memory.NewAttemptStore()
	recorder := &failingRecorder{AttemptStore: store, err: errors.New("disk full")}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(twoQuestions()), time.Minute)
	feed := app.NewAttemptFeed()
	updates, cancel := feed.Subscribe()
	defer cancel()
	service := app.NewSubmissionService(questions, store, recorder, memory.NewStartTracker(), app.WithFeed(feed))

	_, err := service.Start(context.Background(), "Alice", "alice@example.com")
	require.NoError(t, err)
	_, err = service.Submit(context.Background(), domain.Submission{Email: "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 0}}})

	var pErr *domain.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, recorder.err)
	assert.Equal(t, 1, recorder.calls)
	select {
	case s := <-updates:
		t.Fatalf("failed submission must not be published, got %+v", s)
	default:
	}
}

func TestServerElapsedIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alice@example.com")
	f.now = f.now.Add(95 * time.Second)

	receipt, err := f.service.Submit(context.Background(), domain.Submission{Email: "alice@example.com", TimeTakenSeconds: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, receipt.TimeTakenSeconds, "client time stays authoritative")

	latest, err := f.store.LatestAttempt(context.Background(), receipt.UserID)
	require.NoError(t, err)
	require.NotNil(t, latest.ServerElapsedSeconds)
	assert.Equal(t, 95, *latest.ServerElapsedSeconds)
	require.NotNil(t, latest.StartedAt)
}

func TestSubmitPublishesToFeed(t *testing.T) {
	f := newFixture(t)
	updates, cancel := f.feed.Subscribe()
	defer cancel()
	f.start(t, "alice@example.com")

	receipt, err := f.service.Submit(context.Background(), domain.Submission{Email: "alice@example.com",
		Answers: []domain.Answer{{QuestionID: 1, SelectedIndex: 0}}})
	require.NoError(t, err)

	select {
	case s := <-updates:
		assert.Equal(t, receipt.AttemptID, s.AttemptID)
		assert.Equal(t, "alice@example.com", s.UserEmail)
		assert.Equal(t, 1, s.Score)
	case <-time.After(time.Second):
		t.Fatal("expected attempt on feed")
	}
}

func TestStartValidationAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Start(ctx, "", "alice@example.com")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	first := f.start(t, "alice@example.com")
	second := f.start(t, "alice@example.com")
	assert.Equal(t, first.UserID, second.UserID)
	assert.False(t, second.AlreadyTaken, "registered but unscored users may continue")

	_, ok, _ := f.starts.StartedAt(ctx, "alice@example.com")
	assert.True(t, ok)
}

func TestQuestionsAreOrderedAndPublic(t *testing.T) {
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader([]domain.Question{
		{ID: 3, Text: "c", Options: []string{"x", "y"}, CorrectIndex: 1},
		{ID: 1, Text: "a", Options: []string{"x", "y"}, CorrectIndex: 0},
	}), time.Minute)
	store := memory.NewAttemptStore()
	service := app.NewSubmissionService(questions, store, store, memory.NewStartTracker())

	public, err := service.Questions(context.Background())
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, int64(1), public[0].ID)
	assert.Equal(t, int64(3), public[1].ID)
}

type failingRecorder struct {
	*memory.AttemptStore
	err   error
	calls int
}

func (r *failingRecorder) Record(context.Context, *domain.Attempt, domain.RecordMode) error {
	r.calls++
	return &domain.PersistenceError{Op: "insert answer", Err: r.err}
}
