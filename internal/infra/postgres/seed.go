package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"quiz-submission-service/internal/domain"
)

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID           int64    `bun:"id,pk,autoincrement"`
	Text         string   `bun:"text,notnull"`
	Options      []string `bun:"options,type:jsonb,notnull"`
	CorrectIndex int      `bun:"correct_index,notnull"`
}

// SeedQuestions inserts the bank when the questions table is empty. With reset
// it first wipes every attempt and answer row along with the questions and
// clears the per-user score aggregates, so no result points at a question that
// no longer exists. Users and admins are kept. It reports how many questions
// were inserted.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question, reset bool) (int, error) {
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, err
		}
	}

	inserted := 0
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if reset {
			if _, err := tx.ExecContext(ctx, `TRUNCATE answers, attempts, questions RESTART IDENTITY`); err != nil {
				return fmt.Errorf("truncate questions: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE users
				SET score = NULL, total = NULL, details = NULL, time_taken_seconds = NULL, last_activity = NULL`); err != nil {
				return fmt.Errorf("clear user results: %w", err)
			}
		} else {
			count, err := tx.NewSelect().Model((*questionModel)(nil)).Count(ctx)
			if err != nil {
				return fmt.Errorf("count questions: %w", err)
			}
			if count > 0 {
				return nil
			}
		}
		if len(questions) == 0 {
			return nil
		}

		models := make([]questionModel, 0, len(questions))
		for _, q := range questions {
			models = append(models, questionModel{Text: q.Text, Options: q.Options, CorrectIndex: q.CorrectIndex})
		}
		if _, err := tx.NewInsert().Model(&models).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		inserted = len(models)
		return nil
	})
	return inserted, err
}
