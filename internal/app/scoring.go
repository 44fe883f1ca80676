package app

import "quiz-submission-service/internal/domain"

// ScoreSubmission grades answers against the full question bank.
//
// Answers for unknown question ids are dropped. Details keep input order and
// total is always len(questions), so unanswered questions count against the
// score. The function is pure and never fails.
func ScoreSubmission(answers []domain.Answer, questions []domain.Question) domain.SubmissionResult {
	lookup := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		lookup[q.ID] = q
	}

	correct := 0
	details := make([]domain.ScoredAnswer, 0, len(answers))
	for _, ans := range answers {
		q, ok := lookup[ans.QuestionID]
		if !ok {
			continue
		}
		isCorrect := ans.SelectedIndex != domain.Unanswered && ans.SelectedIndex == q.CorrectIndex
		if isCorrect {
			correct++
		}
		details = append(details, domain.ScoredAnswer{
			QuestionID:       q.ID,
			SelectedIndex:    ans.SelectedIndex,
			CorrectIndex:     q.CorrectIndex,
			Correct:          isCorrect,
			TimeTakenSeconds: ans.TimeTakenSeconds,
		})
	}

	return domain.SubmissionResult{
		Score:   correct,
		Total:   len(questions),
		Details: details,
	}
}

// enrich attaches question text and options to each scored answer.
func enrich(details []domain.ScoredAnswer, questions []domain.Question) []domain.ResultDetail {
	lookup := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		lookup[q.ID] = q
	}
	out := make([]domain.ResultDetail, 0, len(details))
	for _, d := range details {
		q := lookup[d.QuestionID]
		out = append(out, domain.ResultDetail{
			ScoredAnswer: d,
			Text:         q.Text,
			Options:      q.Options,
		})
	}
	return out
}
