package quiz_test

import (
	"testing"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/quiz"
)

func workingCopy(n int) []domain.ShuffledQuestion {
	out := make([]domain.ShuffledQuestion, 0, n)
	for i := 0; i < n; i++ {
		q := domain.Question{
			ID:           questionID(i),
			Title:        "Question",
			Options:      []string{"A) first", "B) second", "C) third"},
			CorrectIndex: 1,
		}
		out = append(out, domain.ShuffledQuestion{Question: q, SourceIndex: i, OptionOrigin: []int{0, 1, 2}})
	}
	return out
}

func questionID(i int) string {
	return string(rune('a' + i))
}

func TestComputeScoreFullAttempt(t *testing.T) {
	questions := workingCopy(10)
	ledger := quiz.NewAnswerLedger()
	for i, q := range questions {
		choice := 1
		if i >= 7 {
			choice = 0
		}
		_ = ledger.Select(q.ID, choice)
		_ = ledger.Submit(q.ID)
	}

	report := quiz.ComputeScore(questions, ledger)
	if report.Correct != 7 || report.Answered != 10 || report.Total != 10 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Percentage != 70 {
		t.Fatalf("expected 70%%, got %d", report.Percentage)
	}
	if len(report.Incorrect) != 3 {
		t.Fatalf("expected 3 incorrect entries, got %d", len(report.Incorrect))
	}
	wrong := report.Incorrect[0]
	if wrong.SelectedOption != "A) first" || wrong.CorrectOption != "B) second" {
		t.Fatalf("unexpected incorrect detail: %+v", wrong)
	}
}

func TestComputeScorePartialAttempt(t *testing.T) {
	questions := workingCopy(10)
	ledger := quiz.NewAnswerLedger()
	for i := 0; i < 4; i++ {
		choice := 1
		if i == 3 {
			choice = 2
		}
		_ = ledger.Select(questions[i].ID, choice)
		_ = ledger.Submit(questions[i].ID)
	}
	// A selection without a submission must not count.
	_ = ledger.Select(questions[5].ID, 1)

	report := quiz.ComputeScore(questions, ledger)
	if report.Correct != 3 || report.Answered != 4 || report.Total != 10 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Percentage != 75 {
		t.Fatalf("expected percentage over answered only (75), got %d", report.Percentage)
	}
}

func TestComputeScoreRounding(t *testing.T) {
	questions := workingCopy(3)
	ledger := quiz.NewAnswerLedger()
	for i, q := range questions {
		choice := 1
		if i == 2 {
			choice = 0
		}
		_ = ledger.Select(q.ID, choice)
		_ = ledger.Submit(q.ID)
	}

	report := quiz.ComputeScore(questions, ledger)
	if report.Percentage != 67 {
		t.Fatalf("expected 2/3 to round to 67, got %d", report.Percentage)
	}
}

func TestComputeScoreNothingSubmitted(t *testing.T) {
	questions := workingCopy(5)
	report := quiz.ComputeScore(questions, quiz.NewAnswerLedger())

	if report.Correct != 0 || report.Answered != 0 || report.Total != 5 || report.Percentage != 0 {
		t.Fatalf("unexpected empty report: %+v", report)
	}
	if len(report.Incorrect) != 0 {
		t.Fatalf("expected no incorrect entries, got %d", len(report.Incorrect))
	}
}
