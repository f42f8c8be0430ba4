package quiz

import (
	"math"

	"mla-quiz-service/internal/domain"
)

// ComputeScore derives a report from the working questions and the answer
// ledger. Only submitted answers count; the same logic serves mid-attempt
// partial reports and the final one.
func ComputeScore(questions []domain.ShuffledQuestion, ledger *AnswerLedger) domain.ScoreReport {
	report := domain.ScoreReport{Total: len(questions)}

	for _, q := range questions {
		if !ledger.IsSubmitted(q.ID) {
			continue
		}
		report.Answered++

		selected, ok := ledger.Selection(q.ID)
		if ok && selected == q.CorrectIndex {
			report.Correct++
			continue
		}

		incorrect := domain.IncorrectAnswer{
			QuestionID:    q.ID,
			Title:         q.Title,
			SelectedIndex: selected,
			CorrectIndex:  q.CorrectIndex,
		}
		if ok && selected >= 0 && selected < len(q.Options) {
			incorrect.SelectedOption = q.Options[selected]
		}
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			incorrect.CorrectOption = q.Options[q.CorrectIndex]
		}
		report.Incorrect = append(report.Incorrect, incorrect)
	}

	if report.Answered > 0 {
		report.Percentage = int(math.Round(float64(report.Correct) / float64(report.Answered) * 100))
	}
	return report
}
