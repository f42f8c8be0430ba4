package quiz

import (
	"sort"

	"mla-quiz-service/internal/domain"
)

// AnswerLedger holds the per-question answer state for one attempt. All
// reads default to "unanswered" for unknown question IDs, and submitted
// records are frozen: the selection can never change after submission.
type AnswerLedger struct {
	records map[string]*domain.AnswerRecord
}

func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{records: make(map[string]*domain.AnswerRecord)}
}

// RestoreLedger rebuilds a ledger from snapshot records.
func RestoreLedger(records map[string]domain.AnswerRecord) *AnswerLedger {
	l := NewAnswerLedger()
	for id, rec := range records {
		copied := rec
		copied.QuestionID = id
		if copied.RuledOut == nil {
			copied.RuledOut = make(map[int]bool)
		}
		l.records[id] = &copied
	}
	return l
}

// Ensure creates an empty record for every listed question so a record
// exists from the moment the attempt starts.
func (l *AnswerLedger) Ensure(questionIDs []string) {
	for _, id := range questionIDs {
		if _, ok := l.records[id]; !ok {
			l.records[id] = emptyRecord(id)
		}
	}
}

// Select records a provisional choice, overwriting any prior unsubmitted
// selection. Returns ErrInvalidState once the question is submitted.
func (l *AnswerLedger) Select(questionID string, optionIndex int) error {
	rec := l.record(questionID)
	if rec.Submitted {
		return domain.ErrInvalidState
	}
	rec.Selected = optionIndex
	return nil
}

// Submit freezes the current selection. It fails with ErrInvalidState when
// nothing is selected and is a no-op on an already-submitted question.
func (l *AnswerLedger) Submit(questionID string) error {
	rec := l.record(questionID)
	if rec.Submitted {
		return nil
	}
	if rec.Selected < 0 {
		return domain.ErrInvalidState
	}
	rec.Submitted = true
	return nil
}

// ToggleRuledOut adds or removes an option from the ruled-out set. Silently
// ignored once the question is submitted.
func (l *AnswerLedger) ToggleRuledOut(questionID string, optionIndex int) {
	rec := l.record(questionID)
	if rec.Submitted {
		return
	}
	if rec.RuledOut[optionIndex] {
		delete(rec.RuledOut, optionIndex)
	} else {
		rec.RuledOut[optionIndex] = true
	}
}

// ToggleFlag flips the flagged-for-review marker, regardless of submission.
func (l *AnswerLedger) ToggleFlag(questionID string) {
	rec := l.record(questionID)
	rec.Flagged = !rec.Flagged
}

func (l *AnswerLedger) IsSubmitted(questionID string) bool {
	if rec, ok := l.records[questionID]; ok {
		return rec.Submitted
	}
	return false
}

// Selection returns the selected option index and whether one exists.
func (l *AnswerLedger) Selection(questionID string) (int, bool) {
	if rec, ok := l.records[questionID]; ok && rec.Selected >= 0 {
		return rec.Selected, true
	}
	return -1, false
}

// RuledOut returns the ruled-out option indices in ascending order.
func (l *AnswerLedger) RuledOut(questionID string) []int {
	rec, ok := l.records[questionID]
	if !ok || len(rec.RuledOut) == 0 {
		return nil
	}
	out := make([]int, 0, len(rec.RuledOut))
	for idx := range rec.RuledOut {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (l *AnswerLedger) IsFlagged(questionID string) bool {
	if rec, ok := l.records[questionID]; ok {
		return rec.Flagged
	}
	return false
}

// SubmittedCount reports how many questions have been submitted.
func (l *AnswerLedger) SubmittedCount() int {
	count := 0
	for _, rec := range l.records {
		if rec.Submitted {
			count++
		}
	}
	return count
}

// Records returns a deep copy of the ledger, suitable for snapshots.
func (l *AnswerLedger) Records() map[string]domain.AnswerRecord {
	out := make(map[string]domain.AnswerRecord, len(l.records))
	for id, rec := range l.records {
		copied := *rec
		copied.RuledOut = make(map[int]bool, len(rec.RuledOut))
		for idx, v := range rec.RuledOut {
			copied.RuledOut[idx] = v
		}
		out[id] = copied
	}
	return out
}

func (l *AnswerLedger) record(questionID string) *domain.AnswerRecord {
	if rec, ok := l.records[questionID]; ok {
		return rec
	}
	rec := emptyRecord(questionID)
	l.records[questionID] = rec
	return rec
}

func emptyRecord(questionID string) *domain.AnswerRecord {
	return &domain.AnswerRecord{
		QuestionID: questionID,
		Selected:   -1,
		RuledOut:   make(map[int]bool),
	}
}
