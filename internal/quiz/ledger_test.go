package quiz_test

import (
	"errors"
	"reflect"
	"testing"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/quiz"
)

func TestLedgerSelectAndSubmit(t *testing.T) {
	ledger := quiz.NewAnswerLedger()

	if err := ledger.Select("q1", 2); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if err := ledger.Select("q1", 1); err != nil {
		t.Fatalf("re-select before submit failed: %v", err)
	}
	if err := ledger.Submit("q1"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := ledger.Submit("q1"); err != nil {
		t.Fatalf("repeat submit should be a no-op, got %v", err)
	}
	if err := ledger.Select("q1", 0); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for select after submit, got %v", err)
	}
	if selected, ok := ledger.Selection("q1"); !ok || selected != 1 {
		t.Fatalf("expected frozen selection 1, got %d (ok=%v)", selected, ok)
	}
}

func TestLedgerSubmitWithoutSelection(t *testing.T) {
	ledger := quiz.NewAnswerLedger()
	ledger.Ensure([]string{"q1"})

	if err := ledger.Submit("q1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if ledger.IsSubmitted("q1") {
		t.Fatalf("failed submit must not mark the question submitted")
	}
}

func TestLedgerRuleOutToggle(t *testing.T) {
	ledger := quiz.NewAnswerLedger()

	ledger.ToggleRuledOut("q1", 3)
	ledger.ToggleRuledOut("q1", 0)
	if got := ledger.RuledOut("q1"); !reflect.DeepEqual(got, []int{0, 3}) {
		t.Fatalf("expected ruled out [0 3], got %v", got)
	}

	ledger.ToggleRuledOut("q1", 3)
	if got := ledger.RuledOut("q1"); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected ruled out [0], got %v", got)
	}

	_ = ledger.Select("q1", 1)
	_ = ledger.Submit("q1")
	ledger.ToggleRuledOut("q1", 2)
	if got := ledger.RuledOut("q1"); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("rule-out after submit must be ignored, got %v", got)
	}
}

func TestLedgerFlagSurvivesSubmit(t *testing.T) {
	ledger := quiz.NewAnswerLedger()

	_ = ledger.Select("q1", 0)
	_ = ledger.Submit("q1")

	ledger.ToggleFlag("q1")
	if !ledger.IsFlagged("q1") {
		t.Fatalf("expected flag toggle to work after submit")
	}
	ledger.ToggleFlag("q1")
	if ledger.IsFlagged("q1") {
		t.Fatalf("expected second toggle to clear the flag")
	}
}

func TestLedgerEnsureDefaults(t *testing.T) {
	ledger := quiz.NewAnswerLedger()
	ledger.Ensure([]string{"q1", "q2"})

	if _, ok := ledger.Selection("q1"); ok {
		t.Fatalf("fresh record must have no selection")
	}
	records := ledger.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if rec := records["q2"]; rec.Selected != -1 || rec.Submitted || rec.RuledOut == nil {
		t.Fatalf("unexpected fresh record: %+v", rec)
	}
}

func TestRestoreLedger(t *testing.T) {
	ledger := quiz.RestoreLedger(map[string]domain.AnswerRecord{
		"q1": {Selected: 2, Submitted: true},
		"q2": {Selected: 0, RuledOut: map[int]bool{1: true}},
	})

	if !ledger.IsSubmitted("q1") {
		t.Fatalf("expected q1 submitted after restore")
	}
	if got := ledger.RuledOut("q2"); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("expected ruled out [1], got %v", got)
	}
	// Restored records with nil maps must still tolerate toggles.
	ledger.ToggleRuledOut("q2", 3)
	if got := ledger.RuledOut("q2"); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("expected ruled out [1 3], got %v", got)
	}
	if count := ledger.SubmittedCount(); count != 1 {
		t.Fatalf("expected 1 submitted, got %d", count)
	}
}

func TestLedgerRecordsAreCopies(t *testing.T) {
	ledger := quiz.NewAnswerLedger()
	ledger.ToggleRuledOut("q1", 0)

	records := ledger.Records()
	records["q1"].RuledOut[5] = true

	if got := ledger.RuledOut("q1"); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("mutating the copy leaked into the ledger: %v", got)
	}
}
