package memory

import (
	"context"
	"errors"
	"testing"

	"mla-quiz-service/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	snap := domain.AttemptSnapshot{QuizName: "mla-1", Cursor: 2}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadSnapshot(ctx, "mla-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", loaded.Cursor)
	}

	if err := store.DeleteSnapshot(ctx, "mla-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.LoadSnapshot(ctx, "mla-1"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSnapshotStoreMissing(t *testing.T) {
	store := NewSnapshotStore()
	if _, err := store.LoadSnapshot(context.Background(), "nope"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSnapshotStoreResults(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if _, ok := store.Result("mla-1"); ok {
		t.Fatalf("expected no result before save")
	}
	if err := store.SaveResult(ctx, "mla-1", domain.ScoreReport{Correct: 5, Total: 10}); err != nil {
		t.Fatalf("save result failed: %v", err)
	}
	report, ok := store.Result("mla-1")
	if !ok || report.Correct != 5 {
		t.Fatalf("unexpected stored result: %+v (ok=%v)", report, ok)
	}
}
