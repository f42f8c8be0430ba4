package memory

import (
	"context"
	"sync"

	"mla-quiz-service/internal/domain"
)

// SnapshotStore is an in-memory implementation of quiz.SnapshotStore. It is
// the fallback the redis store degrades to, and the default when no redis
// is configured.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.AttemptSnapshot
	results   map[string]domain.ScoreReport
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]domain.AttemptSnapshot),
		results:   make(map[string]domain.ScoreReport),
	}
}

func (s *SnapshotStore) SaveSnapshot(_ context.Context, snap domain.AttemptSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.QuizName] = snap
	return nil
}

func (s *SnapshotStore) LoadSnapshot(_ context.Context, quizName string) (domain.AttemptSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[quizName]
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *SnapshotStore) DeleteSnapshot(_ context.Context, quizName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, quizName)
	return nil
}

func (s *SnapshotStore) SaveResult(_ context.Context, quizName string, report domain.ScoreReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[quizName] = report
	return nil
}

// Result returns the stored final report for a quiz, if any.
func (s *SnapshotStore) Result(quizName string) (domain.ScoreReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.results[quizName]
	return report, ok
}
