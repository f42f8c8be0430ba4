package quiz

import (
	"context"

	"mla-quiz-service/internal/domain"
)

// SnapshotStore abstracts how in-progress attempts and final results are
// persisted (in-memory, Redis, etc). Implementations must not fail fatally
// on capacity exhaustion; they degrade to in-memory storage and report
// domain.ErrQuotaExceeded once so callers can warn the learner.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.AttemptSnapshot) error
	LoadSnapshot(ctx context.Context, quizName string) (domain.AttemptSnapshot, error)
	DeleteSnapshot(ctx context.Context, quizName string) error
	SaveResult(ctx context.Context, quizName string, report domain.ScoreReport) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, name string) (domain.Quiz, error)
}
