package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/infra/memory"
)

// SnapshotStore persists attempt snapshots and results as JSON documents in
// Redis. When a write fails (capacity, connectivity) the store degrades to
// an in-memory fallback for the rest of the process lifetime, reporting
// domain.ErrQuotaExceeded exactly once so callers can warn the learner.
type SnapshotStore struct {
	client   *redis.Client
	ttl      time.Duration
	log      zerolog.Logger
	fallback *memory.SnapshotStore

	mu       sync.Mutex
	degraded bool
	warned   bool
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		client:   client,
		ttl:      ttl,
		log:      log.With().Str("component", "snapshot_store").Logger(),
		fallback: memory.NewSnapshotStore(),
	}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap domain.AttemptSnapshot) error {
	if s.isDegraded() {
		return s.fallback.SaveSnapshot(ctx, snap)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.QuizName), data, s.ttl).Err(); err != nil {
		return s.degrade(ctx, err, func(ctx context.Context) error {
			return s.fallback.SaveSnapshot(ctx, snap)
		})
	}
	return nil
}

func (s *SnapshotStore) LoadSnapshot(ctx context.Context, quizName string) (domain.AttemptSnapshot, error) {
	if s.isDegraded() {
		return s.fallback.LoadSnapshot(ctx, quizName)
	}

	data, err := s.client.Get(ctx, snapshotKey(quizName)).Bytes()
	if err == redis.Nil {
		return domain.AttemptSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.AttemptSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.AttemptSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.AttemptSnapshot{}, domain.ErrCorruptSnapshot
	}
	return snap, nil
}

func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, quizName string) error {
	if s.isDegraded() {
		return s.fallback.DeleteSnapshot(ctx, quizName)
	}
	return s.client.Del(ctx, snapshotKey(quizName)).Err()
}

func (s *SnapshotStore) SaveResult(ctx context.Context, quizName string, report domain.ScoreReport) error {
	if s.isDegraded() {
		return s.fallback.SaveResult(ctx, quizName, report)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, resultKey(quizName), data, s.ttl).Err(); err != nil {
		return s.degrade(ctx, err, func(ctx context.Context) error {
			return s.fallback.SaveResult(ctx, quizName, report)
		})
	}
	return nil
}

// Degraded reports whether the store has fallen back to in-memory storage.
func (s *SnapshotStore) Degraded() bool {
	return s.isDegraded()
}

func (s *SnapshotStore) isDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// degrade flips to the in-memory fallback, performs the write there, and
// surfaces ErrQuotaExceeded on the first failure only.
func (s *SnapshotStore) degrade(ctx context.Context, cause error, write func(context.Context) error) error {
	s.mu.Lock()
	first := !s.warned
	s.degraded = true
	s.warned = true
	s.mu.Unlock()

	if first {
		s.log.Warn().Err(cause).Msg("redis write failed, falling back to in-memory snapshots")
	}
	if err := write(ctx); err != nil {
		return err
	}
	if first {
		return fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, cause)
	}
	return nil
}

func snapshotKey(quizName string) string {
	return "attempt:" + quizName + ":snapshot"
}

func resultKey(quizName string) string {
	return "attempt:" + quizName + ":result"
}
