package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
)

// State is the lifecycle phase of a Session.
type State int

const (
	Unloaded State = iota
	Loaded
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case InProgress:
		return "inProgress"
	case Completed:
		return "completed"
	default:
		return "unloaded"
	}
}

// Event notifies subscribers of attempt state changes.
type Event struct {
	Type       string              `json:"type"` // progress | answered | finished
	State      string              `json:"state"`
	Cursor     int                 `json:"cursor"`
	Answered   int                 `json:"answered"`
	Total      int                 `json:"total"`
	QuestionID string              `json:"questionId,omitempty"`
	Correct    *bool               `json:"correct,omitempty"`
	Report     *domain.ScoreReport `json:"report,omitempty"`
}

// Stats summarizes the attempt's timing aggregates.
type Stats struct {
	SessionElapsed  time.Duration `json:"sessionElapsed"`
	AnsweredTime    time.Duration `json:"answeredTime"`
	AnsweredCount   int           `json:"answeredCount"`
	AverageTime     time.Duration `json:"averageTime"`
	TotalQuestions  int           `json:"totalQuestions"`
	CurrentQuestion time.Duration `json:"currentQuestion"`
}

// Session owns one learner's attempt at a quiz: the shuffled working copy,
// the cursor, the answer ledger and the timing tracker. All operations are
// serialized by a mutex; collaborators (shuffler, store, clock) are injected
// so the session is testable in isolation.
type Session struct {
	log      zerolog.Logger
	shuffler *ShuffleEngine
	store    SnapshotStore
	now      func() time.Time

	// shuffleOrder also randomizes question order, independently of the
	// per-question option shuffling.
	shuffleOrder bool

	mu          sync.Mutex
	state       State
	attemptID   string
	quizName    string
	source      []domain.Question
	working     []domain.ShuffledQuestion
	cursor      int
	ledger      *AnswerLedger
	timing      *TimingTracker
	subscribers map[chan Event]struct{}
}

func NewSession(shuffler *ShuffleEngine, store SnapshotStore, log zerolog.Logger) *Session {
	return NewSessionWithClock(shuffler, store, log, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(shuffler *ShuffleEngine, store SnapshotStore, log zerolog.Logger, now func() time.Time) *Session {
	return &Session{
		log:         log.With().Str("component", "session").Logger(),
		shuffler:    shuffler,
		store:       store,
		now:         now,
		subscribers: make(map[chan Event]struct{}),
	}
}

// SetShuffleOrder enables question-order shuffling for subsequent starts.
func (s *Session) SetShuffleOrder(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffleOrder = enabled
}

// Load accepts the canonical question list. Valid from Unloaded, Loaded and
// Completed; an empty list fails with ErrEmptyQuiz.
func (s *Session) Load(quizName string, questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrEmptyQuiz
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == InProgress {
		return domain.ErrInvalidState
	}

	s.quizName = quizName
	s.source = make([]domain.Question, len(questions))
	copy(s.source, questions)
	s.working = nil
	s.cursor = 0
	s.ledger = nil
	s.timing = nil
	s.state = Loaded
	return nil
}

// Start shuffles a fresh working copy and begins the attempt at question 0.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loaded {
		return domain.ErrInvalidState
	}

	s.attemptID = uuid.NewString()
	s.working = s.shuffler.Shuffle(s.source)
	if s.shuffleOrder {
		s.working = s.shuffler.ShuffleOrder(s.working)
	}
	s.cursor = 0
	s.ledger = NewAnswerLedger()
	s.ledger.Ensure(s.questionIDsLocked())
	s.timing = NewTimingTracker(s.now)
	s.timing.StartQuestion(s.working[0].ID)
	s.state = InProgress

	s.log.Info().Str("attemptId", s.attemptID).Str("quiz", s.quizName).Int("questions", len(s.working)).Msg("attempt started")
	s.broadcastLocked(Event{Type: "progress"})
	return nil
}

// SelectOption records a provisional choice for the current question.
func (s *Session) SelectOption(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	current := s.working[s.cursor]
	if optionIndex < 0 || optionIndex >= len(current.Options) {
		return domain.ErrInvalidState
	}
	if err := s.ledger.Select(current.ID, optionIndex); err != nil {
		return err
	}
	s.broadcastLocked(Event{Type: "progress"})
	return nil
}

// SubmitCurrentAnswer freezes the current selection, stops the question's
// timer toward the attempt totals and saves a snapshot best-effort. Fails
// with ErrInvalidState when nothing is selected; resubmitting is a no-op.
func (s *Session) SubmitCurrentAnswer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	current := s.working[s.cursor]
	if s.ledger.IsSubmitted(current.ID) {
		return nil
	}
	if err := s.ledger.Submit(current.ID); err != nil {
		return err
	}
	s.timing.StopAnswered(current.ID)

	selected, _ := s.ledger.Selection(current.ID)
	correct := selected == current.CorrectIndex
	s.broadcastLocked(Event{Type: "answered", QuestionID: current.ID, Correct: &correct})

	s.saveSnapshotLocked(ctx)
	return nil
}

// ToggleRuledOut flips an option's ruled-out marker on the current question.
func (s *Session) ToggleRuledOut(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	current := s.working[s.cursor]
	if optionIndex < 0 || optionIndex >= len(current.Options) {
		return domain.ErrInvalidState
	}
	s.ledger.ToggleRuledOut(current.ID, optionIndex)
	s.broadcastLocked(Event{Type: "progress"})
	return nil
}

// ToggleFlag flips the current question's flagged-for-review marker.
func (s *Session) ToggleFlag() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	s.ledger.ToggleFlag(s.working[s.cursor].ID)
	s.broadcastLocked(Event{Type: "progress"})
	return nil
}

// GoNext advances the cursor. At the last question it finishes the attempt
// instead of moving.
func (s *Session) GoNext(ctx context.Context) error {
	s.mu.Lock()
	if s.state != InProgress {
		s.mu.Unlock()
		return domain.ErrInvalidState
	}
	if s.cursor == len(s.working)-1 {
		s.mu.Unlock()
		_, err := s.Finish(ctx)
		return err
	}
	s.moveLocked(s.cursor + 1)
	s.mu.Unlock()
	return nil
}

// GoPrevious moves the cursor back one question; a no-op at the start.
func (s *Session) GoPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	if s.cursor > 0 {
		s.moveLocked(s.cursor - 1)
	}
	return nil
}

// GoTo jumps to an index. Out-of-range targets are a no-op, not an error.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	if index < 0 || index >= len(s.working) || index == s.cursor {
		return nil
	}
	s.moveLocked(index)
	return nil
}

// Finish completes the attempt: it computes the final report, persists it
// and clears the resume snapshot so a completed quiz cannot be resumed.
func (s *Session) Finish(ctx context.Context) (domain.ScoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ScoreReport{}, domain.ErrInvalidState
	}

	current := s.working[s.cursor]
	s.timing.StopQuestion(current.ID)

	report := ComputeScore(s.working, s.ledger)
	if err := s.store.SaveResult(ctx, s.quizName, report); err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
		// Persisting the result failed outright: stay InProgress so the
		// learner can retry without losing the attempt.
		s.timing.StartQuestion(current.ID)
		return domain.ScoreReport{}, err
	}
	if err := s.store.DeleteSnapshot(ctx, s.quizName); err != nil {
		s.log.Warn().Err(err).Str("quiz", s.quizName).Msg("could not clear attempt snapshot")
	}

	s.state = Completed
	s.log.Info().Str("attemptId", s.attemptID).Int("correct", report.Correct).Int("answered", report.Answered).Msg("attempt finished")
	s.broadcastLocked(Event{Type: "finished", Report: &report})
	return report, nil
}

// Retry resets a completed attempt back to Loaded; Start will re-shuffle.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Completed {
		return domain.ErrInvalidState
	}
	s.working = nil
	s.cursor = 0
	s.ledger = nil
	s.timing = nil
	s.attemptID = ""
	s.state = Loaded
	return nil
}

// SaveSnapshot persists the attempt synchronously from current in-memory
// state. ErrQuotaExceeded is returned (once) when the store degraded to
// memory; the attempt itself is unaffected.
func (s *Session) SaveSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return domain.ErrInvalidState
	}
	return s.store.SaveSnapshot(ctx, s.snapshotLocked())
}

// ResumeSaved restores the attempt persisted for the loaded quiz. A corrupt
// snapshot is discarded and reported as ErrCorruptSnapshot; the session
// stays freshly loadable either way.
func (s *Session) ResumeSaved(ctx context.Context) error {
	s.mu.Lock()
	quizName := s.quizName
	s.mu.Unlock()
	if quizName == "" {
		return domain.ErrInvalidState
	}

	snap, err := s.store.LoadSnapshot(ctx, quizName)
	if err != nil {
		return err
	}
	if err := s.Resume(snap); err != nil {
		if derr := s.store.DeleteSnapshot(ctx, quizName); derr != nil {
			s.log.Warn().Err(derr).Str("quiz", quizName).Msg("could not discard corrupt snapshot")
		}
		return err
	}
	return nil
}

// Resume rehydrates the session from a snapshot, restoring cursor, shuffled
// order, answers and timing exactly. The canonical question list is rebuilt
// from the shuffle mappings so a later retry re-shuffles from the original.
func (s *Session) Resume(snap domain.AttemptSnapshot) error {
	source, err := restoreCanonical(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == InProgress {
		return domain.ErrInvalidState
	}

	s.attemptID = snap.AttemptID
	if s.attemptID == "" {
		s.attemptID = uuid.NewString()
	}
	s.quizName = snap.QuizName
	s.source = source
	s.working = make([]domain.ShuffledQuestion, len(snap.Questions))
	copy(s.working, snap.Questions)
	s.cursor = snap.Cursor
	s.ledger = RestoreLedger(snap.Answers)
	s.ledger.Ensure(s.questionIDsLocked())
	s.timing = RestoreTimingTracker(s.now, snap.StartedAt, snap.QuestionTimes, snap.AnsweredTime, snap.AnsweredCount)
	for id := range snap.Answers {
		if s.ledger.IsSubmitted(id) {
			s.timing.MarkCounted(id)
		}
	}
	s.timing.StartQuestion(s.working[s.cursor].ID)
	s.state = InProgress

	s.log.Info().Str("attemptId", s.attemptID).Str("quiz", s.quizName).Int("cursor", s.cursor).Msg("attempt resumed")
	s.broadcastLocked(Event{Type: "progress"})
	return nil
}

// Subscribe returns a channel receiving attempt events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AttemptID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

func (s *Session) QuizName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizName
}

func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Current returns the question under the cursor.
func (s *Session) Current() (domain.ShuffledQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress || s.cursor >= len(s.working) {
		return domain.ShuffledQuestion{}, false
	}
	return s.working[s.cursor], true
}

// Questions returns a copy of the attempt's working question list.
func (s *Session) Questions() []domain.ShuffledQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ShuffledQuestion, len(s.working))
	copy(out, s.working)
	return out
}

// Answers returns a copy of the answer records so far.
func (s *Session) Answers() map[string]domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return map[string]domain.AnswerRecord{}
	}
	return s.ledger.Records()
}

// Report computes the score over answers submitted so far. Valid both
// mid-attempt and after completion.
func (s *Session) Report() (domain.ScoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress && s.state != Completed {
		return domain.ScoreReport{}, domain.ErrInvalidState
	}
	return ComputeScore(s.working, s.ledger), nil
}

// QuestionTime returns the stored viewing time for a question.
func (s *Session) QuestionTime(questionID string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timing == nil {
		return 0
	}
	return s.timing.QuestionTime(questionID)
}

// Stats reports the attempt's timing aggregates.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timing == nil {
		return Stats{TotalQuestions: len(s.working)}
	}
	total, count, average := s.timing.AnsweredTotals()
	st := Stats{
		SessionElapsed: s.timing.SessionElapsed(),
		AnsweredTime:   total,
		AnsweredCount:  count,
		AverageTime:    average,
		TotalQuestions: len(s.working),
	}
	if s.cursor < len(s.working) {
		st.CurrentQuestion = s.timing.QuestionTime(s.working[s.cursor].ID)
	}
	return st
}

func (s *Session) moveLocked(index int) {
	previous := s.working[s.cursor]
	if !s.ledger.IsSubmitted(previous.ID) {
		s.timing.StopQuestion(previous.ID)
	}
	s.cursor = index
	s.timing.StartQuestion(s.working[index].ID)
	s.broadcastLocked(Event{Type: "progress"})
}

// saveSnapshotLocked persists best-effort; quota degradation is logged and
// the attempt continues on the in-memory fallback.
func (s *Session) saveSnapshotLocked(ctx context.Context) {
	if err := s.store.SaveSnapshot(ctx, s.snapshotLocked()); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			s.log.Warn().Str("quiz", s.quizName).Msg("snapshot store degraded, progress may not survive a restart")
			return
		}
		s.log.Warn().Err(err).Str("quiz", s.quizName).Msg("snapshot save failed")
	}
}

func (s *Session) snapshotLocked() domain.AttemptSnapshot {
	total, count, _ := s.timing.AnsweredTotals()
	return domain.AttemptSnapshot{
		AttemptID:     s.attemptID,
		QuizName:      s.quizName,
		Questions:     append([]domain.ShuffledQuestion(nil), s.working...),
		Cursor:        s.cursor,
		Answers:       s.ledger.Records(),
		QuestionTimes: s.timing.QuestionMillis(),
		AnsweredTime:  total.Milliseconds(),
		AnsweredCount: count,
		StartedAt:     s.timing.SessionStart(),
		SavedAt:       s.now(),
	}
}

func (s *Session) questionIDsLocked() []string {
	ids := make([]string, len(s.working))
	for i, q := range s.working {
		ids[i] = q.ID
	}
	return ids
}

func (s *Session) broadcastLocked(ev Event) {
	ev.State = s.state.String()
	ev.Cursor = s.cursor
	ev.Total = len(s.working)
	if s.ledger != nil {
		ev.Answered = s.ledger.SubmittedCount()
	}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so slow consumers never block.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// restoreCanonical rebuilds the canonical question list from a snapshot's
// shuffle mappings, validating the snapshot along the way.
func restoreCanonical(snap domain.AttemptSnapshot) ([]domain.Question, error) {
	if snap.QuizName == "" || len(snap.Questions) == 0 {
		return nil, domain.ErrCorruptSnapshot
	}
	if snap.Cursor < 0 || snap.Cursor >= len(snap.Questions) {
		return nil, domain.ErrCorruptSnapshot
	}

	source := make([]domain.Question, len(snap.Questions))
	seen := make([]bool, len(snap.Questions))
	for _, sq := range snap.Questions {
		if sq.SourceIndex < 0 || sq.SourceIndex >= len(snap.Questions) || seen[sq.SourceIndex] {
			return nil, domain.ErrCorruptSnapshot
		}
		n := len(sq.Options)
		if len(sq.OptionOrigin) != n {
			return nil, domain.ErrCorruptSnapshot
		}
		if n > 0 && (sq.CorrectIndex < 0 || sq.CorrectIndex >= n) {
			return nil, domain.ErrCorruptSnapshot
		}

		q := sq.Question
		options := make([]string, n)
		used := make([]bool, n)
		for pos, orig := range sq.OptionOrigin {
			if orig < 0 || orig >= n || used[orig] {
				return nil, domain.ErrCorruptSnapshot
			}
			used[orig] = true
			options[orig] = sq.Options[pos]
		}
		q.Options = options
		if n > 0 {
			q.CorrectIndex = sq.OptionOrigin[sq.CorrectIndex]
		}

		seen[sq.SourceIndex] = true
		source[sq.SourceIndex] = q
	}
	return source, nil
}
