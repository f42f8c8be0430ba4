package quiz

import "time"

// TimingTracker accounts elapsed time per question and for the attempt as a
// whole. Re-visiting a question overwrites its stored time; only stops that
// accompany a submission accrue into the attempt totals, so navigating back
// and forth never double counts.
type TimingTracker struct {
	now          func() time.Time
	sessionStart time.Time

	starts  map[string]time.Time
	elapsed map[string]time.Duration
	counted map[string]bool

	answeredTime  time.Duration
	answeredCount int
}

func NewTimingTracker(now func() time.Time) *TimingTracker {
	return &TimingTracker{
		now:          now,
		sessionStart: now(),
		starts:       make(map[string]time.Time),
		elapsed:      make(map[string]time.Duration),
		counted:      make(map[string]bool),
	}
}

// RestoreTimingTracker rebuilds a tracker from snapshot data. The session
// start is restored so wall-clock elapsed spans reloads.
func RestoreTimingTracker(now func() time.Time, sessionStart time.Time, questionMillis map[string]int64, answeredMillis int64, answeredCount int) *TimingTracker {
	t := NewTimingTracker(now)
	t.sessionStart = sessionStart
	for id, ms := range questionMillis {
		t.elapsed[id] = time.Duration(ms) * time.Millisecond
	}
	t.answeredTime = time.Duration(answeredMillis) * time.Millisecond
	t.answeredCount = answeredCount
	return t
}

// MarkCounted records that a question's time is already part of the
// aggregate totals, so a later StopAnswered will not re-count it.
func (t *TimingTracker) MarkCounted(questionID string) {
	t.counted[questionID] = true
}

// StartQuestion marks the question as currently being viewed.
func (t *TimingTracker) StartQuestion(questionID string) {
	t.starts[questionID] = t.now()
}

// StopQuestion stores the elapsed time since the matching StartQuestion.
// Stopping without a start yields zero, never an error, so navigation races
// stay harmless. Aggregate totals are untouched.
func (t *TimingTracker) StopQuestion(questionID string) time.Duration {
	elapsed := t.take(questionID)
	t.elapsed[questionID] = elapsed
	return elapsed
}

// StopAnswered stops the question and folds its time into the attempt
// totals. Repeat calls for the same question do not double count.
func (t *TimingTracker) StopAnswered(questionID string) time.Duration {
	elapsed := t.take(questionID)
	t.elapsed[questionID] = elapsed
	if !t.counted[questionID] {
		t.counted[questionID] = true
		t.answeredTime += elapsed
		t.answeredCount++
	}
	return elapsed
}

// QuestionTime returns the stored time for a question, never negative.
func (t *TimingTracker) QuestionTime(questionID string) time.Duration {
	if d, ok := t.elapsed[questionID]; ok && d > 0 {
		return d
	}
	return 0
}

// SessionElapsed is wall-clock time since the attempt started.
func (t *TimingTracker) SessionElapsed() time.Duration {
	if d := t.now().Sub(t.sessionStart); d > 0 {
		return d
	}
	return 0
}

// SessionStart returns when the attempt began.
func (t *TimingTracker) SessionStart() time.Time {
	return t.sessionStart
}

// AnsweredTotals reports accumulated time and count over submitted
// questions, plus the average per question (zero when nothing is counted).
func (t *TimingTracker) AnsweredTotals() (total time.Duration, count int, average time.Duration) {
	if t.answeredCount == 0 {
		return 0, 0, 0
	}
	return t.answeredTime, t.answeredCount, t.answeredTime / time.Duration(t.answeredCount)
}

// QuestionMillis exports per-question times for snapshots.
func (t *TimingTracker) QuestionMillis() map[string]int64 {
	out := make(map[string]int64, len(t.elapsed))
	for id, d := range t.elapsed {
		out[id] = d.Milliseconds()
	}
	return out
}

func (t *TimingTracker) take(questionID string) time.Duration {
	start, ok := t.starts[questionID]
	if !ok {
		return 0
	}
	delete(t.starts, questionID)
	if elapsed := t.now().Sub(start); elapsed > 0 {
		return elapsed
	}
	return 0
}
