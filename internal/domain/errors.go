package domain

import "errors"

var (
	// ErrEmptyQuiz is returned when a quiz with no questions is loaded.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidState is returned when an operation is invoked in the wrong
	// session state, e.g. submitting before selecting an option.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrCorruptSnapshot indicates persisted attempt data could not be restored.
	ErrCorruptSnapshot = errors.New("attempt snapshot is corrupt")
	// ErrQuotaExceeded indicates a persistence write failed and the store fell
	// back to in-memory storage for the rest of the process lifetime.
	ErrQuotaExceeded = errors.New("persistence quota exceeded")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSnapshotNotFound is returned when no saved attempt exists for a quiz.
	ErrSnapshotNotFound = errors.New("attempt snapshot not found")
)
