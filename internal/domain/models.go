package domain

import "time"

// Question is the canonical, normalized form of an MCQ question. Content
// fields are never mutated after ingestion; per-attempt reordering always
// works on copies.
type Question struct {
	ID             string   `json:"id"`
	Title          string   `json:"title,omitempty"`
	Specialty      string   `json:"specialty,omitempty"`
	Scenario       string   `json:"scenario,omitempty"`
	Investigations string   `json:"investigations,omitempty"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	// CorrectIndex is the zero-based index of the correct option in Options.
	// A value of -1 means the source never marked an answer.
	CorrectIndex int      `json:"correctIndex"`
	Explanations []string `json:"explanations,omitempty"`
}

// ShuffledQuestion is a per-attempt copy of a Question whose options have
// been permuted and CorrectIndex remapped to the new position.
type ShuffledQuestion struct {
	Question
	// SourceIndex is the question's position in the canonical list.
	SourceIndex int `json:"sourceIndex"`
	// OptionOrigin maps each shuffled position to the option's original
	// index, so consumers can always translate back to the canonical order.
	OptionOrigin []int `json:"optionOrigin"`
}

// AnswerRecord tracks a learner's state for a single question within one
// attempt. Once Submitted is true the selection is frozen.
type AnswerRecord struct {
	QuestionID string       `json:"questionId"`
	Selected   int          `json:"selected"` // -1 when nothing is selected
	Submitted  bool         `json:"submitted"`
	RuledOut   map[int]bool `json:"ruledOut,omitempty"`
	Flagged    bool         `json:"flagged"`
}

// AttemptSnapshot is the serialized form of an in-progress attempt. It
// carries everything needed to restore the session exactly: the shuffled
// working copy, cursor, answers and timing.
type AttemptSnapshot struct {
	AttemptID     string                  `json:"attemptId"`
	QuizName      string                  `json:"quizName"`
	Questions     []ShuffledQuestion      `json:"questions"`
	Cursor        int                     `json:"cursor"`
	Answers       map[string]AnswerRecord `json:"answers"`
	QuestionTimes map[string]int64        `json:"questionTimes"` // milliseconds per question
	AnsweredTime  int64                   `json:"answeredTime"`  // milliseconds over submitted questions
	AnsweredCount int                     `json:"answeredCount"`
	StartedAt     time.Time               `json:"startedAt"`
	SavedAt       time.Time               `json:"savedAt"`
}

// IncorrectAnswer references one submitted-but-wrong question in a report.
type IncorrectAnswer struct {
	QuestionID     string `json:"questionId"`
	Title          string `json:"title,omitempty"`
	SelectedIndex  int    `json:"selectedIndex"`
	SelectedOption string `json:"selectedOption"`
	CorrectIndex   int    `json:"correctIndex"`
	CorrectOption  string `json:"correctOption"`
}

// ScoreReport is derived from the answer state and question data. It is
// recomputable at any point; partial and final reports use the same logic.
type ScoreReport struct {
	Correct    int               `json:"correct"`
	Answered   int               `json:"answered"`
	Total      int               `json:"total"`
	Percentage int               `json:"percentage"`
	Incorrect  []IncorrectAnswer `json:"incorrect,omitempty"`
}

// Quiz is a named, ordered collection of canonical questions.
type Quiz struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// QuizInfo is the catalog view of a quiz.
type QuizInfo struct {
	Name           string   `json:"name"`
	TotalQuestions int      `json:"totalQuestions"`
	Specialties    []string `json:"specialties,omitempty"`
}
