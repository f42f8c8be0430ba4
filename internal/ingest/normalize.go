package ingest

import (
	"encoding/json"
	"strconv"
	"strings"

	"mla-quiz-service/internal/domain"
)

// RawQuestion tolerates the loose field naming seen in user-supplied JSON
// quizzes: the question text may arrive as "prompt", "question" or "title",
// and the correct index under either snake_case or camelCase. Unknown
// fields are ignored.
type RawQuestion struct {
	ID             questionID `json:"id"`
	Title          string     `json:"title"`
	Specialty      string     `json:"specialty"`
	Scenario       string     `json:"scenario"`
	Investigations string     `json:"investigations"`
	Prompt         string     `json:"prompt"`
	QuestionText   string     `json:"question"`
	Options        []string   `json:"options"`
	CorrectAnswer  *int       `json:"correct_answer"`
	CorrectIndex   *int       `json:"correctIndex"`
	Explanations   []string   `json:"explanations"`
}

// questionID accepts both JSON strings and numbers; numeric ids keep
// their literal rendering ("7", "3.5").
type questionID string

func (id *questionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = questionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = questionID(n.String())
	return nil
}

// Normalize reconciles raw questions into the canonical shape. Questions
// without options are dropped; a missing correct index becomes -1, which
// the shuffle engine later clamps (and logs).
func Normalize(raw []RawQuestion) []domain.Question {
	out := make([]domain.Question, 0, len(raw))
	for i, rq := range raw {
		if len(rq.Options) == 0 {
			continue
		}

		q := domain.Question{
			ID:             string(rq.ID),
			Title:          strings.TrimSpace(rq.Title),
			Specialty:      rq.Specialty,
			Scenario:       rq.Scenario,
			Investigations: rq.Investigations,
			Options:        rq.Options,
			CorrectIndex:   -1,
			Explanations:   rq.Explanations,
		}
		if q.ID == "" {
			q.ID = fallbackID(i)
		}

		switch {
		case rq.Prompt != "":
			q.Prompt = rq.Prompt
		case rq.QuestionText != "":
			q.Prompt = rq.QuestionText
		case rq.Title != "":
			q.Prompt = rq.Title
		default:
			q.Prompt = DefaultPrompt
		}

		if rq.CorrectAnswer != nil {
			q.CorrectIndex = *rq.CorrectAnswer
		} else if rq.CorrectIndex != nil {
			q.CorrectIndex = *rq.CorrectIndex
		}

		out = append(out, q)
	}
	return out
}

// ParseJSON decodes a loose JSON quiz: either a bare question array or an
// object wrapping one under "questions".
func ParseJSON(name string, data []byte) (domain.Quiz, error) {
	var raw []RawQuestion
	if err := json.Unmarshal(data, &raw); err == nil {
		return domain.Quiz{Name: name, Questions: Normalize(raw)}, nil
	}

	var doc struct {
		Name      string        `json:"name"`
		QuizName  string        `json:"quiz_name"`
		Questions []RawQuestion `json:"questions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Quiz{}, err
	}
	switch {
	case doc.Name != "":
		name = doc.Name
	case doc.QuizName != "":
		name = doc.QuizName
	}
	return domain.Quiz{Name: name, Questions: Normalize(doc.Questions)}, nil
}

func fallbackID(index int) string {
	return "q" + strconv.Itoa(index+1)
}
