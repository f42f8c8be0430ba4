package memory

import (
	"context"
	"sort"
	"sync"

	"mla-quiz-service/internal/domain"
)

// Catalog is an in-memory quiz collection. It backs the quiz-listing API
// and absorbs learner-uploaded quizzes; it also implements QuizLoader so it
// can sit behind the cached repository in setups without a database.
type Catalog struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewCatalog(quizzes map[string]domain.Quiz) *Catalog {
	c := &Catalog{quizzes: make(map[string]domain.Quiz, len(quizzes))}
	for name, quiz := range quizzes {
		c.quizzes[name] = quiz
	}
	return c
}

func (c *Catalog) LoadQuiz(_ context.Context, name string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if quiz, ok := c.quizzes[name]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// Add registers or replaces a quiz, e.g. after a markdown upload.
func (c *Catalog) Add(quiz domain.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.Name] = quiz
}

// List returns catalog entries sorted by name.
func (c *Catalog) List() []domain.QuizInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]domain.QuizInfo, 0, len(c.quizzes))
	for name, quiz := range c.quizzes {
		infos = append(infos, domain.QuizInfo{
			Name:           name,
			TotalQuestions: len(quiz.Questions),
			Specialties:    specialties(quiz),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func specialties(quiz domain.Quiz) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range quiz.Questions {
		if q.Specialty == "" {
			continue
		}
		if _, ok := seen[q.Specialty]; ok {
			continue
		}
		seen[q.Specialty] = struct{}{}
		out = append(out, q.Specialty)
	}
	sort.Strings(out)
	return out
}
