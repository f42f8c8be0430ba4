package quiz

import (
	"math/rand"

	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
)

// ShuffleEngine produces randomized per-attempt working copies of canonical
// questions. It never mutates its input; retries re-shuffle from the same
// canonical list.
type ShuffleEngine struct {
	rnd *rand.Rand
	log zerolog.Logger
}

// NewShuffleEngine builds an engine around the given source. Tests pass a
// seeded source for deterministic permutations.
func NewShuffleEngine(rnd *rand.Rand, log zerolog.Logger) *ShuffleEngine {
	return &ShuffleEngine{
		rnd: rnd,
		log: log.With().Str("component", "shuffle").Logger(),
	}
}

// Shuffle copies every question and permutes its options, remapping the
// correct index to the option's new position. Question order is preserved;
// use ShuffleOrder for an independent question-order permutation.
func (e *ShuffleEngine) Shuffle(questions []domain.Question) []domain.ShuffledQuestion {
	out := make([]domain.ShuffledQuestion, 0, len(questions))
	for i, q := range questions {
		out = append(out, e.shuffleOptions(q, i))
	}
	return out
}

// ShuffleOrder returns a new slice with the questions in uniformly random
// order. Per-question option order is untouched.
func (e *ShuffleEngine) ShuffleOrder(questions []domain.ShuffledQuestion) []domain.ShuffledQuestion {
	out := make([]domain.ShuffledQuestion, len(questions))
	copy(out, questions)
	for i := len(out) - 1; i >= 1; i-- {
		j := e.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (e *ShuffleEngine) shuffleOptions(q domain.Question, sourceIndex int) domain.ShuffledQuestion {
	n := len(q.Options)

	correct := q.CorrectIndex
	if n > 0 && (correct < 0 || correct >= n) {
		// Malformed source data: keep the attempt usable by treating the
		// first option as correct. See the ingestion docs for the caveat.
		e.log.Warn().
			Str("questionId", q.ID).
			Int("correctIndex", q.CorrectIndex).
			Int("options", n).
			Msg("correct answer index out of bounds, defaulting to 0")
		correct = 0
	}

	origin := make([]int, n)
	options := make([]string, n)
	for i := 0; i < n; i++ {
		origin[i] = i
		options[i] = q.Options[i]
	}

	if n > 1 {
		// Fisher-Yates over the (option, origin) pairs.
		for i := n - 1; i >= 1; i-- {
			j := e.rnd.Intn(i + 1)
			options[i], options[j] = options[j], options[i]
			origin[i], origin[j] = origin[j], origin[i]
		}
		for pos, orig := range origin {
			if orig == correct {
				correct = pos
				break
			}
		}
	}

	shuffled := domain.ShuffledQuestion{
		Question:     q,
		SourceIndex:  sourceIndex,
		OptionOrigin: origin,
	}
	shuffled.Options = options
	shuffled.CorrectIndex = correct
	return shuffled
}
