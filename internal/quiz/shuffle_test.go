package quiz_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/quiz"
)

func newEngine(seed int64) *quiz.ShuffleEngine {
	return quiz.NewShuffleEngine(rand.New(rand.NewSource(seed)), zerolog.Nop())
}

func canonical() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "one", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2},
		{ID: "q2", Prompt: "two", Options: []string{"e", "f", "g"}, CorrectIndex: 0},
		{ID: "q3", Prompt: "three", Options: []string{"h", "i"}, CorrectIndex: 1},
	}
}

func TestShuffleRemapsCorrectIndex(t *testing.T) {
	source := canonical()

	for seed := int64(0); seed < 50; seed++ {
		shuffled := newEngine(seed).Shuffle(source)
		if len(shuffled) != len(source) {
			t.Fatalf("seed %d: expected %d questions, got %d", seed, len(source), len(shuffled))
		}
		for i, sq := range shuffled {
			want := source[i].Options[source[i].CorrectIndex]
			if got := sq.Options[sq.CorrectIndex]; got != want {
				t.Fatalf("seed %d: question %s correct option is %q, want %q", seed, sq.ID, got, want)
			}
			if sq.SourceIndex != i {
				t.Fatalf("seed %d: question %s source index %d, want %d", seed, sq.ID, sq.SourceIndex, i)
			}
			assertPermutation(t, sq.OptionOrigin, len(source[i].Options))
			for pos, orig := range sq.OptionOrigin {
				if sq.Options[pos] != source[i].Options[orig] {
					t.Fatalf("seed %d: option origin mismatch at %d", seed, pos)
				}
			}
		}
	}
}

func TestShuffleDoesNotMutateSource(t *testing.T) {
	source := canonical()
	before := make([]domain.Question, len(source))
	copy(before, source)

	newEngine(7).Shuffle(source)

	if !reflect.DeepEqual(source, before) {
		t.Fatalf("canonical questions were mutated: %+v", source)
	}
}

func TestShuffleSingleOption(t *testing.T) {
	source := []domain.Question{{ID: "q1", Options: []string{"only"}, CorrectIndex: 0}}
	shuffled := newEngine(1).Shuffle(source)

	if shuffled[0].Options[0] != "only" || shuffled[0].CorrectIndex != 0 {
		t.Fatalf("single-option question changed: %+v", shuffled[0])
	}
}

func TestShuffleInvalidCorrectIndexDefaultsToFirst(t *testing.T) {
	source := []domain.Question{{ID: "q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 9}}

	for seed := int64(0); seed < 20; seed++ {
		sq := newEngine(seed).Shuffle(source)[0]
		if sq.CorrectIndex < 0 || sq.CorrectIndex >= len(sq.Options) {
			t.Fatalf("seed %d: correct index %d out of bounds", seed, sq.CorrectIndex)
		}
		if sq.Options[sq.CorrectIndex] != "a" {
			t.Fatalf("seed %d: expected first option to become correct, got %q", seed, sq.Options[sq.CorrectIndex])
		}
	}
}

func TestShuffleUnmarkedCorrectIndex(t *testing.T) {
	source := []domain.Question{{ID: "q1", Options: []string{"a", "b"}, CorrectIndex: -1}}

	sq := newEngine(3).Shuffle(source)[0]
	if sq.CorrectIndex < 0 || sq.CorrectIndex >= len(sq.Options) {
		t.Fatalf("correct index %d out of bounds", sq.CorrectIndex)
	}
	if sq.Options[sq.CorrectIndex] != "a" {
		t.Fatalf("expected first option treated as correct, got %q", sq.Options[sq.CorrectIndex])
	}
}

func TestShuffleOrderPermutesQuestionsOnly(t *testing.T) {
	engine := newEngine(11)
	shuffled := engine.Shuffle(canonical())
	reordered := engine.ShuffleOrder(shuffled)

	if len(reordered) != len(shuffled) {
		t.Fatalf("expected %d questions, got %d", len(shuffled), len(reordered))
	}
	byID := make(map[string]domain.ShuffledQuestion, len(shuffled))
	for _, sq := range shuffled {
		byID[sq.ID] = sq
	}
	for _, sq := range reordered {
		original, ok := byID[sq.ID]
		if !ok {
			t.Fatalf("question %s appeared from nowhere", sq.ID)
		}
		if !reflect.DeepEqual(sq, original) {
			t.Fatalf("question %s content changed during reorder", sq.ID)
		}
		delete(byID, sq.ID)
	}
	if len(byID) != 0 {
		t.Fatalf("questions lost during reorder: %v", byID)
	}
}

func assertPermutation(t *testing.T, origin []int, n int) {
	t.Helper()
	if len(origin) != n {
		t.Fatalf("origin length %d, want %d", len(origin), n)
	}
	seen := make([]bool, n)
	for _, idx := range origin {
		if idx < 0 || idx >= n || seen[idx] {
			t.Fatalf("origin %v is not a permutation of 0..%d", origin, n-1)
		}
		seen[idx] = true
	}
}
