package quiz

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/example/lumi/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func countOf(options []string, s string) int {
	n := 0
	for _, o := range options {
		if o == s {
			n++
		}
	}
	return n
}

func TestOptions(t *testing.T) {
	t.Parallel()

	target := Choice{ID: "t", Prompt: "dog", Answer: "perro"}

	tests := []struct {
		name    string
		pool    []Choice
		wantLen int
	}{
		{
			name: "full set",
			pool: []Choice{
				{ID: "1", Answer: "gato"},
				{ID: "2", Answer: "casa"},
				{ID: "3", Answer: "agua"},
				{ID: "4", Answer: "libro"},
				{ID: "5", Answer: "sol"},
			},
			wantLen: 4,
		},
		{
			name:    "empty pool",
			wantLen: 1,
		},
		{
			name: "short pool",
			pool: []Choice{
				{ID: "1", Answer: "gato"},
				{ID: "2", Answer: "casa"},
			},
			wantLen: 3,
		},
		{
			name: "target and repeated ids are ignored",
			pool: []Choice{
				{ID: "t", Answer: "perro"},
				{ID: "1", Answer: "gato"},
				{ID: "1", Answer: "gato"},
			},
			wantLen: 2,
		},
		{
			name: "duplicate answers are offered once",
			pool: []Choice{
				{ID: "1", Answer: "gato"},
				{ID: "2", Answer: "Gato "},
				{ID: "3", Answer: "perro"},
				{ID: "4", Answer: ""},
			},
			wantLen: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewSource(1))
			got := Options(target, tt.pool, rng)

			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, 1, countOf(got, target.Answer))

			seen := map[string]bool{}
			for _, o := range got {
				assert.False(t, seen[normalize(o)], "duplicate option %q", o)
				seen[normalize(o)] = true
			}
		})
	}
}

func TestOptions_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))

	for size := 0; size < 12; size++ {
		pool := make([]Choice, 0, size)
		for i := 0; i < size; i++ {
			// every third answer repeats an earlier one
			pool = append(pool, Choice{ID: fmt.Sprint(i), Answer: fmt.Sprintf("answer-%d", i-i%3)})
		}
		target := Choice{ID: "target", Answer: "answer-0"}

		for run := 0; run < 20; run++ {
			got := Options(target, pool, rng)

			assert.LessOrEqual(t, len(got), MaxOptions)
			assert.Equal(t, 1, countOf(got, "answer-0"))

			seen := map[string]bool{}
			for _, o := range got {
				require.False(t, seen[o])
				seen[o] = true
			}
		}
	}
}

func TestOptions_Deterministic(t *testing.T) {
	t.Parallel()

	target := Choice{ID: "t", Answer: "one"}
	pool := []Choice{{ID: "a", Answer: "two"}, {ID: "b", Answer: "three"}, {ID: "c", Answer: "four"}, {ID: "d", Answer: "five"}}

	first := Options(target, pool, rand.New(rand.NewSource(5)))
	second := Options(target, pool, rand.New(rand.NewSource(5)))

	assert.Equal(t, first, second)
}

func TestOptions_DrawsEveryDistractor(t *testing.T) {
	t.Parallel()

	target := Choice{ID: "t", Answer: "one"}
	pool := []Choice{{ID: "a", Answer: "two"}, {ID: "b", Answer: "three"}, {ID: "c", Answer: "four"}, {ID: "d", Answer: "five"}, {ID: "e", Answer: "six"}}

	rng := rand.New(rand.NewSource(11))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		for _, o := range Options(target, pool, rng) {
			seen[o] = true
		}
	}

	assert.Len(t, seen, 6)
}

func translation(id, source, target string, freq int, last time.Time) models.Translation {
	return models.Translation{
		ID:             id,
		UserID:         7,
		SourceText:     source,
		TargetText:     target,
		SourceLang:     "en",
		TargetLang:     "es",
		Frequency:      freq,
		LastTranslated: last,
	}
}

func TestGenerator_FromTranslations(t *testing.T) {
	t.Parallel()

	translations := make([]models.Translation, 0, 14)
	for i := 0; i < 12; i++ {
		translations = append(translations, translation(fmt.Sprintf("t%02d", i), fmt.Sprintf("word %d", i), fmt.Sprintf("palabra %d", i), 1, testNow.Add(-time.Duration(i)*time.Hour)))
	}
	translations = append(translations,
		translation("often", "thanks", "gracias", 9, testNow.Add(-48*time.Hour)),
		translation("sometimes", "please", "por favor", 4, testNow),
	)

	g := NewGenerator(rand.New(rand.NewSource(3)), 0)
	quiz, err := g.FromTranslations(7, translations, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(7), quiz.UserID)
	assert.Equal(t, models.QuizFromTranslations, quiz.Kind)
	assert.NotEmpty(t, quiz.ID)
	require.Len(t, quiz.Questions, DefaultQuestionCount)

	assert.Equal(t, "often", quiz.Questions[0].SourceID)
	assert.Equal(t, "sometimes", quiz.Questions[1].SourceID)
	// equal frequency: most recently translated first
	assert.Equal(t, "t00", quiz.Questions[2].SourceID)
	assert.Equal(t, "t07", quiz.Questions[9].SourceID)

	for _, q := range quiz.Questions {
		require.Len(t, q.Options, MaxOptions)
		assert.Equal(t, q.CorrectAnswer, q.Options[q.CorrectIndex])
		assert.NotEmpty(t, q.ID)
	}
}

func TestGenerator_FromTranslations_Empty(t *testing.T) {
	t.Parallel()

	g := NewGenerator(rand.New(rand.NewSource(1)), 5)
	_, err := g.FromTranslations(1, nil, testNow)
	require.ErrorIs(t, err, ErrNoMaterial)
}

func TestGenerator_FromItems(t *testing.T) {
	t.Parallel()

	items := []models.ReviewableItem{
		{ID: "1", SourceText: "cat", TargetText: "gato"},
		{ID: "2", SourceText: "dog", TargetText: "perro"},
		{ID: "3", SourceText: "house", TargetText: "casa"},
	}

	g := NewGenerator(rand.New(rand.NewSource(8)), 2)
	quiz, err := g.FromItems(3, items, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.QuizFromReviewItems, quiz.Kind)
	require.Len(t, quiz.Questions, 2)
	for _, q := range quiz.Questions {
		// distractors come from every item, not only the asked ones
		assert.Len(t, q.Options, 3)
		assert.Equal(t, q.CorrectAnswer, q.Options[q.CorrectIndex])
	}
	assert.Equal(t, "1", items[0].ID, "caller's slice keeps its order")
}

func TestScore(t *testing.T) {
	t.Parallel()

	quiz := models.Quiz{Questions: []models.QuizQuestion{
		{ID: "a", CorrectIndex: 0},
		{ID: "b", CorrectIndex: 2},
		{ID: "c", CorrectIndex: 1},
	}}

	tests := []struct {
		name    string
		answers map[string]int
		want    int
	}{
		{name: "all correct", answers: map[string]int{"a": 0, "b": 2, "c": 1}, want: 3},
		{name: "one wrong", answers: map[string]int{"a": 0, "b": 1, "c": 1}, want: 2},
		{name: "unanswered", answers: map[string]int{"a": 0}, want: 1},
		{name: "unknown question", answers: map[string]int{"z": 0}, want: 0},
		{name: "nil answers", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Score(quiz, tt.answers))
		})
	}
}
