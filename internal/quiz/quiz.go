package quiz

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/lumi/pkg/models"
	"github.com/google/uuid"
)

const (
	// DefaultQuestionCount is how many questions a quiz holds unless configured otherwise
	DefaultQuestionCount = 10
	// MaxOptions is the size of a full multiple-choice option set
	MaxOptions = 4
)

// ErrNoMaterial is returned when there is nothing to build a quiz from
var ErrNoMaterial = errors.New("quiz: nothing to build a quiz from")

// Rand is the random source for drawing distractors and shuffling.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Choice is anything that can be asked: a prompt with one expected answer
type Choice struct {
	ID     string
	Prompt string
	Answer string
}

// FromItem builds a Choice from a review item
func FromItem(item models.ReviewableItem) Choice {
	return Choice{ID: item.ID, Prompt: item.SourceText, Answer: item.TargetText}
}

// FromTranslation builds a Choice from a recorded translation
func FromTranslation(t models.Translation) Choice {
	return Choice{ID: t.ID, Prompt: t.SourceText, Answer: t.TargetText}
}

// Options returns the shuffled answer options for target: its answer exactly
// once plus up to three distinct distractors drawn without replacement from
// pool. Pool entries sharing the target's ID, repeating an ID, or repeating
// an answer already on offer are ignored, so fewer than four options is a
// valid result.
func Options(target Choice, pool []Choice, rng Rand) []string {
	distractors := distinctAnswers(target, pool)

	options := make([]string, 0, MaxOptions)
	options = append(options, target.Answer)

	// partial Fisher-Yates: the first k slots become a uniform draw
	for i := 0; i < len(distractors) && len(options) < MaxOptions; i++ {
		j := i + rng.Intn(len(distractors)-i)
		distractors[i], distractors[j] = distractors[j], distractors[i]
		options = append(options, distractors[i])
	}

	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return options
}

func distinctAnswers(target Choice, pool []Choice) []string {
	seenIDs := map[string]struct{}{target.ID: {}}
	seenAnswers := map[string]struct{}{normalize(target.Answer): {}}

	answers := make([]string, 0, len(pool))
	for _, c := range pool {
		if _, ok := seenIDs[c.ID]; ok {
			continue
		}
		seenIDs[c.ID] = struct{}{}

		key := normalize(c.Answer)
		if key == "" {
			continue
		}
		if _, ok := seenAnswers[key]; ok {
			continue
		}
		seenAnswers[key] = struct{}{}
		answers = append(answers, c.Answer)
	}

	return answers
}

// normalize makes "Hola" and " hola " count as the same option
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Generator builds quizzes for users
type Generator struct {
	mu            sync.Mutex
	rng           Rand
	questionCount int
}

// NewGenerator creates a quiz generator. A questionCount of zero or less
// falls back to DefaultQuestionCount.
func NewGenerator(rng Rand, questionCount int) *Generator {
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}
	return &Generator{rng: rng, questionCount: questionCount}
}

// FromTranslations builds a quiz from the user's most frequent translations,
// most recent first on equal frequency. Distractors come from the same set.
func (g *Generator) FromTranslations(userID int64, translations []models.Translation, now time.Time) (models.Quiz, error) {
	top := slices.Clone(translations)
	slices.SortFunc(top, func(a, b models.Translation) int {
		if a.Frequency != b.Frequency {
			return b.Frequency - a.Frequency
		}
		if c := b.LastTranslated.Compare(a.LastTranslated); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(top) > g.questionCount {
		top = top[:g.questionCount]
	}

	choices := make([]Choice, 0, len(top))
	for _, t := range top {
		choices = append(choices, FromTranslation(t))
	}

	return g.build(userID, models.QuizFromTranslations, choices, now)
}

// FromItems builds a quiz from a random selection of the user's review items
func (g *Generator) FromItems(userID int64, items []models.ReviewableItem, now time.Time) (models.Quiz, error) {
	choices := make([]Choice, 0, len(items))
	for _, item := range items {
		choices = append(choices, FromItem(item))
	}

	g.mu.Lock()
	g.rng.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	g.mu.Unlock()

	pool := choices
	if len(choices) > g.questionCount {
		choices = choices[:g.questionCount]
	}

	return g.buildFromPool(userID, models.QuizFromReviewItems, choices, pool, now)
}

func (g *Generator) build(userID int64, kind models.QuizKind, choices []Choice, now time.Time) (models.Quiz, error) {
	return g.buildFromPool(userID, kind, choices, choices, now)
}

func (g *Generator) buildFromPool(userID int64, kind models.QuizKind, choices, pool []Choice, now time.Time) (models.Quiz, error) {
	if len(choices) == 0 {
		return models.Quiz{}, ErrNoMaterial
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	questions := make([]models.QuizQuestion, 0, len(choices))
	for _, c := range choices {
		options := Options(c, pool, g.rng)
		questions = append(questions, models.QuizQuestion{
			ID:            uuid.NewString(),
			SourceID:      c.ID,
			Prompt:        c.Prompt,
			CorrectAnswer: c.Answer,
			Options:       options,
			CorrectIndex:  slices.Index(options, c.Answer),
		})
	}

	return models.Quiz{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Questions: questions,
		CreatedAt: now,
	}, nil
}

// IsCorrect reports whether option is the index of the question's answer
func IsCorrect(q models.QuizQuestion, option int) bool {
	return option == q.CorrectIndex
}

// Score counts correct answers. answers maps question ID to the chosen option
// index; unanswered questions count as wrong.
func Score(quiz models.Quiz, answers map[string]int) int {
	correct := 0
	for _, q := range quiz.Questions {
		if option, ok := answers[q.ID]; ok && IsCorrect(q, option) {
			correct++
		}
	}
	return correct
}
