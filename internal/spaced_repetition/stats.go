package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/lumi/pkg/models"
)

// State is the review state of a single item at a point in time
type State string

const (
	StateNew      State = "new"
	StateDue      State = "due"
	StateNotDue   State = "not_due"
	StateMastered State = "mastered"
)

// State classifies an item. A never-reviewed item is New, and selection
// still treats it as due. Mastered only applies while the item is not due.
func (s *Scheduler) State(item models.ReviewableItem, now time.Time) State {
	switch {
	case !item.Reviewed():
		return StateNew
	case item.IsDue(now):
		return StateDue
	case s.IsMastered(item):
		return StateMastered
	default:
		return StateNotDue
	}
}

// Stats summarizes a snapshot of items
func (s *Scheduler) Stats(items []models.ReviewableItem, now time.Time) models.ReviewStats {
	var stats models.ReviewStats
	var strength float64

	for _, item := range items {
		stats.Total++
		strength += item.RecallStrength

		switch item.Kind {
		case models.KindFlashcard:
			stats.Flashcards++
		case models.KindVocabulary:
			stats.VocabularyWords++
		}

		if item.IsDue(now) {
			stats.Due++
		}
		if !item.Reviewed() {
			stats.New++
		}
		if s.IsMastered(item) {
			stats.Mastered++
		}
	}

	if stats.Total > 0 {
		stats.AverageStrength = math.Round(strength/float64(stats.Total)*100) / 100
	}

	return stats
}
