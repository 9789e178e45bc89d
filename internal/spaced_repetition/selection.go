package spaced_repetition

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/example/lumi/pkg/models"
)

// Rand is the random source used to pick among due items.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// SelectDue returns the items due at now, most overdue first, ties broken by
// ascending ID. A limit of zero or less means no limit. The sequence is
// recomputed from items every time it is iterated.
func SelectDue(items []models.ReviewableItem, now time.Time, limit int) iter.Seq[models.ReviewableItem] {
	return func(yield func(models.ReviewableItem) bool) {
		for i, item := range dueSorted(items, now) {
			if limit > 0 && i >= limit {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}

// SelectRandomDue picks one due item uniformly at random. It returns false
// when nothing is due.
func SelectRandomDue(items []models.ReviewableItem, now time.Time, rng Rand) (models.ReviewableItem, bool) {
	due := dueSorted(items, now)
	if len(due) == 0 {
		return models.ReviewableItem{}, false
	}
	return due[rng.Intn(len(due))], true
}

// dueSorted filters into a fresh slice so callers' snapshots are never reordered
func dueSorted(items []models.ReviewableItem, now time.Time) []models.ReviewableItem {
	due := make([]models.ReviewableItem, 0, len(items))
	for _, item := range items {
		if item.IsDue(now) {
			due = append(due, item)
		}
	}

	slices.SortFunc(due, func(a, b models.ReviewableItem) int {
		if c := a.NextReviewAt.Compare(b.NextReviewAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return due
}
