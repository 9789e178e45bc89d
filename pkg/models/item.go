package models

import "time"

// ItemKind distinguishes how a reviewable item came to exist
type ItemKind string

const (
	// KindFlashcard is an item promoted from a frequently repeated translation
	KindFlashcard ItemKind = "flashcard"
	// KindVocabulary is a word added to the vocabulary trainer (manually or by import)
	KindVocabulary ItemKind = "vocabulary"
)

// ReviewableItem is the unit of spaced repetition: a flashcard or a vocabulary word
type ReviewableItem struct {
	ID             string     `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	Kind           ItemKind   `json:"kind" db:"kind"`
	TranslationID  string     `json:"translation_id,omitempty" db:"translation_id"`
	SourceText     string     `json:"source_text" db:"source_text"`
	TargetText     string     `json:"target_text" db:"target_text"`
	Category       string     `json:"category,omitempty" db:"category"`
	RecallStrength float64    `json:"recall_strength" db:"recall_strength"` // ease factor
	IntervalDays   int        `json:"interval_days" db:"interval_days"`
	Streak         int        `json:"streak" db:"streak"` // consecutive non-hard ratings
	NextReviewAt   time.Time  `json:"next_review_at" db:"next_review_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty" db:"last_reviewed_at"`
	Version        int64      `json:"version" db:"version"`
}

// IsDue reports whether the item should be shown at now
func (i ReviewableItem) IsDue(now time.Time) bool {
	return !i.NextReviewAt.After(now)
}

// Reviewed reports whether the item has been rated at least once
func (i ReviewableItem) Reviewed() bool {
	return i.LastReviewedAt != nil
}
