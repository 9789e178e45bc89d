// Package storage defines the persistence contract shared by every backend.
// Backends live in internal/database (SQL) and internal/kvstore (key-value).
package storage

import (
	"context"
	"errors"

	"github.com/example/lumi/pkg/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned by UpdateItem when the stored version moved on
	ErrConflict = errors.New("storage: version conflict")
	// ErrAlreadyExists is returned when creating a record whose key is taken
	ErrAlreadyExists = errors.New("storage: already exists")
)

// ItemStore keeps reviewable items
type ItemStore interface {
	// ListItems returns a snapshot of every item the user owns
	ListItems(ctx context.Context, userID int64) ([]models.ReviewableItem, error)
	GetItem(ctx context.Context, id string) (models.ReviewableItem, error)
	// FindItemByTranslation returns the flashcard promoted from a translation
	FindItemByTranslation(ctx context.Context, userID int64, translationID string) (models.ReviewableItem, error)
	// CreateItem stores a new item and sets its Version
	CreateItem(ctx context.Context, item *models.ReviewableItem) error
	// UpdateItem writes item only if the stored version still equals
	// expectedVersion, otherwise it returns ErrConflict. On success the
	// item's Version is advanced.
	UpdateItem(ctx context.Context, item *models.ReviewableItem, expectedVersion int64) error
}

// TranslationStore keeps translation history
type TranslationStore interface {
	// FindTranslation looks up the record for an exact text and language pair
	FindTranslation(ctx context.Context, userID int64, sourceText, targetText, sourceLang, targetLang string) (models.Translation, error)
	// SaveTranslation inserts or updates by ID
	SaveTranslation(ctx context.Context, t *models.Translation) error
	// ListTranslations returns the user's translations, most recent first.
	// A limit of zero or less returns all of them.
	ListTranslations(ctx context.Context, userID int64, limit int) ([]models.Translation, error)
}

// ProgressStore keeps learner progress and quiz history
type ProgressStore interface {
	GetProgress(ctx context.Context, userID int64) (models.UserProgress, error)
	SaveProgress(ctx context.Context, p *models.UserProgress) error
	SaveQuizResult(ctx context.Context, r *models.QuizResult) error
	// ListQuizResults returns the user's quiz results, most recent first
	ListQuizResults(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error)
}

// UserStore keeps bot users and their settings
type UserStore interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	// SaveUser inserts the user or replaces the stored record
	SaveUser(ctx context.Context, u *models.User) error
	// ListUsersForNotification returns users with reminders enabled for hour
	ListUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// Store is everything the learning service needs from a backend
type Store interface {
	ItemStore
	TranslationStore
	ProgressStore
	UserStore
	Close() error
}
