package database

import (
	"context"
	"fmt"

	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
)

const itemColumns = `id, user_id, kind, translation_id, source_text, target_text, category,
	recall_strength, interval_days, streak, next_review_at, created_at, last_reviewed_at, version`

// ItemRepository handles database operations for review items
type ItemRepository struct {
	db QueryI
}

// NewItemRepository creates a new repository instance
func NewItemRepository(db QueryI) *ItemRepository {
	return &ItemRepository{db: db}
}

// ListItems returns all items of a user, oldest first
func (r *ItemRepository) ListItems(ctx context.Context, userID int64) ([]models.ReviewableItem, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM review_items WHERE user_id = ? ORDER BY created_at, id`)

	items := []models.ReviewableItem{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// GetItem returns an item by ID
func (r *ItemRepository) GetItem(ctx context.Context, id string) (models.ReviewableItem, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM review_items WHERE id = ?`)

	var item models.ReviewableItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return models.ReviewableItem{}, fmt.Errorf("failed to get item %s: %w", id, notFound(err))
	}
	return item, nil
}

// FindItemByTranslation returns the flashcard promoted from a translation
func (r *ItemRepository) FindItemByTranslation(ctx context.Context, userID int64, translationID string) (models.ReviewableItem, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM review_items
		WHERE user_id = ? AND translation_id = ? AND kind = ?
		ORDER BY created_at LIMIT 1`)

	var item models.ReviewableItem
	if err := r.db.GetContext(ctx, &item, query, userID, translationID, models.KindFlashcard); err != nil {
		return models.ReviewableItem{}, fmt.Errorf("failed to find item for translation %s: %w", translationID, notFound(err))
	}
	return item, nil
}

// CreateItem inserts a new item at version 1
func (r *ItemRepository) CreateItem(ctx context.Context, item *models.ReviewableItem) error {
	query := r.db.Rebind(`
		INSERT INTO review_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Kind,
		item.TranslationID,
		item.SourceText,
		item.TargetText,
		item.Category,
		item.RecallStrength,
		item.IntervalDays,
		item.Streak,
		item.NextReviewAt,
		item.CreatedAt,
		item.LastReviewedAt,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	item.Version = 1
	return nil
}

// UpdateItem writes the scheduling state of an item if nobody else has
// written it since expectedVersion was read
func (r *ItemRepository) UpdateItem(ctx context.Context, item *models.ReviewableItem, expectedVersion int64) error {
	query := r.db.Rebind(`
		UPDATE review_items SET
			recall_strength = ?,
			interval_days = ?,
			streak = ?,
			next_review_at = ?,
			last_reviewed_at = ?,
			category = ?,
			version = version + 1
		WHERE id = ? AND version = ?`)

	result, err := r.db.ExecContext(ctx, query,
		item.RecallStrength,
		item.IntervalDays,
		item.Streak,
		item.NextReviewAt,
		item.LastReviewedAt,
		item.Category,
		item.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM review_items WHERE id = ?`), item.ID)
		if err != nil {
			return fmt.Errorf("failed to check item: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("failed to update item %s: %w", item.ID, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to update item %s at version %d: %w", item.ID, expectedVersion, storage.ErrConflict)
	}

	item.Version = expectedVersion + 1
	return nil
}
