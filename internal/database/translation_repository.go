package database

import (
	"context"
	"fmt"

	"github.com/example/lumi/pkg/models"
)

const translationColumns = `id, user_id, source_text, target_text, source_lang, target_lang,
	frequency, last_translated, created_at`

// TranslationRepository handles database operations for translation history
type TranslationRepository struct {
	db QueryI
}

// NewTranslationRepository creates a new repository instance
func NewTranslationRepository(db QueryI) *TranslationRepository {
	return &TranslationRepository{db: db}
}

// FindTranslation returns the record for an exact text and language pair
func (r *TranslationRepository) FindTranslation(ctx context.Context, userID int64, sourceText, targetText, sourceLang, targetLang string) (models.Translation, error) {
	query := r.db.Rebind(`SELECT ` + translationColumns + ` FROM translations
		WHERE user_id = ? AND source_text = ? AND target_text = ? AND source_lang = ? AND target_lang = ?`)

	var t models.Translation
	err := r.db.GetContext(ctx, &t, query, userID, sourceText, targetText, sourceLang, targetLang)
	if err != nil {
		return models.Translation{}, fmt.Errorf("failed to find translation: %w", notFound(err))
	}
	return t, nil
}

// SaveTranslation inserts a translation or updates its frequency and timestamp
func (r *TranslationRepository) SaveTranslation(ctx context.Context, t *models.Translation) error {
	query := r.db.Rebind(`
		INSERT INTO translations (` + translationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			frequency = excluded.frequency,
			last_translated = excluded.last_translated`)

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.SourceText,
		t.TargetText,
		t.SourceLang,
		t.TargetLang,
		t.Frequency,
		t.LastTranslated,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	return nil
}

// ListTranslations returns the user's translations, most recently translated first
func (r *TranslationRepository) ListTranslations(ctx context.Context, userID int64, limit int) ([]models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE user_id = ? ORDER BY last_translated DESC, id`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	translations := []models.Translation{}
	if err := r.db.SelectContext(ctx, &translations, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	return translations, nil
}
