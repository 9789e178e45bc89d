package database

import (
	"context"
	"fmt"

	"github.com/example/lumi/pkg/models"
)

const progressColumns = `user_id, total_translations, unique_words, reviews_done, streak_days,
	longest_streak, last_active, xp, level, badges, daily_activity, updated_at`

// UserProgressRepository handles database operations for learner progress
type UserProgressRepository struct {
	db QueryI
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(db QueryI) *UserProgressRepository {
	return &UserProgressRepository{db: db}
}

// GetProgress returns the progress record of a user
func (r *UserProgressRepository) GetProgress(ctx context.Context, userID int64) (models.UserProgress, error) {
	query := r.db.Rebind(`SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ?`)

	var p models.UserProgress
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to get progress for user %d: %w", userID, notFound(err))
	}
	return p, nil
}

// SaveProgress inserts or replaces the progress record of a user
func (r *UserProgressRepository) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	query := r.db.Rebind(`
		INSERT INTO user_progress (` + progressColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_translations = excluded.total_translations,
			unique_words = excluded.unique_words,
			reviews_done = excluded.reviews_done,
			streak_days = excluded.streak_days,
			longest_streak = excluded.longest_streak,
			last_active = excluded.last_active,
			xp = excluded.xp,
			level = excluded.level,
			badges = excluded.badges,
			daily_activity = excluded.daily_activity,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		p.UserID,
		p.TotalTranslations,
		p.UniqueWords,
		p.ReviewsDone,
		p.StreakDays,
		p.LongestStreak,
		p.LastActive,
		p.XP,
		p.Level,
		p.Badges,
		p.DailyActivity,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
