package database

import (
	"context"
	"fmt"

	"github.com/example/lumi/pkg/models"
)

const userColumns = `id, username, first_name, last_name, source_lang, target_lang,
	notification_enabled, notification_hour, items_per_session, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db QueryI
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db QueryI) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser returns a user by Telegram ID
func (r *UserRepository) GetUser(ctx context.Context, id int64) (models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return models.User{}, fmt.Errorf("failed to get user %d: %w", id, notFound(err))
	}
	return user, nil
}

// SaveUser inserts a new user or updates the existing one. created_at is
// kept from the first insert.
func (r *UserRepository) SaveUser(ctx context.Context, u *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			source_lang = excluded.source_lang,
			target_lang = excluded.target_lang,
			notification_enabled = excluded.notification_enabled,
			notification_hour = excluded.notification_hour,
			items_per_session = excluded.items_per_session,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.Username,
		u.FirstName,
		u.LastName,
		u.SourceLang,
		u.TargetLang,
		u.NotificationEnabled,
		u.NotificationHour,
		u.ItemsPerSession,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ListUsersForNotification returns users that want reminders at hour
func (r *UserRepository) ListUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id`)

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
