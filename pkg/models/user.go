package models

import "time"

// User represents a Telegram user of the bot
type User struct {
	ID                  int64     `json:"id" db:"id"` // Telegram user ID, also the private chat ID
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	LastName            string    `json:"last_name" db:"last_name"`
	SourceLang          string    `json:"source_lang" db:"source_lang"`
	TargetLang          string    `json:"target_lang" db:"target_lang"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // Hour of day for notifications (0-23)
	ItemsPerSession     int       `json:"items_per_session" db:"items_per_session"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
