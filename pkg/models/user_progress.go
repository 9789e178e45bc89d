package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Level is the learner level derived from XP
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// UserProgress tracks a user's overall learning activity: streaks, XP and badges
type UserProgress struct {
	UserID            int64       `json:"user_id" db:"user_id"`
	TotalTranslations int         `json:"total_translations" db:"total_translations"`
	UniqueWords       int         `json:"unique_words" db:"unique_words"`
	ReviewsDone       int         `json:"reviews_done" db:"reviews_done"`
	StreakDays        int         `json:"streak_days" db:"streak_days"`
	LongestStreak     int         `json:"longest_streak" db:"longest_streak"`
	LastActive        *time.Time  `json:"last_active,omitempty" db:"last_active"`
	XP                int         `json:"xp" db:"xp"`
	Level             Level       `json:"level" db:"level"`
	Badges            StringList  `json:"badges" db:"badges"`
	DailyActivity     DailyCounts `json:"daily_activity" db:"daily_activity"` // YYYY-MM-DD -> activities
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// HasBadge reports whether the badge was already awarded
func (p UserProgress) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// StringList is stored as a JSON array in SQL columns
type StringList []string

// Value implements driver.Valuer
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (s *StringList) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// DailyCounts is stored as a JSON object in SQL columns
type DailyCounts map[string]int

// Value implements driver.Valuer
func (d DailyCounts) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *DailyCounts) Scan(src interface{}) error {
	return scanJSON(src, d)
}

func scanJSON(src interface{}, dest interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSON column", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
