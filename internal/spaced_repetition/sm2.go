package spaced_repetition

import (
	"fmt"
	"math"
	"time"

	"github.com/example/lumi/pkg/models"
)

// Rounding selects how fractional intervals become whole days
type Rounding string

const (
	// RoundNearest rounds half away from zero, so 2.5 days becomes 3
	RoundNearest Rounding = "round"
	RoundFloor   Rounding = "floor"
	RoundCeil    Rounding = "ceil"
)

const day = 24 * time.Hour

// minStrengthFloor is the lowest floor a configuration may choose
const minStrengthFloor = 1.3

// Config holds the tunables of the review rule.
// Zero values are replaced by the values of DefaultConfig.
type Config struct {
	// Recall strength given to new items
	DefaultRecallStrength float64
	// Floor for recall strength, re-applied on every hard rating. Never below 1.3
	MinRecallStrength float64
	// Strength lost on a hard rating
	HardPenalty float64
	// Strength gained on an easy rating
	EasyBonus float64
	// Interval growth on a medium rating
	MediumMultiplier float64
	// Upper bound for intervals, keeps far-future dates representable
	MaxIntervalDays int
	// Streak from which an item is labelled mastered
	MasteryStreak int
	Rounding      Rounding
}

// DefaultConfig returns the standard review rule
func DefaultConfig() Config {
	return Config{
		DefaultRecallStrength: 2.5,
		MinRecallStrength:     1.3,
		HardPenalty:           0.2,
		EasyBonus:             0.1,
		MediumMultiplier:      1.2,
		MaxIntervalDays:       36500,
		MasteryStreak:         5,
		Rounding:              RoundNearest,
	}
}

// Scheduler applies ratings to reviewable items. It holds no state besides
// its configuration and is safe for concurrent use.
type Scheduler struct {
	cfg Config
}

// New creates a Scheduler, filling zero-valued fields from DefaultConfig
func New(cfg Config) (*Scheduler, error) {
	def := DefaultConfig()
	if cfg.DefaultRecallStrength == 0 {
		cfg.DefaultRecallStrength = def.DefaultRecallStrength
	}
	if cfg.MinRecallStrength == 0 {
		cfg.MinRecallStrength = def.MinRecallStrength
	}
	if cfg.HardPenalty == 0 {
		cfg.HardPenalty = def.HardPenalty
	}
	if cfg.EasyBonus == 0 {
		cfg.EasyBonus = def.EasyBonus
	}
	if cfg.MediumMultiplier == 0 {
		cfg.MediumMultiplier = def.MediumMultiplier
	}
	if cfg.MaxIntervalDays == 0 {
		cfg.MaxIntervalDays = def.MaxIntervalDays
	}
	if cfg.MasteryStreak == 0 {
		cfg.MasteryStreak = def.MasteryStreak
	}
	if cfg.Rounding == "" {
		cfg.Rounding = def.Rounding
	}

	switch {
	case cfg.MinRecallStrength < minStrengthFloor:
		return nil, fmt.Errorf("%w: minimum recall strength %.2f must be at least %.1f", ErrInvalidConfig, cfg.MinRecallStrength, minStrengthFloor)
	case cfg.DefaultRecallStrength < cfg.MinRecallStrength:
		return nil, fmt.Errorf("%w: default recall strength %.2f below minimum %.2f", ErrInvalidConfig, cfg.DefaultRecallStrength, cfg.MinRecallStrength)
	case cfg.HardPenalty < 0 || cfg.EasyBonus < 0:
		return nil, fmt.Errorf("%w: strength adjustments must not be negative", ErrInvalidConfig)
	case cfg.MediumMultiplier < 1:
		return nil, fmt.Errorf("%w: medium multiplier %.2f must be at least 1", ErrInvalidConfig, cfg.MediumMultiplier)
	case cfg.MaxIntervalDays < 1:
		return nil, fmt.Errorf("%w: maximum interval %d must be positive", ErrInvalidConfig, cfg.MaxIntervalDays)
	case cfg.MasteryStreak < 1:
		return nil, fmt.Errorf("%w: mastery streak %d must be positive", ErrInvalidConfig, cfg.MasteryStreak)
	}
	switch cfg.Rounding {
	case RoundNearest, RoundFloor, RoundCeil:
	default:
		return nil, fmt.Errorf("%w: unknown rounding %q", ErrInvalidConfig, cfg.Rounding)
	}

	return &Scheduler{cfg: cfg}, nil
}

// Config returns the effective configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// NewItem fills the scheduling fields of a freshly created item. A new item
// is due right away; its one-day interval applies from the first rating.
func (s *Scheduler) NewItem(item models.ReviewableItem, now time.Time) models.ReviewableItem {
	item.RecallStrength = s.cfg.DefaultRecallStrength
	item.IntervalDays = 1
	item.Streak = 0
	item.CreatedAt = now
	item.LastReviewedAt = nil
	item.NextReviewAt = now
	return item
}

// Rate applies a rating to the item and returns its new state. The input is
// not modified. An invalid rating returns ErrInvalidRating and no item.
func (s *Scheduler) Rate(item models.ReviewableItem, rating Rating, now time.Time) (models.ReviewableItem, error) {
	if !rating.IsValid() {
		return models.ReviewableItem{}, fmt.Errorf("%w: %q", ErrInvalidRating, string(rating))
	}

	next, _ := s.Repair(item)

	switch rating {
	case Hard:
		next.Streak = 0
		next.IntervalDays = 1
		next.RecallStrength = s.clampStrength(roundStrength(next.RecallStrength - s.cfg.HardPenalty))
	case Medium:
		next.Streak++
		next.IntervalDays = s.scaleInterval(next.IntervalDays, s.cfg.MediumMultiplier)
	case Easy:
		next.Streak++
		// The interval grows by the strength held before this rating
		next.IntervalDays = s.scaleInterval(next.IntervalDays, next.RecallStrength)
		next.RecallStrength = roundStrength(next.RecallStrength + s.cfg.EasyBonus)
	}

	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.NextReviewAt = DueAt(reviewedAt, next.IntervalDays)

	return next, nil
}

// Repair brings corrupt persisted state back within the invariants. It
// reports whether anything had to change.
func (s *Scheduler) Repair(item models.ReviewableItem) (models.ReviewableItem, bool) {
	repaired := false

	if item.IntervalDays < 1 {
		item.IntervalDays = 1
		repaired = true
	}
	if item.IntervalDays > s.cfg.MaxIntervalDays {
		item.IntervalDays = s.cfg.MaxIntervalDays
		repaired = true
	}
	if math.IsNaN(item.RecallStrength) || math.IsInf(item.RecallStrength, 0) {
		item.RecallStrength = s.cfg.DefaultRecallStrength
		repaired = true
	}
	if item.RecallStrength < s.cfg.MinRecallStrength {
		item.RecallStrength = s.cfg.MinRecallStrength
		repaired = true
	}
	if item.Streak < 0 {
		item.Streak = 0
		repaired = true
	}

	return item, repaired
}

// IsMastered determines if an item is considered "mastered". The label is
// advisory and never keeps an item from coming due.
func (s *Scheduler) IsMastered(item models.ReviewableItem) bool {
	return item.Streak >= s.cfg.MasteryStreak
}

// DueAt returns the moment an item reviewed at base with the given interval is due
func DueAt(base time.Time, intervalDays int) time.Time {
	return base.Add(time.Duration(intervalDays) * day)
}

func (s *Scheduler) scaleInterval(interval int, factor float64) int {
	scaled := float64(interval) * factor

	var days float64
	switch s.cfg.Rounding {
	case RoundFloor:
		days = math.Floor(scaled)
	case RoundCeil:
		days = math.Ceil(scaled)
	default:
		days = math.Round(scaled)
	}

	if days < 1 {
		return 1
	}
	if days > float64(s.cfg.MaxIntervalDays) {
		return s.cfg.MaxIntervalDays
	}
	return int(days)
}

func (s *Scheduler) clampStrength(strength float64) float64 {
	if strength < s.cfg.MinRecallStrength {
		return s.cfg.MinRecallStrength
	}
	return strength
}

// strengthPrecision only absorbs float error from repeated additions
const strengthPrecision = 1e9

// roundStrength removes accumulated float noise and keeps every real digit
func roundStrength(strength float64) float64 {
	return math.Round(strength*strengthPrecision) / strengthPrecision
}
