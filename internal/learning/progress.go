package learning

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
)

const (
	xpPerReview       = 10
	xpMasteryBonus    = 20
	xpPerQuizAnswer   = 5
	intermediateXP    = 500
	advancedXP        = 1000
	activityDayFormat = "2006-01-02"
)

// Streak badges, awarded once
const (
	BadgeWeekStreak  = "streak-7"
	BadgeMonthStreak = "streak-30"
)

var streakBadges = []struct {
	days  int
	badge string
}{
	{7, BadgeWeekStreak},
	{30, BadgeMonthStreak},
}

// LevelFor maps XP to a learner level
func LevelFor(xp int) models.Level {
	switch {
	case xp >= advancedXP:
		return models.LevelAdvanced
	case xp >= intermediateXP:
		return models.LevelIntermediate
	default:
		return models.LevelBeginner
	}
}

func newProgress(userID int64) models.UserProgress {
	return models.UserProgress{
		UserID:        userID,
		Level:         models.LevelBeginner,
		Badges:        models.StringList{},
		DailyActivity: models.DailyCounts{},
	}
}

// Progress returns the user's progress, zeroed when they have no activity yet
func (s *Service) Progress(ctx context.Context, userID int64) (models.UserProgress, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return newProgress(userID), nil
	}
	return p, err
}

// updateProgress counts one activity for today, applies fn and saves
func (s *Service) updateProgress(ctx context.Context, userID int64, fn func(*models.UserProgress)) (models.UserProgress, error) {
	unlock := s.locks.Lock("progress:" + strconv.FormatInt(userID, 10))
	defer unlock()

	p, err := s.Progress(ctx, userID)
	if err != nil {
		return models.UserProgress{}, err
	}

	now := s.now()
	recordActivity(&p, now)
	fn(&p)
	p.Level = LevelFor(p.XP)
	awardBadges(&p)
	p.UpdatedAt = now

	if err := s.store.SaveProgress(ctx, &p); err != nil {
		return models.UserProgress{}, err
	}
	return p, nil
}

// recordActivity advances the daily streak: activity on the next calendar
// day extends it, a longer gap restarts it at 1.
func recordActivity(p *models.UserProgress, now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)

	switch {
	case p.LastActive == nil || p.StreakDays == 0:
		p.StreakDays = 1
	default:
		last := p.LastActive.UTC().Truncate(24 * time.Hour)
		switch gap := int(today.Sub(last).Hours() / 24); {
		case gap == 1:
			p.StreakDays++
		case gap > 1:
			p.StreakDays = 1
		}
	}
	if p.StreakDays > p.LongestStreak {
		p.LongestStreak = p.StreakDays
	}

	at := now.UTC()
	p.LastActive = &at

	if p.DailyActivity == nil {
		p.DailyActivity = models.DailyCounts{}
	}
	p.DailyActivity[today.Format(activityDayFormat)]++
}

func awardBadges(p *models.UserProgress) {
	for _, b := range streakBadges {
		if p.StreakDays >= b.days && !p.HasBadge(b.badge) {
			p.Badges = append(p.Badges, b.badge)
		}
	}
}
