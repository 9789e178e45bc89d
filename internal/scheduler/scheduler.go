package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/lumi/internal/learning"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

//go:generate mockgen -source=scheduler.go -destination=mock/scheduler_mock.go

// Default notification window
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier delivers due-review reminders
type Notifier interface {
	SendReminder(ctx context.Context, r learning.Reminder) error
}

// ReminderSource finds who has reviews waiting
type ReminderSource interface {
	Reminders(ctx context.Context, hour int) ([]learning.Reminder, error)
	ReminderFor(ctx context.Context, userID int64) (learning.Reminder, bool, error)
}

// Config controls when reminders go out
type Config struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Location  *time.Location
	// Timeout bounds one reminder run
	Timeout time.Duration
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    ReminderSource
	notifier  Notifier
	cfg       Config
	log       *zap.Logger
	clock     func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, source ReminderSource, notifier Notifier, log *zap.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.StartHour < 0 || cfg.StartHour > 23 || cfg.EndHour < 0 || cfg.EndHour > 23 {
		return nil, fmt.Errorf("notification hours must be between 0 and 23, got %d-%d", cfg.StartHour, cfg.EndHour)
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		source:    source,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		clock:     time.Now,
	}, nil
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info("reminders disabled")
		return nil
	}

	// Top of every hour
	_, err := s.scheduler.Cron("0 * * * *").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		s.CheckAndSendReminders(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.scheduler.StartAsync()
	s.log.Info("reminder scheduler started",
		zap.Int("start_hour", s.cfg.StartHour),
		zap.Int("end_hour", s.cfg.EndHour),
	)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour falls inside the notification window. A
// window whose end is before its start wraps past midnight.
func (s *Scheduler) InWindow(hour int) bool {
	if s.cfg.StartHour <= s.cfg.EndHour {
		return hour >= s.cfg.StartHour && hour <= s.cfg.EndHour
	}
	return hour >= s.cfg.StartHour || hour <= s.cfg.EndHour
}

// CheckAndSendReminders sends reminders to users whose notification hour is
// the current hour. It returns how many reminders were delivered.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) int {
	currentHour := s.clock().In(s.cfg.Location).Hour()

	if !s.InWindow(currentHour) {
		s.log.Debug("outside notification hours, skipping reminders",
			zap.Int("hour", currentHour),
			zap.Int("start_hour", s.cfg.StartHour),
			zap.Int("end_hour", s.cfg.EndHour),
		)
		return 0
	}

	reminders, err := s.source.Reminders(ctx, currentHour)
	if err != nil {
		s.log.Error("failed to collect reminders", zap.Int("hour", currentHour), zap.Error(err))
		return 0
	}

	sent := 0
	for _, r := range reminders {
		if err := s.notifier.SendReminder(ctx, r); err != nil {
			s.log.Error("failed to send reminder", zap.Int64("user_id", r.User.ID), zap.Error(err))
			continue
		}
		sent++
	}

	s.log.Info("reminders sent", zap.Int("hour", currentHour), zap.Int("sent", sent), zap.Int("candidates", len(reminders)))
	return sent
}

// RunManualCheck forces a check for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) error {
	r, ok, err := s.source.ReminderFor(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.notifier.SendReminder(ctx, r)
}
