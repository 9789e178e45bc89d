// Package learning implements the learner-facing operations on top of the
// review scheduler and a storage backend.
package learning

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/lumi/internal/quiz"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyText    = errors.New("learning: text is empty")
	ErrInvalidHour  = errors.New("learning: notification hour must be between 0 and 23")
	ErrTooManyRetry = errors.New("learning: item kept changing while rating")
)

// Config tunes the service
type Config struct {
	// Translation frequency at which a flashcard is created
	PromotionThreshold int
	// Attempts at a rating when concurrent writers keep winning
	MaxRetries int
	// Defaults for new users
	DefaultSourceLang  string
	DefaultTargetLang  string
	DefaultHour        int
	DefaultSessionSize int
	QuizQuestions      int
}

// DefaultConfig returns the standard service settings
func DefaultConfig() Config {
	return Config{
		PromotionThreshold: 2,
		MaxRetries:         3,
		DefaultSourceLang:  "en",
		DefaultTargetLang:  "es",
		DefaultHour:        9,
		DefaultSessionSize: 10,
		QuizQuestions:      quiz.DefaultQuestionCount,
	}
}

// Service is the learning-mode facade used by the presentation layer
type Service struct {
	store     storage.Store
	scheduler *sr.Scheduler
	quizzes   *quiz.Generator
	rng       quiz.Rand
	log       *zap.Logger
	cfg       Config
	clock     func() time.Time
	locks     *keyedMutex
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now, for tests
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRand replaces the random source used for picks and quizzes
func WithRand(rng quiz.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// NewService creates the service. Zero-valued config fields take their defaults.
func NewService(store storage.Store, scheduler *sr.Scheduler, cfg Config, log *zap.Logger, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.PromotionThreshold <= 0 {
		cfg.PromotionThreshold = def.PromotionThreshold
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.DefaultSourceLang == "" {
		cfg.DefaultSourceLang = def.DefaultSourceLang
	}
	if cfg.DefaultTargetLang == "" {
		cfg.DefaultTargetLang = def.DefaultTargetLang
	}
	if cfg.DefaultSessionSize <= 0 {
		cfg.DefaultSessionSize = def.DefaultSessionSize
	}
	if cfg.QuizQuestions <= 0 {
		cfg.QuizQuestions = def.QuizQuestions
	}

	s := &Service{
		store:     store,
		scheduler: scheduler,
		log:       log,
		cfg:       cfg,
		clock:     func() time.Time { return time.Now().UTC() },
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(time.Now().UnixNano())
	}
	s.quizzes = quiz.NewGenerator(s.rng, cfg.QuizQuestions)

	return s
}

func (s *Service) now() time.Time {
	return s.clock()
}

// RegisterUser creates the user on first contact and refreshes their names afterwards
func (s *Service) RegisterUser(ctx context.Context, u models.User) (models.User, error) {
	now := s.now()

	existing, err := s.store.GetUser(ctx, u.ID)
	switch {
	case err == nil:
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		existing.UpdatedAt = now
		u = existing
	case errors.Is(err, storage.ErrNotFound):
		if u.SourceLang == "" {
			u.SourceLang = s.cfg.DefaultSourceLang
		}
		if u.TargetLang == "" {
			u.TargetLang = s.cfg.DefaultTargetLang
		}
		if u.ItemsPerSession <= 0 {
			u.ItemsPerSession = s.cfg.DefaultSessionSize
		}
		u.NotificationEnabled = true
		u.NotificationHour = s.cfg.DefaultHour
		u.CreatedAt = now
		u.UpdatedAt = now
	default:
		return models.User{}, err
	}

	if err := s.store.SaveUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// User returns a registered user
func (s *Service) User(ctx context.Context, userID int64) (models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// SetNotifications turns due-review reminders on or off
func (s *Service) SetNotifications(ctx context.Context, userID int64, enabled bool) (models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.NotificationEnabled = enabled
		return nil
	})
}

// SetNotificationHour sets the hour of day (0-23) reminders are sent at
func (s *Service) SetNotificationHour(ctx context.Context, userID int64, hour int) (models.User, error) {
	if hour < 0 || hour > 23 {
		return models.User{}, ErrInvalidHour
	}
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.NotificationHour = hour
		return nil
	})
}

// SetLanguages sets the default pair for translating plain messages
func (s *Service) SetLanguages(ctx context.Context, userID int64, sourceLang, targetLang string) (models.User, error) {
	sourceLang = strings.ToLower(strings.TrimSpace(sourceLang))
	targetLang = strings.ToLower(strings.TrimSpace(targetLang))
	if sourceLang == "" || targetLang == "" {
		return models.User{}, ErrEmptyText
	}
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.SourceLang = sourceLang
		u.TargetLang = targetLang
		return nil
	})
}

func (s *Service) updateUser(ctx context.Context, userID int64, apply func(*models.User) error) (models.User, error) {
	unlock := s.locks.Lock("user:" + strconv.FormatInt(userID, 10))
	defer unlock()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if err := apply(&u); err != nil {
		return models.User{}, err
	}
	u.UpdatedAt = s.now()

	if err := s.store.SaveUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// RecordResult describes what recording a translation changed
type RecordResult struct {
	Translation models.Translation
	// Flashcard is set when this recording promoted the translation
	Flashcard *models.ReviewableItem
}

// RecordTranslation counts a produced translation and promotes it to a
// flashcard once it has been seen often enough. Promotion happens once.
func (s *Service) RecordTranslation(ctx context.Context, userID int64, sourceText, targetText, sourceLang, targetLang string) (RecordResult, error) {
	sourceText = strings.TrimSpace(sourceText)
	targetText = strings.TrimSpace(targetText)
	if sourceText == "" || targetText == "" {
		return RecordResult{}, ErrEmptyText
	}

	unlock := s.locks.Lock("translations:" + strconv.FormatInt(userID, 10))
	defer unlock()

	now := s.now()

	t, err := s.store.FindTranslation(ctx, userID, sourceText, targetText, sourceLang, targetLang)
	isNew := errors.Is(err, storage.ErrNotFound)
	switch {
	case isNew:
		t = models.Translation{
			ID:             uuid.NewString(),
			UserID:         userID,
			SourceText:     sourceText,
			TargetText:     targetText,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Frequency:      1,
			LastTranslated: now,
			CreatedAt:      now,
		}
	case err != nil:
		return RecordResult{}, err
	default:
		t.Frequency++
		t.LastTranslated = now
	}

	if err := s.store.SaveTranslation(ctx, &t); err != nil {
		return RecordResult{}, err
	}

	result := RecordResult{Translation: t}

	if t.Frequency >= s.cfg.PromotionThreshold {
		card, created, err := s.promote(ctx, t, now)
		if err != nil {
			return RecordResult{}, err
		}
		if created {
			result.Flashcard = &card
			s.log.Info("translation promoted to flashcard",
				zap.Int64("user_id", userID),
				zap.String("translation_id", t.ID),
				zap.String("item_id", card.ID),
			)
		}
	}

	_, err = s.updateProgress(ctx, userID, func(p *models.UserProgress) {
		p.TotalTranslations++
		if isNew {
			p.UniqueWords++
		}
	})
	if err != nil {
		return RecordResult{}, err
	}

	return result, nil
}

func (s *Service) promote(ctx context.Context, t models.Translation, now time.Time) (models.ReviewableItem, bool, error) {
	_, err := s.store.FindItemByTranslation(ctx, t.UserID, t.ID)
	if err == nil {
		return models.ReviewableItem{}, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.ReviewableItem{}, false, err
	}

	card := s.scheduler.NewItem(models.ReviewableItem{
		ID:            uuid.NewString(),
		UserID:        t.UserID,
		Kind:          models.KindFlashcard,
		TranslationID: t.ID,
		SourceText:    t.SourceText,
		TargetText:    t.TargetText,
	}, now)

	if err := s.store.CreateItem(ctx, &card); err != nil {
		return models.ReviewableItem{}, false, err
	}
	return card, true, nil
}

// AddVocabulary adds a word to the vocabulary trainer
func (s *Service) AddVocabulary(ctx context.Context, userID int64, word, translation, category string) (models.ReviewableItem, error) {
	word = strings.TrimSpace(word)
	translation = strings.TrimSpace(translation)
	if word == "" || translation == "" {
		return models.ReviewableItem{}, ErrEmptyText
	}

	item := s.scheduler.NewItem(models.ReviewableItem{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       models.KindVocabulary,
		SourceText: word,
		TargetText: translation,
		Category:   strings.TrimSpace(category),
	}, s.now())

	if err := s.store.CreateItem(ctx, &item); err != nil {
		return models.ReviewableItem{}, err
	}
	return item, nil
}

// DueItems returns up to limit due items, most overdue first
func (s *Service) DueItems(ctx context.Context, userID int64, limit int) ([]models.ReviewableItem, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	return slices.Collect(sr.SelectDue(items, s.now(), limit)), nil
}

// NextDue picks one due item at random. ok is false when nothing is due.
func (s *Service) NextDue(ctx context.Context, userID int64) (item models.ReviewableItem, ok bool, err error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return models.ReviewableItem{}, false, err
	}
	item, ok = sr.SelectRandomDue(items, s.now(), s.rng)
	return item, ok, nil
}

// ReviewResult is the outcome of rating an item
type ReviewResult struct {
	Item        models.ReviewableItem
	NewlyMaster bool
	XPGained    int
	Progress    models.UserProgress
}

// Review applies a rating to one of the user's items and persists it with
// compare-and-swap, retrying when another writer got there first.
func (s *Service) Review(ctx context.Context, userID int64, itemID string, rating sr.Rating) (ReviewResult, error) {
	if !rating.IsValid() {
		return ReviewResult{}, fmt.Errorf("%w: %q", sr.ErrInvalidRating, string(rating))
	}

	unlock := s.locks.Lock("item:" + itemID)
	defer unlock()

	var (
		next        models.ReviewableItem
		wasMastered bool
	)
	for attempt := 1; ; attempt++ {
		current, err := s.store.GetItem(ctx, itemID)
		if err != nil {
			return ReviewResult{}, err
		}
		if current.UserID != userID {
			return ReviewResult{}, fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
		}

		if repaired, changed := s.scheduler.Repair(current); changed {
			s.log.Warn("repaired corrupt item state before rating",
				zap.String("item_id", itemID),
				zap.Int("interval_days", current.IntervalDays),
				zap.Float64("recall_strength", current.RecallStrength),
				zap.Int("repaired_interval_days", repaired.IntervalDays),
				zap.Float64("repaired_recall_strength", repaired.RecallStrength),
			)
		}

		wasMastered = s.scheduler.IsMastered(current)
		next, err = s.scheduler.Rate(current, rating, s.now())
		if err != nil {
			return ReviewResult{}, err
		}

		err = s.store.UpdateItem(ctx, &next, current.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrConflict) {
			return ReviewResult{}, err
		}
		if attempt >= s.cfg.MaxRetries {
			return ReviewResult{}, fmt.Errorf("%w: %s", ErrTooManyRetry, itemID)
		}
		s.log.Debug("item changed while rating, retrying", zap.String("item_id", itemID), zap.Int("attempt", attempt))
	}

	result := ReviewResult{
		Item:        next,
		NewlyMaster: !wasMastered && s.scheduler.IsMastered(next),
		XPGained:    xpPerReview,
	}
	if result.NewlyMaster {
		result.XPGained += xpMasteryBonus
	}

	progress, err := s.updateProgress(ctx, userID, func(p *models.UserProgress) {
		p.ReviewsDone++
		p.XP += result.XPGained
	})
	if err != nil {
		return ReviewResult{}, err
	}
	result.Progress = progress

	return result, nil
}

// Stats summarizes the user's items
func (s *Service) Stats(ctx context.Context, userID int64) (models.ReviewStats, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return models.ReviewStats{}, err
	}
	return s.scheduler.Stats(items, s.now()), nil
}

// History returns the user's translations, most recent first
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.Translation, error) {
	return s.store.ListTranslations(ctx, userID, limit)
}
