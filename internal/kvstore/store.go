package kvstore

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
)

// Store implements storage.Store as JSON documents in a KV. Read-modify-write
// sequences are serialized by an in-process mutex, so one Store must own the
// keyspace; several processes sharing a Redis keyspace should use the SQL
// backend instead.
type Store struct {
	mu sync.Mutex
	kv KV
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store over kv
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func itemKey(id string) string { return "item:" + id }
func userItemsKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) + ":items" }
func translationKey(id string) string { return "translation:" + id }
func userTranslationsKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) + ":translations" }
func progressKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) + ":progress" }
func quizResultsKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) + ":quiz_results" }
func userKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) }

const usersKey = "users"

func cardKey(userID int64, translationID string) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":card:" + translationID
}

// pairKey identifies an exact text and language pair for one user
func pairKey(userID int64, sourceText, targetText, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{sourceText, targetText, sourceLang, targetLang}, "\x00")))
	return "user:" + strconv.FormatInt(userID, 10) + ":pair:" + hex.EncodeToString(sum[:])
}

func (s *Store) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, string(raw))
}

// appendIndex adds id to the JSON list at key unless it is already there
func (s *Store) appendIndex(ctx context.Context, key, id string) error {
	var ids []string
	if _, err := s.getJSON(ctx, key, &ids); err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return s.setJSON(ctx, key, append(ids, id))
}

func (s *Store) index(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if _, err := s.getJSON(ctx, key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListItems returns all items of a user in creation order
func (s *Store) ListItems(ctx context.Context, userID int64) ([]models.ReviewableItem, error) {
	ids, err := s.index(ctx, userItemsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]models.ReviewableItem, 0, len(ids))
	for _, id := range ids {
		var item models.ReviewableItem
		ok, err := s.getJSON(ctx, itemKey(id), &item)
		if err != nil {
			return nil, fmt.Errorf("failed to list items: %w", err)
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetItem returns an item by ID
func (s *Store) GetItem(ctx context.Context, id string) (models.ReviewableItem, error) {
	var item models.ReviewableItem
	ok, err := s.getJSON(ctx, itemKey(id), &item)
	if err != nil {
		return models.ReviewableItem{}, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	if !ok {
		return models.ReviewableItem{}, fmt.Errorf("failed to get item %s: %w", id, storage.ErrNotFound)
	}
	return item, nil
}

// FindItemByTranslation returns the flashcard promoted from a translation
func (s *Store) FindItemByTranslation(ctx context.Context, userID int64, translationID string) (models.ReviewableItem, error) {
	id, ok, err := s.kv.Get(ctx, cardKey(userID, translationID))
	if err != nil {
		return models.ReviewableItem{}, fmt.Errorf("failed to find item for translation %s: %w", translationID, err)
	}
	if !ok {
		return models.ReviewableItem{}, fmt.Errorf("failed to find item for translation %s: %w", translationID, storage.ErrNotFound)
	}
	return s.GetItem(ctx, id)
}

// CreateItem stores a new item at version 1
func (s *Store) CreateItem(ctx context.Context, item *models.ReviewableItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists, err := s.kv.Get(ctx, itemKey(item.ID))
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	if exists {
		return fmt.Errorf("failed to create item %s: %w", item.ID, storage.ErrAlreadyExists)
	}

	stored := *item
	stored.Version = 1
	if err := s.setJSON(ctx, itemKey(item.ID), stored); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	if err := s.appendIndex(ctx, userItemsKey(item.UserID), item.ID); err != nil {
		return fmt.Errorf("failed to index item: %w", err)
	}
	if item.Kind == models.KindFlashcard && item.TranslationID != "" {
		if err := s.kv.Set(ctx, cardKey(item.UserID, item.TranslationID), item.ID); err != nil {
			return fmt.Errorf("failed to index flashcard: %w", err)
		}
	}

	item.Version = 1
	return nil
}

// UpdateItem writes item if the stored version still equals expectedVersion
func (s *Store) UpdateItem(ctx context.Context, item *models.ReviewableItem, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current models.ReviewableItem
	ok, err := s.getJSON(ctx, itemKey(item.ID), &current)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to update item %s: %w", item.ID, storage.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("failed to update item %s at version %d: %w", item.ID, expectedVersion, storage.ErrConflict)
	}

	stored := *item
	stored.Version = expectedVersion + 1
	if err := s.setJSON(ctx, itemKey(item.ID), stored); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	item.Version = stored.Version
	return nil
}

// FindTranslation looks up the record for an exact text and language pair
func (s *Store) FindTranslation(ctx context.Context, userID int64, sourceText, targetText, sourceLang, targetLang string) (models.Translation, error) {
	id, ok, err := s.kv.Get(ctx, pairKey(userID, sourceText, targetText, sourceLang, targetLang))
	if err != nil {
		return models.Translation{}, fmt.Errorf("failed to find translation: %w", err)
	}
	if !ok {
		return models.Translation{}, fmt.Errorf("failed to find translation: %w", storage.ErrNotFound)
	}

	var t models.Translation
	found, err := s.getJSON(ctx, translationKey(id), &t)
	if err != nil {
		return models.Translation{}, fmt.Errorf("failed to find translation: %w", err)
	}
	if !found {
		return models.Translation{}, fmt.Errorf("failed to find translation %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

// SaveTranslation inserts or replaces a translation
func (s *Store) SaveTranslation(ctx context.Context, t *models.Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setJSON(ctx, translationKey(t.ID), t); err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	if err := s.kv.Set(ctx, pairKey(t.UserID, t.SourceText, t.TargetText, t.SourceLang, t.TargetLang), t.ID); err != nil {
		return fmt.Errorf("failed to index translation: %w", err)
	}
	if err := s.appendIndex(ctx, userTranslationsKey(t.UserID), t.ID); err != nil {
		return fmt.Errorf("failed to index translation: %w", err)
	}
	return nil
}

// ListTranslations returns the user's translations, most recently translated first
func (s *Store) ListTranslations(ctx context.Context, userID int64, limit int) ([]models.Translation, error) {
	ids, err := s.index(ctx, userTranslationsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}

	translations := make([]models.Translation, 0, len(ids))
	for _, id := range ids {
		var t models.Translation
		ok, err := s.getJSON(ctx, translationKey(id), &t)
		if err != nil {
			return nil, fmt.Errorf("failed to list translations: %w", err)
		}
		if ok {
			translations = append(translations, t)
		}
	}

	slices.SortFunc(translations, func(a, b models.Translation) int {
		if c := b.LastTranslated.Compare(a.LastTranslated); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(translations) > limit {
		translations = translations[:limit]
	}
	return translations, nil
}

// GetProgress returns the progress record of a user
func (s *Store) GetProgress(ctx context.Context, userID int64) (models.UserProgress, error) {
	var p models.UserProgress
	ok, err := s.getJSON(ctx, progressKey(userID), &p)
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to get progress: %w", err)
	}
	if !ok {
		return models.UserProgress{}, fmt.Errorf("failed to get progress for user %d: %w", userID, storage.ErrNotFound)
	}
	return p, nil
}

// SaveProgress replaces the progress record of a user
func (s *Store) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	if err := s.setJSON(ctx, progressKey(p.UserID), p); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// SaveQuizResult appends a quiz result and assigns its ID
func (s *Store) SaveQuizResult(ctx context.Context, r *models.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []models.QuizResult
	if _, err := s.getJSON(ctx, quizResultsKey(r.UserID), &results); err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}

	r.ID = int64(len(results) + 1)
	if err := s.setJSON(ctx, quizResultsKey(r.UserID), append(results, *r)); err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	return nil
}

// ListQuizResults returns the user's quiz results, newest first
func (s *Store) ListQuizResults(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error) {
	var results []models.QuizResult
	if _, err := s.getJSON(ctx, quizResultsKey(userID), &results); err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}

	slices.SortFunc(results, func(a, b models.QuizResult) int {
		if c := b.TakenAt.Compare(a.TakenAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.QuizResult{}
	}
	return results, nil
}

// GetUser returns a user by Telegram ID
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	ok, err := s.getJSON(ctx, userKey(id), &u)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !ok {
		return models.User{}, fmt.Errorf("failed to get user %d: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

// SaveUser inserts or replaces a user, keeping the first CreatedAt
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.User
	found, err := s.getJSON(ctx, userKey(u.ID), &existing)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	stored := *u
	if found {
		stored.CreatedAt = existing.CreatedAt
	}
	if err := s.setJSON(ctx, userKey(u.ID), stored); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if err := s.appendIndex(ctx, usersKey, strconv.FormatInt(u.ID, 10)); err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	return nil
}

// ListUsersForNotification returns users that want reminders at hour
func (s *Store) ListUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	ids, err := s.index(ctx, usersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}

	users := []models.User{}
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt user index entry %q: %w", raw, err)
		}
		u, err := s.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if u.NotificationEnabled && u.NotificationHour == hour {
			users = append(users, u)
		}
	}

	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

// Close closes the underlying KV when it holds a connection
func (s *Store) Close() error {
	if c, ok := s.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
