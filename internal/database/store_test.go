package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Connect(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)

	store := NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func newItem(id string, userID int64, next time.Time) models.ReviewableItem {
	return models.ReviewableItem{
		ID:             id,
		UserID:         userID,
		Kind:           models.KindVocabulary,
		SourceText:     "apple",
		TargetText:     "manzana",
		Category:       "food",
		RecallStrength: 2.5,
		IntervalDays:   1,
		NextReviewAt:   next,
		CreatedAt:      next.Add(-24 * time.Hour),
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, Migrate(context.Background(), store.db))
}

func TestStore_Items(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	first := newItem("item-1", 1, testNow)
	second := newItem("item-2", 1, testNow.Add(time.Hour))
	second.CreatedAt = testNow
	other := newItem("item-3", 2, testNow)

	for _, item := range []*models.ReviewableItem{&first, &second, &other} {
		require.NoError(t, store.CreateItem(ctx, item))
		assert.Equal(t, int64(1), item.Version)
	}

	items, err := store.ListItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "item-1", items[0].ID)
	assert.Equal(t, "item-2", items[1].ID)
	assert.True(t, items[0].NextReviewAt.Equal(testNow))
	assert.Nil(t, items[0].LastReviewedAt)
	assert.Equal(t, models.KindVocabulary, items[0].Kind)
	assert.Equal(t, "food", items[0].Category)

	empty, err := store.ListItems(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := store.GetItem(ctx, "item-3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)

	_, err = store.GetItem(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpdateItem_CompareAndSwap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	item := newItem("cas", 1, testNow)
	require.NoError(t, store.CreateItem(ctx, &item))

	reviewed := testNow.Add(time.Minute)
	update := item
	update.IntervalDays = 3
	update.RecallStrength = 2.6
	update.Streak = 1
	update.LastReviewedAt = &reviewed
	update.NextReviewAt = reviewed.Add(72 * time.Hour)

	require.NoError(t, store.UpdateItem(ctx, &update, item.Version))
	assert.Equal(t, int64(2), update.Version)

	got, err := store.GetItem(ctx, "cas")
	require.NoError(t, err)
	assert.Equal(t, 3, got.IntervalDays)
	assert.InDelta(t, 2.6, got.RecallStrength, 1e-9)
	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, int64(2), got.Version)
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(reviewed))

	// a writer holding the old version loses
	stale := item
	stale.IntervalDays = 9
	err = store.UpdateItem(ctx, &stale, item.Version)
	require.ErrorIs(t, err, storage.ErrConflict)

	got, err = store.GetItem(ctx, "cas")
	require.NoError(t, err)
	assert.Equal(t, 3, got.IntervalDays)

	missing := newItem("missing", 1, testNow)
	err = store.UpdateItem(ctx, &missing, 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_FindItemByTranslation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	card := newItem("card", 1, testNow)
	card.Kind = models.KindFlashcard
	card.TranslationID = "tr-1"
	require.NoError(t, store.CreateItem(ctx, &card))

	got, err := store.FindItemByTranslation(ctx, 1, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, "card", got.ID)

	_, err = store.FindItemByTranslation(ctx, 2, "tr-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Translations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		tr := models.Translation{
			ID:             fmt.Sprintf("tr-%d", i),
			UserID:         1,
			SourceText:     fmt.Sprintf("word %d", i),
			TargetText:     fmt.Sprintf("palabra %d", i),
			SourceLang:     "en",
			TargetLang:     "es",
			Frequency:      1,
			LastTranslated: testNow.Add(time.Duration(i) * time.Minute),
			CreatedAt:      testNow,
		}
		require.NoError(t, store.SaveTranslation(ctx, &tr))
	}

	found, err := store.FindTranslation(ctx, 1, "word 0", "palabra 0", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Frequency)

	_, err = store.FindTranslation(ctx, 1, "word 0", "palabra 0", "en", "fr")
	require.ErrorIs(t, err, storage.ErrNotFound)

	found.Frequency = 2
	found.LastTranslated = testNow.Add(time.Hour)
	require.NoError(t, store.SaveTranslation(ctx, &found))

	all, err := store.ListTranslations(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "tr-0", all[0].ID)
	assert.Equal(t, 2, all[0].Frequency)
	assert.Equal(t, "tr-2", all[1].ID)

	limited, err := store.ListTranslations(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_Users(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	users := []models.User{
		{ID: 10, Username: "ana", NotificationEnabled: true, NotificationHour: 9, ItemsPerSession: 5, SourceLang: "en", TargetLang: "es"},
		{ID: 11, Username: "bo", NotificationEnabled: false, NotificationHour: 9, ItemsPerSession: 5, SourceLang: "en", TargetLang: "de"},
		{ID: 12, Username: "cy", NotificationEnabled: true, NotificationHour: 18, ItemsPerSession: 5, SourceLang: "en", TargetLang: "fr"},
	}
	for i := range users {
		users[i].CreatedAt = testNow
		users[i].UpdatedAt = testNow
		require.NoError(t, store.SaveUser(ctx, &users[i]))
	}

	got, err := store.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)
	assert.True(t, got.NotificationEnabled)

	_, err = store.GetUser(ctx, 404)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got.NotificationHour = 18
	got.UpdatedAt = testNow.Add(time.Hour)
	require.NoError(t, store.SaveUser(ctx, &got))

	due, err := store.ListUsersForNotification(ctx, 18)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, int64(10), due[0].ID)
	assert.Equal(t, int64(12), due[1].ID)

	none, err := store.ListUsersForNotification(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Progress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetProgress(ctx, 1)
	require.ErrorIs(t, err, storage.ErrNotFound)

	active := testNow
	p := models.UserProgress{
		UserID:        1,
		ReviewsDone:   4,
		StreakDays:    7,
		LongestStreak: 7,
		LastActive:    &active,
		XP:            520,
		Level:         models.LevelIntermediate,
		Badges:        models.StringList{"streak-7"},
		DailyActivity: models.DailyCounts{"2024-06-01": 4},
		UpdatedAt:     testNow,
	}
	require.NoError(t, store.SaveProgress(ctx, &p))

	p.XP = 530
	require.NoError(t, store.SaveProgress(ctx, &p))

	got, err := store.GetProgress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 530, got.XP)
	assert.Equal(t, models.LevelIntermediate, got.Level)
	assert.Equal(t, models.StringList{"streak-7"}, got.Badges)
	assert.Equal(t, models.DailyCounts{"2024-06-01": 4}, got.DailyActivity)
	require.NotNil(t, got.LastActive)
	assert.True(t, got.LastActive.Equal(active))
}

func TestStore_QuizResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		r := models.QuizResult{
			UserID:         1,
			QuizKind:       models.QuizFromTranslations,
			TotalQuestions: 10,
			CorrectAnswers: 5 + i,
			TakenAt:        testNow.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.SaveQuizResult(ctx, &r))
		assert.Equal(t, int64(i+1), r.ID)
	}

	results, err := store.ListQuizResults(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 7, results[0].CorrectAnswers)
	assert.Equal(t, 6, results[1].CorrectAnswers)
	assert.Equal(t, models.QuizFromTranslations, results[0].QuizKind)
}
