package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lumi/internal/learning"
	mock_scheduler "github.com/example/lumi/internal/scheduler/mock"
	"github.com/example/lumi/pkg/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, cfg Config, at time.Time) (*Scheduler, *mock_scheduler.MockReminderSource, *mock_scheduler.MockNotifier) {
	t.Helper()

	ctrl := gomock.NewController(t)
	source := mock_scheduler.NewMockReminderSource(ctrl)
	notifier := mock_scheduler.NewMockNotifier(ctrl)

	s, err := New(cfg, source, notifier, zap.NewNop())
	require.NoError(t, err)
	s.clock = func() time.Time { return at }

	return s, source, notifier
}

func reminder(userID int64, due int) learning.Reminder {
	return learning.Reminder{
		User: models.User{ID: userID},
		Due:  make([]models.ReviewableItem, due),
	}
}

func TestCheckAndSendReminders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := Config{Enabled: true, StartHour: 8, EndHour: 22}
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	s, source, notifier := newTestScheduler(t, cfg, at)

	r1, r2 := reminder(1, 3), reminder(2, 1)
	source.EXPECT().Reminders(gomock.Any(), 9).Return([]learning.Reminder{r1, r2}, nil)
	notifier.EXPECT().SendReminder(gomock.Any(), r1).Return(errors.New("bot was blocked by the user"))
	notifier.EXPECT().SendReminder(gomock.Any(), r2).Return(nil)

	assert.Equal(t, 1, s.CheckAndSendReminders(ctx))
}

func TestCheckAndSendReminders_OutsideWindow(t *testing.T) {
	t.Parallel()

	cfg := Config{Enabled: true, StartHour: 8, EndHour: 22}
	at := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

	// No calls expected on the mocks
	s, _, _ := newTestScheduler(t, cfg, at)
	assert.Equal(t, 0, s.CheckAndSendReminders(context.Background()))
}

func TestCheckAndSendReminders_SourceError(t *testing.T) {
	t.Parallel()

	cfg := Config{Enabled: true, StartHour: 0, EndHour: 23}
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s, source, _ := newTestScheduler(t, cfg, at)
	source.EXPECT().Reminders(gomock.Any(), 12).Return(nil, errors.New("database is locked"))

	assert.Equal(t, 0, s.CheckAndSendReminders(context.Background()))
}

func TestCheckAndSendReminders_UsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	cfg := Config{Enabled: true, StartHour: 8, EndHour: 22, Location: loc}
	at := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

	s, source, _ := newTestScheduler(t, cfg, at)
	source.EXPECT().Reminders(gomock.Any(), 9).Return(nil, nil)

	assert.Equal(t, 0, s.CheckAndSendReminders(context.Background()))
}

func TestInWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{name: "inside", start: 8, end: 22, hour: 8, want: true},
		{name: "end inclusive", start: 8, end: 22, hour: 22, want: true},
		{name: "before", start: 8, end: 22, hour: 7},
		{name: "wrapping late", start: 20, end: 2, hour: 23, want: true},
		{name: "wrapping early", start: 20, end: 2, hour: 1, want: true},
		{name: "wrapping outside", start: 20, end: 2, hour: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, _, _ := newTestScheduler(t, Config{StartHour: tt.start, EndHour: tt.end}, time.Now())
			assert.Equal(t, tt.want, s.InWindow(tt.hour))
		})
	}
}

func TestRunManualCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, source, notifier := newTestScheduler(t, Config{StartHour: 8, EndHour: 22}, time.Now())

	r := reminder(5, 2)
	source.EXPECT().ReminderFor(gomock.Any(), int64(5)).Return(r, true, nil)
	notifier.EXPECT().SendReminder(gomock.Any(), r).Return(nil)
	require.NoError(t, s.RunManualCheck(ctx, 5))

	source.EXPECT().ReminderFor(gomock.Any(), int64(6)).Return(learning.Reminder{}, false, nil)
	require.NoError(t, s.RunManualCheck(ctx, 6))
}

func TestNew_InvalidHours(t *testing.T) {
	t.Parallel()

	_, err := New(Config{StartHour: 8, EndHour: 24}, nil, nil, zap.NewNop())
	require.Error(t, err)
}

func TestStart_Disabled(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestScheduler(t, Config{Enabled: false, StartHour: 8, EndHour: 22}, time.Now())
	require.NoError(t, s.Start())
	s.Stop()
}
