package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/database"
	"github.com/edgard/deadlinebot/internal/logger"
	"github.com/edgard/deadlinebot/internal/telegram"
	"github.com/edgard/deadlinebot/internal/timezone"
)

const reminderChat = int64(-100)

type sentNotification struct {
	audience int64
	text     string
}

type fakeNotifier struct {
	sent   []sentNotification
	failOn map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, audience int64, text string) error {
	if f.failOn[text] {
		return fmt.Errorf("%w: connection reset", telegram.ErrTransport)
	}
	f.sent = append(f.sent, sentNotification{audience: audience, text: text})
	return nil
}

// failingStore fails every overdue query.
type failingStore struct {
	database.Store
}

func (failingStore) ListOverdueDeadlines(context.Context, time.Time) ([]database.Deadline, error) {
	return nil, fmt.Errorf("%w: disk I/O error", database.ErrStorage)
}

func newTestDeps(t *testing.T, notifier Notifier) (TaskDeps, time.Time) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "deadlines.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	normalizer := timezone.NewNormalizer(3, timezone.WithClock(clock))

	cfg := &config.Config{}
	cfg.Telegram.ReminderChatID = reminderChat
	cfg.Messages.ReminderFmt = "⏰ Deadline alert: %s is due!"

	return TaskDeps{
		Logger:     logger.Discard(),
		Store:      database.NewStore(db, logger.Discard()),
		Normalizer: normalizer,
		Notifier:   notifier,
		Config:     cfg,
	}, normalizer.Now()
}

func TestReminderNotifiesOnlyOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	notifier := &fakeNotifier{}
	deps, now := newTestDeps(t, notifier)

	_, err := deps.Store.CreateDeadline(ctx, "42", "Report", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = deps.Store.CreateDeadline(ctx, "42", "Review", now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, NewDeadlineReminderTask(deps)(ctx))

	assert.Equal(t, []sentNotification{
		{audience: reminderChat, text: "⏰ Deadline alert: Report is due!"},
	}, notifier.sent)
}

func TestReminderRepeatsOnEveryFiring(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	notifier := &fakeNotifier{}
	deps, now := newTestDeps(t, notifier)

	_, err := deps.Store.CreateDeadline(ctx, "42", "Report", now)
	require.NoError(t, err)

	task := NewDeadlineReminderTask(deps)
	require.NoError(t, task(ctx))
	require.NoError(t, task(ctx))

	assert.Len(t, notifier.sent, 2)
}

func TestReminderContinuesAfterTransportError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	notifier := &fakeNotifier{failOn: map[string]bool{"⏰ Deadline alert: First is due!": true}}
	deps, now := newTestDeps(t, notifier)

	for _, title := range []string{"First", "Second"} {
		_, err := deps.Store.CreateDeadline(ctx, "42", title, now.Add(-time.Minute))
		require.NoError(t, err)
	}

	require.NoError(t, NewDeadlineReminderTask(deps)(ctx))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "⏰ Deadline alert: Second is due!", notifier.sent[0].text)
}

func TestReminderReturnsQueryError(t *testing.T) {
	t.Parallel()
	notifier := &fakeNotifier{}
	deps, _ := newTestDeps(t, notifier)
	deps.Store = failingStore{Store: deps.Store}

	err := NewDeadlineReminderTask(deps)(context.Background())
	assert.ErrorIs(t, err, database.ErrStorage)
	assert.Empty(t, notifier.sent)
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t, &fakeNotifier{})

	assert.NoError(t, newSQLMaintenanceTask(deps)(context.Background()))
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t, &fakeNotifier{})

	tasks := RegisterAllTasks(deps)
	assert.Contains(t, tasks, config.TaskDeadlineReminder)
	assert.Contains(t, tasks, config.TaskSQLMaintenance)
	assert.Len(t, tasks, 2)
}

func TestReminderStopsWhenCancelled(t *testing.T) {
	t.Parallel()
	notifier := &fakeNotifier{}
	deps, now := newTestDeps(t, notifier)

	_, err := deps.Store.CreateDeadline(context.Background(), "42", "Report", now.Add(-time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewDeadlineReminderTask(deps)(ctx)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, database.ErrStorage), err)
	assert.Empty(t, notifier.sent)
}
