package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/markhub/internal/logger"
)

func newTestAlarm(t *testing.T, ts *testSync, initialDelay time.Duration) *Alarm {
	t.Helper()
	alarm := NewAlarm(ts.controller, ts.store, initialDelay, logger.NewNop())
	t.Cleanup(alarm.Stop)
	return alarm
}

func TestAlarmRescheduleTracksSettings(t *testing.T) {
	ts := newTestSync(t)
	ctx := context.Background()
	alarm := newTestAlarm(t, ts, time.Minute)

	// Without settings nothing is scheduled.
	require.NoError(t, alarm.Reschedule(ctx))
	assert.Empty(t, alarm.cron.Entries())

	ts.enable(t)
	require.NoError(t, alarm.Reschedule(ctx))
	assert.Len(t, alarm.cron.Entries(), 1)

	// An interval change replaces the entry instead of stacking one.
	settings, err := ts.store.GetSyncSettings(ctx)
	require.NoError(t, err)
	settings.WebdavSyncInterval = 30
	require.NoError(t, ts.store.SaveSyncSettings(ctx, settings))
	require.NoError(t, alarm.Reschedule(ctx))
	assert.Len(t, alarm.cron.Entries(), 1)

	settings.WebdavEnabled = false
	require.NoError(t, ts.store.SaveSyncSettings(ctx, settings))
	require.NoError(t, alarm.Reschedule(ctx))
	assert.Empty(t, alarm.cron.Entries())
}

func TestAlarmStartRunsInitialSync(t *testing.T) {
	ts := newTestSync(t)
	ts.enable(t)
	ts.seedBookmark(t, "https://example.com/article", "Article")
	alarm := newTestAlarm(t, ts, 10*time.Millisecond)

	require.NoError(t, alarm.Start(context.Background()))

	waitFor(t, func() bool { return ts.remote.writeCount() == 1 })

	payload := ts.remote.snapshot(t)
	assert.Equal(t, 1, payload.BookmarkCount)
}

func TestAlarmStopCancelsPendingInitialSync(t *testing.T) {
	ts := newTestSync(t)
	ts.enable(t)
	ts.seedBookmark(t, "https://example.com/article", "Article")
	alarm := NewAlarm(ts.controller, ts.store, time.Hour, logger.NewNop())

	require.NoError(t, alarm.Start(context.Background()))
	alarm.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, ts.remote.writeCount())
}
