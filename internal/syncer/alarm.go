package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// Alarm drives periodic syncs: one delayed run shortly after startup so
// a freshly launched process catches up, then a recurring run every
// webdavSyncInterval minutes. Settings changes take effect through
// Reschedule without restarting the process.
type Alarm struct {
	controller   *Controller
	store        *db.Store
	cron         *cron.Cron
	initialDelay time.Duration
	log          logger.Logger

	mu           sync.Mutex
	entryID      cron.EntryID
	initialTimer *time.Timer
}

// NewAlarm builds the scheduler. It does not start anything until Start
// is called.
func NewAlarm(controller *Controller, store *db.Store, initialDelay time.Duration, log logger.Logger) *Alarm {
	return &Alarm{
		controller:   controller,
		store:        store,
		cron:         cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		initialDelay: initialDelay,
		log:          log,
	}
}

// Start arms the recurring entry from current settings, starts the cron
// scheduler, and schedules the one-shot startup sync.
func (a *Alarm) Start(ctx context.Context) error {
	if err := a.Reschedule(ctx); err != nil {
		return err
	}
	a.cron.Start()

	a.mu.Lock()
	a.initialTimer = time.AfterFunc(a.initialDelay, func() {
		a.log.Info("running startup sync")
		a.controller.PerformSync(context.Background(), false)
	})
	a.mu.Unlock()

	a.log.Info("sync alarm started", zap.Duration("initial_delay", a.initialDelay))
	return nil
}

// Reschedule replaces the recurring entry to match the persisted
// settings. Disabled sync clears the entry.
func (a *Alarm) Reschedule(ctx context.Context) error {
	settings, err := a.store.GetSyncSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.entryID != 0 {
		a.cron.Remove(a.entryID)
		a.entryID = 0
	}

	if settings == nil || !settings.WebdavEnabled {
		a.log.Info("sync alarm disabled")
		return nil
	}

	minutes := settings.WebdavSyncInterval
	if minutes <= 0 {
		minutes = 5
	}

	entryID, err := a.cron.AddFunc(fmt.Sprintf("@every %dm", minutes), func() {
		a.controller.PerformSync(context.Background(), false)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	a.entryID = entryID

	a.log.Info("sync alarm scheduled", zap.Int("interval_minutes", minutes))
	return nil
}

// Stop cancels the pending startup sync and waits for a running cron
// invocation to finish.
func (a *Alarm) Stop() {
	a.mu.Lock()
	if a.initialTimer != nil {
		a.initialTimer.Stop()
	}
	a.mu.Unlock()

	<-a.cron.Stop().Done()
}
