package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// Actions reported by a sync attempt.
const (
	ActionUploaded = "uploaded"
	ActionNoChange = "no-change"
	ActionSkipped  = "skipped"
	ActionError    = "error"
)

// Result summarizes one sync attempt. Errors are folded into the result
// rather than returned, so a failed background sync never crashes its
// caller.
type Result struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Status is the externally visible sync state.
type Status struct {
	IsSyncing     bool   `json:"isSyncing"`
	LastSyncTime  string `json:"lastSyncTime,omitempty"`
	LastSyncError string `json:"lastSyncError,omitempty"`
}

// SnapshotExporter produces the local snapshot to upload.
type SnapshotExporter interface {
	Export(ctx context.Context) (*archive.Payload, error)
}

// SnapshotImporter merges a downloaded snapshot into the local store.
type SnapshotImporter interface {
	Import(ctx context.Context, payload *archive.Payload, source string) (*archive.Result, error)
}

// Controller serializes snapshot synchronization against the remote. At
// most one sync runs at a time and trigger bursts are debounced. Remote
// and local state merge without duplicating bookmarks.
type Controller struct {
	store     *db.Store
	exporter  SnapshotExporter
	importer  SnapshotImporter
	newRemote func(*db.SyncSettings) RemoteStore
	debounce  time.Duration
	state     state
	log       logger.Logger
}

// NewController wires the sync controller. A non-positive debounce falls
// back to five seconds.
func NewController(store *db.Store, exporter SnapshotExporter, importer SnapshotImporter, debounce time.Duration, log logger.Logger) *Controller {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &Controller{
		store:    store,
		exporter: exporter,
		importer: importer,
		newRemote: func(settings *db.SyncSettings) RemoteStore {
			return NewWebdavStore(settings)
		},
		debounce: debounce,
		log:      log,
	}
}

// PerformSync runs one full sync attempt. Concurrent calls while a sync
// is in flight return a skipped result immediately, as do calls inside
// the debounce window unless force is set.
func (c *Controller) PerformSync(ctx context.Context, force bool) Result {
	settings, err := c.store.GetSyncSettings(ctx)
	if err != nil {
		return Result{Action: ActionError, Message: fmt.Sprintf("failed to load sync settings: %v", err)}
	}
	if settings == nil || !settings.WebdavEnabled || settings.WebdavURL == "" {
		return Result{Action: ActionSkipped, Success: true, Message: "sync is not configured"}
	}

	switch c.state.begin(force, c.debounce) {
	case beginAlreadySyncing:
		c.log.Debug("sync already in progress, skipping")
		return Result{Action: ActionSkipped, Success: true, Message: "sync already in progress"}
	case beginDebounced:
		c.log.Debug("sync debounced, skipping")
		return Result{Action: ActionSkipped, Success: true, Message: "sync debounced"}
	}
	defer c.state.end()

	result, err := c.sync(ctx, settings)
	if err != nil {
		c.recordOutcome(ctx, err)
		c.log.Error("sync failed", zap.Error(err))
		return Result{Action: ActionError, Message: err.Error()}
	}
	c.recordOutcome(ctx, nil)
	return result
}

func (c *Controller) sync(ctx context.Context, settings *db.SyncSettings) (Result, error) {
	remote := c.newRemote(settings)

	var remotePayload *archive.Payload
	data, err := remote.Read(ctx)
	switch {
	case errors.Is(err, ErrRemoteNotFound):
		c.log.Info("no remote snapshot found, treating as first sync")
	case err != nil:
		return Result{}, err
	default:
		remotePayload, err = archive.Decode(data)
		if err != nil {
			return Result{}, fmt.Errorf("failed to decode remote snapshot: %w", err)
		}
		res, err := c.importer.Import(ctx, remotePayload, "webdav")
		if err != nil {
			return Result{}, fmt.Errorf("failed to merge remote snapshot: %w", err)
		}
		c.log.Info("merged remote snapshot",
			zap.Int("imported", res.Imported),
			zap.Int("skipped", res.Skipped),
			zap.Int("errors", len(res.Errors)))
	}

	local, err := c.exporter.Export(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to export local snapshot: %w", err)
	}

	if remotePayload != nil {
		localHash, err := local.ContentHash()
		if err != nil {
			return Result{}, err
		}
		remoteHash, err := remotePayload.ContentHash()
		if err != nil {
			return Result{}, err
		}
		if localHash == remoteHash {
			c.log.Info("remote snapshot already up to date")
			return Result{Action: ActionNoChange, Success: true, Message: "remote is already up to date"}, nil
		}
	}

	encoded, err := archive.Encode(local)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := remote.Write(ctx, encoded); err != nil {
		return Result{}, err
	}

	c.log.Info("uploaded snapshot",
		zap.Int("bookmarks", local.BookmarkCount),
		zap.Int("bytes", len(encoded)))
	return Result{
		Action:  ActionUploaded,
		Success: true,
		Message: fmt.Sprintf("uploaded %d bookmarks", local.BookmarkCount),
	}, nil
}

// recordOutcome stamps the settings row with the attempt outcome. It
// re-reads the row so a settings update made during the sync is not
// clobbered.
func (c *Controller) recordOutcome(ctx context.Context, syncErr error) {
	settings, err := c.store.GetSyncSettings(ctx)
	if err != nil || settings == nil {
		return
	}
	if syncErr != nil {
		settings.WebdavLastSyncError = syncErr.Error()
	} else {
		settings.WebdavLastSyncError = ""
		settings.WebdavLastSyncTime = time.Now().UTC().Format(time.RFC3339)
	}
	if err := c.store.SaveSyncSettings(ctx, settings); err != nil {
		c.log.Error("failed to record sync outcome", zap.Error(err))
	}
}

// Status reports whether a sync is running plus the persisted outcome of
// the last attempt.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	status := Status{IsSyncing: c.state.syncing()}
	settings, err := c.store.GetSyncSettings(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to load sync settings: %w", err)
	}
	if settings != nil {
		status.LastSyncTime = settings.WebdavLastSyncTime
		status.LastSyncError = settings.WebdavLastSyncError
	}
	return status, nil
}

// UpdateSettings persists new WebDAV settings, keeping the audit fields
// from the previous row. Callers reschedule the alarm afterwards.
func (c *Controller) UpdateSettings(ctx context.Context, settings *db.SyncSettings) error {
	prev, err := c.store.GetSyncSettings(ctx)
	if err != nil {
		return err
	}
	if prev != nil {
		settings.WebdavLastSyncTime = prev.WebdavLastSyncTime
		settings.WebdavLastSyncError = prev.WebdavLastSyncError
	}
	return c.store.SaveSyncSettings(ctx, settings)
}

// EnsureSettings creates the default, disabled settings row on first run
// so later reads and updates always have a row to work with.
func (c *Controller) EnsureSettings(ctx context.Context, defaultInterval time.Duration) (*db.SyncSettings, error) {
	settings, err := c.store.GetSyncSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	minutes := int(defaultInterval / time.Minute)
	if minutes <= 0 {
		minutes = 5
	}
	settings = &db.SyncSettings{
		WebdavSyncInterval: minutes,
		WebdavPath:         DefaultRemotePath,
	}
	if err := c.store.SaveSyncSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
