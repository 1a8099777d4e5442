package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
	"github.com/user/markhub/internal/pipeline"
	"github.com/user/markhub/internal/syncer"
)

// PageService saves pages and enqueues bulk URL imports.
type PageService interface {
	SaveFromPage(ctx context.Context, url, title, html string) (string, bool, error)
	CreateFromURLList(ctx context.Context, urls []string) (string, int, error)
}

// RetryService requeues errored bookmarks.
type RetryService interface {
	Retry(ctx context.Context, bookmarkID string) error
}

// SyncService runs and inspects snapshot synchronization.
type SyncService interface {
	PerformSync(ctx context.Context, force bool) syncer.Result
	Status(ctx context.Context) (syncer.Status, error)
	UpdateSettings(ctx context.Context, settings *db.SyncSettings) error
}

// Rescheduler reacts to sync settings changes.
type Rescheduler interface {
	Reschedule(ctx context.Context) error
}

// Handlers binds HTTP requests to the services behind them.
type Handlers struct {
	pages    PageService
	retry    RetryService
	sync     SyncService
	alarm    Rescheduler
	exporter syncer.SnapshotExporter
	importer syncer.SnapshotImporter
	log      logger.Logger
}

func NewHandlers(
	pages PageService,
	retry RetryService,
	sync SyncService,
	alarm Rescheduler,
	exporter syncer.SnapshotExporter,
	importer syncer.SnapshotImporter,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		pages:    pages,
		retry:    retry,
		sync:     sync,
		alarm:    alarm,
		exporter: exporter,
		importer: importer,
		log:      log,
	}
}

type savePageRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

type savePageResponse struct {
	Success    bool   `json:"success"`
	BookmarkID string `json:"bookmarkId"`
	Updated    bool   `json:"updated"`
}

// SavePage handles POST /api/v1/pages.
func (h *Handlers) SavePage(c *gin.Context) {
	var req savePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, updated, err := h.pages.SaveFromPage(c.Request.Context(), req.URL, req.Title, req.HTML)
	if err != nil {
		h.log.Error("failed to save page", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save page"})
		return
	}

	status := http.StatusCreated
	if updated {
		status = http.StatusOK
	}
	c.JSON(status, savePageResponse{Success: true, BookmarkID: id, Updated: updated})
}

type bulkImportRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

type bulkImportResponse struct {
	Success   bool   `json:"success"`
	JobID     string `json:"jobId"`
	TotalURLs int    `json:"totalUrls"`
}

// BulkImport handles POST /api/v1/pages/bulk.
func (h *Handlers) BulkImport(c *gin.Context) {
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls must not be empty"})
		return
	}

	jobID, total, err := h.pages.CreateFromURLList(c.Request.Context(), req.URLs)
	if err != nil {
		h.log.Error("failed to import urls", zap.Int("count", len(req.URLs)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import urls"})
		return
	}

	c.JSON(http.StatusAccepted, bulkImportResponse{Success: true, JobID: jobID, TotalURLs: total})
}

// TriggerSync handles POST /api/v1/sync. The sync itself decides whether
// to run, so the handler always answers 200 with the attempt result.
func (h *Handlers) TriggerSync(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	result := h.sync.PerformSync(c.Request.Context(), force)
	c.JSON(http.StatusOK, result)
}

// SyncStatus handles GET /api/v1/sync/status.
func (h *Handlers) SyncStatus(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		h.log.Error("failed to read sync status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sync status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

type syncSettingsRequest struct {
	WebdavEnabled      bool   `json:"webdavEnabled"`
	WebdavURL          string `json:"webdavUrl"`
	WebdavUsername     string `json:"webdavUsername"`
	WebdavPassword     string `json:"webdavPassword"`
	WebdavPath         string `json:"webdavPath"`
	WebdavSyncInterval int    `json:"webdavSyncInterval"`
}

// UpdateSyncSettings handles PUT /api/v1/sync/settings and reschedules
// the sync alarm to match.
func (h *Handlers) UpdateSyncSettings(c *gin.Context) {
	var req syncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.WebdavEnabled && req.WebdavURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webdavUrl is required when sync is enabled"})
		return
	}

	settings := &db.SyncSettings{
		WebdavEnabled:      req.WebdavEnabled,
		WebdavURL:          req.WebdavURL,
		WebdavUsername:     req.WebdavUsername,
		WebdavPassword:     req.WebdavPassword,
		WebdavPath:         req.WebdavPath,
		WebdavSyncInterval: req.WebdavSyncInterval,
	}
	if err := h.sync.UpdateSettings(c.Request.Context(), settings); err != nil {
		h.log.Error("failed to update sync settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update sync settings"})
		return
	}

	if err := h.alarm.Reschedule(c.Request.Context()); err != nil {
		h.log.Error("failed to reschedule sync alarm", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reschedule sync"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RetryBookmark handles POST /api/v1/bookmarks/:id/retry.
func (h *Handlers) RetryBookmark(c *gin.Context) {
	id := c.Param("id")
	err := h.retry.Retry(c.Request.Context(), id)
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNotRetryable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("failed to retry bookmark", zap.String("bookmark_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retry bookmark"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ImportArchive handles POST /api/v1/import with a snapshot payload in
// the request body.
func (h *Handlers) ImportArchive(c *gin.Context) {
	var payload archive.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.importer.Import(c.Request.Context(), &payload, "api")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportArchive handles GET /api/v1/export.
func (h *Handlers) ExportArchive(c *gin.Context) {
	payload, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		h.log.Error("failed to export snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export snapshot"})
		return
	}
	c.JSON(http.StatusOK, payload)
}
