package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// Service exposes the save and bulk-import operations behind the message
// contract. Both register bookmarks and kick the queue; the pipeline
// does the rest in the background.
type Service struct {
	store *db.Store
	queue *Queue
	log   logger.Logger
}

func NewService(store *db.Store, queue *Queue, log logger.Logger) *Service {
	return &Service{
		store: store,
		queue: queue,
		log:   log,
	}
}

// SaveFromPage stores a page captured in the browser. Saving a known URL
// again refreshes its content and queues it for another pass; the
// idempotent stages keep the re-run cheap.
func (s *Service) SaveFromPage(ctx context.Context, pageURL, title, html string) (string, bool, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", false, errors.New("url is required")
	}

	existing, err := s.store.GetBookmarkByURL(ctx, pageURL)
	if err != nil {
		return "", false, err
	}

	if existing != nil {
		if title == "" {
			title = existing.Title
		}
		if err := s.store.SetBookmarkPage(ctx, existing.ID, title, html); err != nil {
			return "", false, err
		}
		if err := s.store.ResetBookmark(ctx, existing.ID); err != nil {
			return "", false, err
		}
		s.log.Info("bookmark refreshed", zap.String("bookmark_id", existing.ID), zap.String("url", pageURL))
		s.queue.Kick()
		return existing.ID, true, nil
	}

	b := &db.Bookmark{URL: pageURL, Title: title, HTML: html, Status: db.StatusPending}
	if err := s.store.CreateBookmark(ctx, b); err != nil {
		return "", false, err
	}

	s.log.Info("bookmark saved", zap.String("bookmark_id", b.ID), zap.String("url", pageURL))
	s.queue.Kick()
	return b.ID, false, nil
}

// CreateFromURLList registers bare URLs for background fetching and
// records the batch in a BULK_URL_IMPORT job. Already-known URLs are
// counted as skipped.
func (s *Service) CreateFromURLList(ctx context.Context, urls []string) (string, int, error) {
	if len(urls) == 0 {
		return "", 0, errors.New("url list is empty")
	}

	job := &db.Job{Type: db.JobTypeBulkURLImport, Status: db.JobStatusInProgress}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", 0, err
	}

	created, skipped := 0, 0
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}

		existing, err := s.store.GetBookmarkByURL(ctx, u)
		if err != nil {
			s.failJob(ctx, job.ID, err)
			return "", 0, err
		}
		if existing != nil {
			skipped++
			continue
		}

		b := &db.Bookmark{URL: u, Status: db.StatusPending}
		if err := s.store.CreateBookmark(ctx, b); err != nil {
			s.failJob(ctx, job.ID, err)
			return "", 0, err
		}
		created++
	}

	meta, _ := json.Marshal(map[string]int{"totalUrls": len(urls), "created": created, "skipped": skipped})
	if err := s.store.UpdateJob(ctx, job.ID, db.JobStatusCompleted, string(meta)); err != nil {
		return "", 0, err
	}

	s.log.Info("bulk url import registered",
		zap.String("job_id", job.ID), zap.Int("created", created), zap.Int("skipped", skipped))
	s.queue.Kick()
	return job.ID, len(urls), nil
}

func (s *Service) failJob(ctx context.Context, jobID string, cause error) {
	meta, _ := json.Marshal(map[string]string{"error": cause.Error()})
	if err := s.store.UpdateJob(ctx, jobID, db.JobStatusFailed, string(meta)); err != nil {
		s.log.Error("failed to record job failure", zap.Error(err))
	}
}
