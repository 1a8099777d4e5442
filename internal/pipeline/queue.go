package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// ErrNotFound reports an unknown bookmark ID.
var ErrNotFound = errors.New("bookmark not found")

// ErrNotRetryable reports a retry on a bookmark that is not in the
// error state.
var ErrNotRetryable = errors.New("bookmark is not in error state")

// Queue drains runnable bookmarks through the engine. At most one drain
// loop runs at a time; overlapping Run calls return immediately without
// a second pass.
type Queue struct {
	engine  *Engine
	store   *db.Store
	log     logger.Logger
	running atomic.Bool
}

func NewQueue(engine *Engine, store *db.Store, log logger.Logger) *Queue {
	return &Queue{
		engine: engine,
		store:  store,
		log:    log,
	}
}

// Run processes pending and fetching bookmarks in insertion order until
// none remain, picking up bookmarks added while draining. One bookmark's
// failure is logged and does not stop the batch. Bookmarks in the error
// state are never retried here.
func (q *Queue) Run(ctx context.Context) {
	if !q.running.CompareAndSwap(false, true) {
		q.log.Debug("queue already draining")
		return
	}
	defer q.running.Store(false)

	attempted := make(map[string]bool)
	for {
		bookmarks, err := q.store.RunnableBookmarks(ctx)
		if err != nil {
			q.log.Error("failed to list runnable bookmarks", zap.Error(err))
			return
		}

		progressed := false
		for i := range bookmarks {
			if ctx.Err() != nil {
				return
			}
			b := &bookmarks[i]
			if attempted[b.ID] {
				continue
			}
			attempted[b.ID] = true
			progressed = true

			if err := q.engine.Process(ctx, b.ID); err != nil {
				q.log.Warn("bookmark failed, continuing batch",
					zap.String("bookmark_id", b.ID), zap.Error(err))
			}
		}

		if !progressed {
			return
		}
	}
}

// Kick starts a drain in the background. The drain outlives the caller's
// request, so it runs on a fresh context.
func (q *Queue) Kick() {
	go q.Run(context.Background())
}

// Retry resets an errored bookmark to pending and starts a drain. This
// is the only path out of the error state.
func (q *Queue) Retry(ctx context.Context, bookmarkID string) error {
	b, err := q.store.GetBookmark(ctx, bookmarkID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, bookmarkID)
	}
	if b.Status != db.StatusError {
		return fmt.Errorf("%w: %s has status %s", ErrNotRetryable, bookmarkID, b.Status)
	}

	if err := q.store.ResetBookmark(ctx, bookmarkID); err != nil {
		return err
	}

	q.log.Info("bookmark queued for retry", zap.String("bookmark_id", bookmarkID))
	q.Kick()
	return nil
}
