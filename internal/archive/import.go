package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// Result summarizes a merge.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Importer merges snapshots into the store. Existing rows are never
// overwritten; the local copy always wins.
type Importer struct {
	store *db.Store
	log   logger.Logger
}

func NewImporter(store *db.Store, log logger.Logger) *Importer {
	return &Importer{store: store, log: log}
}

// Import merges a snapshot record by record. Known URLs count as
// skipped and malformed records become per-record errors; a bad record
// never aborts the rest of the batch. The source label only appears in
// logs.
func (i *Importer) Import(ctx context.Context, payload *Payload, source string) (*Result, error) {
	if payload.Version != Version {
		return nil, fmt.Errorf("unsupported archive version %d", payload.Version)
	}
	if payload.BookmarkCount != len(payload.Bookmarks) {
		return nil, fmt.Errorf("bookmark count mismatch: header says %d, payload has %d",
			payload.BookmarkCount, len(payload.Bookmarks))
	}

	res := &Result{Errors: []string{}}
	for idx, rec := range payload.Bookmarks {
		if rec.URL == "" || rec.Title == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: missing url or title", idx))
			continue
		}

		existing, err := i.store.GetBookmarkByURL(ctx, rec.URL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		if err := i.importRecord(ctx, rec); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d (%s): %v", idx, rec.URL, err))
			continue
		}
		res.Imported++
	}

	i.log.Info("archive imported",
		zap.String("source", source),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (i *Importer) importRecord(ctx context.Context, rec BookmarkRecord) error {
	// Imported records are trusted as already processed; they never
	// re-enter the pipeline here.
	b := &db.Bookmark{
		ID:        rec.ID,
		URL:       rec.URL,
		Title:     rec.Title,
		HTML:      rec.HTML,
		Status:    db.StatusComplete,
		CreatedAt: rec.CreatedAt,
	}
	if err := i.store.CreateBookmark(ctx, b); err != nil {
		return err
	}

	if rec.Markdown != "" {
		md := &db.Markdown{BookmarkID: b.ID, Content: rec.Markdown}
		if err := i.store.CreateMarkdown(ctx, md); err != nil {
			return err
		}
	}

	qas := make([]*db.QuestionAnswer, 0, len(rec.QuestionsAnswers))
	for _, p := range rec.QuestionsAnswers {
		if p.Question == "" || p.Answer == "" {
			continue
		}
		qas = append(qas, &db.QuestionAnswer{
			BookmarkID: b.ID,
			Question:   p.Question,
			Answer:     p.Answer,
		})
	}
	if err := i.store.CreateQuestionAnswers(ctx, qas); err != nil {
		return err
	}

	return nil
}
