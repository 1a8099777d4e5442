package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// Engine drives one bookmark through the fetch, markdown and Q&A stages.
// Stages are strictly ordered and individually idempotent: fetch only
// runs when no HTML was captured, markdown is reused when a row exists,
// and Q&A generation is skipped once any pairs exist. Each stage that
// runs writes exactly one Job to the ledger.
type Engine struct {
	store     *db.Store
	fetcher   ContentFetcher
	extractor MarkdownExtractor
	generator PairGenerator
	embedder  Embedder
	log       logger.Logger
}

func NewEngine(store *db.Store, fetcher ContentFetcher, extractor MarkdownExtractor, generator PairGenerator, embedder Embedder, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		generator: generator,
		embedder:  embedder,
		log:       log,
	}
}

// Process takes a bookmark to complete or error. The returned error is
// also persisted on the bookmark, so callers may ignore it when they only
// care about the state transition.
func (e *Engine) Process(ctx context.Context, bookmarkID string) error {
	b, err := e.store.GetBookmark(ctx, bookmarkID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("bookmark %s not found", bookmarkID)
	}

	log := e.log.With(zap.String("bookmark_id", b.ID), zap.String("url", b.URL))

	if b.HTML == "" {
		if err := e.store.SetBookmarkStatus(ctx, b.ID, db.StatusFetching); err != nil {
			return err
		}
		if err := e.runFetchStage(ctx, b, log); err != nil {
			return e.fail(ctx, b.ID, err, log)
		}
	}

	if err := e.store.SetBookmarkStatus(ctx, b.ID, db.StatusProcessing); err != nil {
		return err
	}

	md, err := e.runMarkdownStage(ctx, b, log)
	if err != nil {
		return e.fail(ctx, b.ID, err, log)
	}

	if err := e.runQAStage(ctx, b, md, log); err != nil {
		return e.fail(ctx, b.ID, err, log)
	}

	if err := e.store.SetBookmarkStatus(ctx, b.ID, db.StatusComplete); err != nil {
		return err
	}

	log.Info("bookmark processed")
	return nil
}

func (e *Engine) runFetchStage(ctx context.Context, b *db.Bookmark, log logger.Logger) error {
	job := &db.Job{Type: db.JobTypePageFetch, Status: db.JobStatusInProgress, BookmarkID: b.ID}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return err
	}

	page, err := e.fetcher.FetchPage(ctx, b.URL)
	if err != nil {
		stageErr := newStageError(db.JobTypePageFetch, KindFetch, "failed to fetch page", err)
		e.failJob(ctx, job.ID, stageErr)
		return stageErr
	}

	title := b.Title
	if title == "" {
		title = page.Title
	}
	if err := e.store.SetBookmarkPage(ctx, b.ID, title, page.HTML); err != nil {
		stageErr := newStageError(db.JobTypePageFetch, KindFetch, "failed to store fetched page", err)
		e.failJob(ctx, job.ID, stageErr)
		return stageErr
	}
	b.Title = title
	b.HTML = page.HTML

	if err := e.store.UpdateJob(ctx, job.ID, db.JobStatusCompleted, ""); err != nil {
		return err
	}

	log.Info("page fetched", zap.Int("html_bytes", len(page.HTML)))
	return nil
}

func (e *Engine) runMarkdownStage(ctx context.Context, b *db.Bookmark, log logger.Logger) (*db.Markdown, error) {
	existing, err := e.store.GetMarkdown(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug("markdown already generated, reusing")
		return existing, nil
	}

	job := &db.Job{Type: db.JobTypeMarkdownGeneration, Status: db.JobStatusInProgress, BookmarkID: b.ID}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	content, err := e.extractor.Extract(b.HTML, b.URL)
	if err != nil {
		stageErr := newStageError(db.JobTypeMarkdownGeneration, KindExtraction, "failed to generate markdown", err)
		e.failJob(ctx, job.ID, stageErr)
		return nil, stageErr
	}

	md := &db.Markdown{BookmarkID: b.ID, Content: content}
	if err := e.store.CreateMarkdown(ctx, md); err != nil {
		stageErr := newStageError(db.JobTypeMarkdownGeneration, KindExtraction, "failed to store markdown", err)
		e.failJob(ctx, job.ID, stageErr)
		return nil, stageErr
	}

	if err := e.store.UpdateJob(ctx, job.ID, db.JobStatusCompleted, ""); err != nil {
		return nil, err
	}

	log.Info("markdown generated", zap.Int("chars", len(content)))
	return md, nil
}

func (e *Engine) runQAStage(ctx context.Context, b *db.Bookmark, md *db.Markdown, log logger.Logger) error {
	has, err := e.store.HasQuestionAnswers(ctx, b.ID)
	if err != nil {
		return err
	}
	if has {
		log.Debug("question answers already generated, skipping")
		return nil
	}

	job := &db.Job{Type: db.JobTypeQAGeneration, Status: db.JobStatusInProgress, BookmarkID: b.ID}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return err
	}

	pairs, err := e.generator.GeneratePairs(ctx, md.Content)
	if err != nil {
		stageErr := newStageError(db.JobTypeQAGeneration, KindGeneration, "failed to generate question answers", err)
		e.failJob(ctx, job.ID, stageErr)
		return stageErr
	}

	// Some pages legitimately yield nothing worth asking about.
	if len(pairs) == 0 {
		if err := e.store.UpdateJob(ctx, job.ID, db.JobStatusCompleted, `{"pairs":0}`); err != nil {
			return err
		}
		log.Info("no question answers generated")
		return nil
	}

	qas, err := e.embedPairs(ctx, b.ID, pairs)
	if err != nil {
		stageErr := newStageError(db.JobTypeQAGeneration, KindGeneration, "failed to embed question answers", err)
		e.failJob(ctx, job.ID, stageErr)
		return stageErr
	}

	if err := e.store.CreateQuestionAnswers(ctx, qas); err != nil {
		stageErr := newStageError(db.JobTypeQAGeneration, KindGeneration, "failed to store question answers", err)
		e.failJob(ctx, job.ID, stageErr)
		return stageErr
	}

	meta, _ := json.Marshal(map[string]int{"pairs": len(pairs)})
	if err := e.store.UpdateJob(ctx, job.ID, db.JobStatusCompleted, string(meta)); err != nil {
		return err
	}

	log.Info("question answers generated", zap.Int("pairs", len(pairs)))
	return nil
}

// embedPairs builds three batches (questions, answers, combined), embeds
// each with one call, and zips the vectors back to their pairs by index.
func (e *Engine) embedPairs(ctx context.Context, bookmarkID string, pairs []Pair) ([]*db.QuestionAnswer, error) {
	questions := make([]string, len(pairs))
	answers := make([]string, len(pairs))
	combined := make([]string, len(pairs))
	for i, p := range pairs {
		questions[i] = p.Question
		answers[i] = p.Answer
		combined[i] = fmt.Sprintf("Q: %s\nA: %s", p.Question, p.Answer)
	}

	qEmb, err := e.embedder.EmbedBatch(ctx, questions)
	if err != nil {
		return nil, err
	}
	aEmb, err := e.embedder.EmbedBatch(ctx, answers)
	if err != nil {
		return nil, err
	}
	bothEmb, err := e.embedder.EmbedBatch(ctx, combined)
	if err != nil {
		return nil, err
	}

	if len(qEmb) != len(pairs) || len(aEmb) != len(pairs) || len(bothEmb) != len(pairs) {
		return nil, fmt.Errorf("embedding count mismatch: %d pairs, got %d/%d/%d vectors",
			len(pairs), len(qEmb), len(aEmb), len(bothEmb))
	}

	qas := make([]*db.QuestionAnswer, len(pairs))
	for i, p := range pairs {
		qas[i] = &db.QuestionAnswer{
			BookmarkID:        bookmarkID,
			Question:          p.Question,
			Answer:            p.Answer,
			EmbeddingQuestion: qEmb[i],
			EmbeddingAnswer:   aEmb[i],
			EmbeddingBoth:     bothEmb[i],
		}
	}
	return qas, nil
}

// fail records the error on the bookmark and passes it through.
func (e *Engine) fail(ctx context.Context, bookmarkID string, cause error, log logger.Logger) error {
	stack := ""
	var stageErr *StageError
	if errors.As(cause, &stageErr) {
		stack = stageErr.Stack
	} else {
		stack = string(debug.Stack())
	}

	if err := e.store.SetBookmarkError(ctx, bookmarkID, cause.Error(), stack); err != nil {
		log.Error("failed to record bookmark error", zap.Error(err))
	}

	log.Error("bookmark processing failed", zap.Error(cause))
	return cause
}

func (e *Engine) failJob(ctx context.Context, jobID string, stageErr *StageError) {
	meta, _ := json.Marshal(map[string]string{
		"kind":  string(stageErr.Kind),
		"error": stageErr.Error(),
	})
	if err := e.store.UpdateJob(ctx, jobID, db.JobStatusFailed, string(meta)); err != nil {
		e.log.Error("failed to record job failure", zap.Error(err))
	}
}
