package db

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetBookmark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{
		URL:   "https://example.com/article",
		Title: "An Article",
		HTML:  "<html><body>hi</body></html>",
	}
	if err := store.CreateBookmark(ctx, b); err != nil {
		t.Fatalf("Failed to create bookmark: %v", err)
	}
	if b.ID == "" {
		t.Fatal("Expected generated ID")
	}
	if b.ID != generateID(b.URL) {
		t.Errorf("Expected URL-derived ID %s, got %s", generateID(b.URL), b.ID)
	}
	if b.Status != StatusPending {
		t.Errorf("Expected pending status, got %s", b.Status)
	}

	got, err := store.GetBookmark(ctx, b.ID)
	if err != nil {
		t.Fatalf("Failed to get bookmark: %v", err)
	}
	if got == nil || got.URL != b.URL || got.HTML != b.HTML {
		t.Errorf("Round trip mismatch: %+v", got)
	}

	byURL, err := store.GetBookmarkByURL(ctx, b.URL)
	if err != nil {
		t.Fatalf("Failed to get bookmark by url: %v", err)
	}
	if byURL == nil || byURL.ID != b.ID {
		t.Errorf("Expected same bookmark by URL, got %+v", byURL)
	}

	missing, err := store.GetBookmark(ctx, "nope")
	if err != nil {
		t.Fatalf("Unexpected error for missing bookmark: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing bookmark, got %+v", missing)
	}
}

func TestBookmarkStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{URL: "https://example.com/page"}
	if err := store.CreateBookmark(ctx, b); err != nil {
		t.Fatalf("Failed to create bookmark: %v", err)
	}

	if err := store.SetBookmarkStatus(ctx, b.ID, Status("bogus")); err == nil {
		t.Error("Expected error for invalid status")
	}

	if err := store.SetBookmarkError(ctx, b.ID, "boom", "stack trace here"); err != nil {
		t.Fatalf("Failed to set error: %v", err)
	}
	got, _ := store.GetBookmark(ctx, b.ID)
	if got.Status != StatusError {
		t.Errorf("Expected error status, got %s", got.Status)
	}
	if got.ErrorMessage != "boom" || got.ErrorStack != "stack trace here" {
		t.Errorf("Error fields not persisted: %+v", got)
	}

	if err := store.ResetBookmark(ctx, b.ID); err != nil {
		t.Fatalf("Failed to reset bookmark: %v", err)
	}
	got, _ = store.GetBookmark(ctx, b.ID)
	if got.Status != StatusPending {
		t.Errorf("Expected pending after reset, got %s", got.Status)
	}
	if got.ErrorMessage != "" || got.ErrorStack != "" {
		t.Errorf("Expected error fields cleared, got %+v", got)
	}
}

func TestRunnableBookmarks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Bookmark{URL: "https://example.com/1", Status: StatusPending}
	second := &Bookmark{URL: "https://example.com/2", Status: StatusFetching}
	done := &Bookmark{URL: "https://example.com/3", Status: StatusComplete}
	failed := &Bookmark{URL: "https://example.com/4", Status: StatusError}
	for _, b := range []*Bookmark{first, second, done, failed} {
		if err := store.CreateBookmark(ctx, b); err != nil {
			t.Fatalf("Failed to create bookmark: %v", err)
		}
	}

	runnable, err := store.RunnableBookmarks(ctx)
	if err != nil {
		t.Fatalf("Failed to list runnable: %v", err)
	}
	if len(runnable) != 2 {
		t.Fatalf("Expected 2 runnable bookmarks, got %d", len(runnable))
	}
	if runnable[0].ID != first.ID || runnable[1].ID != second.ID {
		t.Errorf("Expected insertion order, got %s then %s", runnable[0].URL, runnable[1].URL)
	}
}

func TestMarkdownLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{URL: "https://example.com/doc"}
	if err := store.CreateBookmark(ctx, b); err != nil {
		t.Fatalf("Failed to create bookmark: %v", err)
	}

	m, err := store.GetMarkdown(ctx, b.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("Expected no markdown yet, got %+v", m)
	}

	md := &Markdown{BookmarkID: b.ID, Content: "# Doc\n\nbody"}
	if err := store.CreateMarkdown(ctx, md); err != nil {
		t.Fatalf("Failed to create markdown: %v", err)
	}
	if md.ID == "" {
		t.Fatal("Expected generated markdown ID")
	}

	m, err = store.GetMarkdown(ctx, b.ID)
	if err != nil {
		t.Fatalf("Failed to get markdown: %v", err)
	}
	if m == nil || m.Content != md.Content {
		t.Errorf("Round trip mismatch: %+v", m)
	}

	// One markdown per bookmark
	dup := &Markdown{BookmarkID: b.ID, Content: "other"}
	if err := store.CreateMarkdown(ctx, dup); err == nil {
		t.Error("Expected unique constraint error for second markdown")
	}
}

func TestQuestionAnswerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{URL: "https://example.com/qa"}
	if err := store.CreateBookmark(ctx, b); err != nil {
		t.Fatalf("Failed to create bookmark: %v", err)
	}

	has, err := store.HasQuestionAnswers(ctx, b.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if has {
		t.Fatal("Expected no question answers yet")
	}

	qas := []*QuestionAnswer{
		{
			BookmarkID:        b.ID,
			Question:          "What is it?",
			Answer:            "A thing.",
			EmbeddingQuestion: []float32{0.1, 0.2},
			EmbeddingAnswer:   []float32{0.3, 0.4},
			EmbeddingBoth:     []float32{0.5, 0.6},
		},
		{
			BookmarkID:    b.ID,
			Question:      "Why?",
			Answer:        "Because.",
			EmbeddingBoth: []float32{0.7, 0.8},
		},
	}
	if err := store.CreateQuestionAnswers(ctx, qas); err != nil {
		t.Fatalf("Failed to create question answers: %v", err)
	}

	has, _ = store.HasQuestionAnswers(ctx, b.ID)
	if !has {
		t.Error("Expected question answers to exist")
	}

	got, err := store.QuestionAnswersByBookmark(ctx, b.ID)
	if err != nil {
		t.Fatalf("Failed to list question answers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].Question != "What is it?" {
		t.Errorf("Expected insertion order, got %q first", got[0].Question)
	}
	if len(got[0].EmbeddingBoth) != 2 || got[0].EmbeddingBoth[0] != 0.5 {
		t.Errorf("Embedding round trip mismatch: %v", got[0].EmbeddingBoth)
	}

	n, err := store.CountQuestionAnswers(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected count 2, got %d", n)
	}
}

func TestJobsLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	j := &Job{Type: JobTypePageFetch, Status: JobStatusInProgress, BookmarkID: "abc123"}
	if err := store.CreateJob(ctx, j); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if j.ID == "" {
		t.Fatal("Expected generated job ID")
	}

	if err := store.UpdateJob(ctx, j.ID, JobStatusFailed, `{"error":"fetch failed"}`); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	failed, err := store.ListJobs(ctx, JobStatusFailed, 10)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(failed) != 1 || failed[0].Metadata != `{"error":"fetch failed"}` {
		t.Errorf("Unexpected failed jobs: %+v", failed)
	}

	completed, _ := store.ListJobs(ctx, JobStatusCompleted, 10)
	if len(completed) != 0 {
		t.Errorf("Expected no completed jobs, got %d", len(completed))
	}

	forBookmark, err := store.JobsForBookmark(ctx, "abc123")
	if err != nil {
		t.Fatalf("Failed to list jobs for bookmark: %v", err)
	}
	if len(forBookmark) != 1 || forBookmark[0].Type != JobTypePageFetch {
		t.Errorf("Unexpected bookmark jobs: %+v", forBookmark)
	}
}

func TestSyncSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.GetSyncSettings(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if settings != nil {
		t.Fatalf("Expected nil before first save, got %+v", settings)
	}

	in := &SyncSettings{
		WebdavEnabled:      true,
		WebdavURL:          "https://dav.example.com",
		WebdavUsername:     "me",
		WebdavPassword:     "secret",
		WebdavPath:         "/markhub/store.json",
		WebdavSyncInterval: 5,
	}
	if err := store.SaveSyncSettings(ctx, in); err != nil {
		t.Fatalf("Failed to save settings: %v", err)
	}

	settings, err = store.GetSyncSettings(ctx)
	if err != nil {
		t.Fatalf("Failed to get settings: %v", err)
	}
	if settings == nil || !settings.WebdavEnabled || settings.WebdavURL != in.WebdavURL {
		t.Errorf("Round trip mismatch: %+v", settings)
	}
}

func TestSearchByEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := &Bookmark{URL: "https://example.com/near", Title: "Near"}
	far := &Bookmark{URL: "https://example.com/far", Title: "Far"}
	for _, b := range []*Bookmark{near, far} {
		if err := store.CreateBookmark(ctx, b); err != nil {
			t.Fatalf("Failed to create bookmark: %v", err)
		}
	}

	qas := []*QuestionAnswer{
		{BookmarkID: near.ID, Question: "best", Answer: "a", EmbeddingBoth: []float32{1, 0}},
		{BookmarkID: near.ID, Question: "worse", Answer: "b", EmbeddingBoth: []float32{0.5, 0.5}},
		{BookmarkID: far.ID, Question: "off", Answer: "c", EmbeddingBoth: []float32{0, 1}},
	}
	if err := store.CreateQuestionAnswers(ctx, qas); err != nil {
		t.Fatalf("Failed to create question answers: %v", err)
	}

	results, err := store.SearchByEmbedding(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected one result per bookmark, got %d", len(results))
	}
	if results[0].BookmarkID != near.ID {
		t.Errorf("Expected closest bookmark first, got %s", results[0].Title)
	}
	if results[0].Question != "best" {
		t.Errorf("Expected the best pair to represent the bookmark, got %q", results[0].Question)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("Expected descending scores: %f then %f", results[0].Score, results[1].Score)
	}
}
