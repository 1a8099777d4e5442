package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	fetchFunc func(ctx context.Context, url string) (*PageResult, error)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (*PageResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fetchFunc != nil {
		return f.fetchFunc(ctx, url)
	}
	return &PageResult{
		Title: "Fetched Title",
		HTML:  "<html><head><title>Fetched Title</title></head><body><p>hello</p></body></html>",
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	mu          sync.Mutex
	calls       int
	extractFunc func(html, pageURL string) (string, error)
}

func (f *fakeExtractor) Extract(html, pageURL string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.extractFunc != nil {
		return f.extractFunc(html, pageURL)
	}
	return "# Extracted\n\ncontent", nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu           sync.Mutex
	calls        int
	generateFunc func(ctx context.Context, markdown string) ([]Pair, error)
}

func (f *fakeGenerator) GeneratePairs(ctx context.Context, markdown string) ([]Pair, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.generateFunc != nil {
		return f.generateFunc(ctx, markdown)
	}
	return []Pair{{Question: "What is it?", Answer: "A thing."}}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	embFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.embFunc != nil {
		return f.embFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t)), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeEmbedder) batch(i int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[i]
}

type testPipeline struct {
	store     *db.Store
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	generator *fakeGenerator
	embedder  *fakeEmbedder
	engine    *Engine
	queue     *Queue
	service   *Service
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	store, err := db.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := &testPipeline{
		store:     store,
		fetcher:   &fakeFetcher{},
		extractor: &fakeExtractor{},
		generator: &fakeGenerator{},
		embedder:  &fakeEmbedder{},
	}
	p.engine = NewEngine(store, p.fetcher, p.extractor, p.generator, p.embedder, logger.NewNop())
	p.queue = NewQueue(p.engine, store, logger.NewNop())
	p.service = NewService(store, p.queue, logger.NewNop())
	return p
}
