package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/markhub/internal/archive"
	"github.com/user/markhub/internal/db"
	"github.com/user/markhub/internal/logger"
)

// fakeRemote keeps the snapshot in memory. readDelay widens the window
// in which a sync holds the slot, which the concurrency tests rely on.
type fakeRemote struct {
	mu        sync.Mutex
	data      []byte
	readErr   error
	writeErr  error
	readDelay time.Duration
	reads     int
	writes    int
}

func (r *fakeRemote) Read(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	r.reads++
	delay := r.readDelay
	err := r.readErr
	data := append([]byte(nil), r.data...)
	hasData := r.data != nil
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if !hasData {
		return nil, ErrRemoteNotFound
	}
	return data, nil
}

func (r *fakeRemote) Write(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.writes++
	r.data = append([]byte(nil), data...)
	return nil
}

func (r *fakeRemote) setReadErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

func (r *fakeRemote) setData(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append([]byte(nil), data...)
}

func (r *fakeRemote) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeRemote) snapshot(t *testing.T) *archive.Payload {
	t.Helper()
	r.mu.Lock()
	data := append([]byte(nil), r.data...)
	r.mu.Unlock()
	payload, err := archive.Decode(data)
	require.NoError(t, err)
	return payload
}

// countingExporter counts Export calls around the real exporter so tests
// can prove skipped attempts never touched the snapshot machinery.
type countingExporter struct {
	inner *archive.Exporter
	mu    sync.Mutex
	count int
}

func (e *countingExporter) Export(ctx context.Context) (*archive.Payload, error) {
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
	return e.inner.Export(ctx)
}

func (e *countingExporter) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

type testSync struct {
	store      *db.Store
	controller *Controller
	remote     *fakeRemote
	exporter   *countingExporter
}

func newTestSync(t *testing.T) *testSync {
	t.Helper()

	store, err := db.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.NewNop()
	exporter := &countingExporter{inner: archive.NewExporter(store)}
	remote := &fakeRemote{}

	controller := NewController(store, exporter, archive.NewImporter(store, log), 5*time.Second, log)
	controller.newRemote = func(*db.SyncSettings) RemoteStore { return remote }

	return &testSync{store: store, controller: controller, remote: remote, exporter: exporter}
}

func (ts *testSync) enable(t *testing.T) {
	t.Helper()
	err := ts.store.SaveSyncSettings(context.Background(), &db.SyncSettings{
		WebdavEnabled:      true,
		WebdavURL:          "https://dav.example.com",
		WebdavUsername:     "user",
		WebdavPassword:     "secret",
		WebdavPath:         "/markhub/store.json",
		WebdavSyncInterval: 5,
	})
	require.NoError(t, err)
}

func (ts *testSync) seedBookmark(t *testing.T, url, title string) *db.Bookmark {
	t.Helper()
	b := &db.Bookmark{URL: url, Title: title, HTML: "<html><body>page</body></html>"}
	require.NoError(t, ts.store.CreateBookmark(context.Background(), b))
	return b
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
