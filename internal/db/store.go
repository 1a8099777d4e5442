package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed content store shared by the pipeline, the
// sync controller and the CLI.
type Store struct {
	db *sqlx.DB
}

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "markhub.db")
	db, err := sqlx.Connect("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		html TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT NOT NULL DEFAULT '',
		error_stack TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_status ON bookmarks(status);

	CREATE TABLE IF NOT EXISTS markdowns (
		id TEXT PRIMARY KEY,
		bookmark_id TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS question_answers (
		id TEXT PRIMARY KEY,
		bookmark_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		embedding_question BLOB,
		embedding_answer BLOB,
		embedding_both BLOB,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_question_answers_bookmark ON question_answers(bookmark_id);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		bookmark_id TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_bookmark ON jobs(bookmark_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// generateID derives a bookmark ID from its URL so the same page gets
// the same ID on every device, which keeps sync merges stable.
func generateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:8])
}

const bookmarkColumns = `id, url, title, html, status, error_message, error_stack, created_at, updated_at`

func (s *Store) CreateBookmark(ctx context.Context, b *Bookmark) error {
	if b.ID == "" {
		b.ID = generateID(b.URL)
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = StatusPending
	}

	query := `
	INSERT INTO bookmarks (id, url, title, html, status, error_message, error_stack, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.URL, b.Title, b.HTML, b.Status, b.ErrorMessage, b.ErrorStack, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

// GetBookmark returns nil without error when the ID is unknown.
func (s *Store) GetBookmark(ctx context.Context, id string) (*Bookmark, error) {
	var b Bookmark
	err := s.db.GetContext(ctx, &b, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return &b, nil
}

// GetBookmarkByURL returns nil without error when the URL is unknown.
func (s *Store) GetBookmarkByURL(ctx context.Context, url string) (*Bookmark, error) {
	var b Bookmark
	err := s.db.GetContext(ctx, &b, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE url = ?`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark by url: %w", err)
	}
	return &b, nil
}

// ListBookmarks returns all bookmarks in insertion order.
func (s *Store) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	var bookmarks []Bookmark
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks ORDER BY created_at, rowid`
	if err := s.db.SelectContext(ctx, &bookmarks, query); err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}

// RunnableBookmarks returns bookmarks waiting for the pipeline, in
// insertion order. error bookmarks are excluded; only an explicit retry
// makes them runnable again.
func (s *Store) RunnableBookmarks(ctx context.Context) ([]Bookmark, error) {
	var bookmarks []Bookmark
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE status IN (?, ?) ORDER BY created_at, rowid`
	if err := s.db.SelectContext(ctx, &bookmarks, query, StatusPending, StatusFetching); err != nil {
		return nil, fmt.Errorf("failed to list runnable bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *Store) SetBookmarkStatus(ctx context.Context, id string, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid bookmark status %q", status)
	}
	query := `UPDATE bookmarks SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, status, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set bookmark status: %w", err)
	}
	return nil
}

// SetBookmarkPage stores the fetched title and HTML for a bookmark.
func (s *Store) SetBookmarkPage(ctx context.Context, id, title, html string) error {
	query := `UPDATE bookmarks SET title = ?, html = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, title, html, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set bookmark page: %w", err)
	}
	return nil
}

// SetBookmarkError moves a bookmark to the error state with the failure
// summary and stack captured for inspection.
func (s *Store) SetBookmarkError(ctx context.Context, id, message, stack string) error {
	query := `UPDATE bookmarks SET status = ?, error_message = ?, error_stack = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, StatusError, message, stack, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set bookmark error: %w", err)
	}
	return nil
}

// ResetBookmark puts a bookmark back to pending and clears any recorded
// error. This is the only path out of the error state.
func (s *Store) ResetBookmark(ctx context.Context, id string) error {
	query := `UPDATE bookmarks SET status = ?, error_message = '', error_stack = '', updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, StatusPending, time.Now(), id); err != nil {
		return fmt.Errorf("failed to reset bookmark: %w", err)
	}
	return nil
}

func (s *Store) CountBookmarksByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookmarks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM metadata WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	query := `INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata %q: %w", key, err)
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	b := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32Slice(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	s := make([]float32, len(b)/4)
	for i := range s {
		s[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return s
}
