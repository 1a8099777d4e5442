package db

import "time"

// Status is a bookmark's position in the processing pipeline.
// Transitions: pending -> fetching -> processing -> complete | error.
// fetching is only entered when the bookmark has no captured HTML yet.
type Status string

const (
	StatusPending    Status = "pending"
	StatusFetching   Status = "fetching"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

var validStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusFetching:   {},
	StatusProcessing: {},
	StatusComplete:   {},
	StatusError:      {},
}

func (s Status) IsValid() bool {
	_, ok := validStatuses[s]
	return ok
}

type JobType string

const (
	JobTypePageFetch          JobType = "PAGE_FETCH"
	JobTypeMarkdownGeneration JobType = "MARKDOWN_GENERATION"
	JobTypeQAGeneration       JobType = "QA_GENERATION"
	JobTypeBulkURLImport      JobType = "BULK_URL_IMPORT"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

type Bookmark struct {
	ID           string    `db:"id" json:"id"`
	URL          string    `db:"url" json:"url"`
	Title        string    `db:"title" json:"title"`
	HTML         string    `db:"html" json:"html,omitempty"`
	Status       Status    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"errorMessage,omitempty"`
	ErrorStack   string    `db:"error_stack" json:"errorStack,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Markdown is the readable rendition of a bookmark's page. One row per
// bookmark, never rewritten once created.
type Markdown struct {
	ID         string    `db:"id" json:"id"`
	BookmarkID string    `db:"bookmark_id" json:"bookmarkId"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// QuestionAnswer is one generated Q&A pair with its three embedding
// vectors (question alone, answer alone, both combined).
type QuestionAnswer struct {
	ID                string    `json:"id"`
	BookmarkID        string    `json:"bookmarkId"`
	Question          string    `json:"question"`
	Answer            string    `json:"answer"`
	EmbeddingQuestion []float32 `json:"-"`
	EmbeddingAnswer   []float32 `json:"-"`
	EmbeddingBoth     []float32 `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Job is one entry in the processing audit ledger. A pipeline stage that
// actually runs writes exactly one Job; skipped stages write none.
type Job struct {
	ID         string    `db:"id" json:"id"`
	Type       JobType   `db:"type" json:"type"`
	Status     JobStatus `db:"status" json:"status"`
	BookmarkID string    `db:"bookmark_id" json:"bookmarkId,omitempty"`
	Metadata   string    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// SyncSettings is the persisted WebDAV configuration, stored as JSON in
// the metadata table so the HTTP API can change it at runtime.
type SyncSettings struct {
	WebdavEnabled       bool   `json:"webdavEnabled"`
	WebdavURL           string `json:"webdavUrl"`
	WebdavUsername      string `json:"webdavUsername"`
	WebdavPassword      string `json:"webdavPassword"`
	WebdavPath          string `json:"webdavPath"`
	WebdavSyncInterval  int    `json:"webdavSyncInterval"`
	WebdavLastSyncTime  string `json:"webdavLastSyncTime,omitempty"`
	WebdavLastSyncError string `json:"webdavLastSyncError,omitempty"`
}

// SearchResult is a bookmark hit scored by its best-matching Q&A pair.
type SearchResult struct {
	BookmarkID string  `json:"bookmarkId"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
}
