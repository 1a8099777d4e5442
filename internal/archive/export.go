package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/markhub/internal/db"
)

// Version is the snapshot format version this build reads and writes.
const Version = 1

// Payload is the portable snapshot exchanged with the WebDAV remote and
// the import/export commands. Embeddings are not carried; they are
// derivable and devices regenerate them locally.
type Payload struct {
	Version       int              `json:"version"`
	ExportedAt    time.Time        `json:"exportedAt"`
	BookmarkCount int              `json:"bookmarkCount"`
	Bookmarks     []BookmarkRecord `json:"bookmarks"`
}

type BookmarkRecord struct {
	ID               string       `json:"id"`
	URL              string       `json:"url"`
	Title            string       `json:"title"`
	HTML             string       `json:"html,omitempty"`
	Status           string       `json:"status"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	Markdown         string       `json:"markdown,omitempty"`
	QuestionsAnswers []PairRecord `json:"questionsAnswers"`
}

type PairRecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ContentHash fingerprints the snapshot's content. The export timestamp
// is excluded on purpose: two exports of identical data must hash the
// same so sync can detect no-change.
func (p *Payload) ContentHash() (string, error) {
	raw, err := json.Marshal(p.Bookmarks)
	if err != nil {
		return "", fmt.Errorf("failed to hash payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Encode renders the snapshot as indented JSON.
func Encode(p *Payload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	return &p, nil
}

// Exporter builds snapshots from the store.
type Exporter struct {
	store *db.Store
}

func NewExporter(store *db.Store) *Exporter {
	return &Exporter{store: store}
}

func (e *Exporter) Export(ctx context.Context) (*Payload, error) {
	bookmarks, err := e.store.ListBookmarks(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]BookmarkRecord, 0, len(bookmarks))
	for _, b := range bookmarks {
		rec := BookmarkRecord{
			ID:               b.ID,
			URL:              b.URL,
			Title:            b.Title,
			HTML:             b.HTML,
			Status:           string(b.Status),
			CreatedAt:        b.CreatedAt,
			UpdatedAt:        b.UpdatedAt,
			QuestionsAnswers: []PairRecord{},
		}

		md, err := e.store.GetMarkdown(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if md != nil {
			rec.Markdown = md.Content
		}

		qas, err := e.store.QuestionAnswersByBookmark(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		for _, qa := range qas {
			rec.QuestionsAnswers = append(rec.QuestionsAnswers, PairRecord{
				Question: qa.Question,
				Answer:   qa.Answer,
			})
		}

		records = append(records, rec)
	}

	return &Payload{
		Version:       Version,
		ExportedAt:    time.Now().UTC(),
		BookmarkCount: len(records),
		Bookmarks:     records,
	}, nil
}
