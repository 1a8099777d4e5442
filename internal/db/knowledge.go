package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const markdownColumns = `id, bookmark_id, content, created_at, updated_at`

// GetMarkdown returns the markdown row for a bookmark, or nil when none
// has been generated yet.
func (s *Store) GetMarkdown(ctx context.Context, bookmarkID string) (*Markdown, error) {
	var m Markdown
	query := `SELECT ` + markdownColumns + ` FROM markdowns WHERE bookmark_id = ?`
	err := s.db.GetContext(ctx, &m, query, bookmarkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get markdown: %w", err)
	}
	return &m, nil
}

func (s *Store) CreateMarkdown(ctx context.Context, m *Markdown) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	query := `INSERT INTO markdowns (id, bookmark_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, m.ID, m.BookmarkID, m.Content, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create markdown: %w", err)
	}
	return nil
}

// HasQuestionAnswers reports whether any Q&A rows exist for a bookmark.
// The generation stage is skipped entirely when they do.
func (s *Store) HasQuestionAnswers(ctx context.Context, bookmarkID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM question_answers WHERE bookmark_id = ?`, bookmarkID)
	if err != nil {
		return false, fmt.Errorf("failed to count question answers: %w", err)
	}
	return n > 0, nil
}

// CreateQuestionAnswers inserts all rows in one transaction so a failed
// batch leaves no partial Q&A set behind.
func (s *Store) CreateQuestionAnswers(ctx context.Context, qas []*QuestionAnswer) error {
	if len(qas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO question_answers (id, bookmark_id, question, answer, embedding_question, embedding_answer, embedding_both, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	for _, qa := range qas {
		if qa.ID == "" {
			qa.ID = uuid.NewString()
		}
		if qa.CreatedAt.IsZero() {
			qa.CreatedAt = now
		}
		qa.UpdatedAt = now

		_, err := tx.ExecContext(ctx, query,
			qa.ID, qa.BookmarkID, qa.Question, qa.Answer,
			float32SliceToBytes(qa.EmbeddingQuestion),
			float32SliceToBytes(qa.EmbeddingAnswer),
			float32SliceToBytes(qa.EmbeddingBoth),
			qa.CreatedAt, qa.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert question answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit question answers: %w", err)
	}
	return nil
}

type qaRow struct {
	ID                string    `db:"id"`
	BookmarkID        string    `db:"bookmark_id"`
	Question          string    `db:"question"`
	Answer            string    `db:"answer"`
	EmbeddingQuestion []byte    `db:"embedding_question"`
	EmbeddingAnswer   []byte    `db:"embedding_answer"`
	EmbeddingBoth     []byte    `db:"embedding_both"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r qaRow) toModel() QuestionAnswer {
	return QuestionAnswer{
		ID:                r.ID,
		BookmarkID:        r.BookmarkID,
		Question:          r.Question,
		Answer:            r.Answer,
		EmbeddingQuestion: bytesToFloat32Slice(r.EmbeddingQuestion),
		EmbeddingAnswer:   bytesToFloat32Slice(r.EmbeddingAnswer),
		EmbeddingBoth:     bytesToFloat32Slice(r.EmbeddingBoth),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

const qaColumns = `id, bookmark_id, question, answer, embedding_question, embedding_answer, embedding_both, created_at, updated_at`

func (s *Store) QuestionAnswersByBookmark(ctx context.Context, bookmarkID string) ([]QuestionAnswer, error) {
	var rows []qaRow
	query := `SELECT ` + qaColumns + ` FROM question_answers WHERE bookmark_id = ? ORDER BY created_at, rowid`
	if err := s.db.SelectContext(ctx, &rows, query, bookmarkID); err != nil {
		return nil, fmt.Errorf("failed to list question answers: %w", err)
	}

	qas := make([]QuestionAnswer, 0, len(rows))
	for _, r := range rows {
		qas = append(qas, r.toModel())
	}
	return qas, nil
}

func (s *Store) CountQuestionAnswers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM question_answers`); err != nil {
		return 0, fmt.Errorf("failed to count question answers: %w", err)
	}
	return n, nil
}
