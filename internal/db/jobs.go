package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, type, status, bookmark_id, metadata, created_at, updated_at`

func (s *Store) CreateJob(ctx context.Context, j *Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	if j.Metadata == "" {
		j.Metadata = "{}"
	}

	query := `INSERT INTO jobs (id, type, status, bookmark_id, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, j.ID, j.Type, j.Status, j.BookmarkID, j.Metadata, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// UpdateJob moves a job to a new status. An empty metadata argument
// leaves the stored metadata untouched.
func (s *Store) UpdateJob(ctx context.Context, id string, status JobStatus, metadata string) error {
	if metadata == "" {
		query := `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`
		if _, err := s.db.ExecContext(ctx, query, status, time.Now(), id); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		return nil
	}

	query := `UPDATE jobs SET status = ?, metadata = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, status, metadata, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status JobStatus, limit int) ([]Job, error) {
	var jobs []Job
	var err error
	if status == "" {
		query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`
		err = s.db.SelectContext(ctx, &jobs, query, limit)
	} else {
		query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`
		err = s.db.SelectContext(ctx, &jobs, query, status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// JobsForBookmark returns a bookmark's ledger entries in creation order.
func (s *Store) JobsForBookmark(ctx context.Context, bookmarkID string) ([]Job, error) {
	var jobs []Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE bookmark_id = ? ORDER BY created_at, rowid`
	if err := s.db.SelectContext(ctx, &jobs, query, bookmarkID); err != nil {
		return nil, fmt.Errorf("failed to list jobs for bookmark: %w", err)
	}
	return jobs, nil
}
