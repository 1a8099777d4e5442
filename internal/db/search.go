package db

import (
	"context"
	"fmt"
	"math"
	"sort"
)

type qaEmbeddingRow struct {
	BookmarkID    string `db:"bookmark_id"`
	Question      string `db:"question"`
	Answer        string `db:"answer"`
	EmbeddingBoth []byte `db:"embedding_both"`
	URL           string `db:"url"`
	Title         string `db:"title"`
}

// SearchByEmbedding scores every stored Q&A pair against the query
// embedding and returns the best-matching bookmarks, one result per
// bookmark carrying its highest-scoring pair. Brute force is fine at
// personal-collection scale.
func (s *Store) SearchByEmbedding(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	var rows []qaEmbeddingRow
	query := `
	SELECT qa.bookmark_id, qa.question, qa.answer, qa.embedding_both, b.url, b.title
	FROM question_answers qa
	JOIN bookmarks b ON b.id = qa.bookmark_id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	best := make(map[string]SearchResult)
	for _, r := range rows {
		emb := bytesToFloat32Slice(r.EmbeddingBoth)
		if len(emb) == 0 {
			continue
		}
		score := cosineSimilarity(queryEmbedding, emb)
		if cur, ok := best[r.BookmarkID]; !ok || score > cur.Score {
			best[r.BookmarkID] = SearchResult{
				BookmarkID: r.BookmarkID,
				URL:        r.URL,
				Title:      r.Title,
				Question:   r.Question,
				Answer:     r.Answer,
				Score:      score,
			}
		}
	}

	results := make([]SearchResult, 0, len(best))
	for _, sr := range best {
		results = append(results, sr)
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
