package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/user/markhub/internal/config"
)

// Embedder generates embedding vectors for batches of text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder generates embeddings with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	cfg    *config.Config
	client *openai.Client
}

func NewOpenAIEmbedder(cfg *config.Config) (*OpenAIEmbedder, error) {
	apiKey := cfg.Embeddings.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	return &OpenAIEmbedder{
		cfg:    cfg,
		client: openai.NewClient(apiKey),
	}, nil
}

// EmbedBatch embeds all texts in a single API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	// Truncate texts that would blow the embedding model's token limit
	const maxChars = 30000
	truncated := make([]string, len(texts))
	for i, t := range texts {
		if len(t) > maxChars {
			truncated[i] = t[:maxChars]
		} else {
			truncated[i] = t
		}
	}

	model := e.cfg.Embeddings.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: truncated,
	})

	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}
