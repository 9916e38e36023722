package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmbedding marks any failure of the embedding backend, including a
// vector of unexpected dimension.
var ErrEmbedding = errors.New("embedding failed")

type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

// NewEmbedder builds an embedder pinned to a fixed output dimension. A
// backend returning any other dimension is treated as an error, not trimmed.
func NewEmbedder(ctx context.Context, apiKey, model string, dim int, opts ...option.ClientOption) (*Embedder, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model, dim: dim}, nil
}

// Dimension returns the vector dimension this embedder is configured for.
func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))

	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding received", ErrEmbedding)
	}
	if e.dim > 0 && len(res.Embedding.Values) != e.dim {
		return nil, fmt.Errorf("%w: dimension mismatch, got %d want %d", ErrEmbedding, len(res.Embedding.Values), e.dim)
	}
	return res.Embedding.Values, nil
}
