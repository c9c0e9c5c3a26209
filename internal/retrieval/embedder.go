package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/salespatriot/fscflow/internal/common"

	openai "github.com/sashabaranov/go-openai"
)

// Embedding defaults matching the offline group seeding.
const (
	DefaultEmbeddingModel      = string(openai.SmallEmbedding3)
	DefaultEmbeddingDimensions = 1024
)

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates an embedder. Model and dimensions fall back to
// the defaults used when the group index was seeded; the two must agree or
// retrieval scores are meaningless.
func NewOpenAIEmbedder(apiKey, model string, dimensions int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required for embeddings", common.ErrMissingConfig)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, common.NewStatusError("embed", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, common.NewTransportError("embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, common.NewSchemaError("embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != e.dimensions {
			return nil, common.NewSchemaError("embed", fmt.Errorf("expected %d dimensions, got %d", e.dimensions, len(d.Embedding)))
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the fixed embedding length.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
