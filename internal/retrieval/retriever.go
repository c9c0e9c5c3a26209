package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/salespatriot/fscflow/internal/service"

	"github.com/salespatriot/fscflow/internal/model"
)

// Retrieval defaults.
const (
	// DefaultTopK bounds how many groups the narrowing step keeps.
	DefaultTopK = 10
	// DefaultEmbedCharLimit truncates embedding input to respect provider
	// request limits.
	DefaultEmbedCharLimit = 32000
)

// Retriever embeds a free-form company summary and returns the most similar
// FSC groups from the vector index. It exists to shrink a taxonomy of
// hundreds of categories to a handful of plausible groups before the
// token-costly selection call.
type Retriever struct {
	embedder  service.Embedder
	index     service.Index
	logger    *slog.Logger
	charLimit int
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder service.Embedder, index service.Index, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		logger:    logger,
		charLimit: DefaultEmbedCharLimit,
	}
}

// TopGroups returns up to k groups ranked by descending similarity to the
// query text. An empty result is returned as-is; the caller decides how to
// fall back.
func (r *Retriever) TopGroups(ctx context.Context, queryText string, k int) ([]model.GroupMatch, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(queryText) > r.charLimit {
		queryText = queryText[:r.charLimit]
	}

	vector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query group index: %w", err)
	}

	r.logger.Debug("group retrieval complete",
		"query_chars", len(queryText),
		"top_k", k,
		"groups", len(matches))

	return matches, nil
}
