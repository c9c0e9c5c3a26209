// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/salespatriot/fscflow/internal/model"
)

// ResearchClient produces a company description by consulting the company's
// declared web presence and any attached documents. Implementations are
// opaque to the engine; failures abort the classification.
type ResearchClient interface {
	Research(ctx context.Context, req model.ClassificationRequest) (string, error)
}

// SelectionClient chooses categories for a company, constrained to the
// provided candidate list. The constraint is advisory: callers must
// re-validate every returned code against the candidates.
type SelectionClient interface {
	Select(ctx context.Context, companyDescription string, candidates []model.Category) ([]model.CategoryPick, error)
}

// Analyzer performs research and selection in a single generative call.
// It trades the retrieval-narrowed candidate set for one round trip.
type Analyzer interface {
	AnalyzeCompany(ctx context.Context, req model.ClassificationRequest, candidates []model.Category) (model.ClassificationResult, error)
}

// Embedder produces fixed-dimension vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// GroupVector pairs a group prefix with its embedding and metadata for
// upserting into a vector index.
type GroupVector struct {
	Prefix string
	Name   string
	Values []float32
}

// Index is the group-level vector index. Query returns matches ranked by
// descending similarity; an empty result is not an error.
type Index interface {
	Upsert(ctx context.Context, vectors []GroupVector) error
	Query(ctx context.Context, vector []float32, topK int) ([]model.GroupMatch, error)
}

// Storage defines the contract for the classification history store.
type Storage interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
