package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/retrieval"
	"github.com/salespatriot/fscflow/internal/service"
	"github.com/salespatriot/fscflow/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTaxonomy = `{
	"groups": {
		"56": {"name": "Construction Materials", "keywords": ["construction"]},
		"80": {"name": "Paints & Adhesives", "keywords": ["paint", "adhesive"]},
		"81": {"name": "Containers", "keywords": ["container"]},
		"99": {"name": "Miscellaneous", "keywords": []}
	},
	"codes": [
		{"code": "5610", "title": "Mineral Construction Materials", "keywords": ["cement", "concrete", "aggregate"]},
		{"code": "8010", "title": "Paints", "keywords": ["paint", "coating"]},
		{"code": "8040", "title": "Adhesives", "keywords": ["adhesive", "glue", "sealant"]},
		{"code": "8105", "title": "Bags and Sacks", "keywords": ["bag", "sack"]},
		{"code": "9905", "title": "Signs and Placards", "keywords": ["sign", "placard"]}
	]
}`

func testStore(t *testing.T) *taxonomy.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsc.json")
	require.NoError(t, os.WriteFile(path, []byte(testTaxonomy), 0o644))
	store, err := taxonomy.LoadFile(path)
	require.NoError(t, err)
	return store
}

type stubResearch struct {
	desc  string
	err   error
	calls int
}

func (s *stubResearch) Research(context.Context, model.ClassificationRequest) (string, error) {
	s.calls++
	return s.desc, s.err
}

type stubSelection struct {
	picks          []model.CategoryPick
	err            error
	calls          int
	lastCandidates []model.Category
}

func (s *stubSelection) Select(_ context.Context, _ string, candidates []model.Category) ([]model.CategoryPick, error) {
	s.calls++
	s.lastCandidates = candidates
	return s.picks, s.err
}

type stubAnalyzer struct {
	result model.ClassificationResult
	err    error
	calls  int
}

func (s *stubAnalyzer) AnalyzeCompany(context.Context, model.ClassificationRequest, []model.Category) (model.ClassificationResult, error) {
	s.calls++
	return s.result, s.err
}

type fixedEmbedder struct {
	vector []float32
	calls  int
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

func (f *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		f.calls++
		out[i] = f.vector
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return len(f.vector) }

// groupIndex seeds a memory index so that each group's cosine similarity to
// the query vector (1,0,0) equals its given score.
func groupIndex(t *testing.T, scores map[string]float64) *retrieval.MemoryIndex {
	t.Helper()
	idx, err := retrieval.NewMemoryIndex(3)
	require.NoError(t, err)
	vectors := make([]service.GroupVector, 0, len(scores))
	for prefix, score := range scores {
		y := math.Sqrt(1 - score*score)
		vectors = append(vectors, service.GroupVector{
			Prefix: prefix,
			Values: []float32{float32(score), float32(y), 0},
		})
	}
	require.NoError(t, idx.Upsert(context.Background(), vectors))
	return idx
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClassifyNarrowed(t *testing.T) {
	store := testStore(t)
	research := &stubResearch{desc: "Acme makes industrial glue, paint and bags."}
	selection := &stubSelection{picks: []model.CategoryPick{
		{Code: "8105", Title: "Bags and Sacks", Reason: "sells bags"},
		{Code: "8040", Title: "Adhesives", Reason: "makes glue"},
		{Code: "9905", Title: "Signs and Placards", Reason: "stray pick"},
		{Code: "8040", Title: "Adhesives", Reason: "duplicate"},
		{Code: "5610", Title: "Mineral Construction Materials", Reason: "supplies cement"},
	}}
	embedder := &fixedEmbedder{vector: []float32{1, 0, 0}}
	idx := groupIndex(t, map[string]float64{"56": 0.62, "80": 0.45, "81": 0.35})

	eng := New(Deps{
		Store:     store,
		Research:  research,
		Selection: selection,
		Retriever: retrieval.NewRetriever(embedder, idx, quietLogger()),
		Logger:    quietLogger(),
	})
	defer eng.Close()

	result, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme makes industrial glue, paint and bags.", result.CompanyDescription)

	// Group 99 was not retrieved, so 9905 is not a candidate and the stray
	// pick is dropped; the duplicate 8040 collapses.
	require.Len(t, result.Matches, 3)

	// Ordered by confidence tier, then by group retrieval score.
	assert.Equal(t, "5610", result.Matches[0].Code)
	assert.Equal(t, model.ConfidenceHigh, result.Matches[0].Confidence)
	assert.Equal(t, "8040", result.Matches[1].Code)
	assert.Equal(t, model.ConfidenceMedium, result.Matches[1].Confidence)
	assert.Equal(t, "8105", result.Matches[2].Code)
	assert.Equal(t, model.ConfidenceMedium, result.Matches[2].Confidence)

	// Titles come from the taxonomy and reasons from the picks.
	assert.Equal(t, "Mineral Construction Materials", result.Matches[0].Title)
	assert.Equal(t, "supplies cement", result.Matches[0].Reason)

	// Candidates handed to selection were narrowed to the retrieved groups.
	codes := make([]string, len(selection.lastCandidates))
	for i, c := range selection.lastCandidates {
		codes[i] = c.Code
	}
	assert.ElementsMatch(t, []string{"5610", "8010", "8040", "8105"}, codes)
}

func TestClassifyCacheIdempotence(t *testing.T) {
	store := testStore(t)
	research := &stubResearch{desc: "Acme makes glue."}
	selection := &stubSelection{picks: []model.CategoryPick{{Code: "8040", Reason: "r"}}}
	embedder := &fixedEmbedder{vector: []float32{1, 0, 0}}
	idx := groupIndex(t, map[string]float64{"80": 0.62})

	eng := New(Deps{
		Store:     store,
		Research:  research,
		Selection: selection,
		Retriever: retrieval.NewRetriever(embedder, idx, quietLogger()),
		Logger:    quietLogger(),
	})
	defer eng.Close()

	req := model.ClassificationRequest{CompanyName: "Acme", AttachmentRefs: []string{"a", "b"}}
	first, err := eng.Classify(context.Background(), req)
	require.NoError(t, err)

	// An equivalent request must be served from cache without re-running
	// research, retrieval, or selection.
	equivalent := model.ClassificationRequest{CompanyName: "  ACME ", AttachmentRefs: []string{"b", "a"}}
	second, err := eng.Classify(context.Background(), equivalent)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, research.calls)
	assert.Equal(t, 1, selection.calls)
	assert.Equal(t, 1, embedder.calls)

	// A different company is a different fingerprint.
	_, err = eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Other Co"})
	require.NoError(t, err)
	assert.Equal(t, 2, research.calls)
}

func TestClassifyEmptyRetrievalFallsBackToFullTaxonomy(t *testing.T) {
	store := testStore(t)
	selection := &stubSelection{picks: []model.CategoryPick{{Code: "9905", Reason: "makes signs"}}}
	embedder := &fixedEmbedder{vector: []float32{1, 0, 0}}
	idx, err := retrieval.NewMemoryIndex(3)
	require.NoError(t, err)

	eng := New(Deps{
		Store:     store,
		Research:  &stubResearch{desc: "Acme makes road signs."},
		Selection: selection,
		Retriever: retrieval.NewRetriever(embedder, idx, quietLogger()),
		Logger:    quietLogger(),
	})
	defer eng.Close()

	result, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
	require.NoError(t, err)

	// With an empty index the candidate set widens to every category.
	assert.Len(t, selection.lastCandidates, store.Size())

	// A group that was never retrieved scores zero and lands in low.
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "9905", result.Matches[0].Code)
	assert.Equal(t, model.ConfidenceLow, result.Matches[0].Confidence)
}

func TestClassifyValidation(t *testing.T) {
	research := &stubResearch{desc: "irrelevant"}
	eng := New(Deps{Store: testStore(t), Research: research, Logger: quietLogger()})
	defer eng.Close()

	_, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "   "})
	assert.ErrorIs(t, err, model.ErrMissingCompanyName)
	assert.Zero(t, research.calls)
}

func TestClassifyStageErrors(t *testing.T) {
	store := testStore(t)

	t.Run("no research capability", func(t *testing.T) {
		eng := New(Deps{Store: store, Logger: quietLogger()})
		defer eng.Close()

		_, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("research failure aborts", func(t *testing.T) {
		eng := New(Deps{
			Store:    store,
			Research: &stubResearch{err: errors.New("upstream down")},
			Logger:   quietLogger(),
		})
		defer eng.Close()

		_, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
		assert.ErrorContains(t, err, "research failed")
	})

	t.Run("blank description is a schema error", func(t *testing.T) {
		eng := New(Deps{
			Store:    store,
			Research: &stubResearch{desc: "   "},
			Logger:   quietLogger(),
		})
		defer eng.Close()

		_, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
		require.Error(t, err)
		assert.True(t, common.IsSchema(err))
	})

	t.Run("selection failure aborts", func(t *testing.T) {
		embedder := &fixedEmbedder{vector: []float32{1, 0, 0}}
		idx := groupIndex(t, map[string]float64{"80": 0.62})
		eng := New(Deps{
			Store:     store,
			Research:  &stubResearch{desc: "Acme makes glue."},
			Selection: &stubSelection{err: errors.New("llm unavailable")},
			Retriever: retrieval.NewRetriever(embedder, idx, quietLogger()),
			Logger:    quietLogger(),
		})
		defer eng.Close()

		_, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
		assert.ErrorContains(t, err, "selection failed")
	})
}

func TestClassifyLexicalPipeline(t *testing.T) {
	eng := New(Deps{
		Store:    testStore(t),
		Research: &stubResearch{desc: "We manufacture industrial Glue and Sealants for aerospace."},
		Logger:   quietLogger(),
	})
	defer eng.Close()

	result, err := eng.Classify(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "8040", result.Matches[0].Code)
	assert.Equal(t, model.ConfidenceHigh, result.Matches[0].Confidence)
	assert.Equal(t, "Matched keywords: glue, sealant", result.Matches[0].Reason)
}

func TestLexicalConfidence(t *testing.T) {
	assert.Equal(t, model.ConfidenceHigh, lexicalConfidence(3))
	assert.Equal(t, model.ConfidenceHigh, lexicalConfidence(2))
	assert.Equal(t, model.ConfidenceMedium, lexicalConfidence(1))
	assert.Equal(t, model.ConfidenceLow, lexicalConfidence(0))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short text", summarize("  short   text  "))

	long := ""
	for range 100 {
		long += "lengthy "
	}
	got := summarize(long)
	assert.LessOrEqual(t, len(got), 410)
	assert.Contains(t, got, "…")
}

func TestClassifySingleCall(t *testing.T) {
	store := testStore(t)
	analyzer := &stubAnalyzer{result: model.ClassificationResult{
		CompanyDescription: "Acme makes glue and signs.",
		Matches: []model.CategoryMatch{
			{Code: "8040", Title: "Wrong Title", Reason: "r", Confidence: model.ConfidenceHigh},
			{Code: "0000", Title: "Invented", Reason: "r", Confidence: model.ConfidenceHigh},
			{Code: "8040", Title: "Adhesives", Reason: "duplicate", Confidence: model.ConfidenceLow},
			{Code: "9905", Title: "Signs and Placards", Reason: "r", Confidence: model.ConfidenceMedium},
		},
	}}

	eng := New(Deps{Store: store, Analyzer: analyzer, Logger: quietLogger()})
	defer eng.Close()

	req := model.ClassificationRequest{CompanyName: "Acme"}
	result, err := eng.ClassifySingleCall(context.Background(), req)
	require.NoError(t, err)

	// Out-of-taxonomy codes drop, duplicates collapse, titles are remapped
	// to the canonical taxonomy title.
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "8040", result.Matches[0].Code)
	assert.Equal(t, "Adhesives", result.Matches[0].Title)
	assert.Equal(t, "9905", result.Matches[1].Code)

	// Single-call results are memoized under their own key.
	_, err = eng.ClassifySingleCall(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.calls)
}

func TestClassifySingleCallRequiresAnalyzer(t *testing.T) {
	eng := New(Deps{Store: testStore(t), Logger: quietLogger()})
	defer eng.Close()

	_, err := eng.ClassifySingleCall(context.Background(), model.ClassificationRequest{CompanyName: "Acme"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
