// Package engine implements the classification pipeline that turns a
// company profile into a ranked set of FSC category matches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/retrieval"
	"github.com/salespatriot/fscflow/internal/service"
	"github.com/salespatriot/fscflow/internal/taxonomy"
)

// Config holds configuration options for the classification engine.
type Config struct {
	TopK       int
	CacheTTL   time.Duration
	Thresholds retrieval.Thresholds
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TopK:       retrieval.DefaultTopK,
		CacheTTL:   time.Hour,
		Thresholds: retrieval.DefaultThresholds(),
	}
}

// Engine orchestrates research, retrieval-narrowed selection, and result
// assembly for one classification request at a time. It is safe for
// concurrent use; the result cache is its only shared mutable state.
type Engine struct {
	store      *taxonomy.Store
	matcher    *taxonomy.Matcher
	research   service.ResearchClient
	selection  service.SelectionClient
	analyzer   service.Analyzer
	retriever  *retrieval.Retriever
	cache      *resultCache
	logger     *slog.Logger
	thresholds retrieval.Thresholds
	topK       int
}

// Deps are the engine's collaborators. Selection and Analyzer may be nil:
// without a selection capability the engine runs the lexical pipeline.
type Deps struct {
	Store     *taxonomy.Store
	Research  service.ResearchClient
	Selection service.SelectionClient
	Analyzer  service.Analyzer
	Retriever *retrieval.Retriever
	Logger    *slog.Logger
}

// New creates an engine with the default configuration.
func New(deps Deps) *Engine {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(deps Deps, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      deps.Store,
		matcher:    taxonomy.NewMatcher(deps.Store),
		research:   deps.Research,
		selection:  deps.Selection,
		analyzer:   deps.Analyzer,
		retriever:  deps.Retriever,
		cache:      newResultCache(cfg.CacheTTL),
		logger:     logger,
		thresholds: cfg.Thresholds,
		topK:       cfg.TopK,
	}
}

// Close releases the engine's background resources.
func (e *Engine) Close() {
	e.cache.Close()
}

// Classify runs the full pipeline: cache check, research, retrieval
// narrowing, selection, and confidence-ranked assembly. Errors from the
// research or selection stage abort the run; the engine never retries.
func (e *Engine) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResult, error) {
	if err := req.Validate(); err != nil {
		return model.ClassificationResult{}, err
	}

	key := fingerprint(req)
	if cached, ok := e.cache.get(key); ok {
		e.logger.Debug("cache hit", "company", req.CompanyName, "fingerprint", key[:12])
		return cached, nil
	}

	if e.research == nil {
		return model.ClassificationResult{}, fmt.Errorf("%w: no research capability configured", common.ErrMissingConfig)
	}

	description, err := e.research.Research(ctx, req)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("research failed: %w", err)
	}
	if strings.TrimSpace(description) == "" {
		return model.ClassificationResult{}, common.NewSchemaError("research", fmt.Errorf("empty company description"))
	}

	var result model.ClassificationResult
	if e.selection == nil {
		result = e.classifyLexical(description)
	} else {
		result, err = e.classifyNarrowed(ctx, description)
		if err != nil {
			return model.ClassificationResult{}, err
		}
	}

	e.cache.put(key, result)

	e.logger.Info("classification complete",
		"company", req.CompanyName,
		"matches", len(result.Matches),
		"pipeline", e.pipelineName())

	return result, nil
}

// ClassifySingleCall runs the combined research+selection pipeline in one
// generative call, with the full taxonomy as the candidate list and the
// model's own confidence tiers. Out-of-taxonomy codes are still discarded.
func (e *Engine) ClassifySingleCall(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResult, error) {
	if err := req.Validate(); err != nil {
		return model.ClassificationResult{}, err
	}
	if e.analyzer == nil {
		return model.ClassificationResult{}, fmt.Errorf("%w: configured provider does not support single-call analysis", common.ErrMissingConfig)
	}

	key := "single:" + fingerprint(req)
	if cached, ok := e.cache.get(key); ok {
		return cached, nil
	}

	raw, err := e.analyzer.AnalyzeCompany(ctx, req, e.store.All())
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("analysis failed: %w", err)
	}

	result := model.ClassificationResult{CompanyDescription: raw.CompanyDescription}
	seen := make(map[string]bool)
	for _, m := range raw.Matches {
		cat, ok := e.store.ByCode(m.Code)
		if !ok {
			e.logger.Debug("discarding out-of-taxonomy code", "code", m.Code)
			continue
		}
		if seen[m.Code] {
			continue
		}
		seen[m.Code] = true
		m.Title = cat.Title
		result.Matches = append(result.Matches, m)
	}

	e.cache.put(key, result)
	return result, nil
}

// classifyNarrowed runs stages 3-5: embed the description, narrow to the
// top groups, select codes from the candidates, and assemble the result.
func (e *Engine) classifyNarrowed(ctx context.Context, description string) (model.ClassificationResult, error) {
	groups, err := e.retriever.TopGroups(ctx, description, e.topK)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("group retrieval failed: %w", err)
	}

	groupScores := make(map[string]float64, len(groups))
	prefixes := make([]string, 0, len(groups))
	for _, g := range groups {
		groupScores[g.Prefix] = g.Score
		prefixes = append(prefixes, g.Prefix)
	}

	candidates := e.store.InGroups(prefixes)
	if len(candidates) == 0 {
		// An empty candidate set would make correct classification
		// impossible; widen to the full taxonomy instead.
		e.logger.Warn("group retrieval returned no usable groups, falling back to full taxonomy", "retrieved", len(groups))
		candidates = e.store.All()
	}

	picks, err := e.selection.Select(ctx, description, candidates)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("selection failed: %w", err)
	}

	return model.ClassificationResult{
		CompanyDescription: description,
		Matches:            e.assemble(picks, candidates, groupScores),
	}, nil
}

// scoredMatch carries the derived sort key alongside the match so the
// comparator never re-derives scores.
type scoredMatch struct {
	match      model.CategoryMatch
	groupScore float64
}

// assemble filters picks against the candidate set, attaches confidence
// from each category's group retrieval score, and orders the result most
// confident first.
func (e *Engine) assemble(picks []model.CategoryPick, candidates []model.Category, groupScores map[string]float64) []model.CategoryMatch {
	candidateByCode := make(map[string]model.Category, len(candidates))
	for _, c := range candidates {
		candidateByCode[c.Code] = c
	}

	scored := make([]scoredMatch, 0, len(picks))
	seen := make(map[string]bool, len(picks))
	for _, pick := range picks {
		cat, ok := candidateByCode[pick.Code]
		if !ok {
			// The selection capability is untrusted to respect the
			// candidate list; silently drop strays.
			e.logger.Debug("discarding out-of-candidate code", "code", pick.Code)
			continue
		}
		if seen[pick.Code] {
			continue
		}
		seen[pick.Code] = true

		score := groupScores[cat.GroupPrefix()]
		scored = append(scored, scoredMatch{
			groupScore: score,
			match: model.CategoryMatch{
				Code:       cat.Code,
				Title:      cat.Title,
				Reason:     pick.Reason,
				Confidence: e.thresholds.For(score),
			},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		ri, rj := scored[i].match.Confidence.Rank(), scored[j].match.Confidence.Rank()
		if ri != rj {
			return ri < rj
		}
		return scored[i].groupScore > scored[j].groupScore
	})

	matches := make([]model.CategoryMatch, len(scored))
	for i, s := range scored {
		matches[i] = s.match
	}
	return matches
}

// Lexical confidence cutoffs: two or more keyword hits is a strong signal.
const (
	lexicalHighScore   = 2
	lexicalMediumScore = 1
)

// classifyLexical maps research (or scraped) text straight through the
// keyword matcher. There is no retrieval step: lexical matching already
// operates over the full taxonomy.
func (e *Engine) classifyLexical(text string) model.ClassificationResult {
	keywordMatches := e.matcher.Score(text, taxonomy.MatchOptions{})

	matches := make([]model.CategoryMatch, len(keywordMatches))
	for i, m := range keywordMatches {
		matches[i] = model.CategoryMatch{
			Code:       m.Code,
			Title:      m.Title,
			Reason:     "Matched keywords: " + strings.Join(m.MatchedKeywords, ", "),
			Confidence: lexicalConfidence(m.Score),
		}
	}

	return model.ClassificationResult{
		CompanyDescription: summarize(text),
		Matches:            matches,
	}
}

func lexicalConfidence(score int) model.Confidence {
	switch {
	case score >= lexicalHighScore:
		return model.ConfidenceHigh
	case score >= lexicalMediumScore:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// summarize truncates raw page text to a short description-sized excerpt.
func summarize(text string) string {
	const maxLen = 400
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "…"
}

func (e *Engine) pipelineName() string {
	if e.selection == nil {
		return "lexical"
	}
	return "narrowed"
}
