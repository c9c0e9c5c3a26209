package taxonomy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/salespatriot/fscflow/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeText lowercases text and collapses runs of whitespace to a single
// space. Both sides of every keyword comparison go through this.
func normalizeText(text string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(text), " ")
}

// MatchOptions controls lexical matching. Zero values select the defaults.
type MatchOptions struct {
	MinScore   int
	MaxResults int
}

// Default matcher parameters.
const (
	DefaultMinScore   = 1
	DefaultMaxResults = 20
)

// Matcher scores free text against the taxonomy's keyword sets. It is
// deterministic and performs no I/O; it is the fallback classifier when no
// generative capability is configured.
type Matcher struct {
	store *Store
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// Score ranks categories by how many of their keywords occur as substrings
// of the normalized text. A keyword counts once regardless of repeat
// occurrences; multi-word keywords must match as whole phrases.
func (m *Matcher) Score(text string, opts MatchOptions) []model.KeywordMatch {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	normalized := normalizeText(text)

	var results []model.KeywordMatch
	for _, cat := range m.store.categories {
		score := 0
		var matched []string
		for _, kw := range cat.Keywords {
			if strings.Contains(normalized, normalizeText(kw)) {
				score++
				matched = append(matched, kw)
			}
		}
		if score >= minScore && len(matched) > 0 {
			results = append(results, model.KeywordMatch{
				Code:            cat.Code,
				Title:           cat.Title,
				Score:           score,
				MatchedKeywords: matched,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return len(results[i].MatchedKeywords) > len(results[j].MatchedKeywords)
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
