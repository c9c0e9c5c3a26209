// Package retrieval narrows the FSC taxonomy to a shortlist of candidate
// groups by embedding a company summary and querying a group-level vector
// index, and derives confidence tiers from the retrieval similarity.
package retrieval

import "github.com/salespatriot/fscflow/internal/model"

// Thresholds maps a group similarity score to a confidence tier. The default
// cutoffs are empirically chosen and treated as configuration, not
// invariants.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds returns the reference cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.5, Medium: 0.3}
}

// For returns the confidence tier for a group retrieval score. Scores are
// cosine similarities; a group absent from the shortlist has score 0 and
// lands in the low tier.
func (t Thresholds) For(score float64) model.Confidence {
	switch {
	case score >= t.High:
		return model.ConfidenceHigh
	case score >= t.Medium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
