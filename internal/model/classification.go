package model

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingCompanyName indicates a classification request without the one
// field that is always required.
var ErrMissingCompanyName = errors.New("company name is required")

// Confidence expresses how trustworthy a category match is.
type Confidence string

// Confidence tiers, ordered from most to least trustworthy.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the sort rank of the confidence tier; lower ranks first.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// ClassificationRequest identifies the company to classify. AttachmentRefs
// are opaque document handles resolvable by the research capability; their
// order is not part of the request identity.
type ClassificationRequest struct {
	CompanyName    string
	WebsiteURL     string
	EmailDomain    string
	AttachmentRefs []string
}

// Validate performs the cheap input sanity checks that run before any
// external call.
func (r ClassificationRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return ErrMissingCompanyName
	}
	return nil
}

// CategoryPick is a single raw selection from the generative capability,
// before confidence is attached. Picks are untrusted: the code may fall
// outside the candidate set and must be re-validated.
type CategoryPick struct {
	Code   string
	Title  string
	Reason string
}

// CategoryMatch is one classified category in a final result.
type CategoryMatch struct {
	Code       string     `json:"code"`
	Title      string     `json:"title"`
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
}

// ClassificationResult is the outcome of one classification run. Matches are
// ordered most confident first.
type ClassificationResult struct {
	CompanyDescription string          `json:"companyDescription"`
	Matches            []CategoryMatch `json:"matches"`
}

// Run is a persisted classification run for the history store.
type Run struct {
	CreatedAt      time.Time
	ID             string
	CompanyName    string
	WebsiteURL     string
	EmailDomain    string
	AttachmentRefs []string
	Result         ClassificationResult
}
