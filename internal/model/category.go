// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// GroupPrefixLen is the number of leading characters of a category code that
// identify its group.
const GroupPrefixLen = 2

// Category represents a single FSC code in the fixed taxonomy.
type Category struct {
	Code     string
	Title    string
	Keywords []string
}

// GroupPrefix returns the two-character group prefix implied by the code.
func (c Category) GroupPrefix() string {
	if len(c.Code) < GroupPrefixLen {
		return c.Code
	}
	return c.Code[:GroupPrefixLen]
}

// Validate checks that the category is well-formed.
func (c Category) Validate() error {
	if len(c.Code) < GroupPrefixLen {
		return fmt.Errorf("category code %q is shorter than its %d-character group prefix", c.Code, GroupPrefixLen)
	}
	if c.Title == "" {
		return fmt.Errorf("category %s has no title", c.Code)
	}
	return nil
}

// Group is a cluster of related categories sharing a two-character prefix.
// Groups are the unit of retrieval narrowing: one embedding vector exists per
// group in the vector index.
type Group struct {
	Prefix   string
	Name     string
	Keywords []string
}

// GroupMatch is a single group returned by the vector index, annotated with
// its similarity score and metadata name.
type GroupMatch struct {
	Prefix string
	Name   string
	Score  float64
}

// KeywordMatch is a single category scored by the lexical matcher.
type KeywordMatch struct {
	Code            string
	Title           string
	MatchedKeywords []string
	Score           int
}
