// Package taxonomy holds the static FSC reference data and the lexical
// keyword matcher that operates over it.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
)

//go:embed data/fsc.json
var embeddedData []byte

// referenceData is the on-disk shape of the taxonomy file.
type referenceData struct {
	Groups map[string]struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
	} `json:"groups"`
	Codes []struct {
		Code     string   `json:"code"`
		Title    string   `json:"title"`
		Keywords []string `json:"keywords"`
	} `json:"codes"`
}

// Store is the read-only taxonomy of FSC categories and groups. It is loaded
// once at process start and never mutated afterwards.
type Store struct {
	byCode     map[string]model.Category
	groups     map[string]model.Group
	categories []model.Category
	groupOrder []string
}

// Load builds a Store from the embedded reference data.
func Load() (*Store, error) {
	return loadBytes(embeddedData)
}

// LoadFile builds a Store from an external reference data file, overriding
// the embedded taxonomy.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return loadBytes(raw)
}

func loadBytes(raw []byte) (*Store, error) {
	var data referenceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTaxonomy, err)
	}

	s := &Store{
		byCode: make(map[string]model.Category, len(data.Codes)),
		groups: make(map[string]model.Group, len(data.Groups)),
	}

	for prefix, g := range data.Groups {
		if len(prefix) != model.GroupPrefixLen {
			return nil, fmt.Errorf("%w: group prefix %q must be %d characters", common.ErrMalformedTaxonomy, prefix, model.GroupPrefixLen)
		}
		s.groups[prefix] = model.Group{Prefix: prefix, Name: g.Name, Keywords: g.Keywords}
		s.groupOrder = append(s.groupOrder, prefix)
	}
	sort.Strings(s.groupOrder)

	for _, c := range data.Codes {
		cat := model.Category{Code: c.Code, Title: c.Title, Keywords: c.Keywords}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedTaxonomy, err)
		}
		if _, exists := s.byCode[cat.Code]; exists {
			return nil, fmt.Errorf("%w: duplicate code %s", common.ErrMalformedTaxonomy, cat.Code)
		}
		if _, ok := s.groups[cat.GroupPrefix()]; !ok {
			return nil, fmt.Errorf("%w: code %s references unknown group %s", common.ErrMalformedTaxonomy, cat.Code, cat.GroupPrefix())
		}
		s.byCode[cat.Code] = cat
		s.categories = append(s.categories, cat)
	}

	if len(s.categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", common.ErrMalformedTaxonomy)
	}

	return s, nil
}

// All returns every category in canonical order.
func (s *Store) All() []model.Category {
	out := make([]model.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// InGroups returns the categories whose group prefix is in prefixes,
// preserving the store's canonical order.
func (s *Store) InGroups(prefixes []string) []model.Category {
	want := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		want[p] = true
	}
	var out []model.Category
	for _, c := range s.categories {
		if want[c.GroupPrefix()] {
			out = append(out, c)
		}
	}
	return out
}

// ByCode looks up a single category.
func (s *Store) ByCode(code string) (model.Category, bool) {
	c, ok := s.byCode[code]
	return c, ok
}

// Groups returns every group sorted by prefix.
func (s *Store) Groups() []model.Group {
	out := make([]model.Group, 0, len(s.groupOrder))
	for _, p := range s.groupOrder {
		out = append(out, s.groups[p])
	}
	return out
}

// GroupByPrefix looks up a single group.
func (s *Store) GroupByPrefix(prefix string) (model.Group, bool) {
	g, ok := s.groups[prefix]
	return g, ok
}

// Size returns the number of categories in the store.
func (s *Store) Size() int {
	return len(s.categories)
}
