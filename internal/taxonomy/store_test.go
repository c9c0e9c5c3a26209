package taxonomy

import (
	"testing"

	"github.com/salespatriot/fscflow/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	assert.Greater(t, store.Size(), 100)
	assert.Len(t, store.Groups(), 75)

	// Every category's group prefix must resolve to a group.
	for _, cat := range store.All() {
		_, ok := store.GroupByPrefix(cat.GroupPrefix())
		assert.True(t, ok, "category %s has no group", cat.Code)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "invalid json",
			data: `{"groups": [}`,
		},
		{
			name: "duplicate codes",
			data: `{
				"groups": {"56": {"name": "Construction Materials", "keywords": []}},
				"codes": [
					{"code": "5610", "title": "Adhesives", "keywords": []},
					{"code": "5610", "title": "Adhesives Again", "keywords": []}
				]
			}`,
		},
		{
			name: "code shorter than group prefix",
			data: `{
				"groups": {"56": {"name": "Construction Materials", "keywords": []}},
				"codes": [{"code": "5", "title": "Too Short", "keywords": []}]
			}`,
		},
		{
			name: "code references unknown group",
			data: `{
				"groups": {"56": {"name": "Construction Materials", "keywords": []}},
				"codes": [{"code": "8040", "title": "Adhesives", "keywords": []}]
			}`,
		},
		{
			name: "missing title",
			data: `{
				"groups": {"56": {"name": "Construction Materials", "keywords": []}},
				"codes": [{"code": "5610", "keywords": []}]
			}`,
		},
		{
			name: "group prefix wrong length",
			data: `{
				"groups": {"5": {"name": "Bad", "keywords": []}},
				"codes": [{"code": "5610", "title": "Adhesives", "keywords": []}]
			}`,
		},
		{
			name: "no categories",
			data: `{"groups": {}, "codes": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBytes([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedTaxonomy)
		})
	}
}

func TestInGroups(t *testing.T) {
	store, err := loadBytes([]byte(`{
		"groups": {
			"56": {"name": "Construction Materials", "keywords": []},
			"80": {"name": "Paints & Adhesives", "keywords": []},
			"81": {"name": "Containers", "keywords": []}
		},
		"codes": [
			{"code": "5610", "title": "Mineral Construction Materials", "keywords": []},
			{"code": "8010", "title": "Paints", "keywords": []},
			{"code": "8040", "title": "Adhesives", "keywords": []},
			{"code": "8105", "title": "Bags and Sacks", "keywords": []}
		]
	}`))
	require.NoError(t, err)

	t.Run("subset preserves canonical order", func(t *testing.T) {
		got := store.InGroups([]string{"80"})
		require.Len(t, got, 2)
		assert.Equal(t, "8010", got[0].Code)
		assert.Equal(t, "8040", got[1].Code)
	})

	t.Run("empty prefixes yields empty set", func(t *testing.T) {
		assert.Empty(t, store.InGroups(nil))
	})

	t.Run("unknown prefix yields empty set", func(t *testing.T) {
		assert.Empty(t, store.InGroups([]string{"99"}))
	})

	t.Run("all groups equals All", func(t *testing.T) {
		assert.Equal(t, store.All(), store.InGroups([]string{"56", "80", "81"}))
	})
}

func TestByCode(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	cat, ok := store.ByCode("8040")
	require.True(t, ok)
	assert.Equal(t, "Adhesives", cat.Title)
	assert.Equal(t, "80", cat.GroupPrefix())

	_, ok = store.ByCode("0000")
	assert.False(t, ok)
}
