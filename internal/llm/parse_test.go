package llm

import (
	"testing"

	"github.com/salespatriot/fscflow/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"matches": []}`, `{"matches": []}`},
		{"json fence stripped", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence stripped", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace trimmed", "  {\"a\": 1}  ", `{"a": 1}`},
		{"fence with trailing whitespace", "```json\n{\"a\": 1}\n```\n", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.in))
		})
	}
}

func TestParsePicks(t *testing.T) {
	t.Run("valid matches", func(t *testing.T) {
		picks, err := parsePicks(`{
			"matches": [
				{"code": "8040", "title": "Adhesives", "reason": "manufactures glue"},
				{"code": "8010", "title": "Paints", "reason": "sells coatings"}
			]
		}`, "selection")
		require.NoError(t, err)
		require.Len(t, picks, 2)
		assert.Equal(t, "8040", picks[0].Code)
		assert.Equal(t, "Adhesives", picks[0].Title)
	})

	t.Run("fenced payload", func(t *testing.T) {
		picks, err := parsePicks("```json\n{\"matches\": [{\"code\": \"8040\", \"title\": \"Adhesives\", \"reason\": \"r\"}]}\n```", "selection")
		require.NoError(t, err)
		assert.Len(t, picks, 1)
	})

	t.Run("empty codes skipped", func(t *testing.T) {
		picks, err := parsePicks(`{
			"matches": [
				{"code": "", "title": "Blank", "reason": "r"},
				{"code": "8040", "title": "Adhesives", "reason": "r"}
			]
		}`, "selection")
		require.NoError(t, err)
		require.Len(t, picks, 1)
		assert.Equal(t, "8040", picks[0].Code)
	})

	tests := []struct {
		name string
		in   string
	}{
		{"invalid json", `{"matches": [`},
		{"no matches", `{"matches": []}`},
		{"only blank codes", `{"matches": [{"code": "", "title": "t", "reason": "r"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePicks(tt.in, "selection")
			require.Error(t, err)
			assert.True(t, common.IsSchema(err))
		})
	}
}
