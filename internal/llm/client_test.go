package llm

import (
	"testing"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClients(t *testing.T) {
	t.Run("empty provider yields no clients", func(t *testing.T) {
		clients, err := NewClients(Config{})
		require.NoError(t, err)
		assert.Nil(t, clients.Research)
		assert.Nil(t, clients.Selection)
		assert.Nil(t, clients.Analyzer)
	})

	t.Run("xai covers all capabilities", func(t *testing.T) {
		clients, err := NewClients(Config{Provider: "xai", APIKey: "key"})
		require.NoError(t, err)
		assert.NotNil(t, clients.Research)
		assert.NotNil(t, clients.Selection)
		assert.NotNil(t, clients.Analyzer)
	})

	t.Run("openai covers selection only", func(t *testing.T) {
		clients, err := NewClients(Config{Provider: "openai", APIKey: "key"})
		require.NoError(t, err)
		assert.Nil(t, clients.Research)
		assert.NotNil(t, clients.Selection)
		assert.Nil(t, clients.Analyzer)
	})

	t.Run("provider name is case insensitive", func(t *testing.T) {
		clients, err := NewClients(Config{Provider: "XAI", APIKey: "key"})
		require.NoError(t, err)
		assert.NotNil(t, clients.Research)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewClients(Config{Provider: "xai"})
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClients(Config{Provider: "llama", APIKey: "key"})
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

func TestBuildPrompts(t *testing.T) {
	candidates := []model.Category{
		{Code: "8040", Title: "Adhesives"},
		{Code: "8010", Title: "Paints"},
	}

	t.Run("candidate reference lines", func(t *testing.T) {
		assert.Equal(t, "8040 - Adhesives\n8010 - Paints", candidateReference(candidates))
	})

	t.Run("selection prompt embeds reference list", func(t *testing.T) {
		prompt := buildSelectionPrompt(candidates)
		assert.Contains(t, prompt, "=== FSC REFERENCE LIST ===")
		assert.Contains(t, prompt, "8040 - Adhesives")
		assert.Contains(t, prompt, "Do NOT invent codes")
	})

	t.Run("company text includes optional fields", func(t *testing.T) {
		text := buildCompanyText(model.ClassificationRequest{
			CompanyName: "Acme",
			WebsiteURL:  "https://acme.example.com",
			EmailDomain: "acme.example.com",
		})
		assert.Contains(t, text, "Company Name: Acme")
		assert.Contains(t, text, "Email Domain: acme.example.com")
		assert.Contains(t, text, "https://acme.example.com")

		minimal := buildCompanyText(model.ClassificationRequest{CompanyName: "Acme"})
		assert.NotContains(t, minimal, "Email Domain")
		assert.NotContains(t, minimal, "Website")
	})
}
