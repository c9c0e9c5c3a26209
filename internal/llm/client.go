// Package llm provides clients for the generative research and selection
// capabilities. The engine consumes them through the service interfaces and
// treats every reply as untrusted until re-validated.
package llm

import (
	"fmt"
	"strings"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/service"
)

// Config holds configuration for the generative providers.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Clients bundles the capabilities a provider offers. Selection may be nil,
// in which case the engine runs the lexical pipeline. Analyzer is non-nil
// only for providers that support combined research+selection in one call.
type Clients struct {
	Research  service.ResearchClient
	Selection service.SelectionClient
	Analyzer  service.Analyzer
}

// NewClients creates the capability clients for the configured provider.
// An empty provider yields no generative clients; the caller is expected to
// fall back to web scraping plus lexical matching.
func NewClients(cfg Config) (Clients, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return Clients{}, nil
	case "xai":
		client, err := newXAIClient(cfg)
		if err != nil {
			return Clients{}, err
		}
		return Clients{Research: client, Selection: client, Analyzer: client}, nil
	case "openai":
		client, err := newOpenAISelectionClient(cfg)
		if err != nil {
			return Clients{}, err
		}
		// OpenAI chat completions cannot browse the web, so it only
		// serves the selection stage.
		return Clients{Selection: client}, nil
	default:
		return Clients{}, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}
