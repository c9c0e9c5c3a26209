package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/salespatriot/fscflow/internal/config"
	"github.com/salespatriot/fscflow/internal/engine"
	"github.com/salespatriot/fscflow/internal/llm"
	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/research"
	"github.com/salespatriot/fscflow/internal/retrieval"
	"github.com/salespatriot/fscflow/internal/service"
	"github.com/salespatriot/fscflow/internal/storage"
	"github.com/salespatriot/fscflow/internal/taxonomy"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

// Output styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	confidenceStyles = map[model.Confidence]lipgloss.Style{
		model.ConfidenceHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.ConfidenceMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.ConfidenceLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

// loadTaxonomy loads the embedded taxonomy, or an override file from config.
func loadTaxonomy() (*taxonomy.Store, error) {
	if path := viper.GetString("taxonomy.path"); path != "" {
		return taxonomy.LoadFile(config.ExpandPath(path))
	}
	return taxonomy.Load()
}

// newEmbedder builds the OpenAI embedder from config.
func newEmbedder() (service.Embedder, error) {
	return retrieval.NewOpenAIEmbedder(
		viper.GetString("embedding.api_key"),
		viper.GetString("embedding.model"),
		viper.GetInt("embedding.dimensions"),
	)
}

// newIndex builds the group vector index from config. A configured Pinecone
// host selects the hosted index; otherwise an empty in-memory index is used
// and narrowing falls back to the full taxonomy.
func newIndex(embedder service.Embedder) (service.Index, error) {
	if host := viper.GetString("pinecone.host"); host != "" {
		return retrieval.NewPineconeIndex(host, viper.GetString("pinecone.api_key"))
	}
	return retrieval.NewMemoryIndex(embedder.Dimensions())
}

// initEngine wires the classification engine from configuration.
func initEngine() (*engine.Engine, error) {
	store, err := loadTaxonomy()
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	clients, err := llm.NewClients(llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	})
	if err != nil {
		return nil, err
	}

	deps := engine.Deps{
		Store:     store,
		Research:  clients.Research,
		Selection: clients.Selection,
		Analyzer:  clients.Analyzer,
	}
	if deps.Research == nil {
		// No generative research: scrape the company site instead.
		deps.Research = research.NewScraper()
	}

	cfg := engine.DefaultConfig()
	if topK := viper.GetInt("retrieval.top_k"); topK > 0 {
		cfg.TopK = topK
	}
	if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	if high := viper.GetFloat64("confidence.high"); high > 0 {
		cfg.Thresholds.High = high
	}
	if medium := viper.GetFloat64("confidence.medium"); medium > 0 {
		cfg.Thresholds.Medium = medium
	}

	if clients.Selection != nil {
		embedder, err := newEmbedder()
		if err != nil {
			return nil, err
		}
		index, err := newIndex(embedder)
		if err != nil {
			return nil, err
		}
		deps.Retriever = retrieval.NewRetriever(embedder, index, nil)
	}

	return engine.NewWithConfig(deps, cfg), nil
}

// initStorage opens the history database with migrations applied.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/fscflow/fscflow.db"
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// printResult renders a classification result as a styled table.
func printResult(result model.ClassificationResult) {
	if result.CompanyDescription != "" {
		fmt.Println(headerStyle.Render("Company"))
		fmt.Println(result.CompanyDescription)
		fmt.Println()
	}

	if len(result.Matches) == 0 {
		fmt.Println(dimStyle.Render("No FSC codes matched."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Code"),
		headerStyle.Render("Title"),
		headerStyle.Render("Confidence"),
		headerStyle.Render("Reason"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 4),
		strings.Repeat("-", 30),
		strings.Repeat("-", 10),
		strings.Repeat("-", 40))

	for _, m := range result.Matches {
		style, ok := confidenceStyles[m.Confidence]
		if !ok {
			style = dimStyle
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Code, m.Title, style.Render(string(m.Confidence)), m.Reason)
	}
}

// groupText renders a group the same way the index seeding embeds it.
func groupText(g model.Group) string {
	return fmt.Sprintf("Group %s: %s. Related: %s", g.Prefix, g.Name, strings.Join(g.Keywords, ", "))
}
