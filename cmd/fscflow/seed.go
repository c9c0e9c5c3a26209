package main

import (
	"fmt"

	"github.com/salespatriot/fscflow/internal/retrieval"
	"github.com/salespatriot/fscflow/internal/service"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// embedBatchSize keeps each embedding request comfortably inside provider
// input limits.
const embedBatchSize = 25

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Embed the FSC groups and upsert them into the vector index",
		Long: `One-time setup: embed every FSC group as "Group {prefix}: {name}. Related:
{keywords}" and upsert the vectors into the configured Pinecone index. The
classification pipeline only ever queries the index; this command is the sole
writer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if viper.GetString("pinecone.host") == "" {
				return fmt.Errorf("seed requires a configured pinecone index (pinecone.host)")
			}

			store, err := loadTaxonomy()
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}

			embedder, err := newEmbedder()
			if err != nil {
				return err
			}
			index, err := retrieval.NewPineconeIndex(viper.GetString("pinecone.host"), viper.GetString("pinecone.api_key"))
			if err != nil {
				return err
			}

			groups := store.Groups()
			bar := progressbar.Default(int64(len(groups)), "seeding groups")

			for start := 0; start < len(groups); start += embedBatchSize {
				end := min(start+embedBatchSize, len(groups))
				batch := groups[start:end]

				texts := make([]string, len(batch))
				for i, g := range batch {
					texts[i] = groupText(g)
				}

				embeddings, err := embedder.EmbedBatch(ctx, texts)
				if err != nil {
					return fmt.Errorf("failed to embed groups: %w", err)
				}

				vectors := make([]service.GroupVector, len(batch))
				for i, g := range batch {
					vectors[i] = service.GroupVector{Prefix: g.Prefix, Name: g.Name, Values: embeddings[i]}
				}
				if err := index.Upsert(ctx, vectors); err != nil {
					return fmt.Errorf("failed to upsert vectors: %w", err)
				}
				_ = bar.Add(len(batch))
			}

			fmt.Printf("Seeded %d group vectors.\n", len(groups))
			return nil
		},
	}
}
