package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/salespatriot/fscflow/internal/retrieval"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func groupsCmd() *cobra.Command {
	var (
		query string
		topK  int
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show the top FSC groups retrieved for a query",
		Long: `Embed a free-form query and show the most similar FSC groups with their
retrieval scores and derived confidence tiers. Useful for inspecting how the
narrowing stage will behave for a given company summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			embedder, err := newEmbedder()
			if err != nil {
				return err
			}
			index, err := newIndex(embedder)
			if err != nil {
				return err
			}

			retriever := retrieval.NewRetriever(embedder, index, nil)
			matches, err := retriever.TopGroups(cmd.Context(), query, topK)
			if err != nil {
				return fmt.Errorf("retrieval failed: %w", err)
			}

			if len(matches) == 0 {
				fmt.Println(dimStyle.Render("No groups retrieved; classification would fall back to the full taxonomy."))
				return nil
			}

			thresholds := retrieval.DefaultThresholds()
			if high := viper.GetFloat64("confidence.high"); high > 0 {
				thresholds.High = high
			}
			if medium := viper.GetFloat64("confidence.medium"); medium > 0 {
				thresholds.Medium = medium
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("Group"),
				headerStyle.Render("Name"),
				headerStyle.Render("Score"),
				headerStyle.Render("Confidence"))
			for _, m := range matches {
				confidence := thresholds.For(m.Score)
				style, ok := confidenceStyles[confidence]
				if !ok {
					style = dimStyle
				}
				fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\n", m.Prefix, m.Name, m.Score, style.Render(string(confidence)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "free-form company summary to embed (required)")
	cmd.Flags().IntVar(&topK, "top-k", retrieval.DefaultTopK, "number of groups to retrieve")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}
