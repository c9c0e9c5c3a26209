package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/salespatriot/fscflow/internal/taxonomy"

	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	var (
		minScore   int
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "match [file]",
		Short: "Score raw text against FSC keyword sets",
		Long: `Run text through the deterministic lexical matcher. Reads the given file,
or standard input when no file is given. No network access is required.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			store, err := loadTaxonomy()
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}

			matches := taxonomy.NewMatcher(store).Score(string(raw), taxonomy.MatchOptions{
				MinScore:   minScore,
				MaxResults: maxResults,
			})

			if len(matches) == 0 {
				fmt.Println(dimStyle.Render("No keywords matched."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("Code"),
				headerStyle.Render("Title"),
				headerStyle.Render("Score"),
				headerStyle.Render("Keywords"))
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Code, m.Title, m.Score, strings.Join(m.MatchedKeywords, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", taxonomy.DefaultMinScore, "minimum keyword hits to qualify")
	cmd.Flags().IntVar(&maxResults, "max-results", taxonomy.DefaultMaxResults, "maximum matches to return")

	return cmd
}
