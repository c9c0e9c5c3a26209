package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/salespatriot/fscflow/internal/research"
	"github.com/salespatriot/fscflow/internal/taxonomy"

	"github.com/spf13/cobra"
)

func scrapeCmd() *cobra.Command {
	var (
		url        string
		maxResults int
		showText   bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch a web page and classify its text lexically",
		Long: `Download a page, strip it to visible text, and score that text against the
FSC keyword sets. This is the fully offline-model pipeline: no generative
capability is involved.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := research.NewScraper().FetchText(cmd.Context(), url)
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}

			store, err := loadTaxonomy()
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}

			matches := taxonomy.NewMatcher(store).Score(text, taxonomy.MatchOptions{
				MaxResults: maxResults,
			})

			if showText {
				fmt.Println(headerStyle.Render("Page text"))
				fmt.Println(text)
				fmt.Println()
			}

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

	cmd.Flags().StringVar(&url, "url", "", "page URL to fetch (required)")
	cmd.Flags().IntVar(&maxResults, "max-results", 25, "maximum matches to return")
	cmd.Flags().BoolVar(&showText, "show-text", false, "print the extracted page text")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
