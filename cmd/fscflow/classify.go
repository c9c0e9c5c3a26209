package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	var (
		name        string
		website     string
		emailDomain string
		files       []string
		singleCall  bool
		retries     int
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a company into ranked FSC codes",
		Long: `Research a company from its web presence and attached documents, narrow the
taxonomy with embedding retrieval, and select confidence-ranked FSC codes.
Without a configured LLM provider the deterministic keyword pipeline is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			eng, err := initEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			req := model.ClassificationRequest{
				CompanyName:    name,
				WebsiteURL:     website,
				EmailDomain:    emailDomain,
				AttachmentRefs: files,
			}

			classify := eng.Classify
			if singleCall {
				classify = eng.ClassifySingleCall
			}

			var result model.ClassificationResult
			run := func() error {
				var runErr error
				result, runErr = classify(ctx, req)
				return runErr
			}

			if retries > 1 {
				err = common.WithRetry(ctx, run, service.RetryOptions{MaxAttempts: retries})
			} else {
				err = run()
			}
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			printResult(result)

			if !noHistory {
				if histErr := saveHistory(cmd, req, result); histErr != nil {
					slog.Warn("Failed to save run history", "error", histErr)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "company name (required)")
	cmd.Flags().StringVar(&website, "website", "", "company website URL")
	cmd.Flags().StringVar(&emailDomain, "email-domain", "", "company email domain")
	cmd.Flags().StringSliceVar(&files, "file", nil, "attached document ref (repeatable)")
	cmd.Flags().BoolVar(&singleCall, "single-call", false, "research and select in one generative call")
	cmd.Flags().IntVar(&retries, "retries", 1, "attempts for transient transport failures")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip writing the run to the history database")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func saveHistory(cmd *cobra.Command, req model.ClassificationRequest, result model.ClassificationResult) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.SaveRun(cmd.Context(), &model.Run{
		ID:             uuid.NewString(),
		CompanyName:    req.CompanyName,
		WebsiteURL:     req.WebsiteURL,
		EmailDomain:    req.EmailDomain,
		AttachmentRefs: req.AttachmentRefs,
		Result:         result,
		CreatedAt:      time.Now().UTC(),
	})
}
