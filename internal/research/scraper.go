// Package research provides a lightweight web research fallback: it fetches
// a company's site and extracts its visible text for the lexical pipeline.
// It performs no generative work.
package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"

	"golang.org/x/net/html"
)

// ErrMissingWebsite indicates the request has no website to scrape.
var ErrMissingWebsite = fmt.Errorf("%w: website URL is required for web scraping research", common.ErrMissingConfig)

const defaultUserAgent = "Mozilla/5.0 (compatible; fscflow/1.0)"

// Scraper fetches pages and extracts their visible text.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewScraper creates a scraper with bounded response size and timeout.
func NewScraper() *Scraper {
	return &Scraper{
		userAgent: defaultUserAgent,
		maxBytes:  2 << 20,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchText downloads url and returns its visible text with script, style,
// and noscript content removed and whitespace collapsed.
func (s *Scraper) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.NewTransportError("scrape", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", common.NewStatusError("scrape", resp.StatusCode, string(body))
	}

	return extractText(io.LimitReader(resp.Body, s.maxBytes))
}

// Research implements the research capability by scraping the company's
// website. The result is raw page text, not a generative summary; it feeds
// the lexical matcher.
func (s *Scraper) Research(ctx context.Context, req model.ClassificationRequest) (string, error) {
	if req.WebsiteURL == "" {
		return "", ErrMissingWebsite
	}
	url := req.WebsiteURL
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	return s.FetchText(ctx, url)
}

// skipElements are subtrees whose text is never user-visible.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

func extractText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var parts []string
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF || tokenizer.Err() == io.ErrUnexpectedEOF {
				return strings.Join(parts, " "), nil
			}
			return "", common.NewSchemaError("scrape", tokenizer.Err())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skipElements[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skipElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
}
