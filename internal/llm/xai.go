package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
)

const defaultXAIBaseURL = "https://api.x.ai/v1"

// xaiClient talks to the xAI responses API. It is the only provider that
// covers research (via the web_search tool and file attachments), selection,
// and the combined single-call analysis.
type xaiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// newXAIClient creates a new xAI API client.
func newXAIClient(cfg Config) (*xaiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: xAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "grok-4-1-fast-non-reasoning"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultXAIBaseURL
	}

	return &xaiClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// xaiContentPart is one element of a user message's content array.
type xaiContentPart struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// xaiMessage is one input item for the responses API.
type xaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// xaiResponse is the subset of the responses API reply we consume.
type xaiResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// userContent builds the user message parts: the analysis text plus one
// input_file part per attachment ref.
func userContent(req model.ClassificationRequest) []xaiContentPart {
	parts := []xaiContentPart{{Type: "input_text", Text: buildCompanyText(req)}}
	for _, ref := range req.AttachmentRefs {
		parts = append(parts, xaiContentPart{Type: "input_file", FileID: ref})
	}
	return parts
}

// createResponse sends one responses API call and returns the concatenated
// output_text. Schema enforcement happens on the server via the json_schema
// text format; the reply is still parsed defensively.
func (c *xaiClient) createResponse(ctx context.Context, input []xaiMessage, withWebSearch bool, schemaName string, schema map[string]any) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"input": input,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"schema": schema,
				"strict": true,
			},
		},
	}
	if withWebSearch {
		payload["tools"] = []map[string]any{{"type": "web_search"}}
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.NewTransportError("xai "+schemaName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.NewTransportError("xai "+schemaName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", common.NewStatusError("xai "+schemaName, resp.StatusCode, string(body))
	}

	var response xaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", common.NewSchemaError("xai "+schemaName, err)
	}

	var outputText strings.Builder
	for _, item := range response.Output {
		if item.Type != "message" {
			continue
		}
		for _, block := range item.Content {
			if block.Type == "output_text" {
				outputText.WriteString(block.Text)
			}
		}
	}

	if outputText.Len() == 0 {
		return "", common.NewSchemaError("xai "+schemaName, fmt.Errorf("no output text in response"))
	}

	return outputText.String(), nil
}

// Research produces a company description by browsing the company's web
// presence and reading attached documents.
func (c *xaiClient) Research(ctx context.Context, req model.ClassificationRequest) (string, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"companyDescription": map[string]any{
				"type":        "string",
				"description": "Brief 2-3 sentence description of what the company does",
			},
		},
		"required":             []string{"companyDescription"},
		"additionalProperties": false,
	}

	input := []xaiMessage{
		{Role: "developer", Content: buildResearchPrompt()},
		{Role: "user", Content: userContent(req)},
	}

	content, err := c.createResponse(ctx, input, true, "research_response", schema)
	if err != nil {
		return "", err
	}

	var parsed struct {
		CompanyDescription string `json:"companyDescription"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &parsed); err != nil {
		return "", common.NewSchemaError("xai research", err)
	}
	if parsed.CompanyDescription == "" {
		return "", common.NewSchemaError("xai research", fmt.Errorf("empty company description"))
	}
	return parsed.CompanyDescription, nil
}

// pickSchema is the structured-output schema for selection picks.
func pickSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"code":   map[string]any{"type": "string", "description": "4-digit FSC code from the reference list"},
						"title":  map[string]any{"type": "string", "description": "Exact title from the FSC reference list"},
						"reason": map[string]any{"type": "string", "description": "Brief explanation of why this code is relevant"},
					},
					"required":             []string{"code", "title", "reason"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"matches"},
		"additionalProperties": false,
	}
}

// Select asks the model to choose categories from the candidate list. The
// reply may still contain out-of-candidate codes; the engine filters them.
func (c *xaiClient) Select(ctx context.Context, companyDescription string, candidates []model.Category) ([]model.CategoryPick, error) {
	input := []xaiMessage{
		{Role: "developer", Content: buildSelectionPrompt(candidates)},
		{Role: "user", Content: "Company description:\n" + companyDescription},
	}

	content, err := c.createResponse(ctx, input, false, "selection_response", pickSchema())
	if err != nil {
		return nil, err
	}

	return parsePicks(content, "xai selection")
}

// AnalyzeCompany performs research and selection in one structured call,
// with confidence assigned by the model itself rather than derived from
// retrieval similarity.
func (c *xaiClient) AnalyzeCompany(ctx context.Context, req model.ClassificationRequest, candidates []model.Category) (model.ClassificationResult, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"companyDescription": map[string]any{
				"type":        "string",
				"description": "Brief 2-3 sentence description of what the company does",
			},
			"fscCodes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"code":       map[string]any{"type": "string", "description": "4-digit FSC code from the reference list"},
						"title":      map[string]any{"type": "string", "description": "Exact title from the FSC reference list"},
						"reason":     map[string]any{"type": "string", "description": "Brief explanation of why this code is relevant"},
						"confidence": map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}, "description": "Confidence level of the match"},
					},
					"required":             []string{"code", "title", "reason", "confidence"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"companyDescription", "fscCodes"},
		"additionalProperties": false,
	}

	input := []xaiMessage{
		{Role: "developer", Content: buildAnalyzePrompt(candidates)},
		{Role: "user", Content: userContent(req)},
	}

	content, err := c.createResponse(ctx, input, true, "analyze_response", schema)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	var parsed struct {
		CompanyDescription string                `json:"companyDescription"`
		FSCCodes           []model.CategoryMatch `json:"fscCodes"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &parsed); err != nil {
		return model.ClassificationResult{}, common.NewSchemaError("xai analyze", err)
	}
	if parsed.CompanyDescription == "" {
		return model.ClassificationResult{}, common.NewSchemaError("xai analyze", fmt.Errorf("empty company description"))
	}

	sort.SliceStable(parsed.FSCCodes, func(i, j int) bool {
		return parsed.FSCCodes[i].Confidence.Rank() < parsed.FSCCodes[j].Confidence.Rank()
	})

	return model.ClassificationResult{
		CompanyDescription: parsed.CompanyDescription,
		Matches:            parsed.FSCCodes,
	}, nil
}
