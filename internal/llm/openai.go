package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// openAISelectionClient implements the selection capability over the OpenAI
// chat completions API with a JSON response format.
type openAISelectionClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// newOpenAISelectionClient creates a new OpenAI selection client.
func newOpenAISelectionClient(cfg Config) (*openAISelectionClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	temperature := float32(cfg.Temperature)
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAISelectionClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Select asks the model to choose categories from the candidate list.
func (c *openAISelectionClient) Select(ctx context.Context, companyDescription string, candidates []model.Category) ([]model.CategoryPick, error) {
	systemPrompt := buildSelectionPrompt(candidates) + `

Respond with ONLY a valid JSON object of the shape {"matches": [{"code": "...", "title": "...", "reason": "..."}]}.`

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Company description:\n" + companyDescription},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, common.NewStatusError("openai selection", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, common.NewTransportError("openai selection", err)
	}

	if len(resp.Choices) == 0 {
		return nil, common.NewSchemaError("openai selection", fmt.Errorf("no completion choices returned"))
	}

	return parsePicks(resp.Choices[0].Message.Content, "openai selection")
}
