package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
)

// cleanMarkdownWrapper strips a ```json ... ``` fence that models sometimes
// wrap around structured output despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// parsePicks parses a selection reply of the shape {"matches":[{code,title,reason}]}.
func parsePicks(content, op string) ([]model.CategoryPick, error) {
	var parsed struct {
		Matches []struct {
			Code   string `json:"code"`
			Title  string `json:"title"`
			Reason string `json:"reason"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &parsed); err != nil {
		return nil, common.NewSchemaError(op, err)
	}
	if len(parsed.Matches) == 0 {
		return nil, common.NewSchemaError(op, fmt.Errorf("no matches in response"))
	}

	picks := make([]model.CategoryPick, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		if m.Code == "" {
			continue
		}
		picks = append(picks, model.CategoryPick{Code: m.Code, Title: m.Title, Reason: m.Reason})
	}
	if len(picks) == 0 {
		return nil, common.NewSchemaError(op, fmt.Errorf("no usable matches in response"))
	}
	return picks, nil
}
