package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/service"
)

// PineconeIndex queries a serverless Pinecone index over its data-plane
// HTTP API. The index holds one vector per FSC group, keyed by the group
// prefix, with the group name in metadata.
type PineconeIndex struct {
	httpClient *http.Client
	host       string
	apiKey     string
}

// NewPineconeIndex creates a client for the index at host.
func NewPineconeIndex(host, apiKey string) (*PineconeIndex, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: pinecone index host is required", common.ErrMissingConfig)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: pinecone API key is required", common.ErrMissingConfig)
	}
	return &PineconeIndex{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string  `json:"id"`
		Score    float64 `json:"score"`
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK most similar groups by the index's native
// similarity metric (cosine).
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]model.GroupMatch, error) {
	body, err := p.post(ctx, "/query", pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	var response pineconeQueryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, common.NewSchemaError("pinecone query", err)
	}

	matches := make([]model.GroupMatch, 0, len(response.Matches))
	for _, m := range response.Matches {
		matches = append(matches, model.GroupMatch{
			Prefix: m.ID,
			Score:  m.Score,
			Name:   m.Metadata.Name,
		})
	}
	return matches, nil
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Upsert writes group vectors to the index. Used by the offline seed
// command, never at classification time.
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []service.GroupVector) error {
	payload := struct {
		Vectors []pineconeVector `json:"vectors"`
	}{Vectors: make([]pineconeVector, len(vectors))}

	for i, v := range vectors {
		payload.Vectors[i] = pineconeVector{
			ID:       v.Prefix,
			Values:   v.Values,
			Metadata: map[string]string{"name": v.Name},
		}
	}

	_, err := p.post(ctx, "/vectors/upsert", payload)
	return err
}

func (p *PineconeIndex) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.NewTransportError("pinecone "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewTransportError("pinecone "+path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, common.NewStatusError("pinecone "+path, resp.StatusCode, string(body))
	}

	return body, nil
}
