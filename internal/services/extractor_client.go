package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"quartermaster/internal/models"

	"go.uber.org/zap"
)

// HTTPExtractor calls the external extraction service over REST. The
// response is parsed defensively: entries that are not {key, value} string
// pairs are dropped, never fatal.
type HTTPExtractor struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPExtractor(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type extractRequest struct {
	Schema  string `json:"schema"`
	Context string `json:"context"`
	Message string `json:"message"`
}

type extractResponse struct {
	Candidates []json.RawMessage `json:"candidates"`
}

func (c *HTTPExtractor) Extract(ctx context.Context, schemaDescription, conversationContext, rawMessage string) ([]models.Candidate, error) {
	payload := extractRequest{
		Schema:  schemaDescription,
		Context: conversationContext,
		Message: rawMessage,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read extract response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extract response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Candidates))
	for _, raw := range parsed.Candidates {
		var cand models.Candidate
		if err := json.Unmarshal(raw, &cand); err != nil {
			c.logger.Debug("dropping malformed extraction candidate", zap.Error(err))
			continue
		}
		if cand.Key == "" {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
