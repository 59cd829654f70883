package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAdminSource queries the chat platform's REST API for the tenant's
// administrator. Used only by ownership recovery.
type HTTPAdminSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPAdminSource(endpoint, apiKey string, timeout time.Duration) *HTTPAdminSource {
	return &HTTPAdminSource{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type adminResponse struct {
	AdministratorID string `json:"administrator_id"`
}

func (c *HTTPAdminSource) GetAdministrator(ctx context.Context, tenantID string) (string, error) {
	url := fmt.Sprintf("%s/tenants/%s/administrator", c.endpoint, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build admin request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("admin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("admin source returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read admin response: %w", err)
	}
	var parsed adminResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse admin response: %w", err)
	}
	return parsed.AdministratorID, nil
}
