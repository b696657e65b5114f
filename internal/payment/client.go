package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiClient is the shared outbound HTTP client the processors build on.
// Provider calls are the only blocking I/O in the checkout path, so every
// request runs under the caller's context deadline.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	// Normalize base URL - remove trailing slashes
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &apiClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// postJSON sends a JSON body and decodes the JSON response into out
func (c *apiClient) postJSON(ctx context.Context, path string, headers map[string]string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.post(ctx, path, headers, "application/json", bytes.NewReader(jsonData), out)
}

// postForm sends a form-encoded body and decodes the JSON response into out
func (c *apiClient) postForm(ctx context.Context, path string, headers map[string]string, form url.Values, out interface{}) error {
	return c.post(ctx, path, headers, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *apiClient) post(ctx context.Context, path string, headers map[string]string, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
