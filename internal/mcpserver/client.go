package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Sentra platform.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// SentraClient is a pure HTTP client for the Sentra scoring API.
type SentraClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewSentraClient creates a new client for the Sentra platform.
func NewSentraClient(cfg Config) *SentraClient {
	return &SentraClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
func (c *SentraClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScoreTransaction submits a transaction for scoring.
func (c *SentraClient) ScoreTransaction(ctx context.Context, transaction, customerHistory map[string]any) (json.RawMessage, error) {
	body := map[string]any{
		"transaction": transaction,
	}
	if customerHistory != nil {
		body["customer_history"] = customerHistory
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/transactions/score", nil, body)
}

// GetDecision fetches a previously recorded decision by ID.
func (c *SentraClient) GetDecision(ctx context.Context, decisionID string) (json.RawMessage, error) {
	path := "/v1/decisions/" + decisionID
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// ListDecisions lists recent decisions, optionally filtered by customer.
func (c *SentraClient) ListDecisions(ctx context.Context, customerID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if customerID != "" {
		q.Set("customer_id", customerID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/decisions", q, nil)
}

// GetBaseline fetches the stored spending baseline for a customer.
func (c *SentraClient) GetBaseline(ctx context.Context, customerID string) (json.RawMessage, error) {
	path := "/v1/customers/" + customerID + "/baseline"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// GetHealth returns the platform health report.
func (c *SentraClient) GetHealth(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}
