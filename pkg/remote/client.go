package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/logging"
)

const (
	defaultHTTPTimeout = 10 * time.Second

	// refreshWindow triggers a session refresh this long before expiry
	refreshWindow = 2 * time.Minute
)

// HTTPClient talks to a hosted provider exposing collection CRUD under
// /rest/v1/<collection> and password auth under /auth/v1/token.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger

	mu      sync.RWMutex
	session *Session
}

// NewHTTPClient creates a provider client. A nil logger falls back to a
// no-op logger.
func NewHTTPClient(baseURL, apiKey string, logger logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger: logger.With(logging.Component("remote")),
	}
}

// Select returns rows matching the equality filter.
func (c *HTTPClient) Select(ctx context.Context, collection string, filter Filter) ([]Row, error) {
	endpoint := c.baseURL + "/rest/v1/" + collection
	if len(filter) > 0 {
		query := url.Values{}
		for column, value := range filter {
			query.Set(column, "eq."+value)
		}
		endpoint += "?" + query.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, executor.TransientError("select", fmt.Errorf("malformed response: %w", err))
	}
	return rows, nil
}

// Insert creates a row and returns the stored representation.
func (c *HTTPClient) Insert(ctx context.Context, collection string, row Row) (Row, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+collection, row)
	if err != nil {
		return nil, err
	}
	return decodeSingleRow("insert", body)
}

// Update patches the row with the given id.
func (c *HTTPClient) Update(ctx context.Context, collection, id string, row Row) (Row, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, collection, url.QueryEscape(id))
	body, err := c.do(ctx, http.MethodPatch, endpoint, row)
	if err != nil {
		return nil, err
	}
	return decodeSingleRow("update", body)
}

// Delete removes the row with the given id.
func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, collection, url.QueryEscape(id))
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	return err
}

// Ping probes the provider root and returns round-trip latency.
func (c *HTTPClient) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// do performs one HTTP exchange and maps the response to the error
// taxonomy: 401/403 authorization, 400/422 validation, everything else
// transient. Network failures are transient.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, executor.ValidationError(method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, executor.ValidationError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, executor.TransientError(method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, executor.TransientError(method, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, executor.AuthorizationError(method, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data)))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, executor.ValidationError(method, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data)))
	default:
		return nil, executor.TransientError(method, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data)))
	}
}

func decodeSingleRow(op string, body []byte) (Row, error) {
	// The provider returns mutated rows as a one-element array
	var rows []Row
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) > 0 {
		return rows[0], nil
	}
	var row Row
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, executor.TransientError(op, fmt.Errorf("malformed response: %w", err))
	}
	return row, nil
}

func truncate(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
