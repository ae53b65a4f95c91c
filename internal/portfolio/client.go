// Package portfolio pushes extracted trade records to the portfolio
// service over HTTP.
package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tradefeed/tradefeed/internal/trade"
)

// Client is an HTTP client for the portfolio service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new portfolio service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Portfolio is the service's portfolio resource.
type Portfolio struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// portfolioList handles every response shape the service has shipped:
// wrapper objects keyed "portfolios", "items", or "data", and a bare
// array.
type portfolioList struct {
	Portfolios []Portfolio `json:"portfolios"`
	Items      []Portfolio `json:"items"`
	Data       []Portfolio `json:"data"`
}

func (l *portfolioList) unwrap() []Portfolio {
	switch {
	case l.Portfolios != nil:
		return l.Portfolios
	case l.Items != nil:
		return l.Items
	default:
		return l.Data
	}
}

// ClientError is a structured error for portfolio service failures.
type ClientError struct {
	Status    int
	Message   string
	Retryable bool
	Cause     error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("portfolio service: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("portfolio service: %s (status %d)", e.Message, e.Status)
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *ClientError) IsRetryable() bool {
	return e.Retryable
}

// ListPortfolios fetches every portfolio, accepting either the wrapper
// object or bare-array response shape.
func (c *Client) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	body, err := c.do(ctx, http.MethodGet, "/portfolios", nil)
	if err != nil {
		return nil, err
	}

	var wrapper portfolioList
	if err := json.Unmarshal(body, &wrapper); err == nil {
		if got := wrapper.unwrap(); got != nil {
			return got, nil
		}
	}
	var raw []Portfolio
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ClientError{Message: "decode portfolio list", Cause: err}
	}
	return raw, nil
}

// CreatePortfolio creates a portfolio with the given name.
func (c *Client) CreatePortfolio(ctx context.Context, name string) (*Portfolio, error) {
	payload, _ := json.Marshal(map[string]string{"name": name})
	body, err := c.do(ctx, http.MethodPost, "/portfolios", payload)
	if err != nil {
		return nil, err
	}

	var p Portfolio
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &ClientError{Message: "decode created portfolio", Cause: err}
	}
	return &p, nil
}

// GetOrCreate returns the portfolio with the given name, creating it if
// no existing portfolio matches.
func (c *Client) GetOrCreate(ctx context.Context, name string) (*Portfolio, error) {
	portfolios, err := c.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}
	for i := range portfolios {
		if portfolios[i].Name == name {
			return &portfolios[i], nil
		}
	}
	return c.CreatePortfolio(ctx, name)
}

// UpsertTransactions pushes records into a portfolio. The service's
// accepted payload shape has drifted across versions, so the wrapper
// object is tried first, then a bare array, then one record at a time.
func (c *Client) UpsertTransactions(ctx context.Context, portfolioID string, records []trade.Record) error {
	path := fmt.Sprintf("/portfolios/%s/transactions", portfolioID)

	wrapper, _ := json.Marshal(map[string][]trade.Record{"transactions": records})
	if _, err := c.do(ctx, http.MethodPost, path, wrapper); err == nil {
		return nil
	}

	raw, _ := json.Marshal(records)
	if _, err := c.do(ctx, http.MethodPost, path, raw); err == nil {
		return nil
	}

	for i, rec := range records {
		payload, _ := json.Marshal(rec)
		if _, err := c.do(ctx, http.MethodPost, path, payload); err != nil {
			return &ClientError{
				Message: fmt.Sprintf("upsert record %d of %d", i+1, len(records)),
				Cause:   err,
			}
		}
	}
	return nil
}

// do executes one request and returns the response body. Server-side
// failures (5xx) come back retryable, client-side ones do not.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &ClientError{Message: "create request", Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Message: "execute request", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Message: "read response", Retryable: true, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Status:    resp.StatusCode,
			Message:   fmt.Sprintf("%s %s failed: %s", method, path, string(body)),
			Retryable: resp.StatusCode >= 500,
		}
	}
	return body, nil
}
