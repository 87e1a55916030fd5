// internal/clients/discovery_client.go

// Package clients provides typed HTTP clients for the discovery API.
package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/api"
	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/report"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discovery api: %d %s: %s", e.Status, e.Code, e.Message)
}

type DiscoveryClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a DiscoveryClient.
type Option func(*DiscoveryClient)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *DiscoveryClient) { c.token = token }
}

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DiscoveryClient) { c.http = hc }
}

func NewDiscoveryClient(baseURL string, opts ...Option) *DiscoveryClient {
	c := &DiscoveryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DiscoveryClient) Search(ctx context.Context, req api.AdvancedSearchRequest) ([]catalog.Book, error) {
	var out api.SearchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/search/advanced", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

func (c *DiscoveryClient) Suggest(ctx context.Context, fragment string, scope discovery.Scope) ([]string, error) {
	q := url.Values{"q": {fragment}}
	if scope != "" {
		q.Set("type", string(scope))
	}
	var out api.SuggestionsResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/search/suggestions", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

func (c *DiscoveryClient) TextSearch(ctx context.Context, query string) ([]discovery.ScoredBook, error) {
	var out api.TextSearchResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/search/text", url.Values{"q": {query}}, nil, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

func (c *DiscoveryClient) Popular(ctx context.Context, limit int) ([]discovery.RankedBook, error) {
	var out api.PopularResult
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/search/popular", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

func (c *DiscoveryClient) Recommend(ctx context.Context, memberID uuid.UUID) (*discovery.Recommendation, error) {
	var out discovery.Recommendation
	if err := c.do(ctx, http.MethodGet, "/api/v1/search/recommendations/"+memberID.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DiscoveryClient) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var out catalog.Book
	if err := c.do(ctx, http.MethodGet, "/api/v1/books/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DiscoveryClient) Analytics(ctx context.Context) (*report.Analytics, error) {
	var out report.Analytics
	if err := c.do(ctx, http.MethodGet, "/api/v1/analytics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DiscoveryClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *api.Error      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "DECODE_FAILED", Message: err.Error()}
	}
	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
