// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv metadata API: throttled search,
// single-record lookup, and paginated bulk collection. Both payload
// shapes the API serves normalize into pkg/types.Paper records.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

const (
	// defaultBaseURL is the arXiv query endpoint.
	defaultBaseURL = "https://export.arxiv.org/api/query"

	// defaultDelay is the minimum spacing between consecutive requests,
	// per the arXiv API usage guidelines.
	defaultDelay = 3 * time.Second

	defaultTimeout    = 30 * time.Second
	defaultMaxResults = 10
	defaultUserAgent  = "arxiv-harvester/0.1"
)

// SortField selects the API sort key.
type SortField string

const (
	SortRelevance   SortField = "relevance"
	SortLastUpdated SortField = "lastUpdatedDate"
	SortSubmitted   SortField = "submittedDate"
)

// SortOrder selects the API sort direction.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// Params describes one search call.
type Params struct {
	// Query is the free-text search expression.
	Query string

	// Category restricts results to one arXiv category (e.g. "cs.AI").
	Category string

	// From and To bound the submission date. The filter is applied only
	// when both ends are set.
	From time.Time
	To   time.Time

	// MaxResults caps the page size (default 10).
	MaxResults int

	// Start is the result offset for pagination.
	Start int

	// SortBy and SortOrder default to relevance, descending.
	SortBy    SortField
	SortOrder SortOrder
}

// Client is a throttled arXiv API client. Each instance owns its
// throttle clock; two clients never share request spacing.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	delay      time.Duration

	lastRequest time.Time
	now         func() time.Time
	sleep       func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different endpoint. Tests use this
// to substitute an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithDelay sets the minimum spacing between consecutive requests.
// Zero disables throttling.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a Client with the arXiv-recommended defaults:
// 3 s between requests, 30 s request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		delay:      defaultDelay,
		now:        time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries the API and returns canonical paper records in feed
// order. Non-success responses surface as *StatusError, bodies in
// neither recognized shape as ErrUnrecognizedPayload; connection and
// timeout faults pass through wrapped.
func (c *Client) Search(ctx context.Context, p Params) ([]types.Paper, error) {
	expr := buildSearchQuery(p)
	if expr == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortRelevance
	}
	sortOrder := p.SortOrder
	if sortOrder == "" {
		sortOrder = SortDescending
	}

	v := url.Values{}
	v.Set("search_query", expr)
	v.Set("start", strconv.Itoa(p.Start))
	v.Set("max_results", strconv.Itoa(maxResults))
	v.Set("sortBy", string(sortBy))
	v.Set("sortOrder", string(sortOrder))

	body, err := c.get(ctx, c.baseURL+"?"+v.Encode())
	if err != nil {
		return nil, err
	}
	return decodeResponse(body)
}

// GetByID retrieves a single paper by its short identifier
// (e.g. "2104.12345"). Returns ErrNotFound when the API yields nothing.
func (c *Client) GetByID(ctx context.Context, id string) (*types.Paper, error) {
	v := url.Values{}
	v.Set("id_list", id)

	body, err := c.get(ctx, c.baseURL+"?"+v.Encode())
	if err != nil {
		return nil, err
	}
	papers, err := decodeResponse(body)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("paper %s: %w", id, ErrNotFound)
	}
	return &papers[0], nil
}

// get issues one throttled GET and returns the response body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	c.throttle()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	c.lastRequest = c.now()
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading arXiv response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}
	return body, nil
}

// throttle blocks until the next request may leave. When the previous
// request completed less than delay ago it sleeps the full delay, not
// the residual. A fresh client's first request never waits.
func (c *Client) throttle() {
	if c.delay <= 0 || c.lastRequest.IsZero() {
		return
	}
	if c.now().Sub(c.lastRequest) < c.delay {
		c.sleep(c.delay)
	}
}

// buildSearchQuery assembles the search_query expression: free text,
// then cat:, then a submittedDate window, joined with AND.
func buildSearchQuery(p Params) string {
	var parts []string
	if q := strings.TrimSpace(p.Query); q != "" {
		parts = append(parts, q)
	}
	if p.Category != "" {
		parts = append(parts, "cat:"+p.Category)
	}
	if !p.From.IsZero() && !p.To.IsZero() {
		parts = append(parts, fmt.Sprintf("submittedDate:[%s TO %s]",
			p.From.Format("20060102150405"), p.To.Format("20060102150405")))
	}
	return strings.Join(parts, " AND ")
}

// bodySnippet trims a response body for error messages.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
