package meili

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/search"

	"golang.org/x/time/rate"
)

const defaultMaxResponseBytes = 32 << 20

// Client implements search.Searcher against a Meilisearch-compatible
// /indexes/{index}/search endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBytes   int64
}

// NewClientParams contains configuration options for creating a new Client.
//
// MaxRetries is the total number of attempts per call; values <= 1 disable
// retries. Only transport errors and 5xx answers are retried.
// RatePerSecond <= 0 disables client side rate limiting.
// MaxResponseBytes defaults to 32 MiB.
type NewClientParams struct {
	BaseURL string
	APIKey  string

	Timeout       time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	RatePerSecond float64

	MaxResponseBytes int64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates a search client for the server at BaseURL.
func NewClient(params NewClientParams) (*Client, error) {
	if params.BaseURL == "" {
		return nil, fmt.Errorf("meili base url is empty")
	}
	u, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid meili base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid meili base url: %s", params.BaseURL)
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if params.APIKey != "" {
		headers["Authorization"] = "Bearer " + params.APIKey
	}

	base := http.DefaultTransport
	if params.HTTPClient != nil && params.HTTPClient.Transport != nil {
		base = params.HTTPClient.Transport
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			headers: headers,
			rt:      base,
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if params.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.RatePerSecond), 1)
	}

	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	maxBytes := params.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: params.MaxRetries,
		backoff:    backoff,
		maxBytes:   maxBytes,
	}, nil
}

type searchRequest struct {
	Q                    string   `json:"q,omitempty"`
	Filter               string   `json:"filter,omitempty"`
	Limit                int      `json:"limit"`
	AttributesToSearchOn []string `json:"attributesToSearchOn,omitempty"`
}

// SearchText runs a plain full-text query.
func (c *Client) SearchText(ctx context.Context, index string, query string, limit int) ([]search.Record, error) {
	return c.search(ctx, index, searchRequest{Q: query, Limit: limit})
}

// SearchFilter runs a filter expression such as `cnpj = "123"`.
func (c *Client) SearchFilter(ctx context.Context, index string, filter string, limit int) ([]search.Record, error) {
	return c.search(ctx, index, searchRequest{Filter: filter, Limit: limit})
}

// SearchFields runs a full-text query restricted to the given attributes.
func (c *Client) SearchFields(ctx context.Context, index string, query string, limit int, fields []string) ([]search.Record, error) {
	return c.search(ctx, index, searchRequest{Q: query, Limit: limit, AttributesToSearchOn: fields})
}

func (c *Client) search(ctx context.Context, index string, req searchRequest) ([]search.Record, error) {
	if index == "" {
		return nil, fmt.Errorf("meili index is empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}
	endpoint := c.baseURL.JoinPath("indexes", index, "search").String()

	return util.RetryWithContext(ctx, c.maxRetries, c.backoff, func(ctx context.Context) ([]search.Record, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, endpoint, payload)
	})
}

func (c *Client) do(ctx context.Context, endpoint string, payload []byte) ([]search.Record, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, util.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query search backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, util.Permanent(fmt.Errorf("%w: over %d bytes", search.ErrTooLarge, c.maxBytes))
	}

	logger.Debug("[Search] Response", "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", search.ErrBadStatus, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, util.Permanent(fmt.Errorf("%w: %d", search.ErrBadStatus, resp.StatusCode))
	}

	records, err := search.ParseHits(body)
	if err != nil {
		return nil, util.Permanent(err)
	}
	return records, nil
}
