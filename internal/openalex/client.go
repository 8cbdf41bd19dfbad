package openalex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matsen/citegraph/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is the total number of attempts per request, including the first.
	DefaultMaxAttempts = 5

	// DefaultInitialBackoff is the wait before the first retry; it doubles on each retry.
	DefaultInitialBackoff = 1 * time.Second

	// DefaultMaxBackoff caps the wait between two attempts.
	DefaultMaxBackoff = 30 * time.Second

	// RateLimit is the default request rate in requests per second.
	RateLimit = 10.0

	// DefaultSearchLimit is the number of candidates returned by a title search.
	DefaultSearchLimit = 5

	// maxResponseBytes guards against unbounded response bodies.
	maxResponseBytes = 16 << 20
)

// Client is a rate-limited, retrying HTTP client for the OpenAlex works API.
type Client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	mailto         string
	searchLimit    int
	maxAttempts    uint
	initialBackoff time.Duration
	maxBackoff     time.Duration
	metrics        *metrics.Collector
	logger         zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithMailto sets the contact address sent with every request (OpenAlex polite pool).
func WithMailto(mailto string) ClientOption {
	return func(c *Client) {
		c.mailto = mailto
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets the attempt budget and the initial backoff.
func WithRetry(maxAttempts int, initialBackoff time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = uint(maxAttempts)
		}
		if initialBackoff > 0 {
			c.initialBackoff = initialBackoff
		}
	}
}

// WithRateLimit sets the request rate in requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithSearchLimit sets the number of candidates returned by SearchByTitle.
func WithSearchLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithMetrics reports upstream attempts to a collector.
func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new OpenAlex API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		limiter:        rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:        BaseURL,
		searchLimit:    DefaultSearchLimit,
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SearchByTitle returns up to the search limit of candidate works for a title.
// A query with no matches returns an empty slice, not an error.
func (c *Client) SearchByTitle(ctx context.Context, title string) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("search", title)
	query.Set("per_page", strconv.Itoa(c.searchLimit))

	var resp searchResponse
	if err := c.getJSON(ctx, "search", title, "/works", query, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, w := range resp.Results {
		if len(results) == c.searchLimit {
			break
		}
		results = append(results, SearchResult{
			ID:    NormalizeID(w.ID),
			Title: truncateRunes(w.DisplayName, SearchTitleMaxLen),
		})
	}
	return results, nil
}

// GetWork fetches a work by its OpenAlex ID.
func (c *Client) GetWork(ctx context.Context, id string) (*Work, error) {
	id = NormalizeID(id)
	if !workIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var w Work
	if err := c.getJSON(ctx, "work", id, "/works/"+id, url.Values{}, &w); err != nil {
		return nil, err
	}
	if w.ID == "" {
		return nil, &UpstreamError{Op: "work", ID: id, Err: fmt.Errorf("%w: missing id", ErrInvalidResponse)}
	}
	return &w, nil
}

// GetWorkByDOI fetches a work by DOI.
func (c *Client) GetWorkByDOI(ctx context.Context, doi string) (*Work, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", ErrInvalidID)
	}

	var w Work
	if err := c.getJSON(ctx, "doi", doi, "/works/doi:"+doi, url.Values{}, &w); err != nil {
		return nil, err
	}
	if w.ID == "" {
		return nil, &UpstreamError{Op: "doi", ID: doi, Err: fmt.Errorf("%w: missing id", ErrInvalidResponse)}
	}
	return &w, nil
}
