// Package tmdb provides the client for the primary discovery/search
// provider. The provider's API shapes are treated as opaque inputs; only the
// fields the pipeline consumes are decoded.
package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cinefeed/cinefeed/pkg/retry"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinefeed_upstream_requests_total",
		Help: "Total upstream requests by operation and status",
	}, []string{"operation", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinefeed_upstream_request_duration_seconds",
		Help:    "Upstream request duration by operation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinefeed_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the production discovery provider endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// API is the upstream surface the pipeline consumes. The HTTP client
// implements it; tests substitute stubs.
type API interface {
	// Discover fetches one page of a filtered catalog listing.
	Discover(ctx context.Context, media string, params url.Values, page int) (*Page, error)

	// Trending fetches one page of the trending listing.
	Trending(ctx context.Context, media, window, language string, page int) (*Page, error)

	// Search fetches one page of free-text search results.
	Search(ctx context.Context, media, query, language string, page int) (*Page, error)

	// Details fetches the full attributes of one subject, including
	// credits, external identifiers and logo images.
	Details(ctx context.Context, media string, id int64, language string) (*Detail, error)

	// ReleaseDates fetches the full per-region release event list of a
	// movie in one call.
	ReleaseDates(ctx context.Context, id int64) ([]RegionReleases, error)

	// Season fetches one season of a series with all its episodes.
	Season(ctx context.Context, id int64, season int, language string) (*Season, error)
}

// Config holds the HTTP client configuration.
type Config struct {
	// APIKey authenticates every request.
	APIKey string

	// BaseURL overrides the provider endpoint. Used by tests.
	BaseURL string

	// RequestsPerSecond caps the steady-state request rate.
	RequestsPerSecond float64

	// Timeout bounds each individual network call.
	Timeout time.Duration

	// Retry overrides the retry policy for throttled requests.
	Retry retry.Options
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		BaseURL:           DefaultBaseURL,
		RequestsPerSecond: 40,
		Timeout:           10 * time.Second,
		Retry:             retry.DefaultOptions(),
	}
}

// Client is the HTTP implementation of API. A circuit breaker sits around
// the transport so a hard upstream outage fails fast instead of burning the
// retry budget of every caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	retryOpts  retry.Options
	logger     zerolog.Logger
}

// New creates an upstream client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig("").RequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig("").Timeout
	}

	clientLogger := logger.With().Str("component", "tmdb-client").Logger()

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name: "tmdb",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.TotalFailures*2 > counts.Requests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			clientLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upstream circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)),
		breaker:    breaker,
		retryOpts:  cfg.Retry,
		logger:     clientLogger,
	}, nil
}

// mediaPath maps the pipeline's media type to the provider's path segment.
func mediaPath(media string) string {
	if media == MediaSeries {
		return "tv"
	}
	return "movie"
}

// Discover implements API.
func (c *Client) Discover(ctx context.Context, media string, params url.Values, page int) (*Page, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("page", strconv.Itoa(page))

	return c.getPage(ctx, "discover", "/discover/"+mediaPath(media), query)
}

// Trending implements API.
func (c *Client) Trending(ctx context.Context, media, window, language string, page int) (*Page, error) {
	if window == "" {
		window = "day"
	}
	query := url.Values{}
	query.Set("language", language)
	query.Set("page", strconv.Itoa(page))

	return c.getPage(ctx, "trending", fmt.Sprintf("/trending/%s/%s", mediaPath(media), window), query)
}

// Search implements API.
func (c *Client) Search(ctx context.Context, media, query, language string, page int) (*Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("language", language)
	params.Set("page", strconv.Itoa(page))

	return c.getPage(ctx, "search", "/search/"+mediaPath(media), params)
}

// Details implements API. Credits, external ids and logo images arrive in
// the same response via append_to_response.
func (c *Client) Details(ctx context.Context, media string, id int64, language string) (*Detail, error) {
	query := url.Values{}
	query.Set("language", language)
	query.Set("append_to_response", "credits,external_ids,images")
	query.Set("include_image_language", "en,null")

	body, err := c.get(ctx, "details", fmt.Sprintf("/%s/%d", mediaPath(media), id), query)
	if err != nil {
		return nil, err
	}

	var detail Detail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	return &detail, nil
}

// ReleaseDates implements API.
func (c *Client) ReleaseDates(ctx context.Context, id int64) ([]RegionReleases, error) {
	body, err := c.get(ctx, "release_dates", fmt.Sprintf("/movie/%d/release_dates", id), nil)
	if err != nil {
		return nil, err
	}

	var envelope releaseDatesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode release dates: %w", err)
	}
	return envelope.Results, nil
}

// Season implements API.
func (c *Client) Season(ctx context.Context, id int64, season int, language string) (*Season, error) {
	query := url.Values{}
	query.Set("language", language)

	body, err := c.get(ctx, "season", fmt.Sprintf("/tv/%d/season/%d", id, season), query)
	if err != nil {
		return nil, err
	}

	var s Season
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode season: %w", err)
	}
	return &s, nil
}

// getPage fetches and decodes one paginated listing.
func (c *Client) getPage(ctx context.Context, operation, path string, query url.Values) (*Page, error) {
	body, err := c.get(ctx, operation, path, query)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}

// get performs one upstream request with limiter, circuit breaker and retry.
// Throttled requests are retried per the retry policy; all other failures
// propagate immediately.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	return retry.Do(c.retryOpts, func() ([]byte, error) {
		return c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, operation, path, query)
		})
	})
}

// doRequest performs a single HTTP round trip.
func (c *Client) doRequest(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	requestURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	upstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	upstreamRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RetryAfter: parseRetryAfter(resp.Header),
	}
	if resp.StatusCode == http.StatusNotFound {
		statusErr.Message = ErrNotFound.Error()
	}
	upstreamErrorsTotal.WithLabelValues(string(statusErr.Class())).Inc()

	c.logger.Debug().
		Str("operation", operation).
		Int("status_code", resp.StatusCode).
		Msg("Upstream request failed")

	return nil, statusErr
}

// parseRetryAfter reads the Retry-After header of a throttled response.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
