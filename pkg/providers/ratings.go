// Package providers holds the clients for the optional secondary providers
// (ratings, logos). Each is independently fault-tolerant: a failure degrades
// the affected field to empty rather than failing the record.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/pkg/cache"
)

// RatingFetcher looks up an aggregate audience rating by IMDb id.
type RatingFetcher interface {
	FetchRating(ctx context.Context, imdbID string) (string, error)
}

// ratingMemoSize bounds the per-process rating memoization. Ratings change
// slowly, so entries are kept for the process lifetime and evicted only by
// recency.
const ratingMemoSize = 4096

// Ratings memoizes a RatingFetcher per subject.
type Ratings struct {
	memo   *cache.LRU[string, string]
	logger zerolog.Logger
}

// NewRatings wraps a fetcher with bounded memoization.
func NewRatings(fetcher RatingFetcher, logger zerolog.Logger) *Ratings {
	memo, err := cache.NewLRU(ratingMemoSize, func(ctx context.Context, imdbID string) (string, error) {
		return fetcher.FetchRating(ctx, imdbID)
	})
	if err != nil {
		// Static size, cannot fail.
		panic(err)
	}
	return &Ratings{
		memo:   memo,
		logger: logger.With().Str("component", "ratings").Logger(),
	}
}

// Lookup returns the rating for a subject, or "" when the provider fails or
// the id is empty. Failures are never memoized.
func (r *Ratings) Lookup(ctx context.Context, imdbID string) string {
	if imdbID == "" {
		return ""
	}
	rating, err := r.memo.Fetch(ctx, imdbID)
	if err != nil {
		r.logger.Debug().Err(err).Str("imdb_id", imdbID).Msg("Rating lookup failed, leaving empty")
		return ""
	}
	return rating
}

// DefaultRatingBaseURL is the production rating provider endpoint.
const DefaultRatingBaseURL = "https://ratings.cinefeed.dev"

// RatingClient is the HTTP implementation of RatingFetcher.
type RatingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRatingClient creates a rating provider client.
func NewRatingClient(baseURL string) *RatingClient {
	return &RatingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchRating implements RatingFetcher.
func (c *RatingClient) FetchRating(ctx context.Context, imdbID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rating/"+imdbID, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("rating request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rating provider status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read rating body: %w", err)
	}

	var payload struct {
		Rating string `json:"rating"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode rating: %w", err)
	}
	return payload.Rating, nil
}
