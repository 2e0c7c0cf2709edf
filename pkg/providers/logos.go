package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Logo is one logo variant with its language tag.
type Logo struct {
	URL      string
	Language string
}

// LogoFetcher fetches logo variants for a subject from a secondary art
// provider.
type LogoFetcher interface {
	FetchLogos(ctx context.Context, media string, tmdbID int64) ([]Logo, error)
}

// Logos merges primary-provider logos with a secondary art provider and
// picks one variant by language preference.
type Logos struct {
	fanart LogoFetcher
	logger zerolog.Logger
}

// NewLogos creates the logo resolution service. fanart may be nil when no
// secondary provider is configured.
func NewLogos(fanart LogoFetcher, logger zerolog.Logger) *Logos {
	return &Logos{
		fanart: fanart,
		logger: logger.With().Str("component", "logos").Logger(),
	}
}

// Resolve merges the primary provider's logo variants with the secondary
// provider's and returns the best match. Preference order: exact language,
// original language, English, first available. A secondary-provider failure
// degrades to the primary set alone; no variants at all yields "".
func (l *Logos) Resolve(ctx context.Context, media string, tmdbID int64, primary []Logo, language, originalLanguage string) string {
	merged := make([]Logo, 0, len(primary)+4)
	merged = append(merged, primary...)

	if l.fanart != nil {
		secondary, err := l.fanart.FetchLogos(ctx, media, tmdbID)
		if err != nil {
			l.logger.Debug().Err(err).Int64("subject_id", tmdbID).Msg("Secondary logo lookup failed, using primary only")
		} else {
			merged = append(merged, secondary...)
		}
	}

	return PickLogo(merged, language, originalLanguage)
}

// PickLogo selects a logo by language preference:
// exact language -> original language -> English -> first available.
func PickLogo(logos []Logo, language, originalLanguage string) string {
	if len(logos) == 0 {
		return ""
	}

	lang := baseLanguage(language)
	for _, preferred := range []string{lang, originalLanguage, "en"} {
		if preferred == "" {
			continue
		}
		for _, logo := range logos {
			if logo.Language == preferred {
				return logo.URL
			}
		}
	}
	return logos[0].URL
}

// baseLanguage reduces a "lang-REGION" tag to its language part.
func baseLanguage(tag string) string {
	if lang, _, ok := strings.Cut(tag, "-"); ok {
		return lang
	}
	return tag
}

// FanartClient is the HTTP implementation of LogoFetcher.
type FanartClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// DefaultFanartBaseURL is the production art provider endpoint.
const DefaultFanartBaseURL = "https://webservice.fanart.tv/v3"

// NewFanartClient creates an art provider client.
func NewFanartClient(baseURL, apiKey string) *FanartClient {
	if baseURL == "" {
		baseURL = DefaultFanartBaseURL
	}
	return &FanartClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchLogos implements LogoFetcher.
func (c *FanartClient) FetchLogos(ctx context.Context, media string, tmdbID int64) ([]Logo, error) {
	kind := "movies"
	if media == "series" {
		kind = "tv"
	}

	url := fmt.Sprintf("%s/%s/%d?api_key=%s", c.baseURL, kind, tmdbID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("logo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("logo provider status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read logo body: %w", err)
	}

	var payload struct {
		HDMovieLogo []fanartImage `json:"hdmovielogo"`
		HDTVLogo    []fanartImage `json:"hdtvlogo"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode logos: %w", err)
	}

	images := payload.HDMovieLogo
	if kind == "tv" {
		images = payload.HDTVLogo
	}

	logos := make([]Logo, 0, len(images))
	for _, img := range images {
		logos = append(logos, Logo{URL: img.URL, Language: img.Lang})
	}
	return logos, nil
}

type fanartImage struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}
