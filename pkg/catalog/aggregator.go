// Package catalog aggregates upstream discovery listings into fully
// enriched catalog responses: page fetch, metadata enrichment, release
// filtering, dedup and truncation run as one pipeline per request.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/pkg/batch"
	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/config"
	"github.com/cinefeed/cinefeed/pkg/meta"
	"github.com/cinefeed/cinefeed/pkg/release"
	"github.com/cinefeed/cinefeed/pkg/stremio"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// Prometheus metrics for the catalog pipeline.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinefeed_catalog_requests_total",
		Help: "Total catalog requests by kind",
	}, []string{"kind"})

	catalogPlaceholdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinefeed_catalog_placeholders_total",
		Help: "Total placeholder responses by reason",
	}, []string{"reason"})

	catalogPipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinefeed_catalog_pipeline_duration_seconds",
		Help:    "End-to-end catalog pipeline duration by kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"kind"})
)

// MaxCatalogSize caps every catalog response.
const MaxCatalogSize = 20

// filteredPageSpan is how many upstream pages are fetched when a release
// filter is expected to prune a large share of the raw listing.
const filteredPageSpan = 3

// PlaceholderID marks the synthetic record returned for empty or failed
// catalogs. Consumers resolve it to a null metadata response.
const PlaceholderID = meta.IDPrefix + "0"

// Request describes one catalog, trending or search request after the
// transport layer has parsed path and extras.
type Request struct {
	// MediaType is "movie" or "series".
	MediaType string

	// SourceID selects the catalog flavor: "top", "year", "language" or
	// a provider-curated "provider.<id>" source.
	SourceID string

	// Genre is the catalog's genre slot. The year and language catalogs
	// overload it with a year or a language code.
	Genre string

	// Query is the free-text search term. Only set for search requests.
	Query string

	// Page is the 1-based first upstream page to fetch.
	Page int

	// Language is the display language tag, e.g. "en-US".
	Language string

	// User carries the per-user toggles that shape filtering and
	// enrichment.
	User config.User
}

// pageFetch retrieves one upstream page for a region. The three entry
// points differ only in how pages are fetched; everything downstream is
// shared.
type pageFetch func(ctx context.Context, region string, page int) (*tmdb.Page, error)

// Aggregator runs the catalog pipeline. All entry points absorb failures
// into placeholder responses; callers never see an error.
type Aggregator struct {
	api     tmdb.API
	meta    *meta.Resolver
	release *release.Resolver
	cache   *cache.Service
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewAggregator creates a catalog aggregator. ttl bounds how long an
// aggregated response is served from cache.
func NewAggregator(api tmdb.API, metaResolver *meta.Resolver, releaseResolver *release.Resolver, cacheSvc *cache.Service, ttl time.Duration, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		api:     api,
		meta:    metaResolver,
		release: releaseResolver,
		cache:   cacheSvc,
		ttl:     ttl,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// GetCatalog serves a discover-backed catalog.
func (a *Aggregator) GetCatalog(ctx context.Context, req Request) stremio.CatalogResponse {
	return a.respond(ctx, "catalog", req, func(ctx context.Context, region string, page int) (*tmdb.Page, error) {
		return a.api.Discover(ctx, req.MediaType, buildDiscoverParams(req, region), page)
	})
}

// GetTrending serves the trending catalog.
func (a *Aggregator) GetTrending(ctx context.Context, req Request) stremio.CatalogResponse {
	return a.respond(ctx, "trending", req, func(ctx context.Context, _ string, page int) (*tmdb.Page, error) {
		return a.api.Trending(ctx, req.MediaType, "day", req.Language, page)
	})
}

// GetSearch serves free-text search results. A blank query short-circuits
// to an empty response without touching the upstream.
func (a *Aggregator) GetSearch(ctx context.Context, req Request) stremio.CatalogResponse {
	if strings.TrimSpace(req.Query) == "" {
		return stremio.CatalogResponse{Metas: []stremio.MetaRecord{}}
	}
	return a.respond(ctx, "search", req, func(ctx context.Context, _ string, page int) (*tmdb.Page, error) {
		return a.api.Search(ctx, req.MediaType, req.Query, req.Language, page)
	})
}

// respond wraps the pipeline with response caching, metrics and the
// error-to-placeholder boundary.
func (a *Aggregator) respond(ctx context.Context, kind string, req Request, fetch pageFetch) stremio.CatalogResponse {
	start := time.Now()
	catalogRequestsTotal.WithLabelValues(kind).Inc()
	defer func() {
		catalogPipelineDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	key := a.cache.Key(cache.ClassCatalog, requestID(kind, req))
	metas, err := cache.Wrap(ctx, a.cache, key, a.ttl, func(ctx context.Context) ([]stremio.MetaRecord, error) {
		return a.aggregate(ctx, req, fetch)
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("kind", kind).
			Str("media_type", req.MediaType).
			Str("source", req.SourceID).
			Msg("Catalog aggregation failed")
		catalogPlaceholdersTotal.WithLabelValues("error").Inc()
		return stremio.CatalogResponse{Metas: []stremio.MetaRecord{errorPlaceholder(req)}}
	}

	return stremio.CatalogResponse{Metas: metas}
}

// requestID builds the cache identity of a catalog response. Every input
// that changes the output participates.
func requestID(kind string, req Request) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d:%s:rf=%t:df=%t:rpdb=%s:age=%t",
		kind, req.MediaType, req.SourceID, req.Genre, req.Query, req.Page,
		req.Language, req.User.RegionFiltered, req.User.DigitalFiltered,
		req.User.RPDBKey, req.User.ShowAgeRating)
}

// aggregate runs the pipeline for the user's region, retrying provider
// catalogs once against the default region when the regional listing is
// empty, and substitutes a placeholder for an empty result.
func (a *Aggregator) aggregate(ctx context.Context, req Request, fetch pageFetch) ([]stremio.MetaRecord, error) {
	region := req.User.Region()

	metas, err := a.collect(ctx, req, region, fetch)
	if err != nil {
		return nil, err
	}

	if len(metas) == 0 && isProviderCatalog(req.SourceID) && region != config.DefaultRegion {
		a.logger.Debug().
			Str("source", req.SourceID).
			Str("region", region).
			Msg("Provider catalog empty, retrying with default region")
		metas, err = a.collect(ctx, req, config.DefaultRegion, fetch)
		if err != nil {
			return nil, err
		}
	}

	if len(metas) == 0 {
		catalogPlaceholdersTotal.WithLabelValues("empty").Inc()
		return []stremio.MetaRecord{emptyPlaceholder(req)}, nil
	}
	return metas, nil
}

// collect fetches the page span concurrently, then enriches, filters and
// merges page by page in fetch order. Merging stops as soon as the cap is
// reached; later pages skip enrichment entirely.
func (a *Aggregator) collect(ctx context.Context, req Request, region string, fetch pageFetch) ([]stremio.MetaRecord, error) {
	startPage := req.Page
	if startPage < 1 {
		startPage = 1
	}
	span := pageSpan(req)

	pages := make([]*tmdb.Page, span)
	errs := make([]error, span)
	var wg sync.WaitGroup
	for i := 0; i < span; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pages[i], errs[i] = fetch(ctx, region, startPage+i)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", startPage+i, err)
		}
	}

	merged := make([]stremio.MetaRecord, 0, MaxCatalogSize)
	seen := make(map[string]struct{}, MaxCatalogSize)
	for _, page := range pages {
		if len(merged) >= MaxCatalogSize {
			break
		}
		if page == nil || len(page.Results) == 0 {
			continue
		}

		records := a.enrich(ctx, req, page.Results)
		records = a.filterReleased(ctx, req, region, records)

		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
			if len(merged) >= MaxCatalogSize {
				break
			}
		}
	}

	return merged, nil
}

// pageSpan decides how many upstream pages one request consumes. Release
// filters discard so much of a raw movie listing that a single page would
// often come back near-empty; provider catalogs are already curated and
// never over-fetch.
func pageSpan(req Request) int {
	user := req.User
	if req.MediaType == tmdb.MediaMovie &&
		(user.RegionFiltered || user.DigitalFiltered) &&
		!isProviderCatalog(req.SourceID) {
		return filteredPageSpan
	}
	return 1
}

// enrich resolves full metadata for every listing item with bounded
// concurrency. Items whose enrichment fails are dropped; one broken title
// never voids a page.
func (a *Aggregator) enrich(ctx context.Context, req Request, titles []tmdb.Title) []stremio.MetaRecord {
	return batch.ProcessFiltered(ctx, titles, batch.DefaultOptions(), func(ctx context.Context, title tmdb.Title) (stremio.MetaRecord, error) {
		rec, err := a.meta.Resolve(ctx, req.MediaType, req.Language, title.ID, req.User)
		if err != nil {
			return stremio.MetaRecord{}, err
		}
		if rec == nil {
			return stremio.MetaRecord{}, fmt.Errorf("no metadata for subject %d", title.ID)
		}
		return *rec, nil
	})
}

// gated pairs a record with its release verdict so the filter pass can
// reuse the batch executor without conflating "dropped" and "failed".
type gated struct {
	record stremio.MetaRecord
	keep   bool
}

// filterReleased applies the active release filter to enriched movie
// records. Region filtering takes precedence over digital filtering; the
// two never stack. A record whose release facts cannot be fetched is kept
// rather than hidden on an upstream hiccup.
func (a *Aggregator) filterReleased(ctx context.Context, req Request, region string, records []stremio.MetaRecord) []stremio.MetaRecord {
	if req.MediaType != tmdb.MediaMovie {
		return records
	}
	user := req.User
	if !user.RegionFiltered && !user.DigitalFiltered {
		return records
	}

	checked := batch.ProcessFiltered(ctx, records, batch.DefaultOptions(), func(ctx context.Context, rec stremio.MetaRecord) (gated, error) {
		id, ok := subjectID(rec.ID)
		if !ok {
			return gated{record: rec, keep: true}, nil
		}

		var released bool
		var err error
		if user.RegionFiltered {
			released, err = a.release.IsReleasedInRegion(ctx, id, region)
		} else {
			released, err = a.release.IsReleasedGlobally(ctx, id)
		}
		if err != nil {
			a.logger.Warn().
				Err(err).
				Int64("subject_id", id).
				Msg("Release check failed, keeping title")
			return gated{record: rec, keep: true}, nil
		}
		return gated{record: rec, keep: released}, nil
	})

	kept := make([]stremio.MetaRecord, 0, len(checked))
	for _, g := range checked {
		if g.keep {
			kept = append(kept, g.record)
		}
	}
	return kept
}

// subjectID extracts the numeric upstream id from a record id.
func subjectID(recordID string) (int64, bool) {
	raw := strings.TrimPrefix(recordID, meta.IDPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// emptyPlaceholder is returned when a catalog genuinely has no matching
// titles.
func emptyPlaceholder(req Request) stremio.MetaRecord {
	return stremio.MetaRecord{
		ID:          PlaceholderID,
		Type:        req.MediaType,
		Name:        "No results",
		Description: "No titles matched this catalog. Adjust the configured filters and try again.",
	}
}

// errorPlaceholder is returned when the pipeline itself failed.
func errorPlaceholder(req Request) stremio.MetaRecord {
	return stremio.MetaRecord{
		ID:          PlaceholderID,
		Type:        req.MediaType,
		Name:        "Catalog unavailable",
		Description: "This catalog could not be loaded. Please try again later.",
	}
}
