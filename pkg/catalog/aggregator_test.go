package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/config"
	"github.com/cinefeed/cinefeed/pkg/meta"
	"github.com/cinefeed/cinefeed/pkg/providers"
	"github.com/cinefeed/cinefeed/pkg/release"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// fakeUpstream serves canned pages and synthesizes details on demand, so
// pipeline tests only declare the listing shape they care about.
type fakeUpstream struct {
	mu           sync.Mutex
	pages        map[int]*tmdb.Page
	pageErr      error
	regions      map[int64][]tmdb.RegionReleases
	regionErr    map[int64]error
	fetchedPages []int
	watchRegions []string

	// usOnlyProvider makes provider listings empty outside watch_region=US.
	usOnlyProvider bool
}

func (f *fakeUpstream) pageFor(page int) (*tmdb.Page, error) {
	f.mu.Lock()
	f.fetchedPages = append(f.fetchedPages, page)
	f.mu.Unlock()

	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &tmdb.Page{Page: page}, nil
}

func (f *fakeUpstream) Discover(_ context.Context, _ string, params url.Values, page int) (*tmdb.Page, error) {
	if region := params.Get("watch_region"); region != "" {
		f.mu.Lock()
		f.watchRegions = append(f.watchRegions, region)
		f.mu.Unlock()
		if f.usOnlyProvider && region != "US" {
			return &tmdb.Page{Page: page}, nil
		}
	}
	return f.pageFor(page)
}

func (f *fakeUpstream) Trending(_ context.Context, _, _, _ string, page int) (*tmdb.Page, error) {
	return f.pageFor(page)
}

func (f *fakeUpstream) Search(_ context.Context, _, _, _ string, page int) (*tmdb.Page, error) {
	return f.pageFor(page)
}

func (f *fakeUpstream) Details(_ context.Context, _ string, id int64, _ string) (*tmdb.Detail, error) {
	return &tmdb.Detail{
		ID:          id,
		Title:       fmt.Sprintf("Title %d", id),
		ReleaseDate: "2020-01-01",
	}, nil
}

func (f *fakeUpstream) ReleaseDates(_ context.Context, id int64) ([]tmdb.RegionReleases, error) {
	if err := f.regionErr[id]; err != nil {
		return nil, err
	}
	return f.regions[id], nil
}

func (f *fakeUpstream) Season(context.Context, int64, int, string) (*tmdb.Season, error) {
	return nil, errors.New("no seasons")
}

func (f *fakeUpstream) fetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetchedPages...)
}

// nopRatings never serves a rating; synthesized details carry no external
// id so the fetcher is never reached anyway.
type nopRatings struct{}

func (nopRatings) FetchRating(context.Context, string) (string, error) {
	return "", nil
}

func pageOf(ids ...int64) *tmdb.Page {
	titles := make([]tmdb.Title, 0, len(ids))
	for _, id := range ids {
		titles = append(titles, tmdb.Title{ID: id, Title: fmt.Sprintf("Title %d", id)})
	}
	return &tmdb.Page{Page: 1, Results: titles, TotalResults: len(titles)}
}

func newTestAggregator(api tmdb.API) *Aggregator {
	svc := cache.NewService(cache.Options{Prefix: "test"}, zerolog.Nop())
	ratings := providers.NewRatings(nopRatings{}, zerolog.Nop())
	logos := providers.NewLogos(nil, zerolog.Nop())
	metaResolver := meta.NewResolver(api, svc, ratings, logos, 0, zerolog.Nop())
	releaseResolver := release.NewResolver(api, svc, zerolog.Nop())
	return NewAggregator(api, metaResolver, releaseResolver, svc, time.Minute, zerolog.Nop())
}

func TestGetCatalog_DeduplicatesAndCaps(t *testing.T) {
	// 25 raw items with 5 duplicate ids leave exactly 20 unique titles.
	ids := []int64{1, 2, 3, 4, 5, 1, 2, 3, 4, 5}
	for id := int64(6); id <= 20; id++ {
		ids = append(ids, id)
	}
	api := &fakeUpstream{pages: map[int]*tmdb.Page{1: pageOf(ids...)}}
	agg := newTestAggregator(api)

	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "en-US",
	})

	require.Len(t, resp.Metas, MaxCatalogSize)

	seen := make(map[string]bool)
	for _, m := range resp.Metas {
		assert.False(t, seen[m.ID], "duplicate id %s in response", m.ID)
		seen[m.ID] = true
	}
	assert.Equal(t, "tmdb:1", resp.Metas[0].ID, "first-seen order must survive dedup")
	assert.Equal(t, "tmdb:6", resp.Metas[5].ID)
}

func TestGetCatalog_RegionFilter(t *testing.T) {
	api := &fakeUpstream{
		pages: map[int]*tmdb.Page{1: pageOf(10, 11, 12)},
		regions: map[int64][]tmdb.RegionReleases{
			// 10 had a past theatrical run in the user's region.
			10: {{Region: "US", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseTheatrical, ReleaseDate: "2020-01-01"},
			}}},
			// 11 released elsewhere only; the region check fails closed.
			11: {{Region: "DE", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseTheatrical, ReleaseDate: "2020-01-01"},
			}}},
		},
		// 12's release facts are unreachable; the filter keeps it.
		regionErr: map[int64]error{12: errors.New("upstream 500")},
	}
	agg := newTestAggregator(api)

	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "en-US",
		User:      config.User{Language: "en-US", RegionFiltered: true},
	})

	require.Len(t, resp.Metas, 2)
	assert.Equal(t, "tmdb:10", resp.Metas[0].ID)
	assert.Equal(t, "tmdb:12", resp.Metas[1].ID)
}

func TestGetCatalog_DigitalFilter(t *testing.T) {
	api := &fakeUpstream{
		pages: map[int]*tmdb.Page{1: pageOf(20, 21)},
		regions: map[int64][]tmdb.RegionReleases{
			20: {{Region: "FR", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseDigital, ReleaseDate: "2020-01-01"},
			}}},
			// Theatrical-only never satisfies the digital filter.
			21: {{Region: "US", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseTheatrical, ReleaseDate: "2020-01-01"},
			}}},
		},
	}
	agg := newTestAggregator(api)

	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "en-US",
		User:      config.User{Language: "en-US", DigitalFiltered: true},
	})

	require.Len(t, resp.Metas, 1)
	assert.Equal(t, "tmdb:20", resp.Metas[0].ID)
}

func TestGetCatalog_AllFilteredYieldsPlaceholder(t *testing.T) {
	api := &fakeUpstream{
		pages: map[int]*tmdb.Page{1: pageOf(30, 31)},
		regions: map[int64][]tmdb.RegionReleases{
			30: {{Region: "US", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseTheatrical, ReleaseDate: "2020-01-01"},
			}}},
			31: {{Region: "US", Releases: []tmdb.ReleaseEvent{
				{Type: tmdb.ReleaseTheatrical, ReleaseDate: "2020-01-01"},
			}}},
		},
	}
	agg := newTestAggregator(api)

	// Every title released in US only; a DE user with the region filter
	// sees nothing and gets the single placeholder record.
	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "de-DE",
		User:      config.User{Language: "de-DE", RegionFiltered: true},
	})

	require.Len(t, resp.Metas, 1)
	assert.Equal(t, PlaceholderID, resp.Metas[0].ID)
	assert.Equal(t, "No results", resp.Metas[0].Name)
}

func TestGetCatalog_UpstreamFailureYieldsErrorPlaceholder(t *testing.T) {
	api := &fakeUpstream{pageErr: errors.New("upstream down")}
	agg := newTestAggregator(api)

	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "en-US",
	})

	require.Len(t, resp.Metas, 1)
	assert.Equal(t, PlaceholderID, resp.Metas[0].ID)
	assert.Equal(t, "Catalog unavailable", resp.Metas[0].Name)
}

func TestGetCatalog_PageSpan(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected int
	}{
		{
			name: "unfiltered movie fetches one page",
			req: Request{
				MediaType: tmdb.MediaMovie,
				SourceID:  SourceTop,
				Page:      1,
				Language:  "en-US",
			},
			expected: 1,
		},
		{
			name: "region-filtered movie over-fetches",
			req: Request{
				MediaType: tmdb.MediaMovie,
				SourceID:  SourceTop,
				Page:      1,
				Language:  "en-US",
				User:      config.User{Language: "en-US", RegionFiltered: true},
			},
			expected: 3,
		},
		{
			name: "filtered series stays at one page",
			req: Request{
				MediaType: tmdb.MediaSeries,
				SourceID:  SourceTop,
				Page:      1,
				Language:  "en-US",
				User:      config.User{Language: "en-US", RegionFiltered: true},
			},
			expected: 1,
		},
		{
			name: "filtered provider catalog stays at one page",
			req: Request{
				MediaType: tmdb.MediaMovie,
				SourceID:  "provider.8",
				Page:      1,
				Language:  "en-US",
				User:      config.User{Language: "en-US", RegionFiltered: true},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeUpstream{}
			agg := newTestAggregator(api)

			agg.GetCatalog(context.Background(), tt.req)

			assert.Len(t, api.fetched(), tt.expected)
		})
	}
}

func TestGetCatalog_FilteredSpanStartsAtRequestedPage(t *testing.T) {
	api := &fakeUpstream{}
	agg := newTestAggregator(api)

	agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      4,
		Language:  "en-US",
		User:      config.User{Language: "en-US", RegionFiltered: true},
	})

	assert.ElementsMatch(t, []int{4, 5, 6}, api.fetched())
}

func TestGetCatalog_ProviderRetriesDefaultRegion(t *testing.T) {
	api := &fakeUpstream{
		pages:          map[int]*tmdb.Page{1: pageOf(40, 41)},
		usOnlyProvider: true,
	}
	agg := newTestAggregator(api)

	resp := agg.GetCatalog(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  "provider.8",
		Page:      1,
		Language:  "de-DE",
		User:      config.User{Language: "de-DE"},
	})

	assert.Equal(t, []string{"DE", "US"}, api.watchRegions, "empty regional listing must be retried with the default region")
	require.Len(t, resp.Metas, 2)
	assert.Equal(t, "tmdb:40", resp.Metas[0].ID)
}

func TestGetCatalog_ResponseCached(t *testing.T) {
	api := &fakeUpstream{pages: map[int]*tmdb.Page{1: pageOf(1, 2, 3)}}
	agg := newTestAggregator(api)

	req := Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  SourceTop,
		Page:      1,
		Language:  "en-US",
	}

	first := agg.GetCatalog(context.Background(), req)
	second := agg.GetCatalog(context.Background(), req)

	assert.Len(t, api.fetched(), 1, "second request must be served from cache")
	assert.Equal(t, first, second)
}

func TestGetTrending(t *testing.T) {
	api := &fakeUpstream{pages: map[int]*tmdb.Page{1: pageOf(50, 51)}}
	agg := newTestAggregator(api)

	resp := agg.GetTrending(context.Background(), Request{
		MediaType: tmdb.MediaSeries,
		SourceID:  "trending",
		Page:      1,
		Language:  "en-US",
	})

	require.Len(t, resp.Metas, 2)
	assert.Equal(t, "tmdb:50", resp.Metas[0].ID)
	assert.Equal(t, tmdb.MediaSeries, resp.Metas[0].Type)
}

func TestGetSearch_BlankQuerySkipsUpstream(t *testing.T) {
	api := &fakeUpstream{}
	agg := newTestAggregator(api)

	resp := agg.GetSearch(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  "search",
		Query:     "   ",
		Page:      1,
		Language:  "en-US",
	})

	assert.Empty(t, resp.Metas)
	assert.Empty(t, api.fetched(), "blank queries never reach the upstream")
}

func TestGetSearch(t *testing.T) {
	api := &fakeUpstream{pages: map[int]*tmdb.Page{1: pageOf(60)}}
	agg := newTestAggregator(api)

	resp := agg.GetSearch(context.Background(), Request{
		MediaType: tmdb.MediaMovie,
		SourceID:  "search",
		Query:     "matrix",
		Page:      1,
		Language:  "en-US",
	})

	require.Len(t, resp.Metas, 1)
	assert.Equal(t, "tmdb:60", resp.Metas[0].ID)
}
