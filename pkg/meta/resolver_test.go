package meta

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/config"
	"github.com/cinefeed/cinefeed/pkg/providers"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// stubAPI is a canned upstream with call counting.
type stubAPI struct {
	detail      *tmdb.Detail
	detailErr   error
	detailCalls atomic.Int64
	seasons     map[int]*tmdb.Season
	regions     []tmdb.RegionReleases
}

func (s *stubAPI) Discover(context.Context, string, url.Values, int) (*tmdb.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) Trending(context.Context, string, string, string, int) (*tmdb.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) Search(context.Context, string, string, string, int) (*tmdb.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) Details(context.Context, string, int64, string) (*tmdb.Detail, error) {
	s.detailCalls.Add(1)
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return s.detail, nil
}

func (s *stubAPI) ReleaseDates(context.Context, int64) ([]tmdb.RegionReleases, error) {
	return s.regions, nil
}

func (s *stubAPI) Season(_ context.Context, _ int64, number int, _ string) (*tmdb.Season, error) {
	season, ok := s.seasons[number]
	if !ok {
		return nil, errors.New("season not found")
	}
	return season, nil
}

// failingRatings simulates a broken rating provider.
type failingRatings struct{}

func (failingRatings) FetchRating(context.Context, string) (string, error) {
	return "", errors.New("rating provider down")
}

// fixedRatings serves one fixed rating and counts calls.
type fixedRatings struct {
	rating string
	calls  atomic.Int64
}

func (r *fixedRatings) FetchRating(context.Context, string) (string, error) {
	r.calls.Add(1)
	return r.rating, nil
}

func movieDetail() *tmdb.Detail {
	return &tmdb.Detail{
		ID:               603,
		Title:            "The Matrix",
		OriginalLanguage: "en",
		Overview:         "A computer hacker learns the truth.",
		PosterPath:       "/matrix.jpg",
		BackdropPath:     "/matrix-bg.jpg",
		ReleaseDate:      "1999-03-30",
		Runtime:          136,
		Genres:           []tmdb.Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
		ExternalIDs:      tmdb.ExternalIDs{IMDBID: "tt0133093"},
		Images: tmdb.Images{Logos: []tmdb.Image{
			{FilePath: "/logo-en.png", ISO639: "en"},
		}},
		VoteAverage: 8.2,
	}
}

func newTestResolver(api tmdb.API, fetcher providers.RatingFetcher) *Resolver {
	svc := cache.NewService(cache.Options{Prefix: "test"}, zerolog.Nop())
	ratings := providers.NewRatings(fetcher, zerolog.Nop())
	logos := providers.NewLogos(nil, zerolog.Nop())
	return NewResolver(api, svc, ratings, logos, 0, zerolog.Nop())
}

func TestResolve_SentinelID(t *testing.T) {
	resolver := newTestResolver(&stubAPI{}, &fixedRatings{rating: "8.7"})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaMovie, "en-US", 0, config.User{})
	require.NoError(t, err)
	assert.Nil(t, record, "sentinel identifier must yield a nil record")
}

func TestResolve_MovieRecord(t *testing.T) {
	api := &stubAPI{detail: movieDetail()}
	resolver := newTestResolver(api, &fixedRatings{rating: "8.7"})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaMovie, "en-US", 603, config.User{})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "tmdb:603", record.ID)
	assert.Equal(t, "movie", record.Type)
	assert.Equal(t, "The Matrix", record.Name)
	assert.Equal(t, "1999", record.ReleaseInfo)
	assert.Equal(t, "8.7", record.IMDBRating, "secondary provider rating must win over the vote average")
	assert.Equal(t, []string{"Action", "Science Fiction"}, record.Genres)
	assert.Equal(t, "136 min", record.Runtime)
	assert.Contains(t, record.Poster, "/matrix.jpg")
	assert.Contains(t, record.Background, "/matrix-bg.jpg")
	assert.Contains(t, record.Logo, "/logo-en.png")
}

func TestResolve_Memoized(t *testing.T) {
	api := &stubAPI{detail: movieDetail()}
	resolver := newTestResolver(api, &fixedRatings{rating: "8.7"})
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, tmdb.MediaMovie, "en-US", 603, config.User{})
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, tmdb.MediaMovie, "en-US", 603, config.User{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), api.detailCalls.Load(), "second resolve must hit the cache")
}

func TestResolve_ConfigKeyedCacheEntries(t *testing.T) {
	api := &stubAPI{detail: movieDetail()}
	resolver := newTestResolver(api, &fixedRatings{rating: "8.7"})
	ctx := context.Background()

	withKey, err := resolver.Resolve(ctx, tmdb.MediaMovie, "en-US", 603, config.User{RPDBKey: "key-a"})
	require.NoError(t, err)
	withoutKey, err := resolver.Resolve(ctx, tmdb.MediaMovie, "en-US", 603, config.User{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), api.detailCalls.Load(), "different poster keys must produce independent cache entries")
	assert.Contains(t, withKey.Poster, "key-a", "poster key must select the replacement poster")
	assert.NotContains(t, withoutKey.Poster, "key-a")
}

func TestResolve_RatingFailureDegrades(t *testing.T) {
	api := &stubAPI{detail: movieDetail()}
	resolver := newTestResolver(api, failingRatings{})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaMovie, "en-US", 603, config.User{})
	require.NoError(t, err, "a secondary provider failure must not fail the record")
	assert.Equal(t, "8.2", record.IMDBRating, "vote average remains when the rating provider fails")
}

func TestResolve_DetailFailurePropagates(t *testing.T) {
	api := &stubAPI{detailErr: errors.New("upstream 500")}
	resolver := newTestResolver(api, &fixedRatings{rating: "8.7"})

	_, err := resolver.Resolve(context.Background(), tmdb.MediaMovie, "en-US", 603, config.User{})
	assert.Error(t, err, "the primary detail fetch is not a side computation")
}

func TestResolve_SeriesEpisodes(t *testing.T) {
	detail := &tmdb.Detail{
		ID:           1399,
		Name:         "Game of Thrones",
		FirstAirDate: "2011-04-17",
		Seasons: []tmdb.SeasonRef{
			{SeasonNumber: 1, EpisodeCount: 2},
			{SeasonNumber: 2, EpisodeCount: 1},
		},
	}
	api := &stubAPI{
		detail: detail,
		seasons: map[int]*tmdb.Season{
			1: {SeasonNumber: 1, Episodes: []tmdb.Episode{
				{SeasonNumber: 1, EpisodeNumber: 1, Name: "Winter Is Coming", AirDate: "2011-04-17"},
				{SeasonNumber: 1, EpisodeNumber: 2, Name: "The Kingsroad", AirDate: "2011-04-24"},
			}},
			2: {SeasonNumber: 2, Episodes: []tmdb.Episode{
				{SeasonNumber: 2, EpisodeNumber: 1, Name: "The North Remembers", AirDate: "2012-04-01"},
			}},
		},
	}
	resolver := newTestResolver(api, &fixedRatings{rating: "9.2"})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaSeries, "en-US", 1399, config.User{})
	require.NoError(t, err)

	require.Len(t, record.Videos, 3)
	assert.Equal(t, "tmdb:1399:1:1", record.Videos[0].ID)
	assert.Equal(t, "Winter Is Coming", record.Videos[0].Title)
	assert.Equal(t, "tmdb:1399:2:1", record.Videos[2].ID)
}

func TestResolve_SeasonFailureDropsOnlyThatSeason(t *testing.T) {
	detail := &tmdb.Detail{
		ID:           1399,
		Name:         "Game of Thrones",
		FirstAirDate: "2011-04-17",
		Seasons: []tmdb.SeasonRef{
			{SeasonNumber: 1},
			{SeasonNumber: 2},
		},
	}
	api := &stubAPI{
		detail: detail,
		seasons: map[int]*tmdb.Season{
			// Season 2 is missing and will fail.
			1: {SeasonNumber: 1, Episodes: []tmdb.Episode{
				{SeasonNumber: 1, EpisodeNumber: 1, Name: "Winter Is Coming"},
			}},
		},
	}
	resolver := newTestResolver(api, &fixedRatings{rating: "9.2"})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaSeries, "en-US", 1399, config.User{})
	require.NoError(t, err)
	require.Len(t, record.Videos, 1, "a failed season must not fail the record")
}

func TestResolve_AgeRatingLink(t *testing.T) {
	api := &stubAPI{
		detail: movieDetail(),
		regions: []tmdb.RegionReleases{
			{Region: "US", Releases: []tmdb.ReleaseEvent{{Type: tmdb.ReleaseTheatrical, Certification: "R"}}},
		},
	}
	resolver := newTestResolver(api, &fixedRatings{rating: "8.7"})

	record, err := resolver.Resolve(context.Background(), tmdb.MediaMovie, "en-US", 603, config.User{Language: "en-US", ShowAgeRating: true})
	require.NoError(t, err)

	require.Len(t, record.Links, 1)
	assert.Equal(t, "R", record.Links[0].Name)
	assert.Equal(t, "age-rating", record.Links[0].Category)
}
