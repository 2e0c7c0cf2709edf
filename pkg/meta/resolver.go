// Package meta enriches a single subject into a protocol metadata record,
// memoized per subject and per output-relevant configuration.
package meta

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/pkg/batch"
	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/config"
	"github.com/cinefeed/cinefeed/pkg/providers"
	"github.com/cinefeed/cinefeed/pkg/stremio"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// Image URL bases of the primary provider's CDN.
const (
	posterBase   = "https://image.tmdb.org/t/p/w500"
	backdropBase = "https://image.tmdb.org/t/p/original"
	logoBase     = "https://image.tmdb.org/t/p/original"
)

// rpdbPosterBase serves rating-annotated poster replacements.
const rpdbPosterBase = "https://api.ratingposterdb.com"

// DefaultTTL is the process-local validity window for metadata records.
const DefaultTTL = 1 * time.Hour

// IDPrefix namespaces subject identifiers in the protocol output.
const IDPrefix = "tmdb:"

// Resolver builds enriched metadata records.
type Resolver struct {
	api     tmdb.API
	cache   *cache.Service
	ratings *providers.Ratings
	logos   *providers.Logos
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewResolver creates a metadata resolver. ttl <= 0 selects DefaultTTL.
func NewResolver(api tmdb.API, cacheSvc *cache.Service, ratings *providers.Ratings, logos *providers.Logos, ttl time.Duration, logger zerolog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		api:     api,
		cache:   cacheSvc,
		ratings: ratings,
		logos:   logos,
		ttl:     ttl,
		logger:  logger.With().Str("component", "meta-resolver").Logger(),
	}
}

// cacheID builds the memoization key id. Config fields that change the
// rendered record participate so settings never leak across users.
func cacheID(media, language string, subjectID int64, user config.User) string {
	return fmt.Sprintf("%s:%s:%d:rpdb=%s:age=%t", media, language, subjectID, user.RPDBKey, user.ShowAgeRating)
}

// Resolve returns the enriched record for one subject, or nil for the
// sentinel "no content" identifier.
func (r *Resolver) Resolve(ctx context.Context, media, language string, subjectID int64, user config.User) (*stremio.MetaRecord, error) {
	// The placeholder id marks synthetic records; there is nothing
	// upstream to resolve.
	if subjectID == 0 {
		return nil, nil
	}

	key := r.cache.Key(cache.ClassMeta, cacheID(media, language, subjectID, user))
	record, err := cache.Wrap(ctx, r.cache, key, r.ttl, func(ctx context.Context) (stremio.MetaRecord, error) {
		return r.build(ctx, media, language, subjectID, user)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// build fetches the subject detail and runs the independent side
// computations concurrently. Each side computation is fault-tolerant on its
// own: a failure leaves its field empty instead of failing the record.
func (r *Resolver) build(ctx context.Context, media, language string, subjectID int64, user config.User) (stremio.MetaRecord, error) {
	detail, err := r.api.Details(ctx, media, subjectID, language)
	if err != nil {
		return stremio.MetaRecord{}, fmt.Errorf("fetch detail %d: %w", subjectID, err)
	}

	record := baseRecord(media, detail)

	var (
		wg            sync.WaitGroup
		rating        string
		logo          string
		certification string
		videos        []stremio.Video
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		rating = r.ratings.Lookup(ctx, detail.ExternalIDs.IMDBID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logo = r.logos.Resolve(ctx, media, subjectID, primaryLogos(detail), language, detail.OriginalLanguage)
	}()

	if user.ShowAgeRating && media == tmdb.MediaMovie {
		wg.Add(1)
		go func() {
			defer wg.Done()
			certification = r.certification(ctx, subjectID, user.Region())
		}()
	}

	if media == tmdb.MediaSeries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			videos = r.episodes(ctx, detail, language)
		}()
	}

	wg.Wait()

	if rating != "" {
		record.IMDBRating = rating
	}
	record.Logo = logo
	record.Videos = videos
	record.Poster = r.poster(detail, user)
	if certification != "" {
		record.Links = append(record.Links, stremio.Link{
			Name:     certification,
			Category: "age-rating",
		})
	}

	return record, nil
}

// baseRecord maps the detail's direct attributes.
func baseRecord(media string, detail *tmdb.Detail) stremio.MetaRecord {
	record := stremio.MetaRecord{
		ID:          IDPrefix + strconv.FormatInt(detail.ID, 10),
		Type:        media,
		Name:        detail.DisplayName(),
		Description: detail.Overview,
		IMDBID:      detail.ExternalIDs.IMDBID,
	}

	if detail.BackdropPath != "" {
		record.Background = backdropBase + detail.BackdropPath
	}
	if detail.VoteAverage > 0 {
		record.IMDBRating = fmt.Sprintf("%.1f", detail.VoteAverage)
	}

	date := detail.ReleaseDate
	if media == tmdb.MediaSeries {
		date = detail.FirstAirDate
	}
	if len(date) >= 4 {
		record.ReleaseInfo = date[:4]
		record.Released = date
	}

	for _, genre := range detail.Genres {
		record.Genres = append(record.Genres, genre.Name)
	}
	if detail.Runtime > 0 {
		record.Runtime = fmt.Sprintf("%d min", detail.Runtime)
	}
	if len(detail.OriginCountry) > 0 {
		record.Country = strings.Join(detail.OriginCountry, ", ")
	}

	return record
}

// poster returns the poster URL, replaced with a rating-annotated variant
// when the user configured a poster key and the subject has an IMDb id.
func (r *Resolver) poster(detail *tmdb.Detail, user config.User) string {
	if user.RPDBKey != "" && detail.ExternalIDs.IMDBID != "" {
		return fmt.Sprintf("%s/%s/imdb/poster-default/%s.jpg", rpdbPosterBase, user.RPDBKey, detail.ExternalIDs.IMDBID)
	}
	if detail.PosterPath == "" {
		return ""
	}
	return posterBase + detail.PosterPath
}

// primaryLogos maps the detail's logo variants to the provider-neutral form.
func primaryLogos(detail *tmdb.Detail) []providers.Logo {
	logos := make([]providers.Logo, 0, len(detail.Images.Logos))
	for _, img := range detail.Images.Logos {
		logos = append(logos, providers.Logo{
			URL:      logoBase + img.FilePath,
			Language: img.ISO639,
		})
	}
	return logos
}

// certification reads the user region's certification from the release
// event list. Failures degrade to no certification.
func (r *Resolver) certification(ctx context.Context, subjectID int64, region string) string {
	regions, err := r.api.ReleaseDates(ctx, subjectID)
	if err != nil {
		r.logger.Debug().Err(err).Int64("subject_id", subjectID).Msg("Certification lookup failed, leaving empty")
		return ""
	}
	for _, rr := range regions {
		if rr.Region != region {
			continue
		}
		for _, event := range rr.Releases {
			if event.Certification != "" {
				return event.Certification
			}
		}
	}
	return ""
}

// episodes enumerates every season of a series. Season fetches run through
// the batch executor so a full series listing cannot burst past the
// provider's rate window; a failed season drops only its own episodes.
func (r *Resolver) episodes(ctx context.Context, detail *tmdb.Detail, language string) []stremio.Video {
	seasonNumbers := make([]int, 0, len(detail.Seasons))
	for _, season := range detail.Seasons {
		seasonNumbers = append(seasonNumbers, season.SeasonNumber)
	}

	seasons := batch.ProcessFiltered(ctx, seasonNumbers, batch.DefaultOptions(), func(ctx context.Context, number int) (*tmdb.Season, error) {
		return r.api.Season(ctx, detail.ID, number, language)
	})

	var videos []stremio.Video
	for _, season := range seasons {
		for _, ep := range season.Episodes {
			video := stremio.Video{
				ID:       fmt.Sprintf("%s%d:%d:%d", IDPrefix, detail.ID, ep.SeasonNumber, ep.EpisodeNumber),
				Title:    ep.Name,
				Season:   ep.SeasonNumber,
				Episode:  ep.EpisodeNumber,
				Released: ep.AirDate,
				Overview: ep.Overview,
			}
			if ep.StillPath != "" {
				video.Thumbnail = posterBase + ep.StillPath
			}
			videos = append(videos, video)
		}
	}
	return videos
}
