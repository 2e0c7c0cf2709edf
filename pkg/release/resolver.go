// Package release determines whether a subject has reached a regionally or
// globally visible release milestone.
package release

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// FactTTL is the validity window of a cached release-event list. Facts are
// created lazily on first query and refreshed after this window; they are
// never explicitly invalidated.
const FactTTL = 6 * time.Hour

// Source is the slice of the upstream API the resolver consumes.
type Source interface {
	ReleaseDates(ctx context.Context, id int64) ([]tmdb.RegionReleases, error)
}

// Resolver answers release-window questions, backed by the cache service.
// One cache entry covers all regions of a subject, since the upstream
// returns the full per-region event list in a single call.
type Resolver struct {
	source Source
	cache  *cache.Service
	logger zerolog.Logger
}

// NewResolver creates a release-window resolver.
func NewResolver(source Source, cacheSvc *cache.Service, logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cacheSvc,
		logger: logger.With().Str("component", "release-resolver").Logger(),
	}
}

// facts returns the subject's full per-region event list, cached 6 hours.
func (r *Resolver) facts(ctx context.Context, subjectID int64) ([]tmdb.RegionReleases, error) {
	key := r.cache.Key(cache.ClassFact, strconv.FormatInt(subjectID, 10))
	return cache.Wrap(ctx, r.cache, key, FactTTL, func(ctx context.Context) ([]tmdb.RegionReleases, error) {
		return r.source.ReleaseDates(ctx, subjectID)
	})
}

// IsReleasedInRegion reports whether the subject has at least one past-dated
// qualifying release event (theatrical, digital, physical or broadcast,
// never premiere) in the exact region.
//
// The uncertainty policy is asymmetric on purpose: no event data at all is a
// data-quality gap and fails open (released), while an empty event list for
// one specific region is a genuine availability signal and fails closed.
func (r *Resolver) IsReleasedInRegion(ctx context.Context, subjectID int64, region string) (bool, error) {
	regions, err := r.facts(ctx, subjectID)
	if err != nil {
		return false, err
	}

	if len(regions) == 0 {
		return true, nil
	}

	for _, rr := range regions {
		if rr.Region != region {
			continue
		}
		for _, event := range rr.Releases {
			if qualifiesRegional(event.Type) && isPast(event.ReleaseDate) {
				return true, nil
			}
		}
	}
	return false, nil
}

// IsReleasedGlobally reports whether the subject has a past-dated digital,
// physical or broadcast release in any region. Theatrical runs do not count
// for global availability.
func (r *Resolver) IsReleasedGlobally(ctx context.Context, subjectID int64) (bool, error) {
	regions, err := r.facts(ctx, subjectID)
	if err != nil {
		return false, err
	}

	if len(regions) == 0 {
		return true, nil
	}

	for _, rr := range regions {
		for _, event := range rr.Releases {
			if qualifiesGlobal(event.Type) && isPast(event.ReleaseDate) {
				return true, nil
			}
		}
	}
	return false, nil
}

// qualifiesRegional reports whether an event type makes a subject visible in
// its region. Premieres never qualify.
func qualifiesRegional(eventType int) bool {
	switch eventType {
	case tmdb.ReleaseTheatricalLimited, tmdb.ReleaseTheatrical, tmdb.ReleaseDigital, tmdb.ReleasePhysical, tmdb.ReleaseTV:
		return true
	default:
		return false
	}
}

// qualifiesGlobal reports whether an event type counts toward worldwide
// availability.
func qualifiesGlobal(eventType int) bool {
	switch eventType {
	case tmdb.ReleaseDigital, tmdb.ReleasePhysical, tmdb.ReleaseTV:
		return true
	default:
		return false
	}
}

// isPast reports whether a release date has already occurred. Unparseable
// dates do not qualify.
func isPast(date string) bool {
	if date == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		t, err = time.Parse("2006-01-02", date)
		if err != nil {
			return false
		}
	}
	return t.Before(time.Now())
}
