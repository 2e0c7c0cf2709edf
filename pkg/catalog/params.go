package catalog

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// Catalog source identifiers exposed in the manifest.
const (
	SourceTop      = "top"
	SourceYear     = "year"
	SourceLanguage = "language"

	// providerPrefix marks "available on this service" catalogs curated
	// by a streaming provider, e.g. "provider.8".
	providerPrefix = "provider."
)

// isProviderCatalog reports whether a source is a provider-curated
// availability catalog.
func isProviderCatalog(sourceID string) bool {
	return strings.HasPrefix(sourceID, providerPrefix)
}

// providerID extracts the watch-provider id from a provider source.
func providerID(sourceID string) string {
	return strings.TrimPrefix(sourceID, providerPrefix)
}

// movieGenres maps protocol genre names to the upstream's movie genre ids.
var movieGenres = map[string]string{
	"Action":          "28",
	"Adventure":       "12",
	"Animation":       "16",
	"Comedy":          "35",
	"Crime":           "80",
	"Documentary":     "99",
	"Drama":           "18",
	"Family":          "10751",
	"Fantasy":         "14",
	"History":         "36",
	"Horror":          "27",
	"Music":           "10402",
	"Mystery":         "9648",
	"Romance":         "10749",
	"Science Fiction": "878",
	"TV Movie":        "10770",
	"Thriller":        "53",
	"War":             "10752",
	"Western":         "37",
}

// seriesGenres maps protocol genre names to the upstream's TV genre ids.
var seriesGenres = map[string]string{
	"Action & Adventure": "10759",
	"Animation":          "16",
	"Comedy":             "35",
	"Crime":              "80",
	"Documentary":        "99",
	"Drama":              "18",
	"Family":             "10751",
	"Kids":               "10762",
	"Mystery":            "9648",
	"News":               "10763",
	"Reality":            "10764",
	"Sci-Fi & Fantasy":   "10765",
	"Soap":               "10766",
	"Talk":               "10767",
	"War & Politics":     "10768",
	"Western":            "37",
}

// GenreOptions lists the genre names offered for a media type, sorted for
// a stable manifest.
func GenreOptions(media string) []string {
	source := movieGenres
	if media == tmdb.MediaSeries {
		source = seriesGenres
	}
	names := make([]string, 0, len(source))
	for name := range source {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// genreID resolves a protocol genre name for a media type. Unknown names
// resolve to "" and place no genre constraint.
func genreID(media, name string) string {
	if media == tmdb.MediaSeries {
		return seriesGenres[name]
	}
	return movieGenres[name]
}

// buildDiscoverParams translates a catalog request into upstream discover
// query parameters, per catalog-type-specific rules. The region is passed
// separately because empty provider catalogs are retried against the
// default region.
func buildDiscoverParams(req Request, region string) url.Values {
	params := url.Values{}
	params.Set("language", req.Language)
	params.Set("include_adult", "false")

	switch {
	case req.SourceID == SourceYear:
		// The genre slot of the year catalog carries the year itself.
		params.Set("sort_by", "primary_release_date.desc")
		if req.Genre != "" {
			if req.MediaType == tmdb.MediaSeries {
				params.Set("first_air_date_year", req.Genre)
			} else {
				params.Set("primary_release_year", req.Genre)
			}
		}

	case req.SourceID == SourceLanguage:
		// The genre slot of the language catalog carries a language code.
		params.Set("sort_by", "popularity.desc")
		if req.Genre != "" {
			params.Set("with_original_language", strings.ToLower(req.Genre))
		}

	case isProviderCatalog(req.SourceID):
		params.Set("sort_by", "popularity.desc")
		params.Set("with_watch_providers", providerID(req.SourceID))
		params.Set("watch_region", region)
		params.Set("with_watch_monetization_types", "flatrate|free|ads")
		if id := genreID(req.MediaType, req.Genre); id != "" {
			params.Set("with_genres", id)
		}

	default:
		// "top" and any unrecognized source fall back to popularity.
		params.Set("sort_by", "popularity.desc")
		if id := genreID(req.MediaType, req.Genre); id != "" {
			params.Set("with_genres", id)
		}
	}

	// Regional filtering narrows discovery to titles released in the
	// user's region before the release-window pass prunes stragglers.
	if req.User.RegionFiltered && req.MediaType == tmdb.MediaMovie {
		params.Set("region", region)
	}

	return params
}
