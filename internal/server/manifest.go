package server

import (
	"strconv"
	"time"

	"github.com/cinefeed/cinefeed/pkg/catalog"
	"github.com/cinefeed/cinefeed/pkg/meta"
	"github.com/cinefeed/cinefeed/pkg/stremio"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// catalogIDPrefix namespaces the catalog ids exposed in the manifest.
const catalogIDPrefix = "cinefeed."

// yearOptionSpan is how many years back the year catalog offers.
const yearOptionSpan = 25

// languageOptions are the original-language codes offered by the language
// catalog.
var languageOptions = []string{
	"en", "fr", "de", "es", "it", "ja", "ko", "zh", "hi", "pt", "ru", "tr",
}

// buildManifest describes the addon to the protocol consumer.
func buildManifest(version string) stremio.Manifest {
	manifest := stremio.Manifest{
		ID:          "dev.cinefeed",
		Version:     version,
		Name:        "CineFeed",
		Description: "Movie and series catalogs with enriched metadata, ratings and release-aware filtering.",
		Resources:   []string{"catalog", "meta"},
		Types:       []string{tmdb.MediaMovie, tmdb.MediaSeries},
		IDPrefixes:  []string{meta.IDPrefix},
	}

	for _, mediaType := range manifest.Types {
		manifest.Catalogs = append(manifest.Catalogs,
			stremio.Catalog{
				Type: mediaType,
				ID:   catalogIDPrefix + catalog.SourceTop,
				Name: "Popular",
				Extra: []stremio.Extra{
					{Name: "genre", Options: catalog.GenreOptions(mediaType)},
					{Name: "skip"},
				},
			},
			stremio.Catalog{
				Type: mediaType,
				ID:   catalogIDPrefix + catalog.SourceYear,
				Name: "By Year",
				Extra: []stremio.Extra{
					{Name: "genre", IsRequired: true, Options: yearOptions()},
					{Name: "skip"},
				},
			},
			stremio.Catalog{
				Type: mediaType,
				ID:   catalogIDPrefix + catalog.SourceLanguage,
				Name: "By Language",
				Extra: []stremio.Extra{
					{Name: "genre", IsRequired: true, Options: languageOptions},
					{Name: "skip"},
				},
			},
			stremio.Catalog{
				Type: mediaType,
				ID:   catalogIDPrefix + "trending",
				Name: "Trending",
				Extra: []stremio.Extra{
					{Name: "skip"},
				},
			},
			stremio.Catalog{
				Type: mediaType,
				ID:   catalogIDPrefix + "search",
				Name: "Search",
				Extra: []stremio.Extra{
					{Name: "search", IsRequired: true},
				},
			},
		)
	}

	return manifest
}

// yearOptions lists the selectable years, newest first.
func yearOptions() []string {
	current := time.Now().Year()
	years := make([]string, 0, yearOptionSpan)
	for year := current; year > current-yearOptionSpan; year-- {
		years = append(years, strconv.Itoa(year))
	}
	return years
}
