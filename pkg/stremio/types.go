// Package stremio defines the wire types of the catalog addon protocol
// served by cinefeed. Field names follow the protocol's JSON contract.
package stremio

// Manifest describes the addon to the protocol consumer.
type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resources   []string  `json:"resources"`
	Types       []string  `json:"types"`
	IDPrefixes  []string  `json:"idPrefixes"`
	Catalogs    []Catalog `json:"catalogs"`
}

// Catalog describes one catalog the addon exposes in its manifest.
type Catalog struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Extra []Extra `json:"extra,omitempty"`
}

// Extra describes an optional catalog parameter (genre, skip, search).
type Extra struct {
	Name       string   `json:"name"`
	IsRequired bool     `json:"isRequired,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// MetaRecord is the enriched, provider-agnostic representation of one title.
// Once returned to a caller the record is never mutated by the core again.
type MetaRecord struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	Released    string   `json:"released,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Country     string   `json:"country,omitempty"`
	IMDBID      string   `json:"imdb_id,omitempty"`
	Videos      []Video  `json:"videos,omitempty"`
	Links       []Link   `json:"links,omitempty"`
}

// Video is a single episode entry of a series MetaRecord.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Released  string `json:"released,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Link is a decorated attribute shown alongside a MetaRecord
// (genre chips, cast, age rating).
type Link struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// CatalogResponse is the body of a catalog/search/trending request.
type CatalogResponse struct {
	Metas []MetaRecord `json:"metas"`
}

// MetaResponse is the body of a meta request. Meta is null for sentinel
// "no content" identifiers.
type MetaResponse struct {
	Meta *MetaRecord `json:"meta"`
}
