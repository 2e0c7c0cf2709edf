package tmdb

// Media types understood by the upstream discovery provider.
const (
	MediaMovie  = "movie"
	MediaSeries = "series"
)

// Release event types, as numbered by the upstream provider.
const (
	ReleasePremiere           = 1
	ReleaseTheatricalLimited  = 2
	ReleaseTheatrical         = 3
	ReleaseDigital            = 4
	ReleasePhysical           = 5
	ReleaseTV                 = 6
)

// Title is one element of a paginated discovery result.
type Title struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	GenreIDs         []int64 `json:"genre_ids"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
}

// DisplayName returns the movie title or series name, whichever is set.
func (t Title) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// Page is one page of a paginated discovery, trending or search result.
type Page struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Title `json:"results"`
}

// Genre is a named genre of a detailed title.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CastMember is one credited performer.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Credits holds the cast of a detailed title.
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// ExternalIDs maps a subject to identifiers of other providers.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// Image is one poster, backdrop or logo variant.
type Image struct {
	FilePath string `json:"file_path"`
	ISO639   string `json:"iso_639_1"`
}

// Images holds the image variants of a detailed title.
type Images struct {
	Logos []Image `json:"logos"`
}

// SeasonRef is a season stub inside a series detail.
type SeasonRef struct {
	SeasonNumber int `json:"season_number"`
	EpisodeCount int `json:"episode_count"`
}

// Detail is the full attribute set of one subject, including credits and
// external identifiers fetched via append-to-response.
type Detail struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Name             string      `json:"name"`
	OriginalLanguage string      `json:"original_language"`
	Overview         string      `json:"overview"`
	Tagline          string      `json:"tagline"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	ReleaseDate      string      `json:"release_date"`
	FirstAirDate     string      `json:"first_air_date"`
	Runtime          int         `json:"runtime"`
	Status           string      `json:"status"`
	Genres           []Genre     `json:"genres"`
	Credits          Credits     `json:"credits"`
	ExternalIDs      ExternalIDs `json:"external_ids"`
	Images           Images      `json:"images"`
	Seasons          []SeasonRef `json:"seasons"`
	OriginCountry    []string    `json:"origin_country"`
	VoteAverage      float64     `json:"vote_average"`
}

// DisplayName returns the movie title or series name, whichever is set.
func (d *Detail) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// ReleaseEvent is a dated occurrence recording when a subject became
// available through one channel.
type ReleaseEvent struct {
	Type          int    `json:"type"`
	ReleaseDate   string `json:"release_date"`
	Certification string `json:"certification"`
}

// RegionReleases is the release-event list of one region.
type RegionReleases struct {
	Region   string         `json:"iso_3166_1"`
	Releases []ReleaseEvent `json:"release_dates"`
}

// releaseDatesEnvelope is the wire shape of the release-dates endpoint.
type releaseDatesEnvelope struct {
	Results []RegionReleases `json:"results"`
}

// Episode is one episode of a season listing.
type Episode struct {
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// Season is a full season listing with its episodes.
type Season struct {
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}
