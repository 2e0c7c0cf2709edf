// Package server exposes the addon protocol over HTTP: manifest, catalog
// and metadata resources plus health and metrics endpoints.
package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/pkg/catalog"
	"github.com/cinefeed/cinefeed/pkg/meta"
	"github.com/cinefeed/cinefeed/pkg/stremio"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinefeed_http_requests_total",
	Help: "Total HTTP requests by method and status",
}, []string{"method", "status"})

// responseMaxAge is the client-side cache hint on catalog and metadata
// responses.
const responseMaxAge = 3600

// Server wires the catalog aggregator and metadata resolver to the addon
// protocol routes.
type Server struct {
	catalog *catalog.Aggregator
	meta    *meta.Resolver
	version string
	logger  zerolog.Logger
}

// New creates a protocol server.
func New(aggregator *catalog.Aggregator, metaResolver *meta.Resolver, version string, logger zerolog.Logger) *Server {
	return &Server{
		catalog: aggregator,
		meta:    metaResolver,
		version: version,
		logger:  logger.With().Str("component", "server").Logger(),
	}
}

// Router builds the HTTP routing tree. Every protocol resource is served
// both bare and under a user-configuration path segment.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(allowAllOrigins)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.mountProtocol(r)
	r.Route("/{userConfig}", func(r chi.Router) {
		s.mountProtocol(r)
	})

	return r
}

func (s *Server) mountProtocol(r chi.Router) {
	r.Get("/manifest.json", s.handleManifest)
	r.Get("/catalog/{mediaType}/{catalogID}.json", s.handleCatalog)
	r.Get("/catalog/{mediaType}/{catalogID}/{extra}.json", s.handleCatalog)
	r.Get("/meta/{mediaType}/{id}.json", s.handleMeta)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, buildManifest(s.version))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	mediaType := chi.URLParam(r, "mediaType")
	if mediaType != tmdb.MediaMovie && mediaType != tmdb.MediaSeries {
		s.writeError(w, http.StatusNotFound, "unknown media type")
		return
	}

	user := parseUserConfig(chi.URLParam(r, "userConfig"))
	extras := parseExtras(chi.URLParam(r, "extra"))
	source := strings.TrimPrefix(chi.URLParam(r, "catalogID"), catalogIDPrefix)

	req := catalog.Request{
		MediaType: mediaType,
		SourceID:  source,
		Genre:     extras.Get("genre"),
		Query:     extras.Get("search"),
		Page:      pageFromSkip(extras.Get("skip")),
		Language:  user.Language,
		User:      user,
	}

	var resp stremio.CatalogResponse
	switch source {
	case "trending":
		resp = s.catalog.GetTrending(r.Context(), req)
	case "search":
		resp = s.catalog.GetSearch(r.Context(), req)
	default:
		resp = s.catalog.GetCatalog(r.Context(), req)
	}

	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(responseMaxAge))
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	mediaType := chi.URLParam(r, "mediaType")
	if mediaType != tmdb.MediaMovie && mediaType != tmdb.MediaSeries {
		s.writeError(w, http.StatusNotFound, "unknown media type")
		return
	}

	id := chi.URLParam(r, "id")
	if !strings.HasPrefix(id, meta.IDPrefix) {
		s.writeError(w, http.StatusNotFound, "unknown id prefix")
		return
	}
	subjectID, err := strconv.ParseInt(strings.TrimPrefix(id, meta.IDPrefix), 10, 64)
	if err != nil || subjectID < 0 {
		s.writeError(w, http.StatusNotFound, "malformed id")
		return
	}

	user := parseUserConfig(chi.URLParam(r, "userConfig"))
	record, err := s.meta.Resolve(r.Context(), mediaType, user.Language, subjectID, user)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("Metadata resolution failed")
		s.writeError(w, http.StatusBadGateway, "metadata unavailable")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(responseMaxAge))
	s.writeJSON(w, http.StatusOK, stremio.MetaResponse{Meta: record})
}

// parseExtras decodes the extra path segment, which arrives as a
// URL-encoded query string ("genre=Action&skip=20").
func parseExtras(segment string) url.Values {
	values, err := url.ParseQuery(segment)
	if err != nil {
		return url.Values{}
	}
	return values
}

// pageFromSkip converts the protocol's item offset into a 1-based page.
func pageFromSkip(skip string) int {
	offset, err := strconv.Atoi(skip)
	if err != nil || offset <= 0 {
		return 1
	}
	return offset/catalog.MaxCatalogSize + 1
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// accessLog tags every request with an id and emits one structured line
// per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// allowAllOrigins opens the protocol resources to browser-based consumers.
func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
