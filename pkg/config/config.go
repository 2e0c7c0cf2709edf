// Package config holds process-wide settings read once at startup and the
// per-user configuration passed through every request.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before mapping them to
// koanf paths: CINEFEED_REDIS_ADDR -> redis_addr.
const envPrefix = "CINEFEED_"

// Env holds environment-configurable knobs, read once at process start.
type Env struct {
	// Port the HTTP server listens on.
	Port string `koanf:"port"`

	// LogLevel is the minimum zerolog level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`

	// LogPretty enables human-readable console output instead of JSON.
	LogPretty bool `koanf:"log_pretty"`

	// TMDBAPIKey authenticates against the primary discovery provider.
	TMDBAPIKey string `koanf:"tmdb_api_key"`

	// FanartAPIKey authenticates against the logo provider. Optional.
	FanartAPIKey string `koanf:"fanart_api_key"`

	// RatingBaseURL overrides the rating provider endpoint.
	RatingBaseURL string `koanf:"rating_base_url"`

	// RedisAddr is the networked key-value cache address. Empty disables
	// the Redis tier.
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword is the optional Redis auth password.
	RedisPassword string `koanf:"redis_password"`

	// FirestoreProject enables the document-store cache tier when set.
	FirestoreProject string `koanf:"firestore_project"`

	// FirestoreCollection is the document collection for cached entities.
	FirestoreCollection string `koanf:"firestore_collection"`

	// CacheDisabled bypasses all cache tiers when true.
	CacheDisabled bool `koanf:"cache_disabled"`

	// MetaTTL is the validity window for metadata records.
	MetaTTL time.Duration `koanf:"meta_ttl"`

	// CatalogTTL is the validity window for aggregated catalog pages.
	CatalogTTL time.Duration `koanf:"catalog_ttl"`
}

// defaultEnv returns the built-in defaults, overridable per variable.
func defaultEnv() Env {
	return Env{
		Port:                "7000",
		LogLevel:            "info",
		LogPretty:           false,
		FirestoreCollection: "cinefeed-cache",
		MetaTTL:             1 * time.Hour,
		CatalogTTL:          1 * time.Hour,
	}
}

// LoadEnv reads the environment into an Env, layering variables over the
// defaults. Precedence: ENV > defaults.
func LoadEnv() (*Env, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultEnv(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Env{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal environment: %w", err)
	}

	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("CINEFEED_TMDB_API_KEY is required")
	}

	return cfg, nil
}

// User carries per-user feature toggles and keys. It arrives already parsed
// and validated at the request boundary; the core treats it as opaque input.
type User struct {
	// Language is the preferred "lang-REGION" tag, e.g. "en-US".
	Language string

	// RPDBKey, when set, replaces posters with rating-annotated ones.
	// The key participates in metadata cache keys.
	RPDBKey string

	// ShowAgeRating adds certification links to metadata records and
	// participates in metadata cache keys.
	ShowAgeRating bool

	// RegionFiltered hides titles without a qualifying release in the
	// user's region.
	RegionFiltered bool

	// DigitalFiltered hides titles without a past digital, physical or
	// broadcast release anywhere. Ignored when RegionFiltered is set;
	// the two filters never stack.
	DigitalFiltered bool
}

// Region extracts the region code from the user's language tag,
// defaulting to DefaultRegion.
func (u User) Region() string {
	if _, region, ok := strings.Cut(u.Language, "-"); ok && region != "" {
		return strings.ToUpper(region)
	}
	return DefaultRegion
}

// DefaultRegion is the fallback region when the language tag carries none.
const DefaultRegion = "US"
