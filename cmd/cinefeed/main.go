// Command cinefeed runs the catalog addon server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cinefeed/cinefeed/internal/server"
	"github.com/cinefeed/cinefeed/pkg/cache"
	"github.com/cinefeed/cinefeed/pkg/catalog"
	"github.com/cinefeed/cinefeed/pkg/config"
	"github.com/cinefeed/cinefeed/pkg/logging"
	"github.com/cinefeed/cinefeed/pkg/meta"
	"github.com/cinefeed/cinefeed/pkg/providers"
	"github.com/cinefeed/cinefeed/pkg/release"
	"github.com/cinefeed/cinefeed/pkg/tmdb"
)

// version is settable via -ldflags at build time.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		bootLogger := logging.Setup(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.Info().Str("version", version).Msg("Starting cinefeed")

	cacheSvc := buildCache(cfg, logger)

	upstream, err := tmdb.New(tmdb.DefaultConfig(cfg.TMDBAPIKey), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	ratingBase := cfg.RatingBaseURL
	if ratingBase == "" {
		ratingBase = providers.DefaultRatingBaseURL
	}
	ratings := providers.NewRatings(providers.NewRatingClient(ratingBase), logger)

	var fanart providers.LogoFetcher
	if cfg.FanartAPIKey != "" {
		fanart = providers.NewFanartClient(providers.DefaultFanartBaseURL, cfg.FanartAPIKey)
	}
	logos := providers.NewLogos(fanart, logger)

	metaResolver := meta.NewResolver(upstream, cacheSvc, ratings, logos, cfg.MetaTTL, logger)
	releaseResolver := release.NewResolver(upstream, cacheSvc, logger)
	aggregator := catalog.NewAggregator(upstream, metaResolver, releaseResolver, cacheSvc, cfg.CatalogTTL, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(aggregator, metaResolver, version, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown incomplete")
	}
}

// buildCache assembles the cache tiers the environment provides. A missing
// or unreachable tier degrades to the tiers below it; the process never
// refuses to start over a cache backend.
func buildCache(cfg *config.Env, logger zerolog.Logger) *cache.Service {
	var kv cache.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, continuing without the shared cache tier")
		} else {
			kv = cache.NewRedisStore(client, logger)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		}
	}

	var documents cache.DocumentsInit
	if cfg.FirestoreProject != "" {
		project := cfg.FirestoreProject
		collection := cfg.FirestoreCollection
		documents = func(ctx context.Context) (cache.Store, error) {
			client, err := firestore.NewClient(ctx, project)
			if err != nil {
				return nil, err
			}
			store, err := cache.NewFirestoreStore(client, collection, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}

	return cache.NewService(cache.Options{
		Prefix:    "cinefeed",
		Disabled:  cfg.CacheDisabled,
		KV:        kv,
		Documents: documents,
	}, logger)
}
