package cache

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DocumentsInit lazily constructs the document-store tier. It runs at most
// once, on first use of a class routed to documents, and the result is
// memoized for the process lifetime.
type DocumentsInit func(ctx context.Context) (Store, error)

// Options configures a Service.
type Options struct {
	// Prefix namespaces all keys of this deployment.
	Prefix string

	// Disabled degrades Wrap to direct compute with no storage side
	// effect.
	Disabled bool

	// KV is the optional networked key-value tier.
	KV Store

	// Documents lazily initializes the optional document-store tier for
	// the catalog and metadata classes.
	Documents DocumentsInit
}

// Service is the cache facade handed to every component that caches.
// It owns the backing-store connections for the process lifetime; callers
// never touch tiers directly.
type Service struct {
	prefix   string
	disabled bool
	memory   *MemoryStore
	kv       Store

	docsInit DocumentsInit
	docsOnce sync.Once
	docs     Store

	logger zerolog.Logger
}

// NewService builds a cache service. The in-process tier is always present;
// the networked tiers are optional.
func NewService(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		prefix:   opts.Prefix,
		disabled: opts.Disabled,
		memory:   NewMemoryStore(),
		kv:       opts.KV,
		docsInit: opts.Documents,
		logger:   logger.With().Str("component", "cache").Logger(),
	}
}

// Key builds a namespaced key for this service's deployment prefix.
func (s *Service) Key(class Class, id string) Key {
	return Key{Prefix: s.prefix, Class: class, ID: id}
}

// documents returns the lazily initialized document tier, or nil when not
// configured or when initialization failed. A failed init is retried on the
// next call only if the constructor itself chooses to; the memoized nil
// simply keeps the tier out of the chain.
func (s *Service) documents(ctx context.Context) Store {
	if s.docsInit == nil {
		return nil
	}
	s.docsOnce.Do(func() {
		store, err := s.docsInit(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Document tier unavailable, continuing without it")
			return
		}
		s.docs = store
	})
	return s.docs
}

// tiersFor returns the tier chain for an entity class, fastest first.
// Catalog and metadata records additionally flow to the document tier.
func (s *Service) tiersFor(ctx context.Context, class Class) []Store {
	tiers := []Store{s.memory}
	if s.kv != nil {
		tiers = append(tiers, s.kv)
	}
	if class == ClassMeta || class == ClassCatalog {
		if docs := s.documents(ctx); docs != nil {
			tiers = append(tiers, docs)
		}
	}
	return tiers
}

// getEntry reads through the tier chain. Backing-store errors are absorbed
// as misses.
func (s *Service) getEntry(ctx context.Context, key Key) *Entry {
	keyStr := key.String()
	for _, tier := range s.tiersFor(ctx, key.Class) {
		entry, err := tier.Get(ctx, keyStr)
		if err == nil {
			cacheHits.WithLabelValues(tier.Name()).Inc()
			return entry
		}
		if err != ErrMiss {
			cacheErrors.WithLabelValues(tier.Name(), "get").Inc()
			s.logger.Debug().Err(err).Str("key", keyStr).Str("tier", tier.Name()).Msg("Cache read failed, treating as miss")
		}
	}
	cacheMisses.Inc()
	return nil
}

// setEntry writes through to every tier of the class. Failures are absorbed
// as no-ops.
func (s *Service) setEntry(ctx context.Context, key Key, entry *Entry) {
	keyStr := key.String()
	for _, tier := range s.tiersFor(ctx, key.Class) {
		if err := tier.Set(ctx, keyStr, entry); err != nil {
			cacheErrors.WithLabelValues(tier.Name(), "set").Inc()
			s.logger.Debug().Err(err).Str("key", keyStr).Str("tier", tier.Name()).Msg("Cache write failed, skipping tier")
		}
	}
}

// Get retrieves and decodes a cached value. The second return reports
// whether a fresh entry was found.
func Get[T any](ctx context.Context, s *Service, key Key) (T, bool) {
	var zero T
	if s == nil || s.disabled {
		return zero, false
	}

	entry := s.getEntry(ctx, key)
	if entry == nil {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		s.logger.Debug().Err(err).Str("key", key.String()).Msg("Cached value failed to decode, treating as miss")
		return zero, false
	}
	return value, true
}

// Set encodes and stores a value best-effort.
func Set[T any](ctx context.Context, s *Service, key Key, value T, ttl time.Duration) {
	if s == nil || s.disabled {
		return
	}

	entry, err := NewEntry(value, ttl)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key.String()).Msg("Value failed to encode, skipping cache write")
		return
	}
	s.setEntry(ctx, key, entry)
}

// Wrap returns the cached value for key if present and fresh, otherwise
// computes it, stores the result, and returns it. A compute failure
// propagates and nothing is cached. Concurrent calls with the same key may
// each invoke compute; there is no single-flight deduplication.
func Wrap[T any](ctx context.Context, s *Service, key Key, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if s == nil || s.disabled {
		cacheBypass.Inc()
		return compute(ctx)
	}

	if value, ok := Get[T](ctx, s, key); ok {
		return value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	Set(ctx, s, key, value, ttl)
	return value, nil
}
