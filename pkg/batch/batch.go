// Package batch provides chunked, bounded-concurrency execution of
// asynchronous work items with per-item failure isolation.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch execution.
var (
	batchItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinefeed_batch_items_total",
		Help: "Total number of work items processed by the batch executor",
	})

	batchItemFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinefeed_batch_item_failures_total",
		Help: "Total number of work items that failed and were recorded as nil",
	})

	batchChunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cinefeed_batch_chunk_duration_seconds",
		Help:    "Wall-clock duration of one batch chunk",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Options controls chunking behaviour.
type Options struct {
	// ChunkSize is the number of items executed concurrently per chunk.
	ChunkSize int

	// ChunkDelay is the pause between consecutive chunks. The pause is
	// skipped after the final chunk.
	ChunkDelay time.Duration
}

// DefaultOptions returns the chunking used for upstream enrichment calls.
// Five concurrent requests with a 200ms pause between chunks approximates a
// leaky-bucket limiter against providers that throttle per short window.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  5,
		ChunkDelay: 200 * time.Millisecond,
	}
}

// Process executes fn for every item in order-preserving chunks and returns
// one result slot per input, in input order. A failed item yields a nil slot
// and never aborts sibling items or later chunks. Chunk N is fully resolved
// before chunk N+1 starts. There is no retry at this layer.
func Process[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) []*R {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}

	results := make([]*R, len(items))

	for start := 0; start < len(items); start += opts.ChunkSize {
		end := start + opts.ChunkSize
		if end > len(items) {
			end = len(items)
		}

		chunkStart := time.Now()

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				batchItemsTotal.Inc()

				value, err := fn(ctx, items[idx])
				if err != nil {
					batchItemFailuresTotal.Inc()
					log.Warn().
						Err(err).
						Int("index", idx).
						Int("chunk", start/opts.ChunkSize).
						Msg("Batch item failed")
					return
				}
				results[idx] = &value
			}(i)
		}
		wg.Wait()

		batchChunkDuration.Observe(time.Since(chunkStart).Seconds())

		// Pause between chunks, skipped after the last one.
		if end < len(items) && opts.ChunkDelay > 0 {
			time.Sleep(opts.ChunkDelay)
		}
	}

	return results
}

// ProcessFiltered is the convenience variant of Process that drops nil slots.
// The original index association is lost; callers needing index correlation
// must use Process.
func ProcessFiltered[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) []R {
	slots := Process(ctx, items, opts, fn)

	filtered := make([]R, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			filtered = append(filtered, *slot)
		}
	}
	return filtered
}
