package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcess_PreservesOrder(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		chunkSize int
	}{
		{"single item", 1, 1},
		{"chunk size one", 7, 1},
		{"chunk divides evenly", 10, 5},
		{"chunk larger than input", 3, 10},
		{"uneven final chunk", 13, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i * 10
			}

			// Randomized per-item delays so completion order differs
			// from input order.
			results := Process(context.Background(), items, Options{ChunkSize: tt.chunkSize}, func(_ context.Context, v int) (string, error) {
				time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
				return fmt.Sprintf("item-%d", v), nil
			})

			if len(results) != tt.n {
				t.Fatalf("len(results) = %d, want %d", len(results), tt.n)
			}
			for i, r := range results {
				if r == nil {
					t.Fatalf("results[%d] is nil, want value", i)
				}
				want := fmt.Sprintf("item-%d", i*10)
				if *r != want {
					t.Errorf("results[%d] = %q, want %q", i, *r, want)
				}
			}
		})
	}
}

func TestProcess_AllFail(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	results := Process(context.Background(), items, Options{ChunkSize: 2}, func(_ context.Context, v int) (string, error) {
		return "", errors.New("upstream unavailable")
	})

	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r != nil {
			t.Errorf("results[%d] = %v, want nil", i, *r)
		}
	}

	filtered := ProcessFiltered(context.Background(), items, Options{ChunkSize: 2}, func(_ context.Context, v int) (string, error) {
		return "", errors.New("upstream unavailable")
	})
	if len(filtered) != 0 {
		t.Errorf("len(filtered) = %d, want 0", len(filtered))
	}
}

func TestProcess_PartialFailureIsolated(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5}

	results := Process(context.Background(), items, Options{ChunkSize: 3}, func(_ context.Context, v int) (int, error) {
		if v%2 == 1 {
			return 0, errors.New("bad item")
		}
		return v * v, nil
	})

	for i, r := range results {
		if i%2 == 1 {
			if r != nil {
				t.Errorf("results[%d] = %v, want nil (failed item)", i, *r)
			}
			continue
		}
		if r == nil {
			t.Fatalf("results[%d] is nil, failure was not isolated", i)
		}
		if *r != i*i {
			t.Errorf("results[%d] = %d, want %d", i, *r, i*i)
		}
	}
}

func TestProcess_ChunkBoundary(t *testing.T) {
	// Chunk N must be fully resolved before chunk N+1 starts, so at no
	// point may more than ChunkSize items be in flight.
	const chunkSize = 4

	var inFlight, peak int64
	var mu sync.Mutex

	items := make([]int, 17)
	ProcessFiltered(context.Background(), items, Options{ChunkSize: chunkSize}, func(_ context.Context, v int) (int, error) {
		current := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return v, nil
	})

	if peak > chunkSize {
		t.Errorf("peak concurrency = %d, want <= %d", peak, chunkSize)
	}
}

func TestProcess_InterChunkDelay(t *testing.T) {
	const delay = 50 * time.Millisecond

	items := []int{1, 2, 3, 4}

	start := time.Now()
	Process(context.Background(), items, Options{ChunkSize: 2, ChunkDelay: delay}, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	elapsed := time.Since(start)

	// Two chunks: exactly one inter-chunk pause, none after the last.
	if elapsed < delay {
		t.Errorf("elapsed = %v, want >= %v (inter-chunk delay missing)", elapsed, delay)
	}
	if elapsed >= 2*delay {
		t.Errorf("elapsed = %v, want < %v (delay should be skipped after last chunk)", elapsed, 2*delay)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.ChunkSize != 5 {
		t.Errorf("ChunkSize = %d, want 5", opts.ChunkSize)
	}
	if opts.ChunkDelay != 200*time.Millisecond {
		t.Errorf("ChunkDelay = %v, want 200ms", opts.ChunkDelay)
	}
}
