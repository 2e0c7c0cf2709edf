package cache

import (
	"time"

	json "github.com/goccy/go-json"
)

// Entry is one cached value with its freshness window. Entries are stored as
// encoded JSON so every tier shares a single representation.
type Entry struct {
	// Value is the JSON-encoded cached value.
	Value json.RawMessage `json:"value" firestore:"value"`

	// InsertedAt is when the entry was written.
	InsertedAt time.Time `json:"inserted_at" firestore:"inserted_at"`

	// TTLSeconds is the validity window in seconds.
	TTLSeconds int64 `json:"ttl_seconds" firestore:"ttl_seconds"`
}

// NewEntry encodes value into a fresh Entry.
func NewEntry(value any, ttl time.Duration) (*Entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Value:      data,
		InsertedAt: time.Now(),
		TTLSeconds: int64(ttl.Seconds()),
	}, nil
}

// Expired reports whether the validity window has elapsed. An expired entry
// read from any tier is treated as absent.
func (e *Entry) Expired() bool {
	expiry := e.InsertedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
	return time.Now().After(expiry)
}

// TTL returns the remaining time until expiry, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	remaining := time.Until(e.InsertedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
	if remaining < 0 {
		return 0
	}
	return remaining
}
