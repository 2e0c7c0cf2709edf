package cache

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the document-store tier, used for the larger and
// longer-lived entity classes (catalog pages, metadata records). Firestore
// has no per-document TTL, so expiry is enforced on read.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreStore wraps a Firestore client and collection as a cache tier.
func NewFirestoreStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("tier", "firestore").Logger(),
	}, nil
}

// Name implements Store.
func (s *FirestoreStore) Name() string { return "firestore" }

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, key string) (*Entry, error) {
	snap, err := s.client.Collection(s.collection).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("firestore get: %w", err)
	}

	var entry Entry
	if err := snap.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("firestore decode: %w", err)
	}

	if entry.Expired() {
		return nil, ErrMiss
	}

	return &entry, nil
}

// Set implements Store.
func (s *FirestoreStore) Set(ctx context.Context, key string, entry *Entry) error {
	_, err := s.client.Collection(s.collection).Doc(docID(key)).Set(ctx, entry)
	if err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("Stored cache document")
	return nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// docID makes a cache key safe for use as a Firestore document ID, which
// must not contain forward slashes.
func docID(key string) string {
	out := []byte(key)
	for i, c := range out {
		if c == '/' {
			out[i] = '_'
		}
	}
	return string(out)
}
