package cache

import "fmt"

// Class partitions the key space by entity kind so that metadata, catalog
// and release-fact entries can never collide.
type Class string

const (
	// ClassMeta holds enriched per-title metadata records.
	ClassMeta Class = "meta"

	// ClassCatalog holds aggregated catalog pages.
	ClassCatalog Class = "catalog"

	// ClassFact holds derived release facts.
	ClassFact Class = "fact"
)

// Key identifies one cached entity.
type Key struct {
	// Prefix namespaces the deployment (e.g. "cinefeed").
	Prefix string

	// Class is the entity class of the value.
	Class Class

	// ID is the entity identifier, unique within its class.
	ID string
}

// String renders the key in its canonical form: {prefix}|{class}:{id}.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s:%s", k.Prefix, k.Class, k.ID)
}
