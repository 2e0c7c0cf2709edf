// Package cache provides the layered caching used by the aggregation
// pipeline: a uniform Get/Set/Wrap surface over a process-local tier, a
// networked key-value tier (Redis) and a document-store tier (Firestore).
//
// Tiers are selected by availability and by entity class: metadata and
// catalog records additionally flow to the document tier, derived release
// facts stay in the fast tiers. Caching is always best-effort; a failing
// backing store is treated as a miss on read and a no-op on write, and never
// fails the caller's primary operation.
//
// Wrap deliberately performs no single-flight deduplication: concurrent
// calls with the same key may each invoke their compute function.
package cache
