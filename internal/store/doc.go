// Package store holds the most recent raw issues fetched from each source.
// It is a thread-safe in-memory map keyed by source ID with TTL eviction:
// an entry that has not been refreshed within the TTL is dropped, and issues
// whose last successful fetch is older than the TTL stop contributing to
// Issues() even while the source keeps reporting errors.
package store
