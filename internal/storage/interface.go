// Package storage wraps the external blob store behind a small interface:
// store bytes under a key, enumerate keys in a bucket, and mint time-limited
// signed download URLs. The store owns the bytes and the URL minting; nothing
// in this system persists object state of its own.
package storage

import (
	"context"
	"time"
)

// DefaultSignTTL is the signed-URL lifetime used when callers have no reason
// to pick another.
const DefaultSignTTL = time.Hour

// EmptyFolderPlaceholder is the sentinel object name some providers create
// inside otherwise-empty folders. Listings filter it out.
const EmptyFolderPlaceholder = ".emptyFolderPlaceholder"

// ObjectStore is the contract every storage driver implements.
type ObjectStore interface {
	// Put stores bytes under a key. Failures surface as
	// *domain.StorageWriteError (provider rejection) or *domain.UpstreamError
	// (provider unreachable); this layer never retries.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error

	// List enumerates object keys in a bucket. Provider failures degrade to
	// an empty result rather than an error: listings back a best-effort UI
	// and must never turn into a 5xx. Placeholder and keyless entries are
	// filtered out before returning.
	List(ctx context.Context, bucket string) []string

	// SignURL mints a time-limited signed download URL for one key. Unlike
	// List, failures propagate (*domain.StorageSignError or
	// *domain.UpstreamError); each call site decides whether to skip or fail.
	SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
