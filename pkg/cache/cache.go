// Package cache provides pluggable byte caches for scan results and
// advisory responses.
//
// Scanning a package's source is by far the most expensive step of a run, so
// scan results are cached keyed by provenance: the same source revision
// scanned by the same scanner version is never scanned twice, no matter which
// package coordinates point at it. Backends range from a local directory for
// CLI usage to Redis for shared server deployments.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports a hit; a miss
	// is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration; a negative ttl
	// stores nothing retrievable (the entry is expired on arrival).
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the different value kinds. Key layouts are
// versioned implicitly through the scanner name and version embedded in scan
// keys; bumping a scanner version naturally invalidates its entries.
type Keyer interface {
	// ScanKey keys a scan result by scanner identity and source provenance.
	ScanKey(scanner, version, provenanceKey string) string

	// AdvisoryKey keys a vulnerability response by provider and package.
	AdvisoryKey(provider, purl string) string

	// HTTPKey keys a raw HTTP response within a namespace.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ScanKey hashes the scanner identity and provenance into a fixed-width key.
func (k *DefaultKeyer) ScanKey(scanner, version, provenanceKey string) string {
	return hashKey("scan", scanner, version, provenanceKey)
}

// AdvisoryKey hashes the provider and package URL into a fixed-width key.
func (k *DefaultKeyer) AdvisoryKey(provider, purl string) string {
	return hashKey("advisory", provider, purl)
}

// HTTPKey namespaces a raw response key.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

var _ Keyer = (*DefaultKeyer)(nil)
