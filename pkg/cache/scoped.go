package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Server deployments give every organization its own namespace so that scan
// results for private sources never leak across tenants.
//
// Example usage:
//
//	// Tenant-specific keys for private sources
//	tenantKeyer := NewScopedKeyer(NewDefaultKeyer(), "org:abc123:")
//
//	// Global keys for public packages
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ScanKey generates a prefixed key for scan result caching.
func (k *ScopedKeyer) ScanKey(scanner, version, provenanceKey string) string {
	return k.prefix + k.inner.ScanKey(scanner, version, provenanceKey)
}

// AdvisoryKey generates a prefixed key for advisory response caching.
func (k *ScopedKeyer) AdvisoryKey(provider, purl string) string {
	return k.prefix + k.inner.AdvisoryKey(provider, purl)
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}
