// Package httputil provides the HTTP infrastructure shared by all external
// service clients, currently the vulnerability providers.
//
// It offers two building blocks:
//
//   - [Retry]: automatic retry with exponential backoff for transient
//     failures (network errors, 5xx responses, 429 rate limits)
//   - [Client]: a JSON request helper with response caching through a
//     [cache.Cache] backend
//
// Defaults are suitable for most use cases: 3 attempts with a 1 second base
// delay that doubles after each failure, and a 30 second request timeout.
package httputil
