// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about analysis, scanning, advisory lookups
// and cache operations.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetAnalyzerHooks(&myAnalyzerHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Scanner().OnScanStart(ctx, scanner, id)
//	// ... scan ...
//	observability.Scanner().OnScanComplete(ctx, scanner, id, findings, duration, err)
//
// Hooks are registered by main, not by libraries, which keeps the core
// packages free of observability framework imports.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Analyzer Hooks
// =============================================================================

// AnalyzerHooks receives events from the dependency analyzer.
type AnalyzerHooks interface {
	// OnProjectStart records the start of one definition file's analysis.
	OnProjectStart(ctx context.Context, manager, definitionFile string)

	// OnProjectComplete records the end of one definition file's analysis.
	OnProjectComplete(ctx context.Context, manager, definitionFile string, err error)
}

// =============================================================================
// Scanner Hooks
// =============================================================================

// ScannerHooks receives events from license scanning.
type ScannerHooks interface {
	// OnScanStart records the start of one package scan.
	OnScanStart(ctx context.Context, scanner, pkg string)

	// OnScanComplete records the end of one package scan.
	OnScanComplete(ctx context.Context, scanner, pkg string, findings int, duration time.Duration, err error)
}

// =============================================================================
// Advisor Hooks
// =============================================================================

// AdvisorHooks receives events from vulnerability providers.
type AdvisorHooks interface {
	// OnQueryStart records an outgoing batch query.
	OnQueryStart(ctx context.Context, provider string, packages int)

	// OnQueryComplete records a finished batch query.
	OnQueryComplete(ctx context.Context, provider string, packages, vulnerabilities int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopAnalyzerHooks is a no-op implementation of AnalyzerHooks.
type NoopAnalyzerHooks struct{}

func (NoopAnalyzerHooks) OnProjectStart(context.Context, string, string)           {}
func (NoopAnalyzerHooks) OnProjectComplete(context.Context, string, string, error) {}

// NoopScannerHooks is a no-op implementation of ScannerHooks.
type NoopScannerHooks struct{}

func (NoopScannerHooks) OnScanStart(context.Context, string, string) {}
func (NoopScannerHooks) OnScanComplete(context.Context, string, string, int, time.Duration, error) {
}

// NoopAdvisorHooks is a no-op implementation of AdvisorHooks.
type NoopAdvisorHooks struct{}

func (NoopAdvisorHooks) OnQueryStart(context.Context, string, int) {}
func (NoopAdvisorHooks) OnQueryComplete(context.Context, string, int, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	analyzerHooks AnalyzerHooks = NoopAnalyzerHooks{}
	scannerHooks  ScannerHooks  = NoopScannerHooks{}
	advisorHooks  AdvisorHooks  = NoopAdvisorHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetAnalyzerHooks registers custom analyzer hooks.
// This should be called once at application startup.
func SetAnalyzerHooks(h AnalyzerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		analyzerHooks = h
	}
}

// SetScannerHooks registers custom scanner hooks.
// This should be called once at application startup.
func SetScannerHooks(h ScannerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scannerHooks = h
	}
}

// SetAdvisorHooks registers custom advisor hooks.
// This should be called once at application startup.
func SetAdvisorHooks(h AdvisorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		advisorHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Analyzer returns the registered analyzer hooks.
func Analyzer() AnalyzerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return analyzerHooks
}

// Scanner returns the registered scanner hooks.
func Scanner() ScannerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scannerHooks
}

// Advisor returns the registered advisor hooks.
func Advisor() AdvisorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return advisorHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	analyzerHooks = NoopAnalyzerHooks{}
	scannerHooks = NoopScannerHooks{}
	advisorHooks = NoopAdvisorHooks{}
	cacheHooks = NoopCacheHooks{}
}
