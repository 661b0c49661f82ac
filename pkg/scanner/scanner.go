// Package scanner runs license scanners over package sources and caches
// their results by provenance.
//
// A scanner produces raw license and copyright findings for a directory
// tree. Results are stored keyed by (scanner, scanner version, provenance),
// so re-running over an unchanged source revision is a cache hit; unknown
// provenance (no pinned revision, no artifact digest) is never cached
// because there is nothing stable to key on.
package scanner

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/complykit/complykit/pkg/cache"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/observability"
)

// Scanner detects licenses and copyrights in a directory tree.
type Scanner interface {
	// Name returns the scanner name, part of every cache key.
	Name() string

	// Version returns the scanner version. Bumping it invalidates all
	// cached results of this scanner.
	Version() string

	// Scan walks dir and returns the raw findings.
	Scan(ctx context.Context, dir string) (*Summary, error)
}

// Summary holds the raw findings of one scan.
type Summary struct {
	Licenses   []model.LicenseFinding   `json:"licenses,omitempty"`
	Copyrights []model.CopyrightFinding `json:"copyrights,omitempty"`
}

// Record is the stored result of scanning one package's source.
type Record struct {
	ID             model.Identifier `json:"id"`
	ScannerName    string           `json:"scanner_name"`
	ScannerVersion string           `json:"scanner_version"`
	Provenance     model.Provenance `json:"provenance"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	Summary        Summary          `json:"summary"`

	// FromCache reports whether this record was served from the result
	// cache rather than produced by a fresh scan.
	FromCache bool `json:"-"`
}

// cacheTTL bounds how long scan results live. Provenance-keyed entries are
// immutable in principle; the TTL only caps cache growth.
const cacheTTL = 90 * 24 * time.Hour

// Runner executes a scanner with result caching.
type Runner struct {
	scanner Scanner
	cache   cache.Cache
	keyer   cache.Keyer
	log     *log.Logger
}

// NewRunner creates a Runner. Pass a [cache.NullCache] to disable caching.
func NewRunner(s Scanner, c cache.Cache, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		scanner: s,
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		log:     logger,
	}
}

// ScanPackage scans the package source unpacked at dir, consulting the
// result cache when the provenance is known.
func (r *Runner) ScanPackage(ctx context.Context, id model.Identifier, dir string, prov model.Provenance) (*Record, error) {
	key := ""
	if prov.IsKnown() {
		key = r.keyer.ScanKey(r.scanner.Name(), r.scanner.Version(), prov.Key())
		if rec, ok := r.lookup(ctx, key); ok {
			r.log.Debug("scan cache hit", "package", id, "scanner", r.scanner.Name())
			rec.ID = id
			rec.FromCache = true
			return rec, nil
		}
	}

	observability.Scanner().OnScanStart(ctx, r.scanner.Name(), id.String())
	start := time.Now()
	summary, err := r.scanner.Scan(ctx, dir)
	duration := time.Since(start)
	if err != nil {
		observability.Scanner().OnScanComplete(ctx, r.scanner.Name(), id.String(), 0, duration, err)
		return nil, err
	}
	observability.Scanner().OnScanComplete(ctx, r.scanner.Name(), id.String(), len(summary.Licenses), duration, nil)

	rec := &Record{
		ID:             id,
		ScannerName:    r.scanner.Name(),
		ScannerVersion: r.scanner.Version(),
		Provenance:     prov,
		StartTime:      start,
		EndTime:        start.Add(duration),
		Summary:        *summary,
	}
	if key != "" {
		r.store(ctx, key, rec)
	}
	return rec, nil
}

func (r *Runner) lookup(ctx context.Context, key string) (*Record, bool) {
	data, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, "scan")
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		observability.Cache().OnCacheMiss(ctx, "scan")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "scan")
	return &rec, true
}

func (r *Runner) store(ctx context.Context, key string, rec *Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	// Cache write failures cost a rescan later, nothing more.
	if err := r.cache.Set(ctx, key, data, cacheTTL); err != nil {
		r.log.Debug("scan cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "scan", len(data))
}
