// Package storage persists run results.
//
// A run result bundles the outputs of one analyzer/scanner/advisor pass over
// a repository. Stores keep one result per run name; saving again replaces
// the previous result, which keeps "latest state per repository" semantics
// simple for the results API.
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/complykit/complykit/pkg/advisor"
	"github.com/complykit/complykit/pkg/analyzer"
	"github.com/complykit/complykit/pkg/scanner"
)

// RunResult is the persisted outcome of one complykit run. Scanner and
// advisor sections are nil when those stages did not run.
type RunResult struct {
	// Name identifies the analyzed repository, unique per store.
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Version is the complykit version that produced the result.
	Version string `json:"version" bson:"version"`

	Analyzer *analyzer.Result `json:"analyzer" bson:"analyzer"`
	Scans    []scanner.Record `json:"scans,omitempty" bson:"scans,omitempty"`
	Advisor  *advisor.Result  `json:"advisor,omitempty" bson:"advisor,omitempty"`
}

// Normalize sorts all order-independent slices so that serialized results
// are byte-stable across runs.
func (r *RunResult) Normalize() {
	if r.Analyzer != nil {
		sort.Slice(r.Analyzer.Packages, func(i, j int) bool {
			return r.Analyzer.Packages[i].ID.Compare(r.Analyzer.Packages[j].ID) < 0
		})
	}
	sort.Slice(r.Scans, func(i, j int) bool {
		return r.Scans[i].ID.Compare(r.Scans[j].ID) < 0
	})
	if r.Advisor != nil {
		for _, vulns := range r.Advisor.Vulnerabilities {
			sort.Slice(vulns, func(i, j int) bool { return vulns[i].ID < vulns[j].ID })
		}
	}
}

// Store is a run result backend.
type Store interface {
	// Save stores the result, replacing any previous result with the same
	// name.
	Save(ctx context.Context, result *RunResult) error

	// Load returns the named result. A missing result is an
	// ErrCodeResultNotFound error.
	Load(ctx context.Context, name string) (*RunResult, error)

	// List returns the stored run names, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes the named result. Deleting a missing result is not an
	// error.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
