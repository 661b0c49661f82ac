// Package advisor retrieves known vulnerabilities for analyzed packages
// from advisory providers.
//
// Packages are queried in chunks with bounded parallelism. A failing chunk
// degrades the run: every package in it gets an Issue naming the provider,
// and all other chunks proceed. Only context cancellation aborts the whole
// run.
package advisor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/observability"
)

const (
	// chunkSize is the number of packages per provider request.
	chunkSize = 128

	// maxParallel bounds concurrent chunk requests per provider.
	maxParallel = 4
)

// Provider answers vulnerability queries for a batch of packages.
type Provider interface {
	// Name returns the provider name, used in Issues and reports.
	Name() string

	// Query returns the known vulnerabilities for each queried package.
	// Packages without findings are absent from the result map.
	Query(ctx context.Context, pkgs []model.Package) (map[model.Identifier][]model.Vulnerability, error)
}

// Result is the outcome of one advisor run.
type Result struct {
	// Vulnerabilities maps package Identifiers to their known
	// vulnerabilities, merged over all providers.
	Vulnerabilities map[model.Identifier][]model.Vulnerability `json:"vulnerabilities"`

	// Issues records provider failures. A failed chunk yields one Issue per
	// affected package so that reports can show exactly which packages have
	// incomplete vulnerability data.
	Issues []model.Issue `json:"issues,omitempty"`
}

// Advisor fans package batches out to advisory providers.
type Advisor struct {
	providers []Provider
	log       *log.Logger
}

// New creates an Advisor over the given providers.
func New(providers []Provider, logger *log.Logger) *Advisor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Advisor{providers: providers, log: logger}
}

// Run queries all providers for all packages. Provider failures surface as
// Issues; the returned error is non-nil only for context cancellation.
func (a *Advisor) Run(ctx context.Context, pkgs []model.Package) (*Result, error) {
	result := &Result{Vulnerabilities: make(map[model.Identifier][]model.Vulnerability)}
	var mu sync.Mutex

	for _, provider := range a.providers {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallel)

		for chunk := range chunks(pkgs, chunkSize) {
			g.Go(func() error {
				observability.Advisor().OnQueryStart(gctx, provider.Name(), len(chunk))
				start := time.Now()
				vulns, err := provider.Query(gctx, chunk)
				duration := time.Since(start)

				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					observability.Advisor().OnQueryComplete(gctx, provider.Name(), len(chunk), 0, duration, err)
					a.log.Warn("advisory query failed", "provider", provider.Name(), "packages", len(chunk), "err", err)
					mu.Lock()
					for _, pkg := range chunk {
						result.Issues = append(result.Issues, model.NewIssue(provider.Name(),
							"querying vulnerabilities for %s: %v", pkg.ID, err))
					}
					mu.Unlock()
					return nil
				}

				total := 0
				mu.Lock()
				for id, vs := range vulns {
					result.Vulnerabilities[id] = append(result.Vulnerabilities[id], vs...)
					total += len(vs)
				}
				mu.Unlock()
				observability.Advisor().OnQueryComplete(gctx, provider.Name(), len(chunk), total, duration, nil)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	a.log.Info("advisory run complete",
		"packages", len(pkgs), "affected", len(result.Vulnerabilities), "issues", len(result.Issues))
	return result, nil
}

// chunks yields pkgs in slices of at most size elements.
func chunks(pkgs []model.Package, size int) func(yield func([]model.Package) bool) {
	return func(yield func([]model.Package) bool) {
		for start := 0; start < len(pkgs); start += size {
			end := min(start+size, len(pkgs))
			if !yield(pkgs[start:end]) {
				return
			}
		}
	}
}
