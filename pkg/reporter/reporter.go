// Package reporter turns analysis, scan, and advisory results into output
// documents.
//
// Reporters register themselves at init time, mirroring the package-manager
// plugin registry: importing a reporter package makes its format available
// by name.
package reporter

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/graph"
	"github.com/complykit/complykit/pkg/license"
	"github.com/complykit/complykit/pkg/model"
)

// Input bundles everything a reporter may draw from. Licenses may be nil
// when no scan ran; reporters must degrade to declared metadata then.
type Input struct {
	// RunName identifies the analyzed repository or product.
	RunName string

	Projects []model.Project
	Graph    *graph.Graph
	Packages []model.Package

	// Licenses resolves effective licenses per package. Nil without a scan.
	Licenses *license.Resolver

	// Vulnerabilities maps package IDs to advisory findings. Nil without an
	// advisor run.
	Vulnerabilities map[model.Identifier][]model.Vulnerability

	Issues []model.Issue
}

// EffectiveLicense returns the package's effective license: the scan-backed
// resolution when available, the declared license otherwise. Empty means
// unknown.
func (in *Input) EffectiveLicense(pkg model.Package) string {
	if in.Licenses != nil {
		if expr, ok := in.Licenses.EffectiveLicense(pkg.ID, license.ViewConcludedOrDeclaredAndDetected); ok {
			return expr
		}
	}
	if pkg.ConcludedLicense != "" {
		return pkg.ConcludedLicense
	}
	return pkg.DeclaredLicenseSPDX
}

// Reporter generates one output format.
type Reporter interface {
	// Name returns the format name used for selection, e.g. "spdx".
	Name() string

	// FileName returns the default output file name for this format.
	FileName() string

	// Generate writes the report for in to w.
	Generate(ctx context.Context, in *Input, w io.Writer) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Reporter{}
)

// Register makes a reporter available under its name. It panics when the
// name is taken; reporters register from init and a clash is a programming
// error.
func Register(name string, factory func() Reporter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("reporter: duplicate registration of " + name)
	}
	registry[name] = factory
}

// Names returns all registered format names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates the named reporter.
func Create(name string) (Reporter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeConfigUnknownPlugin, "unknown report format %q", name)
	}
	return factory(), nil
}
