package analyzer

import (
	"context"
	"slices"
	"sync"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// PackageManager reads dependency information from one ecosystem's
// definition files. Implementations register themselves via [Register] from
// their package's init function.
type PackageManager interface {
	// Name returns the ecosystem name, used as the type coordinate of all
	// Identifiers the plugin emits (e.g., "GoMod", "NPM").
	Name() string

	// Supports reports whether this plugin handles the given definition
	// file name.
	Supports(filename string) bool

	// Analyze parses the definition file at path and returns the project
	// with its per-scope dependency trees.
	Analyze(ctx context.Context, path string) (*ProjectResult, error)
}

// ProjectResult is the output of analyzing one definition file.
type ProjectResult struct {
	Project model.Project

	// Packages holds metadata for the packages referenced from Scopes.
	// Entries are optional; packages without metadata still become graph
	// nodes from their references alone.
	Packages []model.Package

	// Scopes maps scope name to the root references of that scope's
	// dependency tree.
	Scopes map[string][]model.PackageReference

	// Issues holds non-fatal problems encountered during parsing.
	Issues []model.Issue
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() PackageManager)
)

// Register makes a package-manager plugin available under its name.
// Registering the same name twice panics; that is a programming error, not a
// runtime condition.
func Register(name string, factory func() PackageManager) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic("analyzer: duplicate package manager " + name)
	}
	registry[name] = factory
}

// Names returns the registered plugin names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create instantiates the named plugin. An unknown name is a configuration
// error: the user asked for a plugin that does not exist.
func Create(name string) (PackageManager, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeConfigUnknownPlugin, "unknown package manager %q", name)
	}
	return factory(), nil
}

// CreateAll instantiates the named plugins, or every registered plugin when
// names is empty.
func CreateAll(names ...string) ([]PackageManager, error) {
	if len(names) == 0 {
		names = Names()
	}
	managers := make([]PackageManager, 0, len(names))
	for _, name := range names {
		m, err := Create(name)
		if err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, nil
}
