// Package analyzer discovers definition files in a source tree and turns
// them into projects with a shared, deduplicated dependency graph.
//
// Each ecosystem is handled by a [PackageManager] plugin. The analyzer walks
// the tree, matches files against the registered plugins, and feeds every
// project's scope trees into one [graph.Builder], so packages shared between
// projects collapse into single nodes. A plugin failure on one definition
// file degrades the run with an Issue instead of aborting it.
package analyzer

import (
	"context"
	"io"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/complykit/complykit/pkg/config"
	"github.com/complykit/complykit/pkg/curation"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/graph"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/observability"
)

// skipDirs are directory names never descended into: they hold third-party
// or generated content whose definition files do not belong to the analyzed
// repository.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// Result is the outcome of one analyzer run over a source tree.
type Result struct {
	// Projects lists the analyzed projects, sorted by definition file path.
	Projects []model.Project `json:"projects"`

	// Graph is the shared dependency graph over all projects and scopes.
	Graph *graph.Graph `json:"graph"`

	// Packages lists one curated entry per graph node, sorted by Identifier.
	Packages []model.Package `json:"packages"`

	// Issues holds all non-fatal problems from the run: plugin failures,
	// dependency cycles, reference-level parse warnings.
	Issues []model.Issue `json:"issues,omitempty"`
}

// Options configures an Analyzer.
type Options struct {
	// Managers selects package-manager plugins by name; empty means all
	// registered plugins.
	Managers []string

	// Logger receives progress output. Nil discards it.
	Logger *log.Logger
}

// Analyzer runs package-manager plugins over a source tree.
type Analyzer struct {
	managers []PackageManager
	log      *log.Logger
}

// New creates an Analyzer. Unknown plugin names fail here, before any work
// is done.
func New(opts Options) (*Analyzer, error) {
	managers, err := CreateAll(opts.Managers...)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Analyzer{managers: managers, log: logger}, nil
}

// Run analyzes the source tree rooted at root, applying the repository
// configuration's package curations to the collected metadata. Definition
// files are processed in sorted path order, one project completely before
// the next, so results are reproducible.
func (a *Analyzer) Run(ctx context.Context, root string, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	found, err := a.findDefinitionFiles(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "walking %s", root)
	}
	a.log.Info("analyzing source tree", "root", root, "definition_files", len(found))

	result := &Result{}
	builder := graph.NewBuilder()

	for _, df := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		observability.Analyzer().OnProjectStart(ctx, df.manager.Name(), df.rel)
		pr, err := df.manager.Analyze(ctx, df.abs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.log.Warn("analysis failed", "manager", df.manager.Name(), "file", df.rel, "err", err)
			result.Issues = append(result.Issues, model.NewIssue(df.manager.Name(),
				"analyzing %s: %v", df.rel, err))
			observability.Analyzer().OnProjectComplete(ctx, df.manager.Name(), df.rel, err)
			continue
		}

		pr.Project.DefinitionFilePath = df.rel
		result.Projects = append(result.Projects, pr.Project)
		result.Issues = append(result.Issues, pr.Issues...)

		for _, pkg := range pr.Packages {
			if err := builder.AddPackage(pkg); err != nil {
				return nil, err
			}
		}
		for _, scope := range slices.Sorted(maps.Keys(pr.Scopes)) {
			if err := builder.AddDependencies(pr.Project.ID, scope, pr.Scopes[scope]); err != nil {
				return nil, err
			}
		}
		observability.Analyzer().OnProjectComplete(ctx, df.manager.Name(), df.rel, nil)
	}

	g, pkgs, err := builder.Build()
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Issues = append(result.Issues, g.Issues...)
	result.Packages = curation.ApplyAll(cfg.PackageCurations, pkgs)

	slices.SortFunc(result.Projects, func(x, y model.Project) int {
		return strings.Compare(x.DefinitionFilePath, y.DefinitionFilePath)
	})
	a.log.Info("analysis complete",
		"projects", len(result.Projects), "packages", g.NodeCount(), "issues", len(result.Issues))
	return result, nil
}

type definitionFile struct {
	abs     string
	rel     string
	manager PackageManager
}

// findDefinitionFiles walks the tree and pairs each supported file with its
// plugin. When several plugins claim the same file name, that is ambiguous
// configuration and the walk fails.
func (a *Analyzer) findDefinitionFiles(root string) ([]definitionFile, error) {
	var found []definitionFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		var claimed []PackageManager
		for _, m := range a.managers {
			if m.Supports(d.Name()) {
				claimed = append(claimed, m)
			}
		}
		if len(claimed) == 0 {
			return nil
		}
		if len(claimed) > 1 {
			return errors.New(errors.ErrCodeConfigAmbiguousMatch,
				"%s is claimed by %s and %s", d.Name(), claimed[0].Name(), claimed[1].Name())
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		found = append(found, definitionFile{abs: path, rel: filepath.ToSlash(rel), manager: claimed[0]})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(found, func(x, y definitionFile) int { return strings.Compare(x.rel, y.rel) })
	return found, nil
}
