package license

import (
	"slices"
	"sync"

	"github.com/gobwas/glob"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// View selects which license sources contribute to the effective license.
type View string

const (
	// ViewConcludedOrDeclaredAndDetected is the default: the concluded
	// license when one exists, otherwise the conjunction of declared and
	// detected licenses.
	ViewConcludedOrDeclaredAndDetected View = "concluded-or-declared-and-detected"

	// ViewOnlyConcluded uses the concluded license alone.
	ViewOnlyConcluded View = "only-concluded"

	// ViewOnlyDeclared uses the declared license alone.
	ViewOnlyDeclared View = "only-declared"

	// ViewOnlyDetected uses the detected licenses alone.
	ViewOnlyDetected View = "only-detected"

	// ViewAll conjoins all three sources.
	ViewAll View = "all"
)

// Resolved holds all license information known for one package after
// excludes and finding curations have been applied. It is produced by
// [Resolver.Resolve] and read-only afterwards.
type Resolved struct {
	ID model.Identifier `json:"id"`

	// Declared is the SPDX expression mapped from the package metadata,
	// empty when nothing was declared or mappable.
	Declared string `json:"declared,omitempty"`

	// Concluded is the curated SPDX expression, empty without a curation.
	Concluded string `json:"concluded,omitempty"`

	// Detected holds the deduplicated, curated scanner findings.
	Detected []model.LicenseFinding `json:"detected,omitempty"`

	// Copyrights holds the deduplicated copyright findings.
	Copyrights []model.CopyrightFinding `json:"copyrights,omitempty"`
}

// DetectedExpression conjoins the distinct detected licenses into one SPDX
// expression, empty when there are no findings.
func (r *Resolved) DetectedExpression() string {
	var licenses []string
	for _, f := range r.Detected {
		if !slices.Contains(licenses, f.License) {
			licenses = append(licenses, f.License)
		}
	}
	slices.Sort(licenses)
	return Join(licenses...)
}

// Effective computes the single effective SPDX expression for the package
// under the given view, then resolves any top-level OR disjunction through
// the choices. A package with no license information under the view yields
// the empty string; that is a valid outcome, not an error.
func (r *Resolved) Effective(view View, choices []Choice) string {
	var expr string
	switch view {
	case ViewOnlyConcluded:
		expr = r.Concluded
	case ViewOnlyDeclared:
		expr = r.Declared
	case ViewOnlyDetected:
		expr = r.DetectedExpression()
	case ViewAll:
		expr = Join(r.Concluded, r.Declared, r.DetectedExpression())
	default:
		if r.Concluded != "" {
			expr = r.Concluded
		} else {
			expr = Join(r.Declared, r.DetectedExpression())
		}
	}
	return ApplyChoices(expr, choices)
}

// =============================================================================
// Finding curations and excludes
// =============================================================================

// FindingCuration corrects scanner output for the files a path glob matches.
// When DetectedLicense is set, only findings with exactly that license are
// rewritten; otherwise all findings under the path are. Rewriting to
// [CuratedNone] removes the finding entirely.
type FindingCuration struct {
	Path             string `json:"path" toml:"path"`
	DetectedLicense  string `json:"detected_license,omitempty" toml:"detected_license"`
	ConcludedLicense string `json:"concluded_license" toml:"concluded_license"`
	Reason           string `json:"reason,omitempty" toml:"reason"`
	Comment          string `json:"comment,omitempty" toml:"comment"`
}

// CuratedNone as a curation's concluded license removes matching findings
// instead of rewriting them. Used for scanner false positives.
const CuratedNone = "NONE"

// PathExclude removes all findings under a path glob from resolution, e.g.
// vendored test fixtures that do not ship with the package.
type PathExclude struct {
	Pattern string `json:"pattern" toml:"pattern"`
	Reason  string `json:"reason,omitempty" toml:"reason"`
	Comment string `json:"comment,omitempty" toml:"comment"`
}

type compiledExclude struct {
	PathExclude
	glob glob.Glob
}

type compiledCuration struct {
	FindingCuration
	glob glob.Glob
}

// =============================================================================
// Resolver
// =============================================================================

// ResolverConfig carries the repository configuration the resolver applies.
type ResolverConfig struct {
	PathExcludes     []PathExclude
	FindingCurations []FindingCuration

	// PackageChoices resolve disjunctions for one package; RepositoryChoices
	// apply to every package. Package choices are consulted first.
	PackageChoices    map[model.Identifier][]Choice
	RepositoryChoices []Choice
}

// Resolver merges declared, concluded and detected license information per
// package, applying path excludes, finding curations and license choices from
// the repository configuration. Results are memoized per package Identifier;
// the resolver is safe for concurrent use.
type Resolver struct {
	excludes  []compiledExclude
	curations []compiledCuration
	config    ResolverConfig

	mu    sync.Mutex
	cache map[model.Identifier]*Resolved
}

// NewResolver compiles the configuration's path globs. A malformed glob is a
// configuration error and fails the whole load.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	r := &Resolver{
		config: cfg,
		cache:  make(map[model.Identifier]*Resolved),
	}
	for _, ex := range cfg.PathExcludes {
		g, err := glob.Compile(ex.Pattern, '/')
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "invalid path exclude pattern %q", ex.Pattern)
		}
		r.excludes = append(r.excludes, compiledExclude{PathExclude: ex, glob: g})
	}
	for _, c := range cfg.FindingCurations {
		g, err := glob.Compile(c.Path, '/')
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "invalid finding curation path %q", c.Path)
		}
		r.curations = append(r.curations, compiledCuration{FindingCuration: c, glob: g})
	}
	return r, nil
}

// Resolve computes the resolved license information for a package from its
// curated metadata and raw scanner findings. The result is memoized: a second
// call for the same Identifier returns the cached value and ignores the new
// findings.
func (r *Resolver) Resolve(pkg model.Package, findings []model.LicenseFinding, copyrights []model.CopyrightFinding) *Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[pkg.ID]; ok {
		return cached
	}

	resolved := &Resolved{
		ID:         pkg.ID,
		Declared:   pkg.DeclaredLicenseSPDX,
		Concluded:  pkg.ConcludedLicense,
		Detected:   model.DedupLicenseFindings(r.curate(r.filter(findings))),
		Copyrights: model.DedupCopyrightFindings(r.filterCopyrights(copyrights)),
	}
	r.cache[pkg.ID] = resolved
	return resolved
}

// Resolved returns the memoized result for id, if Resolve has been called
// for it.
func (r *Resolver) Resolved(id model.Identifier) (*Resolved, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[id]
	return res, ok
}

// ChoicesFor returns the license choices applicable to the package, package
// scoped choices first so they take precedence over repository-wide ones.
func (r *Resolver) ChoicesFor(id model.Identifier) []Choice {
	choices := slices.Clone(r.config.PackageChoices[id])
	return append(choices, r.config.RepositoryChoices...)
}

// EffectiveLicense resolves the effective license for a previously resolved
// package under the given view. The boolean reports whether the package has
// been resolved at all; an empty expression with ok=true means the package
// genuinely has no license information.
func (r *Resolver) EffectiveLicense(id model.Identifier, view View) (string, bool) {
	resolved, ok := r.Resolved(id)
	if !ok {
		return "", false
	}
	return resolved.Effective(view, r.ChoicesFor(id)), true
}

func (r *Resolver) excluded(path string) bool {
	for _, ex := range r.excludes {
		if ex.glob.Match(path) {
			return true
		}
	}
	return false
}

func (r *Resolver) filter(findings []model.LicenseFinding) []model.LicenseFinding {
	out := make([]model.LicenseFinding, 0, len(findings))
	for _, f := range findings {
		if !r.excluded(f.Location.Path) {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) filterCopyrights(findings []model.CopyrightFinding) []model.CopyrightFinding {
	out := make([]model.CopyrightFinding, 0, len(findings))
	for _, f := range findings {
		if !r.excluded(f.Location.Path) {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) curate(findings []model.LicenseFinding) []model.LicenseFinding {
	if len(r.curations) == 0 {
		return findings
	}
	out := findings[:0:0]
	for _, f := range findings {
		keep := true
		for _, c := range r.curations {
			if !c.glob.Match(f.Location.Path) {
				continue
			}
			if c.DetectedLicense != "" && c.DetectedLicense != f.License {
				continue
			}
			if c.ConcludedLicense == CuratedNone {
				keep = false
			} else {
				f.License = c.ConcludedLicense
			}
			break
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}
