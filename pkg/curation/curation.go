// Package curation applies manually maintained corrections to analyzer
// results.
//
// A curation is a patch keyed by package Identifier: nil fields leave the
// package untouched, set fields override it. Curations stack; when several
// match the same package they are merged in declaration order with later
// non-nil fields overriding earlier ones, then applied as one patch.
package curation

import (
	"maps"
	"slices"
	"strings"

	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/setcover"
)

// Data is the patch payload of a curation. A nil field means "leave as is".
type Data struct {
	// Comment documents why the curation exists. It is carried through to
	// result files but never applied to the package.
	Comment *string `json:"comment,omitempty" toml:"comment"`

	PURL        *string `json:"purl,omitempty" toml:"purl"`
	Description *string `json:"description,omitempty" toml:"description"`
	HomepageURL *string `json:"homepage_url,omitempty" toml:"homepage_url"`

	// ConcludedLicense sets the SPDX expression that overrides declared and
	// detected licenses during resolution.
	ConcludedLicense *string `json:"concluded_license,omitempty" toml:"concluded_license"`

	// DeclaredLicenseMapping maps raw declared license strings to SPDX
	// expressions, correcting metadata the upstream ecosystem got wrong.
	DeclaredLicenseMapping map[string]string `json:"declared_license_mapping,omitempty" toml:"declared_license_mapping"`

	VCS            *model.VCSInfo  `json:"vcs,omitempty" toml:"vcs"`
	SourceArtifact *model.Artifact `json:"source_artifact,omitempty" toml:"source_artifact"`

	IsMetadataOnly *bool `json:"is_metadata_only,omitempty" toml:"is_metadata_only"`
}

// IsEmpty reports whether the patch changes nothing. A comment-only curation
// is not empty; it still documents the package.
func (d Data) IsEmpty() bool {
	return d.Comment == nil && d.PURL == nil && d.Description == nil &&
		d.HomepageURL == nil && d.ConcludedLicense == nil &&
		len(d.DeclaredLicenseMapping) == 0 && d.VCS == nil &&
		d.SourceArtifact == nil && d.IsMetadataOnly == nil
}

// Merge combines two patches. Fields set in other override fields set in d;
// nil fields in other keep d's value. Declared license mappings are merged
// key-wise with other's entries winning.
func (d Data) Merge(other Data) Data {
	if other.Comment != nil {
		d.Comment = other.Comment
	}
	if other.PURL != nil {
		d.PURL = other.PURL
	}
	if other.Description != nil {
		d.Description = other.Description
	}
	if other.HomepageURL != nil {
		d.HomepageURL = other.HomepageURL
	}
	if other.ConcludedLicense != nil {
		d.ConcludedLicense = other.ConcludedLicense
	}
	if len(other.DeclaredLicenseMapping) > 0 {
		merged := make(map[string]string, len(d.DeclaredLicenseMapping)+len(other.DeclaredLicenseMapping))
		maps.Copy(merged, d.DeclaredLicenseMapping)
		maps.Copy(merged, other.DeclaredLicenseMapping)
		d.DeclaredLicenseMapping = merged
	}
	if other.VCS != nil {
		d.VCS = other.VCS
	}
	if other.SourceArtifact != nil {
		d.SourceArtifact = other.SourceArtifact
	}
	if other.IsMetadataOnly != nil {
		d.IsMetadataOnly = other.IsMetadataOnly
	}
	return d
}

// Apply patches pkg with every set field of d and returns the result. The
// input package is not mutated.
func (d Data) Apply(pkg model.Package) model.Package {
	if d.PURL != nil {
		pkg.PURL = *d.PURL
	}
	if d.Description != nil {
		pkg.Description = *d.Description
	}
	if d.HomepageURL != nil {
		pkg.HomepageURL = *d.HomepageURL
	}
	if d.ConcludedLicense != nil {
		pkg.ConcludedLicense = *d.ConcludedLicense
	}
	if len(d.DeclaredLicenseMapping) > 0 {
		pkg.DeclaredLicenseSPDX = mapDeclared(pkg.DeclaredLicenses, d.DeclaredLicenseMapping, pkg.DeclaredLicenseSPDX)
	}
	if d.VCS != nil {
		pkg.VCS = *d.VCS
	}
	if d.SourceArtifact != nil {
		pkg.SourceArtifact = *d.SourceArtifact
	}
	if d.IsMetadataOnly != nil {
		pkg.IsMetadataOnly = *d.IsMetadataOnly
	}
	return pkg
}

// mapDeclared rewrites the raw declared license strings through the mapping
// and conjoins the mapped SPDX expressions. Raw strings without a mapping are
// skipped; when nothing maps, the previous SPDX expression is kept.
func mapDeclared(declared []string, mapping map[string]string, previous string) string {
	var mapped []string
	for _, raw := range declared {
		if spdx, ok := mapping[raw]; ok && spdx != "" {
			if !slices.Contains(mapped, spdx) {
				mapped = append(mapped, spdx)
			}
		}
	}
	if len(mapped) == 0 {
		return previous
	}
	return strings.Join(mapped, " AND ")
}

// PackageCuration binds a patch to the packages it applies to. The ID's
// version coordinate is read as a matcher (exact, "1.2.x" prefix, or an
// interval), so one curation can cover a whole version range.
type PackageCuration struct {
	ID   model.Identifier `json:"id"`
	Data Data             `json:"data"`
}

// Matches reports whether the curation applies to the given package
// Identifier. Type, namespace and name must match exactly; the version is
// matched through [model.Identifier.MatchesVersion].
func (c PackageCuration) Matches(id model.Identifier) bool {
	return c.ID.WithoutVersion() == id.WithoutVersion() && c.ID.MatchesVersion(id.Version)
}

// Apply patches the package if the curation matches it, otherwise returns it
// unchanged.
func (c PackageCuration) Apply(pkg model.Package) model.Package {
	if !c.Matches(pkg.ID) {
		return pkg
	}
	return c.Data.Apply(pkg)
}

// Merge folds all curations matching id into a single patch, in slice order.
// Later curations override earlier ones field by field; fields only one
// curation sets all survive.
func Merge(curations []PackageCuration, id model.Identifier) Data {
	var merged Data
	for _, c := range curations {
		if c.Matches(id) {
			merged = merged.Merge(c.Data)
		}
	}
	return merged
}

// ApplyAll patches every package in pkgs with its merged matching curations
// and returns a new slice; the input is not mutated.
func ApplyAll(curations []PackageCuration, pkgs []model.Package) []model.Package {
	out := make([]model.Package, len(pkgs))
	for i, pkg := range pkgs {
		out[i] = Merge(curations, pkg.ID).Apply(pkg)
	}
	return out
}

// Consolidate reduces a curation corpus to an approximately-minimal subset
// that still curates every package in ids that any curation from the corpus
// curates. Greedy set cover: each round keeps the curation matching the most
// not-yet-covered packages, ties broken by curation ID and then by position
// in the input slice. Curations matching none of the packages are dropped.
//
// The result preserves the input's relative order so that merge semantics of
// the consolidated corpus are unchanged.
func Consolidate(curations []PackageCuration, ids []model.Identifier) []PackageCuration {
	sets := make(map[int]setcover.Set[model.Identifier], len(curations))
	for i, c := range curations {
		covered := make(setcover.Set[model.Identifier])
		for _, id := range ids {
			if c.Matches(id) {
				covered[id] = struct{}{}
			}
		}
		if len(covered) > 0 {
			sets[i] = covered
		}
	}

	selected := setcover.Greedy(sets, func(a, b int) int {
		if c := curations[a].ID.Compare(curations[b].ID); c != 0 {
			return c
		}
		return a - b
	})
	slices.Sort(selected)

	out := make([]PackageCuration, 0, len(selected))
	for _, i := range selected {
		out = append(out, curations[i])
	}
	return out
}
