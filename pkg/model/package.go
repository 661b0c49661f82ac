package model

// Linkage describes how a dependency is bound to its dependent.
type Linkage string

const (
	// LinkageDynamic is a regular dependency on a released package, resolved
	// at run or load time. This is the default for most ecosystems.
	LinkageDynamic Linkage = "dynamic"

	// LinkageStatic is a dependency compiled or bundled into the dependent.
	LinkageStatic Linkage = "static"

	// LinkageProjectDynamic is a dynamic dependency on another project within
	// the same analyzed source tree (e.g., a sibling module in a monorepo).
	LinkageProjectDynamic Linkage = "project-dynamic"

	// LinkageProjectStatic is a static dependency on another project within
	// the same analyzed source tree.
	LinkageProjectStatic Linkage = "project-static"
)

// VCSInfo describes a version control location.
type VCSInfo struct {
	Type     string `json:"type,omitempty" toml:"type"`
	URL      string `json:"url,omitempty" toml:"url"`
	Revision string `json:"revision,omitempty" toml:"revision"`
	Path     string `json:"path,omitempty" toml:"path"`
}

// IsEmpty reports whether no field is set.
func (v VCSInfo) IsEmpty() bool { return v == VCSInfo{} }

// Merge returns a copy of v with set fields of other overriding. Empty
// fields of other leave the receiver's value in place.
func (v VCSInfo) Merge(other VCSInfo) VCSInfo {
	if other.Type != "" {
		v.Type = other.Type
	}
	if other.URL != "" {
		v.URL = other.URL
	}
	if other.Revision != "" {
		v.Revision = other.Revision
	}
	if other.Path != "" {
		v.Path = other.Path
	}
	return v
}

// Artifact describes a downloadable source or binary artifact.
type Artifact struct {
	URL    string `json:"url,omitempty" toml:"url"`
	Digest string `json:"digest,omitempty" toml:"digest"` // e.g., "sha256:..."
}

// IsEmpty reports whether no field is set.
func (a Artifact) IsEmpty() bool { return a == Artifact{} }

// Package holds the metadata of a single package as collected by the
// analyzer and patched by curations. The zero value with a set ID is a valid
// metadata-less package.
type Package struct {
	ID Identifier `json:"id"`

	PURL        string `json:"purl,omitempty"`
	Description string `json:"description,omitempty"`
	HomepageURL string `json:"homepage_url,omitempty"`

	// DeclaredLicenses holds the raw license strings as found in the package
	// metadata (free-form, not necessarily SPDX).
	DeclaredLicenses []string `json:"declared_licenses,omitempty"`

	// DeclaredLicenseSPDX is the SPDX expression mapped from the raw declared
	// licenses, empty when no mapping was possible.
	DeclaredLicenseSPDX string `json:"declared_license_spdx,omitempty"`

	// ConcludedLicense is the SPDX expression concluded by a curation.
	// It overrides declared and detected licenses when resolving.
	ConcludedLicense string `json:"concluded_license,omitempty"`

	VCS            VCSInfo  `json:"vcs,omitempty"`
	SourceArtifact Artifact `json:"source_artifact,omitempty"`

	// IsMetadataOnly marks packages that exist only as metadata (e.g., BOM
	// entries) with no downloadable source to scan.
	IsMetadataOnly bool `json:"is_metadata_only,omitempty"`
}

// Merge returns a copy of p with non-empty fields of other overriding. Used
// by the graph builder when two plugins report the same Identifier with
// different metadata: the later report patches the earlier one, the same
// policy curations apply to package data.
func (p Package) Merge(other Package) Package {
	if other.PURL != "" {
		p.PURL = other.PURL
	}
	if other.Description != "" {
		p.Description = other.Description
	}
	if other.HomepageURL != "" {
		p.HomepageURL = other.HomepageURL
	}
	if len(other.DeclaredLicenses) > 0 {
		p.DeclaredLicenses = other.DeclaredLicenses
	}
	if other.DeclaredLicenseSPDX != "" {
		p.DeclaredLicenseSPDX = other.DeclaredLicenseSPDX
	}
	if other.ConcludedLicense != "" {
		p.ConcludedLicense = other.ConcludedLicense
	}
	p.VCS = p.VCS.Merge(other.VCS)
	if !other.SourceArtifact.IsEmpty() {
		p.SourceArtifact = other.SourceArtifact
	}
	return p
}

// PackageReference is one node of the dependency tree reported by a
// package-manager plugin for a single scope. The graph builder deduplicates
// references with equal Identifiers into shared graph nodes.
type PackageReference struct {
	ID           Identifier         `json:"id"`
	Linkage      Linkage            `json:"linkage,omitempty"`
	Dependencies []PackageReference `json:"dependencies,omitempty"`
	Issues       []Issue            `json:"issues,omitempty"`
}

// Project is a software project found in the analyzed source tree, typically
// one definition file (go.mod, package-lock.json) with its scopes.
type Project struct {
	ID                 Identifier `json:"id"`
	DefinitionFilePath string     `json:"definition_file_path"`
	DeclaredLicenses   []string   `json:"declared_licenses,omitempty"`
	VCS                VCSInfo    `json:"vcs,omitempty"`

	// ScopeNames lists the dependency scopes of this project. The scope
	// contents live in the shared dependency graph, keyed by
	// [ScopeQualifier].
	ScopeNames []string `json:"scope_names,omitempty"`
}

// ToPackage returns the package representation of the project itself, used
// when projects appear as dependencies of other projects.
func (p Project) ToPackage() Package {
	return Package{
		ID:               p.ID,
		DeclaredLicenses: p.DeclaredLicenses,
		VCS:              p.VCS,
	}
}

// ScopeQualifier returns the globally unique name of a scope within one
// project, used as the scope key in the shared dependency graph.
func ScopeQualifier(projectID Identifier, scopeName string) string {
	return projectID.String() + ":" + scopeName
}
