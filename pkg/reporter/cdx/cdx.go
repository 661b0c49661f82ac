// Package cdx renders results as a CycloneDX 1.5 JSON BOM, including the
// dependency graph and advisory findings.
package cdx

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/complykit/complykit/pkg/buildinfo"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/reporter"
)

// Name is the format name.
const Name = "cyclonedx"

func init() {
	reporter.Register(Name, func() reporter.Reporter { return &Reporter{now: time.Now} })
}

// Reporter generates CycloneDX BOMs.
type Reporter struct {
	now func() time.Time
}

func (r *Reporter) Name() string     { return Name }
func (r *Reporter) FileName() string { return "bom.cdx.json" }

// Generate writes the BOM. Components carry the effective license as an SPDX
// expression; the graph's edges become the dependency section; advisory
// results become vulnerability entries referencing the affected components.
func (r *Reporter) Generate(ctx context.Context, in *reporter.Input, w io.Writer) error {
	byID := make(map[model.Identifier]model.Package, len(in.Packages))
	for _, pkg := range in.Packages {
		byID[pkg.ID] = pkg
	}

	bom := cyclonedx.NewBOM()
	bom.Metadata = &cyclonedx.Metadata{
		Timestamp: r.now().UTC().Format("2006-01-02T15:04:05Z"),
		Component: &cyclonedx.Component{
			Type:   cyclonedx.ComponentTypeApplication,
			Name:   in.RunName,
			BOMRef: in.RunName,
		},
		Tools: &cyclonedx.ToolsChoice{
			Components: &[]cyclonedx.Component{{
				Type:    cyclonedx.ComponentTypeApplication,
				Name:    "complykit",
				Version: buildinfo.Version,
			}},
		},
	}

	refs := make(map[model.Identifier]string, in.Graph.NodeCount())
	components := make([]cyclonedx.Component, 0, in.Graph.NodeCount())
	for i := range in.Graph.NodeCount() {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := in.Graph.Identifier(i)
		pkg := byID[id]
		if pkg.ID == (model.Identifier{}) {
			pkg = model.Package{ID: id}
		}
		ref := bomRef(pkg)
		refs[id] = ref

		comp := cyclonedx.Component{
			BOMRef:      ref,
			Type:        cyclonedx.ComponentTypeLibrary,
			Name:        id.Name,
			Version:     id.Version,
			Description: pkg.Description,
			PackageURL:  pkg.PURL,
		}
		if id.Namespace != "" {
			comp.Group = id.Namespace
		}
		if expr := in.EffectiveLicense(pkg); expr != "" {
			comp.Licenses = &cyclonedx.Licenses{{Expression: expr}}
		}
		components = append(components, comp)
	}
	bom.Components = &components

	deps := make([]cyclonedx.Dependency, 0, in.Graph.NodeCount())
	for i := range in.Graph.NodeCount() {
		id := in.Graph.Identifier(i)
		var direct []string
		for _, dep := range in.Graph.Dependencies(i) {
			direct = append(direct, refs[in.Graph.Identifier(dep)])
		}
		if len(direct) > 0 {
			deps = append(deps, cyclonedx.Dependency{Ref: refs[id], Dependencies: &direct})
		}
	}
	if len(deps) > 0 {
		bom.Dependencies = &deps
	}

	if vulns := toVulnerabilities(in, refs); len(vulns) > 0 {
		bom.Vulnerabilities = &vulns
	}

	encoder := cyclonedx.NewBOMEncoder(w, cyclonedx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	return encoder.Encode(bom)
}

// toVulnerabilities flattens the advisor result, merging packages affected
// by the same vulnerability into one entry.
func toVulnerabilities(in *reporter.Input, refs map[model.Identifier]string) []cyclonedx.Vulnerability {
	type entry struct {
		vuln    model.Vulnerability
		affects []cyclonedx.Affects
	}
	entries := make(map[string]*entry)
	var order []string

	for i := range in.Graph.NodeCount() {
		id := in.Graph.Identifier(i)
		for _, vuln := range in.Vulnerabilities[id] {
			e, ok := entries[vuln.ID]
			if !ok {
				e = &entry{vuln: vuln}
				entries[vuln.ID] = e
				order = append(order, vuln.ID)
			}
			e.affects = append(e.affects, cyclonedx.Affects{Ref: refs[id]})
		}
	}

	out := make([]cyclonedx.Vulnerability, 0, len(order))
	for _, vulnID := range order {
		e := entries[vulnID]
		cv := cyclonedx.Vulnerability{
			ID:          e.vuln.ID,
			Description: e.vuln.Summary,
			Affects:     &e.affects,
		}
		if e.vuln.Severity != "" {
			score := e.vuln.Score
			cv.Ratings = &[]cyclonedx.VulnerabilityRating{{
				Score:    &score,
				Severity: toSeverity(e.vuln.Rating),
				Method:   toMethod(e.vuln.Severity),
				Vector:   e.vuln.Severity,
			}}
		}
		if len(e.vuln.References) > 0 {
			advisories := make([]cyclonedx.Advisory, 0, len(e.vuln.References))
			for _, ref := range e.vuln.References {
				advisories = append(advisories, cyclonedx.Advisory{URL: ref.URL})
			}
			cv.Advisories = &advisories
		}
		out = append(out, cv)
	}
	return out
}

func toSeverity(rating string) cyclonedx.Severity {
	switch rating {
	case "CRITICAL":
		return cyclonedx.SeverityCritical
	case "HIGH":
		return cyclonedx.SeverityHigh
	case "MEDIUM":
		return cyclonedx.SeverityMedium
	case "LOW":
		return cyclonedx.SeverityLow
	case "NONE":
		return cyclonedx.SeverityNone
	default:
		return cyclonedx.SeverityUnknown
	}
}

func toMethod(vector string) cyclonedx.ScoringMethod {
	switch {
	case strings.HasPrefix(vector, "CVSS:4"):
		return cyclonedx.ScoringMethodCVSSv4
	case strings.HasPrefix(vector, "CVSS:3.1"):
		return cyclonedx.ScoringMethodCVSSv31
	case strings.HasPrefix(vector, "CVSS:3"):
		return cyclonedx.ScoringMethodCVSSv3
	default:
		return cyclonedx.ScoringMethodCVSSv2
	}
}

// bomRef prefers the purl as the component reference, the standard key for
// cross-tool correlation. Coordinates are the fallback for local packages.
func bomRef(pkg model.Package) string {
	if pkg.PURL != "" {
		return pkg.PURL
	}
	return pkg.ID.String()
}

var _ reporter.Reporter = (*Reporter)(nil)
