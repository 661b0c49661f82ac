// Package spdxdoc renders results as an SPDX 2.3 JSON document.
package spdxdoc

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
	spdxjson "github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/complykit/complykit/pkg/buildinfo"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/reporter"
)

// Name is the format name.
const Name = "spdx"

const (
	noAssertion = "NOASSERTION"
	refPrefix   = "SPDXRef-Package-"
)

// SPDX identifiers may only contain letters, digits, "." and "-".
var invalidIDCharRe = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func init() {
	reporter.Register(Name, func() reporter.Reporter { return &Reporter{now: time.Now} })
}

// Reporter generates SPDX 2.3 JSON documents.
type Reporter struct {
	now func() time.Time
}

func (r *Reporter) Name() string     { return Name }
func (r *Reporter) FileName() string { return "bom.spdx.json" }

// Generate writes the document. Every graph node becomes a package;
// dependency edges become DEPENDS_ON relationships; effective licenses land
// in PackageLicenseConcluded with NOASSERTION for unknowns.
func (r *Reporter) Generate(ctx context.Context, in *reporter.Input, w io.Writer) error {
	byID := make(map[model.Identifier]model.Package, len(in.Packages))
	for _, pkg := range in.Packages {
		byID[pkg.ID] = pkg
	}

	var packages []*v2_3.Package
	var relationships []*v2_3.Relationship
	refs := make(map[model.Identifier]string)

	for i := range in.Graph.NodeCount() {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := in.Graph.Identifier(i)
		pkg := byID[id]
		if pkg.ID == (model.Identifier{}) {
			pkg = model.Package{ID: id}
		}
		ref := spdxRef(id)
		refs[id] = ref
		packages = append(packages, toSPDXPackage(pkg, ref, in))

		relationships = append(relationships, &v2_3.Relationship{
			RefA:         common.MakeDocElementID("", "DOCUMENT"),
			RefB:         common.MakeDocElementID("", trimRef(ref)),
			Relationship: "DESCRIBES",
		})
	}

	for _, edge := range in.Graph.Edges {
		from := refs[in.Graph.Identifier(edge.From)]
		to := refs[in.Graph.Identifier(edge.To)]
		relationships = append(relationships, &v2_3.Relationship{
			RefA:         common.MakeDocElementID("", trimRef(from)),
			RefB:         common.MakeDocElementID("", trimRef(to)),
			Relationship: "DEPENDS_ON",
		})
	}

	doc := &v2_3.Document{
		SPDXVersion:       "SPDX-2.3",
		DataLicense:       "CC0-1.0",
		SPDXIdentifier:    "DOCUMENT",
		DocumentName:      in.RunName,
		DocumentNamespace: "https://spdx.org/spdxdocs/" + invalidIDCharRe.ReplaceAllString(in.RunName, "-") + "-" + uuid.New().String(),
		CreationInfo: &v2_3.CreationInfo{
			Creators: []common.Creator{{CreatorType: "Tool", Creator: "complykit-" + buildinfo.Version}},
			Created:  r.now().UTC().Format("2006-01-02T15:04:05Z"),
		},
		Packages:      packages,
		Relationships: relationships,
	}
	return spdxjson.Write(doc, w, spdxjson.Indent("  "))
}

func toSPDXPackage(pkg model.Package, ref string, in *reporter.Input) *v2_3.Package {
	concluded := in.EffectiveLicense(pkg)
	if concluded == "" {
		concluded = noAssertion
	}
	declared := pkg.DeclaredLicenseSPDX
	if declared == "" {
		declared = noAssertion
	}
	download := noAssertion
	if pkg.SourceArtifact.URL != "" {
		download = pkg.SourceArtifact.URL
	}

	out := &v2_3.Package{
		PackageName:             pkg.ID.Name,
		PackageSPDXIdentifier:   common.ElementID(trimRef(ref)),
		PackageVersion:          pkg.ID.Version,
		PackageDownloadLocation: download,
		PackageSupplier: &common.Supplier{
			Supplier:     noAssertion,
			SupplierType: noAssertion,
		},
		PackageLicenseConcluded:   concluded,
		PackageLicenseDeclared:    declared,
		PackageCopyrightText:      copyrightText(pkg.ID, in),
		PackageDescription:        pkg.Description,
		IsFilesAnalyzedTagPresent: false,
	}
	if purl := pkg.PURL; purl != "" {
		out.PackageExternalReferences = []*v2_3.PackageExternalReference{{
			Category: "PACKAGE-MANAGER",
			RefType:  "purl",
			Locator:  purl,
		}}
	}
	if pkg.HomepageURL != "" {
		out.PackageHomePage = pkg.HomepageURL
	}
	return out
}

func copyrightText(id model.Identifier, in *reporter.Input) string {
	if in.Licenses == nil {
		return noAssertion
	}
	resolved, ok := in.Licenses.Resolved(id)
	if !ok || len(resolved.Copyrights) == 0 {
		return noAssertion
	}
	text := ""
	for i, c := range resolved.Copyrights {
		if i > 0 {
			text += "\n"
		}
		text += c.Statement
	}
	return text
}

// spdxRef derives a stable reference ID from the package coordinates.
// Identifiers are unique per graph, so no uuid suffix is needed and the
// document stays reproducible.
func spdxRef(id model.Identifier) string {
	return refPrefix + invalidIDCharRe.ReplaceAllString(fmt.Sprintf("%s-%s-%s-%s",
		id.Type, id.Namespace, id.Name, id.Version), "-")
}

// trimRef strips the "SPDXRef-" prefix the tools-golang types add back on
// serialization.
func trimRef(ref string) string {
	return ref[len("SPDXRef-"):]
}

var _ reporter.Reporter = (*Reporter)(nil)
