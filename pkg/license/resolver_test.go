package license

import (
	"testing"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

func testPackage(concluded, declared string) model.Package {
	return model.Package{
		ID:                  model.NewIdentifier("NPM", "", "pkg", "1.0.0"),
		ConcludedLicense:    concluded,
		DeclaredLicenseSPDX: declared,
	}
}

func finding(license, path string) model.LicenseFinding {
	return model.LicenseFinding{
		License:  license,
		Location: model.TextLocation{Path: path, StartLine: 1, EndLine: 1},
		Score:    100,
	}
}

func TestEffectiveDefaultView(t *testing.T) {
	tests := []struct {
		name      string
		concluded string
		declared  string
		detected  []model.LicenseFinding
		want      string
	}{
		{
			name:      "concluded overrides everything",
			concluded: "MIT",
			declared:  "Apache-2.0",
			detected:  []model.LicenseFinding{finding("GPL-2.0-only", "a.go")},
			want:      "MIT",
		},
		{
			name:     "declared and detected conjoined",
			declared: "Apache-2.0",
			detected: []model.LicenseFinding{finding("MIT", "a.go")},
			want:     "Apache-2.0 AND MIT",
		},
		{
			name:     "detected only",
			detected: []model.LicenseFinding{finding("MIT", "a.go"), finding("MIT", "b.go")},
			want:     "MIT",
		},
		{
			name: "nothing known yields empty, not an error",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(ResolverConfig{})
			if err != nil {
				t.Fatal(err)
			}
			resolved := r.Resolve(testPackage(tt.concluded, tt.declared), tt.detected, nil)
			if got := resolved.Effective(ViewConcludedOrDeclaredAndDetected, nil); got != tt.want {
				t.Errorf("Effective = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEffectiveViews(t *testing.T) {
	r, err := NewResolver(ResolverConfig{})
	if err != nil {
		t.Fatal(err)
	}
	resolved := r.Resolve(testPackage("MIT", "Apache-2.0"),
		[]model.LicenseFinding{finding("BSD-3-Clause", "a.go")}, nil)

	tests := []struct {
		view View
		want string
	}{
		{ViewOnlyConcluded, "MIT"},
		{ViewOnlyDeclared, "Apache-2.0"},
		{ViewOnlyDetected, "BSD-3-Clause"},
		{ViewAll, "MIT AND Apache-2.0 AND BSD-3-Clause"},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			if got := resolved.Effective(tt.view, nil); got != tt.want {
				t.Errorf("Effective(%s) = %q, want %q", tt.view, got, tt.want)
			}
		})
	}
}

func TestResolverPathExcludes(t *testing.T) {
	r, err := NewResolver(ResolverConfig{
		PathExcludes: []PathExclude{{Pattern: "test/**", Reason: "TEST_OF"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	resolved := r.Resolve(testPackage("", ""), []model.LicenseFinding{
		finding("MIT", "src/main.go"),
		finding("GPL-2.0-only", "test/fixtures/gpl.txt"),
	}, []model.CopyrightFinding{
		{Statement: "Copyright A", Location: model.TextLocation{Path: "src/main.go"}},
		{Statement: "Copyright B", Location: model.TextLocation{Path: "test/fixtures/gpl.txt"}},
	})

	if len(resolved.Detected) != 1 || resolved.Detected[0].License != "MIT" {
		t.Errorf("Detected = %v, excluded finding must be gone", resolved.Detected)
	}
	if len(resolved.Copyrights) != 1 || resolved.Copyrights[0].Statement != "Copyright A" {
		t.Errorf("Copyrights = %v", resolved.Copyrights)
	}
}

func TestResolverFindingCurations(t *testing.T) {
	r, err := NewResolver(ResolverConfig{
		FindingCurations: []FindingCuration{
			{Path: "src/vendored/**", DetectedLicense: "GPL-2.0-only", ConcludedLicense: "MIT", Reason: "INCORRECT"},
			{Path: "**/fixture.txt", ConcludedLicense: CuratedNone, Reason: "DATA_OF"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	resolved := r.Resolve(testPackage("", ""), []model.LicenseFinding{
		finding("GPL-2.0-only", "src/vendored/lib.c"),
		finding("Apache-2.0", "src/vendored/other.c"),
		finding("MIT", "docs/fixture.txt"),
	}, nil)

	if got := resolved.DetectedExpression(); got != "Apache-2.0 AND MIT" {
		t.Errorf("DetectedExpression = %q, want curated result", got)
	}
	for _, f := range resolved.Detected {
		if f.Location.Path == "docs/fixture.txt" {
			t.Error("finding curated to NONE must be removed")
		}
	}
}

func TestResolverRejectsBadGlob(t *testing.T) {
	_, err := NewResolver(ResolverConfig{
		PathExcludes: []PathExclude{{Pattern: "[invalid"}},
	})
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("error = %v, want CONFIG_ERROR", err)
	}
}

func TestResolverMemoizes(t *testing.T) {
	r, err := NewResolver(ResolverConfig{})
	if err != nil {
		t.Fatal(err)
	}
	pkg := testPackage("", "")

	first := r.Resolve(pkg, []model.LicenseFinding{finding("MIT", "a.go")}, nil)
	second := r.Resolve(pkg, []model.LicenseFinding{finding("GPL-2.0-only", "b.go")}, nil)

	if first != second {
		t.Error("second Resolve must return the memoized value")
	}
	if _, ok := r.Resolved(pkg.ID); !ok {
		t.Error("Resolved must find the cached entry")
	}
	if _, ok := r.Resolved(model.NewIdentifier("NPM", "", "other", "1.0")); ok {
		t.Error("Resolved must miss for unresolved packages")
	}
}

func TestResolverChoicePrecedence(t *testing.T) {
	pkg := testPackage("MIT OR Apache-2.0", "")
	r, err := NewResolver(ResolverConfig{
		PackageChoices: map[model.Identifier][]Choice{
			pkg.ID: {{Choice: "MIT"}},
		},
		RepositoryChoices: []Choice{{Choice: "Apache-2.0"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.Resolve(pkg, nil, nil)

	// The package choice is consulted before the repository choice.
	got, ok := r.EffectiveLicense(pkg.ID, ViewConcludedOrDeclaredAndDetected)
	if !ok || got != "MIT" {
		t.Errorf("EffectiveLicense = %q, %v, want MIT via package choice", got, ok)
	}

	// A package with only the repository choice falls through to it.
	other := model.Package{
		ID:               model.NewIdentifier("NPM", "", "other", "1.0"),
		ConcludedLicense: "MIT OR Apache-2.0",
	}
	r.Resolve(other, nil, nil)
	got, ok = r.EffectiveLicense(other.ID, ViewConcludedOrDeclaredAndDetected)
	if !ok || got != "Apache-2.0" {
		t.Errorf("EffectiveLicense = %q, %v, want Apache-2.0 via repository choice", got, ok)
	}
}

func TestEffectiveLicenseUnresolved(t *testing.T) {
	r, err := NewResolver(ResolverConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.EffectiveLicense(model.NewIdentifier("NPM", "", "x", "1.0"), ViewAll); ok {
		t.Error("EffectiveLicense must report unresolved packages")
	}
}
