package cdx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/complykit/complykit/pkg/graph"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/reporter"
)

func testInput(t *testing.T) *reporter.Input {
	t.Helper()

	b := graph.NewBuilder()
	project := model.NewIdentifier("NPM", "", "app", "1.0.0")
	express := model.NewIdentifier("NPM", "", "express", "4.18.0")
	lodash := model.NewIdentifier("NPM", "", "lodash", "4.17.21")
	_ = b.AddDependencies(project, "dependencies", []model.PackageReference{
		{ID: express, Dependencies: []model.PackageReference{{ID: lodash}}},
	})
	_ = b.AddPackage(model.Package{
		ID:                  express,
		PURL:                "pkg:npm/express@4.18.0",
		DeclaredLicenseSPDX: "MIT",
	})
	g, pkgs, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	return &reporter.Input{
		RunName:  "acme/app",
		Graph:    g,
		Packages: pkgs,
		Vulnerabilities: map[model.Identifier][]model.Vulnerability{
			lodash: {{
				ID:       "GHSA-test-1234",
				Summary:  "Prototype pollution",
				Severity: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
				Score:    9.8,
				Rating:   "CRITICAL",
				References: []model.VulnerabilityReference{
					{URL: "https://example.com/advisory", Type: "ADVISORY"},
				},
			}},
		},
	}
}

func generate(t *testing.T, in *reporter.Input) map[string]any {
	t.Helper()

	r := &Reporter{now: func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }}
	var buf bytes.Buffer
	if err := r.Generate(context.Background(), in, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var bom map[string]any
	if err := json.Unmarshal(buf.Bytes(), &bom); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	return bom
}

func TestGenerateBOM(t *testing.T) {
	bom := generate(t, testInput(t))

	if bom["bomFormat"] != "CycloneDX" {
		t.Errorf("bomFormat = %v", bom["bomFormat"])
	}

	components, _ := bom["components"].([]any)
	if len(components) != 2 {
		t.Fatalf("components = %d", len(components))
	}

	byName := map[string]map[string]any{}
	for _, c := range components {
		comp := c.(map[string]any)
		byName[comp["name"].(string)] = comp
	}

	express := byName["express"]
	if express["purl"] != "pkg:npm/express@4.18.0" {
		t.Errorf("purl = %v", express["purl"])
	}
	if express["bom-ref"] != "pkg:npm/express@4.18.0" {
		t.Errorf("bom-ref = %v, purl is the component reference", express["bom-ref"])
	}
	licenses, _ := express["licenses"].([]any)
	if len(licenses) != 1 {
		t.Fatalf("licenses = %v", express["licenses"])
	}
	if expr := licenses[0].(map[string]any)["expression"]; expr != "MIT" {
		t.Errorf("expression = %v", expr)
	}

	// Local package without a purl falls back to coordinates.
	lodash := byName["lodash"]
	if lodash["bom-ref"] != "NPM::lodash:4.17.21" {
		t.Errorf("bom-ref = %v", lodash["bom-ref"])
	}
}

func TestGenerateDependencies(t *testing.T) {
	bom := generate(t, testInput(t))

	deps, _ := bom["dependencies"].([]any)
	if len(deps) != 1 {
		t.Fatalf("dependencies = %v", deps)
	}
	entry := deps[0].(map[string]any)
	if entry["ref"] != "pkg:npm/express@4.18.0" {
		t.Errorf("ref = %v", entry["ref"])
	}
	dependsOn, _ := entry["dependsOn"].([]any)
	if len(dependsOn) != 1 || dependsOn[0] != "NPM::lodash:4.17.21" {
		t.Errorf("dependsOn = %v", dependsOn)
	}
}

func TestGenerateVulnerabilities(t *testing.T) {
	bom := generate(t, testInput(t))

	vulns, _ := bom["vulnerabilities"].([]any)
	if len(vulns) != 1 {
		t.Fatalf("vulnerabilities = %v", vulns)
	}
	v := vulns[0].(map[string]any)
	if v["id"] != "GHSA-test-1234" {
		t.Errorf("id = %v", v["id"])
	}

	ratings, _ := v["ratings"].([]any)
	if len(ratings) != 1 {
		t.Fatalf("ratings = %v", v["ratings"])
	}
	rating := ratings[0].(map[string]any)
	if rating["severity"] != "critical" || rating["score"] != 9.8 {
		t.Errorf("rating = %v", rating)
	}
	if rating["method"] != "CVSSv31" {
		t.Errorf("method = %v", rating["method"])
	}

	affects, _ := v["affects"].([]any)
	if len(affects) != 1 || affects[0].(map[string]any)["ref"] != "NPM::lodash:4.17.21" {
		t.Errorf("affects = %v", affects)
	}
}

func TestSeverityMapping(t *testing.T) {
	tests := []struct {
		rating string
		want   string
	}{
		{"CRITICAL", "critical"},
		{"HIGH", "high"},
		{"MEDIUM", "medium"},
		{"LOW", "low"},
		{"NONE", "none"},
		{"bogus", "unknown"},
	}
	for _, tt := range tests {
		if got := string(toSeverity(tt.rating)); got != tt.want {
			t.Errorf("toSeverity(%q) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}
