package advisor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/complykit/complykit/pkg/model"
)

// fakeProvider records query batches and fails for packages named "bad-*".
type fakeProvider struct {
	name string

	mu      sync.Mutex
	batches [][]model.Package
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Query(ctx context.Context, pkgs []model.Package) (map[model.Identifier][]model.Vulnerability, error) {
	p.mu.Lock()
	p.batches = append(p.batches, pkgs)
	p.mu.Unlock()

	out := make(map[model.Identifier][]model.Vulnerability)
	for _, pkg := range pkgs {
		switch {
		case pkg.ID.Name[:3] == "bad":
			return nil, fmt.Errorf("upstream unavailable")
		case pkg.ID.Name[:4] == "vuln":
			out[pkg.ID] = []model.Vulnerability{{ID: "OSV-" + pkg.ID.Name, Summary: "test"}}
		}
	}
	return out, nil
}

func makePackages(prefix string, n int) []model.Package {
	pkgs := make([]model.Package, n)
	for i := range pkgs {
		pkgs[i] = model.Package{ID: model.NewIdentifier("NPM", "", fmt.Sprintf("%s-%d", prefix, i), "1.0.0")}
	}
	return pkgs
}

func TestRunChunksLargeBatches(t *testing.T) {
	p := &fakeProvider{name: "fake"}
	pkgs := makePackages("okay", 300)

	result, err := New([]Provider{p}, nil).Run(context.Background(), pkgs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Issues = %v", result.Issues)
	}

	if len(p.batches) != 3 {
		t.Fatalf("batches = %d, want 3 for 300 packages", len(p.batches))
	}
	total := 0
	for _, b := range p.batches {
		if len(b) > chunkSize {
			t.Errorf("batch size %d exceeds %d", len(b), chunkSize)
		}
		total += len(b)
	}
	if total != 300 {
		t.Errorf("queried %d packages, want 300", total)
	}
}

func TestRunFailedChunkDegrades(t *testing.T) {
	p := &fakeProvider{name: "fake"}

	// First chunk fails, second succeeds with one finding.
	pkgs := makePackages("bad", chunkSize)
	pkgs = append(pkgs, makePackages("vuln", 1)...)

	result, err := New([]Provider{p}, nil).Run(context.Background(), pkgs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Every package of the failed chunk gets its own Issue.
	if len(result.Issues) != chunkSize {
		t.Fatalf("Issues = %d, want %d", len(result.Issues), chunkSize)
	}
	for _, issue := range result.Issues {
		if issue.Severity != model.SeverityError {
			t.Errorf("Severity = %v", issue.Severity)
		}
		if issue.Source != "fake" {
			t.Errorf("Source = %q", issue.Source)
		}
	}

	// The healthy chunk still delivered its result.
	vulnID := model.NewIdentifier("NPM", "", "vuln-0", "1.0.0")
	if vs := result.Vulnerabilities[vulnID]; len(vs) != 1 || vs[0].ID != "OSV-vuln-0" {
		t.Errorf("Vulnerabilities[%v] = %v", vulnID, vs)
	}
}

func TestRunMergesProviders(t *testing.T) {
	a := &fakeProvider{name: "a"}
	b := &fakeProvider{name: "b"}
	pkgs := makePackages("vuln", 2)

	result, err := New([]Provider{a, b}, nil).Run(context.Background(), pkgs)
	if err != nil {
		t.Fatal(err)
	}
	for _, pkg := range pkgs {
		if vs := result.Vulnerabilities[pkg.ID]; len(vs) != 2 {
			t.Errorf("Vulnerabilities[%v] = %v, want one finding per provider", pkg.ID, vs)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{name: "fake"}
	if _, err := New([]Provider{p}, nil).Run(ctx, makePackages("bad", 1)); err == nil {
		t.Error("cancelled run must return an error, not degrade to Issues")
	}
}
