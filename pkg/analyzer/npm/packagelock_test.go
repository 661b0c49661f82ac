package npm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/complykit/complykit/pkg/model"
)

const sampleLock = `{
  "name": "app",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "app",
      "version": "1.0.0",
      "dependencies": {"a": "^1.0.0"},
      "devDependencies": {"b": "^2.0.0"}
    },
    "node_modules/a": {
      "version": "1.2.3",
      "license": "MIT",
      "resolved": "https://registry.npmjs.org/a/-/a-1.2.3.tgz",
      "integrity": "sha512-abc",
      "dependencies": {"shared": "^1.0.0"}
    },
    "node_modules/b": {
      "version": "2.0.0",
      "dev": true,
      "dependencies": {"shared": "^1.0.0"}
    },
    "node_modules/shared": {
      "version": "1.5.0",
      "license": "Apache-2.0"
    }
  }
}`

func writeLock(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package-lock.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyze(t *testing.T) {
	m := &Manager{}
	result, err := m.Analyze(context.Background(), writeLock(t, sampleLock))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Project.ID != model.NewIdentifier(Name, "", "app", "1.0.0") {
		t.Errorf("project ID = %v", result.Project.ID)
	}

	deps := result.Scopes["dependencies"]
	if len(deps) != 1 || deps[0].ID.Name != "a" || deps[0].ID.Version != "1.2.3" {
		t.Fatalf("dependencies scope = %v", deps)
	}
	if len(deps[0].Dependencies) != 1 || deps[0].Dependencies[0].ID.Name != "shared" {
		t.Errorf("tree under a = %v, want shared as child", deps[0].Dependencies)
	}

	dev := result.Scopes["devDependencies"]
	if len(dev) != 1 || dev[0].ID.Name != "b" {
		t.Fatalf("devDependencies scope = %v", dev)
	}
	// shared appears under both a and b with the same resolved version.
	if dev[0].Dependencies[0].ID != deps[0].Dependencies[0].ID {
		t.Error("shared must resolve to the same Identifier in both scopes")
	}

	if len(result.Packages) != 3 {
		t.Fatalf("Packages = %v, want a, b and shared", result.Packages)
	}
	for _, pkg := range result.Packages {
		if pkg.ID.Name == "a" {
			if pkg.DeclaredLicenseSPDX != "MIT" {
				t.Errorf("license of a = %q", pkg.DeclaredLicenseSPDX)
			}
			if pkg.SourceArtifact.URL == "" || pkg.SourceArtifact.Digest != "sha512-abc" {
				t.Errorf("source artifact of a = %v", pkg.SourceArtifact)
			}
		}
	}
}

func TestAnalyzeNestedResolution(t *testing.T) {
	// Two versions of the same package: the nested one shadows the top-level
	// one for its parent.
	lock := `{
	  "name": "app", "lockfileVersion": 3,
	  "packages": {
	    "": {"name": "app", "version": "1.0.0", "dependencies": {"parent": "^1.0.0", "dup": "^2.0.0"}},
	    "node_modules/parent": {"version": "1.0.0", "dependencies": {"dup": "^1.0.0"}},
	    "node_modules/parent/node_modules/dup": {"version": "1.0.0"},
	    "node_modules/dup": {"version": "2.0.0"}
	  }
	}`
	m := &Manager{}
	result, err := m.Analyze(context.Background(), writeLock(t, lock))
	if err != nil {
		t.Fatal(err)
	}

	var parent model.PackageReference
	for _, ref := range result.Scopes["dependencies"] {
		if ref.ID.Name == "parent" {
			parent = ref
		}
	}
	if len(parent.Dependencies) != 1 || parent.Dependencies[0].ID.Version != "1.0.0" {
		t.Errorf("parent's dup = %v, want nested version 1.0.0", parent.Dependencies)
	}
}

func TestAnalyzeScopedNames(t *testing.T) {
	lock := `{
	  "name": "app", "lockfileVersion": 2,
	  "packages": {
	    "": {"name": "app", "version": "1.0.0", "dependencies": {"@babel/core": "^7.0.0"}},
	    "node_modules/@babel/core": {"version": "7.23.0"}
	  }
	}`
	m := &Manager{}
	result, err := m.Analyze(context.Background(), writeLock(t, lock))
	if err != nil {
		t.Fatal(err)
	}
	want := model.NewIdentifier(Name, "@babel", "core", "7.23.0")
	if got := result.Scopes["dependencies"][0].ID; got != want {
		t.Errorf("ID = %v, want %v", got, want)
	}
}

func TestAnalyzeCycleTerminates(t *testing.T) {
	lock := `{
	  "name": "app", "lockfileVersion": 3,
	  "packages": {
	    "": {"name": "app", "version": "1.0.0", "dependencies": {"x": "^1.0.0"}},
	    "node_modules/x": {"version": "1.0.0", "dependencies": {"y": "^1.0.0"}},
	    "node_modules/y": {"version": "1.0.0", "dependencies": {"x": "^1.0.0"}}
	  }
	}`
	m := &Manager{}
	result, err := m.Analyze(context.Background(), writeLock(t, lock))
	if err != nil {
		t.Fatal(err)
	}
	refs := result.Scopes["dependencies"]
	if len(refs) != 1 || refs[0].ID.Name != "x" {
		t.Fatalf("refs = %v", refs)
	}
	// x -> y exists; the cycle edge y -> x is cut during construction.
	y := refs[0].Dependencies
	if len(y) != 1 || y[0].ID.Name != "y" || len(y[0].Dependencies) != 0 {
		t.Errorf("tree = %v, cycle must be cut at y", y)
	}
}

func TestAnalyzeMissingDependencyIssue(t *testing.T) {
	lock := `{
	  "name": "app", "lockfileVersion": 3,
	  "packages": {
	    "": {"name": "app", "version": "1.0.0", "dependencies": {"ghost": "^1.0.0"}}
	  }
	}`
	m := &Manager{}
	result, err := m.Analyze(context.Background(), writeLock(t, lock))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) != 1 || result.Issues[0].Severity != model.SeverityWarning {
		t.Errorf("Issues = %v, want one warning for the missing entry", result.Issues)
	}
}

func TestAnalyzeRejectsV1(t *testing.T) {
	m := &Manager{}
	_, err := m.Analyze(context.Background(), writeLock(t, `{"name": "app", "lockfileVersion": 1, "dependencies": {}}`))
	if err == nil {
		t.Error("lockfile v1 must be rejected")
	}
}
