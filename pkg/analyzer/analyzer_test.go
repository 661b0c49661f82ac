package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/complykit/complykit/pkg/config"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// fakeManager analyzes "fake.lock" files whose content is the project name,
// or fails when the content is "fail".
type fakeManager struct{}

func (fakeManager) Name() string                  { return "Fake" }
func (fakeManager) Supports(filename string) bool { return filename == "fake.lock" }

func (fakeManager) Analyze(ctx context.Context, path string) (*ProjectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(string(data))
	if name == "fail" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "broken definition file")
	}

	shared := model.PackageReference{ID: model.NewIdentifier("Fake", "", "shared", "1.0.0")}
	return &ProjectResult{
		Project: model.Project{
			ID:         model.NewIdentifier("Fake", "", name, "1.0.0"),
			ScopeNames: []string{"main"},
		},
		Packages: []model.Package{{ID: shared.ID, Description: "shared dep"}},
		Scopes:   map[string][]model.PackageReference{"main": {shared}},
	}, nil
}

func init() {
	Register("Fake", func() PackageManager { return fakeManager{} })
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunMergesProjectsIntoOneGraph(t *testing.T) {
	root := writeTree(t, map[string]string{
		"fake.lock":     "projecta",
		"sub/fake.lock": "projectb",
	})

	a, err := New(Options{Managers: []string{"Fake"}})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Projects) != 2 {
		t.Fatalf("Projects = %v", result.Projects)
	}
	// Sorted by definition file path.
	if result.Projects[0].DefinitionFilePath != "fake.lock" ||
		result.Projects[1].DefinitionFilePath != "sub/fake.lock" {
		t.Errorf("project order = %v, %v",
			result.Projects[0].DefinitionFilePath, result.Projects[1].DefinitionFilePath)
	}

	// Both projects depend on the same package: one node.
	if result.Graph.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1 shared node", result.Graph.NodeCount())
	}
	if len(result.Packages) != 1 || result.Packages[0].Description != "shared dep" {
		t.Errorf("Packages = %v", result.Packages)
	}
}

func TestRunDegradesOnPluginFailure(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad/fake.lock":  "fail",
		"good/fake.lock": "project",
	})

	a, err := New(Options{Managers: []string{"Fake"}})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Run must not abort on a plugin failure: %v", err)
	}

	if len(result.Projects) != 1 {
		t.Errorf("Projects = %v, the good project must survive", result.Projects)
	}
	if len(result.Issues) != 1 || result.Issues[0].Severity != model.SeverityError {
		t.Errorf("Issues = %v, want one error-severity issue", result.Issues)
	}
}

func TestRunSkipsVendoredDirectories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"fake.lock":              "project",
		"node_modules/fake.lock": "vendored",
		"vendor/fake.lock":       "vendored",
	})

	a, err := New(Options{Managers: []string{"Fake"}})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Projects) != 1 {
		t.Errorf("Projects = %v, vendored trees must be skipped", result.Projects)
	}
}

func TestRunAppliesCurations(t *testing.T) {
	root := writeTree(t, map[string]string{"fake.lock": "project"})

	cfg, err := config.Parse([]byte(`
[[curations.packages]]
id = "Fake::shared:1.0.0"

[curations.packages.data]
concluded_license = "MIT"
`))
	if err != nil {
		t.Fatal(err)
	}

	a, err := New(Options{Managers: []string{"Fake"}})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), root, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.Packages[0].ConcludedLicense != "MIT" {
		t.Errorf("ConcludedLicense = %q, curation must apply", result.Packages[0].ConcludedLicense)
	}
}

func TestRunCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"fake.lock": "project"})

	a, err := New(Options{Managers: []string{"Fake"}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Run(ctx, root, nil); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCreateUnknownPlugin(t *testing.T) {
	if _, err := New(Options{Managers: []string{"DoesNotExist"}}); !errors.Is(err, errors.ErrCodeConfigUnknownPlugin) {
		t.Errorf("err = %v, want CONFIG_UNKNOWN_PLUGIN", err)
	}
}
