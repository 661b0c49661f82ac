package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/complykit/complykit/pkg/model"
)

const goModFixture = `module example.com/app

go 1.24.0

require (
	github.com/spf13/cobra v1.10.1
	github.com/spf13/pflag v1.0.10 // indirect
)
`

func testCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, LogInfo)
	c.resultsDir = t.TempDir()
	c.noCache = true
	return c
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunAnalyze(t *testing.T) {
	c := testCLI(t)
	dir := writeRepo(t, map[string]string{"go.mod": goModFixture})

	result, err := c.runAnalyze(context.Background(), dir, &analyzeOpts{name: "acme/app"})
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}

	if result.Name != "acme/app" {
		t.Errorf("Name = %q", result.Name)
	}
	if len(result.Analyzer.Projects) != 1 {
		t.Fatalf("Projects = %v", result.Analyzer.Projects)
	}
	if result.Analyzer.Graph.NodeCount() != 2 {
		t.Errorf("NodeCount = %d", result.Analyzer.Graph.NodeCount())
	}

	// The result is persisted and reloadable by name.
	store, err := c.newStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close(context.Background())
	loaded, err := store.Load(context.Background(), "acme/app")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cobra := model.NewIdentifier("GoMod", "github.com/spf13", "cobra", "v1.10.1")
	if _, ok := loaded.Analyzer.Graph.IndexOf(cobra); !ok {
		t.Errorf("stored graph missing %v", cobra)
	}
}

func TestRunAnalyzeDefaultName(t *testing.T) {
	c := testCLI(t)
	dir := writeRepo(t, map[string]string{"go.mod": goModFixture})

	result, err := c.runAnalyze(context.Background(), dir, &analyzeOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want directory name %q", result.Name, filepath.Base(dir))
	}
}

func TestRunScanResolvesLicenses(t *testing.T) {
	c := testCLI(t)
	dir := writeRepo(t, map[string]string{
		"go.mod": goModFixture,
		"LICENSE": `MIT License

Copyright (c) 2024 Acme

Permission is hereby granted, free of charge, to any person obtaining a copy.
`,
	})

	if err := c.runScan(context.Background(), dir, "acme/app"); err != nil {
		t.Fatalf("runScan: %v", err)
	}

	store, err := c.newStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close(context.Background())
	result, err := store.Load(context.Background(), "acme/app")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Scans) != 1 {
		t.Fatalf("Scans = %v", result.Scans)
	}
	summary := result.Scans[0].Summary
	if len(summary.Licenses) == 0 || summary.Licenses[0].License != "MIT" {
		t.Errorf("Licenses = %v", summary.Licenses)
	}
}

func TestRunReportWritesFiles(t *testing.T) {
	c := testCLI(t)
	dir := writeRepo(t, map[string]string{"go.mod": goModFixture})
	out := t.TempDir()

	err := c.runReport(context.Background(), dir, &reportOpts{
		name:    "acme/app",
		formats: "spdx,cyclonedx,dot",
		output:  out,
	})
	if err != nil {
		t.Fatalf("runReport: %v", err)
	}

	for _, file := range []string{"bom.spdx.json", "bom.cdx.json", "graph.dot"} {
		if _, err := os.Stat(filepath.Join(out, file)); err != nil {
			t.Errorf("missing report %s: %v", file, err)
		}
	}
}
