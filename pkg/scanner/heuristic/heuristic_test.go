package heuristic

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const mitText = `MIT License

Copyright (c) 2024 Example Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND.
`

func writeFiles(t *testing.T, files map[string]string) string {
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

func TestScanLicenseFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"LICENSE": mitText})

	summary, err := New().Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(summary.Licenses) != 1 {
		t.Fatalf("Licenses = %v", summary.Licenses)
	}
	f := summary.Licenses[0]
	if f.License != "MIT" {
		t.Errorf("License = %q", f.License)
	}
	if f.Location.Path != "LICENSE" || f.Location.StartLine != 1 {
		t.Errorf("Location = %v", f.Location)
	}
	if f.Score != phraseScore {
		t.Errorf("Score = %v", f.Score)
	}

	if len(summary.Copyrights) != 1 {
		t.Fatalf("Copyrights = %v", summary.Copyrights)
	}
	if !strings.Contains(summary.Copyrights[0].Statement, "Example Authors") {
		t.Errorf("Statement = %q", summary.Copyrights[0].Statement)
	}
}

func TestScanSPDXTag(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.go": "// SPDX-License-Identifier: Apache-2.0\npackage main\n",
	})

	summary, err := New().Scan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Licenses) != 1 {
		t.Fatalf("Licenses = %v", summary.Licenses)
	}
	f := summary.Licenses[0]
	if f.License != "Apache-2.0" || f.Score != tagScore {
		t.Errorf("finding = %+v", f)
	}
	if f.Location.StartLine != 1 || f.Location.EndLine != 1 {
		t.Errorf("Location = %v, SPDX tags are single-line findings", f.Location)
	}
}

func TestScanLicenseVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"apache", "Apache License\nVersion 2.0, January 2004\n", "Apache-2.0"},
		{"gpl3", "GNU GENERAL PUBLIC LICENSE\nVersion 3, 29 June 2007\n", "GPL-3.0-only"},
		{"lgpl21", "GNU LESSER GENERAL PUBLIC LICENSE\nVersion 2.1, February 1999\n", "LGPL-2.1-only"},
		{
			"bsd3",
			"Redistribution and use in source and binary forms, with or without modification, " +
				"are permitted provided that neither the name of the copyright holder nor the names " +
				"of its contributors may be used.",
			"BSD-3-Clause",
		},
		{"isc", "Permission to use, copy, modify, and/or distribute this software\n", "ISC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"COPYING": tt.text})
			summary, err := New().Scan(context.Background(), dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(summary.Licenses) != 1 || summary.Licenses[0].License != tt.want {
				t.Errorf("Licenses = %v, want %s", summary.Licenses, tt.want)
			}
		})
	}
}

func TestScanSkipsVendoredAndBinary(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"node_modules/dep/LICENSE": mitText,
		"vendor/LICENSE":           mitText,
	})
	// Binary file with an embedded SPDX-looking string.
	bin := append([]byte{0x7f, 'E', 'L', 'F', 0x00}, []byte("SPDX-License-Identifier: MIT")...)
	if err := os.WriteFile(filepath.Join(dir, "tool.bin"), bin, 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := New().Scan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Licenses) != 0 {
		t.Errorf("Licenses = %v, want none from vendored or binary files", summary.Licenses)
	}
}

func TestScanDeduplicatesFindings(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.go": "// SPDX-License-Identifier: MIT\n",
		"b.go": "// SPDX-License-Identifier: MIT\n",
	})
	summary, err := New().Scan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	// Same license at two locations: both findings survive dedup.
	if len(summary.Licenses) != 2 {
		t.Errorf("Licenses = %v", summary.Licenses)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"LICENSE": mitText})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Scan(ctx, dir); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
