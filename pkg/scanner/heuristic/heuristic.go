// Package heuristic implements a built-in license scanner that needs no
// external tooling.
//
// It detects licenses from three signals: the text of well-known license
// files (LICENSE, COPYING, NOTICE), SPDX-License-Identifier header lines in
// source files, and copyright statements. It trades recall for zero
// dependencies; deployments wanting full-text matching can plug in an
// external scanner behind the same interface.
package heuristic

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/scanner"
)

const (
	// Name is the scanner name used in cache keys and records.
	Name = "heuristic"

	// Version is bumped whenever detection behavior changes, invalidating
	// cached results.
	Version = "1.0.0"
)

const (
	// headerLines bounds how far into a file SPDX tags are searched.
	headerLines = 50

	// copyrightLines bounds how far into a file copyright statements are
	// searched.
	copyrightLines = 100

	// maxFileSize skips files too large to be source or license text.
	maxFileSize = 4 << 20

	// tagScore and phraseScore grade the two detection signals: an explicit
	// SPDX tag is exact, phrase matching is not.
	tagScore    = 100
	phraseScore = 90
)

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// licensePhrases maps distinctive license text fragments to SPDX IDs.
// Order matters: earlier entries are more specific (BSD-3-Clause contains
// the BSD-2-Clause preamble, LGPL contains the GPL name).
var licensePhrases = []struct {
	spdx    string
	phrases []string
}{
	{"MIT", []string{"permission is hereby granted, free of charge"}},
	{"Apache-2.0", []string{"apache license", "version 2.0"}},
	{"LGPL-2.1-only", []string{"gnu lesser general public license", "version 2.1"}},
	{"GPL-3.0-only", []string{"gnu general public license", "version 3"}},
	{"GPL-2.0-only", []string{"gnu general public license", "version 2"}},
	{"MPL-2.0", []string{"mozilla public license", "version 2.0"}},
	{"BSD-3-Clause", []string{"redistribution and use in source and binary forms", "neither the name"}},
	{"BSD-2-Clause", []string{"redistribution and use in source and binary forms"}},
	{"ISC", []string{"permission to use, copy, modify, and/or distribute"}},
	{"Unlicense", []string{"this is free and unencumbered software"}},
}

var (
	licenseFileRe = regexp.MustCompile(`(?i)^(license|licence|copying|notice)(\.(txt|md|rst))?$`)
	spdxTagRe     = regexp.MustCompile(`SPDX-License-Identifier:\s*([A-Za-z0-9 .+()-]+)`)
	copyrightRe   = regexp.MustCompile(`(?i)copyright\s+(?:\(c\)|©)?\s*[0-9]{4}[0-9,\-\s]*\s+[^\n]+`)
)

// Scanner is the heuristic license scanner.
type Scanner struct{}

// New creates the scanner.
func New() *Scanner { return &Scanner{} }

func (s *Scanner) Name() string    { return Name }
func (s *Scanner) Version() string { return Version }

// Scan walks dir and collects license and copyright findings. Binary and
// oversized files are skipped; unreadable files are skipped silently, the
// scan is best-effort by design.
func (s *Scanner) Scan(ctx context.Context, dir string) (*scanner.Summary, error) {
	summary := &scanner.Summary{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		s.scanFile(path, filepath.ToSlash(rel), d.Name(), summary)
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.Licenses = model.DedupLicenseFindings(summary.Licenses)
	summary.Copyrights = model.DedupCopyrightFindings(summary.Copyrights)
	return summary, nil
}

func (s *Scanner) scanFile(path, rel, name string, summary *scanner.Summary) {
	data, err := os.ReadFile(path)
	if err != nil || isBinary(data) {
		return
	}
	lines := splitLines(data)

	if licenseFileRe.MatchString(name) {
		if spdx, ok := matchPhrases(strings.ToLower(string(data))); ok {
			summary.Licenses = append(summary.Licenses, model.LicenseFinding{
				License:  spdx,
				Location: model.TextLocation{Path: rel, StartLine: 1, EndLine: len(lines)},
				Score:    phraseScore,
			})
		}
	}

	for i, line := range lines[:min(len(lines), headerLines)] {
		if m := spdxTagRe.FindStringSubmatch(line); m != nil {
			summary.Licenses = append(summary.Licenses, model.LicenseFinding{
				License:  strings.TrimSpace(m[1]),
				Location: model.TextLocation{Path: rel, StartLine: i + 1, EndLine: i + 1},
				Score:    tagScore,
			})
		}
	}

	for i, line := range lines[:min(len(lines), copyrightLines)] {
		if m := copyrightRe.FindString(line); m != "" {
			summary.Copyrights = append(summary.Copyrights, model.CopyrightFinding{
				Statement: strings.TrimSpace(m),
				Location:  model.TextLocation{Path: rel, StartLine: i + 1, EndLine: i + 1},
			})
		}
	}
}

// matchPhrases returns the first license whose distinctive phrases all occur
// in the lowercased text.
func matchPhrases(text string) (string, bool) {
	for _, entry := range licensePhrases {
		all := true
		for _, phrase := range entry.phrases {
			if !strings.Contains(text, phrase) {
				all = false
				break
			}
		}
		if all {
			return entry.spdx, true
		}
	}
	return "", false
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), 512)], 0) >= 0
}

func splitLines(data []byte) []string {
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
}

var _ scanner.Scanner = (*Scanner)(nil)
