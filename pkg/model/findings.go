package model

import (
	"slices"
	"strings"
)

// TextLocation points at a line range within a file, relative to the scanned
// source root. EndLine equals StartLine for single-line findings.
type TextLocation struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Compare orders locations by (path, start, end).
func (l TextLocation) Compare(other TextLocation) int {
	if c := strings.Compare(l.Path, other.Path); c != 0 {
		return c
	}
	if l.StartLine != other.StartLine {
		if l.StartLine < other.StartLine {
			return -1
		}
		return 1
	}
	switch {
	case l.EndLine < other.EndLine:
		return -1
	case l.EndLine > other.EndLine:
		return 1
	default:
		return 0
	}
}

// LicenseFinding is a single license detection produced by a scanner:
// an SPDX license expression at a text location, with the scanner's
// confidence score (0-100, 0 when the scanner does not score).
//
// Findings are immutable values. Order within a result is irrelevant;
// findings are deduplicated by full equality.
type LicenseFinding struct {
	License  string       `json:"license"`
	Location TextLocation `json:"location"`
	Score    float32      `json:"score,omitempty"`
}

// Compare orders findings by (license, location, score) for deterministic
// serialization.
func (f LicenseFinding) Compare(other LicenseFinding) int {
	if c := strings.Compare(f.License, other.License); c != 0 {
		return c
	}
	if c := f.Location.Compare(other.Location); c != 0 {
		return c
	}
	switch {
	case f.Score < other.Score:
		return -1
	case f.Score > other.Score:
		return 1
	default:
		return 0
	}
}

// CopyrightFinding is a copyright statement found at a text location.
type CopyrightFinding struct {
	Statement string       `json:"statement"`
	Location  TextLocation `json:"location"`
}

// Compare orders findings by (statement, location).
func (f CopyrightFinding) Compare(other CopyrightFinding) int {
	if c := strings.Compare(f.Statement, other.Statement); c != 0 {
		return c
	}
	return f.Location.Compare(other.Location)
}

// DedupLicenseFindings sorts findings and removes full-equality duplicates.
// The input slice is not modified.
func DedupLicenseFindings(findings []LicenseFinding) []LicenseFinding {
	out := slices.Clone(findings)
	slices.SortFunc(out, LicenseFinding.Compare)
	return slices.Compact(out)
}

// DedupCopyrightFindings sorts findings and removes full-equality duplicates.
// The input slice is not modified.
func DedupCopyrightFindings(findings []CopyrightFinding) []CopyrightFinding {
	out := slices.Clone(findings)
	slices.SortFunc(out, CopyrightFinding.Compare)
	return slices.Compact(out)
}
