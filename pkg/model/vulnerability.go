package model

import (
	"fmt"
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// VulnerabilityReference is a link to an external description of a
// vulnerability (advisory, fix commit, report).
type VulnerabilityReference struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// Vulnerability is one security advisory affecting a package, as reported by
// an advisor plugin. Severity carries the raw CVSS vector when the advisor
// supplied one; Score and Rating are normalized from it.
type Vulnerability struct {
	ID         string                   `json:"id"`
	Summary    string                   `json:"summary,omitempty"`
	Aliases    []string                 `json:"aliases,omitempty"`
	Severity   string                   `json:"severity,omitempty"` // raw CVSS vector
	Score      float64                  `json:"score,omitempty"`    // 0.0-10.0, 0 when unknown
	Rating     string                   `json:"rating,omitempty"`   // NONE/LOW/MEDIUM/HIGH/CRITICAL
	References []VulnerabilityReference `json:"references,omitempty"`
}

// ScoreVector parses a CVSS vector (v2.0, v3.0, v3.1 or v4.0) and returns
// its base score and qualitative rating.
func ScoreVector(vector string) (float64, string, error) {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		vec, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, "", err
		}
		score := vec.BaseScore()
		rating, err := gocvss30.Rating(score)
		if err != nil {
			return 0, "", err
		}
		return score, rating, nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		vec, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, "", err
		}
		score := vec.BaseScore()
		rating, err := gocvss31.Rating(score)
		if err != nil {
			return 0, "", err
		}
		return score, rating, nil
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		vec, err := gocvss40.ParseVector(vector)
		if err != nil {
			return 0, "", err
		}
		score := vec.Score()
		rating, err := gocvss40.Rating(score)
		if err != nil {
			return 0, "", err
		}
		return score, rating, nil
	case vector == "":
		return 0, "", fmt.Errorf("empty CVSS vector")
	default:
		// CVSS 2.0 vectors carry no version prefix.
		vec, err := gocvss20.ParseVector(vector)
		if err != nil {
			return 0, "", fmt.Errorf("unsupported CVSS vector %q: %w", vector, err)
		}
		score := vec.BaseScore()
		return score, ratingFromScore(score), nil
	}
}

// ratingFromScore maps a score to the CVSS v3 qualitative scale. Used for
// v2 vectors, which define no rating of their own.
func ratingFromScore(score float64) string {
	switch {
	case score <= 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}
