package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Provenance records where the content of a scan came from: a VCS location
// pinned to a revision, a downloaded source artifact pinned by digest, or
// neither (an unscanned local directory). Scan results are keyed by
// provenance so that results can be reused whenever the same source is
// scanned again.
type Provenance struct {
	VCS            *VCSInfo  `json:"vcs,omitempty"`
	SourceArtifact *Artifact `json:"source_artifact,omitempty"`
}

// IsKnown reports whether the provenance pins any source at all.
// Unknown provenance is never cached.
func (p Provenance) IsKnown() bool {
	if p.VCS != nil && p.VCS.Revision != "" {
		return true
	}
	return p.SourceArtifact != nil && p.SourceArtifact.Digest != ""
}

// Key returns a stable cache key for the provenance, derived from the
// SHA-256 of its canonical JSON form. Returns "" for unknown provenance.
func (p Provenance) Key() string {
	if !p.IsKnown() {
		return ""
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
