package model

import (
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/complykit/complykit/pkg/errors"
)

// Identifier uniquely identifies a software package across ecosystems as a
// (type, namespace, name, version) tuple. Identifiers are immutable value
// types: all methods return copies, never mutate the receiver.
//
// The type coordinate names the package manager ecosystem (e.g., "NPM",
// "Maven", "GoMod"). The namespace holds ecosystem-specific grouping (Maven
// group ID, npm scope, Go module host). Version holds a concrete version for
// packages, or a version range matcher when the Identifier keys a curation.
type Identifier struct {
	Type      string `json:"type" toml:"type"`
	Namespace string `json:"namespace" toml:"namespace"`
	Name      string `json:"name" toml:"name"`
	Version   string `json:"version" toml:"version"`
}

// NewIdentifier constructs an Identifier from its four coordinates.
func NewIdentifier(ecosystem, namespace, name, version string) Identifier {
	return Identifier{Type: ecosystem, Namespace: namespace, Name: name, Version: version}
}

// ParseIdentifier parses the "type:namespace:name:version" coordinate form
// produced by [Identifier.String]. Missing trailing coordinates are allowed
// (e.g., "Maven:org.example:lib" has an empty version); anything with fewer
// than two coordinates is rejected.
func ParseIdentifier(coordinates string) (Identifier, error) {
	parts := strings.Split(coordinates, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Identifier{}, errors.New(errors.ErrCodeInvalidIdentifier,
			"expected type:namespace:name:version, got %q", coordinates)
	}
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	for _, p := range parts {
		if err := errors.ValidateCoordinate(p); err != nil {
			return Identifier{}, err
		}
	}
	return Identifier{Type: parts[0], Namespace: parts[1], Name: parts[2], Version: parts[3]}, nil
}

// String returns the ":"-joined coordinate form. The result round-trips
// through [ParseIdentifier] and is used as the canonical map/serialization
// key for an Identifier.
func (id Identifier) String() string {
	return id.Type + ":" + id.Namespace + ":" + id.Name + ":" + id.Version
}

// IsEmpty reports whether all coordinates are empty.
func (id Identifier) IsEmpty() bool {
	return id == Identifier{}
}

// WithoutVersion returns a copy with the version coordinate erased. This is
// the canonical grouping key for configuration that applies to a package
// irrespective of version or version-range representation: two Identifiers
// differing only in version map to the same WithoutVersion value.
func (id Identifier) WithoutVersion() Identifier {
	id.Version = ""
	return id
}

// Compare orders Identifiers lexically over (type, namespace, name, version)
// for deterministic output serialization. It returns -1, 0 or 1 and is
// suitable for [slices.SortFunc].
func (id Identifier) Compare(other Identifier) int {
	if c := strings.Compare(id.Type, other.Type); c != 0 {
		return c
	}
	if c := strings.Compare(id.Namespace, other.Namespace); c != 0 {
		return c
	}
	if c := strings.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(id.Version, other.Version)
}

// MatchesVersion reports whether the receiver's version coordinate, read as
// a matcher, accepts the given concrete version. Three matcher forms are
// supported:
//
//   - "" matches any version
//   - "1.2.x" or "1.2.*" match by prefix
//   - "[1.0,2.0)" style intervals with inclusive/exclusive bounds
//
// Any other value matches only by exact string equality.
func (id Identifier) MatchesVersion(version string) bool {
	matcher := id.Version
	switch {
	case matcher == "":
		return true
	case matcher == version:
		return true
	case strings.HasSuffix(matcher, ".x") || strings.HasSuffix(matcher, ".*"):
		prefix := matcher[:len(matcher)-1] // keep the trailing dot
		return strings.HasPrefix(version, prefix)
	case isInterval(matcher):
		return matchInterval(matcher, version)
	}
	return false
}

func isInterval(s string) bool {
	if len(s) < 3 {
		return false
	}
	open := s[0] == '[' || s[0] == '('
	closed := s[len(s)-1] == ']' || s[len(s)-1] == ')'
	return open && closed && strings.Contains(s, ",")
}

func matchInterval(matcher, version string) bool {
	lowerInclusive := matcher[0] == '['
	upperInclusive := matcher[len(matcher)-1] == ']'

	bounds := strings.SplitN(matcher[1:len(matcher)-1], ",", 2)
	lower := strings.TrimSpace(bounds[0])
	upper := strings.TrimSpace(bounds[1])

	if lower != "" {
		c := CompareVersions(version, lower)
		if c < 0 || (c == 0 && !lowerInclusive) {
			return false
		}
	}
	if upper != "" {
		c := CompareVersions(version, upper)
		if c > 0 || (c == 0 && !upperInclusive) {
			return false
		}
	}
	return true
}

// CompareVersions compares two dotted version strings segment by segment.
// Numeric segments compare numerically, everything else lexically; a missing
// segment compares as "0" so that "1.2" equals "1.2.0". This is a pragmatic
// ordering for range matching, not a full semver implementation.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := max(len(as), len(bs))
	for i := range n {
		av, bv := "0", "0"
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if c := compareSegment(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b string) int {
	an, aok := atoi(a)
	bn, bok := atoi(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// purlTypes maps ecosystem type coordinates to package-url types. Unlisted
// types fall back to the lowercased coordinate.
var purlTypes = map[string]string{
	"npm":       packageurl.TypeNPM,
	"gomod":     packageurl.TypeGolang,
	"go":        packageurl.TypeGolang,
	"maven":     packageurl.TypeMaven,
	"gradle":    packageurl.TypeMaven,
	"pypi":      packageurl.TypePyPi,
	"cargo":     packageurl.TypeCargo,
	"crates.io": packageurl.TypeCargo,
	"gem":       packageurl.TypeGem,
	"bundler":   packageurl.TypeGem,
	"composer":  packageurl.TypeComposer,
	"nuget":     packageurl.TypeNuget,
}

// ToPURL converts the Identifier to a package URL.
func (id Identifier) ToPURL() *packageurl.PackageURL {
	purlType, ok := purlTypes[strings.ToLower(id.Type)]
	if !ok {
		purlType = strings.ToLower(id.Type)
	}
	return packageurl.NewPackageURL(purlType, id.Namespace, id.Name, id.Version, nil, "")
}

// FromPURL converts a package URL into an Identifier. The purl type is kept
// verbatim as the type coordinate; callers that need ecosystem-native naming
// should construct the Identifier through their package-manager plugin.
func FromPURL(p packageurl.PackageURL) Identifier {
	return Identifier{Type: p.Type, Namespace: p.Namespace, Name: p.Name, Version: p.Version}
}

// MarshalText implements encoding.TextMarshaler so Identifiers can key JSON
// maps in serialized result documents.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
