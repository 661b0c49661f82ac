// Package config loads the per-repository configuration file that steers
// curation and license resolution.
//
// The file lives at the root of the analyzed repository as .complykit.toml.
// All validation happens at load time: a configuration that parses but is
// semantically broken (bad identifier, unknown category, unknown key) fails
// the load with a CONFIG error rather than being silently ignored later.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/complykit/complykit/pkg/curation"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/license"
	"github.com/complykit/complykit/pkg/model"
)

// DefaultFileName is the configuration file looked up at the repository root.
const DefaultFileName = ".complykit.toml"

// Config is the validated repository configuration. The zero value is a
// valid empty configuration.
type Config struct {
	Excludes          []license.PathExclude
	PackageCurations  []curation.PackageCuration
	FindingCurations  []license.FindingCuration
	PackageChoices    map[model.Identifier][]license.Choice
	RepositoryChoices []license.Choice
	Classifications   *curation.LicenseClassifications
}

// ResolverConfig returns the subset of the configuration the license
// resolver consumes.
func (c *Config) ResolverConfig() license.ResolverConfig {
	return license.ResolverConfig{
		PathExcludes:      c.Excludes,
		FindingCurations:  c.FindingCurations,
		PackageChoices:    c.PackageChoices,
		RepositoryChoices: c.RepositoryChoices,
	}
}

// file mirrors the TOML document structure before validation.
type file struct {
	Excludes struct {
		Paths []license.PathExclude `toml:"paths"`
	} `toml:"excludes"`

	Curations struct {
		Packages        []packageCurationEntry    `toml:"packages"`
		LicenseFindings []license.FindingCuration `toml:"license_findings"`
	} `toml:"curations"`

	LicenseChoices struct {
		Packages   []packageChoiceEntry `toml:"packages"`
		Repository []license.Choice     `toml:"repository"`
	} `toml:"license_choices"`

	Classifications struct {
		Categories      []curation.LicenseCategory       `toml:"categories"`
		Categorizations []curation.LicenseCategorization `toml:"categorizations"`
	} `toml:"classifications"`
}

type packageCurationEntry struct {
	ID   string        `toml:"id"`
	Data curation.Data `toml:"data"`
}

type packageChoiceEntry struct {
	ID      string           `toml:"id"`
	Choices []license.Choice `toml:"choices"`
}

// LoadDir loads DefaultFileName from the given repository root. A missing
// file yields the empty configuration; any other failure is an error.
func LoadDir(root string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(root, DefaultFileName))
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return &Config{}, nil
	}
	return cfg, err
}

// LoadFile loads and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "reading %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "reading %s", path)
	}
	return Parse(data)
}

// Parse parses and validates configuration TOML. Unknown keys are rejected:
// a typo in a curation key must not silently disable it.
func Parse(data []byte) (*Config, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parsing configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeConfig, "unknown configuration keys: %s", strings.Join(keys, ", "))
	}

	cfg := &Config{
		Excludes:          f.Excludes.Paths,
		FindingCurations:  f.Curations.LicenseFindings,
		RepositoryChoices: f.LicenseChoices.Repository,
	}

	for _, entry := range f.Curations.Packages {
		id, err := model.ParseIdentifier(entry.ID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "package curation id %q", entry.ID)
		}
		if entry.Data.IsEmpty() {
			return nil, errors.New(errors.ErrCodeConfig, "package curation %q patches nothing", entry.ID)
		}
		cfg.PackageCurations = append(cfg.PackageCurations, curation.PackageCuration{ID: id, Data: entry.Data})
	}

	for _, entry := range f.LicenseChoices.Packages {
		id, err := model.ParseIdentifier(entry.ID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "license choice id %q", entry.ID)
		}
		if len(entry.Choices) == 0 {
			return nil, errors.New(errors.ErrCodeConfig, "license choice for %q lists no choices", entry.ID)
		}
		if cfg.PackageChoices == nil {
			cfg.PackageChoices = make(map[model.Identifier][]license.Choice)
		}
		cfg.PackageChoices[id] = append(cfg.PackageChoices[id], entry.Choices...)
	}

	if len(f.Classifications.Categories) > 0 || len(f.Classifications.Categorizations) > 0 {
		lc, err := curation.NewLicenseClassifications(f.Classifications.Categories, f.Classifications.Categorizations)
		if err != nil {
			return nil, err
		}
		cfg.Classifications = lc
	}

	return cfg, nil
}
