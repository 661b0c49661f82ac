package curation

import (
	"slices"
	"strings"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/setcover"
)

// LicenseCategory is a named policy bucket for licenses, e.g. "permissive" or
// "copyleft".
type LicenseCategory struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description,omitempty" toml:"description"`
}

// LicenseCategorization assigns one license to one or more categories.
type LicenseCategorization struct {
	// ID is the SPDX license identifier, e.g. "Apache-2.0".
	ID         string   `json:"id" toml:"id"`
	Categories []string `json:"categories" toml:"categories"`
}

// LicenseClassifications is a validated set of categories plus the licenses
// assigned to them. Construct it through [NewLicenseClassifications]; the
// zero value classifies nothing.
type LicenseClassifications struct {
	Categories      []LicenseCategory       `json:"categories,omitempty" toml:"categories"`
	Categorizations []LicenseCategorization `json:"categorizations,omitempty" toml:"categorizations"`

	byLicense map[string][]string
}

// NewLicenseClassifications validates and indexes a classification set.
// Duplicate category names, duplicate license IDs, and categorizations
// referencing an undeclared category are configuration errors; loading must
// fail rather than silently misclassify.
func NewLicenseClassifications(categories []LicenseCategory, categorizations []LicenseCategorization) (*LicenseClassifications, error) {
	names := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		if _, ok := names[cat.Name]; ok {
			return nil, errors.New(errors.ErrCodeConfigDuplicate, "duplicate license category %q", cat.Name)
		}
		names[cat.Name] = struct{}{}
	}

	byLicense := make(map[string][]string, len(categorizations))
	for _, c := range categorizations {
		if _, ok := byLicense[c.ID]; ok {
			return nil, errors.New(errors.ErrCodeConfigDuplicate, "license %q categorized more than once", c.ID)
		}
		for _, name := range c.Categories {
			if _, ok := names[name]; !ok {
				return nil, errors.New(errors.ErrCodeConfigUnknownCategory,
					"license %q references undeclared category %q", c.ID, name)
			}
		}
		byLicense[c.ID] = slices.Clone(c.Categories)
	}

	return &LicenseClassifications{
		Categories:      categories,
		Categorizations: categorizations,
		byLicense:       byLicense,
	}, nil
}

// CategoriesFor returns the categories the license is assigned to, or nil for
// an unclassified license.
func (lc *LicenseClassifications) CategoriesFor(licenseID string) []string {
	if lc == nil {
		return nil
	}
	return lc.byLicense[licenseID]
}

// IsCategorized reports whether the license is assigned to any category.
func (lc *LicenseClassifications) IsCategorized(licenseID string) bool {
	return len(lc.CategoriesFor(licenseID)) > 0
}

// LicensesInCategory returns the sorted license IDs assigned to the category.
func (lc *LicenseClassifications) LicensesInCategory(name string) []string {
	if lc == nil {
		return nil
	}
	var out []string
	for _, c := range lc.Categorizations {
		if slices.Contains(c.Categories, name) {
			out = append(out, c.ID)
		}
	}
	slices.Sort(out)
	return out
}

// CoveringCategories returns an approximately-minimal set of categories that
// together cover every classified license in licenseIDs, in selection order
// with ties broken alphabetically. Unclassified licenses are ignored; they
// cannot be covered by any category.
func (lc *LicenseClassifications) CoveringCategories(licenseIDs []string) []string {
	if lc == nil {
		return nil
	}
	sets := make(map[string]setcover.Set[string], len(lc.Categories))
	for _, id := range licenseIDs {
		for _, name := range lc.byLicense[id] {
			if sets[name] == nil {
				sets[name] = make(setcover.Set[string])
			}
			sets[name][id] = struct{}{}
		}
	}
	return setcover.Greedy(sets, strings.Compare)
}
