package curation

import (
	"slices"
	"testing"

	"github.com/complykit/complykit/pkg/errors"
)

func TestNewLicenseClassificationsValidation(t *testing.T) {
	categories := []LicenseCategory{
		{Name: "permissive"},
		{Name: "copyleft"},
	}

	tests := []struct {
		name            string
		categories      []LicenseCategory
		categorizations []LicenseCategorization
		wantCode        errors.Code
	}{
		{
			name:       "valid",
			categories: categories,
			categorizations: []LicenseCategorization{
				{ID: "MIT", Categories: []string{"permissive"}},
				{ID: "GPL-3.0-only", Categories: []string{"copyleft"}},
			},
		},
		{
			name:       "duplicate category name",
			categories: append(slices.Clone(categories), LicenseCategory{Name: "permissive"}),
			wantCode:   errors.ErrCodeConfigDuplicate,
		},
		{
			name:       "duplicate license id",
			categories: categories,
			categorizations: []LicenseCategorization{
				{ID: "MIT", Categories: []string{"permissive"}},
				{ID: "MIT", Categories: []string{"copyleft"}},
			},
			wantCode: errors.ErrCodeConfigDuplicate,
		},
		{
			name:       "unknown category",
			categories: categories,
			categorizations: []LicenseCategorization{
				{ID: "MIT", Categories: []string{"nonexistent"}},
			},
			wantCode: errors.ErrCodeConfigUnknownCategory,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLicenseClassifications(tt.categories, tt.categorizations)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestCategoriesFor(t *testing.T) {
	lc, err := NewLicenseClassifications(
		[]LicenseCategory{{Name: "permissive"}, {Name: "copyleft"}},
		[]LicenseCategorization{
			{ID: "MIT", Categories: []string{"permissive"}},
			{ID: "GPL-3.0-only", Categories: []string{"copyleft"}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	if got := lc.CategoriesFor("MIT"); !slices.Equal(got, []string{"permissive"}) {
		t.Errorf("CategoriesFor(MIT) = %v", got)
	}
	if got := lc.CategoriesFor("Unlicense"); got != nil {
		t.Errorf("CategoriesFor(Unlicense) = %v, want nil", got)
	}
	if !lc.IsCategorized("GPL-3.0-only") || lc.IsCategorized("Unlicense") {
		t.Error("IsCategorized misreports")
	}
	if got := lc.LicensesInCategory("copyleft"); !slices.Equal(got, []string{"GPL-3.0-only"}) {
		t.Errorf("LicensesInCategory(copyleft) = %v", got)
	}
}

func TestCoveringCategories(t *testing.T) {
	lc, err := NewLicenseClassifications(
		[]LicenseCategory{{Name: "permissive"}, {Name: "weak-copyleft"}, {Name: "copyleft"}},
		[]LicenseCategorization{
			{ID: "MIT", Categories: []string{"permissive"}},
			{ID: "Apache-2.0", Categories: []string{"permissive"}},
			{ID: "LGPL-2.1-only", Categories: []string{"weak-copyleft", "copyleft"}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	// "permissive" covers two licenses and is picked first; LGPL needs one
	// more category, resolved alphabetically to "copyleft". Unclassified
	// licenses are ignored.
	got := lc.CoveringCategories([]string{"MIT", "Apache-2.0", "LGPL-2.1-only", "Unlicense"})
	if !slices.Equal(got, []string{"permissive", "copyleft"}) {
		t.Errorf("CoveringCategories = %v, want [permissive copyleft]", got)
	}
}

func TestNilClassifications(t *testing.T) {
	var lc *LicenseClassifications
	if lc.CategoriesFor("MIT") != nil || lc.IsCategorized("MIT") {
		t.Error("nil classifications must classify nothing")
	}
	if lc.CoveringCategories([]string{"MIT"}) != nil {
		t.Error("nil classifications must cover nothing")
	}
}
