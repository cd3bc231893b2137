package record

import (
	"fmt"
	"sort"
)

// Category identifies one slice of a patient's medical record. The set is
// closed: every policy filter and audit site switches over these values, so
// a typo cannot silently widen access.
type Category string

const (
	CategoryAllergies        Category = "allergies"
	CategoryMedications      Category = "medications"
	CategoryConditions       Category = "conditions"
	CategorySurgeries        Category = "surgeries"
	CategoryVaccinations     Category = "vaccinations"
	CategoryLabResults       Category = "lab_results"
	CategoryDocuments        Category = "documents"
	CategoryInsurance        Category = "insurance"
	CategoryAdvanceDirective Category = "advance_directive"
)

// AllCategories returns every known category in stable order.
func AllCategories() []Category {
	return []Category{
		CategoryAllergies,
		CategoryMedications,
		CategoryConditions,
		CategorySurgeries,
		CategoryVaccinations,
		CategoryLabResults,
		CategoryDocuments,
		CategoryInsurance,
		CategoryAdvanceDirective,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAllergies, CategoryMedications, CategoryConditions,
		CategorySurgeries, CategoryVaccinations, CategoryLabResults,
		CategoryDocuments, CategoryInsurance, CategoryAdvanceDirective:
		return true
	}
	return false
}

// ParseCategory converts a wire string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// CategorySet is an unordered set of categories.
type CategorySet map[Category]struct{}

// NewCategorySet builds a set from the given categories.
func NewCategorySet(cats ...Category) CategorySet {
	s := make(CategorySet, len(cats))
	for _, c := range cats {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// Add inserts a category.
func (s CategorySet) Add(c Category) {
	s[c] = struct{}{}
}

// Intersect returns the intersection of s and other.
func (s CategorySet) Intersect(other CategorySet) CategorySet {
	out := make(CategorySet)
	for c := range s {
		if other.Contains(c) {
			out.Add(c)
		}
	}
	return out
}

// Slice returns the members in stable (sorted) order.
func (s CategorySet) Slice() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the members as sorted strings, for audit rows and SQL
// array parameters.
func (s CategorySet) Strings() []string {
	cats := s.Slice()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

// CategoryStrings converts a category slice for SQL array parameters.
func CategoryStrings(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
