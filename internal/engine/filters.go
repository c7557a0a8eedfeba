// Package engine applies filter predicates to a loaded dataset and derives
// summary statistics. Every pass is a pure function over the record set.
package engine

import (
	"permitscope/internal/models"
	"permitscope/internal/validation"
)

// Filters is one configuration of active predicates. A nil bound or empty
// list means the predicate is inactive; all active predicates are combined
// with AND. Range predicates treat a record with the field absent as
// non-matching.
type Filters struct {
	// Property predicates
	States        []string `json:"states,omitempty"`
	PropertyTypes []string `json:"property_types,omitempty"`

	MinYearBuilt *int `json:"min_year_built,omitempty"`
	MaxYearBuilt *int `json:"max_year_built,omitempty"`

	MinSaleYear *int `json:"min_sale_year,omitempty"`
	MaxSaleYear *int `json:"max_sale_year,omitempty"`

	MinSalePrice *float64 `json:"min_sale_price,omitempty"`
	MaxSalePrice *float64 `json:"max_sale_price,omitempty"`

	MinBeds *float64 `json:"min_beds,omitempty"`
	MaxBeds *float64 `json:"max_beds,omitempty"`

	MinBaths *float64 `json:"min_baths,omitempty"`
	MaxBaths *float64 `json:"max_baths,omitempty"`

	MinSquareFootage *float64 `json:"min_square_footage,omitempty"`
	MaxSquareFootage *float64 `json:"max_square_footage,omitempty"`

	// A property passes when ANY of its permits lands in the window.
	// Negative bounds admit permits predating the sale.
	MinSaleToPermitDays *int `json:"min_sale_to_permit_days,omitempty"`
	MaxSaleToPermitDays *int `json:"max_sale_to_permit_days,omitempty"`

	// Permit predicates
	MinPermitYear    *int     `json:"min_permit_year,omitempty"`
	MaxPermitYear    *int     `json:"max_permit_year,omitempty"`
	PermitCategories []string `json:"permit_categories,omitempty"`
}

// IsZero reports whether no predicate is active.
func (f *Filters) IsZero() bool {
	return len(f.States) == 0 && len(f.PropertyTypes) == 0 &&
		f.MinYearBuilt == nil && f.MaxYearBuilt == nil &&
		f.MinSaleYear == nil && f.MaxSaleYear == nil &&
		f.MinSalePrice == nil && f.MaxSalePrice == nil &&
		f.MinBeds == nil && f.MaxBeds == nil &&
		f.MinBaths == nil && f.MaxBaths == nil &&
		f.MinSquareFootage == nil && f.MaxSquareFootage == nil &&
		f.MinSaleToPermitDays == nil && f.MaxSaleToPermitDays == nil &&
		!f.permitActive()
}

// permitActive reports whether any permit-level predicate is active.
func (f *Filters) permitActive() bool {
	return f.MinPermitYear != nil || f.MaxPermitYear != nil || len(f.PermitCategories) > 0
}

// matchesProperty applies every property predicate. permits is the full
// permit list for the property; the sale-to-permit window looks across all
// of them, independent of permit-level predicates.
func (f *Filters) matchesProperty(p *models.PropertyRecord, permits []models.PermitRecord) bool {
	if len(f.States) > 0 && !containsState(f.States, p.State) {
		return false
	}
	if len(f.PropertyTypes) > 0 {
		if p.PropertyType == nil || !contains(f.PropertyTypes, *p.PropertyType) {
			return false
		}
	}
	if !intInRange(p.YearBuilt, f.MinYearBuilt, f.MaxYearBuilt) {
		return false
	}
	if f.MinSaleYear != nil || f.MaxSaleYear != nil {
		year, ok := p.SaleYear()
		if !ok || !intValueInRange(year, f.MinSaleYear, f.MaxSaleYear) {
			return false
		}
	}
	if !floatInRange(p.LastSalePrice, f.MinSalePrice, f.MaxSalePrice) {
		return false
	}
	if !floatInRange(p.Beds, f.MinBeds, f.MaxBeds) {
		return false
	}
	if !floatInRange(p.Baths, f.MinBaths, f.MaxBaths) {
		return false
	}
	if !floatInRange(p.SquareFootage, f.MinSquareFootage, f.MaxSquareFootage) {
		return false
	}
	if f.MinSaleToPermitDays != nil || f.MaxSaleToPermitDays != nil {
		if !anyPermitInWindow(p, permits, f.MinSaleToPermitDays, f.MaxSaleToPermitDays) {
			return false
		}
	}
	return true
}

// matchesPermit applies every permit predicate.
func (f *Filters) matchesPermit(pm *models.PermitRecord) bool {
	if f.MinPermitYear != nil || f.MaxPermitYear != nil {
		year, ok := pm.FileYear()
		if !ok || !intValueInRange(year, f.MinPermitYear, f.MaxPermitYear) {
			return false
		}
	}
	if len(f.PermitCategories) > 0 {
		if pm.Category == nil || !contains(f.PermitCategories, *pm.Category) {
			return false
		}
	}
	return true
}

func anyPermitInWindow(p *models.PropertyRecord, permits []models.PermitRecord, min, max *int) bool {
	for i := range permits {
		days, ok := models.SaleToPermitDays(permits[i], *p)
		if !ok {
			continue
		}
		if intValueInRange(days, min, max) {
			return true
		}
	}
	return false
}

// intInRange checks an optional int field against optional bounds. An
// inactive range always passes; an absent field fails an active range.
func intInRange(v, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	if v == nil {
		return false
	}
	return intValueInRange(*v, min, max)
}

func intValueInRange(v int, min, max *int) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func floatInRange(v, min, max *float64) bool {
	if min == nil && max == nil {
		return true
	}
	if v == nil {
		return false
	}
	if min != nil && *v < *min {
		return false
	}
	if max != nil && *v > *max {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsState(list []string, state string) bool {
	state = validation.NormalizeStateCode(state)
	for _, s := range list {
		if validation.NormalizeStateCode(s) == state {
			return true
		}
	}
	return false
}
