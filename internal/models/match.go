package models

import "time"

// Match pairs one property with the permits filed against it. The join is
// precomputed upstream; every permit in Permits belongs to exactly this
// property.
type Match struct {
	Property PropertyRecord `json:"property"`
	Permits  []PermitRecord `json:"permits"`
}

// SaleToPermitDays computes the signed number of whole days between a
// property's last sale and a permit's file date. Negative values mean the
// permit predates the sale; partial days floor toward negative infinity,
// so a permit filed hours before the sale counts as -1, not 0. Returns
// false when either date is unknown.
func SaleToPermitDays(permit PermitRecord, property PropertyRecord) (int, bool) {
	if permit.FileDate == nil || property.LastSaleDate == nil {
		return 0, false
	}
	d := permit.FileDate.UTC().Sub(property.LastSaleDate.UTC())
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days, true
}

// Dataset holds every match loaded for one or more states, together with
// per-record load warnings. Records are read-only for the life of a
// session; loading again replaces the whole dataset.
type Dataset struct {
	States   []string  `json:"states"`
	Matches  []Match   `json:"matches"`
	Warnings []string  `json:"warnings,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// PropertyCount returns the number of distinct properties in the dataset.
func (d *Dataset) PropertyCount() int {
	if d == nil {
		return 0
	}
	return len(d.Matches)
}

// PermitCount returns the total number of permits across all matches.
func (d *Dataset) PermitCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for i := range d.Matches {
		n += len(d.Matches[i].Permits)
	}
	return n
}

// Merge appends another dataset's matches and warnings. States are kept
// in load order; the caller never loads the same state twice into one
// dataset.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	d.States = append(d.States, other.States...)
	d.Matches = append(d.Matches, other.Matches...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	if other.LoadedAt.After(d.LoadedAt) {
		d.LoadedAt = other.LoadedAt
	}
}
