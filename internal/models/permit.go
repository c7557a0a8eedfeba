package models

import "time"

// PermitRecord is a single building permit parsed from a state matches file.
// PropertyID is stamped at load time from the property it was paired with.
type PermitRecord struct {
	ID          string     `json:"permit_id"`
	PropertyID  string     `json:"property_id"`
	State       string     `json:"state"`
	FileDate    *time.Time `json:"file_date,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Cost        *float64   `json:"cost,omitempty"`
	Contractor  *string    `json:"contractor,omitempty"`
}

// FileYear returns the year the permit was filed, or false when the file
// date is not known.
func (p *PermitRecord) FileYear() (int, bool) {
	if p.FileDate == nil {
		return 0, false
	}
	return p.FileDate.UTC().Year(), true
}
