package models

import (
	"strings"
	"time"
)

// PropertyRecord is a single property parsed from a state matches file.
// Optional attributes are nil when the source record omitted them; missing
// values never turn into zeroes.
type PropertyRecord struct {
	ID            string     `json:"id"`
	AddressLine1  string     `json:"address_line1"`
	AddressLine2  string     `json:"address_line2,omitempty"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	ZipCode       string     `json:"zip_code"`
	County        string     `json:"county,omitempty"`
	PropertyType  *string    `json:"property_type,omitempty"`
	YearBuilt     *int       `json:"year_built,omitempty"`
	Beds          *float64   `json:"beds,omitempty"`
	Baths         *float64   `json:"baths,omitempty"`
	SquareFootage *float64   `json:"square_footage,omitempty"`
	LastSaleDate  *time.Time `json:"last_sale_date,omitempty"`
	LastSalePrice *float64   `json:"last_sale_price,omitempty"`
}

// Address returns the full street address on one line.
func (p *PropertyRecord) Address() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// SaleYear returns the year of the last sale, or false when the sale date
// is not known.
func (p *PropertyRecord) SaleYear() (int, bool) {
	if p.LastSaleDate == nil {
		return 0, false
	}
	return p.LastSaleDate.UTC().Year(), true
}
