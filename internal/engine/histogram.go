package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"permitscope/internal/models"
)

// ErrUnknownField is returned for chart fields the engine cannot extract.
var ErrUnknownField = errors.New("unknown chart field")

// Outlier trim bounds, matching the dashboard's "remove outliers" toggle.
const (
	outlierLowerQ = 0.01
	outlierUpperQ = 0.99
)

// maxBins caps the client-requested bin count; bins drive an allocation.
const maxBins = 200

// Bucket is one histogram bar covering [Lo, Hi).
// The final bucket includes its upper bound.
type Bucket struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram is chart-ready distribution data for one field.
type Histogram struct {
	Field    string   `json:"field"`
	Total    int      `json:"total"`
	Valid    int      `json:"valid"`
	Missing  int      `json:"missing"`
	Outliers int      `json:"outliers"`
	Buckets  []Bucket `json:"buckets"`
}

// ChartFields lists the fields FieldHistogram accepts.
var ChartFields = []string{
	"squareFootage", "yearBuilt", "beds", "baths",
	"saleYear", "salePrice", "permitYear", "saleToPermitDays",
}

// FieldHistogram builds distribution data for one field of a filter
// result. Records with the field absent count toward Missing and are left
// out of the buckets. With trimOutliers set, values outside the 1st-99th
// percentile are dropped and counted as Outliers.
func FieldHistogram(res Result, field string, bins int, trimOutliers bool) (Histogram, error) {
	h := Histogram{Field: field}
	if bins <= 0 {
		bins = 30
	}
	if bins > maxBins {
		bins = maxBins
	}

	values, total, err := extractField(res, field)
	if err != nil {
		return h, err
	}
	h.Total = total
	h.Valid = len(values)
	h.Missing = total - len(values)
	if len(values) == 0 {
		return h, nil
	}

	sort.Float64s(values)
	if trimOutliers && len(values) > 2 {
		lo := quantile(values, outlierLowerQ)
		hi := quantile(values, outlierUpperQ)
		trimmed := values[:0:0]
		for _, v := range values {
			if v >= lo && v <= hi {
				trimmed = append(trimmed, v)
			}
		}
		h.Outliers = len(values) - len(trimmed)
		values = trimmed
		if len(values) == 0 {
			return h, nil
		}
	}

	lo, hi := values[0], values[len(values)-1]
	if lo == hi {
		h.Buckets = []Bucket{{Lo: lo, Hi: hi, Count: len(values)}}
		return h, nil
	}

	width := (hi - lo) / float64(bins)
	h.Buckets = make([]Bucket, bins)
	for i := range h.Buckets {
		h.Buckets[i].Lo = lo + float64(i)*width
		h.Buckets[i].Hi = lo + float64(i+1)*width
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1 // upper bound lands in the last bucket
		}
		h.Buckets[idx].Count++
	}

	return h, nil
}

// FieldValues returns the numeric series for a chart field, leaving out
// records where the field is absent. Callers use it to seed slider bounds.
func FieldValues(res Result, field string) ([]float64, error) {
	values, _, err := extractField(res, field)
	return values, err
}

// extractField pulls the numeric series for a chart field. The returned
// total is the population size the series was drawn from, so callers can
// report missing counts.
func extractField(res Result, field string) ([]float64, int, error) {
	var values []float64

	switch field {
	case "squareFootage", "yearBuilt", "beds", "baths", "saleYear", "salePrice":
		for i := range res.Matches {
			p := &res.Matches[i].Property
			if v, ok := propertyField(p, field); ok {
				values = append(values, v)
			}
		}
		return values, res.FinalCount(), nil
	case "permitYear":
		total := 0
		for i := range res.Matches {
			for j := range res.Matches[i].Permits {
				total++
				if year, ok := res.Matches[i].Permits[j].FileYear(); ok {
					values = append(values, float64(year))
				}
			}
		}
		return values, total, nil
	case "saleToPermitDays":
		total := 0
		for i := range res.Matches {
			m := &res.Matches[i]
			for j := range m.Permits {
				total++
				if days, ok := models.SaleToPermitDays(m.Permits[j], m.Property); ok {
					values = append(values, float64(days))
				}
			}
		}
		return values, total, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func propertyField(p *models.PropertyRecord, field string) (float64, bool) {
	switch field {
	case "squareFootage":
		if p.SquareFootage != nil {
			return *p.SquareFootage, true
		}
	case "yearBuilt":
		if p.YearBuilt != nil {
			return float64(*p.YearBuilt), true
		}
	case "beds":
		if p.Beds != nil {
			return *p.Beds, true
		}
	case "baths":
		if p.Baths != nil {
			return *p.Baths, true
		}
	case "saleYear":
		if year, ok := p.SaleYear(); ok {
			return float64(year), true
		}
	case "salePrice":
		if p.LastSalePrice != nil {
			return *p.LastSalePrice, true
		}
	}
	return 0, false
}

// quantile linearly interpolates the q-th quantile of a sorted series.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SafeRange returns the min and max of the non-missing values of a series,
// falling back to the given bounds when the series is empty. The dashboard
// uses it to seed slider bounds.
func SafeRange(values []float64, loFallback, hiFallback float64) (float64, float64) {
	if len(values) == 0 {
		return loFallback, hiFallback
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
