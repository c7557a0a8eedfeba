package engine

import (
	"sort"

	"permitscope/internal/models"
)

// GroupCount is one bucket of a grouped tally, ordered by key.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// YearCount is one year's tally.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// OffsetCount tallies sale-to-permit offsets bucketed into 365-day years.
// Negative buckets hold permits filed before the sale.
type OffsetCount struct {
	Years int `json:"years"`
	Count int `json:"count"`
}

// Summary holds the derived statistics for one filter result. Aggregates
// skip records with the relevant field absent; they are never counted as
// zero. Properties without a sale date stay in the raw totals but are
// excluded from every sale-relative figure.
type Summary struct {
	TotalProperties int `json:"total_properties"`
	TotalPermits    int `json:"total_permits"`
	WithSaleDate    int `json:"with_sale_date"`

	AvgSquareFootage *float64 `json:"avg_square_footage,omitempty"`
	AvgYearBuilt     *float64 `json:"avg_year_built,omitempty"`
	AvgBeds          *float64 `json:"avg_beds,omitempty"`
	AvgBaths         *float64 `json:"avg_baths,omitempty"`

	ByPropertyType    []GroupCount  `json:"by_property_type"`
	ByState           []GroupCount  `json:"by_state"`
	PermitsByCategory []GroupCount  `json:"permits_by_category"`
	PermitsByYear     []YearCount   `json:"permits_by_year"`
	SaleToPermit      []OffsetCount `json:"sale_to_permit"`

	MissingFields []GroupCount `json:"missing_fields"`
}

// Summarize derives the statistics for a filter result. Grouped tallies
// come back deterministically ordered: numeric keys ascending, string keys
// lexicographic.
func Summarize(res Result) Summary {
	s := Summary{
		TotalProperties: res.FinalCount(),
	}

	byType := map[string]int{}
	byState := map[string]int{}
	byCategory := map[string]int{}
	byYear := map[int]int{}
	byOffset := map[int]int{}
	missing := map[string]int{}

	var sqft, yearBuilt, beds, baths sum

	for i := range res.Matches {
		p := &res.Matches[i].Property
		permits := res.Matches[i].Permits
		s.TotalPermits += len(permits)

		sqft.add(p.SquareFootage)
		beds.add(p.Beds)
		baths.add(p.Baths)
		if p.YearBuilt != nil {
			v := float64(*p.YearBuilt)
			yearBuilt.add(&v)
		}

		if p.PropertyType != nil {
			byType[*p.PropertyType]++
		}
		byState[p.State]++

		countMissing(missing, "property_type", p.PropertyType == nil)
		countMissing(missing, "year_built", p.YearBuilt == nil)
		countMissing(missing, "beds", p.Beds == nil)
		countMissing(missing, "baths", p.Baths == nil)
		countMissing(missing, "square_footage", p.SquareFootage == nil)
		countMissing(missing, "last_sale_date", p.LastSaleDate == nil)
		countMissing(missing, "last_sale_price", p.LastSalePrice == nil)

		if p.LastSaleDate != nil {
			s.WithSaleDate++
		}

		for j := range permits {
			pm := &permits[j]
			if pm.Category != nil {
				byCategory[*pm.Category]++
			} else if pm.Description != "" {
				byCategory[pm.Description]++
			}
			if year, ok := pm.FileYear(); ok {
				byYear[year]++
			}
			// Sale-relative: only properties with a known sale date
			// contribute offsets.
			if days, ok := models.SaleToPermitDays(*pm, *p); ok {
				byOffset[offsetBucket(days)]++
			}
		}
	}

	s.AvgSquareFootage = sqft.mean()
	s.AvgYearBuilt = yearBuilt.mean()
	s.AvgBeds = beds.mean()
	s.AvgBaths = baths.mean()

	s.ByPropertyType = sortedGroups(byType)
	s.ByState = sortedGroups(byState)
	s.PermitsByCategory = sortedGroups(byCategory)
	s.PermitsByYear = sortedYears(byYear)
	s.SaleToPermit = sortedOffsets(byOffset)
	s.MissingFields = sortedGroups(missing)

	return s
}

// offsetBucket maps a day offset to its 365-day year bucket, flooring so
// negative offsets land in negative buckets.
func offsetBucket(days int) int {
	if days >= 0 {
		return days / 365
	}
	return -(((-days) + 364) / 365)
}

type sum struct {
	total float64
	n     int
}

func (s *sum) add(v *float64) {
	if v == nil {
		return
	}
	s.total += *v
	s.n++
}

func (s *sum) mean() *float64 {
	if s.n == 0 {
		return nil
	}
	m := s.total / float64(s.n)
	return &m
}

func countMissing(missing map[string]int, field string, isMissing bool) {
	if isMissing {
		missing[field]++
	} else if _, ok := missing[field]; !ok {
		missing[field] = 0
	}
}

func sortedGroups(m map[string]int) []GroupCount {
	out := make([]GroupCount, 0, len(m))
	for k, v := range m {
		out = append(out, GroupCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sortedYears(m map[int]int) []YearCount {
	out := make([]YearCount, 0, len(m))
	for k, v := range m {
		out = append(out, YearCount{Year: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func sortedOffsets(m map[int]int) []OffsetCount {
	out := make([]OffsetCount, 0, len(m))
	for k, v := range m {
		out = append(out, OffsetCount{Years: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Years < out[j].Years })
	return out
}
