package engine

import (
	"permitscope/internal/models"
)

// Result is the outcome of one filter pass.
type Result struct {
	// TotalProperties counts loaded properties after audience exclusion,
	// before any predicate runs.
	TotalProperties int `json:"total_properties"`
	// MatchingProperties counts properties passing all property predicates.
	MatchingProperties int `json:"matching_properties"`
	// MatchingPermits counts permits passing all permit predicates across
	// the whole (non-excluded) dataset, regardless of their property.
	MatchingPermits int `json:"matching_permits"`
	// Matches is the final subset: property passed, and when permit
	// predicates are active, at least one of its permits passed. Each
	// match retains only its passing permits.
	Matches []models.Match `json:"matches"`
}

// FinalCount returns the number of matches in the final subset.
func (r *Result) FinalCount() int {
	return len(r.Matches)
}

// PropertyIDs returns the final subset's property IDs in result order.
func (r *Result) PropertyIDs() []string {
	ids := make([]string, len(r.Matches))
	for i := range r.Matches {
		ids[i] = r.Matches[i].Property.ID
	}
	return ids
}

// Build applies a filter configuration to a dataset. exclude removes
// property IDs (saved audiences) before any predicate runs. The dataset is
// never mutated; with zero filters and no exclusions the result is the
// full set unchanged.
func Build(ds *models.Dataset, f Filters, exclude map[string]struct{}) Result {
	var res Result
	if ds == nil {
		return res
	}

	permitFiltered := f.permitActive()

	for i := range ds.Matches {
		m := &ds.Matches[i]
		if _, skip := exclude[m.Property.ID]; skip {
			continue
		}
		res.TotalProperties++

		// Permit predicate pass over every non-excluded property's permits.
		var passing []models.PermitRecord
		if permitFiltered {
			for j := range m.Permits {
				if f.matchesPermit(&m.Permits[j]) {
					passing = append(passing, m.Permits[j])
				}
			}
			res.MatchingPermits += len(passing)
		} else {
			passing = m.Permits
			res.MatchingPermits += len(m.Permits)
		}

		if !f.matchesProperty(&m.Property, m.Permits) {
			continue
		}
		res.MatchingProperties++

		if permitFiltered && len(passing) == 0 {
			continue
		}

		// Copy the permit slice so the result never aliases dataset
		// internals callers might append to.
		kept := make([]models.PermitRecord, len(passing))
		copy(kept, passing)
		res.Matches = append(res.Matches, models.Match{Property: m.Property, Permits: kept})
	}

	return res
}

// SelectAudience returns the subset of a dataset belonging to a saved
// audience, as a Result so the same summaries and charts apply.
func SelectAudience(ds *models.Dataset, audience *models.Audience) Result {
	var res Result
	if ds == nil || audience == nil {
		return res
	}
	ids := audience.IDSet()
	for i := range ds.Matches {
		m := &ds.Matches[i]
		if _, ok := ids[m.Property.ID]; !ok {
			continue
		}
		kept := make([]models.PermitRecord, len(m.Permits))
		copy(kept, m.Permits)
		res.Matches = append(res.Matches, models.Match{Property: m.Property, Permits: kept})
	}
	res.TotalProperties = len(ds.Matches)
	res.MatchingProperties = len(res.Matches)
	for i := range res.Matches {
		res.MatchingPermits += len(res.Matches[i].Permits)
	}
	return res
}
