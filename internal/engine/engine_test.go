package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitscope/internal/models"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

func datep(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

// testDataset builds a small two-state dataset used across the engine tests.
func testDataset() *models.Dataset {
	return &models.Dataset{
		States: []string{"MD", "VA"},
		Matches: []models.Match{
			{
				Property: models.PropertyRecord{
					ID: "md-1", State: "MD", City: "Bethesda",
					PropertyType: strp("Single Family"),
					YearBuilt:    intp(1987), Beds: floatp(3), Baths: floatp(2.5),
					SquareFootage: floatp(1850),
					LastSaleDate:  datep(2023, 1, 1), LastSalePrice: floatp(450000),
				},
				Permits: []models.PermitRecord{
					{ID: "B-100", PropertyID: "md-1", State: "MD", FileDate: datep(2023, 2, 1), Category: strp("plumbing")},
					{ID: "B-101", PropertyID: "md-1", State: "MD", FileDate: datep(2019, 6, 1), Category: strp("structural")},
				},
			},
			{
				Property: models.PropertyRecord{
					ID: "md-2", State: "MD", City: "Rockville",
					PropertyType: strp("Townhouse"),
					YearBuilt:    intp(2001), Beds: floatp(2), Baths: floatp(1.5),
					SquareFootage: floatp(1200),
					LastSaleDate:  datep(2020, 5, 10), LastSalePrice: floatp(310000),
				},
				Permits: []models.PermitRecord{
					{ID: "B-200", PropertyID: "md-2", State: "MD", FileDate: datep(2018, 3, 1), Category: strp("plumbing")},
				},
			},
			{
				// No sale date, no year built: fails any active sale or year
				// range but stays in unfiltered results.
				Property: models.PropertyRecord{
					ID: "va-1", State: "VA", City: "Arlington",
					Beds: floatp(4), Baths: floatp(3), SquareFootage: floatp(2600),
				},
				Permits: []models.PermitRecord{
					{ID: "P-300", PropertyID: "va-1", State: "VA", FileDate: datep(2022, 9, 1), Category: strp("plumbing")},
				},
			},
		},
	}
}

func TestBuild_ZeroFiltersReturnsFullSet(t *testing.T) {
	ds := testDataset()

	res := Build(ds, Filters{}, nil)

	assert.Equal(t, 3, res.TotalProperties)
	assert.Equal(t, 3, res.MatchingProperties)
	assert.Equal(t, 4, res.MatchingPermits)
	require.Equal(t, 3, res.FinalCount())
	assert.Equal(t, []string{"md-1", "md-2", "va-1"}, res.PropertyIDs())
}

func TestBuild_ResultIsSubset(t *testing.T) {
	ds := testDataset()
	full := len(ds.Matches)

	configs := []Filters{
		{States: []string{"MD"}},
		{MinYearBuilt: intp(1990)},
		{MinSalePrice: floatp(400000)},
		{PermitCategories: []string{"plumbing"}},
		{MinBeds: floatp(3), MaxBaths: floatp(3)},
		{MinSaleToPermitDays: intp(0), MaxSaleToPermitDays: intp(60)},
	}

	for _, f := range configs {
		res := Build(ds, f, nil)
		assert.LessOrEqual(t, res.FinalCount(), full)
		assert.LessOrEqual(t, res.MatchingProperties, full)
	}
}

func TestBuild_RangeFiltersExcludeMissingFields(t *testing.T) {
	ds := testDataset()

	// va-1 has no year built: an active year-built range must reject it.
	res := Build(ds, Filters{MinYearBuilt: intp(1900), MaxYearBuilt: intp(2100)}, nil)
	assert.Equal(t, []string{"md-1", "md-2"}, res.PropertyIDs())

	// va-1 has no sale date: an active sale-year range must reject it.
	res = Build(ds, Filters{MinSaleYear: intp(2000)}, nil)
	assert.Equal(t, []string{"md-1", "md-2"}, res.PropertyIDs())

	// va-1 has no property type: membership filter must reject it.
	res = Build(ds, Filters{PropertyTypes: []string{"Single Family", "Townhouse", "Condo"}}, nil)
	assert.Equal(t, []string{"md-1", "md-2"}, res.PropertyIDs())
}

func TestBuild_StateMembershipIsCaseInsensitive(t *testing.T) {
	res := Build(testDataset(), Filters{States: []string{"va"}}, nil)
	assert.Equal(t, []string{"va-1"}, res.PropertyIDs())
}

func TestBuild_SaleToPermitWindow(t *testing.T) {
	ds := testDataset()

	// md-1 has a permit 31 days after sale; md-2's permit predates its
	// sale by ~800 days; va-1 has no sale date at all.
	res := Build(ds, Filters{MinSaleToPermitDays: intp(0), MaxSaleToPermitDays: intp(90)}, nil)
	assert.Equal(t, []string{"md-1"}, res.PropertyIDs())

	// A window reaching far enough negative admits md-2 too: negative
	// offsets are retained, not discarded.
	res = Build(ds, Filters{MinSaleToPermitDays: intp(-2000), MaxSaleToPermitDays: intp(90)}, nil)
	assert.Equal(t, []string{"md-1", "md-2"}, res.PropertyIDs())
}

func TestBuild_PermitPredicatesPruneAndIntersect(t *testing.T) {
	ds := testDataset()

	res := Build(ds, Filters{PermitCategories: []string{"plumbing"}}, nil)

	// All three properties have a plumbing permit; md-1's structural
	// permit is pruned from its match.
	require.Equal(t, 3, res.FinalCount())
	assert.Equal(t, 3, res.MatchingPermits)
	require.Len(t, res.Matches[0].Permits, 1)
	assert.Equal(t, "B-100", res.Matches[0].Permits[0].ID)

	// Permit year range that only md-1's 2023 permit satisfies: the other
	// properties drop out of the final set entirely.
	res = Build(ds, Filters{MinPermitYear: intp(2023)}, nil)
	assert.Equal(t, []string{"md-1"}, res.PropertyIDs())
	assert.Equal(t, 1, res.MatchingPermits)
}

func TestBuild_ConjunctiveAcrossPredicates(t *testing.T) {
	ds := testDataset()

	res := Build(ds, Filters{
		States:           []string{"MD"},
		MinBeds:          floatp(3),
		PermitCategories: []string{"plumbing"},
	}, nil)

	assert.Equal(t, []string{"md-1"}, res.PropertyIDs())
}

func TestBuild_ExcludeRemovesAudienceProperties(t *testing.T) {
	ds := testDataset()

	res := Build(ds, Filters{}, map[string]struct{}{"md-1": {}})

	assert.Equal(t, 2, res.TotalProperties)
	assert.Equal(t, []string{"md-2", "va-1"}, res.PropertyIDs())
}

func TestBuild_NilDataset(t *testing.T) {
	res := Build(nil, Filters{MinBeds: floatp(1)}, nil)
	assert.Equal(t, 0, res.TotalProperties)
	assert.Empty(t, res.Matches)
}

func TestBuild_DoesNotMutateDataset(t *testing.T) {
	ds := testDataset()
	before := len(ds.Matches[0].Permits)

	res := Build(ds, Filters{PermitCategories: []string{"plumbing"}}, nil)
	res.Matches[0].Permits = append(res.Matches[0].Permits, models.PermitRecord{ID: "extra"})

	assert.Equal(t, before, len(ds.Matches[0].Permits))
}

func TestFiltersIsZero(t *testing.T) {
	assert.True(t, (&Filters{}).IsZero())
	assert.False(t, (&Filters{States: []string{"MD"}}).IsZero())
	assert.False(t, (&Filters{MinPermitYear: intp(2020)}).IsZero())
	assert.False(t, (&Filters{MaxSaleToPermitDays: intp(30)}).IsZero())
}

func TestSelectAudience(t *testing.T) {
	ds := testDataset()
	aud := &models.Audience{Name: "md only", PropertyIDs: []string{"md-1", "md-2"}}

	res := SelectAudience(ds, aud)

	assert.Equal(t, 3, res.TotalProperties)
	assert.Equal(t, 2, res.MatchingProperties)
	assert.Equal(t, []string{"md-1", "md-2"}, res.PropertyIDs())
	assert.Equal(t, 3, res.MatchingPermits)
}
