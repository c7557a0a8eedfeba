package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Totals(t *testing.T) {
	res := Build(testDataset(), Filters{}, nil)
	s := Summarize(res)

	assert.Equal(t, 3, s.TotalProperties)
	assert.Equal(t, 4, s.TotalPermits)
	// va-1 has no sale date: it stays in the raw totals but out of
	// every sale-relative figure.
	assert.Equal(t, 2, s.WithSaleDate)
}

func TestSummarize_AveragesSkipMissing(t *testing.T) {
	res := Build(testDataset(), Filters{}, nil)
	s := Summarize(res)

	require.NotNil(t, s.AvgBeds)
	assert.InDelta(t, 3.0, *s.AvgBeds, 1e-9)

	// Only two properties carry a year built; the average must not
	// treat va-1's missing value as zero.
	require.NotNil(t, s.AvgYearBuilt)
	assert.InDelta(t, 1994.0, *s.AvgYearBuilt, 1e-9)

	require.NotNil(t, s.AvgSquareFootage)
	assert.InDelta(t, 5650.0/3.0, *s.AvgSquareFootage, 1e-9)
}

func TestSummarize_EmptyResult(t *testing.T) {
	s := Summarize(Result{})

	assert.Equal(t, 0, s.TotalProperties)
	assert.Nil(t, s.AvgBeds)
	assert.Nil(t, s.AvgYearBuilt)
	assert.Empty(t, s.ByState)
}

func TestSummarize_GroupOrdering(t *testing.T) {
	res := Build(testDataset(), Filters{}, nil)
	s := Summarize(res)

	assert.Equal(t, []GroupCount{
		{Key: "Single Family", Count: 1},
		{Key: "Townhouse", Count: 1},
	}, s.ByPropertyType)

	assert.Equal(t, []GroupCount{
		{Key: "MD", Count: 2},
		{Key: "VA", Count: 1},
	}, s.ByState)

	assert.Equal(t, []GroupCount{
		{Key: "plumbing", Count: 3},
		{Key: "structural", Count: 1},
	}, s.PermitsByCategory)

	assert.Equal(t, []YearCount{
		{Year: 2018, Count: 1},
		{Year: 2019, Count: 1},
		{Year: 2022, Count: 1},
		{Year: 2023, Count: 1},
	}, s.PermitsByYear)
}

func TestSummarize_SaleToPermitBuckets(t *testing.T) {
	res := Build(testDataset(), Filters{}, nil)
	s := Summarize(res)

	// md-1's B-100 lands 31 days after the sale (bucket 0), its B-101
	// roughly 3.6 years before it (bucket -4), and md-2's B-200 about
	// 2.2 years before (bucket -3). va-1 contributes nothing.
	assert.Equal(t, []OffsetCount{
		{Years: -4, Count: 1},
		{Years: -3, Count: 1},
		{Years: 0, Count: 1},
	}, s.SaleToPermit)
}

func TestSummarize_MissingFields(t *testing.T) {
	res := Build(testDataset(), Filters{}, nil)
	s := Summarize(res)

	assert.Equal(t, []GroupCount{
		{Key: "baths", Count: 0},
		{Key: "beds", Count: 0},
		{Key: "last_sale_date", Count: 1},
		{Key: "last_sale_price", Count: 1},
		{Key: "property_type", Count: 1},
		{Key: "square_footage", Count: 0},
		{Key: "year_built", Count: 1},
	}, s.MissingFields)
}

func TestOffsetBucket(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{0, 0},
		{31, 0},
		{364, 0},
		{365, 1},
		{800, 2},
		{-1, -1},
		{-365, -1},
		{-366, -2},
		{-801, -3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, offsetBucket(tt.days), "days=%d", tt.days)
	}
}
