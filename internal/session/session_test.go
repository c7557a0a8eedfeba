package session

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitscope/internal/engine"
	"permitscope/internal/metrics"
	"permitscope/internal/models"
)

func testManager(t *testing.T, ttl time.Duration) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := metrics.New(prometheus.NewRegistry())
	return NewManager(clock, ttl, slog.Default(), m), clock
}

func smallDataset() *models.Dataset {
	return &models.Dataset{
		States: []string{"MD"},
		Matches: []models.Match{
			{Property: models.PropertyRecord{ID: "a", State: "MD"}},
			{Property: models.PropertyRecord{ID: "b", State: "MD"}},
		},
	}
}

func TestGetOrCreate_NewAndExisting(t *testing.T) {
	mgr, _ := testManager(t, time.Hour)

	s1 := mgr.GetOrCreate("")
	require.NotEmpty(t, s1.ID)

	s2 := mgr.GetOrCreate(s1.ID)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, mgr.Len())

	s3 := mgr.GetOrCreate("no-such-session")
	assert.NotEqual(t, s1.ID, s3.ID)
	assert.Equal(t, 2, mgr.Len())
}

func TestGetOrCreate_EvictsIdleSessions(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)

	s1 := mgr.GetOrCreate("")
	clock.Advance(30 * time.Minute)
	s2 := mgr.GetOrCreate("")
	require.Equal(t, 2, mgr.Len())

	// s1 has now been idle 90 minutes, s2 only 60.
	clock.Advance(time.Hour)
	fresh := mgr.GetOrCreate(s1.ID)
	assert.NotEqual(t, s1.ID, fresh.ID)

	// s2's last touch was 60 minutes ago, inside the TTL.
	assert.Same(t, s2, mgr.GetOrCreate(s2.ID))
}

func TestGetOrCreate_AccessRefreshesTTL(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)

	s := mgr.GetOrCreate("")
	for i := 0; i < 4; i++ {
		clock.Advance(45 * time.Minute)
		require.Same(t, s, mgr.GetOrCreate(s.ID))
	}
}

func TestManager_ZeroTTLNeverEvicts(t *testing.T) {
	mgr, clock := testManager(t, 0)

	s := mgr.GetOrCreate("")
	clock.Advance(365 * 24 * time.Hour)
	assert.Same(t, s, mgr.GetOrCreate(s.ID))
}

func TestState_DatasetResetsFilters(t *testing.T) {
	mgr, _ := testManager(t, time.Hour)
	s := mgr.GetOrCreate("")

	min := 1990
	s.SetFilters(engine.Filters{MinYearBuilt: &min})
	s.SetDataset(smallDataset())

	filters := s.Filters()
	assert.True(t, filters.IsZero())
	assert.NotNil(t, s.Dataset())
}

func TestState_SaveAudience(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)
	s := mgr.GetOrCreate("")

	_, err := s.SaveAudience("early movers", []string{"a"}, clock.Now())
	assert.ErrorIs(t, err, ErrNoDataset)

	s.SetDataset(smallDataset())
	min := 1990
	s.SetFilters(engine.Filters{MinYearBuilt: &min})

	a, err := s.SaveAudience("early movers", []string{"a"}, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, a.PropertyIDs)

	// Saving resets the filter configuration.
	filters := s.Filters()
	assert.True(t, filters.IsZero())

	_, err = s.SaveAudience("early movers", []string{"b"}, clock.Now())
	assert.ErrorIs(t, err, ErrAudienceExists)
}

func TestState_AudienceLookupAndDelete(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)
	s := mgr.GetOrCreate("")
	s.SetDataset(smallDataset())

	_, err := s.SaveAudience("zebra", []string{"a"}, clock.Now())
	require.NoError(t, err)
	_, err = s.SaveAudience("alpha", []string{"b"}, clock.Now())
	require.NoError(t, err)

	got, err := s.Audience("zebra")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.PropertyIDs)

	_, err = s.Audience("missing")
	assert.ErrorIs(t, err, ErrAudienceNotFound)

	all := s.Audiences()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zebra", all[1].Name)

	require.NoError(t, s.DeleteAudience("zebra"))
	assert.ErrorIs(t, s.DeleteAudience("zebra"), ErrAudienceNotFound)
	assert.Len(t, s.Audiences(), 1)
}

func TestState_ExcludedIDsUnion(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)
	s := mgr.GetOrCreate("")
	s.SetDataset(smallDataset())

	_, err := s.SaveAudience("one", []string{"a", "b"}, clock.Now())
	require.NoError(t, err)
	_, err = s.SaveAudience("two", []string{"b", "c"}, clock.Now())
	require.NoError(t, err)

	excluded := s.ExcludedIDs()
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, excluded)
}

func TestState_ClearAudiences(t *testing.T) {
	mgr, clock := testManager(t, time.Hour)
	s := mgr.GetOrCreate("")
	s.SetDataset(smallDataset())

	_, err := s.SaveAudience("one", []string{"a"}, clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, s.ClearAudiences())
	assert.Empty(t, s.Audiences())
	assert.Empty(t, s.ExcludedIDs())
}
