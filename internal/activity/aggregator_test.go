package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tourneyhub/tourneyhub/client-core/pkg/metrics"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// countingRepo records the limits each tier was asked for.
type countingRepo struct {
	*MemoryRepository
	recentLimits []int
	scanLimits   []int
}

func (c *countingRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	c.recentLimits = append(c.recentLimits, limit)
	return c.MemoryRepository.Recent(ctx, limit)
}

func (c *countingRepo) Scan(ctx context.Context, limit int) ([]Record, error) {
	c.scanLimits = append(c.scanLimits, limit)
	return c.MemoryRepository.Scan(ctx, limit)
}

func loginFixture() []Record {
	return []Record{
		{ID: "1", UserID: "u1", Email: "a@x.io", ActivityType: TypeLogin, Timestamp: ts("2024-01-03T10:00:00Z"), CreatedAt: "2024-01-03T10:00:00.000Z"},
		{ID: "2", UserID: "u2", ActivityType: TypeLogin, Metadata: map[string]interface{}{"email": "b@x.io"}, CreatedAt: "2024-01-05T08:00:00.000Z"},
		{ID: "3", UserID: "u3", ActivityType: TypeLogin, CreatedAt: "2024-01-06T08:00:00.000Z"},
		{ID: "4", Email: "nouser@x.io", ActivityType: TypeLogin, CreatedAt: "2024-01-07T08:00:00.000Z"},
		{ID: "5", UserID: "u1", Email: "a@x.io", ActivityType: TypeLogout, CreatedAt: "2024-01-08T08:00:00.000Z"},
		{ID: "6", UserID: "u4", Email: "d@x.io", ActivityType: TypeLogin, Timestamp: ts("2024-01-04T12:00:00Z"), CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "1", UserID: "u1", Email: "a@x.io", ActivityType: TypeLogin, Timestamp: ts("2024-01-03T10:00:00Z"), CreatedAt: "2024-01-03T10:00:00.000Z"},
	}
}

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestListByTypeFiltersSortsAndDedupes(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository(loginFixture()...)}
	agg := NewAggregator(repo)

	got := agg.ListByType(context.Background(), TypeLogin, 10)
	require.Equal(t, []string{"2", "6", "1"}, ids(got))
	require.Equal(t, []int{30}, repo.recentLimits)
	require.Empty(t, repo.scanLimits)
}

func TestListByTypeExcludesRecordsWithoutEmail(t *testing.T) {
	agg := NewAggregator(NewMemoryRepository(
		Record{ID: "a", UserID: "u1", ActivityType: TypeLogin, CreatedAt: "2024-01-01"},
		Record{ID: "b", UserID: "u1", ActivityType: TypeLogin, Metadata: map[string]interface{}{"email": 42}, CreatedAt: "2024-01-02"},
	))
	require.Empty(t, agg.ListByType(context.Background(), TypeLogin, 10))
}

func TestListByTypeTruncates(t *testing.T) {
	var recs []Record
	for i := 0; i < 20; i++ {
		recs = append(recs, Record{
			ID:           fmt.Sprintf("r%02d", i),
			UserID:       "u",
			Email:        "u@x.io",
			ActivityType: TypeSignup,
			CreatedAt:    fmt.Sprintf("2024-02-%02dT00:00:00.000Z", i+1),
		})
	}
	agg := NewAggregator(NewMemoryRepository(recs...))
	got := agg.ListByType(context.Background(), TypeSignup, 3)
	require.Equal(t, []string{"r19", "r18", "r17"}, ids(got))
}

func TestListByTypeFallsBackOnMissingIndex(t *testing.T) {
	mem := NewMemoryRepository(loginFixture()...)
	mem.RecentErr = fmt.Errorf("%w: hint provided does not correspond to an existing index", ErrMissingIndex)
	repo := &countingRepo{MemoryRepository: mem}
	agg := NewAggregator(repo)

	before := testutil.ToFloat64(metrics.ActivityQueries.WithLabelValues("unordered", "ok"))
	got := agg.ListByType(context.Background(), TypeLogin, 2)
	require.Equal(t, []string{"2", "6"}, ids(got))
	require.Equal(t, []int{6}, repo.recentLimits)
	require.Equal(t, []int{10}, repo.scanLimits)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ActivityQueries.WithLabelValues("unordered", "ok")))
}

func TestListByTypeDegradesToEmpty(t *testing.T) {
	mem := NewMemoryRepository(loginFixture()...)
	mem.RecentErr = ErrMissingIndex
	mem.ScanErr = errors.New("unavailable")
	agg := NewAggregator(mem)

	got := agg.ListByType(context.Background(), TypeLogin, 5)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestListByTypeGenericPrimaryFailureDoesNotFallBack(t *testing.T) {
	mem := NewMemoryRepository(loginFixture()...)
	mem.RecentErr = errors.New("permission denied")
	repo := &countingRepo{MemoryRepository: mem}
	agg := NewAggregator(repo)

	require.Empty(t, agg.ListByType(context.Background(), TypeLogin, 5))
	require.Empty(t, repo.scanLimits)
}

func TestListByTypeRejectsBadInput(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository(loginFixture()...)}
	agg := NewAggregator(repo)
	require.Empty(t, agg.ListByType(context.Background(), Type("admin_login"), 5))
	require.Empty(t, agg.ListByType(context.Background(), TypeLogin, 0))
	require.Empty(t, repo.recentLimits)
}

func TestWithOverFetch(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository()}
	repo.RecentErr = ErrMissingIndex
	agg := NewAggregator(repo, WithOverFetch(2, 0))
	agg.ListByType(context.Background(), TypeLogin, 4)
	require.Equal(t, []int{8}, repo.recentLimits)
	require.Equal(t, []int{20}, repo.scanLimits)
}

func TestComputeStats(t *testing.T) {
	agg := NewAggregator(NewMemoryRepository(
		Record{ID: "1", UserID: "u1", ActivityType: TypeLogin, CreatedAt: "2024-01-01"},
		Record{ID: "2", UserID: "u2", ActivityType: TypeLogin, CreatedAt: "2024-01-01"},
		Record{ID: "3", UserID: "u1", ActivityType: TypeSignup, CreatedAt: "2024-01-02"},
	))

	stats := agg.ComputeStats(context.Background(), nil, nil)
	require.NotNil(t, stats)
	require.Equal(t, 2, stats.TotalLogins)
	require.Equal(t, 1, stats.TotalSignups)
	require.Equal(t, 0, stats.TotalLogouts)
	require.Equal(t, 2, stats.UniqueUsers)
	require.Equal(t, 2, stats.ByDate["2024-01-01"].Logins)
	require.Equal(t, 1, stats.ByDate["2024-01-02"].Signups)
	require.Len(t, stats.ByDate, 2)
}

func TestComputeStatsRangeAndTimestamps(t *testing.T) {
	agg := NewAggregator(NewMemoryRepository(
		Record{ID: "a", UserID: "u1", ActivityType: TypeLogin, Timestamp: ts("2024-03-01T23:30:00-02:00")},
		Record{ID: "b", UserID: "u2", ActivityType: TypeLogout, CreatedAt: "2024-03-02T10:00:00.000Z"},
		Record{ID: "c", UserID: "u3", ActivityType: TypeSignup, CreatedAt: "2024-03-03T00:00:00.000Z"},
		Record{ID: "d", UserID: "u4", ActivityType: TypeLogin},
		Record{ID: "e", UserID: "u5", ActivityType: TypeLogin, CreatedAt: "yesterday"},
		Record{ID: "f", UserID: "u6", ActivityType: TypeRoleChange, CreatedAt: "2024-03-02T11:00:00Z"},
		Record{ID: "g", UserID: "u7", ActivityType: TypeLogin, CreatedAt: "2024-02-28T11:00:00Z"},
	))

	start := ts("2024-03-01T00:00:00Z")
	end := ts("2024-03-03T00:00:00Z")
	stats := agg.ComputeStats(context.Background(), start, end)
	require.NotNil(t, stats)

	// "a" is 2024-03-02 01:30 UTC; "c" sits on the exclusive end bound
	require.Equal(t, 1, stats.TotalLogins)
	require.Equal(t, 1, stats.TotalLogouts)
	require.Equal(t, 0, stats.TotalSignups)
	require.Equal(t, 3, stats.UniqueUsers)
	require.Equal(t, DayStats{Logins: 1, Logouts: 1}, stats.ByDate["2024-03-02"])
	require.Len(t, stats.ByDate, 1)
}

func TestComputeStatsUnavailable(t *testing.T) {
	mem := NewMemoryRepository()
	mem.ScanErr = errors.New("offline")
	require.Nil(t, NewAggregator(mem).ComputeStats(context.Background(), nil, nil))
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := NewAggregator(NewMemoryRepository()).ComputeStats(context.Background(), nil, nil)
	require.NotNil(t, stats)
	require.Zero(t, stats.UniqueUsers)
	require.Empty(t, stats.ByDate)
}
