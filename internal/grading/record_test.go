package grading_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

var t0 = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func at(days int) time.Time { return t0.AddDate(0, 0, days) }

func ptr[T any](v T) *T { return &v }

func rec(id int64, value float64, observed int, expires *int) grading.DatedRecord {
	r := grading.DatedRecord{ID: id, Value: value, ObservedAt: at(observed)}
	if expires != nil {
		r.ExpiresAt = ptr(at(*expires))
	}
	return r
}

var (
	bestAny     = grading.SelectPolicy{Tie: grading.TieBest, Expiry: grading.ExpiryAny}
	bestPrefer  = grading.SelectPolicy{Tie: grading.TieBest, Expiry: grading.ExpiryPreferNonExpired}
	bestOnly    = grading.SelectPolicy{Tie: grading.TieBest, Expiry: grading.ExpiryNonExpiredOnly}
	latestAny   = grading.SelectPolicy{Tie: grading.TieLatest, Expiry: grading.ExpiryAny}
	latestOnly  = grading.SelectPolicy{Tie: grading.TieLatest, Expiry: grading.ExpiryNonExpiredOnly}
	latestPrefr = grading.SelectPolicy{Tie: grading.TieLatest, Expiry: grading.ExpiryPreferNonExpired}
)

func TestSelect(t *testing.T) {
	now := at(30)
	records := []grading.DatedRecord{
		rec(1, 3, 0, ptr(10)), // expired
		rec(2, 5, 1, ptr(20)), // expired, best overall
		rec(3, 2, 5, nil),
		rec(4, 4, 3, ptr(60)),
	}

	tests := []struct {
		name   string
		policy grading.SelectPolicy
		want   int64
	}{
		{"best any", bestAny, 2},
		{"best prefer non-expired", bestPrefer, 4},
		{"best non-expired only", bestOnly, 4},
		{"latest any", latestAny, 3},
		{"latest non-expired only", latestOnly, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grading.Select(records, tt.policy, nil, now)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestSelectTieBreaks(t *testing.T) {
	t.Run("equal values prefer the later observation", func(t *testing.T) {
		got, err := grading.Select([]grading.DatedRecord{rec(1, 4, 2, nil), rec(2, 4, 5, nil)}, bestAny, nil, t0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
	})
	t.Run("equal values and dates prefer the higher id", func(t *testing.T) {
		got, err := grading.Select([]grading.DatedRecord{rec(7, 4, 2, nil), rec(3, 4, 2, nil)}, bestAny, nil, t0)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
	})
	t.Run("latest ignores value", func(t *testing.T) {
		got, err := grading.Select([]grading.DatedRecord{rec(1, 5, 1, nil), rec(2, 1, 2, nil)}, latestAny, nil, t0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
	})
}

func TestSelectExpiry(t *testing.T) {
	now := at(30)
	allExpired := []grading.DatedRecord{rec(1, 3, 0, ptr(10)), rec(2, 4, 1, ptr(10))}

	t.Run("non-expired only falls to nil", func(t *testing.T) {
		got, err := grading.Select(allExpired, bestOnly, nil, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
	t.Run("prefer non-expired falls back to expired", func(t *testing.T) {
		got, err := grading.Select(allExpired, bestPrefer, nil, now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(2), got.ID)
	})
	t.Run("earlier external expiry wins", func(t *testing.T) {
		recs := []grading.DatedRecord{rec(1, 5, 0, ptr(60)), rec(2, 2, 25, nil)}
		got, err := grading.Select(recs, bestOnly, ptr(at(20)), now)
		require.NoError(t, err)
		assert.Nil(t, got, "both records expire at day 20")

		got, err = grading.Select(recs, bestOnly, ptr(at(40)), now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)
	})
	t.Run("expiry exactly now is not expired", func(t *testing.T) {
		got, err := grading.Select([]grading.DatedRecord{rec(1, 3, 0, ptr(30))}, bestOnly, nil, now)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
	t.Run("latest prefer non-expired", func(t *testing.T) {
		recs := []grading.DatedRecord{rec(1, 3, 2, nil), rec(2, 4, 8, ptr(10))}
		got, err := grading.Select(recs, latestPrefr, nil, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
	})
}

func TestSelectEmptyAndCopy(t *testing.T) {
	got, err := grading.Select(nil, bestAny, nil, t0)
	require.NoError(t, err)
	assert.Nil(t, got)

	recs := []grading.DatedRecord{rec(1, 3, 0, nil)}
	got, err = grading.Select(recs, bestAny, nil, t0)
	require.NoError(t, err)
	got.Value = 99
	assert.Equal(t, 3.0, recs[0].Value, "input must not be modified")
}

func TestSelectRejectsZeroPolicy(t *testing.T) {
	_, err := grading.Select([]grading.DatedRecord{rec(1, 3, 0, nil)}, grading.SelectPolicy{}, nil, t0)
	require.ErrorIs(t, err, grading.ErrInvalidPolicy)
}

func TestParseSelectPolicy(t *testing.T) {
	p, err := grading.ParseSelectPolicy("latest", "preferNonExpired")
	require.NoError(t, err)
	assert.Equal(t, latestPrefr, p)

	p, err = grading.ParseSelectPolicy("best", "non_expired_only")
	require.NoError(t, err)
	assert.Equal(t, bestOnly, p)

	_, err = grading.ParseSelectPolicy("highest", "any")
	require.ErrorIs(t, err, grading.ErrInvalidPolicy)
	_, err = grading.ParseSelectPolicy("best", "")
	require.ErrorIs(t, err, grading.ErrInvalidPolicy)
}

func TestSelectSourceValues(t *testing.T) {
	records := map[int][]grading.DatedRecord{
		1: {rec(1, 3, 0, nil), rec(2, 4, 1, nil)},
		2: {rec(3, 8, 0, nil)},
	}
	// task 2 belongs to a course part that expired on day 5
	expiry := func(task int) *time.Time {
		if task == 2 {
			return ptr(at(5))
		}
		return nil
	}
	got, err := grading.SelectSourceValues(records, expiry, bestOnly, at(10))
	require.NoError(t, err)
	assert.Equal(t, map[int]grading.SourceValue{
		1: grading.Present(4),
		2: grading.Absent(),
	}, got)

	_, err = grading.SelectSourceValues(records, nil, grading.SelectPolicy{}, at(10))
	require.ErrorIs(t, err, grading.ErrInvalidPolicy)
}
