package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDay(raw)
	require.NoError(t, err)
	return d
}

func TestFromDaysBuildsHalfOpenRange(t *testing.T) {
	dr, err := FromDays(day(t, "2024-06-01"), 4)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01", Format(dr.Start))
	assert.Equal(t, "2024-06-05", Format(dr.End))
	assert.Equal(t, 4, dr.Days())
	assert.True(t, dr.ContainsDate(day(t, "2024-06-04")))
	assert.False(t, dr.ContainsDate(day(t, "2024-06-05")))
}

func TestFromDaysRejectsNonPositiveDuration(t *testing.T) {
	_, err := FromDays(day(t, "2024-06-01"), 0)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = FromDays(day(t, "2024-06-01"), -2)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	existing, err := FromDays(day(t, "2024-06-01"), 4)
	require.NoError(t, err)

	cases := []struct {
		name  string
		start string
		days  int
		want  bool
	}{
		{"tail overlap", "2024-06-04", 2, true},
		{"boundary adjacent after", "2024-06-05", 2, false},
		{"boundary adjacent before", "2024-05-30", 2, false},
		{"head overlap", "2024-05-31", 2, true},
		{"enclosing", "2024-05-20", 30, true},
		{"inside", "2024-06-02", 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proposed, err := FromDays(day(t, tc.start), tc.days)
			require.NoError(t, err)
			assert.Equal(t, tc.want, proposed.Overlaps(existing))
			assert.Equal(t, tc.want, existing.Overlaps(proposed))
		})
	}
}

func TestDayTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 7, 1, 1, 30, 0, 0, loc)

	got := Day(in)

	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDayRejectsGarbage(t *testing.T) {
	_, err := ParseDay("07/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
