package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, in, out string) DateRange {
	t.Helper()
	r, err := NewDateRange(day(in), day(out))
	require.NoError(t, err)
	return r
}

func TestNewDateRange_RejectsEmptyAndInverted(t *testing.T) {
	_, err := NewDateRange(day("2024-01-10"), day("2024-01-10"))
	assert.ErrorIs(t, err, ErrEmptyDateRange)

	_, err = NewDateRange(day("2024-01-15"), day("2024-01-10"))
	assert.ErrorIs(t, err, ErrEmptyDateRange)
}

func TestDateRange_Overlaps(t *testing.T) {
	booked := mustRange(t, "2024-01-10", "2024-01-15")

	testCases := []struct {
		name     string
		checkIn  string
		checkOut string
		overlaps bool
	}{
		{"adjacent after, same-day turnover", "2024-01-15", "2024-01-18", false},
		{"adjacent before, same-day turnover", "2024-01-05", "2024-01-10", false},
		{"overlapping tail", "2024-01-14", "2024-01-20", true},
		{"overlapping head", "2024-01-08", "2024-01-11", true},
		{"fully inside", "2024-01-11", "2024-01-13", true},
		{"fully covering", "2024-01-01", "2024-02-01", true},
		{"identical", "2024-01-10", "2024-01-15", true},
		{"disjoint after", "2024-01-20", "2024-01-25", false},
		{"disjoint before", "2024-01-01", "2024-01-05", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			candidate := mustRange(t, tc.checkIn, tc.checkOut)
			assert.Equal(t, tc.overlaps, booked.Overlaps(candidate))
			assert.Equal(t, tc.overlaps, candidate.Overlaps(booked))
		})
	}
}

func TestDateRange_Nights(t *testing.T) {
	assert.Equal(t, 3, mustRange(t, "2024-01-10", "2024-01-13").Nights())
	assert.Equal(t, 1, mustRange(t, "2024-01-10", "2024-01-11").Nights())

	// A degenerate range cannot be built through NewDateRange, but the
	// calculator still clamps to one night.
	zero := DateRange{CheckIn: day("2024-01-10"), CheckOut: day("2024-01-10")}
	assert.Equal(t, 1, zero.Nights())
}

func TestDateRange_Contains(t *testing.T) {
	r := mustRange(t, "2024-01-10", "2024-01-15")

	assert.True(t, r.Contains(day("2024-01-10")))
	assert.True(t, r.Contains(day("2024-01-14")))
	assert.False(t, r.Contains(day("2024-01-15")), "check-out day is outside the stay")
	assert.False(t, r.Contains(day("2024-01-09")))
}
