package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

func day(t *testing.T, s string) core.DayStamp {
	t.Helper()
	d, err := core.ParseDay(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// DAY COMPARISON TESTS
// =============================================================================

func TestDayStamp_Comparisons_IgnoreTimeOfDay(t *testing.T) {
	// GIVEN: Two timestamps on the same calendar day, hours apart
	// WHEN: Comparing them as days
	// THEN: They are equal

	morning := core.DayOf(time.Date(2026, time.March, 10, 6, 0, 0, 0, time.Local))
	evening := core.DayOf(time.Date(2026, time.March, 10, 23, 59, 0, 0, time.Local))

	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.Before(evening))
	assert.False(t, morning.After(evening))
	assert.True(t, morning.BeforeOrEqual(evening))
}

func TestDayStamp_SaturdayOrdinal(t *testing.T) {
	// GIVEN: Saturdays of March 2026 (7th, 14th, 21st, 28th)
	// THEN: Their ordinals within the month are 1..4

	assert.Equal(t, 1, day(t, "2026-03-07").SaturdayOrdinal())
	assert.Equal(t, 2, day(t, "2026-03-14").SaturdayOrdinal())
	assert.Equal(t, 3, day(t, "2026-03-21").SaturdayOrdinal())
	assert.Equal(t, 4, day(t, "2026-03-28").SaturdayOrdinal())
}

// =============================================================================
// RANGE TESTS
// =============================================================================

func TestDateRange_LengthAndContains(t *testing.T) {
	span := core.DateRange{Start: day(t, "2026-02-01"), End: day(t, "2026-02-28")}

	assert.Equal(t, 28, span.Length(), "February 2026 has 28 days")
	assert.True(t, span.Contains(day(t, "2026-02-01")), "start is inclusive")
	assert.True(t, span.Contains(day(t, "2026-02-28")), "end is inclusive")
	assert.False(t, span.Contains(day(t, "2026-03-01")))
}

func TestMonthRange_CoversWholeMonth(t *testing.T) {
	span := core.MonthRange(2026, time.February)

	assert.True(t, span.Start.Equal(day(t, "2026-02-01")))
	assert.True(t, span.End.Equal(day(t, "2026-02-28")))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, core.DaysBetween(day(t, "2026-01-15"), day(t, "2026-01-15")))
	assert.Equal(t, 30, core.DaysBetween(day(t, "2026-01-01"), day(t, "2026-01-31")))
}
