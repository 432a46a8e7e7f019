package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(t *testing.T, s string) core.DayStamp {
	t.Helper()
	d, err := core.ParseDay(s)
	require.NoError(t, err)
	return d
}

func newTestCalendar(t *testing.T, weekend calendar.WeekendPolicy, holiday calendar.HolidayPolicy) (*calendar.Calendar, *memory.Memory) {
	t.Helper()
	store := memory.New()
	cal, err := calendar.New(store, weekend, holiday)
	require.NoError(t, err)
	return cal, store
}

// =============================================================================
// WEEKEND POLICY TESTS
// =============================================================================

func TestWeekendPolicy_OddAndEvenSaturday_Rejected(t *testing.T) {
	// GIVEN: Both half-rules for Saturdays set
	// WHEN: Building a calendar
	// THEN: The contradictory policy is rejected as a validation error

	_, err := calendar.New(memory.New(), calendar.WeekendPolicy{
		OddSaturdayOff:  true,
		EvenSaturdayOff: true,
	}, calendar.HolidayPolicy{})

	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestWeekendPolicy_OddSaturdays(t *testing.T) {
	// March 2026 Saturdays: 7th (1st), 14th (2nd), 21st (3rd), 28th (4th)

	p := calendar.WeekendPolicy{OddSaturdayOff: true}

	assert.True(t, p.IsWeekendOff(day(t, "2026-03-07")), "first Saturday is odd")
	assert.False(t, p.IsWeekendOff(day(t, "2026-03-14")), "second Saturday is even")
	assert.True(t, p.IsWeekendOff(day(t, "2026-03-21")))
	assert.False(t, p.IsWeekendOff(day(t, "2026-03-28")))
	assert.False(t, p.IsWeekendOff(day(t, "2026-03-06")), "Friday not covered by Saturday rule")
}

func TestWeekendPolicy_FridayAndEverySaturday(t *testing.T) {
	p := calendar.WeekendPolicy{FridayOff: true, SaturdayOff: true}

	assert.True(t, p.IsWeekendOff(day(t, "2026-03-06")))  // Friday
	assert.True(t, p.IsWeekendOff(day(t, "2026-03-14"))) // Saturday
	assert.False(t, p.IsWeekendOff(day(t, "2026-03-08")), "Sunday is a workday here")
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

func TestCalendar_FixedAndRecurringHolidays(t *testing.T) {
	// GIVEN: A fixed holiday and a recurring one
	// THEN: Matching respects the date vs. the (month, day) pattern

	cal, store := newTestCalendar(t, calendar.WeekendPolicy{}, calendar.HolidayPolicy{GovernmentOff: true})
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "eid-2026", Name: "Eid", Type: calendar.HolidayReligious,
		Date: day(t, "2026-03-20"), IsActive: true,
	}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "victory", Name: "Victory Day", Type: calendar.HolidayGovernment,
		Recurring: true, RecurringMonth: time.December, RecurringDay: 16, IsActive: true,
	}))

	h, err := cal.IsHoliday(ctx, day(t, "2026-03-20"))
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "eid-2026", h.ID)

	h, err = cal.IsHoliday(ctx, day(t, "2026-12-16"))
	require.NoError(t, err)
	require.NotNil(t, h, "recurring holiday matches every year")

	h, err = cal.IsHoliday(ctx, day(t, "2027-12-16"))
	require.NoError(t, err)
	assert.NotNil(t, h)

	h, err = cal.IsHoliday(ctx, day(t, "2026-03-21"))
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestCalendar_InactiveHoliday_Ignored(t *testing.T) {
	cal, store := newTestCalendar(t, calendar.WeekendPolicy{}, calendar.HolidayPolicy{GovernmentOff: true})
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "old", Name: "Suspended", Type: calendar.HolidayGovernment,
		Date: day(t, "2026-03-20"), IsActive: false,
	}))

	h, err := cal.IsHoliday(ctx, day(t, "2026-03-20"))
	require.NoError(t, err)
	assert.Nil(t, h)
}

// =============================================================================
// DEFAULT-OFF COMPOSITION
// =============================================================================

func TestCalendar_IsDefaultOff_HolidayTypeGated(t *testing.T) {
	// GIVEN: Government holidays cause off days, optional ones do not
	// THEN: IsDefaultOff follows the per-type policy

	cal, store := newTestCalendar(t, calendar.WeekendPolicy{},
		calendar.HolidayPolicy{GovernmentOff: true, OptionalOff: false})
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "gov", Name: "Gov", Type: calendar.HolidayGovernment,
		Date: day(t, "2026-03-17"), IsActive: true,
	}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "opt", Name: "Optional", Type: calendar.HolidayOptional,
		Date: day(t, "2026-03-18"), IsActive: true,
	}))

	off, err := cal.IsDefaultOff(ctx, day(t, "2026-03-17"))
	require.NoError(t, err)
	assert.True(t, off)

	off, err = cal.IsDefaultOff(ctx, day(t, "2026-03-18"))
	require.NoError(t, err)
	assert.False(t, off, "optional holidays do not default off under this policy")
}

func TestCalendar_IsDefaultOff_WeekendOrHoliday(t *testing.T) {
	cal, _ := newTestCalendar(t, calendar.WeekendPolicy{FridayOff: true}, calendar.HolidayPolicy{})
	ctx := context.Background()

	off, err := cal.IsDefaultOff(ctx, day(t, "2026-03-06")) // Friday
	require.NoError(t, err)
	assert.True(t, off)

	off, err = cal.IsDefaultOff(ctx, day(t, "2026-03-09")) // Monday
	require.NoError(t, err)
	assert.False(t, off)
}
