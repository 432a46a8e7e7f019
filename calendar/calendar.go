package calendar

import (
	"context"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// CALENDAR - Combined default-off lookup
// =============================================================================

// Calendar combines holiday reference data with the weekend and holiday
// policies. Policies are snapshots of the process configuration; swap the
// Calendar on config reload rather than mutating it in place.
type Calendar struct {
	store         Store
	weekendPolicy WeekendPolicy
	holidayPolicy HolidayPolicy
}

func New(store Store, weekend WeekendPolicy, holiday HolidayPolicy) (*Calendar, error) {
	if err := weekend.Validate(); err != nil {
		return nil, err
	}
	return &Calendar{store: store, weekendPolicy: weekend, holidayPolicy: holiday}, nil
}

// IsHoliday returns the first active holiday matching the date, or nil.
func (c *Calendar) IsHoliday(ctx context.Context, d core.DayStamp) (*Holiday, error) {
	holidays, err := c.store.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	for i := range holidays {
		if holidays[i].Matches(d) {
			return &holidays[i], nil
		}
	}
	return nil, nil
}

// IsWeekendOff reports whether the date is off under the weekend policy.
func (c *Calendar) IsWeekendOff(d core.DayStamp) bool {
	return c.weekendPolicy.IsWeekendOff(d)
}

// IsDefaultOff reports whether meals default to off on the date: a matching
// holiday whose type the holiday policy turns off, or a weekend-off day.
func (c *Calendar) IsDefaultOff(ctx context.Context, d core.DayStamp) (bool, error) {
	holiday, err := c.IsHoliday(ctx, d)
	if err != nil {
		return false, err
	}
	if holiday != nil && c.holidayPolicy.CausesOff(holiday.Type) {
		return true, nil
	}
	return c.weekendPolicy.IsWeekendOff(d), nil
}

// WeekendPolicy returns the policy snapshot this calendar was built with.
func (c *Calendar) WeekendPolicy() WeekendPolicy { return c.weekendPolicy }

// HolidayPolicy returns the policy snapshot this calendar was built with.
func (c *Calendar) HolidayPolicy() HolidayPolicy { return c.holidayPolicy }
