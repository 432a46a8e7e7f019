package calendar

import (
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// WEEKEND POLICY - Independent day-off flags
// =============================================================================

// WeekendPolicy composes the weekly day-off flags. SaturdayOff turns every
// Saturday off; the odd/even sub-rules turn off only Saturdays whose ordinal
// in the month (ceil(dayOfMonth/7)) is odd or even.
type WeekendPolicy struct {
	FridayOff       bool
	SaturdayOff     bool
	OddSaturdayOff  bool
	EvenSaturdayOff bool
}

// Validate rejects contradictory Saturday sub-rules at save time.
// Odd and even together would mean "every Saturday" expressed through two
// half-rules; that configuration is always a mistake (use SaturdayOff).
func (p WeekendPolicy) Validate() error {
	if p.OddSaturdayOff && p.EvenSaturdayOff {
		return core.Invalidf("weekendPolicy", "oddSaturdayOff and evenSaturdayOff cannot both be set; use saturdayOff")
	}
	return nil
}

// IsWeekendOff reports whether the date is off under this policy.
func (p WeekendPolicy) IsWeekendOff(d core.DayStamp) bool {
	switch d.Weekday() {
	case time.Friday:
		return p.FridayOff
	case time.Saturday:
		if p.SaturdayOff {
			return true
		}
		ordinal := d.SaturdayOrdinal()
		if p.OddSaturdayOff && ordinal%2 == 1 {
			return true
		}
		if p.EvenSaturdayOff && ordinal%2 == 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// HOLIDAY POLICY - Which holiday types cause a default-off
// =============================================================================

type HolidayPolicy struct {
	GovernmentOff bool
	OptionalOff   bool
	ReligiousOff  bool
}

// CausesOff reports whether a holiday of the given type defaults meals off.
func (p HolidayPolicy) CausesOff(t HolidayType) bool {
	switch t {
	case HolidayGovernment:
		return p.GovernmentOff
	case HolidayOptional:
		return p.OptionalOff
	case HolidayReligious:
		return p.ReligiousOff
	}
	return false
}
