/*
Package calendar answers one question for the resolver: is a given date
off by default?

Two independent inputs feed the answer:
  - Holidays: fixed-date or recurring (month/day, year ignored), typed as
    government/optional/religious. The holiday policy decides per type
    whether that holiday causes a default-off.
  - Weekend policy: Friday-off, Saturday-off, and the odd/even Saturday
    sub-rules (Saturday ordinal = ceil(dayOfMonth/7)).
*/
package calendar

import (
	"context"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// HOLIDAY - Fixed or recurring reference data
// =============================================================================

type HolidayType string

const (
	HolidayGovernment HolidayType = "government"
	HolidayOptional   HolidayType = "optional"
	HolidayReligious  HolidayType = "religious"
)

func ValidHolidayType(t HolidayType) bool {
	switch t {
	case HolidayGovernment, HolidayOptional, HolidayReligious:
		return true
	}
	return false
}

type Holiday struct {
	ID   string
	Name string
	Type HolidayType

	// Fixed-date holiday: Date is set, Recurring is false.
	Date core.DayStamp

	// Recurring holiday: matches (RecurringMonth, RecurringDay) every year.
	Recurring      bool
	RecurringMonth time.Month
	RecurringDay   int

	IsActive bool
}

// Matches reports whether the holiday falls on the given day.
func (h Holiday) Matches(d core.DayStamp) bool {
	if !h.IsActive {
		return false
	}
	if h.Recurring {
		return d.Month() == h.RecurringMonth && d.Day() == h.RecurringDay
	}
	return h.Date.Equal(d)
}

// Validate checks the holiday's shape before saving.
func (h Holiday) Validate() error {
	if !ValidHolidayType(h.Type) {
		return core.Invalidf("type", "unknown holiday type %q", h.Type)
	}
	if h.Recurring {
		if h.RecurringMonth < time.January || h.RecurringMonth > time.December {
			return core.Invalidf("recurringMonth", "month out of range")
		}
		if h.RecurringDay < 1 || h.RecurringDay > 31 {
			return core.Invalidf("recurringDay", "day out of range")
		}
		return nil
	}
	if h.Date.IsZero() {
		return core.Invalidf("date", "required for non-recurring holiday")
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store persists holiday reference data. Admin-managed, read-mostly.
type Store interface {
	SaveHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
}
