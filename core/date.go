package core

import (
	"time"
)

// =============================================================================
// DAY STAMP - Day-granularity time abstraction (meal cells are keyed by day)
// =============================================================================

// DayStamp identifies one calendar day. All meal records, holidays, and
// month boundaries operate at day granularity; hours only matter for the
// same-day cutoff check, which uses the wall clock directly.
type DayStamp struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) DayStamp {
	return DayStamp{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DayOf(t time.Time) DayStamp {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() DayStamp {
	return DayOf(time.Now())
}

// ParseDay parses a "2006-01-02" date string.
func ParseDay(s string) (DayStamp, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DayStamp{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (d DayStamp) Before(other DayStamp) bool        { return d.normalize().Before(other.normalize()) }
func (d DayStamp) Equal(other DayStamp) bool         { return d.normalize().Equal(other.normalize()) }
func (d DayStamp) After(other DayStamp) bool         { return d.normalize().After(other.normalize()) }
func (d DayStamp) BeforeOrEqual(other DayStamp) bool { return d.Before(other) || d.Equal(other) }
func (d DayStamp) AfterOrEqual(other DayStamp) bool  { return d.After(other) || d.Equal(other) }

func (d DayStamp) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d DayStamp) AddDays(n int) DayStamp   { return DayStamp{Time: d.Time.AddDate(0, 0, n)} }
func (d DayStamp) AddMonths(n int) DayStamp { return DayStamp{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d DayStamp) Year() int             { return d.Time.Year() }
func (d DayStamp) Month() time.Month     { return d.Time.Month() }
func (d DayStamp) Day() int              { return d.Time.Day() }
func (d DayStamp) Weekday() time.Weekday { return d.Time.Weekday() }
func (d DayStamp) IsZero() bool          { return d.Time.IsZero() }

// SaturdayOrdinal returns which Saturday of the month this is (1-5).
// Defined as ceil(dayOfMonth / 7); only meaningful when Weekday() == Saturday.
func (d DayStamp) SaturdayOrdinal() int {
	return (d.Day() + 6) / 7
}

func (d DayStamp) String() string {
	return d.Time.Format("2006-01-02")
}

// =============================================================================
// DATE RANGE
// =============================================================================

// DateRange is an inclusive [Start, End] span of days.
type DateRange struct {
	Start DayStamp
	End   DayStamp
}

// Contains returns true if the day falls within [Start, End].
func (r DateRange) Contains(d DayStamp) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every day in the range, in order.
func (r DateRange) Days() []DayStamp {
	var days []DayStamp
	current := r.Start
	for current.BeforeOrEqual(r.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Length returns the number of days in the range (inclusive).
func (r DateRange) Length() int {
	return DaysBetween(r.Start, r.End) + 1
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

func DaysBetween(from, to DayStamp) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) DayStamp { return NewDay(year, month, 1) }

func EndOfMonth(year int, month time.Month) DayStamp {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DayOf(t)
}

// MonthRange returns the full calendar-month range for (year, month).
func MonthRange(year int, month time.Month) DateRange {
	return DateRange{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}
