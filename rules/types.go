/*
Package rules holds administrator-authored overrides that force a meal on or
off regardless of the user's own toggle.

KEY INVARIANT:
  Overrides shadow, they never mutate. The user's manual meal record stays
  untouched underneath; when the override expires or is removed, the manual
  record (or the default) reasserts itself.

PRECEDENCE:
  When several overrides match the same (user, date, mealType) cell, the
  winner is chosen by highest priority, then most specific target
  (user > all_users > global), then most recent creation.
*/
package rules

import (
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// OVERRIDE
// =============================================================================

type TargetType string

const (
	TargetUser     TargetType = "user"
	TargetAllUsers TargetType = "all_users"
	TargetGlobal   TargetType = "global"
)

// specificity orders target types for tie-breaking. Higher is more specific.
func (t TargetType) specificity() int {
	switch t {
	case TargetUser:
		return 3
	case TargetAllUsers:
		return 2
	case TargetGlobal:
		return 1
	}
	return 0
}

type Action string

const (
	ForceOn  Action = "force_on"
	ForceOff Action = "force_off"
)

// MealSelector names which meals an override governs.
type MealSelector string

const (
	SelectLunch  MealSelector = "lunch"
	SelectDinner MealSelector = "dinner"
	SelectBoth   MealSelector = "both"
)

// Covers reports whether the selector governs the given meal type.
func (s MealSelector) Covers(mealType string) bool {
	return s == SelectBoth || string(s) == mealType
}

// DateSpec describes which dates an override applies to.
type DateSpecKind string

const (
	SpecSingle    DateSpecKind = "single"
	SpecRange     DateSpecKind = "range"
	SpecRecurring DateSpecKind = "recurring"
)

type DateSpec struct {
	Kind DateSpecKind

	// Single
	Date core.DayStamp

	// Range (inclusive)
	Range core.DateRange

	// Recurring: weekly by weekday and/or monthly by day-of-month.
	Weekdays    []time.Weekday
	DaysOfMonth []int
}

// Matches reports whether the spec covers the given day.
func (s DateSpec) Matches(d core.DayStamp) bool {
	switch s.Kind {
	case SpecSingle:
		return s.Date.Equal(d)
	case SpecRange:
		return s.Range.Contains(d)
	case SpecRecurring:
		for _, wd := range s.Weekdays {
			if d.Weekday() == wd {
				return true
			}
		}
		for _, dom := range s.DaysOfMonth {
			if d.Day() == dom {
				return true
			}
		}
	}
	return false
}

type Override struct {
	ID           core.OverrideID
	TargetType   TargetType
	TargetUserID core.UserID // only for TargetUser
	DateSpec     DateSpec
	Meals        MealSelector
	Action       Action
	Priority     int
	IsActive     bool
	ExpiresAt    *time.Time

	CreatedBy core.UserID
	CreatedAt time.Time
}

// AppliesTo reports whether this override governs the cell at the given time.
// An expired override never applies, regardless of its other fields.
func (o Override) AppliesTo(userID core.UserID, d core.DayStamp, mealType string, now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if o.ExpiresAt != nil && now.After(*o.ExpiresAt) {
		return false
	}
	if o.TargetType == TargetUser && o.TargetUserID != userID {
		return false
	}
	if !o.Meals.Covers(mealType) {
		return false
	}
	return o.DateSpec.Matches(d)
}

// Validate checks the override's shape before saving.
func (o Override) Validate() error {
	switch o.TargetType {
	case TargetUser:
		if o.TargetUserID == "" {
			return core.Invalidf("targetUserId", "required for user-targeted override")
		}
	case TargetAllUsers, TargetGlobal:
	default:
		return core.Invalidf("targetType", "unknown target type %q", o.TargetType)
	}
	if o.Action != ForceOn && o.Action != ForceOff {
		return core.Invalidf("action", "unknown action %q", o.Action)
	}
	switch o.Meals {
	case SelectLunch, SelectDinner, SelectBoth:
	default:
		return core.Invalidf("mealType", "unknown meal selector %q", o.Meals)
	}
	switch o.DateSpec.Kind {
	case SpecSingle:
		if o.DateSpec.Date.IsZero() {
			return core.Invalidf("dateSpec.date", "required for single-date override")
		}
	case SpecRange:
		if o.DateSpec.Range.End.Before(o.DateSpec.Range.Start) {
			return core.Invalidf("dateSpec.range", "end before start")
		}
	case SpecRecurring:
		if len(o.DateSpec.Weekdays) == 0 && len(o.DateSpec.DaysOfMonth) == 0 {
			return core.Invalidf("dateSpec", "recurring override needs weekdays or days of month")
		}
	default:
		return core.Invalidf("dateSpec.kind", "unknown date spec kind %q", o.DateSpec.Kind)
	}
	return nil
}
