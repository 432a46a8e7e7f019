package meal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
)

// =============================================================================
// CUTOFF CONFIGURATION
// =============================================================================

// CutoffHours is the same-day toggle deadline per meal, in server-local
// wall-clock hours. After the cutoff a non-privileged user can no longer
// change that day's meal (the kitchen has already planned quantities).
type CutoffHours struct {
	Lunch  int
	Dinner int
}

// DefaultCutoffs: lunch decisions close at 09:00, dinner at 17:00.
func DefaultCutoffs() CutoffHours {
	return CutoffHours{Lunch: 9, Dinner: 17}
}

func (c CutoffHours) For(mealType MealType) int {
	if mealType == Dinner {
		return c.Dinner
	}
	return c.Lunch
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver combines records, overrides, calendar defaults, and month
// finalization into effective statuses and toggle decisions.
type Resolver struct {
	records  Store
	matcher  *rules.Matcher
	calendar *calendar.Calendar
	months   *month.Service
	authz    *core.Authorizer
	log      audit.Log
	cutoffs  CutoffHours

	// now is swappable for tests; cutoff checks compare against it.
	now func() time.Time
}

func NewResolver(records Store, matcher *rules.Matcher, cal *calendar.Calendar, months *month.Service, log audit.Log, cutoffs CutoffHours) *Resolver {
	return &Resolver{
		records:  records,
		matcher:  matcher,
		calendar: cal,
		months:   months,
		authz:    core.NewAuthorizer(),
		log:      log,
		cutoffs:  cutoffs,
		now:      time.Now,
	}
}

// SetClock overrides the clock. Tests only.
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// =============================================================================
// EFFECTIVE STATUS - override > manual > default
// =============================================================================

// EffectiveStatus resolves one cell. Read-only and idempotent: two calls
// with no intervening writes return identical results.
func (r *Resolver) EffectiveStatus(ctx context.Context, userID core.UserID, d core.DayStamp, mealType MealType) (*EffectiveStatus, error) {
	if !ValidMealType(mealType) {
		return nil, core.Invalidf("mealType", "unknown meal type %q", mealType)
	}

	status := &EffectiveStatus{UserID: userID, Date: d, MealType: mealType}

	// 1. Terminal override check. The winning override decides the status
	//    and makes the cell non-togglable; the record underneath survives.
	winning, err := r.matcher.Winning(ctx, userID, d, string(mealType))
	if err != nil {
		return nil, err
	}
	record, err := r.records.GetRecord(ctx, userID, d, mealType)
	if err != nil {
		return nil, err
	}

	if winning != nil {
		status.Source = SourceOverride
		status.OverrideID = winning.ID
		status.IsOn = winning.Action == rules.ForceOn
		status.Count = overrideCount(winning.Action, record)
		status.Togglable = false
		status.ToggleBlock = "governed by override rule"
		return status, nil
	}

	// 2. Explicit record check.
	if record != nil {
		status.Source = SourceManual
		status.IsOn = record.IsOn
		status.Count = record.Count
	} else {
		// 3. Default resolution from the calendar.
		off, err := r.calendar.IsDefaultOff(ctx, d)
		if err != nil {
			return nil, err
		}
		status.Source = SourceDefault
		status.IsOn = !off
		if status.IsOn {
			status.Count = 1
		}
	}

	// Togglability for the owning user without special permissions.
	if err := r.checkToggleWindow(ctx, nil, d, mealType); err != nil {
		status.Togglable = false
		status.ToggleBlock = err.Error()
	} else {
		status.Togglable = true
	}
	return status, nil
}

func overrideCount(action rules.Action, record *Record) int {
	if action == rules.ForceOff {
		return 0
	}
	if record != nil && record.Count > 0 {
		return record.Count
	}
	return 1
}

// StatusRange resolves every day of the range for one user and meal.
// Read path for the calendar view; mutates nothing.
func (r *Resolver) StatusRange(ctx context.Context, userID core.UserID, span core.DateRange, mealType MealType) ([]EffectiveStatus, error) {
	if span.Length() > 31 {
		return nil, core.Invalidf("range", "span exceeds 31 days (%d)", span.Length())
	}
	var statuses []EffectiveStatus
	for _, d := range span.Days() {
		s, err := r.EffectiveStatus(ctx, userID, d, mealType)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *s)
	}
	return statuses, nil
}

// =============================================================================
// TOGGLE
// =============================================================================

// ToggleInput describes one toggle request.
type ToggleInput struct {
	Actor    *core.User
	UserID   core.UserID
	Date     core.DayStamp
	MealType MealType
	IsOn     bool

	// Count defaults to 1 when turning on; forced to 0 when turning off.
	Count int
}

// Toggle upserts the manual record for a cell after checking permission,
// finalization, cutoff, and override shadowing.
func (r *Resolver) Toggle(ctx context.Context, in ToggleInput) (*Record, error) {
	if err := r.validateToggle(in); err != nil {
		return nil, err
	}
	if err := r.CanToggle(ctx, in.Actor, in.UserID, in.Date, in.MealType); err != nil {
		return nil, err
	}
	return r.writeRecord(ctx, in)
}

func (r *Resolver) validateToggle(in ToggleInput) error {
	if in.UserID == "" {
		return core.Invalidf("userId", "required")
	}
	if !ValidMealType(in.MealType) {
		return core.Invalidf("mealType", "unknown meal type %q", in.MealType)
	}
	if in.Date.IsZero() {
		return core.Invalidf("date", "required")
	}
	if in.Count < 0 {
		return core.Invalidf("count", "must be >= 0")
	}
	return nil
}

func (r *Resolver) writeRecord(ctx context.Context, in ToggleInput) (*Record, error) {
	count := in.Count
	if in.IsOn && count == 0 {
		count = 1
	}
	if !in.IsOn {
		count = 0
	}

	record := Record{
		UserID:        in.UserID,
		Date:          in.Date,
		MealType:      in.MealType,
		IsOn:          in.IsOn,
		Count:         count,
		IsManuallySet: true,
		ModifiedBy:    actorID(in.Actor),
		UpdatedAt:     r.now(),
	}
	if err := r.records.UpsertRecord(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CanToggle checks whether the actor may change the cell right now.
//
// Gate order: ownership/permission, finalization, cutoff, override.
// An override governs the cell terminally - even a manager cannot toggle
// through it; the rule itself must be edited or removed.
func (r *Resolver) CanToggle(ctx context.Context, actor *core.User, userID core.UserID, d core.DayStamp, mealType MealType) error {
	if actor != nil {
		perm := core.PermToggleOwnMeal
		if actor.ID != userID {
			perm = core.PermToggleAnyMeal
		}
		if err := r.authz.Check(actor, perm); err != nil {
			return err
		}
	}

	if err := r.checkToggleWindow(ctx, actor, d, mealType); err != nil {
		return err
	}

	winning, err := r.matcher.Winning(ctx, userID, d, string(mealType))
	if err != nil {
		return err
	}
	if winning != nil {
		return &core.OverrideGovernsError{Date: d, MealType: string(mealType), RuleID: string(winning.ID)}
	}
	return nil
}

// checkToggleWindow enforces finalization and cutoff. actor == nil means
// "plain user with no special permissions" (used for display togglability).
func (r *Resolver) checkToggleWindow(ctx context.Context, actor *core.User, d core.DayStamp, mealType MealType) error {
	finalized, settings, err := r.months.IsFinalizedFor(ctx, d)
	if err != nil {
		return err
	}
	if finalized && !r.authz.Has(actor, core.PermForceEdit) {
		return &core.FinalizedMonthError{Year: settings.Year, Month: int(settings.Month)}
	}

	if r.authz.Has(actor, core.PermBypassCutoff) {
		return nil
	}

	now := r.now()
	today := core.DayOf(now)
	cutoff := r.cutoffs.For(mealType)
	switch {
	case d.After(today):
		return nil
	case d.Equal(today):
		if now.Hour() < cutoff {
			return nil
		}
		return &core.CutoffPassedError{Date: d, MealType: string(mealType), CutoffHour: cutoff}
	default:
		return &core.CutoffPassedError{Date: d, MealType: string(mealType), CutoffHour: cutoff}
	}
}

// =============================================================================
// BULK TOGGLE - per-date outcomes, never a single pass/fail
// =============================================================================

// BulkOutcome reports what happened to one date of a bulk toggle.
type BulkOutcome struct {
	Date    core.DayStamp
	Applied bool
	Reason  string // set when skipped
}

// BulkToggle applies a toggle across a date range of at most 31 days.
// Dates are evaluated independently and written concurrently; a date that
// fails its togglability check is skipped with a reason, not aborted.
func (r *Resolver) BulkToggle(ctx context.Context, in ToggleInput, span core.DateRange) ([]BulkOutcome, error) {
	if err := r.validateToggle(ToggleInput{
		Actor: in.Actor, UserID: in.UserID, Date: span.Start, MealType: in.MealType, Count: in.Count,
	}); err != nil {
		return nil, err
	}
	if span.End.Before(span.Start) {
		return nil, core.Invalidf("range", "endDate before startDate")
	}
	if span.Length() > 31 {
		return nil, core.Invalidf("range", "span exceeds 31 days (%d)", span.Length())
	}

	days := span.Days()
	outcomes := make([]BulkOutcome, len(days))
	var wg sync.WaitGroup
	for i, d := range days {
		wg.Add(1)
		go func(i int, d core.DayStamp) {
			defer wg.Done()
			dayInput := in
			dayInput.Date = d
			_, err := r.Toggle(ctx, dayInput)
			if err != nil {
				outcomes[i] = BulkOutcome{Date: d, Applied: false, Reason: err.Error()}
				return
			}
			outcomes[i] = BulkOutcome{Date: d, Applied: true}
		}(i, d)
	}
	wg.Wait()
	return outcomes, nil
}

// =============================================================================
// FORCE EDIT - privileged correction path
// =============================================================================

// ForceEdit writes a record bypassing finalization and cutoff. Requires the
// force-edit permission and writes a correction-history entry before the
// record. Override shadowing still applies to the effective status; the
// edit changes the record underneath.
func (r *Resolver) ForceEdit(ctx context.Context, in ToggleInput, reason string) (*Record, error) {
	if err := r.validateToggle(in); err != nil {
		return nil, err
	}
	if err := r.authz.Check(in.Actor, core.PermForceEdit); err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/%s/%s", in.UserID, in.Date, in.MealType)
	entry := audit.NewEntry(actorID(in.Actor), audit.ActionForceEdit, "mealRecord", target, reason)
	if err := r.log.Append(ctx, entry); err != nil {
		return nil, err
	}
	return r.writeRecord(ctx, in)
}

// =============================================================================
// COUNTS - month-end input
// =============================================================================

// EffectiveCount sums portions across effective-on days in the range.
// Resolver-driven rather than a raw table scan so overrides and defaults
// are respected.
func (r *Resolver) EffectiveCount(ctx context.Context, userID core.UserID, span core.DateRange, mealType MealType) (int, error) {
	total := 0
	for _, d := range span.Days() {
		s, err := r.EffectiveStatus(ctx, userID, d, mealType)
		if err != nil {
			return 0, err
		}
		if s.IsOn {
			total += s.Count
		}
	}
	return total, nil
}

func actorID(actor *core.User) core.UserID {
	if actor == nil {
		return ""
	}
	return actor.ID
}
