package rules_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/rules"
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

func singleDay(id string, target rules.TargetType, userID core.UserID, date core.DayStamp) rules.Override {
	return rules.Override{
		ID:           core.OverrideID(id),
		TargetType:   target,
		TargetUserID: userID,
		DateSpec:     rules.DateSpec{Kind: rules.SpecSingle, Date: date},
		Meals:        rules.SelectBoth,
		Action:       rules.ForceOff,
		IsActive:     true,
		CreatedAt:    time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestMatcher(t *testing.T) (*rules.Matcher, *memory.Memory) {
	t.Helper()
	store := memory.New()
	return rules.NewMatcher(store), store
}

// =============================================================================
// DATE SPEC TESTS
// =============================================================================

func TestDateSpec_Matching(t *testing.T) {
	single := rules.DateSpec{Kind: rules.SpecSingle, Date: day(t, "2026-03-10")}
	assert.True(t, single.Matches(day(t, "2026-03-10")))
	assert.False(t, single.Matches(day(t, "2026-03-11")))

	span := rules.DateSpec{Kind: rules.SpecRange, Range: core.DateRange{
		Start: day(t, "2026-03-10"), End: day(t, "2026-03-15"),
	}}
	assert.True(t, span.Matches(day(t, "2026-03-10")), "range start inclusive")
	assert.True(t, span.Matches(day(t, "2026-03-15")), "range end inclusive")
	assert.False(t, span.Matches(day(t, "2026-03-16")))

	weekly := rules.DateSpec{Kind: rules.SpecRecurring, Weekdays: []time.Weekday{time.Friday}}
	assert.True(t, weekly.Matches(day(t, "2026-03-06")))
	assert.False(t, weekly.Matches(day(t, "2026-03-07")))

	monthly := rules.DateSpec{Kind: rules.SpecRecurring, DaysOfMonth: []int{1, 15}}
	assert.True(t, monthly.Matches(day(t, "2026-03-01")))
	assert.True(t, monthly.Matches(day(t, "2026-04-15")))
	assert.False(t, monthly.Matches(day(t, "2026-03-02")))
}

// =============================================================================
// MATCHING / ORDERING TESTS
// =============================================================================

func TestMatcher_PriorityWins(t *testing.T) {
	// GIVEN: Two overrides covering the same cell with different priorities
	// THEN: The higher priority wins regardless of insertion order

	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	low := singleDay("low", rules.TargetGlobal, "", d)
	low.Priority = 1
	high := singleDay("high", rules.TargetGlobal, "", d)
	high.Priority = 5
	high.Action = rules.ForceOn

	require.NoError(t, store.SaveOverride(ctx, low))
	require.NoError(t, store.SaveOverride(ctx, high))

	winner, err := m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, core.OverrideID("high"), winner.ID)
}

func TestMatcher_SpecificityBreaksPriorityTies(t *testing.T) {
	// GIVEN: Equal-priority overrides targeting user, all_users, and global
	// THEN: user > all_users > global

	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	require.NoError(t, store.SaveOverride(ctx, singleDay("global", rules.TargetGlobal, "", d)))
	require.NoError(t, store.SaveOverride(ctx, singleDay("all", rules.TargetAllUsers, "", d)))
	require.NoError(t, store.SaveOverride(ctx, singleDay("mine", rules.TargetUser, "dipu", d)))

	winner, err := m.Winning(ctx, "dipu", d, "dinner")
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, core.OverrideID("mine"), winner.ID)

	matches, err := m.FindMatching(ctx, "dipu", d, "dinner")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, core.OverrideID("mine"), matches[0].ID)
	assert.Equal(t, core.OverrideID("all"), matches[1].ID)
	assert.Equal(t, core.OverrideID("global"), matches[2].ID)
}

func TestMatcher_RecencyBreaksRemainingTies(t *testing.T) {
	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	older := singleDay("older", rules.TargetGlobal, "", d)
	newer := singleDay("newer", rules.TargetGlobal, "", d)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	require.NoError(t, store.SaveOverride(ctx, older))
	require.NoError(t, store.SaveOverride(ctx, newer))

	winner, err := m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	assert.Equal(t, core.OverrideID("newer"), winner.ID)
}

// =============================================================================
// SCOPE AND FILTER TESTS
// =============================================================================

func TestMatcher_UserTargetedOverride_DoesNotLeak(t *testing.T) {
	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	require.NoError(t, store.SaveOverride(ctx, singleDay("mine", rules.TargetUser, "dipu", d)))

	winner, err := m.Winning(ctx, "esha", d, "lunch")
	require.NoError(t, err)
	assert.Nil(t, winner, "override for another user must not apply")
}

func TestMatcher_MealSelectorFilters(t *testing.T) {
	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	o := singleDay("dinner-only", rules.TargetGlobal, "", d)
	o.Meals = rules.SelectDinner
	require.NoError(t, store.SaveOverride(ctx, o))

	winner, err := m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	assert.Nil(t, winner)

	winner, err = m.Winning(ctx, "dipu", d, "dinner")
	require.NoError(t, err)
	assert.NotNil(t, winner)
}

func TestMatcher_InactiveOverride_Skipped(t *testing.T) {
	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	o := singleDay("off", rules.TargetGlobal, "", d)
	o.IsActive = false
	require.NoError(t, store.SaveOverride(ctx, o))

	winner, err := m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	assert.Nil(t, winner)
}

// =============================================================================
// EXPIRY TESTS
// =============================================================================

func TestMatcher_ExpiredOverride_NoLongerApplies(t *testing.T) {
	// GIVEN: An override with an expiry timestamp
	// WHEN: The clock passes the expiry
	// THEN: The override stops applying even though its date spec matches

	m, store := newTestMatcher(t)
	ctx := context.Background()
	d := day(t, "2026-03-10")

	expiry := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)
	o := singleDay("temp", rules.TargetGlobal, "", d)
	o.ExpiresAt = &expiry
	require.NoError(t, store.SaveOverride(ctx, o))

	m.SetClock(func() time.Time { return expiry.Add(-time.Hour) })
	winner, err := m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	assert.NotNil(t, winner, "still live before expiry")

	m.SetClock(func() time.Time { return expiry.Add(time.Hour) })
	winner, err = m.Winning(ctx, "dipu", d, "lunch")
	require.NoError(t, err)
	assert.Nil(t, winner, "expired override must not govern")
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestOverride_Validate(t *testing.T) {
	d := day(t, "2026-03-10")

	valid := singleDay("ok", rules.TargetGlobal, "", d)
	assert.NoError(t, valid.Validate())

	userMissing := singleDay("bad", rules.TargetUser, "", d)
	assert.Error(t, userMissing.Validate(), "user-targeted override needs a user")

	recurringEmpty := rules.Override{
		ID: "r", TargetType: rules.TargetGlobal,
		DateSpec: rules.DateSpec{Kind: rules.SpecRecurring},
		Meals:    rules.SelectBoth, Action: rules.ForceOff, IsActive: true,
	}
	assert.Error(t, recurringEmpty.Validate(), "recurring spec needs weekdays or days of month")
}
