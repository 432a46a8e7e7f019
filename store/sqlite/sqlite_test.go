package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
	"github.com/jfemon8/Meal-Management-sub005/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(t *testing.T, s string) core.DayStamp {
	t.Helper()
	d, err := core.ParseDay(s)
	require.NoError(t, err)
	return d
}

func saveUser(t *testing.T, store *sqlite.Store, id core.UserID, role core.Role) *core.User {
	t.Helper()
	u := core.NewUser(id, string(id), role)
	require.NoError(t, store.SaveUser(context.Background(), u))
	return u
}

// =============================================================================
// USER AND BALANCE TESTS
// =============================================================================

func TestStore_Users_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saveUser(t, store, "dipu", core.RoleUser)
	saveUser(t, store, "bashir", core.RoleAdmin)

	u, err := store.GetUser(ctx, "dipu")
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, "0.00", u.Balances["lunch"].Amount.String())

	_, err = store.GetUser(ctx, "ghost")
	var notFound *core.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	active, err := store.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStore_BalanceAndFreeze_Persist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveUser(t, store, "dipu", core.RoleUser)

	require.NoError(t, store.UpdateBalance(ctx, "dipu", ledger.BalanceLunch, core.MustParseMoney("123.45")))
	require.NoError(t, store.SetFrozen(ctx, "dipu", ledger.BalanceDinner, true, "dispute"))

	u, err := store.GetUser(ctx, "dipu")
	require.NoError(t, err)
	assert.Equal(t, "123.45", u.Balances["lunch"].Amount.String())
	assert.True(t, u.Balances["dinner"].IsFrozen)
	assert.Equal(t, "dispute", u.Balances["dinner"].FrozenReason)
	assert.False(t, u.Balances["lunch"].IsFrozen)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_Transactions_RoundTripWithReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveUser(t, store, "dipu", core.RoleUser)

	tx := ledger.Transaction{
		ID:              "tx-1",
		UserID:          "dipu",
		BalanceType:     ledger.BalanceLunch,
		Type:            ledger.TxDeduction,
		Amount:          core.MustParseMoney("-55.50"),
		PreviousBalance: core.NewMoneyFromInt(500),
		NewBalance:      core.MustParseMoney("444.50"),
		Description:     "lunch charges",
		Reference:       &ledger.Reference{Kind: ledger.RefMonthSettings, ID: "ms-1"},
		IdempotencyKey:  "monthend:ms-1:dipu:lunch",
		PerformedBy:     "chompa",
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.AppendTransaction(ctx, tx))

	got, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "-55.50", got.Amount.String())
	assert.Equal(t, "444.50", got.NewBalance.String())
	require.NotNil(t, got.Reference)
	assert.Equal(t, ledger.RefMonthSettings, got.Reference.Kind)
	assert.Equal(t, "ms-1", got.Reference.ID)

	has, err := store.HasIdempotencyKey(ctx, "monthend:ms-1:dipu:lunch")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasIdempotencyKey(ctx, "monthend:ms-2:dipu:lunch")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_Transactions_DuplicateIdempotencyKey(t *testing.T) {
	// The UNIQUE column is the last line of defense under concurrency.

	store := newTestStore(t)
	ctx := context.Background()
	saveUser(t, store, "dipu", core.RoleUser)

	tx := ledger.Transaction{
		ID: "tx-1", UserID: "dipu", BalanceType: ledger.BalanceLunch,
		Type: ledger.TxDeposit, Amount: core.NewMoneyFromInt(100),
		IdempotencyKey: "dup-key", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendTransaction(ctx, tx))

	tx.ID = "tx-2"
	err := store.AppendTransaction(ctx, tx)
	assert.True(t, errors.Is(err, core.ErrDuplicateIdempotencyKey))
}

func TestStore_Transactions_PendingAndCorrection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveUser(t, store, "dipu", core.RoleUser)

	tx := ledger.Transaction{
		ID: "tx-1", UserID: "dipu", BalanceType: ledger.BalanceLunch,
		Type: ledger.TxDeposit, Amount: core.NewMoneyFromInt(100),
		Pending: true, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendTransaction(ctx, tx))

	require.NoError(t, store.ClearPending(ctx, "tx-1"))
	require.NoError(t, store.MarkCorrected(ctx, "tx-1", "bashir"))

	got, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, got.Pending)
	assert.True(t, got.IsCorrected)
	assert.Equal(t, core.UserID("bashir"), got.CorrectedBy)
}

// =============================================================================
// HOLIDAY AND OVERRIDE TESTS
// =============================================================================

func TestStore_Holidays_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "victory", Name: "Victory Day", Type: calendar.HolidayGovernment,
		Recurring: true, RecurringMonth: time.December, RecurringDay: 16, IsActive: true,
	}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{
		ID: "eid", Name: "Eid", Type: calendar.HolidayReligious,
		Date: day(t, "2026-03-20"), IsActive: true,
	}))

	hs, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)

	require.NoError(t, store.DeleteHoliday(ctx, "eid"))
	hs, err = store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "victory", hs[0].ID)
	assert.True(t, hs[0].Recurring)
	assert.Equal(t, time.December, hs[0].RecurringMonth)

	var notFound *core.NotFoundError
	assert.ErrorAs(t, store.DeleteHoliday(ctx, "eid"), &notFound)
}

func TestStore_Overrides_RoundTripAllSpecKinds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expires := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	overrides := []rules.Override{
		{
			ID: "single", TargetType: rules.TargetUser, TargetUserID: "dipu",
			DateSpec: rules.DateSpec{Kind: rules.SpecSingle, Date: day(t, "2026-03-10")},
			Meals:    rules.SelectLunch, Action: rules.ForceOff, Priority: 2,
			IsActive: true, ExpiresAt: &expires, CreatedBy: "bashir",
			CreatedAt: time.Now().UTC(),
		},
		{
			ID: "span", TargetType: rules.TargetAllUsers,
			DateSpec: rules.DateSpec{Kind: rules.SpecRange, Range: core.DateRange{
				Start: day(t, "2026-03-10"), End: day(t, "2026-03-15"),
			}},
			Meals: rules.SelectBoth, Action: rules.ForceOn, IsActive: true,
			CreatedAt: time.Now().UTC(),
		},
		{
			ID: "weekly", TargetType: rules.TargetGlobal,
			DateSpec: rules.DateSpec{Kind: rules.SpecRecurring,
				Weekdays: []time.Weekday{time.Friday}, DaysOfMonth: []int{1}},
			Meals: rules.SelectDinner, Action: rules.ForceOff, IsActive: true,
			CreatedAt: time.Now().UTC(),
		},
	}
	for _, o := range overrides {
		require.NoError(t, store.SaveOverride(ctx, o))
	}

	got, err := store.GetOverride(ctx, "single")
	require.NoError(t, err)
	assert.Equal(t, rules.SpecSingle, got.DateSpec.Kind)
	assert.True(t, got.DateSpec.Date.Equal(day(t, "2026-03-10")))
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expires))

	got, err = store.GetOverride(ctx, "span")
	require.NoError(t, err)
	assert.True(t, got.DateSpec.Range.End.Equal(day(t, "2026-03-15")))
	assert.Nil(t, got.ExpiresAt)

	got, err = store.GetOverride(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Friday}, got.DateSpec.Weekdays)
	assert.Equal(t, []int{1}, got.DateSpec.DaysOfMonth)

	require.NoError(t, store.DeleteOverride(ctx, "weekly"))
	all, err := store.ListOverrides(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// MONTH SETTINGS TESTS
// =============================================================================

func TestStore_Settings_UniqueMonthAndCovering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := month.Settings{
		ID: "ms-1", Year: 2026, Month: time.March,
		Range:      core.MonthRange(2026, time.March),
		LunchRate:  core.MustParseMoney("55.50"),
		DinnerRate: core.NewMoneyFromInt(65),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.SaveSettings(ctx, s))

	dup := s
	dup.ID = "ms-2"
	assert.True(t, errors.Is(store.SaveSettings(ctx, dup), core.ErrConflict))

	covering, err := store.FindCovering(ctx, day(t, "2026-03-15"))
	require.NoError(t, err)
	require.NotNil(t, covering)
	assert.Equal(t, core.SettingsID("ms-1"), covering.ID)
	assert.Equal(t, "55.50", covering.LunchRate.String())

	covering, err = store.FindCovering(ctx, day(t, "2026-04-15"))
	require.NoError(t, err)
	assert.Nil(t, covering, "gaps return nil, not an error")

	byMonth, err := store.GetByMonth(ctx, 2026, time.March)
	require.NoError(t, err)
	require.NotNil(t, byMonth)
	assert.Equal(t, core.SettingsID("ms-1"), byMonth.ID)
}

func TestStore_Settings_FinalizedFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := month.Settings{
		ID: "ms-1", Year: 2026, Month: time.March,
		Range:     core.MonthRange(2026, time.March),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveSettings(ctx, s))

	at := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetFinalized(ctx, "ms-1", true, "bashir", at))

	got, err := store.GetSettings(ctx, "ms-1")
	require.NoError(t, err)
	assert.True(t, got.IsFinalized)
	require.NotNil(t, got.FinalizedAt)
	assert.True(t, got.FinalizedAt.Equal(at))
	assert.Equal(t, core.UserID("bashir"), got.FinalizedBy)

	require.NoError(t, store.SetFinalized(ctx, "ms-1", false, "alice", at))
	got, err = store.GetSettings(ctx, "ms-1")
	require.NoError(t, err)
	assert.False(t, got.IsFinalized)
	assert.Nil(t, got.FinalizedAt)
}

// =============================================================================
// MEAL RECORD TESTS
// =============================================================================

func TestStore_MealRecords_UpsertByCell(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveUser(t, store, "dipu", core.RoleUser)

	r := meal.Record{
		UserID: "dipu", Date: day(t, "2026-03-10"), MealType: meal.Lunch,
		IsOn: true, Count: 2, IsManuallySet: true, ModifiedBy: "dipu",
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.UpsertRecord(ctx, r))

	r.IsOn = false
	r.Count = 0
	require.NoError(t, store.UpsertRecord(ctx, r), "second write replaces the cell")

	got, err := store.GetRecord(ctx, "dipu", day(t, "2026-03-10"), meal.Lunch)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsOn)
	assert.Equal(t, 0, got.Count)

	got, err = store.GetRecord(ctx, "dipu", day(t, "2026-03-10"), meal.Dinner)
	require.NoError(t, err)
	assert.Nil(t, got, "absent cell means use the default")

	records, err := store.ListRecords(ctx, "dipu", core.MonthRange(2026, time.March))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// =============================================================================
// BREAKFAST TESTS
// =============================================================================

func TestStore_Breakfasts_DateUniqueAndParticipants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := charges.Breakfast{
		ID: "b-1", Date: day(t, "2026-03-10"), TotalCost: core.NewMoneyFromInt(90),
		Participants: []charges.Participant{
			{UserID: "dipu", Cost: core.NewMoneyFromInt(45)},
			{UserID: "esha", Cost: core.NewMoneyFromInt(45)},
		},
		CreatedBy: "chompa", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveBreakfast(ctx, b))

	other := b
	other.ID = "b-2"
	assert.True(t, errors.Is(store.SaveBreakfast(ctx, other), core.ErrConflict),
		"one breakfast per date")

	require.NoError(t, store.SetParticipantDeducted(ctx, "b-1", "dipu", true))
	require.NoError(t, store.SetBreakfastFinalized(ctx, "b-1", true))

	got, err := store.GetBreakfast(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, got.IsFinalized)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, core.UserID("dipu"), got.Participants[0].UserID, "participant order preserved")
	assert.True(t, got.Participants[0].Deducted)
	assert.False(t, got.Participants[1].Deducted)

	byDate, err := store.GetBreakfastByDate(ctx, day(t, "2026-03-10"))
	require.NoError(t, err)
	require.NotNil(t, byDate)
	assert.Equal(t, core.BreakfastID("b-1"), byDate.ID)

	// Re-saving the same ID replaces the split in place.
	b.Participants = b.Participants[:1]
	require.NoError(t, store.SaveBreakfast(ctx, b))
	got, err = store.GetBreakfast(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}

// =============================================================================
// AUDIT LOG TESTS
// =============================================================================

func TestStore_AuditLog_AppendAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	targets := []struct{ kind, target string }{
		{"monthSettings", "ms-1"},
		{"monthSettings", "ms-2"},
		{"mealRecord", "dipu/2026-03-10/lunch"},
	}
	for _, e := range targets {
		entry := audit.NewEntry("alice", audit.ActionForceEdit, e.kind, e.target, "correction")
		require.NoError(t, store.Append(ctx, entry))
	}

	got, err := store.List(ctx, "monthSettings", "ms-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ms-1", got[0].TargetID)

	got, err = store.List(ctx, "monthSettings", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
