package charges_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
	"github.com/jfemon8/Meal-Management-sub005/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	svc    *charges.Service
	ledger *ledger.Ledger
	months *month.Service
	store  *memory.Memory

	manager *core.User
	super   *core.User
}

func day(t *testing.T, s string) core.DayStamp {
	t.Helper()
	d, err := core.ParseDay(s)
	require.NoError(t, err)
	return d
}

// newFixture wires the full posting stack over the in-memory store with no
// weekend policy, so every day defaults to meals-on.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()

	cal, err := calendar.New(store, calendar.WeekendPolicy{}, calendar.HolidayPolicy{})
	require.NoError(t, err)

	months := month.NewService(store, store)
	resolver := meal.NewResolver(store, rules.NewMatcher(store), cal, months, store, meal.DefaultCutoffs())
	led := ledger.New(store)
	svc := charges.NewService(store, store, led, resolver, months, store)

	f := &fixture{
		svc:     svc,
		ledger:  led,
		months:  months,
		store:   store,
		manager: core.NewUser("chompa", "Chompa", core.RoleManager),
		super:   core.NewUser("alice", "Alice", core.RoleSuperadmin),
	}
	store.AddUser(f.manager)
	store.AddUser(f.super)
	return f
}

func (f *fixture) addUser(id core.UserID) *core.User {
	u := core.NewUser(id, string(id), core.RoleUser)
	f.store.AddUser(u)
	return u
}

func (f *fixture) balance(t *testing.T, id core.UserID, balanceType ledger.BalanceType) string {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Balances[string(balanceType)].Amount.String()
}

// =============================================================================
// COST SPLIT TESTS
// =============================================================================

func TestSplitCost_LargestRemainder(t *testing.T) {
	// 99 across 4 people stays in whole units: the three earliest carry the
	// extra, nobody pays a fractional 24.75.

	shares, err := charges.SplitCost(core.NewMoneyFromInt(99), 4)
	require.NoError(t, err)

	require.Len(t, shares, 4)
	assert.Equal(t, "25.00", shares[0].String())
	assert.Equal(t, "25.00", shares[1].String())
	assert.Equal(t, "25.00", shares[2].String())
	assert.Equal(t, "24.00", shares[3].String())

	// A total carrying cents splits at cent granularity instead.
	shares, err = charges.SplitCost(core.MustParseMoney("0.99"), 4)
	require.NoError(t, err)
	assert.Equal(t, "0.25", shares[0].String())
	assert.Equal(t, "0.25", shares[1].String())
	assert.Equal(t, "0.25", shares[2].String())
	assert.Equal(t, "0.24", shares[3].String())
}

func TestSplitCost_SharesAlwaysSumToTotal(t *testing.T) {
	// No cent may appear or vanish, whatever the divisor.

	totals := []string{"100.00", "99.99", "0.01", "333.33", "1.00"}
	for _, ts := range totals {
		for n := 1; n <= 7; n++ {
			total := core.MustParseMoney(ts)
			shares, err := charges.SplitCost(total, n)
			require.NoError(t, err, "%s / %d", ts, n)

			sum := core.ZeroMoney()
			for _, s := range shares {
				sum = sum.Add(s)
			}
			assert.True(t, sum.Equal(total), "%s / %d summed to %s", ts, n, sum)
		}
	}
}

func TestSplitCost_Rejections(t *testing.T) {
	_, err := charges.SplitCost(core.NewMoneyFromInt(100), 0)
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = charges.SplitCost(core.NewMoneyFromInt(-5), 3)
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = charges.SplitCost(core.MustParseMoney("10.005"), 3)
	assert.True(t, errors.Is(err, core.ErrValidation), "sub-cent totals cannot split exactly")
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestService_CreateBreakfast_SplitsAndStores(t *testing.T) {
	f := newFixture(t)
	f.addUser("dipu")
	f.addUser("esha")
	f.addUser("farid")
	ctx := context.Background()

	b, err := f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.MustParseMoney("0.99"),
		[]core.UserID{"dipu", "esha", "farid"}, f.manager)
	require.NoError(t, err)

	require.Len(t, b.Participants, 3)
	assert.Equal(t, "0.33", b.Participants[0].Cost.String())
	assert.Equal(t, "0.33", b.Participants[1].Cost.String())
	assert.Equal(t, "0.33", b.Participants[2].Cost.String())
	assert.False(t, b.IsFinalized)

	_, err = f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.NewMoneyFromInt(50),
		[]core.UserID{"dipu"}, f.manager)
	assert.True(t, errors.Is(err, core.ErrConflict), "one breakfast per date")
}

func TestService_CreateBreakfast_FinalizedMonthLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.months.Create(ctx, month.Settings{
		Year: 2026, Month: time.March,
		Range:      core.MonthRange(2026, time.March),
		LunchRate:  core.NewMoneyFromInt(55),
		DinnerRate: core.NewMoneyFromInt(65),
	}, f.super)
	require.NoError(t, err)
	require.NoError(t, f.months.Finalize(ctx, created.ID, f.super))

	_, err = f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.NewMoneyFromInt(90),
		[]core.UserID{"dipu"}, f.manager)
	var finalized *core.FinalizedMonthError
	assert.ErrorAs(t, err, &finalized)
}

func TestService_CreateBreakfast_RequiresPermission(t *testing.T) {
	f := newFixture(t)
	plain := f.addUser("dipu")

	_, err := f.svc.CreateBreakfast(context.Background(), day(t, "2026-03-10"),
		core.NewMoneyFromInt(90), []core.UserID{"dipu"}, plain)
	assert.True(t, errors.Is(err, core.ErrPermission))
}

// =============================================================================
// POSTING TESTS
// =============================================================================

func TestService_PostBreakfastCharges_DeductsAndFinalizes(t *testing.T) {
	// GIVEN: A 90 breakfast across three users
	// WHEN: Posting charges
	// THEN: Each breakfast balance drops 30 and the breakfast finalizes

	f := newFixture(t)
	f.addUser("dipu")
	f.addUser("esha")
	f.addUser("farid")
	ctx := context.Background()

	b, err := f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.NewMoneyFromInt(90),
		[]core.UserID{"dipu", "esha", "farid"}, f.manager)
	require.NoError(t, err)

	report, err := f.svc.PostBreakfastCharges(ctx, b.ID, f.manager)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Failures)
	assert.True(t, report.Finalized)
	assert.Equal(t, "-30.00", f.balance(t, "dipu", ledger.BalanceBreakfast))
	assert.Equal(t, "-30.00", f.balance(t, "esha", ledger.BalanceBreakfast))

	_, err = f.svc.PostBreakfastCharges(ctx, b.ID, f.manager)
	assert.True(t, errors.Is(err, core.ErrState), "finalized breakfast rejects another pass")
}

func TestService_PostBreakfastCharges_PartialFailureThenRerun(t *testing.T) {
	// GIVEN: One participant's breakfast balance frozen
	// WHEN: Posting, unfreezing, and posting again
	// THEN: First pass charges the others and stays open; the rerun charges
	//       only the missing participant and finalizes

	f := newFixture(t)
	f.addUser("dipu")
	f.addUser("esha")
	ctx := context.Background()

	b, err := f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.NewMoneyFromInt(60),
		[]core.UserID{"dipu", "esha"}, f.manager)
	require.NoError(t, err)

	require.NoError(t, f.store.SetFrozen(ctx, "esha", ledger.BalanceBreakfast, true, "dispute"))

	report, err := f.svc.PostBreakfastCharges(ctx, b.ID, f.manager)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.False(t, report.Finalized)
	assert.Equal(t, "-30.00", f.balance(t, "dipu", ledger.BalanceBreakfast))
	assert.Equal(t, "0.00", f.balance(t, "esha", ledger.BalanceBreakfast))

	require.NoError(t, f.store.SetFrozen(ctx, "esha", ledger.BalanceBreakfast, false, ""))

	report, err = f.svc.PostBreakfastCharges(ctx, b.ID, f.manager)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failures)
	assert.True(t, report.Finalized)
	assert.Equal(t, "-30.00", f.balance(t, "dipu", ledger.BalanceBreakfast), "no double charge on rerun")
	assert.Equal(t, "-30.00", f.balance(t, "esha", ledger.BalanceBreakfast))
}

// =============================================================================
// CORRECTION TESTS
// =============================================================================

func TestService_CorrectBreakfast_RefundsAndResplits(t *testing.T) {
	// GIVEN: A posted 90-across-3 breakfast
	// WHEN: A superadmin corrects it to 120 across 2
	// THEN: Every posted share is refunded, the new split replaces the old,
	//       and the breakfast reopens for posting

	f := newFixture(t)
	f.addUser("dipu")
	f.addUser("esha")
	f.addUser("farid")
	ctx := context.Background()

	b, err := f.svc.CreateBreakfast(ctx, day(t, "2026-03-10"), core.NewMoneyFromInt(90),
		[]core.UserID{"dipu", "esha", "farid"}, f.manager)
	require.NoError(t, err)
	_, err = f.svc.PostBreakfastCharges(ctx, b.ID, f.manager)
	require.NoError(t, err)

	_, err = f.svc.CorrectBreakfast(ctx, b.ID, core.NewMoneyFromInt(120),
		[]core.UserID{"dipu", "esha"}, "farid was absent", f.manager)
	assert.True(t, errors.Is(err, core.ErrPermission), "corrections are privileged")

	updated, err := f.svc.CorrectBreakfast(ctx, b.ID, core.NewMoneyFromInt(120),
		[]core.UserID{"dipu", "esha"}, "farid was absent", f.super)
	require.NoError(t, err)

	require.Len(t, updated.Participants, 2)
	assert.Equal(t, "60.00", updated.Participants[0].Cost.String())
	assert.False(t, updated.IsFinalized)

	// Old deductions refunded; nothing new posted yet.
	assert.Equal(t, "0.00", f.balance(t, "dipu", ledger.BalanceBreakfast))
	assert.Equal(t, "0.00", f.balance(t, "farid", ledger.BalanceBreakfast))

	entries, err := f.store.List(ctx, "breakfast", string(b.ID))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "farid was absent", entries[0].Reason)
}
