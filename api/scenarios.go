/*
scenarios.go - Demo data seeding

PURPOSE:
  Seeds a small, recognizable data set for local development and demos:
  a mess with members of every role, a configured month with rates, a
  couple of holidays, and a standing override.

USAGE:
  Triggered from cmd/server with -seed. Idempotent enough for dev use:
  user and month saves upsert or conflict harmlessly.

SEE ALSO:
  - cmd/server/main.go: The -seed flag
*/
package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
)

// SeedDemoData populates the store with a demo mess for the current month.
func (h *Handler) SeedDemoData(ctx context.Context) error {
	now := time.Now()
	today := core.Today()

	users := []*core.User{
		core.NewUser("alice", "Alice Rahman", core.RoleSuperadmin),
		core.NewUser("bashir", "Bashir Ahmed", core.RoleAdmin),
		core.NewUser("chompa", "Chompa Das", core.RoleManager),
		core.NewUser("dipu", "Dipu Hossain", core.RoleUser),
		core.NewUser("esha", "Esha Karim", core.RoleUser),
	}
	for _, u := range users {
		if err := h.Users.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	manager, err := h.Users.GetUser(ctx, "chompa")
	if err != nil {
		return err
	}

	// Opening deposits so month-end charges land on real balances.
	for _, u := range users {
		for _, bt := range []ledger.BalanceType{ledger.BalanceBreakfast, ledger.BalanceLunch, ledger.BalanceDinner} {
			_, err := h.Ledger.Apply(ctx, ledger.ApplyInput{
				UserID:         u.ID,
				BalanceType:    bt,
				Type:           ledger.TxDeposit,
				Amount:         core.NewMoneyFromInt(2000),
				Description:    "Opening deposit",
				IdempotencyKey: "seed:deposit:" + string(u.ID) + ":" + string(bt),
				Actor:          manager,
			})
			if err != nil && !errors.Is(err, core.ErrDuplicateIdempotencyKey) {
				return err
			}
		}
	}

	settings := month.Settings{
		Year:       today.Year(),
		Month:      today.Month(),
		Range:      core.MonthRange(today.Year(), today.Month()),
		LunchRate:  core.NewMoneyFromInt(55),
		DinnerRate: core.NewMoneyFromInt(65),
	}
	admin, err := h.Users.GetUser(ctx, "bashir")
	if err != nil {
		return err
	}
	if _, err := h.Months.Create(ctx, settings, admin); err != nil && !errors.Is(err, core.ErrConflict) {
		return err
	}

	holidays := []calendar.Holiday{
		{
			ID: "seed-victory-day", Name: "Victory Day", Type: calendar.HolidayGovernment,
			Recurring: true, RecurringMonth: time.December, RecurringDay: 16, IsActive: true,
		},
		{
			ID: "seed-may-day", Name: "May Day", Type: calendar.HolidayGovernment,
			Recurring: true, RecurringMonth: time.May, RecurringDay: 1, IsActive: true,
		},
	}
	for _, hd := range holidays {
		if err := h.Holidays.SaveHoliday(ctx, hd); err != nil {
			return err
		}
	}

	// Standing rule: no dinner on the first day of each month (mess cleaning).
	override := rules.Override{
		ID:         "seed-cleaning-day",
		TargetType: rules.TargetGlobal,
		DateSpec:   rules.DateSpec{Kind: rules.SpecRecurring, DaysOfMonth: []int{1}},
		Meals:      rules.SelectDinner,
		Action:     rules.ForceOff,
		Priority:   10,
		IsActive:   true,
		CreatedBy:  admin.ID,
		CreatedAt:  now,
	}
	if err := h.Overrides.SaveOverride(ctx, override); err != nil {
		return err
	}

	log.Printf("[Seed] Loaded demo mess: %d users, month %04d-%02d", len(users), settings.Year, int(settings.Month))
	return nil
}
