package charges

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
)

// =============================================================================
// SERVICE
// =============================================================================

// UserDirectory lists the users to charge. The charges package does not own
// user storage; it only needs the active set.
type UserDirectory interface {
	ListActiveUsers(ctx context.Context) ([]core.User, error)
}

// Service posts breakfast and month-end charges through the ledger.
type Service struct {
	breakfasts BreakfastStore
	users      UserDirectory
	ledger     *ledger.Ledger
	resolver   *meal.Resolver
	months     *month.Service
	log        audit.Log
	authz      *core.Authorizer

	// monthLocks serializes charge runs per settings row, so two concurrent
	// runs (scheduler + manual trigger) cannot interleave their
	// read-then-post passes.
	mu         sync.Mutex
	monthLocks map[core.SettingsID]*sync.Mutex

	now func() time.Time
}

func NewService(breakfasts BreakfastStore, users UserDirectory, l *ledger.Ledger, r *meal.Resolver, m *month.Service, log audit.Log) *Service {
	return &Service{
		breakfasts: breakfasts,
		users:      users,
		ledger:     l,
		resolver:   r,
		months:     m,
		log:        log,
		authz:      core.NewAuthorizer(),
		monthLocks: make(map[core.SettingsID]*sync.Mutex),
		now:        time.Now,
	}
}

// SetClock overrides the clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) lockFor(id core.SettingsID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monthLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.monthLocks[id] = m
	}
	return m
}

// =============================================================================
// MONTH-END CHARGE RUN
// =============================================================================

// UserChargeOutcome reports one (user, balance) result of a month-end run.
type UserChargeOutcome struct {
	UserID      core.UserID
	BalanceType ledger.BalanceType
	MealCount   int
	Amount      core.Money
	Charged     bool
	Skipped     string // "already charged", "no meals", "zero rate", or empty
	Error       string
}

// MonthEndReport summarizes one charge run.
type MonthEndReport struct {
	SettingsID core.SettingsID
	Year       int
	Month      int
	Outcomes   []UserChargeOutcome
	Failures   int
}

// RunMonthEnd posts one aggregate lunch and one aggregate dinner deduction
// per user for the month: effective-on meal count (resolver-driven, so
// overrides and defaults are respected) times the active rate.
//
// The run holds the month's advisory lock for its whole read-then-post pass.
// It is idempotent: the (settings, user, balanceType) idempotency key makes
// a rerun after partial failure charge only what is still missing.
//
// The month must be finalized first - charging a month whose records can
// still change would make the charge and the data disagree.
func (s *Service) RunMonthEnd(ctx context.Context, settingsID core.SettingsID, actor *core.User) (*MonthEndReport, error) {
	if err := s.authz.Check(actor, core.PermRunCharges); err != nil {
		return nil, err
	}
	settings, err := s.months.Get(ctx, settingsID)
	if err != nil {
		return nil, err
	}
	if !settings.IsFinalized {
		return nil, fmt.Errorf("month %04d-%02d must be finalized before charging: %w",
			settings.Year, int(settings.Month), core.ErrState)
	}

	lock := s.lockFor(settingsID)
	lock.Lock()
	defer lock.Unlock()

	users, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	report := &MonthEndReport{SettingsID: settingsID, Year: settings.Year, Month: int(settings.Month)}
	for _, u := range users {
		for _, mc := range []struct {
			mealType meal.MealType
			balance  ledger.BalanceType
			rate     core.Money
		}{
			{meal.Lunch, ledger.BalanceLunch, settings.LunchRate},
			{meal.Dinner, ledger.BalanceDinner, settings.DinnerRate},
		} {
			outcome := s.chargeUser(ctx, settings, u, mc.mealType, mc.balance, mc.rate, actor)
			if outcome.Error != "" {
				report.Failures++
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	return report, nil
}

func (s *Service) chargeUser(ctx context.Context, settings *month.Settings, u core.User, mealType meal.MealType, balance ledger.BalanceType, rate core.Money, actor *core.User) UserChargeOutcome {
	outcome := UserChargeOutcome{UserID: u.ID, BalanceType: balance}

	count, err := s.resolver.EffectiveCount(ctx, u.ID, settings.Range, mealType)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.MealCount = count
	if count == 0 {
		outcome.Skipped = "no meals"
		return outcome
	}

	amount := rate.Mul(decimalFromInt(count))
	if amount.IsZero() {
		// A zero rate is a valid "this month is free" configuration; the
		// ledger rejects zero-amount deductions, so don't post one.
		outcome.Skipped = "zero rate"
		return outcome
	}
	outcome.Amount = amount

	_, err = s.ledger.Apply(ctx, ledger.ApplyInput{
		UserID:         u.ID,
		BalanceType:    balance,
		Type:           ledger.TxDeduction,
		Amount:         amount.Neg(),
		Description:    fmt.Sprintf("%s charges %04d-%02d (%d meals @ %s)", mealType, settings.Year, int(settings.Month), count, rate),
		Reference:      &ledger.Reference{Kind: ledger.RefMonthSettings, ID: string(settings.ID)},
		IdempotencyKey: monthEndKey(settings.ID, u.ID, balance),
		Actor:          actor,
	})
	switch {
	case err == nil:
		outcome.Charged = true
	case errors.Is(err, core.ErrDuplicateIdempotencyKey):
		outcome.Skipped = "already charged"
	default:
		outcome.Error = err.Error()
	}
	return outcome
}

func monthEndKey(settingsID core.SettingsID, userID core.UserID, balance ledger.BalanceType) string {
	return fmt.Sprintf("monthend:%s:%s:%s", settingsID, userID, balance)
}

func actorID(actor *core.User) core.UserID {
	if actor == nil {
		return ""
	}
	return actor.ID
}
