/*
Package month manages month settings: the active lunch/dinner rates for a
date range, and the finalization flag that freezes a month's meal and
breakfast data.

FINALIZATION IS ONE-WAY:
  Finalize() cannot be undone through the public path. ForceUnfinalize exists
  for privileged correction only and writes a correction-history entry.

RATE GAPS ARE FATAL:
  ActiveRate fails with NoActiveRateError when a date falls between
  configured months. Charge application treats that as fatal for the date;
  it never silently defaults to zero.
*/
package month

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// SETTINGS
// =============================================================================

type Settings struct {
	ID    core.SettingsID
	Year  int
	Month time.Month

	// Range is the inclusive charging span, at most 31 days. It usually
	// matches the calendar month but may be shifted (e.g. 26th to 25th).
	Range core.DateRange

	LunchRate  core.Money
	DinnerRate core.Money

	IsFinalized bool
	FinalizedAt *time.Time
	FinalizedBy core.UserID

	CreatedAt time.Time
}

// Rates bundles the per-meal rates active for a date.
type Rates struct {
	Lunch  core.Money
	Dinner core.Money
}

// Validate checks the settings' shape. The 31-day cap keeps a month's charge
// run bounded and matches the maximum calendar month length.
func (s Settings) Validate() error {
	if s.Year < 2000 || s.Year > 2200 {
		return core.Invalidf("year", "out of range")
	}
	if s.Month < time.January || s.Month > time.December {
		return core.Invalidf("month", "out of range")
	}
	if s.Range.Start.IsZero() || s.Range.End.IsZero() {
		return core.Invalidf("range", "startDate and endDate required")
	}
	if s.Range.End.Before(s.Range.Start) {
		return core.Invalidf("range", "endDate before startDate")
	}
	if s.Range.Length() > 31 {
		return core.Invalidf("range", "span exceeds 31 days (%d)", s.Range.Length())
	}
	if s.LunchRate.IsNegative() || s.DinnerRate.IsNegative() {
		return core.Invalidf("rates", "rates must be non-negative")
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store persists month settings. SaveSettings must reject a second row for
// the same (year, month) with core.ErrConflict.
type Store interface {
	SaveSettings(ctx context.Context, s Settings) error
	GetSettings(ctx context.Context, id core.SettingsID) (*Settings, error)
	GetByMonth(ctx context.Context, year int, m time.Month) (*Settings, error)

	// FindCovering returns the settings whose range contains the day,
	// or nil if the day falls in a gap.
	FindCovering(ctx context.Context, d core.DayStamp) (*Settings, error)

	ListSettings(ctx context.Context) ([]Settings, error)
	SetFinalized(ctx context.Context, id core.SettingsID, finalized bool, by core.UserID, at time.Time) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service wraps the store with validation, authorization, and the audited
// force-unfinalize path.
type Service struct {
	store Store
	authz *core.Authorizer
	log   audit.Log
	now   func() time.Time
}

func NewService(store Store, log audit.Log) *Service {
	return &Service{
		store: store,
		authz: core.NewAuthorizer(),
		log:   log,
		now:   time.Now,
	}
}

// SetClock overrides the clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create validates and persists new month settings.
func (s *Service) Create(ctx context.Context, settings Settings, actor *core.User) (*Settings, error) {
	if err := s.authz.Check(actor, core.PermManageMonths); err != nil {
		return nil, err
	}
	if settings.ID == "" {
		settings.ID = core.SettingsID(uuid.New().String())
	}
	settings.CreatedAt = s.now()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ActiveRate returns the rates for the settings row covering the date.
// Fails with NoActiveRateError when no row covers it.
func (s *Service) ActiveRate(ctx context.Context, d core.DayStamp) (Rates, *Settings, error) {
	settings, err := s.store.FindCovering(ctx, d)
	if err != nil {
		return Rates{}, nil, err
	}
	if settings == nil {
		return Rates{}, nil, &core.NoActiveRateError{Date: d}
	}
	return Rates{Lunch: settings.LunchRate, Dinner: settings.DinnerRate}, settings, nil
}

// FindCovering returns the settings row covering the date, or nil.
func (s *Service) FindCovering(ctx context.Context, d core.DayStamp) (*Settings, error) {
	return s.store.FindCovering(ctx, d)
}

// Get loads one settings row.
func (s *Service) Get(ctx context.Context, id core.SettingsID) (*Settings, error) {
	return s.store.GetSettings(ctx, id)
}

// List returns all settings rows.
func (s *Service) List(ctx context.Context) ([]Settings, error) {
	return s.store.ListSettings(ctx)
}

// Finalize locks the month. One-way through this path.
func (s *Service) Finalize(ctx context.Context, id core.SettingsID, actor *core.User) error {
	if err := s.authz.Check(actor, core.PermManageMonths); err != nil {
		return err
	}
	settings, err := s.store.GetSettings(ctx, id)
	if err != nil {
		return err
	}
	if settings.IsFinalized {
		return &core.FinalizedMonthError{Year: settings.Year, Month: int(settings.Month)}
	}
	return s.store.SetFinalized(ctx, id, true, actorID(actor), s.now())
}

// ForceUnfinalize reverts finalization. Privileged and audited: the
// correction-history entry is written before the flag flips.
func (s *Service) ForceUnfinalize(ctx context.Context, id core.SettingsID, reason string, actor *core.User) error {
	if err := s.authz.Check(actor, core.PermForceUnfinalize); err != nil {
		return err
	}
	settings, err := s.store.GetSettings(ctx, id)
	if err != nil {
		return err
	}
	if !settings.IsFinalized {
		return core.Invalidf("monthSettings", "month %04d-%02d is not finalized", settings.Year, settings.Month)
	}

	entry := audit.NewEntry(actorID(actor), audit.ActionForceUnfinalize, "monthSettings", string(id), reason)
	if err := s.log.Append(ctx, entry); err != nil {
		return err
	}
	return s.store.SetFinalized(ctx, id, false, actorID(actor), s.now())
}

// IsFinalizedFor reports whether the date falls in a finalized month.
// Dates outside any configured month are not finalized.
func (s *Service) IsFinalizedFor(ctx context.Context, d core.DayStamp) (bool, *Settings, error) {
	settings, err := s.store.FindCovering(ctx, d)
	if err != nil {
		return false, nil, err
	}
	if settings == nil {
		return false, nil, nil
	}
	return settings.IsFinalized, settings, nil
}

func actorID(actor *core.User) core.UserID {
	if actor == nil {
		return ""
	}
	return actor.ID
}
