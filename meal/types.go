/*
Package meal implements the effective meal-status resolver.

PURPOSE:
  Decides, for one (user, date, mealType) cell, whether the meal is ON,
  where that answer came from, and whether the caller may change it.

PRECEDENCE (highest first):
  1. Rule override (force_on / force_off) - shadows everything below
  2. Manual meal record (explicit user toggle)
  3. Default policy (holiday / weekend calendar)

KEY INVARIANT - OVERRIDE SHADOWING:
  An override never mutates the meal record underneath it. Remove the
  override and the prior manual record (or the default) reasserts itself.
  Implementations that write overrides into the record break reversibility.

STATE MACHINE (per cell):
  {no-record} -> {manual-on | manual-off}   via Toggle
  {override}  shadows either state without destroying it
*/
package meal

import (
	"context"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// MEAL TYPES
// =============================================================================

type MealType string

const (
	Lunch  MealType = "lunch"
	Dinner MealType = "dinner"
)

func ValidMealType(t MealType) bool {
	return t == Lunch || t == Dinner
}

// =============================================================================
// RECORD - Explicit per-cell toggle state
// =============================================================================

// Record is created lazily on first explicit toggle; absence means "use the
// default". Key (UserID, Date, MealType) is unique.
type Record struct {
	UserID   core.UserID
	Date     core.DayStamp
	MealType MealType

	IsOn  bool
	Count int // number of portions; 0 allowed only when off

	IsManuallySet bool
	ModifiedBy    core.UserID
	UpdatedAt     time.Time
}

// =============================================================================
// EFFECTIVE STATUS
// =============================================================================

// StatusSource names which layer produced the effective answer.
type StatusSource string

const (
	SourceOverride StatusSource = "override"
	SourceManual   StatusSource = "manual"
	SourceDefault  StatusSource = "default"
)

// EffectiveStatus is the resolver's answer for one cell.
type EffectiveStatus struct {
	UserID   core.UserID
	Date     core.DayStamp
	MealType MealType

	IsOn   bool
	Count  int
	Source StatusSource

	// OverrideID is set when Source == SourceOverride.
	OverrideID core.OverrideID

	// Togglable reports whether the owning user (no special permissions)
	// could change this cell right now. Used by calendar rendering.
	Togglable    bool
	ToggleBlock  string // human-readable reason when not togglable
}

// =============================================================================
// STORE
// =============================================================================

// Store persists meal records.
type Store interface {
	// GetRecord returns the record for the cell, or nil if none exists.
	GetRecord(ctx context.Context, userID core.UserID, d core.DayStamp, mealType MealType) (*Record, error)

	// UpsertRecord creates or replaces the record for its cell.
	UpsertRecord(ctx context.Context, r Record) error

	// ListRecords returns a user's records with dates inside the range.
	ListRecords(ctx context.Context, userID core.UserID, r core.DateRange) ([]Record, error)
}
