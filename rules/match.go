package rules

import (
	"context"
	"sort"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists overrides. Matching is done in memory over the active set;
// the override list is admin-authored and small.
type Store interface {
	SaveOverride(ctx context.Context, o Override) error
	DeleteOverride(ctx context.Context, id core.OverrideID) error
	GetOverride(ctx context.Context, id core.OverrideID) (*Override, error)
	ListOverrides(ctx context.Context) ([]Override, error)
}

// =============================================================================
// MATCHER
// =============================================================================

// Matcher finds the overrides governing a (user, date, mealType) cell.
type Matcher struct {
	store Store
	now   func() time.Time
}

func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store, now: time.Now}
}

// SetClock overrides the clock used for expiry checks. Tests only.
func (m *Matcher) SetClock(now func() time.Time) { m.now = now }

// FindMatching returns all overrides governing the cell, winner first.
// Order: priority desc, then target specificity desc, then creation desc.
func (m *Matcher) FindMatching(ctx context.Context, userID core.UserID, d core.DayStamp, mealType string) ([]Override, error) {
	all, err := m.store.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var matched []Override
	for _, o := range all {
		if o.AppliesTo(userID, d, mealType, now) {
			matched = append(matched, o)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.TargetType.specificity() != b.TargetType.specificity() {
			return a.TargetType.specificity() > b.TargetType.specificity()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return matched, nil
}

// Winning returns the single governing override for the cell, or nil.
func (m *Matcher) Winning(ctx context.Context, userID core.UserID, d core.DayStamp, mealType string) (*Override, error) {
	matched, err := m.FindMatching(ctx, userID, d, mealType)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, nil
	}
	return &matched[0], nil
}
