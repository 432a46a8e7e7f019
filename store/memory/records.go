package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
)

// Row aliases keep the struct fields in memory.go free of direct domain
// imports that would otherwise be unused there.
type (
	holidayRow   = calendar.Holiday
	overrideRow  = rules.Override
	monthRow     = month.Settings
	recordRow    = meal.Record
	breakfastRow = charges.Breakfast
	auditRow     = audit.Entry
)

// Compile-time interface checks.
var (
	_ ledger.Store           = (*Memory)(nil)
	_ ledger.FreezeStore     = (*Memory)(nil)
	_ calendar.Store         = (*Memory)(nil)
	_ rules.Store            = (*Memory)(nil)
	_ month.Store            = (*Memory)(nil)
	_ meal.Store             = (*Memory)(nil)
	_ charges.BreakfastStore = (*Memory)(nil)
	_ charges.UserDirectory  = (*Memory)(nil)
	_ audit.Log              = (*Memory)(nil)
)

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h calendar.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return &core.NotFoundError{Kind: "holiday", ID: id}
	}
	delete(m.holidays, id)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]calendar.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]calendar.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// OVERRIDES
// =============================================================================

func (m *Memory) SaveOverride(_ context.Context, o rules.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[o.ID] = o
	return nil
}

func (m *Memory) DeleteOverride(_ context.Context, id core.OverrideID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.overrides[id]; !ok {
		return &core.NotFoundError{Kind: "override", ID: string(id)}
	}
	delete(m.overrides, id)
	return nil
}

func (m *Memory) GetOverride(_ context.Context, id core.OverrideID) (*rules.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.overrides[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "override", ID: string(id)}
	}
	return &o, nil
}

func (m *Memory) ListOverrides(_ context.Context) ([]rules.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rules.Override, 0, len(m.overrides))
	for _, o := range m.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// MONTH SETTINGS
// =============================================================================

func (m *Memory) SaveSettings(_ context.Context, s month.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.months {
		if id != s.ID && existing.Year == s.Year && existing.Month == s.Month {
			return core.ErrConflict
		}
	}
	m.months[s.ID] = s
	return nil
}

func (m *Memory) GetSettings(_ context.Context, id core.SettingsID) (*month.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.months[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "monthSettings", ID: string(id)}
	}
	return &s, nil
}

func (m *Memory) GetByMonth(_ context.Context, year int, mo time.Month) (*month.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.months {
		if s.Year == year && s.Month == mo {
			row := s
			return &row, nil
		}
	}
	return nil, &core.NotFoundError{Kind: "monthSettings", ID: ""}
}

func (m *Memory) FindCovering(_ context.Context, d core.DayStamp) (*month.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.months {
		if s.Range.Contains(d) {
			row := s
			return &row, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListSettings(_ context.Context) ([]month.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]month.Settings, 0, len(m.months))
	for _, s := range m.months {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (m *Memory) SetFinalized(_ context.Context, id core.SettingsID, finalized bool, by core.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.months[id]
	if !ok {
		return &core.NotFoundError{Kind: "monthSettings", ID: string(id)}
	}
	s.IsFinalized = finalized
	if finalized {
		s.FinalizedAt = &at
		s.FinalizedBy = by
	} else {
		s.FinalizedAt = nil
		s.FinalizedBy = ""
	}
	m.months[id] = s
	return nil
}

// =============================================================================
// MEAL RECORDS
// =============================================================================

func (m *Memory) GetRecord(_ context.Context, userID core.UserID, d core.DayStamp, mealType meal.MealType) (*meal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[recordKey{UserID: userID, Date: d.String(), MealType: string(mealType)}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) UpsertRecord(_ context.Context, r meal.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{UserID: r.UserID, Date: r.Date.String(), MealType: string(r.MealType)}] = r
	return nil
}

func (m *Memory) ListRecords(_ context.Context, userID core.UserID, span core.DateRange) ([]meal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []meal.Record
	for _, r := range m.records {
		if r.UserID == userID && span.Contains(r.Date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].MealType < out[j].MealType
	})
	return out, nil
}

// =============================================================================
// BREAKFASTS
// =============================================================================

func (m *Memory) SaveBreakfast(_ context.Context, b charges.Breakfast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.breakfasts {
		if id != b.ID && existing.Date.Equal(b.Date) {
			return core.ErrConflict
		}
	}
	m.breakfasts[b.ID] = cloneBreakfast(b)
	return nil
}

func (m *Memory) GetBreakfast(_ context.Context, id core.BreakfastID) (*charges.Breakfast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.breakfasts[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "breakfast", ID: string(id)}
	}
	clone := cloneBreakfast(b)
	return &clone, nil
}

func (m *Memory) GetBreakfastByDate(_ context.Context, d core.DayStamp) (*charges.Breakfast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.breakfasts {
		if b.Date.Equal(d) {
			clone := cloneBreakfast(b)
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListBreakfasts(_ context.Context, span core.DateRange) ([]charges.Breakfast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []charges.Breakfast
	for _, b := range m.breakfasts {
		if span.Contains(b.Date) {
			out = append(out, cloneBreakfast(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SetParticipantDeducted(_ context.Context, id core.BreakfastID, userID core.UserID, deducted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakfasts[id]
	if !ok {
		return &core.NotFoundError{Kind: "breakfast", ID: string(id)}
	}
	for i := range b.Participants {
		if b.Participants[i].UserID == userID {
			b.Participants[i].Deducted = deducted
			m.breakfasts[id] = b
			return nil
		}
	}
	return &core.NotFoundError{Kind: "participant", ID: string(userID)}
}

func (m *Memory) SetBreakfastFinalized(_ context.Context, id core.BreakfastID, finalized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakfasts[id]
	if !ok {
		return &core.NotFoundError{Kind: "breakfast", ID: string(id)}
	}
	b.IsFinalized = finalized
	m.breakfasts[id] = b
	return nil
}

func cloneBreakfast(b charges.Breakfast) charges.Breakfast {
	clone := b
	clone.Participants = append([]charges.Participant(nil), b.Participants...)
	return clone
}

// =============================================================================
// CORRECTION HISTORY
// =============================================================================

func (m *Memory) Append(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLog = append(m.auditLog, entry)
	return nil
}

func (m *Memory) List(_ context.Context, targetKind, targetID string) ([]audit.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []audit.Entry
	for _, e := range m.auditLog {
		if (targetKind == "" || e.TargetKind == targetKind) && (targetID == "" || e.TargetID == targetID) {
			out = append(out, e)
		}
	}
	return out, nil
}
