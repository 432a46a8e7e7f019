package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
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

// Compile-time interface checks.
var (
	_ ledger.Store           = (*Store)(nil)
	_ ledger.FreezeStore     = (*Store)(nil)
	_ calendar.Store         = (*Store)(nil)
	_ rules.Store            = (*Store)(nil)
	_ month.Store            = (*Store)(nil)
	_ meal.Store             = (*Store)(nil)
	_ charges.BreakfastStore = (*Store)(nil)
	_ charges.UserDirectory  = (*Store)(nil)
	_ audit.Log              = (*Store)(nil)
)

// =============================================================================
// HOLIDAYS (calendar.Store)
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h calendar.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, name, type, date, recurring, recurring_month, recurring_day, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			date = excluded.date,
			recurring = excluded.recurring,
			recurring_month = excluded.recurring_month,
			recurring_day = excluded.recurring_day,
			is_active = excluded.is_active
	`, h.ID, h.Name, h.Type, nullDay(h.Date), h.Recurring, int(h.RecurringMonth), h.RecurringDay, h.IsActive)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	return requireRow(res, err, "holiday", id)
}

func (s *Store) ListHolidays(ctx context.Context) ([]calendar.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, date, recurring, recurring_month, recurring_day, is_active
		FROM holidays ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		var date sql.NullString
		var recurringMonth int
		if err := rows.Scan(&h.ID, &h.Name, &h.Type, &date, &h.Recurring, &recurringMonth, &h.RecurringDay, &h.IsActive); err != nil {
			return nil, err
		}
		h.RecurringMonth = time.Month(recurringMonth)
		if date.Valid {
			h.Date, _ = core.ParseDay(date.String)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// OVERRIDES (rules.Store)
// =============================================================================

func (s *Store) SaveOverride(ctx context.Context, o rules.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekdaysJSON, _ := json.Marshal(o.DateSpec.Weekdays)
	daysJSON, _ := json.Marshal(o.DateSpec.DaysOfMonth)

	var expiresAt sql.NullString
	if o.ExpiresAt != nil {
		expiresAt = sql.NullString{String: o.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overrides
		(id, target_type, target_user_id, spec_kind, spec_date, spec_start, spec_end,
		 spec_weekdays_json, spec_days_json, meals, action, priority, is_active,
		 expires_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_type = excluded.target_type,
			target_user_id = excluded.target_user_id,
			spec_kind = excluded.spec_kind,
			spec_date = excluded.spec_date,
			spec_start = excluded.spec_start,
			spec_end = excluded.spec_end,
			spec_weekdays_json = excluded.spec_weekdays_json,
			spec_days_json = excluded.spec_days_json,
			meals = excluded.meals,
			action = excluded.action,
			priority = excluded.priority,
			is_active = excluded.is_active,
			expires_at = excluded.expires_at
	`, o.ID, o.TargetType, o.TargetUserID, o.DateSpec.Kind,
		nullDay(o.DateSpec.Date), nullDay(o.DateSpec.Range.Start), nullDay(o.DateSpec.Range.End),
		string(weekdaysJSON), string(daysJSON), o.Meals, o.Action, o.Priority, o.IsActive,
		expiresAt, o.CreatedBy, o.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverride(ctx context.Context, id core.OverrideID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM overrides WHERE id = ?`, id)
	return requireRow(res, err, "override", string(id))
}

func (s *Store) GetOverride(ctx context.Context, id core.OverrideID) (*rules.Override, error) {
	overrides, err := s.queryOverrides(ctx, overrideSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return nil, &core.NotFoundError{Kind: "override", ID: string(id)}
	}
	return &overrides[0], nil
}

func (s *Store) ListOverrides(ctx context.Context) ([]rules.Override, error) {
	return s.queryOverrides(ctx, overrideSelect+` ORDER BY id`)
}

const overrideSelect = `
	SELECT id, target_type, target_user_id, spec_kind, spec_date, spec_start, spec_end,
	       spec_weekdays_json, spec_days_json, meals, action, priority, is_active,
	       expires_at, created_by, created_at
	FROM overrides`

func (s *Store) queryOverrides(ctx context.Context, query string, args ...any) ([]rules.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var out []rules.Override
	for rows.Next() {
		var o rules.Override
		var specDate, specStart, specEnd, expiresAt sql.NullString
		var weekdaysJSON, daysJSON, createdAt string
		err := rows.Scan(&o.ID, &o.TargetType, &o.TargetUserID, &o.DateSpec.Kind,
			&specDate, &specStart, &specEnd, &weekdaysJSON, &daysJSON,
			&o.Meals, &o.Action, &o.Priority, &o.IsActive, &expiresAt, &o.CreatedBy, &createdAt)
		if err != nil {
			return nil, err
		}
		if specDate.Valid {
			o.DateSpec.Date, _ = core.ParseDay(specDate.String)
		}
		if specStart.Valid {
			o.DateSpec.Range.Start, _ = core.ParseDay(specStart.String)
		}
		if specEnd.Valid {
			o.DateSpec.Range.End, _ = core.ParseDay(specEnd.String)
		}
		json.Unmarshal([]byte(weekdaysJSON), &o.DateSpec.Weekdays)
		json.Unmarshal([]byte(daysJSON), &o.DateSpec.DaysOfMonth)
		if expiresAt.Valid {
			t, _ := time.Parse(time.RFC3339, expiresAt.String)
			o.ExpiresAt = &t
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// MONTH SETTINGS (month.Store)
// =============================================================================

func (s *Store) SaveSettings(ctx context.Context, m month.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO month_settings
		(id, year, month, start_date, end_date, lunch_rate, dinner_rate,
		 is_finalized, finalized_at, finalized_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Year, int(m.Month), m.Range.Start.String(), m.Range.End.String(),
		m.LunchRate.Value.String(), m.DinnerRate.Value.String(),
		m.IsFinalized, nullTime(m.FinalizedAt), m.FinalizedBy,
		m.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("failed to save month settings: %w", err)
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context, id core.SettingsID) (*month.Settings, error) {
	settings, err := s.querySettings(ctx, settingsSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, &core.NotFoundError{Kind: "monthSettings", ID: string(id)}
	}
	return &settings[0], nil
}

func (s *Store) GetByMonth(ctx context.Context, year int, m time.Month) (*month.Settings, error) {
	settings, err := s.querySettings(ctx, settingsSelect+` WHERE year = ? AND month = ?`, year, int(m))
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, &core.NotFoundError{Kind: "monthSettings", ID: fmt.Sprintf("%04d-%02d", year, m)}
	}
	return &settings[0], nil
}

func (s *Store) FindCovering(ctx context.Context, d core.DayStamp) (*month.Settings, error) {
	settings, err := s.querySettings(ctx,
		settingsSelect+` WHERE start_date <= ? AND end_date >= ?`, d.String(), d.String())
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, nil
	}
	return &settings[0], nil
}

func (s *Store) ListSettings(ctx context.Context) ([]month.Settings, error) {
	return s.querySettings(ctx, settingsSelect+` ORDER BY year, month`)
}

func (s *Store) SetFinalized(ctx context.Context, id core.SettingsID, finalized bool, by core.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finalizedAt sql.NullString
	finalizedBy := ""
	if finalized {
		finalizedAt = sql.NullString{String: at.UTC().Format(time.RFC3339), Valid: true}
		finalizedBy = string(by)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE month_settings SET is_finalized = ?, finalized_at = ?, finalized_by = ? WHERE id = ?
	`, finalized, finalizedAt, finalizedBy, id)
	return requireRow(res, err, "monthSettings", string(id))
}

const settingsSelect = `
	SELECT id, year, month, start_date, end_date, lunch_rate, dinner_rate,
	       is_finalized, finalized_at, finalized_by, created_at
	FROM month_settings`

func (s *Store) querySettings(ctx context.Context, query string, args ...any) ([]month.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query month settings: %w", err)
	}
	defer rows.Close()

	var out []month.Settings
	for rows.Next() {
		var m month.Settings
		var mo int
		var start, end, lunchRate, dinnerRate, createdAt string
		var finalizedAt sql.NullString
		err := rows.Scan(&m.ID, &m.Year, &mo, &start, &end, &lunchRate, &dinnerRate,
			&m.IsFinalized, &finalizedAt, &m.FinalizedBy, &createdAt)
		if err != nil {
			return nil, err
		}
		m.Month = time.Month(mo)
		m.Range.Start, _ = core.ParseDay(start)
		m.Range.End, _ = core.ParseDay(end)
		m.LunchRate = core.MustParseMoney(lunchRate)
		m.DinnerRate = core.MustParseMoney(dinnerRate)
		if finalizedAt.Valid {
			t, _ := time.Parse(time.RFC3339, finalizedAt.String)
			m.FinalizedAt = &t
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// MEAL RECORDS (meal.Store)
// =============================================================================

func (s *Store) GetRecord(ctx context.Context, userID core.UserID, d core.DayStamp, mealType meal.MealType) (*meal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r meal.Record
	var date, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, meal_type, is_on, count, is_manually_set, modified_by, updated_at
		FROM meal_records WHERE user_id = ? AND date = ? AND meal_type = ?
	`, userID, d.String(), mealType).Scan(
		&r.UserID, &date, &r.MealType, &r.IsOn, &r.Count, &r.IsManuallySet, &r.ModifiedBy, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meal record: %w", err)
	}
	r.Date, _ = core.ParseDay(date)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

func (s *Store) UpsertRecord(ctx context.Context, r meal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meal_records (user_id, date, meal_type, is_on, count, is_manually_set, modified_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date, meal_type) DO UPDATE SET
			is_on = excluded.is_on,
			count = excluded.count,
			is_manually_set = excluded.is_manually_set,
			modified_by = excluded.modified_by,
			updated_at = excluded.updated_at
	`, r.UserID, r.Date.String(), r.MealType, r.IsOn, r.Count, r.IsManuallySet, r.ModifiedBy,
		r.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert meal record: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, userID core.UserID, span core.DateRange) ([]meal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, meal_type, is_on, count, is_manually_set, modified_by, updated_at
		FROM meal_records
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, meal_type
	`, userID, span.Start.String(), span.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list meal records: %w", err)
	}
	defer rows.Close()

	var out []meal.Record
	for rows.Next() {
		var r meal.Record
		var date, updatedAt string
		if err := rows.Scan(&r.UserID, &date, &r.MealType, &r.IsOn, &r.Count, &r.IsManuallySet, &r.ModifiedBy, &updatedAt); err != nil {
			return nil, err
		}
		r.Date, _ = core.ParseDay(date)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// BREAKFASTS (charges.BreakfastStore)
// =============================================================================

func (s *Store) SaveBreakfast(ctx context.Context, b charges.Breakfast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Uniqueness on date must ignore the row being replaced.
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM breakfasts WHERE date = ? AND id != ?`, b.Date.String(), b.ID).Scan(&existing)
	if err == nil {
		return core.ErrConflict
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check breakfast date: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO breakfasts (id, date, total_cost, is_finalized, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_cost = excluded.total_cost,
			is_finalized = excluded.is_finalized
	`, b.ID, b.Date.String(), b.TotalCost.Value.String(), b.IsFinalized, b.CreatedBy,
		b.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save breakfast: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM breakfast_participants WHERE breakfast_id = ?`, b.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	for i, p := range b.Participants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO breakfast_participants (breakfast_id, user_id, cost, deducted, position)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, p.UserID, p.Cost.Value.String(), p.Deducted, i)
		if err != nil {
			return fmt.Errorf("failed to save participant: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetBreakfast(ctx context.Context, id core.BreakfastID) (*charges.Breakfast, error) {
	breakfasts, err := s.queryBreakfasts(ctx, breakfastSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(breakfasts) == 0 {
		return nil, &core.NotFoundError{Kind: "breakfast", ID: string(id)}
	}
	return &breakfasts[0], nil
}

func (s *Store) GetBreakfastByDate(ctx context.Context, d core.DayStamp) (*charges.Breakfast, error) {
	breakfasts, err := s.queryBreakfasts(ctx, breakfastSelect+` WHERE date = ?`, d.String())
	if err != nil {
		return nil, err
	}
	if len(breakfasts) == 0 {
		return nil, nil
	}
	return &breakfasts[0], nil
}

func (s *Store) ListBreakfasts(ctx context.Context, span core.DateRange) ([]charges.Breakfast, error) {
	return s.queryBreakfasts(ctx,
		breakfastSelect+` WHERE date >= ? AND date <= ? ORDER BY date`,
		span.Start.String(), span.End.String())
}

func (s *Store) SetParticipantDeducted(ctx context.Context, id core.BreakfastID, userID core.UserID, deducted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE breakfast_participants SET deducted = ? WHERE breakfast_id = ? AND user_id = ?
	`, deducted, id, userID)
	return requireRow(res, err, "participant", string(userID))
}

func (s *Store) SetBreakfastFinalized(ctx context.Context, id core.BreakfastID, finalized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE breakfasts SET is_finalized = ? WHERE id = ?
	`, finalized, id)
	return requireRow(res, err, "breakfast", string(id))
}

const breakfastSelect = `
	SELECT id, date, total_cost, is_finalized, created_by, created_at
	FROM breakfasts`

func (s *Store) queryBreakfasts(ctx context.Context, query string, args ...any) ([]charges.Breakfast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakfasts: %w", err)
	}
	defer rows.Close()

	var out []charges.Breakfast
	for rows.Next() {
		var b charges.Breakfast
		var date, totalCost, createdAt string
		if err := rows.Scan(&b.ID, &date, &totalCost, &b.IsFinalized, &b.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		b.Date, _ = core.ParseDay(date)
		b.TotalCost = core.MustParseMoney(totalCost)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		participants, err := s.loadParticipants(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Participants = participants
	}
	return out, nil
}

func (s *Store) loadParticipants(ctx context.Context, id core.BreakfastID) ([]charges.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, cost, deducted FROM breakfast_participants
		WHERE breakfast_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	var out []charges.Participant
	for rows.Next() {
		var p charges.Participant
		var cost string
		if err := rows.Scan(&p.UserID, &cost, &p.Deducted); err != nil {
			return nil, err
		}
		p.Cost = core.MustParseMoney(cost)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// CORRECTION HISTORY (audit.Log)
// =============================================================================

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	detailsJSON, _ := json.Marshal(entry.Details)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_history (id, at, actor_id, action, target_kind, target_id, reason, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.At.UTC().Format(time.RFC3339), entry.ActorID, entry.Action,
		entry.TargetKind, entry.TargetID, entry.Reason, string(detailsJSON))
	if err != nil {
		return fmt.Errorf("failed to append correction entry: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, targetKind, targetID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, at, actor_id, action, target_kind, target_id, reason, details_json
	          FROM correction_history`
	var args []any
	switch {
	case targetKind != "" && targetID != "":
		query += ` WHERE target_kind = ? AND target_id = ?`
		args = append(args, targetKind, targetID)
	case targetKind != "":
		query += ` WHERE target_kind = ?`
		args = append(args, targetKind)
	}
	query += ` ORDER BY at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction history: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var at, detailsJSON string
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &e.Action, &e.TargetKind, &e.TargetID, &e.Reason, &detailsJSON); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		json.Unmarshal([]byte(detailsJSON), &e.Details)
		out = append(out, e)
	}
	return out, rows.Err()
}
