/*
Package sqlite provides the SQLite-backed implementation of every store
interface in the system.

INTERFACES IMPLEMENTED:
  ledger.Store / ledger.FreezeStore  Balances + append-only transactions
  calendar.Store                     Holiday reference data
  rules.Store                        Rule overrides
  month.Store                        Month settings / rates
  meal.Store                         Meal records
  charges.BreakfastStore             Breakfast entries
  charges.UserDirectory              Active user listing
  audit.Log                          Correction history

APPEND-ONLY ENFORCEMENT:
  The transactions and correction_history tables have no UPDATE path beyond
  the two metadata markers (pending, correction stamp). Corrections post new
  rows.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  one writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users and their three balances
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		permissions_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		is_frozen BOOLEAN NOT NULL DEFAULT FALSE,
		frozen_reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, balance_type)
	);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		previous_balance TEXT NOT NULL,
		new_balance TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		ref_kind TEXT,
		ref_id TEXT,
		idempotency_key TEXT UNIQUE,
		is_corrected BOOLEAN NOT NULL DEFAULT FALSE,
		corrected_by TEXT NOT NULL DEFAULT '',
		original_tx TEXT NOT NULL DEFAULT '',
		pending BOOLEAN NOT NULL DEFAULT FALSE,
		performed_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_balance
		ON transactions(user_id, balance_type, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(ref_kind, ref_id) WHERE ref_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_pending
		ON transactions(pending) WHERE pending = TRUE;

	-- Holidays (fixed-date and recurring)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		date TEXT,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurring_month INTEGER NOT NULL DEFAULT 0,
		recurring_day INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);

	-- Rule overrides
	CREATE TABLE IF NOT EXISTS overrides (
		id TEXT PRIMARY KEY,
		target_type TEXT NOT NULL,
		target_user_id TEXT NOT NULL DEFAULT '',
		spec_kind TEXT NOT NULL,
		spec_date TEXT,
		spec_start TEXT,
		spec_end TEXT,
		spec_weekdays_json TEXT NOT NULL DEFAULT '[]',
		spec_days_json TEXT NOT NULL DEFAULT '[]',
		meals TEXT NOT NULL,
		action TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TEXT,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_target
		ON overrides(target_type, target_user_id);

	-- Month settings (rates + finalization)
	CREATE TABLE IF NOT EXISTS month_settings (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		lunch_rate TEXT NOT NULL,
		dinner_rate TEXT NOT NULL,
		is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
		finalized_at TEXT,
		finalized_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_month_settings_span
		ON month_settings(start_date, end_date);

	-- Meal records: one row per (user, date, mealType) cell
	CREATE TABLE IF NOT EXISTS meal_records (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		meal_type TEXT NOT NULL,
		is_on BOOLEAN NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		is_manually_set BOOLEAN NOT NULL DEFAULT TRUE,
		modified_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, date, meal_type)
	);

	CREATE INDEX IF NOT EXISTS idx_meal_records_date ON meal_records(date);

	-- Breakfasts: one per date
	CREATE TABLE IF NOT EXISTS breakfasts (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		total_cost TEXT NOT NULL,
		is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS breakfast_participants (
		breakfast_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		cost TEXT NOT NULL,
		deducted BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (breakfast_id, user_id)
	);

	-- Correction history (append-only audit of privileged overrides)
	CREATE TABLE IF NOT EXISTS correction_history (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		target_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		details_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_correction_target
		ON correction_history(target_kind, target_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS (ledger.Store user side + charges.UserDirectory)
// =============================================================================

// SaveUser inserts or replaces a user and ensures its three balance rows.
// Balance amounts of existing rows are never touched here; they belong to
// the ledger.
func (s *Store) SaveUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	permsJSON, _ := json.Marshal(u.Permissions)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, is_active, permissions_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			is_active = excluded.is_active,
			permissions_json = excluded.permissions_json
	`, u.ID, u.Name, u.Role, u.IsActive, string(permsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	for bt, b := range u.Balances {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO balances (user_id, balance_type, amount, is_frozen, frozen_reason)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, balance_type) DO NOTHING
		`, u.ID, bt, b.Amount.Value.String(), b.IsFrozen, b.FrozenReason)
		if err != nil {
			return fmt.Errorf("failed to save balance: %w", err)
		}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id core.UserID) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUser(ctx, id)
}

func (s *Store) getUser(ctx context.Context, id core.UserID) (*core.User, error) {
	var u core.User
	var permsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, is_active, permissions_json FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.Role, &u.IsActive, &permsJSON)
	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "user", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	json.Unmarshal([]byte(permsJSON), &u.Permissions)

	u.Balances = make(map[string]*core.Balance)
	rows, err := s.db.QueryContext(ctx, `
		SELECT balance_type, amount, is_frozen, frozen_reason FROM balances WHERE user_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bt, amount string
		var b core.Balance
		if err := rows.Scan(&bt, &amount, &b.IsFrozen, &b.FrozenReason); err != nil {
			return nil, err
		}
		b.Amount = core.MustParseMoney(amount)
		u.Balances[bt] = &b
	}
	return &u, rows.Err()
}

func (s *Store) ListActiveUsers(ctx context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []core.UserID
	for rows.Next() {
		var id core.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var users []core.User
	for _, id := range ids {
		u, err := s.getUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func (s *Store) UpdateBalance(ctx context.Context, id core.UserID, balanceType ledger.BalanceType, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE balances SET amount = ? WHERE user_id = ? AND balance_type = ?
	`, amount.Value.String(), id, balanceType)
	return requireRow(res, err, "balance", fmt.Sprintf("%s/%s", id, balanceType))
}

func (s *Store) SetFrozen(ctx context.Context, id core.UserID, balanceType ledger.BalanceType, frozen bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE balances SET is_frozen = ?, frozen_reason = ? WHERE user_id = ? AND balance_type = ?
	`, frozen, reason, id, balanceType)
	return requireRow(res, err, "balance", fmt.Sprintf("%s/%s", id, balanceType))
}

// =============================================================================
// TRANSACTIONS (ledger.Store)
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refKind, refID sql.NullString
	if tx.Reference != nil {
		refKind = sql.NullString{String: string(tx.Reference.Kind), Valid: true}
		refID = sql.NullString{String: tx.Reference.ID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, user_id, balance_type, tx_type, amount, previous_balance, new_balance,
		 description, ref_kind, ref_id, idempotency_key, is_corrected, corrected_by,
		 original_tx, pending, performed_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID, tx.UserID, tx.BalanceType, tx.Type,
		tx.Amount.Value.String(), tx.PreviousBalance.Value.String(), tx.NewBalance.Value.String(),
		tx.Description, refKind, refID, nullString(tx.IdempotencyKey),
		tx.IsCorrected, tx.CorrectedBy, tx.OriginalTransaction, tx.Pending, tx.PerformedBy,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) ClearPending(ctx context.Context, id core.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET pending = FALSE WHERE id = ?`, id)
	return requireRow(res, err, "transaction", string(id))
}

func (s *Store) MarkCorrected(ctx context.Context, id core.TransactionID, by core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_corrected = TRUE, corrected_by = ? WHERE id = ?`, by, id)
	return requireRow(res, err, "transaction", string(id))
}

func (s *Store) GetTransaction(ctx context.Context, id core.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.queryTransactions(ctx, txSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, &core.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	return &txs[0], nil
}

func (s *Store) ListTransactions(ctx context.Context, id core.UserID, balanceType ledger.BalanceType) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		txSelect+` WHERE user_id = ? AND balance_type = ? ORDER BY created_at ASC`,
		id, balanceType)
}

func (s *Store) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?`, key).Scan(&count)
	return count > 0, err
}

const txSelect = `
	SELECT id, user_id, balance_type, tx_type, amount, previous_balance, new_balance,
	       description, ref_kind, ref_id, idempotency_key, is_corrected, corrected_by,
	       original_tx, pending, performed_by, created_at
	FROM transactions`

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var amount, previous, next, createdAt string
		var refKind, refID, idempotencyKey sql.NullString
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.BalanceType, &tx.Type,
			&amount, &previous, &next,
			&tx.Description, &refKind, &refID, &idempotencyKey,
			&tx.IsCorrected, &tx.CorrectedBy, &tx.OriginalTransaction,
			&tx.Pending, &tx.PerformedBy, &createdAt)
		if err != nil {
			return nil, err
		}
		tx.Amount = core.MustParseMoney(amount)
		tx.PreviousBalance = core.MustParseMoney(previous)
		tx.NewBalance = core.MustParseMoney(next)
		tx.IdempotencyKey = idempotencyKey.String
		if refKind.Valid {
			tx.Reference = &ledger.Reference{Kind: ledger.RefKind(refKind.String), ID: refID.String}
		}
		tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func requireRow(res sql.Result, execErr error, kind, id string) error {
	if execErr != nil {
		return fmt.Errorf("failed to update %s: %w", kind, execErr)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullDay(d core.DayStamp) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
