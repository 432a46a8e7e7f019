// Package memory provides in-memory store implementations (tests/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
)

// =============================================================================
// MEMORY STORE - Implements every store interface in one struct
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	users        map[core.UserID]*core.User
	transactions []ledger.Transaction
	txIndex      map[core.TransactionID]int
	idempotency  map[string]bool

	holidays   map[string]holidayRow
	overrides  map[core.OverrideID]overrideRow
	months     map[core.SettingsID]monthRow
	records    map[recordKey]recordRow
	breakfasts map[core.BreakfastID]breakfastRow
	auditLog   []auditRow
}

func New() *Memory {
	return &Memory{
		users:       make(map[core.UserID]*core.User),
		txIndex:     make(map[core.TransactionID]int),
		idempotency: make(map[string]bool),
		holidays:    make(map[string]holidayRow),
		overrides:   make(map[core.OverrideID]overrideRow),
		months:      make(map[core.SettingsID]monthRow),
		records:     make(map[recordKey]recordRow),
		breakfasts:  make(map[core.BreakfastID]breakfastRow),
	}
}

// =============================================================================
// USERS
// =============================================================================

// AddUser registers a user. Test/dev seeding helper.
func (m *Memory) AddUser(u *core.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
}

func (m *Memory) GetUser(_ context.Context, id core.UserID) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "user", ID: string(id)}
	}
	return cloneUser(u), nil
}

func (m *Memory) ListActiveUsers(_ context.Context) ([]core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.User
	for _, u := range m.users {
		if u.IsActive {
			out = append(out, *cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateBalance(_ context.Context, id core.UserID, balanceType ledger.BalanceType, amount core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return &core.NotFoundError{Kind: "user", ID: string(id)}
	}
	b, ok := u.Balances[string(balanceType)]
	if !ok {
		return &core.NotFoundError{Kind: "balance", ID: string(balanceType)}
	}
	b.Amount = amount
	return nil
}

func (m *Memory) SetFrozen(_ context.Context, id core.UserID, balanceType ledger.BalanceType, frozen bool, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return &core.NotFoundError{Kind: "user", ID: string(id)}
	}
	b, ok := u.Balances[string(balanceType)]
	if !ok {
		return &core.NotFoundError{Kind: "balance", ID: string(balanceType)}
	}
	b.IsFrozen = frozen
	b.FrozenReason = reason
	return nil
}

func cloneUser(u *core.User) *core.User {
	clone := *u
	clone.Permissions = append([]core.Permission(nil), u.Permissions...)
	clone.Balances = make(map[string]*core.Balance, len(u.Balances))
	for k, b := range u.Balances {
		copied := *b
		clone.Balances[k] = &copied
	}
	return &clone
}

// =============================================================================
// LEDGER TRANSACTIONS - append-only
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return core.ErrDuplicateIdempotencyKey
	}
	m.transactions = append(m.transactions, tx)
	m.txIndex[tx.ID] = len(m.transactions) - 1
	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) ClearPending(_ context.Context, id core.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.txIndex[id]
	if !ok {
		return &core.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	m.transactions[i].Pending = false
	return nil
}

func (m *Memory) MarkCorrected(_ context.Context, id core.TransactionID, by core.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.txIndex[id]
	if !ok {
		return &core.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	m.transactions[i].IsCorrected = true
	m.transactions[i].CorrectedBy = by
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id core.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.txIndex[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	tx := m.transactions[i]
	return &tx, nil
}

func (m *Memory) ListTransactions(_ context.Context, id core.UserID, balanceType ledger.BalanceType) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == id && tx.BalanceType == balanceType {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) HasIdempotencyKey(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[key], nil
}

type recordKey struct {
	UserID   core.UserID
	Date     string
	MealType string
}
