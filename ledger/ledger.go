package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// LEDGER - Balance mutation with audit trail
// =============================================================================

// Ledger applies balance changes and records them in the transaction log.
type Ledger struct {
	store  Store
	authz  *core.Authorizer
	events *Notifier

	// Per-(user,balanceType) write locks. Single-writer-per-entity: two
	// concurrent deductions on the same balance must not lose an update.
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

type lockKey struct {
	UserID      core.UserID
	BalanceType BalanceType
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		authz: core.NewAuthorizer(),
		locks: make(map[lockKey]*sync.Mutex),
		now:   time.Now,
	}
}

// SetNotifier attaches a low-balance notifier. Optional.
func (l *Ledger) SetNotifier(n *Notifier) { l.events = n }

// SetClock overrides the clock. Tests only.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

func (l *Ledger) lockFor(k lockKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[k]
	if !ok {
		m = &sync.Mutex{}
		l.locks[k] = m
	}
	return m
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyInput describes one balance mutation.
type ApplyInput struct {
	UserID      core.UserID
	BalanceType BalanceType
	Type        TxType

	// Amount is signed. Deposits/refunds must be positive, deductions
	// negative; adjustments may be either sign.
	Amount core.Money

	Description    string
	Reference      *Reference
	IdempotencyKey string

	// OriginalTransaction is set on reversals only: the row being undone.
	OriginalTransaction core.TransactionID

	// Actor performs the operation. Needed for the frozen-balance override
	// check; PerformedBy on the transaction is taken from here.
	Actor *core.User
}

// Apply mutates one balance and appends the audit row.
//
// Write protocol: transaction row first (pending), then balance, then clear
// the marker. A crash mid-sequence leaves a detectable pending row.
//
// A negative resulting balance is allowed - this ledger tracks debt.
func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (*Transaction, error) {
	if err := l.validate(in); err != nil {
		return nil, err
	}

	lock := l.lockFor(lockKey{UserID: in.UserID, BalanceType: in.BalanceType})
	lock.Lock()
	defer lock.Unlock()

	if in.IdempotencyKey != "" {
		exists, err := l.store.HasIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, core.ErrDuplicateIdempotencyKey
		}
	}

	user, err := l.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	balance, ok := user.Balances[string(in.BalanceType)]
	if !ok {
		return nil, &core.NotFoundError{Kind: "balance", ID: string(in.BalanceType)}
	}

	if balance.IsFrozen && !l.authz.Has(in.Actor, core.PermOverrideFrozen) {
		return nil, &core.FrozenBalanceError{
			UserID:      in.UserID,
			BalanceType: string(in.BalanceType),
			Reason:      balance.FrozenReason,
		}
	}

	previous := balance.Amount
	next := previous.Add(in.Amount)

	tx := Transaction{
		ID:                  core.TransactionID(uuid.New().String()),
		UserID:              in.UserID,
		BalanceType:         in.BalanceType,
		Type:                in.Type,
		Amount:              in.Amount,
		PreviousBalance:     previous,
		NewBalance:          next,
		Description:         in.Description,
		Reference:           in.Reference,
		IdempotencyKey:      in.IdempotencyKey,
		OriginalTransaction: in.OriginalTransaction,
		Pending:             true,
		PerformedBy:         actorID(in.Actor),
		CreatedAt:           l.now(),
	}

	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := l.store.UpdateBalance(ctx, in.UserID, in.BalanceType, next); err != nil {
		return nil, fmt.Errorf("balance write failed, transaction %s left pending: %w", tx.ID, err)
	}
	if err := l.store.ClearPending(ctx, tx.ID); err != nil {
		return nil, fmt.Errorf("pending marker not cleared for %s: %w", tx.ID, err)
	}
	tx.Pending = false

	l.notify(user, in.BalanceType, previous, next)
	return &tx, nil
}

func (l *Ledger) validate(in ApplyInput) error {
	if in.UserID == "" {
		return core.Invalidf("userId", "required")
	}
	if !ValidBalanceType(in.BalanceType) {
		return core.Invalidf("balanceType", "unknown balance type %q", in.BalanceType)
	}
	switch in.Type {
	case TxDeposit, TxRefund:
		if !in.Amount.IsPositive() {
			return core.Invalidf("amount", "%s amount must be positive", in.Type)
		}
	case TxDeduction:
		if !in.Amount.IsNegative() {
			return core.Invalidf("amount", "deduction amount must be negative")
		}
	case TxAdjustment:
		if in.Amount.IsZero() {
			return core.Invalidf("amount", "adjustment amount must be non-zero")
		}
	default:
		return core.Invalidf("type", "unknown transaction type %q", in.Type)
	}
	return nil
}

func actorID(actor *core.User) core.UserID {
	if actor == nil {
		return ""
	}
	return actor.ID
}

// =============================================================================
// REVERSE
// =============================================================================

// Reverse undoes a transaction by posting a new row with the inverted amount.
// The original row is never deleted; it gains correction metadata and the
// reversal links back via OriginalTransaction.
func (l *Ledger) Reverse(ctx context.Context, txID core.TransactionID, reason string, actor *core.User) (*Transaction, error) {
	if err := l.authz.Check(actor, core.PermReverseTransaction); err != nil {
		return nil, err
	}

	original, err := l.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if original.IsCorrected {
		return nil, fmt.Errorf("transaction %s already corrected: %w", txID, core.ErrConflict)
	}

	reversal, err := l.Apply(ctx, ApplyInput{
		UserID:              original.UserID,
		BalanceType:         original.BalanceType,
		Type:                reversalType(original.Type),
		Amount:              original.Amount.Neg(),
		Description:         fmt.Sprintf("reversal of %s: %s", original.ID, reason),
		Reference:           &Reference{Kind: RefTransaction, ID: string(original.ID)},
		OriginalTransaction: original.ID,
		Actor:               actor,
	})
	if err != nil {
		return nil, err
	}

	if err := l.store.MarkCorrected(ctx, original.ID, actorID(actor)); err != nil {
		return nil, err
	}
	return reversal, nil
}

// reversalType picks the posting type for a reversal: undoing a charge is a
// refund, undoing a credit is an adjustment.
func reversalType(t TxType) TxType {
	if t == TxDeduction {
		return TxRefund
	}
	return TxAdjustment
}

// =============================================================================
// RECONCILE - Drift detection
// =============================================================================

// Reconcile replays the full transaction log for one balance and compares the
// sum against the stored amount. Read-only; callers decide what to do with
// drift (alert, freeze, manual adjustment).
func (l *Ledger) Reconcile(ctx context.Context, userID core.UserID, balanceType BalanceType) (*ReconcileReport, error) {
	if !ValidBalanceType(balanceType) {
		return nil, core.Invalidf("balanceType", "unknown balance type %q", balanceType)
	}

	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := l.store.ListTransactions(ctx, userID, balanceType)
	if err != nil {
		return nil, err
	}

	sum := core.ZeroMoney()
	for _, tx := range txs {
		if tx.Pending {
			continue
		}
		sum = sum.Add(tx.Amount)
	}

	stored := user.Balances[string(balanceType)].Amount
	return &ReconcileReport{
		UserID:        userID,
		BalanceType:   balanceType,
		StoredBalance: stored,
		ReplayedSum:   sum,
		Transactions:  len(txs),
		InSync:        stored.Equal(sum),
	}, nil
}

// Transaction loads one transaction by ID.
func (l *Ledger) Transaction(ctx context.Context, id core.TransactionID) (*Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

// Transactions returns a user's history for one balance, oldest first.
func (l *Ledger) Transactions(ctx context.Context, userID core.UserID, balanceType BalanceType) ([]Transaction, error) {
	if !ValidBalanceType(balanceType) {
		return nil, core.Invalidf("balanceType", "unknown balance type %q", balanceType)
	}
	return l.store.ListTransactions(ctx, userID, balanceType)
}

// =============================================================================
// FREEZE / UNFREEZE
// =============================================================================

// Freeze marks one balance frozen. Further charges fail until unfrozen,
// unless the actor holds the frozen-override permission.
func (l *Ledger) Freeze(ctx context.Context, userID core.UserID, balanceType BalanceType, reason string, actor *core.User) error {
	if err := l.authz.Check(actor, core.PermManageUsers); err != nil {
		return err
	}
	if !ValidBalanceType(balanceType) {
		return core.Invalidf("balanceType", "unknown balance type %q", balanceType)
	}
	return l.setFrozen(ctx, userID, balanceType, true, reason)
}

// Unfreeze clears the frozen flag.
func (l *Ledger) Unfreeze(ctx context.Context, userID core.UserID, balanceType BalanceType, actor *core.User) error {
	if err := l.authz.Check(actor, core.PermManageUsers); err != nil {
		return err
	}
	if !ValidBalanceType(balanceType) {
		return core.Invalidf("balanceType", "unknown balance type %q", balanceType)
	}
	return l.setFrozen(ctx, userID, balanceType, false, "")
}

func (l *Ledger) setFrozen(ctx context.Context, userID core.UserID, balanceType BalanceType, frozen bool, reason string) error {
	fs, ok := l.store.(FreezeStore)
	if !ok {
		return fmt.Errorf("store does not support freezing")
	}
	return fs.SetFrozen(ctx, userID, balanceType, frozen, reason)
}

// FreezeStore is the optional store extension for balance freezing.
type FreezeStore interface {
	SetFrozen(ctx context.Context, id core.UserID, balanceType BalanceType, frozen bool, reason string) error
}

func (l *Ledger) notify(user *core.User, balanceType BalanceType, previous, next core.Money) {
	if l.events == nil {
		return
	}
	l.events.BalanceChanged(user, balanceType, previous, next)
}
