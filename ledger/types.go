/*
Package ledger maintains the per-user balances and their append-only
transaction log.

PURPOSE:
  Every balance change in the system - breakfast deductions, month-end
  lunch/dinner charges, deposits, corrections - flows through this package.
  The transaction log is the source of truth; the stored balance is the
  hot-path cache that Reconcile can check for drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Transactions are never updated or deleted. Corrections
     post a reversal row and stamp correction metadata on the original.
  2. SERIALIZED: Writes for one (user, balanceType) pair are serialized
     through a per-key lock, so concurrent deductions cannot lose updates.
  3. NEGATIVE IS FINE: This is a debt-tracking ledger, not a wallet.
     Insufficient balance is NOT an error; frozen balance IS.

CRASH DETECTABILITY:
  The transaction row is written first with a pending marker, then the
  balance, then the marker is cleared. A crash between the writes leaves a
  detectable pending row rather than a silent inconsistency.
*/
package ledger

import (
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// BALANCE TYPES
// =============================================================================

type BalanceType string

const (
	BalanceBreakfast BalanceType = "breakfast"
	BalanceLunch     BalanceType = "lunch"
	BalanceDinner    BalanceType = "dinner"
)

// ValidBalanceType reports whether bt names one of the three balances.
func ValidBalanceType(bt BalanceType) bool {
	switch bt {
	case BalanceBreakfast, BalanceLunch, BalanceDinner:
		return true
	}
	return false
}

// =============================================================================
// TRANSACTION - Atomic change to one balance
// =============================================================================

type TxType string

const (
	TxDeposit    TxType = "deposit"    // Money added to a balance (positive)
	TxDeduction  TxType = "deduction"  // Meal/breakfast charge (negative)
	TxAdjustment TxType = "adjustment" // Manual correction (either sign)
	TxRefund     TxType = "refund"     // Reversal of a prior charge (positive)
)

// Reference is a tagged link from a transaction to the record that caused it.
type RefKind string

const (
	RefBreakfast     RefKind = "breakfast"
	RefMeal          RefKind = "meal"
	RefMonthSettings RefKind = "monthSettings"
	RefTransaction   RefKind = "transaction"
)

type Reference struct {
	Kind RefKind
	ID   string
}

type Transaction struct {
	ID          core.TransactionID
	UserID      core.UserID
	BalanceType BalanceType
	Type        TxType

	// Amount is signed: deposits/refunds positive, deductions negative.
	Amount          core.Money
	PreviousBalance core.Money
	NewBalance      core.Money

	Description    string
	Reference      *Reference
	IdempotencyKey string

	// Correction metadata. The row itself is never rewritten beyond these
	// two fields; the amending entry is a separate transaction.
	IsCorrected bool
	CorrectedBy core.UserID

	// OriginalTransaction links a reversal to the transaction it undoes.
	OriginalTransaction core.TransactionID

	// Pending marks a transaction whose balance write has not completed yet.
	Pending bool

	PerformedBy core.UserID
	CreatedAt   time.Time
}

// =============================================================================
// RECONCILIATION REPORT
// =============================================================================

// ReconcileReport compares the stored balance against the replayed log.
type ReconcileReport struct {
	UserID        core.UserID
	BalanceType   BalanceType
	StoredBalance core.Money
	ReplayedSum   core.Money
	Transactions  int
	InSync        bool
}
