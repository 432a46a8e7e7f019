package ledger

import (
	"context"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// STORE - Persistence interface for balances and transactions
// =============================================================================

// Store persists users' balances and the transaction log.
// The transactions side is append-only: the only mutations permitted on an
// existing row are ClearPending and MarkCorrected, both metadata-only.
type Store interface {
	// GetUser loads a user with balances. Returns core.NotFoundError.
	GetUser(ctx context.Context, id core.UserID) (*core.User, error)

	// UpdateBalance writes the new stored amount for one balance.
	UpdateBalance(ctx context.Context, id core.UserID, balanceType BalanceType, amount core.Money) error

	// AppendTransaction persists a transaction row.
	// Fails with core.ErrDuplicateIdempotencyKey if the key already exists.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// ClearPending clears the pending marker after the balance write lands.
	ClearPending(ctx context.Context, id core.TransactionID) error

	// MarkCorrected stamps correction metadata on an existing row.
	MarkCorrected(ctx context.Context, id core.TransactionID, by core.UserID) error

	// GetTransaction loads a single transaction.
	GetTransaction(ctx context.Context, id core.TransactionID) (*Transaction, error)

	// ListTransactions returns all transactions for (user, balanceType),
	// ordered by creation time.
	ListTransactions(ctx context.Context, id core.UserID, balanceType BalanceType) ([]Transaction, error)

	// HasIdempotencyKey checks whether a key has already been used.
	HasIdempotencyKey(ctx context.Context, key string) (bool, error)
}
