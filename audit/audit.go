/*
Package audit records correction history: every privileged override call
(force-edit, force-unfinalize, reversal, freeze) writes one entry before or
atomically with the underlying mutation.

The log is append-only, like the ledger. It is separate from the transaction
log because corrections can touch records that never produce a balance change
(e.g. unfinalizing a month).
*/
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// CORRECTION HISTORY
// =============================================================================

type Action string

const (
	ActionForceEdit       Action = "force_edit"
	ActionForceUnfinalize Action = "force_unfinalize"
	ActionReversal        Action = "reversal"
	ActionFreeze          Action = "freeze"
	ActionUnfreeze        Action = "unfreeze"
)

type Entry struct {
	ID         string
	At         time.Time
	ActorID    core.UserID
	Action     Action
	TargetKind string // "mealRecord", "monthSettings", "transaction", "balance"
	TargetID   string
	Reason     string
	Details    map[string]string
}

// Log stores correction entries. Append-only.
type Log interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, targetKind, targetID string) ([]Entry, error)
}

// NewEntry builds a correction entry with a fresh ID and timestamp.
func NewEntry(actor core.UserID, action Action, targetKind, targetID, reason string) Entry {
	return Entry{
		ID:         uuid.New().String(),
		At:         time.Now(),
		ActorID:    actor,
		Action:     action,
		TargetKind: targetKind,
		TargetID:   targetID,
		Reason:     reason,
	}
}
