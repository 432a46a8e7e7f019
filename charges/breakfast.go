/*
Package charges applies money to balances: daily breakfast cost splits and
month-end lunch/dinner charges, both posted through the ledger.

PARTIAL FAILURE:
  One participant's ledger error never blocks the others. Every posting
  operation returns per-participant (or per-user) outcomes and only
  finalizes when zero failures remain.

IDEMPOTENT RERUNS:
  Every posting carries a deterministic idempotency key
  (breakfast:<id>:<user>, monthend:<settings>:<user>:<balance>). A rerun
  after a partial failure re-posts only the missing deductions; duplicate
  keys are treated as already-charged, not as errors.
*/
package charges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
)

// =============================================================================
// BREAKFAST
// =============================================================================

type Participant struct {
	UserID   core.UserID
	Cost     core.Money
	Deducted bool
}

// Breakfast is one day's shared breakfast cost. Date is unique.
type Breakfast struct {
	ID           core.BreakfastID
	Date         core.DayStamp
	TotalCost    core.Money
	Participants []Participant
	IsFinalized  bool

	CreatedBy core.UserID
	CreatedAt time.Time
}

// BreakfastStore persists breakfast entries.
type BreakfastStore interface {
	// SaveBreakfast inserts or replaces a breakfast. Inserting a second
	// breakfast for the same date fails with core.ErrConflict.
	SaveBreakfast(ctx context.Context, b Breakfast) error
	GetBreakfast(ctx context.Context, id core.BreakfastID) (*Breakfast, error)
	GetBreakfastByDate(ctx context.Context, d core.DayStamp) (*Breakfast, error)
	ListBreakfasts(ctx context.Context, span core.DateRange) ([]Breakfast, error)
	SetParticipantDeducted(ctx context.Context, id core.BreakfastID, userID core.UserID, deducted bool) error
	SetBreakfastFinalized(ctx context.Context, id core.BreakfastID, finalized bool) error
}

// =============================================================================
// COST SPLIT - largest-remainder
// =============================================================================

// SplitCost divides a total among n participants so the shares sum exactly
// to the total. A whole-unit total splits at whole-unit granularity: 99
// across 4 becomes 25, 25, 25, 24 - never 24.75 each. Totals with a cent
// fraction split at cent granularity instead (0.99 across 4 becomes
// 0.25, 0.25, 0.25, 0.24). Either way the remainder goes one slice each to
// the earliest participants and no amount is silently lost.
func SplitCost(total core.Money, n int) ([]core.Money, error) {
	if n <= 0 {
		return nil, core.Invalidf("participants", "at least one participant required")
	}
	if total.IsNegative() {
		return nil, core.Invalidf("totalCost", "must be non-negative")
	}
	cents := total.Cents()
	if !core.NewMoneyFromCents(cents).Equal(total) {
		return nil, core.Invalidf("totalCost", "sub-cent precision not supported")
	}

	slice := int64(100)
	if cents%slice != 0 {
		slice = 1
	}
	units := cents / slice
	base := units / int64(n)
	remainder := units % int64(n)

	shares := make([]core.Money, n)
	for i := range shares {
		u := base
		if int64(i) < remainder {
			u++
		}
		shares[i] = core.NewMoneyFromCents(u * slice)
	}
	return shares, nil
}

// =============================================================================
// BREAKFAST OPERATIONS
// =============================================================================

// CreateBreakfast records a day's breakfast and splits the cost.
func (s *Service) CreateBreakfast(ctx context.Context, date core.DayStamp, totalCost core.Money, participantIDs []core.UserID, actor *core.User) (*Breakfast, error) {
	if err := s.authz.Check(actor, core.PermManageBreakfast); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, core.Invalidf("date", "required")
	}
	if finalized, settings, err := s.months.IsFinalizedFor(ctx, date); err != nil {
		return nil, err
	} else if finalized {
		return nil, &core.FinalizedMonthError{Year: settings.Year, Month: int(settings.Month)}
	}

	shares, err := SplitCost(totalCost, len(participantIDs))
	if err != nil {
		return nil, err
	}

	b := Breakfast{
		ID:        core.BreakfastID(uuid.New().String()),
		Date:      date,
		TotalCost: totalCost,
		CreatedBy: actorID(actor),
		CreatedAt: s.now(),
	}
	for i, id := range participantIDs {
		b.Participants = append(b.Participants, Participant{UserID: id, Cost: shares[i]})
	}

	if err := s.breakfasts.SaveBreakfast(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBreakfast loads one breakfast with its split.
func (s *Service) GetBreakfast(ctx context.Context, id core.BreakfastID) (*Breakfast, error) {
	return s.breakfasts.GetBreakfast(ctx, id)
}

// ListBreakfasts returns breakfasts with dates inside the range.
func (s *Service) ListBreakfasts(ctx context.Context, span core.DateRange) ([]Breakfast, error) {
	return s.breakfasts.ListBreakfasts(ctx, span)
}

// ParticipantOutcome reports one participant's result from a posting pass.
type ParticipantOutcome struct {
	UserID  core.UserID
	Cost    core.Money
	Charged bool
	Error   string
}

// BreakfastPostReport summarizes a posting pass.
type BreakfastPostReport struct {
	BreakfastID core.BreakfastID
	Outcomes    []ParticipantOutcome
	Failures    int
	Finalized   bool
}

// PostBreakfastCharges deducts each participant's share through the ledger.
// Participants already deducted (earlier pass, or idempotency-key hit) are
// skipped. The breakfast finalizes only when zero failures remain.
func (s *Service) PostBreakfastCharges(ctx context.Context, id core.BreakfastID, actor *core.User) (*BreakfastPostReport, error) {
	if err := s.authz.Check(actor, core.PermManageBreakfast); err != nil {
		return nil, err
	}
	b, err := s.breakfasts.GetBreakfast(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.IsFinalized {
		return nil, fmt.Errorf("breakfast %s already finalized: %w", id, core.ErrState)
	}

	report := &BreakfastPostReport{BreakfastID: id}
	for _, p := range b.Participants {
		outcome := ParticipantOutcome{UserID: p.UserID, Cost: p.Cost}
		if p.Deducted {
			outcome.Charged = true
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		_, err := s.ledger.Apply(ctx, ledger.ApplyInput{
			UserID:         p.UserID,
			BalanceType:    ledger.BalanceBreakfast,
			Type:           ledger.TxDeduction,
			Amount:         p.Cost.Neg(),
			Description:    fmt.Sprintf("breakfast %s", b.Date),
			Reference:      &ledger.Reference{Kind: ledger.RefBreakfast, ID: string(id)},
			IdempotencyKey: breakfastKey(id, p.UserID),
			Actor:          actor,
		})
		switch {
		case err == nil, errors.Is(err, core.ErrDuplicateIdempotencyKey):
			outcome.Charged = true
			if markErr := s.breakfasts.SetParticipantDeducted(ctx, id, p.UserID, true); markErr != nil {
				outcome.Error = markErr.Error()
			}
		default:
			outcome.Error = err.Error()
			report.Failures++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if report.Failures == 0 {
		if err := s.breakfasts.SetBreakfastFinalized(ctx, id, true); err != nil {
			return report, err
		}
		report.Finalized = true
	}
	return report, nil
}

// CorrectBreakfast rewrites a breakfast that already has deductions posted.
// Privileged: writes a correction-history entry, refunds every posted share,
// then replaces the breakfast with the new cost split, un-finalized, ready
// for a fresh posting pass.
func (s *Service) CorrectBreakfast(ctx context.Context, id core.BreakfastID, newTotal core.Money, participantIDs []core.UserID, reason string, actor *core.User) (*Breakfast, error) {
	if err := s.authz.Check(actor, core.PermForceEdit); err != nil {
		return nil, err
	}
	b, err := s.breakfasts.GetBreakfast(ctx, id)
	if err != nil {
		return nil, err
	}
	shares, err := SplitCost(newTotal, len(participantIDs))
	if err != nil {
		return nil, err
	}

	entry := audit.NewEntry(actorID(actor), audit.ActionForceEdit, "breakfast", string(id), reason)
	if err := s.log.Append(ctx, entry); err != nil {
		return nil, err
	}

	// Reverse old: refund every posted share before the new split applies.
	for _, p := range b.Participants {
		if !p.Deducted {
			continue
		}
		_, err := s.ledger.Apply(ctx, ledger.ApplyInput{
			UserID:      p.UserID,
			BalanceType: ledger.BalanceBreakfast,
			Type:        ledger.TxRefund,
			Amount:      p.Cost,
			Description: fmt.Sprintf("breakfast %s corrected: %s", b.Date, reason),
			Reference:   &ledger.Reference{Kind: ledger.RefBreakfast, ID: string(id)},
			Actor:       actor,
		})
		if err != nil {
			return nil, fmt.Errorf("refund for %s failed: %w", p.UserID, err)
		}
	}

	// Apply new: replace the split and reopen the breakfast.
	updated := Breakfast{
		ID:        b.ID,
		Date:      b.Date,
		TotalCost: newTotal,
		CreatedBy: b.CreatedBy,
		CreatedAt: b.CreatedAt,
	}
	for i, uid := range participantIDs {
		updated.Participants = append(updated.Participants, Participant{UserID: uid, Cost: shares[i]})
	}
	if err := s.breakfasts.SaveBreakfast(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func breakfastKey(id core.BreakfastID, userID core.UserID) string {
	return fmt.Sprintf("breakfast:%s:%s", id, userID)
}

// decimalFromInt is a small helper for rate math.
func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
