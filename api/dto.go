/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	IsActive    bool         `json:"is_active"`
	Permissions []string     `json:"permissions,omitempty"`
	Balances    []BalanceDTO `json:"balances,omitempty"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// BalanceDTO represents one of a user's three balances.
type BalanceDTO struct {
	BalanceType  string `json:"balance_type"`
	Amount       string `json:"amount"`
	IsFrozen     bool   `json:"is_frozen"`
	FrozenReason string `json:"frozen_reason,omitempty"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	BalanceType     string `json:"balance_type"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	PreviousBalance string `json:"previous_balance"`
	NewBalance      string `json:"new_balance"`
	Description     string `json:"description,omitempty"`
	ReferenceKind   string `json:"reference_kind,omitempty"`
	ReferenceID     string `json:"reference_id,omitempty"`
	IsCorrected     bool   `json:"is_corrected"`
	Pending         bool   `json:"pending,omitempty"`
	PerformedBy     string `json:"performed_by,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// DepositRequest posts a credit to a user's balance.
type DepositRequest struct {
	BalanceType    string `json:"balance_type"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ReverseRequest reverses a posted transaction.
type ReverseRequest struct {
	Reason string `json:"reason"`
}

// FreezeRequest freezes one balance of a user.
type FreezeRequest struct {
	BalanceType string `json:"balance_type"`
	Reason      string `json:"reason"`
}

// ReconcileDTO reports stored-vs-replayed drift for one balance.
type ReconcileDTO struct {
	UserID        string `json:"user_id"`
	BalanceType   string `json:"balance_type"`
	StoredBalance string `json:"stored_balance"`
	ReplayedSum   string `json:"replayed_sum"`
	Transactions  int    `json:"transactions"`
	InSync        bool   `json:"in_sync"`
}

// StatusDTO is the resolver's answer for one (user, date, meal) cell.
type StatusDTO struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	MealType    string `json:"meal_type"`
	IsOn        bool   `json:"is_on"`
	Count       int    `json:"count"`
	Source      string `json:"source"`
	OverrideID  string `json:"override_id,omitempty"`
	Togglable   bool   `json:"togglable"`
	ToggleBlock string `json:"toggle_block,omitempty"`
}

// ToggleRequest flips one meal cell.
type ToggleRequest struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	IsOn     bool   `json:"is_on"`
	Count    int    `json:"count,omitempty"`
	Reason   string `json:"reason,omitempty"` // force edits only
}

// BulkToggleRequest applies one toggle across a date range.
type BulkToggleRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	MealType  string `json:"meal_type"`
	IsOn      bool   `json:"is_on"`
	Count     int    `json:"count,omitempty"`
}

// BulkOutcomeDTO reports one date of a bulk toggle.
type BulkOutcomeDTO struct {
	Date    string `json:"date"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Date           string `json:"date,omitempty"`
	Recurring      bool   `json:"recurring"`
	RecurringMonth int    `json:"recurring_month,omitempty"`
	RecurringDay   int    `json:"recurring_day,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// OverrideDTO represents a rule override.
type OverrideDTO struct {
	ID           string   `json:"id"`
	TargetType   string   `json:"target_type"`
	TargetUserID string   `json:"target_user_id,omitempty"`
	SpecKind     string   `json:"spec_kind"`
	Date         string   `json:"date,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Weekdays     []int    `json:"weekdays,omitempty"`
	DaysOfMonth  []int    `json:"days_of_month,omitempty"`
	Meals        string   `json:"meals"`
	Action       string   `json:"action"`
	Priority     int      `json:"priority"`
	IsActive     bool     `json:"is_active"`
	ExpiresAt    *string  `json:"expires_at,omitempty"`
	CreatedBy    string   `json:"created_by,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// MonthSettingsDTO represents a month's configuration.
type MonthSettingsDTO struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	LunchRate   string `json:"lunch_rate"`
	DinnerRate  string `json:"dinner_rate"`
	IsFinalized bool   `json:"is_finalized"`
	FinalizedBy string `json:"finalized_by,omitempty"`
}

// CreateMonthRequest creates month settings.
type CreateMonthRequest struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	StartDate  string `json:"start_date,omitempty"` // defaults to calendar month
	EndDate    string `json:"end_date,omitempty"`
	LunchRate  string `json:"lunch_rate"`
	DinnerRate string `json:"dinner_rate"`
}

// UnfinalizeRequest reopens a finalized month.
type UnfinalizeRequest struct {
	Reason string `json:"reason"`
}

// BreakfastDTO represents a breakfast entry with its split.
type BreakfastDTO struct {
	ID           string           `json:"id"`
	Date         string           `json:"date"`
	TotalCost    string           `json:"total_cost"`
	Participants []ParticipantDTO `json:"participants"`
	IsFinalized  bool             `json:"is_finalized"`
}

// ParticipantDTO is one participant's share.
type ParticipantDTO struct {
	UserID   string `json:"user_id"`
	Cost     string `json:"cost"`
	Deducted bool   `json:"deducted"`
}

// CreateBreakfastRequest creates a breakfast entry.
type CreateBreakfastRequest struct {
	Date         string   `json:"date"`
	TotalCost    string   `json:"total_cost"`
	Participants []string `json:"participants"`
}

// CorrectBreakfastRequest replaces a posted breakfast.
type CorrectBreakfastRequest struct {
	TotalCost    string   `json:"total_cost"`
	Participants []string `json:"participants"`
	Reason       string   `json:"reason"`
}

// ChargeReportDTO summarizes a month-end charge run.
type ChargeReportDTO struct {
	SettingsID string             `json:"settings_id"`
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Outcomes   []ChargeOutcomeDTO `json:"outcomes"`
	Failures   int                `json:"failures"`
}

// ChargeOutcomeDTO is one (user, balance) result of a charge run.
type ChargeOutcomeDTO struct {
	UserID      string `json:"user_id"`
	BalanceType string `json:"balance_type"`
	MealCount   int    `json:"meal_count"`
	Amount      string `json:"amount,omitempty"`
	Charged     bool   `json:"charged"`
	Skipped     string `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BreakfastReportDTO summarizes a breakfast posting pass.
type BreakfastReportDTO struct {
	BreakfastID string                  `json:"breakfast_id"`
	Outcomes    []BreakfastOutcomeDTO   `json:"outcomes"`
	Failures    int                     `json:"failures"`
	Finalized   bool                    `json:"finalized"`
}

// BreakfastOutcomeDTO is one participant's posting result.
type BreakfastOutcomeDTO struct {
	UserID  string `json:"user_id"`
	Cost    string `json:"cost"`
	Charged bool   `json:"charged"`
	Error   string `json:"error,omitempty"`
}

// AuditEntryDTO is one correction-history row.
type AuditEntryDTO struct {
	ID         string            `json:"id"`
	At         string            `json:"at"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	TargetKind string            `json:"target_kind"`
	TargetID   string            `json:"target_id"`
	Reason     string            `json:"reason,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u *core.User) UserDTO {
	dto := UserDTO{
		ID:       string(u.ID),
		Name:     u.Name,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
	for _, p := range u.Permissions {
		dto.Permissions = append(dto.Permissions, string(p))
	}
	for _, bt := range []ledger.BalanceType{ledger.BalanceBreakfast, ledger.BalanceLunch, ledger.BalanceDinner} {
		if b, ok := u.Balances[string(bt)]; ok {
			dto.Balances = append(dto.Balances, BalanceDTO{
				BalanceType:  string(bt),
				Amount:       b.Amount.String(),
				IsFrozen:     b.IsFrozen,
				FrozenReason: b.FrozenReason,
			})
		}
	}
	return dto
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:              string(tx.ID),
		UserID:          string(tx.UserID),
		BalanceType:     string(tx.BalanceType),
		Type:            string(tx.Type),
		Amount:          tx.Amount.String(),
		PreviousBalance: tx.PreviousBalance.String(),
		NewBalance:      tx.NewBalance.String(),
		Description:     tx.Description,
		IsCorrected:     tx.IsCorrected,
		Pending:         tx.Pending,
		PerformedBy:     string(tx.PerformedBy),
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.Reference != nil {
		dto.ReferenceKind = string(tx.Reference.Kind)
		dto.ReferenceID = tx.Reference.ID
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toStatusDTO(s meal.EffectiveStatus) StatusDTO {
	return StatusDTO{
		UserID:      string(s.UserID),
		Date:        s.Date.String(),
		MealType:    string(s.MealType),
		IsOn:        s.IsOn,
		Count:       s.Count,
		Source:      string(s.Source),
		OverrideID:  string(s.OverrideID),
		Togglable:   s.Togglable,
		ToggleBlock: s.ToggleBlock,
	}
}

func toOverrideDTO(o rules.Override) OverrideDTO {
	dto := OverrideDTO{
		ID:           string(o.ID),
		TargetType:   string(o.TargetType),
		TargetUserID: string(o.TargetUserID),
		SpecKind:     string(o.DateSpec.Kind),
		Meals:        string(o.Meals),
		Action:       string(o.Action),
		Priority:     o.Priority,
		IsActive:     o.IsActive,
		CreatedBy:    string(o.CreatedBy),
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
	if !o.DateSpec.Date.IsZero() {
		dto.Date = o.DateSpec.Date.String()
	}
	if !o.DateSpec.Range.Start.IsZero() {
		dto.StartDate = o.DateSpec.Range.Start.String()
		dto.EndDate = o.DateSpec.Range.End.String()
	}
	for _, wd := range o.DateSpec.Weekdays {
		dto.Weekdays = append(dto.Weekdays, int(wd))
	}
	dto.DaysOfMonth = append(dto.DaysOfMonth, o.DateSpec.DaysOfMonth...)
	if o.ExpiresAt != nil {
		s := o.ExpiresAt.UTC().Format(time.RFC3339)
		dto.ExpiresAt = &s
	}
	return dto
}

func toMonthDTO(m month.Settings) MonthSettingsDTO {
	return MonthSettingsDTO{
		ID:          string(m.ID),
		Year:        m.Year,
		Month:       int(m.Month),
		StartDate:   m.Range.Start.String(),
		EndDate:     m.Range.End.String(),
		LunchRate:   m.LunchRate.String(),
		DinnerRate:  m.DinnerRate.String(),
		IsFinalized: m.IsFinalized,
		FinalizedBy: string(m.FinalizedBy),
	}
}

func toBreakfastDTO(b *charges.Breakfast) BreakfastDTO {
	dto := BreakfastDTO{
		ID:          string(b.ID),
		Date:        b.Date.String(),
		TotalCost:   b.TotalCost.String(),
		IsFinalized: b.IsFinalized,
	}
	for _, p := range b.Participants {
		dto.Participants = append(dto.Participants, ParticipantDTO{
			UserID:   string(p.UserID),
			Cost:     p.Cost.String(),
			Deducted: p.Deducted,
		})
	}
	return dto
}

func toChargeReportDTO(r *charges.MonthEndReport) ChargeReportDTO {
	dto := ChargeReportDTO{
		SettingsID: string(r.SettingsID),
		Year:       r.Year,
		Month:      r.Month,
		Failures:   r.Failures,
	}
	for _, o := range r.Outcomes {
		out := ChargeOutcomeDTO{
			UserID:      string(o.UserID),
			BalanceType: string(o.BalanceType),
			MealCount:   o.MealCount,
			Charged:     o.Charged,
			Skipped:     o.Skipped,
			Error:       o.Error,
		}
		if o.Charged {
			out.Amount = o.Amount.String()
		}
		dto.Outcomes = append(dto.Outcomes, out)
	}
	return dto
}

func toBreakfastReportDTO(r *charges.BreakfastPostReport) BreakfastReportDTO {
	dto := BreakfastReportDTO{
		BreakfastID: string(r.BreakfastID),
		Failures:    r.Failures,
		Finalized:   r.Finalized,
	}
	for _, o := range r.Outcomes {
		dto.Outcomes = append(dto.Outcomes, BreakfastOutcomeDTO{
			UserID:  string(o.UserID),
			Cost:    o.Cost.String(),
			Charged: o.Charged,
			Error:   o.Error,
		})
	}
	return dto
}
