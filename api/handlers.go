/*
handlers.go - HTTP API handlers for the meal management system

PURPOSE:
  Exposes the meal bookkeeping engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                    List active users
    POST   /api/users                    Create user
    GET    /api/users/{id}               Get user with balances
    GET    /api/users/{id}/transactions  Transaction history per balance
    GET    /api/users/{id}/reconcile     Stored-vs-replayed drift check
    POST   /api/users/{id}/deposits      Post a deposit
    POST   /api/users/{id}/freeze        Freeze one balance
    POST   /api/users/{id}/unfreeze      Unfreeze one balance

  Meals:
    GET    /api/users/{id}/meals              Effective statuses over a range
    POST   /api/users/{id}/meals/toggle       Toggle one cell
    POST   /api/users/{id}/meals/bulk-toggle  Toggle a date range
    POST   /api/users/{id}/meals/force-edit   Privileged edit (audited)

  Transactions:
    GET    /api/transactions/{id}          Get one transaction
    POST   /api/transactions/{id}/reverse  Reverse a posted transaction

  Calendar / rules:
    GET/POST      /api/holidays        Holiday CRUD
    DELETE        /api/holidays/{id}
    GET/POST      /api/overrides       Override CRUD
    GET/DELETE    /api/overrides/{id}

  Months:
    GET/POST  /api/months
    GET       /api/months/{id}
    POST      /api/months/{id}/finalize
    POST      /api/months/{id}/unfinalize
    POST      /api/months/{id}/charges   Run the month-end charge pass

  Breakfasts:
    GET/POST  /api/breakfasts
    GET       /api/breakfasts/{id}
    POST      /api/breakfasts/{id}/charges
    POST      /api/breakfasts/{id}/correct

  Audit:
    GET  /api/audit   Correction history, filterable by target

ACTING USER:
  Mutating endpoints read the acting user from the X-Actor-ID header and
  load it from the store. Authentication is out of scope; the header is
  trusted to be an already-authenticated principal.

ERROR HANDLING:
  Domain errors map onto HTTP status by taxonomy:
  - 400: validation errors
  - 403: permission denials
  - 404: missing entities
  - 409: state errors (finalized, frozen, cutoff, override), conflicts,
         duplicate idempotency keys
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jfemon8/Meal-Management-sub005/audit"
	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// UserStore is the user persistence the API needs directly.
type UserStore interface {
	SaveUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id core.UserID) (*core.User, error)
	ListActiveUsers(ctx context.Context) ([]core.User, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Users     UserStore
	Ledger    *ledger.Ledger
	Resolver  *meal.Resolver
	Calendar  *calendar.Calendar
	Holidays  calendar.Store
	Overrides rules.Store
	Months    *month.Service
	Charges   *charges.Service
	Audit     audit.Log

	authz *core.Authorizer
}

// Dependencies bundles the constructor arguments.
type Dependencies struct {
	Users     UserStore
	Ledger    *ledger.Ledger
	Resolver  *meal.Resolver
	Calendar  *calendar.Calendar
	Holidays  calendar.Store
	Overrides rules.Store
	Months    *month.Service
	Charges   *charges.Service
	Audit     audit.Log
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(d Dependencies) *Handler {
	return &Handler{
		Users:     d.Users,
		Ledger:    d.Ledger,
		Resolver:  d.Resolver,
		Calendar:  d.Calendar,
		Holidays:  d.Holidays,
		Overrides: d.Overrides,
		Months:    d.Months,
		Charges:   d.Charges,
		Audit:     d.Audit,
		authz:     core.NewAuthorizer(),
	}
}

// actor loads the acting user from the X-Actor-ID header.
func (h *Handler) actor(r *http.Request) (*core.User, error) {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		return nil, core.Invalidf("X-Actor-ID", "acting user header required")
	}
	return h.Users.GetUser(r.Context(), core.UserID(id))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all active users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListActiveUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user with balances.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetUser(r.Context(), core.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// CreateUser creates a new user with three zero balances.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermManageUsers); err != nil {
		writeDomainError(w, err)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	role := core.Role(req.Role)
	switch role {
	case core.RoleUser, core.RoleManager, core.RoleAdmin, core.RoleSuperadmin:
	case "":
		role = core.RoleUser
	default:
		writeError(w, http.StatusBadRequest, "unknown role", nil)
		return
	}

	u := core.NewUser(core.UserID(req.ID), req.Name, role)
	if err := h.Users.SaveUser(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// GetTransactions returns a user's transaction history for one balance.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := core.UserID(chi.URLParam(r, "id"))
	bt := ledger.BalanceType(r.URL.Query().Get("balance_type"))
	if !ledger.ValidBalanceType(bt) {
		writeError(w, http.StatusBadRequest, "balance_type must be breakfast, lunch, or dinner", nil)
		return
	}
	txs, err := h.Ledger.Transactions(r.Context(), userID, bt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// Reconcile checks one balance against its transaction history.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID := core.UserID(chi.URLParam(r, "id"))
	bt := ledger.BalanceType(r.URL.Query().Get("balance_type"))
	if !ledger.ValidBalanceType(bt) {
		writeError(w, http.StatusBadRequest, "balance_type must be breakfast, lunch, or dinner", nil)
		return
	}
	report, err := h.Ledger.Reconcile(r.Context(), userID, bt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileDTO{
		UserID:        string(report.UserID),
		BalanceType:   string(report.BalanceType),
		StoredBalance: report.StoredBalance.String(),
		ReplayedSum:   report.ReplayedSum.String(),
		Transactions:  report.Transactions,
		InSync:        report.InSync,
	})
}

// Deposit posts a credit to one of a user's balances.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermPostDeposits); err != nil {
		writeDomainError(w, err)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := h.Ledger.Apply(r.Context(), ledger.ApplyInput{
		UserID:         core.UserID(chi.URLParam(r, "id")),
		BalanceType:    ledger.BalanceType(req.BalanceType),
		Type:           ledger.TxDeposit,
		Amount:         amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
		Actor:          actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// FreezeBalance freezes one balance; frozen balances reject ledger writes.
func (h *Handler) FreezeBalance(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	userID := core.UserID(chi.URLParam(r, "id"))
	if err := h.Ledger.Freeze(r.Context(), userID, ledger.BalanceType(req.BalanceType), req.Reason, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "frozen"})
}

// UnfreezeBalance lifts a freeze.
func (h *Handler) UnfreezeBalance(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	userID := core.UserID(chi.URLParam(r, "id"))
	if err := h.Ledger.Unfreeze(r.Context(), userID, ledger.BalanceType(req.BalanceType), actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unfrozen"})
}

// =============================================================================
// MEAL HANDLERS
// =============================================================================

// GetMealStatuses returns effective statuses over a date range. With no
// meal_type filter both lunch and dinner are returned, which is the shape
// a month-grid calendar view renders from.
func (h *Handler) GetMealStatuses(w http.ResponseWriter, r *http.Request) {
	userID := core.UserID(chi.URLParam(r, "id"))
	span, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	mealTypes := []meal.MealType{meal.Lunch, meal.Dinner}
	if mt := meal.MealType(r.URL.Query().Get("meal_type")); mt != "" {
		if !meal.ValidMealType(mt) {
			writeError(w, http.StatusBadRequest, "meal_type must be lunch or dinner", nil)
			return
		}
		mealTypes = []meal.MealType{mt}
	}

	var dtos []StatusDTO
	for _, mt := range mealTypes {
		statuses, err := h.Resolver.StatusRange(r.Context(), userID, span, mt)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		for _, s := range statuses {
			dtos = append(dtos, toStatusDTO(s))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ToggleMeal flips one meal cell.
func (h *Handler) ToggleMeal(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := h.toggleInput(actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	record, err := h.Resolver.Toggle(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status, err := h.Resolver.EffectiveStatus(r.Context(), record.UserID, record.Date, record.MealType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(*status))
}

// BulkToggleMeals applies one toggle across a date range, one outcome per
// date. Dates that fail their window check are skipped, not aborted.
func (h *Handler) BulkToggleMeals(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req BulkToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	span, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in := meal.ToggleInput{
		Actor:    actor,
		UserID:   core.UserID(chi.URLParam(r, "id")),
		MealType: meal.MealType(req.MealType),
		IsOn:     req.IsOn,
		Count:    req.Count,
	}

	outcomes, err := h.Resolver.BulkToggle(r.Context(), in, span)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BulkOutcomeDTO, len(outcomes))
	for i, o := range outcomes {
		dtos[i] = BulkOutcomeDTO{Date: o.Date.String(), Applied: o.Applied, Reason: o.Reason}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ForceEditMeal edits a cell past finalization/cutoff checks. Audited.
func (h *Handler) ForceEditMeal(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required for force edits", nil)
		return
	}
	in, err := h.toggleInput(actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	record, err := h.Resolver.ForceEdit(r.Context(), in, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status, err := h.Resolver.EffectiveStatus(r.Context(), record.UserID, record.Date, record.MealType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(*status))
}

func (h *Handler) toggleInput(actor *core.User, userID string, req ToggleRequest) (meal.ToggleInput, error) {
	d, err := core.ParseDay(req.Date)
	if err != nil {
		return meal.ToggleInput{}, core.Invalidf("date", "invalid date %q (use YYYY-MM-DD)", req.Date)
	}
	return meal.ToggleInput{
		Actor:    actor,
		UserID:   core.UserID(userID),
		Date:     d,
		MealType: meal.MealType(req.MealType),
		IsOn:     req.IsOn,
		Count:    req.Count,
	}, nil
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// GetTransaction returns one transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.Transaction(r.Context(), core.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// ReverseTransaction posts a compensating transaction and marks the
// original corrected. The original row is never rewritten.
func (h *Handler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Ledger.Reverse(r.Context(), core.TransactionID(chi.URLParam(r, "id")), req.Reason, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.ListHolidays(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{
			ID:             hd.ID,
			Name:           hd.Name,
			Type:           string(hd.Type),
			Recurring:      hd.Recurring,
			RecurringMonth: int(hd.RecurringMonth),
			RecurringDay:   hd.RecurringDay,
			IsActive:       hd.IsActive,
		}
		if !hd.Date.IsZero() {
			dtos[i].Date = hd.Date.String()
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday saves a holiday (fixed-date or recurring).
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermManageHolidays); err != nil {
		writeDomainError(w, err)
		return
	}

	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	hd := calendar.Holiday{
		ID:             req.ID,
		Name:           req.Name,
		Type:           calendar.HolidayType(req.Type),
		Recurring:      req.Recurring,
		RecurringMonth: time.Month(req.RecurringMonth),
		RecurringDay:   req.RecurringDay,
		IsActive:       req.IsActive,
	}
	if hd.ID == "" {
		hd.ID = uuid.New().String()
	}
	if req.Date != "" {
		d, err := core.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		hd.Date = d
	}
	if err := hd.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Holidays.SaveHoliday(r.Context(), hd); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermManageHolidays); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// OVERRIDE HANDLERS
// =============================================================================

// ListOverrides returns all rule overrides.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.Overrides.ListOverrides(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]OverrideDTO, len(overrides))
	for i, o := range overrides {
		dtos[i] = toOverrideDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOverride returns one override.
func (h *Handler) GetOverride(w http.ResponseWriter, r *http.Request) {
	o, err := h.Overrides.GetOverride(r.Context(), core.OverrideID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverrideDTO(*o))
}

// CreateOverride saves a rule override.
func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermManageOverrides); err != nil {
		writeDomainError(w, err)
		return
	}

	var req OverrideDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	o, err := overrideFromDTO(req, actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := o.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Overrides.SaveOverride(r.Context(), o); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOverrideDTO(o))
}

// DeleteOverride removes an override. Records it shadowed reassert.
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.authz.Check(actor, core.PermManageOverrides); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Overrides.DeleteOverride(r.Context(), core.OverrideID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func overrideFromDTO(req OverrideDTO, createdBy core.UserID) (rules.Override, error) {
	o := rules.Override{
		ID:           core.OverrideID(req.ID),
		TargetType:   rules.TargetType(req.TargetType),
		TargetUserID: core.UserID(req.TargetUserID),
		Meals:        rules.MealSelector(req.Meals),
		Action:       rules.Action(req.Action),
		Priority:     req.Priority,
		IsActive:     req.IsActive,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
		DateSpec:     rules.DateSpec{Kind: rules.DateSpecKind(req.SpecKind)},
	}
	if o.ID == "" {
		o.ID = core.OverrideID(uuid.New().String())
	}
	if req.Date != "" {
		d, err := core.ParseDay(req.Date)
		if err != nil {
			return o, core.Invalidf("date", "invalid date %q", req.Date)
		}
		o.DateSpec.Date = d
	}
	if req.StartDate != "" || req.EndDate != "" {
		span, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return o, err
		}
		o.DateSpec.Range = span
	}
	for _, wd := range req.Weekdays {
		o.DateSpec.Weekdays = append(o.DateSpec.Weekdays, time.Weekday(wd))
	}
	o.DateSpec.DaysOfMonth = append(o.DateSpec.DaysOfMonth, req.DaysOfMonth...)
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return o, core.Invalidf("expires_at", "invalid timestamp %q", *req.ExpiresAt)
		}
		o.ExpiresAt = &t
	}
	return o, nil
}

// =============================================================================
// MONTH HANDLERS
// =============================================================================

// ListMonths returns all month settings.
func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.Months.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]MonthSettingsDTO, len(months))
	for i, m := range months {
		dtos[i] = toMonthDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMonth returns one month's settings.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	m, err := h.Months.Get(r.Context(), core.SettingsID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDTO(*m))
}

// CreateMonth creates month settings with rates.
func (h *Handler) CreateMonth(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req CreateMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lunchRate, err := parseMoney("lunch_rate", req.LunchRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dinnerRate, err := parseMoney("dinner_rate", req.DinnerRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	span := core.MonthRange(req.Year, time.Month(req.Month))
	if req.StartDate != "" || req.EndDate != "" {
		span, err = parseRange(req.StartDate, req.EndDate)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	settings, err := h.Months.Create(r.Context(), month.Settings{
		Year:       req.Year,
		Month:      time.Month(req.Month),
		Range:      span,
		LunchRate:  lunchRate,
		DinnerRate: dinnerRate,
	}, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMonthDTO(*settings))
}

// FinalizeMonth locks a month. One-way; reopening is a separate audited op.
func (h *Handler) FinalizeMonth(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Months.Finalize(r.Context(), core.SettingsID(chi.URLParam(r, "id")), actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "finalized"})
}

// UnfinalizeMonth reopens a finalized month. Superadmin only, audited.
func (h *Handler) UnfinalizeMonth(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req UnfinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required to reopen a month", nil)
		return
	}
	if err := h.Months.ForceUnfinalize(r.Context(), core.SettingsID(chi.URLParam(r, "id")), req.Reason, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reopened"})
}

// RunMonthEndCharges posts the aggregate lunch/dinner deductions for a
// finalized month. Idempotent; reruns skip already-charged users.
func (h *Handler) RunMonthEndCharges(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := h.Charges.RunMonthEnd(r.Context(), core.SettingsID(chi.URLParam(r, "id")), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChargeReportDTO(report))
}

// =============================================================================
// BREAKFAST HANDLERS
// =============================================================================

// ListBreakfasts returns breakfasts within a date range.
func (h *Handler) ListBreakfasts(w http.ResponseWriter, r *http.Request) {
	span, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	breakfasts, err := h.Charges.ListBreakfasts(r.Context(), span)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BreakfastDTO, len(breakfasts))
	for i := range breakfasts {
		dtos[i] = toBreakfastDTO(&breakfasts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBreakfast returns one breakfast with its split.
func (h *Handler) GetBreakfast(w http.ResponseWriter, r *http.Request) {
	b, err := h.Charges.GetBreakfast(r.Context(), core.BreakfastID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakfastDTO(b))
}

// CreateBreakfast creates a breakfast entry and splits its cost.
func (h *Handler) CreateBreakfast(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req CreateBreakfastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := core.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	total, err := parseMoney("total_cost", req.TotalCost)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	participants := make([]core.UserID, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = core.UserID(p)
	}

	b, err := h.Charges.CreateBreakfast(r.Context(), date, total, participants, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBreakfastDTO(b))
}

// PostBreakfastCharges deducts each participant's share.
func (h *Handler) PostBreakfastCharges(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := h.Charges.PostBreakfastCharges(r.Context(), core.BreakfastID(chi.URLParam(r, "id")), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakfastReportDTO(report))
}

// CorrectBreakfast refunds posted shares and replaces the split.
func (h *Handler) CorrectBreakfast(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req CorrectBreakfastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	total, err := parseMoney("total_cost", req.TotalCost)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	participants := make([]core.UserID, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = core.UserID(p)
	}

	b, err := h.Charges.CorrectBreakfast(r.Context(), core.BreakfastID(chi.URLParam(r, "id")), total, participants, req.Reason, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakfastDTO(b))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAuditEntries returns correction history, filterable by target.
func (h *Handler) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Audit.List(r.Context(), r.URL.Query().Get("target_kind"), r.URL.Query().Get("target_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:         e.ID,
			At:         e.At.Format(time.RFC3339),
			ActorID:    string(e.ActorID),
			Action:     string(e.Action),
			TargetKind: e.TargetKind,
			TargetID:   e.TargetID,
			Reason:     e.Reason,
			Details:    e.Details,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, core.ErrPermission):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case core.IsStateError(err),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func parseMoney(field, s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, core.Invalidf(field, "invalid amount %q", s)
	}
	return core.Money{Value: d}, nil
}

func parseRange(start, end string) (core.DateRange, error) {
	s, err := core.ParseDay(start)
	if err != nil {
		return core.DateRange{}, core.Invalidf("start", "invalid date %q (use YYYY-MM-DD)", start)
	}
	e, err := core.ParseDay(end)
	if err != nil {
		return core.DateRange{}, core.Invalidf("end", "invalid date %q (use YYYY-MM-DD)", end)
	}
	return core.DateRange{Start: s, End: e}, nil
}
