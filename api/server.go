/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*         Users, balances, deposits, meal toggles
  /api/transactions/*  Ledger reads and reversals
  /api/holidays/*      Holiday reference data
  /api/overrides/*     Rule overrides
  /api/months/*        Month settings, finalization, charge runs
  /api/breakfasts/*    Breakfast entries and charge posting
  /api/audit           Correction history

SECURITY NOTE:
  No authentication middleware. The X-Actor-ID header is trusted to carry
  an already-authenticated principal; authorization happens in the domain
  layer against that user's role and permissions.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/reconcile", h.Reconcile)
			r.Post("/{id}/deposits", h.Deposit)
			r.Post("/{id}/freeze", h.FreezeBalance)
			r.Post("/{id}/unfreeze", h.UnfreezeBalance)

			// Meal routes
			r.Get("/{id}/meals", h.GetMealStatuses)
			r.Post("/{id}/meals/toggle", h.ToggleMeal)
			r.Post("/{id}/meals/bulk-toggle", h.BulkToggleMeals)
			r.Post("/{id}/meals/force-edit", h.ForceEditMeal)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{id}", h.GetTransaction)
			r.Post("/{id}/reverse", h.ReverseTransaction)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Override routes
		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", h.ListOverrides)
			r.Post("/", h.CreateOverride)
			r.Get("/{id}", h.GetOverride)
			r.Delete("/{id}", h.DeleteOverride)
		})

		// Month routes
		r.Route("/months", func(r chi.Router) {
			r.Get("/", h.ListMonths)
			r.Post("/", h.CreateMonth)
			r.Get("/{id}", h.GetMonth)
			r.Post("/{id}/finalize", h.FinalizeMonth)
			r.Post("/{id}/unfinalize", h.UnfinalizeMonth)
			r.Post("/{id}/charges", h.RunMonthEndCharges)
		})

		// Breakfast routes
		r.Route("/breakfasts", func(r chi.Router) {
			r.Get("/", h.ListBreakfasts)
			r.Post("/", h.CreateBreakfast)
			r.Get("/{id}", h.GetBreakfast)
			r.Post("/{id}/charges", h.PostBreakfastCharges)
			r.Post("/{id}/correct", h.CorrectBreakfast)
		})

		// Audit routes
		r.Get("/audit", h.ListAuditEntries)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Meal Management API</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Meal Management API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/users">/api/users</a> - List users</li>
<li><a href="/api/months">/api/months</a> - List month settings</li>
<li><a href="/api/holidays">/api/holidays</a> - List holidays</li>
<li><a href="/api/overrides">/api/overrides</a> - List overrides</li>
</ul>
</body>
</html>`))
	})

	return r
}
