/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the meal management server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, then parse command-line flags (flags win)
  2. Initialize SQLite store
  3. Build domain services (ledger, calendar, resolver, charges)
  4. Create API handler and router
  5. Start month-end scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, or SERVER_PORT)
  -db      SQLite database path (default: meals.db, or DB_PATH)
           Use ":memory:" for an in-memory database
  -seed    Load demo data on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the charge scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/mess.db"

  # Run with in-memory database and demo data
  ./server -db=":memory:" -seed

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/api"
	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/charges"
	"github.com/jfemon8/Meal-Management-sub005/config"
	"github.com/jfemon8/Meal-Management-sub005/ledger"
	"github.com/jfemon8/Meal-Management-sub005/meal"
	"github.com/jfemon8/Meal-Management-sub005/month"
	"github.com/jfemon8/Meal-Management-sub005/rules"
	"github.com/jfemon8/Meal-Management-sub005/store/sqlite"
)

// logSubscriber surfaces low-balance events in the server log. A chat or
// mail notifier would implement the same interface.
type logSubscriber struct{}

func (logSubscriber) LowBalance(e ledger.LowBalanceEvent) {
	log.Printf("[Balance] LOW: %s (%s) %s balance down to %s (threshold %s)",
		e.UserName, e.UserID, e.BalanceType, e.Balance, e.Threshold)
}

func main() {
	cfg := config.Load()

	// Flags override environment config
	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	seed := flag.Bool("seed", false, "load demo data on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Domain services
	cal, err := calendar.New(store, cfg.Calendar.WeekendPolicy(), cfg.Calendar.HolidayPolicy())
	if err != nil {
		log.Fatalf("Invalid calendar policy: %v", err)
	}
	matcher := rules.NewMatcher(store)
	months := month.NewService(store, store)
	resolver := meal.NewResolver(store, matcher, cal, months, store, cfg.Meals.Cutoffs())

	led := ledger.New(store)
	notifier := ledger.NewNotifier(cfg.Charges.Threshold())
	notifier.Subscribe(logSubscriber{})
	led.SetNotifier(notifier)

	chargeSvc := charges.NewService(store, store, led, resolver, months, store)

	// API handler and router
	handler := api.NewHandler(api.Dependencies{
		Users:     store,
		Ledger:    led,
		Resolver:  resolver,
		Calendar:  cal,
		Holidays:  store,
		Overrides: store,
		Months:    months,
		Charges:   chargeSvc,
		Audit:     store,
	})

	if *seed {
		if err := handler.SeedDemoData(context.Background()); err != nil {
			log.Printf("Warning: Failed to seed demo data: %v", err)
		}
	}

	router := api.NewRouter(handler)

	// Month-end scheduler
	scheduler := api.NewChargeScheduler(handler)
	if cfg.Charges.SchedulerIntervalMinutes <= 0 {
		scheduler.Enabled = false
	} else {
		scheduler.CheckInterval = time.Duration(cfg.Charges.SchedulerIntervalMinutes) * time.Minute
	}
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
