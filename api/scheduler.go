/*
scheduler.go - Automated month-end charge scheduler

PURPOSE:
  Periodically looks for finalized months whose date range has ended and
  runs the month-end charge pass for them.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only finalized months are eligible; charging an open month would let
    the charge and the records disagree
  - The charge pass itself is idempotent (per-user idempotency keys), so
    a month that was already charged produces only "already charged" skips
  - Fully-charged months are remembered in-process to avoid re-running

USAGE:
  scheduler := NewChargeScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunMonthEndCharges endpoint (manual trigger)
  - charges/monthend.go: The charge pass itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// ChargeScheduler runs month-end charge passes automatically.
type ChargeScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// done holds settings IDs whose charge pass completed with zero
	// failures. Process-local; a restart re-checks (harmless, idempotent).
	done map[core.SettingsID]bool
}

// NewChargeScheduler creates a new scheduler.
func NewChargeScheduler(h *Handler) *ChargeScheduler {
	return &ChargeScheduler{
		Handler:       h,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
		done:          make(map[core.SettingsID]bool),
	}
}

// systemActor is the principal charge runs execute under when triggered by
// the scheduler rather than a request.
func systemActor() *core.User {
	return core.NewUser("system", "System", core.RoleSuperadmin)
}

// Start begins the scheduler.
func (cs *ChargeScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	log.Printf("[Scheduler] Started with check interval: %v", cs.CheckInterval)
}

// Stop stops the scheduler.
func (cs *ChargeScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (cs *ChargeScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.checkAndCharge()

	for {
		select {
		case <-cs.ticker.C:
			cs.checkAndCharge()
		case <-cs.stop:
			return
		}
	}
}

func (cs *ChargeScheduler) checkAndCharge() {
	ctx := context.Background()
	today := core.Today()

	months, err := cs.Handler.Months.List(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing months: %v", err)
		return
	}

	actor := systemActor()
	for _, m := range months {
		if !m.IsFinalized || cs.isDone(m.ID) {
			continue
		}
		if today.BeforeOrEqual(m.Range.End) {
			// Month still running
			continue
		}

		report, err := cs.Handler.Charges.RunMonthEnd(ctx, m.ID, actor)
		if err != nil {
			log.Printf("[Scheduler] Error charging %04d-%02d: %v", m.Year, int(m.Month), err)
			continue
		}
		charged, skipped := 0, 0
		for _, o := range report.Outcomes {
			if o.Charged {
				charged++
			}
			if o.Skipped != "" {
				skipped++
			}
		}
		log.Printf("[Scheduler] Month %04d-%02d: %d charged, %d skipped, %d failed",
			m.Year, int(m.Month), charged, skipped, report.Failures)

		if report.Failures == 0 {
			cs.markDone(m.ID)
		}
	}
}

func (cs *ChargeScheduler) isDone(id core.SettingsID) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.done[id]
}

func (cs *ChargeScheduler) markDone(id core.SettingsID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.done[id] = true
}

// RunNow triggers an immediate check (for testing/admin).
func (cs *ChargeScheduler) RunNow() {
	cs.checkAndCharge()
}
