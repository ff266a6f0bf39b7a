// Package scheduler runs the periodic synchronization jobs:
// - IPO and market data fetching into the shared cache
// - market status and IPO change detection with push notification fan-out
// - price alert evaluation during market hours
//
// Triggers fire on Nepal time. Market-dependent triggers are gated by a
// schedule window and skipped outside it. A trigger whose previous run is
// still in flight skips the new firing instead of overlapping it.
package scheduler

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/Ash-333/nepse-data/services"
	"github.com/go-co-op/gocron"
)

// Scheduler manages the scheduled jobs
type Scheduler struct {
	cron  *gocron.Scheduler
	jobs  *Jobs
	clock services.Clock

	marketWindow   *services.ScheduleWindow
	businessWindow *services.ScheduleWindow
}

// NewScheduler creates a scheduler firing in the given timezone
func NewScheduler(jobs *Jobs, clock services.Clock, loc *time.Location, marketWindow, businessWindow *services.ScheduleWindow) *Scheduler {
	return &Scheduler{
		cron:           gocron.NewScheduler(loc),
		jobs:           jobs,
		clock:          clock,
		marketWindow:   marketWindow,
		businessWindow: businessWindow,
	}
}

// Start registers all triggers and starts the scheduler asynchronously
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// IPO data: twice a day (10:00 and 20:00)
	s.cron.Cron("0 10,20 * * *").Do(s.runner("ipo-data-fetch", nil, s.jobs.FetchIpoData))

	// IPO change detection rides the same calendar as the data fetch
	s.cron.Cron("0 10,20 * * *").Do(s.runner("ipo-update-check", nil, s.jobs.CheckIpoUpdates))

	// Market data: every 5 minutes during business-day market hours
	s.cron.Every(5).Minutes().Do(s.runner("market-data-fetch", s.marketWindow, s.jobs.FetchMarketData))

	// Price alerts: every 2 minutes during business-day market hours
	s.cron.Every(2).Minutes().Do(s.runner("price-alert-check", s.marketWindow, s.jobs.CheckPriceAlerts))

	// Market status: every 2 minutes on business days, any hour
	s.cron.Every(2).Minutes().Do(s.runner("market-status-check", s.businessWindow, s.jobs.CheckMarketStatus))

	// News: three times a day
	s.cron.Cron("0 8,14,20 * * *").Do(s.runner("news-fetch", nil, s.jobs.FetchNews))

	// Re-arm the daily market-opened notification at midnight
	s.cron.Cron("0 0 * * *").Do(s.runner("daily-flag-reset", nil, s.jobs.ResetDailyFlag))

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runner wraps a job body with the window gate, a non-blocking in-flight
// guard and a panic barrier. Job failures are logged, never propagated to
// the scheduler loop, and never block other triggers.
func (s *Scheduler) runner(name string, window *services.ScheduleWindow, job func(context.Context) error) func() {
	var inFlight atomic.Bool

	return func() {
		if window != nil && !window.Allows(s.clock.Now()) {
			log.Printf("Skipping %s - outside its schedule window", name)
			return
		}
		if !inFlight.CompareAndSwap(false, true) {
			log.Printf("Skipping %s - previous run still in flight", name)
			return
		}
		defer inFlight.Store(false)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Job %s panicked: %v\n%s", name, r, debug.Stack())
			}
		}()

		if err := job(context.Background()); err != nil {
			log.Printf("Job %s failed: %v", name, err)
		}
	}
}
