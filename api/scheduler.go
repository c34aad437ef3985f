/*
scheduler.go - Automated sheets sync scheduler

PURPOSE:
  Periodically exports period reports to the spreadsheet so the office
  always sees up-to-date numbers without triggering a sync by hand.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Every check rewrites the tab of the current report period
  - The previous period is exported once more after it has closed, i.e.
    after the start window of its last shift date has ended; a completed
    run started after that point means the period is final and is skipped
  - Every export is recorded as a sync run for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (config sheets.sync_interval_minutes)
  - Enabled: Whether scheduler is active (config sheets.enabled)

USAGE:
  scheduler := NewSheetSyncScheduler(reports, syncer, runs, clock, loc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSync endpoint (manual sync)
  - sheets/sheets.go: Syncer
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/period"
	"github.com/warp/carwash-backoffice/report"
	"github.com/warp/carwash-backoffice/sheets"
	"github.com/warp/carwash-backoffice/store/sqlite"
)

// PeriodSyncer writes the reports of one period somewhere.
type PeriodSyncer interface {
	SyncPeriod(ctx context.Context, p period.ReportPeriod, reports []report.StaffReport) (sqlite.SyncRun, error)
}

// SyncRunChecker tells whether a period already has a final export.
type SyncRunChecker interface {
	IsSyncComplete(ctx context.Context, period string, since time.Time) (bool, error)
}

// SheetSyncScheduler handles automated sheets export.
type SheetSyncScheduler struct {
	Reports       *report.Service
	Syncer        PeriodSyncer
	Runs          SyncRunChecker
	Clock         calendar.Clock
	Location      *time.Location
	CheckInterval time.Duration
	Enabled       bool
	Logger        *zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSheetSyncScheduler creates a new scheduler with a one hour interval.
func NewSheetSyncScheduler(reports *report.Service, syncer PeriodSyncer, runs SyncRunChecker, clock calendar.Clock, loc *time.Location, logger *zerolog.Logger) *SheetSyncScheduler {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetSyncScheduler{
		Reports:       reports,
		Syncer:        syncer,
		Runs:          runs,
		Clock:         clock,
		Location:      loc,
		CheckInterval: time.Hour,
		Enabled:       true,
		Logger:        logger,
	}
}

// Start begins the scheduler.
func (s *SheetSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info().Msg("sheet sync scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Logger.Info().Dur("interval", s.CheckInterval).Msg("sheet sync scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *SheetSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info().Msg("sheet sync scheduler stopped")
	}
}

func (s *SheetSyncScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.checkAndSync()

	for {
		select {
		case <-s.ticker.C:
			s.checkAndSync()
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers an immediate check and returns the number of periods
// exported.
func (s *SheetSyncScheduler) RunNow() int {
	return s.checkAndSync()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (s *SheetSyncScheduler) GetNextRunTime() time.Time {
	return s.Clock.Now().Add(s.CheckInterval)
}

func (s *SheetSyncScheduler) checkAndSync() int {
	now := s.Clock.Now()
	current := period.OfDate(calendar.CurrentShiftDate(now, s.Location))
	previous := current.Previous()

	synced := 0
	ctx, cancel := context.WithTimeout(context.Background(), sheets.SyncTimeout)
	defer cancel()

	closedAt := s.ClosedAt(previous)
	if now.After(closedAt) {
		done, err := s.Runs.IsSyncComplete(ctx, previous.String(), closedAt)
		switch {
		case err != nil:
			s.Logger.Error().Err(err).Str("period", previous.String()).Msg("failed to check sync status")
		case done:
			s.Logger.Debug().Str("period", previous.String()).Msg("closed period already exported")
		default:
			if _, err := s.SyncPeriod(ctx, previous); err == nil {
				synced++
			}
		}
	}

	if _, err := s.SyncPeriod(ctx, current); err == nil {
		synced++
	}
	return synced
}

// ClosedAt is the moment no more cars can be recorded for p: the end of the
// start window of its last shift date.
func (s *SheetSyncScheduler) ClosedAt(p period.ReportPeriod) time.Time {
	_, end := calendar.ShiftStartWindow(p.To(), s.Location)
	return end
}

// SyncPeriod builds all staff reports of p and exports them.
func (s *SheetSyncScheduler) SyncPeriod(ctx context.Context, p period.ReportPeriod) (sqlite.SyncRun, error) {
	reports, err := s.Reports.AllStaffPeriodReports(ctx, p)
	if err != nil {
		s.Logger.Error().Err(err).Str("period", p.String()).Msg("failed to build reports for sync")
		return sqlite.SyncRun{}, fmt.Errorf("build reports for %s: %w", p, err)
	}
	return s.Syncer.SyncPeriod(ctx, p, reports)
}
