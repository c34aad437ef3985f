/*
Package sheets exports period reports to a Google spreadsheet.

LAYOUT:
  One tab per report period, titled by period.ReportPeriod.String()
  (e.g. "2025-03/1"). Every sync rewrites the whole tab: a header row, one
  row per staff report, then a totals row.

RUNS:
  Each sync gets a uuid and is recorded as running, then completed or
  failed, so the scheduler can tell which closed periods still need an
  export.
*/
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/metrics"
	"github.com/warp/carwash-backoffice/period"
	"github.com/warp/carwash-backoffice/report"
	"github.com/warp/carwash-backoffice/store/sqlite"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SyncTimeout bounds one scheduled sync.
const SyncTimeout = 2 * time.Minute

// RunStore persists sync run history.
type RunStore interface {
	SaveSyncRun(ctx context.Context, r sqlite.SyncRun) error
}

// sheetWriter is the part of the Sheets API the syncer uses.
type sheetWriter interface {
	EnsureTab(ctx context.Context, title string) error
	ReplaceValues(ctx context.Context, title string, rows [][]any) error
}

// =============================================================================
// SYNCER
// =============================================================================

type Syncer struct {
	w      sheetWriter
	runs   RunStore
	clock  calendar.Clock
	logger *zerolog.Logger
}

// Config locates the spreadsheet and the service account key.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
}

// NewSyncer connects to the Sheets API with a service account key file.
func NewSyncer(ctx context.Context, cfg Config, runs RunStore, logger *zerolog.Logger) (*Syncer, error) {
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newSyncer(&apiWriter{srv: srv, spreadsheetID: cfg.SpreadsheetID}, runs, nil, logger), nil
}

func newSyncer(w sheetWriter, runs RunStore, clock calendar.Clock, logger *zerolog.Logger) *Syncer {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Syncer{w: w, runs: runs, clock: clock, logger: logger}
}

// SyncPeriod rewrites the tab of p with reports and returns the recorded run.
func (s *Syncer) SyncPeriod(ctx context.Context, p period.ReportPeriod, reports []report.StaffReport) (sqlite.SyncRun, error) {
	run := sqlite.SyncRun{
		ID:        uuid.NewString(),
		Period:    p.String(),
		Status:    StatusRunning,
		StartedAt: s.clock.Now().UTC(),
	}
	s.saveRun(ctx, run)

	rows := PeriodRows(reports)
	err := s.write(ctx, TabTitle(p), rows)

	completed := s.clock.Now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	} else {
		run.Status = StatusCompleted
		run.RowsWritten = len(rows)
	}
	s.saveRun(ctx, run)
	metrics.IncSheetSync(run.Status)

	if err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Str("period", run.Period).Msg("sheet sync failed")
		return run, err
	}
	s.logger.Info().Str("run_id", run.ID).Str("period", run.Period).Int("rows", run.RowsWritten).Msg("sheet synced")
	return run, nil
}

func (s *Syncer) write(ctx context.Context, title string, rows [][]any) error {
	if err := s.w.EnsureTab(ctx, title); err != nil {
		return fmt.Errorf("ensure tab %q: %w", title, err)
	}
	if err := s.w.ReplaceValues(ctx, title, rows); err != nil {
		return fmt.Errorf("write tab %q: %w", title, err)
	}
	return nil
}

// saveRun records run history. A failure here never fails the sync.
func (s *Syncer) saveRun(ctx context.Context, run sqlite.SyncRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveSyncRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to save sync run")
	}
}

// =============================================================================
// ROW FORMATTING
// =============================================================================

// TabTitle names the tab of a period.
func TabTitle(p period.ReportPeriod) string { return p.String() }

// Header is the first row of every tab.
func Header() []any {
	return []any{
		"Staff ID", "Full name", "Period", "Shifts", "Cars",
		"Transfer revenue", "Surcharges", "Bonuses", "Penalties", "Net",
	}
}

// ReportRowValues renders one staff report. Money is formatted with two
// decimals so Sheets parses it as a number.
func ReportRowValues(r report.StaffReport) []any {
	return []any{
		int64(r.Staff.ID),
		r.Staff.FullName,
		r.Period.String(),
		len(r.Shifts),
		r.TransferredCarCount,
		money(r.TransferRevenue),
		money(r.SurchargesTotal),
		money(r.BonusesTotal),
		money(r.PenaltiesTotal),
		money(r.Net),
	}
}

// TotalsRow sums every numeric column of reports.
func TotalsRow(reports []report.StaffReport) []any {
	var shifts, cars int
	revenue, surcharges, bonuses, penalties, net := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range reports {
		shifts += len(r.Shifts)
		cars += r.TransferredCarCount
		revenue = revenue.Add(r.TransferRevenue)
		surcharges = surcharges.Add(r.SurchargesTotal)
		bonuses = bonuses.Add(r.BonusesTotal)
		penalties = penalties.Add(r.PenaltiesTotal)
		net = net.Add(r.Net)
	}
	return []any{
		"", "Total", "", shifts, cars,
		money(revenue), money(surcharges), money(bonuses), money(penalties), money(net),
	}
}

// PeriodRows is the full content of a period tab.
func PeriodRows(reports []report.StaffReport) [][]any {
	rows := make([][]any, 0, len(reports)+2)
	rows = append(rows, Header())
	for _, r := range reports {
		rows = append(rows, ReportRowValues(r))
	}
	return append(rows, TotalsRow(reports))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// =============================================================================
// SHEETS API
// =============================================================================

type apiWriter struct {
	srv           *gsheets.Service
	spreadsheetID string
}

func (w *apiWriter) EnsureTab(ctx context.Context, title string) error {
	ss, err := w.srv.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	_, err = w.srv.Spreadsheets.BatchUpdate(w.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	return err
}

func (w *apiWriter) ReplaceValues(ctx context.Context, title string, rows [][]any) error {
	tab := a1Tab(title)
	if _, err := w.srv.Spreadsheets.Values.Clear(w.spreadsheetID, tab, &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return err
	}
	_, err := w.srv.Spreadsheets.Values.Update(w.spreadsheetID, tab+"!A1", &gsheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

// a1Tab quotes a tab title for A1 notation.
func a1Tab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
