/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and frontend development. Each scenario creates staff,
	car washes, shifts and adjustments that demonstrate specific rules.

AVAILABLE SCENARIOS:

	first-night:        One confirmed shift for the current shift date, ready to start
	busy-weekend:       Finished weekend shifts with enough cars for the weekend bonus
	penalty-escalation: Repeated no-shows showing the penalty rule table escalate

HOW SCENARIOS WORK:
 1. Create car washes with wash and service prices
 2. Create staff
 3. Create shifts (historic shifts are written with their timestamps)
 4. Record cars with price snapshots and adjustments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-weekend"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to scenarioLoader

NOTE:

	Scenarios only add rows, they never delete. Loading one twice creates a
	second set of staff. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - shift/: Lifecycle rules the scenarios go through
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/compensation"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/period"
	"github.com/warp/carwash-backoffice/pricing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-night",
		Name:        "First Night",
		Description: "New staff member with a confirmed shift for tonight",
		Category:    "shifts",
	},
	{
		ID:          "busy-weekend",
		Name:        "Busy Weekend",
		Description: "Finished weekend shifts with bonus-eligible car counts",
		Category:    "compensation",
	},
	{
		ID:          "penalty-escalation",
		Name:        "Penalty Escalation",
		Description: "Repeated no-shows priced by the penalty rule table",
		Category:    "compensation",
	},
}

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded by this process.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, map[string]any{"scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
}

// LoadScenario loads a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := h.scenarioLoader(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := load(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.scenarioMu.Lock()
	h.currentScenario = req.ScenarioID
	h.scenarioMu.Unlock()
	h.Logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

func (h *Handler) scenarioLoader(id string) (func(context.Context) error, bool) {
	switch id {
	case "first-night":
		return h.loadFirstNightScenario, true
	case "busy-weekend":
		return h.loadBusyWeekendScenario, true
	case "penalty-escalation":
		return h.loadPenaltyEscalationScenario, true
	default:
		return nil, false
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func demoCarWash(name string) domain.CarWash {
	return domain.CarWash{
		Name:                           name,
		ComfortWashPrice:               decimal.NewFromInt(900),
		BusinessWashPrice:              decimal.NewFromInt(1300),
		VanWashPrice:                   decimal.NewFromInt(1800),
		WindshieldWasherPricePerBottle: decimal.NewFromInt(350),
		Services: []domain.CarWashService{
			{ID: "trunk", Name: "Trunk vacuum", Kind: domain.ServiceKindTrunkVacuum, Price: decimal.NewFromInt(200)},
			{ID: "seats", Name: "Seat dry cleaning", Kind: domain.ServiceKindDryCleaning, Price: decimal.NewFromInt(600)},
		},
	}
}

// loadFirstNightScenario creates a confirmed shift for the current shift
// date, so the start window check can be tried right away.
func (h *Handler) loadFirstNightScenario(ctx context.Context) error {
	if _, err := h.Store.CreateCarWash(ctx, demoCarWash("Demo Wash Center")); err != nil {
		return fmt.Errorf("create car wash: %w", err)
	}
	staff, err := h.Store.CreateStaff(ctx, domain.Staff{FullName: "Alexei Smirnov"})
	if err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	shifts, err := h.Shifts.CreateRegular(ctx, staff.ID, []domain.Date{h.Shifts.CurrentShiftDate()})
	if err != nil {
		return err
	}
	_, err = h.Shifts.Confirm(ctx, shifts[0].ID)
	return err
}

// loadBusyWeekendScenario records finished weekend shifts in the past with
// four cars each and enables the weekend bonus at three cars.
func (h *Handler) loadBusyWeekendScenario(ctx context.Context) error {
	today := h.Shifts.CurrentShiftDate()
	dates := pastWeekendDates(period.OfDate(today), today)
	if len(dates) == 0 {
		dates = pastWeekendDates(period.OfDate(today).Previous(), today)
	}

	if err := h.Settings.SaveBonusSettings(ctx, domain.BonusSettings{
		MinCarsCount: 3,
		BonusAmount:  decimal.NewFromInt(500),
	}); err != nil {
		return fmt.Errorf("save bonus settings: %w", err)
	}

	return h.Store.WithTx(ctx, func(tx domain.Store) error {
		north, err := tx.CreateCarWash(ctx, demoCarWash("North Wash"))
		if err != nil {
			return err
		}
		south, err := tx.CreateCarWash(ctx, demoCarWash("South Wash"))
		if err != nil {
			return err
		}

		for _, name := range []string{"Dmitry Volkov", "Olga Kuznetsova"} {
			staff, err := tx.CreateStaff(ctx, domain.Staff{FullName: name})
			if err != nil {
				return err
			}
			for _, d := range dates {
				if err := h.createFinishedShift(ctx, tx, staff.ID, d, []domain.CarWash{north, south}); err != nil {
					return fmt.Errorf("shift %s for %s: %w", d, name, err)
				}
			}
		}
		return nil
	})
}

// loadPenaltyEscalationScenario gives one staff member three no-shows; the
// third one carries a dismissal.
func (h *Handler) loadPenaltyEscalationScenario(ctx context.Context) error {
	staff, err := h.Store.CreateStaff(ctx, domain.Staff{FullName: "Sergei Morozov"})
	if err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := h.Penalties.CreatePenalty(ctx, compensation.PenaltyInput{
			StaffID: staff.ID,
			Reason:  domain.PenaltyReasonNotShowingUp,
		}); err != nil {
			return err
		}
	}
	_, err = h.Penalties.CreateSurcharge(ctx, staff.ID, "Covered a colleague's shift", decimal.NewFromInt(1000))
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

var demoCars = []struct {
	number   string
	class    domain.CarClass
	washType domain.WashType
	refill   int
	services map[string]int
}{
	{"A001AA", domain.CarClassComfort, domain.WashTypePlanned, 0, nil},
	{"B002BB", domain.CarClassBusiness, domain.WashTypeUrgent, 50, map[string]int{"trunk": 1}},
	{"C003CC", domain.CarClassVan, domain.WashTypePlanned, 100, nil},
	{"E004EE", domain.CarClassComfort, domain.WashTypeUrgent, 0, map[string]int{"seats": 2}},
}

// createFinishedShift writes a shift that ran from 22:00 on d to 06:00 the
// next morning, alternating cars between the given car washes.
func (h *Handler) createFinishedShift(ctx context.Context, tx domain.Store, staffID domain.StaffID, d domain.Date, washes []domain.CarWash) error {
	loc := h.Shifts.Location
	startedAt := d.At(22, 0, loc).UTC()
	finishedAt := d.AddDays(1).At(6, 0, loc).UTC()

	created, err := tx.CreateShifts(ctx, []domain.Shift{{
		StaffID:     staffID,
		Date:        d,
		CarWashID:   &washes[0].ID,
		ConfirmedAt: domain.Ptr(startedAt.Add(-4 * time.Hour)),
		StartedAt:   &startedAt,
		FinishedAt:  &finishedAt,
		CreatedAt:   startedAt.Add(-72 * time.Hour),
	}})
	if err != nil {
		return err
	}
	sh := created[0]

	for i, c := range demoCars {
		cw := washes[i%len(washes)]
		prices, err := pricing.Snapshot(cw, h.Shifts.Transfer, c.class, c.washType)
		if err != nil {
			return err
		}
		services, err := pricing.ResolveServices(cw, c.services)
		if err != nil {
			return err
		}
		if _, err := tx.CreateTransferredCar(ctx, domain.TransferredCar{
			ShiftID:                            sh.ID,
			CarWashID:                          cw.ID,
			Number:                             fmt.Sprintf("%s%d", c.number, sh.ID),
			Class:                              c.class,
			WashType:                           c.washType,
			WindshieldWasherRefilledPercentage: c.refill,
			Prices:                             prices,
			AdditionalServices:                 services,
			CreatedAt:                          startedAt.Add(time.Duration(i+1) * time.Hour),
		}); err != nil {
			return err
		}
	}
	return nil
}

// pastWeekendDates lists Saturdays and Sundays of p strictly before today.
func pastWeekendDates(p period.ReportPeriod, today domain.Date) []domain.Date {
	var dates []domain.Date
	for d := p.From(); !d.After(p.To()) && d.Before(today); d = d.AddDays(1) {
		if d.IsWeekend() {
			dates = append(dates, d)
		}
	}
	return dates
}
