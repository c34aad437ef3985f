/*
handlers.go - HTTP API handlers for the car-wash back office

PURPOSE:
  Exposes shift scheduling, car registration, compensation and reports via
  REST API. Handles HTTP request/response, JSON serialization, and delegates
  to the shift, compensation and report services.

ENDPOINTS:
  Staff:
    GET    /api/staff                      List staff
    POST   /api/staff                      Create staff member
    GET    /api/staff/{id}                 Get staff member
    POST   /api/staff/{id}/ban             Ban staff member (starts deposit delay)
    GET    /api/staff/{id}/shifts/current  Active shift or shift of current shift date
    GET    /api/staff/{id}/shifts/active   Active shift
    GET    /api/staff/{id}/report          Period report (?period=2025-03/1)
    GET    /api/staff/{id}/deposit         Deposit eligibility
    POST   /api/staff/{id}/surcharges      Create surcharge

  Car washes:
    GET    /api/car-washes                 List car washes
    POST   /api/car-washes                 Create car wash with prices
    GET    /api/car-washes/{id}            Get car wash
    GET    /api/car-washes/{id}/report     Period report (?period=)
    POST   /api/car-washes/{id}/penalties  Create car wash penalty
    POST   /api/car-washes/{id}/surcharges Create car wash surcharge

  Shifts:
    GET    /api/shifts                     Find shifts (?staff_id=&from=&to=&include_test=)
    GET    /api/shifts/current-date        Current shift date
    POST   /api/shifts/regular             Schedule regular shifts
    POST   /api/shifts/extra               Schedule extra shifts in bulk
    POST   /api/shifts/test                Replace a staff member's test shift
    GET    /api/shifts/{id}                Get shift
    POST   /api/shifts/{id}/confirm        Confirm
    POST   /api/shifts/{id}/start          Start at a car wash
    POST   /api/shifts/{id}/finish         Finish with photos
    POST   /api/shifts/{id}/reject         Reject
    GET    /api/shifts/{id}/cars           Transferred cars
    POST   /api/shifts/{id}/cars           Record transferred car
    GET    /api/shifts/{id}/summary        Per car wash summary

  Compensation:
    POST   /api/penalties                  Create staff penalty
    GET    /api/settings/bonus             Weekend bonus settings
    PUT    /api/settings/bonus             Replace weekend bonus settings

  Reports / sync:
    GET    /api/reports                    All staff reports of a period (?period=)
    GET    /api/sync/runs                  Sheets sync history (?period=)
    POST   /api/sync/run                   Sync a period now (?period=)

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Last loaded scenario
    POST   /api/scenarios/load             Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies. Services own the rules; handlers
  only parse input, call one service method and map the result.

ERROR HANDLING:
  Errors are returned as JSON with a status derived from domain.KindOf:
  - 400: Malformed input (domain.ErrInvalidInput, bad period number)
  - 404: Shift, staff, car wash or service not found
  - 409: Duplicate shift, active shift, already confirmed
  - 422: Operation not allowed in the shift's current state or time
  - 500: Configuration and internal errors
  - 503: Sheets sync not configured

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Periodic sheets sync
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/compensation"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/period"
	"github.com/warp/carwash-backoffice/report"
	"github.com/warp/carwash-backoffice/shift"
	"github.com/warp/carwash-backoffice/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SyncRunLister reads sheets sync history.
type SyncRunLister interface {
	ListSyncRuns(ctx context.Context, period string) ([]sqlite.SyncRun, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     domain.TxStore
	Shifts    *shift.Service
	Penalties *compensation.PenaltyService
	Reports   *report.Service
	// Settings serves bonus settings, usually through the redis cache.
	Settings domain.SettingsStore
	Clock    calendar.Clock
	Logger   *zerolog.Logger

	// Optional: nil when sheets sync is disabled.
	Runs SyncRunLister
	Sync *SheetSyncScheduler

	// Track currently loaded scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. settings may be nil to read bonus settings
// straight from the store.
func NewHandler(store domain.TxStore, shifts *shift.Service, penalties *compensation.PenaltyService, reports *report.Service, settings domain.SettingsStore, logger *zerolog.Logger) *Handler {
	if settings == nil {
		settings = store
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handler{
		Store:     store,
		Shifts:    shifts,
		Penalties: penalties,
		Reports:   reports,
		Settings:  settings,
		Clock:     shifts.Clock,
		Logger:    logger,
	}
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// ListStaff returns all staff members.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Store.ListStaff(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list staff", err)
		return
	}
	dtos := make([]StaffDTO, len(staff))
	for i, s := range staff {
		dtos[i] = toStaffDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStaff adds a staff member.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}

	created, err := h.Store.CreateStaff(r.Context(), domain.Staff{
		FullName:       req.FullName,
		TelegramChatID: req.TelegramChatID,
		CreatedAt:      h.Clock.Now().UTC(),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create staff", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffDTO(created))
}

// GetStaff returns one staff member.
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	staff, err := h.Store.GetStaff(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get staff", err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffDTO(staff))
}

// BanStaff marks a staff member banned. The deposit return date is derived
// from the ban time.
func (h *Handler) BanStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.Store.BanStaff(ctx, id, h.Clock.Now().UTC()); err != nil {
		h.writeDomainError(w, "Failed to ban staff", err)
		return
	}
	staff, err := h.Store.GetStaff(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get staff", err)
		return
	}
	h.Logger.Info().Int64("staff_id", int64(id)).Msg("staff banned")
	writeJSON(w, http.StatusOK, toStaffDTO(staff))
}

// GetCurrentShift returns the active shift or the shift of the current
// shift date.
// GET /api/staff/{id}/shifts/current
func (h *Handler) GetCurrentShift(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	sh, err := h.Shifts.Current(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "No current shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// GetActiveShift returns the started, unfinished shift.
// GET /api/staff/{id}/shifts/active
func (h *Handler) GetActiveShift(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	sh, err := h.Shifts.Active(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "No active shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// GetStaffReport returns a staff member's report for one period.
// GET /api/staff/{id}/report?period=2025-03/1
func (h *Handler) GetStaffReport(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	rep, err := h.Reports.StaffPeriodReport(r.Context(), id, p)
	if err != nil {
		h.writeDomainError(w, "Failed to build staff report", err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffReportDTO(rep))
}

// GetDeposit returns how many report periods a staff member worked and when
// the deposit is due back.
// GET /api/staff/{id}/deposit
func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	staff, err := h.Store.GetStaff(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get staff", err)
		return
	}
	count, err := h.Reports.StaffReportPeriodsCount(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to count report periods", err)
		return
	}

	resp := map[string]any{
		"staff_id":             int64(id),
		"report_periods_count": count,
	}
	if d := staff.DepositReturnDate(); d != nil {
		resp["deposit_return_date"] = d.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSurcharge records an extra payment to a staff member.
// POST /api/staff/{id}/surcharges
func (h *Handler) CreateSurcharge(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sur, err := h.Penalties.CreateSurcharge(r.Context(), id, req.Reason, req.Amount)
	if err != nil {
		h.writeDomainError(w, "Failed to create surcharge", err)
		return
	}
	writeJSON(w, http.StatusCreated, surchargeDTO(sur))
}

// =============================================================================
// CAR WASH HANDLERS
// =============================================================================

func (h *Handler) ListCarWashes(w http.ResponseWriter, r *http.Request) {
	washes, err := h.Store.ListCarWashes(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list car washes", err)
		return
	}
	dtos := make([]CarWashDTO, len(washes))
	for i, cw := range washes {
		dtos[i] = toCarWashDTO(cw)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCarWash(w http.ResponseWriter, r *http.Request) {
	var req CreateCarWashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	cw := req.toDomain()
	cw.CreatedAt = h.Clock.Now().UTC()

	created, err := h.Store.CreateCarWash(r.Context(), cw)
	if err != nil {
		h.writeDomainError(w, "Failed to create car wash", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCarWashDTO(created))
}

func (h *Handler) GetCarWash(w http.ResponseWriter, r *http.Request) {
	id, ok := carWashIDParam(w, r)
	if !ok {
		return
	}
	cw, err := h.Store.GetCarWash(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get car wash", err)
		return
	}
	writeJSON(w, http.StatusOK, toCarWashDTO(cw))
}

// GetCarWashReport returns what a car wash is owed for one period.
// GET /api/car-washes/{id}/report?period=2025-03/1
func (h *Handler) GetCarWashReport(w http.ResponseWriter, r *http.Request) {
	id, ok := carWashIDParam(w, r)
	if !ok {
		return
	}
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	rep, err := h.Reports.CarWashPeriodReport(r.Context(), id, p)
	if err != nil {
		h.writeDomainError(w, "Failed to build car wash report", err)
		return
	}
	writeJSON(w, http.StatusOK, toCarWashReportDTO(rep))
}

func (h *Handler) CreateCarWashPenalty(w http.ResponseWriter, r *http.Request) {
	id, ok := carWashIDParam(w, r)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Penalties.CreateCarWashPenalty(r.Context(), id, req.Reason, req.Amount)
	if err != nil {
		h.writeDomainError(w, "Failed to create car wash penalty", err)
		return
	}
	writeJSON(w, http.StatusCreated, carWashPenaltyDTO(p))
}

func (h *Handler) CreateCarWashSurcharge(w http.ResponseWriter, r *http.Request) {
	id, ok := carWashIDParam(w, r)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.Penalties.CreateCarWashSurcharge(r.Context(), id, req.Reason, req.Amount)
	if err != nil {
		h.writeDomainError(w, "Failed to create car wash surcharge", err)
		return
	}
	writeJSON(w, http.StatusCreated, carWashSurchargeDTO(s))
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts finds shifts. Test shifts are excluded unless include_test=true.
// GET /api/shifts?staff_id=1&from=2025-03-01&to=2025-03-15
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f domain.ShiftFilter

	if raw := q.Get("staff_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid staff_id", err)
			return
		}
		f.StaffID = domain.Ptr(domain.StaffID(id))
	}
	for _, bound := range []struct {
		name string
		dst  **domain.Date
	}{{"from", &f.DateFrom}, {"to", &f.DateTo}} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+bound.name, err)
			return
		}
		*bound.dst = &d
	}
	if q.Get("include_test") != "true" {
		f.IsTest = domain.Ptr(false)
	}

	shifts, err := h.Store.FindShifts(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, "Failed to find shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTOs(shifts))
}

// GetCurrentShiftDate returns the shift date staff are working on now.
// GET /api/shifts/current-date
func (h *Handler) GetCurrentShiftDate(w http.ResponseWriter, r *http.Request) {
	d := h.Shifts.CurrentShiftDate()
	writeJSON(w, http.StatusOK, map[string]string{
		"date":   d.String(),
		"period": period.OfDate(d).String(),
	})
}

// CreateRegularShifts schedules shifts for one staff member. Dates that
// already have a shift are reported back; if none could be created the
// response is 409.
// POST /api/shifts/regular
func (h *Handler) CreateRegularShifts(w http.ResponseWriter, r *http.Request) {
	var req CreateRegularShiftsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dates, err := parseDates(req.Dates)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dates", err)
		return
	}

	created, err := h.Shifts.CreateRegular(r.Context(), domain.StaffID(req.StaffID), dates)
	var exists *domain.ShiftAlreadyExistsError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, CreateRegularShiftsResponse{Created: toShiftDTOs(created)})
	case errors.As(err, &exists) && len(created) > 0:
		writeJSON(w, http.StatusCreated, CreateRegularShiftsResponse{
			Created:       toShiftDTOs(created),
			ConflictDates: formatDates(exists.Dates),
		})
	default:
		h.writeDomainError(w, "Failed to create shifts", err)
	}
}

// CreateExtraShifts schedules extra shifts for many staff members. Unknown
// staff and duplicate dates are skipped and listed in the response.
// POST /api/shifts/extra
func (h *Handler) CreateExtraShifts(w http.ResponseWriter, r *http.Request) {
	var req CreateExtraShiftsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	requests := make([]shift.ExtraShiftRequest, 0, len(req.Shifts))
	for _, s := range req.Shifts {
		d, err := domain.ParseDate(s.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		requests = append(requests, shift.ExtraShiftRequest{StaffID: domain.StaffID(s.StaffID), Date: d})
	}

	res, err := h.Shifts.CreateExtra(r.Context(), requests)
	if err != nil {
		h.writeDomainError(w, "Failed to create extra shifts", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExtraShiftsResponse(res))
}

// CreateTestShift replaces the staff member's test shift.
// POST /api/shifts/test
func (h *Handler) CreateTestShift(w http.ResponseWriter, r *http.Request) {
	var req CreateTestShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date := h.Shifts.CurrentShiftDate()
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		date = d
	}

	sh, err := h.Shifts.CreateTest(r.Context(), domain.StaffID(req.StaffID), date)
	if err != nil {
		h.writeDomainError(w, "Failed to create test shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(sh))
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	sh, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// ConfirmShift POST /api/shifts/{id}/confirm
func (h *Handler) ConfirmShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	sh, err := h.Shifts.Confirm(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to confirm shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// StartShift POST /api/shifts/{id}/start
func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	var req StartShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sh, err := h.Shifts.Start(r.Context(), id, domain.CarWashID(req.CarWashID))
	if err != nil {
		h.writeDomainError(w, "Failed to start shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// FinishShift POST /api/shifts/{id}/finish
func (h *Handler) FinishShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	var req FinishShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Shifts.Finish(r.Context(), id, req.PhotoFileIDs)
	if err != nil {
		h.writeDomainError(w, "Failed to finish shift", err)
		return
	}
	writeJSON(w, http.StatusOK, FinishShiftResponse{
		Shift:        toShiftDTO(res.Shift),
		IsFirstShift: res.IsFirstShift,
		CarWashes:    toCarWashSummaryDTOs(res.CarWashes),
	})
}

// RejectShift rejects a shift that has not been started. A started or
// missing shift is 404.
// POST /api/shifts/{id}/reject
func (h *Handler) RejectShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	updated, err := h.Shifts.Reject(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to reject shift", err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "No shift to reject", domain.ErrShiftNotFound)
		return
	}
	sh, err := h.Store.GetShift(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// ListShiftCars GET /api/shifts/{id}/cars
func (h *Handler) ListShiftCars(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	cars, err := h.Shifts.Cars(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list cars", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferredCarDTOs(cars))
}

// AddShiftCar records a transferred car on an active shift.
// POST /api/shifts/{id}/cars
func (h *Handler) AddShiftCar(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	var req AddCarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	car, err := h.Shifts.AddTransferredCar(r.Context(), id, shift.CarInput{
		Number:                             req.Number,
		CarWashID:                          domain.CarWashID(req.CarWashID),
		Class:                              domain.CarClass(req.Class),
		WashType:                           domain.WashType(req.WashType),
		WindshieldWasherRefilledPercentage: req.WindshieldWasherRefilledPercentage,
		Services:                           req.Services,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to add car", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferredCarDTO(car))
}

// GetShiftSummary GET /api/shifts/{id}/summary
func (h *Handler) GetShiftSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftIDParam(w, r)
	if !ok {
		return
	}
	lines, err := h.Shifts.SummarizeShift(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toCarWashSummaryDTOs(lines))
}

// =============================================================================
// COMPENSATION HANDLERS
// =============================================================================

// CreatePenalty records a staff penalty. Omitted amount/consequence come
// from the rule table.
// POST /api/penalties
func (h *Handler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	var req CreatePenaltyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := compensation.PenaltyInput{
		StaffID: domain.StaffID(req.StaffID),
		Reason:  domain.PenaltyReason(req.Reason),
		Amount:  req.Amount,
	}
	if req.Consequence != nil {
		c, err := parseConsequence(*req.Consequence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid consequence", err)
			return
		}
		in.Consequence = &c
	}

	p, err := h.Penalties.CreatePenalty(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create penalty", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPenaltyDTO(p))
}

func (h *Handler) GetBonusSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.GetBonusSettings(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to get bonus settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusSettingsDTO(s))
}

func (h *Handler) SaveBonusSettings(w http.ResponseWriter, r *http.Request) {
	var req BonusSettingsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MinCarsCount < 0 || req.BonusAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "min_cars_count and bonus_amount must not be negative", nil)
		return
	}
	s := req.toDomain()
	if err := h.Settings.SaveBonusSettings(r.Context(), s); err != nil {
		h.writeDomainError(w, "Failed to save bonus settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusSettingsDTO(s))
}

// =============================================================================
// REPORT / SYNC HANDLERS
// =============================================================================

// ListStaffReports returns every staff member's report for a period.
// GET /api/reports?period=2025-03/1
func (h *Handler) ListStaffReports(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	reports, err := h.Reports.AllStaffPeriodReports(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, "Failed to build reports", err)
		return
	}
	dtos := make([]StaffReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toStaffReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": p.String(), "reports": dtos})
}

// ListSyncRuns returns sheets sync history.
// GET /api/sync/runs?period=2025-03/1
func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []SyncRunDTO{}})
		return
	}
	runs, err := h.Runs.ListSyncRuns(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get sync runs", err)
		return
	}
	dtos := make([]SyncRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSyncRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// TriggerSync exports one period to the spreadsheet now.
// POST /api/sync/run?period=2025-03/1
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "Sheets sync is disabled", nil)
		return
	}
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	run, err := h.Sync.SyncPeriod(r.Context(), p)
	if err != nil && run.ID == "" {
		h.writeDomainError(w, "Failed to sync period", err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, toSyncRunDTO(run))
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

// writeDomainError maps err to a status by its kind. Internal errors are
// logged and their details withheld.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	kind := domain.KindOf(err)
	status := statusFor(err, kind)
	resp := ErrorResponse{Error: message, Kind: string(kind), Details: err.Error()}

	var exists *domain.ShiftAlreadyExistsError
	if errors.As(err, &exists) {
		resp.Dates = formatDates(exists.Dates)
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("kind", string(kind)).Msg(message)
		resp.Details = ""
	}
	writeJSON(w, status, resp)
}

func statusFor(err error, kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidState:
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidReportPeriodNumber) {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw), nil)
		return 0, false
	}
	return id, true
}

func staffIDParam(w http.ResponseWriter, r *http.Request) (domain.StaffID, bool) {
	id, ok := idParam(w, r)
	return domain.StaffID(id), ok
}

func carWashIDParam(w http.ResponseWriter, r *http.Request) (domain.CarWashID, bool) {
	id, ok := idParam(w, r)
	return domain.CarWashID(id), ok
}

func shiftIDParam(w http.ResponseWriter, r *http.Request) (domain.ShiftID, bool) {
	id, ok := idParam(w, r)
	return domain.ShiftID(id), ok
}

// periodParam reads ?period=, defaulting to the period of the current
// shift date.
func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (period.ReportPeriod, bool) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return period.OfDate(h.Shifts.CurrentShiftDate()), true
	}
	p, err := period.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return period.ReportPeriod{}, false
	}
	return p, true
}

func parseConsequence(s string) (domain.PenaltyConsequence, error) {
	switch c := domain.PenaltyConsequence(s); c {
	case domain.ConsequenceNone, domain.ConsequenceWarn, domain.ConsequenceDismissal:
		return c, nil
	default:
		return "", fmt.Errorf("%w: penalty consequence %q", domain.ErrInvalidInput, s)
	}
}
