/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

WIRE FORMATS:
  - Dates are "YYYY-MM-DD" strings (domain.DateLayout)
  - Timestamps are RFC3339 UTC strings, omitted when unset
  - Money is a decimal string ("350.50"), never a JSON number
  - Report periods are "YYYY-MM/N" (period.ReportPeriod.String)

VALIDATION:
  Validation is done in handlers and services, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/report"
	"github.com/warp/carwash-backoffice/shift"
	"github.com/warp/carwash-backoffice/store/sqlite"
)

// =============================================================================
// STAFF
// =============================================================================

type StaffDTO struct {
	ID                int64  `json:"id"`
	FullName          string `json:"full_name"`
	TelegramChatID    int64  `json:"telegram_chat_id"`
	BannedAt          string `json:"banned_at,omitempty"`
	DepositReturnDate string `json:"deposit_return_date,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type CreateStaffRequest struct {
	FullName       string `json:"full_name"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

func toStaffDTO(s domain.Staff) StaffDTO {
	dto := StaffDTO{
		ID:             int64(s.ID),
		FullName:       s.FullName,
		TelegramChatID: s.TelegramChatID,
		BannedAt:       formatTimePtr(s.BannedAt),
		CreatedAt:      formatTime(s.CreatedAt),
	}
	if d := s.DepositReturnDate(); d != nil {
		dto.DepositReturnDate = d.String()
	}
	return dto
}

// =============================================================================
// CAR WASH
// =============================================================================

type CarWashServiceDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Price decimal.Decimal `json:"price"`
}

type CarWashDTO struct {
	ID                             int64               `json:"id"`
	Name                           string              `json:"name"`
	ComfortWashPrice               decimal.Decimal     `json:"comfort_wash_price"`
	BusinessWashPrice              decimal.Decimal     `json:"business_wash_price"`
	VanWashPrice                   decimal.Decimal     `json:"van_wash_price"`
	WindshieldWasherPricePerBottle decimal.Decimal     `json:"windshield_washer_price_per_bottle"`
	Services                       []CarWashServiceDTO `json:"services"`
	CreatedAt                      string              `json:"created_at,omitempty"`
}

// CreateCarWashRequest reuses the response shape; ID and CreatedAt are ignored.
type CreateCarWashRequest = CarWashDTO

func toCarWashDTO(cw domain.CarWash) CarWashDTO {
	services := make([]CarWashServiceDTO, len(cw.Services))
	for i, s := range cw.Services {
		services[i] = CarWashServiceDTO{ID: s.ID, Name: s.Name, Kind: string(s.Kind), Price: s.Price}
	}
	return CarWashDTO{
		ID:                             int64(cw.ID),
		Name:                           cw.Name,
		ComfortWashPrice:               cw.ComfortWashPrice,
		BusinessWashPrice:              cw.BusinessWashPrice,
		VanWashPrice:                   cw.VanWashPrice,
		WindshieldWasherPricePerBottle: cw.WindshieldWasherPricePerBottle,
		Services:                       services,
		CreatedAt:                      formatTime(cw.CreatedAt),
	}
}

func (r CreateCarWashRequest) toDomain() domain.CarWash {
	services := make([]domain.CarWashService, len(r.Services))
	for i, s := range r.Services {
		services[i] = domain.CarWashService{ID: s.ID, Name: s.Name, Kind: domain.ServiceKind(s.Kind), Price: s.Price}
	}
	return domain.CarWash{
		Name:                           r.Name,
		ComfortWashPrice:               r.ComfortWashPrice,
		BusinessWashPrice:              r.BusinessWashPrice,
		VanWashPrice:                   r.VanWashPrice,
		WindshieldWasherPricePerBottle: r.WindshieldWasherPricePerBottle,
		Services:                       services,
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftDTO struct {
	ID          int64  `json:"id"`
	StaffID     int64  `json:"staff_id"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	CarWashID   *int64 `json:"car_wash_id,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	FinishedAt  string `json:"finished_at,omitempty"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
	RejectedAt  string `json:"rejected_at,omitempty"`
	IsExtra     bool   `json:"is_extra"`
	IsTest      bool   `json:"is_test"`
	CreatedAt   string `json:"created_at"`
}

func toShiftDTO(s domain.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:          int64(s.ID),
		StaffID:     int64(s.StaffID),
		Date:        s.Date.String(),
		Status:      string(s.Status()),
		StartedAt:   formatTimePtr(s.StartedAt),
		FinishedAt:  formatTimePtr(s.FinishedAt),
		ConfirmedAt: formatTimePtr(s.ConfirmedAt),
		RejectedAt:  formatTimePtr(s.RejectedAt),
		IsExtra:     s.IsExtra,
		IsTest:      s.IsTest,
		CreatedAt:   formatTime(s.CreatedAt),
	}
	if s.CarWashID != nil {
		id := int64(*s.CarWashID)
		dto.CarWashID = &id
	}
	return dto
}

func toShiftDTOs(shifts []domain.Shift) []ShiftDTO {
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	return dtos
}

type CreateRegularShiftsRequest struct {
	StaffID int64    `json:"staff_id"`
	Dates   []string `json:"dates"`
}

// CreateRegularShiftsResponse carries the created shifts. ConflictDates is
// set when some dates were skipped because a shift already existed.
type CreateRegularShiftsResponse struct {
	Created       []ShiftDTO `json:"created"`
	ConflictDates []string   `json:"conflict_dates,omitempty"`
}

type ExtraShiftRequestDTO struct {
	StaffID int64  `json:"staff_id"`
	Date    string `json:"date"`
}

type CreateExtraShiftsRequest struct {
	Shifts []ExtraShiftRequestDTO `json:"shifts"`
}

type CreateExtraShiftsResponse struct {
	Created         []ShiftDTO             `json:"created"`
	MissingStaffIDs []int64                `json:"missing_staff_ids"`
	Conflicts       []ExtraShiftRequestDTO `json:"conflicts"`
}

func toExtraShiftsResponse(res shift.ExtraShiftsResult) CreateExtraShiftsResponse {
	resp := CreateExtraShiftsResponse{
		Created:         toShiftDTOs(res.Created),
		MissingStaffIDs: make([]int64, len(res.MissingStaffIDs)),
		Conflicts:       make([]ExtraShiftRequestDTO, len(res.Conflicts)),
	}
	for i, id := range res.MissingStaffIDs {
		resp.MissingStaffIDs[i] = int64(id)
	}
	for i, c := range res.Conflicts {
		resp.Conflicts[i] = ExtraShiftRequestDTO{StaffID: int64(c.StaffID), Date: c.Date.String()}
	}
	return resp
}

type CreateTestShiftRequest struct {
	StaffID int64 `json:"staff_id"`
	// Date defaults to the current shift date.
	Date string `json:"date,omitempty"`
}

type StartShiftRequest struct {
	CarWashID int64 `json:"car_wash_id"`
}

type FinishShiftRequest struct {
	PhotoFileIDs []string `json:"photo_file_ids"`
}

type FinishShiftResponse struct {
	Shift        ShiftDTO            `json:"shift"`
	IsFirstShift bool                `json:"is_first_shift"`
	CarWashes    []CarWashSummaryDTO `json:"car_washes"`
}

type CarWashSummaryDTO struct {
	CarWashID        int64  `json:"car_wash_id"`
	CarWashName      string `json:"car_wash_name"`
	TotalCars        int    `json:"total_cars"`
	ComfortCars      int    `json:"comfort_cars"`
	BusinessCars     int    `json:"business_cars"`
	VanCars          int    `json:"van_cars"`
	PlannedCars      int    `json:"planned_cars"`
	UrgentCars       int    `json:"urgent_cars"`
	DryCleaningItems int    `json:"dry_cleaning_items"`
	TrunkVacuumCount int    `json:"trunk_vacuum_count"`
	RefilledCars     int    `json:"refilled_cars"`
	NotRefilledCars  int    `json:"not_refilled_cars"`
}

func toCarWashSummaryDTOs(lines []domain.CarWashSummary) []CarWashSummaryDTO {
	dtos := make([]CarWashSummaryDTO, len(lines))
	for i, l := range lines {
		dtos[i] = CarWashSummaryDTO{
			CarWashID:        int64(l.CarWashID),
			CarWashName:      l.CarWashName,
			TotalCars:        l.TotalCars(),
			ComfortCars:      l.ComfortCars,
			BusinessCars:     l.BusinessCars,
			VanCars:          l.VanCars,
			PlannedCars:      l.PlannedCars,
			UrgentCars:       l.UrgentCars,
			DryCleaningItems: l.DryCleaningItems,
			TrunkVacuumCount: l.TrunkVacuumCount,
			RefilledCars:     l.RefilledCars,
			NotRefilledCars:  l.NotRefilledCars,
		}
	}
	return dtos
}

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

type AddCarRequest struct {
	Number    string `json:"number"`
	CarWashID int64  `json:"car_wash_id,omitempty"`
	Class     string `json:"class"`
	WashType  string `json:"wash_type"`
	// WindshieldWasherRefilledPercentage is 0 when the washer was not refilled.
	WindshieldWasherRefilledPercentage int            `json:"windshield_washer_refilled_percentage"`
	Services                           map[string]int `json:"services,omitempty"`
}

type AdditionalServiceDTO struct {
	ServiceID string          `json:"service_id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Count     int             `json:"count"`
	Price     decimal.Decimal `json:"price"`
}

type TransferredCarDTO struct {
	ID                                 int64                  `json:"id"`
	ShiftID                            int64                  `json:"shift_id"`
	CarWashID                          int64                  `json:"car_wash_id"`
	Number                             string                 `json:"number"`
	Class                              string                 `json:"class"`
	WashType                           string                 `json:"wash_type"`
	WindshieldWasherRefilledPercentage int                    `json:"windshield_washer_refilled_percentage"`
	TransferPrice                      decimal.Decimal        `json:"transfer_price"`
	AdditionalServices                 []AdditionalServiceDTO `json:"additional_services"`
	CreatedAt                          string                 `json:"created_at"`
}

func toTransferredCarDTO(c domain.TransferredCar) TransferredCarDTO {
	services := make([]AdditionalServiceDTO, len(c.AdditionalServices))
	for i, s := range c.AdditionalServices {
		services[i] = AdditionalServiceDTO{ServiceID: s.ServiceID, Name: s.Name, Kind: string(s.Kind), Count: s.Count, Price: s.Price}
	}
	return TransferredCarDTO{
		ID:                                 int64(c.ID),
		ShiftID:                            int64(c.ShiftID),
		CarWashID:                          int64(c.CarWashID),
		Number:                             c.Number,
		Class:                              string(c.Class),
		WashType:                           string(c.WashType),
		WindshieldWasherRefilledPercentage: c.WindshieldWasherRefilledPercentage,
		TransferPrice:                      c.Prices.Transfer,
		AdditionalServices:                 services,
		CreatedAt:                          formatTime(c.CreatedAt),
	}
}

func toTransferredCarDTOs(cars []domain.TransferredCar) []TransferredCarDTO {
	dtos := make([]TransferredCarDTO, len(cars))
	for i, c := range cars {
		dtos[i] = toTransferredCarDTO(c)
	}
	return dtos
}

// =============================================================================
// PENALTIES / SURCHARGES
// =============================================================================

// CreatePenaltyRequest leaves Amount and Consequence nil to apply the rule
// table for the reason.
type CreatePenaltyRequest struct {
	StaffID     int64            `json:"staff_id"`
	Reason      string           `json:"reason"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Consequence *string          `json:"consequence,omitempty"`
}

type PenaltyDTO struct {
	ID          int64           `json:"id"`
	StaffID     int64           `json:"staff_id"`
	Reason      string          `json:"reason"`
	Amount      decimal.Decimal `json:"amount"`
	Consequence string          `json:"consequence,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

func toPenaltyDTO(p domain.Penalty) PenaltyDTO {
	return PenaltyDTO{
		ID:          int64(p.ID),
		StaffID:     int64(p.StaffID),
		Reason:      string(p.Reason),
		Amount:      p.Amount,
		Consequence: string(p.Consequence),
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

// AdjustmentRequest is a free-form reason and amount, used for surcharges
// and car wash penalties/surcharges. The owner ID comes from the URL.
type AdjustmentRequest struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

type AdjustmentDTO struct {
	ID        int64           `json:"id"`
	StaffID   int64           `json:"staff_id,omitempty"`
	CarWashID int64           `json:"car_wash_id,omitempty"`
	Reason    string          `json:"reason"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

func surchargeDTO(s domain.Surcharge) AdjustmentDTO {
	return AdjustmentDTO{ID: int64(s.ID), StaffID: int64(s.StaffID), Reason: s.Reason, Amount: s.Amount, CreatedAt: formatTime(s.CreatedAt)}
}

func carWashPenaltyDTO(p domain.CarWashPenalty) AdjustmentDTO {
	return AdjustmentDTO{ID: int64(p.ID), CarWashID: int64(p.CarWashID), Reason: p.Reason, Amount: p.Amount, CreatedAt: formatTime(p.CreatedAt)}
}

func carWashSurchargeDTO(s domain.CarWashSurcharge) AdjustmentDTO {
	return AdjustmentDTO{ID: int64(s.ID), CarWashID: int64(s.CarWashID), Reason: s.Reason, Amount: s.Amount, CreatedAt: formatTime(s.CreatedAt)}
}

// =============================================================================
// SETTINGS
// =============================================================================

type BonusSettingsDTO struct {
	MinCarsCount     int             `json:"min_cars_count"`
	BonusAmount      decimal.Decimal `json:"bonus_amount"`
	ExcludedStaffIDs []int64         `json:"excluded_staff_ids"`
	Enabled          bool            `json:"enabled"`
}

func toBonusSettingsDTO(b domain.BonusSettings) BonusSettingsDTO {
	ids := make([]int64, len(b.ExcludedStaffIDs))
	for i, id := range b.ExcludedStaffIDs {
		ids[i] = int64(id)
	}
	return BonusSettingsDTO{
		MinCarsCount:     b.MinCarsCount,
		BonusAmount:      b.BonusAmount,
		ExcludedStaffIDs: ids,
		Enabled:          b.Enabled(),
	}
}

func (d BonusSettingsDTO) toDomain() domain.BonusSettings {
	ids := make([]domain.StaffID, len(d.ExcludedStaffIDs))
	for i, id := range d.ExcludedStaffIDs {
		ids[i] = domain.StaffID(id)
	}
	return domain.BonusSettings{MinCarsCount: d.MinCarsCount, BonusAmount: d.BonusAmount, ExcludedStaffIDs: ids}
}

// =============================================================================
// REPORTS
// =============================================================================

type ShiftLineDTO struct {
	Shift           ShiftDTO        `json:"shift"`
	CarsCount       int             `json:"cars_count"`
	TransferRevenue decimal.Decimal `json:"transfer_revenue"`
	Bonus           decimal.Decimal `json:"bonus"`
}

type StaffReportDTO struct {
	Staff               StaffDTO        `json:"staff"`
	Period              string          `json:"period"`
	PeriodFrom          string          `json:"period_from"`
	PeriodTo            string          `json:"period_to"`
	Shifts              []ShiftLineDTO  `json:"shifts"`
	TransferredCarCount int             `json:"transferred_car_count"`
	TransferRevenue     decimal.Decimal `json:"transfer_revenue"`
	Penalties           []PenaltyDTO    `json:"penalties"`
	PenaltiesTotal      decimal.Decimal `json:"penalties_total"`
	Surcharges          []AdjustmentDTO `json:"surcharges"`
	SurchargesTotal     decimal.Decimal `json:"surcharges_total"`
	BonusesTotal        decimal.Decimal `json:"bonuses_total"`
	Net                 decimal.Decimal `json:"net"`
}

func toStaffReportDTO(r report.StaffReport) StaffReportDTO {
	dto := StaffReportDTO{
		Staff:               toStaffDTO(r.Staff),
		Period:              r.Period.String(),
		PeriodFrom:          r.Period.From().String(),
		PeriodTo:            r.Period.To().String(),
		Shifts:              make([]ShiftLineDTO, len(r.Shifts)),
		TransferredCarCount: r.TransferredCarCount,
		TransferRevenue:     r.TransferRevenue,
		Penalties:           make([]PenaltyDTO, len(r.Penalties)),
		PenaltiesTotal:      r.PenaltiesTotal,
		Surcharges:          make([]AdjustmentDTO, len(r.Surcharges)),
		SurchargesTotal:     r.SurchargesTotal,
		BonusesTotal:        r.BonusesTotal,
		Net:                 r.Net,
	}
	for i, l := range r.Shifts {
		dto.Shifts[i] = ShiftLineDTO{Shift: toShiftDTO(l.Shift), CarsCount: l.CarsCount, TransferRevenue: l.TransferRevenue, Bonus: l.Bonus}
	}
	for i, p := range r.Penalties {
		dto.Penalties[i] = toPenaltyDTO(p)
	}
	for i, s := range r.Surcharges {
		dto.Surcharges[i] = surchargeDTO(s)
	}
	return dto
}

type CarWashReportDTO struct {
	CarWash         CarWashDTO          `json:"car_wash"`
	Period          string              `json:"period"`
	Cars            []TransferredCarDTO `json:"cars"`
	WashingCost     decimal.Decimal     `json:"washing_cost"`
	Penalties       []AdjustmentDTO     `json:"penalties"`
	PenaltiesTotal  decimal.Decimal     `json:"penalties_total"`
	Surcharges      []AdjustmentDTO     `json:"surcharges"`
	SurchargesTotal decimal.Decimal     `json:"surcharges_total"`
	Total           decimal.Decimal     `json:"total"`
}

func toCarWashReportDTO(r report.CarWashReport) CarWashReportDTO {
	dto := CarWashReportDTO{
		CarWash:         toCarWashDTO(r.CarWash),
		Period:          r.Period.String(),
		Cars:            toTransferredCarDTOs(r.Cars),
		WashingCost:     r.WashingCost,
		Penalties:       make([]AdjustmentDTO, len(r.Penalties)),
		PenaltiesTotal:  r.PenaltiesTotal,
		Surcharges:      make([]AdjustmentDTO, len(r.Surcharges)),
		SurchargesTotal: r.SurchargesTotal,
		Total:           r.Total,
	}
	for i, p := range r.Penalties {
		dto.Penalties[i] = carWashPenaltyDTO(p)
	}
	for i, s := range r.Surcharges {
		dto.Surcharges[i] = carWashSurchargeDTO(s)
	}
	return dto
}

// =============================================================================
// SHEETS SYNC
// =============================================================================

type SyncRunDTO struct {
	ID          string `json:"id"`
	Period      string `json:"period"`
	Status      string `json:"status"`
	RowsWritten int    `json:"rows_written"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toSyncRunDTO(r sqlite.SyncRun) SyncRunDTO {
	return SyncRunDTO{
		ID:          r.ID,
		Period:      r.Period,
		Status:      r.Status,
		RowsWritten: r.RowsWritten,
		Error:       r.Error,
		StartedAt:   formatTime(r.StartedAt),
		CompletedAt: formatTimePtr(r.CompletedAt),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
	// Dates lists conflicting shift dates on a duplicate-shift conflict.
	Dates []string `json:"dates,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatDates(dates []domain.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func parseDates(raw []string) ([]domain.Date, error) {
	dates := make([]domain.Date, 0, len(raw))
	for _, s := range raw {
		d, err := domain.ParseDate(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
