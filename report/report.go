/*
Package report aggregates shifts, cars and adjustments per report period.

STAFF REPORT:
  transfer revenue   sum of snapshotted transfer prices of the period's cars
  + surcharges       created inside the period
  + bonuses          weekend bonus of every finished shift
  - penalties        created inside the period
  = net

CAR WASH REPORT:
  washing cost       sum of pricing.CarWashCost over the period's cars
  + surcharges
  - penalties
  = total

Only non-test shifts and their cars are counted. Cars belong to the period
of their shift date; adjustments to the period of their UTC creation day.
*/
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/compensation"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/period"
	"github.com/warp/carwash-backoffice/pricing"
)

type Service struct {
	Store domain.Store
	// Settings serves bonus settings, usually through a cache.
	Settings domain.SettingsStore
	Logger   *zerolog.Logger
}

func NewService(store domain.Store, settings domain.SettingsStore, logger *zerolog.Logger) *Service {
	if settings == nil {
		settings = store
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{Store: store, Settings: settings, Logger: logger}
}

// =============================================================================
// STAFF REPORT
// =============================================================================

type ShiftLine struct {
	Shift           domain.Shift
	CarsCount       int
	TransferRevenue decimal.Decimal
	Bonus           decimal.Decimal
}

type StaffReport struct {
	Staff  domain.Staff
	Period period.ReportPeriod

	Shifts              []ShiftLine
	TransferredCarCount int
	TransferRevenue     decimal.Decimal

	Penalties       []domain.Penalty
	PenaltiesTotal  decimal.Decimal
	Surcharges      []domain.Surcharge
	SurchargesTotal decimal.Decimal
	BonusesTotal    decimal.Decimal

	Net decimal.Decimal
}

// IsEmpty reports whether nothing happened for the staff member.
func (r StaffReport) IsEmpty() bool {
	return len(r.Shifts) == 0 && len(r.Penalties) == 0 && len(r.Surcharges) == 0
}

// StaffPeriodReport builds the report of one staff member for p.
func (s *Service) StaffPeriodReport(ctx context.Context, staffID domain.StaffID, p period.ReportPeriod) (StaffReport, error) {
	staff, err := s.Store.GetStaff(ctx, staffID)
	if err != nil {
		return StaffReport{}, err
	}
	bonuses, err := compensation.NewBonusCalculator(ctx, s.Settings, s.Store)
	if err != nil {
		return StaffReport{}, err
	}
	return s.staffReport(ctx, staff, p, bonuses)
}

func (s *Service) staffReport(ctx context.Context, staff domain.Staff, p period.ReportPeriod, bonuses *compensation.BonusCalculator) (StaffReport, error) {
	from, to := p.From(), p.To()
	r := StaffReport{
		Staff:           staff,
		Period:          p,
		TransferRevenue: decimal.Zero,
		PenaltiesTotal:  decimal.Zero,
		SurchargesTotal: decimal.Zero,
		BonusesTotal:    decimal.Zero,
	}

	shifts, err := s.Store.FindShifts(ctx, domain.ShiftFilter{
		StaffID:  &staff.ID,
		DateFrom: &from,
		DateTo:   &to,
		IsTest:   domain.Ptr(false),
	})
	if err != nil {
		return StaffReport{}, fmt.Errorf("find shifts: %w", err)
	}
	cars, err := s.Store.FindTransferredCars(ctx, domain.CarFilter{
		StaffID:       &staff.ID,
		ShiftDateFrom: &from,
		ShiftDateTo:   &to,
		ShiftIsTest:   domain.Ptr(false),
	})
	if err != nil {
		return StaffReport{}, fmt.Errorf("find cars: %w", err)
	}
	carsByShift := make(map[domain.ShiftID][]domain.TransferredCar)
	for _, c := range cars {
		carsByShift[c.ShiftID] = append(carsByShift[c.ShiftID], c)
	}

	for _, sh := range shifts {
		line := ShiftLine{Shift: sh, TransferRevenue: decimal.Zero, Bonus: decimal.Zero}
		for _, c := range carsByShift[sh.ID] {
			line.CarsCount++
			line.TransferRevenue = line.TransferRevenue.Add(c.Prices.Transfer)
		}
		if sh.FinishedAt != nil {
			line.Bonus = compensation.ComputeBonusAmount(compensation.BonusInput{
				Shift:                sh,
				TransferredCarsCount: line.CarsCount,
				Settings:             domain.Ptr(bonuses.Settings()),
			})
		}
		r.Shifts = append(r.Shifts, line)
		r.TransferredCarCount += line.CarsCount
		r.TransferRevenue = r.TransferRevenue.Add(line.TransferRevenue)
		r.BonusesTotal = r.BonusesTotal.Add(line.Bonus)
	}

	adj := domain.AdjustmentFilter{StaffID: &staff.ID, CreatedFrom: &from, CreatedTo: &to}
	if r.Penalties, err = s.Store.FindPenalties(ctx, adj); err != nil {
		return StaffReport{}, fmt.Errorf("find penalties: %w", err)
	}
	for _, pen := range r.Penalties {
		r.PenaltiesTotal = r.PenaltiesTotal.Add(pen.Amount)
	}
	if r.Surcharges, err = s.Store.FindSurcharges(ctx, adj); err != nil {
		return StaffReport{}, fmt.Errorf("find surcharges: %w", err)
	}
	for _, sur := range r.Surcharges {
		r.SurchargesTotal = r.SurchargesTotal.Add(sur.Amount)
	}

	r.Net = r.TransferRevenue.Add(r.SurchargesTotal).Add(r.BonusesTotal).Sub(r.PenaltiesTotal)
	return r, nil
}

// AllStaffPeriodReports builds a report for every staff member with any
// activity in p. Bonus settings are loaded once for the whole run.
func (s *Service) AllStaffPeriodReports(ctx context.Context, p period.ReportPeriod) ([]StaffReport, error) {
	staff, err := s.Store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	bonuses, err := compensation.NewBonusCalculator(ctx, s.Settings, s.Store)
	if err != nil {
		return nil, err
	}

	var reports []StaffReport
	for _, st := range staff {
		r, err := s.staffReport(ctx, st, p, bonuses)
		if err != nil {
			return nil, fmt.Errorf("staff %d: %w", st.ID, err)
		}
		if !r.IsEmpty() {
			reports = append(reports, r)
		}
	}
	s.Logger.Debug().Str("period", p.String()).Int("reports", len(reports)).Msg("staff reports built")
	return reports, nil
}

// =============================================================================
// DEPOSIT
// =============================================================================

// StaffReportPeriodsCount counts the distinct report periods in which the
// staff member has non-test shifts.
func (s *Service) StaffReportPeriodsCount(ctx context.Context, staffID domain.StaffID) (int, error) {
	if _, err := s.Store.GetStaff(ctx, staffID); err != nil {
		return 0, err
	}
	shifts, err := s.Store.FindShifts(ctx, domain.ShiftFilter{StaffID: &staffID, IsTest: domain.Ptr(false)})
	if err != nil {
		return 0, fmt.Errorf("find shifts: %w", err)
	}
	dates := make([]domain.Date, len(shifts))
	for i, sh := range shifts {
		dates[i] = sh.Date
	}
	return len(period.OfDates(dates)), nil
}

// =============================================================================
// CAR WASH REPORT
// =============================================================================

type CarWashReport struct {
	CarWash domain.CarWash
	Period  period.ReportPeriod

	Cars        []domain.TransferredCar
	WashingCost decimal.Decimal

	Penalties       []domain.CarWashPenalty
	PenaltiesTotal  decimal.Decimal
	Surcharges      []domain.CarWashSurcharge
	SurchargesTotal decimal.Decimal

	Total decimal.Decimal
}

// CarWashPeriodReport builds what a car wash is owed for p.
func (s *Service) CarWashPeriodReport(ctx context.Context, carWashID domain.CarWashID, p period.ReportPeriod) (CarWashReport, error) {
	cw, err := s.Store.GetCarWash(ctx, carWashID)
	if err != nil {
		return CarWashReport{}, err
	}
	from, to := p.From(), p.To()
	r := CarWashReport{
		CarWash:         cw,
		Period:          p,
		WashingCost:     decimal.Zero,
		PenaltiesTotal:  decimal.Zero,
		SurchargesTotal: decimal.Zero,
	}

	r.Cars, err = s.Store.FindTransferredCars(ctx, domain.CarFilter{
		CarWashID:     &carWashID,
		ShiftDateFrom: &from,
		ShiftDateTo:   &to,
		ShiftIsTest:   domain.Ptr(false),
	})
	if err != nil {
		return CarWashReport{}, fmt.Errorf("find cars: %w", err)
	}
	for _, c := range r.Cars {
		cost, err := pricing.CarWashCost(c)
		if err != nil {
			return CarWashReport{}, fmt.Errorf("car %d: %w", c.ID, err)
		}
		r.WashingCost = r.WashingCost.Add(cost)
	}

	adj := domain.AdjustmentFilter{CarWashID: &carWashID, CreatedFrom: &from, CreatedTo: &to}
	if r.Penalties, err = s.Store.FindCarWashPenalties(ctx, adj); err != nil {
		return CarWashReport{}, fmt.Errorf("find penalties: %w", err)
	}
	for _, pen := range r.Penalties {
		r.PenaltiesTotal = r.PenaltiesTotal.Add(pen.Amount)
	}
	if r.Surcharges, err = s.Store.FindCarWashSurcharges(ctx, adj); err != nil {
		return CarWashReport{}, fmt.Errorf("find surcharges: %w", err)
	}
	for _, sur := range r.Surcharges {
		r.SurchargesTotal = r.SurchargesTotal.Add(sur.Amount)
	}

	r.Total = r.WashingCost.Add(r.SurchargesTotal).Sub(r.PenaltiesTotal)
	return r, nil
}
