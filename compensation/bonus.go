/*
Package compensation holds the bonus and penalty rules.

BONUS:
  A flat weekend bonus is paid for a shift when ALL of these hold:
    1. the shift is neither a test nor an extra shift
    2. the shift date is a Saturday or Sunday
    3. bonus settings exist and are enabled
    4. the shift transferred at least MinCarsCount cars
    5. the staff member is not excluded
  Otherwise the bonus is zero.

PENALTY:
  The amount and consequence of a penalty come from a per-reason table of
  {threshold, amount, consequence} rows, scanned in ascending threshold
  order against the number of prior penalties with the same reason. The
  first row whose threshold is >= the prior count wins. EARLY_LEAVE is a
  fixed 1000 with no consequence.
*/
package compensation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/carwash-backoffice/domain"
)

// =============================================================================
// BONUS
// =============================================================================

// BonusInput is everything the bonus rule looks at. Settings is nil when
// no settings row exists.
type BonusInput struct {
	Shift                domain.Shift
	TransferredCarsCount int
	Settings             *domain.BonusSettings
}

// ComputeBonusAmount applies the weekend bonus rule.
func ComputeBonusAmount(in BonusInput) decimal.Decimal {
	if in.Shift.IsTest || in.Shift.IsExtra {
		return decimal.Zero
	}
	if !in.Shift.Date.IsWeekend() {
		return decimal.Zero
	}
	if in.Settings == nil || !in.Settings.Enabled() {
		return decimal.Zero
	}
	if in.TransferredCarsCount < in.Settings.MinCarsCount {
		return decimal.Zero
	}
	if in.Settings.IsExcluded(in.Shift.StaffID) {
		return decimal.Zero
	}
	return in.Settings.BonusAmount
}

// BonusCalculator computes bonuses for many shifts against one settings
// snapshot, loaded when the calculator is built.
type BonusCalculator struct {
	cars     domain.CarStore
	settings domain.BonusSettings
}

func NewBonusCalculator(ctx context.Context, settings domain.SettingsStore, cars domain.CarStore) (*BonusCalculator, error) {
	s, err := settings.GetBonusSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bonus settings: %w", err)
	}
	return &BonusCalculator{cars: cars, settings: s}, nil
}

// Settings returns the snapshot the calculator works with.
func (c *BonusCalculator) Settings() domain.BonusSettings { return c.settings }

// Compute returns the bonus for one shift.
func (c *BonusCalculator) Compute(ctx context.Context, sh domain.Shift) (decimal.Decimal, error) {
	// Skip the count query when the cheap predicates already fail.
	if sh.IsTest || sh.IsExtra || !sh.Date.IsWeekend() || !c.settings.Enabled() {
		return decimal.Zero, nil
	}
	count, err := c.cars.CountTransferredCars(ctx, domain.CarFilter{ShiftID: &sh.ID})
	if err != nil {
		return decimal.Zero, fmt.Errorf("count cars of shift %d: %w", sh.ID, err)
	}
	return ComputeBonusAmount(BonusInput{
		Shift:                sh,
		TransferredCarsCount: count,
		Settings:             &c.settings,
	}), nil
}
