package shift

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/metrics"
	"github.com/warp/carwash-backoffice/pricing"
)

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

// CarInput describes a car a staff member moved to a wash.
type CarInput struct {
	Number string
	// CarWashID defaults to the car wash the shift was started at.
	CarWashID                          domain.CarWashID
	Class                              domain.CarClass
	WashType                           domain.WashType
	WindshieldWasherRefilledPercentage int
	// Services maps car wash service ID to count.
	Services map[string]int
}

// AddTransferredCar records a car on an active shift, snapshotting the
// prices in force now.
func (s *Service) AddTransferredCar(ctx context.Context, shiftID domain.ShiftID, in CarInput) (domain.TransferredCar, error) {
	number := strings.ToUpper(strings.TrimSpace(in.Number))
	if number == "" {
		return domain.TransferredCar{}, fmt.Errorf("%w: car number is empty", domain.ErrInvalidInput)
	}
	if in.WindshieldWasherRefilledPercentage < 0 {
		return domain.TransferredCar{}, fmt.Errorf("%w: washer percentage %d", domain.ErrInvalidInput, in.WindshieldWasherRefilledPercentage)
	}

	sh, err := s.Store.GetShift(ctx, shiftID)
	if err != nil {
		return domain.TransferredCar{}, err
	}
	if sh.StartedAt == nil {
		return domain.TransferredCar{}, fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftNotStarted)
	}
	if sh.FinishedAt != nil {
		return domain.TransferredCar{}, fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftFinished)
	}

	carWashID := in.CarWashID
	if carWashID == 0 && sh.CarWashID != nil {
		carWashID = *sh.CarWashID
	}
	cw, err := s.Store.GetCarWash(ctx, carWashID)
	if err != nil {
		return domain.TransferredCar{}, err
	}

	prices, err := pricing.Snapshot(cw, s.Transfer, in.Class, in.WashType)
	if err != nil {
		return domain.TransferredCar{}, err
	}
	services, err := pricing.ResolveServices(cw, in.Services)
	if err != nil {
		return domain.TransferredCar{}, err
	}

	car, err := s.Store.CreateTransferredCar(ctx, domain.TransferredCar{
		ShiftID:                            shiftID,
		CarWashID:                          cw.ID,
		Number:                             number,
		Class:                              in.Class,
		WashType:                           in.WashType,
		WindshieldWasherRefilledPercentage: in.WindshieldWasherRefilledPercentage,
		Prices:                             prices,
		AdditionalServices:                 services,
		CreatedAt:                          s.now(),
	})
	if err != nil {
		return domain.TransferredCar{}, fmt.Errorf("create transferred car: %w", err)
	}

	metrics.IncCarTransferred(string(car.Class))
	s.Logger.Debug().
		Int64("shift_id", int64(shiftID)).
		Str("number", car.Number).
		Str("class", string(car.Class)).
		Msg("car transferred")
	return car, nil
}

// Cars lists the cars recorded on a shift.
func (s *Service) Cars(ctx context.Context, shiftID domain.ShiftID) ([]domain.TransferredCar, error) {
	if _, err := s.Store.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.Store.FindTransferredCars(ctx, domain.CarFilter{ShiftID: &shiftID})
}
