package shift

import (
	"context"
	"fmt"

	"github.com/warp/carwash-backoffice/domain"
)

// SummarizeShift aggregates the shift's cars per car wash.
func (s *Service) SummarizeShift(ctx context.Context, shiftID domain.ShiftID) ([]domain.CarWashSummary, error) {
	if _, err := s.Store.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	return summarize(ctx, s.Store, shiftID)
}

func summarize(ctx context.Context, store domain.Store, shiftID domain.ShiftID) ([]domain.CarWashSummary, error) {
	cars, err := store.FindTransferredCars(ctx, domain.CarFilter{ShiftID: &shiftID})
	if err != nil {
		return nil, fmt.Errorf("find shift cars: %w", err)
	}
	summaries := SummarizeCars(cars)
	for i := range summaries {
		cw, err := store.GetCarWash(ctx, summaries[i].CarWashID)
		if err != nil {
			return nil, err
		}
		summaries[i].CarWashName = cw.Name
	}
	return summaries, nil
}

// SummarizeCars groups cars by car wash, in order of first appearance.
func SummarizeCars(cars []domain.TransferredCar) []domain.CarWashSummary {
	var result []domain.CarWashSummary
	index := make(map[domain.CarWashID]int)
	for _, car := range cars {
		i, ok := index[car.CarWashID]
		if !ok {
			i = len(result)
			index[car.CarWashID] = i
			result = append(result, domain.CarWashSummary{CarWashID: car.CarWashID})
		}
		sum := &result[i]

		switch car.Class {
		case domain.CarClassComfort:
			sum.ComfortCars++
		case domain.CarClassBusiness:
			sum.BusinessCars++
		case domain.CarClassVan:
			sum.VanCars++
		}
		switch car.WashType {
		case domain.WashTypePlanned:
			sum.PlannedCars++
		case domain.WashTypeUrgent:
			sum.UrgentCars++
		}
		if car.IsWindshieldWasherRefilled() {
			sum.RefilledCars++
		} else {
			sum.NotRefilledCars++
		}
		for _, svc := range car.AdditionalServices {
			switch svc.Kind {
			case domain.ServiceKindDryCleaning:
				sum.DryCleaningItems += svc.Count
			case domain.ServiceKindTrunkVacuum:
				sum.TrunkVacuumCount += svc.Count
			}
		}
	}
	return result
}
