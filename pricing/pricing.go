/*
pricing.go - Transfer and wash price tables

PURPOSE:
  Resolves what a transferred car costs at the moment it is recorded, and
  freezes those prices into a domain.PriceSnapshot. Reports only ever read
  the snapshot, so changing a table never rewrites history.

TABLES:
  TransferPrices: what the staff member earns per car, by class and wash type
  CarWash:        what the wash charges per class, per washer bottle and per
                  additional service (lives on domain.CarWash)

Lookups switch over the enums. An unpriced class or wash type is an error,
never a zero price.
*/
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/carwash-backoffice/domain"
)

var (
	ErrUnknownCarClass = fmt.Errorf("%w: unknown car class", domain.ErrInvalidInput)
	ErrUnknownWashType = fmt.Errorf("%w: unknown wash type", domain.ErrInvalidInput)
)

// =============================================================================
// TRANSFER PRICES
// =============================================================================

// TransferPrices is the staff pay per transferred car.
type TransferPrices struct {
	ComfortPlanned  decimal.Decimal `yaml:"comfort_planned"`
	ComfortUrgent   decimal.Decimal `yaml:"comfort_urgent"`
	BusinessPlanned decimal.Decimal `yaml:"business_planned"`
	BusinessUrgent  decimal.Decimal `yaml:"business_urgent"`
	VanPlanned      decimal.Decimal `yaml:"van_planned"`
	VanUrgent       decimal.Decimal `yaml:"van_urgent"`
}

// Lookup returns the transfer price of one car.
func (p TransferPrices) Lookup(class domain.CarClass, washType domain.WashType) (decimal.Decimal, error) {
	urgent, err := isUrgent(washType)
	if err != nil {
		return decimal.Zero, err
	}
	switch class {
	case domain.CarClassComfort:
		if urgent {
			return p.ComfortUrgent, nil
		}
		return p.ComfortPlanned, nil
	case domain.CarClassBusiness:
		if urgent {
			return p.BusinessUrgent, nil
		}
		return p.BusinessPlanned, nil
	case domain.CarClassVan:
		if urgent {
			return p.VanUrgent, nil
		}
		return p.VanPlanned, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCarClass, class)
	}
}

func isUrgent(washType domain.WashType) (bool, error) {
	switch washType {
	case domain.WashTypePlanned:
		return false, nil
	case domain.WashTypeUrgent:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownWashType, washType)
	}
}

// ParseCarClass validates a raw car class.
func ParseCarClass(s string) (domain.CarClass, error) {
	switch c := domain.CarClass(s); c {
	case domain.CarClassComfort, domain.CarClassBusiness, domain.CarClassVan:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCarClass, s)
	}
}

// ParseWashType validates a raw wash type.
func ParseWashType(s string) (domain.WashType, error) {
	w := domain.WashType(s)
	if _, err := isUrgent(w); err != nil {
		return "", err
	}
	return w, nil
}

// =============================================================================
// CAR WASH PRICES
// =============================================================================

// WashPrice returns the wash price for a class out of a snapshot.
func WashPrice(s domain.PriceSnapshot, class domain.CarClass) (decimal.Decimal, error) {
	switch class {
	case domain.CarClassComfort:
		return s.ComfortWash, nil
	case domain.CarClassBusiness:
		return s.BusinessWash, nil
	case domain.CarClassVan:
		return s.VanWash, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCarClass, class)
	}
}

// Snapshot freezes the prices in force for a car being recorded now.
func Snapshot(cw domain.CarWash, transfer TransferPrices, class domain.CarClass, washType domain.WashType) (domain.PriceSnapshot, error) {
	transferPrice, err := transfer.Lookup(class, washType)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	return domain.PriceSnapshot{
		Transfer:         transferPrice,
		ComfortWash:      cw.ComfortWashPrice,
		BusinessWash:     cw.BusinessWashPrice,
		VanWash:          cw.VanWashPrice,
		WindshieldWasher: cw.WindshieldWasherPricePerBottle,
	}, nil
}

// ResolveServices turns requested service counts into snapshotted
// AdditionalService rows. Counts below one are rejected. When a car wash
// lists a service ID twice the first entry is used.
func ResolveServices(cw domain.CarWash, counts map[string]int) ([]domain.AdditionalService, error) {
	result := make([]domain.AdditionalService, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, svc := range cw.Services {
		count, ok := counts[svc.ID]
		if !ok || seen[svc.ID] {
			continue
		}
		seen[svc.ID] = true
		if count < 1 {
			return nil, fmt.Errorf("%w: service %q count %d", domain.ErrInvalidInput, svc.ID, count)
		}
		result = append(result, domain.AdditionalService{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Kind:      svc.Kind,
			Count:     count,
			Price:     svc.Price,
		})
	}
	if len(result) != len(counts) {
		for id := range counts {
			if _, ok := cw.Service(id); !ok {
				return nil, fmt.Errorf("%w: %q at car wash %d", domain.ErrServiceNotFound, id, cw.ID)
			}
		}
	}
	return result, nil
}

// =============================================================================
// COSTS
// =============================================================================

// WasherCost charges the per-bottle price proportionally to the refilled
// share of a bottle.
func WasherCost(pricePerBottle decimal.Decimal, percentage int) decimal.Decimal {
	if percentage <= 0 {
		return decimal.Zero
	}
	return pricePerBottle.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100))
}

// CarWashCost is what the car wash charges for one car.
func CarWashCost(car domain.TransferredCar) (decimal.Decimal, error) {
	wash, err := WashPrice(car.Prices, car.Class)
	if err != nil {
		return decimal.Zero, err
	}
	total := wash.Add(WasherCost(car.Prices.WindshieldWasher, car.WindshieldWasherRefilledPercentage))
	for _, svc := range car.AdditionalServices {
		total = total.Add(svc.Price.Mul(decimal.NewFromInt(int64(svc.Count))))
	}
	return total, nil
}

// IsPricingError reports whether err came from an unpriced enum value.
func IsPricingError(err error) bool {
	return errors.Is(err, ErrUnknownCarClass) || errors.Is(err, ErrUnknownWashType)
}
