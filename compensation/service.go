package compensation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/metrics"
	"github.com/warp/carwash-backoffice/notify"
)

// =============================================================================
// PENALTY SERVICE - Records penalties and surcharges
// =============================================================================

type PenaltyService struct {
	Store    domain.TxStore
	Clock    calendar.Clock
	Notifier notify.Notifier
	Logger   *zerolog.Logger
}

func NewPenaltyService(store domain.TxStore, clock calendar.Clock, notifier notify.Notifier, logger *zerolog.Logger) *PenaltyService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if notifier == nil {
		notifier = notify.NopSender{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PenaltyService{Store: store, Clock: clock, Notifier: notifier, Logger: logger}
}

// PenaltyInput describes a staff penalty. Amount and Consequence are
// computed from the rule table when nil. Reasons without a table need an
// explicit Amount and default to no consequence.
type PenaltyInput struct {
	StaffID     domain.StaffID
	Reason      domain.PenaltyReason
	Amount      *decimal.Decimal
	Consequence *domain.PenaltyConsequence
}

// CreatePenalty records a staff penalty and notifies the staff member.
func (s *PenaltyService) CreatePenalty(ctx context.Context, in PenaltyInput) (domain.Penalty, error) {
	if err := validateReason(in.Reason); err != nil {
		return domain.Penalty{}, err
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return domain.Penalty{}, fmt.Errorf("%w: negative amount", domain.ErrInvalidInput)
	}
	computed := hasRuleTable(in.Reason)
	if !computed && in.Amount == nil {
		return domain.Penalty{}, fmt.Errorf("%w: penalty reason %q needs an explicit amount", domain.ErrInvalidInput, in.Reason)
	}

	var created domain.Penalty
	var staff domain.Staff
	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		var err error
		staff, err = tx.GetStaff(ctx, in.StaffID)
		if err != nil {
			return err
		}

		p := domain.Penalty{
			StaffID:   in.StaffID,
			Reason:    in.Reason,
			CreatedAt: s.Clock.Now().UTC(),
		}
		if computed && (in.Amount == nil || in.Consequence == nil) {
			reason := string(in.Reason)
			prior, err := tx.CountPenalties(ctx, domain.AdjustmentFilter{StaffID: &in.StaffID, Reason: &reason})
			if err != nil {
				return fmt.Errorf("count prior penalties: %w", err)
			}
			p.Amount, p.Consequence, err = ComputePenaltyAmountAndConsequence(in.StaffID, in.Reason, prior)
			if err != nil {
				return err
			}
		}
		if in.Amount != nil {
			p.Amount = *in.Amount
		}
		if in.Consequence != nil {
			p.Consequence = *in.Consequence
		}

		created, err = tx.CreatePenalty(ctx, p)
		return err
	})
	if err != nil {
		return domain.Penalty{}, err
	}

	metrics.IncPenaltyCreated(string(created.Reason))
	s.Logger.Info().
		Int64("staff_id", int64(created.StaffID)).
		Str("reason", string(created.Reason)).
		Str("amount", created.Amount.String()).
		Str("consequence", string(created.Consequence)).
		Msg("penalty created")
	s.Notifier.Send(ctx, staff.TelegramChatID, notify.PenaltyMessage(created))
	return created, nil
}

func validateReason(reason domain.PenaltyReason) error {
	switch reason {
	case domain.PenaltyReasonNotShowingUp, domain.PenaltyReasonEarlyLeave, domain.PenaltyReasonOther:
		return nil
	default:
		return fmt.Errorf("%w: penalty reason %q", domain.ErrInvalidInput, reason)
	}
}

func validateAdjustment(reason string, amount decimal.Decimal) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: empty reason", domain.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// =============================================================================
// SURCHARGES / CAR WASH ADJUSTMENTS
// =============================================================================

// CreateSurcharge records an extra payment to a staff member.
func (s *PenaltyService) CreateSurcharge(ctx context.Context, staffID domain.StaffID, reason string, amount decimal.Decimal) (domain.Surcharge, error) {
	if err := validateAdjustment(reason, amount); err != nil {
		return domain.Surcharge{}, err
	}
	staff, err := s.Store.GetStaff(ctx, staffID)
	if err != nil {
		return domain.Surcharge{}, err
	}
	created, err := s.Store.CreateSurcharge(ctx, domain.Surcharge{
		StaffID:   staffID,
		Reason:    reason,
		Amount:    amount,
		CreatedAt: s.Clock.Now().UTC(),
	})
	if err != nil {
		return domain.Surcharge{}, fmt.Errorf("create surcharge: %w", err)
	}
	s.Logger.Info().Int64("staff_id", int64(staffID)).Str("amount", amount.String()).Msg("surcharge created")
	s.Notifier.Send(ctx, staff.TelegramChatID, notify.SurchargeMessage(reason, amount))
	return created, nil
}

func (s *PenaltyService) CreateCarWashPenalty(ctx context.Context, carWashID domain.CarWashID, reason string, amount decimal.Decimal) (domain.CarWashPenalty, error) {
	if err := validateAdjustment(reason, amount); err != nil {
		return domain.CarWashPenalty{}, err
	}
	created, err := s.Store.CreateCarWashPenalty(ctx, domain.CarWashPenalty{
		CarWashID: carWashID,
		Reason:    reason,
		Amount:    amount,
		CreatedAt: s.Clock.Now().UTC(),
	})
	if err != nil {
		return domain.CarWashPenalty{}, err
	}
	s.Logger.Info().Int64("car_wash_id", int64(carWashID)).Str("amount", amount.String()).Msg("car wash penalty created")
	return created, nil
}

func (s *PenaltyService) CreateCarWashSurcharge(ctx context.Context, carWashID domain.CarWashID, reason string, amount decimal.Decimal) (domain.CarWashSurcharge, error) {
	if err := validateAdjustment(reason, amount); err != nil {
		return domain.CarWashSurcharge{}, err
	}
	created, err := s.Store.CreateCarWashSurcharge(ctx, domain.CarWashSurcharge{
		CarWashID: carWashID,
		Reason:    reason,
		Amount:    amount,
		CreatedAt: s.Clock.Now().UTC(),
	})
	if err != nil {
		return domain.CarWashSurcharge{}, err
	}
	s.Logger.Info().Int64("car_wash_id", int64(carWashID)).Str("amount", amount.String()).Msg("car wash surcharge created")
	return created, nil
}
