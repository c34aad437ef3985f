package compensation

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/carwash-backoffice/domain"
)

// =============================================================================
// PENALTY RULES
// =============================================================================

// EarlyLeaveAmount is the fixed early-leave penalty.
var EarlyLeaveAmount = decimal.NewFromInt(1000)

type penaltyRule struct {
	threshold   int
	amount      decimal.Decimal
	consequence domain.PenaltyConsequence
}

var notShowingUpRules = []penaltyRule{
	{threshold: 0, amount: decimal.NewFromInt(500), consequence: domain.ConsequenceNone},
	{threshold: 1, amount: decimal.NewFromInt(1000), consequence: domain.ConsequenceNone},
	{threshold: 2, amount: decimal.NewFromInt(1000), consequence: domain.ConsequenceDismissal},
	{threshold: math.MaxInt, amount: decimal.Zero, consequence: domain.ConsequenceDismissal},
}

func penaltyRules(reason domain.PenaltyReason) ([]penaltyRule, bool) {
	switch reason {
	case domain.PenaltyReasonNotShowingUp:
		return notShowingUpRules, true
	default:
		return nil, false
	}
}

// hasRuleTable reports whether amounts for reason can be computed.
func hasRuleTable(reason domain.PenaltyReason) bool {
	if reason == domain.PenaltyReasonEarlyLeave {
		return true
	}
	_, ok := penaltyRules(reason)
	return ok
}

// ComputePenaltyAmountAndConsequence looks up the penalty for a staff
// member who already has priorCount penalties with the same reason.
func ComputePenaltyAmountAndConsequence(staffID domain.StaffID, reason domain.PenaltyReason, priorCount int) (decimal.Decimal, domain.PenaltyConsequence, error) {
	if reason == domain.PenaltyReasonEarlyLeave {
		return EarlyLeaveAmount, domain.ConsequenceNone, nil
	}
	rules, ok := penaltyRules(reason)
	if ok {
		for _, r := range rules {
			if r.threshold >= priorCount {
				return r.amount, r.consequence, nil
			}
		}
	}
	return decimal.Zero, domain.ConsequenceNone, &domain.InvalidPenaltyConsequenceError{
		StaffID: staffID,
		Reason:  reason,
		Count:   priorCount,
	}
}
