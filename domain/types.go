/*
Package domain holds the entities, value types, error taxonomy and storage
contracts of the car-wash staffing back office.

KEY CONCEPTS IN THIS FILE (types.go):
  - Staff / CarWash: the people and places shifts are planned for
  - Shift: one staff member's assignment for one shift date
  - TransferredCar: a car moved to a wash during a shift, with the prices
    that were in force when it was recorded
  - Penalty / Surcharge: monetary adjustments for staff and car washes
  - BonusSettings: the singleton weekend-bonus configuration

DESIGN PRINCIPLES:
  1. Money is decimal.Decimal, never float64
  2. Prices are snapshotted on TransferredCar at creation time; reports
     never look up live prices for past cars
  3. Shift state is derived from its timestamps, there is no status column

SEE ALSO:
  - date.go: Date type
  - errors.go: Error taxonomy
  - store.go: Repository contracts
*/
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StaffID int64
type CarWashID int64
type ShiftID int64
type CarID int64
type PenaltyID int64
type SurchargeID int64

// =============================================================================
// STAFF
// =============================================================================

// DepositReturnDelay is how long after a ban the staff deposit is returned.
const DepositReturnDelay = 60 * 24 * time.Hour

type Staff struct {
	ID             StaffID
	FullName       string
	TelegramChatID int64
	BannedAt       *time.Time
	CreatedAt      time.Time
}

// DepositReturnDate is banned_at + 60 days, or nil if the staff member was
// never banned.
func (s Staff) DepositReturnDate() *Date {
	if s.BannedAt == nil {
		return nil
	}
	d := DateOf(s.BannedAt.Add(DepositReturnDelay))
	return &d
}

func (s Staff) IsBanned() bool { return s.BannedAt != nil }

// =============================================================================
// CAR WASH
// =============================================================================

type CarClass string

const (
	CarClassComfort  CarClass = "comfort"
	CarClassBusiness CarClass = "business"
	CarClassVan      CarClass = "van"
)

type WashType string

const (
	WashTypePlanned WashType = "planned"
	WashTypeUrgent  WashType = "urgent"
)

type ServiceKind string

const (
	ServiceKindTrunkVacuum ServiceKind = "trunk_vacuum"
	ServiceKindDryCleaning ServiceKind = "dry_cleaning"
	ServiceKindOther       ServiceKind = "other"
)

// CarWashService is an additional service offered by a car wash.
type CarWashService struct {
	ID    string
	Name  string
	Kind  ServiceKind
	Price decimal.Decimal
}

type CarWash struct {
	ID                             CarWashID
	Name                           string
	ComfortWashPrice               decimal.Decimal
	BusinessWashPrice              decimal.Decimal
	VanWashPrice                   decimal.Decimal
	WindshieldWasherPricePerBottle decimal.Decimal
	Services                       []CarWashService
	CreatedAt                      time.Time
}

// Service looks up an additional service by ID.
func (cw CarWash) Service(id string) (CarWashService, bool) {
	for _, s := range cw.Services {
		if s.ID == id {
			return s, true
		}
	}
	return CarWashService{}, false
}

// =============================================================================
// SHIFT
// =============================================================================

type ShiftStatus string

const (
	ShiftUnconfirmed ShiftStatus = "unconfirmed"
	ShiftConfirmed   ShiftStatus = "confirmed"
	ShiftStarted     ShiftStatus = "started"
	ShiftFinished    ShiftStatus = "finished"
	ShiftRejected    ShiftStatus = "rejected"
)

type Shift struct {
	ID          ShiftID
	StaffID     StaffID
	Date        Date
	CarWashID   *CarWashID
	StartedAt   *time.Time
	FinishedAt  *time.Time
	ConfirmedAt *time.Time
	RejectedAt  *time.Time
	IsExtra     bool
	IsTest      bool
	CreatedAt   time.Time
}

// Status derives the lifecycle state from the shift timestamps.
func (s Shift) Status() ShiftStatus {
	switch {
	case s.FinishedAt != nil:
		return ShiftFinished
	case s.StartedAt != nil:
		return ShiftStarted
	case s.RejectedAt != nil:
		return ShiftRejected
	case s.ConfirmedAt != nil:
		return ShiftConfirmed
	default:
		return ShiftUnconfirmed
	}
}

// IsActive reports whether the shift is started and not yet finished.
func (s Shift) IsActive() bool { return s.StartedAt != nil && s.FinishedAt == nil }

// ShiftFinishPhoto is a photo reported by staff when closing a shift.
type ShiftFinishPhoto struct {
	ShiftID ShiftID
	FileID  string
}

// CarWashSummary aggregates the cars one shift brought to one car wash.
// It is computed on demand and never stored.
type CarWashSummary struct {
	CarWashID        CarWashID
	CarWashName      string
	ComfortCars      int
	BusinessCars     int
	VanCars          int
	PlannedCars      int
	UrgentCars       int
	DryCleaningItems int
	TrunkVacuumCount int
	RefilledCars     int
	NotRefilledCars  int
}

func (s CarWashSummary) TotalCars() int { return s.ComfortCars + s.BusinessCars + s.VanCars }

// =============================================================================
// TRANSFERRED CAR
// =============================================================================

// PriceSnapshot is the pricing in force when a car was recorded.
type PriceSnapshot struct {
	Transfer         decimal.Decimal
	ComfortWash      decimal.Decimal
	BusinessWash     decimal.Decimal
	VanWash          decimal.Decimal
	WindshieldWasher decimal.Decimal
}

type AdditionalService struct {
	ServiceID string
	Name      string
	Kind      ServiceKind
	Count     int
	Price     decimal.Decimal
}

type TransferredCar struct {
	ID                                 CarID
	ShiftID                            ShiftID
	CarWashID                          CarWashID
	Number                             string
	Class                              CarClass
	WashType                           WashType
	WindshieldWasherRefilledPercentage int
	Prices                             PriceSnapshot
	AdditionalServices                 []AdditionalService
	CreatedAt                          time.Time
}

func (c TransferredCar) IsWindshieldWasherRefilled() bool {
	return c.WindshieldWasherRefilledPercentage > 0
}

// =============================================================================
// PENALTIES / SURCHARGES
// =============================================================================

type PenaltyReason string

const (
	PenaltyReasonNotShowingUp PenaltyReason = "not_showing_up"
	PenaltyReasonEarlyLeave   PenaltyReason = "early_leave"
	PenaltyReasonOther        PenaltyReason = "other"
)

// PenaltyConsequence is empty when the penalty has no consequence.
type PenaltyConsequence string

const (
	ConsequenceNone      PenaltyConsequence = ""
	ConsequenceWarn      PenaltyConsequence = "warn"
	ConsequenceDismissal PenaltyConsequence = "dismissal"
)

type Penalty struct {
	ID          PenaltyID
	StaffID     StaffID
	Reason      PenaltyReason
	Amount      decimal.Decimal
	Consequence PenaltyConsequence
	CreatedAt   time.Time
}

type Surcharge struct {
	ID        SurchargeID
	StaffID   StaffID
	Reason    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type CarWashPenalty struct {
	ID        PenaltyID
	CarWashID CarWashID
	Reason    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type CarWashSurcharge struct {
	ID        SurchargeID
	CarWashID CarWashID
	Reason    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// SETTINGS
// =============================================================================

// BonusSettings configures the flat weekend bonus. The zero value is the
// default row and means the bonus is disabled.
type BonusSettings struct {
	MinCarsCount     int
	BonusAmount      decimal.Decimal
	ExcludedStaffIDs []StaffID
}

// Enabled requires both a positive car threshold and a positive amount.
func (b BonusSettings) Enabled() bool {
	return b.MinCarsCount > 0 && b.BonusAmount.IsPositive()
}

func (b BonusSettings) IsExcluded(staffID StaffID) bool {
	for _, id := range b.ExcludedStaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}
