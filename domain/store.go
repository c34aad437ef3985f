/*
store.go - Persistence contracts for the back office

PURPOSE:
  Defines the interface between the rule packages and the database.
  Every query takes a plain filter value; no query builder leaks out of the
  store implementations.

KEY INTERFACES:
  Store:   all repositories of the application
  TxStore: Store plus WithTx for atomic multi-step operations

FILTER SEMANTICS:
  A nil pointer field in a filter means "don't filter on this".
  Date ranges are inclusive on both ends.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - domain/store/memory.go: In-memory for tests
*/
package domain

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

type ShiftFilter struct {
	ID        *ShiftID
	StaffID   *StaffID
	Dates     []Date
	DateFrom  *Date
	DateTo    *Date
	IsTest    *bool
	IsExtra   *bool
	Started   *bool
	Finished  *bool
	Rejected  *bool
	Confirmed *bool
	ExcludeID *ShiftID
}

// ShiftUpdate lists the columns to set. Nil fields are left untouched.
type ShiftUpdate struct {
	CarWashID   *CarWashID
	StartedAt   *time.Time
	FinishedAt  *time.Time
	ConfirmedAt *time.Time
	RejectedAt  *time.Time
}

// CarFilter fields prefixed with Shift filter on the owning shift.
type CarFilter struct {
	ShiftID       *ShiftID
	StaffID       *StaffID
	CarWashID     *CarWashID
	ShiftDateFrom *Date
	ShiftDateTo   *Date
	ShiftIsTest   *bool
}

// AdjustmentFilter selects penalties and surcharges. CreatedFrom and
// CreatedTo are compared against the UTC calendar day of created_at.
type AdjustmentFilter struct {
	StaffID     *StaffID
	CarWashID   *CarWashID
	Reason      *string
	CreatedFrom *Date
	CreatedTo   *Date
}

// Ptr returns a pointer to v, for filling filter fields.
func Ptr[T any](v T) *T { return &v }

// =============================================================================
// STORES
// =============================================================================

type StaffStore interface {
	CreateStaff(ctx context.Context, s Staff) (Staff, error)
	GetStaff(ctx context.Context, id StaffID) (Staff, error)
	ListStaff(ctx context.Context) ([]Staff, error)
	// ExistingStaffIDs returns the subset of ids that exist.
	ExistingStaffIDs(ctx context.Context, ids []StaffID) ([]StaffID, error)
	BanStaff(ctx context.Context, id StaffID, at time.Time) error
}

type CarWashStore interface {
	CreateCarWash(ctx context.Context, cw CarWash) (CarWash, error)
	GetCarWash(ctx context.Context, id CarWashID) (CarWash, error)
	ListCarWashes(ctx context.Context) ([]CarWash, error)
}

type ShiftStore interface {
	GetShift(ctx context.Context, id ShiftID) (Shift, error)
	FindShifts(ctx context.Context, f ShiftFilter) ([]Shift, error)
	CountShifts(ctx context.Context, f ShiftFilter) (int, error)
	ShiftExists(ctx context.Context, f ShiftFilter) (bool, error)
	// CreateShifts inserts all shifts and returns them with IDs assigned.
	CreateShifts(ctx context.Context, shifts []Shift) ([]Shift, error)
	// UpdateShifts applies u to every shift matching f and returns the
	// number of rows changed.
	UpdateShifts(ctx context.Context, f ShiftFilter, u ShiftUpdate) (int, error)
	DeleteShifts(ctx context.Context, f ShiftFilter) (int, error)

	DeleteFinishPhotos(ctx context.Context, shiftID ShiftID) error
	CreateFinishPhotos(ctx context.Context, photos []ShiftFinishPhoto) error
	ListFinishPhotos(ctx context.Context, shiftID ShiftID) ([]ShiftFinishPhoto, error)
}

type CarStore interface {
	CreateTransferredCar(ctx context.Context, car TransferredCar) (TransferredCar, error)
	FindTransferredCars(ctx context.Context, f CarFilter) ([]TransferredCar, error)
	CountTransferredCars(ctx context.Context, f CarFilter) (int, error)
}

type PenaltyStore interface {
	CreatePenalty(ctx context.Context, p Penalty) (Penalty, error)
	FindPenalties(ctx context.Context, f AdjustmentFilter) ([]Penalty, error)
	CountPenalties(ctx context.Context, f AdjustmentFilter) (int, error)

	CreateSurcharge(ctx context.Context, s Surcharge) (Surcharge, error)
	FindSurcharges(ctx context.Context, f AdjustmentFilter) ([]Surcharge, error)

	CreateCarWashPenalty(ctx context.Context, p CarWashPenalty) (CarWashPenalty, error)
	FindCarWashPenalties(ctx context.Context, f AdjustmentFilter) ([]CarWashPenalty, error)

	CreateCarWashSurcharge(ctx context.Context, s CarWashSurcharge) (CarWashSurcharge, error)
	FindCarWashSurcharges(ctx context.Context, f AdjustmentFilter) ([]CarWashSurcharge, error)
}

type SettingsStore interface {
	// GetBonusSettings returns the singleton row, creating the default
	// (disabled) row if it does not exist yet.
	GetBonusSettings(ctx context.Context) (BonusSettings, error)
	SaveBonusSettings(ctx context.Context, s BonusSettings) error
}

// Store handles persistence of everything the back office owns.
type Store interface {
	StaffStore
	CarWashStore
	ShiftStore
	CarStore
	PenaltyStore
	SettingsStore
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
