/*
Package shift implements the shift lifecycle.

STATES (derived from timestamps, see domain.Shift.Status):

	Unconfirmed -> Confirmed -> Started -> Finished
	      \            \
	       +------------+--> Rejected (only before Started)

Test shifts are confirmed at creation and a staff member has at most one of
them: creating a new test shift replaces the previous one.

INVARIANTS:
  - at most one non-test shift per (staff, date)
  - at most one active (started, not finished) shift per staff member
  - a non-test shift dated D can only be started inside the start window of
    D (see calendar.IsValidShiftStartWindow)

CreateTest and Finish run inside Store.WithTx. Notifications are sent after
the transaction commits and their failures are only logged.
*/
package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/notify"
	"github.com/warp/carwash-backoffice/pricing"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store    domain.TxStore
	Clock    calendar.Clock
	Location *time.Location
	Notifier notify.Notifier
	Transfer pricing.TransferPrices
	Logger   *zerolog.Logger
}

// NewService fills in defaults for the optional collaborators.
func NewService(store domain.TxStore, clock calendar.Clock, loc *time.Location, notifier notify.Notifier, transfer pricing.TransferPrices, logger *zerolog.Logger) *Service {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if notifier == nil {
		notifier = notify.NopSender{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		Store:    store,
		Clock:    clock,
		Location: loc,
		Notifier: notifier,
		Transfer: transfer,
		Logger:   logger,
	}
}

func (s *Service) now() time.Time { return s.Clock.Now().UTC() }

// CurrentShiftDate is the shift date staff are working on right now.
func (s *Service) CurrentShiftDate() domain.Date {
	return calendar.CurrentShiftDate(s.Clock.Now(), s.Location)
}

// =============================================================================
// ACTIVE SHIFT GUARD
// =============================================================================

// EnsureStaffHasNoActiveShift fails with *domain.StaffHasActiveShiftError
// if the staff member has a started, unfinished shift.
func (s *Service) EnsureStaffHasNoActiveShift(ctx context.Context, staffID domain.StaffID) error {
	return ensureNoActiveShift(ctx, s.Store, staffID)
}

func ensureNoActiveShift(ctx context.Context, store domain.Store, staffID domain.StaffID) error {
	active, err := store.FindShifts(ctx, domain.ShiftFilter{
		StaffID:  &staffID,
		Started:  domain.Ptr(true),
		Finished: domain.Ptr(false),
	})
	if err != nil {
		return fmt.Errorf("find active shifts: %w", err)
	}
	if len(active) > 0 {
		return &domain.StaffHasActiveShiftError{StaffID: staffID, ActiveShiftID: active[0].ID}
	}
	return nil
}

// Active returns the running shift of a staff member.
func (s *Service) Active(ctx context.Context, staffID domain.StaffID) (domain.Shift, error) {
	active, err := s.Store.FindShifts(ctx, domain.ShiftFilter{
		StaffID:  &staffID,
		Started:  domain.Ptr(true),
		Finished: domain.Ptr(false),
	})
	if err != nil {
		return domain.Shift{}, err
	}
	if len(active) == 0 {
		return domain.Shift{}, domain.ErrShiftNotFound
	}
	return active[0], nil
}

// Current returns the staff member's active shift, or else their shift for
// the current shift date.
func (s *Service) Current(ctx context.Context, staffID domain.StaffID) (domain.Shift, error) {
	active, err := s.Active(ctx, staffID)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, domain.ErrShiftNotFound) {
		return domain.Shift{}, err
	}

	shifts, err := s.Store.FindShifts(ctx, domain.ShiftFilter{
		StaffID: &staffID,
		Dates:   []domain.Date{s.CurrentShiftDate()},
	})
	if err != nil {
		return domain.Shift{}, err
	}
	if len(shifts) == 0 {
		return domain.Shift{}, domain.ErrShiftNotFound
	}
	// A test shift wins over a regular one on the same date.
	for _, sh := range shifts {
		if sh.IsTest {
			return sh, nil
		}
	}
	return shifts[0], nil
}
