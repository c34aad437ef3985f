package shift

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/metrics"
)

// =============================================================================
// REGULAR SHIFTS
// =============================================================================

// CreateRegular schedules unconfirmed shifts for staffID on each date.
//
// Every requested date that already has a non-test shift is a conflict. The
// remaining dates are created in one batch. When there are conflicts the
// created shifts are returned together with a *domain.ShiftAlreadyExistsError
// listing every conflicting date, so callers see partial success.
func (s *Service) CreateRegular(ctx context.Context, staffID domain.StaffID, dates []domain.Date) ([]domain.Shift, error) {
	dates = uniqueSortedDates(dates)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no dates", domain.ErrInvalidInput)
	}
	if _, err := s.Store.GetStaff(ctx, staffID); err != nil {
		return nil, err
	}

	var created []domain.Shift
	var conflicts []domain.Date
	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		existing, err := tx.FindShifts(ctx, domain.ShiftFilter{
			StaffID: &staffID,
			Dates:   dates,
			IsTest:  domain.Ptr(false),
		})
		if err != nil {
			return fmt.Errorf("find existing shifts: %w", err)
		}
		taken := make(map[domain.Date]bool, len(existing))
		for _, sh := range existing {
			taken[sh.Date] = true
		}

		var toCreate []domain.Shift
		for _, d := range dates {
			if taken[d] {
				conflicts = append(conflicts, d)
				continue
			}
			toCreate = append(toCreate, domain.Shift{StaffID: staffID, Date: d, CreatedAt: s.now()})
		}
		if len(toCreate) == 0 {
			return nil
		}
		created, err = tx.CreateShifts(ctx, toCreate)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.AddShiftsCreated("regular", len(created))
	s.Logger.Info().
		Int64("staff_id", int64(staffID)).
		Int("created", len(created)).
		Int("conflicts", len(conflicts)).
		Msg("regular shifts created")

	if len(conflicts) > 0 {
		return created, &domain.ShiftAlreadyExistsError{StaffID: staffID, Dates: conflicts}
	}
	return created, nil
}

// =============================================================================
// EXTRA SHIFTS
// =============================================================================

type ExtraShiftRequest struct {
	StaffID domain.StaffID
	Date    domain.Date
}

// ExtraShiftsResult reports partial failures as data: unknown staff and
// date conflicts do not fail the batch.
type ExtraShiftsResult struct {
	Created         []domain.Shift
	MissingStaffIDs []domain.StaffID
	Conflicts       []ExtraShiftRequest
}

// CreateExtra schedules confirmed extra shifts in one batch.
func (s *Service) CreateExtra(ctx context.Context, requests []ExtraShiftRequest) (ExtraShiftsResult, error) {
	var result ExtraShiftsResult
	if len(requests) == 0 {
		return result, nil
	}

	ids := make([]domain.StaffID, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.StaffID)
	}

	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		existingIDs, err := tx.ExistingStaffIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("check staff: %w", err)
		}
		known := make(map[domain.StaffID]bool, len(existingIDs))
		for _, id := range existingIDs {
			known[id] = true
		}

		missing := make(map[domain.StaffID]bool)
		planned := make(map[ExtraShiftRequest]bool)
		now := s.now()
		var toCreate []domain.Shift
		for _, r := range requests {
			if !known[r.StaffID] {
				if !missing[r.StaffID] {
					missing[r.StaffID] = true
					result.MissingStaffIDs = append(result.MissingStaffIDs, r.StaffID)
				}
				continue
			}
			if planned[r] {
				result.Conflicts = append(result.Conflicts, r)
				continue
			}
			exists, err := tx.ShiftExists(ctx, domain.ShiftFilter{
				StaffID: domain.Ptr(r.StaffID),
				Dates:   []domain.Date{r.Date},
				IsTest:  domain.Ptr(false),
			})
			if err != nil {
				return fmt.Errorf("check shift: %w", err)
			}
			if exists {
				result.Conflicts = append(result.Conflicts, r)
				continue
			}
			planned[r] = true
			toCreate = append(toCreate, domain.Shift{
				StaffID:     r.StaffID,
				Date:        r.Date,
				ConfirmedAt: domain.Ptr(now),
				IsExtra:     true,
				CreatedAt:   now,
			})
		}
		if len(toCreate) == 0 {
			return nil
		}
		result.Created, err = tx.CreateShifts(ctx, toCreate)
		return err
	})
	if err != nil {
		return ExtraShiftsResult{}, err
	}

	metrics.AddShiftsCreated("extra", len(result.Created))
	s.Logger.Info().
		Int("created", len(result.Created)).
		Int("missing_staff", len(result.MissingStaffIDs)).
		Int("conflicts", len(result.Conflicts)).
		Msg("extra shifts created")
	return result, nil
}

// =============================================================================
// TEST SHIFTS
// =============================================================================

// CreateTest replaces the staff member's test shift with a new confirmed one
// dated date. Delete and create happen in one transaction, so a failure
// keeps the previous test shift.
func (s *Service) CreateTest(ctx context.Context, staffID domain.StaffID, date domain.Date) (domain.Shift, error) {
	var created domain.Shift
	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		if _, err := tx.GetStaff(ctx, staffID); err != nil {
			return err
		}
		if err := ensureNoActiveShift(ctx, tx, staffID); err != nil {
			return err
		}
		if _, err := tx.DeleteShifts(ctx, domain.ShiftFilter{StaffID: &staffID, IsTest: domain.Ptr(true)}); err != nil {
			return fmt.Errorf("delete previous test shift: %w", err)
		}
		now := s.now()
		shifts, err := tx.CreateShifts(ctx, []domain.Shift{{
			StaffID:     staffID,
			Date:        date,
			ConfirmedAt: domain.Ptr(now),
			IsTest:      true,
			CreatedAt:   now,
		}})
		if err != nil {
			return fmt.Errorf("create test shift: %w", err)
		}
		created = shifts[0]
		return nil
	})
	if err != nil {
		return domain.Shift{}, err
	}

	metrics.AddShiftsCreated("test", 1)
	s.Logger.Info().Int64("staff_id", int64(staffID)).Int64("shift_id", int64(created.ID)).Msg("test shift created")
	return created, nil
}

func uniqueSortedDates(dates []domain.Date) []domain.Date {
	seen := make(map[domain.Date]bool, len(dates))
	result := make([]domain.Date, 0, len(dates))
	for _, d := range dates {
		if !seen[d] {
			seen[d] = true
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result
}
