package shift

import (
	"context"
	"fmt"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/metrics"
	"github.com/warp/carwash-backoffice/notify"
)

// =============================================================================
// CONFIRM
// =============================================================================

// Confirm sets confirmed_at. Confirming twice is an error, not a no-op.
func (s *Service) Confirm(ctx context.Context, shiftID domain.ShiftID) (domain.Shift, error) {
	n, err := s.Store.UpdateShifts(ctx,
		domain.ShiftFilter{ID: &shiftID, Confirmed: domain.Ptr(false)},
		domain.ShiftUpdate{ConfirmedAt: domain.Ptr(s.now())},
	)
	if err != nil {
		return domain.Shift{}, fmt.Errorf("confirm shift %d: %w", shiftID, err)
	}
	if n == 0 {
		if _, err := s.Store.GetShift(ctx, shiftID); err != nil {
			return domain.Shift{}, err
		}
		return domain.Shift{}, fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftAlreadyConfirmed)
	}

	metrics.IncShiftTransition("confirm")
	return s.Store.GetShift(ctx, shiftID)
}

// =============================================================================
// START
// =============================================================================

// Start binds the shift to a car wash and sets started_at.
func (s *Service) Start(ctx context.Context, shiftID domain.ShiftID, carWashID domain.CarWashID) (domain.Shift, error) {
	now := s.now()
	var started domain.Shift
	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		sh, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if _, err := tx.GetCarWash(ctx, carWashID); err != nil {
			return err
		}

		switch {
		case sh.FinishedAt != nil:
			return fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftFinished)
		case sh.StartedAt != nil:
			return &domain.StaffHasActiveShiftError{StaffID: sh.StaffID, ActiveShiftID: sh.ID}
		case sh.RejectedAt != nil:
			return fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftRejected)
		case sh.ConfirmedAt == nil:
			return fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftNotConfirmed)
		}

		if !sh.IsTest && !calendar.IsValidShiftStartWindow(sh.Date, now, s.Location) {
			opensAt, closesAt := calendar.ShiftStartWindow(sh.Date, s.Location)
			return fmt.Errorf("shift %d dated %s: %w (window %s - %s)", shiftID, sh.Date,
				domain.ErrShiftStartOutsideWindow, opensAt.In(s.Location).Format("02.01 15:04"),
				closesAt.In(s.Location).Format("02.01 15:04"))
		}

		if err := ensureNoActiveShift(ctx, tx, sh.StaffID); err != nil {
			return err
		}

		if _, err := tx.UpdateShifts(ctx,
			domain.ShiftFilter{ID: &shiftID, Started: domain.Ptr(false)},
			domain.ShiftUpdate{StartedAt: &now, CarWashID: &carWashID},
		); err != nil {
			return fmt.Errorf("start shift %d: %w", shiftID, err)
		}
		started, err = tx.GetShift(ctx, shiftID)
		return err
	})
	if err != nil {
		return domain.Shift{}, err
	}

	metrics.IncShiftTransition("start")
	s.Logger.Info().
		Int64("shift_id", int64(shiftID)).
		Int64("staff_id", int64(started.StaffID)).
		Int64("car_wash_id", int64(carWashID)).
		Msg("shift started")
	return started, nil
}

// =============================================================================
// FINISH
// =============================================================================

type FinishResult struct {
	Shift        domain.Shift
	IsFirstShift bool
	CarWashes    []domain.CarWashSummary
}

// Finish closes a started shift.
//
// finished_at is only set when still null, so repeating the call keeps the
// first timestamp. The finish-photo set is always replaced by photoFileIDs.
// IsFirstShift is true when the staff member has no other finished shift,
// test shifts included.
func (s *Service) Finish(ctx context.Context, shiftID domain.ShiftID, photoFileIDs []string) (FinishResult, error) {
	var result FinishResult
	err := s.Store.WithTx(ctx, func(tx domain.Store) error {
		sh, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if sh.StartedAt == nil {
			return fmt.Errorf("shift %d: %w", shiftID, domain.ErrShiftNotStarted)
		}

		if _, err := tx.UpdateShifts(ctx,
			domain.ShiftFilter{ID: &shiftID, Finished: domain.Ptr(false)},
			domain.ShiftUpdate{FinishedAt: domain.Ptr(s.now())},
		); err != nil {
			return fmt.Errorf("finish shift %d: %w", shiftID, err)
		}

		if err := tx.DeleteFinishPhotos(ctx, shiftID); err != nil {
			return fmt.Errorf("delete finish photos: %w", err)
		}
		if len(photoFileIDs) > 0 {
			photos := make([]domain.ShiftFinishPhoto, len(photoFileIDs))
			for i, id := range photoFileIDs {
				photos[i] = domain.ShiftFinishPhoto{ShiftID: shiftID, FileID: id}
			}
			if err := tx.CreateFinishPhotos(ctx, photos); err != nil {
				return fmt.Errorf("create finish photos: %w", err)
			}
		}

		hasOtherFinished, err := tx.ShiftExists(ctx, domain.ShiftFilter{
			StaffID:   &sh.StaffID,
			Finished:  domain.Ptr(true),
			ExcludeID: &shiftID,
		})
		if err != nil {
			return fmt.Errorf("check previous shifts: %w", err)
		}

		result.Shift, err = tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		result.IsFirstShift = !hasOtherFinished
		result.CarWashes, err = summarize(ctx, tx, shiftID)
		return err
	})
	if err != nil {
		return FinishResult{}, err
	}

	metrics.IncShiftTransition("finish")
	s.Logger.Info().
		Int64("shift_id", int64(shiftID)).
		Bool("first_shift", result.IsFirstShift).
		Int("car_washes", len(result.CarWashes)).
		Msg("shift finished")

	s.notifyFinished(ctx, result)
	return result, nil
}

func (s *Service) notifyFinished(ctx context.Context, result FinishResult) {
	staff, err := s.Store.GetStaff(ctx, result.Shift.StaffID)
	if err != nil {
		s.Logger.Warn().Err(err).Int64("staff_id", int64(result.Shift.StaffID)).Msg("skip finish notification")
		return
	}
	if result.IsFirstShift {
		s.Notifier.Send(ctx, staff.TelegramChatID, notify.FirstShiftMessage(staff))
	}
	if !s.Notifier.Send(ctx, staff.TelegramChatID, notify.ShiftFinishedMessage(staff, result.Shift.Date, result.CarWashes)) {
		s.Logger.Debug().Int64("shift_id", int64(result.Shift.ID)).Msg("finish report not delivered")
	}
}

// =============================================================================
// REJECT
// =============================================================================

// Reject sets rejected_at on a shift that has not been started. Repeating
// the call overwrites the timestamp. It reports whether a shift was updated;
// false means there is no such not-started shift.
func (s *Service) Reject(ctx context.Context, shiftID domain.ShiftID) (bool, error) {
	n, err := s.Store.UpdateShifts(ctx,
		domain.ShiftFilter{ID: &shiftID, Started: domain.Ptr(false)},
		domain.ShiftUpdate{RejectedAt: domain.Ptr(s.now())},
	)
	if err != nil {
		return false, fmt.Errorf("reject shift %d: %w", shiftID, err)
	}
	if n > 0 {
		metrics.IncShiftTransition("reject")
	}
	return n > 0, nil
}
