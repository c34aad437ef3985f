/*
Package calendar maps wall-clock instants to shift dates.

A shift starts in the evening (around 22:00) and runs past midnight, so the
operational day belongs to the evening it started in. Two constants govern
this and they are intentionally kept separate:

  - ShiftDateCutoffHour (20): up to and including 20:xx local time the
    current shift date is yesterday, from 21:00 it is today.
  - The start window: a shift dated D may be started from D 18:30 until
    D+1 09:00, both bounds inclusive.
*/
package calendar

import (
	"time"

	"github.com/warp/carwash-backoffice/domain"
)

const (
	// ShiftDateCutoffHour is the last local hour that still belongs to the
	// previous shift date.
	ShiftDateCutoffHour = 20

	ShiftStartWindowOpenHour    = 18
	ShiftStartWindowOpenMinute  = 30
	ShiftStartWindowCloseHour   = 9
	ShiftStartWindowCloseMinute = 0
)

// CurrentShiftDate returns the canonical shift date for now observed in loc.
func CurrentShiftDate(now time.Time, loc *time.Location) domain.Date {
	local := now.In(loc)
	today := domain.DateOf(local)
	if local.Hour() <= ShiftDateCutoffHour {
		return today.AddDays(-1)
	}
	return today
}

// ShiftStartWindow returns the [open, close] instants during which a shift
// dated shiftDate may be started.
func ShiftStartWindow(shiftDate domain.Date, loc *time.Location) (time.Time, time.Time) {
	opensAt := shiftDate.At(ShiftStartWindowOpenHour, ShiftStartWindowOpenMinute, loc)
	closesAt := shiftDate.AddDays(1).At(ShiftStartWindowCloseHour, ShiftStartWindowCloseMinute, loc)
	return opensAt.UTC(), closesAt.UTC()
}

// IsValidShiftStartWindow reports whether now falls inside the start window
// of shiftDate. Both bounds are inclusive.
func IsValidShiftStartWindow(shiftDate domain.Date, now time.Time, loc *time.Location) bool {
	opensAt, closesAt := ShiftStartWindow(shiftDate, loc)
	at := now.UTC()
	return !at.Before(opensAt) && !at.After(closesAt)
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock is the only source of "now" for the rule packages.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns At. Tests move it by assigning At or calling Advance.
type FixedClock struct {
	At time.Time
}

func (c *FixedClock) Now() time.Time { return c.At }

func (c *FixedClock) Advance(d time.Duration) { c.At = c.At.Add(d) }

// LoadLocation resolves a timezone name, falling back to UTC for "".
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
