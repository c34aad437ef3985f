package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (shift dates, report period bounds)
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day. The underlying time is
// always midnight UTC so two Dates for the same day compare equal with ==.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q (use YYYY-MM-DD)", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time.AddDate(0, n, 0)) }

// Properties
func (d Date) Year() int { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format(DateLayout) }

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (d Date) IsWeekend() bool { return d.ISOWeekday() >= 6 }

// At returns the wall-clock instant hour:minute of this day in loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

// EndOfMonth returns the last calendar day of the month.
func EndOfMonth(year int, month time.Month) Date {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
