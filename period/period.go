/*
Package period implements report periods: every calendar month is split into
exactly two contiguous, non-overlapping halves.

  Number 1: day 1 - day 15
  Number 2: day 16 - last day of the month

Penalties, surcharges, bonuses and revenue are aggregated per report period.
Periods are totally ordered by their first day.

EXAMPLE:
  p := period.OfDate(domain.NewDate(2025, time.February, 20)) // 2025-02/2
  p.From()  // 2025-02-16
  p.To()    // 2025-02-28
  p.Next()  // 2025-03/1
*/
package period

import (
	"fmt"
	"sort"
	"time"

	"github.com/warp/carwash-backoffice/domain"
)

// =============================================================================
// REPORT PERIOD
// =============================================================================

// SplitDay is the last day of the first half of a month.
const SplitDay = 15

// ReportPeriod is a comparable value; two periods are equal iff year, month
// and number match.
type ReportPeriod struct {
	Year   int
	Month  time.Month
	Number int
}

// FromNumber builds the period of year/month with the given half number.
func FromNumber(year int, month time.Month, number int) (ReportPeriod, error) {
	if number != 1 && number != 2 {
		return ReportPeriod{}, fmt.Errorf("%w: %d", domain.ErrInvalidReportPeriodNumber, number)
	}
	if month < time.January || month > time.December {
		return ReportPeriod{}, fmt.Errorf("%w: month %d", domain.ErrInvalidInput, month)
	}
	return ReportPeriod{Year: year, Month: month, Number: number}, nil
}

// OfDate returns the period containing date.
func OfDate(date domain.Date) ReportPeriod {
	number := 1
	if date.Day() > SplitDay {
		number = 2
	}
	return ReportPeriod{Year: date.Year(), Month: date.Month(), Number: number}
}

// OfDates maps each date to its period, deduplicated and sorted.
func OfDates(dates []domain.Date) []ReportPeriod {
	seen := make(map[ReportPeriod]bool)
	var result []ReportPeriod
	for _, d := range dates {
		p := OfDate(d)
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result
}

// From returns the first day of the period.
func (p ReportPeriod) From() domain.Date {
	if p.Number == 1 {
		return domain.NewDate(p.Year, p.Month, 1)
	}
	return domain.NewDate(p.Year, p.Month, SplitDay+1)
}

// To returns the last day of the period.
func (p ReportPeriod) To() domain.Date {
	if p.Number == 1 {
		return domain.NewDate(p.Year, p.Month, SplitDay)
	}
	return domain.EndOfMonth(p.Year, p.Month)
}

// Contains returns true if date is within [From, To].
func (p ReportPeriod) Contains(date domain.Date) bool {
	return date.AfterOrEqual(p.From()) && date.BeforeOrEqual(p.To())
}

// Days returns the number of days in the period.
func (p ReportPeriod) Days() int {
	return domain.DaysBetween(p.From(), p.To()) + 1
}

// Next returns the period following this one.
func (p ReportPeriod) Next() ReportPeriod {
	if p.Number == 1 {
		return ReportPeriod{Year: p.Year, Month: p.Month, Number: 2}
	}
	next := p.From().AddMonths(1)
	return ReportPeriod{Year: next.Year(), Month: next.Month(), Number: 1}
}

// Previous returns the period before this one.
func (p ReportPeriod) Previous() ReportPeriod {
	if p.Number == 2 {
		return ReportPeriod{Year: p.Year, Month: p.Month, Number: 1}
	}
	prev := p.From().AddMonths(-1)
	return ReportPeriod{Year: prev.Year(), Month: prev.Month(), Number: 2}
}

// Compare orders periods by their first day: -1, 0 or +1.
func (p ReportPeriod) Compare(other ReportPeriod) int {
	a, b := p.From(), other.From()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (p ReportPeriod) Before(other ReportPeriod) bool { return p.Compare(other) < 0 }
func (p ReportPeriod) After(other ReportPeriod) bool { return p.Compare(other) > 0 }

// String renders the period as "2025-03/1".
func (p ReportPeriod) String() string {
	return fmt.Sprintf("%04d-%02d/%d", p.Year, int(p.Month), p.Number)
}

// Parse is the inverse of String. Only the canonical form is accepted.
func Parse(s string) (ReportPeriod, error) {
	var year, month, number int
	if _, err := fmt.Sscanf(s, "%d-%d/%d", &year, &month, &number); err != nil {
		return ReportPeriod{}, fmt.Errorf("%w: report period %q", domain.ErrInvalidInput, s)
	}
	p, err := FromNumber(year, time.Month(month), number)
	if err != nil {
		return ReportPeriod{}, err
	}
	if p.String() != s {
		return ReportPeriod{}, fmt.Errorf("%w: report period %q", domain.ErrInvalidInput, s)
	}
	return p, nil
}

// Range returns every period from first to last inclusive.
func Range(first, last ReportPeriod) []ReportPeriod {
	var result []ReportPeriod
	for p := first; !p.After(last); p = p.Next() {
		result = append(result, p)
	}
	return result
}
