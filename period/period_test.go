package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/period"
)

func mustPeriod(t *testing.T, year int, month time.Month, number int) period.ReportPeriod {
	t.Helper()
	p, err := period.FromNumber(year, month, number)
	require.NoError(t, err)
	return p
}

// =============================================================================
// BOUNDS
// =============================================================================

func TestFromNumber_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		year    int
		month   time.Month
		lastDay int
	}{
		{"leap february", 2024, time.February, 29},
		{"non-leap february", 2025, time.February, 28},
		{"30-day month", 2025, time.April, 30},
		{"31-day month", 2025, time.January, 31},
		{"december", 2025, time.December, 31},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := mustPeriod(t, tc.year, tc.month, 1)
			second := mustPeriod(t, tc.year, tc.month, 2)

			assert.Equal(t, domain.NewDate(tc.year, tc.month, 1), first.From())
			assert.Equal(t, 15, first.To().Day())
			assert.Equal(t, 16, second.From().Day())
			assert.Equal(t, tc.lastDay, second.To().Day())
			assert.Equal(t, tc.month, second.To().Month())
		})
	}
}

func TestFromNumber_InvalidNumber(t *testing.T) {
	for _, n := range []int{0, 3, -1} {
		_, err := period.FromNumber(2025, time.March, n)
		assert.ErrorIs(t, err, domain.ErrInvalidReportPeriodNumber)
		assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	}
}

func TestPeriods_AreContiguous(t *testing.T) {
	// GIVEN: every period of 2024
	// THEN: each period starts the day after the previous one ends
	p := mustPeriod(t, 2024, time.January, 1)
	for i := 0; i < 24; i++ {
		next := p.Next()
		assert.Equal(t, p.To().AddDays(1), next.From(), "after %s", p)
		p = next
	}
	assert.Equal(t, mustPeriod(t, 2025, time.January, 1), p)
}

// =============================================================================
// OF DATE
// =============================================================================

func TestOfDate_SplitRule(t *testing.T) {
	assert.Equal(t, 1, period.OfDate(domain.NewDate(2025, time.March, 1)).Number)
	assert.Equal(t, 1, period.OfDate(domain.NewDate(2025, time.March, 15)).Number)
	assert.Equal(t, 2, period.OfDate(domain.NewDate(2025, time.March, 16)).Number)
	assert.Equal(t, 2, period.OfDate(domain.NewDate(2025, time.March, 31)).Number)
}

func TestOfDate_ContainsItsDate(t *testing.T) {
	d := domain.NewDate(2024, time.January, 1)
	for i := 0; i < 400; i++ {
		p := period.OfDate(d)
		assert.True(t, p.Contains(d), "%s not in %s", d, p)
		d = d.AddDays(1)
	}
}

func TestOfDates_DeduplicatesAndSorts(t *testing.T) {
	dates := []domain.Date{
		domain.NewDate(2025, time.March, 20),
		domain.NewDate(2025, time.January, 3),
		domain.NewDate(2025, time.March, 17),
		domain.NewDate(2025, time.January, 15),
		domain.NewDate(2025, time.March, 2),
	}

	periods := period.OfDates(dates)

	assert.Equal(t, []period.ReportPeriod{
		mustPeriod(t, 2025, time.January, 1),
		mustPeriod(t, 2025, time.March, 1),
		mustPeriod(t, 2025, time.March, 2),
	}, periods)
}

func TestOfDates_Empty(t *testing.T) {
	assert.Empty(t, period.OfDates(nil))
}

// =============================================================================
// ORDER / ITERATION
// =============================================================================

func TestNext_TwiceIsNextMonth(t *testing.T) {
	p := mustPeriod(t, 2025, time.May, 1)
	assert.Equal(t, mustPeriod(t, 2025, time.June, 1), p.Next().Next())
}

func TestNext_DecemberRollsOverYear(t *testing.T) {
	p := mustPeriod(t, 2025, time.December, 1)
	assert.Equal(t, mustPeriod(t, 2026, time.January, 1), p.Next().Next())
}

func TestPrevious_IsInverseOfNext(t *testing.T) {
	p := mustPeriod(t, 2025, time.January, 1)
	assert.Equal(t, mustPeriod(t, 2024, time.December, 2), p.Previous())
	for i := 0; i < 30; i++ {
		assert.Equal(t, p, p.Next().Previous())
		p = p.Next()
	}
}

func TestCompare_ByFromDate(t *testing.T) {
	a := mustPeriod(t, 2025, time.March, 2)
	b := mustPeriod(t, 2025, time.April, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(mustPeriod(t, 2025, time.March, 2)))
	assert.Equal(t, a, mustPeriod(t, 2025, time.March, 2))
}

func TestString_RoundTrip(t *testing.T) {
	p := mustPeriod(t, 2025, time.March, 2)
	assert.Equal(t, "2025-03/2", p.String())

	parsed, err := period.Parse("2025-03/2")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = period.Parse("2025-03/5")
	assert.ErrorIs(t, err, domain.ErrInvalidReportPeriodNumber)
}

func TestParse_RejectsNonCanonicalInput(t *testing.T) {
	for _, s := range []string{"2025-03/1abc", "2025-3/1", "2025-03/1 ", "2025/03/1", ""} {
		t.Run(s, func(t *testing.T) {
			_, err := period.Parse(s)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRange(t *testing.T) {
	first := mustPeriod(t, 2025, time.January, 2)
	last := mustPeriod(t, 2025, time.March, 1)

	r := period.Range(first, last)

	require.Len(t, r, 4)
	assert.Equal(t, first, r[0])
	assert.Equal(t, last, r[3])
	assert.Equal(t, 16, first.Days())
}
