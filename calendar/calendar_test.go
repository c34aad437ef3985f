package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/domain"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	return time.FixedZone("MSK", 3*60*60)
}

// =============================================================================
// SHIFT DATE ROLLOVER
// =============================================================================

func TestCurrentShiftDate_HourBoundaries(t *testing.T) {
	loc := moscow(t)
	today := domain.NewDate(2025, time.March, 10)
	yesterday := domain.NewDate(2025, time.March, 9)

	cases := []struct {
		hour, minute int
		want         domain.Date
	}{
		{0, 0, yesterday},
		{9, 0, yesterday},
		{19, 59, yesterday},
		{20, 0, yesterday},
		{20, 59, yesterday},
		{21, 0, today},
		{23, 59, today},
	}

	for _, tc := range cases {
		now := time.Date(2025, time.March, 10, tc.hour, tc.minute, 0, 0, loc)
		assert.Equal(t, tc.want, calendar.CurrentShiftDate(now, loc), "at %02d:%02d", tc.hour, tc.minute)
	}
}

func TestCurrentShiftDate_UsesLocalHourNotUTC(t *testing.T) {
	// GIVEN: 18:30 UTC, which is 21:30 in Moscow
	// THEN: the shift date is today in Moscow, yesterday in UTC
	loc := moscow(t)
	now := time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, domain.NewDate(2025, time.March, 10), calendar.CurrentShiftDate(now, loc))
	assert.Equal(t, domain.NewDate(2025, time.March, 9), calendar.CurrentShiftDate(now, time.UTC))
}

func TestCurrentShiftDate_RollsOverMonthAndYear(t *testing.T) {
	now := time.Date(2025, time.January, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.NewDate(2024, time.December, 31), calendar.CurrentShiftDate(now, time.UTC))
}

// =============================================================================
// START WINDOW
// =============================================================================

func TestIsValidShiftStartWindow_InclusiveBounds(t *testing.T) {
	loc := moscow(t)
	shiftDate := domain.NewDate(2025, time.March, 10)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"one minute before open", time.Date(2025, 3, 10, 18, 29, 0, 0, loc), false},
		{"exactly open", time.Date(2025, 3, 10, 18, 30, 0, 0, loc), true},
		{"midnight", time.Date(2025, 3, 11, 0, 0, 0, 0, loc), true},
		{"exactly close", time.Date(2025, 3, 11, 9, 0, 0, 0, loc), true},
		{"one second after close", time.Date(2025, 3, 11, 9, 0, 1, 0, loc), false},
		{"next evening", time.Date(2025, 3, 11, 19, 0, 0, 0, loc), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calendar.IsValidShiftStartWindow(shiftDate, tc.at, loc))
		})
	}
}

func TestShiftStartWindow_ReturnsUTC(t *testing.T) {
	loc := moscow(t)
	opensAt, closesAt := calendar.ShiftStartWindow(domain.NewDate(2025, time.March, 10), loc)

	assert.Equal(t, time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), opensAt)
	assert.Equal(t, time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), closesAt)
}

func TestLoadLocation_EmptyIsUTC(t *testing.T) {
	loc, err := calendar.LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	clock := &calendar.FixedClock{At: start}
	clock.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), clock.Now())
}
