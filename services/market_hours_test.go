package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Nepal has no DST, so a fixed offset keeps the tests hermetic
var kathmandu = time.FixedZone("NPT", 5*3600+45*60)

func TestScheduleWindowBoundaries(t *testing.T) {
	window, err := MarketHoursWindow(11*60, 15*60, kathmandu)
	require.NoError(t, err)

	// 2024-06-09 is a Sunday, a NEPSE trading day
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2024, 6, 9, 10, 59, 59, 0, kathmandu), false},
		{"open is inclusive", time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu), true},
		{"mid session", time.Date(2024, 6, 9, 13, 30, 0, 0, kathmandu), true},
		{"last minute", time.Date(2024, 6, 9, 14, 59, 0, 0, kathmandu), true},
		{"close is exclusive", time.Date(2024, 6, 9, 15, 0, 0, 0, kathmandu), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, window.Allows(tc.at))
		})
	}
}

func TestScheduleWindowWeekdays(t *testing.T) {
	window, err := MarketHoursWindow(11*60, 15*60, kathmandu)
	require.NoError(t, err)

	// Sunday 2024-06-09 through Saturday 2024-06-15, all at noon
	for day := 0; day < 7; day++ {
		at := time.Date(2024, 6, 9+day, 12, 0, 0, 0, kathmandu)
		open := at.Weekday() != time.Friday && at.Weekday() != time.Saturday
		assert.Equal(t, open, window.Allows(at), "weekday %s", at.Weekday())
	}
}

func TestScheduleWindowEvaluatesInItsOwnTimezone(t *testing.T) {
	window, err := MarketHoursWindow(11*60, 15*60, kathmandu)
	require.NoError(t, err)

	// 06:30 UTC on a Sunday is 12:15 in Kathmandu, inside the session
	assert.True(t, window.Allows(time.Date(2024, 6, 9, 6, 30, 0, 0, time.UTC)))

	// 10:00 UTC is 15:45 in Kathmandu, after close
	assert.False(t, window.Allows(time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC)))
}

func TestBusinessDayWindowAllowsAnyHour(t *testing.T) {
	window, err := BusinessDayWindow(kathmandu)
	require.NoError(t, err)

	assert.True(t, window.Allows(time.Date(2024, 6, 9, 0, 0, 0, 0, kathmandu)))
	assert.True(t, window.Allows(time.Date(2024, 6, 9, 23, 59, 0, 0, kathmandu)))
	assert.False(t, window.Allows(time.Date(2024, 6, 14, 12, 0, 0, 0, kathmandu))) // Friday
}

func TestNewScheduleWindowRejectsInvertedRange(t *testing.T) {
	_, err := NewScheduleWindow(BusinessDays, 15*60, 11*60, kathmandu)
	assert.Error(t, err)
}
