package services

import (
	"fmt"
	"time"
)

// ScheduleWindow restricts a scheduled job to certain weekdays and a
// time-of-day range in the market's timezone.
type ScheduleWindow struct {
	Days        map[time.Weekday]bool
	StartMinute int // minutes since midnight, inclusive
	EndMinute   int // minutes since midnight, exclusive
	Location    *time.Location
}

// NewScheduleWindow builds a window. startMinute must not exceed endMinute.
func NewScheduleWindow(days []time.Weekday, startMinute, endMinute int, loc *time.Location) (*ScheduleWindow, error) {
	if startMinute > endMinute {
		return nil, fmt.Errorf("invalid window: start %d after end %d", startMinute, endMinute)
	}
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return &ScheduleWindow{
		Days:        set,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Location:    loc,
	}, nil
}

// Allows reports whether t falls on an allowed weekday and inside the
// [start, end) minute range, evaluated in the window's timezone.
func (w *ScheduleWindow) Allows(t time.Time) bool {
	local := t.In(w.Location)
	if !w.Days[local.Weekday()] {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= w.StartMinute && minute < w.EndMinute
}

// BusinessDays is the NEPSE trading week (Sunday through Thursday)
var BusinessDays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
}

// MarketHoursWindow builds the trading-hours window used to gate
// market-dependent jobs.
func MarketHoursWindow(openMinute, closeMinute int, loc *time.Location) (*ScheduleWindow, error) {
	return NewScheduleWindow(BusinessDays, openMinute, closeMinute, loc)
}

// BusinessDayWindow allows any time of day on a trading day
func BusinessDayWindow(loc *time.Location) (*ScheduleWindow, error) {
	return NewScheduleWindow(BusinessDays, 0, 24*60, loc)
}
