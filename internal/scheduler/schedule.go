package scheduler

import "time"

// NextWeekly returns the next occurrence of weekday at hour:minute strictly
// after now, in now's location. When now already sits past this week's slot
// the fire time moves a full week ahead.
func NextWeekly(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	daysAhead := (int(weekday) - int(target.Weekday()) + 7) % 7
	if daysAhead == 0 && !target.After(now) {
		daysAhead = 7
	}
	return target.AddDate(0, 0, daysAhead)
}

// NextHourBoundary returns the next whole hour after now, in now's location.
func NextHourBoundary(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
}
