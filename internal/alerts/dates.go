package alerts

import "time"

const day = 24 * time.Hour

// DaysSince returns the number of whole days between epoch and the calendar
// date of t, both taken in UTC.
func DaysSince(epoch, t time.Time) int {
	d := truncateDay(t)
	return int(d.Sub(truncateDay(epoch)) / day)
}

// DateFor converts a day count back into a calendar date.
func DateFor(epoch time.Time, days int) time.Time {
	return truncateDay(epoch).AddDate(0, 0, days)
}

// DateInt encodes a date as a yyyymmdd integer, the form used by the
// tabular exports.
func DateInt(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	t = t.UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
