package tracker

import "time"

// ServiceDate maps a wall-clock timestamp to its operating date. Times in
// the early morning hours belong to the previous calendar day's service,
// so post-midnight trains stay attached to their timetable day.
func ServiceDate(t time.Time) time.Time {
	if t.Hour() <= 5 {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
