package model

import (
	"fmt"
	"time"
)

// Minutes is a civil clock time expressed as minutes since midnight.
// The clinic runs on a single local time with no zone attached, so
// clock arithmetic and comparisons are plain integer operations.
type Minutes int

const MinutesPerDay = 24 * 60

// ParseClock parses "15:04" into Minutes. "24:00" is accepted as the
// end-of-day boundary so a work window may close at midnight.
func ParseClock(s string) (Minutes, error) {
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	return Minutes(t.Hour()*60 + t.Minute()), nil
}

func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m Minutes) InDay() bool {
	return m >= 0 && m <= MinutesPerDay
}

// ParseDate parses "2006-01-02" into a civil date, represented as a
// zone-less instant at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

func DateString(d time.Time) string {
	return d.Format("2006-01-02")
}

// Weekday returns the day of week for a civil date, 0=Sunday..6=Saturday.
func Weekday(d time.Time) int {
	return int(d.Weekday())
}

// Midnight truncates an instant to its civil date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
