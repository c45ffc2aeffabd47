package shift

import (
	"fmt"
	"time"
)

// Date is a pure calendar date, unaffected by time-of-day or zone once built.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from an instant (in the instant's zone).
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate reads an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ISO renders the date as 2006-01-02.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// midnight anchors the date at UTC midnight for day arithmetic.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n calendar days later (n may be negative).
func AddDays(d Date, n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

// DaysBetweenInclusive counts whole days from start to end with both
// endpoints included, so DaysBetweenInclusive(d, d) == 1.
func DaysBetweenInclusive(start, end Date) int {
	diff := int(end.midnight().Sub(start.midnight()).Hours() / 24)
	return diff + 1
}

// EndOfWeek returns the next Sunday, or d itself when d is a Sunday.
func EndOfWeek(d Date) Date {
	wd := int(d.midnight().Weekday())
	return AddDays(d, (7-wd)%7)
}
