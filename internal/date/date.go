// Package date provides civil-date values, closed date ranges and the
// periodic date generator that drives schedule and budget spawning.
//
// A Date is always a UTC midnight instant, which makes it safe to use as a
// map key and to compare with ==.
package date

import (
	"fmt"
	"time"
)

// ISO is the wire format used everywhere a date is serialized.
const ISO = "2006-01-02"

// Date is a calendar day with no time-of-day component.
type Date struct {
	time.Time
}

// New returns the date for the given year, month and day. Out-of-range
// values are normalized the way time.Date normalizes them.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day.
func FromTime(t time.Time) Date {
	t = t.UTC()
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return FromTime(time.Now())
}

// Parse parses an ISO formatted (YYYY-MM-DD) date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(ISO, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other. Negative when
// other is before d.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// Min returns the earlier of d and other, ignoring zero values.
func Min(d, other Date) Date {
	if d.IsZero() {
		return other
	}
	if other.IsZero() || d.Before(other) {
		return d
	}
	return other
}

// Max returns the later of d and other.
func Max(d, other Date) Date {
	if d.Before(other) {
		return other
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(ISO)
}
