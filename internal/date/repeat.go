package date

import (
	"fmt"
	"time"
)

// RepeatType is the unit a schedule or budget steps by.
type RepeatType int

const (
	RepeatDaily RepeatType = iota
	RepeatWeekly
	RepeatMonthly
	RepeatYearly
	// RepeatWeekday anchors to the week number and day of week of the start
	// date ("2nd Friday of the month").
	RepeatWeekday
	// RepeatWeekdayLast anchors to the last day of week of the month
	// ("last Friday of the month").
	RepeatWeekdayLast
)

var repeatTypeNames = map[RepeatType]string{
	RepeatDaily:       "daily",
	RepeatWeekly:      "weekly",
	RepeatMonthly:     "monthly",
	RepeatYearly:      "yearly",
	RepeatWeekday:     "weekday",
	RepeatWeekdayLast: "weekday_last",
}

func (rt RepeatType) String() string {
	if name, ok := repeatTypeNames[rt]; ok {
		return name
	}
	return fmt.Sprintf("RepeatType(%d)", int(rt))
}

// IsValid reports whether rt is a known repeat type.
func (rt RepeatType) IsValid() bool {
	_, ok := repeatTypeNames[rt]
	return ok
}

// ParseRepeatType parses the serialized form produced by String.
func ParseRepeatType(s string) (RepeatType, error) {
	for rt, name := range repeatTypeNames {
		if name == s {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("unknown repeat type %q", s)
}

// Inc increments d by count units of rt. count may be negative.
//
// Monthly and yearly steps clamp the day of month to the length of the
// target month (Jan 31 + 1 month = Feb 28/29). Weekday steps can land on a
// week number that doesn't exist in the target month (a 5th Friday); in
// that case ok is false and the caller is expected to skip the slot.
func Inc(d Date, rt RepeatType, count int) (Date, bool) {
	switch rt {
	case RepeatDaily:
		return d.AddDays(count), true
	case RepeatWeekly:
		return d.AddDays(count * 7), true
	case RepeatMonthly:
		return incMonths(d, count), true
	case RepeatYearly:
		return incMonths(d, count*12), true
	case RepeatWeekday:
		return incWeekday(d, count)
	case RepeatWeekdayLast:
		return incWeekdayLast(d, count), true
	default:
		return d, false
	}
}

func lastDayOfMonth(year int, month time.Month) int {
	// day 0 of the next month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func incMonths(d Date, count int) Date {
	year, month, day := d.Date()
	// first of the target month, then clamp the day
	first := time.Date(year, month+time.Month(count), 1, 0, 0, 0, 0, time.UTC)
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return New(first.Year(), first.Month(), day)
}

func incWeekday(d Date, count int) (Date, bool) {
	weekday := d.Weekday()
	weekno := (d.Day() - 1) / 7
	year, month, _ := d.Date()
	first := time.Date(year, month+time.Month(count), 1, 0, 0, 0, 0, time.UTC)
	diff := int(weekday) - int(first.Weekday())
	if diff < 0 {
		diff += 7
	}
	day := weekno*7 + diff + 1
	if day > lastDayOfMonth(first.Year(), first.Month()) {
		return Date{}, false
	}
	return New(first.Year(), first.Month(), day), true
}

func incWeekdayLast(d Date, count int) Date {
	weekday := d.Weekday()
	year, month, _ := d.Date()
	last := time.Date(year, month+time.Month(count)+1, 0, 0, 0, 0, 0, time.UTC)
	diff := int(last.Weekday()) - int(weekday)
	if diff < 0 {
		diff += 7
	}
	return New(last.Year(), last.Month(), last.Day()-diff)
}
