package date

// Counter generates the date sequence start, start+every, start+2*every...
// in units of a repeat type, terminating strictly before an end date.
//
// Steps are always taken from the start date, not from the previously
// yielded date, so a monthly schedule anchored on the 31st yields
// Jan 31, Feb 28, Mar 31 rather than drifting to the 28th for good.
type Counter struct {
	start      Date
	repeatType RepeatType
	every      int
	end        Date
	n          int
}

// NewCounter returns a counter from start, stepping by every units of rt,
// yielding dates strictly before end. every must be >= 1.
func NewCounter(start Date, rt RepeatType, every int, end Date) *Counter {
	if every < 1 {
		panic("date: counter step must be >= 1")
	}
	return &Counter{start: start, repeatType: rt, every: every, end: end}
}

// Next returns the next date in the sequence, or ok=false when the
// sequence is exhausted.
func (c *Counter) Next() (Date, bool) {
	for {
		d, ok := Inc(c.start, c.repeatType, c.every*c.n)
		c.n++
		if !ok {
			// slot doesn't exist in that month (5th weekday); the sequence
			// isn't over, the occurrence is just skipped
			if exhausted, _ := Inc(c.start, RepeatMonthly, c.every*(c.n-1)); !exhausted.Before(c.end) {
				return Date{}, false
			}
			continue
		}
		if !d.Before(c.end) {
			return Date{}, false
		}
		return d, true
	}
}
