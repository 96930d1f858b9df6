package date

import "fmt"

// Range is a closed date interval [Start, End]. A Range with End before
// Start, or with a zero bound, is empty.
type Range struct {
	Start Date
	End   Date
}

// NewRange returns the closed range [start, end].
func NewRange(start, end Date) Range {
	return Range{Start: start, End: end}
}

// IsEmpty reports whether the range contains no days.
func (r Range) IsEmpty() bool {
	return r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start)
}

// Days returns the number of days in the range, counting both bounds.
func (r Range) Days() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

// Contains reports whether d falls within the range.
func (r Range) Contains(d Date) bool {
	return !r.IsEmpty() && !d.Before(r.Start) && !d.After(r.End)
}

// Intersect returns the overlap of r and other, which is empty when the
// ranges don't touch.
func (r Range) Intersect(other Range) Range {
	if r.IsEmpty() || other.IsEmpty() {
		return Range{}
	}
	start := Max(r.Start, other.Start)
	end := Min(r.End, other.End)
	if end.Before(start) {
		return Range{}
	}
	return Range{Start: start, End: end}
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}
