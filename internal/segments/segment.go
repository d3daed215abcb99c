// Package segments implements half-open time intervals and coalescing
// interval-list algebra over an exact GPS time type.
package segments

import "fmt"

// Segment is an immutable half-open interval [start, end). The constructor
// orders the endpoints, so start <= end always holds.
type Segment struct {
	start Time
	end   Time
}

// NewSegment creates a segment from two endpoints, swapping them if given
// in reverse order.
func NewSegment(start, end Time) Segment {
	if start > end {
		start, end = end, start
	}
	return Segment{start: start, end: end}
}

// Span creates a segment from float64 second values. Convenience for
// fixtures and interchange boundaries; exact callers should use NewSegment.
func Span(start, end float64) Segment {
	return NewSegment(FromSeconds(start), FromSeconds(end))
}

// Start returns the inclusive lower bound.
func (s Segment) Start() Time { return s.start }

// End returns the exclusive upper bound.
func (s Segment) End() Time { return s.end }

// Length returns end - start.
func (s Segment) Length() Time { return s.end - s.start }

// String renders the segment as "[start ... end)".
func (s Segment) String() string {
	return fmt.Sprintf("[%s ... %s)", s.start, s.end)
}

// GoString renders the segment as "Segment(start, end)".
func (s Segment) GoString() string {
	return fmt.Sprintf("Segment(%s, %s)", s.start, s.end)
}

// Cmp compares lexicographically on (start, end).
func (s Segment) Cmp(o Segment) int {
	switch {
	case s.start < o.start:
		return -1
	case s.start > o.start:
		return 1
	case s.end < o.end:
		return -1
	case s.end > o.end:
		return 1
	}
	return 0
}

// Contains reports whether t lies within [start, end).
func (s Segment) Contains(t Time) bool {
	return s.start <= t && t < s.end
}

// Intersects reports whether the overlap with o has positive length.
func (s Segment) Intersects(o Segment) bool {
	return maxTime(s.start, o.start) < minTime(s.end, o.end)
}

// Intersection returns the overlap [max(starts), min(ends)), reporting
// false when the overlap is empty.
func (s Segment) Intersection(o Segment) (Segment, bool) {
	lo := maxTime(s.start, o.start)
	hi := minTime(s.end, o.end)
	if lo >= hi {
		return Segment{}, false
	}
	return Segment{start: lo, end: hi}, true
}

func minTime(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

func maxTime(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}
