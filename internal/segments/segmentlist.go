package segments

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrEmptyList is returned when an extent is requested of an empty list.
var ErrEmptyList = errors.New("empty segment list has no extent")

// List is an ordered collection of Segments. Lists may hold overlapping or
// unsorted entries; Coalesce normalizes to the canonical disjoint form, and
// the binary operators always return coalesced results.
type List []Segment

// FromPairs converts raw (start, end) second pairs into a List. This is the
// conversion point wherever untyped pairs enter the model.
func FromPairs(pairs [][2]float64) List {
	l := make(List, 0, len(pairs))
	for _, p := range pairs {
		l = append(l, Span(p[0], p[1]))
	}
	return l
}

// Pairs converts the list back to float64 second pairs.
func (l List) Pairs() [][2]float64 {
	pairs := make([][2]float64, 0, len(l))
	for _, s := range l {
		pairs = append(pairs, [2]float64{s.start.Seconds(), s.end.Seconds()})
	}
	return pairs
}

// Copy returns a deep copy of the list.
func (l List) Copy() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Coalesce sorts the list and merges overlapping or touching segments in
// place, producing the minimal disjoint cover. Zero-length segments are
// dropped. Returns the receiver so in-place chains keep their identity.
func (l *List) Coalesce() *List {
	segs := *l
	sort.Slice(segs, func(i, j int) bool { return segs[i].Cmp(segs[j]) < 0 })

	out := segs[:0]
	for _, s := range segs {
		if s.Length() == 0 {
			continue
		}
		if n := len(out); n > 0 && s.start <= out[n-1].end {
			if s.end > out[n-1].end {
				out[n-1].end = s.end
			}
			continue
		}
		out = append(out, s)
	}

	*l = out
	return l
}

// Union returns the coalesced union of both lists. Neither operand is
// modified.
func (l List) Union(o List) List {
	out := make(List, 0, len(l)+len(o))
	out = append(out, l...)
	out = append(out, o...)
	out.Coalesce()
	return out
}

// Intersect returns the coalesced intersection of both lists.
func (l List) Intersect(o List) List {
	a := l.Copy()
	a.Coalesce()
	b := o.Copy()
	b.Coalesce()

	var out List
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if seg, ok := a[i].Intersection(b[j]); ok {
			out = append(out, seg)
		}
		if a[i].end < b[j].end {
			i++
		} else {
			j++
		}
	}
	return out
}

// Sub returns the coalesced difference l minus o. A subtrahend falling
// strictly inside a segment splits it in two.
func (l List) Sub(o List) List {
	a := l.Copy()
	a.Coalesce()
	b := o.Copy()
	b.Coalesce()

	var out List
	for _, seg := range a {
		lo := seg.start
		for _, cut := range b {
			if cut.end <= lo {
				continue
			}
			if cut.start >= seg.end {
				break
			}
			if cut.start > lo {
				out = append(out, Segment{start: lo, end: cut.start})
			}
			if cut.end > lo {
				lo = cut.end
			}
			if lo >= seg.end {
				break
			}
		}
		if lo < seg.end {
			out = append(out, Segment{start: lo, end: seg.end})
		}
	}
	return out
}

// Measure returns the total length of all entries.
func (l List) Measure() Time {
	var total Time
	for _, s := range l {
		total += s.Length()
	}
	return total
}

// Extent returns the single segment spanning the whole list. Fails on an
// empty list.
func (l List) Extent() (Segment, error) {
	if len(l) == 0 {
		return Segment{}, ErrEmptyList
	}
	lo := l[0].start
	hi := l[0].end
	for _, s := range l[1:] {
		if s.start < lo {
			lo = s.start
		}
		if s.end > hi {
			hi = s.end
		}
	}
	return Segment{start: lo, end: hi}, nil
}

// Equal compares the ordered segment sequences element-wise. Lists are NOT
// coalesced before comparison; callers wanting semantic equality must
// coalesce first.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Contains reports whether t lies within any segment.
func (l List) Contains(t Time) bool {
	for _, s := range l {
		if s.Contains(t) {
			return true
		}
	}
	return false
}

// Shifted returns a new list with every start moved by pre and every end
// moved by post. The result is NOT coalesced; padding twice is cumulative.
func (l List) Shifted(pre, post Time) List {
	out := make(List, 0, len(l))
	for _, s := range l {
		out = append(out, NewSegment(addClamped(s.start, pre), addClamped(s.end, post)))
	}
	return out
}

// Contract replaces each segment [s, e) with [s+x, e-x), discarding
// segments shorter than 2x, and returns the coalesced result.
func (l List) Contract(x Time) List {
	var out List
	for _, s := range l {
		lo := addClamped(s.start, x)
		hi := addClamped(s.end, -x)
		if lo < hi {
			out = append(out, Segment{start: lo, end: hi})
		}
	}
	out.Coalesce()
	return out
}

// Protract replaces each segment [s, e) with [s-x, e+x) and returns the
// coalesced result; segments whose protractions touch will merge.
func (l List) Protract(x Time) List {
	return l.Contract(-x)
}

// Round rounds each segment's start up and end down to whole-second
// boundaries and returns the coalesced result. When ceil(start) passes
// floor(end) the endpoints swap, so a sub-second segment snaps to the unit
// covering it rather than vanishing.
func (l List) Round() List {
	var out List
	for _, s := range l {
		seg := NewSegment(s.start.CeilSecond(), s.end.FloorSecond())
		if seg.Length() > 0 {
			out = append(out, seg)
		}
	}
	out.Coalesce()
	return out
}

// String renders the list as "[[0 ... 3), [6 ... 7)]".
func (l List) String() string {
	parts := make([]string, 0, len(l))
	for _, s := range l {
		parts = append(parts, s.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON renders the list as an array of [start, end] pairs with
// exact decimal times.
func (l List) MarshalJSON() ([]byte, error) {
	pairs := make([][2]Time, 0, len(l))
	for _, s := range l {
		pairs = append(pairs, [2]Time{s.start, s.end})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON parses an array of [start, end] pairs.
func (l *List) UnmarshalJSON(data []byte) error {
	var pairs [][2]Time
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(List, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, NewSegment(p[0], p[1]))
	}
	*l = out
	return nil
}

// addClamped adds a finite offset to a time, leaving infinities in place.
func addClamped(t, d Time) Time {
	if t == Infinity || t == NegInfinity {
		return t
	}
	return t + d
}
