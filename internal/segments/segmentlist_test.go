package segments

import (
	"encoding/json"
	"errors"
	"testing"
)

func list(pairs ...[2]float64) List {
	return FromPairs(pairs)
}

func assertListEqual(t *testing.T, got, want List) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("list mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	l := list([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{4, 5})
	c := l.Coalesce()

	// identity preserved
	if c != &l {
		t.Error("Coalesce must return the receiver")
	}
	assertListEqual(t, l, list([2]float64{1, 2}, [2]float64{3, 5}))
}

func TestCoalesceUnsortedOverlapping(t *testing.T) {
	l := list([2]float64{5, 7}, [2]float64{1, 2}, [2]float64{6, 9}, [2]float64{1.5, 3})
	l.Coalesce()
	assertListEqual(t, l, list([2]float64{1, 3}, [2]float64{5, 9}))
}

func TestCoalesceDropsEmpty(t *testing.T) {
	l := list([2]float64{2, 2}, [2]float64{0, 1})
	l.Coalesce()
	assertListEqual(t, l, list([2]float64{0, 1}))
}

func TestCoalesceIdempotent(t *testing.T) {
	l := list([2]float64{1, 2}, [2]float64{1.5, 4}, [2]float64{6, 7})
	l.Coalesce()
	once := l.Copy()
	l.Coalesce()
	assertListEqual(t, l, once)
}

func TestUnion(t *testing.T) {
	a := list([2]float64{0, 3}, [2]float64{6, 7})
	b := list([2]float64{2, 4}, [2]float64{8, 9})

	assertListEqual(t, a.Union(b),
		list([2]float64{0, 4}, [2]float64{6, 7}, [2]float64{8, 9}))

	// operands untouched
	assertListEqual(t, a, list([2]float64{0, 3}, [2]float64{6, 7}))
}

func TestIntersect(t *testing.T) {
	known := list([2]float64{0, 3}, [2]float64{6, 7})
	active := list([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 7})

	// fixture: coalesced active intersected with known
	assertListEqual(t, active.Intersect(known),
		list([2]float64{1, 2}, [2]float64{6, 7}))
}

func TestIntersectCommutative(t *testing.T) {
	a := list([2]float64{0, 5}, [2]float64{8, 12})
	b := list([2]float64{3, 9})

	assertListEqual(t, a.Intersect(b), b.Intersect(a))
}

func TestSub(t *testing.T) {
	a := list([2]float64{0, 10})
	b := list([2]float64{2, 3}, [2]float64{5, 6})

	// interior subtrahends split the segment
	assertListEqual(t, a.Sub(b),
		list([2]float64{0, 2}, [2]float64{3, 5}, [2]float64{6, 10}))

	// not commutative
	assertListEqual(t, b.Sub(a), List{})
}

func TestSubNoOverlap(t *testing.T) {
	a := list([2]float64{0, 1})
	b := list([2]float64{2, 3})
	assertListEqual(t, a.Sub(b), a)
}

func TestEmptyOperands(t *testing.T) {
	a := list([2]float64{1, 2}, [2]float64{3, 4})
	empty := List{}

	assertListEqual(t, a.Intersect(empty), List{})
	assertListEqual(t, a.Union(empty), a)
	assertListEqual(t, a.Sub(empty), a)
	assertListEqual(t, empty.Sub(a), List{})
}

func TestMeasure(t *testing.T) {
	l := list([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 7})
	if got := l.Measure(); got != FromInt(4) {
		t.Errorf("Measure() = %s, want 4", got)
	}
	if got := (List{}).Measure(); got != 0 {
		t.Errorf("empty Measure() = %s, want 0", got)
	}
}

func TestMeasureSubadditive(t *testing.T) {
	a := list([2]float64{0, 3}, [2]float64{6, 7})
	b := list([2]float64{2, 4})

	union := a.Union(b)
	if union.Measure() > a.Measure()+b.Measure() {
		t.Error("union measure exceeds sum of measures")
	}

	// equality iff disjoint
	disjoint := list([2]float64{10, 11})
	u2 := a.Union(disjoint)
	if u2.Measure() != a.Measure()+disjoint.Measure() {
		t.Error("disjoint union measure should equal sum")
	}
}

func TestExtent(t *testing.T) {
	l := list([2]float64{0, 3}, [2]float64{6, 7})
	ext, err := l.Extent()
	if err != nil {
		t.Fatalf("Extent failed: %v", err)
	}
	if ext != Span(0, 7) {
		t.Errorf("Extent() = %v, want [0 ... 7)", ext)
	}

	_, err = (List{}).Extent()
	if !errors.Is(err, ErrEmptyList) {
		t.Errorf("expected ErrEmptyList, got %v", err)
	}
}

func TestEqualNotCoalesced(t *testing.T) {
	a := list([2]float64{1, 2}, [2]float64{2, 3})
	b := list([2]float64{1, 3})

	// semantically equal, but Equal does not coalesce
	if a.Equal(b) {
		t.Error("Equal must compare raw sequences")
	}

	a.Coalesce()
	if !a.Equal(b) {
		t.Error("coalesced lists should now be equal")
	}
}

func TestContractProtract(t *testing.T) {
	active := list([2]float64{1, 2}, [2]float64{3, 4})
	x := FromSeconds(0.1)

	contracted := active.Contract(x)
	assertListEqual(t, contracted,
		list([2]float64{1.1, 1.9}, [2]float64{3.1, 3.9}))

	// protraction by the same amount restores the original
	assertListEqual(t, contracted.Protract(x), active)
}

func TestContractDropsShortSegments(t *testing.T) {
	l := list([2]float64{0, 1}, [2]float64{5, 5.1})
	got := l.Contract(FromSeconds(0.2))
	assertListEqual(t, got, list([2]float64{0.2, 0.8}))
}

func TestProtractMerges(t *testing.T) {
	l := list([2]float64{1, 2}, [2]float64{2.1, 3})
	got := l.Protract(FromSeconds(0.1))
	assertListEqual(t, got, list([2]float64{0.9, 3.1}))
}

func TestRound(t *testing.T) {
	l := list([2]float64{1.1, 1.9}, [2]float64{3.1, 3.9})
	// sub-second spans snap to the covering whole-second unit
	assertListEqual(t, l.Round(), list([2]float64{1, 2}, [2]float64{3, 4}))

	l2 := list([2]float64{0.5, 3.5}, [2]float64{5.9, 8})
	assertListEqual(t, l2.Round(), list([2]float64{1, 3}, [2]float64{6, 8}))
}

func TestShifted(t *testing.T) {
	l := list([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 7})
	got := l.Shifted(FromSeconds(-0.5), FromInt(1))

	// shifted lists stay uncoalesced
	assertListEqual(t, got,
		list([2]float64{0.5, 3}, [2]float64{2.5, 5}, [2]float64{4.5, 8}))

	c := got.Copy()
	c.Coalesce()
	assertListEqual(t, c, list([2]float64{0.5, 8}))
}

func TestContains(t *testing.T) {
	l := list([2]float64{0, 3}, [2]float64{6, 7})
	if !l.Contains(FromInt(1)) {
		t.Error("1 should be contained")
	}
	if l.Contains(FromInt(4)) {
		t.Error("4 should not be contained")
	}
}

func TestListJSON(t *testing.T) {
	l := list([2]float64{0.5, 3}, [2]float64{6, 7})

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `[[0.5,3],[6,7]]` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded List
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	assertListEqual(t, decoded, l)
}

func TestListString(t *testing.T) {
	l := list([2]float64{0, 3}, [2]float64{6, 7})
	want := "[[0 ... 3), [6 ... 7)]"
	if got := l.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
