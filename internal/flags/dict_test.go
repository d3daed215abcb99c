package flags

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dqtools/segments/internal/segments"
)

// Query fixtures, mirroring a small segment database with two flags.
var (
	queryFlags = []string{"X1:TEST-FLAG:1", "Y1:TEST-FLAG2:4"}

	known2  = func() segments.List { return seglist([2]float64{100, 150}) }
	active2 = func() segments.List {
		return seglist([2]float64{100, 101}, [2]float64{110, 120})
	}
)

func queryFixture() map[string]*QueryResult {
	return map[string]*QueryResult{
		"X1:TEST-FLAG:1": {
			Known: seglist([2]float64{0, 10}),
			Active: seglist([2]float64{0, 1}, [2]float64{1, 2},
				[2]float64{3, 4}, [2]float64{6, 9}),
			Version: 1,
		},
		"Y1:TEST-FLAG2:4": {
			Known:   seglist([2]float64{0, 5}, [2]float64{9, 10}),
			Active:  segments.List{},
			Version: 4,
		},
	}
}

// mockDB serves the fixture over both collaborator interfaces, resolving
// versionless names to the highest stored version.
type mockDB struct {
	results map[string]*QueryResult
}

func (m *mockDB) resolve(name string) (*QueryResult, error) {
	if res, ok := m.results[name]; ok {
		return res, nil
	}
	var best *QueryResult
	for stored, res := range m.results {
		if VersionlessName(stored) != name {
			continue
		}
		if best == nil || res.Version > best.Version {
			best = res
		}
	}
	if best == nil {
		return nil, fmt.Errorf("flag %s: %w", name, ErrNoData)
	}
	return best, nil
}

func (m *mockDB) QueryTimes(_ context.Context, name string, start, end segments.Time) (*QueryResult, error) {
	res, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	span := segments.List{segments.NewSegment(start, end)}
	return &QueryResult{
		Known:   res.Known.Intersect(span),
		Active:  res.Active.Intersect(span),
		Version: res.Version,
	}, nil
}

func (m *mockDB) CascadedQuery(ctx context.Context, names []string, start, end segments.Time) (map[string]*QueryResult, error) {
	out := make(map[string]*QueryResult, len(names))
	for _, name := range names {
		res, err := m.QueryTimes(ctx, name, start, end)
		if err != nil {
			return nil, err
		}
		out[name] = res
	}
	return out, nil
}

// QuerySegments implements the legacy interface: results come back exactly
// as stored, uncoalesced.
func (m *mockDB) QuerySegments(_ context.Context, name string, start, end segments.Time) (segments.List, segments.List, error) {
	res, err := m.resolve(name)
	if err != nil {
		return nil, nil, err
	}
	return res.Known.Copy(), res.Active.Copy(), nil
}

func testDict() Dict {
	return Dict{
		"X1:TEST-FLAG:1": New("X1:TEST-FLAG:1", known(), active()),
		"Y1:TEST-FLAG:2": New("Y1:TEST-FLAG:2", known2(), active2()),
	}
}

func TestDictUnion(t *testing.T) {
	u := testDict().Union()
	assertSegs(t, u.Known, known().Union(known2()))
	assertSegs(t, u.Active, active().Union(active2()))
}

func TestDictIntersection(t *testing.T) {
	x := testDict().Intersection()
	assertSegs(t, x.Known, known().Intersect(known2()))
	assertSegs(t, x.Active, active().Intersect(active2()))
}

func TestQueryDQSegDBSpan(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	f, err := QueryDQSegDBSpan(context.Background(), db, queryFlags[0],
		segments.FromInt(0), segments.FromInt(10))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	// dqsegdb results are coalesced
	assertSegs(t, f.Known, seglist([2]float64{0, 10}))
	assertSegs(t, f.Active,
		seglist([2]float64{0, 2}, [2]float64{3, 4}, [2]float64{6, 9}))
}

func TestQueryDQSegDBVersionless(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	f, err := QueryDQSegDBSpan(context.Background(), db, "X1:TEST-FLAG",
		segments.FromInt(0), segments.FromInt(10))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if f.Name != "X1:TEST-FLAG" {
		t.Errorf("flag should keep the requested name, got %q", f.Name)
	}
	assertSegs(t, f.Active,
		seglist([2]float64{0, 2}, [2]float64{3, 4}, [2]float64{6, 9}))
}

func TestQueryDQSegDBMultiSpan(t *testing.T) {
	db := &mockDB{results: queryFixture()}
	spans := seglist([2]float64{0, 2}, [2]float64{8, 10})

	f, err := QueryDQSegDB(context.Background(), db, queryFlags[0], spans)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	assertSegs(t, f.Known, seglist([2]float64{0, 2}, [2]float64{8, 10}))
	assertSegs(t, f.Active, seglist([2]float64{0, 2}, [2]float64{8, 9}))
}

func TestQuerySegDBUncoalesced(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	f, err := QuerySegDB(context.Background(), db, queryFlags[0],
		segments.FromInt(0), segments.FromInt(10))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	// the legacy path must NOT coalesce: (0,1) and (1,2) stay separate
	assertSegs(t, f.Active, seglist([2]float64{0, 1}, [2]float64{1, 2},
		[2]float64{3, 4}, [2]float64{6, 9}))
}

func TestQueryNoData(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	_, err := QueryDQSegDBSpan(context.Background(), db, "Z1:MISSING:1",
		segments.FromInt(0), segments.FromInt(10))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestQueryDictDQSegDB(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	d, err := QueryDictDQSegDB(context.Background(), db, queryFlags,
		segments.FromInt(0), segments.FromInt(10))
	if err != nil {
		t.Fatalf("cascaded query failed: %v", err)
	}

	if len(d) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(d))
	}
	assertSegs(t, d[queryFlags[0]].Active,
		seglist([2]float64{0, 2}, [2]float64{3, 4}, [2]float64{6, 9}))
	assertSegs(t, d[queryFlags[1]].Known,
		seglist([2]float64{0, 5}, [2]float64{9, 10}))
	assertSegs(t, d[queryFlags[1]].Active, segments.List{})
}

func TestQueryDictSegDB(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	d, err := QueryDictSegDB(context.Background(), db, queryFlags,
		segments.FromInt(0), segments.FromInt(10))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	// legacy bulk results stay uncoalesced
	assertSegs(t, d[queryFlags[0]].Active, seglist([2]float64{0, 1},
		[2]float64{1, 2}, [2]float64{3, 4}, [2]float64{6, 9}))
}

func TestPopulate(t *testing.T) {
	db := &mockDB{results: queryFixture()}

	// dict shaped like a veto definer: known spans only
	fromDefiner := func() Dict {
		d := make(Dict)
		for name, res := range queryFixture() {
			d[name] = New(name, res.Known.Copy(), nil)
		}
		return d
	}

	// plain populate
	d := fromDefiner()
	if err := d.Populate(context.Background(), db, nil); err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	assertSegs(t, d[queryFlags[0]].Active,
		seglist([2]float64{0, 2}, [2]float64{3, 4}, [2]float64{6, 9}))
	assertSegs(t, d[queryFlags[1]].Known, seglist([2]float64{0, 5}, [2]float64{9, 10}))

	// per-flag padding is applied after population
	d2 := fromDefiner()
	d2[queryFlags[0]].Padding = Padding{Pre: segments.FromInt(-1), Post: segments.FromInt(1)}
	if err := d2.Populate(context.Background(), db, nil); err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	want := d[queryFlags[0]].Pad(segments.FromInt(-1), segments.FromInt(1))
	assertSegs(t, d2[queryFlags[0]].Known, want.Known)
	assertSegs(t, d2[queryFlags[0]].Active, want.Active)

	// span-restricted populate
	d3 := fromDefiner()
	span := seglist([2]float64{0, 2})
	if err := d3.Populate(context.Background(), db, span); err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	for _, name := range queryFlags {
		assertSegs(t, d3[name].Known, d[name].Known.Intersect(span))
		assertSegs(t, d3[name].Active, d[name].Active.Intersect(span))
	}
}
