package flags

import (
	"context"
	"fmt"
	"sort"

	"github.com/dqtools/segments/internal/segments"
)

// Dict maps flag names to flags. Iteration order is irrelevant for the
// algebra; reductions iterate in sorted-name order for determinism.
type Dict map[string]*Flag

// Names returns the flag names in sorted order.
func (d Dict) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns a deep copy of the dict.
func (d Dict) Copy() Dict {
	out := make(Dict, len(d))
	for name, f := range d {
		out[name] = f.Copy()
	}
	return out
}

// Union folds every flag's known and active lists through the list union,
// returning a single synthetic flag.
func (d Dict) Union() *Flag {
	out := New("", nil, nil)
	for _, name := range d.Names() {
		f := d[name]
		out.Known = out.Known.Union(f.Known)
		out.Active = out.Active.Union(f.Active)
	}
	return out
}

// Intersection folds every flag's known and active lists through the list
// intersection, returning a single synthetic flag. An empty dict yields an
// empty flag.
func (d Dict) Intersection() *Flag {
	out := New("", nil, nil)
	first := true
	for _, name := range d.Names() {
		f := d[name]
		if first {
			out.Known = f.Known.Copy()
			out.Active = f.Active.Copy()
			first = false
			continue
		}
		out.Known = out.Known.Intersect(f.Known)
		out.Active = out.Active.Intersect(f.Active)
	}
	return out
}

// Populate refreshes every flag in place from the modern database. Each
// flag is queried over its own known spans (as a veto definer provides
// them), optionally restricted to the given spans, and its configured
// padding is applied after population.
func (d Dict) Populate(ctx context.Context, db DQSegDB, spans segments.List) error {
	for _, name := range d.Names() {
		f := d[name]

		qspans := f.Known.Copy()
		qspans.Coalesce()
		if spans != nil {
			qspans = qspans.Intersect(spans)
		}

		res, err := QueryDQSegDB(ctx, db, name, qspans)
		if err != nil {
			return fmt.Errorf("populating %s: %w", name, err)
		}

		f.Known = res.Known
		f.Active = res.Active
		if !f.Padding.IsZero() {
			f.PadInPlace(f.Padding.Pre, f.Padding.Post)
		}
	}
	return nil
}

// QueryDictDQSegDB builds a dict by querying all named flags over one span
// in a single cascaded call, splitting the batch result into flags. Each
// flag is coalesced, matching the single-flag dqsegdb path.
func QueryDictDQSegDB(ctx context.Context, db DQSegDB, names []string, start, end segments.Time) (Dict, error) {
	results, err := db.CascadedQuery(ctx, names, start, end)
	if err != nil {
		return nil, fmt.Errorf("cascaded dqsegdb query: %w", err)
	}

	out := make(Dict, len(names))
	for _, name := range names {
		res, ok := results[name]
		if !ok {
			return nil, fmt.Errorf("flag %s: %w", name, ErrNoData)
		}
		f := New(name, res.Known, res.Active)
		out[name] = f.Coalesce()
	}
	return out, nil
}

// QueryDictSegDB builds a dict with one legacy query per flag. Results are
// uncoalesced, matching the single-flag segdb path.
func QueryDictSegDB(ctx context.Context, db SegDB, names []string, start, end segments.Time) (Dict, error) {
	out := make(Dict, len(names))
	for _, name := range names {
		f, err := QuerySegDB(ctx, db, name, start, end)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}
