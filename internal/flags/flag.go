// Package flags implements data-quality flags: pairs of known and active
// segment lists with identity metadata and set-algebraic combinators.
package flags

import (
	"fmt"

	"github.com/dqtools/segments/internal/segments"
)

// Padding is a (pre, post) offset pair applied to active segments. The
// zero value means no padding.
type Padding struct {
	Pre  segments.Time `json:"pre"`
	Post segments.Time `json:"post"`
}

// IsZero reports whether no padding is configured.
func (p Padding) IsZero() bool {
	return p == Padding{}
}

// Flag pairs the segments during which a data-quality condition was
// evaluated (Known) with those during which it was true (Active). For a
// regular flag every active segment lies inside known time.
type Flag struct {
	// Name is the full "ifo:tag:version" identifier; IFO, Tag, and
	// Version are its parsed components (Version is NoVersion when the
	// name carries none).
	Name    string
	IFO     string
	Tag     string
	Version int

	Known  segments.List
	Active segments.List

	// Padding is applied to active segments by PadOwn and by
	// Dict.Populate after a query.
	Padding Padding

	// Veto-definer metadata.
	Category    int // veto category, 0 when uncategorized
	IsGood      bool
	Description string
}

// New creates a flag, parsing the name into its components. Nil lists
// become empty lists, so Known and Active are always usable.
func New(name string, known, active segments.List) *Flag {
	p := ParseName(name)
	if known == nil {
		known = segments.List{}
	}
	if active == nil {
		active = segments.List{}
	}
	return &Flag{
		Name:    name,
		IFO:     p.IFO,
		Tag:     p.Tag,
		Version: p.Version,
		Known:   known,
		Active:  active,
	}
}

// Copy returns a deep copy of the flag.
func (f *Flag) Copy() *Flag {
	c := *f
	c.Known = f.Known.Copy()
	c.Active = f.Active.Copy()
	return &c
}

// TexName returns the name with underscores escaped for TeX. Empty for an
// unnamed flag.
func (f *Flag) TexName() string {
	if f.Name == "" {
		return ""
	}
	return TexName(f.Name)
}

// Extent returns the single segment spanning the known list. Fails with
// segments.ErrEmptyList when nothing is known.
func (f *Flag) Extent() (segments.Segment, error) {
	return f.Known.Extent()
}

// Livetime returns the total measure of the active list.
func (f *Flag) Livetime() segments.Time {
	return f.Active.Measure()
}

// Regular reports whether every active segment lies within known time.
// Empty flags are trivially regular.
func (f *Flag) Regular() bool {
	a := f.Active.Copy()
	a.Coalesce()
	return a.Equal(f.Active.Intersect(f.Known))
}

// Coalesce coalesces known and active in place, then discards active time
// lying outside known time, enforcing regularity. Returns the receiver.
func (f *Flag) Coalesce() *Flag {
	f.Known.Coalesce()
	f.Active.Coalesce()
	f.Active = f.Active.Intersect(f.Known)
	return f
}

// Contract shrinks each active segment by x on both ends, discarding
// segments shorter than 2x, and coalesces. Mutates and returns the
// receiver.
func (f *Flag) Contract(x segments.Time) *Flag {
	f.Active = f.Active.Contract(x)
	return f
}

// Protract grows each active segment by x on both ends and coalesces;
// newly touching segments merge. Mutates and returns the receiver.
func (f *Flag) Protract(x segments.Time) *Flag {
	f.Active = f.Active.Protract(x)
	return f
}

// Round snaps each active segment to whole-second boundaries (ceil start,
// floor end) and enforces regularity. Returns a new flag.
func (f *Flag) Round() *Flag {
	r := f.Copy()
	r.Active = r.Active.Round()
	return r.Coalesce()
}

// Pad shifts every active boundary by (pre, post) and extends, never
// contracts, the known span to cover the padded range. Neither list is
// coalesced, so padding twice accumulates. Returns a new flag.
func (f *Flag) Pad(pre, post segments.Time) *Flag {
	return f.Copy().PadInPlace(pre, post)
}

// PadInPlace is Pad applied to the receiver itself.
func (f *Flag) PadInPlace(pre, post segments.Time) *Flag {
	knownPre := pre
	if knownPre > 0 {
		knownPre = 0
	}
	knownPost := post
	if knownPost < 0 {
		knownPost = 0
	}
	f.Known = f.Known.Shifted(knownPre, knownPost)
	f.Active = f.Active.Shifted(pre, post)
	return f
}

// PadOwn applies the flag's configured padding. A flag without padding is
// returned unchanged (as a copy, keeping Pad's value semantics).
func (f *Flag) PadOwn() *Flag {
	return f.Pad(f.Padding.Pre, f.Padding.Post)
}

// And intersects both flags' known and active lists. The result carries
// the receiver's name and metadata.
func (f *Flag) And(o *Flag) *Flag {
	r := f.Copy()
	r.Known = f.Known.Intersect(o.Known)
	r.Active = f.Active.Intersect(o.Active)
	return r
}

// Or unions both flags' known and active lists. The result carries the
// receiver's name and metadata.
func (f *Flag) Or(o *Flag) *Flag {
	r := f.Copy()
	r.Known = f.Known.Union(o.Known)
	r.Active = f.Active.Union(o.Active)
	return r
}

// Sub subtracts the other flag's lists from the receiver's. The result
// carries the receiver's name and metadata.
func (f *Flag) Sub(o *Flag) *Flag {
	r := f.Copy()
	r.Known = f.Known.Sub(o.Known)
	r.Active = f.Active.Sub(o.Active)
	return r
}

// Valid returns the known segments.
//
// Deprecated: "valid" is the legacy name for the known list; use Known.
func (f *Flag) Valid() segments.List {
	return f.Known
}

// SetValid replaces the known segments.
//
// Deprecated: "valid" is the legacy name for the known list; use Known.
func (f *Flag) SetValid(l segments.List) {
	f.Known = l
}

func (f *Flag) String() string {
	name := f.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("Flag(%s, known=%d, active=%d)", name, len(f.Known), len(f.Active))
}
