package flags

import (
	"context"
	"errors"
	"fmt"

	"github.com/dqtools/segments/internal/segments"
)

// Collaborator error taxonomy. Clients wrap their transport errors with
// these sentinels so callers can tell "server down" from "nothing there"
// from "garbage response" with errors.Is.
var (
	// ErrUnavailable means the segment database could not be reached.
	ErrUnavailable = errors.New("segment database unavailable")
	// ErrNoData means the query succeeded but matched no flag or span.
	ErrNoData = errors.New("no segments found")
	// ErrMalformed means the response could not be decoded.
	ErrMalformed = errors.New("malformed segment database response")
)

// QueryResult is the known/active payload returned by a segment database
// for one flag over one span.
type QueryResult struct {
	Known   segments.List `json:"known"`
	Active  segments.List `json:"active"`
	Version int           `json:"version,omitempty"`
}

// SegDB is the legacy segment-database collaborator (S6-era protocol).
type SegDB interface {
	QuerySegments(ctx context.Context, name string, start, end segments.Time) (known, active segments.List, err error)
}

// DQSegDB is the modern segment-database collaborator.
type DQSegDB interface {
	QueryTimes(ctx context.Context, name string, start, end segments.Time) (*QueryResult, error)
	CascadedQuery(ctx context.Context, names []string, start, end segments.Time) (map[string]*QueryResult, error)
}

// QueryDQSegDB builds a flag by querying the modern database over each of
// the given spans, restricting results to those spans. The result is
// coalesced.
func QueryDQSegDB(ctx context.Context, db DQSegDB, name string, spans segments.List) (*Flag, error) {
	qspans := spans.Copy()
	qspans.Coalesce()

	flag := New(name, nil, nil)
	for _, span := range qspans {
		res, err := db.QueryTimes(ctx, name, span.Start(), span.End())
		if err != nil {
			return nil, fmt.Errorf("dqsegdb query for %s over %s: %w", name, span, err)
		}
		flag.Known = append(flag.Known, res.Known...)
		flag.Active = append(flag.Active, res.Active...)
	}

	flag.Known = flag.Known.Intersect(qspans)
	flag.Active = flag.Active.Intersect(qspans)
	return flag.Coalesce(), nil
}

// QueryDQSegDBSpan is QueryDQSegDB over a single [start, end) span.
func QueryDQSegDBSpan(ctx context.Context, db DQSegDB, name string, start, end segments.Time) (*Flag, error) {
	return QueryDQSegDB(ctx, db, name, segments.List{segments.NewSegment(start, end)})
}

// QuerySegDB builds a flag by querying the legacy database. Unlike the
// dqsegdb path the result is NOT coalesced; the asymmetry matches the
// legacy protocol's observed behavior and is deliberately preserved
// rather than silently unified.
func QuerySegDB(ctx context.Context, db SegDB, name string, start, end segments.Time) (*Flag, error) {
	known, active, err := db.QuerySegments(ctx, name, start, end)
	if err != nil {
		return nil, fmt.Errorf("segdb query for %s: %w", name, err)
	}
	return New(name, known, active), nil
}
