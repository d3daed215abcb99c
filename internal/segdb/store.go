// Package segdb reads and writes flag segments in a PostgreSQL database
// laid out after the legacy segment-database schema: one definer row per
// flag version, summary rows for known time, and segment rows for active
// time. Endpoints are stored as nanosecond integers so no precision is
// lost between the store and the in-memory algebra.
package segdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/database"
	"github.com/dqtools/segments/pkg/logger"
)

// Store gives flag-level access to the segment tables. It implements
// flags.SegDB.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// New creates a store on an open connection pool.
func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// FlagInfo describes one defined flag version.
type FlagInfo struct {
	ID      int64  `json:"id"`
	IFO     string `json:"ifo"`
	Name    string `json:"name"`
	Version int    `json:"version"`
	Comment string `json:"comment,omitempty"`
}

// FullName returns the canonical IFO:NAME:VERSION form.
func (fi FlagInfo) FullName() string {
	return fmt.Sprintf("%s:%s:%d", fi.IFO, fi.Name, fi.Version)
}

// ListFlags returns every defined flag version, ordered by name.
func (s *Store) ListFlags(ctx context.Context) ([]FlagInfo, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT segment_def_id, ifo, name, version, COALESCE(comment, '')
		FROM segment_definer
		ORDER BY ifo, name, version`)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	defer rows.Close()

	var out []FlagInfo
	for rows.Next() {
		var fi FlagInfo
		if err := rows.Scan(&fi.ID, &fi.IFO, &fi.Name, &fi.Version, &fi.Comment); err != nil {
			return nil, fmt.Errorf("scanning flag definer: %w", err)
		}
		out = append(out, fi)
	}
	return out, rows.Err()
}

// definerIDs resolves a flag name to its definer rows. A versionless name
// matches every version of the flag.
func (s *Store) definerIDs(ctx context.Context, name string) ([]int64, error) {
	parsed := flags.ParseName(name)
	if parsed.IFO == "" || parsed.Tag == "" {
		return nil, fmt.Errorf("%w: cannot parse flag name %q", flags.ErrMalformed, name)
	}

	var (
		rows pgx.Rows
		err  error
	)
	if parsed.Version == flags.NoVersion {
		rows, err = s.db.Pool.Query(ctx, `
			SELECT segment_def_id FROM segment_definer
			WHERE ifo = $1 AND name = $2
			ORDER BY version`, parsed.IFO, parsed.Tag)
	} else {
		rows, err = s.db.Pool.Query(ctx, `
			SELECT segment_def_id FROM segment_definer
			WHERE ifo = $1 AND name = $2 AND version = $3`,
			parsed.IFO, parsed.Tag, parsed.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning definer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("flag %s: %w", name, flags.ErrNoData)
	}
	return ids, nil
}

// querySpans reads raw [start, end) rows overlapping the query window from
// one of the two segment tables, clipped to the window. Rows come back in
// time order but are left uncoalesced.
func (s *Store) querySpans(ctx context.Context, table string, ids []int64, start, end segments.Time) (segments.List, error) {
	query := fmt.Sprintf(`
		SELECT GREATEST(start_ns, $2::bigint), LEAST(end_ns, $3::bigint)
		FROM %s
		WHERE segment_def_id = ANY($1) AND start_ns < $3 AND end_ns > $2
		ORDER BY start_ns`, table)

	rows, err := s.db.Pool.Query(ctx, query, ids, int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer rows.Close()

	var out segments.List
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		out = append(out, segments.NewSegment(segments.Time(a), segments.Time(b)))
	}
	return out, rows.Err()
}

// QuerySegments fetches known and active spans for a flag over [start, end).
// Results are clipped to the window but not coalesced, matching what the
// legacy protocol handed back.
func (s *Store) QuerySegments(ctx context.Context, name string, start, end segments.Time) (known, active segments.List, err error) {
	ids, err := s.definerIDs(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	if known, err = s.querySpans(ctx, "segment_summary", ids, start, end); err != nil {
		return nil, nil, err
	}
	if active, err = s.querySpans(ctx, "segment", ids, start, end); err != nil {
		return nil, nil, err
	}
	return known, active, nil
}

// Query builds a full flag from the store. Unlike the modern client path
// the result is left uncoalesced.
func (s *Store) Query(ctx context.Context, name string, start, end segments.Time) (*flags.Flag, error) {
	return flags.QuerySegDB(ctx, s, name, start, end)
}

// DefineFlag inserts a definer row for a flag version, returning its id.
// Defining an existing version is not an error; the existing id is reused.
func (s *Store) DefineFlag(ctx context.Context, name, comment string) (int64, error) {
	parsed := flags.ParseName(name)
	if parsed.IFO == "" || parsed.Tag == "" || parsed.Version == flags.NoVersion {
		return 0, fmt.Errorf("%w: publishing needs a fully versioned name, got %q", flags.ErrMalformed, name)
	}

	var id int64
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO segment_definer (ifo, name, version, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ifo, name, version) DO UPDATE SET comment = EXCLUDED.comment
		RETURNING segment_def_id`,
		parsed.IFO, parsed.Tag, parsed.Version, comment).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("defining flag %s: %w", name, err)
	}
	return id, nil
}

// Publish appends a flag's known and active segments to the store inside
// one transaction, defining the flag version if needed.
func (s *Store) Publish(ctx context.Context, f *flags.Flag) error {
	if f.Name == "" {
		return fmt.Errorf("%w: flag has no name", flags.ErrMalformed)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", flags.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO segment_definer (ifo, name, version, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ifo, name, version) DO UPDATE SET comment = EXCLUDED.comment
		RETURNING segment_def_id`,
		f.IFO, f.Tag, f.Version, f.Description).Scan(&id)
	if err != nil {
		return fmt.Errorf("defining flag %s: %w", f.Name, err)
	}

	insert := func(table string, l segments.List) error {
		for _, seg := range l {
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (segment_def_id, start_ns, end_ns) VALUES ($1, $2, $3)", table),
				id, int64(seg.Start()), int64(seg.End()))
			if err != nil {
				return fmt.Errorf("inserting %s row for %s: %w", table, f.Name, err)
			}
		}
		return nil
	}

	if err := insert("segment_summary", f.Known); err != nil {
		return err
	}
	if err := insert("segment", f.Active); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing segments for %s: %w", f.Name, err)
	}
	s.log.WithField("flag", f.Name).
		Infof("published %d known and %d active segments", len(f.Known), len(f.Active))
	return nil
}

// Migrate creates the segment tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS segment_definer (
			segment_def_id BIGSERIAL PRIMARY KEY,
			ifo            TEXT NOT NULL,
			name           TEXT NOT NULL,
			version        INTEGER NOT NULL,
			comment        TEXT,
			UNIQUE (ifo, name, version)
		)`,
		`CREATE TABLE IF NOT EXISTS segment_summary (
			segment_sum_id BIGSERIAL PRIMARY KEY,
			segment_def_id BIGINT NOT NULL REFERENCES segment_definer (segment_def_id),
			start_ns       BIGINT NOT NULL,
			end_ns         BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS segment (
			segment_id     BIGSERIAL PRIMARY KEY,
			segment_def_id BIGINT NOT NULL REFERENCES segment_definer (segment_def_id),
			start_ns       BIGINT NOT NULL,
			end_ns         BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS segment_summary_span_idx
			ON segment_summary (segment_def_id, start_ns, end_ns)`,
		`CREATE INDEX IF NOT EXISTS segment_span_idx
			ON segment (segment_def_id, start_ns, end_ns)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrating segment schema: %w", err)
		}
	}
	return nil
}

// IsNotFound reports whether an error came from an empty query result.
func IsNotFound(err error) bool {
	return errors.Is(err, flags.ErrNoData) || errors.Is(err, pgx.ErrNoRows)
}
