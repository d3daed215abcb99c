// Package jobs holds the scheduled segment maintenance jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/logger"
)

// Sink stores refreshed flags locally.
type Sink interface {
	Publish(ctx context.Context, f *flags.Flag) error
}

// Announcer pushes refreshed flags to live subscribers.
type Announcer interface {
	Publish(f *flags.Flag)
}

// RefreshJob periodically re-queries a set of flags from the upstream
// segment database, mirrors the results into the local store, and
// announces them on the stream.
type RefreshJob struct {
	db        flags.DQSegDB
	sink      Sink
	announcer Announcer
	logger    *logger.Logger

	names    []string
	lookback time.Duration
	schedule string

	// now is swappable for tests
	now func() time.Time
}

// NewRefreshJob creates a refresh job for the named flags. The lookback
// window is how far behind the current GPS time each refresh reaches.
func NewRefreshJob(db flags.DQSegDB, sink Sink, announcer Announcer, log *logger.Logger, names []string, lookback time.Duration) *RefreshJob {
	return &RefreshJob{
		db:        db,
		sink:      sink,
		announcer: announcer,
		logger:    log,
		names:     names,
		lookback:  lookback,
		schedule:  "0 */10 * * * *",
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "segment_refresh"
}

// Schedule returns the cron schedule (every ten minutes)
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// gpsEpoch is 1980-01-06T00:00:00 UTC.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// Run refreshes every configured flag over the lookback window.
func (j *RefreshJob) Run(ctx context.Context) error {
	end := segments.Time(j.now().Sub(gpsEpoch))
	start := end - segments.Time(j.lookback)
	window := segments.List{segments.NewSegment(start, end)}

	j.logger.WithFields(map[string]interface{}{
		"flags": len(j.names),
		"start": start.String(),
		"end":   end.String(),
	}).Info("Refreshing segments")

	var failed int
	for _, name := range j.names {
		f, err := flags.QueryDQSegDB(ctx, j.db, name, window)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("flag", name).Warn("Flag refresh failed")
			continue
		}

		if j.sink != nil {
			if err := j.sink.Publish(ctx, f); err != nil {
				failed++
				j.logger.WithError(err).WithField("flag", name).Warn("Flag store failed")
				continue
			}
		}
		if j.announcer != nil {
			j.announcer.Publish(f)
		}
	}

	if failed == len(j.names) && failed > 0 {
		return fmt.Errorf("all %d flag refreshes failed", failed)
	}
	return nil
}
