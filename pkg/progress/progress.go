// Package progress reports item throughput for a split run.
package progress

import (
	"time"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/humanfmt"
)

// Tracker reports throughput for one sequential pass over an item stream.
// The total is not known up front, so reporting is interval-based: one log
// line each time the cumulative count has advanced by at least the
// configured interval since the last report. Not safe for concurrent use;
// the split loop is single-threaded.
type Tracker struct {
	log        zerolog.Logger
	interval   int64
	now        func() time.Time
	start      time.Time
	count      int64
	lastReport int64
}

// New creates a tracker. An interval of 0 (or less) disables periodic
// reports; the final summary is emitted regardless.
func New(log zerolog.Logger, interval int64) *Tracker {
	t := &Tracker{
		log:      log,
		interval: interval,
		now:      time.Now,
	}
	t.start = t.now()
	return t
}

// Update records the cumulative item count, logging a progress line when a
// full interval has passed since the last report.
func (t *Tracker) Update(total int64) {
	t.count = total
	if t.interval <= 0 || total-t.lastReport < t.interval {
		return
	}
	t.lastReport = total

	elapsed := t.now().Sub(t.start)
	t.log.Info().
		Int64("items", total).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Str("rate", humanfmt.PerSecond(total, elapsed)).
		Msg("progress")
}

// Finish emits the end-of-run summary. It logs even for zero items, so every
// run leaves a throughput record.
func (t *Tracker) Finish() {
	elapsed := t.now().Sub(t.start)
	t.log.Info().
		Int64("items", t.count).
		Int64("duration_ms", elapsed.Milliseconds()).
		Str("duration_h", humanfmt.Duration(elapsed)).
		Str("rate", humanfmt.PerSecond(t.count, elapsed)).
		Msg("item processing complete")
}

// Count returns the last recorded cumulative count.
func (t *Tracker) Count() int64 {
	return t.count
}

// Elapsed returns time since tracking started.
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}
