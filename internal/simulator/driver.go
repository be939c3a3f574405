// Package simulator replays a slice of a historical recording through the
// feature engine and the inference client, appending each classified
// sample to the prediction log.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/features"
	"pipeline-guard/internal/inference"
	"pipeline-guard/internal/observability"
	"pipeline-guard/internal/storage"
)

// Reference replay window and cadence.
const (
	DefaultFrom     = 150
	DefaultTo       = 200
	DefaultInterval = 2 * time.Second
)

// ErrTransportUnavailable is returned when the inference service cannot be
// reached. The replay stops at the failing step.
var ErrTransportUnavailable = errors.New("inference transport unavailable")

// Stats summarises one replay.
type Stats struct {
	Sent     int  // classification attempts
	Appended int  // rows written to the log
	Skipped  int  // malformed input or model failure
	Aborted  bool // stopped early on transport, log or context failure
}

// Options configures a Driver.
type Options struct {
	Client inference.Client
	Log    storage.SampleLog

	// From and To select rows [From, To) of the feature-engineered
	// recording. A zero To selects the reference window 150..200.
	From int
	To   int

	// Stream computes features one sample at a time with a features.Engine
	// as the replay advances, instead of over the whole recording up front.
	Stream bool

	Interval time.Duration // wait between steps, default 2s
	Logger   *log.Logger
}

// Driver is the single writer of the prediction log.
type Driver struct {
	client   inference.Client
	log      storage.SampleLog
	from     int
	to       int
	stream   bool
	interval time.Duration
	logger   *log.Logger
}

// NewDriver creates a Driver.
func NewDriver(opts Options) *Driver {
	from, to := opts.From, opts.To
	if to == 0 {
		from, to = DefaultFrom, DefaultTo
	}

	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Driver{
		client:   opts.Client,
		log:      opts.Log,
		from:     from,
		to:       to,
		stream:   opts.Stream,
		interval: interval,
		logger:   logger,
	}
}

// Run computes features over samples and replays the configured window.
// Each row gets a single classification attempt. Transport failure ends the
// replay with an error wrapping ErrTransportUnavailable; other
// classification failures skip the row.
func (d *Driver) Run(ctx context.Context, samples []domain.RawSample) (Stats, error) {
	var next func() (features.Row, bool)
	from, to := max(d.from, 0), d.to

	if d.stream {
		d.logger.Printf("Streaming features for simulation of rows %d..%d.", from, to)
		next = streamRows(samples)
	} else {
		d.logger.Println("Re-creating features for simulation...")
		rows := features.ComputeBatch(samples)
		from, to = d.window(len(rows))
		d.logger.Printf("Features re-created (%d rows). Starting simulation of rows %d..%d.", len(rows), from, to)
		next = sliceRows(rows)
	}

	return d.replay(ctx, next, from, to)
}

// replay walks feature rows [from, to) as produced by next.
func (d *Driver) replay(ctx context.Context, next func() (features.Row, bool), from, to int) (Stats, error) {
	var stats Stats

	first := true
	for i := 0; i < to; i++ {
		row, ok := next()
		if !ok {
			d.logger.Printf("WARN: recording ended after %d feature rows, replay window shortened from %d to %d", i, to, i)
			break
		}
		if i < from {
			continue
		}

		if !first {
			if err := d.wait(ctx); err != nil {
				stats.Aborted = true
				observability.RecordReplay("aborted")
				d.logger.Println("Simulation stopped.")
				return stats, err
			}
		}
		first = false

		appended, err := d.step(ctx, i, row, &stats)
		if err != nil {
			stats.Aborted = true
			observability.RecordReplay("aborted")
			return stats, err
		}
		if appended {
			stats.Appended++
		} else {
			stats.Skipped++
		}
	}

	d.logger.Println("Simulation complete.")
	return stats, nil
}

func sliceRows(rows []features.Row) func() (features.Row, bool) {
	i := 0
	return func() (features.Row, bool) {
		if i >= len(rows) {
			return features.Row{}, false
		}
		i++
		return rows[i-1], true
	}
}

// streamRows feeds samples through one Engine, skipping warm-up and
// non-finite rows.
func streamRows(samples []domain.RawSample) func() (features.Row, bool) {
	engine := features.NewEngine()
	i := 0
	return func() (features.Row, bool) {
		for i < len(samples) {
			s, idx := samples[i], i
			i++
			if v, ok := engine.Ingest(s); ok {
				return features.Row{Index: idx, Sample: s, Vector: v}, true
			}
		}
		return features.Row{}, false
	}
}

// step classifies one row and appends the result. It reports whether a row
// was appended; a non-nil error aborts the replay.
func (d *Driver) step(ctx context.Context, i int, row features.Row, stats *Stats) (bool, error) {
	v := row.Vector

	d.logger.Printf("Time Step %d", i)
	d.logger.Printf("  Sending: Pressure=%.2f, Flow=%.2f", v.Pressure(), v.FlowRate())

	stats.Sent++
	res := d.client.Classify(ctx, v)
	if !res.OK() {
		if res.Err.Kind == inference.ErrKindTransportUnavailable {
			d.logger.Printf("Error: could not reach the inference service: %s", res.Err.Message)
			return false, fmt.Errorf("%w at step %d: %w", ErrTransportUnavailable, i, res.Err)
		}
		d.logger.Printf("  Skipped: %s", res.Err)
		observability.RecordReplay("skipped")
		return false, nil
	}
	observability.RecordReplay("sent")
	d.logger.Printf("  Prediction: %s", res)

	ts := row.Sample.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	sample := &domain.ClassifiedSample{
		Time:     ts,
		Pressure: v.Pressure(),
		FlowRate: v.FlowRate(),
		Status:   res.Status,
		Class:    res.Class,
	}
	if err := d.log.Append(ctx, sample); err != nil {
		return false, fmt.Errorf("append sample at step %d: %w", i, err)
	}
	observability.RecordAppend()

	return true, nil
}

// window clamps the configured range to n rows.
func (d *Driver) window(n int) (int, int) {
	from, to := max(d.from, 0), d.to
	if to > n {
		d.logger.Printf("WARN: recording has %d feature rows, replay window shortened from %d to %d", n, to, n)
		to = n
	}
	if from > to {
		from = to
	}
	return from, to
}

func (d *Driver) wait(ctx context.Context) error {
	if d.interval < 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.interval):
		return nil
	}
}
