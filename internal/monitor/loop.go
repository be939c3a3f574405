// Package monitor polls the prediction log, drives the alert machine and
// renders the operator view.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"pipeline-guard/internal/alert"
	"pipeline-guard/internal/observability"
	"pipeline-guard/internal/storage"
)

// DefaultInterval is the log polling period.
const DefaultInterval = time.Second

// Publisher receives every rendered view.
type Publisher interface {
	Publish(v View)
}

// Options configures a Loop.
type Options struct {
	Log       storage.SampleLog
	Machine   *alert.Machine
	Publisher Publisher // optional
	Interval  time.Duration
	ChartSize int
	Logger    *log.Logger
	Now       func() time.Time
}

// Loop re-reads the whole log on every tick. It never writes to the log.
type Loop struct {
	log       storage.SampleLog
	machine   *alert.Machine
	publisher Publisher
	interval  time.Duration
	chartSize int
	logger    *log.Logger
	now       func() time.Time

	// pollMu orders render and publish across the ticker and operator
	// requests, so a view rendered before a transition never lands after it.
	pollMu sync.Mutex

	mu       sync.RWMutex
	current  View
	lastKind ViewKind
}

// NewLoop creates a Loop. The initial view is the waiting view.
func NewLoop(opts Options) *Loop {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	chartSize := opts.ChartSize
	if chartSize <= 0 {
		chartSize = DefaultChartSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	machine := opts.Machine
	if machine == nil {
		machine = alert.NewMachine(alert.Options{Logger: logger})
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Loop{
		log:       opts.Log,
		machine:   machine,
		publisher: opts.Publisher,
		interval:  interval,
		chartSize: chartSize,
		logger:    logger,
		now:       now,
		current:   waitingView(),
	}
}

// Machine returns the alert machine driven by the loop.
func (l *Loop) Machine() *alert.Machine {
	return l.machine
}

// Current returns the most recently rendered view.
func (l *Loop) Current() View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Printf("Monitoring loop started, interval: %v", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Println("Monitoring loop stopping...")
			return ctx.Err()
		case <-ticker.C:
			l.Poll(ctx)
		}
	}
}

// Poll reads the log once, feeds the latest row to the machine and
// publishes the resulting view. Read failures become views, never errors.
// Concurrent calls run one at a time.
func (l *Loop) Poll(ctx context.Context) View {
	l.pollMu.Lock()
	defer l.pollMu.Unlock()

	v := l.render(ctx)
	v.UpdatedAt = l.now()
	observability.RecordPoll(string(v.Kind), v.Rows)

	l.mu.Lock()
	if v.Kind != l.lastKind {
		l.logger.Printf("View: %s %s%s", v.Kind, v.Banner, v.Message)
		l.lastKind = v.Kind
	}
	l.current = v
	l.mu.Unlock()

	if l.publisher != nil {
		l.publisher.Publish(v)
	}
	return v
}

func (l *Loop) render(ctx context.Context) View {
	rows, err := l.log.ReadAll(ctx)
	if err != nil {
		// A latched incident stays on screen whatever the log does.
		if snap := l.machine.Snapshot(); snap.Latched() {
			return alertView(snap, 0)
		}
		if errors.Is(err, storage.ErrLogUnavailable) {
			return logUnavailableView()
		}
		return errorView(err)
	}

	if len(rows) == 0 {
		if snap := l.machine.Snapshot(); snap.Latched() {
			return alertView(snap, 0)
		}
		return waitingView()
	}

	snap := l.machine.Observe(ctx, rows[len(rows)-1])
	if snap.Latched() {
		return alertView(snap, len(rows))
	}
	return normalView(rows, l.chartSize)
}
