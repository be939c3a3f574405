// Package features derives model input vectors from raw sensor samples.
//
// Per signal (pressure, flow rate, temperature) the engineered features are:
//   - roll_mean = mean of the last 5 values, current included
//   - roll_std = sample standard deviation of the same 5 values
//   - lag_1 = previous value
//   - diff = current - previous
//
// A sample yields a vector only once 5 samples have been seen. Vectors with
// any non-finite value are dropped, never forwarded.
package features

import "pipeline-guard/internal/domain"

// Engine computes feature vectors one sample at a time.
// An Engine is not safe for concurrent use. Use one per stream.
type Engine struct {
	pressure    RollingWindow
	flow        RollingWindow
	temperature RollingWindow
	seen        int
}

// NewEngine creates an engine with empty windows.
func NewEngine() *Engine {
	return &Engine{}
}

// Seen returns the number of samples ingested.
func (e *Engine) Seen() int {
	return e.seen
}

// Reset clears all history.
func (e *Engine) Reset() {
	*e = Engine{}
}

// Ingest updates the three windows with s and returns its feature vector.
// ok is false during warm-up and when any feature is not finite.
func (e *Engine) Ingest(s domain.RawSample) (domain.FeatureVector, bool) {
	p := step(&e.pressure, s.Pressure)
	f := step(&e.flow, s.FlowRate)
	t := step(&e.temperature, s.Temperature)
	e.seen++

	if e.seen < WindowSize {
		return domain.FeatureVector{}, false
	}

	v := domain.NewFeatureVectorFromSignals(p, f, t)
	if !v.IsComplete() {
		return domain.FeatureVector{}, false
	}
	return v, true
}

// step pushes x and returns the signal features at x.
// The previous value is read before the push.
func step(w *RollingWindow, x float64) domain.SignalFeatures {
	prev, hasPrev := w.Last()
	w.Push(x)

	sf := domain.SignalFeatures{
		Raw:      x,
		RollMean: w.Mean(),
		RollStd:  w.Std(),
	}
	if hasPrev {
		sf.Lag1 = prev
		sf.Diff = x - prev
	}
	return sf
}
