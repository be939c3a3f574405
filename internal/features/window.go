package features

import "math"

// WindowSize is the rolling window length used at training time.
const WindowSize = 5

// RollingWindow is a bounded ring of the most recent WindowSize values.
// Statistics are recomputed from the buffer on every call.
type RollingWindow struct {
	buf   [WindowSize]float64
	next  int // slot for the next Push
	count int // values held, at most WindowSize
}

// Push adds v, evicting the oldest value when full.
func (w *RollingWindow) Push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % WindowSize
	if w.count < WindowSize {
		w.count++
	}
}

// Len returns the number of values held.
func (w *RollingWindow) Len() int {
	return w.count
}

// Full reports whether the window holds WindowSize values.
func (w *RollingWindow) Full() bool {
	return w.count == WindowSize
}

// Last returns the most recently pushed value.
func (w *RollingWindow) Last() (float64, bool) {
	if w.count == 0 {
		return 0, false
	}
	return w.buf[(w.next+WindowSize-1)%WindowSize], true
}

// Mean returns the arithmetic mean, NaN when empty.
func (w *RollingWindow) Mean() float64 {
	if w.count == 0 {
		return math.NaN()
	}
	return mean(w.values())
}

// Std returns the sample standard deviation (n-1), NaN with fewer than 2 values.
func (w *RollingWindow) Std() float64 {
	return sampleStd(w.values())
}

// values returns the held values oldest first.
func (w *RollingWindow) values() []float64 {
	out := make([]float64, 0, w.count)
	start := (w.next - w.count + WindowSize) % WindowSize
	for i := 0; i < w.count; i++ {
		out = append(out, w.buf[(start+i)%WindowSize])
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
