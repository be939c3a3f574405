package features

import (
	"math"
	"testing"
)

func TestRollingWindow(t *testing.T) {
	var w RollingWindow

	if _, ok := w.Last(); ok {
		t.Fatal("empty window should have no last value")
	}
	if !math.IsNaN(w.Mean()) || !math.IsNaN(w.Std()) {
		t.Fatal("empty window stats should be NaN")
	}

	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7} {
		w.Push(v)
	}

	if !w.Full() || w.Len() != WindowSize {
		t.Fatalf("window should be full, len=%d", w.Len())
	}
	if last, _ := w.Last(); last != 7 {
		t.Errorf("Last = %v, want 7", last)
	}
	// holds 3..7
	if got := w.Mean(); got != 5 {
		t.Errorf("Mean = %v, want 5", got)
	}
	if got, want := w.Std(), math.Sqrt(2.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("Std = %v, want %v", got, want)
	}
}

func TestRollingWindow_SingleValueStdUndefined(t *testing.T) {
	var w RollingWindow
	w.Push(3)
	if !math.IsNaN(w.Std()) {
		t.Errorf("Std of one value = %v, want NaN", w.Std())
	}
	if w.Mean() != 3 {
		t.Errorf("Mean = %v, want 3", w.Mean())
	}
}
