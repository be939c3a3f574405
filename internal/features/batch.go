package features

import "pipeline-guard/internal/domain"

// Row is one feature-engineered sample.
type Row struct {
	Index  int // position of Sample in the input sequence
	Sample domain.RawSample
	Vector domain.FeatureVector
}

// ComputeBatch computes features over a whole ordered sequence, column by
// column, and drops the first WindowSize-1 rows and any non-finite row.
// The result equals feeding the samples one by one through an Engine.
func ComputeBatch(samples []domain.RawSample) []Row {
	n := len(samples)
	if n < WindowSize {
		return nil
	}

	pressure := make([]float64, n)
	flow := make([]float64, n)
	temperature := make([]float64, n)
	for i, s := range samples {
		pressure[i] = s.Pressure
		flow[i] = s.FlowRate
		temperature[i] = s.Temperature
	}

	rows := make([]Row, 0, n-WindowSize+1)
	for i := WindowSize - 1; i < n; i++ {
		v := domain.NewFeatureVectorFromSignals(
			column(pressure, i),
			column(flow, i),
			column(temperature, i),
		)
		if !v.IsComplete() {
			continue
		}
		rows = append(rows, Row{Index: i, Sample: samples[i], Vector: v})
	}
	return rows
}

// column returns the features of xs at i. Requires i >= WindowSize-1.
func column(xs []float64, i int) domain.SignalFeatures {
	win := xs[i-WindowSize+1 : i+1]
	return domain.SignalFeatures{
		Raw:      xs[i],
		RollMean: mean(win),
		RollStd:  sampleStd(win),
		Lag1:     xs[i-1],
		Diff:     xs[i] - xs[i-1],
	}
}
