package reporting

import (
	"sort"
	"time"
)

// percentile uses linear interpolation.
// sorted must be pre-sorted ASC. p is in [0, 1].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// durationStats returns median, p90 and max of ds.
func durationStats(ds []time.Duration) (median, p90, maxD time.Duration) {
	if len(ds) == 0 {
		return 0, 0, 0
	}
	secs := make([]float64, len(ds))
	for i, d := range ds {
		secs[i] = d.Seconds()
	}
	sort.Float64s(secs)

	toDuration := func(s float64) time.Duration {
		return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
	}
	return toDuration(percentile(secs, 0.5)), toDuration(percentile(secs, 0.9)), toDuration(secs[len(secs)-1])
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
