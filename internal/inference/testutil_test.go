package inference

import (
	"encoding/json"
	"testing"

	"pipeline-guard/internal/domain"
)

// testArtifact returns an identity-scaled model that reacts to pressure and
// flow diffs:
//
//	class 0: score 0
//	class 1: -flow_diff - 1
//	class 2: pressure_diff - 1
func testArtifact() Artifact {
	var a Artifact
	a.FeatureNames = domain.FeatureNames[:]
	a.Scaler.Mean = make([]float64, domain.FeatureCount)
	a.Scaler.Scale = make([]float64, domain.FeatureCount)
	for i := range a.Scaler.Scale {
		a.Scaler.Scale[i] = 1
	}
	a.Classes = []int{0, 1, 2}
	a.Coef = [][]float64{
		make([]float64, domain.FeatureCount),
		make([]float64, domain.FeatureCount),
		make([]float64, domain.FeatureCount),
	}
	a.Coef[1][domain.FeatureFlowRateDiff] = -1
	a.Coef[2][domain.FeaturePressureDiff] = 1
	a.Intercept = []float64{0, -1, -1}
	return a
}

func testArtifactJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(testArtifact())
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return data
}

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := ParseArtifact(testArtifactJSON(t))
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}
	return m
}

// spikeVector is the vector produced by the reference spike sequence
// (1.0,2.0,20) (1.1,2.1,20) (1.2,2.0,21) (1.3,2.2,21) (5.0,0.1,21).
func spikeVector() domain.FeatureVector {
	return domain.NewFeatureVectorFromSignals(
		domain.SignalFeatures{Raw: 5.0, RollMean: 1.92, RollStd: 1.7254, Lag1: 1.3, Diff: 3.7},
		domain.SignalFeatures{Raw: 0.1, RollMean: 1.68, RollStd: 0.8871, Lag1: 2.2, Diff: -2.1},
		domain.SignalFeatures{Raw: 21, RollMean: 20.6, RollStd: 0.5477, Lag1: 21, Diff: 0},
	)
}

// calmVector is a steady-state vector classified as no leak.
func calmVector() domain.FeatureVector {
	return domain.NewFeatureVectorFromSignals(
		domain.SignalFeatures{Raw: 1.2, RollMean: 1.2, RollStd: 0.01, Lag1: 1.2, Diff: 0},
		domain.SignalFeatures{Raw: 2.0, RollMean: 2.0, RollStd: 0.01, Lag1: 2.0, Diff: 0},
		domain.SignalFeatures{Raw: 20, RollMean: 20, RollStd: 0.1, Lag1: 20, Diff: 0},
	)
}
