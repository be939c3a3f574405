package domain

import "math"

// FeatureIndex is the position of a feature inside a FeatureVector.
// The order is fixed by the trained model, which sees positions, not names.
type FeatureIndex int

// Canonical feature order. Do not reorder.
const (
	FeaturePressure FeatureIndex = iota
	FeatureFlowRate
	FeatureTemperature
	FeaturePressureRollMean
	FeaturePressureRollStd
	FeaturePressureLag1
	FeaturePressureDiff
	FeatureFlowRateRollMean
	FeatureFlowRateRollStd
	FeatureFlowRateLag1
	FeatureFlowRateDiff
	FeatureTemperatureRollMean
	FeatureTemperatureRollStd
	FeatureTemperatureLag1
	FeatureTemperatureDiff

	// FeatureCount is the number of features the model expects.
	FeatureCount
)

// Column names of the raw sensor signals, as used in the training dataset.
const (
	ColumnPressure    = "Pressure (bar)"
	ColumnFlowRate    = "Flow Rate (L/s)"
	ColumnTemperature = "Temperature (°C)"
)

// FeatureNames holds the wire name of every feature, indexed by FeatureIndex.
var FeatureNames = [FeatureCount]string{
	ColumnPressure,
	ColumnFlowRate,
	ColumnTemperature,
	ColumnPressure + "_roll_mean",
	ColumnPressure + "_roll_std",
	ColumnPressure + "_lag_1",
	ColumnPressure + "_diff",
	ColumnFlowRate + "_roll_mean",
	ColumnFlowRate + "_roll_std",
	ColumnFlowRate + "_lag_1",
	ColumnFlowRate + "_diff",
	ColumnTemperature + "_roll_mean",
	ColumnTemperature + "_roll_std",
	ColumnTemperature + "_lag_1",
	ColumnTemperature + "_diff",
}

// String returns the wire name of the feature.
func (i FeatureIndex) String() string {
	if i < 0 || i >= FeatureCount {
		return "unknown"
	}
	return FeatureNames[i]
}

// SignalFeatures are the engineered features of a single sensor signal.
type SignalFeatures struct {
	Raw      float64 // current value
	RollMean float64 // mean of the last 5 values, current included
	RollStd  float64 // sample std of the last 5 values
	Lag1     float64 // previous value
	Diff     float64 // current - previous
}

// FeatureVector is the fixed-shape model input.
// Values are only reachable through FeatureIndex, so the order cannot drift.
type FeatureVector struct {
	values [FeatureCount]float64
}

// NewFeatureVector builds a vector from values already in canonical order.
func NewFeatureVector(values [FeatureCount]float64) FeatureVector {
	return FeatureVector{values: values}
}

// NewFeatureVectorFromSignals lays out per-signal features in canonical order.
func NewFeatureVectorFromSignals(pressure, flow, temperature SignalFeatures) FeatureVector {
	var v FeatureVector
	v.values[FeaturePressure] = pressure.Raw
	v.values[FeatureFlowRate] = flow.Raw
	v.values[FeatureTemperature] = temperature.Raw

	v.values[FeaturePressureRollMean] = pressure.RollMean
	v.values[FeaturePressureRollStd] = pressure.RollStd
	v.values[FeaturePressureLag1] = pressure.Lag1
	v.values[FeaturePressureDiff] = pressure.Diff

	v.values[FeatureFlowRateRollMean] = flow.RollMean
	v.values[FeatureFlowRateRollStd] = flow.RollStd
	v.values[FeatureFlowRateLag1] = flow.Lag1
	v.values[FeatureFlowRateDiff] = flow.Diff

	v.values[FeatureTemperatureRollMean] = temperature.RollMean
	v.values[FeatureTemperatureRollStd] = temperature.RollStd
	v.values[FeatureTemperatureLag1] = temperature.Lag1
	v.values[FeatureTemperatureDiff] = temperature.Diff
	return v
}

// Get returns the value at the given index.
func (v FeatureVector) Get(i FeatureIndex) float64 {
	return v.values[i]
}

// Values returns a copy of the values in canonical order.
func (v FeatureVector) Values() [FeatureCount]float64 {
	return v.values
}

// Pressure returns the raw pressure reading (bar).
func (v FeatureVector) Pressure() float64 { return v.values[FeaturePressure] }

// FlowRate returns the raw flow rate reading (L/s).
func (v FeatureVector) FlowRate() float64 { return v.values[FeatureFlowRate] }

// Temperature returns the raw temperature reading (°C).
func (v FeatureVector) Temperature() float64 { return v.values[FeatureTemperature] }

// IsComplete reports whether every feature is a finite number.
func (v FeatureVector) IsComplete() bool {
	for _, x := range v.values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
