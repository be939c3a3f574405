package domain

import "time"

// RawSample is one timestamped sensor reading.
type RawSample struct {
	Time        time.Time
	Pressure    float64 // bar
	FlowRate    float64 // L/s
	Temperature float64 // °C
}

// ClassifiedSample is the inference result for one FeatureVector.
// Corresponds to one row of the prediction log. Never mutated after append.
type ClassifiedSample struct {
	Time     time.Time     `json:"time"`
	Pressure float64       `json:"pressure"`
	FlowRate float64       `json:"flow_rate"`
	Status   string        `json:"prediction_status"`
	Class    SeverityClass `json:"prediction_class"`
}

// IsLeak reports whether the sample was classified as anything but NoLeak.
func (s ClassifiedSample) IsLeak() bool {
	return s.Class != SeverityNoLeak
}

// SameAs reports whether both values describe the same log entry.
func (s ClassifiedSample) SameAs(o ClassifiedSample) bool {
	return s.Time.Equal(o.Time) &&
		s.Pressure == o.Pressure &&
		s.FlowRate == o.FlowRate &&
		s.Status == o.Status &&
		s.Class == o.Class
}
