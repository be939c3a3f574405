package inference

import (
	"errors"
	"fmt"
	"math"

	"pipeline-guard/internal/domain"
)

// Scaler applies training-time scaling. Implementations never refit.
type Scaler interface {
	Transform(v domain.FeatureVector) domain.FeatureVector
}

// Predictor returns the class id for a scaled vector.
type Predictor interface {
	Predict(v domain.FeatureVector) (int, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(v domain.FeatureVector) (int, error)

// Predict calls f(v).
func (f PredictorFunc) Predict(v domain.FeatureVector) (int, error) {
	return f(v)
}

// IdentityScaler leaves vectors unchanged.
type IdentityScaler struct{}

// Transform returns v.
func (IdentityScaler) Transform(v domain.FeatureVector) domain.FeatureVector { return v }

// Model pairs a scaler with a predictor.
type Model struct {
	Scaler    Scaler
	Predictor Predictor
}

// Predict scales v and returns the predicted class id.
func (m *Model) Predict(v domain.FeatureVector) (int, error) {
	scaler := m.Scaler
	if scaler == nil {
		scaler = IdentityScaler{}
	}
	return m.Predictor.Predict(scaler.Transform(v))
}

// StandardScaler is (x - mean) / scale with parameters fixed at training.
type StandardScaler struct {
	mean  [domain.FeatureCount]float64
	scale [domain.FeatureCount]float64
}

// NewStandardScaler validates and copies the parameters.
// A zero scale is treated as 1, matching how the training library stores
// constant features.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != int(domain.FeatureCount) || len(scale) != int(domain.FeatureCount) {
		return nil, fmt.Errorf("scaler expects %d parameters, got mean=%d scale=%d",
			domain.FeatureCount, len(mean), len(scale))
	}
	s := &StandardScaler{}
	for i := range s.mean {
		if !finite(mean[i]) || !finite(scale[i]) {
			return nil, fmt.Errorf("scaler parameter %d is not finite", i)
		}
		s.mean[i] = mean[i]
		s.scale[i] = scale[i]
		if s.scale[i] == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

// Transform scales every feature.
func (s *StandardScaler) Transform(v domain.FeatureVector) domain.FeatureVector {
	in := v.Values()
	var out [domain.FeatureCount]float64
	for i := range in {
		out[i] = (in[i] - s.mean[i]) / s.scale[i]
	}
	return domain.NewFeatureVector(out)
}

// LinearClassifier is a multinomial linear model: argmax(coef·x + intercept).
// A single coefficient row is the binary case: classes[1] when the score is
// positive, classes[0] otherwise.
type LinearClassifier struct {
	classes   []int
	coef      [][domain.FeatureCount]float64
	intercept []float64
}

// NewLinearClassifier validates shapes and copies the parameters.
func NewLinearClassifier(classes []int, coef [][]float64, intercept []float64) (*LinearClassifier, error) {
	if len(classes) < 2 {
		return nil, errors.New("classifier needs at least two classes")
	}
	rows := len(classes)
	if len(classes) == 2 && len(coef) == 1 {
		rows = 1
	}
	if len(coef) != rows || len(intercept) != rows {
		return nil, fmt.Errorf("classifier shape mismatch: %d classes, %d coef rows, %d intercepts",
			len(classes), len(coef), len(intercept))
	}

	c := &LinearClassifier{
		classes:   append([]int(nil), classes...),
		coef:      make([][domain.FeatureCount]float64, rows),
		intercept: append([]float64(nil), intercept...),
	}
	for r, row := range coef {
		if len(row) != int(domain.FeatureCount) {
			return nil, fmt.Errorf("coef row %d has %d weights, want %d", r, len(row), domain.FeatureCount)
		}
		copy(c.coef[r][:], row)
	}
	return c, nil
}

// Predict returns the class with the highest decision score.
func (c *LinearClassifier) Predict(v domain.FeatureVector) (int, error) {
	x := v.Values()
	scores := make([]float64, len(c.coef))
	for r := range c.coef {
		s := c.intercept[r]
		for i, w := range c.coef[r] {
			s += w * x[i]
		}
		if !finite(s) {
			return 0, fmt.Errorf("decision score for row %d is not finite", r)
		}
		scores[r] = s
	}

	if len(scores) == 1 {
		if scores[0] > 0 {
			return c.classes[1], nil
		}
		return c.classes[0], nil
	}

	best := 0
	for r := 1; r < len(scores); r++ {
		if scores[r] > scores[best] {
			best = r
		}
	}
	return c.classes[best], nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
