package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pipeline-guard/internal/domain"
)

// InvalidInputMessage accompanies every error response.
const InvalidInputMessage = "Invalid input data"

// PredictResponse is the success body of POST /predict.
type PredictResponse struct {
	Prediction int    `json:"prediction"`
	Status     string `json:"status"`
}

// ErrorResponse is the failure body of POST /predict.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// EncodeRequest returns the request body: every canonical feature name
// mapped to its value.
func EncodeRequest(v domain.FeatureVector) map[string]float64 {
	values := v.Values()
	out := make(map[string]float64, len(values))
	for i, x := range values {
		out[domain.FeatureNames[i]] = x
	}
	return out
}

// DecodeRequest builds a vector from a request body.
// Missing keys, unknown keys and non-numeric values are rejected; nothing
// is defaulted.
func DecodeRequest(body []byte) (domain.FeatureVector, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return domain.FeatureVector{}, fmt.Errorf("%w: decode body: %v", ErrMalformedInput, err)
	}
	if raw == nil {
		return domain.FeatureVector{}, fmt.Errorf("%w: body must be a JSON object", ErrMalformedInput)
	}

	var (
		values  [domain.FeatureCount]float64
		missing []string
	)
	for i, name := range domain.FeatureNames {
		val, ok := raw[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		num, ok := val.(json.Number)
		if !ok {
			return domain.FeatureVector{}, fmt.Errorf("%w: %q is not a number", ErrMalformedInput, name)
		}
		f, err := num.Float64()
		if err != nil {
			return domain.FeatureVector{}, fmt.Errorf("%w: %q: %v", ErrMalformedInput, name, err)
		}
		values[i] = f
	}
	if len(missing) > 0 {
		return domain.FeatureVector{}, fmt.Errorf("%w: missing features: %s", ErrMalformedInput, strings.Join(missing, ", "))
	}

	if len(raw) != len(domain.FeatureNames) {
		known := make(map[string]struct{}, len(domain.FeatureNames))
		for _, name := range domain.FeatureNames {
			known[name] = struct{}{}
		}
		var extra []string
		for k := range raw {
			if _, ok := known[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return domain.FeatureVector{}, fmt.Errorf("%w: unexpected features: %s", ErrMalformedInput, strings.Join(extra, ", "))
	}

	return domain.NewFeatureVector(values), nil
}
