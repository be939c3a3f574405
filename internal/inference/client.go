package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/observability"
)

// Result is the outcome of one classification.
// Err is nil on success; Class and Status are meaningful only then.
type Result struct {
	Class  domain.SeverityClass
	Status string
	Err    *Error
}

// OK reports whether the classification succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func success(class int) Result {
	c := domain.SeverityClass(class)
	return Result{Class: c, Status: domain.StatusText(c)}
}

func failure(err *Error) Result {
	observability.RecordPredictionError(string(err.Kind))
	return Result{Err: err}
}

// Client classifies feature vectors.
// Implementations never panic and never return a bare error: every failure
// is carried in Result.Err.
type Client interface {
	Classify(ctx context.Context, v domain.FeatureVector) Result
}

// LocalClient runs the model in-process.
type LocalClient struct {
	model *Model
}

// NewLocalClient creates a LocalClient.
func NewLocalClient(model *Model) *LocalClient {
	return &LocalClient{model: model}
}

// Compile-time interface check.
var _ Client = (*LocalClient)(nil)

// Classify scales and predicts. A panicking model becomes ErrKindModelFailure.
func (c *LocalClient) Classify(_ context.Context, v domain.FeatureVector) (res Result) {
	start := time.Now()
	if !v.IsComplete() {
		return failure(newError(ErrKindMalformedInput, "feature vector contains non-finite values"))
	}

	defer func() {
		if r := recover(); r != nil {
			res = failure(newError(ErrKindModelFailure, "model panic: %v", r))
		}
	}()

	class, err := c.model.Predict(v)
	if err != nil {
		return failure(newError(ErrKindModelFailure, "%v", err))
	}
	observability.RecordPrediction("local", class, time.Since(start).Seconds())
	return success(class)
}

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// HTTPClient posts vectors to an inference service.
// Each call is a single attempt; there is no retry.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a client for the given /predict URL.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Endpoint returns the target URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Classify sends one request.
//
// Mapping:
//   - connection failure, timeout, 502/503/504 -> TransportUnavailable
//   - any other non-2xx without an "error" body (wrong path, 405, 5xx) -> TransportUnavailable
//   - body with "error" and status 400 -> MalformedInput
//   - any other body with "error", or an unusable 2xx body -> ModelFailure
func (c *HTTPClient) Classify(ctx context.Context, v domain.FeatureVector) Result {
	start := time.Now()

	body, err := json.Marshal(EncodeRequest(v))
	if err != nil {
		// NaN and Inf are not representable in JSON.
		return failure(newError(ErrKindMalformedInput, "encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(newError(ErrKindTransportUnavailable, "build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return failure(newError(ErrKindTransportUnavailable, "post %s: %v", c.endpoint, err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return failure(newError(ErrKindTransportUnavailable, "inference service returned %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return failure(newError(ErrKindTransportUnavailable, "read response: %v", err))
	}

	okStatus := resp.StatusCode >= 200 && resp.StatusCode < 300

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &fields); err != nil {
		if !okStatus {
			return failure(newError(ErrKindTransportUnavailable, "post %s: status %d", c.endpoint, resp.StatusCode))
		}
		return failure(newError(ErrKindModelFailure, "decode response: %v", err))
	}

	_, hasError := fields["error"]
	if !okStatus && !hasError {
		return failure(newError(ErrKindTransportUnavailable, "post %s: status %d", c.endpoint, resp.StatusCode))
	}
	if hasError {
		var er ErrorResponse
		_ = json.Unmarshal(respBody, &er)
		kind := ErrKindModelFailure
		if resp.StatusCode == http.StatusBadRequest {
			kind = ErrKindMalformedInput
		}
		return failure(newError(kind, "%s: %s", er.Message, er.Error))
	}

	raw, ok := fields["prediction"]
	if !ok {
		return failure(newError(ErrKindModelFailure, "response has no prediction"))
	}
	var class int
	if err := json.Unmarshal(raw, &class); err != nil {
		return failure(newError(ErrKindModelFailure, "prediction is not an integer: %s", raw))
	}

	observability.RecordPrediction("http", class, time.Since(start).Seconds())
	return success(class)
}

// AsError converts a Result failure into a Go error, nil on success.
func (r Result) AsError() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// KindOf returns the error kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// String renders the result as "<status> (Class n)" or the error text.
func (r Result) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", r.Status, r.Class)
}
