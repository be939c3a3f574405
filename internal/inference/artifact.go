package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"pipeline-guard/internal/domain"
)

// Artifact is the exported model: a standard scaler plus a linear classifier.
//
//	{
//	  "feature_names": ["Pressure (bar)", ...],
//	  "scaler":    {"mean": [...15], "scale": [...15]},
//	  "classes":   [0, 1, 2],
//	  "coef":      [[...15], [...15], [...15]],
//	  "intercept": [...]
//	}
type Artifact struct {
	FeatureNames []string `json:"feature_names"`
	Scaler       struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	Classes   []int       `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// ParseArtifact decodes and validates an artifact.
// feature_names must list the canonical features in canonical order.
func ParseArtifact(data []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	if len(a.FeatureNames) != int(domain.FeatureCount) {
		return nil, fmt.Errorf("artifact lists %d features, want %d", len(a.FeatureNames), domain.FeatureCount)
	}
	for i, name := range a.FeatureNames {
		if name != domain.FeatureNames[i] {
			return nil, fmt.Errorf("artifact feature %d is %q, want %q", i, name, domain.FeatureNames[i])
		}
	}

	scaler, err := NewStandardScaler(a.Scaler.Mean, a.Scaler.Scale)
	if err != nil {
		return nil, fmt.Errorf("artifact scaler: %w", err)
	}
	clf, err := NewLinearClassifier(a.Classes, a.Coef, a.Intercept)
	if err != nil {
		return nil, fmt.Errorf("artifact classifier: %w", err)
	}
	return &Model{Scaler: scaler, Predictor: clf}, nil
}

// ObjectGetter is the subset of the S3 API used to fetch artifacts.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// LoadOptions configures LoadArtifact.
type LoadOptions struct {
	// S3 overrides the client used for s3:// locations.
	S3 ObjectGetter
	// Region is used when S3 is nil. Defaults to AWS_REGION, then eu-west-1.
	Region string
}

// LoadArtifact reads an artifact from a file path or an s3://bucket/key URL.
func LoadArtifact(ctx context.Context, location string, opts LoadOptions) (*Model, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "s3://") {
		data, err = readS3(ctx, location, opts)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", location, err)
	}
	return ParseArtifact(data)
}

func readS3(ctx context.Context, location string, opts LoadOptions) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse s3 url: %w", err)
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 url must be s3://bucket/key")
	}

	svc := opts.S3
	if svc == nil {
		region := opts.Region
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			region = "eu-west-1"
		}
		sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		svc = s3.New(sess)
	}

	out, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	return data, nil
}
