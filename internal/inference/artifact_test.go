package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/internal/domain"
)

type fakeS3 struct {
	objects map[string][]byte
	lastIn  *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.lastIn = in
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestParseArtifact_RejectsReorderedFeatures(t *testing.T) {
	a := testArtifact()
	names := append([]string(nil), domain.FeatureNames[:]...)
	names[0], names[1] = names[1], names[0]
	a.FeatureNames = names

	data, err := json.Marshal(a)
	require.NoError(t, err)

	_, err = ParseArtifact(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want \"Pressure (bar)\"")
}

func TestParseArtifact_Invalid(t *testing.T) {
	_, err := ParseArtifact([]byte("not json"))
	assert.Error(t, err)

	a := testArtifact()
	a.Scaler.Mean = a.Scaler.Mean[:3]
	data, _ := json.Marshal(a)
	_, err = ParseArtifact(data)
	assert.Error(t, err)
}

func TestLoadArtifact_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, testArtifactJSON(t), 0o644))

	m, err := LoadArtifact(context.Background(), path, LoadOptions{})
	require.NoError(t, err)

	class, err := m.Predict(spikeVector())
	require.NoError(t, err)
	assert.Equal(t, 2, class)

	_, err = LoadArtifact(context.Background(), filepath.Join(t.TempDir(), "missing.json"), LoadOptions{})
	assert.Error(t, err)
}

func TestLoadArtifact_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"models-bucket/leak/model.json": testArtifactJSON(t),
	}}

	m, err := LoadArtifact(context.Background(), "s3://models-bucket/leak/model.json", LoadOptions{S3: fake})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "leak/model.json", aws.StringValue(fake.lastIn.Key))

	_, err = LoadArtifact(context.Background(), "s3://models-bucket/other.json", LoadOptions{S3: fake})
	assert.Error(t, err)

	_, err = LoadArtifact(context.Background(), "s3://bucket-only", LoadOptions{S3: fake})
	assert.Error(t, err)
}
