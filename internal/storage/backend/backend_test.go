package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/internal/storage/csvlog"
	"pipeline-guard/internal/storage/memory"
)

func TestOpenSampleLog(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "log.csv")
	l, cleanup, err := OpenSampleLog(ctx, Config{Backend: CSV, CSVPath: path})
	require.NoError(t, err)
	defer cleanup()
	csvLog, ok := l.(*csvlog.Log)
	require.True(t, ok)
	assert.Equal(t, path, csvLog.Path())

	l, cleanup, err = OpenSampleLog(ctx, Config{Backend: Memory})
	require.NoError(t, err)
	defer cleanup()
	_, ok = l.(*memory.SampleLog)
	assert.True(t, ok)
}

func TestOpenSampleLog_ConfigErrors(t *testing.T) {
	ctx := context.Background()

	tests := []Config{
		{Backend: CSV},
		{Backend: Postgres},
		{Backend: Clickhouse},
		{Backend: Redis},
		{Backend: "kafka"},
	}
	for _, cfg := range tests {
		_, _, err := OpenSampleLog(ctx, cfg)
		assert.Error(t, err, "backend %q", cfg.Backend)
	}
}

func TestOpenIncidentStore(t *testing.T) {
	ctx := context.Background()

	s, cleanup, err := OpenIncidentStore(ctx, Config{})
	require.NoError(t, err)
	defer cleanup()
	_, ok := s.(*memory.IncidentStore)
	assert.True(t, ok)

	_, _, err = OpenIncidentStore(ctx, Config{Backend: Redis})
	assert.Error(t, err)
}
