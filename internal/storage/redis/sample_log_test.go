package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// setupRedis starts a Redis container and returns its address.
func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func TestSampleLog_AppendReadTail(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	log, err := NewSampleLog(ctx, Options{Addr: addr, Key: "test:samples"})
	require.NoError(t, err)
	defer log.Close()

	empty, err := log.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		class := domain.SeverityClass(i)
		require.NoError(t, log.Append(ctx, &domain.ClassifiedSample{
			Time:     base.Add(time.Duration(i) * time.Second),
			Pressure: float64(i) + 0.5,
			FlowRate: 2,
			Status:   domain.StatusText(class),
			Class:    class,
		}))
	}

	all, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.StatusMajorLeak, all[2].Status)
	assert.True(t, all[0].Time.Equal(base))

	tail, err := log.Tail(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 2.5, tail[0].Pressure)
}

func TestSampleLog_MaxLen(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	log, err := NewSampleLog(ctx, Options{Addr: addr, Key: "test:bounded", MaxLen: 2})
	require.NoError(t, err)
	defer log.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, &domain.ClassifiedSample{Pressure: float64(i)}))
	}

	all, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 3.0, all[0].Pressure)
	assert.Equal(t, 4.0, all[1].Pressure)
}

func TestSampleLog_Unreachable(t *testing.T) {
	_, err := NewSampleLog(context.Background(), Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestSampleLog_ReadAfterServerGone(t *testing.T) {
	addr, cleanup := setupRedis(t)

	ctx := context.Background()
	log, err := NewSampleLog(ctx, Options{Addr: addr})
	require.NoError(t, err)
	defer log.Close()

	cleanup()

	_, err = log.ReadAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrLogUnavailable), "got %v", err)
}
