// Package redis keeps the classified sample log in a Redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// DefaultKey is the list key used when Options.Key is empty.
const DefaultKey = "pipeline-guard:samples"

// Options configures a SampleLog.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string // list key, DefaultKey if empty
	MaxLen   int64  // keep only the newest MaxLen rows, 0 keeps all
}

// SampleLog implements storage.SampleLog as RPUSH/LRANGE over one list.
type SampleLog struct {
	client *goredis.Client
	key    string
	maxLen int64
}

// Compile-time interface check.
var _ storage.SampleLog = (*SampleLog)(nil)

// NewSampleLog connects and verifies the server with a ping.
func NewSampleLog(ctx context.Context, opts Options) (*SampleLog, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newSampleLog(client, opts), nil
}

func newSampleLog(client *goredis.Client, opts Options) *SampleLog {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	return &SampleLog{client: client, key: key, maxLen: opts.MaxLen}
}

// Append pushes one JSON-encoded sample to the tail of the list.
func (l *SampleLog) Append(ctx context.Context, s *domain.ClassifiedSample) error {
	if s == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("append sample: %w: %v", storage.ErrLogUnavailable, err)
	}

	if l.maxLen > 0 {
		if err := l.client.LTrim(ctx, l.key, -l.maxLen, -1).Err(); err != nil {
			return fmt.Errorf("trim sample log: %w", err)
		}
	}
	return nil
}

// ReadAll returns the whole list in push order.
func (l *SampleLog) ReadAll(ctx context.Context) ([]*domain.ClassifiedSample, error) {
	return l.lrange(ctx, 0, -1)
}

// Tail returns the last n entries.
func (l *SampleLog) Tail(ctx context.Context, n int) ([]*domain.ClassifiedSample, error) {
	if n <= 0 {
		return []*domain.ClassifiedSample{}, nil
	}
	return l.lrange(ctx, -int64(n), -1)
}

// Close closes the client.
func (l *SampleLog) Close() error {
	return l.client.Close()
}

func (l *SampleLog) lrange(ctx context.Context, start, stop int64) ([]*domain.ClassifiedSample, error) {
	items, err := l.client.LRange(ctx, l.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read sample log: %w: %v", storage.ErrLogUnavailable, err)
	}

	result := make([]*domain.ClassifiedSample, 0, len(items))
	for i, item := range items {
		var s domain.ClassifiedSample
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
		result = append(result, &s)
	}
	return result, nil
}
