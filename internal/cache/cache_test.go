package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type summary struct {
	Total  int            `json:"total"`
	Stages map[string]int `json:"stages"`
}

func TestGetOrCompute_CachesUntilExpiry(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	c := New(backend, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (summary, error) {
		calls++
		return summary{Total: calls, Stages: map[string]int{"signed": 2}}, nil
	}

	first, err := GetOrCompute(ctx, c, "stats", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	second, err := GetOrCompute(ctx, c, "stats", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Total)
	assert.Equal(t, 2, second.Stages["signed"])
	assert.Equal(t, 1, calls)

	now = now.Add(time.Minute)

	third, err := GetOrCompute(ctx, c, "stats", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Total)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := New(NewMemoryBackend(), zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	_, err := GetOrCompute(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	require.Error(t, err)

	v, err := GetOrCompute(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingBackend) Close() error { return nil }

func TestGetOrCompute_BackendFailureFallsBackToCompute(t *testing.T) {
	c := New(failingBackend{}, zaptest.NewLogger(t).Sugar())

	v, err := GetOrCompute(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestNewRedisBackend_InvalidURL(t *testing.T) {
	_, err := NewRedisBackend("not-a-url")
	assert.Error(t, err)
}
