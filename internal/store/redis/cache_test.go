package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketdash/internal/model"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg CacheConfig) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, cfg)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func sampleOutput() *model.AlignedOutput {
	ts := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	return &model.AlignedOutput{
		Key:    "SMA_2",
		ID:     "SMA",
		Lines:  []string{"value"},
		Offset: 1,
		Points: []model.AlignedPoint{
			{TS: ts, Values: []float64{10.5}},
			{TS: ts.Add(time.Minute), Values: []float64{11.5}},
		},
	}
}

func TestCache_MissIsNil(t *testing.T) {
	c, _ := newTestCache(t, CacheConfig{})
	out, err := c.GetOutput(context.Background(), model.OutputKey("X:1m:1-2:2", "SMA_2"))
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, StateClosed, c.Breaker().CurrentState())
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, mr := newTestCache(t, CacheConfig{TTL: time.Minute})
	ctx := context.Background()
	key := model.OutputKey("X:1m:1-2:2", "SMA_2")

	require.NoError(t, c.SetOutput(ctx, key, sampleOutput()))
	got, err := c.GetOutput(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleOutput(), got)

	// TTL applies
	mr.FastForward(2 * time.Minute)
	got, err = c.GetOutput(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_SetOutputsPipeline(t *testing.T) {
	c, mr := newTestCache(t, CacheConfig{})
	ctx := context.Background()
	outs := map[string]*model.AlignedOutput{
		model.OutputKey("fp", "SMA_2"): sampleOutput(),
		model.OutputKey("fp", "EMA_2"): sampleOutput(),
	}
	require.NoError(t, c.SetOutputs(ctx, outs))
	assert.True(t, mr.Exists("ind:out:fp:SMA_2"))
	assert.True(t, mr.Exists("ind:out:fp:EMA_2"))
	assert.NoError(t, c.SetOutputs(ctx, nil))
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, CacheConfig{})
	require.NoError(t, mr.Set("ind:out:fp:SMA_2", "{not json"))
	_, err := c.GetOutput(context.Background(), "ind:out:fp:SMA_2")
	assert.Error(t, err)
}

func TestCache_BreakerOpensWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t, CacheConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	ctx := context.Background()
	mr.Close()

	for i := 0; i < 2; i++ {
		_, err := c.GetOutput(ctx, "k")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCircuitOpen))
	}
	_, err := c.GetOutput(ctx, "k")
	assert.True(t, errors.Is(err, ErrCircuitOpen), "got %v", err)
	assert.True(t, errors.Is(c.SetOutput(ctx, "k", sampleOutput()), ErrCircuitOpen))
	assert.Equal(t, StateOpen, c.Breaker().CurrentState())
}
