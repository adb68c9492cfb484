package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string
	Items []string
}

func TestGenerateKeyDeterministic(t *testing.T) {
	a := map[string]any{}
	a["a"] = 1
	a["b"] = 2
	b := map[string]any{}
	b["b"] = 2
	b["a"] = 1
	assert.Equal(t, GenerateKey("/api/cases", a), GenerateKey("/api/cases", b))
	assert.Equal(t, "/api/cases?a=1&b=2", GenerateKey("/api/cases", a))
	assert.Equal(t, "/api/filters?", GenerateKey("/api/filters", nil))
}

func TestParamsFromValues(t *testing.T) {
	params := ParamsFromValues(map[string][]string{
		"case_type": {"Order"},
		"tags":      {"a", "b"},
		"empty":     {},
	}, map[string]any{"page": 1})
	assert.Equal(t, map[string]any{"case_type": "Order", "tags": "a,b", "page": 1}, params)
}

func TestEncodedValueIsCopied(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	data, err := Encode([]sample{{Name: "one", Items: []string{"x"}}})
	assert.NoError(t, err)
	assert.NoError(t, c.Set(ctx, "key", data, time.Minute))

	found, first, err := Get[[]sample](ctx, c, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	first[0].Items[0] = "mutated"

	found, second, err := Get[[]sample](ctx, c, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", second[0].Items[0])
}

func TestGetWrongType(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	assert.NoError(t, c.Set(ctx, "key", 42, time.Minute))
	found, _, err := Get[string](ctx, c, "key")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestExecCacheMiss(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	invoked := false
	found, val, err := Exec(ctx, CacheConfig{Key: "key", Expires: time.Minute}, c, func(ctx context.Context) (string, bool, error) {
		invoked = true
		return "fresh-value", true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh-value", val)
	assert.True(t, invoked)

	cachedFound, cached, err := Get[string](ctx, c, "key")
	assert.NoError(t, err)
	assert.True(t, cachedFound)
	assert.Equal(t, "fresh-value", cached)
}

func TestExecCacheHit(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	assert.NoError(t, c.Set(ctx, "key", "cached-value", time.Minute))

	invoked := false
	found, val, err := Exec(ctx, CacheConfig{Key: "key"}, c, func(ctx context.Context) (string, bool, error) {
		invoked = true
		return "fresh-value", true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "cached-value", val)
	assert.False(t, invoked)
}

func TestExecInvokerError(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	expectedErr := fmt.Errorf("invoke failed")
	found, val, err := Exec(ctx, CacheConfig{Key: "key", Expires: time.Minute}, c, func(ctx context.Context) (string, bool, error) {
		return "", false, expectedErr
	})
	assert.ErrorIs(t, err, expectedErr)
	assert.False(t, found)
	assert.Equal(t, "", val)

	ok, _, getErr := c.Get(ctx, "key")
	assert.NoError(t, getErr)
	assert.False(t, ok)
}

func TestExecNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(ctx)
	defer c.Close()

	calls := 0
	for i := 0; i < 2; i++ {
		found, _, err := Exec(ctx, CacheConfig{Key: "key"}, c, func(ctx context.Context) (int, bool, error) {
			calls++
			return 0, false, nil
		})
		assert.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 2, calls)
}

func TestExecCustomExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewInMemory(ctx, WithClock(clock.Now))
	defer c.Close()

	found, val, err := Exec(ctx, CacheConfig{Key: "key", Expires: 20 * time.Millisecond}, c, func(ctx context.Context) (string, bool, error) {
		return "ephemeral", true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ephemeral", val)

	clock.Advance(30 * time.Millisecond)
	cachedFound, _, err := Get[string](ctx, c, "key")
	assert.NoError(t, err)
	assert.False(t, cachedFound)
}
