package featurecache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

func samplePartial() features.Partial {
	return features.Partial{
		CaseType: features.LLM(features.MVARearEnd),
		Booleans: features.PartialBooleans{
			RearEnded:        features.LLM(true),
			AdmissionOfFault: features.LLM(false),
		},
		Numbers: features.PartialNumbers{
			PeakPain: features.LLM(7),
		},
		Strings: features.PartialStrings{
			InjurySites:     features.LLM([]string{"neck", "back"}),
			IncidentDateISO: features.LLM("2024-01-12"),
		},
		Evidence: features.LLM(map[string]features.Evidence{"rear_ended": {Quote: "hit me from behind"}}),
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache(0, 0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", samplePartial()))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePartial(), got)
}

func TestMemoryCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Hour, 0)
	c.now = clock.Now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", samplePartial()))

	clock.Advance(59 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok, "entry should still be live")

	clock.Advance(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry should be expired")
	assert.Zero(t, c.Len())
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(0, 0)
	c.now = clock.Now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", samplePartial()))
	clock.Advance(365 * 24 * time.Hour)

	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(0, 2)
	c.now = clock.Now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", samplePartial()))
	clock.Advance(time.Second)
	require.NoError(t, c.Set(ctx, "b", samplePartial()))
	clock.Advance(time.Second)

	// Touch a so b becomes least recently used.
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	clock.Advance(time.Second)

	require.NoError(t, c.Set(ctx, "c", samplePartial()))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCache_ReplaceAtCapacityDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(0, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", samplePartial()))
	require.NoError(t, c.Set(ctx, "b", samplePartial()))
	require.NoError(t, c.Set(ctx, "a", features.Partial{}))

	assert.Equal(t, 2, c.Len())
	got, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	assert.True(t, got.IsEmpty())
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(0, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", samplePartial()))
	c.Clear()

	assert.Zero(t, c.Len())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(time.Minute, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k-%d-%d", i, j%10)
				_ = c.Set(ctx, key, samplePartial())
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

func TestMemoryCache_Metrics(t *testing.T) {
	m := NewMetrics()
	c := NewMemoryCache(0, 0)
	c.SetMetrics(m)
	ctx := context.Background()

	hits := testutil.ToFloat64(m.HitsTotal.WithLabelValues(BackendMemory))
	misses := testutil.ToFloat64(m.MissesTotal.WithLabelValues(BackendMemory))

	_, _, _ = c.Get(ctx, "missing")
	require.NoError(t, c.Set(ctx, "k", samplePartial()))
	_, _, _ = c.Get(ctx, "k")

	assert.Equal(t, hits+1, testutil.ToFloat64(m.HitsTotal.WithLabelValues(BackendMemory)))
	assert.Equal(t, misses+1, testutil.ToFloat64(m.MissesTotal.WithLabelValues(BackendMemory)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Size.WithLabelValues(BackendMemory)))
}

func TestLRUCache(t *testing.T) {
	c, err := NewLRUCache(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", samplePartial()))
	require.NoError(t, c.Set(ctx, "b", samplePartial()))
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, "c", samplePartial()))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")

	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePartial(), got)
}

func TestLRUCache_InvalidSize(t *testing.T) {
	_, err := NewLRUCache(0, time.Minute)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(ctx, Config{Backend: BackendLRU, MaxEntries: 10})
	require.NoError(t, err)
	assert.IsType(t, &LRUCache{}, c)

	_, err = New(ctx, Config{Backend: "memcached"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendRedis})
	assert.Error(t, err, "redis without an address must fail")
}

func TestDigest(t *testing.T) {
	assert.Len(t, digest("v3.2.0|rules|model|42|2024-01-20|text"), 64)
	assert.NotEqual(t, digest("a"), digest("b"))
}

func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TRIAGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRIAGE_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := redisAddr(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{
		Addr:   addr,
		Prefix: fmt.Sprintf("intaketriage:test:%d:", time.Now().UnixNano()),
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", samplePartial()))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePartial(), got)
}

func TestRedisCache_CorruptValueIsMiss(t *testing.T) {
	addr := redisAddr(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{
		Addr:   addr,
		Prefix: fmt.Sprintf("intaketriage:test:%d:", time.Now().UnixNano()),
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.client.Set(ctx, c.redisKey("k"), "{not json", time.Minute).Err())

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
