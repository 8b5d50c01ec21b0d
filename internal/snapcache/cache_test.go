package snapcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
)

func testSnapshot(name string) *catalog.Snapshot {
	return &catalog.Snapshot{
		Channels: []catalog.Channel{{
			ID:       "ch_1",
			Name:     name,
			Variants: []catalog.QualityVariant{{Tier: catalog.TierHD, URL: "http://x/hd"}},
		}},
		BuiltAt: time.Now().UTC(),
	}
}

func countingBuilder(calls *atomic.Int64, snap *catalog.Snapshot) Builder {
	return func(ctx context.Context) (*catalog.Snapshot, error) {
		calls.Add(1)
		return snap, nil
	}
}

func TestCache_hitAfterBuild(t *testing.T) {
	c := New(Options{}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	first, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	second, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_concurrentCallersCoalesce(t *testing.T) {
	c := New(Options{}, nil, zerolog.Nop())

	var calls atomic.Int64
	release := make(chan struct{})
	build := func(ctx context.Context) (*catalog.Snapshot, error) {
		calls.Add(1)
		<-release
		return testSnapshot("a"), nil
	}

	const n = 16
	var wg sync.WaitGroup
	started := make(chan struct{}, n)
	results := make([]*catalog.Snapshot, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			snap, err := c.GetOrBuild(context.Background(), "fp", false, build)
			require.NoError(t, err)
			results[i] = snap
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	// All callers are past the cache miss; let the single build finish.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent callers must share one build")
	for _, snap := range results {
		assert.Same(t, results[0], snap)
	}
}

func TestCache_ttlExpiryRebuilds(t *testing.T) {
	c := New(Options{TTL: 30 * time.Millisecond, MinRefresh: time.Millisecond}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	_, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_forceWithinMinRefreshSuppressed(t *testing.T) {
	c := New(Options{TTL: time.Hour, MinRefresh: time.Hour}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	first, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	second, err := c.GetOrBuild(ctx, "fp", true, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "force within MinRefresh must not rebuild")
}

func TestCache_forcePastMinRefreshRebuilds(t *testing.T) {
	c := New(Options{TTL: time.Hour, MinRefresh: 10 * time.Millisecond}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	_, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.GetOrBuild(ctx, "fp", true, build)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_staleServedWhenRebuildFails(t *testing.T) {
	c := New(Options{TTL: 20 * time.Millisecond, MinRefresh: time.Millisecond}, nil, zerolog.Nop())

	good := testSnapshot("a")
	var fail atomic.Bool
	build := func(ctx context.Context) (*catalog.Snapshot, error) {
		if fail.Load() {
			return nil, errors.New("provider down")
		}
		return good, nil
	}

	ctx := context.Background()
	_, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)

	fail.Store(true)
	time.Sleep(30 * time.Millisecond)
	snap, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err, "stale entry must keep serving through a failed rebuild")
	assert.Same(t, good, snap)
}

func TestCache_initialBuildFailureSurfaces(t *testing.T) {
	c := New(Options{}, nil, zerolog.Nop())
	wantErr := errors.New("provider down")
	_, err := c.GetOrBuild(context.Background(), "fp", false, func(ctx context.Context) (*catalog.Snapshot, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestCache_lruEviction(t *testing.T) {
	c := New(Options{MaxEntries: 2, TTL: time.Hour}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	for _, fp := range []string{"fp1", "fp2", "fp3"} {
		_, err := c.GetOrBuild(ctx, fp, false, build)
		require.NoError(t, err)
	}
	require.Equal(t, int64(3), calls.Load())

	// fp1 was evicted, fp3 was not.
	_, err := c.GetOrBuild(ctx, "fp3", false, build)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())

	_, err = c.GetOrBuild(ctx, "fp1", false, build)
	require.NoError(t, err)
	assert.Equal(t, int64(4), calls.Load())
}

func TestCache_invalidate(t *testing.T) {
	c := New(Options{TTL: time.Hour}, nil, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	ctx := context.Background()
	_, err := c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	c.Invalidate("fp")
	_, err = c.GetOrBuild(ctx, "fp", false, build)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

// failingStore always errors, standing in for an unreachable backend.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, &BackendError{Backend: "test", Op: "get", Err: errors.New("unreachable")}
}

func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return &BackendError{Backend: "test", Op: "set", Err: errors.New("unreachable")}
}

func TestCache_sharedStoreFailureIsBestEffort(t *testing.T) {
	c := New(Options{}, failingStore{}, zerolog.Nop())
	var calls atomic.Int64
	build := countingBuilder(&calls, testSnapshot("a"))

	snap, err := c.GetOrBuild(context.Background(), "fp", false, build)
	require.NoError(t, err, "shared store failure must not fail the request")
	assert.NotNil(t, snap)
	assert.Equal(t, int64(1), calls.Load())
}
