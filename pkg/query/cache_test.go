package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote unavailable")

// gate is a fetch function that blocks until released, counting its calls.
type gate struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	value   string
	err     error
}

func newGate(value string) *gate {
	return &gate{started: make(chan struct{}, 16), release: make(chan struct{}), value: value}
}

func (g *gate) fetch(ctx context.Context) (string, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	<-g.release
	return g.value, g.err
}

func counter(value string, calls *int) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		*calls++
		return value, nil
	}
}

func TestKey(t *testing.T) {
	key := Key{"POST_BY_ID", "abc"}

	assert.Equal(t, `["POST_BY_ID","abc"]`, key.String())
	assert.Equal(t, "POST_BY_ID", key.Namespace())
	assert.True(t, key.HasPrefix(Key{"POST_BY_ID"}))
	assert.True(t, key.HasPrefix(Key{}))
	assert.True(t, key.HasPrefix(key))
	assert.False(t, key.HasPrefix(Key{"POSTS"}))
	assert.False(t, key.HasPrefix(Key{"POST_BY_ID", "abc", 1}))
	assert.False(t, Key{"POSTS", 1}.HasPrefix(Key{"POSTS", "1"}))
}

func TestFetchCachesSuccess(t *testing.T) {
	c := New()
	key := Key{"RECENT_POSTS"}
	calls := 0

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), c, key, counter("posts", &calls))
		require.NoError(t, err)
		assert.Equal(t, "posts", v)
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, StatusSuccess, c.State(key).Status)
}

func TestFetchForce(t *testing.T) {
	c := New()
	key := Key{"RECENT_POSTS"}
	calls := 0

	_, err := Fetch(context.Background(), c, key, counter("a", &calls))
	require.NoError(t, err)
	v, err := Fetch(context.Background(), c, key, counter("b", &calls), Force())
	require.NoError(t, err)

	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)
}

func TestFetchSharesInFlightCall(t *testing.T) {
	c := New()
	key := Key{"POSTS"}
	g := newGate("feed")

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, key, g.fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-g.started
	assert.Equal(t, StatusPending, c.State(key).Status)
	close(g.release)
	wg.Wait()

	assert.Equal(t, int32(1), g.calls.Load())
	for _, v := range results {
		assert.Equal(t, "feed", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	calls := 0
	keys := []Key{{"POST_BY_ID", "1"}, {"POST_BY_ID", "2"}, {"RECENT_POSTS"}}
	for _, key := range keys {
		_, err := Fetch(context.Background(), c, key, counter("v", &calls))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Invalidate(Key{"POST_BY_ID"}))
	assert.Equal(t, StatusStale, c.State(keys[0]).Status)
	assert.Equal(t, StatusStale, c.State(keys[1]).Status)
	assert.Equal(t, StatusSuccess, c.State(keys[2]).Status)

	// Stale entries are not counted again.
	assert.Equal(t, 0, c.Invalidate(Key{"POST_BY_ID"}))
	assert.Equal(t, 0, c.Invalidate(Key{"SEARCH_POSTS"}))

	// Stale data stays readable until the refetch lands.
	v, ok := c.Get(keys[0])
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, err := Fetch(context.Background(), c, keys[0], counter("v2", &calls))
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, StatusSuccess, c.State(keys[0]).Status)
}

func TestFetchErrorKeepsPriorData(t *testing.T) {
	c := New()
	key := Key{"POST_BY_ID", "1"}
	calls := 0

	_, err := Fetch(context.Background(), c, key, counter("first", &calls))
	require.NoError(t, err)
	c.Invalidate(key)

	failing := func(ctx context.Context) (string, error) {
		calls++
		return "", errRemote
	}
	_, err = Fetch(context.Background(), c, key, failing)
	require.ErrorIs(t, err, errRemote)

	state := c.State(key)
	assert.Equal(t, StatusError, state.Status)
	assert.True(t, state.HasData)
	assert.ErrorIs(t, state.Err, errRemote)

	v, ok := GetData[string](c, key)
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	// The error is served from the cache until the entry is invalidated.
	_, err = Fetch(context.Background(), c, key, failing)
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, 2, calls)

	c.Invalidate(key)
	v, err = Fetch(context.Background(), c, key, counter("second", &calls))
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Nil(t, c.State(key).Err)
}

func TestInvalidateWhilePending(t *testing.T) {
	c := New()
	key := Key{"RECENT_POSTS"}
	g := newGate("old")

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := Fetch(context.Background(), c, key, g.fetch)
		assert.NoError(t, err)
		assert.Equal(t, "old", v)
	}()

	<-g.started
	assert.Equal(t, 1, c.Invalidate(key))
	assert.Equal(t, 0, c.Invalidate(key))
	close(g.release)
	<-done

	state := c.State(key)
	assert.Equal(t, StatusStale, state.Status)
	assert.True(t, state.HasData)

	calls := 0
	v, err := Fetch(context.Background(), c, key, counter("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, calls)
}

func TestLateResultAfterRemoveIsDropped(t *testing.T) {
	tests := []struct {
		name  string
		clear func(c *Cache, key Key)
	}{
		{name: "remove", clear: func(c *Cache, key Key) { c.Remove(key) }},
		{name: "clear", clear: func(c *Cache, key Key) { c.Clear() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			key := Key{"CURRENT_USER", "session-1"}
			g := newGate("user")

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = Fetch(context.Background(), c, key, g.fetch)
			}()

			<-g.started
			tt.clear(c, key)
			close(g.release)
			<-done

			assert.Equal(t, StatusEmpty, c.State(key).Status)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestFetchCallerCancel(t *testing.T) {
	c := New()
	key := Key{"POST_BY_ID", "1"}
	g := newGate("post")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, g.fetch)
		errc <- err
	}()

	<-g.started
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	close(g.release)
	require.Eventually(t, func() bool {
		return c.State(key).Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)

	v, ok := GetData[string](c, key)
	assert.True(t, ok)
	assert.Equal(t, "post", v)
}

func TestFetchRecoversPanic(t *testing.T) {
	c := New()
	key := Key{"POSTS"}

	_, err := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StatusError, c.State(key).Status)
}

func TestSetAndRemove(t *testing.T) {
	c := New()
	c.Set(Key{"POST_BY_ID", "1"}, "a")
	c.Set(Key{"POST_BY_ID", "2"}, "b")
	c.Set(Key{"POSTS"}, "feed")

	calls := 0
	v, err := Fetch(context.Background(), c, Key{"POST_BY_ID", "1"}, counter("remote", &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Zero(t, calls)

	assert.Equal(t, 2, c.Remove(Key{"POST_BY_ID"}))
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get(Key{"POST_BY_ID", "1"})
	assert.False(t, ok)
}

func TestGC(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithRetention(time.Minute), WithClock(func() time.Time { return now }))

	c.Set(Key{"RECENT_POSTS"}, "recent")
	c.Set(Key{"POSTS"}, "feed")
	release := c.Observe(Key{"POSTS"})
	assert.Equal(t, 1, c.State(Key{"POSTS"}).Subscribers)

	assert.Equal(t, 0, c.GC(now.Add(30*time.Second)))
	assert.Equal(t, 1, c.GC(now.Add(2*time.Minute)))
	assert.Equal(t, StatusEmpty, c.State(Key{"RECENT_POSTS"}).Status)
	assert.Equal(t, StatusSuccess, c.State(Key{"POSTS"}).Status)

	release()
	release()
	assert.Equal(t, 0, c.State(Key{"POSTS"}).Subscribers)
	assert.Equal(t, 1, c.GC(now.Add(2*time.Minute)))
	assert.Equal(t, 0, c.Len())
}

func TestGCDisabled(t *testing.T) {
	c := New(WithRetention(0))
	c.Set(Key{"POSTS"}, "feed")
	assert.Equal(t, 0, c.GC(time.Now().Add(24*time.Hour)))
}

func TestRunStopsWithContext(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
