package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/syntaxia/internal/errs"
)

// counter is a stub renderer that counts its invocations.
type counter struct {
	calls   atomic.Int64
	release chan struct{}
}

func (c *counter) render(v string) func() (string, error) {
	return func() (string, error) {
		c.calls.Add(1)
		if c.release != nil {
			<-c.release
		}
		return v, nil
	}
}

func newCache(t *testing.T, opts Options) *Cache[string] {
	t.Helper()
	c, err := New[string](opts)
	require.NoError(t, err)
	return c
}

func TestRenderOnceSequential(t *testing.T) {
	c := newCache(t, Options{})
	stub := &counter{}
	key := Key{Path: "README.md", Fingerprint: Fingerprint([]byte("# hi"))}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := c.GetOrRender(ctx, key, stub.render("<h1>hi</h1>"))
		require.NoError(t, err)
		assert.Equal(t, "<h1>hi</h1>", v)
	}

	assert.EqualValues(t, 1, stub.calls.Load())
	st := c.Stats()
	assert.EqualValues(t, 1, st.Misses)
	assert.EqualValues(t, 2, st.Hits)
	assert.EqualValues(t, 1, st.Renders)
	assert.Equal(t, 1, st.Entries)
}

func TestRenderOnceConcurrent(t *testing.T) {
	c := newCache(t, Options{})
	stub := &counter{release: make(chan struct{})}
	key := Key{Path: "main.rs", Fingerprint: 42}
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrRender(ctx, key, stub.render("out"))
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(stub.release)
	wg.Wait()

	assert.EqualValues(t, 1, stub.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "out", results[i])
	}
	assert.Equal(t, 1, c.Len())
}

func TestFingerprintChangeRerenders(t *testing.T) {
	c := newCache(t, Options{})
	stub := &counter{}
	ctx := context.Background()

	v, err := c.GetOrRender(ctx, Key{"a.go", Fingerprint([]byte("v1"))}, stub.render("one"))
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = c.GetOrRender(ctx, Key{"a.go", Fingerprint([]byte("v2"))}, stub.render("two"))
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	assert.EqualValues(t, 2, stub.calls.Load())
	assert.Equal(t, 1, c.Len(), "prior entry for the path is replaced")
	assert.EqualValues(t, 1, c.Stats().Stale)

	// the old fingerprint is not served any more
	v, err = c.GetOrRender(ctx, Key{"a.go", Fingerprint([]byte("v1"))}, stub.render("one again"))
	require.NoError(t, err)
	assert.Equal(t, "one again", v)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := newCache(t, Options{})
	key := Key{"bad.md", 1}
	boom := errors.New("boom")
	calls := 0
	render := func() (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}

	_, err := c.GetOrRender(context.Background(), key, render)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrRender(context.Background(), key, render)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestRenderPanicBecomesError(t *testing.T) {
	c := newCache(t, Options{})
	_, err := c.GetOrRender(context.Background(), Key{"p", 1}, func() (string, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestCancelledCallerDoesNotCancelRender(t *testing.T) {
	c := newCache(t, Options{})
	stub := &counter{release: make(chan struct{})}
	key := Key{"slow.py", 7}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrRender(ctx, key, stub.render("done"))
		done <- err
	}()

	require.Eventually(t, func() bool { return stub.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(stub.release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	v, err := c.GetOrRender(context.Background(), key, stub.render("again"))
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestRenderTimeout(t *testing.T) {
	c := newCache(t, Options{RenderTimeout: 20 * time.Millisecond})
	stub := &counter{release: make(chan struct{})}
	key := Key{"huge.c", 9}

	_, err := c.GetOrRender(context.Background(), key, stub.render("late"))
	assert.True(t, errors.Is(err, errs.RenderTimeout), "got %v", err)

	close(stub.release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	v, err := c.GetOrRender(context.Background(), key, stub.render("late"))
	require.NoError(t, err)
	assert.Equal(t, "late", v)
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestLRUEviction(t *testing.T) {
	c := newCache(t, Options{MaxEntries: 2})
	stub := &counter{}
	ctx := context.Background()
	get := func(p string) {
		_, err := c.GetOrRender(ctx, Key{p, 1}, stub.render(p))
		require.NoError(t, err)
	}

	get("a")
	get("b")
	get("a") // a is now most recently used
	get("c") // evicts b
	assert.EqualValues(t, 3, stub.calls.Load())
	assert.EqualValues(t, 1, c.Stats().Evictions)

	get("a")
	assert.EqualValues(t, 3, stub.calls.Load())
	get("b")
	assert.EqualValues(t, 4, stub.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestInvalidate(t *testing.T) {
	c := newCache(t, Options{})
	stub := &counter{}
	ctx := context.Background()
	for _, p := range []string{"docs/a.md", "docs/sub/b.md", "docsx/c.md", "d.md"} {
		_, err := c.GetOrRender(ctx, Key{p, 1}, stub.render(p))
		require.NoError(t, err)
	}

	assert.True(t, c.Invalidate("d.md"))
	assert.False(t, c.Invalidate("d.md"))
	assert.Equal(t, 2, c.InvalidatePrefix("docs"))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abd")))
	assert.NotEqual(t, Fingerprint(nil), Fingerprint([]byte{0}))
}
