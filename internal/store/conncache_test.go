package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/finance-advisor/internal/apperror"
)

type fakeConn struct {
	id     int
	closed atomic.Bool
}

// fakeDialer counts dials and hands out fresh fakeConns. When gate is non-nil
// each dial waits on it (or on ctx) before returning.
type fakeDialer struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	err     error
}

func (d *fakeDialer) dial(ctx context.Context) (*fakeConn, error) {
	n := d.calls.Add(1)
	if d.started != nil {
		select {
		case d.started <- struct{}{}:
		default:
		}
	}
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return &fakeConn{id: int(n)}, nil
}

func closeFake(_ context.Context, c *fakeConn) error {
	c.closed.Store(true)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnCache_ReusesHandle(t *testing.T) {
	d := &fakeDialer{}
	cache := NewConnCache(d.dial, closeFake, time.Second, discardLogger())

	first, err := cache.Acquire(context.Background())
	require.NoError(t, err)
	second, err := cache.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), d.calls.Load())
	assert.Equal(t, ConnStats{Connected: true, Attempts: 1}, cache.Stats())
}

func TestConnCache_ConcurrentCallersShareOneAttempt(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	cache := NewConnCache(d.dial, closeFake, 5*time.Second, discardLogger())

	const callers = 25
	var wg sync.WaitGroup
	results := make([]*fakeConn, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Acquire(context.Background())
		}(i)
	}

	<-d.started
	time.Sleep(20 * time.Millisecond)
	close(d.gate)
	wg.Wait()

	assert.Equal(t, int32(1), d.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestConnCache_TimeoutThenRetry(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	cache := NewConnCache(d.dial, closeFake, 30*time.Millisecond, discardLogger())

	start := time.Now()
	_, err := cache.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, cache.Stats().Connected)

	// The next call starts a fresh attempt.
	close(d.gate)
	conn, err := cache.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, int32(2), d.calls.Load())
	assert.Equal(t, 2, cache.Stats().Attempts)
}

func TestConnCache_LateHandleIsClosed(t *testing.T) {
	late := &fakeConn{id: 99}
	release := make(chan struct{})
	dial := func(ctx context.Context) (*fakeConn, error) {
		<-release
		return late, nil
	}
	cache := NewConnCache(dial, closeFake, 20*time.Millisecond, discardLogger())

	_, err := cache.Acquire(context.Background())
	require.ErrorIs(t, err, apperror.ErrUnavailable)

	close(release)
	assert.Eventually(t, late.closed.Load, time.Second, 5*time.Millisecond)
	assert.False(t, cache.Stats().Connected)
}

func TestConnCache_DialErrorClearsAttempt(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	cache := NewConnCache(d.dial, closeFake, time.Second, discardLogger())

	_, err := cache.Acquire(context.Background())
	require.ErrorIs(t, err, apperror.ErrUnavailable)

	d.err = nil
	conn, err := cache.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestConnCache_CallerContextDoesNotCancelSharedAttempt(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	cache := NewConnCache(d.dial, closeFake, 5*time.Second, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Acquire(ctx)
	require.ErrorIs(t, err, apperror.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-d.started
	close(d.gate)
	conn, err := cache.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestConnCache_ReleaseThenReconnect(t *testing.T) {
	d := &fakeDialer{}
	cache := NewConnCache(d.dial, closeFake, time.Second, discardLogger())

	first, err := cache.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.Release(context.Background()))
	assert.True(t, first.closed.Load())
	assert.False(t, cache.Stats().Connected)

	second, err := cache.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestConnCache_ReleaseWithoutHandle(t *testing.T) {
	cache := NewConnCache((&fakeDialer{}).dial, closeFake, time.Second, discardLogger())
	assert.NoError(t, cache.Release(context.Background()))
}

func TestConnCache_ReleaseDuringDialClosesLateHandle(t *testing.T) {
	late := &fakeConn{id: 7}
	started := make(chan struct{})
	gate := make(chan struct{})
	dial := func(ctx context.Context) (*fakeConn, error) {
		close(started)
		<-gate
		return late, nil
	}
	cache := NewConnCache(dial, closeFake, 5*time.Second, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	<-started
	require.NoError(t, cache.Release(context.Background()))
	close(gate)

	assert.Eventually(t, late.closed.Load, time.Second, 5*time.Millisecond)
	assert.False(t, cache.Stats().Connected)
}
