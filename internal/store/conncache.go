package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/metrics"
)

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 5000 * time.Millisecond

// Dialer opens a new handle. It must honour ctx cancellation.
type Dialer[H any] func(ctx context.Context) (H, error)

// Closer releases a handle previously returned by a Dialer.
type Closer[H any] func(ctx context.Context, h H) error

// ConnStats is a point-in-time view of a ConnCache.
type ConnStats struct {
	Connected bool `json:"connected"`
	Attempts  int  `json:"attempts"`
}

// ConnCache memoizes one connection handle for the life of the process.
// At most one dial is in flight; concurrent callers share its result.
type ConnCache[H any] struct {
	dial    Dialer[H]
	closeFn Closer[H]
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	mu       sync.Mutex
	handle   H
	ready    bool
	attempts int
	// epoch is bumped by Release; a dial started in an older epoch is not cached.
	epoch uint64
}

func NewConnCache[H any](dial Dialer[H], closeFn Closer[H], timeout time.Duration, logger *slog.Logger) *ConnCache[H] {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &ConnCache[H]{dial: dial, closeFn: closeFn, timeout: timeout, logger: logger}
}

// Acquire returns the cached handle, or joins (or starts) the in-flight attempt.
// If ctx ends first the caller stops waiting; the shared attempt keeps running.
func (c *ConnCache[H]) Acquire(ctx context.Context) (H, error) {
	if h, ok := c.cached(); ok {
		return h, nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		return c.connect()
	})

	var zero H
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(H), nil
	case <-ctx.Done():
		return zero, apperror.Unavailable("database", ctx.Err())
	}
}

func (c *ConnCache[H]) cached() (H, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.ready
}

type dialResult[H any] struct {
	handle H
	err    error
}

// connect runs one dial raced against the timeout. It is only ever entered
// through the singleflight group.
func (c *ConnCache[H]) connect() (H, error) {
	var zero H

	c.mu.Lock()
	if c.ready {
		h := c.handle
		c.mu.Unlock()
		return h, nil
	}
	c.attempts++
	attempt := c.attempts
	epoch := c.epoch
	c.mu.Unlock()

	start := time.Now()
	dialCtx, cancel := context.WithCancel(context.Background())
	done := make(chan dialResult[H], 1)
	go func() {
		h, err := c.dial(dialCtx)
		done <- dialResult[H]{handle: h, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		cancel()
		if res.err != nil {
			metrics.DBConnectAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			c.logger.Error("database connection failed",
				slog.Int("attempt", attempt),
				slog.String("error", res.err.Error()),
			)
			return zero, apperror.Unavailable("database", res.err)
		}

		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			c.closeStale(res.handle)
			c.logger.Warn("database connection finished after release, closed it", slog.Int("attempt", attempt))
			return zero, apperror.Unavailable("database", fmt.Errorf("connection released during attempt %d", attempt))
		}
		c.handle = res.handle
		c.ready = true
		c.mu.Unlock()

		elapsed := time.Since(start)
		metrics.DBConnectAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
		metrics.DBConnectDuration.Observe(elapsed.Seconds())
		c.logger.Info("database connected",
			slog.Int("attempt", attempt),
			slog.Duration("duration", elapsed),
		)
		return res.handle, nil

	case <-timer.C:
		cancel()
		go c.discardLate(done)
		metrics.DBConnectAttempts.WithLabelValues(metrics.OutcomeTimeout).Inc()
		c.logger.Error("database connection timed out",
			slog.Int("attempt", attempt),
			slog.Duration("timeout", c.timeout),
		)
		return zero, apperror.Unavailable("database", fmt.Errorf("connection timed out after %s", c.timeout))
	}
}

// discardLate closes a handle from a dial that lost the race against the timeout.
func (c *ConnCache[H]) discardLate(done <-chan dialResult[H]) {
	res := <-done
	if res.err != nil {
		return
	}
	c.closeStale(res.handle)
}

// closeStale closes a handle that must not be cached.
func (c *ConnCache[H]) closeStale(h H) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.closeFn(ctx, h); err != nil {
		c.logger.Warn("closing abandoned connection", slog.String("error", err.Error()))
	}
}

// Release closes the cached handle, if any, and resets the cache. A dial still
// in flight is closed when it completes instead of being cached.
func (c *ConnCache[H]) Release(ctx context.Context) error {
	c.mu.Lock()
	h, ok := c.handle, c.ready
	var zero H
	c.handle = zero
	c.ready = false
	c.epoch++
	c.mu.Unlock()

	if !ok {
		return nil
	}
	if err := c.closeFn(ctx, h); err != nil {
		return fmt.Errorf("release connection: %w", err)
	}
	c.logger.Info("database connection released")
	return nil
}

func (c *ConnCache[H]) Stats() ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnStats{Connected: c.ready, Attempts: c.attempts}
}
