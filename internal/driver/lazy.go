package driver

import (
	"context"
	"sync"

	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/pool"
)

var errClosed = errs.New(errs.ErrKindConnection, "driver is closed")

// LazyPool defers pool construction to the first connection need and
// memoizes the outcome: concurrent first callers share one in-flight
// construction instead of racing to build several pools, and a failed
// construction is returned to every later caller rather than silently
// retried (constructing a fresh driver is the retry path).
type LazyPool struct {
	build func(ctx context.Context) (*pool.Pool, error)

	once sync.Once
	pool *pool.Pool
	err  error
}

// NewLazyPool wraps build without invoking it.
func NewLazyPool(build func(ctx context.Context) (*pool.Pool, error)) *LazyPool {
	return &LazyPool{build: build}
}

// Get returns the memoized pool, constructing it on first call.
func (l *LazyPool) Get(ctx context.Context) (*pool.Pool, error) {
	l.once.Do(func() {
		l.pool, l.err = l.build(ctx)
	})
	return l.pool, l.err
}

// Close tears the pool down if it was ever built, and prevents any future
// construction.
func (l *LazyPool) Close() {
	l.once.Do(func() {
		l.err = errClosed
	})
	if l.pool != nil {
		l.pool.Close()
	}
}
