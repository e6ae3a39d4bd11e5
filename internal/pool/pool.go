// Package pool manages a bounded set of reusable native connections for one
// driver instance. It is driver-agnostic: adapters supply a Factory that
// dials their native connection type, and the executor checks connections
// out and in through Lease handles.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"

	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/logger"
)

// Conn is the minimal view the pool needs of a native connection.
type Conn interface {
	// Ping verifies the connection is still usable.
	Ping(ctx context.Context) error

	// Closed reports whether the native layer considers the connection dead.
	// A closed connection is evicted instead of being returned to the pool.
	Closed() bool

	// Close releases the native connection.
	Close(ctx context.Context) error
}

// Factory dials a new native connection.
type Factory func(ctx context.Context) (Conn, error)

// Config holds pool tuning, already resolved and validated by the driver
// configuration layer.
type Config struct {
	Max            int32         // hard cap on live connections
	Min            int32         // floor kept alive through idle eviction
	AcquireTimeout time.Duration // max time a caller waits for a free connection
	IdleTimeout    time.Duration // idle age beyond which a connection is evicted
	EvictInterval  time.Duration // period of the idle-eviction sweep
}

const destroyTimeout = 5 * time.Second

// Pool is a bounded, reusable connection pool. All mutation (checkout,
// check-in, eviction) is serialized internally; callers never observe a
// partially-updated size or a double-checked-out connection.
type Pool struct {
	p   *puddle.Pool[Conn]
	cfg Config
	log *logger.Logger

	stopSweep chan struct{}
	closeOnce sync.Once
}

// New creates a Pool and warms it to cfg.Min connections. The warm-up
// handshake dials eagerly so configuration or connectivity problems surface
// at construction rather than on the first query.
func New(ctx context.Context, cfg Config, dial Factory, log *logger.Logger) (*Pool, error) {
	if cfg.Max < 1 {
		return nil, errs.New(errs.ErrKindConfig, fmt.Sprintf("pool max must be at least 1, got %d", cfg.Max))
	}
	if cfg.Min < 0 || cfg.Min > cfg.Max {
		return nil, errs.New(errs.ErrKindConfig, fmt.Sprintf("pool min %d must be between 0 and max %d", cfg.Min, cfg.Max))
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("pool")

	inner, err := puddle.NewPool(&puddle.Config[Conn]{
		Constructor: func(ctx context.Context) (Conn, error) {
			return dial(ctx)
		},
		Destructor: func(c Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
			defer cancel()
			_ = c.Close(ctx)
		},
		MaxSize: cfg.Max,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "invalid pool configuration", err)
	}

	p := &Pool{
		p:         inner,
		cfg:       cfg,
		log:       log,
		stopSweep: make(chan struct{}),
	}

	for i := int32(0); i < cfg.Min; i++ {
		if err := inner.CreateResource(ctx); err != nil {
			inner.Close()
			return nil, errs.Wrap(errs.ErrKindConnection, "failed to establish initial connections", err)
		}
	}

	if cfg.EvictInterval > 0 && cfg.IdleTimeout > 0 {
		go p.sweepLoop()
	}

	log.Info().
		Int32("max", cfg.Max).
		Int32("min", cfg.Min).
		Dur("acquire_timeout", cfg.AcquireTimeout).
		Msg("connection pool created")
	return p, nil
}

// Acquire checks a connection out of the pool, waiting cooperatively until
// one is free or cfg.AcquireTimeout elapses. Dial failures are retried with
// fresh connections, up to cfg.Max attempts, before surfacing.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	waitCtx := ctx
	cancel := func() {}
	if p.cfg.AcquireTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	}
	defer cancel()

	var lastErr error
	for attempt := int32(0); attempt < p.cfg.Max; attempt++ {
		res, err := p.p.Acquire(waitCtx)
		if err == nil {
			if res.Value().Closed() {
				// Stale checkout: the server dropped it while idle.
				res.Destroy()
				lastErr = errs.New(errs.ErrKindConnection, "pooled connection was no longer usable")
				continue
			}
			return &Lease{res: res}, nil
		}

		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, errs.Wrap(errs.ErrKindConnection, "pool is closed", err)
		}
		if waitCtx.Err() != nil {
			if ctx.Err() != nil {
				return nil, errs.Wrap(errs.ErrKindCancelled, "connection acquire cancelled", ctx.Err())
			}
			return nil, errs.Wrap(errs.ErrKindPoolExhausted,
				fmt.Sprintf("no connection became available within %s", p.cfg.AcquireTimeout), err)
		}

		// Dial failure: retry with a fresh connection.
		lastErr = err
		p.log.Warn().Err(err).Int32("attempt", attempt+1).Msg("connection dial failed")
	}
	return nil, errs.Wrap(errs.ErrKindConnection, "failed to establish a connection", lastErr)
}

// Stat is a point-in-time snapshot of pool occupancy.
type Stat struct {
	Total    int32
	Idle     int32
	Acquired int32
}

// Stat reports current pool occupancy.
func (p *Pool) Stat() Stat {
	s := p.p.Stat()
	return Stat{
		Total:    s.TotalResources(),
		Idle:     s.IdleResources(),
		Acquired: s.AcquiredResources(),
	}
}

// Close stops the eviction sweep and destroys all connections. It blocks
// until checked-out connections are returned.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.stopSweep)
		p.p.Close()
	})
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.cfg.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.stopSweep:
			return
		}
	}
}

// sweep evicts connections idle beyond IdleTimeout, down to Min, and drops
// any idle connection the native layer already closed.
func (p *Pool) sweep() {
	idle := p.p.AcquireAllIdle()
	total := p.p.Stat().TotalResources()

	evicted := 0
	for _, res := range idle {
		dead := res.Value().Closed()
		expired := res.IdleDuration() >= p.cfg.IdleTimeout
		if dead || (expired && total > p.cfg.Min) {
			res.Destroy()
			total--
			evicted++
			continue
		}
		res.ReleaseUnused()
	}

	if evicted > 0 {
		p.log.Debug().Int("evicted", evicted).Int32("remaining", total).Msg("idle sweep")
	}
}

// Lease is a checked-out connection. Exactly one of Release or Evict settles
// it; both are idempotent afterwards, so error paths that already settled
// the lease cannot double-free the connection.
type Lease struct {
	res     *puddle.Resource[Conn]
	settled atomic.Bool
}

// Conn returns the leased native connection. The pool retains ownership.
func (l *Lease) Conn() Conn {
	return l.res.Value()
}

// Release returns the connection to the pool for reuse. A connection the
// native layer reports closed is destroyed instead.
func (l *Lease) Release() {
	if !l.settled.CompareAndSwap(false, true) {
		return
	}
	if l.res.Value().Closed() {
		l.res.Destroy()
		return
	}
	l.res.Release()
}

// Evict destroys the connection instead of returning it. Used when the
// connection erred during use and must not be reused.
func (l *Lease) Evict() {
	if !l.settled.CompareAndSwap(false, true) {
		return
	}
	l.res.Destroy()
}
