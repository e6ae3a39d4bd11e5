package driver

import (
	"context"
	"time"

	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/logger"
	"github.com/koustreak/DatBridge/internal/pool"
)

// Executions slower than this are logged at warn level.
const slowQueryThreshold = 200 * time.Millisecond

// Executor runs parameterized queries against pooled connections and hands
// back cancellable handles. One Executor serves one driver instance; it is
// safe for concurrent use.
type Executor struct {
	pool         *LazyPool
	types        TypeMapping
	param        func(index int) string
	queryTimeout time.Duration
	log          *logger.Logger
}

// NewExecutor wires the executor to its adapter: the lazily-built pool, the
// adapter's type mapping and placeholder renderer, and the configured
// statement timeout (zero for none).
func NewExecutor(p *LazyPool, types TypeMapping, param func(index int) string, queryTimeout time.Duration, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		pool:         p,
		types:        types,
		param:        param,
		queryTimeout: queryTimeout,
		log:          log.Component("executor"),
	}
}

// Query binds params into sql, acquires a connection, starts execution and
// returns the handle immediately. ctx governs pool construction and
// connection acquisition; once execution starts, only the handle's Cancel
// (and the configured statement timeout) can stop it.
func (e *Executor) Query(ctx context.Context, sqlText string, params []any) (*QueryHandle, error) {
	bound := BindParams(sqlText, e.param)

	p, err := e.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	lease, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// Detach execution from the caller's context: the handle owns the
	// query's lifetime from here on.
	base := context.WithoutCancel(ctx)
	var qctx context.Context
	var cancel context.CancelFunc
	if e.queryTimeout > 0 {
		qctx, cancel = context.WithTimeout(base, e.queryTimeout)
	} else {
		qctx, cancel = context.WithCancel(base)
	}

	h := newQueryHandle(cancel)
	go e.run(qctx, cancel, h, lease, bound, params)
	return h, nil
}

// Results executes the query and waits for the full mapped result.
func (e *Executor) Results(ctx context.Context, sqlText string, params []any) (*QueryResult, error) {
	h, err := e.Query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

// EnsureSchema checks for the schema with existsQuery (one `?` parameter,
// the schema name) and runs createStmt only when no row comes back.
func (e *Executor) EnsureSchema(ctx context.Context, name, existsQuery, createStmt string) error {
	res, err := e.Results(ctx, existsQuery, []any{name})
	if err != nil {
		return err
	}
	if len(res.Rows) > 0 {
		return nil
	}
	if _, err := e.Results(ctx, createStmt, nil); err != nil {
		return err
	}
	e.log.Info().Str("schema", name).Msg("schema created")
	return nil
}

// Ping round-trips a trivial query.
func (e *Executor) Ping(ctx context.Context) error {
	_, err := e.Results(ctx, "SELECT 1", nil)
	return err
}

// Close tears down the pool. In-flight queries keep their connections until
// they settle.
func (e *Executor) Close() {
	e.pool.Close()
}

func (e *Executor) run(ctx context.Context, cancel context.CancelFunc, h *QueryHandle, lease *pool.Lease, sqlText string, params []any) {
	defer cancel()

	conn := lease.Conn().(Connection)
	start := time.Now()
	native, err := conn.Execute(ctx, sqlText, params)
	elapsed := time.Since(start)

	if elapsed > slowQueryThreshold {
		e.log.Warn().Dur("elapsed", elapsed).Str("sql", sqlText).Msg("slow query")
	}

	if err != nil {
		// A connection the native layer reports dead must not be reused;
		// anything else (including a clean server-side cancel) goes back.
		if conn.Closed() {
			lease.Evict()
		} else {
			lease.Release()
		}
		if h.cancelRequested() {
			h.fail(errs.Wrap(errs.ErrKindCancelled, "query cancelled", err))
			return
		}
		h.fail(err)
		return
	}

	lease.Release()
	h.resolve(e.mapResult(native))
}

// mapResult attaches generic type tags to native column metadata.
func (e *Executor) mapResult(n *NativeResult) *QueryResult {
	cols := make([]Column, len(n.Columns))
	for i, c := range n.Columns {
		cols[i] = Column{Name: c.Name, Type: e.types.Tag(c.NativeType)}
	}
	rows := n.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	return &QueryResult{Columns: cols, Rows: rows}
}
