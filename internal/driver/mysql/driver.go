// Package mysql implements the driver capability contract for MySQL on top
// of database/sql with pinned per-connection sessions, so the pool manager
// keeps full control over connection reuse and eviction.
package mysql

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/DatBridge/internal/config"
	"github.com/koustreak/DatBridge/internal/driver"
	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/logger"
	"github.com/koustreak/DatBridge/internal/pool"
)

const defaultPort = 3306

// Driver is the MySQL adapter. sql.Open does not dial, so construction is
// cheap; connections are pinned lazily through the pool.
type Driver struct {
	cfg  *driver.Config
	db   *sql.DB
	exec *driver.Executor
	log  *logger.Logger
}

// New resolves configuration from env layered under overrides and returns
// a Driver.
func New(env *config.Env, ov driver.Overrides, log *logger.Logger) (*Driver, error) {
	cfg, err := driver.NewConfig(env, defaultPort, ov)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("mysql")

	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "invalid DSN", err)
	}
	// The pool manager owns idling and eviction; database/sql only caps
	// concurrency and must not cache its own idle sessions.
	db.SetMaxOpenConns(cfg.MaxPoolSize)
	db.SetMaxIdleConns(0)

	d := &Driver{cfg: cfg, db: db, log: log}
	lazy := driver.NewLazyPool(func(ctx context.Context) (*pool.Pool, error) {
		return pool.New(ctx, cfg.PoolConfig(), d.dial, log)
	})
	d.exec = driver.NewExecutor(lazy, typeMapping, d.Param, cfg.QueryTimeout, log)
	return d, nil
}

// buildDSN renders user:pass@tcp(host:port)/dbname with the options the
// executor depends on.
func buildDSN(cfg *driver.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.SSL {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// dial pins one dedicated session for the pool.
func (d *Driver) dial(ctx context.Context) (pool.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to connect to mysql", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, mapError(err, "handshake failed")
	}
	return &myConn{conn: conn}, nil
}

// --- driver.Driver implementation ---

// DriverEnvVariables lists the environment keys this adapter consumes.
func (d *Driver) DriverEnvVariables() []string {
	return []string{
		driver.EnvHost,
		driver.EnvName,
		driver.EnvPort,
		driver.EnvUser,
		driver.EnvPass,
		driver.EnvSSL,
	}
}

// TestConnection round-trips SELECT 1.
func (d *Driver) TestConnection(ctx context.Context) error {
	return d.exec.Ping(ctx)
}

// Query starts execution and returns a cancellable handle. go-sql-driver
// aborts the session on context cancellation, so a cancelled query also
// evicts its connection.
func (d *Driver) Query(ctx context.Context, sql string, params ...any) (*driver.QueryHandle, error) {
	return d.exec.Query(ctx, sql, params)
}

// Param renders the ? placeholder; MySQL parameters are positional without
// numbering, so index is ignored.
func (d *Driver) Param(index int) string {
	return "?"
}

// CreateSchemaIfNotExists checks information_schema first; a schema is a
// database in MySQL terms.
func (d *Driver) CreateSchemaIfNotExists(ctx context.Context, name string) error {
	const existsQ = "SELECT schema_name FROM information_schema.schemata WHERE schema_name = ?"
	createQ := "CREATE DATABASE IF NOT EXISTS " + quoteIdent(name)
	return d.exec.EnsureSchema(ctx, name, existsQ, createQ)
}

// DownloadQueryResults executes the query and returns the full result with
// generic type tags attached.
func (d *Driver) DownloadQueryResults(ctx context.Context, sql string, params ...any) (*driver.QueryResult, error) {
	return d.exec.Results(ctx, sql, params)
}

// ReadOnly reports the merged configuration value.
func (d *Driver) ReadOnly() bool {
	return d.cfg.ReadOnly
}

// Close drains the pool and the underlying handle cache.
func (d *Driver) Close(ctx context.Context) error {
	d.exec.Close()
	return d.db.Close()
}

// quoteIdent wraps a MySQL identifier in backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// --- native connection ---

// myConn adapts a pinned *sql.Conn to the executor's Connection interface.
type myConn struct {
	conn   *sql.Conn
	broken atomic.Bool
}

func (c *myConn) Ping(ctx context.Context) error {
	err := c.conn.PingContext(ctx)
	c.observe(err)
	return err
}

func (c *myConn) Closed() bool {
	return c.broken.Load()
}

func (c *myConn) Close(ctx context.Context) error {
	c.broken.Store(true)
	return c.conn.Close()
}

// Execute runs the bound statement, materializing rows with []byte values
// normalized to strings.
func (c *myConn) Execute(ctx context.Context, query string, params []any) (*driver.NativeResult, error) {
	rows, err := c.conn.QueryContext(ctx, query, params...)
	if err != nil {
		c.observe(err)
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, mapError(err, "failed to read column metadata")
	}
	cols := make([]driver.NativeColumn, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = driver.NativeColumn{Name: ct.Name(), NativeType: ct.DatabaseTypeName()}
	}

	var out []map[string]any
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}
		row := make(map[string]any, len(cols))
		for i := range cols {
			if b, ok := dest[i].([]byte); ok {
				row[cols[i].Name] = string(b)
				continue
			}
			row[cols[i].Name] = dest[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		c.observe(err)
		return nil, mapError(err, "query failed")
	}

	return &driver.NativeResult{Columns: cols, Rows: out}, nil
}

// observe marks the session broken when the native layer reports it dead.
// go-sql-driver invalidates the whole session on context cancellation, so
// those count too.
func (c *myConn) observe(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, sqldriver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		c.broken.Store(true)
	}
}

// --- error mapping ---

// mapError translates go-sql-driver/mysql native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindCancelled, msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrKindQuery, "query timed out", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return errs.Wrap(
			classifyCode(myErr.Number),
			fmt.Sprintf("%s: %s", msg, myErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnection, msg, err)
}

// classifyCode maps MySQL error numbers to ErrKind.
func classifyCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1046, 1049, 1040, 1203:
		return errs.ErrKindConnection
	default:
		return errs.ErrKindQuery
	}
}
