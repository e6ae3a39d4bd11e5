// Package postgres implements the driver capability contract for PostgreSQL
// on top of pgx. It is safe for concurrent use by multiple goroutines.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/DatBridge/internal/config"
	"github.com/koustreak/DatBridge/internal/driver"
	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/logger"
	"github.com/koustreak/DatBridge/internal/pool"
)

const defaultPort = 5432

// Driver is the PostgreSQL adapter. The connection pool is built lazily on
// first use; construction fails eagerly only on bad configuration.
type Driver struct {
	cfg  *driver.Config
	exec *driver.Executor
	log  *logger.Logger
}

// New resolves configuration from env layered under overrides and returns
// a Driver. No connection is dialed yet.
func New(env *config.Env, ov driver.Overrides, log *logger.Logger) (*Driver, error) {
	cfg, err := driver.NewConfig(env, defaultPort, ov)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("postgres")

	d := &Driver{cfg: cfg, log: log}
	lazy := driver.NewLazyPool(func(ctx context.Context) (*pool.Pool, error) {
		return pool.New(ctx, cfg.PoolConfig(), d.dial, log)
	})
	d.exec = driver.NewExecutor(lazy, typeMapping, d.Param, cfg.QueryTimeout, log)
	return d, nil
}

func (d *Driver) dsn() string {
	ssl := "disable"
	if d.cfg.SSL {
		ssl = "require"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.Host, d.cfg.Port, d.cfg.User, d.cfg.Password, d.cfg.Database, ssl,
	)
}

// dial establishes one native connection for the pool.
func (d *Driver) dial(ctx context.Context) (pool.Conn, error) {
	conn, err := pgx.Connect(ctx, d.dsn())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to connect to postgres", err)
	}
	return &pgConn{conn: conn}, nil
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

// Query starts execution and returns a cancellable handle. Cancellation is
// wired to pg's server-side cancel request through context cancellation.
func (d *Driver) Query(ctx context.Context, sql string, params ...any) (*driver.QueryHandle, error) {
	return d.exec.Query(ctx, sql, params)
}

// Param renders $n placeholders, 1-based in the statement text.
func (d *Driver) Param(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

// CreateSchemaIfNotExists checks information_schema first; creation is
// idempotent either way.
func (d *Driver) CreateSchemaIfNotExists(ctx context.Context, name string) error {
	const existsQ = "SELECT schema_name FROM information_schema.schemata WHERE schema_name = ?"
	createQ := "CREATE SCHEMA IF NOT EXISTS " + driver.QuoteIdent(name)
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

// Close drains the pool.
func (d *Driver) Close(ctx context.Context) error {
	d.exec.Close()
	return nil
}

// --- native connection ---

// pgConn adapts *pgx.Conn to the executor's Connection interface.
type pgConn struct {
	conn *pgx.Conn
}

func (c *pgConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *pgConn) Closed() bool {
	return c.conn.IsClosed()
}

func (c *pgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Execute runs the bound statement and materializes the result with native
// type names resolved from the connection's type map.
func (c *pgConn) Execute(ctx context.Context, sql string, params []any) (*driver.NativeResult, error) {
	rows, err := c.conn.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]driver.NativeColumn, len(descs))
	for i, fd := range descs {
		cols[i] = driver.NativeColumn{Name: fd.Name, NativeType: c.typeName(fd.DataTypeOID)}
	}

	var out []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, mapError(err, "failed to read row")
		}
		row := make(map[string]any, len(cols))
		for i := range cols {
			row[cols[i].Name] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "query failed")
	}

	return &driver.NativeResult{Columns: cols, Rows: out}, nil
}

func (c *pgConn) typeName(oid uint32) string {
	if t, ok := c.conn.TypeMap().TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
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
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes). Class 08 is connection,
	// 57014 is query_canceled from a server-side cancel request.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQuery
		switch {
		case pgErr.Code == "57014":
			kind = errs.ErrKindCancelled
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			kind = errs.ErrKindConnection
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth).
	return errs.Wrap(errs.ErrKindConnection, msg, err)
}
