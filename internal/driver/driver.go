// Package driver defines the capability contract every data-source adapter
// implements, and the pooled, cancellable execution machinery shared by all
// of them. Layers above this package talk only to the Driver interface;
// they never import the postgres or mysql packages directly.
package driver

import "context"

// Driver is the uniform contract between the analytics backend and one
// concrete data source. Adapters own a connection pool and defer all
// execution to the Executor; the contract itself carries no connection
// logic.
type Driver interface {
	// DriverEnvVariables lists the environment keys this adapter consumes,
	// for documentation and configuration validation.
	DriverEnvVariables() []string

	// TestConnection succeeds iff a trivial round-trip query executes.
	TestConnection(ctx context.Context) error

	// Query starts execution and returns a cancellable handle immediately.
	// The caller may Wait on the handle or Cancel it mid-flight.
	Query(ctx context.Context, sql string, params ...any) (*QueryHandle, error)

	// Param renders the adapter's native placeholder for positional
	// parameter index (0-based).
	Param(index int) string

	// CreateSchemaIfNotExists is idempotent: it checks existence first and
	// creates the schema only when absent.
	CreateSchemaIfNotExists(ctx context.Context, name string) error

	// DownloadQueryResults executes the query and returns the full result
	// with generic type tags attached to every column.
	DownloadQueryResults(ctx context.Context, sql string, params ...any) (*QueryResult, error)

	// ReadOnly reports whether this driver instance was configured to
	// reject writes. Defaults to false.
	ReadOnly() bool

	// Close tears down the connection pool.
	Close(ctx context.Context) error
}

// Connection is the executor's view of a pooled native connection. Adapters
// implement it on top of their native client; the pool.Conn methods let the
// pool manage its lifecycle.
type Connection interface {
	// Ping verifies the connection with a round trip.
	Ping(ctx context.Context) error

	// Closed reports whether the native layer considers the connection
	// unusable. Checked after errors and cancellation to decide between
	// returning the connection to the pool and evicting it.
	Closed() bool

	// Close releases the native connection.
	Close(ctx context.Context) error

	// Execute runs an already-bound statement and materializes the full
	// result with native column type names.
	Execute(ctx context.Context, sql string, params []any) (*NativeResult, error)
}
