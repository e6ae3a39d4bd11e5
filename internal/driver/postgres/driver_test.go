package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatBridge/internal/config"
	"github.com/koustreak/DatBridge/internal/driver"
	"github.com/koustreak/DatBridge/internal/errs"
)

func newTestDriver(t *testing.T, vars map[string]string, ov driver.Overrides) *Driver {
	t.Helper()
	d, err := New(config.NewEnv(vars), ov, nil)
	require.NoError(t, err)
	return d
}

func TestParam(t *testing.T) {
	d := newTestDriver(t, nil, driver.Overrides{})

	assert.Equal(t, "$1", d.Param(0))
	assert.Equal(t, "$2", d.Param(1))
	assert.Equal(t, "$10", d.Param(9))
}

func TestDriverEnvVariables(t *testing.T) {
	d := newTestDriver(t, nil, driver.Overrides{})

	assert.Equal(t, []string{
		"CUBEJS_DB_HOST",
		"CUBEJS_DB_NAME",
		"CUBEJS_DB_PORT",
		"CUBEJS_DB_USER",
		"CUBEJS_DB_PASS",
		"CUBEJS_DB_SSL",
	}, d.DriverEnvVariables())
}

func TestDSN(t *testing.T) {
	d := newTestDriver(t, map[string]string{
		driver.EnvHost: "db.internal",
		driver.EnvName: "analytics",
		driver.EnvUser: "reporter",
		driver.EnvPass: "hunter2",
		driver.EnvSSL:  "true",
	}, driver.Overrides{})

	assert.Equal(t,
		"host=db.internal port=5432 user=reporter password=hunter2 dbname=analytics sslmode=require",
		d.dsn())
}

func TestDSN_DefaultsToDisabledSSL(t *testing.T) {
	d := newTestDriver(t, map[string]string{driver.EnvName: "analytics"}, driver.Overrides{})
	assert.Contains(t, d.dsn(), "sslmode=disable")
	assert.Contains(t, d.dsn(), "host=localhost")
}

func TestNew_InvalidPortFailsConstruction(t *testing.T) {
	_, err := New(config.NewEnv(map[string]string{driver.EnvPort: "-1"}), driver.Overrides{}, nil)
	require.Error(t, err)
	assert.Equal(t, `Value "-1" is not valid for CUBEJS_DB_PORT. Should be a positive integer.`, err.Error())
}

func TestReadOnly(t *testing.T) {
	d := newTestDriver(t, nil, driver.Overrides{})
	assert.False(t, d.ReadOnly())

	ro := true
	d = newTestDriver(t, nil, driver.Overrides{ReadOnly: &ro})
	assert.True(t, d.ReadOnly())
}

func TestTypeMapping(t *testing.T) {
	tests := []struct {
		native string
		want   driver.TypeTag
	}{
		{"int4", driver.TypeInt},
		{"int8", driver.TypeBigInt},
		{"numeric", driver.TypeDecimal},
		{"varchar", driver.TypeString},
		{"timestamptz", driver.TypeTimestamp},
		{"bool", driver.TypeBoolean},
		{"hstore", driver.TypeTag("hstore")}, // passthrough
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, typeMapping.Tag(tt.native), tt.native)
	}
}

func TestMapError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"syntax error", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errs.ErrKindQuery},
		{"connection failure class 08", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnection},
		{"server-side cancel", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, errs.ErrKindCancelled},
		{"caller cancel", context.Canceled, errs.ErrKindCancelled},
		{"network failure", errors.New("dial tcp 127.0.0.1:5432: connection refused"), errs.ErrKindConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapError(tt.err, "query failed").Kind)
		})
	}
}
