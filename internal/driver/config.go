package driver

import (
	"time"

	"github.com/koustreak/DatBridge/internal/config"
	"github.com/koustreak/DatBridge/internal/pool"
)

// Environment keys shared by all adapters.
const (
	EnvHost            = "CUBEJS_DB_HOST"
	EnvName            = "CUBEJS_DB_NAME"
	EnvPort            = "CUBEJS_DB_PORT"
	EnvUser            = "CUBEJS_DB_USER"
	EnvPass            = "CUBEJS_DB_PASS"
	EnvDomain          = "CUBEJS_DB_DOMAIN"
	EnvSSL             = "CUBEJS_DB_SSL"
	EnvMaxPool         = "CUBEJS_DB_MAX_POOL"
	EnvQueryTimeout    = "CUBEJS_DB_QUERY_TIMEOUT"
	EnvPollTimeout     = "CUBEJS_DB_POLL_TIMEOUT"
	EnvPollMaxInterval = "CUBEJS_DB_POLL_MAX_INTERVAL"
	EnvRefreshTimer    = "CUBEJS_SCHEDULED_REFRESH_TIMER"
)

// Built-in defaults, trusted and never re-validated.
const (
	defaultMaxPool         = 8
	defaultMinPool         = 0
	defaultAcquireTimeout  = 20 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultEvictInterval   = 10 * time.Second
	defaultPollTimeout     = 900 * time.Second
	defaultPollMaxInterval = 5 * time.Second
)

// Config is the fully merged driver configuration: built-in defaults,
// overlaid by environment-derived values, overlaid by caller overrides, in
// that precedence order. It is resolved and validated once at driver
// construction and immutable afterwards; every later read, including
// ReadOnly(), sees the merged result.
type Config struct {
	Host     string
	Database string
	Port     int
	User     string
	Password string
	// Domain is consumed by adapters whose auth is domain-scoped (e.g.
	// NTLM); adapters that have no use for it ignore it.
	Domain string
	SSL    bool

	ReadOnly bool

	MaxPoolSize    int
	MinPoolSize    int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	EvictInterval  time.Duration

	// QueryTimeout bounds execution once started; zero means unbounded.
	// Independent of AcquireTimeout, which only bounds the wait for a
	// free connection.
	QueryTimeout time.Duration

	PollTimeout     time.Duration
	PollMaxInterval time.Duration

	// RefreshTimer is nil when the scheduled refresh feature is disabled.
	RefreshTimer *config.BoolOrDuration
}

// Overrides are explicit caller-supplied settings. A nil field means "no
// override"; a set field takes precedence over the environment.
type Overrides struct {
	Host     *string
	Database *string
	Port     *int
	User     *string
	Password *string
	Domain   *string
	SSL      *bool

	ReadOnly *bool

	MaxPoolSize    *int
	MinPoolSize    *int
	AcquireTimeout *time.Duration
	IdleTimeout    *time.Duration
	EvictInterval  *time.Duration
	QueryTimeout   *time.Duration
}

// NewConfig resolves the layered configuration for one driver instance.
// defaultPort is the adapter's native port, used when neither the
// environment nor the caller supplies one. Resolution failures are fatal:
// a driver is never constructed over an invalid configuration.
func NewConfig(env *config.Env, defaultPort int, ov Overrides) (*Config, error) {
	r := config.NewResolver(env)
	cfg := &Config{}

	var err error
	if cfg.Port, err = r.Port(EnvPort, defaultPort); err != nil {
		return nil, err
	}
	if cfg.SSL, err = r.Bool(EnvSSL, false); err != nil {
		return nil, err
	}
	if cfg.MaxPoolSize, err = r.BoundedInt(EnvMaxPool, defaultMaxPool, 1000); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = r.Duration(EnvQueryTimeout, 0); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = r.Duration(EnvPollTimeout, defaultPollTimeout); err != nil {
		return nil, err
	}
	if cfg.PollMaxInterval, err = r.Duration(EnvPollMaxInterval, defaultPollMaxInterval); err != nil {
		return nil, err
	}
	if cfg.RefreshTimer, err = r.BoolOrDuration(EnvRefreshTimer); err != nil {
		return nil, err
	}

	cfg.Host = r.Str(EnvHost, "localhost")
	cfg.Database = r.Str(EnvName, "")
	cfg.User = r.Str(EnvUser, "")
	cfg.Password = r.Str(EnvPass, "")
	cfg.Domain = r.Str(EnvDomain, "")

	cfg.MinPoolSize = defaultMinPool
	cfg.AcquireTimeout = defaultAcquireTimeout
	cfg.IdleTimeout = defaultIdleTimeout
	cfg.EvictInterval = defaultEvictInterval

	applyOverrides(cfg, ov)
	return cfg, nil
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.Host != nil {
		cfg.Host = *ov.Host
	}
	if ov.Database != nil {
		cfg.Database = *ov.Database
	}
	if ov.Port != nil {
		cfg.Port = *ov.Port
	}
	if ov.User != nil {
		cfg.User = *ov.User
	}
	if ov.Password != nil {
		cfg.Password = *ov.Password
	}
	if ov.Domain != nil {
		cfg.Domain = *ov.Domain
	}
	if ov.SSL != nil {
		cfg.SSL = *ov.SSL
	}
	if ov.ReadOnly != nil {
		cfg.ReadOnly = *ov.ReadOnly
	}
	if ov.MaxPoolSize != nil {
		cfg.MaxPoolSize = *ov.MaxPoolSize
	}
	if ov.MinPoolSize != nil {
		cfg.MinPoolSize = *ov.MinPoolSize
	}
	if ov.AcquireTimeout != nil {
		cfg.AcquireTimeout = *ov.AcquireTimeout
	}
	if ov.IdleTimeout != nil {
		cfg.IdleTimeout = *ov.IdleTimeout
	}
	if ov.EvictInterval != nil {
		cfg.EvictInterval = *ov.EvictInterval
	}
	if ov.QueryTimeout != nil {
		cfg.QueryTimeout = *ov.QueryTimeout
	}
}

// PoolConfig projects the merged configuration onto pool tuning.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		Max:            int32(c.MaxPoolSize),
		Min:            int32(c.MinPoolSize),
		AcquireTimeout: c.AcquireTimeout,
		IdleTimeout:    c.IdleTimeout,
		EvictInterval:  c.EvictInterval,
	}
}
