package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolver(vars map[string]string) *Resolver {
	return NewResolver(NewEnv(vars))
}

func TestDurationSeconds_ValidFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1", 1},
		{"5s", 5},
		{"30", 30},
		{"1m", 60},
		{"10m", 600},
		{"1h", 3600},
		{"2h", 7200},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := resolver(map[string]string{"CUBEJS_DB_POLL_TIMEOUT": tt.raw})
			got, err := r.DurationSeconds("CUBEJS_DB_POLL_TIMEOUT", 900)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationSeconds_InvalidFormats(t *testing.T) {
	invalid := []string{"", "1x", "s", "-5s", "1.5m", "abc", "5 s", "m1"}

	for _, raw := range invalid {
		t.Run("raw="+raw, func(t *testing.T) {
			r := resolver(map[string]string{"CUBEJS_DB_POLL_TIMEOUT": raw})
			_, err := r.DurationSeconds("CUBEJS_DB_POLL_TIMEOUT", 900)
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Equal(t,
				`Value "`+raw+`" is not valid for CUBEJS_DB_POLL_TIMEOUT. `+
					`Must be number (in seconds) or string in time format (1s, 1m, 1h).`,
				err.Error())
		})
	}
}

func TestDurationSeconds_Defaults(t *testing.T) {
	r := resolver(nil)

	pollTimeout, err := r.DurationSeconds("CUBEJS_DB_POLL_TIMEOUT", 900)
	require.NoError(t, err)
	assert.Equal(t, int64(900), pollTimeout)

	maxInterval, err := r.DurationSeconds("CUBEJS_DB_POLL_MAX_INTERVAL", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), maxInterval)
}

func TestDurationSeconds_OverrideReplacesDefault(t *testing.T) {
	r := resolver(map[string]string{"CUBEJS_DB_POLL_TIMEOUT": "2m"})
	got, err := r.DurationSeconds("CUBEJS_DB_POLL_TIMEOUT", 900)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)
}

func TestDuration_AsTimeDuration(t *testing.T) {
	r := resolver(map[string]string{"CUBEJS_DB_QUERY_TIMEOUT": "10m"})
	got, err := r.Duration("CUBEJS_DB_QUERY_TIMEOUT", 0)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, got)
}

func TestPort_Bounds(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := resolver(map[string]string{"PORT": "5432"})
		got, err := r.Port("PORT", 0)
		require.NoError(t, err)
		assert.Equal(t, 5432, got)
	})

	t.Run("above upper bound", func(t *testing.T) {
		r := resolver(map[string]string{"PORT": "100000000"})
		_, err := r.Port("PORT", 0)
		require.Error(t, err)
		assert.Equal(t,
			`Value "100000000" is not valid for PORT. Should be lower or equal than 65535.`,
			err.Error())
	})

	t.Run("negative", func(t *testing.T) {
		r := resolver(map[string]string{"PORT": "-1000"})
		_, err := r.Port("PORT", 0)
		require.Error(t, err)
		assert.Equal(t,
			`Value "-1000" is not valid for PORT. Should be a positive integer.`,
			err.Error())
	})

	t.Run("not a number", func(t *testing.T) {
		r := resolver(map[string]string{"PORT": "http"})
		_, err := r.Port("PORT", 0)
		require.Error(t, err)
		assert.Equal(t,
			`Value "http" is not valid for PORT. Should be a positive integer.`,
			err.Error())
	})

	t.Run("default when absent", func(t *testing.T) {
		r := resolver(nil)
		got, err := r.Port("PORT", 5432)
		require.NoError(t, err)
		assert.Equal(t, 5432, got)
	})
}

func TestBool(t *testing.T) {
	r := resolver(map[string]string{
		"CUBEJS_DB_SSL":  "true",
		"READ_ONLY":      "false",
		"BROKEN_BOOLEAN": "yes",
	})

	ssl, err := r.Bool("CUBEJS_DB_SSL", false)
	require.NoError(t, err)
	assert.True(t, ssl)

	ro, err := r.Bool("READ_ONLY", true)
	require.NoError(t, err)
	assert.False(t, ro)

	def, err := r.Bool("UNSET", true)
	require.NoError(t, err)
	assert.True(t, def)

	_, err = r.Bool("BROKEN_BOOLEAN", false)
	require.Error(t, err)
	assert.Equal(t, `Value "yes" is not valid for BROKEN_BOOLEAN. Should be boolean.`, err.Error())
}

func TestBoolOrDuration(t *testing.T) {
	const key = "CUBEJS_SCHEDULED_REFRESH_TIMER"

	t.Run("absent means disabled", func(t *testing.T) {
		got, err := resolver(nil).BoolOrDuration(key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("plain seconds", func(t *testing.T) {
		got, err := resolver(map[string]string{key: "60"}).BoolOrDuration(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.IsBool)
		assert.Equal(t, int64(60), got.Seconds)
	})

	t.Run("time format", func(t *testing.T) {
		got, err := resolver(map[string]string{key: "1m"}).BoolOrDuration(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(60), got.Seconds)
	})

	t.Run("booleans", func(t *testing.T) {
		got, err := resolver(map[string]string{key: "true"}).BoolOrDuration(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsBool)
		assert.True(t, got.Bool)

		got, err = resolver(map[string]string{key: "false"}).BoolOrDuration(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsBool)
		assert.False(t, got.Bool)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := resolver(map[string]string{key: "11fffffff"}).BoolOrDuration(key)
		require.Error(t, err)
		assert.Equal(t,
			`Value "11fffffff" is not valid for `+key+`. `+
				`Should be boolean or number (in seconds) or string in time format (1s, 1m, 1h).`,
			err.Error())
	})
}

func TestStr(t *testing.T) {
	r := resolver(map[string]string{"CUBEJS_DB_HOST": "db.internal"})
	assert.Equal(t, "db.internal", r.Str("CUBEJS_DB_HOST", "localhost"))
	assert.Equal(t, "localhost", r.Str("CUBEJS_DB_UNSET", "localhost"))
}

func TestEnv_WithFallback(t *testing.T) {
	env := NewEnv(map[string]string{"CUBEJS_DB_HOST": "from-env"})
	file := NewEnv(map[string]string{
		"CUBEJS_DB_HOST": "from-file",
		"CUBEJS_DB_NAME": "analytics",
	})

	merged := env.WithFallback(file)

	host, _ := merged.Lookup("CUBEJS_DB_HOST")
	assert.Equal(t, "from-env", host)
	name, _ := merged.Lookup("CUBEJS_DB_NAME")
	assert.Equal(t, "analytics", name)
}

func TestConfigError_CarriesKeyAndRaw(t *testing.T) {
	r := resolver(map[string]string{"CUBEJS_DB_POLL_TIMEOUT": "bogus"})
	_, err := r.DurationSeconds("CUBEJS_DB_POLL_TIMEOUT", 900)
	require.Error(t, err)

	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok)
	assert.Equal(t, "CUBEJS_DB_POLL_TIMEOUT", cfgErr.Key)
	assert.Equal(t, "bogus", cfgErr.Raw)
}
