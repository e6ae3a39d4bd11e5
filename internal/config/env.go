// Package config resolves raw string settings into validated typed values.
//
// Settings reach DatBridge as environment variables (or a YAML settings file
// merged underneath them). Library code never reads the process environment
// directly; an Env snapshot is injected at construction time, which keeps
// resolution deterministic and testable.
package config

import (
	"os"
	"strings"
)

// Env is an immutable snapshot of key/value settings.
type Env struct {
	vars map[string]string
}

// NewEnv builds an Env from an explicit map. The map is copied.
func NewEnv(vars map[string]string) *Env {
	m := make(map[string]string, len(vars))
	for k, v := range vars {
		m[k] = v
	}
	return &Env{vars: m}
}

// OSEnv snapshots the process environment once.
func OSEnv() *Env {
	environ := os.Environ()
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return &Env{vars: m}
}

// Lookup returns the raw value for key and whether it is set.
// An empty string counts as set; emptiness is a resolution error for
// typed keys, not absence.
func (e *Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// WithFallback layers e over fallback: keys set in e win, keys only in
// fallback show through. Neither input is modified.
func (e *Env) WithFallback(fallback *Env) *Env {
	if fallback == nil {
		return e
	}
	m := make(map[string]string, len(e.vars)+len(fallback.vars))
	for k, v := range fallback.vars {
		m[k] = v
	}
	for k, v := range e.vars {
		m[k] = v
	}
	return &Env{vars: m}
}
