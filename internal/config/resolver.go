package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ConfigError reports a raw setting that cannot be coerced to its declared
// type or violates its bounds. Error() is the full diagnostic: it names the
// key, the offending raw value, and the exact accepted formats, so the
// failure can be fixed without reading source.
type ConfigError struct {
	Key string
	Raw string
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

// IsConfigError reports whether err is a setting resolution failure.
func IsConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}

func newConfigError(key, raw, requirement string) *ConfigError {
	return &ConfigError{
		Key: key,
		Raw: raw,
		msg: fmt.Sprintf("Value %q is not valid for %s. %s", raw, key, requirement),
	}
}

const (
	reqDuration       = "Must be number (in seconds) or string in time format (1s, 1m, 1h)."
	reqBoolOrDuration = "Should be boolean or number (in seconds) or string in time format (1s, 1m, 1h)."
	reqBoolean        = "Should be boolean."
	reqPositiveInt    = "Should be a positive integer."
)

// durationRe matches "<digits>" (plain seconds) or "<digits><unit>" with
// unit one of s, m, h.
var durationRe = regexp.MustCompile(`^(\d+)(s|m|h)?$`)

var unitSeconds = map[string]int64{"": 1, "s": 1, "m": 60, "h": 3600}

// Resolver turns raw Env values into validated typed settings.
// Defaults are applied when a key is absent and are trusted: they are
// never validated against bounds.
type Resolver struct {
	env *Env
}

// NewResolver wraps env for typed resolution.
func NewResolver(env *Env) *Resolver {
	return &Resolver{env: env}
}

// DurationSeconds resolves key as a duration expressed in whole seconds.
// A raw value of bare digits is taken as seconds; digits followed by
// s, m or h are scaled by 1, 60 or 3600.
func (r *Resolver) DurationSeconds(key string, def int64) (int64, error) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return def, nil
	}
	return parseDurationSeconds(key, raw)
}

// Duration is DurationSeconds with the result as a time.Duration.
func (r *Resolver) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return def, nil
	}
	secs, err := parseDurationSeconds(key, raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// BoundedInt resolves key as a non-negative base-10 integer no greater
// than max.
func (r *Resolver) BoundedInt(key string, def, max int) (int, error) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newConfigError(key, raw, reqPositiveInt)
	}
	if n > max {
		return 0, newConfigError(key, raw, fmt.Sprintf("Should be lower or equal than %d.", max))
	}
	return n, nil
}

// Port resolves key as a TCP port number.
func (r *Resolver) Port(key string, def int) (int, error) {
	return r.BoundedInt(key, def, 65535)
}

// Bool resolves key as a strict "true"/"false" flag.
func (r *Resolver) Bool(key string, def bool) (bool, error) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return def, nil
	}
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, newConfigError(key, raw, reqBoolean)
}

// Str resolves key as a plain string with a default.
func (r *Resolver) Str(key, def string) string {
	if raw, ok := r.env.Lookup(key); ok {
		return raw
	}
	return def
}

// BoolOrDuration is the resolved value of a key that accepts either a
// boolean flag or a duration, such as a refresh timer that can be switched
// on, switched off, or given an explicit interval.
type BoolOrDuration struct {
	// IsBool distinguishes the two arms; when false, Seconds holds the value.
	IsBool  bool
	Bool    bool
	Seconds int64
}

// BoolOrDuration resolves key as either a boolean or a duration in seconds.
// An absent key yields nil, meaning the feature is disabled rather than misconfigured.
func (r *Resolver) BoolOrDuration(key string) (*BoolOrDuration, error) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return nil, nil
	}
	switch raw {
	case "true":
		return &BoolOrDuration{IsBool: true, Bool: true}, nil
	case "false":
		return &BoolOrDuration{IsBool: true, Bool: false}, nil
	}
	if m := durationRe.FindStringSubmatch(raw); m != nil {
		secs, err := scaleDuration(m[1], m[2])
		if err == nil {
			return &BoolOrDuration{Seconds: secs}, nil
		}
	}
	return nil, newConfigError(key, raw, reqBoolOrDuration)
}

func parseDurationSeconds(key, raw string) (int64, error) {
	m := durationRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, newConfigError(key, raw, reqDuration)
	}
	secs, err := scaleDuration(m[1], m[2])
	if err != nil {
		return 0, newConfigError(key, raw, reqDuration)
	}
	return secs, nil
}

// scaleDuration converts a digit string and unit suffix into seconds,
// rejecting values that overflow int64.
func scaleDuration(digits, unit string) (int64, error) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	mult := unitSeconds[unit]
	secs := n * mult
	if n != 0 && secs/n != mult {
		return 0, fmt.Errorf("duration overflows: %s%s", digits, unit)
	}
	return secs, nil
}
