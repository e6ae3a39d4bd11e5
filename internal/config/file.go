package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// LoadFile reads a flat YAML settings file into an Env. Values are scalar
// strings keyed by setting name, the same names as the environment keys:
//
//	CUBEJS_DB_HOST: localhost
//	CUBEJS_DB_PORT: "5432"
//
// The file is a fallback layer: merge it under the process environment with
// env.WithFallback(file), so explicit environment variables always win.
func LoadFile(path string) (*Env, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	var vars map[string]string
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return NewEnv(vars), nil
}
