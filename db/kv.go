package db

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

// ErrNoRecord is returned by KV.Get when no value is stored under the
// requested key. It is a normal outcome, not a backend failure.
var ErrNoRecord = errors.New("db: no record found")

// KV is a remote key-value backend addressed by opaque string keys.
// Values are JSON-encoded strings. No transaction guarantees are
// assumed; in particular a write may not be immediately readable.
type KV interface {
	// Get returns the value stored under key, or ErrNoRecord.
	Get(ctx context.Context, key string) (string, error)
	// GetByPrefix returns every key/value pair whose key starts with
	// prefix, in no defined order.
	GetByPrefix(ctx context.Context, prefix string) (map[string]string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
}

// BackendFailure indicates that a write on a critical path could not be
// completed even after retries.
type BackendFailure struct {
	Op  string
	Err error
}

func (e *BackendFailure) Error() string {
	return fmt.Sprintf("db: %s failed after retries: %v", e.Op, e.Err)
}

func (e *BackendFailure) Unwrap() error {
	return e.Err
}

// Config is a configuration struct for the key-value backend.
type Config struct {
	Port          string
	RedisAddr     string
	RedisPassword string
	RedisDB       string
}

// Default configuration values. Can be overwritten by env vars of the same name.
var configDefaults = map[string]string{
	"PORT":           "8080",
	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       "0",
	"TEST_REDIS_DB":  "1",
}

func getEnvOrDefault(varName string) string {
	envVar := os.Getenv(varName)
	if len(envVar) == 0 {
		envVar = configDefaults[varName]
	}
	return envVar
}

// LoadEnvironmentVariables loads relevant environment variables into a
// Config object.
func LoadEnvironmentVariables() (Config, error) {
	config := Config{
		Port:          getEnvOrDefault("PORT"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD"),
		RedisDB:       getEnvOrDefault("REDIS_DB"),
	}
	if flag.Lookup("test.v") != nil {
		// Avoid accidentally touching the default db during tests.
		config.RedisDB = getEnvOrDefault("TEST_REDIS_DB")
	}
	return config, nil
}
