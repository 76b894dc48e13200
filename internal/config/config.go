// Package config resolves runtime settings for the userforms binary from the
// environment. Command line flags layer on top of the values returned here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/goliatone/go-userforms/pkg/store"
)

const envPrefix = "USERFORMS_"

// Environment variable names, without the USERFORMS_ prefix.
const (
	EnvAPIURL      = "API_URL"
	EnvUseMock     = "USE_MOCK"
	EnvMockLatency = "MOCK_LATENCY"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFormat   = "LOG_FORMAT"
	EnvAddr        = "ADDR"
	EnvDB          = "DB"
	EnvSchema      = "SCHEMA"
)

// DefaultMockLatency mirrors the delay the in-memory store adds to every call.
const DefaultMockLatency = 500 * time.Millisecond

// Config holds every setting the CLI and the reference server read.
type Config struct {
	// APIURL is the base URL of the remote users API.
	APIURL string
	// UseMock selects the in-memory store instead of the remote API.
	UseMock     bool
	MockLatency time.Duration
	LogLevel    string
	LogFormat   string
	// Addr is the listen address for `serve`.
	Addr string
	// DB is the SQLite DSN for `serve`. Empty means an in-memory database.
	DB string
	// Schema is a schema file path. Empty selects the bundled users schema.
	Schema string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:      store.DefaultBaseURL,
		UseMock:     true,
		MockLatency: DefaultMockLatency,
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":3001",
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv reads the process environment on top of Default.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load reads settings through lookup on top of Default. Every malformed value
// is reported, not just the first. Values that parse are not checked here;
// call Validate once flags have been applied.
func Load(lookup LookupFunc) (Config, error) {
	cfg := Default()
	if lookup == nil {
		return cfg, nil
	}
	get := func(name string) (string, bool) {
		value, ok := lookup(envPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(value), true
	}

	var errs error
	if v, ok := get(EnvAPIURL); ok && v != "" {
		cfg.APIURL = v
	}
	if v, ok := get(EnvUseMock); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, EnvUseMock, err))
		} else {
			cfg.UseMock = parsed
		}
	}
	if v, ok := get(EnvMockLatency); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, EnvMockLatency, err))
		} else {
			cfg.MockLatency = parsed
		}
	}
	if v, ok := get(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := get(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}
	if v, ok := get(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := get(EnvDB); ok {
		cfg.DB = v
	}
	if v, ok := get(EnvSchema); ok {
		cfg.Schema = v
	}

	if errs != nil {
		return cfg, fmt.Errorf("config: %w", errs)
	}
	return cfg, nil
}

// Validate checks values that parse but make no sense.
func (c Config) Validate() error {
	var errs error
	if c.MockLatency < 0 {
		errs = multierr.Append(errs, fmt.Errorf("mock latency %s is negative", c.MockLatency))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log level: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if !c.UseMock && strings.TrimSpace(c.APIURL) == "" {
		errs = multierr.Append(errs, fmt.Errorf("api url is required when the mock store is disabled"))
	}
	if errs != nil {
		return fmt.Errorf("config: %w", errs)
	}
	return nil
}

// Mode labels the active data source for status lines.
func (c Config) Mode() string {
	if c.UseMock {
		return "Mock"
	}
	return "API (" + c.APIURL + ")"
}
