package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-userforms/internal/config"
	"github.com/goliatone/go-userforms/internal/logging"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/schema"
	"github.com/goliatone/go-userforms/pkg/store"
)

// cfg starts from the environment; flags registered in init override it.
// envErr only carries parse failures, range checks run after flag parsing.
var cfg, envErr = config.FromEnv()

var logger logrus.FieldLogger = logging.Discard()

var rootCmd = &cobra.Command{
	Use:           "userforms",
	Short:         "Schema driven user management",
	Long:          "Manage users through forms generated from a field schema, against a mock store or a remote API.",
	Version:       AppVersion,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "base URL of the users API (USERFORMS_API_URL)")
	flags.BoolVar(&cfg.UseMock, "mock", cfg.UseMock, "use the in-memory store instead of the API (USERFORMS_USE_MOCK)")
	flags.DurationVar(&cfg.MockLatency, "mock-latency", cfg.MockLatency, "simulated latency of the in-memory store (USERFORMS_MOCK_LATENCY)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (USERFORMS_LOG_LEVEL)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format, text or json (USERFORMS_LOG_FORMAT)")
	flags.StringVar(&cfg.Schema, "schema", cfg.Schema, "schema file, bundled users schema when empty (USERFORMS_SCHEMA)")
}

func loadSchema() (*model.Schema, error) {
	s, err := schema.Load(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return s, nil
}

// openStore returns the store selected by the configuration.
func openStore() (store.Store, error) {
	if cfg.UseMock {
		return store.NewMemoryStore(
			store.WithRecords(store.SeedUsers()...),
			store.WithLatency(cfg.MockLatency),
		), nil
	}
	return store.NewHTTPStore(cfg.APIURL)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
