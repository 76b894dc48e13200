package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-userforms/internal/api"
	"github.com/goliatone/go-userforms/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference users API backed by SQLite",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		s, err := loadSchema()
		if err != nil {
			return err
		}
		db, err := store.OpenSQLite(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		if seedDemo {
			if err := db.Seed(ctx, store.SeedUsers()...); err != nil {
				return err
			}
		}

		srv, err := api.New(db, s, api.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.WithField("db", dsnLabel(cfg.DB)).Info("store ready")
		return api.Run(ctx, cfg.Addr, srv.Routes(), logger)
	},
}

var seedDemo bool

func init() {
	serveCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address (USERFORMS_ADDR)")
	serveCmd.Flags().StringVar(&cfg.DB, "db", cfg.DB, "SQLite DSN, in-memory when empty (USERFORMS_DB)")
	serveCmd.Flags().BoolVar(&seedDemo, "seed", true, "insert the demo users when missing")
	rootCmd.AddCommand(serveCmd)
}

func dsnLabel(dsn string) string {
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}
