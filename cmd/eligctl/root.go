package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"gonogo/internal/platform/config"
	"gonogo/internal/platform/logger"
	"gonogo/internal/platform/postgres"
)

var errNoDatabase = errors.New("ELIG_DB is not set; this command needs the service database")

// env is what every subcommand needs: configuration, a logger on stderr and
// lazily opened storage.
type env struct {
	cfg config.Config
	log *slog.Logger
	out io.Writer
	db  *sql.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var logLevel string

	root := &cobra.Command{
		Use:           "eligctl",
		Short:         "Operate the gonogo eligibility service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			e.cfg = cfg
			e.out = cmd.OutOrStdout()
			e.log = logger.NewWithWriter(cmd.ErrOrStderr(), logLevel)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newImportSizesCmd(e),
		newEvaluateCmd(e),
		newJobCmd(e),
	)
	return root
}

// database opens and migrates the configured database once.
func (e *env) database(ctx context.Context) (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := postgres.Open(ctx, e.cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errNoDatabase
	}
	if e.cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, e.log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	e.db = db
	return db, nil
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
