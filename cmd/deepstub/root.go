package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/toejough/deepstub/internal/config"
	"github.com/toejough/deepstub/internal/logging"
	"github.com/toejough/deepstub/persistence"
)

const sqlitePrefix = "sqlite:"

var errWrongFormat = errors.New("unsupported recording reference")

// app carries what every subcommand needs once flags are parsed.
type app struct {
	fs  afero.Fs
	cfg config.Config
	ctx context.Context //nolint:containedctx // command-scoped
}

// createNewRootCommand creates the main root command that shows help by default.
func createNewRootCommand(fsys afero.Fs) *cobra.Command {
	state := &app{fs: fsys}

	rootCmd := &cobra.Command{
		Use:           "deepstub",
		Short:         "Inspect and convert deepstub recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to deepstub.yaml (default: search the working directory)")
	rootCmd.PersistentFlags().String("dsn", "", "SQLite database for sqlite: references (default: sqlite.dsn setting)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (default: log.level setting)")

	rootCmd.AddCommand(
		createListCommand(state),
		createShowCommand(state),
		createConvertCommand(state),
		createVersionCommand(),
	)

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	opts := []config.Option{config.WithFs(a.fs)}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithFile(path))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}

	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logConfig := logging.Config{File: cfg.LogFile, Level: level, Component: "cli"}
	if cfg.LogFile == "" {
		logConfig.Writer = cmd.ErrOrStderr()
	}

	a.cfg = cfg
	a.ctx = logging.New(cmd.Context(), logConfig)

	return nil
}

// openSource resolves a recording reference: "sqlite:<id>" or a .json/.yaml file path.
// The returned close func releases the database, if any.
func (a *app) openSource(ref string) (persistence.Source, func(), error) {
	if id, ok := strings.CutPrefix(ref, sqlitePrefix); ok {
		if id == "" {
			return nil, nil, fmt.Errorf("%w: %q has no recording id", errWrongFormat, ref)
		}

		store, err := persistence.OpenSQLite(a.ctx, a.cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}

		return store.Source(id), func() {
			if err := store.Close(); err != nil {
				logging.Get(a.ctx).Warn().Err(err).Msg("failed to close sqlite store")
			}
		}, nil
	}

	codec, err := persistence.CodecForPath(ref)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errWrongFormat, err)
	}

	return persistence.NewFileSource(a.fs, ref, codec), func() {}, nil
}

// sqliteExists reports whether the configured database is present, so listing does not create it.
func (a *app) sqliteExists() bool {
	dsn := a.cfg.SQLiteDSN
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return dsn != ""
	}

	_, err := os.Stat(dsn)

	return err == nil
}
