// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/store"
)

const programName = "votertag"

type globalOptions struct {
	debug    bool
	envFiles []string
}

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

// setupLogging installs the JSON logger and sizes GOMAXPROCS
func setupLogging(w io.Writer, debug bool) error {
	logLevel := slog.LevelInfo
	addSource := false
	if debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	slog.SetDefault(slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	))

	// Toss the undo func
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		return fmt.Errorf("set GOMAXPROCS: %w", err)
	}
	return nil
}

// NewRootCommand builds the votertag command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Constituency voter directory and tagging service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), opts.debug); err != nil {
				return err
			}
			return cliparse.LoadDotEnv(opts.envFiles...)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&opts.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(importCommand())
	rootCmd.AddCommand(seedCommand())
	rootCmd.AddCommand(passwdCommand())
	rootCmd.AddCommand(diagnoseCommand())

	return rootCmd
}

// openStore resolves the database settings, connects and makes sure the
// schema exists. The caller closes the returned connection.
func openStore(cfg *cliparse.Config) (*sql.DB, *store.Store, error) {
	if err := cfg.ResolveDatabase(); err != nil {
		return nil, nil, err
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, store.New(conn, cfg.DatabaseType), nil
}
