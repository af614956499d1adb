// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/importer"
)

func importCommand() *cobra.Command {
	var (
		cfg       cliparse.Config
		homeArea  string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "import <roll.csv>",
		Short: "Import an electoral roll CSV into the voter directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			conn, st, err := openStore(&cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := importer.Import(cmd.Context(), f, st, importer.Options{
				HomeArea:  homeArea,
				BatchSize: batchSize,
				Progress: func(total int) {
					slog.Debug("batch imported", "total", total)
				},
			})
			if err != nil {
				return fmt.Errorf("import stopped after %d voters: %w", n, err)
			}
			slog.Info("import complete", "file", args[0], "voters", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d voters\n", n)
			return nil
		},
	}
	cliparse.BindDatabaseFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringVar(&homeArea, "home-area", "", "home area (DUN) for rows that do not name one")
	cmd.Flags().IntVar(&batchSize, "batch-size", importer.BatchSize, "rows per transaction")
	return cmd
}

func diagnoseCommand() *cobra.Command {
	var cfg cliparse.Config

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report voters per home area and users whose home area has no voters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, st, err := openStore(&cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			d, err := st.Diagnose(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "HOME AREA\tVOTERS")
			for _, a := range d.Areas {
				fmt.Fprintf(tw, "%s\t%d\n", a.HomeArea, a.Voters)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if d.VotersWithoutArea > 0 {
				fmt.Fprintf(out, "\n%d voters have no home area\n", d.VotersWithoutArea)
			}
			if len(d.Unmatched) == 0 {
				fmt.Fprintln(out, "\nEvery user's home area has voters")
				return nil
			}
			fmt.Fprintln(out, "\nUsers whose home area has no voters:")
			for _, p := range d.Unmatched {
				fmt.Fprintf(out, "  %s (%s) %q\n", p.Username, p.Role, p.HomeArea)
			}
			return nil
		},
	}
	cliparse.BindDatabaseFlags(cmd.Flags(), &cfg)
	return cmd
}
