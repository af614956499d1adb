// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/seed"
)

func seedCommand() *cobra.Command {
	var (
		cfg  cliparse.Config
		file string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users from a YAML file, skipping usernames that exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			sf, err := seed.Load(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			conn, st, err := openStore(&cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := seed.Apply(cmd.Context(), st, sf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d users, skipped %d existing\n", len(res.Created), len(res.Skipped))
			return nil
		},
	}
	cliparse.BindDatabaseFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// passwordReader reads passwords from a terminal without echo, or one per
// line from anything else
type passwordReader struct {
	in  io.Reader
	out io.Writer
	buf *bufio.Reader
}

func newPasswordReader(in io.Reader, out io.Writer) *passwordReader {
	return &passwordReader{in: in, out: out, buf: bufio.NewReader(in)}
}

func (p *passwordReader) read(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := p.buf.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func passwdCommand() *cobra.Command {
	var (
		cfg        cliparse.Config
		mustChange bool
	)

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password and end their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			pr := newPasswordReader(cmd.InOrStdin(), cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "At least %d characters with upper case, lower case, a digit and a symbol\n", auth.MinPasswordLength)
			pw, err := pr.read("Password: ")
			if err != nil {
				return err
			}
			if err := auth.CheckPasswordStrength(pw); err != nil {
				return err
			}
			confirm, err := pr.read("Confirm password: ")
			if err != nil {
				return err
			}
			if pw != confirm {
				return errors.New("passwords do not match")
			}

			conn, st, err := openStore(&cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := st.SetPassword(cmd.Context(), username, pw, mustChange); err != nil {
				return fmt.Errorf("%s: %w", username, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", username)
			return nil
		},
	}
	cliparse.BindDatabaseFlags(cmd.Flags(), &cfg)
	cmd.Flags().BoolVar(&mustChange, "must-change", false, "require a change at next login")
	return cmd
}
