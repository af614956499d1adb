// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/router"
	"github.com/danielhkuo/votertag/store"
)

const (
	// BootstrapAdminUsername is the super_admin created on an empty database
	BootstrapAdminUsername = "admin"

	shutdownTimeout = 10 * time.Second

	// writeTimeout bounds a whole response, exports included
	writeTimeout = 2 * time.Minute
	idleTimeout  = 2 * time.Minute
)

// bootstrapAdmin creates the first super_admin when no principal exists.
// It reports whether one was created.
func bootstrapAdmin(ctx context.Context, st *store.Store, password string) (bool, error) {
	n, err := st.CountPrincipals(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if password == "" {
		slog.Warn("no users exist and BOOTSTRAP_ADMIN_PASSWORD is not set; nobody can log in")
		return false, nil
	}

	if err := auth.CheckPasswordStrength(password); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	p, err := st.InsertPrincipal(ctx, store.NewPrincipal{
		Username:           BootstrapAdminUsername,
		FullName:           "Administrator",
		Role:               models.RoleSuperAdmin,
		PasswordHash:       hash,
		MustChangePassword: true,
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	slog.Info("bootstrap admin created", "username", p.Username, "id", p.ID)
	return true, nil
}

func serveRun(ctx context.Context, cfg cliparse.Config, ready chan<- net.Addr) error {
	conn, st, err := openStore(&cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if _, err := bootstrapAdmin(ctx, st, cfg.BootstrapAdminPassword); err != nil {
		return err
	}

	if len(cfg.CORSOrigins) == 0 {
		slog.Warn("CORS_ORIGINS is not set; any origin may call the API without credentials")
	}

	server := &http.Server{
		Handler:           router.NewRouter(conn, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	ln, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("Listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}

func serveCommand() *cobra.Command {
	var cfg cliparse.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Resolve(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveRun(ctx, cfg, nil)
		},
	}
	cliparse.BindFlags(cmd.Flags(), &cfg)
	return cmd
}
