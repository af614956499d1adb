// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/handlers"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/session"
	"github.com/danielhkuo/votertag/store"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Metrics live on a registry per router so tests can build many
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New()
	m.Register(registry)

	st := store.New(db, cfg.DatabaseType)
	sessions := session.NewManager(st).WithMetrics(m)
	protected := middleware.RequireSession(sessions)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(st, sessions, m)
	voterHandler := handlers.NewVoterHandler(st, m, cfg)
	userHandler := handlers.NewUserHandler(st, m)
	auditHandler := handlers.NewAuditHandler(st, m)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Sessions
	mux.HandleFunc("POST /api/auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("GET /api/auth/me", middleware.WithLogging(protected(authHandler.Me)))
	mux.HandleFunc("POST /api/auth/change-password", middleware.WithLogging(protected(authHandler.ChangePassword)))

	// Voter directory (area scoped)
	mux.HandleFunc("GET /api/voters", middleware.WithLogging(protected(voterHandler.ListVoters)))
	mux.HandleFunc("GET /api/voters/export", middleware.WithLogging(protected(voterHandler.ExportVoters)))
	mux.HandleFunc("POST /api/voters/tags", middleware.WithLogging(protected(voterHandler.BatchUpdateTag)))
	mux.HandleFunc("GET /api/voters/{id}", middleware.WithLogging(protected(voterHandler.GetVoter)))
	mux.HandleFunc("PATCH /api/voters/{id}", middleware.WithLogging(protected(voterHandler.UpdateTag)))
	mux.HandleFunc("GET /api/values/{column}", middleware.WithLogging(protected(voterHandler.Values)))
	mux.HandleFunc("GET /api/stats", middleware.WithLogging(protected(voterHandler.Stats)))

	// Principal administration
	mux.HandleFunc("GET /api/users", middleware.WithLogging(protected(userHandler.ListUsers)))
	mux.HandleFunc("POST /api/users", middleware.WithLogging(protected(userHandler.CreateUser)))
	mux.HandleFunc("GET /api/users/{id}", middleware.WithLogging(protected(userHandler.GetUser)))
	mux.HandleFunc("PATCH /api/users/{id}/active", middleware.WithLogging(protected(userHandler.SetActive)))
	mux.HandleFunc("POST /api/users/{id}/reset-password", middleware.WithLogging(protected(userHandler.ResetPassword)))

	// Audit trail
	mux.HandleFunc("GET /api/audit-logs", middleware.WithLogging(protected(auditHandler.AuditLog)))
	mux.HandleFunc("GET /api/me/activity", middleware.WithLogging(protected(auditHandler.MyActivity)))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votertag API v1"))
	})

	return middleware.WithRequestID(middleware.CORS(cfg.CORSOrigins)(mux))
}
