// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the database, services,
// handlers, middleware and routes, and decides how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	   → sqlstore.Open                 (*sqlstore.DB, migrations applied)
//	   → AccountService                (bcrypt + optional JWT)
//	   → auth.Guard                    (Basic / Bearer middleware)
//	   → UserService                   (owner scoping, transactions)
//	   → UserHandler / TokenHandler    (HTTP)
//
// This is the "composition root" pattern: every dependency is wired in New,
// rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/config"
	"github.com/sakif/user-hobbies/internal/handler"
	"github.com/sakif/user-hobbies/internal/middleware"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository/sqlstore"
	"github.com/sakif/user-hobbies/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained; callers that never call Start must call Close.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqlstore.DB
	accounts *service.AccountService
	users    *service.UserService
}

// New opens the database and wires every layer.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	passwords, err := auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating password service: %w", err)
	}

	// Bearer tokens are optional. Without a secret the server still accepts
	// Basic credentials and POST /auth/token answers 503.
	var tokens *auth.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating token service: %w", err)
		}
	} else {
		logger.Warn("auth.jwt_secret not set, bearer tokens are disabled")
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		accounts: service.NewAccountService(db.Accounts(), passwords, tokens, logger),
		users:    service.NewUserService(db.Users(), db, logger),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz       → database ping, no auth
//	POST   /auth/token    → bearer token for Basic credentials
//	GET    /user?userId=N → read        (role USER)
//	POST   /user          → create      (role USER)
//	PUT    /user          → update      (role USER)
//	DELETE /user?userId=N → delete      (role USER)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID tags the request, so the logger can print it
//  2. RealIP rewrites RemoteAddr from proxy headers
//  3. Logger wraps Recoverer, so a recovered panic is logged as a 500
//  4. Recoverer turns panics into 500 responses
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	guard := auth.NewGuard(s.accounts, s.config.Auth.Realm, s.logger)

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	tokenHandler := handler.NewTokenHandler(s.accounts, s.logger)
	userHandler := handler.NewUserHandler(s.users, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.With(guard.RequireBasic).Post("/auth/token", tokenHandler.HandleIssue)

	s.router.Route("/user", func(r chi.Router) {
		r.Use(guard.RequireRole(model.RoleUser))
		r.Get("/", userHandler.HandleGet)
		r.Post("/", userHandler.HandleCreate)
		r.Put("/", userHandler.HandleUpdate)
		r.Delete("/", userHandler.HandleDelete)
	})
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Accounts exposes the account service, e.g. to register the first account.
func (s *Server) Accounts() *service.AccountService {
	return s.accounts
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("driver", s.db.Driver()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
