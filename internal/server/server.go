// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the whole
// dependency chain is assembled:
//
//	config → sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below main ever reads the
// environment.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/secure-file-share/internal/auth"
	"github.com/sakif/secure-file-share/internal/config"
	"github.com/sakif/secure-file-share/internal/handler"
	"github.com/sakif/secure-file-share/internal/mail"
	"github.com/sakif/secure-file-share/internal/middleware"
	sqliteRepo "github.com/sakif/secure-file-share/internal/repository/sqlite"
	"github.com/sakif/secure-file-share/internal/service"
	"github.com/sakif/secure-file-share/internal/storage"
)

// Server owns the router, the database connection, and the listener
// lifecycle. The database is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with its full dependency graph wired.
//
// When cfg carries ops credentials, the ops account is provisioned here,
// before the listener starts — there is no HTTP route that creates ops
// users.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing upload directory: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var sender mail.Sender
	if cfg.MailConfigured() {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.BaseURL, logger)
	} else {
		logger.Warn("SMTP not configured — verification emails will be logged, not sent")
		sender = mail.NewLogSender(logger)
	}

	authSvc := service.NewAuthService(db, tokens, passwords, sender, logger)
	fileSvc := service.NewFileService(db.Files(), store, logger)

	if cfg.OpsEmail != "" && cfg.OpsPassword != "" {
		if err := authSvc.SeedOpsUser(context.Background(), cfg.OpsEmail, cfg.OpsPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding ops user: %w", err)
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(authSvc, fileSvc)

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /                              → welcome (health/landing)
//	POST /auth/signup/client            → register a client account
//	POST /auth/verify-email/{token}     → consume a verification token
//	POST /auth/login                    → credentials → bearer token
//	POST /files/upload                  → multipart upload        [bearer, ops]
//	GET  /files/files                   → list uploaded files     [bearer, client]
//	GET  /files/download-file/{file_id} → issue a download link   [bearer, client]
//	GET  /files/download/{token}        → fetch by download token [tokenholder]
func (s *Server) setupRoutes(authSvc *service.AuthService, fileSvc *service.FileService) {
	// Global middleware — runs on every request, in order.
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	fileHandler := handler.NewFileHandler(fileSvc, s.logger)

	s.router.Get("/", handler.HandleRoot)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup/client", authHandler.HandleSignupClient)
		r.Post("/verify-email/{token}", authHandler.HandleVerifyEmail)
		r.Post("/login", authHandler.HandleLogin)
	})

	s.router.Route("/files", func(r chi.Router) {
		// Download is deliberately outside RequireAuth: the unguessable
		// download token is the credential.
		r.Get("/download/{token}", fileHandler.HandleDownload)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authSvc))
			r.Post("/upload", fileHandler.HandleUpload)
			r.Get("/files", fileHandler.HandleList)
			r.Get("/download-file/{file_id}", fileHandler.HandleDownloadLink)
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// SHUTDOWN ORDER:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.HTTPAddress(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
