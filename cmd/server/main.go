// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pu-events/portal/internal/assets"
	"github.com/pu-events/portal/internal/auth"
	"github.com/pu-events/portal/internal/config"
	"github.com/pu-events/portal/internal/database"
	"github.com/pu-events/portal/internal/handler"
	"github.com/pu-events/portal/internal/repository"
	"github.com/pu-events/portal/internal/service"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// ── 1. Connect to PostgreSQL and apply the schema ─────────────────────
	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	eventSvc := service.NewEventService(eventRepo, regRepo)
	regSvc := service.NewRegistrationService(eventRepo, regRepo)
	adminSvc := service.NewAdminService(regRepo, cfg.DisplayLocation())

	if err := eventSvc.Seed(ctx); err != nil {
		slog.Error("seed events", "error", err)
		os.Exit(1)
	}

	assetStore, err := assets.NewDiskStore(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		slog.Error("asset store", "error", err)
		os.Exit(1)
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.AdminDomain)
	provider := auth.NewProvider(cfg)
	secureCookies := strings.HasPrefix(cfg.BaseURL, "https://")

	eventHandler := handler.NewEventHandler(eventSvc, regSvc)
	adminHandler := handler.NewAdminHandler(eventSvc, regSvc, adminSvc, assetStore)
	authHandler := handler.NewAuthHandler(provider, sessions, secureCookies)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS(cfg.AllowedOrigin))
	r.Use(handler.StoreTimeout(cfg.StoreTimeout))

	// Health
	r.Get("/health", handler.HealthCheck)

	// Sign-in flow and session endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.With(sessions.RequireSession).Get("/me", authHandler.Me)
	})

	// Public event browsing plus authenticated registration
	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireSession)
			r.Post("/{id}/register", eventHandler.Register)
			r.Get("/{id}/registration", eventHandler.MyRegistration)
		})
	})

	// Admin dashboard
	r.Route("/admin", func(r chi.Router) {
		r.Use(sessions.RequireSession)
		r.Use(sessions.RequireAdmin)
		r.Get("/events", adminHandler.Overview)
		r.Post("/events", adminHandler.CreateEvent)
		r.Put("/events/{id}", adminHandler.UpdateEvent)
		r.Delete("/events/{id}", adminHandler.DeleteEvent)
		r.Get("/events/{id}/registrations", adminHandler.EventRegistrations)
		r.Get("/registrations", adminHandler.Registrations)
		r.Get("/registrations/export", adminHandler.ExportCSV)
		r.Post("/uploads", adminHandler.Upload)
	})

	// Uploaded event banners are served straight from disk.
	uploadsFS := http.FileServer(http.Dir(assetStore.Dir()))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadsFS))

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
