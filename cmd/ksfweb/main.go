// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// ksfweb is the KS Foundation web gateway: it renders the public site and
// the staff back-office, talking to the foundation's content API for all
// domain data and keeping only visitor sessions locally.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/cache"
	"github.com/ksfoundation/ksf-web/internal/config"
	"github.com/ksfoundation/ksf-web/internal/handler"
	"github.com/ksfoundation/ksf-web/internal/jobs"
	"github.com/ksfoundation/ksf-web/internal/logging"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
	"github.com/ksfoundation/ksf-web/internal/store"
	"github.com/ksfoundation/ksf-web/internal/version"
	"github.com/ksfoundation/ksf-web/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ksfweb - KS Foundation web gateway\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_SESSION_SECRET     Session/CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_API_BASE_URL       Content API base URL (default: http://<host>:8000/api)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_SESSION_DB_PATH    Session database path (default: ./data/sessions.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_RECAPTCHA_SITE_KEY reCAPTCHA site key for public forms (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KSF_REDIS_URL          Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("ksfweb %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Logger with the in-memory event buffer feeding the admin dashboard.
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	events := logging.NewEventBuffer(200)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logging.NewEventBufferHandler(textHandler, events))
	slog.SetDefault(logger)

	handler.MaxUploadSize = cfg.UploadMaxBytes

	// Session database
	dbDir := filepath.Dir(cfg.SessionDBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	slog.Info("initializing session database", "path", cfg.SessionDBPath)
	db, err := store.NewDB(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("session database ready")

	// Session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Cache
	contentCache, err := cache.New(cache.Options{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxEntries: cfg.CacheMaxSize,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	slog.Info("cache initialized", "redis", cfg.UseRedisCache())

	// Content API client and session-bound token store
	apiClient := api.NewClient(cfg.APIURL())
	sessions := session.NewStore(sessionManager, apiClient, contentCache)
	slog.Info("content API client initialized", "base_url", cfg.APIURL())

	// Renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		RecaptchaKey:   cfg.RecaptchaSiteKey,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	// Login protection
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Handlers
	publicHandler := handler.NewPublicHandler(sessions, renderer, contentCache)
	blogHandler := handler.NewBlogHandler(sessions, renderer)
	contactHandler := handler.NewContactHandler(sessions, renderer)
	authHandler := handler.NewAuthHandler(sessions, renderer, loginProtection)
	adminHandler := handler.NewAdminHandler(sessions, renderer, events, versionInfo)
	adminScreens := handler.NewAdminScreens(sessions, renderer, publicHandler)

	// Background jobs: cache sweep, session DB maintenance, content warming
	scheduler := jobs.New(db, contentCache, publicHandler.Warm, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath())
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadUser(sessions))

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Public content pages
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)

		r.Get("/", publicHandler.Home)
		r.Get("/vision", publicHandler.Vision)
		r.Get("/members", publicHandler.Members)
		r.Get("/notices", publicHandler.Notices)
		r.Get("/library", publicHandler.Library)
		r.Get("/healthcamps", publicHandler.HealthCamps)

		r.Get("/blog", blogHandler.List)
		r.Get("/blog/{id}", blogHandler.Detail)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth())
			r.Post("/blog/{id}/comments", blogHandler.CommentPost)
			r.Post("/blog/{id}/comments/{commentID}/delete", blogHandler.CommentDelete)
		})

		r.Get("/contact", contactHandler.Show)
		r.Post("/contact", contactHandler.Submit)
	})

	// Auth screens
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)

		r.Get("/login", authHandler.LoginShow)
		r.With(loginProtection.Middleware()).Post("/login", authHandler.LoginSubmit)
		r.Post("/logout", authHandler.Logout)

		r.Get("/register", authHandler.RegisterShow)
		r.Post("/register", authHandler.RegisterSubmit)
		r.Get("/register/staff", authHandler.StaffRegisterShow)
		r.Post("/register/staff", authHandler.StaffRegisterSubmit)

		r.Get("/verify-email", authHandler.VerifyEmail)
		r.Post("/resend-verification", authHandler.ResendVerification)
		r.Get("/forgot-password", authHandler.ForgotShow)
		r.Post("/forgot-password", authHandler.ForgotSubmit)
		r.Get("/password-reset/{uid}/{token}", authHandler.ResetShow)
		r.Post("/password-reset/{uid}/{token}", authHandler.ResetSubmit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth())
			r.Get("/profile", authHandler.ProfileShow)
			r.Post("/profile", authHandler.ProfileUpdate)
			r.Post("/profile/password", authHandler.ChangePassword)
		})
	})

	// Admin back-office: staff and admins only
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth())
		r.Use(middleware.RequireRole(handler.StaffRoles...))

		r.Get("/", adminHandler.Dashboard)
		adminScreens.Mount(r)
	})

	// Static assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	staticHandler := middleware.StaticCache(31536000)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Handle("/static/*", staticHandler)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Warm the public content caches in the background at startup.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := publicHandler.Warm(ctx); err != nil {
			slog.Warn("initial content warm failed", "category", "content", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
