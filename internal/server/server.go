// Package server is the composition root: it builds the services and
// handlers, mounts them on a chi router and runs the HTTP server with
// graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	cmd/server (config, logger, db, bucket)
//	  → Server.New: services → handlers → routes
//
// Handlers never see the database or the bucket directly; services never
// see HTTP.
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

	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/config"
	"github.com/sakif/estate-portal/internal/handler"
	"github.com/sakif/estate-portal/internal/middleware"
	"github.com/sakif/estate-portal/internal/repository/sqlstore"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/storage"
)

const authRateWindow = 15 * time.Minute

// Server owns the router and the database handle it closes on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqlstore.DB
	bucket  storage.Bucket
	limiter *middleware.RateLimiter
}

// New wires every dependency and sets up the routes. The server takes
// ownership of db.
func New(cfg *config.Config, logger *slog.Logger, db *sqlstore.DB, bucket storage.Bucket) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		bucket:  bucket,
		limiter: middleware.NewRateLimiter(cfg.AuthRateLimit, authRateWindow, logger),
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /login, /register                 public pages
//	GET  /, /dashboard, /dashboard/*,      gated pages (Access middleware)
//	     /listing/{id}
//	GET  /api/listings                     list listings
//	POST /api/listings, /api/listing/{id}  create listing
//	GET  /api/listing/{id}                 one listing
//	PUT  /api/listing/update/{id}          update listing
//	GET  /api/listing/delete/{id}          delete listing (legacy verb, same-origin only)
//	DELETE /api/listing/{id}               delete listing
//	POST /api/register, /api/login         rate limited per IP
//	GET  /api/auth/logout, /api/session
//	GET  /api/users, /api/user/{id}
//	PUT  /api/profile
//	GET  /auth/github/login, /auth/github/callback
//	GET  /storage/v1/object/public/storage/*  disk bucket only
//
// MIDDLEWARE ORDER: RequestID → RealIP → Recoverer → Logger → Access, then
// the Session middleware on everything that reads the signed-in user.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	cookies := auth.NewCookies(tokens, s.config.CookieSecure)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.CallbackURL())
	} else {
		s.logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID/SECRET not set)")
	}

	authService := service.NewAuthService(s.db.Identities(), s.db.Users(), tokens, auth.NewPasswordService(), s.logger)
	listingService := service.NewListingService(s.db.Listings(), s.bucket, s.logger)
	userService := service.NewUserService(s.db.Users(), s.bucket, s.logger)

	baseURL := s.config.StoragePublicBaseURL
	authHandler := handler.NewAuthHandler(authService, cookies, github, s.logger)
	listingHandler := handler.NewListingHandler(listingService, baseURL, s.logger)
	userHandler := handler.NewUserHandler(userService, baseURL, s.logger)
	pageHandler, err := handler.NewPageHandler(listingService, baseURL, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Access(tokens, cookies, s.logger))

	// Stored objects, when the bucket is the local disk.
	if disk, ok := s.bucket.(*storage.DiskBucket); ok {
		s.router.Handle(storage.PublicPrefix+"*", disk.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Session(tokens, authService, s.logger))

		// === Pages ===
		r.Get("/login", pageHandler.HandleLogin)
		r.Get("/register", pageHandler.HandleRegister)
		r.Get("/", pageHandler.HandleHome)
		r.Get("/dashboard", pageHandler.HandleDashboard)
		r.Get("/dashboard/add-listing", pageHandler.HandleAddListing)
		r.Get("/listing/{id}", pageHandler.HandleListing)

		// === GitHub OAuth ===
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

		// === API ===
		r.Route("/api", func(r chi.Router) {
			r.With(s.limiter.Middleware).Post("/register", authHandler.HandleRegister)
			r.With(s.limiter.Middleware).Post("/login", authHandler.HandleLogin)
			r.Get("/auth/logout", authHandler.HandleLogout)
			r.Get("/session", authHandler.HandleSession)

			r.Get("/listings", listingHandler.HandleList)
			r.Post("/listings", listingHandler.HandleCreate)
			r.Get("/listing/{id}", listingHandler.HandleGetByID)
			r.Post("/listing/{id}", listingHandler.HandleCreate)
			r.Delete("/listing/{id}", listingHandler.HandleDelete)
			r.Put("/listing/update/{id}", listingHandler.HandleUpdate)
			r.With(middleware.SameOrigin(s.logger)).Get("/listing/delete/{id}", listingHandler.HandleDelete)

			r.Get("/users", userHandler.HandleList)
			r.Get("/user/{id}", userHandler.HandleGetByID)
			r.Put("/profile", userHandler.HandleUpdateProfile)
		})
	})

	return nil
}

// httpServer bounds header reads tightly but gives the body minutes, since
// a listing create carries up to four 5 MB images.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      6 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.limiter.Run(ctx, time.Minute)

	srv := s.httpServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("db_driver", s.config.DBDriver),
			slog.String("storage", s.config.StorageDriver),
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

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
