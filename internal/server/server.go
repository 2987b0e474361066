// Package server wires the application together and runs the HTTP server.
//
// New is the composition root: it opens the database, builds the services
// on top of it, wraps them in handlers and mounts those on the router. No
// other package constructs its own dependencies.
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
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/cache"
	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/handler"
	"github.com/sakif/conduit/internal/metrics"
	"github.com/sakif/conduit/internal/middleware"
	sqliteRepo "github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/service"
)

// Server owns the router and every long-lived resource behind it.
// Close releases them; Start calls Close on the way out.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	rdb     *redis.Client // nil without REDIS_URL
	limiter *middleware.RateLimiter
	metrics *metrics.Metrics
}

// New opens the database (applying migrations), connects the optional
// redis tag cache and builds the router.
//
// An unreachable redis is not fatal: the server starts without the cache.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, tag cache disabled", slog.String("error", err.Error()))
		} else {
			s.rdb = rdb
		}
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes mounts every endpoint.
//
// ROUTES:
//
//	POST   /api/users                                 register (rate limited)
//	POST   /api/users/login                           login (rate limited)
//	GET    /api/user                                  current user       [auth]
//	PUT    /api/user                                  update user        [auth]
//	GET    /api/profiles/{username}                   profile            [optional]
//	POST   /api/profiles/{username}/follow            follow             [auth]
//	DELETE /api/profiles/{username}/follow            unfollow           [auth]
//	GET    /api/articles                              list               [optional]
//	GET    /api/articles/feed                         feed               [auth]
//	POST   /api/articles                              create             [auth]
//	GET    /api/articles/{slug}                       get                [optional]
//	PUT    /api/articles/{slug}                       update             [auth, author]
//	DELETE /api/articles/{slug}                       delete             [auth, author]
//	POST   /api/articles/{slug}/favorite              favorite           [auth]
//	DELETE /api/articles/{slug}/favorite              unfavorite         [auth]
//	GET    /api/articles/{slug}/comments              comments           [optional]
//	POST   /api/articles/{slug}/comments              add comment        [auth]
//	DELETE /api/articles/{slug}/comments/{commentId}  delete comment     [auth, author]
//	GET    /api/tags                                  tags
//	GET    /api/status                                health check
//	GET    /api/auth/github/{login,callback}          GitHub sign-in (when configured)
//	GET    /metrics                                   Prometheus
//
// MIDDLEWARE ORDER MATTERS: the request id must exist before the logger
// runs, and the logger sits outside Recoverer so recovered panics are
// logged as 500s.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.BcryptCost)

	// A nil *cache.TagCache in the interface would not compare equal to nil.
	var tagCache service.TagCache
	if s.rdb != nil {
		tagCache = cache.NewTagCache(s.rdb, cfg.TagCacheTTL)
	}

	// === Services ===
	tagService := service.NewTagService(s.db, tagCache, s.logger)
	userService := service.NewUserService(s.db, tokens, passwords, s.logger)
	articleService := service.NewArticleService(s.db, tagService, s.logger)
	commentService := service.NewCommentService(s.db, s.logger)

	// === Handlers ===
	users := handler.NewUserHandler(userService, s.logger)
	articles := handler.NewArticleHandler(articleService, s.logger)
	comments := handler.NewCommentHandler(commentService, s.logger)
	tags := handler.NewTagHandler(tagService)
	status := handler.NewStatusHandler(s.db, s.logger)

	authn := auth.NewAuthenticator(tokens, s.db, cfg.TokenScheme, handler.WriteError)
	required := authn.Middleware(auth.Required)
	optional := authn.Middleware(auth.Optional)

	s.limiter = middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, handler.WriteError, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	// Instrument wraps Recoverer so a recovered panic is counted as a 500.
	s.router.Use(s.metrics.Instrument)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", status.HandleStatus)
		r.Get("/tags", tags.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/users", users.HandleRegister)
			r.Post("/users/login", users.HandleLogin)
		})

		r.With(required).Get("/user", users.HandleCurrent)
		r.With(required).Put("/user", users.HandleUpdate)

		r.Route("/profiles/{username}", func(r chi.Router) {
			r.With(optional).Get("/", users.HandleProfile)
			r.With(required).Post("/follow", users.HandleFollow)
			r.With(required).Delete("/follow", users.HandleUnfollow)
		})

		r.Route("/articles", func(r chi.Router) {
			r.With(optional).Get("/", articles.HandleList)
			r.With(required).Post("/", articles.HandleCreate)
			r.With(required).Get("/feed", articles.HandleFeed)

			r.Route("/{slug}", func(r chi.Router) {
				r.With(optional, articles.ArticleCtx).Get("/", articles.HandleGet)
				r.With(required, articles.ArticleCtx, handler.RequireArticleAuthor).Put("/", articles.HandleUpdate)
				r.With(required, articles.ArticleCtx, handler.RequireArticleAuthor).Delete("/", articles.HandleDelete)

				r.With(required, articles.ArticleCtx).Post("/favorite", articles.HandleFavorite)
				r.With(required, articles.ArticleCtx).Delete("/favorite", articles.HandleUnfavorite)

				r.With(optional, articles.ArticleCtx).Get("/comments", comments.HandleList)
				r.With(required, articles.ArticleCtx).Post("/comments", comments.HandleCreate)
				r.With(required, articles.ArticleCtx, comments.CommentCtx, handler.RequireCommentAuthor).
					Delete("/comments/{commentId}", comments.HandleDelete)
			})
		})

		if cfg.GitHubEnabled() {
			github := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
			oauth := handler.NewOAuthHandler(github, userService, s.logger)

			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Handler)
				r.Get("/auth/github/login", oauth.HandleGitHubLogin)
				r.Get("/auth/github/callback", oauth.HandleGitHubCallback)
			})
		}
	})

	s.router.NotFound(handler.HandleNotFound)

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the redis client.
func (s *Server) Close() error {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the database and redis
func (s *Server) Start() error {
	defer s.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	s.limiter.StartCleanup(ctx, 10*time.Minute)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.String("url", fmt.Sprintf("http://localhost:%d/api", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("tagCache", s.rdb != nil),
			slog.Bool("github", s.config.GitHubEnabled()),
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
