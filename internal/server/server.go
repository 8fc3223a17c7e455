// Package server wires the dependency graph, the router and the HTTP
// server lifecycle.
//
// New is the composition root: it opens the database, the optional Redis and
// RabbitMQ connections, builds services and handlers and mounts the routes.
// Handlers only see services; services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/config"
	"github.com/sakif/marketplace-api/internal/event"
	"github.com/sakif/marketplace-api/internal/handler"
	"github.com/sakif/marketplace-api/internal/metrics"
	"github.com/sakif/marketplace-api/internal/middleware"
	"github.com/sakif/marketplace-api/internal/ratelimit"
	sqliteRepo "github.com/sakif/marketplace-api/internal/repository/sqlite"
	"github.com/sakif/marketplace-api/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived resource. Close releases them.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	rdb      *redis.Client // nil when REDIS_ADDR is unset
	sink     io.Closer     // nil unless events go to RabbitMQ
	emitter  *event.Emitter
	registry *prometheus.Registry
}

// New builds a Server from cfg. Redis and RabbitMQ are optional: without
// REDIS_ADDR the login limiter allows everything, and without RABBITMQ_URL
// (or when the broker is unreachable) events are written to the log.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(s.registry)

	if cfg.Redis.Addr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, login rate limiting will fail open",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}

	s.emitter = event.NewEmitter(s.newSink(), logger, cfg.Events.Timeout, collector)

	if err := s.setupRoutes(collector); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// newSink dials RabbitMQ when configured and falls back to the log sink.
func (s *Server) newSink() event.Sink {
	if s.cfg.Events.RabbitMQURL == "" {
		return event.NewLogSink(s.logger)
	}
	rmq, err := event.DialRabbitMQ(s.cfg.Events.RabbitMQURL, s.cfg.Events.Exchange)
	if err != nil {
		s.logger.Warn("rabbitmq unavailable, logging events instead",
			slog.String("error", err.Error()),
		)
		return event.NewLogSink(s.logger)
	}
	s.sink = rmq
	s.logger.Info("publishing events to rabbitmq", slog.String("exchange", s.cfg.Events.Exchange))
	return rmq
}

// setupRoutes mounts middleware and routes.
//
//	GET  /healthz               database ping
//	GET  /metrics               Prometheus scrape
//	POST /api/users             register
//	POST /api/users/login       login (per-IP Redis limit)
//	GET  /api/user              current user        (auth required)
//	PUT  /api/user              update current user (auth required)
//	POST /api/toggle-verify     flip isVerified     (auth required)
//	GET  /api/items             list items          (auth optional)
func (s *Server) setupRoutes(collector *metrics.Collector) error {
	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(s.cfg.Auth.BcryptCost)

	userService := service.NewUserService(s.db, tokens, passwords, s.emitter, s.logger)
	itemService := service.NewItemService(s.db, s.db, s.db, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	itemHandler := handler.NewItemHandler(itemService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	loginLimiter := ratelimit.NewFixedWindowLimiter(s.rdb, s.cfg.RateLimit.LoginLimit, s.cfg.RateLimit.LoginWindow)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(collector))

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.router.Route("/api", func(r chi.Router) {
		if rpm := s.cfg.RateLimit.GlobalRPM; rpm > 0 {
			r.Use(httprate.LimitByIP(rpm, time.Minute))
		}

		r.Post("/users", userHandler.HandleRegister)
		r.With(middleware.RateLimit("login", loginLimiter, collector, s.logger)).
			Post("/users/login", userHandler.HandleLogin)

		r.With(auth.OptionalAuth(tokens)).Get("/items", itemHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/user", userHandler.HandleCurrent)
			r.Put("/user", userHandler.HandleUpdate)
			r.Post("/toggle-verify", userHandler.HandleToggleVerify)
		})
	})

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled (SIGINT/SIGTERM in main), then
// shuts down gracefully: stop accepting connections, wait up to 30s for
// in-flight requests, drain pending events and close every resource.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", s.cfg.AppEnv),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close waits for pending events and releases the broker, Redis and
// database connections, in that order.
func (s *Server) Close() error {
	s.emitter.Wait()

	var errs []error
	if s.sink != nil {
		errs = append(errs, s.sink.Close())
	}
	if s.rdb != nil {
		errs = append(errs, s.rdb.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
