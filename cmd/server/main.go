package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/pairgraph/internal/config"
	"github.com/HammerMeetNail/pairgraph/internal/database"
	"github.com/HammerMeetNail/pairgraph/internal/handlers"
	"github.com/HammerMeetNail/pairgraph/internal/logging"
	"github.com/HammerMeetNail/pairgraph/internal/middleware"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New().SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting pairgraph server...", map[string]interface{}{
		"env": cfg.Server.Environment,
	})
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every bearer token will be rejected")
	}

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		logger.Info("Running database migrations...", map[string]interface{}{
			"path": cfg.Database.MigrationsPath,
		})
		if err := database.Migrate(cfg.Database.MigrationsPath, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("Migrations completed")
	}

	// Redis only backs rate limiting, so the server runs without it.
	var scripter redis.Scripter
	var redisHealth handlers.HealthChecker
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{
			"addr": cfg.Redis.Addr(),
		})
		redisDB, err := database.NewRedisDB(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()
		scripter = redisDB.Client
		redisHealth = redisDB
		logger.Info("Connected to Redis")
	}

	dbAdapter := services.NewPoolAdapter(db.Pool)
	store := services.NewPostgresRelationshipStore(dbAdapter, cfg.Relationships.LockTimeout)
	accounts := services.NewPostgresAccountDirectory(dbAdapter)

	handler := newRouter(routerDeps{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		accounts:    accounts,
		dbHealth:    db,
		redisHealth: redisHealth,
		scripter:    scripter,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": server.Addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type routerDeps struct {
	cfg         *config.Config
	logger      *logging.Logger
	store       services.RelationshipStore
	accounts    services.AccountDirectory
	dbHealth    handlers.HealthChecker
	redisHealth handlers.HealthChecker
	scripter    redis.Scripter
}

// newRouter wires services, handlers and middleware over the given store and
// account directory.
func newRouter(deps routerDeps) http.Handler {
	cfg := deps.cfg

	friendService := services.NewFriendService(deps.store, deps.accounts)
	friendService.SetRetryPolicy(cfg.Relationships.MaxAttempts, cfg.Relationships.RetryBackoff)
	blockService := services.NewBlockService(deps.store, deps.accounts)
	blockService.SetRetryPolicy(cfg.Relationships.MaxAttempts, cfg.Relationships.RetryBackoff)
	relationshipService := services.NewRelationshipService(deps.store, deps.accounts)
	relationshipService.SetSearchLimits(cfg.Relationships.DefaultSearchLimit, cfg.Relationships.MaxSearchLimit)

	friendHandler := handlers.NewFriendHandler(friendService, relationshipService)
	blockHandler := handlers.NewBlockHandler(blockService)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService, blockService)
	healthHandler := handlers.NewHealthHandler(deps.dbHealth, deps.redisHealth)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	requestLogger := middleware.NewRequestLogger(deps.logger)
	friendRequestLimiter := newLimiter(deps.scripter, cfg.RateLimit.FriendRequests, cfg.RateLimit.Window, "ratelimit:friend_requests:")
	blockLimiter := newLimiter(deps.scripter, cfg.RateLimit.Blocks, cfg.RateLimit.Window, "ratelimit:blocks:")

	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Friends
	mux.HandleFunc("GET /api/friends", friendHandler.List)
	mux.HandleFunc("GET /api/friends/search", friendHandler.Search)
	mux.HandleFunc("GET /api/friends/requests/sent", friendHandler.ListSent)
	mux.HandleFunc("GET /api/friends/requests/received", friendHandler.ListReceived)
	mux.Handle("POST /api/friends/requests", friendRequestLimiter.Middleware(http.HandlerFunc(friendHandler.SendRequest)))
	mux.HandleFunc("PUT /api/friends/requests/{id}/accept", friendHandler.Accept)
	mux.HandleFunc("PUT /api/friends/requests/{id}/reject", friendHandler.Reject)
	mux.HandleFunc("DELETE /api/friends/requests/{id}/cancel", friendHandler.Cancel)
	mux.HandleFunc("DELETE /api/friends/{id}", friendHandler.Unfriend)

	// Relationships
	mux.HandleFunc("GET /api/relationships/{id}", relationshipHandler.Get)

	// Blocks
	mux.HandleFunc("GET /api/blocks", blockHandler.List)
	mux.Handle("POST /api/blocks", blockLimiter.Middleware(http.HandlerFunc(blockHandler.Block)))
	mux.HandleFunc("DELETE /api/blocks/{id}", blockHandler.Unblock)

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = requestLogger.Apply(handler)
	return handler
}

type limiter interface {
	Middleware(next http.Handler) http.Handler
}

// newLimiter prefers the shared Redis counter and falls back to an
// in-process bucket when Redis is disabled.
func newLimiter(scripter redis.Scripter, limit int64, window time.Duration, prefix string) limiter {
	if scripter == nil {
		return middleware.NewLocalRateLimiter(limit, window, middleware.ActorKey)
	}
	return middleware.NewRateLimiter(scripter, limit, window, prefix, middleware.ActorKey, true)
}
