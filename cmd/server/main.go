package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HammerMeetNail/giftcircle/internal/config"
	"github.com/HammerMeetNail/giftcircle/internal/database"
	"github.com/HammerMeetNail/giftcircle/internal/handlers"
	"github.com/HammerMeetNail/giftcircle/internal/logging"
	"github.com/HammerMeetNail/giftcircle/internal/middleware"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
	"github.com/HammerMeetNail/giftcircle/internal/validation"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	loadDotEnv(logger, ".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting Gift Circle server...", map[string]interface{}{"env": cfg.Server.Environment})

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	checks := map[string]handlers.HealthChecker{"postgres": db}

	// Redis is optional; without it rate limits are kept per process.
	var counter middleware.WindowCounter
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		redisDB, err := database.NewRedisDB(database.RedisOptions{
			URL:      cfg.Redis.URL,
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()
		counter = middleware.NewRedisCounter(redisDB.Client)
		checks["redis"] = redisDB
		logger.Info("Connected to Redis")
	}

	// Photo storage
	photos, uploadsDir, err := newPhotoStore(context.Background(), cfg.Upload)
	if err != nil {
		return fmt.Errorf("initializing photo storage: %w", err)
	}
	logger.Info("Photo storage ready", map[string]interface{}{"provider": cfg.Upload.Provider})

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)

	tokens := services.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	authService := services.NewAuthService(dbAdapter, tokens, cfg.Auth.BcryptCost)
	friendService := services.NewFriendService(dbAdapter)
	itemService := services.NewItemService(dbAdapter, friendService, photos)
	wishService := services.NewWishService(dbAdapter, friendService)

	sender, err := services.NewEmailSender(&cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("initializing email sender: %w", err)
	}
	friendService.SetNotifier(services.NewEmailNotifier(sender, cfg.Email.BaseURL))

	// Initialize handlers
	validator := validation.New()
	healthHandler := handlers.NewHealthHandler(checks)
	authHandler := handlers.NewAuthHandler(authService, validator)
	friendHandler := handlers.NewFriendHandler(friendService, validator)
	itemHandler := handlers.NewItemHandler(itemService, validator, cfg.Upload.MaxFileSize)
	wishHandler := handlers.NewWishHandler(wishService, validator)

	// Initialize middleware
	clientIP, err := middleware.NewClientIP(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parsing TRUSTED_PROXIES: %w", err)
	}
	apiLimiter := middleware.NewRateLimiter(counter, middleware.RateLimitOptions{
		Limit:    cfg.RateLimit.Max,
		Window:   cfg.RateLimit.Window,
		Prefix:   "ratelimit:api:",
		Message:  "Too many requests from this IP, please try again later",
		KeyFn:    clientIP.Resolve,
		FailOpen: true,
	})
	authLimiter := middleware.NewRateLimiter(counter, middleware.RateLimitOptions{
		Limit:   cfg.RateLimit.AuthMax,
		Window:  cfg.RateLimit.Window,
		Prefix:  "ratelimit:auth:",
		Message: "Too many authentication attempts, please try again later",
		KeyFn:   clientIP.Resolve,
	})
	compress, err := middleware.NewCompress()
	if err != nil {
		return err
	}
	metrics := middleware.NewMetrics()
	requestLogger := middleware.NewRequestLogger(logger)
	requestLogger.SetClientIP(clientIP)

	mux := newRouter(routerDeps{
		health:         healthHandler,
		auth:           authHandler,
		friends:        friendHandler,
		items:          itemHandler,
		wishes:         wishHandler,
		authMiddleware: middleware.NewAuthMiddleware(authService),
		authLimiter:    authLimiter,
		metrics:        metrics,
		uploadsDir:     uploadsDir,
	})
	handler := buildChain(mux, chainDeps{
		metrics:       metrics,
		apiLimiter:    apiLimiter,
		cors:          middleware.NewCORS(cfg.Server.ClientURL),
		compress:      compress,
		security:      middleware.NewSecurityHeaders(cfg.Server.IsProduction()),
		requestLogger: requestLogger,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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
		"addr": addr,
		"api":  apiPrefix,
	})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// loadDotEnv reads path into the environment. Variables that are already set
// win, and a missing file is expected outside development.
func loadDotEnv(logger *logging.Logger, path string) {
	err := godotenv.Load(path)
	if err == nil {
		logger.Debug("Loaded environment file", map[string]interface{}{"path": path})
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	logger.Warn("Could not load environment file", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
}

// newPhotoStore builds the storage manager. The local backend is always
// registered so photos written before a provider switch can still be deleted;
// it returns the local directory to serve, or "" when photos live remotely.
func newPhotoStore(ctx context.Context, cfg config.UploadConfig) (*storage.Manager, string, error) {
	local, err := storage.NewLocalBackend(cfg.Dir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	processor := storage.NewImageProcessor(cfg.MaxFileSize)

	if cfg.GCSBucket == "" {
		if cfg.Provider == "gcs" {
			return nil, "", errors.New("GCS_BUCKET is required when STORAGE_PROVIDER=gcs")
		}
		return storage.NewManager(processor, local), local.Dir(), nil
	}

	remote, err := storage.NewGCSBackend(ctx, storage.GCSOptions{
		Bucket:          cfg.GCSBucket,
		CredentialsJSON: cfg.GCSCredentials,
		CredentialsFile: cfg.GCSCredFilePath,
	})
	if err != nil {
		return nil, "", err
	}
	if cfg.Provider == "gcs" {
		return storage.NewManager(processor, remote, local), "", nil
	}
	return storage.NewManager(processor, local, remote), local.Dir(), nil
}
