package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eion/usuarios/internal/config"
	"github.com/eion/usuarios/internal/database"
	"github.com/eion/usuarios/internal/health"
	"github.com/eion/usuarios/internal/users"
)

// AppState holds all application services
type AppState struct {
	DB          *bun.DB
	Logger      *zap.Logger
	Health      *health.Manager
	UserService users.UserService
}

func main() {
	config.Load()

	logger := initLogger()
	defer logger.Sync() //nolint:errcheck
	logger.Info("Configuration loaded", zap.String("source", "config.Load()"))

	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = as.Health.StartupHealthCheck(startupCtx)
	cancel()
	if err != nil {
		as.DB.Close()
		logger.Fatal("Startup health check failed", zap.Error(err))
	}

	router := setupRouter(as)

	httpConfig := config.Http()
	addr := fmt.Sprintf("%s:%d", httpConfig.Host, httpConfig.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := setupSignalHandler(as, server, logger)

	logger.Info("Starting usuarios server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState opens the shared pool, ensures the schema and builds the services
func newAppState(logger *zap.Logger) (*AppState, error) {
	pgConfig := config.Postgres()

	logger.Info("Database configuration",
		zap.String("host", pgConfig.Host),
		zap.Int("port", pgConfig.Port),
		zap.String("database", pgConfig.Database),
		zap.String("user", pgConfig.User),
		zap.Int("max_open_connections", pgConfig.MaxOpenConnections),
		zap.Int("max_idle_connections", pgConfig.MaxIdleConnections))

	db, err := database.Open(database.Options{
		DSN:             pgConfig.DSN(),
		Database:        pgConfig.Database,
		ReadTimeout:     time.Duration(pgConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(pgConfig.WriteTimeout) * time.Second,
		MaxOpenConns:    pgConfig.MaxOpenConnections,
		MaxIdleConns:    pgConfig.MaxIdleConnections,
		ConnMaxLifetime: pgConfig.ConnMaxLifetimeDuration(),
		ConnMaxIdleTime: pgConfig.ConnMaxIdleTimeDuration(),
		Tracing:         pgConfig.Tracing,
	}, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db, (*users.UserSchema)(nil)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	healthManager := health.NewManager(logger)
	healthManager.AddChecker(health.NewDatabaseChecker(db))

	userStore := users.NewPostgresStore(db)
	userService := users.NewUserService(userStore, pgConfig.OperationTimeoutDuration())

	return &AppState{
		DB:          db,
		Logger:      logger,
		Health:      healthManager,
		UserService: userService,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// MaxBodySizeMiddleware caps request bodies so oversized payloads fail to bind
func MaxBodySizeMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func setupRouter(as *AppState) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(cors.New(corsConfig(config.Http().CorsOrigins)))
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(MaxBodySizeMiddleware(config.Http().MaxRequestSize))

	router.GET("/health", as.Health.Handler(5*time.Second))

	users.NewHandlers(as.UserService, as.Logger).RegisterRoutes(router)

	return router
}

// shutdown stops accepting requests, then releases the pool
func shutdown(ctx context.Context, server *http.Server, db *bun.DB) error {
	var err error
	if serr := server.Shutdown(ctx); serr != nil {
		err = multierr.Append(err, fmt.Errorf("server shutdown: %w", serr))
	}
	if derr := db.Close(); derr != nil {
		err = multierr.Append(err, fmt.Errorf("database close: %w", derr))
	}
	return err
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := shutdown(ctx, server, as.DB); err != nil {
			for _, e := range multierr.Errors(err) {
				logger.Error("Error during shutdown", zap.Error(e))
			}
		}

		done <- struct{}{}
	}()

	return done
}
