package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"pipeforge/backend/internal/api"
	"pipeforge/backend/internal/config"
	"pipeforge/backend/internal/logging"
	"pipeforge/backend/internal/mcp"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/internal/services"
	tlsutil "pipeforge/backend/internal/tls"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "pipeforge-server",
		Short: "Transformation revision backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Infow("Starting transformation revision service",
		"port", cfg.Server.Port, "in_memory_store", cfg.Server.InMemoryStore)

	// Initialize repository layer
	var store repository.RevisionStore
	if cfg.Server.InMemoryStore {
		store = repository.NewInMemoryStore()
	} else {
		pool, err := initDatabase(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		defer pool.Close()

		pgStore := repository.NewPostgresRevisionStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
		store = pgStore
		logger.Info("Database connected")
	}

	// Initialize service layer
	service := services.NewTransformationService(store, logger)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("pipeforge-backend"))

	// Mount REST API handlers
	apiServer := api.NewServer(service)
	apiServer.RegisterRoutes(e.Group("/api"))
	e.GET("/health", apiServer.HandleHealth)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(service)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) && len(cfg.TLS.Hostnames) > 0 {
				if err := tlsutil.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
					logger.Errorw("failed to generate self-signed cert", "error", err)
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Errorw("Server close error", "error", err)
			}
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
