package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carbon-platform/internal/carbon"
	"carbon-platform/internal/compliance"
	"carbon-platform/internal/config"
	"carbon-platform/internal/handlers"
	"carbon-platform/internal/repository"
	"carbon-platform/internal/services"
	"carbon-platform/pkg/database"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("carbon-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting carbon platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("carbon_platform")

	// Load configuration packs; missing files fall back to compiled-in defaults
	pack := carbon.ConfigPack{
		Factors:       carbon.DefaultFactors(),
		Equivalencies: carbon.DefaultEquivalencies(),
	}
	if cfg.Packs.FactorsPath != "" {
		pack, err = carbon.LoadConfigPack(cfg.Packs.FactorsPath)
		if err != nil {
			logger.Warn(ctx, "[PACK_FALLBACK] Using default factor pack", logging.Fields{
				"path":  cfg.Packs.FactorsPath,
				"error": err.Error(),
			})
		}
	}

	rules := compliance.DefaultRules()
	if cfg.Packs.ComplianceRulesPath != "" {
		rules, err = compliance.LoadRulePack(cfg.Packs.ComplianceRulesPath)
		if err != nil {
			logger.Warn(ctx, "[PACK_FALLBACK] Using default compliance rules", logging.Fields{
				"path":  cfg.Packs.ComplianceRulesPath,
				"error": err.Error(),
			})
		}
	}

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	carbonRepo := repository.NewCarbonRepository(db, logger, metricsCollector)

	// Initialize services
	emissionsService := services.NewEmissionsService(carbonRepo, pack, rules, logger, metricsCollector)
	marketplaceService := services.NewMarketplaceService(carbonRepo, logger, metricsCollector)
	onboardingService := services.NewOnboardingService(carbonRepo, emissionsService, logger, metricsCollector)
	importService := services.NewImportService(carbonRepo, logger, metricsCollector)

	// Initialize handlers
	carbonHandler := handlers.NewCarbonHandler(
		emissionsService,
		marketplaceService,
		onboardingService,
		importService,
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)
	router.Use(handlers.LoggingMiddleware(logger))

	// Register routes
	carbonHandler.RegisterRoutes(router)
	carbonHandler.RegisterWizardRoutes(router)

	// API documentation
	router.HandleFunc("/api/docs", handlers.SwaggerUI("/api/docs/openapi.json")).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", handlers.OpenAPISpec).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
