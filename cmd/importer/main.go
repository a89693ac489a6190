package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"carbon-platform/internal/config"
	"carbon-platform/internal/repository"
	"carbon-platform/internal/services"
	"carbon-platform/pkg/database"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./source_data", "Directory containing emission source CSV files")
	batchSize := flag.Int("batch-size", 1000, "Number of records to process in each batch")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("carbon-importer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[IMPORTER_START] Starting emission source import", logging.Fields{
		"version":    "1.0.0",
		"data_dir":   *dataDir,
		"batch_size": *batchSize,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("carbon_importer")

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
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and service
	carbonRepo := repository.NewCarbonRepository(db, logger, metricsCollector)
	importService := services.NewImportService(carbonRepo, logger, metricsCollector)

	// Import data
	result, err := importService.ImportDirectory(ctx, *dataDir, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[IMPORT_ERROR] Import failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	logger.Info(ctx, "[IMPORTER_COMPLETE] Import completed successfully", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}
