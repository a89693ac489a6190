package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// ImportService handles bulk CSV import of emission sources
type ImportService struct {
	repo    repository.CarbonRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// ImportResult contains import statistics
type ImportResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// NewImportService creates a new import service
func NewImportService(repo repository.CarbonRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ImportService {
	return &ImportService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ImportDirectory imports all emission source CSV files from a directory
func (s *ImportService) ImportDirectory(ctx context.Context, dataDir string, batchSize int) (*ImportResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[IMPORT_START] Starting emission source import", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", dataDir)
	}

	result.TotalFiles = len(files)

	s.logger.Info(ctx, "[IMPORT_FILES] Found CSV files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	for _, filePath := range files {
		fileResult, err := s.ImportFile(ctx, filePath, batchSize)
		if err != nil {
			errMsg := fmt.Sprintf("failed to import %s: %v", filePath, err)
			result.Errors = append(result.Errors, errMsg)
			s.logger.Error(ctx, "[IMPORT_FILE_ERROR] File import failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordImportError("file_error")
			continue
		}

		result.TotalRecords += fileResult.TotalRecords
		result.SuccessfulRecords += fileResult.SuccessfulRecords
		result.FailedRecords += fileResult.FailedRecords

		s.logger.Info(ctx, "[IMPORT_FILE_SUCCESS] File imported successfully", logging.Fields{
			"file_path":          filePath,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"failed_records":     fileResult.FailedRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.ImportDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Emission source import completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// FileImportResult contains per-file import statistics
type FileImportResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// ImportFile imports a single CSV file of emission sources.
// Expected header: company_id,source_type,scope,amount_tons,period_start,period_end
func (s *ImportService) ImportFile(ctx context.Context, filePath string, batchSize int) (*FileImportResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.importReader(ctx, file, batchSize)
}

// ImportReader imports emission sources from an already-open CSV stream,
// e.g. an HTTP upload body.
func (s *ImportService) ImportReader(ctx context.Context, r io.Reader, batchSize int) (*FileImportResult, error) {
	return s.importReader(ctx, r, batchSize)
}

func (s *ImportService) importReader(ctx context.Context, r io.Reader, batchSize int) (*FileImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	// Header row
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(header[0])) != "company_id" {
		return nil, fmt.Errorf("unexpected header: %v", header)
	}

	result := &FileImportResult{}
	batch := make([]*models.EmissionSource, 0, batchSize)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.TotalRecords++
			result.FailedRecords++
			s.metrics.RecordImportError("parse_error")
			continue
		}

		result.TotalRecords++

		src, err := s.parseRow(row)
		if err != nil {
			result.FailedRecords++
			s.metrics.RecordImportError("parse_error")
			continue
		}

		if err := src.Validate(); err != nil {
			result.FailedRecords++
			s.metrics.RecordImportError("validation_error")
			continue
		}

		batch = append(batch, src)

		if len(batch) >= batchSize {
			if err := s.repo.CreateEmissionSourcesBatch(ctx, batch); err != nil {
				return nil, fmt.Errorf("failed to insert batch: %w", err)
			}
			result.SuccessfulRecords += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.repo.CreateEmissionSourcesBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to insert final batch: %w", err)
		}
		result.SuccessfulRecords += len(batch)
	}

	return result, nil
}

// parseRow parses a single CSV row into an emission source
func (s *ImportService) parseRow(row []string) (*models.EmissionSource, error) {
	companyID, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid company_id: %w", err)
	}

	scope, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid scope: %w", err)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_tons: %w", err)
	}

	periodStart, err := time.Parse("2006-01-02", strings.TrimSpace(row[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid period_start: %w", err)
	}

	periodEnd, err := time.Parse("2006-01-02", strings.TrimSpace(row[5]))
	if err != nil {
		return nil, fmt.Errorf("invalid period_end: %w", err)
	}

	return &models.EmissionSource{
		CompanyID:   companyID,
		SourceType:  strings.TrimSpace(row[1]),
		Scope:       scope,
		AmountTons:  amount,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
