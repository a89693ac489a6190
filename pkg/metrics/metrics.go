package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Estimation Metrics
	EstimationsTotal   *prometheus.CounterVec
	EstimationDuration prometheus.Histogram
	EstimatedTonsTotal prometheus.Counter

	// Wizard Metrics
	WizardCompletionsTotal        *prometheus.CounterVec
	WizardValidationFailuresTotal *prometheus.CounterVec

	// Marketplace Metrics
	ListingsGradedTotal *prometheus.CounterVec
	PurchasesTotal      prometheus.Counter

	// Import Metrics
	ImportRecordsTotal prometheus.Counter
	ImportDuration     prometheus.Histogram
	ImportErrorsTotal  *prometheus.CounterVec
	ImportBatchSize    prometheus.Histogram

	// Compliance Metrics
	ComplianceEvaluationsTotal prometheus.Counter
	ComplianceFindingsTotal    *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		EstimationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "baseline_estimations_total",
				Help:      "Total number of baseline estimations by calculation method",
			},
			[]string{"method"},
		),

		EstimationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "baseline_estimation_duration_seconds",
				Help:      "Duration of baseline estimation including persistence",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),

		EstimatedTonsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "baseline_estimated_tons_total",
				Help:      "Cumulative estimated emissions in tons CO2e",
			},
		),

		WizardCompletionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_completions_total",
				Help:      "Total number of completed wizard flows by flow name",
			},
			[]string{"flow"},
		),

		WizardValidationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_validation_failures_total",
				Help:      "Total number of wizard step validation failures by flow and field",
			},
			[]string{"flow", "field"},
		),

		ListingsGradedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "marketplace_listings_graded_total",
				Help:      "Total number of material listings created by derived grade",
			},
			[]string{"grade"},
		),

		PurchasesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "marketplace_purchases_total",
				Help:      "Total number of marketplace purchase transactions",
			},
		),

		ImportRecordsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_records_processed_total",
				Help:      "Total number of emission source records imported",
			},
		),

		ImportDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of import operations in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		ImportErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_errors_total",
				Help:      "Total number of import errors by type",
			},
			[]string{"error_type"},
		),

		ImportBatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_batch_size",
				Help:      "Number of records per batch during import",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
		),

		ComplianceEvaluationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compliance_evaluations_total",
				Help:      "Total number of compliance rule evaluations",
			},
		),

		ComplianceFindingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compliance_findings_total",
				Help:      "Total number of triggered compliance findings by severity",
			},
			[]string{"severity"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordImportError increments import error counter
func (c *Collector) RecordImportError(errorType string) {
	c.ImportErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordEstimation increments estimation counters
func (c *Collector) RecordEstimation(method string, totalTons float64) {
	c.EstimationsTotal.WithLabelValues(method).Inc()
	if totalTons > 0 {
		c.EstimatedTonsTotal.Add(totalTons)
	}
}

// RecordListingGraded increments the per-grade listing counter
func (c *Collector) RecordListingGraded(grade string) {
	c.ListingsGradedTotal.WithLabelValues(grade).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
