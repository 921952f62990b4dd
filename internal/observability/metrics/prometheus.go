package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/models"
)

// PrometheusMetrics provides Prometheus-based metrics collection
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Assessment metrics
	assessmentsTotal   *prometheus.CounterVec
	assessmentDuration prometheus.Histogram
	compositeScore     *prometheus.GaugeVec
	dimensionScore     *prometheus.GaugeVec
	findingsTotal      *prometheus.CounterVec
	alertsTotal        *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Port      int    `json:"port" mapstructure:"port"`
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}

	pm.initializeMetrics()

	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return pm, nil
}

// Handler serves the registry in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Start starts a dedicated metrics server on the configured port
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, pm.Handler())

	pm.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", pm.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: constants.DefaultReadTimeout,
	}

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	go func() {
		if err := pm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pm.logger.WithError(err).Error("Prometheus metrics server error")
		}
	}()

	return nil
}

// Stop stops the Prometheus metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	if pm.server == nil {
		return nil
	}

	pm.logger.Info("Stopping Prometheus metrics server")
	return pm.server.Shutdown(ctx)
}

// RecordHTTPRequest records one served HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAssessment records the outcome of a completed assessment
func (pm *PrometheusMetrics) ObserveAssessment(report *models.Report, duration time.Duration) {
	pm.assessmentsTotal.WithLabelValues("success").Inc()
	pm.assessmentDuration.Observe(duration.Seconds())

	if report == nil || report.Assessment == nil {
		return
	}

	dataset := datasetLabel(report.Dataset)
	pm.compositeScore.WithLabelValues(dataset).Set(report.Assessment.Composite)
	for _, ds := range report.Assessment.Dimensions {
		pm.dimensionScore.WithLabelValues(dataset, string(ds.Dimension)).Set(ds.Score)
	}
	for _, f := range report.Assessment.Findings {
		pm.findingsTotal.WithLabelValues(string(f.Kind), string(f.Severity)).Inc()
	}
	for _, a := range report.Alerts {
		pm.alertsTotal.WithLabelValues(string(a.Severity), string(a.Source)).Inc()
	}
}

// RecordError records a failed operation
func (pm *PrometheusMetrics) RecordError(component, errorType string) {
	pm.errorsTotal.WithLabelValues(component, errorType).Inc()
	if component == "engine" {
		pm.assessmentsTotal.WithLabelValues("error").Inc()
	}
}

// initializeMetrics initializes all Prometheus metrics
func (pm *PrometheusMetrics) initializeMetrics() {
	namespace := pm.config.Namespace
	subsystem := pm.config.Subsystem

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pm.assessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assessments_total",
			Help:      "Total number of quality assessments",
		},
		[]string{"status"},
	)

	pm.assessmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assessment_duration_seconds",
			Help:      "Quality assessment duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	pm.compositeScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "composite_score",
			Help:      "Composite quality score of the last assessment per dataset",
		},
		[]string{"dataset"},
	)

	pm.dimensionScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dimension_score",
			Help:      "Dimension quality score of the last assessment per dataset",
		},
		[]string{"dataset", "dimension"},
	)

	pm.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "findings_total",
			Help:      "Total number of findings by kind and severity",
		},
		[]string{"kind", "severity"},
	)

	pm.alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_total",
			Help:      "Total number of alerts by severity and source",
		},
		[]string{"severity", "source"},
	)

	pm.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors by component and type",
		},
		[]string{"component", "type"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() error {
	metrics := []prometheus.Collector{
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.assessmentsTotal,
		pm.assessmentDuration,
		pm.compositeScore,
		pm.dimensionScore,
		pm.findingsTotal,
		pm.alertsTotal,
		pm.errorsTotal,
	}

	for _, metric := range metrics {
		if err := pm.registry.Register(metric); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// GetConfig returns the configuration
func (pm *PrometheusMetrics) GetConfig() *PrometheusConfig {
	return pm.config
}

func datasetLabel(name string) string {
	if name == "" {
		return "unnamed"
	}
	return name
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Port:      constants.DefaultMetricsPort,
		Path:      "/metrics",
		Namespace: "qualitygate",
		Subsystem: "engine",
	}
}
