package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/internal/export"
	"github.com/inferloop/qualitygate/internal/ingest"
	"github.com/inferloop/qualitygate/internal/observability/health"
	"github.com/inferloop/qualitygate/internal/observability/metrics"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// AssessRequest is the body of POST /api/v1/assess. Config keys override the
// server's quality configuration for this request only.
type AssessRequest struct {
	Dataset  *models.Dataset        `json:"dataset"`
	Baseline *models.Dataset        `json:"baseline,omitempty"`
	Schema   models.Schema          `json:"schema,omitempty"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// ProfileRequest is the body of POST /api/v1/profile
type ProfileRequest struct {
	Dataset *models.Dataset        `json:"dataset"`
	Config  map[string]interface{} `json:"config,omitempty"`
}

// ProfileResponse carries column profiles and the findings raised while profiling
type ProfileResponse struct {
	Dataset  string                 `json:"dataset,omitempty"`
	Rows     int                    `json:"rows"`
	Profiles []models.ColumnProfile `json:"profiles"`
	Findings []models.Finding       `json:"findings"`
}

// Handlers contains the HTTP handlers of the quality API
type Handlers struct {
	engine   *quality.Engine
	exporter *export.ExportEngine
	metrics  *metrics.PrometheusMetrics
	health   *health.HealthMonitor
	config   *Config
	logger   *logrus.Logger
}

// NewHandlers creates the handler set
func NewHandlers(engine *quality.Engine, exporter *export.ExportEngine, pm *metrics.PrometheusMetrics, monitor *health.HealthMonitor, config *Config, logger *logrus.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		exporter: exporter,
		metrics:  pm,
		health:   monitor,
		config:   config,
		logger:   logger,
	}
}

// Health runs the component checks and answers 503 when a critical one fails
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := h.health.Check(r.Context())

	code := http.StatusOK
	if status.OverallStatus == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Version reports build information
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":       constants.AppName,
		"version":    h.config.Version,
		"commit":     h.config.Commit,
		"build_time": h.config.BuildTime,
		"go_version": runtime.Version(),
	})
}

// Config returns the server's default quality configuration
func (h *Handlers) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Config())
}

// Assess runs a full assessment. The response format follows the "format"
// query parameter (json, yaml or text), json by default.
func (h *Handlers) Assess(w http.ResponseWriter, r *http.Request) {
	format := export.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		format = parsed
	}

	var req AssessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Dataset == nil {
		writeError(w, r, errors.NewInputError(errors.CodeMissingField, "dataset is required"))
		return
	}

	if err := ingest.ValidateSchema(req.Schema); err != nil {
		writeError(w, r, err)
		return
	}

	engine, err := h.engineFor(req.Config)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.AssessTimeout)
	defer cancel()

	report, err := engine.Assess(ctx, quality.Input{
		Dataset:  req.Dataset,
		Schema:   req.Schema,
		Baseline: req.Baseline,
	})
	if err != nil {
		h.recordError(err)
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(ctx, report, format, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(constants.HeaderContentType, format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Profile profiles a dataset without scoring it
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Dataset == nil {
		writeError(w, r, errors.NewInputError(errors.CodeMissingField, "dataset is required"))
		return
	}

	engine, err := h.engineFor(req.Config)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.AssessTimeout)
	defer cancel()

	profiles, findings, err := engine.Profile(ctx, req.Dataset)
	if err != nil {
		h.recordError(err)
		writeError(w, r, err)
		return
	}

	if findings == nil {
		findings = []models.Finding{}
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Dataset:  req.Dataset.Name,
		Rows:     req.Dataset.RowCount(),
		Profiles: profiles,
		Findings: findings,
	})
}

// NotFound handles unknown routes
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewAppError(errors.ErrorTypeValidation, "NOT_FOUND", fmt.Sprintf("no route for %s", r.URL.Path))
	appErr.HTTPStatus = http.StatusNotFound
	writeError(w, r, appErr)
}

// MethodNotAllowed handles known routes called with the wrong method
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewAppError(errors.ErrorTypeValidation, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
	appErr.HTTPStatus = http.StatusMethodNotAllowed
	writeError(w, r, appErr)
}

// engineFor returns the shared engine, or a one-off engine when the request overrides configuration
func (h *Handlers) engineFor(overrides map[string]interface{}) (*quality.Engine, error) {
	if len(overrides) == 0 {
		return h.engine, nil
	}

	config, err := h.engine.Config().ApplyOverrides(overrides)
	if err != nil {
		return nil, err
	}

	var opts []quality.EngineOption
	if h.metrics != nil {
		opts = append(opts, quality.WithRecorder(h.metrics))
	}
	return quality.NewEngine(config, h.logger, opts...)
}

func (h *Handlers) recordError(err error) {
	if h.metrics == nil {
		return
	}

	errType := string(errors.ErrorTypeInternal)
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		errType = string(appErr.Type)
	} else if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		errType = "cancelled"
	}
	h.metrics.RecordError("engine", errType)
}

func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			appErr := errors.NewInputError("REQUEST_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			return appErr
		}
		return errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed,
			fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
	case stderrors.Is(err, context.DeadlineExceeded):
		appErr = errors.WrapError(err, errors.ErrorTypeInternal, "ASSESSMENT_TIMEOUT", "assessment did not finish in time")
		appErr.HTTPStatus = http.StatusGatewayTimeout
	default:
		appErr = errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, err.Error())
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = errors.HTTPStatus(appErr)
	}

	writeJSON(w, status, errors.ErrorResponse{
		Error:     appErr,
		RequestID: getRequestID(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}
