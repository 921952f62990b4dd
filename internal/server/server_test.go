package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/internal/observability/health"
	"github.com/inferloop/qualitygate/internal/observability/metrics"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

func createTestServer(t *testing.T, config *Config) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	pm, err := metrics.NewPrometheusMetrics(nil, logger)
	require.NoError(t, err)

	engine, err := quality.NewEngine(quality.DefaultQualityConfig(), logger, quality.WithRecorder(pm))
	require.NoError(t, err)

	srv, err := NewServer(config, engine, pm, logger)
	require.NoError(t, err)
	return srv
}

// createTestDataset has a numeric id column and an email column with nulls
// in the first `nulls` rows.
func createTestDataset(rows, nulls int) *models.Dataset {
	ids := make([]models.Value, rows)
	emails := make([]models.Value, rows)
	for i := 0; i < rows; i++ {
		ids[i] = models.Number(float64(i + 1))
		if i < nulls {
			emails[i] = models.Null()
		} else {
			emails[i] = models.String(fmt.Sprintf("user%d@example.com", i))
		}
	}
	return models.NewDataset("users",
		models.Column{Name: "id", Values: ids},
		models.Column{Name: "email", Values: emails},
	)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *errors.AppError {
	t.Helper()

	var resp struct {
		Error *errors.AppError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestHealthAndVersion(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(constants.HeaderRequestID))
	var status health.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, health.StatusHealthy, status.OverallStatus)
	assert.Contains(t, status.Checks, "engine")
	assert.Contains(t, status.Checks, "metrics")

	rec = doRequest(t, srv, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var version map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
	assert.Equal(t, constants.AppName, version["name"])
	assert.Equal(t, constants.AppVersion, version["version"])
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := createTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(constants.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(constants.HeaderRequestID))
}

func TestAssess(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/assess", AssessRequest{
		Dataset: createTestDataset(20, 2),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, constants.ContentTypeJSON, rec.Header().Get(constants.HeaderContentType))

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "users", report.Dataset)
	assert.Equal(t, 20, report.Rows)

	completeness, ok := report.Assessment.Dimension(models.DimensionCompleteness)
	require.True(t, ok)
	assert.InDelta(t, 95.0, completeness.Score, 1e-9)

	nulls := models.FilterFindings(report.Assessment.Findings, models.FindingNullThreshold)
	require.Len(t, nulls, 1)
	assert.Equal(t, "email", nulls[0].Column)
	assert.Equal(t, models.SeverityWarning, report.HighestSeverity())

	metricsRec := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `qualitygate_engine_assessments_total{status="success"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `qualitygate_engine_composite_score{dataset="users"}`)
}

func TestAssessWithSchemaAndOverrides(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/assess", AssessRequest{
		Dataset: createTestDataset(20, 2),
		Schema: models.Schema{
			"email": {Type: models.TypeText, Nullable: true},
		},
		Config: map[string]interface{}{"null_threshold_per_column": 0.5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Assessment.Findings)
	assert.Empty(t, report.Alerts)

	// overrides are per request
	assert.Equal(t, 0.05, srv.handlers.engine.Config().NullThresholdPerColumn)
}

func TestAssessYAML(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/assess?format=yaml", AssessRequest{
		Dataset: createTestDataset(20, 0),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, constants.ContentTypeYAML, rec.Header().Get(constants.HeaderContentType))

	var report models.Report
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 100.0, report.Assessment.Composite)
}

func TestAssessErrors(t *testing.T) {
	srv := createTestServer(t, nil)

	ragged := models.NewDataset("bad",
		models.Column{Name: "a", Values: models.Values(1, 2)},
		models.Column{Name: "b", Values: models.Values(1)},
	)

	tests := []struct {
		name         string
		path         string
		body         interface{}
		expectedCode int
		errorCode    string
	}{
		{"ragged dataset", "/api/v1/assess", AssessRequest{Dataset: ragged}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"missing dataset", "/api/v1/assess", AssessRequest{}, http.StatusBadRequest, errors.CodeMissingField},
		{"unknown field", "/api/v1/assess", `{"dataset": {"columns": []}, "extra": 1}`, http.StatusBadRequest, errors.CodeDecodeFailed},
		{"malformed json", "/api/v1/assess", `{"dataset":`, http.StatusBadRequest, errors.CodeDecodeFailed},
		{"bad override", "/api/v1/assess", AssessRequest{Dataset: createTestDataset(5, 0), Config: map[string]interface{}{"z_threshold": -2}}, http.StatusBadRequest, errors.CodeInvalidConfiguration},
		{"bad schema", "/api/v1/assess", AssessRequest{Dataset: createTestDataset(5, 0), Schema: models.Schema{"id": {Type: "blob"}}}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"bad format", "/api/v1/assess?format=xml", AssessRequest{Dataset: createTestDataset(5, 0)}, http.StatusBadRequest, errors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errorCode, decodeError(t, rec).Code)
		})
	}
}

func TestProfile(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/profile", ProfileRequest{
		Dataset: createTestDataset(20, 2),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 20, resp.Rows)
	require.Len(t, resp.Profiles, 2)
	assert.Equal(t, models.TypeNumeric, resp.Profiles[0].Type)
	require.NotNil(t, resp.Profiles[0].Mean)
	assert.InDelta(t, 10.5, *resp.Profiles[0].Mean, 1e-9)
	assert.Equal(t, 2, resp.Profiles[1].NullCount)
	assert.NotNil(t, resp.Findings)
}

func TestConfigEndpoint(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, 3.0, cfg["z_threshold"])
}

func TestRoutingErrors(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/assess"},
		{http.MethodGet, "/api/v1/profile"},
		{http.MethodDelete, "/api/v1/config"},
		{http.MethodPost, "/health"},
	} {
		rec = doRequest(t, srv, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := createTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodOptions, "/api/v1/assess", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestTooLarge(t *testing.T) {
	config := DefaultConfig()
	config.MaxRequestSize = 64
	srv := createTestServer(t, config)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/assess", AssessRequest{
		Dataset: createTestDataset(20, 0),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewServerValidatesConfig(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0

	engine, err := quality.NewEngine(nil, nil)
	require.NoError(t, err)

	_, err = NewServer(config, engine, nil, nil)
	assert.Error(t, err)

	_, err = NewServer(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestServerWithoutMetrics(t *testing.T) {
	engine, err := quality.NewEngine(nil, nil)
	require.NoError(t, err)

	srv, err := NewServer(nil, engine, nil, nil)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
