package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

func createTestReport() *models.Report {
	nullFinding := models.Finding{
		Kind:     models.FindingNullThreshold,
		Column:   "email",
		Severity: models.SeverityCritical,
		Message:  "column \"email\" is not nullable but has 75 nulls",
		Metric:   0.075,
		Fraction: 0.075,
		Count:    75,
	}
	dupFinding := models.Finding{
		Kind:     models.FindingDuplicate,
		Severity: models.SeverityInfo,
		Message:  "3 identical rows",
		Metric:   3,
		Fraction: 0.002,
		Count:    3,
		Rows:     []int{4, 9, 12},
	}
	mean := 12.5

	return &models.Report{
		ID:          "3f1c1e8e-6a4c-4cc4-9d5e-0d0e1f2a3b4c",
		Dataset:     "customers",
		GeneratedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Rows:        1000,
		Assessment: &models.QualityAssessment{
			Composite: 92.5,
			Dimensions: []models.DimensionScore{
				{Dimension: models.DimensionCompleteness, Score: 70, Findings: []models.Finding{nullFinding}},
				{Dimension: models.DimensionAccuracy, Score: 100},
				{Dimension: models.DimensionConsistency, Score: 99.8, Findings: []models.Finding{dupFinding}},
				{Dimension: models.DimensionTimeliness, Score: 100},
			},
			Findings: []models.Finding{nullFinding, dupFinding},
		},
		Alerts: []models.Alert{
			{
				Severity:  models.SeverityCritical,
				Source:    models.AlertSourceFinding,
				Dimension: models.DimensionCompleteness,
				Column:    "email",
				Kind:      models.FindingNullThreshold,
				Message:   nullFinding.Message,
				Value:     0.075,
				Finding:   &nullFinding,
			},
			{
				Severity:  models.SeverityWarning,
				Source:    models.AlertSourceDimension,
				Dimension: models.DimensionCompleteness,
				Message:   "completeness score 70 below warning threshold 80",
				Value:     70,
				Threshold: 80,
			},
		},
		Profiles: []models.ColumnProfile{
			{Name: "email", Type: models.TypeText, Count: 1000, NullCount: 75, NonNullCount: 925, DistinctCount: 925},
			{Name: "age", Type: models.TypeNumeric, Count: 1000, NonNullCount: 1000, DistinctCount: 60, Mean: &mean},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected ExportFormat
		wantErr  bool
	}{
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"text", FormatText, false},
		{"parquet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestGetSupportedFormats(t *testing.T) {
	engine := NewExportEngine(logrus.New())
	assert.Equal(t, []ExportFormat{FormatJSON, FormatText, FormatYAML}, engine.GetSupportedFormats())
}

func TestExportJSON(t *testing.T) {
	engine := NewExportEngine(logrus.New())
	report := createTestReport()

	var buf bytes.Buffer
	require.NoError(t, engine.Export(context.Background(), report, FormatJSON, &buf))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "customers", raw["dataset"])
	assert.Equal(t, "2024-05-01T10:30:00Z", raw["generated_at"])

	assessment := raw["assessment"].(map[string]interface{})
	assert.Equal(t, 92.5, assessment["composite"])
}

func TestRoundTrip(t *testing.T) {
	engine := NewExportEngine(logrus.New())
	report := createTestReport()

	for _, format := range []ExportFormat{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, engine.Export(context.Background(), report, format, &buf))

			decoded, err := engine.Decode(&buf, format)
			require.NoError(t, err)

			assert.Equal(t, report.ID, decoded.ID)
			assert.Equal(t, report.Dataset, decoded.Dataset)
			assert.Equal(t, report.Rows, decoded.Rows)
			assert.True(t, report.GeneratedAt.Equal(decoded.GeneratedAt))
			assert.Equal(t, report.Assessment, decoded.Assessment)
			assert.Equal(t, report.Alerts, decoded.Alerts)
			require.Len(t, decoded.Profiles, 2)
			assert.Equal(t, report.Profiles[1].Mean, decoded.Profiles[1].Mean)
		})
	}
}

func TestDecodeText(t *testing.T) {
	engine := NewExportEngine(logrus.New())

	_, err := engine.Decode(strings.NewReader("anything"), FormatText)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestExportText(t *testing.T) {
	engine := NewExportEngine(logrus.New())

	var buf bytes.Buffer
	require.NoError(t, engine.Export(context.Background(), createTestReport(), FormatText, &buf))

	out := buf.String()
	assert.Contains(t, out, "customers")
	assert.Contains(t, out, "1,000")
	assert.Contains(t, out, "92.5")
	assert.Contains(t, out, "[CRITICAL]")
	assert.Contains(t, out, "null-threshold")
	assert.Contains(t, out, "Findings (2):")
}

func TestExportTextTruncatesFindings(t *testing.T) {
	var buf bytes.Buffer
	exporter := &TextExporter{MaxFindings: 1}
	require.NoError(t, exporter.Export(context.Background(), &buf, createTestReport()))

	assert.Contains(t, buf.String(), "... 1 more")
}

func TestExportErrors(t *testing.T) {
	engine := NewExportEngine(logrus.New())
	var buf bytes.Buffer

	err := engine.Export(context.Background(), nil, FormatJSON, &buf)
	assert.True(t, errors.IsInputError(err))

	err = engine.Export(context.Background(), createTestReport(), "xml", &buf)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = engine.Export(ctx, createTestReport(), FormatJSON, &buf)
	assert.ErrorIs(t, err, context.Canceled)
}
