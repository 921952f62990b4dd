package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/qualitygate/pkg/models"
)

func profileOf(t *testing.T, col models.Column) *models.ColumnProfile {
	t.Helper()
	profile, _ := NewColumnProfiler(createTestConfig(), createTestLogger()).Profile(col)
	return profile
}

func TestDriftDetectorConstantColumnsHaveNoDrift(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())

	current := profileOf(t, stringColumn("v", repeat("7", 40)...))
	baseline := profileOf(t, stringColumn("v", repeat("7", 35)...))
	require.Equal(t, models.TypeNumeric, current.Type)

	assert.Nil(t, dd.Compare(current, baseline))
}

func TestDriftDetectorShiftedNumericColumn(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())

	current := profileOf(t, numericColumn("v", sequence(100, 1000, 1)...))
	baseline := profileOf(t, numericColumn("v", sequence(100, 0, 1)...))

	f := dd.Compare(current, baseline)
	require.NotNil(t, f)

	assert.Equal(t, models.FindingDrift, f.Kind)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Equal(t, 1.0, f.Fraction)
	assert.Less(t, f.Metric, 0.01)
	assert.Equal(t, f.Metric, f.Details["p_value"])
	assert.Equal(t, 100.0, f.Details["baseline_size"])
}

func TestDriftDetectorIsDeterministic(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())

	current := profileOf(t, numericColumn("v", sequence(60, 3, 1.7)...))
	baseline := profileOf(t, numericColumn("v", sequence(50, 0, 1.3)...))

	first := dd.Compare(current, baseline)
	second := dd.Compare(current, baseline)
	assert.Equal(t, first, second)
}

func TestDriftDetectorInsufficientData(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())

	current := profileOf(t, numericColumn("v", sequence(29, 1000, 1)...))
	baseline := profileOf(t, numericColumn("v", sequence(100, 0, 1)...))

	assert.Nil(t, dd.Compare(current, baseline))
}

func categoricalColumn(counts map[string]int, order ...string) models.Column {
	var values []string
	for _, v := range order {
		values = append(values, repeat(v, counts[v])...)
	}
	return stringColumn("segment", values...)
}

func TestDriftDetectorCategoricalDistance(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())
	baseline := profileOf(t, categoricalColumn(map[string]int{"a": 50, "b": 50}, "a", "b"))
	require.Equal(t, models.TypeCategorical, baseline.Type)

	tests := []struct {
		name     string
		counts   map[string]int
		expected models.Severity
		distance float64
	}{
		{"small shift", map[string]int{"a": 55, "b": 45}, "", 0},
		{"warning shift", map[string]int{"a": 70, "b": 30}, models.SeverityWarning, 0.2},
		{"critical shift", map[string]int{"a": 90, "b": 10}, models.SeverityCritical, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := profileOf(t, categoricalColumn(tt.counts, "a", "b"))
			f := dd.Compare(current, baseline)
			if tt.expected == "" {
				assert.Nil(t, f)
				return
			}
			require.NotNil(t, f)
			assert.Equal(t, tt.expected, f.Severity)
			assert.InDelta(t, tt.distance, f.Metric, 1e-9)
			assert.InDelta(t, tt.distance, f.Fraction, 1e-9)
		})
	}
}

func TestDriftDetectorOtherBucket(t *testing.T) {
	config := createTestConfig()
	config.TopK = 1
	dd := NewDriftDetector(config, createTestLogger())

	// Only "a" is compared by name; every other category lands in one bucket.
	baseline := profileOf(t, categoricalColumn(map[string]int{"a": 40, "b": 30, "c": 30}, "a", "b", "c"))
	current := profileOf(t, categoricalColumn(map[string]int{"a": 40, "d": 30, "e": 30}, "a", "d", "e"))

	assert.Nil(t, dd.Compare(current, baseline))
}

func TestDriftDetectorMissingColumns(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())
	current := profileOf(t, numericColumn("v", 1, 2, 3))

	f := dd.Compare(current, nil)
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Contains(t, f.Message, "no baseline for column")

	absent := dd.AbsentFromCurrent("gone")
	assert.Equal(t, models.FindingDrift, absent.Kind)
	assert.Equal(t, "gone", absent.Column)
	assert.Equal(t, models.SeverityCritical, absent.Severity)
}

func TestDriftDetectorTypeChange(t *testing.T) {
	dd := NewDriftDetector(createTestConfig(), createTestLogger())

	current := profileOf(t, numericColumn("v", 1, 2, 3))
	baseline := profileOf(t, stringColumn("v", "x", "y", "x", "x"))

	f := dd.Compare(current, baseline)
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Contains(t, f.Message, "changed type")
}
