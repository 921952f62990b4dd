package quality

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

type recordingRecorder struct {
	mu      sync.Mutex
	reports []*models.Report
}

func (r *recordingRecorder) ObserveAssessment(report *models.Report, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func createTestEngine(t *testing.T, config *QualityConfig, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(config, createTestLogger(), opts...)
	require.NoError(t, err)
	return engine
}

func createCleanDataset() *models.Dataset {
	categories := make([]string, 50)
	for i := range categories {
		categories[i] = []string{"a", "b", "c"}[i%3]
	}
	return models.NewDataset("clean",
		numericColumn("id", sequence(50, 1, 1)...),
		stringColumn("category", categories...),
	)
}

func createMessyDataset() *models.Dataset {
	amounts := append(sequence(58, 10, 0.5), 5000, 7000)
	status := make([]string, 60)
	emails := make([]models.Value, 60)
	for i := range status {
		status[i] = []string{"paid", "new", "shipped"}[i%3]
		emails[i] = models.String(fmt.Sprintf("u%d@example.com", i%50))
		if i%7 == 0 {
			emails[i] = models.Null()
		}
	}
	status[3] = "refunded"
	status[4] = "unknown"

	return models.NewDataset("orders",
		numericColumn("amount", amounts...),
		stringColumn("status", status...),
		models.Column{Name: "email", Values: emails},
	)
}

func TestEngineCleanDataset(t *testing.T) {
	recorder := &recordingRecorder{}
	engine := createTestEngine(t, createTestConfig(), WithRecorder(recorder))

	report, err := engine.Assess(context.Background(), Input{Dataset: createCleanDataset()})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "clean", report.Dataset)
	assert.Equal(t, 50, report.Rows)
	assert.Equal(t, 100.0, report.Assessment.Composite)
	assert.Empty(t, report.Assessment.Findings)
	assert.Empty(t, report.Alerts)
	require.Len(t, report.Profiles, 2)
	assert.Equal(t, models.TypeNumeric, report.Profiles[0].Type)
	assert.Equal(t, models.TypeCategorical, report.Profiles[1].Type)

	require.Len(t, recorder.reports, 1)
	assert.Same(t, report, recorder.reports[0])
}

func TestEngineEmailScenario(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())
	ds := models.NewDataset("users", emailColumn(1000, 75))
	schema := models.Schema{"email": {Type: models.TypeText, Nullable: false}}

	report, err := engine.Assess(context.Background(), Input{Dataset: ds, Schema: schema})
	require.NoError(t, err)

	completeness, ok := report.Assessment.Dimension(models.DimensionCompleteness)
	require.True(t, ok)
	assert.InDelta(t, 92.5, completeness.Score, 1e-9)

	nulls := models.FilterFindings(report.Assessment.Findings, models.FindingNullThreshold)
	require.Len(t, nulls, 1)
	assert.Equal(t, "email", nulls[0].Column)
	assert.Equal(t, models.SeverityCritical, nulls[0].Severity)
	assert.Equal(t, nulls, completeness.Findings)
}

func TestEngineIsDeterministicAcrossParallelism(t *testing.T) {
	baseline := createMessyDataset()
	baseline.Columns[0] = numericColumn("amount", sequence(60, 0, 1)...)

	var assessments []*models.QualityAssessment
	var alerts [][]models.Alert
	for _, parallelism := range []int{1, 2, 8} {
		config := createTestConfig()
		config.Parallelism = parallelism
		config.FuzzyDuplicates = true
		engine := createTestEngine(t, config)

		report, err := engine.Assess(context.Background(), Input{
			Dataset:  createMessyDataset(),
			Baseline: baseline,
			Schema: models.Schema{
				"status": {Type: models.TypeCategorical, AllowedValues: []string{"paid", "new", "shipped"}},
				"ghost":  {Type: models.TypeNumeric},
			},
		})
		require.NoError(t, err)
		assessments = append(assessments, report.Assessment)
		alerts = append(alerts, report.Alerts)
	}

	assert.Equal(t, assessments[0], assessments[1])
	assert.Equal(t, assessments[0], assessments[2])
	assert.Equal(t, alerts[0], alerts[2])

	findings := assessments[0].Findings
	require.NotEmpty(t, findings)
	assert.Equal(t, "ghost", findings[0].Column)
	assert.NotEmpty(t, models.FilterFindings(findings, models.FindingOutlier))
	assert.NotEmpty(t, models.FilterFindings(findings, models.FindingValueViolation))
	assert.NotEmpty(t, models.FilterFindings(findings, models.FindingDrift))
	assert.NotEmpty(t, models.FilterFindings(findings, models.FindingNullThreshold))
}

func TestEngineBaselineColumnsMissing(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())

	current := models.NewDataset("d", numericColumn("a", sequence(40, 0, 1)...), numericColumn("new", sequence(40, 0, 1)...))
	baseline := models.NewDataset("d", numericColumn("a", sequence(40, 0, 1)...), numericColumn("old", sequence(40, 0, 1)...))

	report, err := engine.Assess(context.Background(), Input{Dataset: current, Baseline: baseline})
	require.NoError(t, err)

	drift := models.FilterFindings(report.Assessment.Findings, models.FindingDrift)
	require.Len(t, drift, 2)
	assert.Equal(t, "new", drift[0].Column)
	assert.Contains(t, drift[0].Message, "no baseline for column")
	assert.Equal(t, "old", drift[1].Column)
	assert.Contains(t, drift[1].Message, "absent from current dataset")
}

func TestEngineRejectsMalformedInput(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())

	ragged := models.NewDataset("d", numericColumn("a", 1, 2, 3), numericColumn("b", 1, 2))
	_, err := engine.Assess(context.Background(), Input{Dataset: ragged})
	require.Error(t, err)
	assert.True(t, qerrors.IsInputError(err))

	dup := models.NewDataset("d", numericColumn("a", 1), numericColumn("a", 2))
	_, err = engine.Assess(context.Background(), Input{Dataset: createCleanDataset(), Baseline: dup})
	require.Error(t, err)
	assert.True(t, qerrors.IsInputError(err))
	assert.Contains(t, err.Error(), "baseline")
}

func TestEngineHonoursCancelledContext(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Assess(ctx, Input{Dataset: createCleanDataset()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineUsesClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	engine := createTestEngine(t, createTestConfig(), WithClock(clockwork.NewFakeClockAt(now)))

	report, err := engine.Assess(context.Background(), Input{Dataset: createCleanDataset()})
	require.NoError(t, err)
	assert.True(t, now.Equal(report.GeneratedAt))
}

func TestEngineRecoversColumnPanic(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())
	col := models.Column{Name: "broken", Values: models.Values(1, nil, 3)}

	result := engine.safeAnalyze(col, func() columnResult {
		panic("boom")
	})

	require.Len(t, result.findings, 1)
	assert.Equal(t, models.FindingComputationSkipped, result.findings[0].Kind)
	assert.Contains(t, result.findings[0].Message, "boom")
	assert.Equal(t, 3, result.profile.Count)
	assert.Equal(t, 1, result.profile.NullCount)
}

func TestEngineProfile(t *testing.T) {
	engine := createTestEngine(t, createTestConfig())

	profiles, findings, err := engine.Profile(context.Background(), createCleanDataset())
	require.NoError(t, err)
	assert.Empty(t, findings)
	require.Len(t, profiles, 2)
	assert.Equal(t, "id", profiles[0].Name)
	assert.Equal(t, 25.5, *profiles[0].Mean)
}

func TestAssessLogsDroppedBaselineFindings(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	engine, err := NewEngine(createTestConfig(), logger)
	require.NoError(t, err)

	current := models.NewDataset("current", numericColumn("huge", 1, 2, 3))
	baseline := models.NewDataset("baseline", numericColumn("huge", 1e308, 1e308, 1e308))

	report, err := engine.Assess(context.Background(), Input{Dataset: current, Baseline: baseline})
	require.NoError(t, err)
	for _, f := range report.Assessment.Findings {
		assert.NotEqual(t, models.FindingComputationSkipped, f.Kind)
	}

	var dropped []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Baseline profile finding dropped" {
			dropped = append(dropped, entry)
		}
	}
	require.Len(t, dropped, 1)
	assert.Equal(t, logrus.DebugLevel, dropped[0].Level)
	assert.Equal(t, "huge", dropped[0].Data["column"])
	assert.Equal(t, models.FindingComputationSkipped, dropped[0].Data["kind"])
}
