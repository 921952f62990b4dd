package quality

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inferloop/qualitygate/pkg/models"
)

// Input is everything one assessment needs. Schema and Baseline are optional.
type Input struct {
	Dataset  *models.Dataset
	Schema   models.Schema
	Baseline *models.Dataset
}

// Recorder receives the outcome of each assessment
type Recorder interface {
	ObserveAssessment(report *models.Report, duration time.Duration)
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithClock sets the clock used for report timestamps and timeliness checks
func WithClock(clock clockwork.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// Engine runs the quality assessment pipeline. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	config   *QualityConfig
	logger   *logrus.Logger
	clock    clockwork.Clock
	recorder Recorder

	profiler          *ColumnProfiler
	schemaValidator   *SchemaValidator
	completeness      *CompletenessChecker
	anomalyDetector   *AnomalyDetector
	driftDetector     *DriftDetector
	duplicateDetector *DuplicateDetector
	timeliness        *TimelinessChecker
	scorer            *QualityScorer
	alerts            *AlertEvaluator
}

// NewEngine validates the configuration and wires the detectors
func NewEngine(config *QualityConfig, logger *logrus.Logger, opts ...EngineOption) (*Engine, error) {
	if config == nil {
		config = DefaultQualityConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: config,
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(engine)
	}

	engine.profiler = NewColumnProfiler(config, logger)
	engine.schemaValidator = NewSchemaValidator(config, logger)
	engine.completeness = NewCompletenessChecker(config, logger)
	engine.anomalyDetector = NewAnomalyDetector(config, logger)
	engine.driftDetector = NewDriftDetector(config, logger)
	engine.duplicateDetector = NewDuplicateDetector(config, logger)
	engine.timeliness = NewTimelinessChecker(config, engine.clock, logger)
	engine.scorer = NewQualityScorer(config, logger)
	engine.alerts = NewAlertEvaluator(config.AlertConfig(), logger)

	return engine, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *QualityConfig {
	return e.config
}

// columnResult is the output of one column's analysis. Each goroutine writes
// only its own slot.
type columnResult struct {
	profile  *models.ColumnProfile
	findings []models.Finding
}

// Assess runs the full pipeline over one dataset. Only a malformed dataset or a
// cancelled context produce an error; every data problem becomes a finding.
func (e *Engine) Assess(ctx context.Context, in Input) (*models.Report, error) {
	start := e.clock.Now()

	if err := in.Dataset.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if in.Baseline != nil {
		if err := in.Baseline.Validate(); err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
	}

	ds := in.Dataset
	e.logger.WithFields(logrus.Fields{
		"dataset":  ds.Name,
		"columns":  len(ds.Columns),
		"rows":     ds.RowCount(),
		"baseline": in.Baseline != nil,
	}).Debug("Starting quality assessment")

	results := make([]columnResult, len(ds.Columns))
	var duplicates []models.Finding

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism())

	for i := range ds.Columns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.safeAnalyze(ds.Columns[i], func() columnResult {
				return e.analyzeColumn(ds.Columns[i], in)
			})
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		duplicates = e.safeDuplicates(ds)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assessment cancelled: %w", err)
	}

	findings := e.schemaValidator.MissingColumns(ds, in.Schema)
	profiles := make([]*models.ColumnProfile, len(results))
	for i, r := range results {
		profiles[i] = r.profile
		findings = append(findings, r.findings...)
	}
	if in.Baseline != nil {
		for _, col := range in.Baseline.Columns {
			if _, ok := ds.Column(col.Name); !ok {
				findings = append(findings, e.driftDetector.AbsentFromCurrent(col.Name))
			}
		}
	}
	findings = append(findings, duplicates...)

	assessment := e.scorer.Score(findings, CountCells(profiles))
	alerts := e.alerts.Evaluate(assessment)

	report := &models.Report{
		ID:          uuid.New().String(),
		Dataset:     ds.Name,
		GeneratedAt: e.clock.Now().UTC().Round(0),
		Rows:        ds.RowCount(),
		Assessment:  assessment,
		Alerts:      alerts,
		Profiles:    make([]models.ColumnProfile, len(profiles)),
	}
	for i, p := range profiles {
		report.Profiles[i] = *p
	}

	duration := e.clock.Since(start)
	if e.recorder != nil {
		e.recorder.ObserveAssessment(report, duration)
	}

	e.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"dataset":   ds.Name,
		"columns":   len(ds.Columns),
		"rows":      report.Rows,
		"composite": assessment.Composite,
		"findings":  len(assessment.Findings),
		"alerts":    len(alerts),
		"duration":  duration,
	}).Info("Quality assessment completed")

	return report, nil
}

// Profile profiles every column without running the detectors
func (e *Engine) Profile(ctx context.Context, ds *models.Dataset) ([]models.ColumnProfile, []models.Finding, error) {
	if err := ds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("dataset: %w", err)
	}

	results := make([]columnResult, len(ds.Columns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism())

	for i := range ds.Columns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.safeAnalyze(ds.Columns[i], func() columnResult {
				p, fs := e.profiler.Profile(ds.Columns[i])
				return columnResult{profile: p, findings: fs}
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("profiling cancelled: %w", err)
	}

	profiles := make([]models.ColumnProfile, len(results))
	var findings []models.Finding
	for i, r := range results {
		profiles[i] = *r.profile
		findings = append(findings, r.findings...)
	}
	return profiles, findings, nil
}

// analyzeColumn runs every per-column detector. Findings come out in a fixed
// order: profiler, schema, completeness, outliers, drift, timeliness.
func (e *Engine) analyzeColumn(col models.Column, in Input) columnResult {
	profile, findings := e.profiler.Profile(col)

	var rule *models.SchemaRule
	if r, ok := in.Schema[col.Name]; ok {
		rule = &r
		findings = append(findings, e.schemaValidator.ValidateColumn(col, r)...)
	}

	if f := e.completeness.Check(profile, rule); f != nil {
		findings = append(findings, *f)
	}

	if f := e.anomalyDetector.Detect(profile); f != nil {
		findings = append(findings, *f)
	}

	if in.Baseline != nil {
		var baseline *models.ColumnProfile
		if bcol, ok := in.Baseline.Column(col.Name); ok {
			var skipped []models.Finding
			baseline, skipped = e.profiler.Profile(bcol)
			// baseline problems are not findings of the assessed dataset
			for _, f := range skipped {
				e.logger.WithFields(logrus.Fields{
					"column": col.Name,
					"kind":   f.Kind,
				}).Debug("Baseline profile finding dropped")
			}
		}
		if f := e.driftDetector.Compare(profile, baseline); f != nil {
			findings = append(findings, *f)
		}
	}

	findings = append(findings, e.timeliness.Check(profile)...)

	return columnResult{profile: profile, findings: findings}
}

// safeAnalyze converts a panic in one column's analysis into a
// computation-skipped finding so the remaining columns are still assessed.
func (e *Engine) safeAnalyze(col models.Column, analyze func() columnResult) (result columnResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"column": col.Name,
				"panic":  r,
			}).Error("Column analysis failed")

			nulls := col.NullCount()
			result = columnResult{
				profile: &models.ColumnProfile{
					Name:         col.Name,
					Type:         models.TypeUnknown,
					Count:        col.Len(),
					NullCount:    nulls,
					NonNullCount: col.Len() - nulls,
				},
				findings: []models.Finding{{
					Kind:     models.FindingComputationSkipped,
					Column:   col.Name,
					Severity: models.SeverityWarning,
					Message:  fmt.Sprintf("column %q: analysis failed: %v", col.Name, r),
				}},
			}
		}
	}()
	return analyze()
}

func (e *Engine) safeDuplicates(ds *models.Dataset) (findings []models.Finding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("Duplicate detection failed")
			findings = []models.Finding{{
				Kind:     models.FindingComputationSkipped,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("duplicate detection failed: %v", r),
			}}
		}
	}()
	return e.duplicateDetector.Detect(ds)
}

func (e *Engine) parallelism() int {
	if e.config.Parallelism > 0 {
		return e.config.Parallelism
	}
	return runtime.NumCPU()
}
