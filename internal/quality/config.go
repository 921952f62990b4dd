package quality

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// OutlierMethod selects an outlier detection rule
type OutlierMethod string

const (
	OutlierZScore OutlierMethod = "zscore"
	OutlierIQR    OutlierMethod = "iqr"
)

// QualityConfig configures the data quality engine
type QualityConfig struct {
	// Anomaly detection
	ZThreshold              float64         `json:"z_threshold" yaml:"z_threshold" mapstructure:"z_threshold"`
	IQRK                    float64         `json:"iqr_k" yaml:"iqr_k" mapstructure:"iqr_k"`
	OutlierMethods          []OutlierMethod `json:"outlier_methods" yaml:"outlier_methods" mapstructure:"outlier_methods"`
	OutlierCriticalFraction float64         `json:"outlier_critical_fraction" yaml:"outlier_critical_fraction" mapstructure:"outlier_critical_fraction"`

	// Drift detection
	DriftSignificance         float64 `json:"drift_significance" yaml:"drift_significance" mapstructure:"drift_significance"`
	DriftCriticalSignificance float64 `json:"drift_critical_significance" yaml:"drift_critical_significance" mapstructure:"drift_critical_significance"`
	DriftDistanceThreshold    float64 `json:"drift_distance_threshold" yaml:"drift_distance_threshold" mapstructure:"drift_distance_threshold"`
	DriftDistanceCritical     float64 `json:"drift_distance_critical" yaml:"drift_distance_critical" mapstructure:"drift_distance_critical"`
	MinDriftSampleSize        int     `json:"min_drift_sample_size" yaml:"min_drift_sample_size" mapstructure:"min_drift_sample_size"`

	// Completeness and schema conformance
	NullThresholdPerColumn   float64 `json:"null_threshold_per_column" yaml:"null_threshold_per_column" mapstructure:"null_threshold_per_column"`
	MismatchThreshold        float64 `json:"mismatch_threshold" yaml:"mismatch_threshold" mapstructure:"mismatch_threshold"`
	SeverityCriticalFraction float64 `json:"severity_critical_fraction" yaml:"severity_critical_fraction" mapstructure:"severity_critical_fraction"`

	// Duplicates
	DuplicateKeyColumns       []string `json:"duplicate_key_columns,omitempty" yaml:"duplicate_key_columns,omitempty" mapstructure:"duplicate_key_columns"`
	FuzzyDuplicates           bool     `json:"fuzzy_duplicates" yaml:"fuzzy_duplicates" mapstructure:"fuzzy_duplicates"`
	DuplicateCriticalFraction float64  `json:"duplicate_critical_fraction" yaml:"duplicate_critical_fraction" mapstructure:"duplicate_critical_fraction"`

	// Profiling
	TopK                 int     `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	HistogramBins        int     `json:"histogram_bins" yaml:"histogram_bins" mapstructure:"histogram_bins"`
	TypeInferenceRatio   float64 `json:"type_inference_ratio" yaml:"type_inference_ratio" mapstructure:"type_inference_ratio"`
	CategoricalMaxLength int     `json:"categorical_max_length" yaml:"categorical_max_length" mapstructure:"categorical_max_length"`

	// Timeliness. A zero horizon disables the stale-date check; future dates
	// are flagged unless RejectFutureDates is turned off.
	FreshnessHorizon  time.Duration `json:"freshness_horizon" yaml:"freshness_horizon" mapstructure:"freshness_horizon"`
	RejectFutureDates bool          `json:"reject_future_dates" yaml:"reject_future_dates" mapstructure:"reject_future_dates"`

	// Scoring and alerting
	DimensionWeights ScoringWeights                          `json:"dimension_weights" yaml:"dimension_weights" mapstructure:"dimension_weights"`
	KindWeights      map[models.FindingKind]float64          `json:"kind_weights,omitempty" yaml:"kind_weights,omitempty" mapstructure:"kind_weights"`
	AlertThresholds  map[models.Dimension]models.Threshold   `json:"alert_thresholds" yaml:"alert_thresholds" mapstructure:"alert_thresholds"`
	KindThresholds   map[models.FindingKind]models.Threshold `json:"kind_thresholds,omitempty" yaml:"kind_thresholds,omitempty" mapstructure:"kind_thresholds"`
	MinAlertSeverity models.Severity                         `json:"min_alert_severity" yaml:"min_alert_severity" mapstructure:"min_alert_severity"`

	// Parallelism bounds the per-column fan-out. Zero means runtime.NumCPU().
	Parallelism int `json:"parallelism" yaml:"parallelism" mapstructure:"parallelism"`
}

// ScoringWeights weights each dimension in the composite score
type ScoringWeights struct {
	Completeness float64 `json:"completeness" yaml:"completeness" mapstructure:"completeness"`
	Accuracy     float64 `json:"accuracy" yaml:"accuracy" mapstructure:"accuracy"`
	Consistency  float64 `json:"consistency" yaml:"consistency" mapstructure:"consistency"`
	Timeliness   float64 `json:"timeliness" yaml:"timeliness" mapstructure:"timeliness"`
}

// Weight returns the weight of dimension d
func (w ScoringWeights) Weight(d models.Dimension) float64 {
	switch d {
	case models.DimensionCompleteness:
		return w.Completeness
	case models.DimensionAccuracy:
		return w.Accuracy
	case models.DimensionConsistency:
		return w.Consistency
	case models.DimensionTimeliness:
		return w.Timeliness
	default:
		return 0
	}
}

// Sum returns the total of all weights
func (w ScoringWeights) Sum() float64 {
	return w.Completeness + w.Accuracy + w.Consistency + w.Timeliness
}

const weightTolerance = 1e-6

// DefaultQualityConfig returns the configuration used when none is supplied
func DefaultQualityConfig() *QualityConfig {
	return &QualityConfig{
		ZThreshold:                3.0,
		IQRK:                      1.5,
		OutlierMethods:            []OutlierMethod{OutlierZScore, OutlierIQR},
		OutlierCriticalFraction:   0.05,
		DriftSignificance:         0.05,
		DriftCriticalSignificance: 0.01,
		DriftDistanceThreshold:    0.1,
		DriftDistanceCritical:     0.25,
		MinDriftSampleSize:        30,
		NullThresholdPerColumn:    0.05,
		MismatchThreshold:         0.01,
		SeverityCriticalFraction:  0.10,
		DuplicateCriticalFraction: 0.05,
		TopK:                      10,
		HistogramBins:             20,
		TypeInferenceRatio:        0.95,
		CategoricalMaxLength:      32,
		RejectFutureDates:         true,
		DimensionWeights: ScoringWeights{
			Completeness: 0.25,
			Accuracy:     0.25,
			Consistency:  0.25,
			Timeliness:   0.25,
		},
		AlertThresholds: map[models.Dimension]models.Threshold{
			models.DimensionCompleteness: {Warning: 80, Critical: 60},
			models.DimensionAccuracy:     {Warning: 80, Critical: 60},
			models.DimensionConsistency:  {Warning: 80, Critical: 60},
			models.DimensionTimeliness:   {Warning: 80, Critical: 60},
		},
		MinAlertSeverity: models.SeverityWarning,
		Parallelism:      runtime.NumCPU(),
	}
}

// KindWeight returns the penalty weight of a finding kind, 1 when unset
func (c *QualityConfig) KindWeight(kind models.FindingKind) float64 {
	if w, ok := c.KindWeights[kind]; ok {
		return w
	}
	return 1
}

// UsesMethod reports whether the outlier method is enabled
func (c *QualityConfig) UsesMethod(m OutlierMethod) bool {
	for _, method := range c.OutlierMethods {
		if method == m {
			return true
		}
	}
	return false
}

// AlertConfig returns the alerting subset of the configuration
func (c *QualityConfig) AlertConfig() models.AlertConfig {
	return models.AlertConfig{
		Dimensions:  c.AlertThresholds,
		Kinds:       c.KindThresholds,
		MinSeverity: c.MinAlertSeverity,
	}
}

// Validate checks every option and reports all problems at once
func (c *QualityConfig) Validate() error {
	verrs := errors.NewValidationErrors()
	verrs.Message = "invalid quality configuration"

	positive := func(field string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			verrs.Add(field, errors.CodeOutOfRange, "must be a positive finite number", v)
		}
	}
	fraction := func(field string, v float64, openLow bool) {
		if v < 0 || v > 1 || math.IsNaN(v) || (openLow && v == 0) {
			verrs.Add(field, errors.CodeOutOfRange, "must be within [0, 1]", v)
		}
	}

	positive("z_threshold", c.ZThreshold)
	positive("iqr_k", c.IQRK)

	if len(c.OutlierMethods) == 0 {
		verrs.Add("outlier_methods", errors.CodeMissingField, "at least one method is required", nil)
	}
	for _, m := range c.OutlierMethods {
		if m != OutlierZScore && m != OutlierIQR {
			verrs.Add("outlier_methods", errors.CodeInvalidInput, fmt.Sprintf("unknown method %q", m), string(m))
		}
	}

	fraction("outlier_critical_fraction", c.OutlierCriticalFraction, true)
	fraction("drift_significance", c.DriftSignificance, true)
	fraction("drift_critical_significance", c.DriftCriticalSignificance, true)
	if c.DriftCriticalSignificance > c.DriftSignificance {
		verrs.Add("drift_critical_significance", errors.CodeOutOfRange,
			"must not exceed drift_significance", c.DriftCriticalSignificance)
	}
	fraction("drift_distance_threshold", c.DriftDistanceThreshold, false)
	fraction("drift_distance_critical", c.DriftDistanceCritical, false)
	if c.DriftDistanceCritical < c.DriftDistanceThreshold {
		verrs.Add("drift_distance_critical", errors.CodeOutOfRange,
			"must not be below drift_distance_threshold", c.DriftDistanceCritical)
	}
	if c.MinDriftSampleSize < 2 {
		verrs.Add("min_drift_sample_size", errors.CodeOutOfRange, "must be at least 2", c.MinDriftSampleSize)
	}

	fraction("null_threshold_per_column", c.NullThresholdPerColumn, false)
	fraction("mismatch_threshold", c.MismatchThreshold, false)
	fraction("severity_critical_fraction", c.SeverityCriticalFraction, true)
	fraction("duplicate_critical_fraction", c.DuplicateCriticalFraction, true)

	if c.TopK < 1 {
		verrs.Add("top_k", errors.CodeOutOfRange, "must be at least 1", c.TopK)
	}
	if c.HistogramBins < 1 {
		verrs.Add("histogram_bins", errors.CodeOutOfRange, "must be at least 1", c.HistogramBins)
	}
	fraction("type_inference_ratio", c.TypeInferenceRatio, true)
	if c.CategoricalMaxLength < 1 {
		verrs.Add("categorical_max_length", errors.CodeOutOfRange, "must be at least 1", c.CategoricalMaxLength)
	}
	if c.FreshnessHorizon < 0 {
		verrs.Add("freshness_horizon", errors.CodeOutOfRange, "must not be negative", c.FreshnessHorizon.String())
	}

	w := c.DimensionWeights
	for _, d := range models.Dimensions {
		if v := w.Weight(d); v < 0 || math.IsNaN(v) {
			verrs.Add("dimension_weights."+string(d), errors.CodeOutOfRange, "must not be negative", v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		verrs.Add("dimension_weights", errors.CodeWeightsNotNormalized,
			fmt.Sprintf("must sum to 1.0, got %g", sum), sum)
	}

	for kind, weight := range c.KindWeights {
		if !knownKind(kind) {
			verrs.Add("kind_weights."+string(kind), errors.CodeInvalidInput, "unknown finding kind", nil)
		} else if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			verrs.Add("kind_weights."+string(kind), errors.CodeOutOfRange, "must be a non-negative finite number", weight)
		}
	}

	for dim, t := range c.AlertThresholds {
		field := "alert_thresholds." + string(dim)
		switch {
		case dim.Order() == len(models.Dimensions):
			verrs.Add(field, errors.CodeInvalidInput, "unknown dimension", nil)
		case t.Warning < 0 || t.Warning > 100 || t.Critical < 0 || t.Critical > 100:
			verrs.Add(field, errors.CodeOutOfRange, "thresholds must be within [0, 100]", t)
		case t.Critical > t.Warning:
			verrs.Add(field, errors.CodeOutOfRange, "critical must not exceed warning", t)
		}
	}

	for kind, t := range c.KindThresholds {
		field := "kind_thresholds." + string(kind)
		switch {
		case !knownKind(kind):
			verrs.Add(field, errors.CodeInvalidInput, "unknown finding kind", nil)
		case t.Warning < 0 || t.Critical > 1:
			verrs.Add(field, errors.CodeOutOfRange, "thresholds must be within [0, 1]", t)
		case t.Critical < t.Warning:
			verrs.Add(field, errors.CodeOutOfRange, "critical must not be below warning", t)
		}
	}

	if c.MinAlertSeverity.Rank() == 0 {
		verrs.Add("min_alert_severity", errors.CodeInvalidInput,
			fmt.Sprintf("unknown severity %q", c.MinAlertSeverity), string(c.MinAlertSeverity))
	}
	if c.Parallelism < 0 {
		verrs.Add("parallelism", errors.CodeOutOfRange, "must not be negative", c.Parallelism)
	}

	if verrs.HasErrors() {
		return errors.NewConfigurationError(verrs)
	}
	return nil
}

func knownKind(kind models.FindingKind) bool {
	for _, k := range models.FindingKinds {
		if k == kind {
			return true
		}
	}
	return false
}
