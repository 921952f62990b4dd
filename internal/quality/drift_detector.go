package quality

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/internal/validation/metrics"
	"github.com/inferloop/qualitygate/internal/validation/tests"
	"github.com/inferloop/qualitygate/pkg/models"
)

// otherBucket collects categories outside the compared top-k. The leading NUL
// keeps it from colliding with a real cell value.
const otherBucket = "\x00other"

// DriftDetector compares a column's current distribution with its baseline
type DriftDetector struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewDriftDetector creates a new drift detector
func NewDriftDetector(config *QualityConfig, logger *logrus.Logger) *DriftDetector {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DriftDetector{config: config, logger: logger}
}

// NoBaseline reports a current column that the baseline does not have
func (dd *DriftDetector) NoBaseline(column string) models.Finding {
	return models.Finding{
		Kind:     models.FindingDrift,
		Column:   column,
		Severity: models.SeverityCritical,
		Message:  fmt.Sprintf("no baseline for column %q", column),
		Fraction: 1,
	}
}

// AbsentFromCurrent reports a baseline column that the current dataset lacks
func (dd *DriftDetector) AbsentFromCurrent(column string) models.Finding {
	return models.Finding{
		Kind:     models.FindingDrift,
		Column:   column,
		Severity: models.SeverityCritical,
		Message:  fmt.Sprintf("column %q absent from current dataset", column),
		Fraction: 1,
	}
}

// Compare tests whether current differs from baseline. It returns nil when
// there is no evidence of drift or too little data to decide.
func (dd *DriftDetector) Compare(current, baseline *models.ColumnProfile) *models.Finding {
	if baseline == nil {
		f := dd.NoBaseline(current.Name)
		return &f
	}
	if current.Type == models.TypeUnknown || baseline.Type == models.TypeUnknown {
		return nil
	}
	if typeFamily(current.Type) != typeFamily(baseline.Type) {
		return &models.Finding{
			Kind:     models.FindingDrift,
			Column:   current.Name,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("column %q changed type from %s to %s",
				current.Name, baseline.Type, current.Type),
			Fraction: 1,
		}
	}

	switch current.Type {
	case models.TypeNumeric:
		cur, _ := current.Numbers()
		base, _ := baseline.Numbers()
		return dd.compareContinuous(current.Name, cur, base)
	case models.TypeDatetime:
		cur, _ := current.Times()
		base, _ := baseline.Times()
		return dd.compareContinuous(current.Name, cur, base)
	default:
		return dd.compareCategorical(current, baseline)
	}
}

func (dd *DriftDetector) compareContinuous(column string, current, baseline []float64) *models.Finding {
	if !dd.enoughData(column, len(current), len(baseline)) {
		return nil
	}

	result, err := tests.TwoSampleKSTest(current, baseline, dd.config.DriftSignificance)
	if err != nil {
		dd.logger.WithError(err).WithField("column", column).Debug("Skipping drift test")
		return nil
	}
	if result.PValue >= dd.config.DriftSignificance {
		return nil
	}

	severity := models.SeverityWarning
	if result.PValue < dd.config.DriftCriticalSignificance {
		severity = models.SeverityCritical
	}

	return &models.Finding{
		Kind:     models.FindingDrift,
		Column:   column,
		Severity: severity,
		Message: fmt.Sprintf("column %q distribution drifted from baseline (KS D = %.4f, p = %.4g)",
			column, result.Statistic, result.PValue),
		Metric:   result.PValue,
		Fraction: result.Statistic,
		Details: map[string]float64{
			"ks_statistic":  result.Statistic,
			"p_value":       result.PValue,
			"current_size":  float64(result.SampleSize1),
			"baseline_size": float64(result.SampleSize2),
		},
	}
}

func (dd *DriftDetector) compareCategorical(current, baseline *models.ColumnProfile) *models.Finding {
	if !dd.enoughData(current.Name, current.NonNullCount, baseline.NonNullCount) {
		return nil
	}

	curCounts := valueCounts(current.Values)
	baseCounts := valueCounts(baseline.Values)

	// Compare over the union of both top-k tables, everything else in one bucket.
	keep := make(map[string]struct{})
	for _, counts := range [][]models.ValueCount{curCounts, baseCounts} {
		for i, vc := range counts {
			if i >= dd.config.TopK {
				break
			}
			keep[vc.Value] = struct{}{}
		}
	}

	distance := metrics.TotalVariationDistance(
		metrics.NewDistribution(bucketCounts(curCounts, keep)),
		metrics.NewDistribution(bucketCounts(baseCounts, keep)),
	)
	if distance <= dd.config.DriftDistanceThreshold {
		return nil
	}

	severity := models.SeverityWarning
	if distance >= dd.config.DriftDistanceCritical {
		severity = models.SeverityCritical
	}

	return &models.Finding{
		Kind:     models.FindingDrift,
		Column:   current.Name,
		Severity: severity,
		Message: fmt.Sprintf("column %q category frequencies drifted from baseline (TVD = %.4f)",
			current.Name, distance),
		Metric:   distance,
		Fraction: distance,
		Details: map[string]float64{
			"total_variation": distance,
			"current_size":    float64(current.NonNullCount),
			"baseline_size":   float64(baseline.NonNullCount),
		},
	}
}

func (dd *DriftDetector) enoughData(column string, current, baseline int) bool {
	min := dd.config.MinDriftSampleSize
	if current >= min && baseline >= min {
		return true
	}
	dd.logger.WithFields(logrus.Fields{
		"column":        column,
		"current_size":  current,
		"baseline_size": baseline,
		"minimum":       min,
	}).Debug("Insufficient data for drift test")
	return false
}

func bucketCounts(counts []models.ValueCount, keep map[string]struct{}) map[string]int {
	out := make(map[string]int, len(keep)+1)
	for _, vc := range counts {
		if _, ok := keep[vc.Value]; ok {
			out[vc.Value] += vc.Count
		} else {
			out[otherBucket] += vc.Count
		}
	}
	return out
}

// typeFamily groups column types that can be compared with the same test
func typeFamily(t models.ColumnType) string {
	switch t {
	case models.TypeNumeric, models.TypeDatetime:
		return string(t)
	default:
		return "discrete"
	}
}
