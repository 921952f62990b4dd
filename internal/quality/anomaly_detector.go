package quality

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	qmath "github.com/inferloop/qualitygate/internal/utils/math"
	"github.com/inferloop/qualitygate/pkg/models"
)

// minIQRSampleSize is the smallest sample for which quartiles are meaningful
const minIQRSampleSize = 4

// AnomalyDetector flags outlier values in numeric columns
type AnomalyDetector struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewAnomalyDetector creates a new anomaly detector
func NewAnomalyDetector(config *QualityConfig, logger *logrus.Logger) *AnomalyDetector {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AnomalyDetector{config: config, logger: logger}
}

// Detect returns one column-level outlier finding, or nil when the column is
// not numeric or nothing is flagged. A row flagged by both rules counts once.
func (ad *AnomalyDetector) Detect(profile *models.ColumnProfile) *models.Finding {
	if profile == nil || profile.Type != models.TypeNumeric {
		return nil
	}

	nums, rows := profile.Numbers()
	if len(nums) == 0 {
		return nil
	}

	flagged := make(map[int]struct{})
	details := make(map[string]float64)
	maxAbsZ := 0.0

	if ad.config.UsesMethod(OutlierZScore) && profile.Mean != nil && profile.StdDev != nil {
		zScores := qmath.ZScores(nums, *profile.Mean, *profile.StdDev)
		zCount := 0
		for i, z := range zScores {
			if math.Abs(z) > ad.config.ZThreshold {
				flagged[rows[i]] = struct{}{}
				zCount++
				maxAbsZ = math.Max(maxAbsZ, math.Abs(z))
			}
		}
		if zScores != nil {
			details["zscore_count"] = float64(zCount)
			details["max_abs_z"] = maxAbsZ
		}
	}

	if ad.config.UsesMethod(OutlierIQR) && len(nums) >= minIQRSampleSize {
		lower, upper := qmath.OutlierBounds(nums, ad.config.IQRK)
		idx := qmath.DetectOutliers(nums, ad.config.IQRK)
		for _, i := range idx {
			flagged[rows[i]] = struct{}{}
		}
		details["iqr_count"] = float64(len(idx))
		details["iqr_lower"] = lower
		details["iqr_upper"] = upper
	}

	if len(flagged) == 0 {
		return nil
	}

	outliers := make([]int, 0, len(flagged))
	for row := range flagged {
		outliers = append(outliers, row)
	}
	sort.Ints(outliers)

	fraction := float64(len(outliers)) / float64(len(nums))
	severity := models.SeverityWarning
	if fraction >= ad.config.OutlierCriticalFraction {
		severity = models.SeverityCritical
	}

	metric := fraction
	if maxAbsZ > 0 {
		metric = maxAbsZ
	}

	ad.logger.WithFields(logrus.Fields{
		"column":   profile.Name,
		"outliers": len(outliers),
		"fraction": fraction,
	}).Debug("Outliers detected")

	return &models.Finding{
		Kind:     models.FindingOutlier,
		Column:   profile.Name,
		Severity: severity,
		Message: fmt.Sprintf("column %q: %d of %d numeric values (%.2f%%) are outliers",
			profile.Name, len(outliers), len(nums), fraction*100),
		Metric:   metric,
		Fraction: fraction,
		Count:    len(outliers),
		Rows:     outliers,
		Details:  details,
	}
}
