package quality

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

// CompletenessChecker flags columns whose null fraction exceeds the per-column threshold
type CompletenessChecker struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewCompletenessChecker creates a new completeness checker
func NewCompletenessChecker(config *QualityConfig, logger *logrus.Logger) *CompletenessChecker {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CompletenessChecker{config: config, logger: logger}
}

// Check returns a warning when the column's null fraction is above the
// threshold. Columns whose rule forbids nulls are left to the schema validator.
func (cc *CompletenessChecker) Check(profile *models.ColumnProfile, rule *models.SchemaRule) *models.Finding {
	if rule != nil && !rule.Nullable {
		return nil
	}

	fraction := profile.NullFraction()
	if fraction <= cc.config.NullThresholdPerColumn {
		return nil
	}

	cc.logger.WithFields(logrus.Fields{
		"column":        profile.Name,
		"null_fraction": fraction,
	}).Debug("Null fraction above threshold")

	return &models.Finding{
		Kind:     models.FindingNullThreshold,
		Column:   profile.Name,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("column %q has %d nulls (%.2f%%), above the %.2f%% threshold",
			profile.Name, profile.NullCount, fraction*100, cc.config.NullThresholdPerColumn*100),
		Metric:   fraction,
		Fraction: fraction,
		Count:    profile.NullCount,
	}
}
