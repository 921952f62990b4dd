package quality

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

// AlertEvaluator turns dimension scores and findings into ordered alerts
type AlertEvaluator struct {
	config models.AlertConfig
	logger *logrus.Logger
}

// NewAlertEvaluator creates a new alert evaluator
func NewAlertEvaluator(config models.AlertConfig, logger *logrus.Logger) *AlertEvaluator {
	if config.MinSeverity == "" {
		config.MinSeverity = models.SeverityWarning
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AlertEvaluator{config: config, logger: logger}
}

// Evaluate returns alerts ordered by severity (highest first), then dimension,
// then column. The result is never nil.
func (ae *AlertEvaluator) Evaluate(assessment *models.QualityAssessment) []models.Alert {
	alerts := make([]models.Alert, 0)
	if assessment == nil {
		return alerts
	}

	for _, ds := range assessment.Dimensions {
		if a, ok := ae.dimensionAlert(ds); ok {
			alerts = append(alerts, a)
		}
	}

	for i := range assessment.Findings {
		f := assessment.Findings[i]
		severity := ae.grade(f)
		if !severity.AtLeast(ae.config.MinSeverity) {
			continue
		}
		alerts = append(alerts, models.Alert{
			Severity:  severity,
			Source:    models.AlertSourceFinding,
			Dimension: f.Kind.Dimension(),
			Column:    f.Column,
			Kind:      f.Kind,
			Message:   f.Message,
			Value:     f.Fraction,
			Threshold: ae.config.Kinds[f.Kind].Warning,
			Finding:   &f,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Dimension.Order() != b.Dimension.Order() {
			return a.Dimension.Order() < b.Dimension.Order()
		}
		return a.Column < b.Column
	})

	if len(alerts) > 0 {
		ae.logger.WithFields(logrus.Fields{
			"alerts":  len(alerts),
			"highest": alerts[0].Severity,
		}).Debug("Alerts evaluated")
	}
	return alerts
}

// dimensionAlert raises a critical alert below the critical threshold, a
// warning below the warning threshold, and nothing otherwise.
func (ae *AlertEvaluator) dimensionAlert(ds models.DimensionScore) (models.Alert, bool) {
	t, ok := ae.config.Dimensions[ds.Dimension]
	if !ok {
		return models.Alert{}, false
	}

	var severity models.Severity
	var threshold float64
	switch {
	case ds.Score < t.Critical:
		severity, threshold = models.SeverityCritical, t.Critical
	case ds.Score < t.Warning:
		severity, threshold = models.SeverityWarning, t.Warning
	default:
		return models.Alert{}, false
	}
	if !severity.AtLeast(ae.config.MinSeverity) {
		return models.Alert{}, false
	}

	return models.Alert{
		Severity:  severity,
		Source:    models.AlertSourceDimension,
		Dimension: ds.Dimension,
		Message: fmt.Sprintf("%s score %.1f is below the %s threshold %.1f",
			ds.Dimension, ds.Score, severity, threshold),
		Value:     ds.Score,
		Threshold: threshold,
	}, true
}

// grade re-grades a finding by its fraction when a per-kind threshold pair is configured
func (ae *AlertEvaluator) grade(f models.Finding) models.Severity {
	t, ok := ae.config.Kinds[f.Kind]
	if !ok {
		return f.Severity
	}
	switch {
	case f.Fraction >= t.Critical:
		return models.SeverityCritical
	case f.Fraction >= t.Warning:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
