package quality

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

// TimelinessChecker flags stale and future-dated values in datetime columns
type TimelinessChecker struct {
	config *QualityConfig
	clock  clockwork.Clock
	logger *logrus.Logger
}

// NewTimelinessChecker creates a new timeliness checker
func NewTimelinessChecker(config *QualityConfig, clock clockwork.Clock, logger *logrus.Logger) *TimelinessChecker {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &TimelinessChecker{config: config, clock: clock, logger: logger}
}

// Check evaluates one column against the freshness horizon and, when
// enabled, the current time.
func (tc *TimelinessChecker) Check(profile *models.ColumnProfile) []models.Finding {
	if profile == nil || profile.Type != models.TypeDatetime {
		return nil
	}
	if tc.config.FreshnessHorizon <= 0 && !tc.config.RejectFutureDates {
		return nil
	}

	now := tc.clock.Now()
	cutoff := now.Add(-tc.config.FreshnessHorizon)

	var stale, future tally
	total := 0
	for i, tv := range profile.Values {
		if tv.Kind != models.KindDatetime {
			continue
		}
		total++
		if tc.config.FreshnessHorizon > 0 && tv.Time.Before(cutoff) {
			stale.add(i)
		}
		if tc.config.RejectFutureDates && tv.Time.After(now) {
			future.add(i)
		}
	}

	var findings []models.Finding
	if stale.count > 0 {
		findings = append(findings, tc.finding(profile.Name, models.FindingStaleDate, stale, total,
			fmt.Sprintf("older than the %s freshness horizon", tc.config.FreshnessHorizon)))
	}
	if future.count > 0 {
		findings = append(findings, tc.finding(profile.Name, models.FindingFutureDate, future, total,
			"dated in the future"))
	}
	return findings
}

func (tc *TimelinessChecker) finding(column string, kind models.FindingKind, t tally, total int, what string) models.Finding {
	fraction := float64(t.count) / float64(total)

	tc.logger.WithFields(logrus.Fields{
		"column":   column,
		"kind":     kind,
		"fraction": fraction,
	}).Debug("Timeliness violation")

	return models.Finding{
		Kind:     kind,
		Column:   column,
		Severity: bandSeverity(fraction, tc.config.SeverityCriticalFraction),
		Message: fmt.Sprintf("column %q: %d of %d dates (%.2f%%) are %s",
			column, t.count, total, fraction*100, what),
		Metric:   fraction,
		Fraction: fraction,
		Count:    t.count,
		Rows:     t.rows,
	}
}
