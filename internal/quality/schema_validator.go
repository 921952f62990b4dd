package quality

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

// SchemaValidator checks columns against declared schema rules
type SchemaValidator struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(config *QualityConfig, logger *logrus.Logger) *SchemaValidator {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SchemaValidator{config: config, logger: logger}
}

// Validate checks a whole dataset. Columns without a rule are ignored.
func (sv *SchemaValidator) Validate(ds *models.Dataset, schema models.Schema) []models.Finding {
	findings := sv.MissingColumns(ds, schema)
	for _, col := range ds.Columns {
		if rule, ok := schema[col.Name]; ok {
			findings = append(findings, sv.ValidateColumn(col, rule)...)
		}
	}
	return findings
}

// MissingColumns reports every declared column absent from the dataset, by name
func (sv *SchemaValidator) MissingColumns(ds *models.Dataset, schema models.Schema) []models.Finding {
	var missing []string
	for name := range schema {
		if _, ok := ds.Column(name); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	findings := make([]models.Finding, 0, len(missing))
	for _, name := range missing {
		findings = append(findings, models.Finding{
			Kind:     models.FindingTypeMismatch,
			Column:   name,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("declared column %q is missing from the dataset", name),
			Metric:   1,
			Fraction: 1,
		})
	}
	return findings
}

// ValidateColumn checks one column against its rule
func (sv *SchemaValidator) ValidateColumn(col models.Column, rule models.SchemaRule) []models.Finding {
	var findings []models.Finding

	nulls := col.NullCount()
	if !rule.Nullable && nulls > 0 {
		fraction := float64(nulls) / float64(col.Len())
		findings = append(findings, models.Finding{
			Kind:     models.FindingNullThreshold,
			Column:   col.Name,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("column %q is not nullable but has %d nulls (%.2f%%)",
				col.Name, nulls, fraction*100),
			Metric:   fraction,
			Fraction: fraction,
			Count:    nulls,
		})
	}

	nonNull := col.Len() - nulls
	if nonNull == 0 {
		return findings
	}

	var mismatched, outOfRange, disallowed tally
	allowed := make(map[string]struct{}, len(rule.AllowedValues))
	for _, v := range rule.AllowedValues {
		allowed[v] = struct{}{}
	}

	for i, v := range col.Values {
		if v.Null {
			continue
		}
		if rule.Type != "" && !conforms(v, rule.Type) {
			mismatched.add(i)
		}
		if rule.HasRange() {
			if f, ok := parseNumber(v); ok && outside(f, rule.Min, rule.Max) {
				outOfRange.add(i)
			}
		}
		if len(allowed) > 0 {
			if _, ok := allowed[v.Raw]; !ok {
				disallowed.add(i)
			}
		}
	}

	if f := sv.tallyFinding(col.Name, models.FindingTypeMismatch, mismatched, nonNull,
		fmt.Sprintf("not valid %s", rule.Type)); f != nil {
		findings = append(findings, *f)
	}
	if f := sv.tallyFinding(col.Name, models.FindingRangeViolation, outOfRange, nonNull,
		"outside "+formatRange(rule.Min, rule.Max)); f != nil {
		findings = append(findings, *f)
	}
	if f := sv.tallyFinding(col.Name, models.FindingValueViolation, disallowed, nonNull,
		"not in the allowed value set"); f != nil {
		findings = append(findings, *f)
	}

	return findings
}

// tallyFinding emits one column-level finding when the violating fraction
// exceeds the mismatch threshold.
func (sv *SchemaValidator) tallyFinding(column string, kind models.FindingKind, t tally, total int, what string) *models.Finding {
	if t.count == 0 {
		return nil
	}
	fraction := float64(t.count) / float64(total)
	if fraction <= sv.config.MismatchThreshold {
		sv.logger.WithFields(logrus.Fields{
			"column":   column,
			"kind":     kind,
			"fraction": fraction,
		}).Debug("Violations below mismatch threshold")
		return nil
	}

	return &models.Finding{
		Kind:     kind,
		Column:   column,
		Severity: bandSeverity(fraction, sv.config.SeverityCriticalFraction),
		Message: fmt.Sprintf("column %q: %d of %d values (%.2f%%) are %s",
			column, t.count, total, fraction*100, what),
		Metric:   fraction,
		Fraction: fraction,
		Count:    t.count,
		Rows:     t.rows,
	}
}

// bandSeverity is warning below the critical fraction and critical at or above it
func bandSeverity(fraction, critical float64) models.Severity {
	if fraction >= critical {
		return models.SeverityCritical
	}
	return models.SeverityWarning
}

type tally struct {
	count int
	rows  []int
}

func (t *tally) add(row int) {
	t.count++
	t.rows = append(t.rows, row)
}

func outside(f float64, min, max *float64) bool {
	return (min != nil && f < *min) || (max != nil && f > *max)
}

func formatRange(min, max *float64) string {
	lo, hi := "-inf", "+inf"
	if min != nil {
		lo = fmt.Sprintf("%g", *min)
	}
	if max != nil {
		hi = fmt.Sprintf("%g", *max)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
