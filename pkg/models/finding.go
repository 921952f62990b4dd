package models

import (
	"fmt"
	"strings"
)

// Severity grades a finding or alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: info < warning < critical. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// FindingKind names the detector rule that produced a finding.
type FindingKind string

const (
	FindingNullThreshold      FindingKind = "null-threshold"
	FindingOutlier            FindingKind = "outlier"
	FindingTypeMismatch       FindingKind = "type-mismatch"
	FindingRangeViolation     FindingKind = "range-violation"
	FindingValueViolation     FindingKind = "value-violation"
	FindingDuplicate          FindingKind = "duplicate"
	FindingFuzzyDuplicate     FindingKind = "fuzzy-duplicate"
	FindingDrift              FindingKind = "drift"
	FindingStaleDate          FindingKind = "stale-date"
	FindingFutureDate         FindingKind = "future-date"
	FindingComputationSkipped FindingKind = "computation-skipped"
)

// FindingKinds lists every kind in a stable order.
var FindingKinds = []FindingKind{
	FindingNullThreshold,
	FindingOutlier,
	FindingTypeMismatch,
	FindingRangeViolation,
	FindingValueViolation,
	FindingDuplicate,
	FindingFuzzyDuplicate,
	FindingDrift,
	FindingStaleDate,
	FindingFutureDate,
	FindingComputationSkipped,
}

// Dimension returns the quality dimension a finding kind counts against.
func (k FindingKind) Dimension() Dimension {
	switch k {
	case FindingNullThreshold:
		return DimensionCompleteness
	case FindingDuplicate, FindingFuzzyDuplicate:
		return DimensionConsistency
	case FindingDrift, FindingStaleDate, FindingFutureDate:
		return DimensionTimeliness
	default:
		return DimensionAccuracy
	}
}

// Finding is one detected issue. Findings are produced by detectors and only
// ever aggregated afterwards.
type Finding struct {
	Kind     FindingKind `json:"kind" yaml:"kind"`
	Column   string      `json:"column,omitempty" yaml:"column,omitempty"`
	Severity Severity    `json:"severity" yaml:"severity"`
	Message  string      `json:"message" yaml:"message"`
	// Metric is the number backing the finding: a fraction, z-score, p-value or distance.
	Metric float64 `json:"metric" yaml:"metric"`
	// Fraction is the share of affected values or rows; the scorer penalises by it.
	Fraction float64            `json:"fraction" yaml:"fraction"`
	Count    int                `json:"count,omitempty" yaml:"count,omitempty"`
	Rows     []int              `json:"rows,omitempty" yaml:"rows,omitempty"`
	Details  map[string]float64 `json:"details,omitempty" yaml:"details,omitempty"`
}

// FilterFindings returns the findings whose kind is in kinds, preserving order.
func FilterFindings(findings []Finding, kinds ...FindingKind) []Finding {
	want := make(map[FindingKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	var out []Finding
	for _, f := range findings {
		if _, ok := want[f.Kind]; ok {
			out = append(out, f)
		}
	}
	return out
}
