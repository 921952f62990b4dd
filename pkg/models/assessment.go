package models

import (
	"fmt"
	"strings"
	"time"
)

// Dimension is an axis of data quality.
type Dimension string

const (
	DimensionCompleteness Dimension = "completeness"
	DimensionAccuracy     Dimension = "accuracy"
	DimensionConsistency  Dimension = "consistency"
	DimensionTimeliness   Dimension = "timeliness"
)

// Dimensions lists the four dimensions in canonical order.
var Dimensions = []Dimension{
	DimensionCompleteness,
	DimensionAccuracy,
	DimensionConsistency,
	DimensionTimeliness,
}

// Order returns the canonical position of d, or len(Dimensions) if unknown.
func (d Dimension) Order() int {
	for i, dim := range Dimensions {
		if dim == d {
			return i
		}
	}
	return len(Dimensions)
}

// ParseDimension parses a case-insensitive dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if d.Order() == len(Dimensions) {
		return "", fmt.Errorf("unknown dimension %q", s)
	}
	return d, nil
}

// DimensionScore is a score in [0,100] and the findings that lowered it.
type DimensionScore struct {
	Dimension Dimension `json:"dimension" yaml:"dimension"`
	Score     float64   `json:"score" yaml:"score"`
	Findings  []Finding `json:"findings,omitempty" yaml:"findings,omitempty"`
}

// QualityAssessment is the terminal output of the scorer.
type QualityAssessment struct {
	Composite  float64          `json:"composite" yaml:"composite"`
	Dimensions []DimensionScore `json:"dimensions" yaml:"dimensions"`
	Findings   []Finding        `json:"findings" yaml:"findings"`
}

// Dimension returns the score for d.
func (qa *QualityAssessment) Dimension(d Dimension) (DimensionScore, bool) {
	for _, ds := range qa.Dimensions {
		if ds.Dimension == d {
			return ds, true
		}
	}
	return DimensionScore{}, false
}

// Report wraps one assessment run with its alerts and column profiles.
type Report struct {
	ID          string             `json:"id" yaml:"id"`
	Dataset     string             `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Rows        int                `json:"rows" yaml:"rows"`
	Assessment  *QualityAssessment `json:"assessment" yaml:"assessment"`
	Alerts      []Alert            `json:"alerts" yaml:"alerts"`
	Profiles    []ColumnProfile    `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

// HighestSeverity returns the most severe alert, or "" when there are none.
func (r *Report) HighestSeverity() Severity {
	var highest Severity
	for _, a := range r.Alerts {
		if a.Severity.Rank() > highest.Rank() {
			highest = a.Severity
		}
	}
	return highest
}
