package tests

import "errors"

// ErrInsufficientData is returned when a sample is too small for a test
var ErrInsufficientData = errors.New("insufficient data for statistical test")

// StatisticalTestResult contains the outcome of a hypothesis test
type StatisticalTestResult struct {
	TestName       string  `json:"test_name"`
	Statistic      float64 `json:"statistic"`
	PValue         float64 `json:"p_value"`
	CriticalValue  float64 `json:"critical_value,omitempty"`
	IsSignificant  bool    `json:"is_significant"`
	AlphaLevel     float64 `json:"alpha_level"`
	Description    string  `json:"description"`
	Interpretation string  `json:"interpretation"`
}
