package models

// Threshold is a warning/critical pair. For dimension scores an alert fires
// when the score falls below the value; for finding kinds when the fraction
// reaches it.
type Threshold struct {
	Warning  float64 `json:"warning" yaml:"warning" mapstructure:"warning"`
	Critical float64 `json:"critical" yaml:"critical" mapstructure:"critical"`
}

// AlertConfig configures the alert evaluator.
type AlertConfig struct {
	Dimensions  map[Dimension]Threshold   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Kinds       map[FindingKind]Threshold `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	MinSeverity Severity                  `json:"min_severity,omitempty" yaml:"min_severity,omitempty"`
}

// AlertSource says what triggered an alert.
type AlertSource string

const (
	AlertSourceDimension AlertSource = "dimension"
	AlertSourceFinding   AlertSource = "finding"
)

// Alert is an actionable notification derived from a score or a finding.
type Alert struct {
	Severity  Severity    `json:"severity" yaml:"severity"`
	Source    AlertSource `json:"source" yaml:"source"`
	Dimension Dimension   `json:"dimension" yaml:"dimension"`
	Column    string      `json:"column,omitempty" yaml:"column,omitempty"`
	Kind      FindingKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Message   string      `json:"message" yaml:"message"`
	Value     float64     `json:"value" yaml:"value"`
	Threshold float64     `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Finding   *Finding    `json:"finding,omitempty" yaml:"finding,omitempty"`
}
