package models

// SchemaRule declares what a column is expected to contain.
type SchemaRule struct {
	Type          ColumnType `json:"type,omitempty" yaml:"type,omitempty"`
	Nullable      bool       `json:"nullable" yaml:"nullable"`
	Min           *float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64   `json:"max,omitempty" yaml:"max,omitempty"`
	AllowedValues []string   `json:"allowed_values,omitempty" yaml:"allowed_values,omitempty"`
}

// HasRange reports whether a numeric bound is declared.
func (r SchemaRule) HasRange() bool {
	return r.Min != nil || r.Max != nil
}

// Schema maps column names to their declared rules. Columns not listed are
// not checked.
type Schema map[string]SchemaRule
