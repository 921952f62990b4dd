package models

import "time"

// ColumnType is the inferred type of a whole column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
	TypeText        ColumnType = "text"
	// TypeUnknown is reported for empty and all-null columns.
	TypeUnknown ColumnType = "unknown"
)

// ValueKind returns the cell tag used for non-null values of this column type.
func (t ColumnType) ValueKind() ValueKind {
	switch t {
	case TypeNumeric:
		return KindNumeric
	case TypeCategorical:
		return KindCategorical
	case TypeDatetime:
		return KindDatetime
	default:
		return KindText
	}
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// HistogramBin is one equal-width bin of a numeric histogram, closed on the
// left and open on the right except for the last bin.
type HistogramBin struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Count int     `json:"count" yaml:"count"`
}

// Histogram summarises a column distribution for drift comparison.
type Histogram struct {
	Bins       []HistogramBin `json:"bins,omitempty" yaml:"bins,omitempty"`
	Categories []ValueCount   `json:"categories,omitempty" yaml:"categories,omitempty"`
	Other      int            `json:"other,omitempty" yaml:"other,omitempty"`
}

// ColumnProfile holds descriptive statistics for one column. Statistics that
// do not apply are nil.
type ColumnProfile struct {
	Name          string       `json:"name" yaml:"name"`
	Type          ColumnType   `json:"type" yaml:"type"`
	Count         int          `json:"count" yaml:"count"`
	NullCount     int          `json:"null_count" yaml:"null_count"`
	NonNullCount  int          `json:"non_null_count" yaml:"non_null_count"`
	DistinctCount int          `json:"distinct_count" yaml:"distinct_count"`
	Min           *float64     `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64     `json:"max,omitempty" yaml:"max,omitempty"`
	Mean          *float64     `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev        *float64     `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`
	TopValues     []ValueCount `json:"top_values,omitempty" yaml:"top_values,omitempty"`
	Histogram     *Histogram   `json:"histogram,omitempty" yaml:"histogram,omitempty"`

	// Values are the cells resolved against Type, in row order.
	Values []TypedValue `json:"-" yaml:"-"`
}

// NullFraction returns NullCount/Count, or 0 for an empty column.
func (p *ColumnProfile) NullFraction() float64 {
	if p == nil || p.Count == 0 {
		return 0
	}
	return float64(p.NullCount) / float64(p.Count)
}

// Numbers returns the numeric cells in row order together with their row indices.
func (p *ColumnProfile) Numbers() ([]float64, []int) {
	return p.collect(func(tv TypedValue) (float64, bool) {
		return tv.Number, tv.Kind == KindNumeric
	})
}

// Times returns datetime cells as unix seconds with their row indices.
func (p *ColumnProfile) Times() ([]float64, []int) {
	return p.collect(func(tv TypedValue) (float64, bool) {
		if tv.Kind != KindDatetime {
			return 0, false
		}
		return EpochSeconds(tv.Time), true
	})
}

// EpochSeconds returns t as fractional seconds since the Unix epoch.
// UnixNano overflows outside 1678..2262, so seconds and nanoseconds are combined separately.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func (p *ColumnProfile) collect(pick func(TypedValue) (float64, bool)) ([]float64, []int) {
	if p == nil {
		return nil, nil
	}
	values := make([]float64, 0, len(p.Values))
	rows := make([]int, 0, len(p.Values))
	for i, tv := range p.Values {
		if f, ok := pick(tv); ok {
			values = append(values, f)
			rows = append(rows, i)
		}
	}
	return values, rows
}
