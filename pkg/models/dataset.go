package models

import (
	"fmt"

	"github.com/inferloop/qualitygate/pkg/errors"
)

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	return len(c.Values)
}

// NullCount returns the number of missing cells.
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.Null {
			n++
		}
	}
	return n
}

// Dataset is an ordered set of equally sized columns, supplied whole by a loader.
type Dataset struct {
	Name    string   `json:"name,omitempty"`
	Columns []Column `json:"columns"`
}

// NewDataset builds a dataset from columns in order.
func NewDataset(name string, columns ...Column) *Dataset {
	return &Dataset{Name: name, Columns: columns}
}

// RowCount returns the shared row count, or 0 for a dataset without columns.
func (d *Dataset) RowCount() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in dataset order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks the shape invariants: unique names and equal row counts.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.NewInputError(errors.CodeInvalidInput, "dataset is nil")
	}

	rows := d.RowCount()
	seen := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		if c.Name == "" {
			return errors.NewInputError(errors.CodeInvalidInput, "column name cannot be empty")
		}
		if _, dup := seen[c.Name]; dup {
			return errors.NewInputError(errors.CodeInvalidInput,
				fmt.Sprintf("duplicate column name %q", c.Name))
		}
		seen[c.Name] = struct{}{}

		if c.Len() != rows {
			return errors.NewInputError(errors.CodeInvalidInput,
				fmt.Sprintf("column %q has %d rows, expected %d", c.Name, c.Len(), rows))
		}
	}
	return nil
}
