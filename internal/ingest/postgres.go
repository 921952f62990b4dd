package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// DatabaseConfig controls query sources
type DatabaseConfig struct {
	// QueryTimeout bounds connect plus query. Zero means no limit beyond the caller's context.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
	// MaxRows stops reading after this many rows. Zero reads the whole result.
	MaxRows int `json:"max_rows" yaml:"max_rows" mapstructure:"max_rows"`
}

// IsDatabaseURL reports whether source is a Postgres connection URL
func IsDatabaseURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// rowSource is the part of *sql.Rows the dataset reader needs
type rowSource interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// LoadQuery runs query on the Postgres database at dsn and turns the result
// set into a dataset, one column per result column. SQL NULL is the missing marker.
func (fl *FileLoader) LoadQuery(ctx context.Context, dsn, query string) (*models.Dataset, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewInputError(errors.CodeMissingField, "a query is required for database sources")
	}

	name, redacted := databaseName(dsn)
	logger := fl.logger.WithField("source", redacted)

	if timeout := fl.config.Database.QueryTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeQueryFailed,
			fmt.Sprintf("failed to open database: %s", redacted))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeQueryFailed,
			fmt.Sprintf("query failed on %s", redacted))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeQueryFailed, "failed to read result columns")
	}

	ds, err := fl.readRows(rows, columns, name)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"columns":  len(ds.Columns),
		"rows":     ds.RowCount(),
		"duration": time.Since(start),
	}).Debug("Query result loaded")

	return ds, nil
}

func (fl *FileLoader) readRows(rows rowSource, names []string, name string) (*models.Dataset, error) {
	if len(names) == 0 {
		return nil, errors.NewInputError(errors.CodeInvalidInput, "query returned no columns")
	}

	columns := make([]models.Column, len(names))
	for i, n := range names {
		columns[i].Name = n
	}

	raw := make([]interface{}, len(names))
	dest := make([]interface{}, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}

	read := 0
	for rows.Next() {
		if limit := fl.config.Database.MaxRows; limit > 0 && read >= limit {
			fl.logger.WithFields(logrus.Fields{
				"dataset":  name,
				"max_rows": limit,
			}).Warn("Query result truncated")
			break
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeQueryFailed, "failed to scan row")
		}
		for i, v := range raw {
			cell, err := fl.sqlCell(v)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed,
					fmt.Sprintf("column %q row %d", names[i], read))
			}
			columns[i].Values = append(columns[i].Values, cell)
		}
		read++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeQueryFailed, "failed to read query result")
	}

	ds := models.NewDataset(name, columns...)
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// sqlCell maps a driver value to a cell. Text goes through the same null
// tokens as file input; timestamps are written in UTC.
func (fl *FileLoader) sqlCell(v interface{}) (models.Value, error) {
	switch t := v.(type) {
	case nil:
		return models.Null(), nil
	case []byte:
		return fl.cell(string(t)), nil
	case string:
		return fl.cell(t), nil
	case time.Time:
		return models.String(t.UTC().Format(time.RFC3339Nano)), nil
	}
	return models.NewValue(v)
}

// databaseName returns the database name from dsn and the dsn with its password masked
func databaseName(dsn string) (string, string) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "query", "postgres"
	}
	name := strings.Trim(path.Base(u.Path), "/.")
	if name == "" {
		name = "query"
	}
	return name, u.Redacted()
}
