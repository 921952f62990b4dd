package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/internal/utils/encoding"
	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// LoaderConfig controls how files are turned into datasets
type LoaderConfig struct {
	// NullTokens are cell spellings read as the missing marker. Matching is exact.
	NullTokens []string `json:"null_tokens" yaml:"null_tokens" mapstructure:"null_tokens"`
	Delimiter  string   `json:"delimiter" yaml:"delimiter" mapstructure:"delimiter"`
	TrimSpace  bool     `json:"trim_space" yaml:"trim_space" mapstructure:"trim_space"`

	Database DatabaseConfig `json:"database" yaml:"database" mapstructure:"database"`
	S3       S3Config       `json:"s3" yaml:"s3" mapstructure:"s3"`
}

// DefaultLoaderConfig returns comma-separated input with the default null tokens
func DefaultLoaderConfig() *LoaderConfig {
	tokens := make([]string, len(constants.DefaultNullTokens))
	copy(tokens, constants.DefaultNullTokens)

	return &LoaderConfig{
		NullTokens: tokens,
		Delimiter:  ",",
		Database: DatabaseConfig{
			QueryTimeout: 5 * time.Minute,
		},
		S3: S3Config{
			Region:     "us-east-1",
			MaxRetries: 3,
		},
	}
}

// FileLoader reads datasets from CSV or JSON files, S3 objects holding such
// files, or Postgres query results
type FileLoader struct {
	config *LoaderConfig
	logger *logrus.Logger
	nulls  map[string]struct{}

	s3Once sync.Once
	s3     s3iface.S3API
	s3Err  error
}

// NewFileLoader creates a loader
func NewFileLoader(config *LoaderConfig, logger *logrus.Logger) (*FileLoader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	if len([]rune(config.Delimiter)) > 1 {
		return nil, errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeInvalidConfiguration,
			fmt.Sprintf("delimiter must be a single character, got %q", config.Delimiter))
	}

	nulls := make(map[string]struct{}, len(config.NullTokens))
	for _, token := range config.NullTokens {
		nulls[token] = struct{}{}
	}

	return &FileLoader{
		config: config,
		logger: logger,
		nulls:  nulls,
	}, nil
}

// Load reads a dataset from source: a postgres:// DSN (query required), an
// s3://bucket/key URL, or a local path.
func (fl *FileLoader) Load(ctx context.Context, source, query string) (*models.Dataset, error) {
	if IsDatabaseURL(source) {
		return fl.LoadQuery(ctx, source, query)
	}
	if query != "" {
		return nil, errors.NewInputError(errors.CodeInvalidInput,
			fmt.Sprintf("a query only applies to database sources, got %s", source))
	}
	if IsS3URL(source) {
		return fl.LoadObject(ctx, source)
	}
	return fl.LoadDataset(source)
}

// LoadDataset reads the file at path, choosing the decoder from its extension.
// A trailing .gz, .zz or .zst is decompressed first.
func (fl *FileLoader) LoadDataset(path string) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeFileOpenFailed,
			fmt.Sprintf("failed to open file: %s", path))
	}
	defer file.Close()

	ds, err := fl.decode(file, path)
	if err != nil {
		return nil, err
	}

	fl.logger.WithFields(logrus.Fields{
		"path":    path,
		"columns": len(ds.Columns),
		"rows":    ds.RowCount(),
	}).Debug("Dataset loaded")

	return ds, nil
}

// decode picks the decompressor and decoder from the extensions of path
func (fl *FileLoader) decode(r io.Reader, path string) (*models.Dataset, error) {
	compression, inner := encoding.DetectCompression(path)
	reader, err := encoding.NewReader(r, compression)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed,
			fmt.Sprintf("failed to open %s stream: %s", compression, path))
	}
	defer reader.Close()
	ext := strings.ToLower(filepath.Ext(inner))

	name := datasetName(path)

	var ds *models.Dataset
	switch ext {
	case ".csv", ".tsv", ".txt":
		ds, err = fl.ReadCSV(reader, name)
	case ".json":
		ds, err = fl.ReadJSON(reader)
		if err == nil && ds.Name == "" {
			ds.Name = name
		}
	default:
		return nil, errors.WrapError(errors.ErrUnsupportedFormat, errors.ErrorTypeValidation,
			errors.CodeUnsupportedFormat, fmt.Sprintf("unsupported file format: %s", ext))
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// ReadCSV reads a CSV stream whose first record is the header.
// Records must have as many fields as the header.
func (fl *FileLoader) ReadCSV(r io.Reader, name string) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	if fl.config.Delimiter != "" {
		reader.Comma = []rune(fl.config.Delimiter)[0]
	}
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewInputError(errors.CodeInvalidInput, "CSV input has no header row")
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed, "failed to read CSV header")
	}

	columns := make([]models.Column, len(header))
	for i, h := range header {
		columns[i].Name = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed, "failed to read CSV")
		}

		for i, cell := range record {
			columns[i].Values = append(columns[i].Values, fl.cell(cell))
		}
	}

	ds := models.NewDataset(name, columns...)
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// ReadJSON reads a column payload: {"name": ..., "columns": [{"name": ..., "values": [...]}]}.
// JSON null is the missing marker; every other scalar is kept as its text.
func (fl *FileLoader) ReadJSON(r io.Reader) (*models.Dataset, error) {
	var ds models.Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed, "failed to decode JSON dataset")
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (fl *FileLoader) cell(raw string) models.Value {
	if fl.config.TrimSpace {
		raw = strings.TrimSpace(raw)
	}
	if _, ok := fl.nulls[raw]; ok {
		return models.Null()
	}
	return models.String(raw)
}

func datasetName(path string) string {
	base := filepath.Base(path)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
