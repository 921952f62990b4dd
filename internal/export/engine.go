package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// ExportFormat names a report encoding
type ExportFormat string

const (
	FormatText ExportFormat = constants.FormatText
	FormatJSON ExportFormat = constants.FormatJSON
	FormatYAML ExportFormat = constants.FormatYAML
)

// ParseFormat parses a case-insensitive format name
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.WrapError(errors.ErrUnsupportedFormat, errors.ErrorTypeValidation,
			errors.CodeUnsupportedFormat, fmt.Sprintf("unsupported format %q", s))
	}
}

// ContentType returns the MIME type served for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return constants.ContentTypeJSON
	case FormatYAML:
		return constants.ContentTypeYAML
	default:
		return constants.ContentTypePlainText
	}
}

// Exporter writes a report in one format
type Exporter interface {
	Name() string
	SupportedFormats() []ExportFormat
	Export(ctx context.Context, writer io.Writer, report *models.Report) error
}

// Decoder reads back a report written by an Exporter
type Decoder interface {
	Decode(reader io.Reader) (*models.Report, error)
}

// ExportEngine dispatches reports to the registered exporters
type ExportEngine struct {
	logger    *logrus.Logger
	mu        sync.RWMutex
	exporters map[ExportFormat]Exporter
}

// NewExportEngine creates an engine with the JSON, YAML and text exporters registered
func NewExportEngine(logger *logrus.Logger) *ExportEngine {
	if logger == nil {
		logger = logrus.New()
	}

	engine := &ExportEngine{
		logger:    logger,
		exporters: make(map[ExportFormat]Exporter),
	}

	engine.registerDefaultExporters()

	return engine
}

// RegisterExporter registers an exporter for every format it supports
func (ee *ExportEngine) RegisterExporter(exporter Exporter) {
	ee.mu.Lock()
	defer ee.mu.Unlock()

	for _, format := range exporter.SupportedFormats() {
		ee.exporters[format] = exporter
	}
	ee.logger.WithField("exporter", exporter.Name()).Debug("Registered exporter")
}

// Export writes report to writer in the given format
func (ee *ExportEngine) Export(ctx context.Context, report *models.Report, format ExportFormat, writer io.Writer) error {
	if report == nil {
		return errors.NewInputError(errors.CodeInvalidInput, "report is nil")
	}

	exporter, ok := ee.findExporterForFormat(format)
	if !ok {
		return errors.WrapError(errors.ErrUnsupportedFormat, errors.ErrorTypeValidation,
			errors.CodeUnsupportedFormat, fmt.Sprintf("no exporter for format %q", format))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := exporter.Export(ctx, writer, report); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	ee.logger.WithFields(logrus.Fields{
		"format":    format,
		"report_id": report.ID,
	}).Debug("Report exported")

	return nil
}

// Decode reads a report previously exported as JSON or YAML
func (ee *ExportEngine) Decode(reader io.Reader, format ExportFormat) (*models.Report, error) {
	exporter, ok := ee.findExporterForFormat(format)
	if !ok {
		return nil, errors.WrapError(errors.ErrUnsupportedFormat, errors.ErrorTypeValidation,
			errors.CodeUnsupportedFormat, fmt.Sprintf("no exporter for format %q", format))
	}

	decoder, ok := exporter.(Decoder)
	if !ok {
		return nil, errors.WrapError(errors.ErrUnsupportedFormat, errors.ErrorTypeValidation,
			errors.CodeUnsupportedFormat, fmt.Sprintf("format %q cannot be decoded", format))
	}

	return decoder.Decode(reader)
}

// GetSupportedFormats returns the registered formats in name order
func (ee *ExportEngine) GetSupportedFormats() []ExportFormat {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	formats := make([]ExportFormat, 0, len(ee.exporters))
	for format := range ee.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })

	return formats
}

func (ee *ExportEngine) findExporterForFormat(format ExportFormat) (Exporter, bool) {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	exporter, ok := ee.exporters[format]
	return exporter, ok
}

func (ee *ExportEngine) registerDefaultExporters() {
	ee.RegisterExporter(&JSONExporter{Pretty: true})
	ee.RegisterExporter(&YAMLExporter{})
	ee.RegisterExporter(&TextExporter{})
}
