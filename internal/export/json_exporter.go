package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/inferloop/qualitygate/pkg/models"
)

// JSONExporter implements JSON export functionality
type JSONExporter struct {
	Pretty bool
}

// Name returns the exporter name
func (je *JSONExporter) Name() string {
	return "json"
}

// SupportedFormats returns supported formats
func (je *JSONExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatJSON}
}

// Export writes the report as a single JSON document
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, report *models.Report) error {
	encoder := json.NewEncoder(writer)

	if je.Pretty {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}

	return nil
}

// Decode reads a JSON report
func (je *JSONExporter) Decode(reader io.Reader) (*models.Report, error) {
	var report models.Report
	if err := json.NewDecoder(reader).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode JSON report: %w", err)
	}
	return &report, nil
}
