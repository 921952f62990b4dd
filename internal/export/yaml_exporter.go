package export

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/pkg/models"
)

// YAMLExporter writes reports as YAML documents
type YAMLExporter struct{}

// Name returns the exporter name
func (ye *YAMLExporter) Name() string {
	return "yaml"
}

// SupportedFormats returns supported formats
func (ye *YAMLExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatYAML}
}

// Export writes the report as a single YAML document
func (ye *YAMLExporter) Export(ctx context.Context, writer io.Writer, report *models.Report) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}

	return encoder.Close()
}

// Decode reads a YAML report
func (ye *YAMLExporter) Decode(reader io.Reader) (*models.Report, error) {
	var report models.Report
	if err := yaml.NewDecoder(reader).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode YAML report: %w", err)
	}
	return &report, nil
}
