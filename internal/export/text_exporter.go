package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/inferloop/qualitygate/pkg/models"
)

// TextExporter renders a human readable summary of a report
type TextExporter struct {
	// MaxFindings caps the findings listed; 0 lists all.
	MaxFindings int
}

// Name returns the exporter name
func (te *TextExporter) Name() string {
	return "text"
}

// SupportedFormats returns supported formats
func (te *TextExporter) SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatText}
}

// Export writes the summary, one section per part of the report
func (te *TextExporter) Export(ctx context.Context, writer io.Writer, report *models.Report) error {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	name := report.Dataset
	if name == "" {
		name = "(unnamed)"
	}

	fmt.Fprintf(tw, "Dataset:\t%s\n", name)
	fmt.Fprintf(tw, "Report:\t%s\n", report.ID)
	fmt.Fprintf(tw, "Generated:\t%s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Rows:\t%s\n", humanize.Comma(int64(report.Rows)))
	fmt.Fprintf(tw, "Columns:\t%s\n", humanize.Comma(int64(len(report.Profiles))))

	if qa := report.Assessment; qa != nil {
		fmt.Fprintf(tw, "\nComposite score:\t%s\n", score(qa.Composite))
		for _, ds := range qa.Dimensions {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", ds.Dimension, score(ds.Score), plural(len(ds.Findings), "finding"))
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(report.Alerts) > 0 {
		fmt.Fprintf(tw, "\nAlerts (%s):\n", humanize.Comma(int64(len(report.Alerts))))
		for _, a := range report.Alerts {
			fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", strings.ToUpper(string(a.Severity)), a.Dimension, a.Message)
		}
	} else {
		fmt.Fprintln(tw, "\nAlerts: none")
	}

	if qa := report.Assessment; qa != nil && len(qa.Findings) > 0 {
		findings := qa.Findings
		if te.MaxFindings > 0 && len(findings) > te.MaxFindings {
			findings = findings[:te.MaxFindings]
		}

		fmt.Fprintf(tw, "\nFindings (%s):\n", humanize.Comma(int64(len(qa.Findings))))
		for _, f := range findings {
			column := f.Column
			if column == "" {
				column = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.Severity, f.Kind, column, f.Message)
		}
		if omitted := len(qa.Findings) - len(findings); omitted > 0 {
			fmt.Fprintf(tw, "  ... %s more\n", humanize.Comma(int64(omitted)))
		}
	}

	return tw.Flush()
}

func score(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return humanize.Comma(int64(n)) + " " + unit + "s"
}
