package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/qualitygate/internal/export"
	"github.com/inferloop/qualitygate/internal/ingest"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/models"
)

// FailOnNone disables the gate
const FailOnNone = "none"

type AssessOptions struct {
	InputFile     string
	Query         string
	BaselineFile  string
	BaselineQuery string
	SchemaFile    string
	Format        string
	OutputFile    string
	FailOn        string
	Set           []string
	MaxFindings   int
	Timeout       time.Duration
}

func NewAssessCmd(global *GlobalOptions) *cobra.Command {
	opts := &AssessOptions{}

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess the quality of a dataset",
		Long: `Profile a dataset, validate it against an optional schema, compare it with an
optional baseline and report a composite quality score with findings and alerts.`,
		Example: `  # Assess a CSV file and fail on critical alerts
  qgate assess --input orders.csv

  # Compare against yesterday's extract with a schema
  qgate assess --input today.csv --baseline yesterday.csv --schema schema.yaml

  # JSON report, fail on warnings, tighter outlier threshold
  qgate assess -i data.csv --format json --fail-on warning --set z_threshold=2.5

  # Assess a query result against an extract stored in S3
  qgate assess -i postgres://qa@db/shop --query "SELECT * FROM orders" -b s3://exports/orders.csv.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Dataset to assess: CSV or JSON path, s3:// URL or postgres:// DSN (required)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "SQL query for a postgres:// input")
	cmd.Flags().StringVarP(&opts.BaselineFile, "baseline", "b", "", "Baseline dataset for drift detection")
	cmd.Flags().StringVar(&opts.BaselineQuery, "baseline-query", "", "SQL query for a postgres:// baseline")
	cmd.Flags().StringVarP(&opts.SchemaFile, "schema", "s", "", "Schema file (YAML)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Report format (text, json, yaml)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "Output file for the report (- for stdout)")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "", "Exit non-zero on alerts at or above this severity (info, warning, critical, none)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "Override a quality option, key=value (repeatable)")
	cmd.Flags().IntVar(&opts.MaxFindings, "max-findings", 50, "Findings listed in the text report (0 for all)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Abort the assessment after this long (0 for no limit)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAssess(cmd *cobra.Command, global *GlobalOptions, opts *AssessOptions) error {
	cfg, logger, err := global.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(firstNonEmpty(opts.Format, cfg.Format))
	if err != nil {
		return err
	}

	failOn, err := parseFailOn(firstNonEmpty(opts.FailOn, cfg.FailOn))
	if err != nil {
		return err
	}

	overrides, err := parseOverrides(opts.Set)
	if err != nil {
		return err
	}
	qualityConfig, err := cfg.Quality.ApplyOverrides(overrides)
	if err != nil {
		return err
	}

	loader, err := ingest.NewFileLoader(&cfg.Loader, logger)
	if err != nil {
		return err
	}

	in := quality.Input{}
	if in.Dataset, err = loader.Load(cmd.Context(), opts.InputFile, opts.Query); err != nil {
		return fmt.Errorf("failed to load input data: %w", err)
	}
	if opts.BaselineFile != "" {
		if in.Baseline, err = loader.Load(cmd.Context(), opts.BaselineFile, opts.BaselineQuery); err != nil {
			return fmt.Errorf("failed to load baseline data: %w", err)
		}
	}
	if opts.SchemaFile != "" {
		if in.Schema, err = ingest.LoadSchema(opts.SchemaFile); err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
	}

	engine, err := quality.NewEngine(qualityConfig, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	report, err := engine.Assess(ctx, in)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	exporter := export.NewExportEngine(logger)
	exporter.RegisterExporter(&export.TextExporter{MaxFindings: opts.MaxFindings})

	out, closeOut, err := openOutput(cmd, opts.OutputFile)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, report, format, out); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return checkGate(report, failOn, logger)
}

// parseFailOn accepts a severity or "none"; "" is returned for none
func parseFailOn(s string) (models.Severity, error) {
	if strings.EqualFold(strings.TrimSpace(s), FailOnNone) {
		return "", nil
	}
	sev, err := models.ParseSeverity(s)
	if err != nil {
		return "", fmt.Errorf("invalid --fail-on: %w", err)
	}
	return sev, nil
}

func checkGate(report *models.Report, failOn models.Severity, logger *logrus.Logger) error {
	highest := report.HighestSeverity()

	logger.WithFields(logrus.Fields{
		"composite": report.Assessment.Composite,
		"alerts":    len(report.Alerts),
		"highest":   highest,
		"fail_on":   failOn,
	}).Info("Quality gate evaluated")

	if failOn == "" || highest == "" || !highest.AtLeast(failOn) {
		return nil
	}

	return &GateError{Highest: highest, FailOn: failOn, Alerts: len(report.Alerts)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
