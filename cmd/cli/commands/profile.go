package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/internal/export"
	"github.com/inferloop/qualitygate/internal/ingest"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/models"
)

type ProfileOptions struct {
	InputFile  string
	Query      string
	Format     string
	OutputFile string
	Set        []string
}

// ProfileOutput is the structured form of the profile command's output
type ProfileOutput struct {
	Dataset  string                 `json:"dataset" yaml:"dataset"`
	Rows     int                    `json:"rows" yaml:"rows"`
	Profiles []models.ColumnProfile `json:"profiles" yaml:"profiles"`
	Findings []models.Finding       `json:"findings" yaml:"findings"`
}

func NewProfileCmd(global *GlobalOptions) *cobra.Command {
	opts := &ProfileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print column profiles of a dataset",
		Long: `Infer column types and compute descriptive statistics without scoring.
Columns whose statistics could not be computed are reported as findings.`,
		Example: `  qgate profile --input orders.csv
  qgate profile -i orders.json --format yaml
  qgate profile -i postgres://qa@db/shop -q "SELECT * FROM orders LIMIT 10000"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Dataset to profile: CSV or JSON path, s3:// URL or postgres:// DSN (required)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "SQL query for a postgres:// input")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format (text, json, yaml)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "Override a quality option, key=value (repeatable)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runProfile(cmd *cobra.Command, global *GlobalOptions, opts *ProfileOptions) error {
	cfg, logger, err := global.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(opts.Format)
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

	ds, err := loader.Load(cmd.Context(), opts.InputFile, opts.Query)
	if err != nil {
		return fmt.Errorf("failed to load input data: %w", err)
	}

	engine, err := quality.NewEngine(qualityConfig, logger)
	if err != nil {
		return err
	}

	profiles, findings, err := engine.Profile(cmd.Context(), ds)
	if err != nil {
		return fmt.Errorf("profiling failed: %w", err)
	}
	if findings == nil {
		findings = []models.Finding{}
	}

	output := ProfileOutput{
		Dataset:  ds.Name,
		Rows:     ds.RowCount(),
		Profiles: profiles,
		Findings: findings,
	}

	out, closeOut, err := openOutput(cmd, opts.OutputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	switch format {
	case export.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case export.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(output); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return writeProfileTable(out, output)
	}
}

func writeProfileTable(w io.Writer, output ProfileOutput) error {
	fmt.Fprintf(w, "Dataset: %s (%s rows)\n\n", output.Dataset, humanize.Comma(int64(output.Rows)))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS\tDISTINCT\tMIN\tMAX\tMEAN\tSTD DEV\tTOP")
	for _, p := range output.Profiles {
		top := "-"
		if len(p.TopValues) > 0 {
			top = fmt.Sprintf("%s (%s)", p.TopValues[0].Value, humanize.Comma(int64(p.TopValues[0].Count)))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Name,
			p.Type,
			humanize.Comma(int64(p.NullCount)),
			humanize.Comma(int64(p.DistinctCount)),
			stat(p.Min),
			stat(p.Max),
			stat(p.Mean),
			stat(p.StdDev),
			top,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range output.Findings {
		fmt.Fprintf(w, "\n[%s] %s %s: %s", f.Severity, f.Kind, f.Column, f.Message)
	}
	if len(output.Findings) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

func stat(v *float64) string {
	if v == nil {
		return "-"
	}
	return humanize.FtoaWithDigits(*v, 4)
}
