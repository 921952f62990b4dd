package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/qualitygate/cmd/cli/config"
	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/models"
)

// GlobalOptions are the persistent flags shared by every command
type GlobalOptions struct {
	ConfigFile string
	Verbose    bool
	LogLevel   string
	LogFormat  string
}

// GateError is returned when an alert at or above the fail-on severity fired
type GateError struct {
	Highest models.Severity
	FailOn  models.Severity
	Alerts  int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate failed: %d alert(s), highest severity %s (fail-on %s)", e.Alerts, e.Highest, e.FailOn)
}

// NewRootCmd builds the qgate command tree
func NewRootCmd(version string) *cobra.Command {
	global := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "qgate",
		Short: "Data quality gate for tabular datasets",
		Long: `qgate profiles a tabular dataset, checks it against a schema and an optional
baseline, and scores completeness, accuracy, consistency and timeliness.
It exits non-zero when an alert at or above --fail-on fires.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&global.ConfigFile, "config", "", "config file (default is $HOME/.qualitygate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&global.LogFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(NewAssessCmd(global))
	rootCmd.AddCommand(NewProfileCmd(global))
	rootCmd.AddCommand(NewConfigCmd(global))

	return rootCmd
}

// load resolves the effective configuration and a logger writing to errOut
func (g *GlobalOptions) load(errOut io.Writer) (*config.CLIConfig, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(g.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	if g.Verbose {
		level = "debug"
	}

	format := cfg.LogFormat
	if g.LogFormat != "" {
		format = g.LogFormat
	}

	logger := SetupLogger(level, format, errOut)
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Debug("Using config file")
	}

	return cfg, logger, nil
}

// SetupLogger creates a logger with the given level and format
func SetupLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == constants.FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// openOutput returns stdout for "-" or an empty path, otherwise a created file
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, file.Close, nil
}

// parseOverrides turns key=value pairs into a nested map. Dotted keys nest:
// alert_thresholds.accuracy.warning=90.
func parseOverrides(pairs []string) (map[string]interface{}, error) {
	overrides := make(map[string]interface{})

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}

		parts := strings.Split(key, ".")
		node := overrides
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	return overrides, nil
}
