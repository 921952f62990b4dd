package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/internal/ingest"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/constants"
)

// CLIConfig is the effective configuration of the qgate command
type CLIConfig struct {
	Quality   quality.QualityConfig `mapstructure:"quality" yaml:"quality" json:"quality"`
	Loader    ingest.LoaderConfig   `mapstructure:"loader" yaml:"loader" json:"loader"`
	Format    string                `mapstructure:"format" yaml:"format" json:"format"`
	FailOn    string                `mapstructure:"fail_on" yaml:"fail_on" json:"fail_on"`
	LogLevel  string                `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string                `mapstructure:"log_format" yaml:"log_format" json:"log_format"`

	// File is the config file that was read, empty when only defaults and
	// environment were used.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// DefaultConfig returns the configuration used without a file or environment
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Quality:   *quality.DefaultQualityConfig(),
		Loader:    *ingest.DefaultLoaderConfig(),
		Format:    constants.DefaultOutputFormat,
		FailOn:    constants.DefaultFailOn,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// LoadConfig reads cfgFile, or $HOME/.qualitygate/config.yaml when cfgFile is
// empty, over the defaults. QGATE_ environment variables override both, with
// dots in keys replaced by underscores (QGATE_QUALITY_Z_THRESHOLD).
func LoadConfig(cfgFile string) (*CLIConfig, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, constants.ConfigDirName))
		}
		v.SetConfigName(constants.ConfigFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &CLIConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	if err := config.Quality.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes config as YAML, to the default path when cfgFile is empty
func SaveConfig(config *CLIConfig, cfgFile string) (string, error) {
	if cfgFile == "" {
		cfgFile = GetDefaultConfigPath()
		if cfgFile == "" {
			return "", fmt.Errorf("cannot determine home directory")
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("error encoding config: %w", err)
	}

	if err := os.WriteFile(cfgFile, data, 0o644); err != nil {
		return "", fmt.Errorf("error writing config file: %w", err)
	}

	return cfgFile, nil
}

// ConfigExists reports whether a file is present at path
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// GetDefaultConfigPath returns $HOME/.qualitygate/config.yaml
func GetDefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName+".yaml")
}

// setDefaults registers every leaf key so that environment variables and
// partial files merge with the defaults key by key.
func setDefaults(v *viper.Viper, d *CLIConfig) {
	v.SetDefault("format", d.Format)
	v.SetDefault("fail_on", d.FailOn)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetDefault("loader.null_tokens", d.Loader.NullTokens)
	v.SetDefault("loader.delimiter", d.Loader.Delimiter)
	v.SetDefault("loader.trim_space", d.Loader.TrimSpace)
	v.SetDefault("loader.database.query_timeout", d.Loader.Database.QueryTimeout)
	v.SetDefault("loader.database.max_rows", d.Loader.Database.MaxRows)
	v.SetDefault("loader.s3.region", d.Loader.S3.Region)
	v.SetDefault("loader.s3.endpoint", d.Loader.S3.Endpoint)
	v.SetDefault("loader.s3.force_path_style", d.Loader.S3.ForcePathStyle)
	v.SetDefault("loader.s3.disable_ssl", d.Loader.S3.DisableSSL)
	v.SetDefault("loader.s3.max_retries", d.Loader.S3.MaxRetries)
	v.SetDefault("loader.s3.access_key_id", d.Loader.S3.AccessKeyID)
	v.SetDefault("loader.s3.secret_access_key", d.Loader.S3.SecretAccessKey)
	v.SetDefault("loader.s3.session_token", d.Loader.S3.SessionToken)

	q := d.Quality
	methods := make([]string, len(q.OutlierMethods))
	for i, m := range q.OutlierMethods {
		methods[i] = string(m)
	}

	v.SetDefault("quality.z_threshold", q.ZThreshold)
	v.SetDefault("quality.iqr_k", q.IQRK)
	v.SetDefault("quality.outlier_methods", methods)
	v.SetDefault("quality.outlier_critical_fraction", q.OutlierCriticalFraction)
	v.SetDefault("quality.drift_significance", q.DriftSignificance)
	v.SetDefault("quality.drift_critical_significance", q.DriftCriticalSignificance)
	v.SetDefault("quality.drift_distance_threshold", q.DriftDistanceThreshold)
	v.SetDefault("quality.drift_distance_critical", q.DriftDistanceCritical)
	v.SetDefault("quality.min_drift_sample_size", q.MinDriftSampleSize)
	v.SetDefault("quality.null_threshold_per_column", q.NullThresholdPerColumn)
	v.SetDefault("quality.mismatch_threshold", q.MismatchThreshold)
	v.SetDefault("quality.severity_critical_fraction", q.SeverityCriticalFraction)
	v.SetDefault("quality.duplicate_key_columns", q.DuplicateKeyColumns)
	v.SetDefault("quality.fuzzy_duplicates", q.FuzzyDuplicates)
	v.SetDefault("quality.duplicate_critical_fraction", q.DuplicateCriticalFraction)
	v.SetDefault("quality.top_k", q.TopK)
	v.SetDefault("quality.histogram_bins", q.HistogramBins)
	v.SetDefault("quality.type_inference_ratio", q.TypeInferenceRatio)
	v.SetDefault("quality.categorical_max_length", q.CategoricalMaxLength)
	v.SetDefault("quality.freshness_horizon", q.FreshnessHorizon)
	v.SetDefault("quality.reject_future_dates", q.RejectFutureDates)
	v.SetDefault("quality.min_alert_severity", string(q.MinAlertSeverity))
	v.SetDefault("quality.parallelism", q.Parallelism)

	v.SetDefault("quality.dimension_weights.completeness", q.DimensionWeights.Completeness)
	v.SetDefault("quality.dimension_weights.accuracy", q.DimensionWeights.Accuracy)
	v.SetDefault("quality.dimension_weights.consistency", q.DimensionWeights.Consistency)
	v.SetDefault("quality.dimension_weights.timeliness", q.DimensionWeights.Timeliness)

	for dim, t := range q.AlertThresholds {
		v.SetDefault(fmt.Sprintf("quality.alert_thresholds.%s.warning", dim), t.Warning)
		v.SetDefault(fmt.Sprintf("quality.alert_thresholds.%s.critical", dim), t.Critical)
	}
}
