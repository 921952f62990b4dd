package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/inferloop/qualitygate/internal/observability/metrics"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/internal/server"
	"github.com/inferloop/qualitygate/pkg/constants"
)

// FileConfig is the layout of the server configuration file. Every section is
// optional and falls back to its defaults.
type FileConfig struct {
	Server  server.Config            `mapstructure:"server" yaml:"server"`
	Quality quality.QualityConfig    `mapstructure:"quality" yaml:"quality"`
	Metrics metrics.PrometheusConfig `mapstructure:"metrics" yaml:"metrics"`
}

func defaultFileConfig() *FileConfig {
	return &FileConfig{
		Server:  *server.DefaultConfig(),
		Quality: *quality.DefaultQualityConfig(),
		Metrics: metrics.PrometheusConfig{
			Enabled:   false,
			Port:      constants.DefaultMetricsPort,
			Path:      "/metrics",
			Namespace: constants.AppName,
			Subsystem: "engine",
		},
	}
}

// LoadFileConfig reads path over the defaults. QGATE_SERVER_PORT style
// environment variables override keys present in the file.
func LoadFileConfig(path string) (*FileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into a populated slice overwrites element-wise; start lists
	// from scratch when the file names them.
	if v.IsSet("quality.outlier_methods") {
		cfg.Quality.OutlierMethods = nil
	}
	if v.IsSet("quality.duplicate_key_columns") {
		cfg.Quality.DuplicateKeyColumns = nil
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := cfg.Quality.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlags lets explicitly given flags win over the file
func (c *FileConfig) applyFlags(flags *Flags) {
	if flags.IsSet("port") {
		c.Server.Port = flags.Port
	}
	if flags.IsSet("host") {
		c.Server.Host = flags.Host
	}
	if flags.IsSet("tls-cert") {
		c.Server.TLSCertFile = flags.TLSCert
	}
	if flags.IsSet("tls-key") {
		c.Server.TLSKeyFile = flags.TLSKey
	}
	if flags.MetricsPort > 0 {
		c.Metrics.Enabled = true
		c.Metrics.Port = flags.MetricsPort
	}

	c.Server.Version = Version
	c.Server.Commit = GitCommit
	c.Server.BuildTime = BuildDate
}
