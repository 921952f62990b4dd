package server

import (
	"fmt"
	"time"

	"github.com/inferloop/qualitygate/pkg/constants"
)

// Config contains server configuration
type Config struct {
	Host            string        `yaml:"host" json:"host" mapstructure:"host"`
	Port            int           `yaml:"port" json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// AssessTimeout bounds a single assessment request; the engine itself has no deadline.
	AssessTimeout  time.Duration `yaml:"assess_timeout" json:"assess_timeout" mapstructure:"assess_timeout"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" mapstructure:"enable_cors"`
	MaxRequestSize int64         `yaml:"max_request_size" json:"max_request_size" mapstructure:"max_request_size"`
	TLSCertFile    string        `yaml:"tls_cert_file,omitempty" json:"tls_cert_file,omitempty" mapstructure:"tls_cert_file"`
	TLSKeyFile     string        `yaml:"tls_key_file,omitempty" json:"tls_key_file,omitempty" mapstructure:"tls_key_file"`

	// Build information reported by /version
	Version   string `yaml:"-" json:"version"`
	Commit    string `yaml:"-" json:"commit"`
	BuildTime string `yaml:"-" json:"build_time"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            constants.DefaultHost,
		Port:            constants.DefaultPort,
		ReadTimeout:     constants.DefaultReadTimeout,
		WriteTimeout:    constants.DefaultWriteTimeout,
		IdleTimeout:     constants.DefaultIdleTimeout,
		ShutdownTimeout: constants.DefaultShutdownTimeout,
		AssessTimeout:   constants.DefaultAssessTimeout,
		EnableCORS:      true,
		MaxRequestSize:  constants.MaxUploadSize,
		Version:         constants.AppVersion,
		Commit:          "unknown",
		BuildTime:       "unknown",
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	if c.AssessTimeout <= 0 {
		return fmt.Errorf("assess timeout must be positive")
	}

	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("max request size must be positive")
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}

	return nil
}

// GetAddress returns the server address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
