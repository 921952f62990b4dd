package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "qualitygate"
	AppDescription = "Data quality assessment gate for tabular datasets"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Default configuration values
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultHealthCheckTimeout = 5 * time.Second

	// Assessment defaults
	DefaultAssessTimeout = 5 * time.Minute
	DefaultOutputFormat  = "text"
	DefaultFailOn        = "critical"

	// Configuration discovery
	ConfigDirName  = ".qualitygate"
	ConfigFileName = "config"
	EnvPrefix      = "QGATE"

	// File size limits
	MaxUploadSize = 100 * 1024 * 1024 // 100MB
)

// HTTP headers
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
)

// Content types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeYAML      = "application/yaml"
	ContentTypeCSV       = "text/csv"
	ContentTypePlainText = "text/plain"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultNullTokens are the CSV cell spellings read as missing values
var DefaultNullTokens = []string{"", "NA", "null", "NaN"}
