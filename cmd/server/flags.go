package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/inferloop/qualitygate/pkg/constants"
)

// Flags are the command-line options of the server
type Flags struct {
	Port        int
	Host        string
	ConfigFile  string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	TLSCert     string
	TLSKey      string
	Version     bool

	// set records which flags were given explicitly, so they override the
	// config file and unset ones do not.
	set map[string]bool
}

// ParseFlags parses args (without the program name)
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	flags := &Flags{set: make(map[string]bool)}

	fs := flag.NewFlagSet(constants.AppName+"-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&flags.Port, "port", constants.DefaultPort, "Server port")
	fs.StringVar(&flags.Host, "host", constants.DefaultHost, "Server host")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to configuration file")
	fs.StringVar(&flags.LogLevel, "log-level", constants.DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&flags.LogFormat, "log-format", constants.DefaultLogFormat, "Log format (json, text)")
	fs.IntVar(&flags.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on a dedicated port as well as /metrics (0 disables)")
	fs.StringVar(&flags.TLSCert, "tls-cert", "", "Path to TLS certificate")
	fs.StringVar(&flags.TLSKey, "tls-key", "", "Path to TLS key")
	fs.BoolVar(&flags.Version, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [options]\n", fs.Name())
		fmt.Fprintf(output, "\n%s HTTP server\n\n", constants.AppDescription)
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		flags.set[f.Name] = true
	})

	return flags, nil
}

// IsSet reports whether the named flag was given on the command line
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// PrintVersion writes the build information
func PrintVersion(w io.Writer) {
	info := GetBuildInfo()
	fmt.Fprintf(w, "Version: %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
	fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", info.Platform)
}
