package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/inferloop/qualitygate/cmd/cli/commands"
	"github.com/inferloop/qualitygate/pkg/constants"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = constants.AppVersion

const (
	exitOK         = 0
	exitError      = 1
	exitGateFailed = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := commands.NewRootCmd(Version)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return exitCode(rootCmd.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var gateErr *commands.GateError
	if errors.As(err, &gateErr) {
		return exitGateFailed
	}
	return exitError
}
