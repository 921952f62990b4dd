package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/cmd/cli/config"
	"github.com/inferloop/qualitygate/internal/export"
)

func NewConfigCmd(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialise the qgate configuration",
	}

	cmd.AddCommand(newConfigShowCmd(global))
	cmd.AddCommand(newConfigInitCmd(global))
	cmd.AddCommand(newConfigPathCmd(global))

	return cmd
}

func newConfigShowCmd(global *GlobalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults, file and environment merged)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(global.ConfigFile)
			if err != nil {
				return err
			}

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f == export.FormatJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(cfg)
			}

			encoder := yaml.NewEncoder(out)
			encoder.SetIndent(2)
			if err := encoder.Encode(cfg); err != nil {
				return err
			}
			return encoder.Close()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml, json)")

	return cmd
}

func newConfigInitCmd(global *GlobalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.ConfigFile
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			written, err := config.SaveConfig(config.DefaultConfig(), path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigPathCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Run: func(cmd *cobra.Command, args []string) {
			path := global.ConfigFile
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}
