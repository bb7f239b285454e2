package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/defectmark/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save the configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the configuration in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprint(cmd.OutOrStdout(), cfg.String())
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the configuration to --config or the user config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.NewLoader(version, configPath).Save(cfg)
		if err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Configuration saved to %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "defectmark version %s", version)
		if commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " (%s %s)", commit, date)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(configPrintCmd, configSaveCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}
