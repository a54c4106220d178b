package main

import (
	"fmt"

	"github.com/lewtec/barber/barber"
	"github.com/spf13/cobra"
)

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample configuration file to the --config path.

Example:
  barber init
  barber init --config ./barber.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fileExists(configFile) && !initForce {
			return fmt.Errorf("configuration file already exists: %s (use --force to replace it)", configFile)
		}
		if err := barber.WriteConfig(configFile, barber.SampleConfig(), initForce); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration file created: %s\n", configFile)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Replace an existing configuration file")
	rootCmd.AddCommand(initCmd)
}
