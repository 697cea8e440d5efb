// Package cmd wires the organize CLI's Cobra commands to internal/engine.
// Grounded on the teacher's internal/cmd/root.go: a package-level rootCmd,
// persistent --config flag, and an Execute entrypoint main.go calls.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "organize",
	Short: "Organize files by declarative rules",
	Long:  `organize discovers files, filters and partitions them, and applies actions like move/copy/delete according to a rule file.`,
	// --config reaches config.Load through the ORGANIZE_CONFIG override.
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		if cfgFile != "" {
			return os.Setenv("ORGANIZE_CONFIG", cfgFile)
		}
		return nil
	},
}

var cfgFile string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/organize/config.yaml)")
}
