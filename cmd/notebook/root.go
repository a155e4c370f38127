package main

import (
	"fmt"
	"os"

	"github.com/aretw0/notebook/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Notebook is a hot-reload execution kernel for Go units",
	Long: `Notebook keeps unit instances alive across edits: every command reloads
the unit from its search roots, migrates the previous instance's state into
the new one and runs the requested operation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringArrayP("root", "r", nil, "Unit search root (repeatable, overrides the configuration)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level, including kernel lifecycle events")
}

// runOptions reads the persistent flags shared by every command.
func runOptions(cmd *cobra.Command) cli.RunOptions {
	configPath, _ := cmd.Flags().GetString("config")
	roots, _ := cmd.Flags().GetStringArray("root")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.RunOptions{ConfigPath: configPath, Roots: roots, Debug: debug}
}
