package main

import (
	"os"

	"github.com/aretw0/notebook/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Construct every unit once and report the broken ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(cmd.Context(), runOptions(cmd), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
