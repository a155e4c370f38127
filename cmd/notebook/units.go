package main

import (
	"os"

	"github.com/aretw0/notebook/internal/cli"
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List the units the search roots resolve",
	RunE: func(cmd *cobra.Command, args []string) error {
		withOps, _ := cmd.Flags().GetBool("operations")
		return cli.ListUnits(cmd.Context(), runOptions(cmd), os.Stdout, withOps)
	},
}

func init() {
	rootCmd.AddCommand(unitsCmd)
	unitsCmd.Flags().BoolP("operations", "o", false, "Construct each unit and list its operations")
}
