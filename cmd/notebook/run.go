package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aretw0/notebook/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive kernel",
	Long: `Reads commands from standard input until $EXIT or end of input.
Ctrl+C interrupts the command in flight; type $HELP for the command list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd)
		opts.HTTPAddr, _ = cmd.Flags().GetString("http")
		opts.EventsPath, _ = cmd.Flags().GetString("events")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Headless, _ = cmd.Flags().GetBool("headless")

		// SIGINT belongs to the command loop, which turns it into an interrupt
		// of the running operation.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()
		return cli.Execute(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("http", "", "Serve metrics, health and worker views on this address")
	runCmd.Flags().String("events", "", "Append kernel lifecycle events to this file as JSON Lines")
	runCmd.Flags().Bool("json", false, "Read commands and write results as JSON Lines")
	runCmd.Flags().Bool("headless", false, "Plain output without banner, colours or help lines")

	// 'run' is the default when no command is given.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
