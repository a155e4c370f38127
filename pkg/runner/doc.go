/*
Package runner implements the interactive command loop of the notebook.

It reads one command per line from an IOHandler and executes it on a
Kernel: invoking an operation on a freshly reloaded unit, starting a
detached worker, evaluating an expression, or one of the $-prefixed kernel
commands. Errors are reported and the loop continues; Ctrl+C interrupts the
command in flight.

# Key Components

  - Runner: the loop.
  - Parse: the line protocol.
  - TextHandler: plain streams (pipes, tests).
  - LineHandler: terminals, with history and completion.
  - JSONHandler: JSON Lines for programs.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx, kernel); err != nil {
		log.Fatal(err)
	}
*/
package runner
