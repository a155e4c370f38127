package runner

import (
	"context"
	"errors"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between a plain reader (pipes, tests) and an
// interactive line editor (terminals).
type IOHandler interface {
	// Input reads one command line. It returns io.EOF when the stream ends.
	Input(ctx context.Context) (string, error)

	// Output presents a command result.
	Output(ctx context.Context, text string) error

	// SystemOutput presents a meta-message (prompts, help, notices).
	// This is distinct from command results.
	SystemOutput(ctx context.Context, msg string) error
}

// ErrInputAborted is returned by handlers when the user aborts the prompt
// itself (Ctrl+C while editing a line).
var ErrInputAborted = errors.New("input aborted")
