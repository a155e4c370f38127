package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/notebook/pkg/domain"
)

// Usage is printed after every command.
const Usage = "Type <operation><TAB><unit> to run, &<operation> to start a worker, <TAB><expression> to evaluate, $HELP for more, $EXIT to exit"

// Kernel is the part of the notebook kernel the command loop drives.
type Kernel interface {
	Invoke(ctx context.Context, unit, op string) (domain.Invocation, error)
	Start(ctx context.Context, unit, op string) (domain.Worker, error)
	Evaluate(ctx context.Context, expression string) (any, error)
	Instance(unit string) (any, bool)
	Units() []string
	Operations(unit string) []string
	Workers() []domain.Worker
	CancelAll() int
	Cancel(id string) bool
	State() map[string]any
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Styler decorates result lines. The zero value leaves them untouched.
type Styler struct {
	Success func(string) string
	Failure func(string) string
}

func (s Styler) success(text string) string {
	if s.Success == nil {
		return text
	}
	return s.Success(text)
}

func (s Styler) failure(text string) string {
	if s.Failure == nil {
		return text
	}
	return s.Failure(text)
}

var errNoUnit = errors.New("no unit given and no unit used before")

// Runner reads commands from an IOHandler and executes them on a Kernel
// until $EXIT or end of input. Command errors are reported and the loop
// goes on.
type Runner struct {
	Handler  IOHandler
	Logger   *slog.Logger
	Headless bool
	Renderer ContentRenderer
	Style    Styler

	lastUnit string
	last     *Command
}

// NewRunner creates a Runner reading stdin and writing stdout unless
// configured otherwise.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// watcher is implemented by kernels whose loader reports source changes.
type watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Run executes the command loop. It returns nil on $EXIT, end of input or
// cancellation of ctx; only other input failures are returned.
func (r *Runner) Run(ctx context.Context, k Kernel) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if w, ok := k.(watcher); ok {
		r.watch(watchCtx, w)
	}

	r.notice(ctx, "Start listening. Type $EXIT to exit")

	for {
		line, err := r.Handler.Input(signals.Context())
		if err != nil {
			signals.CheckRace()
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, ErrInputAborted):
			case ctx.Err() != nil, signals.Interrupted():
				r.Logger.Debug("input interrupted", "err", err)
			default:
				return fmt.Errorf("input error: %w", err)
			}
			break
		}

		cmd, err := Parse(line)
		if err != nil {
			r.fail(ctx, err)
			r.notice(ctx, Usage)
			continue
		}
		if cmd.Kind == KindRepeat {
			if r.last == nil {
				r.notice(ctx, Usage)
				continue
			}
			cmd = *r.last
		}
		if cmd.Kind == KindMeta && cmd.Meta == MetaExit {
			break
		}

		r.last = &cmd
		execCtx := signals.Context()
		if err := r.execute(execCtx, k, cmd); err != nil {
			r.fail(ctx, err)
		}
		if signals.Interrupted() {
			signals.Reset()
		}
		r.notice(ctx, Usage)
	}

	r.notice(ctx, "Exiting")
	return nil
}

func (r *Runner) execute(ctx context.Context, k Kernel, cmd Command) error {
	switch cmd.Kind {
	case KindInvoke:
		unit, err := r.unit(cmd)
		if err != nil {
			return err
		}
		inv, err := k.Invoke(ctx, unit, cmd.Operation)
		r.reportMigration(ctx, inv)
		if err != nil {
			return err
		}
		r.succeed(ctx, fmt.Sprintf("%s.%s finished in %s", unit, cmd.Operation, inv.Duration.Round(time.Millisecond)))
		return nil

	case KindStart:
		unit, err := r.unit(cmd)
		if err != nil {
			return err
		}
		w, err := k.Start(ctx, unit, cmd.Operation)
		if err != nil {
			return err
		}
		r.succeed(ctx, fmt.Sprintf("started worker %s for %s.%s", w.ID, unit, cmd.Operation))
		return nil

	case KindEvaluate:
		v, err := k.Evaluate(ctx, cmd.Expression)
		if err != nil {
			return err
		}
		return r.Handler.Output(ctx, fmt.Sprintf("%v", v))

	case KindMeta:
		return r.meta(ctx, k, cmd)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// unit resolves the target unit, falling back to the last one used.
func (r *Runner) unit(cmd Command) (string, error) {
	if cmd.Unit != "" {
		r.lastUnit = cmd.Unit
		return cmd.Unit, nil
	}
	if r.lastUnit == "" {
		return "", errNoUnit
	}
	return r.lastUnit, nil
}

func (r *Runner) reportMigration(ctx context.Context, inv domain.Invocation) {
	if !inv.Reloaded {
		return
	}
	m := inv.Migration
	if m.Copied == 0 && m.Migrated == 0 && len(m.Skipped) == 0 {
		return
	}
	r.notice(ctx, fmt.Sprintf("reloaded %s: %d copied, %d migrated, %d skipped", inv.Unit, m.Copied, m.Migrated, len(m.Skipped)))
	for _, s := range m.Skipped {
		r.notice(ctx, "  "+s.Error())
	}
}

func (r *Runner) watch(ctx context.Context, w watcher) {
	ch, err := w.Watch(ctx)
	if err != nil {
		r.Logger.Debug("source watch unavailable", "err", err)
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				r.Logger.Info("unit sources changed; the next invocation reloads them")
			}
		}
	}()
}

func (r *Runner) succeed(ctx context.Context, text string) {
	r.output(ctx, r.Style.success(text))
}

func (r *Runner) fail(ctx context.Context, err error) {
	msg := err.Error()
	if errors.Is(err, domain.ErrCancelled) {
		msg = "interrupted: " + msg
	}
	r.output(ctx, r.Style.failure("Error: "+strings.TrimSpace(msg)))
}

func (r *Runner) output(ctx context.Context, text string) {
	if err := r.Handler.Output(ctx, text); err != nil {
		r.Logger.Warn("output failed", "err", err)
	}
}

func (r *Runner) notice(ctx context.Context, msg string) {
	if r.Headless && msg == Usage {
		return
	}
	if err := r.Handler.SystemOutput(ctx, msg); err != nil {
		r.Logger.Warn("output failed", "err", err)
	}
}
