package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/notebook/internal/config"
	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/internal/presentation/tui"
	"github.com/aretw0/notebook/pkg/runner"
)

// HistoryFile is where the interactive prompt keeps its history, relative to
// the user's home directory.
const HistoryFile = ".notebook_history"

// createLogger configures the application logger.
// Debug forces debug level; logs always go to Stderr (to separate from Stdout results).
func createLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// completionSource is the part of the kernel tab completion reads.
type completionSource interface {
	Units() []string
	Operations(unit string) []string
}

// createHandler picks the IOHandler for the session: JSON Lines when asked,
// a line editor on terminals and plain streams otherwise.
func createHandler(opts RunOptions, interactive bool, k completionSource) (runner.IOHandler, func()) {
	switch {
	case opts.JSON:
		return runner.NewJSONHandler(os.Stdin, os.Stdout), func() {}
	case interactive:
		lineOpts := []runner.LineHandlerOption{runner.WithCompleter(completer(k))}
		if home, err := os.UserHomeDir(); err == nil {
			lineOpts = append(lineOpts, runner.WithHistoryFile(filepath.Join(home, HistoryFile)))
		}
		h := runner.NewLineHandler(lineOpts...)
		return h, func() { _ = h.Close() }
	}
	return runner.NewTextHandler(os.Stdin, os.Stdout), func() {}
}

// completer completes meta commands, operations of the last named unit and
// unit names.
func completer(k completionSource) func(line string) []string {
	metas := []string{
		runner.MetaExit, runner.MetaUnits, runner.MetaWorkers, runner.MetaState,
		runner.MetaCancel, runner.MetaStatus, runner.MetaHelp, runner.MetaGraph,
	}
	return func(line string) []string {
		var out []string
		if strings.HasPrefix(line, "$") {
			for _, m := range metas {
				if strings.HasPrefix(m, strings.ToUpper(line)) {
					out = append(out, m)
				}
			}
			return out
		}

		fields := strings.Fields(line)
		trailing := strings.HasSuffix(line, " ")
		switch {
		case len(fields) == 0 || (len(fields) == 1 && !trailing):
			prefix := ""
			if len(fields) == 1 {
				prefix = fields[0]
			}
			bare := strings.TrimPrefix(prefix, "&")
			lead := prefix[:len(prefix)-len(bare)]
			seen := make(map[string]bool)
			for _, u := range k.Units() {
				for _, op := range k.Operations(u) {
					if strings.HasPrefix(op, bare) && !seen[op] {
						seen[op] = true
						out = append(out, lead+op)
					}
				}
			}
		case len(fields) == 1 || (len(fields) == 2 && !trailing):
			head := line[:strings.Index(line, fields[0])+len(fields[0])] + " "
			prefix := ""
			if len(fields) == 2 {
				prefix = fields[1]
			}
			for _, u := range k.Units() {
				if strings.HasPrefix(u, prefix) {
					out = append(out, head+u)
				}
			}
		}
		return out
	}
}

// createRunnerOptions prepares the functional options for the Runner.
func createRunnerOptions(logger *slog.Logger, handler runner.IOHandler, opts RunOptions, interactive bool) []runner.Option {
	ropts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithHeadless(opts.Headless || opts.JSON),
	}
	if interactive {
		ropts = append(ropts,
			runner.WithRenderer(tui.NewRenderer()),
			runner.WithStyler(tui.NewStyler()),
		)
	}
	return ropts
}
