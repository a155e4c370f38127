package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// LineHandler implements IOHandler for terminals with line editing,
// history and completion. The terminal cannot type a literal tab (it
// completes), so users separate fields with spaces and prefix
// expressions with '='.
type LineHandler struct {
	state       *liner.State
	Writer      io.Writer
	Prompt      string
	historyPath string
}

// LineHandlerOption configures a LineHandler.
type LineHandlerOption func(*LineHandler)

// WithHistoryFile loads history from path and saves it back on Close.
func WithHistoryFile(path string) LineHandlerOption {
	return func(h *LineHandler) {
		h.historyPath = path
	}
}

// WithLinePrompt sets the prompt.
func WithLinePrompt(prompt string) LineHandlerOption {
	return func(h *LineHandler) {
		h.Prompt = prompt
	}
}

// WithCompleter sets the tab-completion source.
func WithCompleter(complete func(line string) []string) LineHandlerOption {
	return func(h *LineHandler) {
		h.state.SetCompleter(complete)
	}
}

// NewLineHandler puts the terminal under liner's control until Close.
func NewLineHandler(opts ...LineHandlerOption) *LineHandler {
	h := &LineHandler{
		state:  liner.NewLiner(),
		Writer: os.Stdout,
		Prompt: "notebook> ",
	}
	h.state.SetCtrlCAborts(true)
	for _, opt := range opts {
		opt(h)
	}
	if h.historyPath != "" {
		if f, err := os.Open(h.historyPath); err == nil {
			_, _ = h.state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return h
}

func (h *LineHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := h.state.Prompt(h.Prompt)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		return "", ErrInputAborted
	case err != nil:
		return "", err
	}
	clean, err := SanitizeInput(line)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(clean) != "" {
		h.state.AppendHistory(clean)
	}
	return clean, nil
}

func (h *LineHandler) Output(ctx context.Context, text string) error {
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(text, "\n"))
	return err
}

func (h *LineHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, ">>> %s\n", msg)
	return err
}

// Close saves the history and restores the terminal.
func (h *LineHandler) Close() error {
	if h.historyPath != "" {
		if f, err := os.Create(h.historyPath); err == nil {
			_, _ = h.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return h.state.Close()
}
