package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// maxLineSize bounds a single command line read by TextHandler.
const maxLineSize = 1 << 20

// TextHandler implements IOHandler over plain streams. It is used when
// standard input is not a terminal, and in tests.
type TextHandler struct {
	Writer io.Writer
	// Prompt is printed before each read; empty disables it.
	Prompt string

	scanner *bufio.Scanner
	lines   chan scanned
	once    sync.Once
}

type scanned struct {
	line string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithPrompt sets the prompt printed before each read.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler reads commands from r and writes results to w, defaulting
// to the process streams.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	h := &TextHandler{Writer: w, scanner: sc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// scan feeds lines to Input from its own goroutine, so a blocked read never
// keeps Input from noticing cancellation. The channel closes at end of input.
func (h *TextHandler) scan() {
	defer close(h.lines)
	for h.scanner.Scan() {
		h.lines <- scanned{line: h.scanner.Text()}
	}
	if err := h.scanner.Err(); err != nil {
		h.lines <- scanned{err: err}
	}
}

// Input returns the next line without its terminator. Leading tabs are
// significant to the command syntax and are kept.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.once.Do(func() {
		h.lines = make(chan scanned)
		go h.scan()
	})

	for {
		if h.Prompt != "" {
			fmt.Fprint(h.Writer, h.Prompt)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case s, ok := <-h.lines:
			switch {
			case !ok:
				return "", io.EOF
			case s.err != nil:
				return "", s.err
			}
			clean, err := SanitizeInput(strings.TrimSuffix(s.line, "\r"))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// Output writes text followed by exactly one newline.
func (h *TextHandler) Output(_ context.Context, text string) error {
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(text, "\n"))
	return err
}

// SystemOutput writes a kernel notice with the ">>> " marker.
func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, ">>> %s\n", msg)
	return err
}
