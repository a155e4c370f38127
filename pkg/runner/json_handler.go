package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type string `json:"type"` // "output" or "system"
	Text string `json:"text"`
}

// JSONHandler implements IOHandler over JSON Lines for programs driving
// the kernel. Each input line is a JSON string, an object with a
// "command" field, or raw text.
type JSONHandler struct {
	Reader *bufio.Reader
	Writer io.Writer

	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimRight(text, "\r\n")

	var line string
	var obj struct {
		Command string `json:"command"`
	}
	switch {
	case json.Unmarshal([]byte(text), &line) == nil:
	case json.Unmarshal([]byte(text), &obj) == nil:
		line = obj.Command
	default:
		line = text
	}
	return SanitizeInput(line)
}

func (h *JSONHandler) Output(ctx context.Context, text string) error {
	return h.emit(Message{Type: "output", Text: text})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(Message{Type: "system", Text: msg})
}

func (h *JSONHandler) emit(m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(m)
}
