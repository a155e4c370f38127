package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/internal/presentation/tui"
)

func TestStylerFor_ASCIILeavesTextPlain(t *testing.T) {
	s := tui.StylerFor(termenv.Ascii)
	assert.Equal(t, "ok", s.Success("ok"))
	assert.Equal(t, "Error: boom", s.Failure("Error: boom"))
}

func TestStylerFor_ANSIColours(t *testing.T) {
	s := tui.StylerFor(termenv.ANSI256)
	out := s.Success("ok")
	assert.True(t, strings.HasPrefix(out, "\x1b["), out)
	assert.Contains(t, out, "ok")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "hot-reload kernel 1.2.3")
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("# Title")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}
