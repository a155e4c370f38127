package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the notebook banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"              _       _                 _    ", "#34d399"},
		{"  _ __   ___ | |_ ___| |__   ___   ___ | | __", "#2dd4bf"},
		{" | '_ \\ / _ \\| __/ _ \\ '_ \\ / _ \\ / _ \\| |/ /", "#22d3ee"},
		{" | | | | (_) | ||  __/ |_) | (_) | (_) |   < ", "#38bdf8"},
		{" |_| |_|\\___/ \\__\\___|_.__/ \\___/ \\___/|_|\\_\\", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  hot-reload kernel "+version).Faint())
	fmt.Fprintln(w)
}
