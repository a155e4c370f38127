package tui

import (
	"github.com/muesli/termenv"

	"github.com/aretw0/notebook/pkg/runner"
)

// NewStyler colours success lines green and failures red, following the
// colour support of the environment.
func NewStyler() runner.Styler {
	return StylerFor(termenv.EnvColorProfile())
}

// StylerFor builds a Styler for a fixed colour profile.
func StylerFor(p termenv.Profile) runner.Styler {
	return runner.Styler{
		Success: func(s string) string {
			return p.String(s).Foreground(p.Color("#22c55e")).String()
		},
		Failure: func(s string) string {
			return p.String(s).Foreground(p.Color("#ef4444")).Bold().String()
		},
	}
}
