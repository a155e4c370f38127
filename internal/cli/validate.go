package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/notebook/internal/validator"
	"github.com/aretw0/notebook/pkg/ports"
)

// Validate builds the configured roots, constructs every unit once and
// reports units that fail to construct or expose nothing to run.
func Validate(ctx context.Context, opts RunOptions, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}
	return validate(ctx, createLoader(cfg, logger), w)
}

func validate(ctx context.Context, loader ports.UnitLoader, w io.Writer) error {
	report, err := validator.ValidateUnits(ctx, loader)
	if err != nil {
		return err
	}
	for _, u := range report.Units {
		switch {
		case u.Err != nil:
			fmt.Fprintf(w, "FAIL %s: %v\n", u.Name, u.Err)
		case len(u.Operations) == 0:
			fmt.Fprintf(w, "FAIL %s: no runnable operations\n", u.Name)
		default:
			fmt.Fprintf(w, "ok   %s: %s\n", u.Name, strings.Join(u.Operations, ", "))
		}
		if len(u.Ignored) > 0 {
			fmt.Fprintf(w, "     ignored methods: %s\n", strings.Join(u.Ignored, ", "))
		}
	}
	if err := report.Err(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d unit(s) valid\n", len(report.Units))
	return nil
}
