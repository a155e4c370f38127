package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/notebook/internal/runtime"
	"github.com/aretw0/notebook/pkg/ports"
)

// ListUnits prints every unit the configured roots resolve. With withOps it
// also constructs a fresh instance of each to list its operations; units
// whose constructor fails are listed with the error.
func ListUnits(ctx context.Context, opts RunOptions, w io.Writer, withOps bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}
	return listUnits(ctx, createLoader(cfg, logger), w, withOps)
}

func listUnits(ctx context.Context, loader ports.UnitLoader, w io.Writer, withOps bool) error {
	lc, err := loader.Open(ctx)
	if err != nil {
		return fmt.Errorf("open loading context: %w", err)
	}
	for _, name := range lc.Units() {
		if !withOps {
			fmt.Fprintln(w, name)
			continue
		}
		inst, err := lc.New(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t(%v)\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(runtime.Operations(inst), ", "))
	}
	return nil
}
