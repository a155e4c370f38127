package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/aretw0/notebook"
	"github.com/aretw0/notebook/internal/config"
	"github.com/aretw0/notebook/internal/presentation/tui"
	"github.com/aretw0/notebook/pkg/runner"
)

// RunOptions contains all the configuration for the Run command. Non-zero
// fields override the configuration file.
type RunOptions struct {
	ConfigPath string
	Roots      []string
	HTTPAddr   string
	EventsPath string
	Debug      bool
	JSON       bool
	Headless   bool
}

// Execute runs the command loop until $EXIT or end of input, then closes the
// kernel and reports any release failures.
func Execute(ctx context.Context, opts RunOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}

	interactive := !opts.JSON && !opts.Headless && term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		tui.PrintBanner(os.Stdout, notebook.Version)
	}

	reg := prometheus.NewRegistry()
	sig, closeSignal := createSignal(cfg)
	defer closeSignal()

	hooks, closeHooks, err := createHooks(opts, logger)
	if err != nil {
		return err
	}
	defer closeHooks()

	k, err := createKernel(cfg, logger, reg, sig, hooks)
	if err != nil {
		return err
	}

	stopHTTP, err := startHTTP(ctx, cfg.HTTP.Addr, k, reg, logger)
	if err != nil {
		_ = k.Close()
		return err
	}

	handler, closeHandler := createHandler(opts, interactive, k)
	r := runner.NewRunner(createRunnerOptions(logger, handler, opts, interactive)...)

	runErr := r.Run(ctx, k)

	stopHTTP()
	closeErr := k.Close()
	if err := handler.SystemOutput(context.Background(), "Finished"); err != nil {
		logger.Debug("output failed", "err", err)
	}
	closeHandler()

	return errors.Join(runErr, closeErr)
}

func loadConfig(opts RunOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if len(opts.Roots) > 0 {
		cfg.Roots = opts.Roots
	}
	if opts.HTTPAddr != "" {
		cfg.HTTP.Addr = opts.HTTPAddr
	}
	if len(cfg.Roots) == 0 {
		return nil, fmt.Errorf("no unit search roots configured")
	}
	return cfg, nil
}
