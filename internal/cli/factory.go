package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/notebook"
	"github.com/aretw0/notebook/internal/config"
	"github.com/aretw0/notebook/pkg/adapters/file"
	"github.com/aretw0/notebook/pkg/adapters/plugin"
	"github.com/aretw0/notebook/pkg/adapters/redis"
	"github.com/aretw0/notebook/pkg/adapters/signal"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/observability"
	"github.com/aretw0/notebook/pkg/ports"
)

// createLoader builds the plugin loader over the configured roots.
func createLoader(cfg *config.Config, logger *slog.Logger) *plugin.Loader {
	opts := []plugin.Option{
		plugin.WithLogger(logger),
		plugin.WithGoBinary(cfg.Build.GoBin),
	}
	if cfg.Build.Dir != "" {
		opts = append(opts, plugin.WithBuildDir(cfg.Build.Dir))
	}
	return plugin.NewLoader(cfg.Roots, opts...)
}

// createKernel initializes a kernel with standard CLI conventions.
func createKernel(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, sig ports.CancellationSignal, hooks domain.LifecycleHooks) (*notebook.Kernel, error) {
	opts := []notebook.Option{
		notebook.WithLogger(logger),
		notebook.WithSupervisorTiming(cfg.Supervisor.Delay, cfg.Supervisor.Period),
		notebook.WithGracePeriod(cfg.Shutdown.Grace),
		notebook.WithMaxWorkers(cfg.Workers.Max),
		notebook.WithMetrics(reg),
		notebook.WithLifecycleHooks(hooks),
	}
	if sig != nil {
		opts = append(opts, notebook.WithSignal(sig))
	}

	k, err := notebook.New(createLoader(cfg, logger), opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing kernel: %w", err)
	}
	return k, nil
}

// createSignal combines the configured cancellation markers. It returns a
// nil signal when none is configured.
func createSignal(cfg *config.Config) (ports.CancellationSignal, func()) {
	var (
		sigs    []ports.CancellationSignal
		closers []func() error
	)
	if cfg.Cancel.File != "" {
		sigs = append(sigs, file.NewSignal(cfg.Cancel.File))
	}
	if cfg.Cancel.Redis.Addr != "" {
		rs := redis.New(cfg.Cancel.Redis.Addr, cfg.Cancel.Redis.Password, cfg.Cancel.Redis.DB, redis.WithKey(cfg.Cancel.Redis.Key))
		sigs = append(sigs, rs)
		closers = append(closers, rs.Close)
	}
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	switch len(sigs) {
	case 0:
		return nil, closeAll
	case 1:
		return sigs[0], closeAll
	}
	return signal.Any(sigs...), closeAll
}

// createHooks assembles the lifecycle observers: debug logging and the
// JSON event stream, each only when enabled. The returned function closes
// the stream file.
func createHooks(opts RunOptions, logger *slog.Logger) (domain.LifecycleHooks, func(), error) {
	var all []domain.LifecycleHooks
	if opts.Debug {
		all = append(all, createDebugHooks(logger))
	}
	closeStream := func() {}
	if opts.EventsPath != "" {
		f, err := os.OpenFile(opts.EventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return domain.LifecycleHooks{}, nil, fmt.Errorf("open event stream: %w", err)
		}
		all = append(all, observability.NewEventStream(f, logger).Hooks())
		closeStream = func() { _ = f.Close() }
	}
	return observability.Combine(all...), closeStream, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInvoke: func(ctx context.Context, e *domain.InvocationEvent) {
			logger.Debug("Invoke", "unit", e.Unit, "operation", e.Operation, "worker_id", e.WorkerID, "detached", e.Detached)
		},
		OnComplete: func(ctx context.Context, e *domain.InvocationEvent) {
			if e.Err != nil {
				logger.Debug("Complete (Error)", "unit", e.Unit, "operation", e.Operation, "worker_id", e.WorkerID, "err", e.Err)
			} else {
				logger.Debug("Complete (Success)", "unit", e.Unit, "operation", e.Operation, "worker_id", e.WorkerID)
			}
		},
		OnMigrate: func(ctx context.Context, e *domain.MigrationEvent) {
			logger.Debug("Migrate", "unit", e.Unit, "copied", e.Report.Copied, "migrated", e.Report.Migrated, "skipped", len(e.Report.Skipped))
		},
		OnRelease: func(ctx context.Context, e *domain.ReleaseEvent) {
			logger.Debug("Release", "path", e.Path, "err", e.Err)
		},
	}
}
