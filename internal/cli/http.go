package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/aretw0/notebook/pkg/adapters/http"
)

// shutdownTimeout bounds the graceful stop of the introspection endpoint.
const shutdownTimeout = 5 * time.Second

// startHTTP serves the introspection endpoint on addr until the returned stop
// function is called. An empty addr disables it.
func startHTTP(ctx context.Context, addr string, k httpadapter.Kernel, gatherer prometheus.Gatherer, logger *slog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler: httpadapter.NewHandler(k,
			httpadapter.WithGatherer(gatherer),
			httpadapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("introspection endpoint listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("introspection endpoint failed", "err", err)
		}
	}()

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("introspection endpoint shutdown", "err", err)
		}
		<-done
	}, nil
}
