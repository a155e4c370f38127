package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/internal/config"
	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/pkg/adapters/memory"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/unit"
)

type fakeKernel struct{}

func (fakeKernel) Units() []string { return []string{"demo.Counter", "demo.Poller"} }

func (fakeKernel) Operations(unit string) []string {
	if unit == "demo.Counter" {
		return []string{"Increment", "Reset"}
	}
	return []string{"Loop", "Reset"}
}

func TestCompleter(t *testing.T) {
	complete := completer(fakeKernel{})

	assert.Equal(t, []string{"$EXIT"}, complete("$ex"))
	assert.Equal(t, []string{"Reset"}, complete("Re"))
	assert.Equal(t, []string{"&Loop"}, complete("&Lo"))
	assert.Equal(t, []string{"Increment", "Reset", "Loop"}, complete(""))
	assert.Equal(t, []string{"Reset demo.Counter", "Reset demo.Poller"}, complete("Reset "))
	assert.Equal(t, []string{"Reset demo.Poller"}, complete("Reset demo.P"))
	assert.Empty(t, complete("Reset demo.Poller x"))
}

func TestCreateSignal(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		sig, closeAll := createSignal(&config.Config{})
		defer closeAll()
		assert.Nil(t, sig)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "cancel.signal")
		sig, closeAll := createSignal(&config.Config{Cancel: config.CancelConfig{File: path}})
		defer closeAll()
		require.NotNil(t, sig)

		require.NoError(t, os.WriteFile(path, nil, 0o644))
		fired, err := sig.Consume(ctx)
		require.NoError(t, err)
		assert.True(t, fired)
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("file and redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{Cancel: config.CancelConfig{
			File:  filepath.Join(dir, "other.signal"),
			Redis: config.RedisConfig{Addr: mr.Addr(), Key: "nb:cancel"},
		}}
		sig, closeAll := createSignal(cfg)
		defer closeAll()
		require.NotNil(t, sig)

		fired, err := sig.Consume(ctx)
		require.NoError(t, err)
		assert.False(t, fired)

		require.NoError(t, mr.Set("nb:cancel", "1"))
		fired, err = sig.Consume(ctx)
		require.NoError(t, err)
		assert.True(t, fired)
		assert.False(t, mr.Exists("nb:cancel"))
	})
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	cfg, err := loadConfig(RunOptions{Roots: []string{"a", "b"}, HTTPAddr: ":0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Roots)
	assert.Equal(t, ":0", cfg.HTTP.Addr)
}

func TestCreateLogger(t *testing.T) {
	logger, err := createLogger(&config.Config{Log: config.LogConfig{Level: "warn"}}, false)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))

	logger, err = createLogger(&config.Config{Log: config.LogConfig{Level: "warn"}}, true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = createLogger(&config.Config{Log: config.LogConfig{Level: "loud"}}, false)
	assert.Error(t, err)
}

func TestCreateDebugHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := createDebugHooks(logging.NewWithWriter(&buf, slog.LevelDebug))
	ctx := context.Background()

	hooks.OnInvoke(ctx, &domain.InvocationEvent{Unit: "demo.Counter", Operation: "Increment"})
	hooks.OnMigrate(ctx, &domain.MigrationEvent{Unit: "demo.Counter", Report: domain.MigrationReport{Copied: 2}})
	hooks.OnRelease(ctx, &domain.ReleaseEvent{Path: []string{"Counter", "Conn"}})

	out := buf.String()
	assert.Contains(t, out, "unit=demo.Counter")
	assert.Contains(t, out, "copied=2")
	assert.Contains(t, out, "Release")
}

func TestStartHTTP_Disabled(t *testing.T) {
	stop, err := startHTTP(context.Background(), "", nil, nil, logging.NewNop())
	require.NoError(t, err)
	stop()
}

type widget struct{ N int }

func (w *widget) Bump() { w.N++ }

type broken struct{}

func TestListUnits(t *testing.T) {
	loader := memory.NewLoader(
		unit.Define("demo.Widget", func() *widget { return &widget{} }),
		unit.Define("demo.Broken", func() *broken { panic("no") }),
	)

	var buf bytes.Buffer
	require.NoError(t, listUnits(context.Background(), loader, &buf, true))
	assert.Contains(t, buf.String(), "demo.Widget\tBump\n")
	assert.Contains(t, buf.String(), "demo.Broken\t(")

	buf.Reset()
	require.NoError(t, listUnits(context.Background(), loader, &buf, false))
	assert.Equal(t, "demo.Broken\ndemo.Widget\n", buf.String())
}

func TestCreateHooks(t *testing.T) {
	hooks, closeHooks, err := createHooks(RunOptions{}, logging.NewNop())
	require.NoError(t, err)
	closeHooks()
	assert.Nil(t, hooks.OnInvoke)

	path := filepath.Join(t.TempDir(), "events.jsonl")
	hooks, closeHooks, err = createHooks(RunOptions{EventsPath: path, Debug: true}, logging.NewNop())
	require.NoError(t, err)
	hooks.OnInvoke(context.Background(), &domain.InvocationEvent{Unit: "demo.Counter"})
	closeHooks()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unit":"demo.Counter"`)
}

func TestValidate(t *testing.T) {
	var buf bytes.Buffer
	ok := memory.NewLoader(unit.Define("demo.Widget", func() *widget { return &widget{} }))
	require.NoError(t, validate(context.Background(), ok, &buf))
	assert.Contains(t, buf.String(), "ok   demo.Widget: Bump")
	assert.Contains(t, buf.String(), "1 unit(s) valid")

	buf.Reset()
	bad := memory.NewLoader(unit.Define("demo.Broken", func() *broken { panic("no") }))
	err := validate(context.Background(), bad, &buf)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "FAIL demo.Broken")
}
