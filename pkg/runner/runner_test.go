package runner_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/notebook"
	"github.com/aretw0/notebook/pkg/adapters/memory"
	"github.com/aretw0/notebook/pkg/runner"
	"github.com/aretw0/notebook/pkg/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store struct{}

func (s *store) Close() error { return nil }

type cell struct {
	unit.Base
	Count int
	Store *store
	state map[string]any
}

func (c *cell) SetState(state map[string]any) { c.state = state }

func (c *cell) Increment() {
	c.Count++
	c.state["count"] = c.Count
}

func (c *cell) Open() { c.Store = &store{} }

func (c *cell) Wait(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

type cellV2 struct {
	unit.Base
	Count int
	Label string
}

func (c *cellV2) Label1() { c.Label = "v2" }

// syncBuffer lets workers and the loop share one output stream.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newKernel(t *testing.T) (*notebook.Kernel, *memory.Loader) {
	t.Helper()
	loader := memory.NewLoader(unit.Define("demo.Cell", func() *cell { return &cell{} }))
	k, err := notebook.New(loader, notebook.WithGracePeriod(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })
	return k, loader
}

func run(t *testing.T, k runner.Kernel, lines ...string) string {
	t.Helper()
	out := &syncBuffer{}
	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(strings.NewReader(strings.Join(lines, "\n")+"\n"), out)),
		runner.WithHeadless(true),
	)
	require.NoError(t, r.Run(context.Background(), k))
	return out.String()
}

func TestRunner_Session(t *testing.T) {
	k, _ := newKernel(t)

	out := run(t, k,
		"Increment\tdemo.Cell",
		"Increment",
		"",
		"\tstate.count",
		"= Cell.Count * 10",
		"Open",
		"$STATE demo.Cell",
		"$STATE",
		"$UNITS",
		"$GRAPH",
		"$BOGUS",
		"Fail",
		"$EXIT",
		"Increment",
	)

	assert.Contains(t, out, ">>> Start listening. Type $EXIT to exit")
	assert.Contains(t, out, "demo.Cell.Increment finished in")
	assert.Contains(t, out, "\n3\n")
	assert.Contains(t, out, "\n30\n")
	assert.Contains(t, out, "Count: 3")
	assert.Contains(t, out, "*runner_test.store>")
	assert.Contains(t, out, "count: 3")
	assert.Contains(t, out, "demo.Cell: Increment, Open, Wait")
	assert.Contains(t, out, `demo_Cell_Store[["*runner_test.store"]]`)
	assert.Contains(t, out, "Error: unknown command: $BOGUS")
	assert.Contains(t, out, "Error: operation not found")
	assert.True(t, strings.HasSuffix(out, ">>> Exiting\n"), out)

	inst, ok := k.Instance("demo.Cell")
	require.True(t, ok)
	assert.Equal(t, 3, inst.(*cell).Count)
}

func TestRunner_ReloadReportsMigration(t *testing.T) {
	k, loader := newKernel(t)
	run(t, k, "Increment\tdemo.Cell")

	loader.Define(unit.Define("demo.Cell", func() *cellV2 { return &cellV2{} }))
	out := run(t, k, "Label1\tdemo.Cell")

	assert.Contains(t, out, "reloaded demo.Cell:")
	inst, ok := k.Instance("demo.Cell")
	require.True(t, ok)
	assert.Equal(t, &cellV2{Count: 1, Label: "v2"}, inst)
}

func TestRunner_MissingUnit(t *testing.T) {
	k, _ := newKernel(t)
	out := run(t, k, "Increment", "Increment\tdemo.Nope")

	assert.Contains(t, out, "Error: no unit given")
	assert.Contains(t, out, "Error: unit not found")
}

func TestRunner_DetachedWorkers(t *testing.T) {
	k, _ := newKernel(t)
	out := run(t, k, "&Wait\tdemo.Cell", "$WORKERS", "$CANCEL")

	assert.Contains(t, out, "started worker ")
	assert.Contains(t, out, "OPERATION")
	assert.Contains(t, out, "detached")
	assert.Contains(t, out, "interrupted 1 worker(s)")
	require.Eventually(t, func() bool { return len(k.Workers()) == 0 }, time.Second, 5*time.Millisecond)

	out = run(t, k, "$WORKERS", "$CANCEL nope", "$STATUS")
	assert.Contains(t, out, "no live workers")
	assert.Contains(t, out, "Error: no live worker nope")
	assert.Contains(t, out, "goroutines")
}

func TestRunner_Help(t *testing.T) {
	k, _ := newKernel(t)
	out := &bytes.Buffer{}
	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(strings.NewReader("$HELP\n"), out)),
		runner.WithRenderer(func(s string) (string, error) { return "RENDERED", nil }),
		runner.WithStyler(runner.Styler{Failure: func(s string) string { return "!" + s }}),
	)
	require.NoError(t, r.Run(context.Background(), k))

	assert.Contains(t, out.String(), "RENDERED")
	assert.Contains(t, out.String(), ">>> "+runner.Usage)
}

type brokenInput struct{}

func (brokenInput) Input(context.Context) (string, error) {
	return "", errors.New("stream broke")
}

func (brokenInput) Output(context.Context, string) error { return nil }

func (brokenInput) SystemOutput(context.Context, string) error { return nil }

func TestRunner_InputErrorEndsLoop(t *testing.T) {
	k, _ := newKernel(t)
	r := runner.NewRunner(runner.WithInputHandler(brokenInput{}))

	err := r.Run(context.Background(), k)
	assert.ErrorContains(t, err, "stream broke")
}
