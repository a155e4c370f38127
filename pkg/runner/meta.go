package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"reflect"
	goruntime "runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/notebook/internal/introspect"
	"github.com/aretw0/notebook/internal/presentation/graph"
	"github.com/aretw0/notebook/pkg/ports"
)

const helpText = `# Notebook commands

| Input | Effect |
|---|---|
| ` + "`op<TAB>unit`" + ` | reload *unit* and run *op*, waiting for it |
| ` + "`op`" + ` | run *op* on the unit used last |
| ` + "`&op<TAB>unit`" + ` | run *op* on a detached worker |
| ` + "`<TAB>expr`" + ` or ` + "`=expr`" + ` | evaluate *expr* against the kernel state |
| empty line | repeat the previous command |
| ` + "`$UNITS`" + ` | list loaded units and their operations |
| ` + "`$WORKERS`" + ` | list live workers |
| ` + "`$STATE [unit]`" + ` | dump the shared state, or the attributes of *unit* |
| ` + "`$CANCEL [worker]`" + ` | interrupt all workers, or one |
| ` + "`$STATUS`" + ` | process memory, threads and goroutines |
| ` + "`$GRAPH`" + ` | Mermaid graph of retained instances and resources |
| ` + "`$EXIT`" + ` | leave |

Ctrl+C interrupts the command in flight.
`

// availability is implemented by kernels that can list loadable units.
type availability interface {
	Available(ctx context.Context) ([]string, error)
}

// retained is implemented by kernels that expose their registry.
type retained interface {
	Instances() map[string]any
	Loader() ports.UnitLoader
}

func (r *Runner) meta(ctx context.Context, k Kernel, cmd Command) error {
	switch cmd.Meta {
	case MetaUnits:
		return r.units(ctx, k)
	case MetaWorkers:
		return r.workers(ctx, k)
	case MetaState:
		return r.state(ctx, k, cmd.Args)
	case MetaCancel:
		if len(cmd.Args) > 0 {
			for _, id := range cmd.Args {
				if !k.Cancel(id) {
					return fmt.Errorf("no live worker %s", id)
				}
			}
			r.succeed(ctx, fmt.Sprintf("interrupted %d worker(s)", len(cmd.Args)))
			return nil
		}
		r.succeed(ctx, fmt.Sprintf("interrupted %d worker(s)", k.CancelAll()))
		return nil
	case MetaStatus:
		return r.status(ctx, k)
	case MetaHelp:
		return r.help(ctx)
	case MetaGraph:
		return r.graph(ctx, k)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Meta)
}

func (r *Runner) units(ctx context.Context, k Kernel) error {
	var sb strings.Builder
	live := k.Units()
	for _, name := range live {
		fmt.Fprintf(&sb, "%s: %s\n", name, strings.Join(k.Operations(name), ", "))
	}
	if a, ok := k.(availability); ok {
		all, err := a.Available(ctx)
		if err != nil {
			return err
		}
		loaded := make(map[string]bool, len(live))
		for _, name := range live {
			loaded[name] = true
		}
		for _, name := range all {
			if !loaded[name] {
				fmt.Fprintf(&sb, "%s (not loaded)\n", name)
			}
		}
	}
	if sb.Len() == 0 {
		return r.Handler.Output(ctx, "no units")
	}
	return r.Handler.Output(ctx, sb.String())
}

func (r *Runner) workers(ctx context.Context, k Kernel) error {
	ws := k.Workers()
	if len(ws) == 0 {
		return r.Handler.Output(ctx, "no live workers")
	}
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUNIT\tOPERATION\tAGE\tSTATE")
	now := time.Now()
	for _, w := range ws {
		state := "running"
		switch {
		case w.Interrupted:
			state = "interrupting"
		case w.Detached:
			state = "detached"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, w.Unit, w.Operation, now.Sub(w.Started).Round(time.Second), state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return r.Handler.Output(ctx, buf.String())
}

func (r *Runner) state(ctx context.Context, k Kernel, args []string) error {
	var doc any
	if len(args) == 0 {
		doc = plain(k.State(), 0)
	} else {
		inst, ok := k.Instance(args[0])
		if !ok {
			return fmt.Errorf("unit %s has no live instance", args[0])
		}
		doc = plain(introspect.Values(inst), 0)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("dump state: %w", err)
	}
	return r.Handler.Output(ctx, string(out))
}

// maxDumpDepth bounds nested containers in $STATE dumps.
const maxDumpDepth = 3

// plain reduces v to values yaml can print without following references:
// scalars stay, containers of scalars are copied, anything else becomes its
// type name.
func plain(v any, depth int) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer || !rv.IsNil() {
			return t.String()
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v
	case reflect.Slice, reflect.Array:
		if depth >= maxDumpDepth {
			break
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Map:
		if depth >= maxDumpDepth || rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = plain(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return nil
		}
	}
	return fmt.Sprintf("<%T>", v)
}

func (r *Runner) status(ctx context.Context, k Kernel) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
			fmt.Fprintf(tw, "rss\t%.1f MiB\n", float64(mem.RSS)/(1<<20))
		}
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			fmt.Fprintf(tw, "threads\t%d\n", n)
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			fmt.Fprintf(tw, "cpu\t%.1f%%\n", cpu)
		}
	} else {
		r.Logger.Debug("process stats unavailable", "err", err)
	}
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)
	fmt.Fprintf(tw, "heap\t%.1f MiB\n", float64(ms.HeapAlloc)/(1<<20))
	fmt.Fprintf(tw, "goroutines\t%d\n", goruntime.NumGoroutine())
	fmt.Fprintf(tw, "workers\t%d\n", len(k.Workers()))
	fmt.Fprintf(tw, "units\t%d\n", len(k.Units()))
	if err := tw.Flush(); err != nil {
		return err
	}
	return r.Handler.Output(ctx, buf.String())
}

func (r *Runner) graph(ctx context.Context, k Kernel) error {
	rk, ok := k.(retained)
	if !ok {
		return fmt.Errorf("%s is not supported by this kernel", MetaGraph)
	}
	g := graph.Build(rk.Instances(), rk.Loader().UnitName)
	overlay := &graph.Overlay{}
	for _, w := range k.Workers() {
		overlay.Active = append(overlay.Active, w.Unit)
	}
	return r.Handler.Output(ctx, graph.GenerateMermaid(g, overlay))
}

func (r *Runner) help(ctx context.Context) error {
	text := helpText
	if r.Renderer != nil && !r.Headless {
		if rendered, err := r.Renderer(helpText); err == nil {
			text = rendered
		} else {
			r.Logger.Debug("help render failed", "err", err)
		}
	}
	return r.Handler.Output(ctx, text)
}
