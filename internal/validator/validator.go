package validator

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/aretw0/notebook/internal/runtime"
	"github.com/aretw0/notebook/pkg/ports"
)

// hookMethods are called by the kernel itself and are not reported as ignored.
var hookMethods = map[string]bool{
	"SetState": true,
	"Close":    true,
}

// UnitReport describes one unit found by the loader.
type UnitReport struct {
	Name       string
	Operations []string
	// Ignored lists exported methods whose signature cannot be invoked.
	Ignored []string
	Err     error
}

// Report is the outcome of ValidateUnits, sorted by unit name.
type Report struct {
	Units []UnitReport
}

// Err joins every construction failure and every unit without operations
// into one error, or returns nil.
func (r Report) Err() error {
	var problems []string
	for _, u := range r.Units {
		switch {
		case u.Err != nil:
			problems = append(problems, u.Err.Error())
		case len(u.Operations) == 0:
			problems = append(problems, fmt.Sprintf("unit %s has no runnable operations", u.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

// ValidateUnits opens one loading context and constructs every unit it
// resolves. Constructed instances that own resources are closed again.
func ValidateUnits(ctx context.Context, loader ports.UnitLoader) (Report, error) {
	lc, err := loader.Open(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("open loading context: %w", err)
	}

	var report Report
	for _, name := range lc.Units() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ur := UnitReport{Name: name}
		inst, err := lc.New(name)
		if err != nil {
			ur.Err = fmt.Errorf("construct %s: %w", name, err)
			report.Units = append(report.Units, ur)
			continue
		}
		ur.Operations = runtime.Operations(inst)
		ur.Ignored = ignored(inst, ur.Operations)
		if c, ok := inst.(io.Closer); ok {
			_ = c.Close()
		}
		report.Units = append(report.Units, ur)
	}
	return report, nil
}

func ignored(inst any, ops []string) []string {
	runnable := make(map[string]bool, len(ops))
	for _, op := range ops {
		runnable[op] = true
	}
	t := reflect.TypeOf(inst)
	var out []string
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		if !runnable[name] && !hookMethods[name] {
			out = append(out, name)
		}
	}
	return out
}
