// Package expr evaluates one-line expressions against the kernel's state
// using expr-lang. Compiled programs are kept in a bounded LRU cache keyed
// by source text.
package expr

import (
	"context"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled programs kept by default.
const DefaultCacheSize = 128

// Evaluator implements ports.Evaluator.
type Evaluator struct {
	size     int
	programs *lru.Cache[string, *vm.Program]
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithCacheSize bounds the compiled-program cache; values below 1 are ignored.
func WithCacheSize(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.size = n
		}
	}
}

// New creates an evaluator with an empty program cache.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{size: DefaultCacheSize}
	for _, opt := range opts {
		opt(e)
	}
	// lru.New fails only for a non-positive size.
	e.programs, _ = lru.New[string, *vm.Program](e.size)
	return e
}

// Cached returns the number of compiled programs currently held.
func (e *Evaluator) Cached() int {
	return e.programs.Len()
}

// Evaluate compiles expression (once while cached) and runs it against env.
// Identifiers that env does not define evaluate to nil instead of failing.
func (e *Evaluator) Evaluate(ctx context.Context, expression string, env map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return out, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	if p, ok := e.programs.Get(expression); ok {
		return p, nil
	}
	p, err := exprlang.Compile(expression, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	e.programs.Add(expression, p)
	return p, nil
}
