package ports

import "context"

// Evaluator compiles and runs one throwaway expression against the live state.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, env map[string]any) (any, error)
}
