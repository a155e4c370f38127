package expr_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/notebook/pkg/adapters/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
}

func (c *counter) Double() int { return c.Count * 2 }

func TestEvaluator_Evaluate(t *testing.T) {
	ev := expr.New()
	env := map[string]any{
		"state":   map[string]any{"calls": 3},
		"Counter": &counter{Count: 21},
	}

	tests := []struct {
		expression string
		want       any
	}{
		{"1 + 2", 3},
		{"state.calls * 2", 6},
		{"Counter.Count", 21},
		{"Counter.Double()", 42},
		{"missing == nil", true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := ev.Evaluate(context.Background(), tt.expression, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_ReusesProgramsAcrossEnvironments(t *testing.T) {
	ev := expr.New()
	ctx := context.Background()

	got, err := ev.Evaluate(ctx, "state.n + 1", map[string]any{"state": map[string]any{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	got, err = ev.Evaluate(ctx, "state.n + 1", map[string]any{"state": map[string]any{"n": 41}})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestEvaluator_Errors(t *testing.T) {
	ev := expr.New()

	_, err := ev.Evaluate(context.Background(), "1 +", nil)
	assert.ErrorContains(t, err, "compile")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Evaluate(ctx, "1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluator_CacheIsBounded(t *testing.T) {
	ev := expr.New(expr.WithCacheSize(2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		got, err := ev.Evaluate(ctx, fmt.Sprintf("%d + 1", i), nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, got)
	}
	assert.Equal(t, 2, ev.Cached())

	got, err := ev.Evaluate(ctx, "0 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 2, ev.Cached())
}
