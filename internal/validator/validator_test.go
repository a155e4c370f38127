package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/adapters/memory"
	"github.com/aretw0/notebook/pkg/unit"
)

type counter struct {
	N      int
	closed bool
}

func (c *counter) Increment() { c.N++ }
func (c *counter) Add(n int) { c.N += n }
func (c *counter) SetState(map[string]any) {}
func (c *counter) Wait(ctx context.Context) error { <-ctx.Done(); return nil }
func (c *counter) Close() error { c.closed = true; return nil }

type inert struct {
	Label string
}

func (i *inert) Describe() string { return i.Label }

type broken struct{}

func TestValidateUnits(t *testing.T) {
	var built *counter
	loader := memory.NewLoader(
		unit.Define("demo.Counter", func() *counter {
			built = &counter{}
			return built
		}),
		unit.Define("demo.Inert", func() *inert { return &inert{} }),
		unit.Define("demo.Broken", func() *broken { panic(errors.New("boom")) }),
	)

	report, err := ValidateUnits(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, report.Units, 3)

	byName := map[string]UnitReport{}
	for _, u := range report.Units {
		byName[u.Name] = u
	}

	c := byName["demo.Counter"]
	assert.NoError(t, c.Err)
	assert.Equal(t, []string{"Close", "Increment", "Wait"}, c.Operations)
	assert.Equal(t, []string{"Add"}, c.Ignored)
	require.NotNil(t, built)
	assert.True(t, built.closed)

	assert.Empty(t, byName["demo.Inert"].Operations)
	assert.Equal(t, []string{"Describe"}, byName["demo.Inert"].Ignored)
	assert.Error(t, byName["demo.Broken"].Err)

	verr := report.Err()
	require.Error(t, verr)
	assert.Contains(t, verr.Error(), "found 2 errors")
	assert.Contains(t, verr.Error(), "construct demo.Broken")
	assert.Contains(t, verr.Error(), "unit demo.Inert has no runnable operations")
}

func TestValidateUnits_Clean(t *testing.T) {
	loader := memory.NewLoader(unit.Define("demo.Counter", func() *counter { return &counter{} }))

	report, err := ValidateUnits(context.Background(), loader)
	require.NoError(t, err)
	assert.NoError(t, report.Err())
}
