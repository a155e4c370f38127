package plugin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/notebook/pkg/adapters/plugin"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_UnresolvableRootsYieldUnitNotFound(t *testing.T) {
	empty := t.TempDir()
	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "cell.go"), []byte("package main\n"), 0o644))

	loader := plugin.NewLoader(
		[]string{filepath.Join(empty, "missing"), empty, broken},
		plugin.WithBuildDir(t.TempDir()),
		plugin.WithGoBinary("false"), // every compile fails
	)
	assert.Equal(t, []string{filepath.Join(empty, "missing"), empty, broken}, loader.Roots())

	lc, err := loader.Open(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lc.Units())

	_, err = lc.New("cells.Counter")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
	assert.ErrorContains(t, err, "compile "+broken)
	assert.ErrorContains(t, err, "read root")
}
