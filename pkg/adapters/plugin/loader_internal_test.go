package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScanRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.go", "package main")
	writeFile(t, dir, "a.go", "package main")
	writeFile(t, dir, "a_test.go", "package main")
	writeFile(t, dir, "go.mod", "module cells")
	writeFile(t, dir, "cells.so", "")
	writeFile(t, dir, "README.md", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	sources, libs, err := scanRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "go.mod"}, sources)
	assert.Equal(t, []string{filepath.Join(dir, "cells.so")}, libs)
}

func TestScanRoot_ModuleFilesAloneAreNotASource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module cells")

	sources, libs, err := scanRoot(dir)
	require.NoError(t, err)
	assert.Empty(t, sources)
	assert.Empty(t, libs)

	_, _, err = scanRoot(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.go", "package main\n// v1\n")

	first, err := fingerprint(dir, []string{"counter.go"})
	require.NoError(t, err)
	again, err := fingerprint(dir, []string{"counter.go"})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	writeFile(t, dir, "counter.go", "package main\n// v2\n")
	edited, err := fingerprint(dir, []string{"counter.go"})
	require.NoError(t, err)
	assert.NotEqual(t, first, edited)
	assert.Len(t, edited, 64)
}

func TestFingerprint_SeparatesNameFromContent(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, a, "x.go", "package main")
	writeFile(t, b, "x.gop", "ackage main")

	first, err := fingerprint(a, []string{"x.go"})
	require.NoError(t, err)
	second, err := fingerprint(b, []string{"x.gop"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
