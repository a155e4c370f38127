// Package plugin loads units from Go source directories compiled as Go plugins.
//
// Each search root is a directory. A root holding .go files is a plugin
// package (package main, exporting Register); a root holding .so files
// contributes precompiled plugins. Every plugin exports:
//
//	func Register(r unit.Registrar)
//
// Go cannot unload a plugin, so a source root is rebuilt, under a fresh
// plugin path, only when its fingerprint changes; unchanged roots keep
// serving the definitions already opened.
package plugin

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	goplugin "plugin"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/pkg/adapters/memory"
	"github.com/aretw0/notebook/pkg/ports"
	"github.com/aretw0/notebook/pkg/unit"
)

// RegisterSymbol is the name every unit plugin must export.
const RegisterSymbol = "Register"

// Loader implements ports.UnitLoader over plugin search roots.
type Loader struct {
	roots    []string
	buildDir string
	goBin    string
	logger   *slog.Logger
	index    *unit.Index

	mu     sync.Mutex
	opened map[string]map[string]unit.Definition
}

// Option configures the Loader.
type Option func(*Loader)

// WithBuildDir sets where compiled plugins are written (default: a temp dir).
func WithBuildDir(dir string) Option {
	return func(l *Loader) {
		l.buildDir = dir
	}
}

// WithGoBinary sets the go toolchain used to compile source roots (default: "go").
func WithGoBinary(bin string) Option {
	return func(l *Loader) {
		l.goBin = bin
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a plugin loader over the ordered search roots.
func NewLoader(roots []string, opts ...Option) *Loader {
	l := &Loader{
		roots:  append([]string(nil), roots...),
		goBin:  "go",
		logger: logging.NewNop(),
		index:  unit.NewIndex(),
		opened: make(map[string]map[string]unit.Definition),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.buildDir == "" {
		l.buildDir = filepath.Join(os.TempDir(), "notebook-units")
	}
	return l
}

// Roots returns the search roots, in resolution order.
func (l *Loader) Roots() []string {
	return append([]string(nil), l.roots...)
}

// UnitName implements ports.Classifier.
func (l *Loader) UnitName(t reflect.Type) (string, bool) {
	return l.index.UnitName(t)
}

// Open rebuilds changed roots and returns a context over the current definitions.
// A root that fails to build or open is logged and skipped, and its error is
// reported by New for names the context cannot resolve. The first root
// defining a name wins.
func (l *Loader) Open(ctx context.Context) (ports.LoadingContext, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	defs := make(map[string]unit.Definition)
	var failures []error
	for _, root := range l.roots {
		rootDefs, err := l.loadRoot(ctx, root)
		if err != nil {
			l.logger.Warn("unit root skipped", "root", root, "err", err)
			failures = append(failures, fmt.Errorf("root %s: %w", root, err))
			continue
		}
		for name, def := range rootDefs {
			if _, dup := defs[name]; !dup {
				defs[name] = def
			}
		}
	}
	lc := memory.NewContext(defs, l.index)
	if len(failures) > 0 {
		lc.WithCause(errors.Join(failures...))
	}
	return lc, nil
}

func (l *Loader) loadRoot(ctx context.Context, root string) (map[string]unit.Definition, error) {
	sources, libs, err := scanRoot(root)
	if err != nil {
		return nil, err
	}

	out := make(map[string]unit.Definition)
	if len(sources) > 0 {
		fp, err := fingerprint(root, sources)
		if err != nil {
			return nil, err
		}
		key := "src:" + fp
		defs, ok := l.opened[key]
		if !ok {
			so, err := l.build(ctx, root, fp)
			if err != nil {
				return nil, err
			}
			if defs, err = l.open(so); err != nil {
				return nil, err
			}
			l.opened[key] = defs
			l.logger.Info("unit root compiled", "root", root, "fingerprint", fp[:12], "units", len(defs))
		}
		merge(out, defs)
	}

	for _, lib := range libs {
		key := "so:" + lib
		defs, ok := l.opened[key]
		if !ok {
			if defs, err = l.open(lib); err != nil {
				return nil, err
			}
			l.opened[key] = defs
		}
		merge(out, defs)
	}
	return out, nil
}

func (l *Loader) build(ctx context.Context, root, fp string) (string, error) {
	if err := os.MkdirAll(l.buildDir, 0o755); err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}
	id := fp[:16]
	out, err := filepath.Abs(filepath.Join(l.buildDir, "unit-"+id+".so"))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	cmd := exec.CommandContext(ctx, l.goBin, "build",
		"-buildmode=plugin",
		"-ldflags=-pluginpath=notebook/"+id,
		"-o", out, ".")
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("compile %s: %w: %s", root, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (l *Loader) open(path string) (defs map[string]unit.Definition, err error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}
	sym, err := p.Lookup(RegisterSymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	register, ok := sym.(unit.RegisterFunc)
	if !ok {
		return nil, fmt.Errorf("plugin %s: %s has type %T, want func(unit.Registrar)", path, RegisterSymbol, sym)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s: %s panicked: %v", path, RegisterSymbol, r)
		}
	}()
	col := &collector{defs: make(map[string]unit.Definition)}
	register(col)
	for _, def := range col.defs {
		l.index.Add(def)
	}
	return col.defs, nil
}

type collector struct {
	defs map[string]unit.Definition
}

func (c *collector) Define(defs ...unit.Definition) {
	for _, def := range defs {
		if def.Validate() == nil {
			c.defs[def.Name] = def
		}
	}
}

func merge(dst, src map[string]unit.Definition) {
	for name, def := range src {
		if _, dup := dst[name]; !dup {
			dst[name] = def
		}
	}
}

// scanRoot lists a root's Go sources (tests excluded) and shared objects, sorted.
func scanRoot(root string) (sources, libs []string, err error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, "_test.go"):
		case strings.HasSuffix(name, ".go"), name == "go.mod", name == "go.sum":
			sources = append(sources, name)
		case strings.HasSuffix(name, ".so"):
			libs = append(libs, filepath.Join(root, name))
		}
	}
	if !hasGo(sources) {
		sources = nil
	}
	sort.Strings(sources)
	sort.Strings(libs)
	return sources, libs, nil
}

func hasGo(names []string) bool {
	for _, n := range names {
		if strings.HasSuffix(n, ".go") {
			return true
		}
	}
	return false
}

// fingerprint hashes file names and contents. Every name and every content
// is length-prefixed so that no boundary shift yields the same input.
func fingerprint(root string, names []string) (string, error) {
	h := sha256.New()
	for _, name := range names {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			return "", err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return "", err
		}
		_ = binary.Write(h, binary.BigEndian, uint64(len(name)))
		_, _ = io.WriteString(h, name)
		_ = binary.Write(h, binary.BigEndian, uint64(info.Size()))
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
