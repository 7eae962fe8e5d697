package static

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/conduit-lang/mirror/internal/introspect"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedModule

// Loader loads packages with go/packages relative to a module directory and
// caches them by import path.
type Loader struct {
	dir   string
	tests bool

	mu    sync.Mutex
	cache map[string]*Library
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTests includes _test.go files in loaded packages.
func WithTests(include bool) LoaderOption {
	return func(l *Loader) { l.tests = include }
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir, cache: make(map[string]*Library)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) config(ctx context.Context) *packages.Config {
	return &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     l.dir,
		Tests:   l.tests,
	}
}

// Load loads every package matching patterns into the cache and returns the
// import paths in load order. Packages with errors are reported together.
func (l *Loader) Load(ctx context.Context, patterns ...string) ([]string, error) {
	pkgs, err := packages.Load(l.config(ctx), patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	var loaded []string
	var errs []error
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range pkgs {
		if len(p.Errors) > 0 {
			errs = append(errs, fmt.Errorf("%s: %v", p.PkgPath, p.Errors[0]))
			continue
		}
		l.cache[p.PkgPath] = fromPackage(p)
		loaded = append(loaded, p.PkgPath)
	}
	return loaded, errors.Join(errs...)
}

// Library returns the package with import path uri, loading it on first use.
func (l *Loader) Library(ctx context.Context, uri string) (introspect.StaticLibrary, error) {
	l.mu.Lock()
	lib, ok := l.cache[uri]
	l.mu.Unlock()
	if ok {
		return lib, nil
	}

	pkgs, err := packages.Load(l.config(ctx), uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", uri, err)
	}
	for _, p := range pkgs {
		if p.PkgPath != uri {
			continue
		}
		if len(p.Errors) > 0 {
			return nil, fmt.Errorf("failed to load %s: %v", uri, p.Errors[0])
		}
		lib = fromPackage(p)
		l.mu.Lock()
		l.cache[uri] = lib
		l.mu.Unlock()
		return lib, nil
	}
	return nil, nil
}

// Invalidate drops cached packages so the next lookup reloads them.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*Library)
}

func fromPackage(p *packages.Package) *Library {
	return newLibrary(p.PkgPath, p.Types, p.TypesInfo, p.Fset, p.Syntax, p.CompiledGoFiles)
}

// Memory is a StaticBackend over pre-built libraries.
type Memory struct {
	libs map[string]*Library
}

// NewMemory indexes libs by URI.
func NewMemory(libs ...*Library) *Memory {
	m := &Memory{libs: make(map[string]*Library)}
	for _, l := range libs {
		m.libs[l.URI()] = l
	}
	return m
}

func (m *Memory) Library(_ context.Context, uri string) (introspect.StaticLibrary, error) {
	if lib, ok := m.libs[uri]; ok {
		return lib, nil
	}
	return nil, nil
}
