// Package registry owns the merged declaration model and exposes it as
// ordered, aggregated views.
//
// A Registry is an explicit object with a lifecycle:
//
//	Uninitialized -> Registered -> Queryable
//
// Every query made before the first Register fails with a REG201 error.
// Register replaces the whole model, assigns hierarchy levels to packages
// and notifies listeners so dependent caches can be dropped.
//
// Hierarchy levels order aggregated queries:
//
//   - the root package (Package.IsRoot) is level 0
//   - Config.CorePackage is level 1
//   - packages prefixed by Config.Namespace are level 2
//   - other packages get ascending levels from 3 in registration order
//   - the host package (std, builtin or Config.BuiltinPackage) gets the
//     highest level, after all others are counted
//
// Within a library, declarations are stable-sorted public first and
// synthetic last.
package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

const (
	RootLevel       = 0
	CoreLevel       = 1
	NamespaceLevel  = 2
	firstThirdParty = 3
)

// State is the lifecycle state of a Registry.
type State int32

const (
	Uninitialized State = iota
	Registered
	Queryable
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Registered:
		return "registered"
	case Queryable:
		return "queryable"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config names the packages that receive fixed hierarchy levels.
type Config struct {
	CorePackage    string
	Namespace      string
	BuiltinPackage string
	Logger         *zap.Logger
}

// Model is one generation's output.
type Model struct {
	Libraries []*decl.Library
	Assets    []decl.Asset
}

// Registry holds the registered model. It is safe for concurrent readers;
// callers serialise Register.
type Registry struct {
	cfg    Config
	logger *zap.Logger

	state atomic.Int32

	mu         sync.RWMutex
	model      Model
	generation string
	packages   []decl.Package
	levels     map[string]int
	libraries  []*decl.Library // hierarchy order, declarations sorted

	listenerMu sync.Mutex
	listeners  []func()

	// Aggregations are computed once per registration.
	cache      map[string]any
	cacheMutex sync.Mutex
}

// New creates an uninitialized registry.
func New(cfg Config) *Registry {
	if cfg.BuiltinPackage == "" {
		cfg.BuiltinPackage = decl.HostPackage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:    cfg,
		logger: logger,
		levels: make(map[string]int),
		cache:  make(map[string]any),
	}
}

// OnRegister adds a listener called after every successful Register.
func (r *Registry) OnRegister(fn func()) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// State returns the current lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Register replaces the model and returns the new generation id.
func (r *Registry) Register(model Model) (string, error) {
	seen := make(map[string]bool, len(model.Libraries))
	for i, lib := range model.Libraries {
		if lib == nil {
			return "", fmt.Errorf("register: library %d is nil", i)
		}
		if seen[lib.URI()] {
			return "", fmt.Errorf("register: duplicate library %s", lib.URI())
		}
		seen[lib.URI()] = true
	}

	r.mu.Lock()
	r.state.Store(int32(Registered))
	r.model = Model{
		Libraries: slices.Clone(model.Libraries),
		Assets:    slices.Clone(model.Assets),
	}
	r.generation = uuid.NewString()
	r.packages, r.levels = r.assignLevels(model.Libraries)
	r.libraries = r.orderLibraries(model.Libraries)
	r.cacheMutex.Lock()
	r.cache = make(map[string]any)
	r.cacheMutex.Unlock()
	generation, packages := r.generation, len(r.packages)
	r.state.Store(int32(Queryable))
	r.mu.Unlock()

	r.logger.Info("registered model",
		zap.String("generation", generation),
		zap.Int("libraries", len(model.Libraries)),
		zap.Int("packages", packages))

	r.listenerMu.Lock()
	listeners := slices.Clone(r.listeners)
	r.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return generation, nil
}

// assignLevels groups libraries by package name in registration order.
func (r *Registry) assignLevels(libs []*decl.Library) ([]decl.Package, map[string]int) {
	var order []decl.Package
	byName := make(map[string]bool)
	for _, lib := range libs {
		pkg := lib.Package()
		if byName[pkg.Name] {
			continue
		}
		byName[pkg.Name] = true
		order = append(order, pkg)
	}

	levels := make(map[string]int, len(order))
	next := firstThirdParty
	var host []string
	for _, pkg := range order {
		switch {
		case pkg.IsRoot:
			levels[pkg.Name] = RootLevel
		case r.isHost(pkg.Name):
			host = append(host, pkg.Name)
		case r.cfg.CorePackage != "" && pkg.Name == r.cfg.CorePackage:
			levels[pkg.Name] = CoreLevel
		case r.cfg.Namespace != "" && strings.HasPrefix(pkg.Name, r.cfg.Namespace):
			levels[pkg.Name] = NamespaceLevel
		default:
			levels[pkg.Name] = next
			next++
		}
	}
	for _, name := range host {
		levels[name] = next
	}

	slices.SortStableFunc(order, func(a, b decl.Package) int {
		return levels[a.Name] - levels[b.Name]
	})
	return order, levels
}

func (r *Registry) isHost(name string) bool {
	return decl.IsHost(name) || name == r.cfg.BuiltinPackage
}

// orderLibraries sorts libraries by package level and their declarations
// public first, synthetic last.
func (r *Registry) orderLibraries(libs []*decl.Library) []*decl.Library {
	out := make([]*decl.Library, 0, len(libs))
	for _, lib := range libs {
		decls := lib.Declarations()
		slices.SortStableFunc(decls, func(a, b decl.Declaration) int {
			return visibilityRank(a) - visibilityRank(b)
		})
		out = append(out, lib.WithDeclarations(decls))
	}
	slices.SortStableFunc(out, func(a, b *decl.Library) int {
		return r.levels[a.Package().Name] - r.levels[b.Package().Name]
	})
	return out
}

func visibilityRank(d decl.Declaration) int {
	switch {
	case d.IsSynthetic():
		return 2
	case d.IsPublic():
		return 0
	}
	return 1
}

func (r *Registry) ready(operation string) error {
	if r.State() == Uninitialized {
		return rterrors.NewNotInitialized(operation)
	}
	return nil
}

// Generation returns the id of the current registration.
func (r *Registry) Generation() (string, error) {
	if err := r.ready("Generation"); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation, nil
}

// Model returns the registered model as given to Register.
func (r *Registry) Model() (Model, error) {
	if err := r.ready("Model"); err != nil {
		return Model{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Model{
		Libraries: slices.Clone(r.model.Libraries),
		Assets:    slices.Clone(r.model.Assets),
	}, nil
}

// Level returns the hierarchy level of a package.
func (r *Registry) Level(pkg string) (int, error) {
	if err := r.ready("Level"); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	level, ok := r.levels[pkg]
	if !ok {
		return 0, rterrors.NewNotFound("package", pkg)
	}
	return level, nil
}

// AllPackages returns packages in hierarchy order.
func (r *Registry) AllPackages() ([]decl.Package, error) {
	if err := r.ready("AllPackages"); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.packages), nil
}

// AllLibraries returns libraries in hierarchy order.
func (r *Registry) AllLibraries() ([]*decl.Library, error) {
	if err := r.ready("AllLibraries"); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.libraries), nil
}

// AllAssets returns the assets of the model.
func (r *Registry) AllAssets() ([]decl.Asset, error) {
	if err := r.ready("AllAssets"); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.model.Assets), nil
}

// aggregate computes a view over the ordered libraries once per
// registration and returns a copy of it.
func aggregate[T any](r *Registry, key string, collect func(lib *decl.Library) []T) ([]T, error) {
	if err := r.ready(key); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	if cached, ok := r.cache[key]; ok {
		return slices.Clone(cached.([]T)), nil
	}
	var out []T
	for _, lib := range r.libraries {
		out = append(out, collect(lib)...)
	}
	r.cache[key] = out
	return slices.Clone(out), nil
}

func (r *Registry) AllClasses() ([]*decl.ClassDeclaration, error) {
	return aggregate(r, "AllClasses", (*decl.Library).Classes)
}

func (r *Registry) AllEnums() ([]*decl.EnumDeclaration, error) {
	return aggregate(r, "AllEnums", (*decl.Library).Enums)
}

func (r *Registry) AllMixins() ([]*decl.MixinDeclaration, error) {
	return aggregate(r, "AllMixins", (*decl.Library).Mixins)
}

func (r *Registry) AllTypedefs() ([]*decl.TypedefDeclaration, error) {
	return aggregate(r, "AllTypedefs", (*decl.Library).Typedefs)
}

func (r *Registry) AllExtensions() ([]*decl.ExtensionDeclaration, error) {
	return aggregate(r, "AllExtensions", (*decl.Library).Extensions)
}

func (r *Registry) AllBasics() ([]*decl.BasicDeclaration, error) {
	return aggregate(r, "AllBasics", (*decl.Library).Basics)
}

// AllRecords returns library-level records followed, per class, by the
// records nested in it.
func (r *Registry) AllRecords() ([]*decl.RecordDeclaration, error) {
	return aggregate(r, "AllRecords", func(lib *decl.Library) []*decl.RecordDeclaration {
		out := lib.Records()
		for _, c := range lib.Classes() {
			out = append(out, c.Records()...)
		}
		return out
	})
}

// AllTypes returns every type declaration, including nested records.
func (r *Registry) AllTypes() ([]decl.TypeDeclaration, error) {
	return aggregate(r, "AllTypes", func(lib *decl.Library) []decl.TypeDeclaration {
		out := lib.Types()
		for _, c := range lib.Classes() {
			for _, rec := range c.Records() {
				out = append(out, rec)
			}
		}
		return out
	})
}

// AllMethods returns top-level functions followed by the methods of every
// class, enum, mixin and extension.
func (r *Registry) AllMethods() ([]*decl.MethodDeclaration, error) {
	return aggregate(r, "AllMethods", func(lib *decl.Library) []*decl.MethodDeclaration {
		out := lib.Methods()
		for _, d := range lib.Declarations() {
			switch t := d.(type) {
			case *decl.ClassDeclaration:
				out = append(out, t.Methods()...)
			case *decl.EnumDeclaration:
				out = append(out, t.Methods()...)
			case *decl.MixinDeclaration:
				out = append(out, t.Methods()...)
			case *decl.ExtensionDeclaration:
				out = append(out, t.Methods()...)
			}
		}
		return out
	})
}

// AllFields returns package-level fields followed by member fields, enum
// values and record fields.
func (r *Registry) AllFields() ([]*decl.FieldDeclaration, error) {
	return aggregate(r, "AllFields", func(lib *decl.Library) []*decl.FieldDeclaration {
		out := lib.Fields()
		for _, d := range lib.Declarations() {
			switch t := d.(type) {
			case *decl.ClassDeclaration:
				out = append(out, t.Fields()...)
				for _, rec := range t.Records() {
					out = append(out, recordFields(rec)...)
				}
			case *decl.EnumDeclaration:
				out = append(out, t.Values()...)
				out = append(out, t.Fields()...)
			case *decl.MixinDeclaration:
				out = append(out, t.Fields()...)
			case *decl.ExtensionDeclaration:
				out = append(out, t.Fields()...)
			case *decl.RecordDeclaration:
				out = append(out, recordFields(t)...)
			}
		}
		return out
	})
}

func recordFields(rec *decl.RecordDeclaration) []*decl.FieldDeclaration {
	return append(rec.Positional(), rec.NamedFields()...)
}

func (r *Registry) AllConstructors() ([]*decl.ConstructorDeclaration, error) {
	return aggregate(r, "AllConstructors", func(lib *decl.Library) []*decl.ConstructorDeclaration {
		var out []*decl.ConstructorDeclaration
		for _, c := range lib.Classes() {
			out = append(out, c.Constructors()...)
		}
		return out
	})
}

// AllAnnotations returns the annotations of every type, member and
// top-level declaration.
func (r *Registry) AllAnnotations() ([]*decl.Annotation, error) {
	return aggregate(r, "AllAnnotations", func(lib *decl.Library) []*decl.Annotation {
		var out []*decl.Annotation
		add := func(d any) {
			if s, ok := d.(interface{ Annotations() []*decl.Annotation }); ok {
				out = append(out, s.Annotations()...)
			}
		}
		for _, d := range lib.Declarations() {
			add(d)
			switch t := d.(type) {
			case *decl.ClassDeclaration:
				for _, c := range t.Constructors() {
					add(c)
				}
				for _, f := range t.Fields() {
					add(f)
				}
				for _, m := range t.Methods() {
					add(m)
				}
			case *decl.EnumDeclaration:
				for _, f := range t.Values() {
					add(f)
				}
				for _, m := range t.Methods() {
					add(m)
				}
			case *decl.MixinDeclaration:
				for _, f := range t.Fields() {
					add(f)
				}
				for _, m := range t.Methods() {
					add(m)
				}
			}
		}
		return out
	})
}
