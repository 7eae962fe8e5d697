// Package discovery answers "find a declaration" queries over a registered
// model.
//
// An Index sits on top of a registry.Registry. Lookups are computed on first
// use and cached, so repeated identical queries return the same instance.
// Every cache is dropped when the registry registers a new model.
//
// Identity and name lookups search kinds in a fixed order: builtins,
// classes, enums, mixins, typedefs, records, then extensions. A query that
// names a generic instantiation such as "Box<String>" or "Box[int]" that is
// not itself registered is decomposed; the base and each argument are
// resolved and a specialised copy of the base is synthesised.
package discovery

import (
	"go/types"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
	"github.com/conduit-lang/mirror/runtime/registry"
)

// Statistics reports cache usage since the last ClearCaches.
type Statistics struct {
	Hits    uint64         `json:"hits"`
	Misses  uint64         `json:"misses"`
	Entries map[string]int `json:"entries"`
}

// Index is a caching query layer over a Registry. It is safe for
// concurrent use.
type Index struct {
	registry *registry.Registry
	logger   *zap.Logger

	mu           sync.Mutex
	types        []decl.TypeDeclaration // search order, nil until first use
	byType       map[reflect.Type]decl.TypeDeclaration
	byName       map[string]decl.TypeDeclaration
	byQualified  map[string]decl.TypeDeclaration
	bySimple     map[string][]decl.TypeDeclaration
	byElement    map[types.Object]decl.TypeDeclaration
	subclasses   map[string][]*decl.ClassDeclaration
	implementers map[string][]decl.TypeDeclaration
	generics     map[string][]decl.TypeDeclaration
	hits, misses uint64
}

// New creates an index over reg and subscribes it to re-registration.
func New(reg *registry.Registry, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Index{registry: reg, logger: logger}
	idx.reset()
	reg.OnRegister(idx.ClearCaches)
	return idx
}

func (x *Index) reset() {
	x.types = nil
	x.byType = make(map[reflect.Type]decl.TypeDeclaration)
	x.byName = make(map[string]decl.TypeDeclaration)
	x.byQualified = make(map[string]decl.TypeDeclaration)
	x.bySimple = make(map[string][]decl.TypeDeclaration)
	x.byElement = make(map[types.Object]decl.TypeDeclaration)
	x.subclasses = make(map[string][]*decl.ClassDeclaration)
	x.implementers = make(map[string][]decl.TypeDeclaration)
	x.generics = make(map[string][]decl.TypeDeclaration)
	x.hits, x.misses = 0, 0
}

// ClearCaches drops every cached result.
func (x *Index) ClearCaches() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.reset()
	x.logger.Debug("discovery caches cleared")
}

// CacheStatistics returns hit and miss counters and per-cache entry counts.
func (x *Index) CacheStatistics() Statistics {
	x.mu.Lock()
	defer x.mu.Unlock()
	return Statistics{
		Hits:   x.hits,
		Misses: x.misses,
		Entries: map[string]int{
			"type":         len(x.byType),
			"name":         len(x.byName),
			"qualified":    len(x.byQualified),
			"simple":       len(x.bySimple),
			"element":      len(x.byElement),
			"subclasses":   len(x.subclasses),
			"implementers": len(x.implementers),
			"generics":     len(x.generics),
		},
	}
}

// ready reports NotInitialized before the registry is queryable. Callers
// hold x.mu.
func (x *Index) ready() error {
	_, err := x.searchOrder()
	return err
}

// searchOrder returns every registered type declaration in lookup order.
// Callers hold x.mu.
func (x *Index) searchOrder() ([]decl.TypeDeclaration, error) {
	if x.types != nil {
		return x.types, nil
	}
	basics, err := x.registry.AllBasics()
	if err != nil {
		return nil, err
	}
	classes, err := x.registry.AllClasses()
	if err != nil {
		return nil, err
	}
	enums, err := x.registry.AllEnums()
	if err != nil {
		return nil, err
	}
	mixins, err := x.registry.AllMixins()
	if err != nil {
		return nil, err
	}
	typedefs, err := x.registry.AllTypedefs()
	if err != nil {
		return nil, err
	}
	records, err := x.registry.AllRecords()
	if err != nil {
		return nil, err
	}
	extensions, err := x.registry.AllExtensions()
	if err != nil {
		return nil, err
	}
	var out []decl.TypeDeclaration
	out = appendTypes(out, basics)
	out = appendTypes(out, classes)
	out = appendTypes(out, enums)
	out = appendTypes(out, mixins)
	out = appendTypes(out, typedefs)
	out = appendTypes(out, records)
	out = appendTypes(out, extensions)
	if out == nil {
		out = []decl.TypeDeclaration{}
	}
	x.types = out
	return out, nil
}

func appendTypes[T decl.TypeDeclaration](out []decl.TypeDeclaration, in []T) []decl.TypeDeclaration {
	for _, d := range in {
		out = append(out, d)
	}
	return out
}

// lookup is compute-if-absent over one cache. Callers hold x.mu.
func lookup[K comparable, V any](x *Index, cache map[K]V, key K, compute func() (V, bool, error)) (V, bool, error) {
	if v, ok := cache[key]; ok {
		x.hits++
		return v, true, nil
	}
	x.misses++
	v, ok, err := compute()
	if err != nil || !ok {
		return v, false, err
	}
	cache[key] = v
	return v, true, nil
}

// FindByType returns the declaration whose live identity is rt.
func (x *Index) FindByType(rt reflect.Type) (decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if rt == nil {
		if err := x.ready(); err != nil {
			return nil, err
		}
		return nil, rterrors.NewNotFound("type", "<nil>")
	}
	d, ok, err := lookup(x, x.byType, rt, func() (decl.TypeDeclaration, bool, error) {
		return x.findByType(rt)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rterrors.NewNotFound("type", rt.String())
	}
	return d, nil
}

func (x *Index) findByType(rt reflect.Type) (decl.TypeDeclaration, bool, error) {
	all, err := x.searchOrder()
	if err != nil {
		return nil, false, err
	}
	for _, d := range all {
		if d.Type() == rt {
			return d, true, nil
		}
	}
	name := rt.Name()
	if name == "" {
		return nil, false, nil
	}
	for _, d := range all {
		if d.ErasedName() != "" && d.ErasedName() == name && d.PackageURI() == rt.PkgPath() {
			return d, true, nil
		}
	}
	base, args, ok := decl.SplitGeneric(name)
	if !ok {
		return nil, false, nil
	}
	generic, ok, err := x.findName(decl.QualifiedName(rt.PkgPath(), base), "")
	if err != nil || !ok {
		return nil, false, err
	}
	links, ok, err := x.resolveArguments(args)
	if err != nil || !ok {
		return nil, false, err
	}
	return decl.Recover(generic, rt, name, links), true, nil
}

// FindByName resolves a simple name, a qualified name or a generic
// instantiation string. pkg restricts the search to one Go module; "" means
// any, and "std" or "builtin" select the host packages.
func (x *Index) FindByName(name, pkg string) (decl.TypeDeclaration, error) {
	name = strings.TrimSpace(name)
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok, err := lookup(x, x.byName, name+"\x00"+pkg, func() (decl.TypeDeclaration, bool, error) {
		return x.findName(name, pkg)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rterrors.NewNotFound("type", name)
	}
	return d, nil
}

// findName is FindByName without caching. Callers hold x.mu.
func (x *Index) findName(name, pkg string) (decl.TypeDeclaration, bool, error) {
	if name == "" {
		return nil, false, nil
	}
	all, err := x.searchOrder()
	if err != nil {
		return nil, false, err
	}
	qualifier, _ := decl.SplitQualified(name)
	for _, d := range all {
		if !inPackage(d, pkg) {
			continue
		}
		if qualifier != "" && d.QualifiedName() == name {
			return d, true, nil
		}
		if qualifier == "" && d.Name() == name {
			return d, true, nil
		}
	}
	if qualifier == "" && (pkg == "" || decl.IsHost(pkg)) {
		if d, ok := builtinFold(all, name); ok {
			return d, true, nil
		}
	}

	base, args, ok := decl.SplitGeneric(name)
	if !ok {
		return nil, false, nil
	}
	generic, ok, err := x.findName(base, pkg)
	if err != nil || !ok {
		return nil, false, err
	}
	links, ok, err := x.resolveArguments(args)
	if err != nil || !ok {
		return nil, false, err
	}
	return decl.Specialize(generic, links, name), true, nil
}

// builtinFold matches predeclared types case-insensitively so that
// "String" and "Int" resolve.
func builtinFold(all []decl.TypeDeclaration, name string) (decl.TypeDeclaration, bool) {
	for _, d := range all {
		if d.PackageURI() == decl.BuiltinURI && strings.EqualFold(d.Name(), name) {
			return d, true
		}
	}
	return nil, false
}

func (x *Index) resolveArguments(args []string) ([]*decl.Link, bool, error) {
	links := make([]*decl.Link, 0, len(args))
	for _, arg := range args {
		d, ok, err := x.findName(arg, "")
		if err != nil || !ok {
			return nil, false, err
		}
		links = append(links, d.Link())
	}
	return links, true, nil
}

// FindByQualifiedName returns the declaration whose qualified name is
// exactly qualified, decomposing generic instantiations.
func (x *Index) FindByQualifiedName(qualified string) (decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok, err := lookup(x, x.byQualified, qualified, func() (decl.TypeDeclaration, bool, error) {
		all, err := x.searchOrder()
		if err != nil {
			return nil, false, err
		}
		for _, d := range all {
			if d.QualifiedName() == qualified {
				return d, true, nil
			}
		}
		if pkg, _ := decl.SplitQualified(qualified); pkg == "" {
			return nil, false, nil
		}
		return x.findName(qualified, "")
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rterrors.NewNotFound("type", qualified)
	}
	return d, nil
}

// FindBySimpleName returns the first declaration in search order with the
// given simple name.
func (x *Index) FindBySimpleName(name, pkg string) (decl.TypeDeclaration, error) {
	all, err := x.FindAllBySimpleName(name, pkg)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, rterrors.NewNotFound("type", name)
	}
	return all[0], nil
}

// FindAllBySimpleName returns every declaration with the given simple name
// in search order. Recovered generic instantiations share the simple name
// of their base.
func (x *Index) FindAllBySimpleName(name, pkg string) ([]decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	found, _, err := lookup(x, x.bySimple, name+"\x00"+pkg, func() ([]decl.TypeDeclaration, bool, error) {
		all, err := x.searchOrder()
		if err != nil {
			return nil, false, err
		}
		out := []decl.TypeDeclaration{}
		for _, d := range all {
			if d.SimpleName() == name && inPackage(d, pkg) {
				out = append(out, d)
			}
		}
		return out, true, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(found), nil
}

// FindByElement returns the declaration built from the given static
// object.
func (x *Index) FindByElement(obj types.Object) (decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if obj == nil {
		if err := x.ready(); err != nil {
			return nil, err
		}
		return nil, rterrors.NewNotFound("element", "<nil>")
	}
	d, ok, err := lookup(x, x.byElement, obj, func() (decl.TypeDeclaration, bool, error) {
		all, err := x.searchOrder()
		if err != nil {
			return nil, false, err
		}
		for _, d := range all {
			if d.Element() == obj {
				return d, true, nil
			}
		}
		return nil, false, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rterrors.NewNotFound("element", obj.Id())
	}
	return d, nil
}

// inPackage reports whether d belongs to the Go module pkg.
func inPackage(d decl.TypeDeclaration, pkg string) bool {
	if pkg == "" {
		return true
	}
	uri := d.PackageURI()
	if decl.IsHost(pkg) {
		return uri == decl.BuiltinURI || isStdPath(uri)
	}
	return uri == pkg || strings.HasPrefix(uri, pkg+"/")
}

// isStdPath reports whether an import path belongs to the standard library,
// whose first path element has no dot.
func isStdPath(path string) bool {
	if path == "" {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
