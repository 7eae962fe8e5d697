// Package live is the dynamic introspection backend: a registry of live
// reflect types, functions, values and annotation prototypes, grouped by
// package import path.
package live

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/xreflect"

	"github.com/conduit-lang/mirror/internal/introspect"
)

// Registry holds live program structures. Types are also registered in an
// xreflect type registry so they can be looked up by package and name.
type Registry struct {
	mu          sync.RWMutex
	types       *xreflect.Types
	modules     map[string]*module
	order       []string
	annotations map[string]any
}

type module struct {
	uri    string
	types  []introspect.LiveType
	funcs  []introspect.LiveFunc
	values []introspect.LiveValue
}

func (m *module) URI() string                    { return m.uri }
func (m *module) Types() []introspect.LiveType   { return append([]introspect.LiveType(nil), m.types...) }
func (m *module) Funcs() []introspect.LiveFunc   { return append([]introspect.LiveFunc(nil), m.funcs...) }
func (m *module) Values() []introspect.LiveValue { return append([]introspect.LiveValue(nil), m.values...) }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:       xreflect.NewTypes(),
		modules:     make(map[string]*module),
		annotations: make(map[string]any),
	}
}

func (r *Registry) module(uri string) *module {
	m, ok := r.modules[uri]
	if !ok {
		m = &module{uri: uri}
		r.modules[uri] = m
		r.order = append(r.order, uri)
	}
	return m
}

// RegisterType registers rt under pkg, or under rt.PkgPath() when pkg is
// empty. Annotations are live annotation values attached to the type.
func (r *Registry) RegisterType(pkg string, rt reflect.Type, annotations ...any) error {
	if rt == nil {
		return fmt.Errorf("register type: nil type")
	}
	if pkg == "" {
		pkg = rt.PkgPath()
	}
	name := rt.Name()
	if name == "" {
		return fmt.Errorf("register type: %s is not a named type", rt.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.types.Register(name, xreflect.WithPackage(pkg), xreflect.WithReflectType(rt)); err != nil {
		return fmt.Errorf("failed to register type %s.%s: %w", pkg, name, err)
	}
	m := r.module(pkg)
	m.types = append(m.types, introspect.LiveType{Name: name, Type: rt, Annotations: annotations})
	return nil
}

// Register registers the type of each value under its own package. Pass a
// typed nil pointer to register an interface: (*Store)(nil).
func (r *Registry) Register(values ...any) error {
	for _, v := range values {
		rt := reflect.TypeOf(v)
		if rt == nil {
			return fmt.Errorf("register: untyped nil")
		}
		if rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Interface {
			rt = rt.Elem()
		}
		if err := r.RegisterType("", rt); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFunc registers a package-level function.
func (r *Registry) RegisterFunc(pkg, name string, fn any, annotations ...any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("register func %s.%s: not a function", pkg, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.module(pkg)
	m.funcs = append(m.funcs, introspect.LiveFunc{Name: name, Func: v, Annotations: annotations})
	return nil
}

// RegisterValue registers a package-level variable or constant. Variables
// should be registered by pointer so they can be written.
func (r *Registry) RegisterValue(pkg, name string, value any, isConst bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.module(pkg)
	m.values = append(m.values, introspect.LiveValue{Name: name, Value: reflect.ValueOf(value), Const: isConst})
}

// RegisterAnnotation registers a prototype for doc-comment annotations
// named name. The prototype's field values are the annotation defaults.
func (r *Registry) RegisterAnnotation(name string, prototype any) error {
	rt := reflect.TypeOf(prototype)
	if rt == nil || rt.Kind() != reflect.Struct {
		return fmt.Errorf("annotation %s: prototype must be a struct value", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.annotations[name] = prototype
	return nil
}

// Modules returns package URIs in registration order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Module returns the live entries of a package.
func (r *Registry) Module(uri string) (introspect.LiveModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[uri]
	if !ok {
		return nil, false
	}
	return m, true
}

// TypeOf looks up a registered type by package and name.
func (r *Registry) TypeOf(pkg, name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[pkg]
	if !ok {
		return nil, false
	}
	if rt, err := r.types.Lookup(name, xreflect.WithPackage(pkg)); err == nil && rt != nil {
		return rt, true
	}
	for _, t := range m.types {
		if t.Name == name {
			return t.Type, true
		}
	}
	return nil, false
}

// PackageOf returns the package a type was registered under.
func (r *Registry) PackageOf(rt reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, uri := range r.order {
		for _, t := range r.modules[uri].types {
			if t.Type == rt {
				return uri, true
			}
		}
	}
	return "", false
}

// Func returns a registered function by qualified name.
func (r *Registry) Func(qualified string) (reflect.Value, bool) {
	pkg, name := splitQualified(qualified)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[pkg]
	if !ok {
		return reflect.Value{}, false
	}
	for _, f := range m.funcs {
		if f.Name == name {
			return f.Func, true
		}
	}
	return reflect.Value{}, false
}

// Value returns a registered value by qualified name.
func (r *Registry) Value(qualified string) (introspect.LiveValue, bool) {
	pkg, name := splitQualified(qualified)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[pkg]
	if !ok {
		return introspect.LiveValue{}, false
	}
	for _, v := range m.values {
		if v.Name == name {
			return v, true
		}
	}
	return introspect.LiveValue{}, false
}

// InstantiateAnnotation copies the prototype registered under name and
// overrides the given fields. Field names match case-insensitively and
// string values are parsed into the field's kind.
func (r *Registry) InstantiateAnnotation(name string, values map[string]any) (any, bool, error) {
	r.mu.RLock()
	proto, ok := r.annotations[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	v := reflect.New(reflect.TypeOf(proto)).Elem()
	v.Set(reflect.ValueOf(proto))
	for key, raw := range values {
		f := v.FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, key) })
		if !f.IsValid() || !f.CanSet() {
			return nil, true, fmt.Errorf("annotation %s: unknown field %s", name, key)
		}
		if err := assign(f, raw); err != nil {
			return nil, true, fmt.Errorf("annotation %s: field %s: %w", name, key, err)
		}
	}
	return v.Interface(), true, nil
}

func splitQualified(qualified string) (string, string) {
	i := strings.LastIndex(qualified, ".")
	if i < 0 {
		return "", qualified
	}
	return qualified[:i], qualified[i+1:]
}

// assign stores raw into dst, converting where reflect allows and parsing
// strings into numeric and boolean kinds.
func assign(dst reflect.Value, raw any) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(raw)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if s, ok := raw.(string); ok && dst.Kind() != reflect.String {
		return parseInto(dst, s)
	}
	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}

func parseInto(dst reflect.Value, s string) error {
	switch dst.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetFloat(n)
	default:
		return fmt.Errorf("cannot parse %q into %s", s, dst.Type())
	}
	return nil
}
