package live

import (
	"fmt"
	"reflect"
	"strings"
)

// Resolver dispatches construction, method calls and field access through
// reflection over a Registry. It implements decl.Resolver.
//
// Constructors are registered functions named New<Type><Name> in the owner's
// package. Named arguments are packed into a trailing options struct,
// matching field names case-insensitively.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver over registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// NewInstance calls the registered constructor. The unnamed constructor
// falls back to a zero value with named arguments assigned to fields.
func (r *Resolver) NewInstance(constructor string, owner reflect.Type, positional []any, named map[string]any) (any, error) {
	if owner == nil {
		return nil, fmt.Errorf("new instance: owner type unknown")
	}
	pkg, ok := r.registry.PackageOf(owner)
	if !ok {
		pkg = owner.PkgPath()
	}
	qualified := pkg + ".New" + owner.Name() + constructor
	if fn, ok := r.registry.Func(qualified); ok {
		return call(fn, qualified, positional, named)
	}
	if constructor != "" {
		return nil, fmt.Errorf("constructor not registered: %s", qualified)
	}
	if owner.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot construct %s without a registered constructor", owner)
	}
	ptr := reflect.New(owner)
	for name, value := range named {
		if err := setField(ptr.Elem(), name, value); err != nil {
			return nil, err
		}
	}
	return ptr.Interface(), nil
}

// InvokeMethod calls a method on instance, or a registered function by
// qualified name when instance is nil.
func (r *Resolver) InvokeMethod(instance any, name string, positional []any, named map[string]any) (any, error) {
	if instance == nil {
		fn, ok := r.registry.Func(name)
		if !ok {
			return nil, fmt.Errorf("function not registered: %s", name)
		}
		return call(fn, name, positional, named)
	}
	v := reflect.ValueOf(instance)
	m := v.MethodByName(name)
	if !m.IsValid() && v.Kind() != reflect.Pointer {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		m = ptr.MethodByName(name)
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("method %s not found on %s", name, v.Type())
	}
	return call(m, name, positional, named)
}

// GetValue reads a field of instance, or a registered value by qualified
// name when instance is nil.
func (r *Resolver) GetValue(instance any, field string) (any, error) {
	if instance == nil {
		lv, ok := r.registry.Value(field)
		if !ok {
			return nil, fmt.Errorf("value not registered: %s", field)
		}
		v := lv.Value
		if v.Kind() == reflect.Pointer && !lv.Const {
			v = v.Elem()
		}
		return v.Interface(), nil
	}
	v := reflect.Indirect(reflect.ValueOf(instance))
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("get %s: %s is not a struct", field, v.Type())
	}
	f := fieldByName(v, field)
	if !f.IsValid() {
		return nil, fmt.Errorf("field %s not found on %s", field, v.Type())
	}
	if !f.CanInterface() {
		return nil, fmt.Errorf("field %s on %s is not exported", field, v.Type())
	}
	return f.Interface(), nil
}

// SetValue writes a field of instance, which must be a pointer, or a
// registered variable by qualified name when instance is nil.
func (r *Resolver) SetValue(instance any, field string, value any) error {
	if instance == nil {
		lv, ok := r.registry.Value(field)
		if !ok {
			return fmt.Errorf("value not registered: %s", field)
		}
		if lv.Const || lv.Value.Kind() != reflect.Pointer {
			return fmt.Errorf("value %s is not writable", field)
		}
		return assign(lv.Value.Elem(), value)
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("set %s: instance must be a non-nil pointer", field)
	}
	return setField(v.Elem(), field, value)
}

func fieldByName(v reflect.Value, name string) reflect.Value {
	if f := v.FieldByName(name); f.IsValid() {
		return f
	}
	return v.FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, name) })
}

func setField(v reflect.Value, name string, value any) error {
	f := fieldByName(v, name)
	if !f.IsValid() {
		return fmt.Errorf("field %s not found on %s", name, v.Type())
	}
	if !f.CanSet() {
		return fmt.Errorf("field %s on %s is not settable", name, v.Type())
	}
	return assign(f, value)
}

// call invokes fn with positional arguments followed, when the last
// parameter is an options struct, by named arguments packed into it.
func call(fn reflect.Value, name string, positional []any, named map[string]any) (any, error) {
	ft := fn.Type()
	in, err := buildArgs(ft, positional, named)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	out := fn.Call(in)
	return unpack(out)
}

func buildArgs(ft reflect.Type, positional []any, named map[string]any) ([]reflect.Value, error) {
	n := ft.NumIn()
	var opts reflect.Type
	if n > 0 && !ft.IsVariadic() && IsOptionsType(ft.In(n-1)) {
		opts = ft.In(n - 1)
		n--
	}
	var in []reflect.Value
	for i, arg := range positional {
		var pt reflect.Type
		switch {
		case ft.IsVariadic() && i >= n-1:
			pt = ft.In(n - 1).Elem()
		case i < n:
			pt = ft.In(i)
		default:
			return nil, fmt.Errorf("too many arguments: %d", len(positional))
		}
		v := reflect.New(pt).Elem()
		if err := assign(v, arg); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}
	fixed := n
	if ft.IsVariadic() {
		fixed = n - 1
	}
	for i := len(in); i < fixed; i++ {
		in = append(in, reflect.Zero(ft.In(i)))
	}
	if opts != nil {
		st := opts
		if st.Kind() == reflect.Pointer {
			st = st.Elem()
		}
		ov := reflect.New(st)
		for k, v := range named {
			if err := setField(ov.Elem(), k, v); err != nil {
				return nil, err
			}
		}
		if opts.Kind() == reflect.Pointer {
			in = append(in, ov)
		} else {
			in = append(in, ov.Elem())
		}
	} else if len(named) > 0 {
		return nil, fmt.Errorf("named arguments given but no options parameter")
	}
	return in, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func unpack(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	values := make([]any, len(out))
	for i, v := range out {
		values[i] = v.Interface()
	}
	return values, nil
}

// IsOptionsType reports whether t is a struct whose name ends in Options
// or Params. Such a trailing parameter carries named arguments.
func IsOptionsType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && (strings.HasSuffix(t.Name(), "Options") || strings.HasSuffix(t.Name(), "Params"))
}
