package decl

import (
	"reflect"
	"sync"
)

const (
	// BuiltinURI is the pseudo-package holding predeclared types.
	BuiltinURI = "builtin"
	// HostPackage names the standard library as a package.
	HostPackage = "std"
)

var (
	builtinOnce sync.Once
	builtinLib  *Library
)

type builtinType struct {
	name string
	rt   reflect.Type
	kind TypeKind
}

func builtinTypes() []builtinType {
	return []builtinType{
		{"bool", reflect.TypeOf(false), KindPrimitive},
		{"string", reflect.TypeOf(""), KindPrimitive},
		{"int", reflect.TypeOf(int(0)), KindPrimitive},
		{"int8", reflect.TypeOf(int8(0)), KindPrimitive},
		{"int16", reflect.TypeOf(int16(0)), KindPrimitive},
		{"int32", reflect.TypeOf(int32(0)), KindPrimitive},
		{"int64", reflect.TypeOf(int64(0)), KindPrimitive},
		{"uint", reflect.TypeOf(uint(0)), KindPrimitive},
		{"uint8", reflect.TypeOf(uint8(0)), KindPrimitive},
		{"uint16", reflect.TypeOf(uint16(0)), KindPrimitive},
		{"uint32", reflect.TypeOf(uint32(0)), KindPrimitive},
		{"uint64", reflect.TypeOf(uint64(0)), KindPrimitive},
		{"uintptr", reflect.TypeOf(uintptr(0)), KindPrimitive},
		{"float32", reflect.TypeOf(float32(0)), KindPrimitive},
		{"float64", reflect.TypeOf(float64(0)), KindPrimitive},
		{"complex64", reflect.TypeOf(complex64(0)), KindPrimitive},
		{"complex128", reflect.TypeOf(complex128(0)), KindPrimitive},
		{"any", reflect.TypeOf((*any)(nil)).Elem(), KindDynamic},
		{"error", reflect.TypeOf((*error)(nil)).Elem(), KindClass},
	}
}

// BuiltinLibrary returns the library of predeclared types. The same
// instance is returned on every call.
func BuiltinLibrary() *Library {
	builtinOnce.Do(func() {
		var decls []Declaration
		for _, b := range builtinTypes() {
			decls = append(decls, NewBasic(b.kind, TypeInfo{
				EntityInfo: EntityInfo{Name: b.name, Type: b.rt, Public: true},
				SimpleName: b.name,
				PackageURI: BuiltinURI,
				Nullable:   b.rt.Kind() == reflect.Interface,
			}))
		}
		builtinLib = NewLibrary(BuiltinURI, Package{Name: HostPackage}, decls)
	})
	return builtinLib
}

// Builtins returns the predeclared type declarations.
func Builtins() []TypeDeclaration {
	return BuiltinLibrary().Types()
}

// BuiltinKind classifies a predeclared type name; ok is false for other names.
func BuiltinKind(name string) (TypeKind, reflect.Type, bool) {
	if name == "byte" {
		name = "uint8"
	}
	if name == "rune" {
		name = "int32"
	}
	for _, b := range builtinTypes() {
		if b.name == name {
			return b.kind, b.rt, true
		}
	}
	return "", nil, false
}

// IsHost reports whether a package name denotes the standard library or
// the builtin pseudo-package.
func IsHost(name string) bool {
	return name == HostPackage || name == BuiltinURI
}
