// Package introspect defines the capabilities the metadata generator
// consumes: a project scanner that yields compilation units, a dynamic
// backend over live reflect data, and a static backend over declared source.
package introspect

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"reflect"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// Unit is one compilation unit: a Go package directory.
type Unit struct {
	ImportPath string       `json:"import_path"`
	Dir        string       `json:"dir"`
	Files      []string     `json:"files"`
	Package    decl.Package `json:"package"`
}

// ProjectScanner discovers compilation units.
type ProjectScanner interface {
	DiscoverUnits(ctx context.Context) ([]Unit, error)
	UnitToModuleURI(unit Unit) string
}

// LiveType is a type known to the dynamic backend.
type LiveType struct {
	Name        string
	Type        reflect.Type
	Annotations []any
}

// LiveFunc is a package-level function known to the dynamic backend.
type LiveFunc struct {
	Name        string
	Func        reflect.Value
	Annotations []any
}

// LiveValue is a package-level variable or constant.
type LiveValue struct {
	Name  string
	Value reflect.Value
	Const bool
}

// LiveModule enumerates the live entries registered for one package.
type LiveModule interface {
	URI() string
	Types() []LiveType
	Funcs() []LiveFunc
	Values() []LiveValue
}

// DynamicBackend inspects loaded program structures.
type DynamicBackend interface {
	Modules() []string
	Module(uri string) (LiveModule, bool)
	// TypeOf resolves a live identity by package and simple name.
	TypeOf(pkg, name string) (reflect.Type, bool)
	// InstantiateAnnotation builds a live annotation value from a registered
	// prototype, overriding the given field values. ok is false when no
	// prototype is registered under name.
	InstantiateAnnotation(name string, values map[string]any) (instance any, ok bool, err error)
}

// StaticLibrary is the static-analysis handle of one package.
type StaticLibrary interface {
	URI() string
	Package() *types.Package
	Info() *types.Info
	Fset() *token.FileSet
	// Lookup resolves a package-scope object by name.
	Lookup(name string) types.Object
	// Names returns package-scope names in source order.
	Names() []string
	// Spec returns the declaring type spec of a type name.
	Spec(name string) *ast.TypeSpec
	// Doc returns the doc comment of a type, func, var or const. Method
	// docs are keyed "Type.Method".
	Doc(name string) string
	// Files returns the absolute paths of the package's Go files.
	Files() []string
}

// StaticBackend resolves packages for static analysis. A nil library with
// a nil error means the package is unknown to the backend.
type StaticBackend interface {
	Library(ctx context.Context, uri string) (StaticLibrary, error)
}
