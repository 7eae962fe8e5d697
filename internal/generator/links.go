package generator

import (
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// TypeLookup resolves a live identity by package path and simple name.
type TypeLookup func(pkg, name string) (reflect.Type, bool)

// LinkBuilder builds Links for one unit. Every link is memoised by its
// structural key (canonical URI, name and display string). A key that is
// requested again while it is still being built yields no link, which ends
// self-referential generics and mutually recursive type graphs.
//
// A LinkBuilder is not safe for concurrent use.
type LinkBuilder struct {
	uri        string
	typeOf     TypeLookup
	inProgress map[string]bool
	memo       map[string]*decl.Link

	omitted    int
	unresolved int
}

// NewLinkBuilder creates a builder for links seen from the package uri.
// typeOf may be nil.
func NewLinkBuilder(uri string, typeOf TypeLookup) *LinkBuilder {
	if typeOf == nil {
		typeOf = func(string, string) (reflect.Type, bool) { return nil, false }
	}
	return &LinkBuilder{
		uri:        uri,
		typeOf:     typeOf,
		inProgress: make(map[string]bool),
		memo:       make(map[string]*decl.Link),
	}
}

// Omitted returns the number of edges dropped to break a cycle.
func (b *LinkBuilder) Omitted() int { return b.omitted }

// Unresolved returns the number of names that matched no known type.
func (b *LinkBuilder) Unresolved() int { return b.unresolved }

func (b *LinkBuilder) guard(key string, build func() *decl.Link) *decl.Link {
	if l, ok := b.memo[key]; ok {
		return l
	}
	if b.inProgress[key] {
		b.omitted++
		return nil
	}
	b.inProgress[key] = true
	l := build()
	delete(b.inProgress, key)
	if l != nil {
		b.memo[key] = l
	}
	return l
}

func structuralKey(uri, name, display string) string {
	return uri + "|" + name + "|" + display
}

// FromStatic builds a link from an analysis-level type.
func (b *LinkBuilder) FromStatic(t types.Type) *decl.Link {
	if t == nil {
		return nil
	}
	if p, ok := t.(*types.Pointer); ok {
		if l := b.FromStatic(p.Elem()); l != nil {
			return l.WithNullable(true)
		}
		return nil
	}
	if tp, ok := t.(*types.TypeParam); ok {
		return b.typeParam(tp)
	}

	s := staticShape(t)
	key := structuralKey(s.uri, s.name, staticDisplay(t))
	return b.guard(key, func() *decl.Link {
		args := make([]*decl.Link, 0, len(s.args))
		for _, arg := range s.args {
			args = append(args, b.FromStatic(arg))
		}
		var rt reflect.Type
		if s.builtin {
			_, rt, _ = decl.BuiltinKind(s.name)
		} else if s.named && len(s.args) == 0 {
			rt, _ = b.typeOf(s.uri, s.name)
		}
		return decl.NewLink(decl.LinkInfo{
			Type:          rt,
			Name:          s.name,
			CanonicalURI:  s.uri,
			ReferenceURI:  b.uri,
			TypeArguments: args,
			Kind:          s.kind,
			Nullable:      s.nullable,
		})
	})
}

// typeParam keys a type parameter by name, index and declaring position so
// parameters of different declarations never share a memo entry.
func (b *LinkBuilder) typeParam(tp *types.TypeParam) *decl.Link {
	obj := tp.Obj()
	uri := ""
	if obj.Pkg() != nil {
		uri = obj.Pkg().Path()
	}
	key := structuralKey(uri, fmt.Sprintf("%s#%d@%d", obj.Name(), tp.Index(), obj.Pos()), obj.Name())
	return b.guard(key, func() *decl.Link {
		var bound *decl.Link
		if c := tp.Constraint(); c != nil && !isEmptyInterface(c) {
			bound = b.FromStatic(c)
		}
		return decl.NewLink(decl.LinkInfo{
			Name:         obj.Name(),
			CanonicalURI: uri,
			ReferenceURI: b.uri,
			Variance:     decl.Invariant,
			UpperBound:   bound,
			Kind:         decl.KindTypeVariable,
		})
	})
}

// FromLive builds a link from a live identity. Erased generic names are
// decomposed and their arguments resolved by name.
func (b *LinkBuilder) FromLive(rt reflect.Type) *decl.Link {
	if rt == nil {
		return nil
	}
	if rt.Kind() == reflect.Pointer {
		if l := b.FromLive(rt.Elem()); l != nil {
			return l.WithNullable(true)
		}
		return nil
	}

	s := liveShape(rt)
	key := structuralKey(s.uri, s.name, liveDisplay(rt))
	return b.guard(key, func() *decl.Link {
		var args []*decl.Link
		for _, arg := range s.args {
			args = append(args, b.FromLive(arg))
		}
		for _, name := range s.argNames {
			args = append(args, b.FromName(name))
		}
		info := decl.LinkInfo{
			Name:          s.name,
			CanonicalURI:  s.uri,
			ReferenceURI:  b.uri,
			TypeArguments: args,
			Kind:          s.kind,
			Nullable:      s.nullable,
		}
		if s.named || s.builtin {
			info.Type = rt
		}
		return decl.NewLink(info)
	})
}

// FromName resolves a qualified or simple type name, optionally generic in
// either "Box<T>" or "Box[T]" form. Names that match nothing produce a
// name-only link.
func (b *LinkBuilder) FromName(name string) *decl.Link {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return b.guard("name|"+name, func() *decl.Link {
		base, argNames, generic := decl.SplitGeneric(name)
		pkg, simple := decl.SplitQualified(base)
		if pkg == "" {
			if kind, rt, ok := decl.BuiltinKind(simple); ok {
				return decl.NewLink(decl.LinkInfo{
					Type:         rt,
					Name:         simple,
					CanonicalURI: decl.BuiltinURI,
					ReferenceURI: b.uri,
					Kind:         kind,
					Nullable:     rt.Kind() == reflect.Interface,
				})
			}
		}
		lookupPkg := pkg
		if lookupPkg == "" {
			lookupPkg = b.uri
		}
		rt, found := b.typeOf(lookupPkg, simple)
		if found && !generic {
			return b.FromLive(rt)
		}
		var args []*decl.Link
		for _, a := range argNames {
			args = append(args, b.FromName(a))
		}
		if !found {
			b.unresolved++
		}
		return decl.NewLink(decl.LinkInfo{
			Type:          rt,
			Name:          simple,
			CanonicalURI:  pkg,
			ReferenceURI:  b.uri,
			TypeArguments: args,
			Kind:          decl.KindUnknown,
		})
	})
}

// Void is the return type link of functions without results.
func (b *LinkBuilder) Void() *decl.Link {
	return decl.NewLink(decl.LinkInfo{
		Name:         "void",
		CanonicalURI: decl.BuiltinURI,
		ReferenceURI: b.uri,
		Kind:         decl.KindVoid,
	})
}

type shape struct {
	name     string
	uri      string
	kind     decl.TypeKind
	nullable bool
	named    bool
	builtin  bool
	args     []types.Type
}

func staticShape(t types.Type) shape {
	switch t := t.(type) {
	case *types.Alias:
		obj := t.Obj()
		if obj.Pkg() != nil && obj.Parent() == obj.Pkg().Scope() {
			return shape{name: obj.Name(), uri: obj.Pkg().Path(), kind: decl.KindTypedef, named: true}
		}
		return staticShape(types.Unalias(t))
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() == nil {
			return shape{name: obj.Name(), uri: decl.BuiltinURI, kind: decl.KindClass, nullable: true, builtin: true}
		}
		s := shape{name: obj.Name(), uri: obj.Pkg().Path(), kind: namedKind(t), named: true}
		if _, ok := t.Underlying().(*types.Interface); ok {
			s.nullable = true
		}
		for i := 0; i < t.TypeArgs().Len(); i++ {
			s.args = append(s.args, t.TypeArgs().At(i))
		}
		return s
	case *types.Basic:
		b := types.Default(t).(*types.Basic)
		kind, _, ok := decl.BuiltinKind(b.Name())
		if !ok {
			kind = decl.KindPrimitive
		}
		return shape{name: b.Name(), uri: decl.BuiltinURI, kind: kind, builtin: ok}
	case *types.Slice:
		if isByte(t.Elem()) {
			return shape{name: "[]byte", uri: decl.BuiltinURI, kind: decl.KindTypedData, nullable: true}
		}
		return shape{name: "slice", uri: decl.BuiltinURI, kind: decl.KindList, nullable: true, args: []types.Type{t.Elem()}}
	case *types.Array:
		return shape{name: "array", uri: decl.BuiltinURI, kind: decl.KindList, args: []types.Type{t.Elem()}}
	case *types.Map:
		return shape{name: "map", uri: decl.BuiltinURI, kind: decl.KindMap, nullable: true, args: []types.Type{t.Key(), t.Elem()}}
	case *types.Chan:
		return shape{name: "chan", uri: decl.BuiltinURI, kind: decl.KindAsync, nullable: true, args: []types.Type{t.Elem()}}
	case *types.Signature:
		s := shape{name: "func", uri: decl.BuiltinURI, kind: decl.KindFunction, nullable: true}
		s.args = append(tupleTypes(t.Params()), tupleTypes(t.Results())...)
		return s
	case *types.Tuple:
		return shape{name: "tuple", uri: decl.BuiltinURI, kind: decl.KindRecord, args: tupleTypes(t)}
	case *types.Struct:
		return shape{name: "struct", uri: decl.BuiltinURI, kind: decl.KindRecord}
	case *types.Interface:
		if t.Empty() {
			return shape{name: "any", uri: decl.BuiltinURI, kind: decl.KindDynamic, nullable: true, builtin: true}
		}
		return shape{name: "interface", uri: decl.BuiltinURI, kind: decl.KindClass, nullable: true}
	case *types.TypeParam:
		return shape{name: t.Obj().Name(), kind: decl.KindTypeVariable}
	}
	return shape{name: t.String(), kind: decl.KindUnknown}
}

// staticDisplay renders t the way Link.Display renders the link built
// from it, so keys can be computed before building.
func staticDisplay(t types.Type) string {
	if p, ok := t.(*types.Pointer); ok {
		return staticDisplay(p.Elem())
	}
	s := staticShape(t)
	if len(s.args) == 0 {
		return s.name
	}
	parts := make([]string, len(s.args))
	for i, arg := range s.args {
		parts[i] = staticDisplay(arg)
	}
	return s.name + "[" + strings.Join(parts, ", ") + "]"
}

func tupleTypes(t *types.Tuple) []types.Type {
	if t == nil {
		return nil
	}
	out := make([]types.Type, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.At(i).Type()
	}
	return out
}

func isByte(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Kind() == types.Byte
}

func isEmptyInterface(t types.Type) bool {
	i, ok := t.Underlying().(*types.Interface)
	return ok && i.Empty()
}

// namedKind classifies a named type the same way the generator classifies
// its declaration.
func namedKind(n *types.Named) decl.TypeKind {
	switch n.Underlying().(type) {
	case *types.Signature:
		return decl.KindTypedef
	case *types.Basic:
		if hasConstants(n) {
			return decl.KindEnum
		}
	}
	return decl.KindClass
}

func hasConstants(n *types.Named) bool {
	pkg := n.Obj().Pkg()
	if pkg == nil {
		return false
	}
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		if c, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(c.Type(), n) {
			return true
		}
	}
	return false
}

type liveShapeInfo struct {
	name     string
	uri      string
	kind     decl.TypeKind
	nullable bool
	named    bool
	builtin  bool
	args     []reflect.Type
	argNames []string
}

func liveShape(rt reflect.Type) liveShapeInfo {
	if rt.Name() != "" {
		if rt.PkgPath() == "" {
			kind, _, ok := decl.BuiltinKind(rt.Name())
			if !ok {
				kind = decl.KindPrimitive
			}
			return liveShapeInfo{name: rt.Name(), uri: decl.BuiltinURI, kind: kind, builtin: true, nullable: rt.Kind() == reflect.Interface}
		}
		s := liveShapeInfo{name: rt.Name(), uri: rt.PkgPath(), kind: liveKind(rt), named: true, nullable: rt.Kind() == reflect.Interface}
		if base, args, ok := decl.SplitGeneric(rt.Name()); ok {
			s.name = base
			s.argNames = args
		}
		return s
	}
	switch rt.Kind() {
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return liveShapeInfo{name: "[]byte", uri: decl.BuiltinURI, kind: decl.KindTypedData, nullable: true}
		}
		return liveShapeInfo{name: "slice", uri: decl.BuiltinURI, kind: decl.KindList, nullable: true, args: []reflect.Type{rt.Elem()}}
	case reflect.Array:
		return liveShapeInfo{name: "array", uri: decl.BuiltinURI, kind: decl.KindList, args: []reflect.Type{rt.Elem()}}
	case reflect.Map:
		return liveShapeInfo{name: "map", uri: decl.BuiltinURI, kind: decl.KindMap, nullable: true, args: []reflect.Type{rt.Key(), rt.Elem()}}
	case reflect.Chan:
		return liveShapeInfo{name: "chan", uri: decl.BuiltinURI, kind: decl.KindAsync, nullable: true, args: []reflect.Type{rt.Elem()}}
	case reflect.Func:
		s := liveShapeInfo{name: "func", uri: decl.BuiltinURI, kind: decl.KindFunction, nullable: true}
		for i := 0; i < rt.NumIn(); i++ {
			s.args = append(s.args, rt.In(i))
		}
		for i := 0; i < rt.NumOut(); i++ {
			s.args = append(s.args, rt.Out(i))
		}
		return s
	case reflect.Struct:
		return liveShapeInfo{name: "struct", uri: decl.BuiltinURI, kind: decl.KindRecord}
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return liveShapeInfo{name: "any", uri: decl.BuiltinURI, kind: decl.KindDynamic, nullable: true, builtin: true}
		}
		return liveShapeInfo{name: "interface", uri: decl.BuiltinURI, kind: decl.KindClass, nullable: true}
	}
	return liveShapeInfo{name: rt.String(), kind: decl.KindUnknown}
}

func liveDisplay(rt reflect.Type) string {
	if rt.Kind() == reflect.Pointer {
		return liveDisplay(rt.Elem())
	}
	s := liveShape(rt)
	var parts []string
	for _, arg := range s.args {
		parts = append(parts, liveDisplay(arg))
	}
	for _, name := range s.argNames {
		parts = append(parts, decl.SimpleName(name))
	}
	if len(parts) == 0 {
		return s.name
	}
	return s.name + "[" + strings.Join(parts, ", ") + "]"
}

func liveKind(rt reflect.Type) decl.TypeKind {
	if rt.Kind() == reflect.Func {
		return decl.KindTypedef
	}
	return decl.KindClass
}
