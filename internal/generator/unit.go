package generator

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"reflect"
	"strings"
	"unicode"

	"github.com/conduit-lang/mirror/internal/introspect"
	"github.com/conduit-lang/mirror/internal/introspect/syntax"
	"github.com/conduit-lang/mirror/runtime/decl"
)

// unit holds the state of one unit's generation.
type unit struct {
	uri     string
	info    introspect.Unit
	backend introspect.DynamicBackend
	live    introspect.LiveModule
	lib     introspect.StaticLibrary
	host    bool

	links    *LinkBuilder
	keywords syntax.Keywords

	liveTypes  map[string]introspect.LiveType
	liveFuncs  map[string]introspect.LiveFunc
	liveValues map[string]introspect.LiveValue

	generated  map[string]decl.TypeDeclaration
	enumValues map[string]bool
	consumed   map[string]bool
	decls      []decl.Declaration
}

func newUnit(uri string, info introspect.Unit, backend introspect.DynamicBackend) *unit {
	u := &unit{
		uri:        uri,
		info:       info,
		backend:    backend,
		keywords:   syntax.Keywords{},
		liveTypes:  make(map[string]introspect.LiveType),
		liveFuncs:  make(map[string]introspect.LiveFunc),
		liveValues: make(map[string]introspect.LiveValue),
		generated:  make(map[string]decl.TypeDeclaration),
		enumValues: make(map[string]bool),
		consumed:   make(map[string]bool),
	}
	var typeOf TypeLookup
	if backend != nil {
		typeOf = backend.TypeOf
		if mod, ok := backend.Module(uri); ok {
			u.live = mod
			for _, t := range mod.Types() {
				u.liveTypes[t.Name] = t
			}
			for _, f := range mod.Funcs() {
				u.liveFuncs[f.Name] = f
			}
			for _, v := range mod.Values() {
				u.liveValues[v.Name] = v
			}
		}
	}
	u.links = NewLinkBuilder(uri, typeOf)
	return u
}

// scanKeywords reads the unit's files for textual modifier directives.
func (u *unit) scanKeywords(ctx context.Context) error {
	if len(u.info.Files) == 0 {
		return nil
	}
	kw, err := syntax.NewScanner().ScanFiles(ctx, u.info.Files)
	if err != nil {
		return err
	}
	u.keywords = kw
	return nil
}

func (u *unit) generate(ctx context.Context) *decl.Library {
	typeNames, funcNames, valueNames := u.partition()
	ctors := u.constructorCandidates(typeNames, funcNames)

	var erased []introspect.LiveType
	for _, name := range typeNames {
		if isErased(name) {
			erased = append(erased, u.liveTypes[name])
			continue
		}
		d := u.typeDeclaration(name, ctors[name])
		u.generated[name] = d
		u.decls = append(u.decls, d)
	}
	for _, lt := range erased {
		u.decls = append(u.decls, u.recoverErased(lt))
	}
	for _, name := range funcNames {
		if !u.consumed[name] {
			u.decls = append(u.decls, u.function(name))
		}
	}
	for _, name := range valueNames {
		if !u.enumValues[name] {
			u.decls = append(u.decls, u.variable(name))
		}
	}
	pkg := u.info.Package
	if pkg.Name == "" && u.host {
		pkg.Name = decl.HostPackage
	}
	return decl.NewLibrary(u.uri, pkg, u.decls)
}

// partition lists type, func and value names: static names in source order
// first, then names only the live backend knows.
func (u *unit) partition() (typeNames, funcNames, valueNames []string) {
	seen := make(map[string]bool)
	if u.lib != nil {
		for _, name := range u.lib.Names() {
			switch u.lib.Lookup(name).(type) {
			case *types.TypeName:
				typeNames = append(typeNames, name)
			case *types.Func:
				funcNames = append(funcNames, name)
			case *types.Var, *types.Const:
				valueNames = append(valueNames, name)
			default:
				continue
			}
			seen[name] = true
		}
	}
	if u.live == nil {
		return typeNames, funcNames, valueNames
	}
	for _, t := range u.live.Types() {
		if !seen[t.Name] {
			seen[t.Name] = true
			typeNames = append(typeNames, t.Name)
		}
	}
	for _, f := range u.live.Funcs() {
		if !seen[f.Name] {
			seen[f.Name] = true
			funcNames = append(funcNames, f.Name)
		}
	}
	for _, v := range u.live.Values() {
		if !seen[v.Name] {
			seen[v.Name] = true
			valueNames = append(valueNames, v.Name)
		}
	}
	return typeNames, funcNames, valueNames
}

// constructorCandidates maps type names to the New<Type>[Suffix] funcs that
// return the type. The longest matching type name wins.
func (u *unit) constructorCandidates(typeNames, funcNames []string) map[string][]string {
	out := make(map[string][]string)
	for _, fn := range funcNames {
		rest, ok := strings.CutPrefix(fn, "New")
		if !ok {
			continue
		}
		owner := ""
		for _, tn := range typeNames {
			if isErased(tn) || len(tn) <= len(owner) {
				continue
			}
			suffix, ok := strings.CutPrefix(rest, tn)
			if !ok || (suffix != "" && !unicode.IsUpper(rune(suffix[0]))) {
				continue
			}
			if u.returnsType(fn, tn) {
				owner = tn
			}
		}
		if owner != "" {
			out[owner] = append(out[owner], fn)
		}
	}
	return out
}

func (u *unit) returnsType(fn, typeName string) bool {
	if u.lib != nil {
		if f, ok := u.lib.Lookup(fn).(*types.Func); ok {
			results := f.Type().(*types.Signature).Results()
			if results.Len() == 0 || results.Len() > 2 {
				return false
			}
			if results.Len() == 2 && !isErrorType(results.At(1).Type()) {
				return false
			}
			t := results.At(0).Type()
			if p, ok := t.(*types.Pointer); ok {
				t = p.Elem()
			}
			n, ok := types.Unalias(t).(*types.Named)
			return ok && n.Obj().Name() == typeName && n.Obj().Pkg() == f.Pkg()
		}
	}
	lf, ok := u.liveFuncs[fn]
	if !ok {
		return false
	}
	ft := lf.Func.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return false
	}
	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return false
	}
	rt := ft.Out(0)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.Name() == typeName
}

func (u *unit) typeDeclaration(name string, ctors []string) decl.TypeDeclaration {
	if u.lib != nil {
		if obj, ok := u.lib.Lookup(name).(*types.TypeName); ok {
			return u.staticType(obj, ctors)
		}
	}
	return u.liveType(u.liveTypes[name], ctors)
}

// liveTypeOf returns the live identity registered for name in this unit.
func (u *unit) liveTypeOf(name string) reflect.Type {
	if lt, ok := u.liveTypes[name]; ok {
		return lt.Type
	}
	if u.backend != nil {
		if rt, ok := u.backend.TypeOf(u.uri, name); ok {
			return rt
		}
	}
	return nil
}

func (u *unit) position(pos token.Pos) decl.SourceLocation {
	if u.lib == nil || !pos.IsValid() {
		return decl.SourceLocation{}
	}
	p := u.lib.Fset().Position(pos)
	return decl.SourceLocation{URI: p.Filename, Line: p.Line, Column: p.Column}
}

func (u *unit) doc(name string) string {
	if u.lib == nil {
		return ""
	}
	return u.lib.Doc(name)
}

func (u *unit) selfLink(info decl.TypeInfo, kind decl.TypeKind) *decl.Link {
	return decl.NewLink(decl.LinkInfo{
		Type:          info.Type,
		Name:          info.SimpleName,
		CanonicalURI:  u.uri,
		ReferenceURI:  u.uri,
		TypeArguments: info.TypeArguments,
		Kind:          kind,
		Nullable:      info.Nullable,
	})
}

func (u *unit) staticTypeInfo(obj *types.TypeName) decl.TypeInfo {
	name := obj.Name()
	var annotations []*decl.Annotation
	annotations = append(annotations, u.docAnnotations(u.doc(name))...)
	if lt, ok := u.liveTypes[name]; ok {
		annotations = append(annotations, u.liveAnnotations(lt.Annotations)...)
	}
	return decl.TypeInfo{
		EntityInfo: decl.EntityInfo{
			Name:        name,
			Type:        u.liveTypeOf(name),
			Public:      obj.Exported(),
			Element:     obj,
			StaticType:  obj.Type(),
			LibraryURI:  u.uri,
			Annotations: annotations,
			Location:    u.position(obj.Pos()),
		},
		SimpleName: name,
		PackageURI: u.uri,
		Nullable:   isNullable(obj.Type()),
	}
}

// staticType builds a declaration from the analysis element, taking only
// the identity and annotations from the live side.
func (u *unit) staticType(obj *types.TypeName, ctors []string) decl.TypeDeclaration {
	name := obj.Name()
	info := u.staticTypeInfo(obj)

	if obj.IsAlias() {
		target := types.Unalias(obj.Type())
		if st, ok := target.(*types.Struct); ok {
			return u.staticRecord(info, st, info.Type)
		}
		return decl.NewTypedef(info, shallow(u.links.FromStatic(target)))
	}

	named, ok := obj.Type().(*types.Named)
	if !ok {
		return decl.NewTypedef(info, shallow(u.links.FromStatic(obj.Type())))
	}
	info.TypeArguments = u.typeParams(named.TypeParams())

	under := named.Underlying()
	if sig, ok := under.(*types.Signature); ok {
		return decl.NewTypedef(info, shallow(u.links.FromStatic(sig)))
	}

	if spec := u.lib.Spec(name); spec != nil && isForeign(spec) {
		self := u.selfLink(info, decl.KindExtension)
		on := u.links.FromStatic(u.lib.Info().TypeOf(spec.Type))
		var fields []*decl.FieldDeclaration
		if st, ok := under.(*types.Struct); ok {
			fields, _ = u.staticFields(self, name, st, info.Type)
		}
		return decl.NewExtension(info, on, fields, u.staticMethods(self, named, info.Type))
	}

	if _, ok := under.(*types.Basic); ok && hasConstants(named) {
		self := u.selfLink(info, decl.KindEnum)
		return decl.NewEnum(info, decl.EnumBody{
			Values:  u.staticEnumValues(self, named),
			Methods: u.staticMethods(self, named, info.Type),
		})
	}

	super, mixins, ifaces := u.staticSupertypes(named)

	if st, ok := under.(*types.Struct); ok && u.isMixin(name) {
		info.Interfaces = u.implemented(named)
		self := u.selfLink(info, decl.KindMixin)
		fields, _ := u.staticFields(self, name, st, info.Type)
		return decl.NewMixin(info, decl.MixinBody{
			Fields:  fields,
			Methods: u.staticMethods(self, named, info.Type),
			On:      ifaces,
		})
	}

	info.SuperClass = super
	info.Mixins = mixins
	info.Interfaces = appendUnique(ifaces, u.implemented(named)...)
	self := u.selfLink(info, decl.KindClass)

	body := decl.ClassBody{
		Constructors: u.constructors(self, name, ctors),
		Methods:      u.staticMethods(self, named, info.Type),
		Modifiers:    u.modifiers(name, staticModifiers(named), true),
	}
	if st, ok := under.(*types.Struct); ok {
		body.Fields, body.Records = u.staticFields(self, name, st, info.Type)
	}
	return decl.NewClass(info, body)
}

func (u *unit) typeParams(tparams *types.TypeParamList) []*decl.Link {
	if tparams == nil {
		return nil
	}
	out := make([]*decl.Link, 0, tparams.Len())
	for i := 0; i < tparams.Len(); i++ {
		out = append(out, u.links.FromStatic(tparams.At(i)))
	}
	return out
}

// staticSupertypes reads embedded fields: the first embedded struct is the
// superclass, further embedded structs are mixins and embedded interfaces
// are interfaces.
func (u *unit) staticSupertypes(named *types.Named) (super *decl.Link, mixins, ifaces []*decl.Link) {
	switch under := named.Underlying().(type) {
	case *types.Struct:
		for i := 0; i < under.NumFields(); i++ {
			f := under.Field(i)
			if !f.Embedded() {
				continue
			}
			t := f.Type()
			if p, ok := t.(*types.Pointer); ok {
				t = p.Elem()
			}
			l := u.links.FromStatic(t)
			switch {
			case l == nil:
			case types.IsInterface(t):
				ifaces = append(ifaces, l)
			case super == nil:
				super = l
			default:
				mixins = append(mixins, l)
			}
		}
	case *types.Interface:
		for i := 0; i < under.NumEmbeddeds(); i++ {
			if l := u.links.FromStatic(under.EmbeddedType(i)); l != nil {
				ifaces = append(ifaces, l)
			}
		}
	}
	return super, mixins, ifaces
}

// implemented lists the unit's non-empty, non-generic interfaces that T or
// *T implements.
func (u *unit) implemented(named *types.Named) []*decl.Link {
	if types.IsInterface(named) || named.TypeParams().Len() > 0 {
		return nil
	}
	var out []*decl.Link
	for _, name := range u.lib.Names() {
		tn, ok := u.lib.Lookup(name).(*types.TypeName)
		if !ok || tn == named.Obj() || tn.IsAlias() {
			continue
		}
		in, ok := tn.Type().(*types.Named)
		if !ok || in.TypeParams().Len() > 0 {
			continue
		}
		iface, ok := in.Underlying().(*types.Interface)
		if !ok || iface.Empty() {
			continue
		}
		if types.Implements(named, iface) || types.Implements(types.NewPointer(named), iface) {
			if l := u.links.FromStatic(in); l != nil {
				out = append(out, l)
			}
		}
	}
	return out
}

func (u *unit) staticEnumValues(self *decl.Link, named *types.Named) []*decl.FieldDeclaration {
	var values []*decl.FieldDeclaration
	for _, name := range u.lib.Names() {
		c, ok := u.lib.Lookup(name).(*types.Const)
		if !ok || !types.Identical(c.Type(), named) {
			continue
		}
		u.enumValues[name] = true
		values = append(values, decl.NewField(decl.FieldInfo{
			EntityInfo: decl.EntityInfo{
				Name:        name,
				Type:        u.liveTypeOf(named.Obj().Name()),
				Public:      c.Exported(),
				Element:     c,
				StaticType:  c.Type(),
				LibraryURI:  u.uri,
				Annotations: u.docAnnotations(u.doc(name)),
				Location:    u.position(c.Pos()),
			},
			Owner:     self,
			FieldType: self,
			Modifiers: decl.FieldModifiers{Final: true, Const: true, Static: true},
			Value:     constantValue(c),
			HasValue:  true,
		}))
	}
	return values
}

func (u *unit) staticRecord(info decl.TypeInfo, st *types.Struct, rt reflect.Type) *decl.RecordDeclaration {
	self := u.selfLink(info, decl.KindRecord)
	fields, _ := u.staticFields(self, info.SimpleName, st, rt)
	return decl.NewRecord(info, nil, fields)
}

func (u *unit) isMixin(name string) bool {
	return u.keywords.Has(name, syntax.Mixin) || hasDirective(u.doc(name), syntax.Mixin)
}

// staticModifiers derives class modifiers from structure alone.
func staticModifiers(named *types.Named) decl.Modifiers {
	var m decl.Modifiers
	switch under := named.Underlying().(type) {
	case *types.Interface:
		m.Interface = true
		m.Abstract = true
		for i := 0; i < under.NumMethods(); i++ {
			if !under.Method(i).Exported() {
				m.Sealed = true
			}
		}
	case *types.Struct:
		n := under.NumFields()
		embedded, exported := 0, 0
		for i := 0; i < n; i++ {
			if under.Field(i).Embedded() {
				embedded++
			} else if under.Field(i).Exported() {
				exported++
			}
		}
		m.MixinApplication = n > 0 && embedded == n
		m.RecordClass = n > 0 && exported == n && named.NumMethods() == 0
	}
	return m
}

// modifiers applies textual directives over the structural modifiers.
// final and base always apply; sealed and interface only apply when the
// type has no static element to derive them from.
func (u *unit) modifiers(name string, m decl.Modifiers, hasStatic bool) decl.Modifiers {
	if u.keywords.Has(name, syntax.Final) {
		m.Final = true
	}
	if u.keywords.Has(name, syntax.Base) {
		m.Base = true
	}
	if hasStatic {
		return m
	}
	if u.keywords.Has(name, syntax.Sealed) {
		m.Sealed = true
	}
	if u.keywords.Has(name, syntax.Interface) {
		m.Interface = true
		m.Abstract = true
	}
	return m
}

// recoverErased adopts the generic declaration behind an erased live
// identity: the GenericOverride annotation names it first, then the base
// of the reported name is looked up among the unit's declarations.
func (u *unit) recoverErased(lt introspect.LiveType) decl.TypeDeclaration {
	raw := lt.Type.Name()
	base, argNames, _ := decl.SplitGeneric(raw)
	candidates := []string{base}
	if o, ok := genericOverride(lt.Annotations); ok {
		candidates = append([]string{o.Name}, candidates...)
		if len(o.Arguments) > 0 {
			argNames = o.Arguments
		}
	}
	for _, name := range candidates {
		d, ok := u.generated[name]
		if !ok {
			continue
		}
		args := make([]*decl.Link, 0, len(argNames))
		for _, a := range argNames {
			args = append(args, u.links.FromName(a))
		}
		return decl.Recover(d, lt.Type, raw, args)
	}
	return u.liveType(lt, nil)
}

func genericOverride(annotations []any) (decl.GenericOverride, bool) {
	for _, a := range annotations {
		switch o := a.(type) {
		case decl.GenericOverride:
			return o, true
		case *decl.GenericOverride:
			if o != nil {
				return *o, true
			}
		}
	}
	return decl.GenericOverride{}, false
}

func isErased(name string) bool {
	return strings.ContainsAny(name, "[<")
}

// isForeign reports whether a type spec defines a type over a type from
// another package.
func isForeign(spec *ast.TypeSpec) bool {
	if spec.Assign.IsValid() {
		return false
	}
	t := spec.Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	_, ok := t.(*ast.SelectorExpr)
	return ok
}

func isNullable(t types.Type) bool {
	switch types.Unalias(t).Underlying().(type) {
	case *types.Pointer, *types.Interface, *types.Map, *types.Slice, *types.Chan, *types.Signature:
		return true
	}
	return false
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func shallow(l *decl.Link) decl.TypeDeclaration {
	if l == nil {
		return nil
	}
	return decl.BasicFromLink(l)
}

func appendUnique(links []*decl.Link, more ...*decl.Link) []*decl.Link {
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		seen[l.QualifiedName()] = true
	}
	for _, l := range more {
		if !seen[l.QualifiedName()] {
			seen[l.QualifiedName()] = true
			links = append(links, l)
		}
	}
	return links
}

func isExported(name string) bool {
	return token.IsExported(name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
