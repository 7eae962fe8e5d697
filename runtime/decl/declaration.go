package decl

import (
	"go/types"
	"reflect"
	"strings"
)

// Declaration is the root of the declaration model.
type Declaration interface {
	Name() string
	// Type returns the live identity of the declared entity, or nil when
	// only the static side knows it.
	Type() reflect.Type
	IsPublic() bool
	IsSynthetic() bool
	// DebugIdentifier is a stable string used for equality, cache keys and
	// cycle-guard keys.
	DebugIdentifier() string
	ToJSON() map[string]any
}

// EntityDeclaration adds the optional static-analysis view of a declaration.
type EntityDeclaration interface {
	Declaration
	Element() types.Object
	StaticType() types.Type
	HasAnalyzerSupport() bool
}

// SourceDeclaration is an entity that lives in a library.
type SourceDeclaration interface {
	EntityDeclaration
	LibraryURI() string
	Annotations() []*Annotation
	Location() SourceLocation
}

// TypeDeclaration is implemented by every type-like declaration.
type TypeDeclaration interface {
	SourceDeclaration
	QualifiedName() string
	SimpleName() string
	PackageURI() string
	Kind() TypeKind
	IsNullable() bool
	TypeArguments() []*Link
	SuperClass() *Link
	Interfaces() []*Link
	Mixins() []*Link
	IsGeneric() bool
	// ErasedName is the raw live name when the live identity was erased and
	// recovered, and "" otherwise.
	ErasedName() string
	IsAssignableFrom(other TypeDeclaration) bool
	IsAssignableTo(other TypeDeclaration) bool
	// Link returns a reference to this declaration seen from its own package.
	Link() *Link
}

// EntityInfo carries the facts shared by members and top-level entities.
type EntityInfo struct {
	Name        string
	Type        reflect.Type
	Public      bool
	Synthetic   bool
	Element     types.Object
	StaticType  types.Type
	LibraryURI  string
	Annotations []*Annotation
	Location    SourceLocation
}

type entity struct {
	name        string
	rtype       reflect.Type
	public      bool
	synthetic   bool
	element     types.Object
	staticType  types.Type
	libraryURI  string
	annotations []*Annotation
	location    SourceLocation
}

func newEntity(info EntityInfo) entity {
	return entity{
		name:        info.Name,
		rtype:       info.Type,
		public:      info.Public,
		synthetic:   info.Synthetic,
		element:     info.Element,
		staticType:  info.StaticType,
		libraryURI:  info.LibraryURI,
		annotations: copyAnnotations(info.Annotations),
		location:    info.Location,
	}
}

func (e *entity) Name() string               { return e.name }
func (e *entity) Type() reflect.Type         { return e.rtype }
func (e *entity) IsPublic() bool             { return e.public }
func (e *entity) IsSynthetic() bool          { return e.synthetic }
func (e *entity) Element() types.Object      { return e.element }
func (e *entity) StaticType() types.Type     { return e.staticType }
func (e *entity) HasAnalyzerSupport() bool   { return e.element != nil || e.staticType != nil }
func (e *entity) LibraryURI() string         { return e.libraryURI }
func (e *entity) Location() SourceLocation   { return e.location }
func (e *entity) Annotations() []*Annotation { return copyAnnotations(e.annotations) }

// Annotation returns the first annotation with the given name.
func (e *entity) Annotation(name string) (*Annotation, bool) {
	for _, a := range e.annotations {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

func (e *entity) entityJSON(out map[string]any) {
	out["name"] = e.name
	if !e.public {
		out["public"] = false
	}
	if e.synthetic {
		out["synthetic"] = true
	}
	if e.libraryURI != "" {
		out["library"] = e.libraryURI
	}
	if len(e.annotations) > 0 {
		anns := make([]any, len(e.annotations))
		for i, a := range sortedByID(e.annotations) {
			anns[i] = a.ToJSON()
		}
		out["annotations"] = anns
	}
	if !e.location.IsZero() {
		out["location"] = e.location.toJSON()
	}
}

// TypeInfo carries the facts shared by every type declaration.
type TypeInfo struct {
	EntityInfo
	SimpleName string
	PackageURI string
	// QualifiedName overrides <PackageURI>.<SimpleName>, used for
	// synthesized generic specialisations.
	QualifiedName string
	Nullable      bool
	TypeArguments []*Link
	SuperClass    *Link
	Interfaces    []*Link
	Mixins        []*Link
	ErasedName    string
}

type typeBase struct {
	entity
	kind          TypeKind
	simpleName    string
	packageURI    string
	qualifiedName string
	nullable      bool
	typeArguments []*Link
	superClass    *Link
	interfaces    []*Link
	mixins        []*Link
	erasedName    string
}

func newTypeBase(kind TypeKind, info TypeInfo) typeBase {
	simple := info.SimpleName
	if simple == "" {
		simple = info.Name
	}
	if info.Name == "" {
		info.Name = simple
	}
	qualified := info.QualifiedName
	if qualified == "" {
		qualified = QualifiedName(info.PackageURI, simple)
	}
	t := typeBase{
		entity:        newEntity(info.EntityInfo),
		kind:          kind,
		simpleName:    simple,
		packageURI:    info.PackageURI,
		qualifiedName: qualified,
		nullable:      info.Nullable,
		typeArguments: dropNil(info.TypeArguments),
		superClass:    info.SuperClass,
		interfaces:    dropNil(info.Interfaces),
		mixins:        dropNil(info.Mixins),
		erasedName:    info.ErasedName,
	}
	return t
}

func (t *typeBase) Kind() TypeKind          { return t.kind }
func (t *typeBase) SimpleName() string      { return t.simpleName }
func (t *typeBase) PackageURI() string      { return t.packageURI }
func (t *typeBase) QualifiedName() string   { return t.qualifiedName }
func (t *typeBase) IsNullable() bool        { return t.nullable }
func (t *typeBase) TypeArguments() []*Link  { return copyLinks(t.typeArguments) }
func (t *typeBase) SuperClass() *Link       { return t.superClass }
func (t *typeBase) Interfaces() []*Link     { return copyLinks(t.interfaces) }
func (t *typeBase) Mixins() []*Link         { return copyLinks(t.mixins) }
func (t *typeBase) IsGeneric() bool         { return len(t.typeArguments) > 0 }
func (t *typeBase) ErasedName() string      { return t.erasedName }
func (t *typeBase) DebugIdentifier() string { return string(t.kind) + "_" + strings.ToLower(t.simpleName) }

// Link returns a reference to the declaration as seen from its own package.
func (t *typeBase) Link() *Link {
	return NewLink(LinkInfo{
		Type:          t.rtype,
		Name:          t.simpleName,
		QualifiedName: t.qualifiedName,
		CanonicalURI:  t.packageURI,
		ReferenceURI:  t.packageURI,
		TypeArguments: t.typeArguments,
		Kind:          t.kind,
		Nullable:      t.nullable,
	})
}

// supertypes returns the superclass, interfaces and mixins in that order.
func (t *typeBase) supertypes() []*Link {
	var out []*Link
	if t.superClass != nil {
		out = append(out, t.superClass)
	}
	out = append(out, t.interfaces...)
	return append(out, t.mixins...)
}

// IsAssignableFrom is a best-effort check that a value of other can be used
// where this type is expected.
func (t *typeBase) IsAssignableFrom(other TypeDeclaration) bool {
	if other == nil {
		return false
	}
	if t.kind == KindDynamic || t.qualifiedName == other.QualifiedName() {
		return true
	}
	if t.rtype != nil && other.Type() != nil {
		if other.Type().AssignableTo(t.rtype) {
			return true
		}
		if t.rtype.Kind() == reflect.Interface && reflect.PointerTo(other.Type()).Implements(t.rtype) {
			return true
		}
	}
	for _, l := range supertypesOf(other) {
		if l.QualifiedName() == t.qualifiedName || (t.rtype != nil && l.Type() == t.rtype) {
			return true
		}
	}
	return false
}

// IsAssignableTo is the converse of IsAssignableFrom.
func (t *typeBase) IsAssignableTo(other TypeDeclaration) bool {
	if other == nil {
		return false
	}
	if other.Kind() == KindDynamic || other.QualifiedName() == t.qualifiedName {
		return true
	}
	if t.rtype != nil && other.Type() != nil {
		if t.rtype.AssignableTo(other.Type()) {
			return true
		}
		if other.Type().Kind() == reflect.Interface && reflect.PointerTo(t.rtype).Implements(other.Type()) {
			return true
		}
	}
	for _, l := range t.supertypes() {
		if l.Matches(other) {
			return true
		}
	}
	return false
}

func supertypesOf(d TypeDeclaration) []*Link {
	var out []*Link
	if s := d.SuperClass(); s != nil {
		out = append(out, s)
	}
	out = append(out, d.Interfaces()...)
	return append(out, d.Mixins()...)
}

func (t *typeBase) typeJSON(out map[string]any) {
	t.entityJSON(out)
	out["kind"] = string(t.kind)
	out["simple_name"] = t.simpleName
	out["qualified_name"] = t.qualifiedName
	if t.packageURI != "" {
		out["package"] = t.packageURI
	}
	if t.nullable {
		out["nullable"] = true
	}
	if t.erasedName != "" {
		out["erased_name"] = t.erasedName
	}
	if len(t.typeArguments) > 0 {
		out["type_arguments"] = linksJSON(t.typeArguments)
	}
	if t.superClass != nil {
		out["superclass"] = t.superClass.ToJSON()
	}
	if len(t.interfaces) > 0 {
		out["interfaces"] = linksJSON(t.interfaces)
	}
	if len(t.mixins) > 0 {
		out["mixins"] = linksJSON(t.mixins)
	}
}

// specialise replaces the type arguments and qualified name and marks the
// declaration synthetic.
func (t *typeBase) specialise(args []*Link, qualifiedName string) {
	t.typeArguments = dropNil(args)
	t.qualifiedName = qualifiedName
	t.name = qualifiedName
	t.synthetic = true
}

func dropNil(links []*Link) []*Link {
	var out []*Link
	for _, l := range links {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}
