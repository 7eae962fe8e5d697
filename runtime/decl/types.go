package decl

import "reflect"

// Modifiers are the class-only modifier flags.
type Modifiers struct {
	Abstract         bool `json:"abstract,omitempty"`
	Sealed           bool `json:"sealed,omitempty"`
	Base             bool `json:"base,omitempty"`
	Interface        bool `json:"interface,omitempty"`
	Final            bool `json:"final,omitempty"`
	MixinApplication bool `json:"mixin_application,omitempty"`
	RecordClass      bool `json:"record_class,omitempty"`
}

func (m Modifiers) names() []string {
	var out []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{m.Abstract, "abstract"},
		{m.Sealed, "sealed"},
		{m.Base, "base"},
		{m.Interface, "interface"},
		{m.Final, "final"},
		{m.MixinApplication, "mixin_application"},
		{m.RecordClass, "record_class"},
	} {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}

// ClassBody holds the members of a class.
type ClassBody struct {
	Constructors []*ConstructorDeclaration
	Fields       []*FieldDeclaration
	Methods      []*MethodDeclaration
	Records      []*RecordDeclaration
	Modifiers    Modifiers
}

// ClassDeclaration is a named struct, interface or other defined type.
type ClassDeclaration struct {
	typeBase
	constructors []*ConstructorDeclaration
	fields       []*FieldDeclaration
	methods      []*MethodDeclaration
	records      []*RecordDeclaration
	modifiers    Modifiers
}

// NewClass creates a class declaration. Input slices are copied.
func NewClass(info TypeInfo, body ClassBody) *ClassDeclaration {
	return &ClassDeclaration{
		typeBase:     newTypeBase(KindClass, info),
		constructors: copySlice(body.Constructors),
		fields:       copySlice(body.Fields),
		methods:      copySlice(body.Methods),
		records:      copySlice(body.Records),
		modifiers:    body.Modifiers,
	}
}

func (c *ClassDeclaration) Constructors() []*ConstructorDeclaration { return copySlice(c.constructors) }
func (c *ClassDeclaration) Fields() []*FieldDeclaration             { return copySlice(c.fields) }
func (c *ClassDeclaration) Methods() []*MethodDeclaration           { return copySlice(c.methods) }
func (c *ClassDeclaration) Records() []*RecordDeclaration           { return copySlice(c.records) }
func (c *ClassDeclaration) Modifiers() Modifiers                    { return c.modifiers }
func (c *ClassDeclaration) IsAbstract() bool                        { return c.modifiers.Abstract }
func (c *ClassDeclaration) IsInterface() bool                       { return c.modifiers.Interface }

// Constructor returns the constructor with the given name; "" is the
// unnamed constructor.
func (c *ClassDeclaration) Constructor(name string) (*ConstructorDeclaration, bool) {
	return findByName(c.constructors, name)
}

func (c *ClassDeclaration) Field(name string) (*FieldDeclaration, bool) {
	return findByName(c.fields, name)
}

func (c *ClassDeclaration) Method(name string) (*MethodDeclaration, bool) {
	return findByName(c.methods, name)
}

// WithModifiers returns a copy with the given modifiers.
func (c *ClassDeclaration) WithModifiers(m Modifiers) *ClassDeclaration {
	cp := *c
	cp.modifiers = m
	return &cp
}

func (c *ClassDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	c.typeJSON(out)
	if mods := c.modifiers.names(); len(mods) > 0 {
		out["modifiers"] = mods
	}
	putMembers(out, "constructors", c.constructors)
	putMembers(out, "fields", c.fields)
	putMembers(out, "methods", c.methods)
	putMembers(out, "records", c.records)
	return out
}

// EnumBody holds the ordered values and members of an enum.
type EnumBody struct {
	Values  []*FieldDeclaration
	Fields  []*FieldDeclaration
	Methods []*MethodDeclaration
}

// EnumDeclaration is a defined basic type with a closed set of constants.
type EnumDeclaration struct {
	typeBase
	values  []*FieldDeclaration
	fields  []*FieldDeclaration
	methods []*MethodDeclaration
}

func NewEnum(info TypeInfo, body EnumBody) *EnumDeclaration {
	return &EnumDeclaration{
		typeBase: newTypeBase(KindEnum, info),
		values:   copySlice(body.Values),
		fields:   copySlice(body.Fields),
		methods:  copySlice(body.Methods),
	}
}

// Values returns the enum constants in declaration order.
func (e *EnumDeclaration) Values() []*FieldDeclaration   { return copySlice(e.values) }
func (e *EnumDeclaration) Fields() []*FieldDeclaration   { return copySlice(e.fields) }
func (e *EnumDeclaration) Methods() []*MethodDeclaration { return copySlice(e.methods) }

func (e *EnumDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	e.typeJSON(out)
	if len(e.values) > 0 {
		values := make([]any, len(e.values))
		for i, v := range e.values {
			values[i] = v.Name()
		}
		out["values"] = values
	}
	putMembers(out, "fields", e.fields)
	putMembers(out, "methods", e.methods)
	return out
}

// MixinBody holds the members and constraints of a mixin.
type MixinBody struct {
	Fields  []*FieldDeclaration
	Methods []*MethodDeclaration
	On      []*Link
}

// MixinDeclaration is a struct meant to be embedded into other structs.
type MixinDeclaration struct {
	typeBase
	fields  []*FieldDeclaration
	methods []*MethodDeclaration
	on      []*Link
}

func NewMixin(info TypeInfo, body MixinBody) *MixinDeclaration {
	return &MixinDeclaration{
		typeBase: newTypeBase(KindMixin, info),
		fields:   copySlice(body.Fields),
		methods:  copySlice(body.Methods),
		on:       dropNil(body.On),
	}
}

func (m *MixinDeclaration) Fields() []*FieldDeclaration   { return copySlice(m.fields) }
func (m *MixinDeclaration) Methods() []*MethodDeclaration { return copySlice(m.methods) }

// On returns the interfaces a host type must satisfy.
func (m *MixinDeclaration) On() []*Link { return copyLinks(m.on) }

func (m *MixinDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	m.typeJSON(out)
	if len(m.on) > 0 {
		out["on"] = linksJSON(m.on)
	}
	putMembers(out, "fields", m.fields)
	putMembers(out, "methods", m.methods)
	return out
}

// TypedefDeclaration is an alias or a named function type.
type TypedefDeclaration struct {
	typeBase
	aliased TypeDeclaration
}

// NewTypedef creates a typedef. The aliased declaration is shallow: a
// BasicDeclaration built from a Link or an inline RecordDeclaration.
func NewTypedef(info TypeInfo, aliased TypeDeclaration) *TypedefDeclaration {
	return &TypedefDeclaration{
		typeBase: newTypeBase(KindTypedef, info),
		aliased:  aliased,
	}
}

func (t *TypedefDeclaration) Aliased() TypeDeclaration { return t.aliased }

func (t *TypedefDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	t.typeJSON(out)
	if t.aliased != nil {
		out["aliased"] = t.aliased.ToJSON()
	}
	return out
}

// RecordDeclaration is an anonymous struct or a tuple of values.
type RecordDeclaration struct {
	typeBase
	positional []*FieldDeclaration
	named      []*FieldDeclaration
}

func NewRecord(info TypeInfo, positional, named []*FieldDeclaration) *RecordDeclaration {
	return &RecordDeclaration{
		typeBase:   newTypeBase(KindRecord, info),
		positional: copySlice(positional),
		named:      copySlice(named),
	}
}

// Positional returns the positional fields in order.
func (r *RecordDeclaration) Positional() []*FieldDeclaration { return copySlice(r.positional) }

// Named returns the named fields keyed by name.
func (r *RecordDeclaration) Named() map[string]*FieldDeclaration {
	out := make(map[string]*FieldDeclaration, len(r.named))
	for _, f := range r.named {
		out[f.Name()] = f
	}
	return out
}

// NamedFields returns the named fields in declaration order.
func (r *RecordDeclaration) NamedFields() []*FieldDeclaration { return copySlice(r.named) }

func (r *RecordDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	r.typeJSON(out)
	if len(r.positional) > 0 {
		pos := make([]any, len(r.positional))
		for i, f := range r.positional {
			pos[i] = f.ToJSON()
		}
		out["positional"] = pos
	}
	putMembers(out, "named", r.named)
	return out
}

// TypeVariableDeclaration is a type parameter of a generic declaration.
type TypeVariableDeclaration struct {
	typeBase
	upperBound *Link
	variance   Variance
}

func NewTypeVariable(info TypeInfo, upperBound *Link, variance Variance) *TypeVariableDeclaration {
	if variance == "" {
		variance = Invariant
	}
	return &TypeVariableDeclaration{
		typeBase:   newTypeBase(KindTypeVariable, info),
		upperBound: upperBound,
		variance:   variance,
	}
}

func (v *TypeVariableDeclaration) UpperBound() *Link  { return v.upperBound }
func (v *TypeVariableDeclaration) Variance() Variance { return v.variance }

func (v *TypeVariableDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	v.typeJSON(out)
	out["variance"] = string(v.variance)
	if v.upperBound != nil {
		out["upper_bound"] = v.upperBound.ToJSON()
	}
	return out
}

// ExtensionDeclaration is a defined type over a type from another package.
type ExtensionDeclaration struct {
	typeBase
	onType  *Link
	fields  []*FieldDeclaration
	methods []*MethodDeclaration
}

func NewExtension(info TypeInfo, onType *Link, fields []*FieldDeclaration, methods []*MethodDeclaration) *ExtensionDeclaration {
	return &ExtensionDeclaration{
		typeBase: newTypeBase(KindExtension, info),
		onType:   onType,
		fields:   copySlice(fields),
		methods:  copySlice(methods),
	}
}

// OnType returns the extended type.
func (x *ExtensionDeclaration) OnType() *Link                 { return x.onType }
func (x *ExtensionDeclaration) Fields() []*FieldDeclaration   { return copySlice(x.fields) }
func (x *ExtensionDeclaration) Methods() []*MethodDeclaration { return copySlice(x.methods) }

func (x *ExtensionDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	x.typeJSON(out)
	if x.onType != nil {
		out["on"] = x.onType.ToJSON()
	}
	putMembers(out, "fields", x.fields)
	putMembers(out, "methods", x.methods)
	return out
}

// BasicDeclaration is a member-less type: predeclared types, composite
// shapes (list, map, function) and the shallow target of a typedef.
type BasicDeclaration struct {
	typeBase
}

func NewBasic(kind TypeKind, info TypeInfo) *BasicDeclaration {
	return &BasicDeclaration{typeBase: newTypeBase(kind, info)}
}

// BasicFromLink builds a shallow declaration from a Link.
func BasicFromLink(l *Link) *BasicDeclaration {
	return NewBasic(l.Kind(), TypeInfo{
		EntityInfo:    EntityInfo{Name: l.Name(), Type: l.Type(), Public: true},
		SimpleName:    l.Name(),
		PackageURI:    l.CanonicalURI(),
		QualifiedName: l.QualifiedName(),
		Nullable:      l.IsNullable(),
		TypeArguments: l.TypeArguments(),
	})
}

func (b *BasicDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	b.typeJSON(out)
	return out
}

// Specialize returns a copy of d carrying the given type arguments and
// qualified name. Members are shared with d. The copy is marked synthetic.
func Specialize(d TypeDeclaration, args []*Link, qualifiedName string) TypeDeclaration {
	return withBase(d, func(t *typeBase) { t.specialise(args, qualifiedName) })
}

// Recover returns a copy of the generic declaration d that adopts the live
// identity rt. erasedName is the name rt reports, e.g. "Box[pkg.Item]".
func Recover(d TypeDeclaration, rt reflect.Type, erasedName string, args []*Link) TypeDeclaration {
	return withBase(d, func(t *typeBase) {
		t.specialise(args, QualifiedName(t.packageURI, erasedName))
		t.name = erasedName
		t.rtype = rt
		t.erasedName = erasedName
	})
}

func withBase(d TypeDeclaration, fn func(*typeBase)) TypeDeclaration {
	switch t := d.(type) {
	case *ClassDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *EnumDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *MixinDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *TypedefDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *RecordDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *ExtensionDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *BasicDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	case *TypeVariableDeclaration:
		cp := *t
		fn(&cp.typeBase)
		return &cp
	}
	return d
}

type named interface {
	Name() string
	ToJSON() map[string]any
}

func findByName[T named](items []T, name string) (T, bool) {
	for _, item := range items {
		if item.Name() == name {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func putMembers[T named](out map[string]any, key string, items []T) {
	if len(items) == 0 {
		return
	}
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item.ToJSON()
	}
	out[key] = list
}

func copySlice[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
