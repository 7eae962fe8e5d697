package decl

import (
	"reflect"
	"strconv"

	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

// FieldModifiers are the modifier flags of a field.
type FieldModifiers struct {
	Final    bool
	Const    bool
	Late     bool
	Static   bool
	Abstract bool
	Nullable bool
}

// FieldDeclaration is a struct field, enum value, package-level variable
// or constant.
type FieldDeclaration struct {
	entity
	owner     *Link
	fieldType *Link
	modifiers FieldModifiers
	value     any
	hasValue  bool
}

// FieldInfo carries the facts of a field.
type FieldInfo struct {
	EntityInfo
	Owner     *Link // nil for package-level fields
	FieldType *Link
	Modifiers FieldModifiers
	// Value is the constant value of const fields and enum values.
	Value    any
	HasValue bool
}

func NewField(info FieldInfo) *FieldDeclaration {
	return &FieldDeclaration{
		entity:    newEntity(info.EntityInfo),
		owner:     info.Owner,
		fieldType: info.FieldType,
		modifiers: info.Modifiers,
		value:     info.Value,
		hasValue:  info.HasValue,
	}
}

func (f *FieldDeclaration) Owner() *Link              { return f.owner }
func (f *FieldDeclaration) FieldType() *Link          { return f.fieldType }
func (f *FieldDeclaration) Modifiers() FieldModifiers { return f.modifiers }
func (f *FieldDeclaration) IsFinal() bool             { return f.modifiers.Final }
func (f *FieldDeclaration) IsConst() bool             { return f.modifiers.Const }
func (f *FieldDeclaration) IsLate() bool              { return f.modifiers.Late }
func (f *FieldDeclaration) IsStatic() bool            { return f.modifiers.Static }
func (f *FieldDeclaration) IsNullable() bool          { return f.modifiers.Nullable }

// Value returns the declared constant value, if any.
func (f *FieldDeclaration) Value() (any, bool) { return f.value, f.hasValue }

func (f *FieldDeclaration) DebugIdentifier() string {
	return "field: " + ownerName(f.owner, f.libraryURI) + "." + f.name
}

// Get reads the field from instance through the resolver. Package-level
// fields take a nil instance.
func (f *FieldDeclaration) Get(r Resolver, instance any) (any, error) {
	return r.GetValue(instance, f.dispatchName())
}

// Set writes the field through the resolver. Final and const fields reject
// writes unless they are late-initialised.
func (f *FieldDeclaration) Set(r Resolver, instance any, value any) error {
	if f.modifiers.Const {
		return rterrors.NewImmutableField(f.DebugIdentifier(), f.name, "const")
	}
	if f.modifiers.Final && !f.modifiers.Late {
		return rterrors.NewImmutableField(f.DebugIdentifier(), f.name, "final")
	}
	return r.SetValue(instance, f.dispatchName(), value)
}

func (f *FieldDeclaration) dispatchName() string {
	if f.owner == nil {
		return QualifiedName(f.libraryURI, f.name)
	}
	return f.name
}

func (f *FieldDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	f.entityJSON(out)
	if f.fieldType != nil {
		out["type"] = f.fieldType.ToJSON()
	}
	if mods := fieldModifierNames(f.modifiers); len(mods) > 0 {
		out["modifiers"] = mods
	}
	if f.hasValue {
		out["value"] = f.value
	}
	return out
}

func fieldModifierNames(m FieldModifiers) []string {
	var out []string
	if m.Final {
		out = append(out, "final")
	}
	if m.Const {
		out = append(out, "const")
	}
	if m.Late {
		out = append(out, "late")
	}
	if m.Static {
		out = append(out, "static")
	}
	if m.Abstract {
		out = append(out, "abstract")
	}
	if m.Nullable {
		out = append(out, "nullable")
	}
	return out
}

// MethodFlags are the flags of a method.
type MethodFlags struct {
	Getter   bool
	Setter   bool
	Factory  bool
	Const    bool
	Static   bool
	Abstract bool
}

// MethodInfo carries the facts of a method or top-level function.
type MethodInfo struct {
	EntityInfo
	Owner      *Link // nil for top-level functions
	ReturnType *Link
	Parameters []*ParameterDeclaration
	Flags      MethodFlags
}

// MethodDeclaration is a method or a top-level function.
type MethodDeclaration struct {
	entity
	owner      *Link
	returnType *Link
	parameters []*ParameterDeclaration
	flags      MethodFlags
}

func NewMethod(info MethodInfo) *MethodDeclaration {
	return &MethodDeclaration{
		entity:     newEntity(info.EntityInfo),
		owner:      info.Owner,
		returnType: info.ReturnType,
		parameters: copySlice(info.Parameters),
		flags:      info.Flags,
	}
}

func (m *MethodDeclaration) Owner() *Link                        { return m.owner }
func (m *MethodDeclaration) ReturnType() *Link                   { return m.returnType }
func (m *MethodDeclaration) Parameters() []*ParameterDeclaration { return copySlice(m.parameters) }
func (m *MethodDeclaration) Flags() MethodFlags                  { return m.flags }
func (m *MethodDeclaration) IsGetter() bool                      { return m.flags.Getter }
func (m *MethodDeclaration) IsSetter() bool                      { return m.flags.Setter }
func (m *MethodDeclaration) IsStatic() bool                      { return m.flags.Static }
func (m *MethodDeclaration) IsAbstract() bool                    { return m.flags.Abstract }

func (m *MethodDeclaration) DebugIdentifier() string {
	return "method: " + ownerName(m.owner, m.libraryURI) + "." + m.name
}

// Invoke validates args and calls the method through the resolver.
// Top-level functions take a nil instance and are dispatched by qualified
// name.
func (m *MethodDeclaration) Invoke(r Resolver, instance any, args Arguments) (any, error) {
	if m.flags.Abstract && instance == nil {
		return nil, rterrors.NewNotFound("implementation", m.DebugIdentifier())
	}
	checked, err := ValidateArguments(m.DebugIdentifier(), m.parameters, args)
	if err != nil {
		return nil, err
	}
	name := m.name
	if m.owner == nil {
		name = QualifiedName(m.libraryURI, m.name)
	}
	return r.InvokeMethod(instance, name, checked.Positional, checked.Named)
}

func (m *MethodDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	m.entityJSON(out)
	if m.returnType != nil {
		out["return_type"] = m.returnType.ToJSON()
	}
	putMembers(out, "parameters", m.parameters)
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{m.flags.Getter, "getter"},
		{m.flags.Setter, "setter"},
		{m.flags.Factory, "factory"},
		{m.flags.Const, "const"},
		{m.flags.Static, "static"},
		{m.flags.Abstract, "abstract"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		out["flags"] = flags
	}
	return out
}

// ConstructorInfo carries the facts of a constructor.
type ConstructorInfo struct {
	EntityInfo
	Owner      *Link
	Parameters []*ParameterDeclaration
	Factory    bool
	Const      bool
}

// ConstructorDeclaration creates instances of its owner. The unnamed
// constructor has the empty name.
type ConstructorDeclaration struct {
	entity
	owner      *Link
	parameters []*ParameterDeclaration
	factory    bool
	isConst    bool
}

func NewConstructor(info ConstructorInfo) *ConstructorDeclaration {
	return &ConstructorDeclaration{
		entity:     newEntity(info.EntityInfo),
		owner:      info.Owner,
		parameters: copySlice(info.Parameters),
		factory:    info.Factory,
		isConst:    info.Const,
	}
}

func (c *ConstructorDeclaration) Owner() *Link                        { return c.owner }
func (c *ConstructorDeclaration) Parameters() []*ParameterDeclaration { return copySlice(c.parameters) }
func (c *ConstructorDeclaration) IsFactory() bool                     { return c.factory }
func (c *ConstructorDeclaration) IsConst() bool                       { return c.isConst }

// Type returns the owner's live identity.
func (c *ConstructorDeclaration) Type() reflect.Type {
	if c.owner != nil {
		return c.owner.Type()
	}
	return c.rtype
}

func (c *ConstructorDeclaration) DebugIdentifier() string {
	return "constructor: " + ownerName(c.owner, c.libraryURI) + "." + c.name
}

// NewInstance validates args and creates an instance through the resolver.
func (c *ConstructorDeclaration) NewInstance(r Resolver, args Arguments) (any, error) {
	checked, err := ValidateArguments(c.DebugIdentifier(), c.parameters, args)
	if err != nil {
		return nil, err
	}
	return r.NewInstance(c.name, c.Type(), checked.Positional, checked.Named)
}

func (c *ConstructorDeclaration) ToJSON() map[string]any {
	out := map[string]any{}
	c.entityJSON(out)
	if c.owner != nil {
		out["owner"] = c.owner.QualifiedName()
	}
	putMembers(out, "parameters", c.parameters)
	if c.factory {
		out["factory"] = true
	}
	if c.isConst {
		out["const"] = true
	}
	return out
}

// ParameterInfo carries the facts of a parameter.
type ParameterInfo struct {
	Name        string
	Index       int
	Type        *Link
	Optional    bool
	Named       bool
	HasDefault  bool
	Default     any
	Member      string // debug identifier of the owning member
	Annotations []*Annotation
	Variadic    bool
}

// ParameterDeclaration is a positional or named parameter. A named
// parameter that is not optional is required.
type ParameterDeclaration struct {
	name        string
	index       int
	paramType   *Link
	optional    bool
	named       bool
	hasDefault  bool
	defaultVal  any
	member      string
	annotations []*Annotation
	variadic    bool
}

func NewParameter(info ParameterInfo) *ParameterDeclaration {
	return &ParameterDeclaration{
		name:        info.Name,
		index:       info.Index,
		paramType:   info.Type,
		optional:    info.Optional || info.Variadic,
		named:       info.Named,
		hasDefault:  info.HasDefault,
		defaultVal:  info.Default,
		member:      info.Member,
		annotations: copyAnnotations(info.Annotations),
		variadic:    info.Variadic,
	}
}

func (p *ParameterDeclaration) Name() string               { return p.name }
func (p *ParameterDeclaration) Index() int                 { return p.index }
func (p *ParameterDeclaration) ParamType() *Link           { return p.paramType }
func (p *ParameterDeclaration) IsOptional() bool           { return p.optional }
func (p *ParameterDeclaration) IsNamed() bool              { return p.named }
func (p *ParameterDeclaration) IsRequired() bool           { return !p.optional }
func (p *ParameterDeclaration) IsVariadic() bool           { return p.variadic }
func (p *ParameterDeclaration) HasDefault() bool           { return p.hasDefault }
func (p *ParameterDeclaration) Default() any               { return p.defaultVal }
func (p *ParameterDeclaration) Member() string             { return p.member }
func (p *ParameterDeclaration) IsPublic() bool             { return true }
func (p *ParameterDeclaration) IsSynthetic() bool          { return false }
func (p *ParameterDeclaration) Annotations() []*Annotation { return copyAnnotations(p.annotations) }

// Type returns the parameter's live type, if known.
func (p *ParameterDeclaration) Type() reflect.Type {
	if p.paramType == nil {
		return nil
	}
	return p.paramType.Type()
}

func (p *ParameterDeclaration) DebugIdentifier() string {
	return "parameter: " + p.member + "." + p.name + "#" + strconv.Itoa(p.index)
}

// WithMember returns a copy owned by the given member.
func (p *ParameterDeclaration) WithMember(member string) *ParameterDeclaration {
	cp := *p
	cp.member = member
	return &cp
}

func (p *ParameterDeclaration) ToJSON() map[string]any {
	out := map[string]any{
		"name":  p.name,
		"index": p.index,
	}
	if p.paramType != nil {
		out["type"] = p.paramType.ToJSON()
	}
	if p.optional {
		out["optional"] = true
	}
	if p.named {
		out["named"] = true
	}
	if p.variadic {
		out["variadic"] = true
	}
	if p.hasDefault {
		out["default"] = p.defaultVal
	}
	if len(p.annotations) > 0 {
		anns := make([]any, len(p.annotations))
		for i, a := range sortedByID(p.annotations) {
			anns[i] = a.ToJSON()
		}
		out["annotations"] = anns
	}
	return out
}

func ownerName(owner *Link, libraryURI string) string {
	if owner != nil {
		return owner.Name()
	}
	return libraryURI
}
