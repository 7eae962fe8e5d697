package decl

import (
	"reflect"
	"sort"
	"strings"
)

// AnnotationField is one declared field of an annotation. A field is
// user-supplied when the annotation site sets it explicitly, and carries
// its declared default otherwise.
type AnnotationField struct {
	name         string
	fieldType    *Link
	value        any
	defaultValue any
	hasDefault   bool
	userSupplied bool
}

// AnnotationFieldInfo carries the facts of an annotation field.
type AnnotationFieldInfo struct {
	Name         string
	Type         *Link
	Value        any
	Default      any
	HasDefault   bool
	UserSupplied bool
}

func NewAnnotationField(info AnnotationFieldInfo) *AnnotationField {
	return &AnnotationField{
		name:         info.Name,
		fieldType:    info.Type,
		value:        info.Value,
		defaultValue: info.Default,
		hasDefault:   info.HasDefault,
		userSupplied: info.UserSupplied,
	}
}

func (f *AnnotationField) Name() string         { return f.name }
func (f *AnnotationField) FieldType() *Link     { return f.fieldType }
func (f *AnnotationField) Value() any           { return f.value }
func (f *AnnotationField) Default() any         { return f.defaultValue }
func (f *AnnotationField) HasDefault() bool     { return f.hasDefault }
func (f *AnnotationField) IsUserSupplied() bool { return f.userSupplied }

func (f *AnnotationField) ToJSON() map[string]any {
	out := map[string]any{"name": f.name, "value": f.value}
	if f.fieldType != nil {
		out["type"] = f.fieldType.Name()
	}
	if f.hasDefault {
		out["default"] = f.defaultValue
	}
	if f.userSupplied {
		out["user_supplied"] = true
	}
	return out
}

// Annotation is metadata attached to a source declaration: a doc-comment
// directive or a struct-tag key.
type Annotation struct {
	annotationType *Link
	instance       any
	fields         []*AnnotationField
}

// NewAnnotation creates an annotation. instance is the live value, if one
// could be instantiated.
func NewAnnotation(annotationType *Link, instance any, fields []*AnnotationField) *Annotation {
	return &Annotation{
		annotationType: annotationType,
		instance:       instance,
		fields:         copySlice(fields),
	}
}

func (a *Annotation) Name() string               { return a.annotationType.Name() }
func (a *Annotation) AnnotationType() *Link      { return a.annotationType }
func (a *Annotation) Instance() any              { return a.instance }
func (a *Annotation) Fields() []*AnnotationField { return copySlice(a.fields) }
func (a *Annotation) IsPublic() bool             { return true }
func (a *Annotation) IsSynthetic() bool          { return false }
func (a *Annotation) Type() reflect.Type         { return a.annotationType.Type() }

// Field returns the named field.
func (a *Annotation) Field(name string) (*AnnotationField, bool) {
	return findByName(a.fields, name)
}

// Value returns the value of the named field.
func (a *Annotation) Value(name string) (any, bool) {
	if f, ok := a.Field(name); ok {
		return f.value, true
	}
	return nil, false
}

// DebugIdentifier includes the field values so two uses of the same
// annotation with different arguments stay distinct.
func (a *Annotation) DebugIdentifier() string {
	var b strings.Builder
	b.WriteString("annotation_")
	b.WriteString(strings.ToLower(a.Name()))
	if len(a.fields) == 0 {
		return b.String()
	}
	parts := make([]string, len(a.fields))
	for i, f := range a.fields {
		parts[i] = f.name + "=" + formatValue(f.value)
	}
	sort.Strings(parts)
	b.WriteByte('(')
	b.WriteString(strings.Join(parts, ","))
	b.WriteByte(')')
	return b.String()
}

func (a *Annotation) ToJSON() map[string]any {
	out := map[string]any{
		"name": a.Name(),
		"type": a.annotationType.QualifiedName(),
	}
	putMembers(out, "fields", a.fields)
	return out
}

// GenericOverride is attached to a live type whose reported identity was
// erased, naming the generic declaration it instantiates.
type GenericOverride struct {
	// Name is the simple name of the generic declaration in the same package.
	Name string
	// Arguments optionally lists the type argument names in order.
	Arguments []string
}

func copyAnnotations(in []*Annotation) []*Annotation {
	return copySlice(in)
}

type identified interface {
	DebugIdentifier() string
}

func sortedByID[T identified](in []T) []T {
	out := copySlice(in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DebugIdentifier() < out[j].DebugIdentifier()
	})
	return out
}
