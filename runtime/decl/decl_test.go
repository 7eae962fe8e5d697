package decl

import (
	"reflect"
	"testing"

	rterrors "github.com/conduit-lang/mirror/runtime/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int
	Name string
}

func userLink() *Link {
	return NewLink(LinkInfo{
		Type:         reflect.TypeOf(user{}),
		Name:         "User",
		CanonicalURI: "example.com/shop",
		ReferenceURI: "example.com/shop",
		Kind:         KindClass,
	})
}

func intLink() *Link {
	return NewLink(LinkInfo{Type: reflect.TypeOf(0), Name: "int", CanonicalURI: BuiltinURI, Kind: KindPrimitive})
}

func field(name string) *FieldDeclaration {
	return NewField(FieldInfo{
		EntityInfo: EntityInfo{Name: name, Public: true, LibraryURI: "example.com/shop"},
		Owner:      userLink(),
		FieldType:  intLink(),
	})
}

func method(name string) *MethodDeclaration {
	return NewMethod(MethodInfo{
		EntityInfo: EntityInfo{Name: name, Public: true, LibraryURI: "example.com/shop"},
		Owner:      userLink(),
	})
}

func annotation(name string) *Annotation {
	return NewAnnotation(NameLink(name), nil, nil)
}

func userInfo(args ...*Link) TypeInfo {
	return TypeInfo{
		EntityInfo:    EntityInfo{Name: "User", Type: reflect.TypeOf(user{}), Public: true, LibraryURI: "example.com/shop"},
		SimpleName:    "User",
		PackageURI:    "example.com/shop",
		TypeArguments: args,
	}
}

func TestEqual_UnorderedMembers(t *testing.T) {
	info := userInfo()
	info.Annotations = []*Annotation{annotation("Entity"), annotation("Audited")}
	a := NewClass(info, ClassBody{
		Fields:  []*FieldDeclaration{field("id"), field("name")},
		Methods: []*MethodDeclaration{method("Save"), method("Delete")},
	})

	info.Annotations = []*Annotation{annotation("Audited"), annotation("Entity")}
	b := NewClass(info, ClassBody{
		Fields:  []*FieldDeclaration{field("name"), field("id")},
		Methods: []*MethodDeclaration{method("Delete"), method("Save")},
	})

	assert.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))
}

func TestEqual_OrderedTypeArguments(t *testing.T) {
	k := NameLink("K")
	v := NameLink("V")

	a := NewClass(userInfo(k, v), ClassBody{})
	b := NewClass(userInfo(v, k), ClassBody{})

	assert.False(t, Equal(a, b))
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestEqual_DifferentMembers(t *testing.T) {
	a := NewClass(userInfo(), ClassBody{Fields: []*FieldDeclaration{field("id")}})
	b := NewClass(userInfo(), ClassBody{Fields: []*FieldDeclaration{field("email")}})
	assert.False(t, Equal(a, b))
}

func TestDebugIdentifiers(t *testing.T) {
	class := NewClass(userInfo(), ClassBody{})
	assert.Equal(t, "class_user", class.DebugIdentifier())
	assert.Equal(t, "field: User.id", field("id").DebugIdentifier())
	assert.Equal(t, "method: User.Save", method("Save").DebugIdentifier())

	ctor := NewConstructor(ConstructorInfo{EntityInfo: EntityInfo{Name: ""}, Owner: userLink()})
	assert.Equal(t, "constructor: User.", ctor.DebugIdentifier())
}

func TestTypeDeclaration_QualifiedName(t *testing.T) {
	class := NewClass(userInfo(), ClassBody{})
	assert.Equal(t, "example.com/shop.User", class.QualifiedName())
	assert.Equal(t, "User", class.SimpleName())
	assert.Equal(t, reflect.TypeOf(user{}), class.Type())
}

func TestLink_IsCanonical(t *testing.T) {
	l := userLink()
	assert.True(t, l.IsCanonical())
	assert.False(t, l.WithReferenceURI("example.com/billing").IsCanonical())
	assert.False(t, NameLink("Thing").IsCanonical())
}

func TestLink_DropsOmittedArguments(t *testing.T) {
	l := NewLink(LinkInfo{Name: "Node", CanonicalURI: "example.com/graph", TypeArguments: []*Link{nil}})
	assert.Empty(t, l.TypeArguments())
	assert.Equal(t, "Node", l.Display())
	assert.Equal(t, "example.com/graph.Node", l.QualifiedName())
}

func TestAccessorsReturnCopies(t *testing.T) {
	class := NewClass(userInfo(), ClassBody{Fields: []*FieldDeclaration{field("id")}})
	fields := class.Fields()
	fields[0] = field("hijacked")
	assert.Equal(t, "id", class.Fields()[0].Name())
}

func TestToJSON_OmitsEmptySections(t *testing.T) {
	class := NewClass(userInfo(), ClassBody{Fields: []*FieldDeclaration{field("id")}})
	out := class.ToJSON()

	assert.Equal(t, "class", out["kind"])
	assert.Contains(t, out, "fields")
	for _, key := range []string{"methods", "constructors", "annotations", "type_arguments", "superclass", "modifiers"} {
		assert.NotContains(t, out, key)
	}
}

func TestSpecialize(t *testing.T) {
	box := NewClass(TypeInfo{
		EntityInfo: EntityInfo{Name: "Box", Public: true},
		SimpleName: "Box",
		PackageURI: "example.com/box",
	}, ClassBody{Fields: []*FieldDeclaration{field("value")}})

	spec := Specialize(box, []*Link{NameLink("String")}, "Box<String>")
	require.IsType(t, &ClassDeclaration{}, spec)

	assert.Equal(t, "Box<String>", spec.QualifiedName())
	assert.Equal(t, "Box", spec.SimpleName())
	assert.True(t, spec.IsGeneric())
	assert.True(t, spec.IsSynthetic())
	assert.Equal(t, "value", spec.(*ClassDeclaration).Fields()[0].Name())
	assert.False(t, box.IsGeneric())
}

func TestIsAssignable(t *testing.T) {
	base := NewClass(TypeInfo{EntityInfo: EntityInfo{Name: "Base"}, SimpleName: "Base", PackageURI: "p"}, ClassBody{})
	derived := NewClass(TypeInfo{
		EntityInfo: EntityInfo{Name: "Derived"},
		SimpleName: "Derived",
		PackageURI: "p",
		SuperClass: base.Link(),
	}, ClassBody{})

	assert.True(t, base.IsAssignableFrom(derived))
	assert.True(t, derived.IsAssignableTo(base))
	assert.False(t, derived.IsAssignableFrom(base))
}

func TestRecordNamedFields(t *testing.T) {
	rec := NewRecord(TypeInfo{EntityInfo: EntityInfo{Name: "pair"}, SimpleName: "pair"},
		[]*FieldDeclaration{field("$1"), field("$2")},
		[]*FieldDeclaration{field("label")})

	assert.Len(t, rec.Positional(), 2)
	assert.Contains(t, rec.Named(), "label")
	assert.Equal(t, "record_pair", rec.DebugIdentifier())
}

func TestBuiltinLibrary(t *testing.T) {
	lib := BuiltinLibrary()
	assert.Same(t, lib, BuiltinLibrary())
	assert.Equal(t, HostPackage, lib.Package().Name)

	kind, rt, ok := BuiltinKind("byte")
	require.True(t, ok)
	assert.Equal(t, KindPrimitive, kind)
	assert.Equal(t, reflect.TypeOf(uint8(0)), rt)

	for _, d := range Builtins() {
		assert.Equal(t, "builtin."+d.SimpleName(), d.QualifiedName())
	}
}

func TestFieldSet_Immutable(t *testing.T) {
	r := &recordingResolver{}

	final := NewField(FieldInfo{EntityInfo: EntityInfo{Name: "id"}, Owner: userLink(), Modifiers: FieldModifiers{Final: true}})
	err := final.Set(r, &user{}, 2)
	require.Error(t, err)
	assert.True(t, rterrors.HasCode(err, rterrors.ErrImmutableField))
	assert.Contains(t, err.Error(), "id")

	late := NewField(FieldInfo{EntityInfo: EntityInfo{Name: "id"}, Owner: userLink(), Modifiers: FieldModifiers{Final: true, Late: true}})
	require.NoError(t, late.Set(r, &user{}, 2))
	assert.Equal(t, "id", r.lastField)

	constant := NewField(FieldInfo{EntityInfo: EntityInfo{Name: "Max", LibraryURI: "example.com/shop"}, Modifiers: FieldModifiers{Const: true, Static: true}})
	assert.True(t, rterrors.HasCode(constant.Set(r, nil, 1), rterrors.ErrImmutableField))
}

func TestPackageLevelFieldDispatchesQualified(t *testing.T) {
	r := &recordingResolver{}
	v := NewField(FieldInfo{EntityInfo: EntityInfo{Name: "Limit", LibraryURI: "example.com/shop"}, Modifiers: FieldModifiers{Static: true}})

	_, err := v.Get(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop.Limit", r.lastField)
}
