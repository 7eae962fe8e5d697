package discovery

import (
	"go/token"
	"go/types"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
	"github.com/conduit-lang/mirror/runtime/registry"
)

type Animal struct{}

type Item struct{}

type Box[T any] struct{ Value T }

var here = reflect.TypeOf(Animal{}).PkgPath()

type zoo struct {
	animal, mammal, dog  *decl.ClassDeclaration
	shape, square, cube  *decl.ClassDeclaration
	box, boxItem, handle *decl.ClassDeclaration
	walker               *decl.MixinDeclaration
	handleDef            *decl.TypedefDeclaration
	color                *decl.EnumDeclaration
	element              types.Object
}

func info(name string, rt reflect.Type) decl.TypeInfo {
	return decl.TypeInfo{
		EntityInfo: decl.EntityInfo{Name: name, Type: rt, Public: true, LibraryURI: here},
		SimpleName: name,
		PackageURI: here,
	}
}

func newZoo() *zoo {
	z := &zoo{}
	z.animal = decl.NewClass(info("Animal", reflect.TypeOf(Animal{})), decl.ClassBody{})

	mammal := info("Mammal", nil)
	mammal.SuperClass = z.animal.Link()
	z.mammal = decl.NewClass(mammal, decl.ClassBody{})

	dog := info("Dog", nil)
	dog.SuperClass = z.mammal.Link()
	z.dog = decl.NewClass(dog, decl.ClassBody{})

	z.shape = decl.NewClass(info("Shape", nil), decl.ClassBody{Modifiers: decl.Modifiers{Interface: true}})
	square := info("Square", nil)
	square.Interfaces = []*decl.Link{z.shape.Link()}
	z.square = decl.NewClass(square, decl.ClassBody{})
	cube := info("Cube", nil)
	cube.SuperClass = z.square.Link()
	z.cube = decl.NewClass(cube, decl.ClassBody{})

	walker := info("Walker", nil)
	walker.Interfaces = []*decl.Link{z.shape.Link()}
	z.walker = decl.NewMixin(walker, decl.MixinBody{})

	box := info("Box", nil)
	box.TypeArguments = []*decl.Link{decl.NewLink(decl.LinkInfo{Name: "T", Kind: decl.KindTypeVariable})}
	z.box = decl.NewClass(box, decl.ClassBody{Fields: []*decl.FieldDeclaration{
		decl.NewField(decl.FieldInfo{EntityInfo: decl.EntityInfo{Name: "value", Public: true, LibraryURI: here}}),
	}})

	item := decl.NewClass(info("Item", reflect.TypeOf(Item{})), decl.ClassBody{})
	rt := reflect.TypeOf(Box[Item]{})
	z.boxItem = decl.Recover(z.box, rt, rt.Name(), []*decl.Link{item.Link()}).(*decl.ClassDeclaration)

	z.element = types.NewTypeName(token.NoPos, nil, "Handle", nil)
	handle := info("Handle", nil)
	handle.Element = z.element
	z.handle = decl.NewClass(handle, decl.ClassBody{})

	z.handleDef = decl.NewTypedef(info("Handle", nil), decl.BuiltinLibrary().Basics()[1])
	z.color = decl.NewEnum(info("Color", nil), decl.EnumBody{})
	return z
}

func (z *zoo) library() *decl.Library {
	item := decl.NewClass(info("Item", reflect.TypeOf(Item{})), decl.ClassBody{})
	return decl.NewLibrary(here, decl.Package{Name: "github.com/conduit-lang/mirror", IsRoot: true}, []decl.Declaration{
		z.handleDef, z.animal, z.mammal, z.dog, z.shape, z.square, z.cube,
		z.walker, z.boxItem, z.box, item, z.handle, z.color,
	})
}

func newIndex(t *testing.T) (*Index, *registry.Registry, *zoo) {
	t.Helper()
	reg := registry.New(registry.Config{CorePackage: "github.com/conduit-lang/mirror/core"})
	z := newZoo()
	_, err := reg.Register(registry.Model{Libraries: []*decl.Library{z.library(), decl.BuiltinLibrary()}})
	require.NoError(t, err)
	return New(reg, nil), reg, z
}

func names[T decl.TypeDeclaration](in []T) []string {
	var out []string
	for _, d := range in {
		out = append(out, d.Name())
	}
	return out
}

func TestIndex_NotInitialized(t *testing.T) {
	idx := New(registry.New(registry.Config{}), nil)

	_, err := idx.FindByName("Animal", "")
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotInitialized))
	_, err = idx.FindSubclassesOf(decl.Builtins()[0])
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotInitialized))

	nilQueries := map[string]func() error{
		"type": func() error {
			_, err := idx.FindByType(nil)
			return err
		},
		"element": func() error {
			_, err := idx.FindByElement(nil)
			return err
		},
		"subclasses": func() error {
			_, err := idx.FindSubclassesOf(nil)
			return err
		},
		"implementers": func() error {
			_, err := idx.FindImplementersOf(nil)
			return err
		},
		"instantiations": func() error {
			_, err := idx.FindGenericInstantiationsOf(nil)
			return err
		},
	}
	for name, query := range nilQueries {
		t.Run(name, func(t *testing.T) {
			assert.True(t, rterrors.HasCode(query(), rterrors.ErrNotInitialized))
		})
	}
}

func TestIndex_FindByTypeIsReferenceStable(t *testing.T) {
	idx, _, z := newIndex(t)

	first, err := idx.FindByType(reflect.TypeOf(Animal{}))
	require.NoError(t, err)
	second, err := idx.FindByType(reflect.TypeOf(Animal{}))
	require.NoError(t, err)

	assert.Same(t, z.animal, first)
	assert.Same(t, first, second)

	stats := idx.CacheStatistics()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries["type"])

	_, err = idx.FindByType(reflect.TypeOf(struct{ X int }{}))
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
}

func TestIndex_FindByTypeBuiltin(t *testing.T) {
	idx, _, _ := newIndex(t)

	d, err := idx.FindByType(reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "string", d.Name())
	assert.Equal(t, decl.BuiltinURI, d.PackageURI())
}

func TestIndex_FindByTypeRecoveredGeneric(t *testing.T) {
	idx, _, z := newIndex(t)

	d, err := idx.FindByType(reflect.TypeOf(Box[Item]{}))
	require.NoError(t, err)
	assert.Same(t, z.boxItem, d)
}

func TestIndex_FindByTypeDecomposesUnregisteredInstantiation(t *testing.T) {
	idx, _, _ := newIndex(t)
	rt := reflect.TypeOf(Box[int]{})

	d, err := idx.FindByType(rt)
	require.NoError(t, err)
	assert.Equal(t, rt, d.Type())
	assert.Equal(t, "Box[int]", d.ErasedName())
	assert.Equal(t, decl.KindClass, d.Kind())
	require.Len(t, d.TypeArguments(), 1)
	assert.Equal(t, "int", d.TypeArguments()[0].Name())

	again, err := idx.FindByType(rt)
	require.NoError(t, err)
	assert.Same(t, d, again)
}

func TestIndex_FindByNameSpecialisesNonGenericBase(t *testing.T) {
	var intLink *decl.Link
	for _, b := range decl.Builtins() {
		if b.Name() == "int" {
			intLink = b.Link()
		}
	}
	require.NotNil(t, intLink)

	box := decl.NewClass(info("Box", nil), decl.ClassBody{Fields: []*decl.FieldDeclaration{
		decl.NewField(decl.FieldInfo{
			EntityInfo: decl.EntityInfo{Name: "value", Public: true, LibraryURI: here},
			FieldType:  intLink,
		}),
	}})
	require.False(t, box.IsGeneric())

	reg := registry.New(registry.Config{})
	lib := decl.NewLibrary(here, decl.Package{Name: "example.com/plain", IsRoot: true}, []decl.Declaration{box})
	_, err := reg.Register(registry.Model{Libraries: []*decl.Library{lib, decl.BuiltinLibrary()}})
	require.NoError(t, err)

	d, err := New(reg, nil).FindByName("Box<String>", "")
	require.NoError(t, err)
	require.IsType(t, &decl.ClassDeclaration{}, d)
	assert.Equal(t, "Box<String>", d.QualifiedName())
	require.Len(t, d.TypeArguments(), 1)
	assert.Equal(t, "string", d.TypeArguments()[0].Name())

	value, ok := d.(*decl.ClassDeclaration).Field("value")
	require.True(t, ok)
	assert.Equal(t, "int", value.FieldType().Name())
}

func TestIndex_FindByNameGeneric(t *testing.T) {
	idx, _, z := newIndex(t)

	d, err := idx.FindByName("Box<String>", "")
	require.NoError(t, err)
	require.IsType(t, &decl.ClassDeclaration{}, d)

	assert.Equal(t, "Box<String>", d.QualifiedName())
	assert.True(t, d.IsSynthetic())
	require.Len(t, d.TypeArguments(), 1)
	assert.Equal(t, "string", d.TypeArguments()[0].Name())
	_, ok := d.(*decl.ClassDeclaration).Field("value")
	assert.True(t, ok)
	assert.Equal(t, decl.KindTypeVariable, z.box.TypeArguments()[0].Kind())

	again, err := idx.FindByName("Box<String>", "")
	require.NoError(t, err)
	assert.Same(t, d, again)

	nested, err := idx.FindByName("Box<Box<Item>>", "")
	require.NoError(t, err)
	require.Len(t, nested.TypeArguments(), 1)
	assert.Equal(t, "Box<Item>", nested.TypeArguments()[0].QualifiedName())

	_, err = idx.FindByName("Box<Unknown>", "")
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
}

func TestIndex_FindByQualifiedName(t *testing.T) {
	idx, _, z := newIndex(t)

	d, err := idx.FindByQualifiedName(here + ".Dog")
	require.NoError(t, err)
	assert.Same(t, z.dog, d)

	generic, err := idx.FindByQualifiedName(here + ".Box[string]")
	require.NoError(t, err)
	assert.Equal(t, here+".Box[string]", generic.QualifiedName())

	_, err = idx.FindByQualifiedName("Dog")
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
}

func TestIndex_SimpleNameSearchOrderAndPackages(t *testing.T) {
	idx, _, z := newIndex(t)

	d, err := idx.FindBySimpleName("Handle", "")
	require.NoError(t, err)
	assert.Same(t, z.handle, d, "classes are searched before typedefs")

	all, err := idx.FindAllBySimpleName("Handle", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, z.handleDef, all[1])

	boxes, err := idx.FindAllBySimpleName("Box", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Box", "Box[" + here + ".Item]"}, names(boxes))

	_, err = idx.FindBySimpleName("string", "std")
	assert.NoError(t, err)
	_, err = idx.FindBySimpleName("Animal", "std")
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
	_, err = idx.FindByName("Animal", "github.com/conduit-lang/mirror")
	assert.NoError(t, err)
	_, err = idx.FindByName("Animal", "example.com/other")
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
}

func TestIndex_FindByElement(t *testing.T) {
	idx, _, z := newIndex(t)

	d, err := idx.FindByElement(z.element)
	require.NoError(t, err)
	assert.Same(t, z.handle, d)

	_, err = idx.FindByElement(types.NewTypeName(token.NoPos, nil, "Other", nil))
	assert.True(t, rterrors.HasCode(err, rterrors.ErrNotFound))
}

func TestIndex_FindSubclassesOfIsTransitive(t *testing.T) {
	idx, _, z := newIndex(t)

	subs, err := idx.FindSubclassesOf(z.animal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mammal", "Dog"}, names(subs))

	subs, err = idx.FindSubclassesOf(z.mammal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dog"}, names(subs))

	subs, err = idx.FindSubclassesOf(z.shape)
	require.NoError(t, err)
	assert.Equal(t, []string{"Square", "Cube"}, names(subs))

	again, _ := idx.FindSubclassesOf(z.animal)
	assert.Same(t, z.mammal, again[0])
}

func TestIndex_FindImplementersOfIsOneHop(t *testing.T) {
	idx, _, z := newIndex(t)

	impls, err := idx.FindImplementersOf(z.shape)
	require.NoError(t, err)
	assert.Equal(t, []string{"Square", "Walker"}, names(impls))
}

func TestIndex_FindGenericInstantiationsOf(t *testing.T) {
	idx, _, z := newIndex(t)

	found, err := idx.FindGenericInstantiationsOf(z.box)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Same(t, z.boxItem, found[0])
}

func TestIndex_ReRegistrationClearsCaches(t *testing.T) {
	idx, reg, z := newIndex(t)

	before, err := idx.FindByName("Animal", "")
	require.NoError(t, err)
	assert.Same(t, z.animal, before)

	next := newZoo()
	_, err = reg.Register(registry.Model{Libraries: []*decl.Library{next.library(), decl.BuiltinLibrary()}})
	require.NoError(t, err)

	stats := idx.CacheStatistics()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)

	after, err := idx.FindByName("Animal", "")
	require.NoError(t, err)
	assert.Same(t, next.animal, after)
	assert.NotSame(t, before, after)
}

func TestIndex_PreloadAndValidate(t *testing.T) {
	idx, _, _ := newIndex(t)

	require.NoError(t, idx.PreloadCaches())
	stats := idx.CacheStatistics()
	assert.Positive(t, stats.Entries["type"])
	assert.Positive(t, stats.Entries["qualified"])
	assert.Equal(t, 1, stats.Entries["element"])

	_, err := idx.FindByName("Box<String>", "")
	require.NoError(t, err)
	assert.NoError(t, idx.ValidateCaches())

	idx.mu.Lock()
	idx.byName["stale\x00"] = newZoo().dog
	idx.mu.Unlock()
	assert.ErrorContains(t, idx.ValidateCaches(), "stale")
}
