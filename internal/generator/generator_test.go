package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mirror/internal/introspect"
	"github.com/conduit-lang/mirror/internal/introspect/live"
	"github.com/conduit-lang/mirror/internal/introspect/static"
	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

const shop = "example.com/shop"

const shopSource = `package shop

import "time"

// Timestamps is embedded into persisted types.
//
//mirror:mixin
type Timestamps struct {
	CreatedAt int64
}

// Entity has an identity.
type Entity interface {
	Identity() int
}

// Shape is closed to this package.
type Shape interface {
	Area() float64
	sealed()
}

// User is a customer.
// @Table(name="users", limit=5)
type User struct {
	Timestamps
	ID      int    ` + "`json:\"id\"`" + `
	Name    string ` + "`mirror:\"late\"`" + `
	secret  string
	Address struct {
		City string
	}
}

// Identity returns the user id.
// @Cached
func (u *User) Identity() int { return u.ID }

func (u *User) SetName(name string) { u.Name = name }

type UserOptions struct {
	Name string ` + "`mirror:\"required\"`" + `
	Role string ` + "`default:\"member\"`" + `
}

// NewUser creates a user.
func NewUser(id int, opts UserOptions) *User { return &User{ID: id, Name: opts.Name} }

func NewUserStrict(id int) (*User, error) { return &User{ID: id}, nil }

type Audited struct {
	Reviewer string
}

type Admin struct {
	User
	Audited
}

// Color is a paint color.
type Color int

const (
	Red Color = iota
	Green
)

type Point struct {
	X, Y int
}

type Pair = struct{ A, B int }

type Handler func(name string) error

type Stamp time.Time

type Box[T any] struct {
	Value T
}

func Greet(greeting string, names ...string) string { return greeting }

var Version = "1.0"

const MaxUsers = 10
`

type Timestamps struct {
	CreatedAt int64
}

type User struct {
	Timestamps
	ID      int    `json:"id"`
	Name    string `mirror:"late"`
	secret  string
	Address struct {
		City string
	}
}

func (u *User) Identity() int { return u.ID }

func (u *User) SetName(name string) { u.Name = name }

type UserOptions struct {
	Name string `mirror:"required"`
	Role string `default:"member"`
}

func NewUser(id int, opts UserOptions) *User { return &User{ID: id, Name: opts.Name} }

func NewUserStrict(id int) (*User, error) { return &User{ID: id}, nil }

type Color int

const (
	Red Color = iota
	Green
)

type Table struct {
	Name   string
	Limit  int
	Engine string
}

type Item struct{}

type Box[T any] struct {
	Value T
}

type Store interface {
	Save() error
}

type Ledger struct {
	Entries []string
}

type fakeScanner struct {
	units []introspect.Unit
	err   error
}

func (s fakeScanner) DiscoverUnits(context.Context) ([]introspect.Unit, error) {
	return s.units, s.err
}

func (s fakeScanner) UnitToModuleURI(u introspect.Unit) string { return u.ImportPath }

// failingStatic fails to load one package and delegates the rest.
type failingStatic struct {
	introspect.StaticBackend
	fail string
}

func (f failingStatic) Library(ctx context.Context, uri string) (introspect.StaticLibrary, error) {
	if uri == f.fail {
		return nil, errors.New("load failed")
	}
	return f.StaticBackend.Library(ctx, uri)
}

// erasedBackend reports extra live types for one package, standing in for
// generic instantiations whose names the type registry does not index.
type erasedBackend struct {
	*live.Registry
	uri   string
	extra []introspect.LiveType
}

func (b erasedBackend) Module(uri string) (introspect.LiveModule, bool) {
	m, ok := b.Registry.Module(uri)
	if uri != b.uri || !ok {
		return m, ok
	}
	return erasedModule{LiveModule: m, extra: b.extra}, true
}

type erasedModule struct {
	introspect.LiveModule
	extra []introspect.LiveType
}

func (m erasedModule) Types() []introspect.LiveType {
	return append(m.LiveModule.Types(), m.extra...)
}

func shopRegistry(t *testing.T) *live.Registry {
	t.Helper()
	r := live.NewRegistry()
	require.NoError(t, r.RegisterType(shop, reflect.TypeOf(Timestamps{})))
	require.NoError(t, r.RegisterType(shop, reflect.TypeOf(User{})))
	require.NoError(t, r.RegisterType(shop, reflect.TypeOf(UserOptions{})))
	require.NoError(t, r.RegisterType(shop, reflect.TypeOf(Color(0))))
	require.NoError(t, r.RegisterFunc(shop, "NewUser", NewUser))
	require.NoError(t, r.RegisterFunc(shop, "NewUserStrict", NewUserStrict))
	r.RegisterValue(shop, "Red", Red, true)
	r.RegisterValue(shop, "Green", Green, true)
	require.NoError(t, r.RegisterAnnotation("Table", Table{Engine: "inno"}))
	return r
}

func generateShop(t *testing.T) (*decl.Library, *Report) {
	t.Helper()
	src, err := static.FromSource(shop, map[string]string{"shop.go": shopSource})
	require.NoError(t, err)

	g := New(fakeScanner{units: []introspect.Unit{{ImportPath: shop, Package: decl.Package{Name: "shop"}}}},
		shopRegistry(t), static.NewMemory(src), Options{Workers: 2})
	libs, report, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, libs, 2)
	assert.Equal(t, decl.BuiltinURI, libs[1].URI())
	return libs[0], report
}

func declNamed[T decl.Declaration](t *testing.T, lib *decl.Library, name string) T {
	t.Helper()
	for _, d := range lib.Declarations() {
		if typed, ok := d.(T); ok && d.Name() == name {
			return typed
		}
	}
	require.Failf(t, "declaration not found", "%s in %s", name, lib.URI())
	var zero T
	return zero
}

func linkNames(links []*decl.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Name()
	}
	return out
}

func TestGenerate_MergesStaticAndLive(t *testing.T) {
	lib, report := generateShop(t)

	assert.Equal(t, []string{shop}, report.Processed)
	assert.Empty(t, report.Skipped)
	assert.NotEmpty(t, report.ID)

	user := declNamed[*decl.ClassDeclaration](t, lib, "User")
	assert.Equal(t, reflect.TypeOf(User{}), user.Type())
	assert.NotNil(t, user.Element())
	require.NotNil(t, user.SuperClass())
	assert.Equal(t, "Timestamps", user.SuperClass().Name())
	assert.Empty(t, user.Mixins())
	assert.Contains(t, linkNames(user.Interfaces()), "Entity")
	assert.NotContains(t, linkNames(user.Interfaces()), "Shape")

	var fieldNames []string
	for _, f := range user.Fields() {
		fieldNames = append(fieldNames, f.Name())
	}
	assert.Equal(t, []string{"ID", "Name", "secret", "Address"}, fieldNames)

	secret, ok := user.Field("secret")
	require.True(t, ok)
	assert.True(t, secret.IsFinal())
	assert.False(t, secret.IsPublic())

	name, _ := user.Field("Name")
	assert.True(t, name.IsLate())

	id, _ := user.Field("ID")
	assert.Equal(t, "int", id.FieldType().Name())
	jsonTag, ok := id.Annotation("json")
	require.True(t, ok)
	v, _ := jsonTag.Value("value")
	assert.Equal(t, "id", v)

	require.Len(t, user.Records(), 1)
	assert.Equal(t, "UserAddress", user.Records()[0].Name())
	assert.True(t, user.Records()[0].IsSynthetic())
}

func TestGenerate_Constructors(t *testing.T) {
	lib, _ := generateShop(t)
	user := declNamed[*decl.ClassDeclaration](t, lib, "User")

	require.Len(t, user.Constructors(), 2)
	ctor, ok := user.Constructor("")
	require.True(t, ok)
	assert.False(t, ctor.IsFactory())
	assert.NotNil(t, ctor.Type())

	params := ctor.Parameters()
	require.Len(t, params, 3)
	assert.Equal(t, "id", params[0].Name())
	assert.False(t, params[0].IsNamed())
	assert.True(t, params[0].IsRequired())

	assert.Equal(t, "name", params[1].Name())
	assert.True(t, params[1].IsNamed())
	assert.True(t, params[1].IsRequired())

	assert.Equal(t, "role", params[2].Name())
	assert.True(t, params[2].IsOptional())
	assert.True(t, params[2].HasDefault())
	assert.Equal(t, "member", params[2].Default())

	strict, ok := user.Constructor("Strict")
	require.True(t, ok)
	assert.True(t, strict.IsFactory())

	for _, m := range lib.Methods() {
		assert.NotEqual(t, "NewUser", m.Name())
		assert.NotEqual(t, "NewUserStrict", m.Name())
	}
}

func TestGenerate_Methods(t *testing.T) {
	lib, _ := generateShop(t)
	user := declNamed[*decl.ClassDeclaration](t, lib, "User")

	identity, ok := user.Method("Identity")
	require.True(t, ok)
	assert.True(t, identity.IsGetter())
	assert.NotNil(t, identity.Type())
	_, ok = identity.Annotation("Cached")
	assert.True(t, ok)

	setName, ok := user.Method("SetName")
	require.True(t, ok)
	assert.True(t, setName.IsSetter())
	assert.Equal(t, "void", setName.ReturnType().Name())
}

func TestGenerate_AnnotationInstances(t *testing.T) {
	lib, _ := generateShop(t)
	user := declNamed[*decl.ClassDeclaration](t, lib, "User")

	table, ok := user.Annotation("Table")
	require.True(t, ok)
	assert.Equal(t, Table{Name: "users", Limit: 5, Engine: "inno"}, table.Instance())
	assert.Equal(t, reflect.TypeOf(Table{}), table.Type())

	limit, ok := table.Field("limit")
	require.True(t, ok)
	assert.True(t, limit.IsUserSupplied())
	assert.Equal(t, int64(5), limit.Value())

	engine, ok := table.Field("engine")
	require.True(t, ok)
	assert.False(t, engine.IsUserSupplied())
	assert.True(t, engine.HasDefault())
	assert.Equal(t, "inno", engine.Default())
}

func TestGenerate_DeclarationKinds(t *testing.T) {
	lib, _ := generateShop(t)

	mixin := declNamed[*decl.MixinDeclaration](t, lib, "Timestamps")
	assert.Equal(t, reflect.TypeOf(Timestamps{}), mixin.Type())
	require.Len(t, mixin.Fields(), 1)

	color := declNamed[*decl.EnumDeclaration](t, lib, "Color")
	assert.Equal(t, reflect.TypeOf(Color(0)), color.Type())
	require.Len(t, color.Values(), 2)
	assert.Equal(t, "Red", color.Values()[0].Name())
	red, _ := color.Values()[0].Value()
	green, _ := color.Values()[1].Value()
	assert.Equal(t, int64(0), red)
	assert.Equal(t, int64(1), green)

	pair := declNamed[*decl.RecordDeclaration](t, lib, "Pair")
	assert.Len(t, pair.NamedFields(), 2)

	handler := declNamed[*decl.TypedefDeclaration](t, lib, "Handler")
	require.NotNil(t, handler.Aliased())
	assert.Equal(t, decl.KindFunction, handler.Aliased().Kind())

	stamp := declNamed[*decl.ExtensionDeclaration](t, lib, "Stamp")
	require.NotNil(t, stamp.OnType())
	assert.Equal(t, "Time", stamp.OnType().Name())
	assert.Equal(t, "time", stamp.OnType().CanonicalURI())

	box := declNamed[*decl.ClassDeclaration](t, lib, "Box")
	assert.True(t, box.IsGeneric())
	assert.Nil(t, box.Type())
	require.Len(t, box.TypeArguments(), 1)
	assert.Equal(t, decl.KindTypeVariable, box.TypeArguments()[0].Kind())

	shape := declNamed[*decl.ClassDeclaration](t, lib, "Shape")
	assert.True(t, shape.Modifiers().Sealed)
	assert.True(t, shape.IsInterface())
	assert.True(t, shape.IsAbstract())

	point := declNamed[*decl.ClassDeclaration](t, lib, "Point")
	assert.True(t, point.Modifiers().RecordClass)

	admin := declNamed[*decl.ClassDeclaration](t, lib, "Admin")
	assert.True(t, admin.Modifiers().MixinApplication)
	assert.Equal(t, "User", admin.SuperClass().Name())
	assert.Equal(t, []string{"Audited"}, linkNames(admin.Mixins()))
	assert.Contains(t, linkNames(admin.Interfaces()), "Entity")
}

func TestGenerate_TopLevelMembers(t *testing.T) {
	lib, _ := generateShop(t)

	greet := declNamed[*decl.MethodDeclaration](t, lib, "Greet")
	assert.True(t, greet.IsStatic())
	params := greet.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "names", params[1].Name())
	assert.True(t, params[1].IsVariadic())
	assert.True(t, params[1].IsOptional())
	assert.Equal(t, "string", params[1].ParamType().Name())

	version := declNamed[*decl.FieldDeclaration](t, lib, "Version")
	assert.True(t, version.IsStatic())
	assert.False(t, version.IsConst())

	maxUsers := declNamed[*decl.FieldDeclaration](t, lib, "MaxUsers")
	assert.True(t, maxUsers.IsConst())
	value, ok := maxUsers.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(10), value)

	for _, f := range lib.Fields() {
		assert.NotEqual(t, "Red", f.Name(), "enum values are not top-level fields")
	}
}

func TestGenerate_SelfReferentialBoundTerminates(t *testing.T) {
	const uri = "example.com/graph"
	src, err := static.FromSource(uri, map[string]string{"graph.go": `package graph

type Ord[T any] interface {
	Less(T) bool
}

type Tree[T Ord[T]] struct {
	Left  *Tree[T]
	Value T
}
`})
	require.NoError(t, err)

	g := New(fakeScanner{units: []introspect.Unit{{ImportPath: uri}}}, live.NewRegistry(), static.NewMemory(src), Options{})
	libs, report, err := g.Generate(context.Background())
	require.NoError(t, err)

	tree := declNamed[*decl.ClassDeclaration](t, libs[0], "Tree")
	require.Len(t, tree.TypeArguments(), 1)
	param := tree.TypeArguments()[0]
	assert.Equal(t, decl.KindTypeVariable, param.Kind())
	require.NotNil(t, param.UpperBound())
	assert.Equal(t, "Ord", param.UpperBound().Name())
	assert.Zero(t, param.UpperBound().NumTypeArguments())
	assert.Positive(t, report.Omitted)
}

func TestGenerate_RecoversErasedGenerics(t *testing.T) {
	src, err := static.FromSource(shop, map[string]string{"shop.go": shopSource})
	require.NoError(t, err)

	reg := shopRegistry(t)
	require.NoError(t, reg.RegisterType("", reflect.TypeOf(Item{})))

	boxed := reflect.TypeOf(Box[Item]{})
	wrapped := reflect.TypeOf(Box[string]{})
	backend := erasedBackend{
		Registry: reg,
		uri:      shop,
		extra: []introspect.LiveType{
			{Name: boxed.Name(), Type: boxed},
			{Name: wrapped.Name(), Type: wrapped, Annotations: []any{decl.GenericOverride{Name: "Box", Arguments: []string{"string"}}}},
		},
	}

	g := New(fakeScanner{units: []introspect.Unit{{ImportPath: shop}}}, backend, static.NewMemory(src), Options{})
	libs, _, err := g.Generate(context.Background())
	require.NoError(t, err)

	var recovered []decl.TypeDeclaration
	for _, d := range libs[0].Types() {
		if d.ErasedName() != "" {
			recovered = append(recovered, d)
		}
	}
	require.Len(t, recovered, 2)

	item := recovered[0]
	assert.IsType(t, &decl.ClassDeclaration{}, item)
	assert.Equal(t, boxed, item.Type())
	assert.Equal(t, boxed.Name(), item.ErasedName())
	assert.Equal(t, "Box", item.SimpleName())
	assert.True(t, item.IsSynthetic())
	require.Len(t, item.TypeArguments(), 1)
	assert.Equal(t, "Item", item.TypeArguments()[0].Name())
	assert.Equal(t, reflect.TypeOf(Item{}), item.TypeArguments()[0].Type())

	str := recovered[1]
	assert.Equal(t, wrapped, str.Type())
	require.Len(t, str.TypeArguments(), 1)
	assert.Equal(t, "string", str.TypeArguments()[0].Name())
}

func TestGenerate_TextualModifiers(t *testing.T) {
	dir := t.TempDir()
	storeFile := filepath.Join(dir, "store.go")
	require.NoError(t, os.WriteFile(storeFile, []byte(`package store

//mirror:sealed
//mirror:final
type Store interface {
	Save() error
}

//mirror:base
type Ledger struct {
	Entries []string
}
`), 0o644))

	squareSource := `package shapes

//mirror:sealed
//mirror:final
type Square struct {
	Side float64
}
`
	squareFile := filepath.Join(dir, "shapes.go")
	require.NoError(t, os.WriteFile(squareFile, []byte(squareSource), 0o644))
	src, err := static.FromSource("example.com/shapes", map[string]string{"shapes.go": squareSource})
	require.NoError(t, err)

	reg := live.NewRegistry()
	require.NoError(t, reg.RegisterType("example.com/store", reflect.TypeOf((*Store)(nil)).Elem()))
	require.NoError(t, reg.RegisterType("example.com/store", reflect.TypeOf(Ledger{})))

	units := []introspect.Unit{
		{ImportPath: "example.com/store", Dir: dir, Files: []string{storeFile}},
		{ImportPath: "example.com/shapes", Dir: dir, Files: []string{squareFile}},
	}
	g := New(fakeScanner{units: units}, reg, static.NewMemory(src), Options{})
	libs, report, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Skipped)

	store := declNamed[*decl.ClassDeclaration](t, libs[0], "Store")
	assert.Nil(t, store.Element())
	assert.True(t, store.Modifiers().Sealed)
	assert.True(t, store.Modifiers().Final)
	assert.True(t, store.IsInterface())

	ledger := declNamed[*decl.ClassDeclaration](t, libs[0], "Ledger")
	assert.True(t, ledger.Modifiers().Base)
	assert.False(t, ledger.Modifiers().Sealed)

	square := declNamed[*decl.ClassDeclaration](t, libs[1], "Square")
	assert.True(t, square.Modifiers().Final)
	assert.False(t, square.Modifiers().Sealed, "structure wins over sealed text when a static element exists")
}

func TestGenerate_SkipsFailedUnits(t *testing.T) {
	src, err := static.FromSource(shop, map[string]string{"shop.go": shopSource})
	require.NoError(t, err)

	units := []introspect.Unit{{ImportPath: "example.com/broken"}, {ImportPath: shop}}
	backend := failingStatic{StaticBackend: static.NewMemory(src), fail: "example.com/broken"}
	g := New(fakeScanner{units: units}, shopRegistry(t), backend, Options{Workers: 4})

	libs, report, err := g.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "example.com/broken", report.Skipped[0].URI)
	assert.True(t, rterrors.HasCode(report.Skipped[0].Err, rterrors.ErrGeneration))
	assert.Equal(t, []string{shop}, report.Processed)

	require.Len(t, libs, 2)
	assert.Equal(t, shop, libs[0].URI())
	assert.Equal(t, decl.BuiltinURI, libs[1].URI())
}

func TestGenerate_HostUnitsSkipStaticAnalysis(t *testing.T) {
	reg := live.NewRegistry()
	require.NoError(t, reg.RegisterType("", reflect.TypeOf(Item{})))

	uri := reflect.TypeOf(Item{}).PkgPath()
	units := []introspect.Unit{{ImportPath: uri, Package: decl.Package{Name: decl.HostPackage}}}
	backend := failingStatic{StaticBackend: static.NewMemory(), fail: uri}
	g := New(fakeScanner{units: units}, reg, backend, Options{})

	libs, report, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Skipped)
	assert.Equal(t, decl.HostPackage, libs[0].Package().Name)
	item := declNamed[*decl.ClassDeclaration](t, libs[0], "Item")
	assert.Nil(t, item.Element())
}

func TestGenerate_DiscoveryFailure(t *testing.T) {
	g := New(fakeScanner{err: errors.New("no go.mod")}, nil, nil, Options{})
	_, _, err := g.Generate(context.Background())
	assert.ErrorContains(t, err, "failed to discover units")
}

func TestGenerateUnit_LiveOnly(t *testing.T) {
	g := New(fakeScanner{}, shopRegistry(t), nil, Options{})
	lib, err := g.GenerateUnit(context.Background(), introspect.Unit{ImportPath: shop})
	require.NoError(t, err)

	user := declNamed[*decl.ClassDeclaration](t, lib, "User")
	assert.Nil(t, user.Element())
	assert.Equal(t, "Timestamps", user.SuperClass().Name())

	ctor, ok := user.Constructor("")
	require.True(t, ok)
	params := ctor.Parameters()
	require.Len(t, params, 3)
	assert.Equal(t, "p0", params[0].Name())
	assert.Equal(t, "name", params[1].Name())
	assert.True(t, params[1].IsRequired())
	assert.Equal(t, "member", params[2].Default())

	color := declNamed[*decl.EnumDeclaration](t, lib, "Color")
	assert.Len(t, color.Values(), 2)
}
