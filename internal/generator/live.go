package generator

import (
	"reflect"

	"github.com/conduit-lang/mirror/internal/introspect"
	"github.com/conduit-lang/mirror/internal/introspect/live"
	"github.com/conduit-lang/mirror/runtime/decl"
)

// liveType builds a declaration from reflect data alone. Enum values come
// from constants registered with the type; other modifiers come from the
// structure and the textual directives.
func (u *unit) liveType(lt introspect.LiveType, ctors []string) decl.TypeDeclaration {
	rt := lt.Type
	name := lt.Name
	if name == "" && rt != nil {
		name = rt.Name()
	}
	info := decl.TypeInfo{
		EntityInfo: decl.EntityInfo{
			Name:        name,
			Type:        rt,
			Public:      isExported(name),
			LibraryURI:  u.uri,
			Annotations: u.liveAnnotations(lt.Annotations),
		},
		SimpleName: name,
		PackageURI: u.uri,
	}
	if rt == nil {
		return decl.NewBasic(decl.KindUnknown, info)
	}
	info.Nullable = liveNullable(rt)
	if isErased(rt.Name()) {
		info.ErasedName = rt.Name()
	}

	if rt.Kind() == reflect.Func {
		return decl.NewTypedef(info, shallow(u.links.FromLive(unnamedFunc(rt))))
	}

	if u.hasLiveConstants(rt) {
		self := u.selfLink(info, decl.KindEnum)
		return decl.NewEnum(info, decl.EnumBody{
			Values:  u.liveEnumValues(self, rt),
			Methods: u.liveMethods(self, rt),
		})
	}

	super, mixins, ifaces := u.liveSupertypes(rt)

	if rt.Kind() == reflect.Struct && u.isMixin(name) {
		self := u.selfLink(info, decl.KindMixin)
		return decl.NewMixin(info, decl.MixinBody{
			Fields:  u.liveFields(self, rt),
			Methods: u.liveMethods(self, rt),
			On:      ifaces,
		})
	}

	info.SuperClass = super
	info.Mixins = mixins
	info.Interfaces = ifaces
	self := u.selfLink(info, decl.KindClass)
	return decl.NewClass(info, decl.ClassBody{
		Constructors: u.constructors(self, name, ctors),
		Fields:       u.liveFields(self, rt),
		Methods:      u.liveMethods(self, rt),
		Modifiers:    u.modifiers(name, liveModifiers(rt), false),
	})
}

func (u *unit) hasLiveConstants(rt reflect.Type) bool {
	if u.live == nil || rt.Kind() == reflect.Struct || rt.Kind() == reflect.Interface {
		return false
	}
	for _, v := range u.live.Values() {
		if v.Const && v.Value.IsValid() && v.Value.Type() == rt {
			return true
		}
	}
	return false
}

// liveEnumValues returns the constants registered with type rt, in
// registration order.
func (u *unit) liveEnumValues(self *decl.Link, rt reflect.Type) []*decl.FieldDeclaration {
	var out []*decl.FieldDeclaration
	for _, v := range u.live.Values() {
		if !v.Const || !v.Value.IsValid() || v.Value.Type() != rt {
			continue
		}
		u.enumValues[v.Name] = true
		out = append(out, decl.NewField(decl.FieldInfo{
			EntityInfo: decl.EntityInfo{Name: v.Name, Type: rt, Public: isExported(v.Name), LibraryURI: u.uri},
			Owner:      self,
			FieldType:  self,
			Modifiers:  decl.FieldModifiers{Final: true, Const: true, Static: true},
			Value:      v.Value.Interface(),
			HasValue:   true,
		}))
	}
	return out
}

func (u *unit) liveSupertypes(rt reflect.Type) (super *decl.Link, mixins, ifaces []*decl.Link) {
	if rt.Kind() != reflect.Struct {
		return nil, nil, nil
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.Anonymous {
			continue
		}
		t := f.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		l := u.links.FromLive(t)
		switch {
		case l == nil:
		case t.Kind() == reflect.Interface:
			ifaces = append(ifaces, l)
		case super == nil:
			super = l
		default:
			mixins = append(mixins, l)
		}
	}
	return super, mixins, ifaces
}

func (u *unit) liveFields(owner *decl.Link, rt reflect.Type) []*decl.FieldDeclaration {
	if rt.Kind() != reflect.Struct {
		return nil
	}
	var out []*decl.FieldDeclaration
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous {
			continue
		}
		tag := parseTag(string(f.Tag))
		out = append(out, decl.NewField(decl.FieldInfo{
			EntityInfo: decl.EntityInfo{
				Name:        f.Name,
				Type:        f.Type,
				Public:      f.IsExported(),
				LibraryURI:  u.uri,
				Annotations: u.tagAnnotations(tag),
			},
			Owner:     owner,
			FieldType: u.links.FromLive(f.Type),
			Modifiers: decl.FieldModifiers{
				Final:    !f.IsExported() || tag.option("final"),
				Late:     tag.option("late"),
				Nullable: liveNullable(f.Type),
			},
		}))
	}
	return out
}

// liveMethods lists the exported methods of rt and *rt. Interface methods
// are abstract.
func (u *unit) liveMethods(owner *decl.Link, rt reflect.Type) []*decl.MethodDeclaration {
	t, skip, abstract := reflect.PointerTo(rt), 1, false
	if rt.Kind() == reflect.Interface {
		t, skip, abstract = rt, 0, true
	}
	var out []*decl.MethodDeclaration
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		member := "method: " + owner.Name() + "." + m.Name
		out = append(out, decl.NewMethod(decl.MethodInfo{
			EntityInfo: decl.EntityInfo{
				Name:       m.Name,
				Type:       m.Type,
				Public:     true,
				LibraryURI: u.uri,
			},
			Owner:      owner,
			ReturnType: u.liveReturnLink(m.Type),
			Parameters: u.liveParams(member, m.Type, skip),
			Flags:      methodFlags(m.Name, m.Type.NumIn()-skip, m.Type.NumOut(), false, abstract),
		}))
	}
	return out
}

func (u *unit) liveReturnLink(ft reflect.Type) *decl.Link {
	switch ft.NumOut() {
	case 0:
		return u.links.Void()
	case 1:
		return u.links.FromLive(ft.Out(0))
	}
	args := make([]*decl.Link, 0, ft.NumOut())
	for i := 0; i < ft.NumOut(); i++ {
		args = append(args, u.links.FromLive(ft.Out(i)))
	}
	return decl.NewLink(decl.LinkInfo{
		Name:          "tuple",
		CanonicalURI:  decl.BuiltinURI,
		ReferenceURI:  u.uri,
		TypeArguments: args,
		Kind:          decl.KindRecord,
	})
}

// liveParams mirrors staticParams for a reflect func type. skip drops the
// receiver of method values.
func (u *unit) liveParams(member string, ft reflect.Type, skip int) []*decl.ParameterDeclaration {
	n := ft.NumIn()
	var options reflect.Type
	if n > skip && !ft.IsVariadic() && live.IsOptionsType(ft.In(n-1)) {
		options = ft.In(n - 1)
		if options.Kind() == reflect.Pointer {
			options = options.Elem()
		}
		n--
	}
	var out []*decl.ParameterDeclaration
	for i := skip; i < n; i++ {
		t := ft.In(i)
		variadic := ft.IsVariadic() && i == ft.NumIn()-1
		if variadic {
			t = t.Elem()
		}
		out = append(out, decl.NewParameter(decl.ParameterInfo{
			Name:     paramName("", i-skip),
			Index:    i - skip,
			Type:     u.links.FromLive(t),
			Variadic: variadic,
			Member:   member,
		}))
	}
	if options == nil {
		return out
	}
	for j := 0; j < options.NumField(); j++ {
		f := options.Field(j)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := parseTag(string(f.Tag))
		def, hasDefault := tag.lookup("default")
		out = append(out, decl.NewParameter(decl.ParameterInfo{
			Name:        lowerFirst(f.Name),
			Index:       len(out),
			Type:        u.links.FromLive(f.Type),
			Named:       true,
			Optional:    !tag.option("required"),
			HasDefault:  hasDefault,
			Default:     def,
			Member:      member,
			Annotations: u.tagAnnotations(tag),
		}))
	}
	return out
}

// liveModifiers derives class modifiers from reflect structure.
func liveModifiers(rt reflect.Type) decl.Modifiers {
	var m decl.Modifiers
	switch rt.Kind() {
	case reflect.Interface:
		m.Interface = true
		m.Abstract = true
		for i := 0; i < rt.NumMethod(); i++ {
			if !rt.Method(i).IsExported() {
				m.Sealed = true
			}
		}
	case reflect.Struct:
		n := rt.NumField()
		embedded, exported := 0, 0
		for i := 0; i < n; i++ {
			if rt.Field(i).Anonymous {
				embedded++
			} else if rt.Field(i).IsExported() {
				exported++
			}
		}
		m.MixinApplication = n > 0 && embedded == n
		m.RecordClass = n > 0 && exported == n && reflect.PointerTo(rt).NumMethod() == 0
	}
	return m
}

func liveNullable(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// unnamedFunc returns the func type underlying a named func type.
func unnamedFunc(rt reflect.Type) reflect.Type {
	in := make([]reflect.Type, rt.NumIn())
	for i := range in {
		in[i] = rt.In(i)
	}
	out := make([]reflect.Type, rt.NumOut())
	for i := range out {
		out[i] = rt.Out(i)
	}
	return reflect.FuncOf(in, out, rt.IsVariadic())
}
