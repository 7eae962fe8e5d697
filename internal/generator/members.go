package generator

import (
	"go/constant"
	"go/types"
	"reflect"
	"strconv"
	"strings"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// staticFields builds the non-embedded fields of st. Anonymous struct
// fields also produce a nested record named <Owner><Field>.
func (u *unit) staticFields(owner *decl.Link, ownerName string, st *types.Struct, rt reflect.Type) ([]*decl.FieldDeclaration, []*decl.RecordDeclaration) {
	var fields []*decl.FieldDeclaration
	var records []*decl.RecordDeclaration
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Embedded() {
			continue
		}
		tag := parseTag(st.Tag(i))
		var frt reflect.Type
		if rt != nil && rt.Kind() == reflect.Struct {
			if sf, ok := rt.FieldByName(f.Name()); ok {
				frt = sf.Type
			}
		}
		if inner, ok := types.Unalias(f.Type()).(*types.Struct); ok {
			name := ownerName + f.Name()
			info := decl.TypeInfo{
				EntityInfo: decl.EntityInfo{
					Name:       name,
					Type:       frt,
					Public:     f.Exported(),
					Synthetic:  true,
					StaticType: inner,
					LibraryURI: u.uri,
					Location:   u.position(f.Pos()),
				},
				SimpleName: name,
				PackageURI: u.uri,
			}
			records = append(records, u.staticRecord(info, inner, frt))
		}
		fields = append(fields, decl.NewField(decl.FieldInfo{
			EntityInfo: decl.EntityInfo{
				Name:        f.Name(),
				Type:        frt,
				Public:      f.Exported(),
				Element:     f,
				StaticType:  f.Type(),
				LibraryURI:  u.uri,
				Annotations: u.tagAnnotations(tag),
				Location:    u.position(f.Pos()),
			},
			Owner:     owner,
			FieldType: u.links.FromStatic(f.Type()),
			Modifiers: decl.FieldModifiers{
				Final:    !f.Exported() || tag.option("final"),
				Late:     tag.option("late"),
				Nullable: isNullable(f.Type()),
			},
		}))
	}
	return fields, records
}

// staticMethods lists the methods declared on named. Interface methods are
// abstract; embedded interface methods are reached through Interfaces.
func (u *unit) staticMethods(owner *decl.Link, named *types.Named, rt reflect.Type) []*decl.MethodDeclaration {
	var out []*decl.MethodDeclaration
	if iface, ok := named.Underlying().(*types.Interface); ok {
		for i := 0; i < iface.NumExplicitMethods(); i++ {
			out = append(out, u.staticMethod(owner, iface.ExplicitMethod(i), rt, true))
		}
		return out
	}
	for i := 0; i < named.NumMethods(); i++ {
		out = append(out, u.staticMethod(owner, named.Method(i), rt, false))
	}
	return out
}

func (u *unit) staticMethod(owner *decl.Link, fn *types.Func, ownerRT reflect.Type, abstract bool) *decl.MethodDeclaration {
	sig := fn.Type().(*types.Signature)
	member := "method: " + owner.Name() + "." + fn.Name()
	params := u.staticParams(member, sig)
	var rt reflect.Type
	if ownerRT != nil {
		if m, ok := methodByName(ownerRT, fn.Name()); ok {
			rt = m.Type
		}
	}
	return decl.NewMethod(decl.MethodInfo{
		EntityInfo: decl.EntityInfo{
			Name:        fn.Name(),
			Type:        rt,
			Public:      fn.Exported(),
			Element:     fn,
			StaticType:  sig,
			LibraryURI:  u.uri,
			Annotations: u.docAnnotations(u.doc(owner.Name() + "." + fn.Name())),
			Location:    u.position(fn.Pos()),
		},
		Owner:      owner,
		ReturnType: u.returnLink(sig.Results()),
		Parameters: params,
		Flags:      methodFlags(fn.Name(), sig.Params().Len(), sig.Results().Len(), false, abstract),
	})
}

func methodFlags(name string, params, results int, static, abstract bool) decl.MethodFlags {
	return decl.MethodFlags{
		Getter:   params == 0 && results == 1 && !static,
		Setter:   strings.HasPrefix(name, "Set") && params == 1 && results == 0 && !static,
		Static:   static,
		Abstract: abstract,
	}
}

func (u *unit) returnLink(results *types.Tuple) *decl.Link {
	switch results.Len() {
	case 0:
		return u.links.Void()
	case 1:
		return u.links.FromStatic(results.At(0).Type())
	}
	return u.links.FromStatic(results)
}

// staticParams builds positional parameters followed by the named
// parameters of a trailing Options or Params struct.
func (u *unit) staticParams(member string, sig *types.Signature) []*decl.ParameterDeclaration {
	ps := sig.Params()
	n := ps.Len()
	var options *types.Struct
	if n > 0 && !sig.Variadic() {
		if st, ok := optionsStruct(ps.At(n - 1).Type()); ok {
			options = st
			n--
		}
	}
	var out []*decl.ParameterDeclaration
	for i := 0; i < n; i++ {
		v := ps.At(i)
		t := v.Type()
		variadic := sig.Variadic() && i == ps.Len()-1
		if variadic {
			t = t.(*types.Slice).Elem()
		}
		out = append(out, decl.NewParameter(decl.ParameterInfo{
			Name:     paramName(v.Name(), i),
			Index:    i,
			Type:     u.links.FromStatic(t),
			Variadic: variadic,
			Member:   member,
		}))
	}
	if options == nil {
		return out
	}
	for j := 0; j < options.NumFields(); j++ {
		f := options.Field(j)
		if !f.Exported() || f.Embedded() {
			continue
		}
		tag := parseTag(options.Tag(j))
		def, hasDefault := tag.lookup("default")
		out = append(out, decl.NewParameter(decl.ParameterInfo{
			Name:        lowerFirst(f.Name()),
			Index:       len(out),
			Type:        u.links.FromStatic(f.Type()),
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

func optionsStruct(t types.Type) (*types.Struct, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}
	name := n.Obj().Name()
	if !strings.HasSuffix(name, "Options") && !strings.HasSuffix(name, "Params") {
		return nil, false
	}
	st, ok := n.Underlying().(*types.Struct)
	return st, ok
}

func paramName(name string, index int) string {
	if name == "" || name == "_" {
		return "p" + strconv.Itoa(index)
	}
	return name
}

// constructors builds the constructors of a class from its New<Type>
// funcs, preferring the static signature. The unnamed constructor is
// New<Type>; other suffixes name the constructor.
func (u *unit) constructors(owner *decl.Link, typeName string, funcs []string) []*decl.ConstructorDeclaration {
	var out []*decl.ConstructorDeclaration
	for _, fn := range funcs {
		suffix := strings.TrimPrefix(fn, "New"+typeName)
		member := "constructor: " + typeName + "." + suffix
		info := decl.ConstructorInfo{
			EntityInfo: decl.EntityInfo{
				Name:        suffix,
				Public:      true,
				LibraryURI:  u.uri,
				Annotations: u.docAnnotations(u.doc(fn)),
			},
			Owner: owner,
		}
		lf, hasLive := u.liveFuncs[fn]
		if hasLive {
			info.Type = lf.Func.Type()
			info.Annotations = append(info.Annotations, u.liveAnnotations(lf.Annotations)...)
		}
		if f, ok := u.staticFunc(fn); ok {
			sig := f.Type().(*types.Signature)
			info.Element = f
			info.StaticType = sig
			info.Location = u.position(f.Pos())
			info.Parameters = u.staticParams(member, sig)
			info.Factory = sig.Results().Len() == 2
		} else if hasLive {
			ft := lf.Func.Type()
			info.Parameters = u.liveParams(member, ft, 0)
			info.Factory = ft.NumOut() == 2
		}
		u.consumed[fn] = true
		out = append(out, decl.NewConstructor(info))
	}
	return out
}

func (u *unit) staticFunc(name string) (*types.Func, bool) {
	if u.lib == nil {
		return nil, false
	}
	f, ok := u.lib.Lookup(name).(*types.Func)
	return f, ok
}

// function builds a top-level function from the static element when there
// is one and from the live func otherwise.
func (u *unit) function(name string) *decl.MethodDeclaration {
	member := "method: " + u.uri + "." + name
	info := decl.MethodInfo{
		EntityInfo: decl.EntityInfo{
			Name:        name,
			Public:      isExported(name),
			LibraryURI:  u.uri,
			Annotations: u.docAnnotations(u.doc(name)),
		},
	}
	lf, hasLive := u.liveFuncs[name]
	if hasLive {
		info.Type = lf.Func.Type()
		info.Annotations = append(info.Annotations, u.liveAnnotations(lf.Annotations)...)
	}
	if f, ok := u.staticFunc(name); ok {
		sig := f.Type().(*types.Signature)
		info.Element = f
		info.StaticType = sig
		info.Location = u.position(f.Pos())
		info.ReturnType = u.returnLink(sig.Results())
		info.Parameters = u.staticParams(member, sig)
		info.Flags = methodFlags(name, sig.Params().Len(), sig.Results().Len(), true, false)
	} else if hasLive {
		ft := lf.Func.Type()
		info.ReturnType = u.liveReturnLink(ft)
		info.Parameters = u.liveParams(member, ft, 0)
		info.Flags = methodFlags(name, ft.NumIn(), ft.NumOut(), true, false)
	}
	return decl.NewMethod(info)
}

// variable builds a package-level variable or constant.
func (u *unit) variable(name string) *decl.FieldDeclaration {
	info := decl.FieldInfo{
		EntityInfo: decl.EntityInfo{
			Name:        name,
			Public:      isExported(name),
			LibraryURI:  u.uri,
			Annotations: u.docAnnotations(u.doc(name)),
		},
		Modifiers: decl.FieldModifiers{Static: true, Final: !isExported(name)},
	}
	lv, hasLive := u.liveValues[name]
	if hasLive && lv.Value.IsValid() {
		t := lv.Value.Type()
		if !lv.Const && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		info.Type = t
		info.FieldType = u.links.FromLive(t)
		if lv.Const {
			info.Modifiers.Const = true
			info.Modifiers.Final = true
			info.Value = lv.Value.Interface()
			info.HasValue = true
		}
	}
	if u.lib != nil {
		switch obj := u.lib.Lookup(name).(type) {
		case *types.Var:
			info.Element = obj
			info.StaticType = obj.Type()
			info.Location = u.position(obj.Pos())
			info.FieldType = u.links.FromStatic(obj.Type())
			info.Modifiers.Nullable = isNullable(obj.Type())
		case *types.Const:
			info.Element = obj
			info.StaticType = obj.Type()
			info.Location = u.position(obj.Pos())
			info.FieldType = u.links.FromStatic(obj.Type())
			info.Modifiers.Const = true
			info.Modifiers.Final = true
			info.Value = constantValue(obj)
			info.HasValue = true
		}
	}
	return decl.NewField(info)
}

// constantValue converts a constant to the closest Go value.
func constantValue(c *types.Const) any {
	v := c.Val()
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v)
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		if i, ok := constant.Int64Val(v); ok {
			return i
		}
	case constant.Float:
		if f, ok := constant.Float64Val(v); ok {
			return f
		}
	}
	return v.ExactString()
}

func methodByName(rt reflect.Type, name string) (reflect.Method, bool) {
	if rt.Kind() == reflect.Interface {
		return rt.MethodByName(name)
	}
	return reflect.PointerTo(rt).MethodByName(name)
}
