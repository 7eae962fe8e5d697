package decl

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Equal reports whether two declarations are structurally equal. Equality
// follows canonical keys built from debug identifiers and Link keys, never
// a deep walk of referenced declarations.
func Equal(a, b Declaration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return CanonicalKey(a) == CanonicalKey(b)
}

// Hash is consistent with Equal.
func Hash(d Declaration) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(CanonicalKey(d)))
	return h.Sum64()
}

// CanonicalKey renders the canonical field list of d.
func CanonicalKey(d Declaration) string {
	k := &keyWriter{}
	k.add("id", d.DebugIdentifier())
	switch t := d.(type) {
	case *ClassDeclaration:
		k.typeFacts(&t.typeBase)
		k.add("modifiers", strings.Join(t.modifiers.names(), ","))
		k.set("constructors", ids(t.constructors))
		k.set("fields", ids(t.fields))
		k.set("methods", ids(t.methods))
		k.set("records", ids(t.records))
	case *EnumDeclaration:
		k.typeFacts(&t.typeBase)
		k.list("values", ids(t.values))
		k.set("fields", ids(t.fields))
		k.set("methods", ids(t.methods))
	case *MixinDeclaration:
		k.typeFacts(&t.typeBase)
		k.set("on", linkKeys(t.on))
		k.set("fields", ids(t.fields))
		k.set("methods", ids(t.methods))
	case *TypedefDeclaration:
		k.typeFacts(&t.typeBase)
		if t.aliased != nil {
			k.add("aliased", t.aliased.QualifiedName())
		}
	case *RecordDeclaration:
		k.typeFacts(&t.typeBase)
		k.list("positional", fieldTypes(t.positional))
		k.set("named", fieldTypes(t.named))
	case *TypeVariableDeclaration:
		k.typeFacts(&t.typeBase)
		k.add("bound", linkKey(t.upperBound))
		k.add("variance", string(t.variance))
	case *ExtensionDeclaration:
		k.typeFacts(&t.typeBase)
		k.add("on", linkKey(t.onType))
		k.set("fields", ids(t.fields))
		k.set("methods", ids(t.methods))
	case *BasicDeclaration:
		k.typeFacts(&t.typeBase)
	case *FieldDeclaration:
		k.add("type", linkKey(t.fieldType))
		k.add("modifiers", strings.Join(fieldModifierNames(t.modifiers), ","))
		k.set("annotations", ids(t.annotations))
	case *MethodDeclaration:
		k.add("returns", linkKey(t.returnType))
		k.list("parameters", ids(t.parameters))
		k.add("flags", fmt.Sprintf("%+v", t.flags))
		k.set("annotations", ids(t.annotations))
	case *ConstructorDeclaration:
		k.list("parameters", ids(t.parameters))
		k.add("flags", fmt.Sprintf("factory=%t,const=%t", t.factory, t.isConst))
		k.set("annotations", ids(t.annotations))
	case *ParameterDeclaration:
		k.add("type", linkKey(t.paramType))
		k.add("flags", fmt.Sprintf("optional=%t,named=%t", t.optional, t.named))
		if t.hasDefault {
			k.add("default", formatValue(t.defaultVal))
		}
	case *Library:
		k.add("package", t.pkg.Name)
		k.set("declarations", ids(t.declarations))
	}
	return k.String()
}

type keyWriter struct {
	b strings.Builder
}

func (k *keyWriter) add(name, value string) {
	k.b.WriteString(name)
	k.b.WriteByte('=')
	k.b.WriteString(value)
	k.b.WriteByte(';')
}

// list adds an ordered collection.
func (k *keyWriter) list(name string, values []string) {
	k.add(name, "["+strings.Join(values, ",")+"]")
}

// set adds an unordered collection in canonical order.
func (k *keyWriter) set(name string, values []string) {
	sorted := copySlice(values)
	sort.Strings(sorted)
	k.add(name, "{"+strings.Join(sorted, ",")+"}")
}

func (k *keyWriter) typeFacts(t *typeBase) {
	k.add("qualified", t.qualifiedName)
	k.add("nullable", fmt.Sprint(t.nullable))
	k.list("type_arguments", linkKeys(t.typeArguments))
	k.add("superclass", linkKey(t.superClass))
	k.set("interfaces", linkKeys(t.interfaces))
	k.set("mixins", linkKeys(t.mixins))
	k.set("annotations", ids(t.annotations))
}

func (k *keyWriter) String() string { return k.b.String() }

func ids[T identified](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.DebugIdentifier()
	}
	return out
}

func linkKeys(links []*Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Key()
	}
	return out
}

func fieldTypes(fields []*FieldDeclaration) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name + ":" + linkKey(f.fieldType)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
