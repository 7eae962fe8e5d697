package generator

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/conduit-lang/mirror/internal/introspect/syntax"
	"github.com/conduit-lang/mirror/runtime/decl"
)

// directive is a parsed "@Name(key=value, ...)" doc line.
type directive struct {
	name   string
	keys   []string
	values map[string]any
}

// parseDirectives extracts annotation directives from doc text. A bare
// argument is stored under the key "value".
func parseDirectives(doc string) []directive {
	var out []directive
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "@") || len(line) < 2 {
			continue
		}
		body := line[1:]
		d := directive{values: make(map[string]any)}
		open := strings.IndexByte(body, '(')
		if open < 0 {
			d.name = strings.Fields(body)[0]
			out = append(out, d)
			continue
		}
		d.name = strings.TrimSpace(body[:open])
		end := strings.LastIndexByte(body, ')')
		if end < open || d.name == "" {
			continue
		}
		for _, arg := range splitArgs(body[open+1 : end]) {
			key, raw, ok := strings.Cut(arg, "=")
			if !ok || strings.HasPrefix(strings.TrimSpace(key), `"`) {
				key, raw = "value", arg
			}
			key = strings.TrimSpace(key)
			if _, dup := d.values[key]; !dup {
				d.keys = append(d.keys, key)
			}
			d.values[key] = literal(strings.TrimSpace(raw))
		}
		out = append(out, d)
	}
	return out
}

// splitArgs splits on commas outside double quotes.
func splitArgs(s string) []string {
	var out []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		out = append(out, last)
	}
	return out
}

func literal(raw string) any {
	if s, err := strconv.Unquote(raw); err == nil {
		return s
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// hasDirective reports whether doc carries the "mirror:<keyword>" line.
func hasDirective(doc, keyword string) bool {
	for _, line := range strings.Split(doc, "\n") {
		if kw, ok := syntax.Parse(line); ok && kw == keyword {
			return true
		}
	}
	return false
}

func (u *unit) docAnnotations(doc string) []*decl.Annotation {
	var out []*decl.Annotation
	for _, d := range parseDirectives(doc) {
		out = append(out, u.annotation(d.name, d.values, d.keys))
	}
	return out
}

// annotation builds an annotation from the values given at the site. When
// the live backend has a prototype, the instance is attached and the
// prototype's remaining fields are added as defaults.
func (u *unit) annotation(name string, values map[string]any, keys []string) *decl.Annotation {
	fields := make([]*decl.AnnotationField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, decl.NewAnnotationField(decl.AnnotationFieldInfo{
			Name:         k,
			Value:        values[k],
			UserSupplied: true,
		}))
	}
	typeLink := decl.NameLink(name)
	if u.backend == nil {
		return decl.NewAnnotation(typeLink, nil, fields)
	}
	instance, ok, err := u.backend.InstantiateAnnotation(name, values)
	if !ok || err != nil {
		return decl.NewAnnotation(typeLink, nil, fields)
	}
	rv := reflect.Indirect(reflect.ValueOf(instance))
	if rv.Kind() != reflect.Struct {
		return decl.NewAnnotation(typeLink, instance, fields)
	}
	rt := rv.Type()
	typeLink = decl.NewLink(decl.LinkInfo{
		Type:         rt,
		Name:         name,
		CanonicalURI: rt.PkgPath(),
		ReferenceURI: u.uri,
		Kind:         decl.KindClass,
	})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || supplied(keys, f.Name) {
			continue
		}
		v := rv.Field(i).Interface()
		fields = append(fields, decl.NewAnnotationField(decl.AnnotationFieldInfo{
			Name:       lowerFirst(f.Name),
			Type:       u.links.FromLive(f.Type),
			Value:      v,
			Default:    v,
			HasDefault: true,
		}))
	}
	return decl.NewAnnotation(typeLink, instance, fields)
}

func supplied(keys []string, field string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, field) {
			return true
		}
	}
	return false
}

// liveAnnotations converts annotation instances attached to live entries.
// Non-zero fields count as user-supplied.
func (u *unit) liveAnnotations(instances []any) []*decl.Annotation {
	var out []*decl.Annotation
	for _, inst := range instances {
		switch inst.(type) {
		case nil, decl.GenericOverride, *decl.GenericOverride:
			continue
		}
		rv := reflect.Indirect(reflect.ValueOf(inst))
		rt := rv.Type()
		typeLink := u.links.FromLive(rt)
		if typeLink == nil {
			typeLink = decl.NameLink(rt.String())
		}
		var fields []*decl.AnnotationField
		if rv.Kind() == reflect.Struct {
			for i := 0; i < rt.NumField(); i++ {
				f := rt.Field(i)
				if !f.IsExported() {
					continue
				}
				fields = append(fields, decl.NewAnnotationField(decl.AnnotationFieldInfo{
					Name:         lowerFirst(f.Name),
					Type:         u.links.FromLive(f.Type),
					Value:        rv.Field(i).Interface(),
					UserSupplied: !rv.Field(i).IsZero(),
				}))
			}
		} else {
			fields = append(fields, decl.NewAnnotationField(decl.AnnotationFieldInfo{
				Name:         "value",
				Value:        rv.Interface(),
				UserSupplied: true,
			}))
		}
		out = append(out, decl.NewAnnotation(typeLink, inst, fields))
	}
	return out
}

// structTag is a parsed struct tag in the conventional key:"value" form.
type structTag struct {
	keys   []string
	values map[string]string
}

func parseTag(raw string) structTag {
	t := structTag{values: make(map[string]string)}
	for raw != "" {
		i := 0
		for i < len(raw) && raw[i] == ' ' {
			i++
		}
		raw = raw[i:]
		if raw == "" {
			break
		}
		i = 0
		for i < len(raw) && raw[i] > ' ' && raw[i] != ':' && raw[i] != '"' && raw[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(raw) || raw[i] != ':' || raw[i+1] != '"' {
			break
		}
		key := raw[:i]
		raw = raw[i+1:]
		i = 1
		for i < len(raw) && raw[i] != '"' {
			if raw[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(raw) {
			break
		}
		value, err := strconv.Unquote(raw[:i+1])
		raw = raw[i+1:]
		if err != nil {
			break
		}
		if _, dup := t.values[key]; !dup {
			t.keys = append(t.keys, key)
		}
		t.values[key] = value
	}
	return t
}

func (t structTag) lookup(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// option reports whether the mirror tag lists name.
func (t structTag) option(name string) bool {
	for _, opt := range strings.Split(t.values["mirror"], ",") {
		if strings.TrimSpace(opt) == name {
			return true
		}
	}
	return false
}

// tagAnnotations turns every tag key other than mirror and default into an
// annotation with a single "value" field.
func (u *unit) tagAnnotations(t structTag) []*decl.Annotation {
	var out []*decl.Annotation
	for _, key := range t.keys {
		if key == "mirror" || key == "default" {
			continue
		}
		values := map[string]any{"value": t.values[key]}
		out = append(out, u.annotation(key, values, []string{"value"}))
	}
	return out
}
