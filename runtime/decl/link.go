package decl

import (
	"reflect"
	"strings"
)

// LinkInfo carries the facts used to build a Link.
type LinkInfo struct {
	Type          reflect.Type // live identity, nil when only the static side knows the type
	Name          string       // simple name without type arguments
	QualifiedName string       // <canonical URI>.<Name>; derived when empty
	CanonicalURI  string       // package that declares the type
	ReferenceURI  string       // package in which the reference was seen
	TypeArguments []*Link
	Variance      Variance
	UpperBound    *Link
	Kind          TypeKind
	Nullable      bool
}

// Link is an immutable, depth-bounded reference to a type's shape. Links are
// the only way one declaration refers to another type declaration.
type Link struct {
	rtype         reflect.Type
	name          string
	qualifiedName string
	canonicalURI  string
	referenceURI  string
	typeArguments []*Link
	variance      Variance
	upperBound    *Link
	kind          TypeKind
	nullable      bool
}

// NewLink creates a Link. Nil type arguments are dropped; a nil argument
// marks an edge that was omitted to break a reference cycle.
func NewLink(info LinkInfo) *Link {
	l := &Link{
		rtype:         info.Type,
		name:          info.Name,
		qualifiedName: info.QualifiedName,
		canonicalURI:  info.CanonicalURI,
		referenceURI:  info.ReferenceURI,
		variance:      info.Variance,
		upperBound:    info.UpperBound,
		kind:          info.Kind,
		nullable:      info.Nullable,
	}
	if l.qualifiedName == "" {
		l.qualifiedName = QualifiedName(info.CanonicalURI, info.Name)
	}
	if l.variance == "" {
		l.variance = Invariant
	}
	if l.kind == "" {
		l.kind = KindUnknown
	}
	for _, arg := range info.TypeArguments {
		if arg != nil {
			l.typeArguments = append(l.typeArguments, arg)
		}
	}
	return l
}

// NameLink creates a name-only Link for a reference that could not be
// resolved to a declaration.
func NameLink(name string) *Link {
	return NewLink(LinkInfo{Name: name, QualifiedName: name, Kind: KindUnknown})
}

// QualifiedName joins a package URI and a simple name.
func QualifiedName(uri, name string) string {
	if uri == "" {
		return name
	}
	return uri + "." + name
}

func (l *Link) Type() reflect.Type       { return l.rtype }
func (l *Link) Name() string             { return l.name }
func (l *Link) QualifiedName() string    { return l.qualifiedName }
func (l *Link) CanonicalURI() string     { return l.canonicalURI }
func (l *Link) ReferenceURI() string     { return l.referenceURI }
func (l *Link) Variance() Variance       { return l.variance }
func (l *Link) UpperBound() *Link        { return l.upperBound }
func (l *Link) Kind() TypeKind           { return l.kind }
func (l *Link) IsNullable() bool         { return l.nullable }
func (l *Link) IsGeneric() bool          { return len(l.typeArguments) > 0 }
func (l *Link) TypeArguments() []*Link   { return copyLinks(l.typeArguments) }
func (l *Link) NumTypeArguments() int    { return len(l.typeArguments) }
func (l *Link) TypeArgument(i int) *Link { return l.typeArguments[i] }

// IsCanonical reports whether the link was seen where it is declared.
func (l *Link) IsCanonical() bool {
	return l.canonicalURI != "" && l.canonicalURI == l.referenceURI
}

// Display renders the link as Name[Arg1, Arg2].
func (l *Link) Display() string {
	if len(l.typeArguments) == 0 {
		return l.name
	}
	var b strings.Builder
	b.WriteString(l.name)
	b.WriteByte('[')
	for i, arg := range l.typeArguments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.Display())
	}
	b.WriteByte(']')
	return b.String()
}

// Key is the structural identity of the link: canonical URI, name and
// display string.
func (l *Link) Key() string {
	return l.canonicalURI + "|" + l.name + "|" + l.Display()
}

// Matches reports whether the link refers to the given type declaration,
// by live identity when both sides have one and by qualified name otherwise.
func (l *Link) Matches(t TypeDeclaration) bool {
	if l == nil || t == nil {
		return false
	}
	if l.rtype != nil && t.Type() != nil {
		return l.rtype == t.Type()
	}
	return l.qualifiedName == t.QualifiedName()
}

// WithTypeArguments returns a copy with the given type arguments.
func (l *Link) WithTypeArguments(args []*Link) *Link {
	c := *l
	c.typeArguments = nil
	for _, arg := range args {
		if arg != nil {
			c.typeArguments = append(c.typeArguments, arg)
		}
	}
	return &c
}

// WithNullable returns a copy with the given nullability.
func (l *Link) WithNullable(nullable bool) *Link {
	c := *l
	c.nullable = nullable
	return &c
}

// WithReferenceURI returns a copy seen from uri.
func (l *Link) WithReferenceURI(uri string) *Link {
	c := *l
	c.referenceURI = uri
	return &c
}

// ToJSON exports the link, omitting empty optional sections.
func (l *Link) ToJSON() map[string]any {
	out := map[string]any{
		"name":           l.name,
		"qualified_name": l.qualifiedName,
		"kind":           string(l.kind),
	}
	if l.canonicalURI != "" {
		out["canonical_uri"] = l.canonicalURI
	}
	if l.referenceURI != "" {
		out["reference_uri"] = l.referenceURI
	}
	if l.nullable {
		out["nullable"] = true
	}
	if l.variance != Invariant {
		out["variance"] = string(l.variance)
	}
	if len(l.typeArguments) > 0 {
		out["type_arguments"] = linksJSON(l.typeArguments)
	}
	if l.upperBound != nil {
		out["upper_bound"] = l.upperBound.ToJSON()
	}
	return out
}

func copyLinks(links []*Link) []*Link {
	if len(links) == 0 {
		return nil
	}
	out := make([]*Link, len(links))
	copy(out, links)
	return out
}

func linksJSON(links []*Link) []any {
	out := make([]any, len(links))
	for i, l := range links {
		out[i] = l.ToJSON()
	}
	return out
}

func linkKey(l *Link) string {
	if l == nil {
		return ""
	}
	return l.Key()
}
