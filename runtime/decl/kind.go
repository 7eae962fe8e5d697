package decl

// TypeKind classifies a type declaration or a Link target.
type TypeKind string

const (
	KindClass        TypeKind = "class"
	KindEnum         TypeKind = "enum"
	KindMixin        TypeKind = "mixin"
	KindTypedef      TypeKind = "typedef"
	KindRecord       TypeKind = "record"
	KindExtension    TypeKind = "extension"
	KindList         TypeKind = "list"
	KindMap          TypeKind = "map"
	KindCollection   TypeKind = "collection"
	KindAsync        TypeKind = "async"
	KindMeta         TypeKind = "meta"
	KindPrimitive    TypeKind = "primitive"
	KindTypedData    TypeKind = "typed_data"
	KindDynamic      TypeKind = "dynamic"
	KindVoid         TypeKind = "void"
	KindTypeVariable TypeKind = "type_variable"
	KindFunction     TypeKind = "function"
	KindUnknown      TypeKind = "unknown"
)

// Variance of a type argument relative to its parameter.
type Variance string

const (
	Covariant     Variance = "covariant"
	Contravariant Variance = "contravariant"
	Invariant     Variance = "invariant"
)

// SourceLocation points into a source file. The zero value means unknown.
type SourceLocation struct {
	URI    string `json:"uri,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsZero reports whether the location is unknown.
func (l SourceLocation) IsZero() bool {
	return l.URI == "" && l.Line == 0 && l.Column == 0
}

func (l SourceLocation) toJSON() map[string]any {
	out := map[string]any{"uri": l.URI}
	if l.Line > 0 {
		out["line"] = l.Line
		out["column"] = l.Column
	}
	return out
}
