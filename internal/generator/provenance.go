package generator

// Source names an introspection backend.
type Source string

const (
	SourceStatic Source = "static" // go/types via the static backend
	SourceLive   Source = "live"   // reflect data via the dynamic backend
	SourceText   Source = "text"   // tree-sitter directive scan
	SourceNone   Source = ""
)

// FieldSource records which backend supplies a declaration field and which
// one is consulted when the first has nothing.
type FieldSource struct {
	Field    string `json:"field"`
	Primary  Source `json:"primary"`
	Fallback Source `json:"fallback,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Provenance is the merge rule applied per generated field. Structure
// comes from the static backend when a unit has one; identity and
// annotation instances always come from the live backend.
var Provenance = []FieldSource{
	{Field: "Declaration.Name", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "Declaration.Type", Primary: SourceLive, Note: "nil for generic declarations and static-only types"},
	{Field: "Declaration.IsPublic", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "EntityDeclaration.Element", Primary: SourceStatic},
	{Field: "EntityDeclaration.StaticType", Primary: SourceStatic},
	{Field: "SourceDeclaration.Location", Primary: SourceStatic},
	{Field: "SourceDeclaration.Annotations", Primary: SourceStatic, Fallback: SourceLive, Note: "doc directives and struct tags are static; instances attached at registration are appended"},
	{Field: "Annotation.Instance", Primary: SourceLive, Note: "instantiated from a registered prototype"},
	{Field: "TypeDeclaration.Kind", Primary: SourceStatic, Fallback: SourceLive, Note: "live enums need registered constants"},
	{Field: "TypeDeclaration.TypeArguments", Primary: SourceStatic, Fallback: SourceLive, Note: "live arguments are parsed from erased names"},
	{Field: "TypeDeclaration.SuperClass", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "TypeDeclaration.Mixins", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "TypeDeclaration.Interfaces", Primary: SourceStatic, Fallback: SourceLive, Note: "implemented interfaces are static only"},
	{Field: "TypeDeclaration.ErasedName", Primary: SourceLive},
	{Field: "TypeVariableDeclaration.UpperBound", Primary: SourceStatic},
	{Field: "ClassDeclaration.Modifiers", Primary: SourceStatic, Fallback: SourceText, Note: "final and base always read from text; sealed and interface only without a static element"},
	{Field: "MixinDeclaration.On", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "ExtensionDeclaration.OnType", Primary: SourceStatic},
	{Field: "EnumDeclaration.Values", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "FieldDeclaration.Value", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "MethodDeclaration.Parameters", Primary: SourceStatic, Fallback: SourceLive, Note: "live parameters are named p0, p1, ..."},
	{Field: "ConstructorDeclaration.Parameters", Primary: SourceStatic, Fallback: SourceLive},
	{Field: "Library.Package", Primary: SourceNone, Note: "supplied by the project scanner from go.mod"},
}
