package decl

import (
	"reflect"
	"strings"
)

// Package describes a Go module.
type Package struct {
	Name            string `json:"name"`                       // Module path
	Version         string `json:"version,omitempty"`          // Module version, empty for the main module
	LanguageVersion string `json:"language_version,omitempty"` // go directive
	IsRoot          bool   `json:"is_root,omitempty"`          // Main module of the scan
	FilePath        string `json:"file_path,omitempty"`        // Location of go.mod
}

func (p Package) DebugIdentifier() string { return "package_" + strings.ToLower(p.Name) }

func (p Package) ToJSON() map[string]any {
	out := map[string]any{"name": p.Name}
	if p.Version != "" {
		out["version"] = p.Version
	}
	if p.LanguageVersion != "" {
		out["language_version"] = p.LanguageVersion
	}
	if p.IsRoot {
		out["is_root"] = true
	}
	if p.FilePath != "" {
		out["file_path"] = p.FilePath
	}
	return out
}

// Asset is a non-Go file shipped with a package.
type Asset struct {
	FilePath    string
	FileName    string
	PackageName string
	Bytes       []byte
}

func (a Asset) DebugIdentifier() string { return "asset: " + a.PackageName + "/" + a.FilePath }

func (a Asset) ToJSON() map[string]any {
	return map[string]any{
		"file_path": a.FilePath,
		"file_name": a.FileName,
		"package":   a.PackageName,
		"size":      len(a.Bytes),
	}
}

// Library is one Go package: its URI is the import path.
type Library struct {
	uri          string
	pkg          Package
	declarations []Declaration
}

// NewLibrary creates a library owning the given declarations.
func NewLibrary(uri string, pkg Package, declarations []Declaration) *Library {
	return &Library{uri: uri, pkg: pkg, declarations: copySlice(declarations)}
}

func (l *Library) URI() string                 { return l.uri }
func (l *Library) Name() string                { return l.uri }
func (l *Library) Package() Package            { return l.pkg }
func (l *Library) Type() reflect.Type          { return nil }
func (l *Library) IsPublic() bool              { return true }
func (l *Library) IsSynthetic() bool           { return false }
func (l *Library) DebugIdentifier() string     { return "library_" + l.uri }
func (l *Library) Declarations() []Declaration { return copySlice(l.declarations) }

// WithDeclarations returns a copy holding decls.
func (l *Library) WithDeclarations(decls []Declaration) *Library {
	return NewLibrary(l.uri, l.pkg, decls)
}

func (l *Library) Classes() []*ClassDeclaration        { return ofType[*ClassDeclaration](l.declarations) }
func (l *Library) Enums() []*EnumDeclaration           { return ofType[*EnumDeclaration](l.declarations) }
func (l *Library) Mixins() []*MixinDeclaration         { return ofType[*MixinDeclaration](l.declarations) }
func (l *Library) Typedefs() []*TypedefDeclaration     { return ofType[*TypedefDeclaration](l.declarations) }
func (l *Library) Records() []*RecordDeclaration       { return ofType[*RecordDeclaration](l.declarations) }
func (l *Library) Extensions() []*ExtensionDeclaration { return ofType[*ExtensionDeclaration](l.declarations) }
func (l *Library) Basics() []*BasicDeclaration         { return ofType[*BasicDeclaration](l.declarations) }

// Methods returns the top-level functions.
func (l *Library) Methods() []*MethodDeclaration { return ofType[*MethodDeclaration](l.declarations) }

// Fields returns the package-level variables and constants.
func (l *Library) Fields() []*FieldDeclaration { return ofType[*FieldDeclaration](l.declarations) }

// Types returns every type declaration in declaration order.
func (l *Library) Types() []TypeDeclaration { return ofType[TypeDeclaration](l.declarations) }

func (l *Library) ToJSON() map[string]any {
	out := map[string]any{
		"uri":     l.uri,
		"package": l.pkg.Name,
	}
	putMembers(out, "classes", l.Classes())
	putMembers(out, "enums", l.Enums())
	putMembers(out, "mixins", l.Mixins())
	putMembers(out, "typedefs", l.Typedefs())
	putMembers(out, "records", l.Records())
	putMembers(out, "extensions", l.Extensions())
	putMembers(out, "methods", l.Methods())
	putMembers(out, "fields", l.Fields())
	return out
}

func ofType[T any](decls []Declaration) []T {
	var out []T
	for _, d := range decls {
		if t, ok := d.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
