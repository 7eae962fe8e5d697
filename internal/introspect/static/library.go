// Package static is the static analysis backend. It exposes type-checked Go
// packages, loaded with golang.org/x/tools/go/packages or parsed from
// in-memory sources, as introspect.StaticLibrary handles.
package static

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strings"
)

// Library is a type-checked package with the syntax indexes the generator
// needs: declaring specs, raw doc comments and source order.
type Library struct {
	uri   string
	pkg   *types.Package
	info  *types.Info
	fset  *token.FileSet
	paths []string
	names []string
	specs map[string]*ast.TypeSpec
	docs  map[string]string
}

func newLibrary(uri string, pkg *types.Package, info *types.Info, fset *token.FileSet, files []*ast.File, paths []string) *Library {
	lib := &Library{
		uri:   uri,
		pkg:   pkg,
		info:  info,
		fset:  fset,
		paths: paths,
		specs: make(map[string]*ast.TypeSpec),
		docs:  make(map[string]string),
	}
	seen := make(map[string]bool)
	add := func(name string, doc *ast.CommentGroup) {
		if name == "_" || seen[name] {
			return
		}
		seen[name] = true
		lib.names = append(lib.names, name)
		if text := rawText(doc); text != "" {
			lib.docs[name] = text
		}
	}
	for _, file := range files {
		for _, d := range file.Decls {
			switch d := d.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil {
					add(d.Name.Name, d.Doc)
				} else if recv := receiverName(d.Recv); recv != "" {
					if text := rawText(d.Doc); text != "" {
						lib.docs[recv+"."+d.Name.Name] = text
					}
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						lib.specs[s.Name.Name] = s
						add(s.Name.Name, docOf(s.Doc, d))
					case *ast.ValueSpec:
						for _, n := range s.Names {
							add(n.Name, docOf(s.Doc, d))
						}
					}
				}
			}
		}
	}
	return lib
}

// receiverName returns the base type name of a method receiver.
func receiverName(recv *ast.FieldList) string {
	if len(recv.List) == 0 {
		return ""
	}
	t := recv.List[0].Type
	for {
		switch x := t.(type) {
		case *ast.StarExpr:
			t = x.X
		case *ast.IndexExpr:
			t = x.X
		case *ast.IndexListExpr:
			t = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}

func docOf(spec *ast.CommentGroup, gen *ast.GenDecl) *ast.CommentGroup {
	if spec != nil {
		return spec
	}
	if len(gen.Specs) == 1 {
		return gen.Doc
	}
	return nil
}

// rawText joins comment lines without markers. Unlike CommentGroup.Text it
// keeps directive lines such as "//mirror:mixin".
func rawText(g *ast.CommentGroup) string {
	if g == nil {
		return ""
	}
	var lines []string
	for _, c := range g.List {
		text := c.Text
		switch {
		case strings.HasPrefix(text, "//"):
			lines = append(lines, strings.TrimSpace(strings.TrimPrefix(text, "//")))
		case strings.HasPrefix(text, "/*"):
			body := strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
			for _, l := range strings.Split(body, "\n") {
				lines = append(lines, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "*")))
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (l *Library) URI() string             { return l.uri }
func (l *Library) Package() *types.Package { return l.pkg }
func (l *Library) Info() *types.Info       { return l.info }
func (l *Library) Fset() *token.FileSet    { return l.fset }
func (l *Library) Names() []string         { return append([]string(nil), l.names...) }
func (l *Library) Files() []string         { return append([]string(nil), l.paths...) }
func (l *Library) Doc(name string) string  { return l.docs[name] }

func (l *Library) Lookup(name string) types.Object {
	return l.pkg.Scope().Lookup(name)
}

func (l *Library) Spec(name string) *ast.TypeSpec {
	return l.specs[name]
}

func newInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

// FromSource parses and type-checks in-memory files as the package
// importPath. Files are processed in name order. Imports are resolved
// from source.
func FromSource(importPath string, sources map[string]string) (*Library, error) {
	fset := token.NewFileSet()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []*ast.File
	for _, name := range names {
		f, err := parser.ParseFile(fset, name, sources[name], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		files = append(files, f)
	}

	info := newInfo()
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check(importPath, fset, files, info)
	if err != nil {
		return nil, fmt.Errorf("failed to type-check %s: %w", importPath, err)
	}
	return newLibrary(importPath, pkg, info, fset, files, names), nil
}
