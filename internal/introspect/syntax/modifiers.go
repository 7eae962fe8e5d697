// Package syntax finds modifier directives in Go source with tree-sitter.
//
// A directive is a line comment of the form "//mirror:<keyword>" in the
// comment block directly above a type declaration. Only comment nodes are
// inspected, so string literals and code never produce false positives.
package syntax

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Directive keywords.
const (
	Sealed    = "sealed"
	Base      = "base"
	Final     = "final"
	Interface = "interface"
	Mixin     = "mixin"
)

const prefix = "mirror:"

var known = map[string]bool{Sealed: true, Base: true, Final: true, Interface: true, Mixin: true}

// Keywords maps type names to the directive keywords found above them.
type Keywords map[string][]string

// Has reports whether typeName carries keyword.
func (k Keywords) Has(typeName, keyword string) bool {
	for _, kw := range k[typeName] {
		if kw == keyword {
			return true
		}
	}
	return false
}

// Scanner wraps a tree-sitter parser. A Scanner is not safe for concurrent
// use; create one per goroutine.
type Scanner struct {
	parser *sitter.Parser
}

// NewScanner creates a scanner for Go source.
func NewScanner() *Scanner {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Scanner{parser: p}
}

// ScanFiles scans each file and merges the results.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (Keywords, error) {
	out := Keywords{}
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		kw, err := s.Scan(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		for name, list := range kw {
			out[name] = append(out[name], list...)
		}
	}
	return out, nil
}

// Scan parses source and returns the directives per type name.
func (s *Scanner) Scan(ctx context.Context, source []byte) (Keywords, error) {
	out := Keywords{}
	if len(source) == 0 {
		return out, nil
	}
	tree, err := s.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	collect(tree.RootNode(), source, out)
	return out, nil
}

// collect walks the children of node, tracking the run of comments that
// ends on the line before the current child.
func collect(node *sitter.Node, source []byte, out Keywords) {
	var pending []string
	lastRow := -2
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "comment":
			row := int(child.StartPoint().Row)
			if row != lastRow+1 {
				pending = nil
			}
			pending = append(pending, nodeText(child, source))
			lastRow = int(child.EndPoint().Row)
			continue
		case "type_declaration":
			adjacent := int(child.StartPoint().Row) == lastRow+1
			specs := typeSpecs(child)
			if adjacent && len(specs) == 1 {
				record(out, specName(specs[0], source), pending)
			}
			collect(child, source, out)
		case "type_spec", "type_alias":
			if int(child.StartPoint().Row) == lastRow+1 {
				record(out, specName(child, source), pending)
			}
		}
		pending = nil
		lastRow = -2
	}
}

func typeSpecs(decl *sitter.Node) []*sitter.Node {
	var specs []*sitter.Node
	for i := 0; i < int(decl.ChildCount()); i++ {
		c := decl.Child(i)
		if c.Type() == "type_spec" || c.Type() == "type_alias" {
			specs = append(specs, c)
		}
	}
	return specs
}

func specName(spec *sitter.Node, source []byte) string {
	if n := spec.ChildByFieldName("name"); n != nil {
		return nodeText(n, source)
	}
	for i := 0; i < int(spec.ChildCount()); i++ {
		if c := spec.Child(i); c.Type() == "type_identifier" {
			return nodeText(c, source)
		}
	}
	return ""
}

func record(out Keywords, name string, comments []string) {
	if name == "" {
		return
	}
	for _, c := range comments {
		if kw, ok := Parse(c); ok && !out.Has(name, kw) {
			out[name] = append(out[name], kw)
		}
	}
}

// Parse extracts the keyword of a "//mirror:<keyword>" comment line.
func Parse(comment string) (string, bool) {
	text := strings.TrimSpace(strings.TrimPrefix(comment, "//"))
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	kw := strings.TrimSpace(strings.TrimPrefix(text, prefix))
	if i := strings.IndexAny(kw, " \t"); i >= 0 {
		kw = kw[:i]
	}
	return kw, known[kw]
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
