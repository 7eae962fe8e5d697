package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/conduit-lang/mirror/internal/cli/ui"
	"github.com/conduit-lang/mirror/runtime/decl"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// declarationRows renders declarations as a name/kind/package table
func declarationRows[T decl.TypeDeclaration](w io.Writer, ds []T, noColor bool) {
	table := ui.NewTable(w, noColor, ui.Text("NAME"), ui.Kind("KIND"), ui.Text("PACKAGE"), ui.Text("QUALIFIED NAME"))
	for _, d := range ds {
		table.AddRow(d.Name(), string(d.Kind()), d.PackageURI(), d.QualifiedName())
	}
	if len(ds) > 0 {
		table.SetFooter("%d declarations", len(ds))
	}
	table.Render()
}

func toJSONList[T decl.Declaration](ds []T) []map[string]any {
	out := make([]map[string]any, len(ds))
	for i, d := range ds {
		out[i] = d.ToJSON()
	}
	return out
}

// describe prints one declaration as key/value rows
func describe(w io.Writer, d decl.TypeDeclaration, noColor bool) {
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Name", d.Name())
	kv.AddRow("Kind", string(d.Kind()))
	kv.AddRow("Qualified", d.QualifiedName())
	kv.AddRow("Package", d.PackageURI())
	if rt := d.Type(); rt != nil {
		kv.AddRow("Live type", rt.String())
	}
	if loc := d.Location(); !loc.IsZero() {
		kv.AddRow("Location", fmt.Sprintf("%s:%d:%d", loc.URI, loc.Line, loc.Column))
	}
	if super := d.SuperClass(); super != nil {
		kv.AddRow("Extends", super.QualifiedName())
	}
	for _, l := range d.Interfaces() {
		kv.AddRow("Implements", l.QualifiedName())
	}
	for _, l := range d.Mixins() {
		kv.AddRow("Embeds", l.QualifiedName())
	}
	for _, l := range d.TypeArguments() {
		kv.AddRow("Type argument", l.Name())
	}
	if d.IsSynthetic() {
		kv.AddRow("Synthetic", "true")
	}
	kv.Render()
}

// notFound formats a lookup miss with spelling suggestions drawn from the
// registered type names
func notFound(all []decl.TypeDeclaration, name string, noColor bool) string {
	seen := make(map[string]bool)
	var candidates []string
	for _, d := range all {
		if !seen[d.SimpleName()] {
			seen[d.SimpleName()] = true
			candidates = append(candidates, d.SimpleName())
		}
	}
	sort.Strings(candidates)
	return ui.DeclarationNotFoundError(name, ui.FindSimilar(name, candidates, nil), noColor)
}
