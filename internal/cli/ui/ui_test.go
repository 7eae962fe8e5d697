package ui

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, Text("NAME"), Kind("KIND"), Count("TYPES"))
	table.AddRow("Order", "class", "3")
	table.AddRow("Status", "enum", "12")
	table.SetFooter("%d declarations", table.Len())
	table.Render()

	want := []string{
		"NAME    KIND   TYPES",
		"──────  ─────  ─────",
		"Order   class      3",
		"Status  enum      12",
		"",
		"2 declarations",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestTableMissingCells(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, Text("PACKAGE"), Text("KEY"))
	table.AddRow("example.com/shop")
	table.AddRow("std", "lib:std:00", "ignored")
	table.Render()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[2] != "example.com/shop  " {
		t.Errorf("unexpected row %q", lines[2])
	}
	if strings.Contains(lines[3], "ignored") {
		t.Errorf("extra cells should be dropped, got %q", lines[3])
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output without columns, got %q", buf.String())
	}

	buf.Reset()
	NewTable(&buf, true, Text("NAME")).Render()
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("expected a no results line, got %q", buf.String())
	}
}

func TestKindColor(t *testing.T) {
	if !KindColor("class").Equals(KindColor("enum")) {
		t.Error("nominal kinds should share a colour")
	}
	if KindColor("class").Equals(KindColor("typedef")) {
		t.Error("aliases should differ from nominal kinds")
	}
	if KindColor("primitive").Equals(KindColor("unknown")) {
		t.Error("unknown should stand out from predeclared kinds")
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Name", "Order")
	kv.AddRow("Implements", "example.com/shop.Priced")
	kv.AddRow("Implements", "fmt.Stringer")
	kv.Render()

	want := "Name:       Order\n" +
		"Implements: example.com/shop.Priced\n" +
		"            fmt.Stringer\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Generation", true)
	if buf.String() != "Generation\n──────────\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 2, "abcd"},
		{"é", 3, "é  "},
	}
	for _, tt := range tests {
		if got := padRight(tt.in, tt.width); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "declaration not found",
		Problem:      "Cannot find type 'Ordr'.",
		Consequence:  "Nothing was printed.",
		Suggestions:  []string{"Order", "Orders"},
		HelpCommands: []string{"Get help: mirror find --help"},
		NoColor:      true,
	})

	for _, want := range []string{
		"❌ DECLARATION NOT FOUND: Cannot find type 'Ordr'.",
		"   Nothing was printed.",
		"   Did you mean: Order, Orders?",
		"   → Get help: mirror find --help",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestFormatErrorLevels(t *testing.T) {
	warning := FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: "slow", NoColor: true})
	if !strings.HasPrefix(warning, "⚠️ slow") {
		t.Errorf("unexpected warning %q", warning)
	}
	info := FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: "note", NoColor: true})
	if !strings.HasPrefix(info, "ℹ️ note") {
		t.Errorf("unexpected info %q", info)
	}
}

func TestDeclarationNotFoundError(t *testing.T) {
	out := DeclarationNotFoundError("Ordr", []string{"Order"}, true)
	if !strings.Contains(out, "Cannot find type 'Ordr'.") || !strings.Contains(out, "Did you mean: Order?") {
		t.Errorf("unexpected message:\n%s", out)
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "Exported", true)
	if buf.String() != "✓ Exported\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"Orders", "Order", "Cart", "order", "Customer"}

	got := FindSimilar("Ordr", candidates, nil)
	want := []string{"Order", "order", "Orders"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindSimilar = %v, want %v", got, want)
	}

	got = FindSimilar("Order", candidates, &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1})
	want = []string{"Orders", "order"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("case-sensitive FindSimilar = %v, want %v", got, want)
	}

	if got := FindSimilar("", candidates, nil); len(got) != 0 {
		t.Errorf("expected no suggestions for an empty target, got %v", got)
	}
}
