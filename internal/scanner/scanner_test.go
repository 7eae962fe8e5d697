package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func projectTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod":                 "module example.com/shop\n\ngo 1.22\n",
		".gitignore":             "generated/\n",
		"shop.go":                "package shop\n",
		"shop_test.go":           "package shop\n",
		"internal/db/db.go":      "package db\n",
		"internal/db/schema.sql": "create table users();\n",
		"vendor/x/x.go":          "package x\n",
		"testdata/fixture.go":    "package fixture\n",
		"generated/gen.go":       "package generated\n",
		"_scratch/tmp.go":        "package tmp\n",
		".hidden/h.go":           "package h\n",
		"docs/README.md":         "# docs\n",
		"tools/go.mod":           "module example.com/tools\n\ngo 1.21\n",
		"tools/cmd/main.go":      "package main\n",
	})
	return root
}

func TestScanner_DiscoverUnits(t *testing.T) {
	root := projectTree(t)
	s := New(Options{Root: root})

	units, err := s.DiscoverUnits(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, u := range units {
		paths = append(paths, s.UnitToModuleURI(u))
	}
	assert.Equal(t, []string{
		"example.com/shop",
		"example.com/shop/internal/db",
		"example.com/tools/cmd",
	}, paths)

	shop := units[0]
	assert.Equal(t, []string{filepath.Join(root, "shop.go")}, shop.Files)
	assert.Equal(t, "example.com/shop", shop.Package.Name)
	assert.Equal(t, "1.22", shop.Package.LanguageVersion)
	assert.True(t, shop.Package.IsRoot)
	assert.Equal(t, filepath.Join(root, "go.mod"), shop.Package.FilePath)

	tools := units[2]
	assert.Equal(t, "example.com/tools", tools.Package.Name)
	assert.Equal(t, "1.21", tools.Package.LanguageVersion)
	assert.False(t, tools.Package.IsRoot)
}

func TestScanner_IncludeTests(t *testing.T) {
	root := projectTree(t)

	units, err := New(Options{Root: root, IncludeTests: true}).DiscoverUnits(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, units)
	assert.Equal(t, []string{
		filepath.Join(root, "shop.go"),
		filepath.Join(root, "shop_test.go"),
	}, units[0].Files)
}

func TestScanner_CustomSkipDirs(t *testing.T) {
	root := projectTree(t)

	units, err := New(Options{Root: root, SkipDirs: []string{"internal", "tools"}}).DiscoverUnits(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, u := range units {
		paths = append(paths, u.ImportPath)
	}
	assert.ElementsMatch(t, []string{"example.com/shop", "example.com/shop/testdata", "example.com/shop/vendor/x"}, paths)
}

func TestScanner_SubdirectoryRootUsesEnclosingModule(t *testing.T) {
	root := projectTree(t)

	units, err := New(Options{Root: filepath.Join(root, "internal")}).DiscoverUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "example.com/shop/internal/db", units[0].ImportPath)
	assert.True(t, units[0].Package.IsRoot)
}

func TestScanner_NoModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.go": "package a\n"})

	_, err := findModule(root)
	if err == nil {
		t.Skip("temp dir is nested inside a Go module")
	}
	_, err = New(Options{Root: root}).DiscoverUnits(context.Background())
	assert.ErrorContains(t, err, "no go.mod")
}

func TestScanner_CancelledContext(t *testing.T) {
	root := projectTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Root: root}).DiscoverUnits(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
