// Package scanner discovers the Go packages of a project as compilation
// units for the metadata generator.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"github.com/conduit-lang/mirror/internal/introspect"
	"github.com/conduit-lang/mirror/runtime/decl"
)

// DefaultSkipDirs are never descended into, in addition to directories
// whose names start with "." or "_".
var DefaultSkipDirs = []string{"vendor", "testdata", "node_modules"}

// Options configures a Scanner.
type Options struct {
	Root         string
	SkipDirs     []string
	IncludeTests bool
	Logger       *zap.Logger
}

// Scanner walks a directory tree and yields one unit per Go package
// directory, attributed to the nearest enclosing go.mod.
type Scanner struct {
	root         string
	skipDirs     map[string]struct{}
	includeTests bool
	logger       *zap.Logger
}

// New creates a scanner. An empty Root means the working directory.
func New(opts Options) *Scanner {
	root := opts.Root
	if root == "" {
		root = "."
	}
	skip := opts.SkipDirs
	if skip == nil {
		skip = DefaultSkipDirs
	}
	skipDirs := make(map[string]struct{}, len(skip))
	for _, d := range skip {
		skipDirs[d] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{root: root, skipDirs: skipDirs, includeTests: opts.IncludeTests, logger: logger}
}

// UnitToModuleURI returns the unit's import path.
func (s *Scanner) UnitToModuleURI(unit introspect.Unit) string {
	return unit.ImportPath
}

// module is a go.mod seen during the walk.
type module struct {
	dir string
	pkg decl.Package
}

// DiscoverUnits walks the tree and returns the units sorted by import path.
func (s *Scanner) DiscoverUnits(ctx context.Context) ([]introspect.Unit, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", s.root, err)
	}
	rootMod, err := findModule(root)
	if err != nil {
		return nil, err
	}
	rootMod.pkg.IsRoot = true
	gi := loadGitignore(root)

	modules := []module{rootMod}
	units := make(map[string]*introspect.Unit)

	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if p == root {
				return nil
			}
			if s.skipDir(name) || (gi != nil && (gi.MatchesPath(rel) || gi.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			if mod, ok, err := readModule(p); err != nil {
				s.logger.Warn("skipping unreadable go.mod", zap.String("dir", p), zap.Error(err))
				return filepath.SkipDir
			} else if ok {
				modules = append(modules, mod)
			}
			return nil
		}

		if !s.isSource(name, d) || (gi != nil && gi.MatchesPath(rel)) {
			return nil
		}
		dir := filepath.Dir(p)
		u, ok := units[dir]
		if !ok {
			mod := nearest(modules, dir)
			u = &introspect.Unit{
				ImportPath: importPath(mod, dir),
				Dir:        dir,
				Package:    mod.pkg,
			}
			units[dir] = u
		}
		u.Files = append(u.Files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	out := make([]introspect.Unit, 0, len(units))
	for _, u := range units {
		sort.Strings(u.Files)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportPath < out[j].ImportPath })
	s.logger.Debug("discovered units", zap.String("root", root), zap.Int("units", len(out)))
	return out, nil
}

func (s *Scanner) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	_, skip := s.skipDirs[name]
	return skip
}

func (s *Scanner) isSource(name string, d os.DirEntry) bool {
	if d.Type()&os.ModeSymlink != 0 || filepath.Ext(name) != ".go" {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	return s.includeTests || !strings.HasSuffix(name, "_test.go")
}

// findModule locates the go.mod governing dir, searching upwards.
func findModule(dir string) (module, error) {
	for d := dir; ; {
		mod, ok, err := readModule(d)
		if err != nil {
			return module{}, err
		}
		if ok {
			return mod, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return module{}, fmt.Errorf("no go.mod found in %s or any parent directory", dir)
		}
		d = parent
	}
}

// readModule parses dir/go.mod; ok is false when there is none.
func readModule(dir string) (module, bool, error) {
	goMod := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(goMod)
	if os.IsNotExist(err) {
		return module{}, false, nil
	}
	if err != nil {
		return module{}, false, err
	}
	parsed, err := modfile.ParseLax(goMod, data, nil)
	if err != nil {
		return module{}, false, fmt.Errorf("failed to parse %s: %w", goMod, err)
	}
	if parsed.Module == nil {
		return module{}, false, fmt.Errorf("%s has no module directive", goMod)
	}
	pkg := decl.Package{
		Name:     strings.TrimSpace(parsed.Module.Mod.Path),
		FilePath: goMod,
	}
	if parsed.Go != nil {
		pkg.LanguageVersion = parsed.Go.Version
	}
	return module{dir: dir, pkg: pkg}, true, nil
}

// nearest returns the innermost module containing dir.
func nearest(modules []module, dir string) module {
	best := modules[0]
	for _, m := range modules[1:] {
		if within(m.dir, dir) && len(m.dir) > len(best.dir) {
			best = m
		}
	}
	return best
}

func within(parent, dir string) bool {
	return dir == parent || strings.HasPrefix(dir, parent+string(filepath.Separator))
}

func importPath(mod module, dir string) string {
	rel, err := filepath.Rel(mod.dir, dir)
	if err != nil || rel == "." {
		return mod.pkg.Name
	}
	return path.Join(mod.pkg.Name, filepath.ToSlash(rel))
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
