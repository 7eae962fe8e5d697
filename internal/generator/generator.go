// Package generator reconciles the live and static introspection backends
// into declaration libraries, one per compilation unit.
//
// Units are generated independently. Each unit owns its LinkBuilder, so
// cycle-guard and memo state is never shared between workers. A unit that
// fails is logged and skipped; the pass always continues.
package generator

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/mirror/internal/introspect"
	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

// Options configures a Generator.
type Options struct {
	// Workers bounds parallel unit generation. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

// Generator produces declaration libraries from compilation units.
type Generator struct {
	scanner introspect.ProjectScanner
	live    introspect.DynamicBackend
	static  introspect.StaticBackend
	workers int
	logger  *zap.Logger
}

// New creates a generator. static may be nil, in which case every unit is
// generated from the live backend alone.
func New(scanner introspect.ProjectScanner, live introspect.DynamicBackend, static introspect.StaticBackend, opts Options) *Generator {
	g := &Generator{
		scanner: scanner,
		live:    live,
		static:  static,
		workers: opts.Workers,
		logger:  opts.Logger,
	}
	if g.workers <= 0 {
		g.workers = runtime.GOMAXPROCS(0)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Skipped records a unit that failed to generate.
type Skipped struct {
	URI string `json:"uri"`
	Err error  `json:"-"`
}

// Report summarises one generation pass.
type Report struct {
	ID         string        `json:"id"`
	Processed  []string      `json:"processed"`
	Skipped    []Skipped     `json:"skipped,omitempty"`
	Duration   time.Duration `json:"duration"`
	Omitted    int           `json:"omitted_edges"`    // edges dropped by the cycle guard
	Unresolved int           `json:"unresolved_names"` // names that matched no type
}

type unitResult struct {
	uri        string
	lib        *decl.Library
	err        error
	omitted    int
	unresolved int
}

// Generate discovers units and generates a library for each. Libraries
// are returned in unit order followed by the builtin library. Only a
// discovery failure or context cancellation fails the pass.
func (g *Generator) Generate(ctx context.Context) ([]*decl.Library, *Report, error) {
	start := time.Now()
	units, err := g.scanner.DiscoverUnits(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover units: %w", err)
	}

	results := make([]unitResult, len(units))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, min(g.workers, len(units))))
	for i, unit := range units {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			results[i] = g.generateUnit(egctx, unit)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	report := &Report{ID: uuid.NewString()}
	var libs []*decl.Library
	hasBuiltin := false
	for _, r := range results {
		report.Omitted += r.omitted
		report.Unresolved += r.unresolved
		if r.err != nil {
			g.logger.Warn("skipping unit", zap.String("unit", r.uri), zap.Error(r.err))
			report.Skipped = append(report.Skipped, Skipped{URI: r.uri, Err: r.err})
			continue
		}
		if r.uri == decl.BuiltinURI {
			hasBuiltin = true
		}
		libs = append(libs, r.lib)
		report.Processed = append(report.Processed, r.uri)
	}
	if !hasBuiltin {
		libs = append(libs, decl.BuiltinLibrary())
	}
	report.Duration = time.Since(start)

	g.logger.Info("generation finished",
		zap.String("id", report.ID),
		zap.Int("processed", len(report.Processed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("omitted_edges", report.Omitted),
		zap.Duration("duration", report.Duration))
	return libs, report, nil
}

// GenerateUnit generates the library of a single unit. Failures are
// returned as GEN001 errors.
func (g *Generator) GenerateUnit(ctx context.Context, unit introspect.Unit) (*decl.Library, error) {
	r := g.generateUnit(ctx, unit)
	return r.lib, r.err
}

func (g *Generator) generateUnit(ctx context.Context, unit introspect.Unit) (res unitResult) {
	uri := g.scanner.UnitToModuleURI(unit)
	res.uri = uri
	defer func() {
		if p := recover(); p != nil {
			res.lib = nil
			res.err = rterrors.NewGeneration(uri, fmt.Errorf("panic: %v", p))
		}
	}()

	u := newUnit(uri, unit, g.live)
	defer func() {
		res.omitted = u.links.Omitted()
		res.unresolved = u.links.Unresolved()
	}()

	if uri == decl.BuiltinURI || decl.IsHost(unit.Package.Name) {
		u.host = true
		res.lib = u.generate(ctx)
		return res
	}

	if g.static != nil {
		lib, err := g.static.Library(ctx, uri)
		if err != nil {
			res.err = rterrors.NewGeneration(uri, err)
			return res
		}
		u.lib = lib
	}
	if err := u.scanKeywords(ctx); err != nil {
		res.err = rterrors.NewGeneration(uri, err)
		return res
	}
	res.lib = u.generate(ctx)
	return res
}
