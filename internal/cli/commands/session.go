package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/internal/cli/config"
	"github.com/conduit-lang/mirror/internal/generator"
	"github.com/conduit-lang/mirror/internal/introspect/live"
	"github.com/conduit-lang/mirror/internal/introspect/static"
	"github.com/conduit-lang/mirror/internal/logging"
	"github.com/conduit-lang/mirror/internal/scanner"
	"github.com/conduit-lang/mirror/internal/snapshot"
	"github.com/conduit-lang/mirror/runtime/decl"
	"github.com/conduit-lang/mirror/runtime/discovery"
	"github.com/conduit-lang/mirror/runtime/registry"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	dir      string
	logLevel string
	noColor  bool
	format   string
}

func (g *globalOptions) bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "Project directory")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (overrides log.level)")
	cmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&g.format, "format", "table", "Output format: json or table")
}

func (g *globalOptions) validateFormat() error {
	if g.format != "table" && g.format != "json" {
		return fmt.Errorf("invalid format %q: must be json or table", g.format)
	}
	return nil
}

// session wires the scanner, both introspection backends, the generator,
// the registry and the discovery index for one project
type session struct {
	root     string
	cfg      *config.Config
	logger   *zap.Logger
	scanner  *scanner.Scanner
	loader   *static.Loader
	live     *live.Registry
	gen      *generator.Generator
	registry *registry.Registry
	index    *discovery.Index

	mu        sync.Mutex // serialises refresh
	libraries []*decl.Library
	report    *generator.Report
}

func newSession(g *globalOptions) (*session, error) {
	if g.noColor {
		color.NoColor = true
	}
	root, err := config.GetProjectRoot(g.dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	s := &session{
		root:   root,
		cfg:    cfg,
		logger: logger,
		scanner: scanner.New(scanner.Options{
			Root:         g.dir,
			SkipDirs:     cfg.Scanner.SkipDirs,
			IncludeTests: cfg.Scanner.IncludeTests,
			Logger:       logger.Named("scanner"),
		}),
		loader: static.NewLoader(root, static.WithTests(cfg.Scanner.IncludeTests)),
		live:   live.NewRegistry(),
		registry: registry.New(registry.Config{
			CorePackage:    cfg.Hierarchy.CorePackage,
			Namespace:      cfg.Hierarchy.Namespace,
			BuiltinPackage: cfg.Hierarchy.BuiltinPackage,
			Logger:         logger.Named("registry"),
		}),
	}
	s.gen = generator.New(s.scanner, s.live, s.loader, generator.Options{
		Workers: cfg.Generator.Workers,
		Logger:  logger.Named("generator"),
	})
	s.index = discovery.New(s.registry, logger.Named("discovery"))
	return s, nil
}

// refresh regenerates every library and registers the result
func (s *session) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader.Invalidate()
	libs, report, err := s.gen.Generate(ctx)
	if err != nil {
		return err
	}
	if _, err := s.registry.Register(registry.Model{Libraries: libs}); err != nil {
		return err
	}
	s.libraries, s.report = libs, report
	return nil
}

func (s *session) exporter() (*snapshot.Exporter, snapshot.Store, error) {
	codec, err := snapshot.CodecFor(s.cfg.Snapshot.Codec)
	if err != nil {
		return nil, nil, err
	}
	store, err := snapshot.Open(snapshot.Options{
		Backend:  s.cfg.Snapshot.Backend,
		Addr:     s.cfg.Snapshot.Addr,
		Password: s.cfg.Snapshot.Password,
		DB:       s.cfg.Snapshot.DB,
		Config: snapshot.Config{
			DefaultTTL: s.cfg.Snapshot.TTL,
			Prefix:     s.cfg.Snapshot.Prefix,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return snapshot.NewExporter(store, codec, 0, s.logger.Named("snapshot")), store, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// withSession builds a session, refreshes it and runs fn
func withSession(cmd *cobra.Command, g *globalOptions, fn func(*session) error) error {
	if err := g.validateFormat(); err != nil {
		return err
	}
	s, err := newSession(g)
	if err != nil {
		return err
	}
	defer s.close()
	if err := s.refresh(cmd.Context()); err != nil {
		return err
	}
	return fn(s)
}
