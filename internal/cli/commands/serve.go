package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/internal/server"
	"github.com/conduit-lang/mirror/internal/watch"
)

// NewServeCommand creates the serve command
func NewServeCommand(g *globalOptions) *cobra.Command {
	var (
		addr      string
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve declaration queries over HTTP",
		Long: `Generate and register the project, then answer lookups over a read-only
JSON API:

  GET /v1/generation
  GET /v1/packages
  GET /v1/libraries[?uri=]
  GET /v1/types?name=&package=
  GET /v1/types/qualified?name=
  GET /v1/types/simple?name=&package=
  GET /v1/types/{subclasses,implementers,instantiations}?name=
  GET /v1/cache[?preload=true]

With --watch the model is regenerated when sources change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(s *session) error {
				ctx := cmd.Context()
				if watchMode {
					fw, err := watch.NewFileWatcher(watch.Options{
						Root:     s.root,
						SkipDirs: s.cfg.Scanner.SkipDirs,
						Logger:   s.logger.Named("watch"),
					}, func([]string) error { return s.refresh(ctx) })
					if err != nil {
						return err
					}
					if err := fw.Start(); err != nil {
						return err
					}
					defer fw.Stop()
				}
				return server.New(s.registry, s.index, s.logger.Named("server")).ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:7420", "Listen address")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Regenerate when sources change")
	return cmd
}
