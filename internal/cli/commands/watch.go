package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(g *globalOptions) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate metadata when sources change",
		Long: `Generate and register the project, then watch its Go files. Every batch of
changes regenerates all packages and registers the new model, which clears
the lookup caches. With --export each generation is also written to the
snapshot store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(s *session) error {
				return s.watch(cmd.Context(), cmd, export)
			})
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "Export every generation to the snapshot store")
	return cmd
}

func (s *session) watch(ctx context.Context, cmd *cobra.Command, export bool) error {
	out := cmd.OutOrStdout()
	successColor := color.New(color.FgGreen, color.Bold)
	errorColor := color.New(color.FgRed, color.Bold)

	regenerate := func() error {
		if !export {
			return nil
		}
		exporter, store, err := s.exporter()
		if err != nil {
			return err
		}
		defer store.Close()
		generation, err := s.registry.Generation()
		if err != nil {
			return err
		}
		_, err = exporter.Export(ctx, generation, s.libraries)
		return err
	}
	if err := regenerate(); err != nil {
		return err
	}

	fw, err := watch.NewFileWatcher(watch.Options{
		Root:     s.root,
		SkipDirs: s.cfg.Scanner.SkipDirs,
		Logger:   s.logger.Named("watch"),
	}, func(files []string) error {
		s.logger.Info("regenerating", zap.Int("changed", len(files)))
		if err := s.refresh(ctx); err != nil {
			errorColor.Fprintf(out, "✗ regeneration failed: %v\n", err)
			return err
		}
		if err := regenerate(); err != nil {
			errorColor.Fprintf(out, "✗ export failed: %v\n", err)
			return err
		}
		generation, _ := s.registry.Generation()
		successColor.Fprintf(out, "✓ generation %s (%d packages)\n", generation, len(s.report.Processed))
		return nil
	})
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", s.root)
	<-ctx.Done()
	fmt.Fprintln(out, "Stopping")
	return nil
}
