package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/internal/cli/ui"
)

// NewExportCommand creates the export command
func NewExportCommand(g *globalOptions) *cobra.Command {
	var (
		backend string
		codec   string
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write library exports to the snapshot store",
		Long: `Generate the project, then write the JSON export of every registered
package to the snapshot store, keyed by import path and content hash, with a
manifest for the registry generation.

Packages whose export did not change since an earlier snapshot are reused.`,
		Example: `  # Export into Redis as msgpack
  mirror export --backend redis --addr localhost:6379 --codec msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(s *session) error {
				if backend != "" {
					s.cfg.Snapshot.Backend = backend
				}
				if codec != "" {
					s.cfg.Snapshot.Codec = codec
				}
				if addr != "" {
					s.cfg.Snapshot.Addr = addr
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
				manifest, err := exporter.Export(cmd.Context(), generation, s.libraries)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if g.format == "json" {
					return writeJSON(out, manifest)
				}
				table := ui.NewTable(out, g.noColor, ui.Text("PACKAGE"), ui.Text("KEY"), ui.Text("REUSED"))
				reused := 0
				for _, e := range manifest.Entries {
					mark := ""
					if e.Reused {
						mark = "yes"
						reused++
					}
					table.AddRow(e.URI, e.Key, mark)
				}
				table.Render()
				ui.WriteSuccess(out, fmt.Sprintf("Exported generation %s (%d packages, %d reused, %s)",
					manifest.Generation, len(manifest.Entries), reused, manifest.Codec), g.noColor)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Snapshot backend: memory or redis (overrides snapshot.backend)")
	cmd.Flags().StringVar(&codec, "codec", "", "Snapshot codec: json or msgpack (overrides snapshot.codec)")
	cmd.Flags().StringVar(&addr, "addr", "", "Redis address (overrides snapshot.addr)")
	return cmd
}
