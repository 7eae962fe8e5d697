package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/internal/cli/ui"
)

// NewScanCommand creates the scan command
func NewScanCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the compilation units of a project",
		Long: `List every Go package directory that metadata generation would process,
attributed to the go.mod that governs it.

Directories named vendor, testdata or node_modules, directories starting
with "." or "_", and paths matched by the root .gitignore are skipped.`,
		Example: `  # Scan the current project
  mirror scan

  # Scan another directory and print JSON
  mirror scan -C ../shop --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.validateFormat(); err != nil {
				return err
			}
			s, err := newSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			units, err := s.scanner.DiscoverUnits(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.format == "json" {
				return writeJSON(out, units)
			}
			table := ui.NewTable(out, g.noColor, ui.Text("PACKAGE"), ui.Text("MODULE"), ui.Count("FILES"))
			for _, u := range units {
				table.AddRow(s.scanner.UnitToModuleURI(u), u.Package.Name, strconv.Itoa(len(u.Files)))
			}
			table.SetFooter("%d packages", len(units))
			table.Render()
			return nil
		},
	}
}
