package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/internal/cli/ui"
	"github.com/conduit-lang/mirror/runtime/decl"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand(g *globalOptions) *cobra.Command {
	var library string

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"g"},
		Short:   "Generate and register declaration metadata",
		Long: `Generate declaration metadata for every package of the project, register
it, and print a summary of the registered model.

With --library the JSON export of a single package is printed instead.`,
		Example: `  # Summarise the project
  mirror generate

  # Print the export of one package
  mirror generate --library example.com/shop/internal/orders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(s *session) error {
				out := cmd.OutOrStdout()
				if library != "" {
					for _, lib := range s.libraries {
						if lib.URI() == library {
							return writeJSON(out, lib.ToJSON())
						}
					}
					return fmt.Errorf("package %s was not generated", library)
				}

				if g.format == "json" {
					return writeJSON(out, map[string]any{
						"report":    s.report,
						"libraries": toJSONList(s.libraries),
					})
				}
				return s.summarise(cmd, g.noColor)
			})
		},
	}

	cmd.Flags().StringVar(&library, "library", "", "Print the export of one package")
	return cmd
}

// summarise prints the generation report and per-package declaration counts
func (s *session) summarise(cmd *cobra.Command, noColor bool) error {
	out := cmd.OutOrStdout()
	generation, err := s.registry.Generation()
	if err != nil {
		return err
	}

	ui.Header(out, "Generation", noColor)
	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Generation", generation)
	kv.AddRow("Processed", strconv.Itoa(len(s.report.Processed)))
	kv.AddRow("Skipped", strconv.Itoa(len(s.report.Skipped)))
	kv.AddRow("Omitted edges", strconv.Itoa(s.report.Omitted))
	kv.AddRow("Unresolved names", strconv.Itoa(s.report.Unresolved))
	kv.AddRow("Duration", s.report.Duration.String())
	kv.Render()
	fmt.Fprintln(out)

	table := ui.NewTable(out, noColor,
		ui.Text("PACKAGE"), ui.Count("LEVEL"), ui.Count("TYPES"), ui.Count("FUNCS"), ui.Count("VARS"))
	for _, lib := range s.libraries {
		level, err := s.registry.Level(lib.Package().Name)
		if err != nil {
			return err
		}
		funcs, vars := 0, 0
		for _, d := range lib.Declarations() {
			switch d.(type) {
			case *decl.MethodDeclaration:
				funcs++
			case *decl.FieldDeclaration:
				vars++
			}
		}
		table.AddRow(lib.URI(), strconv.Itoa(level), strconv.Itoa(len(lib.Types())), strconv.Itoa(funcs), strconv.Itoa(vars))
	}
	table.Render()

	for _, skipped := range s.report.Skipped {
		ui.WriteError(out, ui.ErrorOptions{
			Level:       ui.ErrorLevelWarning,
			Context:     "skipped",
			Problem:     skipped.URI,
			Consequence: skipped.Err.Error(),
			NoColor:     noColor,
		})
	}
	return nil
}
