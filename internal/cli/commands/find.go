package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

// errReported marks an error whose message was already written
var errReported = errors.New("lookup failed")

// NewFindCommand creates the find command
func NewFindCommand(g *globalOptions) *cobra.Command {
	var (
		pkg       string
		qualified bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Look up a type declaration",
		Long: `Look up a type declaration by name.

The name may be a simple name (Order), a qualified name
(example.com/shop.Order) or a generic instantiation (Box[string]).
Predeclared types match case-insensitively, so String finds string.`,
		Example: `  # Find a type anywhere in the project
  mirror find Order

  # Restrict the search to one module
  mirror find Order --package example.com/shop

  # List every type with a simple name
  mirror find Handler --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(cmd, g, func(s *session) error {
				out := cmd.OutOrStdout()

				if all {
					ds, err := s.index.FindAllBySimpleName(name, pkg)
					if err != nil {
						return err
					}
					if g.format == "json" {
						return writeJSON(out, toJSONList(ds))
					}
					declarationRows(out, ds, g.noColor)
					return nil
				}

				var d decl.TypeDeclaration
				var err error
				if qualified {
					d, err = s.index.FindByQualifiedName(name)
				} else {
					d, err = s.index.FindByName(name, pkg)
				}
				if rterrors.HasCode(err, rterrors.ErrNotFound) {
					types, terr := s.registry.AllTypes()
					if terr != nil {
						return terr
					}
					fmt.Fprint(cmd.ErrOrStderr(), notFound(types, name, g.noColor))
					return fmt.Errorf("%w: %v", errReported, err)
				}
				if err != nil {
					return err
				}

				if g.format == "json" {
					return writeJSON(out, d.ToJSON())
				}
				describe(out, d, g.noColor)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&pkg, "package", "p", "", `Restrict to a module; "std" selects predeclared and standard library types`)
	cmd.Flags().BoolVar(&qualified, "qualified", false, "Treat the name as an exact qualified name")
	cmd.Flags().BoolVar(&all, "all", false, "List every declaration with the simple name")
	return cmd
}
