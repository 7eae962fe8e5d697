package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// hierarchyQuery resolves the base declaration and runs one subtype query
type hierarchyQuery func(s *session, base decl.TypeDeclaration) ([]decl.TypeDeclaration, error)

func newHierarchyCommand(g *globalOptions, use, short, long string, query hierarchyQuery) *cobra.Command {
	var pkg string

	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(s *session) error {
				base, err := s.index.FindByName(args[0], pkg)
				if err != nil {
					return err
				}
				found, err := query(s, base)
				if err != nil {
					return err
				}
				if g.format == "json" {
					return writeJSON(cmd.OutOrStdout(), toJSONList(found))
				}
				declarationRows(cmd.OutOrStdout(), found, g.noColor)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Module of the base type")
	return cmd
}

// NewSubclassesCommand creates the subclasses command
func NewSubclassesCommand(g *globalOptions) *cobra.Command {
	return newHierarchyCommand(g, "subclasses",
		"List types that extend, embed or implement a type",
		`List every type whose superclass, interfaces or embedded types refer to
the named type, directly or through its superclass chain.`,
		func(s *session, base decl.TypeDeclaration) ([]decl.TypeDeclaration, error) {
			classes, err := s.index.FindSubclassesOf(base)
			if err != nil {
				return nil, err
			}
			out := make([]decl.TypeDeclaration, len(classes))
			for i, c := range classes {
				out[i] = c
			}
			return out, nil
		})
}

// NewImplementersCommand creates the implementers command
func NewImplementersCommand(g *globalOptions) *cobra.Command {
	return newHierarchyCommand(g, "implementers",
		"List types that directly implement an interface",
		`List the types whose interfaces or embedded types name the given type
directly. Use subclasses for transitive results.`,
		func(s *session, base decl.TypeDeclaration) ([]decl.TypeDeclaration, error) {
			return s.index.FindImplementersOf(base)
		})
}

// NewInstantiationsCommand creates the instantiations command
func NewInstantiationsCommand(g *globalOptions) *cobra.Command {
	return newHierarchyCommand(g, "instantiations",
		"List instantiations of a generic type",
		`List the registered instantiations of a generic type, excluding the
generic declaration itself.`,
		func(s *session, base decl.TypeDeclaration) ([]decl.TypeDeclaration, error) {
			return s.index.FindGenericInstantiationsOf(base)
		})
}
