package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/mirror/internal/cli/config"
	"github.com/conduit-lang/mirror/internal/cli/ui"
)

// NewConfigCommand creates the config command group
func NewConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create mirror.yaml",
	}
	cmd.AddCommand(newConfigInitCommand(g))
	cmd.AddCommand(newConfigShowCommand(g))
	return cmd
}

func newConfigInitCommand(g *globalOptions) *cobra.Command {
	var (
		interactive bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a mirror.yaml with the default settings",
		Example: `  # Write defaults
  mirror config init

  # Answer prompts for the hierarchy and snapshot settings
  mirror config init --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(g.dir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if interactive {
				if err := promptConfig(cfg); err != nil {
					return err
				}
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Wrote "+path, g.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for settings")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

// promptConfig asks for the settings most projects change
func promptConfig(cfg *config.Config) error {
	questions := []*survey.Question{
		{
			Name: "core",
			Prompt: &survey.Input{
				Message: "Core package (registered at level 1):",
				Default: cfg.Hierarchy.CorePackage,
			},
		},
		{
			Name: "namespace",
			Prompt: &survey.Input{
				Message: "Namespace prefix (level 2):",
				Default: cfg.Hierarchy.Namespace,
			},
		},
		{
			Name: "backend",
			Prompt: &survey.Select{
				Message: "Snapshot backend:",
				Options: []string{"memory", "redis"},
				Default: cfg.Snapshot.Backend,
			},
		},
		{
			Name: "codec",
			Prompt: &survey.Select{
				Message: "Snapshot codec:",
				Options: []string{"json", "msgpack"},
				Default: cfg.Snapshot.Codec,
			},
		},
	}
	answers := struct {
		Core      string
		Namespace string
		Backend   string
		Codec     string
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Hierarchy.CorePackage = strings.TrimSpace(answers.Core)
	cfg.Hierarchy.Namespace = strings.TrimSpace(answers.Namespace)
	cfg.Snapshot.Backend = answers.Backend
	cfg.Snapshot.Codec = answers.Codec

	if cfg.Snapshot.Backend == "redis" {
		return survey.AskOne(&survey.Input{
			Message: "Redis address:",
			Default: cfg.Snapshot.Addr,
		}, &cfg.Snapshot.Addr, survey.WithValidator(survey.Required))
	}
	return nil
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, mirror.yaml and MIRROR_*
environment overrides have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := config.GetProjectRoot(g.dir)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			if g.format == "json" {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
