package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Declaration metadata for Go packages",
		Long: color.CyanString(`Mirror - declaration metadata for Go packages

Mirror scans a Go project, reconciles what the compiler sees with what the
running program registered, and answers questions about the result:

  • Which declarations does a package export?
  • What implements this interface, and what embeds this type?
  • Which instantiations of a generic type are in use?`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.bind(rootCmd)

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewScanCommand(g))
	rootCmd.AddCommand(NewGenerateCommand(g))
	rootCmd.AddCommand(NewFindCommand(g))
	rootCmd.AddCommand(NewSubclassesCommand(g))
	rootCmd.AddCommand(NewImplementersCommand(g))
	rootCmd.AddCommand(NewInstantiationsCommand(g))
	rootCmd.AddCommand(NewExportCommand(g))
	rootCmd.AddCommand(NewWatchCommand(g))
	rootCmd.AddCommand(NewServeCommand(g))
	rootCmd.AddCommand(NewConfigCommand(g))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the mirror version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "Mirror version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errReported) {
			return err
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
