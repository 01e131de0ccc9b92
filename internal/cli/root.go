// Package cli provides the command-line interface for hecmeta.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waterinstitute/hecmeta/internal/cli/commands"
	"github.com/waterinstitute/hecmeta/internal/cli/plugins"
	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	SettingsFile string
	LogLevel     string
	LogFormat    string
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	return ExecuteArgs(context.Background(), os.Args[1:])
}

// ExecuteArgs runs the CLI with args and returns the exit code.
func ExecuteArgs(ctx context.Context, args []string) int {
	commands.ExitCode = 0
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)

	// An unknown first word may be a plugin.
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' && !isBuiltinCommand(rootCmd, args[0]) {
		if pluginPath, err := plugins.DefaultFinder().Find(args[0]); err == nil {
			settings, err := config.LoadSettings()
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 2
			}
			return plugins.Execute(ctx, pluginPath, args[1:], plugins.Environment(settings))
		}
		_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(args[0]))
		return 2
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "hecmeta",
		Short: "Extract model registry metadata from hydrologic and hydraulic projects",
		Long: `hecmeta reads HEC-RAS, HEC-HMS, HEC-FIA and Go-Consequences projects and
writes model application and simulation JSON documents for a model registry.

Extract one project with a dialect command, or many with a job file:
  hecmeta ras --boundary Amite/boundary.shp Amite/Amite.prj
  hecmeta run job.yaml

User defaults are read from ~/.config/hecmeta/config.toml.

PLUGINS:
  Unknown commands run a binary named hecmeta-<command>, searched for in
  the directory of hecmeta, in ~/.config/hecmeta/plugins/, then in PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.SettingsFile, "settings", "", "Settings file (default ~/.config/hecmeta/config.toml)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format (text|json)")

	for _, d := range config.Dialects() {
		rootCmd.AddCommand(commands.NewExtractCommand(d))
	}
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// setup loads user settings, applies flag overrides and attaches the logger
// and settings to the command's context.
func setup(cmd *cobra.Command, opts *RootOptions) error {
	var (
		settings *config.Settings
		err      error
	)
	if opts.SettingsFile != "" {
		settings, err = config.LoadSettingsFile(opts.SettingsFile)
	} else {
		settings, err = config.LoadSettings()
	}
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		settings.LogFormat = opts.LogFormat
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctxlog.New(settings.LogLevel, settings.LogFormat, cmd.ErrOrStderr())
	ctx = ctxlog.WithLogger(ctx, logger)
	ctx = commands.WithSettings(ctx, settings)
	cmd.SetContext(ctx)
	return nil
}
