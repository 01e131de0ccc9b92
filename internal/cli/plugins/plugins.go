// Package plugins runs external hecmeta-<command> binaries for commands the
// CLI does not build in, such as extractors for further modeling tools or
// site-specific publishers. The binary receives the remaining arguments and
// the resolved user settings through HECMETA_* environment variables.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "hecmeta-"

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// Finder locates plugin binaries.
type Finder struct {
	// Dirs are searched in order before PATH.
	Dirs []string
	// UsePath enables the final PATH lookup.
	UsePath bool
}

// DefaultFinder searches, in order:
//  1. The directory of the hecmeta binary
//  2. ~/.config/hecmeta/plugins/
//  3. PATH
func DefaultFinder() *Finder {
	f := &Finder{UsePath: true}
	if execPath, err := os.Executable(); err == nil {
		f.Dirs = append(f.Dirs, filepath.Dir(execPath))
	}
	if path, err := config.SettingsPath(); err == nil {
		f.Dirs = append(f.Dirs, filepath.Join(filepath.Dir(path), "plugins"))
	}
	return f
}

// Find returns the path of the plugin binary for command.
func (f *Finder) Find(command string) (string, error) {
	if command == "" || strings.ContainsAny(command, `/\`) {
		return "", ErrPluginNotFound
	}
	name := Prefix + command

	for _, dir := range f.Dirs {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if f.UsePath {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", ErrPluginNotFound
}

// Environment renders settings as the HECMETA_* variables a plugin reads.
func Environment(s *config.Settings) []string {
	var env []string
	if s.OutputDir != "" {
		env = append(env, config.EnvOutputDir+"="+s.OutputDir)
	}
	if s.TemplateDir != "" {
		env = append(env, config.EnvTemplateDir+"="+s.TemplateDir)
	}
	if s.LogLevel != "" {
		env = append(env, "HECMETA_LOG_LEVEL="+s.LogLevel)
	}
	if s.LogFormat != "" {
		env = append(env, "HECMETA_LOG_FORMAT="+s.LogFormat)
	}
	return env
}

// Execute runs a plugin with the given arguments and extra environment,
// connected to this process's standard streams, and returns its exit code.
func Execute(ctx context.Context, pluginPath string, args, env []string) int {
	cmd := exec.CommandContext(ctx, pluginPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), env...)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 1
	}

	return 0
}

// FormatNotFoundError explains where a plugin for command would be looked
// up.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"hecmeta\"\n", command)
	sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	fmt.Fprintf(&sb, "  - %s%s in the same directory as hecmeta\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.config/hecmeta/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)
	sb.WriteString("\nRun 'hecmeta --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
