package commands

import (
	"context"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

// ExitCode is set by commands to indicate the result.
var ExitCode = 0

type settingsKey struct{}

// WithSettings returns a context carrying the user settings.
func WithSettings(ctx context.Context, s *config.Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// settingsFrom returns the settings attached by the root command, or the
// defaults when a command runs on its own.
func settingsFrom(ctx context.Context) *config.Settings {
	if ctx != nil {
		if s, ok := ctx.Value(settingsKey{}).(*config.Settings); ok {
			return s
		}
	}
	return &config.Settings{
		OutputDir: config.DefaultOutputDir,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
