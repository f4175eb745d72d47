// Package logging sets up the structured logger shared by the CLIs.
//
// Records are written as slog text to stderr. The level comes from, in
// increasing priority: the configured level, the <PREFIX>_LOG_LEVEL
// environment variable, and --verbose (always debug). Debug records carry
// their source location. Secret values and attributes with secret names
// are masked before they are written.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cephforge/cephcli/pkg/secrets"
)

// EnvLevel is the environment variable consulted by LevelFromEnv.
const EnvLevel = "CEPHCLI_LOG_LEVEL"

// ParseLevel maps a level name to an slog level. Unknown names fall back
// to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LevelFromEnv returns the level named by EnvLevel, or configured when the
// variable is unset.
func LevelFromEnv(configured string) slog.Level {
	if v := os.Getenv(EnvLevel); v != "" {
		return ParseLevel(v)
	}
	return ParseLevel(configured)
}

// New returns a text logger on w. verbose forces debug.
func New(w io.Writer, level slog.Level, verbose bool) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: maskAttr,
	}))
}

func maskAttr(_ []string, a slog.Attr) slog.Attr {
	d := secrets.Default()
	switch {
	case a.Value.Kind() == slog.KindGroup:
		return a
	case d.IsSecretField(a.Key):
		return slog.String(a.Key, d.Mask(a.Value.String()))
	case a.Value.Kind() == slog.KindString:
		return slog.String(a.Key, d.MaskString(a.Value.String()))
	case a.Value.Kind() == slog.KindAny:
		if args, ok := a.Value.Any().(map[string]any); ok {
			return slog.Any(a.Key, d.MaskArgs(args))
		}
	}
	return a
}

// SetDefault installs a stderr logger for the configured level as the slog
// default and returns it.
func SetDefault(configured string, verbose bool) *slog.Logger {
	logger := New(os.Stderr, LevelFromEnv(configured), verbose)
	slog.SetDefault(logger)
	return logger
}
