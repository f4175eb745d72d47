// Package cli builds the cobra commands of the cephcli and cephsig
// binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cephforge/cephcli/pkg/auth"
	"github.com/cephforge/cephcli/pkg/cache"
	"github.com/cephforge/cephcli/pkg/config"
	"github.com/cephforge/cephcli/pkg/logging"
	"github.com/cephforge/cephcli/pkg/output"
	"github.com/cephforge/cephcli/pkg/progress"
	"github.com/cephforge/cephcli/pkg/state"
	"github.com/cephforge/cephcli/pkg/transport"
	"github.com/spf13/afero"
)

// DefaultAppName names the config, cache and keyring entries.
const DefaultAppName = "cephcli"

// App holds what the commands share. The zero value of every field except
// Name and Version falls back to the real process environment.
type App struct {
	Name    string
	Version string

	Stdout io.Writer
	Stderr io.Writer
	// Fs serves signature, input and output files and the cache.
	Fs afero.Fs
	// Cluster replaces the HTTP gateway built from the configuration.
	Cluster transport.Cluster
	// Keys replaces the OS keyring.
	Keys auth.KeyStore
	// Progress replaces the stderr spinner.
	Progress progress.Progress
	// CacheDir replaces the XDG cache directory.
	CacheDir string
	// StateDir replaces the XDG state directory holding the history.
	StateDir string

	output *output.Manager
}

// NewApp returns an App bound to the process environment.
func NewApp(version string) *App {
	return &App{Name: DefaultAppName, Version: version}
}

func (a *App) stdout() io.Writer {
	if a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

func (a *App) stderr() io.Writer {
	if a.Stderr == nil {
		return os.Stderr
	}
	return a.Stderr
}

func (a *App) fs() afero.Fs {
	if a.Fs == nil {
		a.Fs = afero.NewOsFs()
	}
	return a.Fs
}

func (a *App) outputManager() *output.Manager {
	if a.output == nil {
		a.output = output.NewManager()
	}
	return a.output
}

func (a *App) progress() progress.Progress {
	if a.Progress == nil {
		return progress.NewSpinner(a.stderr())
	}
	return a.Progress
}

// loadConfig reads the configuration and installs the logger.
func (a *App) loadConfig(path string, verbose bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.NewLoader(a.Name, path).Load()
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(a.stderr(), logging.LevelFromEnv(cfg.Log.Level), verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (a *App) keyStore(cfg *config.Config) (auth.KeyStore, error) {
	if a.Keys != nil {
		return a.Keys, nil
	}
	service := cfg.Cluster.KeyringService
	if service == "" {
		service = a.Name
	}
	return auth.NewKeyringStore(service, cfg.Cluster.User)
}

// cluster returns the configured gateway, or nil when no URL is set.
func (a *App) cluster(ctx context.Context, cfg *config.Config, url string, logger *slog.Logger) (transport.Cluster, error) {
	if a.Cluster != nil {
		return a.Cluster, nil
	}
	if url == "" {
		return nil, nil
	}

	opts := []transport.HTTPOption{transport.WithUser(cfg.Cluster.User)}

	store, err := a.keyStore(cfg)
	if err != nil {
		return nil, err
	}
	key, err := auth.ResolveAPIKey(ctx, auth.DefaultEnvVar, store)
	switch {
	case err == nil:
		opts = append(opts, transport.WithAPIKey(key))
	case errors.Is(err, auth.ErrKeyNotFound):
		logger.Debug("no API key configured", slog.String("url", url))
	default:
		logger.Warn("failed to read API key", slog.String("error", err.Error()))
	}

	c, err := transport.NewHTTPCluster(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}
	return c, nil
}

func (a *App) openCache(ttl time.Duration) (*cache.Cache, error) {
	opts := []cache.Option{cache.WithFs(a.fs())}
	if a.CacheDir != "" {
		opts = append(opts, cache.WithDir(a.CacheDir))
	}
	if ttl > 0 {
		opts = append(opts, cache.WithTTL(ttl))
	}
	return cache.New(a.Name, opts...)
}

func (a *App) openHistory(maxEntries int) (*state.History, error) {
	opts := []state.HistoryOption{state.WithHistoryFs(a.fs()), state.WithMaxEntries(maxEntries)}
	if a.StateDir != "" {
		opts = append(opts, state.WithHistoryDir(a.StateDir))
	}
	return state.OpenHistory(a.Name, opts...)
}
