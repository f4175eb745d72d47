package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cephforge/cephcli/pkg/auth"
	"github.com/cephforge/cephcli/pkg/config"
	"github.com/cephforge/cephcli/pkg/secrets"
	"github.com/cephforge/cephcli/pkg/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCacheCommand(app *App, opts *sigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the description cache",
		Long: `Manage the cache of command descriptions fetched from clusters.

Available subcommands:
  info   - Show cache location and size
  clear  - Remove every cached description`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.openCache(0)
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			info := map[string]any{
				"cache_dir":  c.BaseDir,
				"entries":    stats.TotalEntries,
				"size_bytes": stats.TotalSize,
			}
			return app.outputManager().Format(app.stdout(), info, opts.formatOr("plain"))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.openCache(0)
			if err != nil {
				return err
			}
			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout(), "Cache cleared: %s\n", c.BaseDir)
			return nil
		},
	})

	return cmd
}

func newConfigCommand(app *App, opts *sigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the cephcli configuration file.

Available subcommands:
  show   - Display the effective configuration
  get    - Get a configuration value
  set    - Set a configuration value
  init   - Write a configuration file with defaults
  path   - Show the configuration file path`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = app.stdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value by key.

Examples:
  cephsig config get cluster.url
  cephsig config get defaults.timeout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value by key and save the file.

Examples:
  cephsig config set cluster.url https://ceph-gw.example:8003
  cephsig config set defaults.format json-pretty
  cephsig config set cache.ttl 30m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(app.Name, opts.config)
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.NewValidator().Validate(cfg); err != nil {
				return err
			}
			if err := loader.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(app.Name, opts.config)
			path := loader.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := loader.Save(config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(app.stdout(), config.NewLoader(app.Name, opts.config).Path())
			return nil
		},
	})

	return cmd
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "cluster.url":
		return cfg.Cluster.URL, nil
	case "cluster.user":
		return cfg.Cluster.User, nil
	case "cluster.keyring_service":
		return cfg.Cluster.KeyringService, nil
	case "cluster.target":
		return cfg.Cluster.Target, nil
	case "defaults.format":
		return cfg.Defaults.Format, nil
	case "defaults.timeout":
		return cfg.Defaults.Timeout.String(), nil
	case "cache.enabled":
		return strconv.FormatBool(cfg.Cache.Enabled), nil
	case "cache.ttl":
		return cfg.Cache.TTL.String(), nil
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), nil
	case "history.max_entries":
		return strconv.Itoa(cfg.History.MaxEntries), nil
	case "log.level":
		return cfg.Log.Level, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch key {
	case "cluster.url":
		cfg.Cluster.URL = value
	case "cluster.user":
		cfg.Cluster.User = value
	case "cluster.keyring_service":
		cfg.Cluster.KeyringService = value
	case "cluster.target":
		cfg.Cluster.Target = value
	case "defaults.format":
		cfg.Defaults.Format = value
	case "defaults.timeout":
		cfg.Defaults.Timeout, err = time.ParseDuration(value)
	case "cache.enabled":
		cfg.Cache.Enabled, err = strconv.ParseBool(value)
	case "cache.ttl":
		cfg.Cache.TTL, err = time.ParseDuration(value)
	case "history.enabled":
		cfg.History.Enabled, err = strconv.ParseBool(value)
	case "history.max_entries":
		cfg.History.MaxEntries, err = strconv.Atoi(value)
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func newAuthCommand(app *App, opts *sigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the gateway API key",
		Long: `Manage the API key sent to the cluster gateway.

The key is stored in the OS keyring under cluster.keyring_service.
` + auth.DefaultEnvVar + ` takes precedence when set.

Available subcommands:
  login   - Store an API key
  logout  - Remove the stored API key
  status  - Show where the API key comes from`,
	}

	var key string
	login := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Long:  "Store an API key in the keyring. Without --key the key is read from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			store, err := app.keyStore(cfg)
			if err != nil {
				return err
			}

			if key == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if err := store.SaveKey(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout(), "API key stored")
			return nil
		},
	}
	login.Flags().StringVar(&key, "key", "", "API key (read from stdin when omitted)")
	cmd.AddCommand(login)

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			store, err := app.keyStore(cfg)
			if err != nil {
				return err
			}
			if err := store.DeleteKey(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout(), "API key removed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key := os.Getenv(auth.DefaultEnvVar); key != "" {
				fmt.Fprintf(app.stdout(), "API key: %s (from %s)\n", secrets.Default().Mask(key), auth.DefaultEnvVar)
				return nil
			}

			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			store, err := app.keyStore(cfg)
			if err != nil {
				return err
			}
			stored, err := store.LoadKey(cmd.Context())
			switch {
			case err == nil:
				fmt.Fprintf(app.stdout(), "API key: %s (stored in keyring)\n", secrets.Default().Mask(stored))
			case errors.Is(err, auth.ErrKeyNotFound):
				fmt.Fprintln(app.stdout(), "API key: not configured")
			default:
				return err
			}
			return nil
		},
	})

	return cmd
}

func newVersionCommand(app *App, opts *sigOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]any{
				"version":    app.Version,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
				"config":     config.NewLoader(app.Name, opts.config).Path(),
			}
			return app.outputManager().Format(app.stdout(), info, opts.formatOr("plain"))
		},
	}
}

func newHistoryCommand(app *App, opts *sigOptions) *cobra.Command {
	var limit int
	var failed bool
	var search string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show commands sent by cephcli",
		Long: `Show the commands cephcli sent to clusters, newest last. Secret
values in the recorded command lines are masked.

Examples:
  cephsig history --limit 20
  cephsig history --failed
  cephsig history --search "osd pool"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			h, err := app.openHistory(cfg.History.MaxEntries)
			if err != nil {
				return err
			}

			var entries []*state.HistoryEntry
			switch {
			case failed:
				entries = h.Failed()
			case search != "":
				entries = h.Search(search)
			default:
				entries = h.Recent(0)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			format := opts.formatOr("table")
			switch format {
			case "table", "plain":
			default:
				return app.outputManager().Format(app.stdout(), entries, format)
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.stdout(), "No history")
				return nil
			}

			if format == "plain" {
				lines := make([]string, len(entries))
				for i, e := range entries {
					lines[i] = fmt.Sprintf("%d  %s  %s  %d  %s", e.ID, e.Timestamp.Local().Format(time.DateTime), e.Target, e.ExitCode, e.Command)
				}
				return app.outputManager().Format(app.stdout(), lines, format)
			}
			rows := make([]map[string]any, len(entries))
			for i, e := range entries {
				rows[i] = map[string]any{
					"id":       e.ID,
					"time":     e.Timestamp.Local().Format(time.DateTime),
					"target":   e.Target,
					"exit":     e.ExitCode,
					"duration": (time.Duration(e.DurationMS) * time.Millisecond).String(),
					"command":  e.Command,
				}
			}
			return app.outputManager().Format(app.stdout(), rows, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the newest N entries")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only commands that failed")
	cmd.Flags().StringVar(&search, "search", "", "Show only commands containing this text")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(opts.config, opts.verbose)
			if err != nil {
				return err
			}
			h, err := app.openHistory(cfg.History.MaxEntries)
			if err != nil {
				return err
			}
			h.Clear()
			if err := h.Save(); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout(), "History cleared: %s\n", h.Path())
			return nil
		},
	})

	return cmd
}
