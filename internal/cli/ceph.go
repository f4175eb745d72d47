package cli

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cephforge/cephcli/internal/executor"
	"github.com/cephforge/cephcli/pkg/config"
	"github.com/cephforge/cephcli/pkg/secrets"
	"github.com/spf13/cobra"
)

// NewCephCommand creates the cephcli root command. Everything after the
// flags is a command line for the cluster.
func NewCephCommand(app *App) *cobra.Command {
	flags := &GlobalFlags{}

	cmd := &cobra.Command{
		Use:   "cephcli [flags] <command words and arguments>",
		Short: "Send administrative commands to a Ceph cluster",
		Long: `cephcli resolves a command line against the command descriptions
advertised by the cluster and sends the matching command to its target.

Descriptions are fetched once and cached. Use --describe to list the
commands matching a few words and --dry-run to see the arguments that
would be sent.

Examples:
  cephcli osd tree
  cephcli -f json-pretty osd pool create rbd 128
  cephcli --target osd.3 dump_ops_in_flight
  cephcli --describe osd pool`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !flags.Describe {
				return cmd.Help()
			}
			return app.runCeph(cmd, flags, args)
		},
	}

	cmd.Flags().SetInterspersed(false)
	flags.AddFlags(cmd.Flags())
	cmd.SetOut(app.stdout())
	cmd.SetErr(app.stderr())

	return cmd
}

func (a *App) runCeph(cmd *cobra.Command, flags *GlobalFlags, tokens []string) error {
	ctx := cmd.Context()

	cfg, logger, err := a.loadConfig(flags.Config, flags.Verbose)
	if err != nil {
		return err
	}
	s, err := flags.resolve(cfg)
	if err != nil {
		return err
	}

	cluster, err := a.cluster(ctx, cfg, s.url, logger)
	if err != nil {
		return err
	}

	execCfg := &executor.Config{
		Cluster:  cluster,
		CacheKey: s.url,
		CacheTTL: cfg.Cache.TTL,
		Output:   a.outputManager(),
		Progress: a.progress(),
		Logger:   logger,
		Fs:       a.fs(),
		Stdout:   a.stdout(),
		Stderr:   a.stderr(),
	}
	if cfg.Cache.Enabled && flags.SigFile == "" {
		c, err := a.openCache(cfg.Cache.TTL)
		if err != nil {
			logger.Warn("description cache disabled", slog.String("error", err.Error()))
		} else {
			execCfg.Cache = c
		}
	}

	exec, err := executor.NewExecutor(execCfg)
	if err != nil {
		return err
	}

	logger.Debug("running command",
		slog.String("tokens", strings.Join(tokens, " ")),
		slog.String("target", s.target.String()),
		slog.String("format", s.format))

	start := time.Now()
	err = exec.Execute(ctx, &executor.Request{
		Tokens:    tokens,
		Format:    s.format,
		Threshold: flags.Threshold,
		Target:    s.target,
		Timeout:   s.timeout,
		InFile:    flags.InFile,
		OutFile:   flags.OutFile,
		SigFile:   flags.SigFile,
		Refresh:   flags.Refresh,
		DryRun:    flags.DryRun,
		Describe:  flags.Describe,
	})

	if cfg.History.Enabled && !flags.DryRun && !flags.Describe {
		a.recordHistory(cfg, logger, tokens, s.target.String(), ExitCode(err), time.Since(start))
	}
	return err
}

// recordHistory appends the masked command line to the history. Failures
// are logged and never change the command's result.
func (a *App) recordHistory(cfg *config.Config, logger *slog.Logger, tokens []string, target string, code int, elapsed time.Duration) {
	h, err := a.openHistory(cfg.History.MaxEntries)
	if err != nil {
		logger.Warn("history disabled", slog.String("error", err.Error()))
		return
	}

	masked := make([]string, len(tokens))
	d := secrets.Default()
	for i, t := range tokens {
		masked[i] = d.MaskString(t)
	}
	if err := h.Record(strings.Join(masked, " "), target, code, elapsed); err != nil {
		logger.Warn("failed to record history", slog.String("error", err.Error()))
	}
}
