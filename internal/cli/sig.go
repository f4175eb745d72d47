package cli

import (
	"fmt"
	"log/slog"

	"github.com/cephforge/cephcli/internal/executor"
	"github.com/cephforge/cephcli/pkg/argtype"
	"github.com/cephforge/cephcli/pkg/logging"
	"github.com/cephforge/cephcli/pkg/output"
	"github.com/cephforge/cephcli/pkg/resolver"
	"github.com/cephforge/cephcli/pkg/signature"
	"github.com/spf13/cobra"
)

// sigOptions are the persistent flags of cephsig.
type sigOptions struct {
	config  string
	format  string
	verbose bool
}

// NewSigCommand creates the cephsig root command.
func NewSigCommand(app *App) *cobra.Command {
	opts := &sigOptions{}

	cmd := &cobra.Command{
		Use:   "cephsig",
		Short: "Inspect command descriptions and manage cephcli settings",
		Long: `cephsig works on command description files, the JSON documents a
cluster returns for get_command_descriptions, and manages the local
configuration, description cache, command history and API key used by
cephcli.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.config, "config", "", "Config file (default $XDG_CONFIG_HOME/cephcli/config.yaml)")
	pf.StringVarP(&opts.format, "output", "o", "", "Output format (json|json-pretty|yaml|table|plain)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log matching decisions")

	cmd.SetOut(app.stdout())
	cmd.SetErr(app.stderr())

	cmd.AddCommand(
		newValidateCommand(app),
		newUsageCommand(app, opts),
		newMatchCommand(app, opts),
		newListCommand(app, opts),
		newKindsCommand(app, opts),
		newCacheCommand(app, opts),
		newConfigCommand(app, opts),
		newAuthCommand(app, opts),
		newHistoryCommand(app, opts),
		newVersionCommand(app, opts),
	)

	return cmd
}

func (o *sigOptions) formatOr(fallback string) string {
	if o.format == "" {
		return fallback
	}
	return o.format
}

func (o *sigOptions) logger(app *App) *slog.Logger {
	return logging.New(app.stderr(), logging.LevelFromEnv(""), o.verbose)
}

func (a *App) registry() *argtype.Registry {
	return argtype.NewRegistry(argtype.WithFs(a.fs()))
}

// loadSignatures reads a description file from the app filesystem.
func (a *App) loadSignatures(path string) (*signature.Table, error) {
	return signature.LoadFile(a.fs(), path, a.registry())
}

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that description files load",
		Long: `Load each description file and report the number of commands it
declares. Unknown argument kinds, malformed descriptors and duplicate
tags are reported with the file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				table, err := app.loadSignatures(path)
				if err != nil {
					fmt.Fprintf(app.stderr(), "%v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(app.stdout(), "%s: %d commands\n", path, table.Len())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func newUsageCommand(app *App, opts *sigOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <file> [words...]",
		Short: "Print the usage of commands",
		Long: `Print the usage line and help of every command in a description
file whose prefix starts with the given words.

Examples:
  cephsig usage descriptions.json
  cephsig usage descriptions.json osd pool`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := app.loadSignatures(args[0])
			if err != nil {
				return err
			}

			cmds := table.WithPrefix(args[1:]...)
			if len(cmds) == 0 {
				return fmt.Errorf("no commands start with %q", args[1:])
			}

			infos := executor.Describe(cmds)
			format := opts.formatOr("plain")
			if format == "plain" {
				return app.outputManager().Format(app.stdout(), executor.UsageLines(infos), format)
			}
			return app.outputManager().Format(app.stdout(), infos, format)
		},
	}
}

func newMatchCommand(app *App, opts *sigOptions) *cobra.Command {
	var threshold int
	var argFormat string

	cmd := &cobra.Command{
		Use:   "match <file> <token>...",
		Short: "Resolve tokens against a description file",
		Long: `Resolve a command line against a description file and print the
arguments that would be sent. When nothing matches, the best candidates
are printed with their usage.

Examples:
  cephsig match descriptions.json osd pool create rbd 128
  cephsig -v match descriptions.json osd tree`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := app.loadSignatures(args[0])
			if err != nil {
				return err
			}

			logger := opts.logger(app)
			r := resolver.New(table, resolver.WithLogger(logger))
			res, err := r.Resolve(args[1:], resolver.Options{Format: argFormat, Threshold: threshold})
			if err != nil {
				executor.ReportNoMatch(app.stderr(), err)
				return err
			}

			logger.Debug("matched", slog.String("tag", res.Command.Tag), slog.String("usage", res.Command.Sig.Concise()))
			return app.outputManager().Format(app.stdout(), map[string]any(res.Args), opts.formatOr("json-pretty"))
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 0, "Threshold merged into the arguments")
	cmd.Flags().StringVar(&argFormat, "format", "", "Format merged into the arguments")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newListCommand(app *App, opts *sigOptions) *cobra.Command {
	var filter, tpl string

	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the commands of a description file",
		Long: `List the commands of a description file.

--filter keeps the commands for which an expr expression is true, and
--template renders one line per command. Both see the fields Tag,
Prefix, Usage, Help and Args (the argument names).

Examples:
  cephsig list descriptions.json --filter 'Prefix startsWith "osd pool"'
  cephsig list descriptions.json --filter 'len(Args) > 2' --template '{Tag}: {{ Usage }}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := app.loadSignatures(args[0])
			if err != nil {
				return err
			}

			engine := output.NewTemplateEngine()
			var kept []*signature.Command
			var lines []string
			for _, c := range table.Commands() {
				row := commandRow(c)
				if filter != "" {
					ok, err := engine.Match(filter, row)
					if err != nil {
						return fmt.Errorf("invalid filter: %w", err)
					}
					if !ok {
						continue
					}
				}
				kept = append(kept, c)

				if tpl != "" {
					line, err := engine.Render(tpl, row)
					if err != nil {
						return fmt.Errorf("invalid template: %w", err)
					}
					lines = append(lines, line)
				}
			}

			if tpl != "" {
				return app.outputManager().Format(app.stdout(), lines, "plain")
			}
			return app.outputManager().Format(app.stdout(), executor.Describe(kept), opts.formatOr("table"))
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Boolean expr expression selecting commands")
	cmd.Flags().StringVar(&tpl, "template", "", "Line template, {field} or {{ expression }}")

	return cmd
}

// commandRow is the environment of --filter and --template.
func commandRow(c *signature.Command) map[string]any {
	var names []string
	for _, d := range c.Sig {
		if !d.IsPrefix() {
			names = append(names, d.Name)
		}
	}
	return map[string]any{
		"Tag":    c.Tag,
		"Prefix": c.Sig.Prefix(),
		"Usage":  c.Sig.Concise(),
		"Help":   c.Help,
		"Args":   names,
	}
}

func newKindsCommand(app *App, opts *sigOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the supported argument kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.outputManager().Format(app.stdout(), app.registry().Kinds(), opts.formatOr("plain"))
		},
	}
}
