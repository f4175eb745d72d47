// Package executor runs one command line against a cluster.
//
// # Execution Flow
//
//  1. Load the command descriptions (a local file, the cache, or the cluster)
//  2. Resolve the tokens to one command signature
//  3. Print the candidates (--describe) or the arguments (--dry-run), or
//  4. Send the command to its target with a spinner running
//  5. Write the reply to stdout or the output file
//
// Formats the daemons do not produce (yaml, table) are requested as JSON
// and rendered locally.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cephforge/cephcli/pkg/argtype"
	"github.com/cephforge/cephcli/pkg/cache"
	"github.com/cephforge/cephcli/pkg/matcher"
	"github.com/cephforge/cephcli/pkg/output"
	"github.com/cephforge/cephcli/pkg/progress"
	"github.com/cephforge/cephcli/pkg/resolver"
	"github.com/cephforge/cephcli/pkg/secrets"
	"github.com/cephforge/cephcli/pkg/signature"
	"github.com/cephforge/cephcli/pkg/transport"
	"github.com/spf13/afero"
)

// ErrNoCluster is returned when descriptions or commands need a cluster
// and none is configured.
var ErrNoCluster = errors.New("no cluster configured")

// clientFormats are rendered locally from a JSON reply.
var clientFormats = map[string]bool{"yaml": true, "table": true}

// Executor resolves and sends commands.
type Executor struct {
	cluster  transport.Cluster
	cache    *cache.Cache
	cacheKey string
	cacheTTL time.Duration
	registry *argtype.Registry
	output   *output.Manager
	progress progress.Progress
	logger   *slog.Logger
	fs       afero.Fs
	stdout   io.Writer
	stderr   io.Writer
}

// Config configures the executor. Only Output is required.
type Config struct {
	Cluster transport.Cluster
	// Cache holds fetched descriptions under CacheKey; nil disables it.
	Cache    *cache.Cache
	CacheKey string
	CacheTTL time.Duration
	Output   *output.Manager
	Progress progress.Progress
	Logger   *slog.Logger
	// Fs serves --sig-file, --in-file, --out-file and the path types.
	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
}

// Request is one invocation.
type Request struct {
	Tokens    []string
	Format    string
	Threshold int
	Target    transport.Target
	Timeout   time.Duration
	InFile    string
	OutFile   string
	SigFile   string
	Refresh   bool
	DryRun    bool
	Describe  bool
}

// StatusError is a non-zero status returned by the cluster.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("command failed with status %d", e.Status)
	}
	return fmt.Sprintf("command failed with status %d: %s", e.Status, e.Message)
}

// ExitCode maps the status to a process exit code.
func (e *StatusError) ExitCode() int {
	code := e.Status
	if code < 0 {
		code = -code
	}
	if code == 0 || code > 255 {
		return 1
	}
	return code
}

// CommandInfo describes one command for --describe and listings.
type CommandInfo struct {
	Tag   string `json:"tag"`
	Usage string `json:"usage"`
	Help  string `json:"help"`
}

// NewExecutor creates a new executor.
func NewExecutor(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("executor config is required")
	}
	if cfg.Output == nil {
		return nil, fmt.Errorf("output manager is required")
	}

	e := &Executor{
		cluster:  cfg.Cluster,
		cache:    cfg.Cache,
		cacheKey: cfg.CacheKey,
		cacheTTL: cfg.CacheTTL,
		output:   cfg.Output,
		progress: cfg.Progress,
		logger:   cfg.Logger,
		fs:       cfg.Fs,
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
	}
	if e.progress == nil {
		e.progress = progress.NewNoop()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	e.registry = argtype.NewRegistry(argtype.WithFs(e.fs))

	return e, nil
}

// Execute runs req.
func (e *Executor) Execute(ctx context.Context, req *Request) error {
	table, err := e.LoadTable(ctx, req)
	if err != nil {
		return err
	}
	r := resolver.New(table, resolver.WithLogger(e.logger))

	if req.Describe {
		return e.describe(r, req)
	}

	res, err := r.Resolve(req.Tokens, resolver.Options{
		Format:    serverFormat(req.Format),
		Threshold: req.Threshold,
	})
	if err != nil {
		ReportNoMatch(e.stderr, err)
		return err
	}
	e.logger.Debug("resolved command",
		slog.String("tag", res.Command.Tag),
		slog.Any("args", secrets.Default().MaskArgs(res.Args)))

	if req.DryRun {
		return e.output.Format(e.stdout, map[string]any(res.Args), e.localFormat(req.Format, "json-pretty"))
	}

	return e.send(ctx, req, res)
}

// LoadTable loads the description table for req: from SigFile when set,
// otherwise from the cluster through the cache.
func (e *Executor) LoadTable(ctx context.Context, req *Request) (*signature.Table, error) {
	if req.SigFile != "" {
		return signature.LoadFile(e.fs, req.SigFile, e.registry)
	}

	if e.cluster == nil {
		return nil, fmt.Errorf("%w: set cluster.url or pass --sig-file", ErrNoCluster)
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		return transport.FetchDescriptions(ctx, e.cluster, req.Target, req.Timeout)
	}

	var data []byte
	var err error
	key := e.cacheKey + "|" + req.Target.String()
	if e.cache == nil {
		data, err = fetch(ctx)
	} else {
		var stale bool
		data, stale, err = e.cache.Fetch(ctx, key, e.cacheTTL, req.Refresh, fetch)
		if stale {
			e.logger.Warn("cluster unreachable, using expired command descriptions", slog.String("target", req.Target.String()))
		}
		if err != nil && data != nil {
			e.logger.Warn("failed to cache command descriptions", slog.String("error", err.Error()))
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch command descriptions: %w", err)
	}

	table, err := signature.Load(data, e.registry)
	if err != nil {
		if e.cache != nil {
			_ = e.cache.Invalidate(ctx, key)
		}
		return nil, err
	}
	return table, nil
}

func (e *Executor) describe(r *resolver.Resolver, req *Request) error {
	cmds := r.Describe(req.Tokens)
	if len(cmds) == 0 {
		return fmt.Errorf("no commands match %q", strings.Join(req.Tokens, " "))
	}

	infos := Describe(cmds)
	format := e.localFormat(req.Format, "plain")
	if format == "plain" {
		return e.output.Format(e.stdout, UsageLines(infos), format)
	}
	return e.output.Format(e.stdout, infos, format)
}

// Describe turns commands into CommandInfo rows.
func Describe(cmds []*signature.Command) []CommandInfo {
	infos := make([]CommandInfo, len(cmds))
	for i, c := range cmds {
		infos[i] = CommandInfo{Tag: c.Tag, Usage: c.Sig.Concise(), Help: c.Help}
	}
	return infos
}

// UsageLines renders infos as a usage line followed by indented help.
func UsageLines(infos []CommandInfo) []string {
	lines := make([]string, len(infos))
	for i, info := range infos {
		lines[i] = fmt.Sprintf("%s\n    %s", info.Usage, info.Help)
	}
	return lines
}

// ReportNoMatch writes the first validation failure, what parsed before
// it, and the candidate usage lines of a *resolver.NoMatchError to w.
// Other errors are ignored.
func ReportNoMatch(w io.Writer, err error) {
	var nm *resolver.NoMatchError
	if !errors.As(err, &nm) {
		return
	}

	if len(nm.Failures) > 0 {
		f := nm.Failures[0]
		fmt.Fprintf(w, "Invalid command: %v\n", f.Err)
		if parsed := matcher.ValidatePartial(nm.Tokens, f.Command.Sig); len(parsed) > 0 {
			fmt.Fprintf(w, "Matched so far: %s\n", describeArgs(parsed))
		}
	}
	for _, c := range nm.Candidates {
		fmt.Fprintf(w, "%s :  %s\n", c.Sig.Concise(), c.Help)
	}
}

// describeArgs renders parsed arguments as the prefix followed by sorted
// name=value pairs, with secrets masked.
func describeArgs(args matcher.Args) string {
	masked := secrets.Default().MaskArgs(args)
	parts := []string{args.Prefix()}
	for _, name := range slices.Sorted(maps.Keys(masked)) {
		if name == signature.PrefixName {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, masked[name]))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (e *Executor) send(ctx context.Context, req *Request, res *resolver.Resolution) error {
	if e.cluster == nil {
		return ErrNoCluster
	}

	var inbuf []byte
	if req.InFile != "" {
		var err error
		inbuf, err = afero.ReadFile(e.fs, req.InFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
	}

	prefix := res.Args.Prefix()
	_ = e.progress.Start(fmt.Sprintf("%s → %s", prefix, req.Target))
	reply, err := transport.JSONCommand(ctx, e.cluster, req.Target, "", res.Args, inbuf, req.Timeout)
	if err != nil {
		_ = e.progress.Failure(prefix)
		return err
	}
	_ = e.progress.Stop()

	if reply.Message != "" {
		fmt.Fprintln(e.stderr, reply.Message)
	}
	if reply.Status != 0 {
		return &StatusError{Status: reply.Status, Message: reply.Message}
	}

	return e.writeReply(req, reply.Out)
}

func (e *Executor) writeReply(req *Request, out []byte) error {
	w := e.stdout
	if req.OutFile != "" && req.OutFile != "-" {
		f, err := e.fs.OpenFile(req.OutFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if clientFormats[req.Format] && len(out) > 0 {
		return e.output.Format(w, out, req.Format)
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// serverFormat is the format asked of the daemon for a client format.
func serverFormat(format string) string {
	switch {
	case format == "" || format == "plain":
		return ""
	case clientFormats[format]:
		return "json"
	}
	return format
}

// localFormat returns format when a local formatter exists for it.
func (e *Executor) localFormat(format, fallback string) string {
	if format == "" {
		return fallback
	}
	if _, err := e.output.GetFormatter(format); err != nil {
		return fallback
	}
	return format
}
