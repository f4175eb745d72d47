package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/cephforge/cephcli/pkg/config"
	"github.com/cephforge/cephcli/pkg/transport"
	"github.com/spf13/pflag"
)

// serverOnlyFormats are produced by the daemons but have no local formatter.
var serverOnlyFormats = map[string]bool{"xml": true, "xml-pretty": true}

// GlobalFlags are the cephcli flags. They must precede the command words.
type GlobalFlags struct {
	Config    string
	Cluster   string
	Format    string
	Threshold int
	Timeout   time.Duration
	Target    string
	InFile    string
	OutFile   string
	SigFile   string
	Refresh   bool
	DryRun    bool
	Describe  bool
	Verbose   bool
}

// AddFlags registers the flags on fs.
func (g *GlobalFlags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/cephcli/config.yaml)")
	fs.StringVar(&g.Cluster, "cluster", "", "Gateway URL, overrides cluster.url")
	fs.StringVarP(&g.Format, "format", "f", "", "Output format (json|json-pretty|xml|xml-pretty|yaml|table|plain)")
	fs.IntVar(&g.Threshold, "threshold", 0, "Threshold passed to commands that take one")
	fs.DurationVarP(&g.Timeout, "connect-timeout", "t", 0, "Command timeout, overrides defaults.timeout")
	fs.StringVar(&g.Target, "target", "", "Command target: mon, mon.<id>, osd.<id> or pg.<pgid>")
	fs.StringVarP(&g.InFile, "in-file", "i", "", "Send the contents of a file as input")
	fs.StringVarP(&g.OutFile, "out-file", "o", "", "Write the reply to a file ('-' for stdout)")
	fs.StringVar(&g.SigFile, "sig-file", "", "Read command descriptions from a file instead of the cluster")
	fs.BoolVar(&g.Refresh, "refresh", false, "Fetch command descriptions even if cached")
	fs.BoolVar(&g.DryRun, "dry-run", false, "Print the resolved command without sending it")
	fs.BoolVar(&g.Describe, "describe", false, "List the commands matching the given words")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "Log matching decisions")
}

// settings merges the flags over cfg.
type settings struct {
	url     string
	format  string
	timeout time.Duration
	target  transport.Target
}

func (g *GlobalFlags) resolve(cfg *config.Config) (*settings, error) {
	s := &settings{
		url:     cfg.Cluster.URL,
		format:  cfg.Defaults.Format,
		timeout: cfg.Defaults.Timeout,
	}
	if g.Cluster != "" {
		s.url = g.Cluster
	}
	if g.Format != "" {
		s.format = g.Format
	}
	if g.Timeout != 0 {
		s.timeout = g.Timeout
	}
	if g.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s", g.Timeout)
	}
	if !validFormat(s.format) {
		return nil, fmt.Errorf("unknown format %q", s.format)
	}

	target := cfg.Cluster.Target
	if g.Target != "" {
		target = g.Target
	}
	if target == "" {
		s.target = transport.DefaultTarget
		return s, nil
	}
	t, err := transport.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	s.target = t
	return s, nil
}

func validFormat(name string) bool {
	return name == "" || serverOnlyFormats[name] || slices.Contains(config.Formats, name)
}
