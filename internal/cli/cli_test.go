package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cephforge/cephcli/internal/executor"
	"github.com/cephforge/cephcli/pkg/auth"
	"github.com/cephforge/cephcli/pkg/progress"
	"github.com/cephforge/cephcli/pkg/resolver"
	"github.com/cephforge/cephcli/pkg/transport"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptions = `{
  "cmd001": {"sig": ["osd", "tree"], "help": "print OSD tree"},
  "cmd002": {"sig": ["osd", "pool", "create",
                     {"type": "CephPoolname", "name": "pool"},
                     {"type": "CephInt", "name": "pg_num", "range": "0"}],
             "help": "create pool"},
  "cmd003": {"sig": ["osd", "crush", "set-device-class",
                     {"type": "CephString", "name": "class"},
                     {"type": "CephString", "name": "ids", "n": "N"}],
             "help": "set device class"}
}`

type sentCommand struct {
	target transport.Target
	prefix string
	args   map[string]any
}

type fakeCluster struct {
	sent []sentCommand
}

func (f *fakeCluster) handle(target transport.Target, cmd []string) (*transport.Reply, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(cmd[0]), &args); err != nil {
		return nil, err
	}
	prefix, _ := args["prefix"].(string)
	f.sent = append(f.sent, sentCommand{target, prefix, args})
	if prefix == transport.DescriptionsPrefix {
		return &transport.Reply{Out: []byte(descriptions)}, nil
	}
	return &transport.Reply{Out: []byte("ok\n")}, nil
}

func (f *fakeCluster) MonCommand(_ context.Context, mon string, cmd []string, _ []byte) (*transport.Reply, error) {
	return f.handle(transport.Target{Kind: transport.TargetMon, ID: mon}, cmd)
}

func (f *fakeCluster) OSDCommand(_ context.Context, osd int, cmd []string, _ []byte) (*transport.Reply, error) {
	return f.handle(transport.Target{Kind: transport.TargetOSD, ID: strconv.Itoa(osd)}, cmd)
}

func (f *fakeCluster) PGCommand(_ context.Context, pgid string, cmd []string, _ []byte) (*transport.Reply, error) {
	return f.handle(transport.Target{Kind: transport.TargetPG, ID: pgid}, cmd)
}

type testApp struct {
	*App
	cluster *fakeCluster
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	config  string
}

func newTestApp(t *testing.T, configBody string) *testApp {
	t.Helper()
	t.Setenv(auth.DefaultEnvVar, "")
	t.Setenv("CEPHCLI_LOG_LEVEL", "")

	config := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(configBody), 0o600))

	ta := &testApp{
		cluster: &fakeCluster{},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		config:  config,
	}
	ta.App = &App{
		Name:     DefaultAppName,
		Version:  "test",
		Stdout:   ta.stdout,
		Stderr:   ta.stderr,
		Fs:       afero.NewMemMapFs(),
		Cluster:  ta.cluster,
		Keys:     auth.NewMemoryStore(),
		Progress: progress.NewNoop(),
		CacheDir: "/cache",
		StateDir: "/state",
	}
	require.NoError(t, afero.WriteFile(ta.Fs, "/sigs.json", []byte(descriptions), 0o644))
	return ta
}

func run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func (ta *testApp) ceph(args ...string) error {
	return run(NewCephCommand(ta.App), append([]string{"--config", ta.config}, args...)...)
}

func (ta *testApp) sig(args ...string) error {
	return run(NewSigCommand(ta.App), append([]string{"--config", ta.config}, args...)...)
}

func TestCeph_DryRunFromSigFile(t *testing.T) {
	ta := newTestApp(t, "")
	ta.Cluster = nil

	err := ta.ceph("--sig-file", "/sigs.json", "--dry-run", "-f", "json", "osd", "pool", "create", "rbd", "64")
	require.NoError(t, err)

	var args map[string]any
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &args))
	assert.Equal(t, "osd pool create", args["prefix"])
	assert.Equal(t, "rbd", args["pool"])
	assert.EqualValues(t, 64, args["pg_num"])
}

func TestCeph_SendsThroughCluster(t *testing.T) {
	ta := newTestApp(t, "cluster:\n  url: http://gw.example:8003\n")

	require.NoError(t, ta.ceph("osd", "tree"))
	require.Len(t, ta.cluster.sent, 2)
	assert.Equal(t, transport.DescriptionsPrefix, ta.cluster.sent[0].prefix)
	assert.Equal(t, "osd tree", ta.cluster.sent[1].prefix)
	assert.Equal(t, "ok\n", ta.stdout.String())

	// descriptions come from the cache the second time
	require.NoError(t, ta.ceph("osd", "tree"))
	assert.Len(t, ta.cluster.sent, 3)

	require.NoError(t, ta.ceph("--refresh", "osd", "tree"))
	assert.Len(t, ta.cluster.sent, 5)
}

func TestCeph_TargetAndFormat(t *testing.T) {
	ta := newTestApp(t, "cluster:\n  target: mon.a\n")

	require.NoError(t, ta.ceph("--target", "osd.1", "-f", "json-pretty", "osd", "tree"))
	last := ta.cluster.sent[len(ta.cluster.sent)-1]
	assert.Equal(t, transport.Target{Kind: transport.TargetOSD, ID: "1"}, last.target)
	assert.Equal(t, "json-pretty", last.args["format"])

	require.NoError(t, ta.ceph("osd", "tree"))
	last = ta.cluster.sent[len(ta.cluster.sent)-1]
	assert.Equal(t, transport.Target{Kind: transport.TargetMon, ID: "a"}, last.target)
	assert.NotContains(t, last.args, "format")
}

func TestCeph_FlagErrors(t *testing.T) {
	ta := newTestApp(t, "")

	assert.Error(t, ta.ceph("-f", "csv", "osd", "tree"))
	assert.Error(t, ta.ceph("--target", "osd.x", "osd", "tree"))
	assert.Empty(t, ta.cluster.sent)
}

func TestCeph_NoMatch(t *testing.T) {
	ta := newTestApp(t, "")

	err := ta.ceph("osd", "pool", "create", "rbd", "many")
	require.Error(t, err)
	assert.Equal(t, exitInvalid, ExitCode(err))
	assert.Contains(t, ta.stderr.String(), "osd pool create <poolname> <int[0-]> :  create pool")
}

func TestCeph_Describe(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.ceph("--sig-file", "/sigs.json", "--describe", "osd", "crush"))
	assert.Contains(t, ta.stdout.String(), "osd crush set-device-class <class> <ids> [<ids>...]")
	assert.Contains(t, ta.stdout.String(), "set device class")
}

func TestCeph_NoTokensShowsHelp(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.ceph())
	assert.Contains(t, ta.stdout.String(), "Usage:")
	assert.Empty(t, ta.cluster.sent)
}

func TestSig_Validate(t *testing.T) {
	ta := newTestApp(t, "")
	require.NoError(t, afero.WriteFile(ta.Fs, "/bad.json", []byte(`{"cmd001": {"sig": [{"type": "CephNope", "name": "x"}]}}`), 0o644))

	require.NoError(t, ta.sig("validate", "/sigs.json"))
	assert.Equal(t, "/sigs.json: 3 commands\n", ta.stdout.String())

	err := ta.sig("validate", "/sigs.json", "/bad.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, ta.stderr.String(), "/bad.json")
}

func TestSig_Usage(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("usage", "/sigs.json", "osd", "pool"))
	assert.Equal(t, "osd pool create <poolname> <int[0-]>\n    create pool\n", ta.stdout.String())

	assert.Error(t, ta.sig("usage", "/sigs.json", "mds"))
}

func TestSig_Match(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("match", "--threshold", "3", "/sigs.json", "osd", "crush", "set-device-class", "ssd", "osd.0", "osd.1"))
	var args map[string]any
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &args))
	assert.Equal(t, "osd crush set-device-class", args["prefix"])
	assert.Equal(t, []any{"osd.0", "osd.1"}, args["ids"])
	assert.EqualValues(t, 3, args["threshold"])

	err := ta.sig("match", "/sigs.json", "osd", "pool", "create", "rbd")
	assert.ErrorIs(t, err, resolver.ErrNoMatch)
	assert.Contains(t, ta.stderr.String(), "create pool")
}

func TestSig_ListFilterAndTemplate(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("list", "/sigs.json",
		"--filter", `Prefix startsWith "osd pool"`,
		"--template", "{Tag}: {{ len(Args) }}"))
	assert.Equal(t, "cmd002: 2\n", ta.stdout.String())

	ta.stdout.Reset()
	require.NoError(t, ta.sig("-o", "json", "list", "/sigs.json", "--filter", "len(Args) == 0"))
	var infos []executor.CommandInfo
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "cmd001", infos[0].Tag)

	assert.Error(t, ta.sig("list", "/sigs.json", "--filter", "Tag"))
}

func TestSig_Kinds(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("kinds"))
	assert.Contains(t, ta.stdout.String(), "CephInt\n")
	assert.Contains(t, ta.stdout.String(), "CephPgid\n")
}

func TestSig_Config(t *testing.T) {
	ta := newTestApp(t, "defaults:\n  format: json\n")

	require.NoError(t, ta.sig("config", "get", "defaults.format"))
	assert.Equal(t, "json\n", ta.stdout.String())

	require.NoError(t, ta.sig("config", "set", "cache.ttl", "30m"))
	ta.stdout.Reset()
	require.NoError(t, ta.sig("config", "get", "cache.ttl"))
	assert.Equal(t, "30m0s\n", ta.stdout.String())

	assert.Error(t, ta.sig("config", "set", "defaults.format", "csv"))
	assert.Error(t, ta.sig("config", "set", "cache.ttl", "soon"))
	assert.Error(t, ta.sig("config", "get", "nope"))

	ta.stdout.Reset()
	require.NoError(t, ta.sig("config", "path"))
	assert.Equal(t, ta.config+"\n", ta.stdout.String())

	assert.Error(t, ta.sig("config", "init"))
	require.NoError(t, ta.sig("config", "init", "--force"))
	data, err := os.ReadFile(ta.config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "format: plain")
}

func TestSig_Auth(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("auth", "status"))
	assert.Contains(t, ta.stdout.String(), "not configured")

	require.NoError(t, ta.sig("auth", "login", "--key", "s3cr3t"))
	key, err := ta.Keys.LoadKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", key)

	ta.stdout.Reset()
	require.NoError(t, ta.sig("auth", "status"))
	assert.Equal(t, "API key: *** (stored in keyring)\n", ta.stdout.String())

	t.Setenv(auth.DefaultEnvVar, "env-key-0123456789")
	ta.stdout.Reset()
	require.NoError(t, ta.sig("auth", "status"))
	assert.Equal(t, "API key: env-*** (from "+auth.DefaultEnvVar+")\n", ta.stdout.String())
	t.Setenv(auth.DefaultEnvVar, "")

	require.NoError(t, ta.sig("auth", "logout"))
	_, err = ta.Keys.LoadKey(context.Background())
	assert.ErrorIs(t, err, auth.ErrKeyNotFound)
}

func TestSig_AuthLoginFromStdin(t *testing.T) {
	ta := newTestApp(t, "")

	cmd := NewSigCommand(ta.App)
	cmd.SetIn(strings.NewReader("from-stdin\n"))
	require.NoError(t, run(cmd, "--config", ta.config, "auth", "login"))

	key, err := ta.Keys.LoadKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", key)
}

func TestSig_Cache(t *testing.T) {
	ta := newTestApp(t, "cluster:\n  url: http://gw.example:8003\n")
	require.NoError(t, ta.ceph("osd", "tree"))

	ta.stdout.Reset()
	require.NoError(t, ta.sig("cache", "info"))
	assert.Contains(t, ta.stdout.String(), "entries: 1")

	require.NoError(t, ta.sig("cache", "clear"))
	ta.stdout.Reset()
	require.NoError(t, ta.sig("cache", "info"))
	assert.Contains(t, ta.stdout.String(), "entries: 0")
}

func TestSig_History(t *testing.T) {
	const key = "AQBWGaBfAAAAABAA2yH0HvEWLyXX0Xs9fHa4hw=="
	ta := newTestApp(t, "cluster:\n  url: http://gw.example:8003\n")

	require.NoError(t, ta.ceph("osd", "tree"))
	require.Error(t, ta.ceph("osd", "pool", "create", "rbd", "many"))
	require.NoError(t, ta.ceph("osd", "crush", "set-device-class", key, "1"))
	require.NoError(t, ta.ceph("--sig-file", "/sigs.json", "--dry-run", "osd", "tree"))

	ta.stdout.Reset()
	require.NoError(t, ta.sig("-o", "json", "history"))
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "osd tree", entries[0]["command"])
	assert.EqualValues(t, exitInvalid, entries[1]["exit_code"])
	assert.Equal(t, "osd crush set-device-class AQBW*** 1", entries[2]["command"])
	assert.NotContains(t, ta.stdout.String(), key)

	ta.stdout.Reset()
	require.NoError(t, ta.sig("-o", "plain", "history", "--failed"))
	assert.Contains(t, ta.stdout.String(), "osd pool create rbd many")
	assert.NotContains(t, ta.stdout.String(), "osd tree")

	require.NoError(t, ta.sig("history", "clear"))
	ta.stdout.Reset()
	require.NoError(t, ta.sig("history"))
	assert.Equal(t, "No history\n", ta.stdout.String())
}

func TestCeph_HistoryDisabled(t *testing.T) {
	ta := newTestApp(t, "history:\n  enabled: false\n")

	require.NoError(t, ta.ceph("osd", "tree"))
	exists, err := afero.Exists(ta.Fs, "/state/history.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSig_Version(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.sig("version"))
	assert.Contains(t, ta.stdout.String(), "version: test")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&executor.StatusError{Status: -2}))
	assert.Equal(t, exitInvalid, ExitCode(resolver.ErrNoTokens))

	var buf bytes.Buffer
	code := Run(func() error { return errors.New("boom") }, &buf)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: boom\n", buf.String())
}
