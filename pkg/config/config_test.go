package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CEPHCLI_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := NewLoader("cephcli", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "mon", cfg.Cluster.Target)
	assert.Equal(t, "cephcli", cfg.Cluster.KeyringService)
	assert.Equal(t, "plain", cfg.Defaults.Format)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Timeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
cluster:
  url: https://gw.example.com:8443
  user: client.admin
  target: osd.2
defaults:
  format: json-pretty
  timeout: 5s
cache:
  enabled: false
  ttl: 10m
log:
  level: debug
`)

	cfg, err := NewLoader("cephcli", path).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com:8443", cfg.Cluster.URL)
	assert.Equal(t, "client.admin", cfg.Cluster.User)
	assert.Equal(t, "osd.2", cfg.Cluster.Target)
	assert.Equal(t, "json-pretty", cfg.Defaults.Format)
	assert.Equal(t, 5*time.Second, cfg.Defaults.Timeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "cluster:\n  url: https://file.example.com\n")
	t.Setenv("CEPHCLI_CLUSTER_URL", "https://env.example.com")
	t.Setenv("CEPHCLI_DEFAULTS_FORMAT", "yaml")

	cfg, err := NewLoader("cephcli", path).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Cluster.URL)
	assert.Equal(t, "yaml", cfg.Defaults.Format)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := NewLoader("cephcli", filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
cluster:
  url: not a url
  target: rgw.1
defaults:
  format: xml
log:
  level: chatty
`)

	_, err := NewLoader("cephcli", path).Load()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	var fields []string
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"cluster.url", "cluster.target", "defaults.format", "log.level"}, fields)
}

func TestValidate_NegativeDurations(t *testing.T) {
	cfg := Default()
	cfg.Defaults.Timeout = -time.Second
	cfg.Cache.TTL = -time.Minute
	cfg.History.MaxEntries = -1

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults.timeout")
	assert.Contains(t, err.Error(), "cache.ttl")
	assert.Contains(t, err.Error(), "history.max_entries")

	assert.NoError(t, NewValidator().Validate(Default()))
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	l := NewLoader("cephcli", path)

	cfg := Default()
	cfg.Cluster.URL = "https://gw.example.com"
	cfg.Defaults.Timeout = 90 * time.Second
	require.NoError(t, l.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 1m30s")

	got, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com", got.Cluster.URL)
	assert.Equal(t, 90*time.Second, got.Defaults.Timeout)
	assert.Equal(t, time.Hour, got.Cache.TTL)
	assert.True(t, got.History.Enabled)
	assert.Equal(t, 1000, got.History.MaxEntries)
}

func TestLoader_Path(t *testing.T) {
	assert.Equal(t, "/etc/x.yaml", NewLoader("cephcli", "/etc/x.yaml").Path())

	t.Setenv("CEPHCLI_CONFIG", "/tmp/env.yaml")
	assert.Equal(t, "/tmp/env.yaml", NewLoader("cephcli", "").Path())
	assert.Equal(t, "CEPHCLI", NewLoader("cephcli", "").EnvPrefix())
}
