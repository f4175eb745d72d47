// Package cache keeps command-description tables fetched from a cluster.
//
// Each entry is a JSON file named by the SHA-256 of its key (usually the
// cluster URL plus target) in the XDG cache directory. Entries carry the
// time they were fetched; a TTL decides whether they are still usable.
//
//	c, _ := cache.New("cephcli")
//	data, _, err := c.Fetch(ctx, key, 0, false, func(ctx context.Context) ([]byte, error) {
//	    return transport.FetchDescriptions(ctx, cluster, target, timeout)
//	})
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = time.Hour

// ErrCacheMiss is returned when a cache entry is not found.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached description table.
type Entry struct {
	// Data is the raw description JSON.
	Data []byte `json:"data"`
	// FetchedAt is when the table was fetched.
	FetchedAt time.Time `json:"fetched_at"`
	// Source names where the table came from.
	Source string `json:"source"`
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries int
	TotalSize    int64
}

// Cache stores description tables on disk.
type Cache struct {
	// BaseDir is the cache directory.
	BaseDir string
	// DefaultTTL applies when a caller passes a zero TTL.
	DefaultTTL time.Duration

	fs afero.Fs
}

// Option configures a Cache.
type Option func(*Cache)

// WithFs stores entries on fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) {
		c.fs = fs
	}
}

// WithDir overrides the XDG cache directory.
func WithDir(dir string) Option {
	return func(c *Cache) {
		c.BaseDir = dir
	}
}

// WithTTL sets the default TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.DefaultTTL = ttl
		}
	}
}

// Dir returns the XDG cache directory for appName.
func Dir(appName string) string {
	return filepath.Join(xdg.CacheHome, appName)
}

// New creates the cache directory for appName and returns a cache on it.
func New(appName string, opts ...Option) (*Cache, error) {
	c := &Cache{
		BaseDir:    Dir(appName),
		DefaultTTL: DefaultTTL,
		fs:         afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.fs.MkdirAll(c.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return c, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(_ context.Context, key string) (*Entry, error) {
	data, err := afero.ReadFile(c.fs, c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return &entry, nil
}

// Set stores entry under key.
func (c *Cache) Set(_ context.Context, key string, entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Invalidate removes the entry stored under key. A missing entry is not an
// error.
func (c *Cache) Invalidate(_ context.Context, key string) error {
	if err := c.fs.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) error {
	infos, err := afero.ReadDir(c.fs, c.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != ".json" {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.BaseDir, info.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove cache file %s: %w", info.Name(), err)
		}
	}
	return nil
}

// Stats counts the entries and their size on disk.
func (c *Cache) Stats(_ context.Context) (*Stats, error) {
	infos, err := afero.ReadDir(c.fs, c.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	stats := &Stats{}
	for _, info := range infos {
		if !info.IsDir() && filepath.Ext(info.Name()) == ".json" {
			stats.TotalEntries++
			stats.TotalSize += info.Size()
		}
	}
	return stats, nil
}

// IsValid reports whether entry is younger than ttl, or than DefaultTTL
// when ttl is zero.
func (c *Cache) IsValid(entry *Entry, ttl time.Duration) bool {
	if entry == nil {
		return false
	}
	if ttl == 0 {
		ttl = c.DefaultTTL
	}
	return time.Since(entry.FetchedAt) < ttl
}

// FetchFunc retrieves a fresh description table.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetch returns the table cached under key when it is still valid, or calls
// fetch and caches its result. With refresh set the cache is bypassed. When
// fetch fails and an expired entry exists, the expired data is returned
// along with stale=true. A failure to store fresh data is returned together
// with the data.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, refresh bool, fetch FetchFunc) (data []byte, stale bool, err error) {
	// an unreadable entry is treated like a miss
	cached, _ := c.Get(ctx, key)
	if !refresh && c.IsValid(cached, ttl) {
		return cached.Data, false, nil
	}

	data, err = fetch(ctx)
	if err != nil {
		if cached != nil {
			return cached.Data, true, nil
		}
		return nil, false, err
	}

	entry := &Entry{Data: data, FetchedAt: time.Now(), Source: key}
	if err := c.Set(ctx, key, entry); err != nil {
		return data, false, err
	}
	return data, false, nil
}

func (c *Cache) path(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.BaseDir, hex.EncodeToString(hash[:])+".json")
}
