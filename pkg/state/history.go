// Package state keeps per-user client state under $XDG_STATE_HOME.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const (
	// DefaultMaxHistoryEntries bounds the history file.
	DefaultMaxHistoryEntries = 1000

	// HistoryVersion is the current history file format version.
	HistoryVersion = "1"
)

// HistoryEntry is one command sent to a cluster.
type HistoryEntry struct {
	ID         int       `json:"id"`
	Command    string    `json:"command"`
	Target     string    `json:"target"`
	Timestamp  time.Time `json:"timestamp"`
	ExitCode   int       `json:"exit_code"`
	DurationMS int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
}

type historyFile struct {
	Version string          `json:"version"`
	History []*HistoryEntry `json:"history"`
}

// History is the command history of one client.
type History struct {
	mu         sync.RWMutex
	fs         afero.Fs
	path       string
	entries    []*HistoryEntry
	maxEntries int
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryFs sets the filesystem holding the history file.
func WithHistoryFs(fs afero.Fs) HistoryOption {
	return func(h *History) {
		h.fs = fs
	}
}

// WithHistoryDir places the history file in dir.
func WithHistoryDir(dir string) HistoryOption {
	return func(h *History) {
		h.path = filepath.Join(dir, "history.json")
	}
}

// WithMaxEntries bounds the number of entries kept.
func WithMaxEntries(n int) HistoryOption {
	return func(h *History) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// Dir returns the XDG state directory for appName.
func Dir(appName string) string {
	return filepath.Join(xdg.StateHome, appName)
}

// OpenHistory loads the history of appName. A missing file is an empty
// history.
func OpenHistory(appName string, opts ...HistoryOption) (*History, error) {
	h := &History{
		fs:         afero.NewOsFs(),
		path:       filepath.Join(Dir(appName), "history.json"),
		maxEntries: DefaultMaxHistoryEntries,
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return h, nil
}

func (h *History) load() error {
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse history file: %w", err)
	}
	h.entries = file.History
	h.trim()
	return nil
}

// Save writes the history file, replacing it atomically.
func (h *History) Save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := h.fs.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(historyFile{Version: HistoryVersion, History: h.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp := h.path + ".tmp"
	if err := afero.WriteFile(h.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := h.fs.Rename(tmp, h.path); err != nil {
		_ = h.fs.Remove(tmp)
		return fmt.Errorf("failed to save history file: %w", err)
	}
	return nil
}

// Add appends entry, assigning its ID and success flag, and drops the
// oldest entries beyond the limit.
func (h *History) Add(entry *HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry.ID = 1
	if n := len(h.entries); n > 0 {
		entry.ID = h.entries[n-1].ID + 1
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Success = entry.ExitCode == 0

	h.entries = append(h.entries, entry)
	h.trim()
}

func (h *History) trim() {
	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[len(h.entries)-h.maxEntries:]
	}
}

// Record adds one executed command and saves the file.
func (h *History) Record(command, target string, exitCode int, duration time.Duration) error {
	h.Add(&HistoryEntry{
		Command:    command,
		Target:     target,
		ExitCode:   exitCode,
		DurationMS: duration.Milliseconds(),
	})
	return h.Save()
}

// Recent returns up to n of the newest entries, oldest first. n <= 0
// returns everything.
func (h *History) Recent(n int) []*HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]*HistoryEntry, n)
	for i, e := range h.entries[len(h.entries)-n:] {
		c := *e
		out[i] = &c
	}
	return out
}

// Filter returns copies of the entries for which fn is true.
func (h *History) Filter(fn func(*HistoryEntry) bool) []*HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*HistoryEntry
	for _, e := range h.entries {
		if fn(e) {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

// Search returns the entries whose command contains pattern, ignoring case.
func (h *History) Search(pattern string) []*HistoryEntry {
	pattern = strings.ToLower(pattern)
	return h.Filter(func(e *HistoryEntry) bool {
		return strings.Contains(strings.ToLower(e.Command), pattern)
	})
}

// Failed returns the entries with a non-zero exit code.
func (h *History) Failed() []*HistoryEntry {
	return h.Filter(func(e *HistoryEntry) bool { return !e.Success })
}

// Clear removes every entry. Call Save to persist.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Path returns the history file path.
func (h *History) Path() string {
	return h.path
}
