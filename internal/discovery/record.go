// Package discovery implements the filesystem rendezvous between the
// controller and the engine-side agent: a small JSON record advertising the
// agent's port, and a controller-side poller that watches for it.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record file location, fixed and project-relative.
const (
	DirName  = ".scenebridge"
	FileName = "agent.json"
)

// DefaultStaleAfter is the freshness threshold: a record older than this
// with no active connection is considered abandoned.
const DefaultStaleAfter = 60 * time.Second

// Record is the on-disk rendezvous advertising a live agent. Written by the
// agent on startup, deleted on clean shutdown; either side purges a stale
// one.
type Record struct {
	Port      int     `json:"port"`
	PID       int     `json:"pid"`
	Version   string  `json:"version"`
	Channel   string  `json:"channel,omitempty"`
	Timestamp float64 `json:"timestamp"` // unix seconds
}

// Path returns the record path for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, DirName, FileName)
}

// Write persists the record atomically (tmp + rename), stamping it with the
// current time.
func Write(projectDir string, rec Record) error {
	rec.Timestamp = float64(time.Now().UnixMilli()) / 1000.0

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal discovery record: %w", err)
	}

	path := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create discovery directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write discovery record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename discovery record: %w", err)
	}
	return nil
}

// Read loads the record. A missing or unparseable file returns an error the
// caller is expected to absorb silently; the engine is simply not running.
func Read(projectDir string) (*Record, error) {
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("malformed discovery record: %w", err)
	}
	if rec.Port <= 0 {
		return nil, fmt.Errorf("malformed discovery record: missing port")
	}
	return &rec, nil
}

// Remove deletes the record. Missing files are not an error.
func Remove(projectDir string) error {
	if err := os.Remove(Path(projectDir)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Age returns how old the record's timestamp is.
func (r *Record) Age(now time.Time) time.Duration {
	written := time.Unix(0, int64(r.Timestamp*float64(time.Second)))
	return now.Sub(written)
}

// IsStale reports whether the record is abandoned: older than the freshness
// threshold, or advertising a process that is provably dead.
func (r *Record) IsStale(now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if r.Age(now) > staleAfter {
		return true
	}
	if r.PID > 0 && !processAlive(r.PID) {
		return true
	}
	return false
}

// URL returns the websocket connection URL the record advertises. The
// channel path segment only exists in newer protocol revisions.
func (r *Record) URL() string {
	if r.Channel != "" {
		return fmt.Sprintf("ws://127.0.0.1:%d/%s", r.Port, r.Channel)
	}
	return fmt.Sprintf("ws://127.0.0.1:%d", r.Port)
}

// HealthURL returns the plain HTTP health endpoint on the same port.
func (r *Record) HealthURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", r.Port)
}
