// Package cache persists cheap-to-recompute state under .c2n/cache:
// memoized directory listings keyed by mtime, and a snapshot of the remote
// page tree so repeated pulls do not re-walk an unchanged workspace.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

const cacheFile = "cache"

// SnapshotTTL is how long a remote tree snapshot stays usable.
const SnapshotTTL = 5 * time.Minute

// DirListing memoizes one directory's entries, valid while the directory
// mtime is unchanged.
type DirListing struct {
	MtimeNS int64    `json:"mtime_ns"`
	Dirs    []string `json:"dirs"`
	Files   []string `json:"files"`
}

// RemotePage is one node of the remote tree snapshot.
type RemotePage struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	ParentID       string   `json:"parent_id"`
	ChildIDs       []string `json:"child_ids"`
	LastEditedTime string   `json:"last_edited_time"`
	IsFolder       bool     `json:"is_folder"`
}

// Snapshot is the cached remote tree.
type Snapshot struct {
	FetchedAt string                 `json:"fetched_at"`
	RootID    string                 `json:"root_id"`
	Pages     map[string]*RemotePage `json:"pages"`
}

// Cache is the .c2n/cache document plus a handle back to its file.
type Cache struct {
	Version  int                    `json:"version"`
	Listings map[string]*DirListing `json:"dir_listings"`
	Remote   *Snapshot              `json:"remote_tree_snapshot,omitempty"`

	projectDir string
	dirty      bool
}

func path(projectDir string) string {
	return filepath.Join(projectDir, index.MetaDirName, cacheFile)
}

// Load reads the cache, returning an empty one when the file is missing or
// unreadable. The cache is disposable, so parse failures are not fatal.
func Load(projectDir string) *Cache {
	c := &Cache{
		Version:    1,
		Listings:   make(map[string]*DirListing),
		projectDir: projectDir,
	}
	data, err := os.ReadFile(path(projectDir))
	if err != nil {
		return c
	}
	var loaded Cache
	if err := json.Unmarshal(data, &loaded); err != nil {
		return c
	}
	if loaded.Listings != nil {
		c.Listings = loaded.Listings
	}
	c.Remote = loaded.Remote
	return c
}

// Save persists the cache if anything changed.
func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}
	dir := filepath.Join(c.projectDir, index.MetaDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(path(c.projectDir), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	c.dirty = false
	return nil
}

// ReadDir lists a directory through the cache. The memoized listing is
// reused while the directory's mtime matches; entries come back sorted with
// subdirectories and files separated.
func (c *Cache) ReadDir(absDir string) (dirs, files []string, err error) {
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", absDir, err)
	}
	mtime := info.ModTime().UnixNano()
	if l, ok := c.Listings[absDir]; ok && l.MtimeNS == mtime {
		return l.Dirs, l.Files, nil
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", absDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	c.Listings[absDir] = &DirListing{MtimeNS: mtime, Dirs: dirs, Files: files}
	c.dirty = true
	return dirs, files, nil
}

// RemoteSnapshot returns the cached tree when present and younger than
// SnapshotTTL, else nil.
func (c *Cache) RemoteSnapshot(rootID string, now time.Time) *Snapshot {
	if c.Remote == nil || c.Remote.RootID != rootID {
		return nil
	}
	fetched, err := time.Parse(time.RFC3339, c.Remote.FetchedAt)
	if err != nil {
		return nil
	}
	if now.Sub(fetched) > SnapshotTTL {
		return nil
	}
	return c.Remote
}

// SetRemoteSnapshot replaces the cached tree.
func (c *Cache) SetRemoteSnapshot(snap *Snapshot) {
	c.Remote = snap
	c.dirty = true
}

// InvalidateRemote drops the cached tree, forcing the next pull to re-walk.
func (c *Cache) InvalidateRemote() {
	if c.Remote != nil {
		c.Remote = nil
		c.dirty = true
	}
}
