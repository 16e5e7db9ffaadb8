// Package project opens a sync project: environment, config, index, ignore
// patterns, and cache, plus an advisory lock for mutating commands so two
// pushes cannot interleave index writes.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/livyn-inc/cursor-to-notion/internal/cache"
	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

// Session is one opened project.
type Session struct {
	Dir    string
	Config *config.Project
	Index  *index.Store
	Ignore *index.Matcher
	Cache  *cache.Cache

	lock *flock.Flock
}

// Options for Open.
type Options struct {
	// Write acquires the project lock and makes SaveAll meaningful.
	Write bool
	// TolerateCorruptIndex lets read-only commands (status) open a project
	// whose index failed to parse.
	TolerateCorruptIndex bool
}

// Open loads a project from dir. The .env chain is loaded first so config
// and token resolution see the project's environment.
func Open(dir string, opts Options) (*Session, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", abs)
	}

	config.LoadEnv(abs)

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, err
	}
	idx, err := index.Load(abs)
	if err != nil {
		if !errors.Is(err, index.ErrCorrupt) || !opts.TolerateCorruptIndex {
			return nil, err
		}
	}
	ign, err := index.LoadMatcher(abs)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Dir:    abs,
		Config: cfg,
		Index:  idx,
		Ignore: ign,
		Cache:  cache.Load(abs),
	}

	if opts.Write {
		metaDir := filepath.Join(abs, index.MetaDirName)
		if err := os.MkdirAll(metaDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", metaDir, err)
		}
		s.lock = flock.New(filepath.Join(metaDir, "lock"))
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("locking project: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("another command is already running in %s", abs)
		}
	}
	return s, nil
}

// SaveAll flushes index and cache. Call once at command end; the engines
// only mutate in-memory state.
func (s *Session) SaveAll() error {
	if err := s.Index.Save(); err != nil {
		return err
	}
	return s.Cache.Save()
}

// Close releases the project lock.
func (s *Session) Close() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}
