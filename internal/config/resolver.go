package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/livyn-inc/cursor-to-notion/internal/ident"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

// ErrNoRootURL means no root page URL could be resolved from any source.
var ErrNoRootURL = errors.New("no root page URL configured")

// Resolver is the single source of truth for the project's root URL. Legacy
// locations (config project_url, index root_page_url, a parent_url on the
// root record) are read but never written; Fix rewrites them into
// default_parent_url.
type Resolver struct {
	cfg *Project
	idx *index.Store

	// allowEnv permits the NOTION_ROOT_URL fallback; only init opts in.
	allowEnv bool
}

// NewResolver builds a resolver over the loaded config and index.
func NewResolver(cfg *Project, idx *index.Store) *Resolver {
	return &Resolver{cfg: cfg, idx: idx}
}

// AllowEnvFallback enables the NOTION_ROOT_URL environment fallback.
func (r *Resolver) AllowEnvFallback() *Resolver {
	r.allowEnv = true
	return r
}

// RootURL resolves the root page URL, in priority order.
func (r *Resolver) RootURL() (string, error) {
	if u := r.cfg.DefaultParentURL; u != "" {
		return u, nil
	}
	if u := r.cfg.ProjectURL; u != "" {
		return u, nil
	}
	if r.idx != nil {
		if u := r.idx.RootPageURL(); u != "" {
			return u, nil
		}
		if root := r.idx.Get(""); root != nil {
			if n, ok := root.Extra["parent_url"]; ok && n.Value != "" {
				return n.Value, nil
			}
		}
	}
	if r.allowEnv {
		if u := os.Getenv(EnvRootURL); u != "" {
			return u, nil
		}
	}
	return "", ErrNoRootURL
}

// RootPageID resolves the root URL and extracts its canonical page ID.
func (r *Resolver) RootPageID() (string, error) {
	u, err := r.RootURL()
	if err != nil {
		return "", err
	}
	id, err := ident.FromURL(u)
	if err != nil {
		return "", fmt.Errorf("root URL: %w", err)
	}
	return id, nil
}

// Fix rewrites whatever legacy source resolved into default_parent_url and
// reports whether the config changed. It never issues remote writes.
func (r *Resolver) Fix() (bool, error) {
	if r.cfg.DefaultParentURL != "" {
		return false, nil
	}
	u, err := r.RootURL()
	if err != nil {
		return false, err
	}
	r.cfg.DefaultParentURL = u
	return true, nil
}
