// Package status reports project health: resolved root URL, token
// presence, and the sync state of every tracked path. Without --fix it is
// strictly read-only; with --fix it repairs legacy config keys and
// re-serializes the index, never touching the remote.
package status

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/project"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func checkmark() string { return colorGreen + "✓" + colorReset }
func crossmark() string { return colorRed + "✗" + colorReset }

// ItemState is one tracked path's condition.
type ItemState string

const (
	StateSynced   ItemState = "synced"
	StateModified ItemState = "modified"
	StateNew      ItemState = "new"
	StateMissing  ItemState = "missing locally"
)

// Run prints the status report. Returns true when everything checked out.
func Run(w io.Writer, sess *project.Session, fix bool) (bool, error) {
	fmt.Fprintln(w, "Project status")
	fmt.Fprintln(w)

	ok := true

	resolver := config.NewResolver(sess.Config, sess.Index)
	if fix {
		changed, err := resolver.Fix()
		if err != nil && !errors.Is(err, config.ErrNoRootURL) {
			return false, err
		}
		if changed {
			if err := sess.Config.Save(sess.Dir); err != nil {
				return false, err
			}
			fmt.Fprintf(w, "  %s Promoted legacy root URL into default_parent_url\n", checkmark())
		}
		// Re-serializing normalizes ordering and structure.
		if err := sess.Index.Save(); err != nil {
			return false, fmt.Errorf("normalizing index: %w", err)
		}
		fmt.Fprintf(w, "  %s Index normalized\n", checkmark())
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Configuration:")
	rootURL, err := resolver.RootURL()
	if err != nil {
		fmt.Fprintf(w, "  %s No root page URL configured\n", crossmark())
		fmt.Fprintf(w, "    → Set default_parent_url in %s or re-run init\n", config.ConfigPath(sess.Dir))
		ok = false
	} else {
		fmt.Fprintf(w, "  %s Root URL: %s\n", checkmark(), rootURL)
	}
	if _, err := config.Token(); err != nil {
		fmt.Fprintf(w, "  %s No Notion token in environment\n", crossmark())
		fmt.Fprintf(w, "    → Set NOTION_TOKEN (or NOTION_API_KEY) in .c2n/.env\n")
		ok = false
	} else {
		fmt.Fprintf(w, "  %s Notion token present\n", checkmark())
	}
	fmt.Fprintf(w, "  %s Sync mode: %s\n", checkmark(), sess.Config.SyncMode)
	fmt.Fprintln(w)

	states, err := collectStates(sess)
	if err != nil {
		return false, err
	}
	if len(states) == 0 {
		fmt.Fprintln(w, "No tracked items.")
		return ok, nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Path", "State", "Page URL")
	for _, st := range states {
		table.Append(st.path, string(st.state), st.url)
	}
	table.Render()
	return ok, nil
}

type itemState struct {
	path  string
	state ItemState
	url   string
}

// collectStates compares every index record against the working tree. Pure
// reads: hashing and stats only.
func collectStates(sess *project.Session) ([]itemState, error) {
	var out []itemState
	for _, rel := range sess.Index.Paths() {
		if rel == "" {
			continue
		}
		rec := sess.Index.Get(rel)
		if sess.Ignore.Match(rel) {
			continue
		}
		abs := filepath.Join(sess.Dir, filepath.FromSlash(rel))

		if rec.Kind == index.KindDirectory {
			if info, err := os.Stat(abs); err != nil || !info.IsDir() {
				out = append(out, itemState{rel, StateMissing, rec.PageURL})
			} else {
				out = append(out, itemState{rel, StateSynced, rec.PageURL})
			}
			continue
		}

		sha, err := index.Sha1File(abs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = append(out, itemState{rel, StateMissing, rec.PageURL})
				continue
			}
			return nil, err
		}
		if rec.ContentSHA1 == "" || sha != rec.ContentSHA1 {
			out = append(out, itemState{rel, StateModified, rec.PageURL})
		} else {
			out = append(out, itemState{rel, StateSynced, rec.PageURL})
		}
	}
	return out, nil
}
