// Package push walks the local tree, pairs every path with its index
// record, and reconciles the remote to match. Planning and execution are
// separate: the plan is an immutable value computed without touching the
// remote, which is what makes --dry-run free.
package push

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/livyn-inc/cursor-to-notion/internal/cache"
	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/layout"
	"github.com/livyn-inc/cursor-to-notion/internal/markdown"
)

// Action is one planned operation.
type Action string

const (
	CreateFile          Action = "create"
	UpdateFile          Action = "update"
	SkipFile            Action = "skip"
	CreateDirectory     Action = "create-dir"
	UpdateDirectory     Action = "update-dir"
	SkipDirectoryUpdate Action = "skip-dir"
)

// Item is one planned path.
type Item struct {
	RelPath string
	AbsPath string
	Action  Action
	IsDir   bool
	Title   string
	SHA1    string
	MtimeNS int64
	Reason  string
}

// Plan is the ordered set of operations for one push: directories top-down
// first, then file creations, then file updates.
type Plan struct {
	Items []Item
}

// Directories returns the directory items in path order.
func (p *Plan) Directories() []Item {
	var out []Item
	for _, it := range p.Items {
		if it.IsDir {
			out = append(out, it)
		}
	}
	return out
}

// Files returns the file items in plan order.
func (p *Plan) Files() []Item {
	var out []Item
	for _, it := range p.Items {
		if !it.IsDir {
			out = append(out, it)
		}
	}
	return out
}

// Options control planning and execution.
type Options struct {
	ForceAll    bool
	DryRun      bool
	Verbose     bool
	NoDirUpdate bool
	Mode        string
	Parallelism int
}

// BuildPlan enumerates the local tree. Hidden entries, ignored paths, and
// image files never enter the plan.
func BuildPlan(projectDir string, idx *index.Store, ign *index.Matcher, fsc *cache.Cache, opts Options) (*Plan, error) {
	plan := &Plan{}
	if opts.Mode == config.ModeFlat {
		if err := planFlat(plan, projectDir, idx, ign, fsc, opts); err != nil {
			return nil, err
		}
	} else {
		if err := planDir(plan, projectDir, "", idx, ign, fsc, opts); err != nil {
			return nil, err
		}
	}
	sortPlan(plan)
	return plan, nil
}

// planDir recurses through one directory in hierarchy mode.
func planDir(plan *Plan, projectDir, rel string, idx *index.Store, ign *index.Matcher, fsc *cache.Cache, opts Options) error {
	abs := filepath.Join(projectDir, filepath.FromSlash(rel))
	dirs, files, err := fsc.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("listing %s: %w", abs, err)
	}

	for _, name := range files {
		childRel := joinRel(rel, name)
		if skipName(name) || ign.Match(childRel) || markdown.IsImageExt(filepath.Ext(name)) {
			continue
		}
		item, err := planFile(projectDir, childRel, name, idx, opts)
		if err != nil {
			return err
		}
		plan.Items = append(plan.Items, item)
	}

	for _, name := range dirs {
		childRel := joinRel(rel, name)
		if skipName(name) || ign.Match(childRel+"/") || ign.Match(childRel) {
			continue
		}
		item := Item{
			RelPath: childRel,
			AbsPath: filepath.Join(projectDir, filepath.FromSlash(childRel)),
			IsDir:   true,
			Title:   name,
		}
		switch {
		case idx.Get(childRel) == nil:
			item.Action = CreateDirectory
		case opts.NoDirUpdate:
			item.Action = SkipDirectoryUpdate
			item.Reason = "no-dir-update"
		default:
			item.Action = UpdateDirectory
			item.Reason = "exists"
		}
		plan.Items = append(plan.Items, item)

		if err := planDir(plan, projectDir, childRel, idx, ign, fsc, opts); err != nil {
			return err
		}
	}
	return nil
}

// planFlat enumerates root-level files only; flat mode has no local
// directories.
func planFlat(plan *Plan, projectDir string, idx *index.Store, ign *index.Matcher, fsc *cache.Cache, opts Options) error {
	_, files, err := fsc.ReadDir(projectDir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", projectDir, err)
	}
	for _, name := range files {
		if skipName(name) || ign.Match(name) || markdown.IsImageExt(filepath.Ext(name)) {
			continue
		}
		item, err := planFile(projectDir, name, name, idx, opts)
		if err != nil {
			return err
		}
		plan.Items = append(plan.Items, item)
	}
	return nil
}

func planFile(projectDir, rel, name string, idx *index.Store, opts Options) (Item, error) {
	abs := filepath.Join(projectDir, filepath.FromSlash(rel))
	item := Item{
		RelPath: rel,
		AbsPath: abs,
		Title:   layout.TitleForFile(name),
	}
	sha, err := index.Sha1File(abs)
	if err != nil {
		return item, fmt.Errorf("hashing %s: %w", abs, err)
	}
	mtime, err := index.MtimeNS(abs)
	if err != nil {
		return item, err
	}
	item.SHA1 = sha
	item.MtimeNS = mtime

	rec := idx.Get(rel)
	switch {
	case rec == nil:
		item.Action = CreateFile
	case opts.ForceAll:
		item.Action = UpdateFile
		item.Reason = "forced"
	case rec.ContentSHA1 != sha:
		item.Action = UpdateFile
		item.Reason = "content changed"
	default:
		item.Action = SkipFile
		item.Reason = "unchanged"
	}
	return item, nil
}

// skipName hides dotfiles and the metadata folder from the walk.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".")
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}

// sortPlan orders directories before files, both top-down, with file
// creations ahead of updates at equal depth.
func sortPlan(plan *Plan) {
	rank := func(it Item) int {
		switch {
		case it.IsDir:
			return 0
		case it.Action == CreateFile:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(plan.Items, func(i, j int) bool {
		a, b := plan.Items[i], plan.Items[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		if a.IsDir {
			return a.RelPath < b.RelPath
		}
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		return a.RelPath < b.RelPath
	})
}
