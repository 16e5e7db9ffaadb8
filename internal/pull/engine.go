// Package pull brings remote edits down to the local tree. It runs two
// composable phases: a change pull that refreshes items already in the
// index when their remote edit time advanced, and a new pull that walks the
// remote subtree breadth-first for pages the index has never seen. Changed
// content stages under .c2n/pull/latest/ and is then merged into the
// worktree line by line.
package pull

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livyn-inc/cursor-to-notion/internal/cache"
	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/ident"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/interrupt"
	"github.com/livyn-inc/cursor-to-notion/internal/layout"
	"github.com/livyn-inc/cursor-to-notion/internal/markdown"
	"github.com/livyn-inc/cursor-to-notion/internal/merge"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
	"github.com/livyn-inc/cursor-to-notion/internal/report"
)

// Options control a pull run. NewOnly and ExistingOnly are mutually
// exclusive; both false means both phases run.
type Options struct {
	NewOnly      bool
	ExistingOnly bool
	ForceAll     bool
	DryRun       bool
	Verbose      bool
	Apply        bool
	Mode         string
	Parallelism  int
}

// item is one piece of content to bring down.
type item struct {
	Rel        string
	PageID     string
	PageURL    string
	ParentID   string
	Title      string
	Kind       index.Kind
	LastEdited string
	Content    []byte
	IsNew      bool
}

// Engine drives one pull.
type Engine struct {
	API        notion.API
	Index      *index.Store
	Ignore     *index.Matcher
	Cache      *cache.Cache
	Report     *report.Report
	Out        io.Writer
	Opts       Options
	ProjectDir string
	RootPageID string

	now func() time.Time
}

// NewEngine wires a pull engine.
func NewEngine(api notion.API, idx *index.Store, ign *index.Matcher, c *cache.Cache, rep *report.Report, projectDir, rootPageID string, opts Options) *Engine {
	if opts.Parallelism <= 0 {
		opts.Parallelism = config.DefaultParallelism
	}
	return &Engine{
		API:        api,
		Index:      idx,
		Ignore:     ign,
		Cache:      c,
		Report:     rep,
		Out:        os.Stdout,
		Opts:       opts,
		ProjectDir: projectDir,
		RootPageID: rootPageID,
		now:        time.Now,
	}
}

// StagingDir is where pulled content lands before merging.
func StagingDir(projectDir string) string {
	return filepath.Join(projectDir, index.MetaDirName, "pull", "latest")
}

// Run executes the configured phases.
func (e *Engine) Run(ctx context.Context) error {
	var items []item

	if !e.Opts.NewOnly {
		changed, err := e.changePull(ctx)
		if err != nil {
			return err
		}
		items = append(items, changed...)
	}
	if !e.Opts.ExistingOnly {
		fresh, err := e.newPull(ctx)
		if err != nil {
			return err
		}
		items = append(items, fresh...)
	}

	// Directories first so parent records and folders exist before their
	// contents land.
	sort.SliceStable(items, func(i, j int) bool {
		if (items[i].Kind == index.KindDirectory) != (items[j].Kind == index.KindDirectory) {
			return items[i].Kind == index.KindDirectory
		}
		return items[i].Rel < items[j].Rel
	})

	if e.Opts.DryRun {
		for _, it := range items {
			verb := "update"
			if it.IsNew {
				verb = "create"
			}
			fmt.Fprintf(e.Out, "[dry-run] %s %s\n", verb, it.Rel)
		}
		fmt.Fprintf(e.Out, "[dry-run] %d item(s) would be pulled\n", len(items))
		return nil
	}

	if len(items) > 0 {
		if err := e.stage(items); err != nil {
			return err
		}
	}
	if e.Opts.Apply {
		e.apply(items)
	}
	return nil
}

// changePull fetches last_edited_time for every content record in parallel
// and renders the pages that moved.
func (e *Engine) changePull(ctx context.Context) ([]item, error) {
	type target struct {
		rel string
		rec *index.Record
	}
	var targets []target
	for _, rel := range e.Index.Paths() {
		rec := e.Index.Get(rel)
		if rel == "" || rec.Kind == index.KindDirectory || rec.PageID == "" {
			continue
		}
		targets = append(targets, target{rel: rel, rec: rec})
	}

	items := make([]*item, len(targets))
	var mu sync.Mutex

	callCtx, cancelCalls := interrupt.WithGrace(ctx, interrupt.Grace)
	defer cancelCalls()

	var g errgroup.Group
	g.SetLimit(e.Opts.Parallelism)
	for i, tg := range targets {
		i, tg := i, tg
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			lastEdited, err := e.API.LastEditedTime(callCtx, tg.rec.PageID)
			if err != nil {
				mu.Lock()
				e.Report.AddError(tg.rel, tg.rec.PageURL, "pull", err)
				mu.Unlock()
				return nil
			}
			if !e.Opts.ForceAll && !remoteNewer(lastEdited, tg.rec.RemoteLastEdited) {
				return nil
			}
			content, err := e.renderPage(callCtx, tg.rec.PageID, tg.rel, tg.rec.ParentID)
			if err != nil {
				mu.Lock()
				e.Report.AddError(tg.rel, tg.rec.PageURL, "pull", err)
				mu.Unlock()
				return nil
			}
			items[i] = &item{
				Rel:        tg.rel,
				PageID:     tg.rec.PageID,
				PageURL:    tg.rec.PageURL,
				ParentID:   tg.rec.ParentID,
				Title:      tg.rec.Title,
				Kind:       tg.rec.Kind,
				LastEdited: lastEdited,
				Content:    content,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []item
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out, nil
}

// newPull walks the remote subtree breadth-first and returns pages the
// index does not know, placed under the active projection.
func (e *Engine) newPull(ctx context.Context) ([]item, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	// Resolve each page's local path, parents before children.
	rels := map[string]string{e.RootPageID: ""}
	var items []item

	queue := []string{e.RootPageID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := snap.Pages[id]
		if node == nil {
			continue
		}
		for _, childID := range node.ChildIDs {
			child := snap.Pages[childID]
			if child == nil {
				continue
			}
			isDir := e.Opts.Mode == config.ModeHierarchy && child.IsFolder

			var rel string
			if knownRel, knownRec := e.Index.FindByPageID(childID); knownRec != nil {
				rel = knownRel
			} else {
				if e.Opts.Mode == config.ModeFlat {
					rel = layout.FlatPath(child.Title)
				} else {
					rel = layout.HierarchyPath(rels[id], child.Title, isDir)
				}
				if e.Ignore.Match(rel) {
					// Ignored destinations are excluded from pull as well;
					// see DESIGN.md.
					rels[childID] = rel
					if isDir {
						queue = append(queue, childID)
					}
					continue
				}
				it := item{
					Rel:        rel,
					PageID:     childID,
					PageURL:    ident.PageURL(childID),
					ParentID:   id,
					Title:      child.Title,
					Kind:       kindFor(e.Opts.Mode, isDir),
					LastEdited: child.LastEditedTime,
					IsNew:      true,
				}
				if !isDir {
					content, err := e.renderPage(ctx, childID, rel, id)
					if err != nil {
						e.Report.AddError(rel, it.PageURL, "pull", err)
						continue
					}
					it.Content = content
				}
				items = append(items, it)
			}

			rels[childID] = rel
			if isDir || e.Opts.Mode == config.ModeFlat {
				queue = append(queue, childID)
			} else if _, rec := e.Index.FindByPageID(childID); rec != nil && rec.Kind == index.KindDirectory {
				queue = append(queue, childID)
			}
		}
	}
	return items, nil
}

// snapshot returns the remote tree, from cache when fresh enough.
func (e *Engine) snapshot(ctx context.Context) (*cache.Snapshot, error) {
	if snap := e.Cache.RemoteSnapshot(e.RootPageID, e.now()); snap != nil {
		return snap, nil
	}

	snap := &cache.Snapshot{
		FetchedAt: e.now().UTC().Format(time.RFC3339),
		RootID:    e.RootPageID,
		Pages:     map[string]*cache.RemotePage{},
	}
	root, err := e.API.RetrievePage(ctx, e.RootPageID)
	if err != nil {
		return nil, err
	}
	snap.Pages[root.ID] = &cache.RemotePage{
		ID:             root.ID,
		Title:          root.Title,
		LastEditedTime: root.LastEditedTime,
		IsFolder:       true,
	}

	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := e.API.ChildPages(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			blocks, err := e.API.ChildBlocks(ctx, child.ID)
			if err != nil {
				return nil, err
			}
			node := &cache.RemotePage{
				ID:             child.ID,
				Title:          child.Title,
				ParentID:       id,
				LastEditedTime: child.LastEditedTime,
				IsFolder:       layout.IsDirectoryPage(child, blocks),
			}
			snap.Pages[id].ChildIDs = append(snap.Pages[id].ChildIDs, child.ID)
			snap.Pages[child.ID] = node
			queue = append(queue, child.ID)
		}
	}

	e.Cache.SetRemoteSnapshot(snap)
	return snap, nil
}

// renderPage fetches a page's blocks and renders them for the local path.
// Flat mode prepends the sync front-matter.
func (e *Engine) renderPage(ctx context.Context, pageID, rel, parentID string) ([]byte, error) {
	blocks, err := e.API.ChildBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	body := markdown.FileFromBlocks(rel, blocks)

	if e.Opts.Mode != config.ModeFlat {
		return []byte(body), nil
	}

	var childIDs []string
	for _, b := range blocks {
		if b.Type == notion.TypeChildPage {
			childIDs = append(childIDs, b.ID)
		}
	}
	fm := &layout.FrontMatter{
		PageID:      pageID,
		PageURL:     ident.PageURL(pageID),
		ParentID:    parentID,
		ParentType:  "page",
		ChildrenIDs: childIDs,
		SyncMode:    config.ModeFlat,
	}
	return []byte(fm.Render() + body), nil
}

// stage writes pulled content under .c2n/pull/latest, clearing the previous
// staging area first.
func (e *Engine) stage(items []item) error {
	staging := StagingDir(e.ProjectDir)
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging area: %w", err)
	}
	for _, it := range items {
		if it.Kind == index.KindDirectory {
			continue
		}
		dst := filepath.Join(staging, filepath.FromSlash(it.Rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating staging dirs: %w", err)
		}
		if err := os.WriteFile(dst, it.Content, 0o644); err != nil {
			return fmt.Errorf("staging %s: %w", it.Rel, err)
		}
	}
	return nil
}

// apply merges staged content into the worktree and updates the index. Only
// the driver runs here; no remote calls are made.
func (e *Engine) apply(items []item) {
	total := len(items)
	for i, it := range items {
		if it.Kind == index.KindDirectory {
			e.applyDirectory(it)
			continue
		}

		dst := filepath.Join(e.ProjectDir, filepath.FromSlash(it.Rel))
		local, readErr := os.ReadFile(dst)
		localExists := readErr == nil
		if readErr != nil && !os.IsNotExist(readErr) {
			e.Report.AddError(it.Rel, it.PageURL, "pull", readErr)
			continue
		}

		res := merge.Apply(local, localExists, it.Content)
		if res.Status != merge.StatusSame {
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				e.Report.AddError(it.Rel, it.PageURL, "pull", err)
				continue
			}
			if err := os.WriteFile(dst, res.Content, 0o644); err != nil {
				e.Report.AddError(it.Rel, it.PageURL, "pull", err)
				continue
			}
		}

		if e.Opts.Verbose || res.Status != merge.StatusSame {
			fmt.Fprintf(e.Out, "[%d/%d] %s %s\n", i+1, total, res.Status, it.Rel)
		}

		mtime, err := index.MtimeNS(dst)
		if err != nil {
			e.Report.AddError(it.Rel, it.PageURL, "pull", err)
			continue
		}
		rec := &index.Record{
			Kind:             it.Kind,
			Title:            titleFor(it),
			PageID:           it.PageID,
			PageURL:          it.PageURL,
			ParentID:         it.ParentID,
			ContentSHA1:      index.Sha1Bytes(res.Content),
			LocalMtimeNS:     mtime,
			RemoteLastEdited: it.LastEdited,
			LastSyncAt:       e.now().UTC().Format(time.RFC3339),
		}
		if err := e.Index.Put(it.Rel, rec); err != nil {
			e.Report.AddError(it.Rel, it.PageURL, "pull", err)
			continue
		}

		kind := report.KindOK
		if res.Conflicts > 0 {
			kind = report.KindMergeConflict
			fmt.Fprintf(e.Out, "  conflict: %s has %d unresolved hunk(s)\n", it.Rel, res.Conflicts)
		}
		e.Report.Add(report.Result{Path: it.Rel, URL: it.PageURL, Action: "pull", Kind: kind})
	}
}

func (e *Engine) applyDirectory(it item) {
	abs := filepath.Join(e.ProjectDir, filepath.FromSlash(it.Rel))
	if err := os.MkdirAll(abs, 0o755); err != nil {
		e.Report.AddError(it.Rel, it.PageURL, "pull", err)
		return
	}
	rec := &index.Record{
		Kind:             index.KindDirectory,
		Title:            it.Title,
		PageID:           it.PageID,
		PageURL:          it.PageURL,
		ParentID:         it.ParentID,
		RemoteLastEdited: it.LastEdited,
		LastSyncAt:       e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Index.Put(it.Rel, rec); err != nil {
		e.Report.AddError(it.Rel, it.PageURL, "pull", err)
		return
	}
	e.Report.Add(report.Result{Path: it.Rel, URL: it.PageURL, Action: "pull", Kind: report.KindOK})
}

func titleFor(it item) string {
	if it.Title != "" {
		return it.Title
	}
	return layout.TitleForFile(filepath.Base(it.Rel))
}

func kindFor(mode string, isDir bool) index.Kind {
	if mode == config.ModeFlat {
		return index.KindPage
	}
	if isDir {
		return index.KindDirectory
	}
	return index.KindFile
}

// remoteNewer compares two RFC-3339 stamps; malformed or missing recorded
// stamps count as changed.
func remoteNewer(current, recorded string) bool {
	if recorded == "" {
		return true
	}
	if current == recorded {
		return false
	}
	ct, err1 := time.Parse(time.RFC3339, current)
	rt, err2 := time.Parse(time.RFC3339, recorded)
	if err1 != nil || err2 != nil {
		return true
	}
	return ct.After(rt)
}
