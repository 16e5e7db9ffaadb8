package push

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/interrupt"
	"github.com/livyn-inc/cursor-to-notion/internal/layout"
	"github.com/livyn-inc/cursor-to-notion/internal/markdown"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
	"github.com/livyn-inc/cursor-to-notion/internal/report"
)

// Engine executes push plans against the remote.
type Engine struct {
	API    notion.API
	Index  *index.Store
	Report *report.Report
	Out    io.Writer
	Opts   Options

	// RootPageID anchors records with no parent record.
	RootPageID string

	// now is stubbed in tests.
	now func() time.Time
}

// NewEngine wires an engine; Out defaults to stdout.
func NewEngine(api notion.API, idx *index.Store, rep *report.Report, rootPageID string, opts Options) *Engine {
	if opts.Parallelism <= 0 {
		opts.Parallelism = config.DefaultParallelism
	}
	return &Engine{
		API:        api,
		Index:      idx,
		Report:     rep,
		Out:        os.Stdout,
		Opts:       opts,
		RootPageID: rootPageID,
		now:        time.Now,
	}
}

// fileOutcome is what a pool worker hands back to the driver; only the
// driver touches the index.
type fileOutcome struct {
	item   Item
	record *index.Record
	err    error
}

// Execute runs the plan: directories strictly before their contents, then
// files through a bounded worker pool. Per-item failures collect into the
// report; the walk never aborts on one bad item.
func (e *Engine) Execute(ctx context.Context, plan *Plan) error {
	if e.Opts.DryRun {
		e.printDryRun(plan)
		return nil
	}

	e.executeDirectories(ctx, plan)
	return e.executeFiles(ctx, plan)
}

// executeDirectories creates missing directory pages serially, top-down.
// Serial execution keeps the parent-before-child ordering trivially true.
func (e *Engine) executeDirectories(ctx context.Context, plan *Plan) {
	dirs := plan.Directories()
	for i, item := range dirs {
		switch item.Action {
		case SkipDirectoryUpdate:
			e.Report.Add(report.Result{Path: item.RelPath, Action: string(item.Action), Kind: report.KindSkipped})
			continue
		case UpdateDirectory:
			e.refreshDirectoryIcon(ctx, item)
			continue
		case CreateDirectory:
		default:
			continue
		}
		if ctx.Err() != nil {
			return
		}

		parentID, err := e.parentPageID(item.RelPath)
		if err != nil {
			e.Report.AddError(item.RelPath, "", string(item.Action), err)
			continue
		}
		fmt.Fprintf(e.Out, "[%d/%d] Creating directory page %s\n", i+1, len(dirs), item.RelPath)
		page, err := e.API.CreateChildPage(ctx, parentID, layout.SanitizeTitle(item.Title), notion.IconFolder)
		if err != nil {
			e.Report.AddError(item.RelPath, "", string(item.Action), err)
			continue
		}
		rec := &index.Record{
			Kind:             index.KindDirectory,
			Title:            item.Title,
			PageID:           page.ID,
			PageURL:          page.URL,
			ParentID:         parentID,
			RemoteLastEdited: page.LastEditedTime,
			LastSyncAt:       e.now().UTC().Format(time.RFC3339),
		}
		if err := e.Index.Put(item.RelPath, rec); err != nil {
			e.Report.AddError(item.RelPath, page.URL, string(item.Action), err)
			continue
		}
		e.Report.Add(report.Result{Path: item.RelPath, URL: page.URL, Action: string(item.Action), Kind: report.KindOK})
	}
}

// refreshDirectoryIcon restores the folder icon on an existing directory
// page when it was lost remotely. Pages that already carry an icon are left
// untouched, so an unchanged push issues no writes.
func (e *Engine) refreshDirectoryIcon(ctx context.Context, item Item) {
	rec := e.Index.Get(item.RelPath)
	if rec == nil || rec.PageID == "" {
		e.Report.Add(report.Result{Path: item.RelPath, Action: string(item.Action), Kind: report.KindSkipped})
		return
	}
	page, err := e.API.RetrievePage(ctx, rec.PageID)
	if err != nil {
		e.Report.AddError(item.RelPath, rec.PageURL, string(item.Action), err)
		return
	}
	if page.IconEmoji == "" {
		if err := e.API.SetPageIcon(ctx, rec.PageID, notion.IconFolder); err != nil {
			e.Report.AddError(item.RelPath, rec.PageURL, string(item.Action), err)
			return
		}
	}
	e.Report.Add(report.Result{Path: item.RelPath, URL: rec.PageURL, Action: string(item.Action), Kind: report.KindSkipped})
}

// executeFiles pushes file items through the worker pool. Workers only
// compute and call the remote; record updates happen on the driver after
// the pool drains.
func (e *Engine) executeFiles(ctx context.Context, plan *Plan) error {
	files := plan.Files()
	outcomes := make([]fileOutcome, len(files))
	total := len(files)

	var mu sync.Mutex
	done := 0
	progress := func(item Item, action Action) {
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		if e.Opts.Verbose || action != SkipFile {
			fmt.Fprintf(e.Out, "[%d/%d] %s %s\n", n, total, progressVerb(action), item.RelPath)
		}
	}

	// In-flight calls get a grace window after cancellation; enqueueing
	// stops immediately via the ctx.Err checks.
	callCtx, cancelCalls := interrupt.WithGrace(ctx, interrupt.Grace)
	defer cancelCalls()

	var g errgroup.Group
	g.SetLimit(e.Opts.Parallelism)
	for i, item := range files {
		i, item := i, item
		if item.Action == SkipFile {
			outcomes[i] = fileOutcome{item: item}
			progress(item, SkipFile)
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec, err := e.pushFile(callCtx, item)
			outcomes[i] = fileOutcome{item: item, record: rec, err: err}
			progress(item, item.Action)
			return nil // per-item errors are collected, not propagated
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, oc := range outcomes {
		switch {
		case oc.item.Action == SkipFile:
			e.Report.Add(report.Result{Path: oc.item.RelPath, Action: string(SkipFile), Kind: report.KindSkipped})
		case oc.err != nil:
			e.Report.AddError(oc.item.RelPath, "", string(oc.item.Action), oc.err)
		case oc.record != nil:
			if err := e.Index.Put(oc.item.RelPath, oc.record); err != nil {
				e.Report.AddError(oc.item.RelPath, oc.record.PageURL, string(oc.item.Action), err)
				continue
			}
			e.Report.Add(report.Result{
				Path: oc.item.RelPath, URL: oc.record.PageURL,
				Action: string(oc.item.Action), Kind: report.KindOK,
			})
		}
	}
	return nil
}

// pushFile creates or replaces one remote page so that afterwards its
// content equals the converted local bytes. Replacement is
// delete-then-append: the remote has no block diff primitive, and in-place
// edits duplicate content when converter output changes shape.
func (e *Engine) pushFile(ctx context.Context, item Item) (*index.Record, error) {
	data, err := os.ReadFile(item.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", item.AbsPath, err)
	}
	blocks := markdown.FileToBlocks(item.RelPath, data)

	rec := e.Index.Get(item.RelPath)
	var pageID, pageURL, parentID string

	if rec != nil && rec.PageID != "" {
		pageID = rec.PageID
		pageURL = rec.PageURL
		parentID = rec.ParentID
		// Replace: clear existing children, serially on this page.
		existing, err := e.API.ChildBlocks(ctx, pageID)
		if err != nil {
			return nil, err
		}
		for _, b := range existing {
			if b.Type == notion.TypeChildPage {
				continue // subpages are their own items, never content
			}
			if err := e.API.DeleteBlock(ctx, b.ID); err != nil {
				return nil, err
			}
		}
	} else {
		parentID, err = e.parentPageID(item.RelPath)
		if err != nil {
			return nil, err
		}
		page, err := e.API.CreateChildPage(ctx, parentID, layout.SanitizeTitle(item.Title), notion.IconFile)
		if err != nil {
			return nil, err
		}
		pageID = page.ID
		pageURL = page.URL
	}

	if len(blocks) > 0 {
		if err := e.API.AppendBlocks(ctx, pageID, blocks); err != nil {
			return nil, err
		}
	}

	lastEdited, err := e.API.LastEditedTime(ctx, pageID)
	if err != nil {
		// The content landed; a failed refresh only costs one spurious
		// change-pull later.
		lastEdited = ""
	}

	kind := index.KindFile
	if e.Opts.Mode == config.ModeFlat {
		kind = index.KindPage
	}
	return &index.Record{
		Kind:             kind,
		Title:            item.Title,
		PageID:           pageID,
		PageURL:          pageURL,
		ParentID:         parentID,
		ContentSHA1:      item.SHA1,
		LocalMtimeNS:     item.MtimeNS,
		RemoteLastEdited: lastEdited,
		LastSyncAt:       e.now().UTC().Format(time.RFC3339),
	}, nil
}

// parentPageID resolves the remote parent for a path: its parent record in
// hierarchy mode, else the project root page.
func (e *Engine) parentPageID(relPath string) (string, error) {
	if e.Opts.Mode == config.ModeFlat {
		return e.RootPageID, nil
	}
	parent := parentRel(relPath)
	if parent == "" {
		return e.RootPageID, nil
	}
	rec := e.Index.Get(parent)
	if rec == nil || rec.PageID == "" {
		return "", fmt.Errorf("%w: no remote page for parent directory %q", index.ErrInvariantViolation, parent)
	}
	return rec.PageID, nil
}

func (e *Engine) printDryRun(plan *Plan) {
	for _, item := range plan.Items {
		switch item.Action {
		case SkipFile, SkipDirectoryUpdate, UpdateDirectory:
			if e.Opts.Verbose {
				fmt.Fprintf(e.Out, "[dry-run] skip   %s (%s)\n", item.RelPath, item.Reason)
			}
		case CreateFile, CreateDirectory:
			fmt.Fprintf(e.Out, "[dry-run] create %s\n", item.RelPath)
		case UpdateFile:
			fmt.Fprintf(e.Out, "[dry-run] update %s (%s)\n", item.RelPath, item.Reason)
		}
	}
}

func progressVerb(a Action) string {
	switch a {
	case CreateFile:
		return "Creating"
	case UpdateFile:
		return "Updating"
	default:
		return "Skipping"
	}
}

func parentRel(relPath string) string {
	for i := len(relPath) - 1; i >= 0; i-- {
		if relPath[i] == '/' {
			return relPath[:i]
		}
	}
	return ""
}
