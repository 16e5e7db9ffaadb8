package push

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/livyn-inc/cursor-to-notion/internal/cache"
	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/markdown"
	"github.com/livyn-inc/cursor-to-notion/internal/notion/notiontest"
	"github.com/livyn-inc/cursor-to-notion/internal/report"
)

const rootID = "27db35c4-e5fa-4a8f-9b1c-0d2e3f405162"

type fixture struct {
	dir  string
	idx  *index.Store
	ign  *index.Matcher
	fsc  *cache.Cache
	fake *notiontest.Fake
	rep  *report.Report
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	idx, err := index.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	fake := notiontest.New()
	fake.AddPage(rootID, "Project Root", "", "", nil)
	return &fixture{
		dir:  dir,
		idx:  idx,
		ign:  index.NewMatcher(nil),
		fsc:  cache.Load(dir),
		fake: fake,
		rep:  report.New(),
	}
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	abs := filepath.Join(f.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) push(t *testing.T, opts Options) *Plan {
	t.Helper()
	plan, err := BuildPlan(f.dir, f.idx, f.ign, f.fsc, opts)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	eng := NewEngine(f.fake, f.idx, f.rep, rootID, opts)
	eng.Out = testWriter{t}
	if err := eng.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return plan
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestPush_CleanSingleFile(t *testing.T) {
	f := newFixture(t)
	content := "# Hi\nhello\n"
	f.write(t, "README.md", content)

	f.push(t, Options{Mode: config.ModeHierarchy})

	rec := f.idx.Get("README.md")
	if rec == nil {
		t.Fatal("no index record after push")
	}
	if rec.ContentSHA1 != index.Sha1Bytes([]byte(content)) {
		t.Errorf("content_sha1 = %q, want hash of local bytes", rec.ContentSHA1)
	}
	if rec.RemoteLastEdited == "" || rec.LastSyncAt == "" {
		t.Errorf("timestamps not recorded: %+v", rec)
	}

	// The remote page renders back to exactly the local bytes.
	page := f.fake.Pages[rec.PageID]
	if page == nil {
		t.Fatal("page not created remotely")
	}
	if got := markdown.FromBlocks(page.Blocks); got != content {
		t.Errorf("remote rendering = %q, want %q", got, content)
	}
	if page.Page.Title != "README" {
		t.Errorf("title = %q, want extension dropped", page.Page.Title)
	}
}

func TestPush_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha\n")
	f.write(t, "b.md", "beta\n")

	f.push(t, Options{Mode: config.ModeHierarchy})
	writesAfterFirst := f.fake.Writes

	plan := f.push(t, Options{Mode: config.ModeHierarchy})
	for _, item := range plan.Files() {
		if item.Action != SkipFile {
			t.Errorf("%s action = %s, want skip on unchanged push", item.RelPath, item.Action)
		}
	}
	if f.fake.Writes != writesAfterFirst {
		t.Errorf("second push issued %d extra remote writes", f.fake.Writes-writesAfterFirst)
	}
}

func TestPush_UpdateReplacesContent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.md", "v1\n")
	f.push(t, Options{Mode: config.ModeHierarchy})

	f.write(t, "doc.md", "v2\n")
	plan := f.push(t, Options{Mode: config.ModeHierarchy})
	if got := plan.Files()[0].Action; got != UpdateFile {
		t.Fatalf("action = %s, want update", got)
	}

	rec := f.idx.Get("doc.md")
	page := f.fake.Pages[rec.PageID]
	if got := markdown.FromBlocks(page.Blocks); got != "v2\n" {
		t.Errorf("remote content after update = %q, want full replacement", got)
	}
}

func TestPush_DirectoriesBeforeContents(t *testing.T) {
	f := newFixture(t)
	f.write(t, "docs/guide/intro.md", "text\n")

	plan := f.push(t, Options{Mode: config.ModeHierarchy})

	// Plan orders directories first, top-down.
	var order []string
	for _, item := range plan.Items {
		order = append(order, item.RelPath)
	}
	if order[0] != "docs" || order[1] != "docs/guide" {
		t.Errorf("plan order = %v, want directories top-down first", order)
	}

	dirRec := f.idx.Get("docs/guide")
	fileRec := f.idx.Get("docs/guide/intro.md")
	if dirRec == nil || fileRec == nil {
		t.Fatal("records missing after push")
	}
	if dirRec.Kind != index.KindDirectory {
		t.Errorf("dir kind = %s", dirRec.Kind)
	}
	if fileRec.ParentID != dirRec.PageID {
		t.Errorf("file parent = %q, want directory page %q", fileRec.ParentID, dirRec.PageID)
	}
	if f.fake.Pages[dirRec.PageID].Page.IconEmoji != "📁" {
		t.Error("directory page missing folder icon")
	}
}

func TestPush_SkipsIgnoredHiddenAndImages(t *testing.T) {
	f := newFixture(t)
	f.write(t, "keep.md", "x\n")
	f.write(t, "skip.log", "y\n")
	f.write(t, "logo.png", "binary")
	f.write(t, ".c2n/index.yaml", "")
	f.ign = index.NewMatcher([]string{"*.log"})

	plan := f.push(t, Options{Mode: config.ModeHierarchy})
	for _, item := range plan.Items {
		if item.RelPath != "keep.md" {
			t.Errorf("unexpected plan item %s", item.RelPath)
		}
	}
}

func TestPush_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha\n")

	f.push(t, Options{Mode: config.ModeHierarchy, DryRun: true})
	if f.fake.Writes != 0 {
		t.Errorf("dry run issued %d remote writes", f.fake.Writes)
	}
	if f.idx.Get("a.md") != nil {
		t.Error("dry run created an index record")
	}
}

func TestPush_ForceAllUpdatesUnchanged(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha\n")
	f.push(t, Options{Mode: config.ModeHierarchy})

	plan, err := BuildPlan(f.dir, f.idx, f.ign, f.fsc, Options{Mode: config.ModeHierarchy, ForceAll: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Files()[0].Action; got != UpdateFile {
		t.Errorf("action = %s, want forced update", got)
	}
}

func TestPush_ItemFailureDoesNotAbortWalk(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bad.md", "x\n")
	f.write(t, "good.md", "y\n")
	f.push(t, Options{Mode: config.ModeHierarchy})

	// Make one page fail on the next update.
	badRec := f.idx.Get("bad.md")
	f.fake.FailWith[badRec.PageID] = errTest

	f.write(t, "bad.md", "x2\n")
	f.write(t, "good.md", "y2\n")
	f.push(t, Options{Mode: config.ModeHierarchy})

	goodRec := f.idx.Get("good.md")
	if got := markdown.FromBlocks(f.fake.Pages[goodRec.PageID].Blocks); got != "y2\n" {
		t.Errorf("good item not pushed after sibling failure: %q", got)
	}
	if !f.rep.Failed() {
		t.Error("report does not reflect the failed item")
	}
	// The failed item's hash must stay stale so the next push retries it.
	if f.idx.Get("bad.md").ContentSHA1 == index.Sha1Bytes([]byte("x2\n")) {
		t.Error("failed item recorded as synced")
	}
}

func TestPush_CodeFileSingleBlock(t *testing.T) {
	f := newFixture(t)
	f.write(t, "conf.yaml", "a: 1\n")
	f.push(t, Options{Mode: config.ModeHierarchy})

	rec := f.idx.Get("conf.yaml")
	page := f.fake.Pages[rec.PageID]
	if len(page.Blocks) != 1 || page.Blocks[0].Code == nil {
		t.Fatalf("blocks = %+v, want single code block", page.Blocks)
	}
	if page.Blocks[0].Code.Language != "yaml" {
		t.Errorf("language = %q", page.Blocks[0].Code.Language)
	}
	if page.Page.Title != "conf.yaml" {
		t.Errorf("code file title = %q, want extension kept", page.Page.Title)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "injected failure" }
