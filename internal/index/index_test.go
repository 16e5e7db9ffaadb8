package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeIndex(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, MetaDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(dir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 for missing index", s.Len())
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "items: [unclosed\n")

	s, err := Load(dir)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load error = %v, want ErrCorrupt", err)
	}
	if err := s.Save(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Save on corrupt store = %v, want ErrCorrupt", err)
	}
}

func TestPut_HierarchyParentInvariant(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Put("docs/readme.md", &Record{Kind: KindFile, PageID: "x"})
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Put without parent = %v, want ErrInvariantViolation", err)
	}

	if err := s.Put("docs", &Record{Kind: KindDirectory, PageID: "d"}); err != nil {
		t.Fatalf("Put directory failed: %v", err)
	}
	if err := s.Put("docs/readme.md", &Record{Kind: KindFile, PageID: "x"}); err != nil {
		t.Fatalf("Put with parent failed: %v", err)
	}

	// Flat-mode records never need a parent record.
	if err := s.Put("note.md", &Record{Kind: KindPage, PageID: "p"}); err != nil {
		t.Fatalf("Put flat page failed: %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.SetRootPageURL("https://www.notion.so/27db35c4e5fa4a8f9b1c0d2e3f405162")
	if err := s.Put("docs", &Record{
		Kind:    KindDirectory,
		Title:   "docs",
		PageID:  "11111111-2222-4333-8444-555555555555",
		PageURL: "https://www.notion.so/11111111222243338444555555555555",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("docs/a.md", &Record{
		Kind:             KindFile,
		Title:            "a",
		PageID:           "66666666-7777-4888-9999-aaaaaaaaaaaa",
		PageURL:          "https://www.notion.so/666666667777488899990aaaaaaaaaaa",
		ParentID:         "11111111-2222-4333-8444-555555555555",
		ContentSHA1:      "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		LocalMtimeNS:     1700000000123456789,
		RemoteLastEdited: "2026-01-02T03:04:05.000Z",
		LastSyncAt:       "2026-01-02T03:04:06Z",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2, err := Load(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if s2.RootPageURL() != s.RootPageURL() {
		t.Errorf("root_page_url = %q, want %q", s2.RootPageURL(), s.RootPageURL())
	}
	r := s2.Get("docs/a.md")
	if r == nil {
		t.Fatal("record docs/a.md lost in round trip")
	}
	if r.Kind != KindFile || r.ContentSHA1 != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Errorf("record fields lost: %+v", r)
	}
	if r.LocalMtimeNS != 1700000000123456789 {
		t.Errorf("local_mtime_ns = %d", r.LocalMtimeNS)
	}
	if r.RemoteLastEdited != "2026-01-02T03:04:05.000Z" {
		t.Errorf("remote_last_edited = %q, want verbatim server string", r.RemoteLastEdited)
	}
}

func TestSave_Deterministic(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Insert in reverse order; serialization must still sort by path.
	for _, p := range []string{"zz.md", "aa.md", "mm.md"} {
		if err := s.Put(p, &Record{Kind: KindPage, PageID: p, PageURL: "u"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("two saves of the same index differ")
	}
	aa := strings.Index(string(first), "aa.md")
	zz := strings.Index(string(first), "zz.md")
	if aa < 0 || zz < 0 || aa > zz {
		t.Errorf("items not sorted by path:\n%s", first)
	}
}

func TestSave_PreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, `version: 1
root_page_url: ""
items:
  a.md:
    kind: page
    page_id: 11111111-2222-4333-8444-555555555555
    page_url: https://www.notion.so/11111111222243338444555555555555
    future_field: keep me
`)
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "future_field: keep me") {
		t.Errorf("unknown key dropped on save:\n%s", data)
	}
}

func TestSave_EmptyRootURLKept(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "root_page_url") {
		t.Errorf("root_page_url missing from saved index:\n%s", data)
	}
}

func TestSha1Bytes(t *testing.T) {
	// Digest of "# Hi\nhello\n": 40 hex chars, stable, newline-sensitive.
	got := Sha1Bytes([]byte("# Hi\nhello\n"))
	if len(got) != 40 {
		t.Fatalf("digest length = %d, want 40", len(got))
	}
	if got != Sha1Bytes([]byte("# Hi\nhello\n")) {
		t.Error("digest not deterministic")
	}
	if got == Sha1Bytes([]byte("# Hi\nhello")) {
		t.Error("digest ignores trailing newline")
	}
}
