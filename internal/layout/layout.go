// Package layout maps the remote page tree onto local paths under the two
// sync modes. Hierarchy mode mirrors the tree as directories and files;
// flat mode puts every page at the project root and encodes the tree in
// front-matter.
package layout

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/livyn-inc/cursor-to-notion/internal/cache"
	"github.com/livyn-inc/cursor-to-notion/internal/markdown"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

// SanitizeTitle makes a page title safe as a filesystem name: path
// separators become spaces, control characters are dropped, whitespace
// collapses to single spaces, and the result is NFC-normalized so the same title always
// produces the same file name.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(title)
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == 0:
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
			// control characters dropped
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		cleaned = "Untitled"
	}
	return cleaned
}

// IsDirectoryPage decides whether a remote page projects to a local
// directory in hierarchy mode: pages marked with the folder icon, or pages
// that have child pages and no inline content of their own.
func IsDirectoryPage(p *notion.Page, blocks []notion.Block) bool {
	if p.IconEmoji == notion.IconFolder {
		return true
	}
	hasChildPages := false
	for _, b := range blocks {
		if b.Type == notion.TypeChildPage {
			hasChildPages = true
			continue
		}
		return false // inline content present
	}
	return hasChildPages
}

// TitleForFile derives the remote page title from a file name. Markdown
// files drop their extension; code files keep it so the pull side can
// reconstruct the exact file name.
func TitleForFile(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".md") {
		return name[:len(name)-len(".md")]
	}
	return name
}

// FileNameForTitle is the inverse of TitleForFile: titles carrying a code
// extension stay verbatim, everything else gets .md.
func FileNameForTitle(title string) string {
	if _, ok := markdown.CodeLanguageForExt(path.Ext(title)); ok {
		return title
	}
	return title + ".md"
}

// HierarchyPath computes the local relative path for a remote page given
// its parent's relative path ("" for the project root).
func HierarchyPath(parentRel, title string, isDir bool) string {
	name := SanitizeTitle(title)
	if !isDir {
		name = FileNameForTitle(name)
	}
	if parentRel == "" {
		return name
	}
	return parentRel + "/" + name
}

// FlatPath computes the flat-mode file name for a page.
func FlatPath(title string) string {
	return FileNameForTitle(SanitizeTitle(title))
}

// FlatSnapshotPath resolves where a snapshot page lands locally in flat
// mode, ignoring its position in the tree.
func FlatSnapshotPath(p *cache.RemotePage) string {
	return FlatPath(p.Title)
}
