package markdown

import (
	"strings"
	"testing"

	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

func TestToBlocks_Empty(t *testing.T) {
	if got := ToBlocks(""); len(got) != 0 {
		t.Errorf("ToBlocks(\"\") = %d blocks, want 0", len(got))
	}
	if got := ToBlocks("   \n\n  \t  \n  "); len(got) != 0 {
		t.Errorf("whitespace-only input = %d blocks, want 0", len(got))
	}
}

func TestToBlocks_FrontMatterStripped(t *testing.T) {
	md := "---\ntitle: Test Document\n---\n\n# Main Title\n\nBody text.\n"
	blocks := ToBlocks(md)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Type != notion.TypeHeading1 {
		t.Errorf("first block = %s", blocks[0].Type)
	}
	if blocks[0].Heading1.RichText[0].Content() != "Main Title" {
		t.Errorf("heading content = %q", blocks[0].Heading1.RichText[0].Content())
	}
}

func TestToBlocks_Headings(t *testing.T) {
	blocks := ToBlocks("# H1\n## H2\n### H3\n#### H4\n")
	if len(blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(blocks))
	}
	wantTypes := []string{notion.TypeHeading1, notion.TypeHeading2, notion.TypeHeading3, notion.TypeParagraph}
	for i, w := range wantTypes {
		if blocks[i].Type != w {
			t.Errorf("block %d type = %s, want %s", i, blocks[i].Type, w)
		}
	}
	// H4 carries the marker and the bold annotation.
	run := blocks[3].Paragraph.RichText[0]
	if !strings.HasPrefix(run.Content(), "(h_4) H4") {
		t.Errorf("H4 content = %q", run.Content())
	}
	if run.Annotations == nil || !run.Annotations.Bold {
		t.Error("H4 paragraph not bold")
	}
}

func TestToBlocks_Lists(t *testing.T) {
	blocks := ToBlocks("- one\n- two\n  - nested\n1. first\n")
	if len(blocks) != 3 {
		t.Fatalf("got %d top-level blocks, want 3: %+v", len(blocks), blocks)
	}
	if blocks[0].Type != notion.TypeBulletedListItem || blocks[1].Type != notion.TypeBulletedListItem {
		t.Errorf("types = %s, %s", blocks[0].Type, blocks[1].Type)
	}
	kids := blocks[1].BulletedListItem.Children
	if len(kids) != 1 || kids[0].BulletedListItem.RichText[0].Content() != "nested" {
		t.Errorf("nested item lost: %+v", kids)
	}
	if blocks[2].Type != notion.TypeNumberedListItem {
		t.Errorf("numbered item type = %s", blocks[2].Type)
	}
}

func TestToBlocks_CodeFence(t *testing.T) {
	blocks := ToBlocks("```py\nprint(1)\nprint(2)\n```\n")
	if len(blocks) != 1 || blocks[0].Type != notion.TypeCode {
		t.Fatalf("blocks = %+v", blocks)
	}
	code := blocks[0].Code
	if code.Language != "python" {
		t.Errorf("language = %q, want python (alias mapped)", code.Language)
	}
	if got := plainText(code.RichText); got != "print(1)\nprint(2)" {
		t.Errorf("code content = %q", got)
	}
}

func TestToBlocks_UnknownFenceLangFallsBack(t *testing.T) {
	blocks := ToBlocks("```klingon\nqapla\n```\n")
	if blocks[0].Code.Language != "plain text" {
		t.Errorf("language = %q, want plain text", blocks[0].Code.Language)
	}
}

func TestToBlocks_Table(t *testing.T) {
	md := "| Name | Age |\n| --- | --- |\n| Ana | 3 |\n"
	blocks := ToBlocks(md)
	if len(blocks) != 1 || blocks[0].Type != notion.TypeTable {
		t.Fatalf("blocks = %+v", blocks)
	}
	tb := blocks[0].Table
	if tb.TableWidth != 2 || !tb.HasColumnHeader {
		t.Errorf("table meta = %+v", tb)
	}
	if len(tb.Children) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(tb.Children))
	}
	if tb.Children[1].TableRow.Cells[0][0].Content() != "Ana" {
		t.Errorf("cell = %q", tb.Children[1].TableRow.Cells[0][0].Content())
	}
}

func TestToBlocks_PipeWithoutSeparatorIsParagraph(t *testing.T) {
	blocks := ToBlocks("a | b\nplain\n")
	if blocks[0].Type != notion.TypeParagraph {
		t.Errorf("lone pipe line type = %s, want paragraph", blocks[0].Type)
	}
}

func TestParseInline_Runs(t *testing.T) {
	runs := parseInline("plain **bold** and *it* and `code` and [x](https://e.com)")
	var kinds []string
	for _, r := range runs {
		switch {
		case r.Text.Link != nil:
			kinds = append(kinds, "link")
		case r.Annotations == nil:
			kinds = append(kinds, "plain")
		case r.Annotations.Bold:
			kinds = append(kinds, "bold")
		case r.Annotations.Italic:
			kinds = append(kinds, "italic")
		case r.Annotations.Code:
			kinds = append(kinds, "code")
		}
	}
	want := []string{"plain", "bold", "plain", "italic", "plain", "code", "plain", "link"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("run kinds = %v, want %v", kinds, want)
	}
}

func TestFileToBlocks_CodeFile(t *testing.T) {
	blocks := FileToBlocks("conf/app.yaml", []byte("a: 1\nb: 2\n"))
	if len(blocks) != 1 || blocks[0].Type != notion.TypeCode {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Code.Language != "yaml" {
		t.Errorf("language = %q", blocks[0].Code.Language)
	}
	if got := plainText(blocks[0].Code.RichText); got != "a: 1\nb: 2\n" {
		t.Errorf("content = %q, want raw bytes preserved", got)
	}
}

func TestFileToBlocks_Chunking3631(t *testing.T) {
	content := strings.Repeat("x", 3631)
	blocks := FileToBlocks("big.yaml", []byte(content))
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	runs := blocks[0].Code.RichText
	if len(runs) != 2 {
		t.Fatalf("got %d segments, want 2", len(runs))
	}
	if len(runs[0].Content()) != 1800 || len(runs[1].Content()) != 1831 {
		t.Errorf("segment lengths = %d, %d; want 1800, 1831",
			len(runs[0].Content()), len(runs[1].Content()))
	}
	if runs[0].Content()+runs[1].Content() != content {
		t.Error("byte order not preserved across segments")
	}
}

func TestChunkRuns_Boundaries(t *testing.T) {
	tests := []struct {
		size int
		want []int
	}{
		{0, []int{0}},
		{1800, []int{1800}},
		{2000, []int{2000}},
		{2001, []int{1800, 201}},
		{4000, []int{1800, 1800, 400}},
	}
	for _, tt := range tests {
		runs := chunkRuns(strings.Repeat("a", tt.size))
		var got []int
		for _, r := range runs {
			got = append(got, len(r.Content()))
		}
		if len(got) != len(tt.want) {
			t.Errorf("size %d: segments = %v, want %v", tt.size, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("size %d: segments = %v, want %v", tt.size, got, tt.want)
				break
			}
		}
	}
}

func TestFileFromBlocks_CodeFileInverse(t *testing.T) {
	content := []byte("server:\n  port: 8080\n")
	blocks := FileToBlocks("svc.yml", content)
	if got := FileFromBlocks("svc.yml", blocks); got != string(content) {
		t.Errorf("round trip = %q, want %q", got, content)
	}
}
