package markdown

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

var (
	numberedItemPattern = regexp.MustCompile(`^\s*\d+\.\s+`)
	headingMarker       = regexp.MustCompile(`^\(h_(\d+)\) `)
)

// FileToBlocks converts a local file into remote blocks. Files with a code
// extension become a single code block in the matching language; Markdown
// files run through the full converter.
func FileToBlocks(relPath string, content []byte) []notion.Block {
	ext := filepath.Ext(relPath)
	if lang, ok := CodeLanguageForExt(ext); ok {
		return []notion.Block{{
			Object: "block",
			Type:   notion.TypeCode,
			Code:   &notion.CodeBlock{RichText: chunkRuns(string(content)), Language: lang},
		}}
	}
	return ToBlocks(string(content))
}

// FileFromBlocks is the inverse of FileToBlocks: code-file pages render to
// their raw content, Markdown pages through the full renderer.
func FileFromBlocks(relPath string, blocks []notion.Block) string {
	if _, ok := CodeLanguageForExt(filepath.Ext(relPath)); ok {
		if len(blocks) == 1 && blocks[0].Type == notion.TypeCode {
			return plainText(blocks[0].Code.RichText)
		}
	}
	return FromBlocks(blocks)
}

// ToBlocks converts Markdown to remote blocks. YAML front-matter is
// stripped first; it carries sync metadata, not content.
func ToBlocks(md string) []notion.Block {
	lines := stripFrontMatter(strings.Split(md, "\n"))

	var blocks []notion.Block
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		switch {
		case line == "":
			i++
		case strings.HasPrefix(line, "#"):
			blocks = append(blocks, headingBlock(line))
			i++
		case isListStart(lines[i]):
			items, next := parseList(lines, i)
			blocks = append(blocks, items...)
			i = next
		case strings.HasPrefix(line, "```"):
			block, next := parseCodeFence(lines, i)
			blocks = append(blocks, block)
			i = next
		case line == "---" || line == "***" || line == "___":
			blocks = append(blocks, notion.Block{Object: "block", Type: notion.TypeDivider, Divider: &struct{}{}})
			i++
		case strings.Contains(line, "|") && isTableStart(lines, i):
			block, next := parseTable(lines, i)
			blocks = append(blocks, block)
			i = next
		case strings.HasPrefix(line, "> "):
			blocks = append(blocks, notion.Block{
				Object: "block",
				Type:   notion.TypeQuote,
				Quote:  &notion.TextBlock{RichText: parseInline(line[2:])},
			})
			i++
		case isImageLine(line):
			blocks = append(blocks, imageBlock(line))
			i++
		default:
			blocks = append(blocks, paragraphBlock(line))
			i++
		}
	}
	return blocks
}

// stripFrontMatter drops a leading --- ... --- document header.
func stripFrontMatter(lines []string) []string {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return lines
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[i+1:]
		}
	}
	return lines
}

// headingBlock maps # levels 1-3 to heading blocks. Deeper levels have no
// remote equivalent; they encode as bold paragraphs carrying an (h_N)
// marker so rendering can restore them.
func headingBlock(line string) notion.Block {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	content := strings.TrimSpace(line[level:])
	payload := &notion.TextBlock{RichText: parseInline(content)}
	switch level {
	case 1:
		return notion.Block{Object: "block", Type: notion.TypeHeading1, Heading1: payload}
	case 2:
		return notion.Block{Object: "block", Type: notion.TypeHeading2, Heading2: payload}
	case 3:
		return notion.Block{Object: "block", Type: notion.TypeHeading3, Heading3: payload}
	}
	rt := notion.Text(fmt.Sprintf("(h_%d) %s", level, content))
	rt.Annotations = &notion.Annotations{Bold: true}
	return notion.Block{
		Object:    "block",
		Type:      notion.TypeParagraph,
		Paragraph: &notion.TextBlock{RichText: []notion.RichText{rt}},
	}
}

func paragraphBlock(line string) notion.Block {
	runs := parseInline(line)
	// Oversized single-run paragraphs must be re-cut for the remote limit.
	if len(runs) == 1 && runs[0].Annotations == nil && len(runs[0].Content()) > hardLimit {
		runs = chunkRuns(runs[0].Content())
	}
	return notion.Block{
		Object:    "block",
		Type:      notion.TypeParagraph,
		Paragraph: &notion.TextBlock{RichText: runs},
	}
}

func isListStart(line string) bool {
	t := strings.TrimLeft(line, " ")
	return strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") ||
		numberedItemPattern.MatchString(line)
}

// parseList consumes consecutive list lines, nesting items by 2-space
// indentation into the Children of their parent item.
func parseList(lines []string, start int) ([]notion.Block, int) {
	var out []notion.Block
	var stack []*notion.Block

	i := start
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		if line == "" || !isListStart(line) {
			break
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		level := indent / 2
		trimmed := strings.TrimLeft(line, " ")

		var item notion.Block
		if numberedItemPattern.MatchString(trimmed) {
			content := numberedItemPattern.ReplaceAllString(trimmed, "")
			item = notion.Block{
				Object:           "block",
				Type:             notion.TypeNumberedListItem,
				NumberedListItem: &notion.TextBlock{RichText: parseInline(content)},
			}
		} else {
			content := strings.TrimPrefix(strings.TrimPrefix(trimmed, "- "), "* ")
			item = notion.Block{
				Object:           "block",
				Type:             notion.TypeBulletedListItem,
				BulletedListItem: &notion.TextBlock{RichText: parseInline(content)},
			}
		}

		if level > len(stack) {
			level = len(stack)
		}
		stack = stack[:level]
		if len(stack) == 0 {
			out = append(out, item)
			stack = append(stack, &out[len(out)-1])
		} else {
			parent := stack[len(stack)-1].Payload()
			parent.Children = append(parent.Children, item)
			stack = append(stack, &parent.Children[len(parent.Children)-1])
		}
		i++
	}
	return out, i
}

// parseCodeFence consumes a ``` fence into one code block. Oversized
// content is carried as multiple rich-text segments within the same block.
func parseCodeFence(lines []string, start int) (notion.Block, int) {
	tag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[start]), "```"))
	language := normalizeFenceLang(tag)

	var code []string
	i := start + 1
	for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
		code = append(code, lines[i])
		i++
	}
	if i < len(lines) {
		i++ // closing fence
	}
	return notion.Block{
		Object: "block",
		Type:   notion.TypeCode,
		Code: &notion.CodeBlock{
			RichText: chunkRuns(strings.Join(code, "\n")),
			Language: language,
		},
	}, i
}

// isTableStart requires a pipe row followed by a separator row of dashes.
func isTableStart(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	sep := strings.TrimSpace(lines[i+1])
	if !strings.Contains(sep, "|") {
		return false
	}
	cells := splitTableRow(sep)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if c == "" || strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// parseTable consumes a GFM table into a table block whose rows travel as
// children, header first.
func parseTable(lines []string, start int) (notion.Block, int) {
	header := splitTableRow(lines[start])
	width := len(header)

	rows := []notion.Block{tableRow(header, width)}
	i := start + 2 // skip separator
	for i < len(lines) && strings.Contains(lines[i], "|") {
		cells := splitTableRow(lines[i])
		rows = append(rows, tableRow(cells, width))
		i++
	}

	return notion.Block{
		Object: "block",
		Type:   notion.TypeTable,
		Table: &notion.TableBlock{
			TableWidth:      width,
			HasColumnHeader: true,
			Children:        rows,
		},
	}, i
}

func tableRow(cells []string, width int) notion.Block {
	padded := make([][]notion.RichText, width)
	for i := 0; i < width; i++ {
		if i < len(cells) {
			padded[i] = []notion.RichText{notion.Text(cells[i])}
		} else {
			padded[i] = []notion.RichText{notion.Text("")}
		}
	}
	return notion.Block{
		Object:   "block",
		Type:     notion.TypeTableRow,
		TableRow: &notion.TableRowBlock{Cells: padded},
	}
}

var imagePattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)\)$`)

func isImageLine(line string) bool {
	m := imagePattern.FindStringSubmatch(line)
	return m != nil && strings.HasPrefix(m[2], "http")
}

func imageBlock(line string) notion.Block {
	m := imagePattern.FindStringSubmatch(line)
	fb := &notion.FileBlock{
		Type:     "external",
		External: &notion.ExternalFile{URL: m[2]},
	}
	if m[1] != "" {
		fb.Caption = []notion.RichText{notion.Text(m[1])}
	}
	return notion.Block{Object: "block", Type: notion.TypeImage, Image: fb}
}
