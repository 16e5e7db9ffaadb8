package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

// FromBlocks renders remote blocks to Markdown. The output is canonical:
// equal block inputs always produce identical bytes, which keeps hash-based
// change detection quiet across round trips.
func FromBlocks(blocks []notion.Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		text := renderBlock(&blk, 0)
		if text == "" && blk.Type != notion.TypeParagraph {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func renderBlock(b *notion.Block, depth int) string {
	switch b.Type {
	case notion.TypeHeading1:
		return "# " + renderRuns(b.Heading1.RichText)
	case notion.TypeHeading2:
		return "## " + renderRuns(b.Heading2.RichText)
	case notion.TypeHeading3:
		return "### " + renderRuns(b.Heading3.RichText)
	case notion.TypeParagraph:
		return renderParagraph(b.Paragraph)
	case notion.TypeBulletedListItem:
		return renderListItem(b.BulletedListItem, "- ", depth)
	case notion.TypeNumberedListItem:
		return renderListItem(b.NumberedListItem, "1. ", depth)
	case notion.TypeQuote:
		return "> " + renderRuns(b.Quote.RichText)
	case notion.TypeCode:
		return renderCode(b.Code)
	case notion.TypeDivider:
		return "---"
	case notion.TypeTable:
		return renderTable(b.Table)
	case notion.TypeImage:
		return renderImage(b.Image)
	case notion.TypeChildPage:
		// Subpages are files or directories of their own, never inline
		// content.
		return ""
	default:
		return fmt.Sprintf("<!-- Unsupported block type: %s -->", b.Type)
	}
}

// renderParagraph restores deep headings from their (h_N) marker encoding;
// everything else renders as inline runs.
func renderParagraph(p *notion.TextBlock) string {
	if len(p.RichText) == 1 {
		run := p.RichText[0]
		if run.Annotations != nil && run.Annotations.Bold {
			if m := headingMarker.FindStringSubmatch(run.Content()); m != nil {
				level, _ := strconv.Atoi(m[1])
				return strings.Repeat("#", level) + " " + run.Content()[len(m[0]):]
			}
		}
	}
	return renderRuns(p.RichText)
}

func renderListItem(p *notion.TextBlock, marker string, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(marker)
	b.WriteString(renderRuns(p.RichText))
	for i := range p.Children {
		b.WriteString("\n")
		b.WriteString(renderBlock(&p.Children[i], depth+1))
	}
	return b.String()
}

func renderCode(c *notion.CodeBlock) string {
	return "```" + fenceTag(c.Language) + "\n" + plainText(c.RichText) + "\n```"
}

func renderTable(t *notion.TableBlock) string {
	if len(t.Children) == 0 {
		return ""
	}
	var lines []string
	for i, row := range t.Children {
		if row.TableRow == nil {
			continue
		}
		cells := make([]string, len(row.TableRow.Cells))
		for j, cell := range row.TableRow.Cells {
			cells[j] = plainText(cell)
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			seps := make([]string, len(cells))
			for j := range seps {
				seps[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

func renderImage(img *notion.FileBlock) string {
	return "![" + plainText(img.Caption) + "](" + img.URL() + ")"
}
