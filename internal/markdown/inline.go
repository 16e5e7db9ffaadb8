package markdown

import (
	"regexp"
	"strings"

	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

// Rich-text limits. The remote rejects text content above hardLimit; runs
// are cut at chunkLimit, but a final remainder that still fits under the
// hard limit is kept whole rather than split again.
const (
	chunkLimit = 1800
	hardLimit  = 2000
)

var linkPattern = regexp.MustCompile(`^\[([^\]]*)\]\((https?://[^)\s]+)\)`)

// parseInline tokenizes one line of Markdown into styled runs. Supported:
// **bold**, *italic*, `code`, [text](url). Unterminated markers fall back
// to literal text.
func parseInline(s string) []notion.RichText {
	var runs []notion.RichText
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			runs = append(runs, notion.Text(plain.String()))
			plain.Reset()
		}
	}
	styled := func(content string, ann notion.Annotations) {
		flush()
		rt := notion.Text(content)
		a := ann
		rt.Annotations = &a
		runs = append(runs, rt)
	}

	i := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "**"):
			end := strings.Index(s[i+2:], "**")
			if end < 0 {
				plain.WriteString(s[i:])
				i = len(s)
				continue
			}
			styled(s[i+2:i+2+end], notion.Annotations{Bold: true})
			i += 2 + end + 2
		case s[i] == '*':
			end := strings.IndexByte(s[i+1:], '*')
			if end < 0 {
				plain.WriteString(s[i:])
				i = len(s)
				continue
			}
			styled(s[i+1:i+1+end], notion.Annotations{Italic: true})
			i += 1 + end + 1
		case s[i] == '`':
			end := strings.IndexByte(s[i+1:], '`')
			if end < 0 {
				plain.WriteString(s[i:])
				i = len(s)
				continue
			}
			styled(s[i+1:i+1+end], notion.Annotations{Code: true})
			i += 1 + end + 1
		case s[i] == '[':
			m := linkPattern.FindStringSubmatch(s[i:])
			if m == nil {
				plain.WriteByte(s[i])
				i++
				continue
			}
			flush()
			rt := notion.Text(m[1])
			rt.Text.Link = &notion.Link{URL: m[2]}
			runs = append(runs, rt)
			i += len(m[0])
		default:
			plain.WriteByte(s[i])
			i++
		}
	}
	flush()
	if runs == nil {
		runs = []notion.RichText{notion.Text("")}
	}
	return runs
}

// renderRuns is the inverse of parseInline.
func renderRuns(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		content := r.Content()
		if r.Text != nil && r.Text.Link != nil {
			b.WriteString("[" + content + "](" + r.Text.Link.URL + ")")
			continue
		}
		if a := r.Annotations; a != nil {
			switch {
			case a.Code:
				content = "`" + content + "`"
			case a.Bold:
				content = "**" + content + "**"
			case a.Italic:
				content = "*" + content + "*"
			}
		}
		b.WriteString(content)
	}
	return b.String()
}

// plainText concatenates run contents without style markers.
func plainText(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Content())
	}
	return b.String()
}

// chunkRuns splits text into plain runs of at most chunkLimit characters,
// except that a final remainder still under hardLimit stays whole. Byte
// order is preserved exactly.
func chunkRuns(s string) []notion.RichText {
	if s == "" {
		return []notion.RichText{notion.Text("")}
	}
	var runs []notion.RichText
	for len(s) > chunkLimit {
		if len(s) <= hardLimit {
			break
		}
		runs = append(runs, notion.Text(s[:chunkLimit]))
		s = s[chunkLimit:]
	}
	runs = append(runs, notion.Text(s))
	return runs
}
