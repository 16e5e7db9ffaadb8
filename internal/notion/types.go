// Package notion is a thin typed wrapper over the Notion HTTP API: pages,
// block children, and the handful of mutations the sync engines need. List
// endpoints always exhaust their continuation cursors; transient failures
// retry with backoff; a global limiter keeps the whole process inside the
// upstream rate limit.
package notion

import "encoding/json"

// Block type names as they appear on the wire.
const (
	TypeParagraph        = "paragraph"
	TypeHeading1         = "heading_1"
	TypeHeading2         = "heading_2"
	TypeHeading3         = "heading_3"
	TypeBulletedListItem = "bulleted_list_item"
	TypeNumberedListItem = "numbered_list_item"
	TypeQuote            = "quote"
	TypeCode             = "code"
	TypeDivider          = "divider"
	TypeTable            = "table"
	TypeTableRow         = "table_row"
	TypeImage            = "image"
	TypeChildPage        = "child_page"
)

// Page icons used by the projection: folders and plain documents.
const (
	IconFolder = "📁"
	IconFile   = "📄"
)

// RichText is one styled text run.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
}

// TextContent is the content payload of a text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is an inline hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// Annotations are the inline style flags.
type Annotations struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Color         string `json:"color,omitempty"`
}

// Text builds a plain text run.
func Text(content string) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: content}}
}

// Content returns the raw text of a run, preferring the typed payload over
// plain_text.
func (r RichText) Content() string {
	if r.Text != nil {
		return r.Text.Content
	}
	return r.PlainText
}

// Block is the union of the block kinds this tool understands. Exactly one
// of the kind pointers is set, matching Type.
type Block struct {
	Object      string `json:"object,omitempty"`
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children,omitempty"`

	Paragraph        *TextBlock     `json:"paragraph,omitempty"`
	Heading1         *TextBlock     `json:"heading_1,omitempty"`
	Heading2         *TextBlock     `json:"heading_2,omitempty"`
	Heading3         *TextBlock     `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock     `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock     `json:"numbered_list_item,omitempty"`
	Quote            *TextBlock     `json:"quote,omitempty"`
	Code             *CodeBlock     `json:"code,omitempty"`
	Divider          *struct{}      `json:"divider,omitempty"`
	Table            *TableBlock    `json:"table,omitempty"`
	TableRow         *TableRowBlock `json:"table_row,omitempty"`
	Image            *FileBlock     `json:"image,omitempty"`
	ChildPage        *ChildPage     `json:"child_page,omitempty"`
}

// TextBlock is the shared shape of paragraph, heading, list and quote
// payloads.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Children []Block    `json:"children,omitempty"`
}

// CodeBlock is a fenced code payload.
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// TableBlock is a table payload; rows travel as children.
type TableBlock struct {
	TableWidth      int     `json:"table_width"`
	HasColumnHeader bool    `json:"has_column_header"`
	HasRowHeader    bool    `json:"has_row_header"`
	Children        []Block `json:"children,omitempty"`
}

// TableRowBlock is one table row.
type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}

// FileBlock covers image payloads, external or Notion-hosted.
type FileBlock struct {
	Type     string        `json:"type,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
	Caption  []RichText    `json:"caption,omitempty"`
}

// URL returns the image location regardless of hosting.
func (f *FileBlock) URL() string {
	if f.External != nil {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

// ExternalFile is an externally hosted file reference.
type ExternalFile struct {
	URL string `json:"url"`
}

// HostedFile is a Notion-hosted file reference with an expiring URL.
type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// ChildPage is the block stub Notion returns for a subpage.
type ChildPage struct {
	Title string `json:"title"`
}

// Payload returns the TextBlock payload for the text-shaped kinds, nil for
// everything else.
func (b *Block) Payload() *TextBlock {
	switch b.Type {
	case TypeParagraph:
		return b.Paragraph
	case TypeHeading1:
		return b.Heading1
	case TypeHeading2:
		return b.Heading2
	case TypeHeading3:
		return b.Heading3
	case TypeBulletedListItem:
		return b.BulletedListItem
	case TypeNumberedListItem:
		return b.NumberedListItem
	case TypeQuote:
		return b.Quote
	}
	return nil
}

// Page is the page metadata the engines use.
type Page struct {
	ID             string
	URL            string
	Title          string
	ParentID       string
	ParentType     string
	IconEmoji      string
	LastEditedTime string
	Archived       bool
}

// pageWire is the raw page object.
type pageWire struct {
	Object         string `json:"object"`
	ID             string `json:"id"`
	URL            string `json:"url"`
	Archived       bool   `json:"archived"`
	LastEditedTime string `json:"last_edited_time"`
	Parent         struct {
		Type       string `json:"type"`
		PageID     string `json:"page_id"`
		DatabaseID string `json:"database_id"`
		Workspace  bool   `json:"workspace"`
	} `json:"parent"`
	Icon *struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	} `json:"icon"`
	Properties map[string]struct {
		Type  string     `json:"type"`
		Title []RichText `json:"title"`
	} `json:"properties"`
}

func (w *pageWire) toPage() *Page {
	p := &Page{
		ID:             w.ID,
		URL:            w.URL,
		Archived:       w.Archived,
		LastEditedTime: w.LastEditedTime,
		ParentType:     w.Parent.Type,
	}
	switch w.Parent.Type {
	case "page_id":
		p.ParentID = w.Parent.PageID
	case "database_id":
		p.ParentID = w.Parent.DatabaseID
	}
	if w.Icon != nil && w.Icon.Type == "emoji" {
		p.IconEmoji = w.Icon.Emoji
	}
	for _, prop := range w.Properties {
		if prop.Type == "title" {
			for _, rt := range prop.Title {
				p.Title += rt.Content()
			}
			break
		}
	}
	return p
}

// listWire is the shared paginated envelope.
type listWire struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}
