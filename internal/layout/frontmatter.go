package layout

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the flat-mode sync header. Key order in the rendered form
// is part of the on-disk contract and must not change.
type FrontMatter struct {
	PageID      string   `yaml:"page_id"`
	PageURL     string   `yaml:"page_url"`
	ParentID    string   `yaml:"parent_id"`
	ParentType  string   `yaml:"parent_type"`
	ChildrenIDs []string `yaml:"children_ids"`
	SyncMode    string   `yaml:"sync_mode"`
}

// Render emits the front-matter block with fixed key order.
func (fm *FrontMatter) Render() string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "page_id: %s\n", fm.PageID)
	fmt.Fprintf(&b, "page_url: %s\n", fm.PageURL)
	fmt.Fprintf(&b, "parent_id: %s\n", fm.ParentID)
	fmt.Fprintf(&b, "parent_type: %s\n", fm.ParentType)
	if len(fm.ChildrenIDs) == 0 {
		b.WriteString("children_ids: []\n")
	} else {
		fmt.Fprintf(&b, "children_ids: [%s]\n", strings.Join(fm.ChildrenIDs, ", "))
	}
	fmt.Fprintf(&b, "sync_mode: %s\n", fm.SyncMode)
	b.WriteString("---\n")
	return b.String()
}

// ParseFrontMatter extracts the sync header from flat-mode file content.
// Returns nil when the file has no front-matter.
func ParseFrontMatter(content []byte) (*FrontMatter, error) {
	text := string(content)
	if !strings.HasPrefix(text, "---\n") {
		return nil, nil
	}
	rest := text[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, nil
	}
	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return nil, fmt.Errorf("parsing front-matter: %w", err)
	}
	return &fm, nil
}

// StripFrontMatter returns content without its front-matter header.
func StripFrontMatter(content []byte) []byte {
	text := string(content)
	if !strings.HasPrefix(text, "---\n") {
		return content
	}
	rest := text[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return []byte(body)
}
