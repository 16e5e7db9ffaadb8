// Package notiontest provides an in-memory fake of the remote API for
// engine tests.
package notiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/livyn-inc/cursor-to-notion/internal/ident"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

// FakePage is one remote page held by the fake.
type FakePage struct {
	Page     notion.Page
	Blocks   []notion.Block
	ChildIDs []string
}

// Fake implements notion.API over an in-memory page store.
type Fake struct {
	mu     sync.Mutex
	Pages  map[string]*FakePage
	nextID int

	// Writes counts mutating calls; idempotency tests assert on it.
	Writes int
	// FailWith makes calls touching the given page ID fail.
	FailWith map[string]error
	// Clock supplies last_edited_time stamps.
	Clock func() string
}

var _ notion.API = (*Fake)(nil)

// New creates an empty fake with a deterministic clock that advances one
// second per stamp.
func New() *Fake {
	n := 0
	return &Fake{
		Pages:    make(map[string]*FakePage),
		FailWith: make(map[string]error),
		Clock: func() string {
			n++
			return fmt.Sprintf("2026-01-01T%02d:%02d:%02d.000Z", n/3600%24, n/60%60, n%60)
		},
	}
}

// AddPage seeds a page; parentID may be empty for the root.
func (f *Fake) AddPage(id, title, parentID, icon string, blocks []notion.Block) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &FakePage{
		Page: notion.Page{
			ID:             id,
			URL:            ident.PageURL(id),
			Title:          title,
			ParentID:       parentID,
			ParentType:     "page_id",
			IconEmoji:      icon,
			LastEditedTime: f.Clock(),
		},
		Blocks: blocks,
	}
	f.Pages[id] = p
	if parent, ok := f.Pages[parentID]; ok {
		parent.ChildIDs = append(parent.ChildIDs, id)
	}
	return p
}

func (f *Fake) fail(id string) error {
	if err, ok := f.FailWith[id]; ok {
		return err
	}
	return nil
}

func (f *Fake) page(id string) (*FakePage, error) {
	if err := f.fail(id); err != nil {
		return nil, err
	}
	p, ok := f.Pages[id]
	if !ok {
		return nil, &notion.APIError{StatusCode: 404, Code: "object_not_found", Message: id}
	}
	return p, nil
}

func (f *Fake) RetrievePage(ctx context.Context, pageID string) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return nil, err
	}
	cp := p.Page
	return &cp, nil
}

func (f *Fake) ChildBlocks(ctx context.Context, pageID string) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return nil, err
	}
	out := make([]notion.Block, len(p.Blocks))
	copy(out, p.Blocks)
	for _, cid := range p.ChildIDs {
		child := f.Pages[cid]
		out = append(out, notion.Block{
			Object:    "block",
			ID:        cid,
			Type:      notion.TypeChildPage,
			ChildPage: &notion.ChildPage{Title: child.Page.Title},
		})
	}
	return out, nil
}

func (f *Fake) AppendBlocks(ctx context.Context, pageID string, blocks []notion.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return err
	}
	f.Writes++
	for _, b := range blocks {
		f.nextID++
		b.ID = fmt.Sprintf("blk-%d", f.nextID)
		p.Blocks = append(p.Blocks, b)
	}
	p.Page.LastEditedTime = f.Clock()
	return nil
}

func (f *Fake) DeleteBlock(ctx context.Context, blockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	for _, p := range f.Pages {
		for i, b := range p.Blocks {
			if b.ID == blockID {
				p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
				p.Page.LastEditedTime = f.Clock()
				return nil
			}
		}
	}
	return &notion.APIError{StatusCode: 404, Code: "object_not_found", Message: blockID}
}

func (f *Fake) CreateChildPage(ctx context.Context, parentID, title, iconEmoji string) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.page(parentID); err != nil {
		return nil, err
	}
	f.Writes++
	f.nextID++
	id := fmt.Sprintf("%08d-0000-4000-8000-%012d", f.nextID, f.nextID)
	p := &FakePage{
		Page: notion.Page{
			ID:             id,
			URL:            ident.PageURL(id),
			Title:          title,
			ParentID:       parentID,
			ParentType:     "page_id",
			IconEmoji:      iconEmoji,
			LastEditedTime: f.Clock(),
		},
	}
	f.Pages[id] = p
	f.Pages[parentID].ChildIDs = append(f.Pages[parentID].ChildIDs, id)
	cp := p.Page
	return &cp, nil
}

func (f *Fake) UpdatePageTitle(ctx context.Context, pageID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return err
	}
	f.Writes++
	p.Page.Title = title
	p.Page.LastEditedTime = f.Clock()
	return nil
}

func (f *Fake) ArchivePage(ctx context.Context, pageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return err
	}
	f.Writes++
	p.Page.Archived = true
	return nil
}

func (f *Fake) LastEditedTime(ctx context.Context, pageID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return "", err
	}
	return p.Page.LastEditedTime, nil
}

func (f *Fake) FindChildPageByTitle(ctx context.Context, parentID, title string) (*notion.Page, error) {
	pages, err := f.ChildPages(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if p.Title == title {
			return p, nil
		}
	}
	return nil, nil
}

func (f *Fake) ChildPages(ctx context.Context, pageID string) ([]*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return nil, err
	}
	var out []*notion.Page
	for _, cid := range p.ChildIDs {
		if child, ok := f.Pages[cid]; ok && !child.Page.Archived {
			cp := child.Page
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *Fake) SetPageIcon(ctx context.Context, pageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.page(pageID)
	if err != nil {
		return err
	}
	f.Writes++
	p.Page.IconEmoji = emoji
	return nil
}

// SetBlocks replaces a page's content, advancing its edit time; tests use
// it to simulate remote edits.
func (f *Fake) SetBlocks(pageID string, blocks []notion.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.Pages[pageID]
	p.Blocks = blocks
	p.Page.LastEditedTime = f.Clock()
}
