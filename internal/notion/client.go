package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"

	// maxAppendBatch is the API's per-request block limit.
	maxAppendBatch = 100
	// requestTimeout is the per-call deadline.
	requestTimeout = 30 * time.Second
	// maxAttempts caps retries of transient failures.
	maxAttempts = 5
)

// APIError is a non-2xx response from the remote.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Fatal reports whether the error must not be retried (bad auth, missing
// page). Everything else is treated as transient.
func (e *APIError) Fatal() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// IsFatal reports whether err wraps a fatal APIError.
func IsFatal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Fatal()
}

// API is the surface the push and pull engines depend on. Tests substitute
// an in-memory fake.
type API interface {
	RetrievePage(ctx context.Context, pageID string) (*Page, error)
	ChildBlocks(ctx context.Context, pageID string) ([]Block, error)
	AppendBlocks(ctx context.Context, pageID string, blocks []Block) error
	DeleteBlock(ctx context.Context, blockID string) error
	CreateChildPage(ctx context.Context, parentID, title, iconEmoji string) (*Page, error)
	UpdatePageTitle(ctx context.Context, pageID, title string) error
	ArchivePage(ctx context.Context, pageID string) error
	LastEditedTime(ctx context.Context, pageID string) (string, error)
	FindChildPageByTitle(ctx context.Context, parentID, title string) (*Page, error)
	ChildPages(ctx context.Context, pageID string) ([]*Page, error)
	SetPageIcon(ctx context.Context, pageID, emoji string) error
}

// Client talks to the real API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

var _ API = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New builds a client with retrying transport and the global 3 req/s
// leaky-bucket limiter (burst 8).
func New(token string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxAttempts - 1
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = requestTimeout

	c := &Client{
		httpClient: rc.StandardClient(),
		baseURL:    defaultBaseURL,
		token:      token,
		limiter:    rate.NewLimiter(3, 8),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one API call, decoding the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// RetrievePage fetches page metadata.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var w pageWire
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &w); err != nil {
		return nil, err
	}
	return w.toPage(), nil
}

// ChildBlocks lists all child blocks of a page, following cursors, and
// recurses into table rows and nested list items so callers see complete
// content.
func (c *Client) ChildBlocks(ctx context.Context, pageID string) ([]Block, error) {
	blocks, err := c.listChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		if err := c.fillChildren(ctx, &blocks[i]); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

func (c *Client) listChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		path := "/blocks/" + blockID + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}
		var page listWire
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Results {
			var b Block
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, fmt.Errorf("decoding block: %w", err)
			}
			blocks = append(blocks, b)
		}
		if !page.HasMore {
			return blocks, nil
		}
		cursor = page.NextCursor
	}
}

// fillChildren loads the nested content of tables and list items in place.
// Child pages are deliberately left alone; the pull engine walks those.
func (c *Client) fillChildren(ctx context.Context, b *Block) error {
	if !b.HasChildren || b.Type == TypeChildPage {
		return nil
	}
	children, err := c.listChildren(ctx, b.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := c.fillChildren(ctx, &children[i]); err != nil {
			return err
		}
	}
	switch b.Type {
	case TypeTable:
		if b.Table != nil {
			b.Table.Children = children
		}
	default:
		if p := b.Payload(); p != nil {
			p.Children = children
		}
	}
	return nil
}

// AppendBlocks appends blocks to a page, splitting into batches of at most
// 100 per request. Batches stay in order, so content order is preserved.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []Block) error {
	for start := 0; start < len(blocks); start += maxAppendBatch {
		end := start + maxAppendBatch
		if end > len(blocks) {
			end = len(blocks)
		}
		body := map[string]interface{}{"children": blocks[start:end]}
		if err := c.do(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBlock removes one block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	return c.do(ctx, http.MethodDelete, "/blocks/"+blockID, nil, nil)
}

// CreateChildPage creates an empty page under a parent. iconEmoji may be
// empty.
func (c *Client) CreateChildPage(ctx context.Context, parentID, title, iconEmoji string) (*Page, error) {
	body := map[string]interface{}{
		"parent": map[string]string{"page_id": parentID},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []RichText{Text(title)},
			},
		},
	}
	if iconEmoji != "" {
		body["icon"] = map[string]string{"type": "emoji", "emoji": iconEmoji}
	}
	var w pageWire
	if err := c.do(ctx, http.MethodPost, "/pages", body, &w); err != nil {
		return nil, err
	}
	return w.toPage(), nil
}

// UpdatePageTitle renames a page.
func (c *Client) UpdatePageTitle(ctx context.Context, pageID, title string) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []RichText{Text(title)},
			},
		},
	}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil)
}

// ArchivePage moves a page to trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	body := map[string]bool{"archived": true}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil)
}

// SetPageIcon sets an emoji icon.
func (c *Client) SetPageIcon(ctx context.Context, pageID, emoji string) error {
	body := map[string]interface{}{
		"icon": map[string]string{"type": "emoji", "emoji": emoji},
	}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil)
}

// LastEditedTime returns the page's last_edited_time verbatim.
func (c *Client) LastEditedTime(ctx context.Context, pageID string) (string, error) {
	p, err := c.RetrievePage(ctx, pageID)
	if err != nil {
		return "", err
	}
	return p.LastEditedTime, nil
}

// ChildPages lists the subpages of a page.
func (c *Client) ChildPages(ctx context.Context, pageID string) ([]*Page, error) {
	blocks, err := c.listChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var pages []*Page
	for _, b := range blocks {
		if b.Type != TypeChildPage {
			continue
		}
		p, err := c.RetrievePage(ctx, b.ID)
		if err != nil {
			// A subpage that cannot be retrieved (401/403/404) is left out
			// of the listing rather than failing the whole listing.
			if IsFatal(err) {
				continue
			}
			return nil, err
		}
		if p.Title == "" && b.ChildPage != nil {
			p.Title = b.ChildPage.Title
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// FindChildPageByTitle scans a parent's subpages for an exact title match.
// Returns nil when absent.
func (c *Client) FindChildPageByTitle(ctx context.Context, parentID, title string) (*Page, error) {
	pages, err := c.ChildPages(ctx, parentID)
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
