// Package index implements the persistent mapping from local relative paths
// to remote page records. The index lives in .c2n/index.yaml; it is written
// deterministically (fixed key order, paths sorted) so that successive saves
// produce minimal diffs, and atomically (write-temp-then-rename) so a crash
// never leaves a half-written index behind.
package index

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind tags what a record stands for on the local side.
type Kind string

const (
	// KindFile is a content-bearing file in hierarchy mode.
	KindFile Kind = "file"
	// KindDirectory is a directory mapped to a folder page in hierarchy mode.
	KindDirectory Kind = "directory"
	// KindPage is a flat-mode page file.
	KindPage Kind = "page"
)

// Record is one synchronized item, keyed in the index by its local relative
// path. Unknown YAML keys survive a load/save cycle via Extra so that newer
// tool versions can add fields without older ones destroying them.
type Record struct {
	Kind             Kind
	Title            string
	PageID           string
	PageURL          string
	ParentID         string
	ContentSHA1      string // empty until the item is pushed or pulled as content
	LocalMtimeNS     int64
	RemoteLastEdited string // verbatim RFC-3339 string from the server
	LastSyncAt       string // RFC-3339 wall clock at sync completion
	Extra            map[string]*yaml.Node
}

// RemoteLastEditedTime parses the stored remote timestamp. The zero time is
// returned when the field is empty or malformed.
func (r *Record) RemoteLastEditedTime() time.Time {
	t, err := time.Parse(time.RFC3339, r.RemoteLastEdited)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LastSyncTime parses last_sync_at, zero time on absence.
func (r *Record) LastSyncTime() time.Time {
	t, err := time.Parse(time.RFC3339, r.LastSyncAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UnmarshalYAML decodes a record mapping, diverting keys this version does
// not know into Extra.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("record is not a mapping (line %d)", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "kind":
			r.Kind = Kind(val.Value)
		case "title":
			r.Title = val.Value
		case "page_id":
			r.PageID = val.Value
		case "page_url":
			r.PageURL = val.Value
		case "parent_id":
			r.ParentID = val.Value
		case "content_sha1":
			r.ContentSHA1 = val.Value
		case "local_mtime_ns":
			n, err := strconv.ParseInt(val.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("local_mtime_ns: %w", err)
			}
			r.LocalMtimeNS = n
		case "remote_last_edited":
			r.RemoteLastEdited = val.Value
		case "last_sync_at":
			r.LastSyncAt = val.Value
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]*yaml.Node)
			}
			r.Extra[key] = val
		}
	}
	return nil
}

// MarshalYAML emits the record with fields in declaration order followed by
// preserved unknown keys in sorted order.
func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key, value string) {
		node.Content = append(node.Content,
			scalarNode(key), scalarNode(value))
	}
	add("kind", string(r.Kind))
	if r.Title != "" {
		add("title", r.Title)
	}
	add("page_id", r.PageID)
	add("page_url", r.PageURL)
	if r.ParentID != "" {
		add("parent_id", r.ParentID)
	}
	if r.ContentSHA1 != "" {
		add("content_sha1", r.ContentSHA1)
	}
	if r.LocalMtimeNS != 0 {
		node.Content = append(node.Content,
			scalarNode("local_mtime_ns"), intNode(r.LocalMtimeNS))
	}
	if r.RemoteLastEdited != "" {
		add("remote_last_edited", r.RemoteLastEdited)
	}
	if r.LastSyncAt != "" {
		add("last_sync_at", r.LastSyncAt)
	}
	extraKeys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		node.Content = append(node.Content, scalarNode(k), r.Extra[k])
	}
	return node, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func intNode(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
}
