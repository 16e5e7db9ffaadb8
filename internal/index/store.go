package index

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const (
	// MetaDirName is the hidden per-project metadata folder.
	MetaDirName = ".c2n"
	indexFile   = "index.yaml"
)

var (
	// ErrCorrupt marks an index file that could not be parsed. A store
	// loaded in this state refuses to save, and status --fix saves through
	// the same store, so it leaves such a file untouched as well; the file
	// has to be repaired or removed by hand.
	ErrCorrupt = errors.New("index corrupt")
	// ErrInvariantViolation marks a put that would break the
	// parent-directory invariant of hierarchy mode.
	ErrInvariantViolation = errors.New("index invariant violation")
)

// Store owns the on-disk index of one project.
type Store struct {
	projectDir string
	idx        *Index
	corrupt    bool
}

// Index is the in-memory document: a root URL carried verbatim for backward
// compatibility plus the item mapping.
type Index struct {
	Version     int
	RootPageURL string
	Items       map[string]*Record
}

// Path returns the index file path for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, MetaDirName, indexFile)
}

// Load reads the project index, returning an empty store when the file does
// not exist. A parse failure returns a store flagged corrupt together with
// ErrCorrupt; callers that only read may keep going, writers must not.
func Load(projectDir string) (*Store, error) {
	s := &Store{
		projectDir: projectDir,
		idx:        &Index{Version: 1, Items: make(map[string]*Record)},
	}
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var doc struct {
		Version     int                `yaml:"version"`
		RootPageURL string             `yaml:"root_page_url"`
		Items       map[string]*Record `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.corrupt = true
		return s, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Version != 0 {
		s.idx.Version = doc.Version
	}
	s.idx.RootPageURL = doc.RootPageURL
	if doc.Items != nil {
		s.idx.Items = doc.Items
	}
	return s, nil
}

// ProjectDir returns the directory this store belongs to.
func (s *Store) ProjectDir() string { return s.projectDir }

// RootPageURL returns the legacy top-level URL field.
func (s *Store) RootPageURL() string { return s.idx.RootPageURL }

// SetRootPageURL overwrites the legacy top-level URL field.
func (s *Store) SetRootPageURL(url string) { s.idx.RootPageURL = url }

// Get returns the record for a relative path, nil when absent.
func (s *Store) Get(relPath string) *Record {
	return s.idx.Items[relPath]
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.idx.Items) }

// Put upserts a record. For hierarchy-mode kinds (file, directory) the
// parent path must already hold a directory record; the empty path is the
// project root and always acceptable as a parent.
func (s *Store) Put(relPath string, r *Record) error {
	if r.Kind == KindFile || r.Kind == KindDirectory {
		parent := parentPath(relPath)
		if parent != "" {
			p, ok := s.idx.Items[parent]
			if !ok || p.Kind != KindDirectory {
				return fmt.Errorf("%w: missing directory record for parent %q of %q",
					ErrInvariantViolation, parent, relPath)
			}
		}
	}
	s.idx.Items[relPath] = r
	return nil
}

// Delete removes a record if present.
func (s *Store) Delete(relPath string) {
	delete(s.idx.Items, relPath)
}

// Paths returns all record keys in sorted order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.idx.Items))
	for p := range s.idx.Items {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FindByPageID returns the first (path, record) whose page_id matches, or
// ("", nil).
func (s *Store) FindByPageID(pageID string) (string, *Record) {
	for _, p := range s.Paths() {
		if r := s.idx.Items[p]; r.PageID == pageID {
			return p, r
		}
	}
	return "", nil
}

// Save writes the index atomically. Saving a store that failed to parse is
// refused so a corrupt-but-recoverable file is never clobbered.
func (s *Store) Save() error {
	if s.corrupt {
		return fmt.Errorf("%w: refusing to overwrite, run status --fix", ErrCorrupt)
	}
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	dir := filepath.Join(s.projectDir, MetaDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := atomic.WriteFile(Path(s.projectDir), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// encode renders the document with a fixed top-level key order and items
// sorted by path. root_page_url is emitted even when empty.
func (s *Store) encode() ([]byte, error) {
	items := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range s.Paths() {
		rec, err := s.idx.Items[p].MarshalYAML()
		if err != nil {
			return nil, err
		}
		items.Content = append(items.Content, scalarNode(p), rec.(*yaml.Node))
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	root.Content = append(root.Content,
		scalarNode("version"), intNode(int64(s.idx.Version)),
		scalarNode("root_page_url"), scalarNode(s.idx.RootPageURL),
		scalarNode("items"), items,
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parentPath returns the slash-separated parent of a relative path, "" for
// top-level entries.
func parentPath(relPath string) string {
	i := lastSlash(relPath)
	if i < 0 {
		return ""
	}
	return relPath[:i]
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
