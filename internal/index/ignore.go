package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the gitignore-syntax exclusion file at the project root.
const IgnoreFileName = ".c2n_ignore"

// Matcher evaluates .c2n_ignore patterns against relative paths. A nil
// pattern set matches nothing.
type Matcher struct {
	gi *ignore.GitIgnore
}

// LoadMatcher compiles the project's .c2n_ignore. A missing file yields a
// matcher that ignores nothing.
func LoadMatcher(projectDir string) (*Matcher, error) {
	path := filepath.Join(projectDir, IgnoreFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewMatcher(strings.Split(string(data), "\n")), nil
}

// NewMatcher compiles explicit pattern lines (gitignore semantics: anchored
// slash, trailing slash for directory-only, ** globbing, ! negation).
func NewMatcher(lines []string) *Matcher {
	return &Matcher{gi: ignore.CompileIgnoreLines(lines...)}
}

// Match reports whether a slash-separated relative path is excluded.
func (m *Matcher) Match(relPath string) bool {
	if m == nil || m.gi == nil {
		return false
	}
	return m.gi.MatchesPath(relPath)
}
